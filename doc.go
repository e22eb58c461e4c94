// Package tracker implements the authentication and authorization core of a
// small multi-tenant project/task tracker.
//
// Sign up is password-less: RequestSignupHandler issues a one-time
// confirmation code, stores only its bcrypt hash and delivers the plaintext
// through a Mailer. ExchangeTokenHandler verifies a submitted code and mints a
// signed, stateless session token carrying the principal id and role.
//
// Every resource operation receives the resolved Principal (or Anonymous)
// explicitly and consults Authorize before touching storage:
//
//	decision := tracker.Authorize(principal, tracker.VerbWrite, tracker.TaskTarget(task))
//	if err := decision.Err(); err != nil {
//		return err
//	}
//
// Authorize composes two pure policies with a logical AND: IdentityScope for
// user profiles and OwnershipScope for projects and tasks.
//
// Controller exposes the HTTP surface on top of go-router.
package tracker
