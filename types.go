package tracker

import (
	"context"
	"log/slog"
	"time"
)

// Logger is satisfied by *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Identity holds the attributes of an identity
type Identity interface {
	ID() string
	Username() string
	Email() string
	Role() string
}

// Config holds token and credential options
type Config interface {
	GetSigningKey() string
	GetSigningKeyID() string
	// GetPreviousSigningKeys returns retired keys, indexed by key id, that
	// still verify tokens but never sign new ones.
	GetPreviousSigningKeys() map[string]string
	GetTokenTTL() time.Duration
	GetIssuer() string
	GetAudience() []string
	GetHashCost() int
	GetContextKey() string
	GetTokenLookup() string
	GetAuthScheme() string
}

// TokenService mints and verifies session tokens.
type TokenService interface {
	TokenValidator
	Generate(identity Identity) (string, error)
}

// Mailer delivers confirmation codes out of band.
type Mailer interface {
	Deliver(ctx context.Context, msg ConfirmationMessage) error
}

// ConfirmationMessage is what a Mailer sends to a user requesting access.
type ConfirmationMessage struct {
	To       string
	Username string
	Code     string
}

// MailerFunc adapts a function to the Mailer interface.
type MailerFunc func(ctx context.Context, msg ConfirmationMessage) error

// Deliver implements Mailer.
func (f MailerFunc) Deliver(ctx context.Context, msg ConfirmationMessage) error {
	return f(ctx, msg)
}

func defaultLogger() Logger {
	return slog.Default().With("component", "tracker")
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defaultLogger()
	}
	return l
}
