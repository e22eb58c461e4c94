package tracker_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tracker "github.com/goliatone/go-tracker"
)

func signedUp(t *testing.T, repo tracker.RepositoryManager, username string) string {
	t.Helper()
	mail := &outbox{}
	_, err := newSignupHandler(repo, mail).Execute(context.Background(), tracker.RequestSignupMessage{
		Username: username,
		Email:    username + "@example.com",
	})
	require.NoError(t, err)
	return mail.last(t).Code
}

func TestExchangeTokenIssuesTokenForValidCode(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	tokens := newTestTokenService()
	sink := &capturingSink{}

	code := signedUp(t, repo, "alice")

	handler := tracker.NewExchangeTokenHandler(repo, tokens,
		tracker.WithExchangeLogger(discardLogger()),
		tracker.WithExchangeActivitySink(sink),
	)

	res, err := handler.Execute(ctx, tracker.ExchangeTokenMessage{Username: "alice", ConfirmationCode: code})
	require.NoError(t, err)
	require.NotEmpty(t, res.Access)

	claims, err := tokens.Validate(res.Access)
	require.NoError(t, err)

	user, err := repo.Users().GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.UserID())
	assert.Equal(t, "user", claims.Role())

	issued := sink.ofType(tracker.ActivityEventTokenIssued)
	require.Len(t, issued, 1)
	assert.Equal(t, "alice", issued[0].Username)
}

func TestExchangeTokenCodeIsReusable(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	code := signedUp(t, repo, "alice")

	handler := tracker.NewExchangeTokenHandler(repo, newTestTokenService(), tracker.WithExchangeLogger(discardLogger()))

	for i := 0; i < 2; i++ {
		_, err := handler.Execute(ctx, tracker.ExchangeTokenMessage{Username: "alice", ConfirmationCode: code})
		require.NoError(t, err)
	}
}

func TestExchangeTokenRejections(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	signedUp(t, repo, "alice")
	seedUser(t, repo, "bob", tracker.RoleUser)

	sink := &capturingSink{}
	handler := tracker.NewExchangeTokenHandler(repo, newTestTokenService(),
		tracker.WithExchangeLogger(discardLogger()),
		tracker.WithExchangeActivitySink(sink),
	)

	tests := []struct {
		name   string
		msg    tracker.ExchangeTokenMessage
		status int
		reason string
	}{
		{"missing fields", tracker.ExchangeTokenMessage{}, http.StatusBadRequest, "validation"},
		{"unknown user", tracker.ExchangeTokenMessage{Username: "carol", ConfirmationCode: "x"}, http.StatusNotFound, "unknown_user"},
		{"wrong code", tracker.ExchangeTokenMessage{Username: "alice", ConfirmationCode: "nope"}, http.StatusBadRequest, "invalid_code"},
		{"never issued", tracker.ExchangeTokenMessage{Username: "bob", ConfirmationCode: "anything"}, http.StatusBadRequest, "invalid_code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(sink.ofType(tracker.ActivityEventTokenRejected))

			_, err := handler.Execute(ctx, tt.msg)
			require.Error(t, err)
			assert.Equal(t, tt.status, tracker.StatusCode(err))

			rejected := sink.ofType(tracker.ActivityEventTokenRejected)
			require.Len(t, rejected, before+1)
			assert.Equal(t, tt.reason, rejected[before].Reason)
		})
	}
}

func TestExchangeTokenUnknownUserError(t *testing.T) {
	repo := newTestRepo(t)
	handler := tracker.NewExchangeTokenHandler(repo, newTestTokenService(), tracker.WithExchangeLogger(discardLogger()))

	_, err := handler.Authenticate(context.Background(), "ghost", "code")
	assert.True(t, tracker.IsError(err, tracker.ErrPrincipalNotFound))
}
