package tracker

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
)

const (
	maxExchangeUsernameLength = 256
	maxExchangeCodeLength     = 512
)

type ExchangeTokenMessage struct {
	Username         string `json:"username"`
	ConfirmationCode string `json:"confirmation_code"`
}

func (e ExchangeTokenMessage) Type() string { return "auth.token.exchange" }

func (e ExchangeTokenMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Username, validation.Required, validation.Length(1, maxExchangeUsernameLength)),
		validation.Field(&e.ConfirmationCode, validation.Required, validation.Length(1, maxExchangeCodeLength)),
	)
}

// TokenResponse is the body returned by the token endpoint.
type TokenResponse struct {
	Access string `json:"access"`
}

// ExchangeTokenHandler verifies a confirmation code and mints a session
// token. A verified code is not consumed, it stays valid until the next
// signup request for the same user rotates it.
type ExchangeTokenHandler struct {
	repo         RepositoryManager
	tokens       TokenService
	logger       Logger
	activitySink ActivitySink
}

type ExchangeTokenOption func(*ExchangeTokenHandler)

func WithExchangeLogger(logger Logger) ExchangeTokenOption {
	return func(h *ExchangeTokenHandler) {
		h.logger = normalizeLogger(logger)
	}
}

func WithExchangeActivitySink(sink ActivitySink) ExchangeTokenOption {
	return func(h *ExchangeTokenHandler) {
		h.activitySink = normalizeActivitySink(sink)
	}
}

func NewExchangeTokenHandler(repo RepositoryManager, tokens TokenService, opts ...ExchangeTokenOption) *ExchangeTokenHandler {
	h := &ExchangeTokenHandler{
		repo:         repo,
		tokens:       tokens,
		logger:       defaultLogger(),
		activitySink: noopActivitySink{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

func (h *ExchangeTokenHandler) Execute(ctx context.Context, event ExchangeTokenMessage) (TokenResponse, error) {
	select {
	case <-ctx.Done():
		return TokenResponse{}, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during token exchange",
		)
	default:
	}

	event.Username = strings.TrimSpace(event.Username)
	event.ConfirmationCode = strings.TrimSpace(event.ConfirmationCode)

	if err := ValidationFromOzzo(event.Validate()); err != nil {
		h.reject(ctx, event.Username, "validation")
		return TokenResponse{}, err
	}

	token, err := h.Authenticate(ctx, event.Username, event.ConfirmationCode)
	if err != nil {
		return TokenResponse{}, err
	}
	return TokenResponse{Access: token}, nil
}

// Authenticate returns a signed token for username when code verifies
// against the stored hash. An unknown username is a NotFoundError and a
// wrong code an InvalidCredentialError.
func (h *ExchangeTokenHandler) Authenticate(ctx context.Context, username, code string) (string, error) {
	user, err := h.repo.Users().GetByUsername(ctx, username)
	if err != nil {
		if IsError(err, ErrNotFound) {
			h.reject(ctx, username, "unknown_user")
			return "", ErrPrincipalNotFound.Clone().WithMetadata(map[string]any{"username": username})
		}
		return "", err
	}

	if err := CompareSecretAndHash(code, user.ConfirmationCodeHash); err != nil {
		h.reject(ctx, username, "invalid_code")
		return "", err
	}

	token, err := h.tokens.Generate(NewIdentityFromUser(user))
	if err != nil {
		h.logger.Error("token generation failed", "username", username, "error", err)
		return "", NewInternalError(err, "unable to issue token")
	}

	recordActivity(ctx, h.activitySink, h.logger, ActivityEvent{
		EventType: ActivityEventTokenIssued,
		UserID:    user.ID.String(),
		Username:  user.Username,
	})

	return token, nil
}

func (h *ExchangeTokenHandler) reject(ctx context.Context, username, reason string) {
	recordActivity(ctx, h.activitySink, h.logger, ActivityEvent{
		EventType: ActivityEventTokenRejected,
		Username:  username,
		Reason:    reason,
	})
}
