package tracker

import (
	"context"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// ReservedUsername is the alias for the requesting principal.
const ReservedUsername = "me"

const (
	maxUsernameLength = 150
	maxEmailLength    = 254
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// usernameRules apply wherever a username is chosen or changed.
func usernameRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.Length(1, maxUsernameLength),
		validation.Match(usernamePattern).Error("may contain only letters, digits and @/./+/-/_ characters"),
		validation.By(notReserved),
	}
}

func emailRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.Length(3, maxEmailLength),
		is.EmailFormat,
	}
}

func notReserved(value any) error {
	s, _ := value.(string)
	if strings.EqualFold(strings.TrimSpace(s), ReservedUsername) {
		return validation.NewError("validation_username_reserved", "using \"me\" as a username is not allowed")
	}
	return nil
}

type RequestSignupMessage struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (e RequestSignupMessage) Type() string { return "auth.signup.request" }

func (e RequestSignupMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Username, usernameRules()...),
		validation.Field(&e.Email, emailRules()...),
	)
}

func (e RequestSignupMessage) normalize() RequestSignupMessage {
	e.Username = strings.TrimSpace(e.Username)
	e.Email = strings.TrimSpace(e.Email)
	return e
}

// SignupResult echoes the pair the code was issued for, never the code.
type SignupResult struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// RequestSignupHandler issues confirmation codes
type RequestSignupHandler struct {
	repo         RepositoryManager
	mailer       Mailer
	hashCost     int
	timeout      time.Duration
	logger       Logger
	activitySink ActivitySink
	newCode      func() (string, error)
}

type RequestSignupOption func(*RequestSignupHandler)

func WithSignupHashCost(cost int) RequestSignupOption {
	return func(h *RequestSignupHandler) {
		h.hashCost = cost
	}
}

func WithSignupLogger(logger Logger) RequestSignupOption {
	return func(h *RequestSignupHandler) {
		h.logger = normalizeLogger(logger)
	}
}

func WithSignupActivitySink(sink ActivitySink) RequestSignupOption {
	return func(h *RequestSignupHandler) {
		h.activitySink = normalizeActivitySink(sink)
	}
}

// WithSignupCodeGenerator replaces the confirmation code source.
func WithSignupCodeGenerator(fn func() (string, error)) RequestSignupOption {
	return func(h *RequestSignupHandler) {
		if fn != nil {
			h.newCode = fn
		}
	}
}

func NewRequestSignupHandler(repo RepositoryManager, mailer Mailer, opts ...RequestSignupOption) *RequestSignupHandler {
	h := &RequestSignupHandler{
		repo:         repo,
		mailer:       mailer,
		hashCost:     DefaultHashCost,
		timeout:      30 * time.Second,
		logger:       defaultLogger(),
		activitySink: noopActivitySink{},
		newCode:      NewConfirmationCode,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

func (h *RequestSignupHandler) Execute(ctx context.Context, event RequestSignupMessage) (SignupResult, error) {
	select {
	case <-ctx.Done():
		return SignupResult{}, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during signup request",
		)
	default:
		return h.execute(ctx, event.normalize())
	}
}

func (h *RequestSignupHandler) execute(ctx context.Context, event RequestSignupMessage) (SignupResult, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	existing, err := h.repo.Users().GetByCredentialPair(ctx, event.Username, event.Email)
	switch {
	case err == nil:
		// an exact pair match is a resend and skips payload validation
	case IsError(err, ErrNotFound):
		existing = nil
		if verr := ValidationFromOzzo(event.Validate()); verr != nil {
			h.reject(ctx, event, "validation")
			return SignupResult{}, verr
		}
	default:
		return SignupResult{}, err
	}

	code, err := h.newCode()
	if err != nil {
		return SignupResult{}, NewInternalError(err, "unable to generate confirmation code")
	}

	hash, err := HashSecret(code, h.hashCost)
	if err != nil {
		return SignupResult{}, NewInternalError(err, "unable to hash confirmation code")
	}

	var user *User
	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		if existing != nil {
			user = existing
		} else if user, err = h.repo.Users().EnsureSignupTx(ctx, tx, event.Username, event.Email); err != nil {
			return err
		}

		if err := h.repo.Users().StoreConfirmationHashTx(ctx, tx, user.ID, hash); err != nil {
			return err
		}

		msg := ConfirmationMessage{To: user.Email, Username: user.Username, Code: code}
		if err := h.mailer.Deliver(ctx, msg); err != nil {
			return NewDeliveryError(err)
		}
		return nil
	})

	if err != nil {
		reason := "storage"
		switch {
		case IsError(err, ErrDeliveryFailed):
			reason = "delivery"
		case IsError(err, ErrConflict):
			reason = "conflict"
		}
		h.reject(ctx, event, reason)
		h.logger.Error("signup request failed",
			append([]any{"username", event.Username, "error", err}, attrsOf(err)...)...,
		)

		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return SignupResult{}, richErr
		}
		return SignupResult{}, NewInternalError(err, "signup transaction failed")
	}

	recordActivity(ctx, h.activitySink, h.logger, ActivityEvent{
		EventType: ActivityEventSignupRequested,
		UserID:    user.ID.String(),
		Username:  user.Username,
		Metadata:  map[string]any{"resend": existing != nil},
	})

	return SignupResult{Username: user.Username, Email: user.Email}, nil
}

func (h *RequestSignupHandler) reject(ctx context.Context, event RequestSignupMessage, reason string) {
	recordActivity(ctx, h.activitySink, h.logger, ActivityEvent{
		EventType: ActivityEventSignupRejected,
		Username:  event.Username,
		Reason:    reason,
	})
}

func attrsOf(err error) []any {
	attrs := goerrors.ToSlogAttributes(err)
	out := make([]any, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, a)
	}
	return out
}
