package tracker

import (
	"net/http"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"

	"github.com/goliatone/go-tracker/middleware/jwtware"
)

// ErrorBody is the JSON body for non validation errors.
type ErrorBody struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}

// ErrorResponse maps err to a status code and response body. Validation
// errors render as a map of field to messages.
func ErrorResponse(err error) (int, any) {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return http.StatusInternalServerError, ErrorBody{
			Detail: "an unexpected server error occurred",
			Code:   TextCodeInternal,
		}
	}

	status := StatusCode(richErr)
	if fields := FormatValidationErrorToMap(richErr); len(fields) > 0 {
		return status, fields
	}

	detail := richErr.Message
	if status >= http.StatusInternalServerError && richErr.Category != errors.CategoryExternal {
		detail = "an unexpected server error occurred"
	}
	return status, ErrorBody{Detail: detail, Code: richErr.TextCode}
}

// NewErrorHandler renders domain errors as JSON.
func NewErrorHandler(logger Logger) router.ErrorHandler {
	logger = normalizeLogger(logger)
	return func(ctx router.Context, err error) error {
		status, body := ErrorResponse(err)

		args := []any{"status", status, "error", err}
		args = append(args, attrsOf(err)...)
		if status >= http.StatusInternalServerError {
			logger.Error("request failed", args...)
		} else {
			logger.Debug("request rejected", args...)
		}

		var richErr *errors.Error
		if errors.As(err, &richErr) && len(richErr.Metadata) > 0 {
			logger.Debug("error metadata", "details", print.MaybePrettyJSON(richErr.Metadata))
		}

		return ctx.JSON(status, body)
	}
}

// PrincipalMiddleware verifies bearer tokens and stores their claims for
// PrincipalFromRouterContext. Requests without a valid token go through as
// anonymous; the policy decides whether that is enough.
func PrincipalMiddleware(cfg Config, validator TokenValidator, logger Logger, sink ActivitySink) router.MiddlewareFunc {
	logger = normalizeLogger(logger)
	sink = normalizeActivitySink(sink)

	return jwtware.New(jwtware.Config{
		Optional:    true,
		ContextKey:  cfg.GetContextKey(),
		TokenLookup: cfg.GetTokenLookup(),
		AuthScheme:  cfg.GetAuthScheme(),
		TokenValidator: jwtware.TokenValidatorFunc(func(raw string) (jwtware.AuthClaims, error) {
			claims, err := validator.Validate(raw)
			if err != nil {
				return nil, err
			}
			return claims, nil
		}),
		RejectionListener: func(ctx router.Context, err error) {
			reason := "malformed"
			if IsTokenExpiredError(err) {
				reason = "expired"
			}
			logger.Debug("session token rejected", "reason", reason, "path", ctx.Path())
			recordActivity(ctx.Context(), sink, logger, ActivityEvent{
				EventType: ActivityEventTokenRejected,
				Reason:    reason,
			})
		},
	})
}
