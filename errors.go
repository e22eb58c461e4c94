package tracker

import (
	"sort"

	"github.com/goliatone/go-errors"
)

// Text codes used in error responses.
const (
	TextCodeValidationFailed  = "VALIDATION_FAILED"
	TextCodePrincipalNotFound = "PRINCIPAL_NOT_FOUND"
	TextCodeNotFound          = "NOT_FOUND"
	TextCodeUnauthenticated   = "UNAUTHENTICATED"
	TextCodeForbidden         = "FORBIDDEN"
	TextCodeConflict          = "CONFLICT"
	TextCodeDeliveryFailed    = "DELIVERY_FAILED"
	TextCodeInternal          = "INTERNAL"
)

// ErrPrincipalNotFound is returned when a token exchange names a username
// that does not exist.
var ErrPrincipalNotFound = errors.New("no user with that username", errors.CategoryNotFound).
	WithCode(errors.CodeNotFound).
	WithTextCode(TextCodePrincipalNotFound)

// ErrInvalidConfirmationCode is returned when the submitted code does not
// verify against the stored hash.
var ErrInvalidConfirmationCode = errors.New("invalid confirmation code", errors.CategoryAuth).
	WithCode(errors.CodeBadRequest).
	WithTextCode(errors.TextCodeInvalidCredentials)

// ErrUnauthenticated is returned when an anonymous principal hits a
// protected resource.
var ErrUnauthenticated = errors.New("authentication credentials were not provided", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeUnauthenticated)

// ErrForbidden is returned when an authenticated principal lacks permission.
var ErrForbidden = errors.New("you do not have permission to perform this action", errors.CategoryAuthz).
	WithCode(errors.CodeForbidden).
	WithTextCode(TextCodeForbidden)

// ErrTokenExpired is returned for well formed tokens past their expiry.
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(errors.TextCodeTokenExpired)

// ErrTokenMalformed covers any token that fails signature, structure or
// claim checks.
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(errors.TextCodeTokenMalformed)

// ErrNotFound is the generic missing resource error.
var ErrNotFound = errors.New("not found", errors.CategoryNotFound).
	WithCode(errors.CodeNotFound).
	WithTextCode(TextCodeNotFound)

// ErrConflict signals a uniqueness clash on username or email.
var ErrConflict = errors.New("a user with that username or email already exists", errors.CategoryConflict).
	WithCode(errors.CodeConflict).
	WithTextCode(TextCodeConflict)

// ErrDeliveryFailed is returned when the mailer could not hand off a
// confirmation code.
var ErrDeliveryFailed = errors.New("unable to deliver confirmation code", errors.CategoryExternal).
	WithCode(502).
	WithTextCode(TextCodeDeliveryFailed)

// NewValidationError builds a 400 error holding per field messages.
func NewValidationError(message string, fields ...errors.FieldError) *errors.Error {
	return errors.NewValidation(message, fields...).
		WithCode(errors.CodeBadRequest).
		WithTextCode(TextCodeValidationFailed)
}

// NewFieldError is shorthand for a single field validation failure.
func NewFieldError(field, message string) *errors.Error {
	return NewValidationError("invalid input", errors.FieldError{Field: field, Message: message})
}

// ValidationFromOzzo converts the result of an ozzo Validate call.
func ValidationFromOzzo(err error) error {
	if err == nil {
		return nil
	}
	return errors.FromOzzoValidation(err, "invalid input").
		WithCode(errors.CodeBadRequest).
		WithTextCode(TextCodeValidationFailed)
}

func NewNotFoundError(resource string, meta map[string]any) *errors.Error {
	return ErrNotFound.Clone().WithMetadata(map[string]any{"resource": resource}, meta)
}

func NewConflictError(source error, meta map[string]any) *errors.Error {
	e := ErrConflict.Clone().WithMetadata(meta)
	e.Source = source
	return e
}

func NewDeliveryError(source error) *errors.Error {
	e := ErrDeliveryFailed.Clone()
	e.Source = source
	return e
}

func NewInternalError(source error, message string) *errors.Error {
	return errors.Wrap(source, errors.CategoryInternal, message).
		WithCode(errors.CodeInternal).
		WithTextCode(TextCodeInternal)
}

// IsError reports whether err carries the same category and text code as
// the given sentinel. Sentinels are always cloned before being returned so
// identity comparison does not work.
func IsError(err error, sentinel *errors.Error) bool {
	if err == nil || sentinel == nil {
		return false
	}
	var e *errors.Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Category == sentinel.Category && e.TextCode == sentinel.TextCode
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	return IsError(err, ErrTokenExpired)
}

// IsMalformedError will check for malformed tokens
func IsMalformedError(err error) bool {
	return IsError(err, ErrTokenMalformed)
}

// StatusCode returns the HTTP status attached to err, 500 otherwise.
func StatusCode(err error) int {
	var e *errors.Error
	if errors.As(err, &e) && e.Code != 0 {
		return e.Code
	}
	return errors.CodeInternal
}

// FormatValidationErrorToMap groups validation messages by field.
func FormatValidationErrorToMap(err error) map[string][]string {
	fields, ok := errors.GetValidationErrors(err)
	if !ok || len(fields) == 0 {
		return nil
	}
	out := make(map[string][]string, len(fields))
	for _, f := range fields {
		name := f.Field
		if name == "" {
			name = "non_field_errors"
		}
		out[name] = append(out[name], f.Message)
	}
	for k := range out {
		sort.Strings(out[k])
	}
	return out
}
