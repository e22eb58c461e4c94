package jwtware

import (
	"errors"
	"strings"

	"github.com/goliatone/go-router"
)

const (
	defaultContextKey = "user"
	defaultAuthScheme = "Bearer"
)

var (
	defaultTokenLookup       = "header:" + router.HeaderAuthorization
	ErrJWTMissingOrMalformed = errors.New("missing or malformed JWT")
)

// TokenValidator verifies a raw token. It mirrors tracker.TokenValidator
// so this package does not import the core.
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
}

// TokenValidatorFunc adapts a function into a TokenValidator.
type TokenValidatorFunc func(tokenString string) (AuthClaims, error)

func (f TokenValidatorFunc) Validate(tokenString string) (AuthClaims, error) {
	return f(tokenString)
}

// AuthClaims is the subset of verified claims handlers rely on.
type AuthClaims interface {
	Subject() string
	UserID() string
	Role() string
}

// ValidationListener runs after signature verification and before the
// claims are stored. Returning an error rejects the token.
type ValidationListener func(ctx router.Context, claims AuthClaims) error

type Config struct {
	// Filter skips the middleware when it returns true.
	Filter       func(router.Context) bool
	ErrorHandler router.ErrorHandler
	ContextKey   string
	// TokenLookup is a comma separated list of source:name pairs, e.g.
	// "header:Authorization,query:access,cookie:jwt". Sources are tried
	// in order.
	TokenLookup string
	AuthScheme  string
	// TokenValidator is required.
	TokenValidator TokenValidator

	// Optional lets requests without a usable token through untouched, no
	// claims are stored and ErrorHandler is not called. Handlers downstream
	// treat the request as anonymous.
	Optional bool

	// RejectionListener is called in Optional mode when a token was
	// presented but did not validate.
	RejectionListener func(ctx router.Context, err error)

	ValidationListeners []ValidationListener
}

func New(config ...Config) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		cfg := GetDefaultConfig(config...)
		extractors := cfg.getExtractors()

		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			claims, presented, err := cfg.authenticate(ctx, extractors)
			switch {
			case err == nil:
				ctx.Locals(cfg.ContextKey, claims)
			case !cfg.Optional:
				return cfg.ErrorHandler(ctx, err)
			case presented && cfg.RejectionListener != nil:
				cfg.RejectionListener(ctx, err)
			}
			return ctx.Next()
		}
	}
}

// authenticate reports whether a token was presented at all, so optional
// mode can tell an anonymous request from a rejected one.
func (cfg *Config) authenticate(ctx router.Context, extractors []JWTExtractor) (AuthClaims, bool, error) {
	raw, err := ExtractRawTokenFromContext(ctx, extractors)
	if err != nil {
		return nil, false, err
	}

	claims, err := cfg.TokenValidator.Validate(raw)
	if err != nil {
		return nil, true, err
	}

	for _, listener := range cfg.ValidationListeners {
		if listener == nil {
			continue
		}
		if err := listener(ctx, claims); err != nil {
			return nil, true, err
		}
	}
	return claims, true, nil
}

// ExtractRawTokenFromContext returns the first token any extractor finds.
func ExtractRawTokenFromContext(ctx router.Context, extractors []JWTExtractor) (string, error) {
	for _, extractor := range extractors {
		if raw, err := extractor(ctx); err == nil && raw != "" {
			return raw, nil
		}
	}
	return "", ErrJWTMissingOrMalformed
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.TokenValidator == nil {
		panic("JWT middleware configuration: TokenValidator is required.")
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = defaultErrorHandler
	}
	if cfg.ContextKey == "" {
		cfg.ContextKey = defaultContextKey
	}
	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}
	if cfg.AuthScheme == "" {
		cfg.AuthScheme = defaultAuthScheme
	}
	return cfg
}

func defaultErrorHandler(ctx router.Context, err error) error {
	if errors.Is(err, ErrJWTMissingOrMalformed) {
		return ctx.JSON(router.StatusUnauthorized, map[string]string{
			"detail": "authentication credentials were not provided",
			"code":   "UNAUTHENTICATED",
		})
	}
	return ctx.JSON(router.StatusUnauthorized, map[string]string{
		"detail": "token is invalid or expired",
		"code":   "TOKEN_MALFORMED",
	})
}

func (cfg *Config) getExtractors() []JWTExtractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

type JWTExtractor func(c router.Context) (string, error)

// GetExtractors parses a token lookup string. Unknown sources and
// malformed pairs are ignored.
func GetExtractors(tokenLookup string, authSchemes ...string) []JWTExtractor {
	authScheme := defaultAuthScheme
	if len(authSchemes) > 0 {
		authScheme = strings.TrimSpace(authSchemes[0])
	}

	var extractors []JWTExtractor
	for _, pair := range strings.Split(tokenLookup, ",") {
		source, name, ok := strings.Cut(strings.TrimSpace(pair), ":")
		source, name = strings.TrimSpace(source), strings.TrimSpace(name)
		if !ok || name == "" {
			continue
		}

		switch source {
		case "header":
			extractors = append(extractors, jwtFromHeader(name, authScheme))
		case "query":
			extractors = append(extractors, nonEmpty(func(c router.Context) string { return c.Query(name, "") }))
		case "param":
			extractors = append(extractors, nonEmpty(func(c router.Context) string { return c.Param(name) }))
		case "cookie":
			extractors = append(extractors, nonEmpty(func(c router.Context) string { return c.Cookies(name) }))
		}
	}
	return extractors
}

// jwtFromHeader expects "<scheme> <token>", the scheme compared case
// insensitively.
func jwtFromHeader(header, authScheme string) JWTExtractor {
	return func(c router.Context) (string, error) {
		if authScheme == "" {
			return "", ErrJWTMissingOrMalformed
		}
		scheme, token, ok := strings.Cut(c.GetString(header, ""), " ")
		if !ok || !strings.EqualFold(scheme, authScheme) {
			return "", ErrJWTMissingOrMalformed
		}
		if token = strings.TrimSpace(token); token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

func nonEmpty(read func(c router.Context) string) JWTExtractor {
	return func(c router.Context) (string, error) {
		if token := read(c); token != "" {
			return token, nil
		}
		return "", ErrJWTMissingOrMalformed
	}
}
