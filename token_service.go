package tracker

import (
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const signingAlgorithm = "HS256"

// DefaultTokenTTL is used when the configuration leaves the expiry unset.
const DefaultTokenTTL = 24 * time.Hour

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	keyID      string
	signingKey []byte
	verifiers  map[string]keyfunc.GivenKey
	keys       *keyfunc.JWKS
	ttl        time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	logger     Logger
	now        func() time.Time
}

// TokenServiceOption configures a TokenServiceImpl
type TokenServiceOption func(*TokenServiceImpl)

// WithTokenLogger sets the logger
func WithTokenLogger(logger Logger) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if logger != nil {
			ts.logger = logger
		}
	}
}

// WithVerificationKey adds a retired key that still verifies tokens carrying
// its kid. It never signs.
func WithVerificationKey(kid string, key []byte) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if kid == "" || len(key) == 0 {
			return
		}
		ts.verifiers[kid] = keyfunc.NewGivenHMAC(key, keyfunc.GivenKeyOptions{Algorithm: signingAlgorithm})
	}
}

// WithTokenClock overrides the time source
func WithTokenClock(now func() time.Time) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if now != nil {
			ts.now = now
		}
	}
}

// NewTokenService creates a new TokenService instance
func NewTokenService(keyID string, signingKey []byte, ttl time.Duration, issuer string, audience []string, opts ...TokenServiceOption) *TokenServiceImpl {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if keyID == "" {
		keyID = "default"
	}

	ts := &TokenServiceImpl{
		keyID:      keyID,
		signingKey: signingKey,
		verifiers:  map[string]keyfunc.GivenKey{},
		ttl:        ttl,
		issuer:     issuer,
		audience:   audience,
		logger:     defaultLogger(),
		now:        time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}

	ts.verifiers[keyID] = keyfunc.NewGivenHMAC(signingKey, keyfunc.GivenKeyOptions{Algorithm: signingAlgorithm})
	ts.keys = keyfunc.NewGiven(ts.verifiers)

	return ts
}

// NewTokenServiceFromConfig wires the key ring from configuration
func NewTokenServiceFromConfig(cfg Config, logger Logger) *TokenServiceImpl {
	opts := []TokenServiceOption{WithTokenLogger(logger)}
	for kid, key := range cfg.GetPreviousSigningKeys() {
		opts = append(opts, WithVerificationKey(kid, []byte(key)))
	}
	return NewTokenService(
		cfg.GetSigningKeyID(),
		[]byte(cfg.GetSigningKey()),
		cfg.GetTokenTTL(),
		cfg.GetIssuer(),
		cfg.GetAudience(),
		opts...,
	)
}

// Generate mints a signed token for identity
func (ts *TokenServiceImpl) Generate(identity Identity) (string, error) {
	if identity == nil {
		return "", errors.New("identity must not be nil", errors.CategoryInternal)
	}

	now := ts.now()
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ts.issuer,
			Subject:   identity.ID(),
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.ttl)),
		},
		UID:      identity.ID(),
		UserRole: identity.Role(),
	}

	return ts.SignClaims(claims)
}

// SignClaims signs claims with the active key.
func (ts *TokenServiceImpl) SignClaims(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = ts.keyID

	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signed, nil
}

// Validate parses and validates a token string, returning structured claims
func (ts *TokenServiceImpl) Validate(tokenString string) (AuthClaims, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{signingAlgorithm}),
		jwt.WithTimeFunc(ts.now),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience[0]))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, ts.keys.Keyfunc, parserOptions...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired.Clone()
		}
		ts.logger.Debug("token rejected", "error", err)
		e := ErrTokenMalformed.Clone()
		e.Source = err
		return nil, e
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		ts.logger.Error("token service could not decode claims")
		return nil, ErrTokenMalformed.Clone()
	}

	return claims, nil
}

// TTL is the fixed lifetime of minted tokens
func (ts *TokenServiceImpl) TTL() time.Duration {
	return ts.ttl
}
