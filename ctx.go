package tracker

import (
	"github.com/goliatone/go-router"
)

// DefaultContextKey is where the token middleware stores verified claims.
const DefaultContextKey = "user"

// GetRouterClaims extracts the AuthClaims from the router context
func GetRouterClaims(ctx router.Context, key string) (AuthClaims, bool) {
	if key == "" {
		key = DefaultContextKey
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	claims, ok := raw.(AuthClaims)
	return claims, ok
}

// PrincipalFromRouterContext resolves the caller of a request. Requests
// whose token was missing or invalid carry no claims and resolve to
// Anonymous.
func PrincipalFromRouterContext(ctx router.Context, key string) Principal {
	claims, ok := GetRouterClaims(ctx, key)
	if !ok {
		return Anonymous()
	}
	return PrincipalFromClaims(claims)
}
