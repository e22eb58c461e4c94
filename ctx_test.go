package tracker_test

import (
	"testing"

	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tracker "github.com/goliatone/go-tracker"
)

func TestGetRouterClaims(t *testing.T) {
	t.Run("default key", func(t *testing.T) {
		ctx := router.NewMockContext()
		ctx.LocalsMock["user"] = &tracker.JWTClaims{UID: "user-1", UserRole: "admin"}

		claims, ok := tracker.GetRouterClaims(ctx, "")
		require.True(t, ok)
		assert.Equal(t, "user-1", claims.UserID())
		assert.Equal(t, "admin", claims.Role())
	})

	t.Run("custom key", func(t *testing.T) {
		ctx := router.NewMockContext()
		ctx.LocalsMock["session"] = &tracker.JWTClaims{UID: "user-2"}

		_, ok := tracker.GetRouterClaims(ctx, "")
		assert.False(t, ok)

		claims, ok := tracker.GetRouterClaims(ctx, "session")
		require.True(t, ok)
		assert.Equal(t, "user-2", claims.UserID())
	})

	t.Run("wrong type", func(t *testing.T) {
		ctx := router.NewMockContext()
		ctx.LocalsMock["user"] = "not-a-claims-object"

		_, ok := tracker.GetRouterClaims(ctx, "user")
		assert.False(t, ok)
	})
}

func TestPrincipalFromRouterContext(t *testing.T) {
	id := uuid.New()

	ctx := router.NewMockContext()
	ctx.LocalsMock["user"] = &tracker.JWTClaims{UID: id.String(), UserRole: "moderator"}

	p := tracker.PrincipalFromRouterContext(ctx, "user")
	assert.False(t, p.IsAnonymous())
	assert.Equal(t, id, p.ID())
	assert.Equal(t, tracker.RoleModerator, p.Role())

	assert.True(t, tracker.PrincipalFromRouterContext(router.NewMockContext(), "user").IsAnonymous())
}
