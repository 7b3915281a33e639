package auth

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/personahub/chat-backend/internal/clock"
	"github.com/personahub/chat-backend/internal/domain"
	"github.com/personahub/chat-backend/internal/repository/memory"
	apperrors "github.com/personahub/chat-backend/pkg/util"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func fixedTokens(clk clock.Clock) *TokenManager {
	tm := NewTokenManager("test-secret", 30)
	tm.now = clk.Now
	return tm
}

func TestTokenRoundTrip(t *testing.T) {
	tm := fixedTokens(clock.NewFixed(t0))

	token, expires, err := tm.GenerateToken("user-1", "ada@example.com", []string{"creator"})
	require.NoError(t, err)
	assert.Equal(t, t0.Add(30*time.Minute), expires)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, []string{"creator"}, claims.Roles)
}

func TestTokenExpiry(t *testing.T) {
	clk := clock.NewFixed(t0)
	tm := fixedTokens(clk)
	token, _, err := tm.GenerateToken("user-1", "", nil)
	require.NoError(t, err)

	clk.Advance(31 * time.Minute)
	_, err = tm.ParseToken(token)
	assert.Error(t, err)
}

func TestTokenWrongSecret(t *testing.T) {
	token, _, err := NewTokenManager("a", 5).GenerateToken("user-1", "", nil)
	require.NoError(t, err)

	_, err = NewTokenManager("b", 5).ParseToken(token)
	assert.Error(t, err)
}

func TestBcryptHasher(t *testing.T) {
	h := BcryptHasher{Cost: 4}
	hashed, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.NoError(t, h.Compare(hashed, "correct horse"))
	assert.Error(t, h.Compare(hashed, "wrong"))
}

func TestPrincipalHelpers(t *testing.T) {
	p := Principal{ID: "u-1", Authenticated: true, Roles: []string{"Admin"}}
	assert.True(t, p.HasRole("admin"))
	assert.True(t, p.Owns("u-1"))
	assert.False(t, p.Owns(""))
	assert.False(t, Anonymous().Owns(""))
	assert.Equal(t, Anonymous(), FromContext(context.Background()))
	assert.Equal(t, p, ContextProvider{}.Current(WithPrincipal(context.Background(), p)))
}

func TestPrincipalForReadsSuspensionAtClockTime(t *testing.T) {
	clk := clock.NewFixed(t0)
	until := t0.Add(time.Hour)
	user := &domain.User{ID: "u-1", IsSuspended: true, SuspendedUntil: &until}

	assert.True(t, PrincipalFor(user, clk).Suspended)
	clk.Advance(2 * time.Hour)
	assert.False(t, PrincipalFor(user, clk).Suspended)

	admin := PrincipalFor(&domain.User{ID: "a-1", IsAdmin: true}, clk)
	assert.True(t, admin.HasRole(RoleAdmin))
}

// ============================================================================
// Middleware
// ============================================================================

func newMiddlewareApp(t *testing.T) (*fiber.App, *TokenManager) {
	t.Helper()
	clk := clock.NewFixed(t0)
	store := memory.New()
	require.NoError(t, store.Repos().Users.Create(context.Background(), &domain.User{
		ID: "user-1", Email: "ada@example.com", CreatedAt: t0, UpdatedAt: t0,
	}))

	tokens := fixedTokens(clk)
	mw := NewAuthMiddleware(tokens, store.Repos().Users, clk, nil)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).SendString(de.Code)
		},
	})
	app.Use(mw.Handle)
	app.Get("/whoami", func(c *fiber.Ctx) error {
		p := FromContext(c.UserContext())
		local, ok := PrincipalFromContext(c)
		assert.True(t, ok)
		assert.Equal(t, p, local)
		if !p.HasID() {
			return c.SendString("anonymous")
		}
		return c.SendString(p.ID)
	})
	return app, tokens
}

func get(t *testing.T, app *fiber.App, header string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodGet, "/whoami", nil)
	if header != "" {
		req.Header.Set(fiber.HeaderAuthorization, header)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestMiddlewareResolvesPrincipal(t *testing.T) {
	app, tokens := newMiddlewareApp(t)
	token, _, err := tokens.GenerateToken("user-1", "ada@example.com", nil)
	require.NoError(t, err)

	status, body := get(t, app, "Bearer "+token)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "user-1", body)
}

func TestMiddlewareWithoutTokenIsAnonymous(t *testing.T) {
	app, _ := newMiddlewareApp(t)

	status, body := get(t, app, "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "anonymous", body)
}

func TestMiddlewareRejectsBadCredentials(t *testing.T) {
	app, tokens := newMiddlewareApp(t)
	ghost, _, err := tokens.GenerateToken("ghost", "", nil)
	require.NoError(t, err)

	for name, header := range map[string]string{
		"scheme":  "Basic abc",
		"garbage": "Bearer not-a-token",
		"unknown": "Bearer " + ghost,
	} {
		t.Run(name, func(t *testing.T) {
			status, body := get(t, app, header)
			assert.Equal(t, fiber.StatusUnauthorized, status)
			assert.Equal(t, "UNAUTHENTICATED", body)
		})
	}
}
