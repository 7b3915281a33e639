package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/personahub/chat-backend/internal/clock"
	"github.com/personahub/chat-backend/internal/domain"
	"github.com/personahub/chat-backend/internal/repository"
	apperrors "github.com/personahub/chat-backend/pkg/util"
)

const principalKey = "auth_principal"

// RoleAdmin is added to the principal roles of admin accounts.
const RoleAdmin = "admin"

// AuthMiddleware resolves the bearer token, when present, into the
// request principal. Requests without a token continue anonymously; the
// dispatcher decides what they may do.
type AuthMiddleware struct {
	tokens *TokenManager
	users  repository.UserRepository
	clock  clock.Clock
	logger *zap.Logger
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, users repository.UserRepository, clk clock.Clock, logger *zap.Logger) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{tokens: tokens, users: users, clock: clk, logger: logger}
}

// Handle resolves the principal and stores it on the user context.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		m.attach(c, Anonymous())
		return c.Next()
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(strings.TrimSpace(parts[1]))
	if err != nil {
		m.logger.Debug("token rejected", zap.Error(err))
		return apperrors.NewUnauthorized("invalid token")
	}

	user, err := m.users.GetByID(c.UserContext(), claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewUnauthorized("user not found")
		}
		return apperrors.MapError(err)
	}

	m.attach(c, PrincipalFor(user, m.clock))
	return c.Next()
}

func (m *AuthMiddleware) attach(c *fiber.Ctx, p Principal) {
	c.Locals(principalKey, p)
	c.SetUserContext(WithPrincipal(c.UserContext(), p))
}

// PrincipalFor builds the principal of a stored account. Suspension is
// read against the clock, so an elapsed window no longer counts.
func PrincipalFor(user *domain.User, clk clock.Clock) Principal {
	roles := append([]string(nil), user.Roles...)
	p := Principal{Roles: roles}
	if user.IsAdmin && !p.HasRole(RoleAdmin) {
		roles = append(roles, RoleAdmin)
	}
	return Principal{
		ID:            user.ID,
		Authenticated: true,
		Email:         user.Email,
		Roles:         roles,
		IsAdmin:       user.IsAdmin,
		Suspended:     user.SuspensionActive(clk.Now()),
	}
}

// PrincipalFromContext retrieves the principal resolved for this request.
func PrincipalFromContext(c *fiber.Ctx) (Principal, bool) {
	p, ok := c.Locals(principalKey).(Principal)
	return p, ok
}
