package identity

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// ContextKeyUser is the fiber locals key the guard stores the current user
// view under.
const ContextKeyUser = "current_user"

// GuardConfig configures the route guard.
type GuardConfig struct {
	Tokens TokenService
	Users  UserDirectory
	Logger Logger

	// Filter skips the guard for matching requests.
	Filter func(*fiber.Ctx) bool

	// RequiredPermissions must all be present in the token's snapshot.
	RequiredPermissions []string

	// MinimumRole, when set, rejects callers below that point in the role
	// hierarchy.
	MinimumRole RoleKey

	// ContextKey overrides where the user view is stored. Defaults to
	// ContextKeyUser.
	ContextKey string
}

// NewGuard returns the middleware protecting authenticated routes. It
// validates the bearer token, then re-fetches the account so revocation by
// deactivation takes effect immediately instead of at token expiry. Every
// rejection carries the same message; the text code distinguishes causes for
// operators only.
func NewGuard(cfg GuardConfig) fiber.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = defLogger{}
	}

	contextKey := cfg.ContextKey
	if contextKey == "" {
		contextKey = ContextKeyUser
	}

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		raw, err := extractBearerToken(c)
		if err != nil {
			return rejectUnauthorized(c, "AUTH_NO_TOKEN")
		}

		claims, err := cfg.Tokens.Validate(raw)
		if err != nil {
			logger.Debug("guard token rejected", "error", err)
			if IsTokenExpiredError(err) {
				return rejectUnauthorized(c, "AUTH_TOKEN_EXPIRED")
			}
			return rejectUnauthorized(c, "AUTH_TOKEN_INVALID")
		}

		userID, err := uuid.Parse(claims.UserID())
		if err != nil {
			return rejectUnauthorized(c, "AUTH_TOKEN_INVALID")
		}

		user, err := cfg.Users.FindByID(c.UserContext(), userID)
		if err != nil {
			if goerrors.IsNotFound(err) {
				return rejectUnauthorized(c, "AUTH_USER_GONE")
			}
			logger.Error("guard user lookup error", "error", err)
			return fiber.NewError(fiber.StatusInternalServerError, "internal server error")
		}

		if !user.IsActive {
			return rejectUnauthorized(c, "AUTH_USER_INACTIVE")
		}

		if !user.IsVerified {
			return rejectUnauthorized(c, "AUTH_USER_UNVERIFIED")
		}

		if cfg.MinimumRole != "" && !RoleAtLeast(claims.Role(), cfg.MinimumRole) {
			return rejectUnauthorized(c, "AUTH_FORBIDDEN")
		}

		for _, perm := range cfg.RequiredPermissions {
			if !claims.HasPermission(perm) {
				return rejectUnauthorized(c, "AUTH_FORBIDDEN")
			}
		}

		view := NewUserView(user)
		c.Locals(contextKey, view)
		c.SetUserContext(WithClaimsContext(WithContext(c.UserContext(), view), claims))

		return c.Next()
	}
}

// RequirePermissions returns a guard variant checking the token's permission
// snapshot on top of the base checks.
func RequirePermissions(cfg GuardConfig, perms ...string) fiber.Handler {
	cfg.RequiredPermissions = append(cfg.RequiredPermissions, perms...)
	return NewGuard(cfg)
}

// CurrentUser retrieves the view the guard stored for this request. Pass the
// key a guard was configured with when it overrides GuardConfig.ContextKey.
func CurrentUser(c *fiber.Ctx, key ...string) *UserView {
	contextKey := ContextKeyUser
	if len(key) > 0 && key[0] != "" {
		contextKey = key[0]
	}
	view, _ := c.Locals(contextKey).(*UserView)
	return view
}

func extractBearerToken(c *fiber.Ctx) (string, error) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return "", ErrUnauthorized
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", ErrUnauthorized
	}

	return strings.TrimSpace(parts[1]), nil
}

// rejectUnauthorized answers every guard failure with the same status and
// message. The text code is for logs and clients that need to resubmit.
func rejectUnauthorized(c *fiber.Ctx, textCode string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"message":   "unauthorized",
		"text_code": textCode,
	})
}
