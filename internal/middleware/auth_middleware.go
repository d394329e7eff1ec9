package middleware

import (
	"context"
	"net/url"
	"strings"

	"go-cyclecount-ws/internal/model"
	"go-cyclecount-ws/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by RequireAuth.
const (
	LocalUserID     = "user_id"
	LocalUsername   = "user_username"
	LocalUserName   = "user_name"
	LocalPrivileges = "user_privileges"
	LocalRole       = "user_role"
)

// TokenCookie holds the session JWT for browser clients.
const TokenCookie = "token"

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

// UnauthorizedHandler answers a request that failed authentication.
type UnauthorizedHandler func(c *fiber.Ctx, err error) error

// RequireAuth validates the session token and sets user info in context.
func RequireAuth(auth Authenticator, log *logger.Logger, onUnauthorized UnauthorizedHandler) fiber.Handler {
	if log == nil {
		log = logger.Nop()
	}
	return func(c *fiber.Ctx) error {
		token := TokenFromRequest(c)
		if token == "" {
			return onUnauthorized(c, nil)
		}

		user, err := auth.Authenticate(c.UserContext(), token)
		if err != nil {
			log.Debug(log.WithField(c.UserContext(), "reason", err.Error()), "authentication rejected")
			return onUnauthorized(c, err)
		}

		c.Locals(LocalUserID, user.ID.String())
		c.Locals(LocalUsername, user.Username)
		c.Locals(LocalUserName, user.DisplayName())
		c.Locals(LocalPrivileges, user.PrivilegeCodes())
		c.Locals(LocalRole, user.RoleCode())
		c.SetUserContext(log.WithUserID(c.UserContext(), user.ID.String()))

		return c.Next()
	}
}

// TokenFromRequest reads the cookie first, then an "Authorization: Bearer" header.
func TokenFromRequest(c *fiber.Ctx) string {
	if token := c.Cookies(TokenCookie); token != "" {
		return token
	}
	parts := strings.SplitN(c.Get(fiber.HeaderAuthorization), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RedirectToLogin sends browsers to the login page and back to where they were.
func RedirectToLogin(c *fiber.Ctx, _ error) error {
	return c.Redirect("/login?next="+url.QueryEscape(c.OriginalURL()), fiber.StatusFound)
}

func JSONUnauthorized(c *fiber.Ctx, err error) error {
	msg := "Missing authorization token"
	if err != nil {
		msg = err.Error()
	}
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": msg})
}

// RequirePrivilege checks if the authenticated user has the required privilege
func RequirePrivilege(requiredPrivilege string) fiber.Handler {
	return RequireAnyPrivilege(requiredPrivilege)
}

// RequireAnyPrivilege checks if the user has at least one of the specified privileges
func RequireAnyPrivilege(requiredPrivileges ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		privileges, _ := c.Locals(LocalPrivileges).([]string)
		for _, userPriv := range privileges {
			for _, reqPriv := range requiredPrivileges {
				if userPriv == reqPriv {
					return c.Next()
				}
			}
		}
		return fiber.NewError(fiber.StatusForbidden,
			"Forbidden: requires "+strings.Join(requiredPrivileges, " or ")+" privilege")
	}
}
