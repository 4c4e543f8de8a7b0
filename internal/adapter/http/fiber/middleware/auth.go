package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/seu-repo/fuel-control/internal/domain"
	"github.com/seu-repo/fuel-control/internal/ports"
)

// TokenCookie carries the access token for browser pages and websockets,
// which cannot set an Authorization header.
const TokenCookie = "access_token"

// AuthRequired resolves the bearer token (header, cookie or "token" query)
// into a user stored under the "user" local.
func AuthRequired(service ports.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := extractToken(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
		}

		user, err := service.ValidateToken(c.UserContext(), token)
		if err != nil || user == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
		}

		c.Locals("user_id", user.ID)
		c.Locals("user", user)
		c.Locals("token", token)

		return c.Next()
	}
}

// PageAuth is AuthRequired for HTML pages: failures redirect to "/".
func PageAuth(service ports.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := extractToken(c)
		if err != nil {
			return c.Redirect("/")
		}
		user, err := service.ValidateToken(c.UserContext(), token)
		if err != nil || user == nil {
			return c.Redirect("/")
		}

		c.Locals("user_id", user.ID)
		c.Locals("user", user)
		return c.Next()
	}
}

// RequireRole answers 403 {"error":"access denied"} unless the user holds role.
func RequireRole(role domain.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !CurrentUser(c).HasRole(role) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "access denied"})
		}
		return c.Next()
	}
}

// RequirePageRole redirects to "/" unless the user holds role.
func RequirePageRole(role domain.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !CurrentUser(c).HasRole(role) {
			return c.Redirect("/")
		}
		return c.Next()
	}
}

// CurrentUser returns the authenticated user or nil.
func CurrentUser(c *fiber.Ctx) *domain.User {
	user, _ := c.Locals("user").(*domain.User)
	return user
}

func extractToken(c *fiber.Ctx) (string, error) {
	if authHeader := c.Get(fiber.HeaderAuthorization); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return "", fiber.NewError(fiber.StatusUnauthorized, "Invalid authorization header format")
		}
		return parts[1], nil
	}
	if token := c.Cookies(TokenCookie); token != "" {
		return token, nil
	}
	if token := c.Query("token"); token != "" {
		return token, nil
	}
	return "", fiber.NewError(fiber.StatusUnauthorized, "Missing authorization header")
}
