package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/utils"
)

// TokenCookie is the cookie the identity service sets on login.
const TokenCookie = "jm_token"

// JWTFromRequest accepts the token from the jm_token cookie or an
// "Authorization: Bearer" header and stores the parsed token in Locals("user").
func JWTFromRequest(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := tokenFrom(c)
		if tokenStr == "" {
			return fiber.ErrUnauthorized
		}

		token, _, err := utils.ParseJWT(secret, tokenStr)
		if err != nil {
			return fiber.ErrUnauthorized
		}

		c.Locals("user", token)
		return c.Next()
	}
}

// OptionalJWT attaches the caller when a valid token is present and lets
// anonymous requests through otherwise.
func OptionalJWT(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := tokenFrom(c)
		if tokenStr == "" {
			return c.Next()
		}
		token, claims, err := utils.ParseJWT(secret, tokenStr)
		if err != nil {
			return c.Next()
		}
		c.Locals("user", token)
		setLocals(c, claims)
		return c.Next()
	}
}

func tokenFrom(c *fiber.Ctx) string {
	if v := c.Cookies(TokenCookie); v != "" {
		return v
	}
	auth := c.Get(fiber.HeaderAuthorization)
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
