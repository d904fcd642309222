package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/models"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/services/matching"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/utils"
)

func AttachJWTLocals() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Locals("user")
		if raw == nil {
			return fiber.ErrUnauthorized
		}

		token, ok := raw.(*jwt.Token)
		if !ok || token == nil {
			return fiber.ErrUnauthorized
		}

		claims, ok := token.Claims.(*utils.Claims)
		if !ok {
			return fiber.ErrUnauthorized
		}
		if !setLocals(c, claims) {
			return fiber.ErrUnauthorized
		}

		return c.Next()
	}
}

// setLocals stores userId as a uuid.UUID and the lower-cased role.
func setLocals(c *fiber.Ctx, claims *utils.Claims) bool {
	uid, err := uuid.Parse(strings.TrimSpace(claims.UserID))
	if err != nil {
		return false
	}
	c.Locals("userId", uid)
	c.Locals("role", strings.ToLower(strings.TrimSpace(claims.Role)))
	return true
}

// CallerFrom returns the identity attached by AttachJWTLocals or OptionalJWT.
func CallerFrom(c *fiber.Ctx) (matching.Caller, bool) {
	uid, ok := c.Locals("userId").(uuid.UUID)
	if !ok || uid == uuid.Nil {
		return matching.Caller{}, false
	}
	role, _ := c.Locals("role").(string)
	return matching.Caller{ID: uid, Role: models.Role(role)}, true
}
