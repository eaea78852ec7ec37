package middleware

import (
	"strings"

	"github.com/ambakhtiar/MediStore-Backend/internal/domain"
	"github.com/ambakhtiar/MediStore-Backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

const (
	localsUserID = "userID"
	localsRole   = "role"
)

func NewAuthMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Unauthorized: missing header",
				"data":    nil,
			})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Unauthorized: invalid header format",
				"data":    nil,
			})
		}

		claims, err := utils.ParseToken(parts[1], secret)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Unauthorized: invalid token",
				"data":    nil,
			})
		}

		c.Locals(localsUserID, claims.UserID)
		c.Locals(localsRole, claims.Role)
		return c.Next()
	}
}

// ActorFromCtx reads the identity placed by the auth middleware.
func ActorFromCtx(c *fiber.Ctx) (domain.Actor, bool) {
	userID, ok := c.Locals(localsUserID).(int64)
	if !ok || userID == 0 {
		return domain.Actor{}, false
	}

	roleStr, ok := c.Locals(localsRole).(string)
	if !ok {
		return domain.Actor{}, false
	}

	role, ok := domain.ParseRole(roleStr)
	if !ok {
		return domain.Actor{}, false
	}

	return domain.Actor{UserID: userID, Role: role}, true
}

// RequireRole rejects authenticated users whose role is not in the allow
// list. It runs after NewAuthMiddleware.
func RequireRole(roles ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := ActorFromCtx(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Unauthorized: missing user",
				"data":    nil,
			})
		}

		for _, role := range roles {
			if actor.Role == role {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "insufficient permissions",
			"data":    nil,
		})
	}
}
