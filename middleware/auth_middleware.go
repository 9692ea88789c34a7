package middleware

import (
	"github.com/anjiri1684/class_portal/services"
	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const ActorKey = "actor"

func Protected(secret string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   []byte(secret),
		ErrorHandler: jwtError,
	})
}

func jwtError(c *fiber.Ctx, err error) error {
	if err.Error() == "Missing or malformed JWT" {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"status": "error", "message": "Missing or malformed JWT", "data": nil})
	}
	return c.Status(fiber.StatusUnauthorized).
		JSON(fiber.Map{"status": "error", "message": "Invalid or expired JWT", "data": nil})
}

// LoadActor turns verified claims into a services.Actor. The raw token
// travels on the user context so calls to the class backend are made as the
// same user.
func LoadActor() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := c.Locals("user").(*jwt.Token)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"status": "error", "message": "Invalid or expired JWT", "data": nil})
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"status": "error", "message": "Invalid token claims", "data": nil})
		}

		userID, err := uuid.Parse(stringClaim(claims, "user_id"))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"status": "error", "message": "Invalid user in token", "data": nil})
		}
		actor := services.Actor{
			ID:    userID,
			Role:  services.Role(stringClaim(claims, "role")),
			Token: token.Raw,
		}
		if fam, err := uuid.Parse(stringClaim(claims, "family_id")); err == nil {
			actor.FamilyID = &fam
		}

		c.Locals(ActorKey, actor)
		c.SetUserContext(services.ContextWithToken(c.UserContext(), token.Raw))
		return c.Next()
	}
}

func RoleRequired(roles ...services.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := c.Locals(ActorKey).(services.Actor)
		if ok {
			for _, r := range roles {
				if actor.Role == r {
					return c.Next()
				}
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Forbidden: insufficient role",
		})
	}
}

func stringClaim(claims jwt.MapClaims, key string) string {
	v, _ := claims[key].(string)
	return v
}
