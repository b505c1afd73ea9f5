package middleware

import (
	"strings"

	"backend-antrian-klinik/internal/config"

	"github.com/gofiber/fiber/v2"
)

const (
	LocalUserID   = "user_id"
	LocalClinicID = "clinic_id"
	LocalDoctorID = "doctor_id"
	LocalRole     = "role"
)

func JWTAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Missing authorization header",
			})
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Invalid authorization format",
			})
		}

		claims, err := config.ValidateToken(secret, tokenParts[1])
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Invalid or expired token",
			})
		}

		c.Locals(LocalUserID, claims.UserID)
		c.Locals(LocalClinicID, claims.ClinicID)
		c.Locals(LocalRole, claims.Role)
		if claims.DoctorID != nil {
			c.Locals(LocalDoctorID, *claims.DoctorID)
		}

		return c.Next()
	}
}

func RoleAuth(allowedRoles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals(LocalRole).(string)

		for _, allowedRole := range allowedRoles {
			if role == allowedRole {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"error":   "Anda tidak memiliki akses ke resource ini",
		})
	}
}

// ClinicID returns the tenant of the authenticated caller.
func ClinicID(c *fiber.Ctx) int64 {
	id, _ := c.Locals(LocalClinicID).(int64)
	return id
}

// DoctorID returns the doctor bound to the token, if any.
func DoctorID(c *fiber.Ctx) (int64, bool) {
	id, ok := c.Locals(LocalDoctorID).(int64)
	return id, ok
}
