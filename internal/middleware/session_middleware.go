package middleware

import (
	"context"
	"log"
	"strings"

	"closet/internal/apperrors"
	"closet/internal/services"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by SessionRequired.
const (
	LocalUserID    = "user_id"
	LocalSessionID = "session_id"
)

// Authenticator resolves a session token. *services.AuthService
// satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*services.Identity, error)
}

// SessionRequired rejects requests without a live session. The token is
// read from the session cookie, or from an "Authorization: Bearer" header.
func SessionRequired(auth Authenticator, cookieName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(cookieName)
		if token == "" {
			token = bearerToken(c.Get(fiber.HeaderAuthorization))
		}
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authentication required",
			})
		}

		identity, err := auth.Authenticate(c.UserContext(), token)
		if err != nil {
			if !apperrors.Is(err, apperrors.KindAuthentication) {
				log.Printf("Session lookup failed: %v", err)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"message": "Failed to verify session",
				})
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired session",
				"error":   err.Error(),
			})
		}

		c.Locals(LocalUserID, identity.UserID)
		c.Locals(LocalSessionID, identity.SessionID)
		return c.Next()
	}
}

// UserID returns the authenticated user id, or 0 outside SessionRequired.
func UserID(c *fiber.Ctx) uint {
	id, _ := c.Locals(LocalUserID).(uint)
	return id
}

// SessionID returns the authenticated session id.
func SessionID(c *fiber.Ctx) string {
	sid, _ := c.Locals(LocalSessionID).(string)
	return sid
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
