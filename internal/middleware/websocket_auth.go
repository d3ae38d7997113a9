package middleware

import (
	"log"

	"babelbridge/internal/config"
	"babelbridge/internal/models"
	"babelbridge/pkg/auth"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// WebSocketUpgrade rejects plain HTTP requests to the websocket endpoint.
func WebSocketUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// WebSocketAuth authenticates the upgrade request and stores the resolved
// role (plus the session binding for widgets) in locals for the handler.
// Agents identify with `clientType=agent`; widgets must present a valid
// session token issued by /auth.
func WebSocketAuth(cfg *config.Config, tokens *auth.TokenService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Query("clientType") == "agent" {
			c.Locals("client_role", models.RoleAgent)
			return c.Next()
		}

		token := c.Query("token")
		if token == "" {
			log.Printf("[WS-AUTH] Missing session token from %s", c.IP())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Session token is required",
			})
		}

		claims, err := tokens.Verify(token)
		if err != nil {
			log.Printf("[WS-AUTH] Invalid session token from %s: %v", c.IP(), err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Invalid session token",
			})
		}

		// Site keys can be rotated out between token issuance and connect.
		if !cfg.IsValidSiteKey(claims.SiteKey) {
			log.Printf("[WS-AUTH] Token carries revoked site key: %s", claims.SiteKey)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Site key no longer authorized",
			})
		}

		c.Locals("client_role", models.RoleWidget)
		c.Locals("session_id", claims.SessionID)
		c.Locals("site_key", claims.SiteKey)
		return c.Next()
	}
}
