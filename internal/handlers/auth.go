package handlers

import (
	"log"

	"babelbridge/internal/config"
	"babelbridge/internal/language"
	"babelbridge/pkg/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// AuthHandler issues session tokens to widgets that present a valid site key.
type AuthHandler struct {
	config *config.Config
	tokens *auth.TokenService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(cfg *config.Config, tokens *auth.TokenService) *AuthHandler {
	return &AuthHandler{config: cfg, tokens: tokens}
}

// Handle mints a fresh session id and a signed token binding it to the
// caller's site key. The session record itself is created lazily on join.
func (h *AuthHandler) Handle(c *fiber.Ctx) error {
	siteKey := c.Query("siteKey")
	if siteKey == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "siteKey query parameter is required",
		})
	}

	if !h.config.IsValidSiteKey(siteKey) {
		log.Printf("[AUTH] Rejected unknown site key: %s", siteKey)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid site key",
		})
	}

	sessionID := uuid.New().String()
	token, err := h.tokens.Generate(sessionID, siteKey)
	if err != nil {
		log.Printf("[AUTH] Failed to sign session token: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to create session token",
		})
	}

	return c.JSON(fiber.Map{
		"success":          true,
		"sessionId":        sessionID,
		"sessionToken":     token,
		"allowedLanguages": language.Supported,
		"defaultLanguage":  language.Default,
	})
}
