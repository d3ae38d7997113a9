package handlers

import (
	"time"

	"babelbridge/internal/services"
	"babelbridge/internal/store"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	connManager *services.ConnectionManager
	agents      *services.AgentRegistry
	store       *store.Store
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(connManager *services.ConnectionManager, agents *services.AgentRegistry, sessions *store.Store) *HealthHandler {
	return &HealthHandler{connManager: connManager, agents: agents, store: sessions}
}

// Handle responds with server health status
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":      "healthy",
		"connections": h.connManager.Count(),
		"agents":      h.agents.Count(),
		"sessions":    h.store.Count(),
		"timestamp":   time.Now().Format(time.RFC3339),
	})
}
