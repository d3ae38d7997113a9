package services

import (
	"log"
	"sync"

	"babelbridge/internal/models"
)

// AgentRegistry is the fan-out set of currently registered agent
// connections. Session lifecycle and message broadcasts iterate this set and
// deliver to each member independently: one agent dropping mid-broadcast
// never prevents delivery to the others.
type AgentRegistry struct {
	agents map[string]*models.Connection
	mutex  sync.RWMutex
}

// NewAgentRegistry creates an empty registry.
func NewAgentRegistry() *AgentRegistry {
	return &AgentRegistry{
		agents: make(map[string]*models.Connection),
	}
}

// Register adds an agent connection to the fan-out set.
func (r *AgentRegistry) Register(conn *models.Connection) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.agents[conn.ID] = conn
	log.Printf("[AGENTS] Agent registered: %s (total: %d)", conn.ID, len(r.agents))
}

// Unregister removes an agent connection. Sessions are unaffected.
func (r *AgentRegistry) Unregister(connID string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if _, exists := r.agents[connID]; exists {
		delete(r.agents, connID)
		log.Printf("[AGENTS] Agent unregistered: %s (total: %d)", connID, len(r.agents))
	}
}

// IsMember reports whether the connection id belongs to a registered agent.
func (r *AgentRegistry) IsMember(connID string) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	_, exists := r.agents[connID]
	return exists
}

// ListAll returns the registered agent connections.
func (r *AgentRegistry) ListAll() []*models.Connection {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	conns := make([]*models.Connection, 0, len(r.agents))
	for _, conn := range r.agents {
		conns = append(conns, conn)
	}
	return conns
}

// Count returns the number of registered agents.
func (r *AgentRegistry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.agents)
}

// Broadcast delivers the event to every registered agent connection.
// Returns the number of successful deliveries.
func (r *AgentRegistry) Broadcast(evt models.ServerEvent) int {
	delivered := 0
	for _, conn := range r.ListAll() {
		if conn.SafeSend(evt) {
			delivered++
		} else {
			log.Printf("[AGENTS] Dropped broadcast %s to agent %s", evt.Type, conn.ID)
		}
	}
	return delivered
}
