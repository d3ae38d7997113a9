package services

import (
	"log"
	"sync"

	"babelbridge/internal/models"
)

// ConnectionManager tracks all active WebSocket connections, widget and
// agent alike, keyed by connection id.
type ConnectionManager struct {
	connections map[string]*models.Connection
	mutex       sync.RWMutex
}

// NewConnectionManager creates a new connection manager
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*models.Connection),
	}
}

// Add adds a new connection
func (cm *ConnectionManager) Add(conn *models.Connection) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	cm.connections[conn.ID] = conn
	log.Printf("[CONN] Connection added: %s (%s, total: %d)", conn.ID, conn.Role, len(cm.connections))
}

// Remove removes a connection and closes its write channel.
func (cm *ConnectionManager) Remove(connID string) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	if conn, exists := cm.connections[connID]; exists {
		conn.MarkClosed()
		close(conn.WriteChan)
		delete(cm.connections, connID)
		log.Printf("[CONN] Connection removed: %s (total: %d)", connID, len(cm.connections))
	}
}

// Get retrieves a connection by ID
func (cm *ConnectionManager) Get(connID string) (*models.Connection, bool) {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	conn, exists := cm.connections[connID]
	return conn, exists
}

// Count returns the number of active connections
func (cm *ConnectionManager) Count() int {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	return len(cm.connections)
}
