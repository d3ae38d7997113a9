package handlers

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"babelbridge/internal/language"
	"babelbridge/internal/logging"
	"babelbridge/internal/models"
	"babelbridge/internal/services"
	"babelbridge/internal/store"
	"babelbridge/internal/translation"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

const (
	readDeadline  = 360 * time.Second
	pingInterval  = 30 * time.Second
	writeChanSize = 64

	// recentHistoryLimit bounds the replay sent to a rejoining widget.
	recentHistoryLimit = 50
)

// WebSocketHandler is the connection router: it binds authenticated
// connections to sessions or to the agent pool and dispatches events between
// the store, the translation resolver and peer connections.
type WebSocketHandler struct {
	connManager *services.ConnectionManager
	agents      *services.AgentRegistry
	store       *store.Store
	resolver    *translation.Resolver
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(connManager *services.ConnectionManager, agents *services.AgentRegistry, sessions *store.Store, resolver *translation.Resolver) *WebSocketHandler {
	return &WebSocketHandler{
		connManager: connManager,
		agents:      agents,
		store:       sessions,
		resolver:    resolver,
	}
}

// Handle handles a new WebSocket connection. Authentication already happened
// during the upgrade: the middleware stored the role and, for widgets, the
// session binding in locals.
func (h *WebSocketHandler) Handle(c *websocket.Conn) {
	role, _ := c.Locals("client_role").(models.Role)

	conn := &models.Connection{
		ID:        uuid.New().String(),
		Role:      role,
		Conn:      c,
		CreatedAt: time.Now(),
		WriteChan: make(chan models.ServerEvent, writeChanSize),
	}
	if role == models.RoleWidget {
		conn.SessionID, _ = c.Locals("session_id").(string)
		conn.SiteKey, _ = c.Locals("site_key").(string)
	}

	done := make(chan struct{})

	h.connManager.Add(conn)
	defer func() {
		close(done)
		h.handleDisconnect(conn)
		h.connManager.Remove(conn.ID)
	}()

	c.SetReadDeadline(time.Now().Add(readDeadline))
	c.SetPongHandler(func(string) error {
		c.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	go h.pingLoop(conn, done)
	go h.writeLoop(conn)

	if role == models.RoleAgent {
		// Agents are part of the fan-out set from the moment they connect
		// and immediately see every active session.
		h.agents.Register(conn)
		conn.SafeSend(models.ServerEvent{
			Type:     models.EventSessionsList,
			Sessions: h.store.All(),
		})
	}

	h.readLoop(conn)
}

// pingLoop keeps idle connections alive; support chats routinely sit idle
// for minutes between messages.
func (h *WebSocketHandler) pingLoop(conn *models.Connection, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			conn.Mutex.Lock()
			err := conn.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second))
			conn.Mutex.Unlock()
			if err != nil {
				log.Printf("[WS] Ping failed for %s: %v", conn.ID, err)
				return
			}
		}
	}
}

// readLoop handles incoming events from the connection.
func (h *WebSocketHandler) readLoop(conn *models.Connection) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[WS] Panic in readLoop: %v", r)
		}
	}()

	for {
		_, msg, err := conn.Conn.ReadMessage()
		if err != nil {
			log.Printf("[WS] Read error for %s: %v", conn.ID, err)
			break
		}

		conn.Conn.SetReadDeadline(time.Now().Add(readDeadline))

		var evt models.ClientEvent
		if err := json.Unmarshal(msg, &evt); err != nil {
			log.Printf("[WS] Invalid event from %s: %v", conn.ID, err)
			h.sendError(conn, "Invalid event format")
			continue
		}

		h.Dispatch(conn, evt)
	}
}

// writeLoop drains the connection's write channel onto the socket.
func (h *WebSocketHandler) writeLoop(conn *models.Connection) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[WS] Panic in writeLoop: %v", r)
		}
	}()

	for evt := range conn.WriteChan {
		if err := conn.Conn.WriteJSON(evt); err != nil {
			log.Printf("[WS] Write error for %s: %v", conn.ID, err)
			return
		}
	}
}

// Dispatch routes one inbound event. Malformed or out-of-state events
// produce a single error event back to the originating connection and never
// mutate store state.
func (h *WebSocketHandler) Dispatch(conn *models.Connection, evt models.ClientEvent) {
	switch conn.Role {
	case models.RoleWidget:
		switch evt.Type {
		case models.EventJoin:
			h.handleJoin(conn, evt)
		case models.EventSetLanguage:
			h.handleSetLanguage(conn, evt)
		case models.EventSendMessage:
			h.handleUserMessage(conn, evt)
		case models.EventTypingStart:
			h.notifyAgentsTyping(conn.SessionID, true)
		case models.EventTypingStop:
			h.notifyAgentsTyping(conn.SessionID, false)
		default:
			log.Printf("[WS] Unknown widget event type: %s", evt.Type)
			h.sendError(conn, "Unknown event type")
		}
	case models.RoleAgent:
		switch evt.Type {
		case models.EventRegister:
			h.handleRegister(conn)
		case models.EventHistoryRequest:
			h.handleHistoryRequest(conn, evt)
		case models.EventSendMessage:
			h.handleAgentMessage(conn, evt)
		case models.EventTypingStart:
			h.notifyWidgetTyping(evt.SessionID, true)
		case models.EventTypingStop:
			h.notifyWidgetTyping(evt.SessionID, false)
		case models.EventEndSession:
			h.handleEndSession(conn, evt)
		default:
			log.Printf("[WS] Unknown agent event type: %s", evt.Type)
			h.sendError(conn, "Unknown event type")
		}
	default:
		h.sendError(conn, "Connection has no role")
	}
}

// handleJoin binds a widget connection to its session, recreating the record
// if the process lost it. Rejoin is idempotent: existing history survives.
func (h *WebSocketHandler) handleJoin(conn *models.Connection, evt models.ClientEvent) {
	if evt.SessionID != conn.SessionID {
		h.sendError(conn, "Session ID mismatch")
		return
	}

	session := h.store.Recreate(conn.SessionID, conn.SiteKey)
	h.store.BindConnection(conn.SessionID, conn.ID)

	logging.WithSession(conn.SessionID, conn.SiteKey).Info("widget joined", "conn_id", conn.ID)

	conn.SafeSend(models.ServerEvent{
		Type:      models.EventSessionJoined,
		SessionID: conn.SessionID,
		Timestamp: time.Now(),
	})

	h.agents.Broadcast(models.ServerEvent{
		Type:    models.EventNewSession,
		Session: session,
	})

	conn.SafeSend(models.ServerEvent{
		Type:      models.EventMessageHistory,
		SessionID: conn.SessionID,
		Messages:  h.store.RecentMessages(conn.SessionID, recentHistoryLimit),
	})
}

// handleSetLanguage validates and updates the session's user language.
func (h *WebSocketHandler) handleSetLanguage(conn *models.Connection, evt models.ClientEvent) {
	normalized := language.Normalize(evt.Lang, "")
	if normalized == "" {
		h.sendError(conn, "Invalid language code")
		return
	}

	if !h.store.Update(conn.SessionID, store.SessionUpdate{UserLang: normalized}) {
		h.sendError(conn, "Session not found")
		return
	}

	log.Printf("[WS] Session %s language set to %s", conn.SessionID, normalized)
	conn.SafeSend(models.ServerEvent{
		Type: models.EventLanguageUpdated,
		Lang: normalized,
	})
}

// handleUserMessage translates a widget message into the agent language,
// persists it and fans the translated copy out to every agent connection.
func (h *WebSocketHandler) handleUserMessage(conn *models.Connection, evt models.ClientEvent) {
	text := strings.TrimSpace(evt.Text)
	if text == "" {
		h.sendError(conn, "Message text is required")
		return
	}

	session, ok := h.store.Get(conn.SessionID)
	if !ok {
		h.sendError(conn, "Session not found")
		return
	}

	declared := evt.Lang
	if declared == "" {
		declared = session.UserLang
	}
	userLang := language.Normalize(declared, language.Default)

	// The resolver works on the plain text only; the store mutation below is
	// a single synchronous step after the (possibly slow) external call.
	translated := h.resolver.UserToAgent(context.Background(), text, userLang)

	msg, ok := h.store.Append(conn.SessionID, models.Message{
		Sender:         models.SenderUser,
		OriginalText:   text,
		TranslatedText: translated,
		OriginalLang:   userLang,
		TargetLang:     language.AgentLang,
	})
	if !ok {
		h.sendError(conn, "Session not found")
		return
	}

	conn.SafeSend(models.ServerEvent{
		Type:      models.EventMessageSent,
		MessageID: msg.ID,
		Timestamp: msg.Timestamp,
	})

	h.agents.Broadcast(models.ServerEvent{
		Type:         models.EventUserMessage,
		SessionID:    conn.SessionID,
		MessageID:    msg.ID,
		Text:         msg.TranslatedText,
		OriginalText: msg.OriginalText,
		OriginalLang: msg.OriginalLang,
		Timestamp:    msg.Timestamp,
	})
}

// handleRegister (re-)adds the agent to the fan-out set and resends the
// session list. Registration on connect makes this idempotent.
func (h *WebSocketHandler) handleRegister(conn *models.Connection) {
	h.agents.Register(conn)
	conn.SafeSend(models.ServerEvent{
		Type:     models.EventSessionsList,
		Sessions: h.store.All(),
	})
}

// handleHistoryRequest returns the ordered message list for a session.
func (h *WebSocketHandler) handleHistoryRequest(conn *models.Connection, evt models.ClientEvent) {
	conn.SafeSend(models.ServerEvent{
		Type:      models.EventSessionHistory,
		SessionID: evt.SessionID,
		Messages:  h.store.Messages(evt.SessionID),
	})
}

// handleAgentMessage translates an agent reply into the session's user
// language, persists it and delivers it to the bound widget connection.
func (h *WebSocketHandler) handleAgentMessage(conn *models.Connection, evt models.ClientEvent) {
	text := strings.TrimSpace(evt.Text)
	if text == "" {
		h.sendError(conn, "Message text is required")
		return
	}

	session, ok := h.store.Get(evt.SessionID)
	if !ok {
		h.sendError(conn, "Session not found")
		return
	}

	userLang := language.Normalize(session.UserLang, language.Default)
	translated := h.resolver.AgentToUser(context.Background(), text, userLang)

	msg, ok := h.store.Append(evt.SessionID, models.Message{
		Sender:         models.SenderAgent,
		OriginalText:   text,
		TranslatedText: translated,
		OriginalLang:   language.AgentLang,
		TargetLang:     userLang,
	})
	if !ok {
		h.sendError(conn, "Session not found")
		return
	}

	if widget, ok := h.widgetFor(evt.SessionID); ok {
		widget.SafeSend(models.ServerEvent{
			Type:      models.EventAgentMessage,
			SessionID: evt.SessionID,
			MessageID: msg.ID,
			Text:      msg.TranslatedText,
			Timestamp: msg.Timestamp,
		})
	}

	conn.SafeSend(models.ServerEvent{
		Type:      models.EventMessageSent,
		SessionID: evt.SessionID,
		MessageID: msg.ID,
		Timestamp: msg.Timestamp,
	})
}

// handleEndSession deletes a session on explicit agent action.
func (h *WebSocketHandler) handleEndSession(conn *models.Connection, evt models.ClientEvent) {
	widget, hadWidget := h.widgetFor(evt.SessionID)

	if !h.store.Delete(evt.SessionID) {
		h.sendError(conn, "Session not found")
		return
	}

	if hadWidget {
		widget.SafeSend(models.ServerEvent{
			Type:      models.EventSessionEnded,
			SessionID: evt.SessionID,
		})
	}
	h.agents.Broadcast(models.ServerEvent{
		Type:      models.EventSessionEnded,
		SessionID: evt.SessionID,
	})
}

// handleDisconnect runs connection teardown. Widget sessions and their
// messages are retained for possible reconnection; agent departures leave
// sessions untouched.
func (h *WebSocketHandler) handleDisconnect(conn *models.Connection) {
	switch conn.Role {
	case models.RoleAgent:
		h.agents.Unregister(conn.ID)
	case models.RoleWidget:
		h.store.UnbindConnection(conn.SessionID, conn.ID)
		h.agents.Broadcast(models.ServerEvent{
			Type:      models.EventSessionEnded,
			SessionID: conn.SessionID,
		})
		log.Printf("[WS] Widget disconnected: %s (session %s retained)", conn.ID, conn.SessionID)
	}
}

// notifyAgentsTyping broadcasts widget typing state to all agents.
func (h *WebSocketHandler) notifyAgentsTyping(sessionID string, typing bool) {
	eventType := models.EventUserStoppedTyping
	if typing {
		eventType = models.EventUserTyping
	}
	h.agents.Broadcast(models.ServerEvent{
		Type:      eventType,
		SessionID: sessionID,
	})
}

// notifyWidgetTyping relays agent typing state to the session's widget.
func (h *WebSocketHandler) notifyWidgetTyping(sessionID string, typing bool) {
	widget, ok := h.widgetFor(sessionID)
	if !ok {
		return
	}

	eventType := models.EventAgentStoppedTyping
	if typing {
		eventType = models.EventAgentTyping
	}
	widget.SafeSend(models.ServerEvent{
		Type:      eventType,
		SessionID: sessionID,
	})
}

// widgetFor returns the widget connection currently bound to the session.
func (h *WebSocketHandler) widgetFor(sessionID string) (*models.Connection, bool) {
	session, ok := h.store.Get(sessionID)
	if !ok || session.ConnectionID == "" {
		return nil, false
	}
	return h.connManager.Get(session.ConnectionID)
}

func (h *WebSocketHandler) sendError(conn *models.Connection, message string) {
	conn.SafeSend(models.ServerEvent{
		Type:  models.EventError,
		Error: message,
	})
}
