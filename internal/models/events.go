package models

import (
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
)

// Role classifies an authenticated websocket connection.
type Role string

const (
	RoleWidget Role = "widget"
	RoleAgent  Role = "agent"
)

// Client event types accepted by the router.
const (
	EventJoin           = "join"
	EventSetLanguage    = "set-language"
	EventSendMessage    = "send-message"
	EventTypingStart    = "typing-start"
	EventTypingStop     = "typing-stop"
	EventRegister       = "register"
	EventHistoryRequest = "history-request"
	EventEndSession     = "end-session"
)

// Server event types emitted by the router.
const (
	EventSessionJoined      = "session-joined"
	EventMessageHistory     = "message-history"
	EventLanguageUpdated    = "language-updated"
	EventMessageSent        = "message-sent"
	EventUserMessage        = "user-message"
	EventUserTyping         = "user-typing"
	EventUserStoppedTyping  = "user-stopped-typing"
	EventSessionsList       = "sessions-list"
	EventSessionHistory     = "session-history"
	EventAgentMessage       = "agent-message"
	EventAgentTyping        = "agent-typing"
	EventAgentStoppedTyping = "agent-stopped-typing"
	EventNewSession         = "new-session"
	EventSessionEnded       = "session-ended"
	EventError              = "error"
)

// ClientEvent is an inbound event from a widget or agent connection.
type ClientEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Text      string `json:"text,omitempty"`
	Lang      string `json:"lang,omitempty"`
}

// ServerEvent is an outbound event. Fields are populated per event type;
// everything unused is omitted from the wire.
type ServerEvent struct {
	Type         string     `json:"type"`
	SessionID    string     `json:"sessionId,omitempty"`
	MessageID    string     `json:"messageId,omitempty"`
	Text         string     `json:"text,omitempty"`
	OriginalText string     `json:"originalText,omitempty"`
	OriginalLang string     `json:"originalLang,omitempty"`
	Lang         string     `json:"lang,omitempty"`
	Timestamp    time.Time  `json:"timestamp,omitzero"`
	Session      *Session   `json:"session,omitempty"`
	Sessions     []*Session `json:"sessions,omitempty"`
	Messages     []*Message `json:"messages,omitempty"`
	Error        string     `json:"message,omitempty"`
}

// Connection represents a single authenticated WebSocket connection.
// Widgets are bound to exactly one session for the connection's lifetime;
// agents are unbound and can address any session by id.
type Connection struct {
	ID        string
	Role      Role
	SessionID string // widget connections only
	SiteKey   string
	Conn      *websocket.Conn
	CreatedAt time.Time
	WriteChan chan ServerEvent
	Mutex     sync.Mutex
	closed    bool
}

// SafeSend sends an event to WriteChan safely, returning false if the
// connection has been closed. A full write buffer drops the event rather
// than blocking the router.
func (c *Connection) SafeSend(evt ServerEvent) bool {
	c.Mutex.Lock()
	if c.closed {
		c.Mutex.Unlock()
		return false
	}
	c.Mutex.Unlock()

	defer func() {
		if r := recover(); r != nil {
			c.Mutex.Lock()
			c.closed = true
			c.Mutex.Unlock()
		}
	}()

	select {
	case c.WriteChan <- evt:
		return true
	default:
		return false
	}
}

// MarkClosed marks the connection as closed so later sends fail fast.
func (c *Connection) MarkClosed() {
	c.Mutex.Lock()
	c.closed = true
	c.Mutex.Unlock()
}
