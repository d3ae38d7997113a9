package models

import "time"

// Sender identifies which side of the conversation produced a message.
type Sender string

const (
	SenderUser  Sender = "user"
	SenderAgent Sender = "agent"
)

// Session is one end-user conversation context. SessionID is opaque and
// immutable once created; LastActivity is refreshed on every mutation
// including message appends.
type Session struct {
	SessionID    string            `json:"sessionId"`
	SiteKey      string            `json:"siteKey"`
	UserLang     string            `json:"userLang"`
	ConnectionID string            `json:"connectionId,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	LastActivity time.Time         `json:"lastActivity"`
	Metadata     map[string]string `json:"metadata"`
}

// Message is a single chat message. Immutable once created and exclusively
// owned by its session; destroyed when the session is destroyed.
type Message struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"sessionId"`
	Sender         Sender    `json:"sender"`
	OriginalText   string    `json:"originalText"`
	TranslatedText string    `json:"translatedText"`
	OriginalLang   string    `json:"originalLang"`
	TargetLang     string    `json:"targetLang"`
	Timestamp      time.Time `json:"timestamp"`
}
