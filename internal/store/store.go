// Package store holds the authoritative in-memory session and message tables.
// All operations are single synchronous mutations guarded by one lock, so no
// operation can partially fail and callers never observe a half-applied write.
package store

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"babelbridge/internal/language"
	"babelbridge/internal/models"

	"github.com/google/uuid"
)

// Snapshotter persists best-effort session snapshots so a rejoin after
// process loss can restore language, metadata and history.
type Snapshotter interface {
	Save(ctx context.Context, session models.Session, messages []*models.Message) error
	Load(ctx context.Context, sessionID string) (*models.Session, []*models.Message, error)
	Delete(ctx context.Context, sessionID string) error
}

// SessionUpdate carries the partial fields merged by Update. Zero values
// leave the existing field untouched.
type SessionUpdate struct {
	UserLang     string
	ConnectionID string
	Metadata     map[string]string
}

// Store tracks chat sessions, their metadata and message history.
type Store struct {
	mu        sync.RWMutex
	sessions  map[string]*models.Session
	messages  map[string][]*models.Message
	snapshots Snapshotter
}

// New creates an empty store.
func New() *Store {
	return &Store{
		sessions: make(map[string]*models.Session),
		messages: make(map[string][]*models.Message),
	}
}

// SetSnapshotter enables best-effort snapshot persistence.
func (s *Store) SetSnapshotter(sn Snapshotter) {
	s.snapshots = sn
}

// Create generates a fresh session for the given site key with a unique id,
// the default language and an empty message list.
func (s *Store) Create(siteKey string) *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	session := &models.Session{
		SessionID:    uuid.New().String(),
		SiteKey:      siteKey,
		UserLang:     language.Default,
		CreatedAt:    now,
		LastActivity: now,
		Metadata:     make(map[string]string),
	}
	s.sessions[session.SessionID] = session
	s.messages[session.SessionID] = []*models.Message{}

	log.Printf("[STORE] Created session %s (site key: %s)", session.SessionID, siteKey)
	s.snapshotLocked(session.SessionID)
	return copySession(session)
}

// Get returns the session with the given id, if present.
func (s *Store) Get(sessionID string) (*models.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, false
	}
	return copySession(session), true
}

// Update merges the given partial fields into the session and refreshes
// LastActivity. Returns false if the session is absent.
func (s *Store) Update(sessionID string, update SessionUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return false
	}

	if update.UserLang != "" {
		session.UserLang = update.UserLang
	}
	if update.ConnectionID != "" {
		session.ConnectionID = update.ConnectionID
	}
	for k, v := range update.Metadata {
		session.Metadata[k] = v
	}
	session.LastActivity = time.Now()

	s.snapshotLocked(sessionID)
	return true
}

// BindConnection associates a websocket connection with a session.
// Last bind wins if a new connection joins the same session id.
func (s *Store) BindConnection(sessionID, connectionID string) bool {
	return s.Update(sessionID, SessionUpdate{ConnectionID: connectionID})
}

// UnbindConnection clears the bound connection if it still matches connID.
// The session and its messages are retained for possible reconnection.
func (s *Store) UnbindConnection(sessionID, connectionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok || session.ConnectionID != connectionID {
		return
	}
	session.ConnectionID = ""
	session.LastActivity = time.Now()
}

// Append adds a message to the session's history, generating the id and
// timestamp server-side, and touches LastActivity. Returns false if the
// session is absent.
func (s *Store) Append(sessionID string, msg models.Message) (*models.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, false
	}

	msg.ID = uuid.New().String()
	msg.SessionID = sessionID
	msg.Timestamp = time.Now()

	s.messages[sessionID] = append(s.messages[sessionID], &msg)
	session.LastActivity = msg.Timestamp

	s.snapshotLocked(sessionID)
	return &msg, true
}

// Messages returns the session's messages in insertion order. Empty for an
// absent session.
func (s *Store) Messages(sessionID string) []*models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[sessionID]
	out := make([]*models.Message, len(msgs))
	copy(out, msgs)
	return out
}

// RecentMessages returns the trailing limit messages of the session.
func (s *Store) RecentMessages(sessionID string, limit int) []*models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[sessionID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]*models.Message, len(msgs))
	copy(out, msgs)
	return out
}

// All returns every active session, oldest first.
func (s *Store) All() []*models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, copySession(session))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Count returns the number of active sessions.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Delete removes a session and its messages. Idempotent: deleting an absent
// session returns false and changes nothing.
func (s *Store) Delete(sessionID string) bool {
	s.mu.Lock()
	_, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
		delete(s.messages, sessionID)
	}
	s.mu.Unlock()

	if !ok {
		return false
	}

	log.Printf("[STORE] Deleted session %s", sessionID)
	if s.snapshots != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := s.snapshots.Delete(ctx, sessionID); err != nil {
				log.Printf("[STORE] Snapshot delete failed for %s: %v", sessionID, err)
			}
		}()
	}
	return true
}

// Recreate returns the existing session for sessionID or rebuilds one under
// the same id. Rejoin is idempotent: when the record is still present the
// history is left untouched. When it is gone, the snapshot store (if any) is
// consulted before fabricating a default-language record.
func (s *Store) Recreate(sessionID, siteKey string) *models.Session {
	s.mu.Lock()
	if session, ok := s.sessions[sessionID]; ok {
		session.LastActivity = time.Now()
		out := copySession(session)
		s.mu.Unlock()
		return out
	}
	s.mu.Unlock()

	if s.snapshots != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		session, msgs, err := s.snapshots.Load(ctx, sessionID)
		cancel()
		if err == nil && session != nil {
			s.mu.Lock()
			// The load ran unlocked; a concurrent rejoin may have rebuilt the
			// session in the meantime. Its state wins.
			if existing, ok := s.sessions[sessionID]; ok {
				existing.LastActivity = time.Now()
				out := copySession(existing)
				s.mu.Unlock()
				return out
			}
			restored := copySession(session)
			restored.ConnectionID = ""
			restored.LastActivity = time.Now()
			s.sessions[sessionID] = restored
			s.messages[sessionID] = append([]*models.Message{}, msgs...)
			out := copySession(restored)
			s.mu.Unlock()
			log.Printf("[STORE] Restored session %s from snapshot (%d messages)", sessionID, len(msgs))
			return out
		}
		if err != nil {
			log.Printf("[STORE] Snapshot restore failed for %s: %v", sessionID, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.sessions[sessionID]; ok {
		existing.LastActivity = time.Now()
		return copySession(existing)
	}

	now := time.Now()
	session := &models.Session{
		SessionID:    sessionID,
		SiteKey:      siteKey,
		UserLang:     language.Default,
		CreatedAt:    now,
		LastActivity: now,
		Metadata:     make(map[string]string),
	}
	s.sessions[sessionID] = session
	s.messages[sessionID] = []*models.Message{}

	log.Printf("[STORE] Recreated session %s", sessionID)
	s.snapshotLocked(sessionID)
	return copySession(session)
}

// Sweep deletes every session whose last activity is older than maxAge,
// along with its messages and snapshot. Returns the number deleted.
func (s *Store) Sweep(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	s.mu.Lock()
	var expired []string
	for id, session := range s.sessions {
		if session.LastActivity.Before(cutoff) {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		delete(s.sessions, id)
		delete(s.messages, id)
	}
	s.mu.Unlock()

	if s.snapshots != nil && len(expired) > 0 {
		go func(ids []string) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			for _, id := range ids {
				if err := s.snapshots.Delete(ctx, id); err != nil {
					log.Printf("[STORE] Snapshot delete failed for %s: %v", id, err)
				}
			}
		}(expired)
	}

	if len(expired) > 0 {
		log.Printf("[STORE] Swept %d stale sessions", len(expired))
	}
	return len(expired)
}

// snapshotLocked schedules a best-effort snapshot of the session. Caller
// must hold the write lock; the snapshot itself runs on copies so the store
// mutation stays a single synchronous step.
func (s *Store) snapshotLocked(sessionID string) {
	if s.snapshots == nil {
		return
	}

	session, ok := s.sessions[sessionID]
	if !ok {
		return
	}
	sessionCopy := *copySession(session)
	msgs := s.messages[sessionID]
	msgsCopy := make([]*models.Message, len(msgs))
	copy(msgsCopy, msgs)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := s.snapshots.Save(ctx, sessionCopy, msgsCopy); err != nil {
			log.Printf("[STORE] Snapshot save failed for %s: %v", sessionID, err)
		}
	}()
}

func copySession(session *models.Session) *models.Session {
	out := *session
	out.Metadata = make(map[string]string, len(session.Metadata))
	for k, v := range session.Metadata {
		out.Metadata[k] = v
	}
	return &out
}
