package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"babelbridge/internal/models"
)

func TestCreateAndGet(t *testing.T) {
	s := New()

	created := s.Create("SITE_KEY_1")
	if created.SessionID == "" {
		t.Fatal("expected generated session id")
	}
	if created.UserLang != "en" {
		t.Fatalf("new sessions must default to en, got %q", created.UserLang)
	}

	got, ok := s.Get(created.SessionID)
	if !ok {
		t.Fatal("expected session to be retrievable")
	}
	if got.SiteKey != "SITE_KEY_1" {
		t.Fatalf("unexpected site key: %q", got.SiteKey)
	}

	if _, ok := s.Get("missing"); ok {
		t.Fatal("expected miss for unknown session id")
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s := New()
	created := s.Create("K")

	got, _ := s.Get(created.SessionID)
	got.UserLang = "hi"
	got.Metadata["x"] = "y"

	again, _ := s.Get(created.SessionID)
	if again.UserLang != "en" || len(again.Metadata) != 0 {
		t.Fatal("mutating a returned session must not affect the store")
	}
}

func TestUpdateMergesPartialFields(t *testing.T) {
	s := New()
	created := s.Create("K")

	if !s.Update(created.SessionID, SessionUpdate{UserLang: "bn"}) {
		t.Fatal("update of existing session must succeed")
	}
	if s.Update("missing", SessionUpdate{UserLang: "bn"}) {
		t.Fatal("update of absent session must fail")
	}

	got, _ := s.Get(created.SessionID)
	if got.UserLang != "bn" {
		t.Fatalf("expected bn, got %q", got.UserLang)
	}

	// Zero-value fields leave existing data alone
	s.Update(created.SessionID, SessionUpdate{Metadata: map[string]string{"page": "/checkout"}})
	got, _ = s.Get(created.SessionID)
	if got.UserLang != "bn" || got.Metadata["page"] != "/checkout" {
		t.Fatalf("partial update clobbered fields: %+v", got)
	}
}

func TestBindUnbindConnection(t *testing.T) {
	s := New()
	created := s.Create("K")

	s.BindConnection(created.SessionID, "conn-1")
	got, _ := s.Get(created.SessionID)
	if got.ConnectionID != "conn-1" {
		t.Fatalf("expected conn-1, got %q", got.ConnectionID)
	}

	// A stale connection must not clear a newer binding
	s.BindConnection(created.SessionID, "conn-2")
	s.UnbindConnection(created.SessionID, "conn-1")
	got, _ = s.Get(created.SessionID)
	if got.ConnectionID != "conn-2" {
		t.Fatalf("stale unbind must be ignored, got %q", got.ConnectionID)
	}

	s.UnbindConnection(created.SessionID, "conn-2")
	got, _ = s.Get(created.SessionID)
	if got.ConnectionID != "" {
		t.Fatal("expected connection cleared after matching unbind")
	}
	if _, ok := s.Get(created.SessionID); !ok {
		t.Fatal("disconnect must retain the session")
	}
}

func TestAppendPreservesOrder(t *testing.T) {
	s := New()
	created := s.Create("K")

	for _, text := range []string{"first", "second", "third"} {
		msg, ok := s.Append(created.SessionID, models.Message{
			Sender:       models.SenderUser,
			OriginalText: text,
		})
		if !ok {
			t.Fatalf("append failed for %q", text)
		}
		if msg.ID == "" || msg.Timestamp.IsZero() {
			t.Fatal("append must assign id and timestamp server-side")
		}
	}

	msgs := s.Messages(created.SessionID)
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	for i, want := range []string{"first", "second", "third"} {
		if msgs[i].OriginalText != want {
			t.Fatalf("message %d out of order: %q", i, msgs[i].OriginalText)
		}
	}

	if _, ok := s.Append("missing", models.Message{OriginalText: "x"}); ok {
		t.Fatal("append to absent session must fail")
	}
}

func TestRecentMessages(t *testing.T) {
	s := New()
	created := s.Create("K")
	for i := 0; i < 5; i++ {
		s.Append(created.SessionID, models.Message{OriginalText: string(rune('a' + i))})
	}

	recent := s.RecentMessages(created.SessionID, 2)
	if len(recent) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(recent))
	}
	if recent[0].OriginalText != "d" || recent[1].OriginalText != "e" {
		t.Fatalf("expected trailing messages, got %q %q", recent[0].OriginalText, recent[1].OriginalText)
	}
}

func TestDeleteIdempotent(t *testing.T) {
	s := New()
	created := s.Create("K")
	s.Append(created.SessionID, models.Message{OriginalText: "x"})

	if !s.Delete(created.SessionID) {
		t.Fatal("first delete must succeed")
	}
	if s.Delete(created.SessionID) {
		t.Fatal("second delete must be a no-op")
	}
	if _, ok := s.Get(created.SessionID); ok {
		t.Fatal("deleted session must be gone")
	}
	if len(s.Messages(created.SessionID)) != 0 {
		t.Fatal("deleted session's messages must be gone")
	}
}

func TestAllSortedByCreation(t *testing.T) {
	s := New()
	first := s.Create("K")
	second := s.Create("K")

	all := s.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(all))
	}
	if all[0].SessionID != first.SessionID || all[1].SessionID != second.SessionID {
		t.Fatal("expected oldest-first ordering")
	}
}

func TestSweepExpiresByActivityOnly(t *testing.T) {
	s := New()
	stale := s.Create("K")
	fresh := s.Create("K")

	// Age the stale session directly; Sweep keys off LastActivity
	s.mu.Lock()
	s.sessions[stale.SessionID].LastActivity = time.Now().Add(-25 * time.Hour)
	s.mu.Unlock()

	removed := s.Sweep(24 * time.Hour)
	if removed != 1 {
		t.Fatalf("expected 1 swept session, got %d", removed)
	}
	if _, ok := s.Get(stale.SessionID); ok {
		t.Fatal("stale session must be swept")
	}
	if _, ok := s.Get(fresh.SessionID); !ok {
		t.Fatal("fresh session must survive the sweep")
	}
}

func TestRecreateIdempotent(t *testing.T) {
	s := New()
	created := s.Create("K")
	s.Update(created.SessionID, SessionUpdate{UserLang: "ta"})
	s.Append(created.SessionID, models.Message{OriginalText: "x"})

	got := s.Recreate(created.SessionID, "K")
	if got.UserLang != "ta" {
		t.Fatalf("rejoin must keep existing state, got lang %q", got.UserLang)
	}
	if len(s.Messages(created.SessionID)) != 1 {
		t.Fatal("rejoin must keep existing history")
	}
}

func TestRecreateFabricatesMissingSession(t *testing.T) {
	s := New()

	got := s.Recreate("token-session-id", "K")
	if got.SessionID != "token-session-id" {
		t.Fatalf("recreate must keep the token's session id, got %q", got.SessionID)
	}
	if got.UserLang != "en" {
		t.Fatalf("fabricated session must default to en, got %q", got.UserLang)
	}
	if _, ok := s.Get("token-session-id"); !ok {
		t.Fatal("fabricated session must be stored")
	}
}

// memorySnapshotter is an in-process Snapshotter for restore tests.
type memorySnapshotter struct {
	mu       sync.Mutex
	sessions map[string]models.Session
	messages map[string][]*models.Message
}

func newMemorySnapshotter() *memorySnapshotter {
	return &memorySnapshotter{
		sessions: make(map[string]models.Session),
		messages: make(map[string][]*models.Message),
	}
}

func (m *memorySnapshotter) Save(_ context.Context, session models.Session, msgs []*models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.SessionID] = session
	m.messages[session.SessionID] = msgs
	return nil
}

func (m *memorySnapshotter) Load(_ context.Context, sessionID string) (*models.Session, []*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, nil, nil
	}
	return &session, m.messages[sessionID], nil
}

func (m *memorySnapshotter) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	delete(m.messages, sessionID)
	return nil
}

// slowSnapshotter blocks Load until released, exposing the window where a
// restore overlaps other store mutations.
type slowSnapshotter struct {
	*memorySnapshotter
	loadStarted chan struct{}
	release     chan struct{}
}

func (s *slowSnapshotter) Load(ctx context.Context, sessionID string) (*models.Session, []*models.Message, error) {
	close(s.loadStarted)
	<-s.release
	return s.memorySnapshotter.Load(ctx, sessionID)
}

func TestRecreateConcurrentRejoinKeepsHistory(t *testing.T) {
	snap := &slowSnapshotter{
		memorySnapshotter: newMemorySnapshotter(),
		loadStarted:       make(chan struct{}),
		release:           make(chan struct{}),
	}
	// A stale snapshot exists, so the suspended rejoin takes the restore path
	snap.memorySnapshotter.Save(context.Background(), models.Session{
		SessionID: "sess-1",
		SiteKey:   "K",
		UserLang:  "bn",
		Metadata:  map[string]string{},
	}, nil)

	s := New()
	s.SetSnapshotter(snap)

	// First rejoin suspends inside the snapshot load
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Recreate("sess-1", "K")
	}()
	<-snap.loadStarted

	// Second connection rebuilds the session and does real work meanwhile.
	// Its Recreate sees the session absent too, but Load is a plain miss.
	s.mu.Lock()
	s.sessions["sess-1"] = &models.Session{
		SessionID: "sess-1",
		SiteKey:   "K",
		UserLang:  "en",
		Metadata:  make(map[string]string),
	}
	s.messages["sess-1"] = []*models.Message{}
	s.mu.Unlock()
	s.Append("sess-1", models.Message{Sender: models.SenderUser, OriginalText: "hi"})
	s.Update("sess-1", SessionUpdate{UserLang: "hi"})

	close(snap.release)
	<-done

	msgs := s.Messages("sess-1")
	if len(msgs) != 1 || msgs[0].OriginalText != "hi" {
		t.Fatalf("concurrent rejoin wiped history: want 1 message, got %d", len(msgs))
	}
	session, _ := s.Get("sess-1")
	if session.UserLang != "hi" {
		t.Fatalf("concurrent rejoin reverted session state, lang %q", session.UserLang)
	}
}

func TestRecreateFabricateRechecksUnderLock(t *testing.T) {
	// No snapshotter: both rejoins race straight to the fabricate path
	s := New()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Recreate("sess-1", "K")
		}()
	}
	wg.Wait()

	s.Append("sess-1", models.Message{Sender: models.SenderUser, OriginalText: "x"})
	got := s.Recreate("sess-1", "K")
	if got.SessionID != "sess-1" {
		t.Fatalf("unexpected session id %q", got.SessionID)
	}
	if len(s.Messages("sess-1")) != 1 {
		t.Fatal("repeat recreate must not reset message history")
	}
	if s.Count() != 1 {
		t.Fatalf("expected a single session record, got %d", s.Count())
	}
}

func TestRecreateRestoresFromSnapshot(t *testing.T) {
	snap := newMemorySnapshotter()
	snap.Save(context.Background(), models.Session{
		SessionID:    "restored-id",
		SiteKey:      "K",
		UserLang:     "bn",
		ConnectionID: "old-conn",
		Metadata:     map[string]string{},
	}, []*models.Message{
		{ID: "m1", SessionID: "restored-id", OriginalText: "ami help chai"},
	})

	s := New()
	s.SetSnapshotter(snap)

	got := s.Recreate("restored-id", "K")
	if got.UserLang != "bn" {
		t.Fatalf("expected language restored from snapshot, got %q", got.UserLang)
	}
	if got.ConnectionID != "" {
		t.Fatal("restored session must not carry a stale connection binding")
	}

	msgs := s.Messages("restored-id")
	if len(msgs) != 1 || msgs[0].OriginalText != "ami help chai" {
		t.Fatalf("expected restored history, got %+v", msgs)
	}
}
