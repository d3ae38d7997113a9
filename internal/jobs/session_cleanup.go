package jobs

import (
	"log"
	"time"

	"babelbridge/internal/store"
)

// SessionCleanup sweeps sessions whose last activity is older than MaxAge.
// Disconnection alone never expires a session; only age does.
type SessionCleanup struct {
	store  *store.Store
	maxAge time.Duration
}

// NewSessionCleanup creates the cleanup job.
func NewSessionCleanup(sessions *store.Store, maxAge time.Duration) *SessionCleanup {
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	return &SessionCleanup{store: sessions, maxAge: maxAge}
}

// Run performs one sweep.
func (j *SessionCleanup) Run() {
	removed := j.store.Sweep(j.maxAge)
	if removed > 0 {
		log.Printf("[CLEANUP] Swept %d expired sessions (max age %v)", removed, j.maxAge)
	}
}
