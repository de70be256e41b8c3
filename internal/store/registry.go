package store

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Registry maps session identifiers to their stores. It is the only
// process-wide shared structure: stores themselves are session-isolated.
// Stores are created on first access and live until dropped or swept.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
	logger   *slog.Logger
}

type sessionEntry struct {
	store    *Store
	lastSeen time.Time
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		sessions: make(map[string]*sessionEntry),
		logger:   logger,
	}
}

// Get returns the store for sessionID, creating an empty one on first access.
func (r *Registry) Get(sessionID string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[sessionID]
	if !ok {
		entry = &sessionEntry{store: New()}
		r.sessions[sessionID] = entry
		r.logger.Info("created session store", "session_id", sessionID)
	}
	entry.lastSeen = time.Now()
	return entry.store
}

// Drop tears down a session's store. Unknown ids are a no-op.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[sessionID]; ok {
		delete(r.sessions, sessionID)
		r.logger.Info("dropped session store", "session_id", sessionID)
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep drops sessions idle for longer than maxIdle and returns how many
// were removed.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := time.Now().Add(-maxIdle)
	removed := 0
	for id, entry := range r.sessions {
		if entry.lastSeen.Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// Janitor sweeps idle sessions on a ticker until ctx is cancelled. Run it in
// its own goroutine; it keeps a long-lived process from accumulating
// abandoned session state.
func (r *Registry) Janitor(ctx context.Context, interval, maxIdle time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if removed := r.Sweep(maxIdle); removed > 0 {
				r.logger.Info("swept idle sessions", "removed", removed, "live", r.Len())
			}
		}
	}
}
