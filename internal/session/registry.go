package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/latticecad/lattice/internal/kernel"
)

// DefaultIdleTTL is how long a session may sit untouched before the reaper
// removes it. Zero disables expiry.
const DefaultIdleTTL = 30 * time.Minute

// DefaultSweepInterval is how often the reaper scans for idle sessions.
const DefaultSweepInterval = time.Minute

// Registry maps session ids to modeling engines. The mutex guards only map
// access; modeling operations run against resolved engines outside the lock.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Engine

	k             kernel.Kernel
	idleTTL       time.Duration
	sweepInterval time.Duration
}

// Option configures a Registry.
type Option func(*Registry)

// WithIdleTTL overrides the idle expiry window. Zero disables the reaper.
func WithIdleTTL(ttl time.Duration) Option {
	return func(r *Registry) { r.idleTTL = ttl }
}

// WithSweepInterval overrides how often idle sessions are scanned.
func WithSweepInterval(d time.Duration) Option {
	return func(r *Registry) { r.sweepInterval = d }
}

// NewRegistry creates an empty registry whose sessions are backed by the
// given kernel.
func NewRegistry(k kernel.Kernel, opts ...Option) *Registry {
	r := &Registry{
		sessions:      make(map[string]*Engine),
		k:             k,
		idleTTL:       DefaultIdleTTL,
		sweepInterval: DefaultSweepInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewSessionID returns a fresh server-assigned session identifier.
func NewSessionID() string { return uuid.NewString() }

// GetOrCreate resolves the engine for a session id, creating it lazily on
// first reference. Subsequent calls with the same id return the same engine.
// Resolving counts as use, so any request that reaches a session slides its
// idle window regardless of whether it mutates anything.
func (r *Registry) GetOrCreate(id string) *Engine {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.sessions[id]; ok {
		e.refresh()
		return e
	}
	e := NewEngine(id, r.k)
	r.sessions[id] = e
	log.Info().Str("session", id).Int("active", len(r.sessions)).Msg("session created")
	return e
}

// Get resolves an existing engine without creating one.
func (r *Registry) Get(id string) (*Engine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	return e, ok
}

// Exists reports whether a session id is registered.
func (r *Registry) Exists(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[id]
	return ok
}

// ActiveCount returns the number of live sessions.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Cleanup destroys one session. Returns whether it existed.
func (r *Registry) Cleanup(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	log.Info().Str("session", id).Int("active", len(r.sessions)).Msg("session cleaned up")
	return true
}

// CleanupAll destroys every session and returns how many were removed.
func (r *Registry) CleanupAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.sessions)
	r.sessions = make(map[string]*Engine)
	if n > 0 {
		log.Info().Int("removed", n).Msg("all sessions cleaned up")
	}
	return n
}

// RunReaper sweeps idle sessions until the context is canceled. Returns
// immediately when expiry is disabled.
func (r *Registry) RunReaper(ctx context.Context) error {
	if r.idleTTL <= 0 {
		log.Debug().Msg("session reaper disabled")
		return nil
	}

	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	log.Info().Dur("idle_ttl", r.idleTTL).Dur("sweep", r.sweepInterval).Msg("session reaper started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.reapIdle(time.Now())
		}
	}
}

// reapIdle removes sessions whose last use is older than the idle TTL.
func (r *Registry) reapIdle(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, e := range r.sessions {
		if now.Sub(e.LastUsed()) > r.idleTTL {
			delete(r.sessions, id)
			log.Info().Str("session", id).Msg("idle session reaped")
		}
	}
}
