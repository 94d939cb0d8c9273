package contact

import (
	"context"
	"sync"
	"time"

	"github.com/Zachkp/portfolio/internal/clock"
)

// Registry keeps one Form per client and evicts forms left idle.
type Registry struct {
	deps Deps

	mu           sync.Mutex
	entries      map[string]*registryEntry
	idleTTL      time.Duration
	cleanupEvery time.Duration
	maxForms     int
}

type registryEntry struct {
	form     *Form
	lastSeen time.Time
}

type RegistryOption func(*Registry)

func WithIdleTTL(d time.Duration) RegistryOption {
	return func(r *Registry) { r.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) RegistryOption {
	return func(r *Registry) { r.cleanupEvery = d }
}

// WithMaxForms caps how many forms are held. At the cap the least
// recently used form is evicted to make room. Zero means no cap.
func WithMaxForms(n int) RegistryOption {
	return func(r *Registry) { r.maxForms = n }
}

func NewRegistry(deps Deps, opts ...RegistryOption) *Registry {
	r := &Registry{
		deps:         deps.withDefaults(),
		entries:      make(map[string]*registryEntry),
		idleTTL:      30 * time.Minute,
		cleanupEvery: 5 * time.Minute,
		maxForms:     10000,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Form returns the client's form, creating it on first use.
func (r *Registry) Form(clientID string) *Form {
	now := r.deps.Clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if ent, ok := r.entries[clientID]; ok {
		ent.lastSeen = now
		return ent.form
	}

	if r.maxForms > 0 && len(r.entries) >= r.maxForms {
		r.evictOldestLocked()
	}

	form := NewForm(clientID, r.deps)
	r.entries[clientID] = &registryEntry{form: form, lastSeen: now}
	return form
}

// Peek returns the snapshot of the client's form without creating one.
// A client with no form is Idle with empty fields.
func (r *Registry) Peek(clientID string) (Snapshot, bool) {
	r.mu.Lock()
	ent, ok := r.entries[clientID]
	r.mu.Unlock()

	if !ok {
		return Snapshot{State: idle()}, false
	}
	return ent.form.Snapshot(), true
}

// evictOldestLocked drops the least recently used form that has no
// write in flight.
func (r *Registry) evictOldestLocked() {
	var (
		oldestID string
		oldest   *registryEntry
	)
	for id, ent := range r.entries {
		if oldest != nil && !ent.lastSeen.Before(oldest.lastSeen) {
			continue
		}
		if ent.form.Snapshot().State.Status == StatusSubmitting {
			continue
		}
		oldestID, oldest = id, ent
	}
	if oldest == nil {
		return
	}
	oldest.form.Close()
	delete(r.entries, oldestID)
}

// Len reports how many forms are held.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Cleanup drops forms not touched within the idle TTL. Forms with a
// write in flight are kept.
func (r *Registry) Cleanup() int {
	cutoff := r.deps.Clock.Now().Add(-r.idleTTL)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, ent := range r.entries {
		if !ent.lastSeen.Before(cutoff) {
			continue
		}
		if ent.form.Snapshot().State.Status == StatusSubmitting {
			continue
		}
		ent.form.Close()
		delete(r.entries, id)
		removed++
	}
	return removed
}

// StartJanitor removes idle forms every cleanupEvery until ctx is done.
// It is driven by the registry's clock.
func (r *Registry) StartJanitor(ctx context.Context) {
	if r.cleanupEvery <= 0 {
		return
	}

	var (
		mu    sync.Mutex
		timer clock.Timer
	)

	var tick func()
	tick = func() {
		if ctx.Err() != nil {
			return
		}
		if n := r.Cleanup(); n > 0 {
			r.deps.Logger.Debug("Evicted %d idle contact forms", n)
		}

		mu.Lock()
		defer mu.Unlock()
		if ctx.Err() == nil {
			timer = r.deps.Clock.AfterFunc(r.cleanupEvery, tick)
		}
	}

	mu.Lock()
	timer = r.deps.Clock.AfterFunc(r.cleanupEvery, tick)
	mu.Unlock()

	context.AfterFunc(ctx, func() {
		mu.Lock()
		defer mu.Unlock()
		timer.Stop()
	})
}
