// Package registry keeps the live trackers addressable by UUID so the HTTP
// surface and monitors can find them. It is in-memory only; trackers vanish
// with the process.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kelvinho/progressd/internal/progress"
)

// ErrNotFound is returned when no tracker carries the requested ID.
var ErrNotFound = errors.New("tracker not found")

// IDGenerator mints tracker IDs.
type IDGenerator interface {
	NewRawID() (uuid.UUID, error)
}

// Clock provides creation timestamps.
type Clock interface {
	Now() time.Time
}

// Entry pairs a tracker with its identity and creation time.
type Entry struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Tracker   *progress.Tracker
}

// Registry is a mutex-guarded map of live trackers. Every tracker it creates
// is wired to the shared emitter so mutations flow to the sinks.
type Registry struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]Entry

	ids     IDGenerator
	clock   Clock
	emitter progress.Emitter
}

// New constructs an empty Registry. The emitter may be nil, in which case
// trackers stay silent.
func New(ids IDGenerator, clock Clock, emitter progress.Emitter) *Registry {
	return &Registry{
		entries: make(map[uuid.UUID]Entry),
		ids:     ids,
		clock:   clock,
		emitter: emitter,
	}
}

// Create mints an ID and registers a tracker starting at initial.
func (r *Registry) Create(initial float64) (Entry, error) {
	id, err := r.ids.NewRawID()
	if err != nil {
		return Entry{}, fmt.Errorf("mint tracker id: %w", err)
	}
	opts := []progress.Option{}
	if r.emitter != nil {
		opts = append(opts, progress.WithEmitter(progress.UUIDToBytes(id), r.emitter))
	}
	entry := Entry{
		ID:        id,
		CreatedAt: r.clock.Now(),
		Tracker:   progress.NewAt(initial, opts...),
	}
	r.mu.Lock()
	r.entries[id] = entry
	r.mu.Unlock()
	return entry, nil
}

// Get returns the entry for id or ErrNotFound.
func (r *Registry) Get(id uuid.UUID) (Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[id]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return entry, nil
}

// List returns all entries ordered by creation time, oldest first.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	out := make([]Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		out = append(out, entry)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Delete forgets the tracker with id, returning ErrNotFound if absent.
func (r *Registry) Delete(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(r.entries, id)
	return nil
}
