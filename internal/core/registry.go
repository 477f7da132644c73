package core

import (
	"log/slog"
	"sync"
)

// Registry owns the set of rooms. Rooms are created on first reference and
// never destroyed for the lifetime of the process. The registry lock guards
// only the rooms map; per-room state is behind each room's own mutex.
type Registry struct {
	mu          sync.RWMutex
	rooms       map[string]*Room
	maxMessages int
}

// NewRegistry builds an empty registry. maxMessages bounds each room's log;
// zero or less means unbounded.
func NewRegistry(maxMessages int) *Registry {
	return &Registry{
		rooms:       make(map[string]*Room),
		maxMessages: maxMessages,
	}
}

// ensure returns the named room, atomically creating it if absent. The
// second return reports whether this call created it; the caller appends the
// creation notice so the stamp comes from its clock.
func (g *Registry) ensure(name string) (*Room, bool) {
	g.mu.RLock()
	r, ok := g.rooms[name]
	g.mu.RUnlock()
	if ok {
		return r, false
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if r, ok := g.rooms[name]; ok {
		return r, false
	}
	r = newRoom(name, g.maxMessages)
	g.rooms[name] = r
	slog.Info("room created", "room", name, "total_rooms", len(g.rooms))
	return r, true
}

// create adds a new room, failing with ErrAlreadyExists if present. This is
// the user-initiated creation path; join/send use the idempotent ensure.
func (g *Registry) create(name string) (*Room, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.rooms[name]; ok {
		return nil, ErrAlreadyExists
	}
	r := newRoom(name, g.maxMessages)
	g.rooms[name] = r
	slog.Info("room created", "room", name, "total_rooms", len(g.rooms))
	return r, nil
}

// lookup returns the named room without creating it.
func (g *Registry) lookup(name string) (*Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.rooms[name]
	return r, ok
}

// all returns a snapshot of every room, for the idle sweeper.
func (g *Registry) all() []*Room {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Room, 0, len(g.rooms))
	for _, r := range g.rooms {
		out = append(out, r)
	}
	return out
}

// Count returns the number of rooms.
func (g *Registry) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}
