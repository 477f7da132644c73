package core

import (
	"sort"
	"sync"
	"time"
)

// session is one user's active presence in one room. The Service exclusively
// owns and mutates sessions; nothing outside this package holds a reference.
type session struct {
	lastActive time.Time
	typing     bool
}

// Room is a named chat channel with its own message log and membership set.
// One mutex per room covers {log, sessions} so operations on one room never
// block another.
type Room struct {
	name string

	mu       sync.Mutex
	log      messageLog
	sessions map[string]*session
}

func newRoom(name string, maxMessages int) *Room {
	return &Room{
		name:     name,
		log:      messageLog{max: maxMessages},
		sessions: make(map[string]*session),
	}
}

// Name returns the room's unique name.
func (r *Room) Name() string { return r.name }

// activeUsersLocked returns the sorted membership set. Callers hold r.mu.
func (r *Room) activeUsersLocked() []string {
	out := make([]string, 0, len(r.sessions))
	for user := range r.sessions {
		out = append(out, user)
	}
	sort.Strings(out)
	return out
}

// touchLocked refreshes a session's activity time, keeping it monotonically
// non-decreasing. Callers hold r.mu.
func (s *session) touchLocked(now time.Time) {
	if now.After(s.lastActive) {
		s.lastActive = now
	}
}
