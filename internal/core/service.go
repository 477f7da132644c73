package core

import (
	"log/slog"
	"strings"
	"time"

	"pollchat/internal/filter"
	"pollchat/internal/markup"
)

// Leave reasons. The idle sweeper shares the explicit-leave code path so
// departure notices read the same under both triggers.
const (
	leftReason = "has left the room."
	idleReason = "has been idle and left."
)

// Entry is a message as returned to poll clients, with the author's live
// typing flag merged in at read time.
type Entry struct {
	Message
	Typing bool `json:"typing,omitempty"`
}

// Service is the single entry point for every room-mutating client action.
// It enforces the join-before-append / filter-before-append / refresh-after-
// append ordering and owns all chat state through its registry. Construct one
// at process start and inject it into the request handlers and the sweeper.
type Service struct {
	rooms   *Registry
	filter  *filter.Filter
	clock   Clock
	stamper *Stamper
}

// NewService wires the gate. A nil clock defaults to the wall clock.
func NewService(rooms *Registry, f *filter.Filter, clock Clock, stamper *Stamper) *Service {
	if clock == nil {
		clock = SystemClock()
	}
	if stamper == nil {
		stamper = NewStamper(0)
	}
	return &Service{rooms: rooms, filter: f, clock: clock, stamper: stamper}
}

func (s *Service) stamp() string {
	return s.stamper.Label(s.clock.Now())
}

// CreateRoom explicitly creates a room, appending the creation notice.
// Duplicate creation fails with ErrAlreadyExists and mutates nothing.
func (s *Service) CreateRoom(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrBadRequest
	}
	r, err := s.rooms.create(name)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.log.append(Message{System: true, Text: "Chat room created.", Stamp: s.stamp()})
	r.mu.Unlock()
	return nil
}

// EnsureRoom idempotently creates a room, appending the creation notice only
// on first creation. Used at startup for the default room and internally by
// the auto-create paths.
func (s *Service) EnsureRoom(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrBadRequest
	}
	s.ensureRoom(name)
	return nil
}

func (s *Service) ensureRoom(name string) *Room {
	r, created := s.rooms.ensure(name)
	if created {
		r.mu.Lock()
		r.log.append(Message{System: true, Text: "Chat room created.", Stamp: s.stamp()})
		r.mu.Unlock()
	}
	return r
}

// Join marks a user active in a room, creating the room if needed. The entry
// notice is appended only when the user was not already active; activity time
// is refreshed either way.
func (s *Service) Join(room, user string) error {
	room, user = strings.TrimSpace(room), strings.TrimSpace(user)
	if room == "" || user == "" {
		return ErrBadRequest
	}
	r := s.ensureRoom(room)
	r.mu.Lock()
	s.joinLocked(r, user)
	r.mu.Unlock()
	return nil
}

// joinLocked implements the idempotent join primitive. Callers hold r.mu.
func (s *Service) joinLocked(r *Room, user string) {
	now := s.clock.Now()
	if sess, ok := r.sessions[user]; ok {
		sess.touchLocked(now)
		return
	}
	r.sessions[user] = &session{lastActive: now}
	r.log.append(Message{System: true, Text: user + " has entered the room.", Stamp: s.stamper.Label(now)})
	slog.Info("user joined", "room", r.name, "user", user, "active_users", len(r.sessions))
}

// Leave removes a user's session and appends the departure notice. A leave
// for an unknown room or inactive user is a silent no-op.
func (s *Service) Leave(room, user string) error {
	return s.leave(room, user, leftReason)
}

func (s *Service) leave(room, user, reason string) error {
	room, user = strings.TrimSpace(room), strings.TrimSpace(user)
	if room == "" || user == "" {
		return ErrBadRequest
	}
	r, ok := s.rooms.lookup(room)
	if !ok {
		return nil
	}
	r.mu.Lock()
	s.leaveLocked(r, user, reason)
	r.mu.Unlock()
	return nil
}

// leaveLocked is the shared eviction primitive used by explicit leaves and
// the idle sweeper. Callers hold r.mu. Returns whether a session was removed.
func (s *Service) leaveLocked(r *Room, user, reason string) bool {
	if _, ok := r.sessions[user]; !ok {
		return false
	}
	delete(r.sessions, user)
	r.log.append(Message{System: true, Text: user + " " + reason, Stamp: s.stamp()})
	slog.Info("user left", "room", r.name, "user", user, "reason", reason, "active_users", len(r.sessions))
	return true
}

// SetTyping updates a user's typing flag (latest wins) and refreshes their
// activity time. No message is appended. The room must already exist.
func (s *Service) SetTyping(room, user string, typing bool) error {
	room, user = strings.TrimSpace(room), strings.TrimSpace(user)
	if room == "" || user == "" {
		return ErrBadRequest
	}
	r, ok := s.rooms.lookup(room)
	if !ok {
		return ErrRoomNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[user]
	if !ok {
		return nil
	}
	sess.typing = typing
	sess.touchLocked(s.clock.Now())
	return nil
}

// SendText runs a user's text through the gate: join, filter, append,
// refresh. On a policy violation a single moderation notice is appended in
// place of the content and ErrPolicyViolation is returned.
func (s *Service) SendText(room, user, text string) error {
	room, user = strings.TrimSpace(room), strings.TrimSpace(user)
	if room == "" || user == "" || strings.TrimSpace(text) == "" {
		return ErrBadRequest
	}
	// The filter always sees raw semantic text, never rendered markup.
	violates := s.filter != nil && s.filter.Violates(text)
	rendered := markup.Render(text)

	r := s.ensureRoom(room)
	r.mu.Lock()
	defer r.mu.Unlock()
	s.joinLocked(r, user)

	if violates {
		r.log.append(Message{
			System: true,
			Text:   user + " attempted to send a message that was blocked by the content filter.",
			Stamp:  s.stamp(),
		})
		s.refreshLocked(r, user)
		slog.Info("message blocked", "room", r.name, "user", user)
		return ErrPolicyViolation
	}

	r.log.append(Message{Author: user, Text: rendered, Stamp: s.stamp()})
	s.refreshLocked(r, user)
	slog.Debug("message appended", "room", r.name, "user", user, "log_len", r.log.len())
	return nil
}

// PostMedia appends an already-filtered media caption fragment through the
// same gate ordering as SendText. The media pipeline filters the fragment
// before it ever reaches here, so the raw-text filter step is skipped.
func (s *Service) PostMedia(room, user, fragment string) error {
	room, user = strings.TrimSpace(room), strings.TrimSpace(user)
	if room == "" || user == "" || fragment == "" {
		return ErrBadRequest
	}
	r := s.ensureRoom(room)
	r.mu.Lock()
	defer r.mu.Unlock()
	s.joinLocked(r, user)
	r.log.append(Message{Author: user, Text: fragment, Stamp: s.stamp()})
	s.refreshLocked(r, user)
	slog.Debug("media message appended", "room", r.name, "user", user)
	return nil
}

// refreshLocked refreshes the sender's activity and clears typing; sending
// implies no longer typing. Callers hold r.mu.
func (s *Service) refreshLocked(r *Room, user string) {
	if sess, ok := r.sessions[user]; ok {
		sess.touchLocked(s.clock.Now())
		sess.typing = false
	}
}

// ListMessages returns a room's ordered log with typing flags merged in,
// plus the active user set. Unknown rooms yield empty results, not an error.
func (s *Service) ListMessages(room string) ([]Entry, []string) {
	r, ok := s.rooms.lookup(strings.TrimSpace(room))
	if !ok {
		return []Entry{}, []string{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := make([]Entry, 0, r.log.len())
	for _, m := range r.log.snapshot() {
		e := Entry{Message: m}
		if !m.System {
			if sess, ok := r.sessions[m.Author]; ok {
				e.Typing = sess.typing
			}
		}
		entries = append(entries, e)
	}
	return entries, r.activeUsersLocked()
}

// ActiveUsers returns the membership set for presence display.
func (s *Service) ActiveUsers(room string) []string {
	r, ok := s.rooms.lookup(strings.TrimSpace(room))
	if !ok {
		return []string{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeUsersLocked()
}

// RoomCount reports how many rooms exist.
func (s *Service) RoomCount() int { return s.rooms.Count() }

// EvictIdle removes every session whose inactivity exceeds idleTimeout,
// through the same leave primitive as an explicit leave so the check and the
// removal happen under one room lock. Returns the number of evictions.
func (s *Service) EvictIdle(idleTimeout time.Duration) int {
	now := s.clock.Now()
	evicted := 0
	for _, r := range s.rooms.all() {
		r.mu.Lock()
		for user, sess := range r.sessions {
			if now.Sub(sess.lastActive) > idleTimeout {
				if s.leaveLocked(r, user, idleReason) {
					evicted++
				}
			}
		}
		r.mu.Unlock()
	}
	if evicted > 0 {
		slog.Info("idle sessions evicted", "count", evicted)
	}
	return evicted
}
