package core

// Message is one immutable entry in a room's log. System notices (room
// created, joins, leaves, moderation events) have no author.
type Message struct {
	System bool   `json:"system"`
	Author string `json:"user,omitempty"`
	Text   string `json:"text"`
	Stamp  string `json:"stamp"`
}

// messageLog is a bounded append-only FIFO. A max of zero or less means
// unbounded. It is not safe for concurrent use; the owning room's mutex
// guards it.
type messageLog struct {
	max  int
	msgs []Message
}

func (l *messageLog) append(m Message) {
	l.msgs = append(l.msgs, m)
	if l.max > 0 && len(l.msgs) > l.max {
		// Drop oldest first, never reorder.
		copy(l.msgs, l.msgs[len(l.msgs)-l.max:])
		l.msgs = l.msgs[:l.max]
	}
}

func (l *messageLog) len() int { return len(l.msgs) }

// snapshot copies the log so callers can use it after the lock is released.
func (l *messageLog) snapshot() []Message {
	out := make([]Message, len(l.msgs))
	copy(out, l.msgs)
	return out
}
