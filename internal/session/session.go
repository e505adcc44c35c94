package session

import (
	"sync"
	"time"

	"shackbot/internal/intent"
	"shackbot/internal/models"
	"shackbot/internal/order"
)

// Reply is the outcome of handling one inbound message
type Reply struct {
	MessageID string        `json:"message_id,omitempty"`
	Text      string        `json:"reply"`
	Intent    intent.Intent `json:"intent"`
	Cart      order.Summary `json:"cart"`
}

// Session is one chat user's state: the current order, the conversation
// so far and the last handled message. Callers hold Lock while handling a
// message so dispatches for the same session never overlap.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu        sync.Mutex
	prices    order.PriceBook
	order     *order.Order
	history   []models.ConversationTurn
	lastReply *Reply
	updatedAt time.Time
}

// New creates a session with an empty order
func New(id string, prices order.PriceBook, now time.Time) *Session {
	return &Session{
		ID:        id,
		CreatedAt: now,
		prices:    prices,
		order:     order.New(prices),
		updatedAt: now,
	}
}

// Lock serializes message handling for the session
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session
func (s *Session) Unlock() { s.mu.Unlock() }

// Order returns the session's current order
func (s *Session) Order() *order.Order {
	return s.order
}

// ResetOrder starts a fresh empty order, e.g. after checkout
func (s *Session) ResetOrder() {
	s.order = order.New(s.prices)
}

// AppendTurn records a message in the conversation
func (s *Session) AppendTurn(role models.Role, text string, at time.Time) {
	s.history = append(s.history, models.ConversationTurn{Role: role, Text: text, Timestamp: at})
	s.updatedAt = at
}

// History returns a copy of the conversation so far
func (s *Session) History() []models.ConversationTurn {
	out := make([]models.ConversationTurn, len(s.history))
	copy(out, s.history)
	return out
}

// Replay returns the stored reply if messageID was the last message handled
func (s *Session) Replay(messageID string) (Reply, bool) {
	if messageID == "" || s.lastReply == nil || s.lastReply.MessageID != messageID {
		return Reply{}, false
	}
	return *s.lastReply, true
}

// Remember stores reply as the answer to its message id
func (s *Session) Remember(reply Reply) {
	if reply.MessageID == "" {
		return
	}
	r := reply
	s.lastReply = &r
}

// UpdatedAt returns when the session last saw a message
func (s *Session) UpdatedAt() time.Time {
	return s.updatedAt
}
