package models

import "time"

// Role identifies who produced a conversation turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is one message in a chat session. Turns are never
// modified once appended.
type ConversationTurn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// CartLine is one item in the cart, referencing a menu item by name
type CartLine struct {
	ItemName   string `json:"item_name"`
	Category   string `json:"category"`
	Quantity   int    `json:"quantity"`
	PriceCents int64  `json:"price_cents"`
}

// LineTotalCents returns quantity times unit price
func (l CartLine) LineTotalCents() int64 {
	return int64(l.Quantity) * l.PriceCents
}
