package intent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"shackbot/internal/llm"
	"shackbot/internal/logger"
	"shackbot/internal/models"
)

// DefaultHistoryWindow is how many recent turns go into the prompt
const DefaultHistoryWindow = 6

// Invoker is the part of the LLM Guard the classifier needs
type Invoker interface {
	Invoke(ctx context.Context, prompt string) (llm.Completion, error)
}

// Classifier maps a message and recent conversation to an Intent
type Classifier struct {
	guard  Invoker
	window int
	logger *zap.Logger
}

// NewClassifier creates a classifier. A negative window disables history.
func NewClassifier(guard Invoker, window int, log *zap.Logger) *Classifier {
	if window < 0 {
		window = 0
	}
	return &Classifier{
		guard:  guard,
		window: window,
		logger: logger.Component(log, "intent_classifier"),
	}
}

// Classify never fails: provider errors and unexpected answers degrade to General
func (c *Classifier) Classify(ctx context.Context, message string, history []models.ConversationTurn) Intent {
	prompt := BuildPrompt(message, history, c.window)

	out, err := c.guard.Invoke(ctx, prompt)
	if err != nil {
		c.logger.Warn("intent classification failed, using general",
			zap.Int("attempts", out.Attempts),
			zap.Error(err),
		)
		return General
	}

	in := Parse(out.Text)
	c.logger.Info("classified message",
		zap.String("intent", in.String()),
		zap.String("raw", strings.TrimSpace(out.Text)),
	)
	return in
}

var descriptions = map[Intent]string{
	Greeting:       "the customer says hello or starts the conversation",
	MenuInquiry:    "the customer asks what is on the menu or about an item",
	PriceInquiry:   "the customer asks how much an item costs",
	PlaceOrder:     "the customer wants to order or add items",
	UpdateQuantity: "the customer wants to change how many of an item they ordered",
	RemoveItem:     "the customer wants to take an item out of the order",
	Checkout:       "the customer is done and wants to place the order",
	ClearOrder:     "the customer wants to start over with an empty order",
	General:        "anything else, including questions about the current order",
}

// BuildPrompt renders the classification prompt with at most window
// trailing turns of history.
func BuildPrompt(message string, history []models.ConversationTurn, window int) string {
	var b strings.Builder
	b.WriteString(`You are the order assistant of a Shake Shack restaurant.
Classify the customer's latest message into ONE of the following intents:
`)
	for _, in := range All() {
		fmt.Fprintf(&b, "- %s: %s\n", in, descriptions[in])
	}
	b.WriteString("\nReturn ONLY the intent label, nothing else.\n")

	if turns := recent(history, window); len(turns) > 0 {
		b.WriteString("\nRecent conversation:\n")
		for _, t := range turns {
			fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Text)
		}
	}

	fmt.Fprintf(&b, "\nLatest message: %s\nIntent:", message)
	return b.String()
}

func recent(history []models.ConversationTurn, window int) []models.ConversationTurn {
	if window <= 0 || len(history) == 0 {
		return nil
	}
	if len(history) > window {
		return history[len(history)-window:]
	}
	return history
}
