package dispatch

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"shackbot/internal/catalog"
	"shackbot/internal/intent"
	"shackbot/internal/llm"
	"shackbot/internal/models"
	"shackbot/internal/order"
	"shackbot/internal/session"
)

// Invoker runs a prompt through the LLM guard
type Invoker interface {
	Invoke(ctx context.Context, prompt string) (llm.Completion, error)
}

// Classifier picks the intent of a message
type Classifier interface {
	Classify(ctx context.Context, message string, history []models.ConversationTurn) intent.Intent
}

// Menu serves the current catalog snapshot
type Menu interface {
	Get(ctx context.Context) models.Catalog
}

// Observer is told about routed intents and cart outcomes
type Observer interface {
	ObserveIntent(intent string)
	ObserveCartMutation(operation, result string)
	ObserveCheckout(result string)
}

type nopObserver struct{}

func (nopObserver) ObserveIntent(string)               {}
func (nopObserver) ObserveCartMutation(string, string) {}
func (nopObserver) ObserveCheckout(string)             {}

// turn is the state one handler works on
type turn struct {
	session *session.Session
	text    string
	catalog models.Catalog
}

type handlerFunc func(ctx context.Context, t *turn) string

// Orchestrator routes inbound messages to the handler for their intent
// and turns every outcome into a reply the user can see.
type Orchestrator struct {
	classifier Classifier
	guard      Invoker
	menu       Menu
	resolver   *catalog.Resolver
	store      order.Store
	observer   Observer
	logger     *zap.Logger
	now        func() time.Time

	handlers map[intent.Intent]handlerFunc
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithObserver reports intents and cart outcomes to o
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithClock replaces time.Now for conversation timestamps
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an orchestrator
func New(classifier Classifier, guard Invoker, menu Menu, resolver *catalog.Resolver, store order.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		classifier: classifier,
		guard:      guard,
		menu:       menu,
		resolver:   resolver,
		store:      store,
		observer:   nopObserver{},
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.handlers = map[intent.Intent]handlerFunc{
		intent.Greeting:       o.greeting,
		intent.MenuInquiry:    o.menuInquiry,
		intent.PriceInquiry:   o.priceInquiry,
		intent.PlaceOrder:     o.placeOrder,
		intent.UpdateQuantity: o.updateQuantity,
		intent.RemoveItem:     o.removeItem,
		intent.Checkout:       o.checkout,
		intent.ClearOrder:     o.clearOrder,
		intent.General:        o.general,
	}
	return o
}

// Handle answers one chat message. A repeated messageID gets the stored
// reply back without running any handler again.
func (o *Orchestrator) Handle(ctx context.Context, s *session.Session, messageID, text string) session.Reply {
	s.Lock()
	defer s.Unlock()

	if reply, ok := s.Replay(messageID); ok {
		o.logger.Debug("replaying duplicate message",
			zap.String("session_id", s.ID),
			zap.String("message_id", messageID))
		return reply
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return session.Reply{MessageID: messageID, Text: msgEmptyMessage, Intent: intent.General, Cart: s.Order().Summary()}
	}

	history := s.History()
	s.AppendTurn(models.RoleUser, text, o.now())

	t := &turn{session: s, text: text, catalog: o.menu.Get(ctx)}
	in := o.classifier.Classify(ctx, text, history)
	o.observer.ObserveIntent(in.String())

	handler, ok := o.handlers[in]
	if !ok {
		in, handler = intent.General, o.general
	}
	answer := handler(ctx, t)

	fields := []zap.Field{
		zap.String("session_id", s.ID),
		zap.String("message_id", messageID),
		zap.String("intent", in.String()),
	}
	if in.Mutates() {
		o.logger.Info("cart message handled", append(fields, zap.Int64("total_cents", s.Order().TotalCents()))...)
	} else {
		o.logger.Debug("message handled", fields...)
	}

	s.AppendTurn(models.RoleAssistant, answer, o.now())
	reply := session.Reply{MessageID: messageID, Text: answer, Intent: in, Cart: s.Order().Summary()}
	s.Remember(reply)
	return reply
}

// Checkout finalizes the session's order outside the chat flow
func (o *Orchestrator) Checkout(ctx context.Context, s *session.Session) session.Reply {
	s.Lock()
	defer s.Unlock()
	text := o.checkout(ctx, &turn{session: s})
	return session.Reply{Text: text, Intent: intent.Checkout, Cart: s.Order().Summary()}
}

// Clear empties the session's order outside the chat flow
func (o *Orchestrator) Clear(s *session.Session) session.Reply {
	s.Lock()
	defer s.Unlock()
	text := o.clearOrder(context.Background(), &turn{session: s})
	return session.Reply{Text: text, Intent: intent.ClearOrder, Cart: s.Order().Summary()}
}

// Cart returns the session's current order summary
func (o *Orchestrator) Cart(s *session.Session) order.Summary {
	s.Lock()
	defer s.Unlock()
	return s.Order().Summary()
}

func (o *Orchestrator) fail(op string, err error) string {
	o.logger.Warn("request failed", zap.String("operation", op), zap.Error(err))
	return userMessage(err)
}
