package order

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"shackbot/internal/models"
)

// State of an Order
type State int

const (
	StateEmpty State = iota
	StateBuilding
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateBuilding:
		return "building"
	case StateFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// PriceBook resolves current prices by item name
type PriceBook interface {
	Lookup(name string) (models.MenuItem, bool)
}

// Snapshot is what gets handed to the persistence store on checkout
type Snapshot struct {
	SessionID  string
	Lines      []models.CartLine
	TotalCents int64
}

// Store persists finalized orders. It either returns a complete order id
// or persists nothing.
type Store interface {
	SaveOrder(ctx context.Context, snap Snapshot) (string, error)
}

// Summary is the read-only view of a cart
type Summary struct {
	State      string            `json:"state"`
	Lines      []models.CartLine `json:"lines"`
	TotalCents int64             `json:"total_cents"`
	Total      string            `json:"total"`
}

// IsEmpty reports whether the summary has no lines
func (s Summary) IsEmpty() bool {
	return len(s.Lines) == 0
}

type line struct {
	item     models.MenuItem
	quantity int
}

// Order is one session's cart. It is not safe for concurrent use; the
// owning session serializes access.
type Order struct {
	prices     PriceBook
	lines      []line
	totalCents int64
	finalized  bool
	orderID    string
}

// New creates an empty order priced from prices. A nil PriceBook prices
// every line with the item captured when it was added.
func New(prices PriceBook) *Order {
	return &Order{prices: prices}
}

// State derives the current state from the lines and the finalized flag
func (o *Order) State() State {
	switch {
	case o.finalized:
		return StateFinalized
	case len(o.lines) == 0:
		return StateEmpty
	default:
		return StateBuilding
	}
}

// ID returns the persisted order id once finalized
func (o *Order) ID() string {
	return o.orderID
}

// TotalCents returns the total as of the last mutation
func (o *Order) TotalCents() int64 {
	return o.totalCents
}

// AddItem adds quantity of item, merging with an existing line
func (o *Order) AddItem(item models.MenuItem, quantity int) error {
	if o.finalized {
		return ErrFinalized
	}
	if quantity <= 0 {
		return &ValidationError{Field: "quantity", Value: strconv.Itoa(quantity), Reason: "must be a positive integer"}
	}
	if err := models.ValidateMenuItem(&item); err != nil {
		return &ValidationError{Field: "item", Value: item.Name, Reason: err.Error()}
	}

	if i := o.index(item.Key()); i >= 0 {
		o.lines[i].quantity += quantity
	} else {
		o.lines = append(o.lines, line{item: item, quantity: quantity})
	}
	o.recompute()
	return nil
}

// UpdateQuantity sets the quantity of a line. Zero removes it.
func (o *Order) UpdateQuantity(name string, quantity int) error {
	if o.finalized {
		return ErrFinalized
	}
	if quantity < 0 {
		return &ValidationError{Field: "quantity", Value: strconv.Itoa(quantity), Reason: "must not be negative"}
	}
	i := o.index(models.Normalize(name))
	if i < 0 {
		return &ValidationError{Field: "item", Value: name, Reason: "not in the order"}
	}

	if quantity == 0 {
		o.lines = append(o.lines[:i], o.lines[i+1:]...)
	} else {
		o.lines[i].quantity = quantity
	}
	o.recompute()
	return nil
}

// RemoveItem deletes the line for name. Removing an absent item succeeds
// and reports removed=false.
func (o *Order) RemoveItem(name string) (removed models.CartLine, ok bool, err error) {
	if o.finalized {
		return models.CartLine{}, false, ErrFinalized
	}
	i := o.index(models.Normalize(name))
	if i < 0 {
		return models.CartLine{}, false, nil
	}

	removed = o.cartLine(o.lines[i])
	o.lines = append(o.lines[:i], o.lines[i+1:]...)
	o.recompute()
	return removed, true, nil
}

// Find locates the line a loosely written name refers to: the exact
// normalized name first, then the same name without spaces or punctuation,
// then the first line whose name contains the text.
func (o *Order) Find(name string) (models.CartLine, bool) {
	key := models.Normalize(name)
	if key == "" {
		return models.CartLine{}, false
	}
	if i := o.index(key); i >= 0 {
		return o.cartLine(o.lines[i]), true
	}
	compact := models.Compact(key)
	for _, l := range o.lines {
		if models.Compact(l.item.Name) == compact {
			return o.cartLine(l), true
		}
	}
	for _, l := range o.lines {
		if strings.Contains(l.item.Key(), key) {
			return o.cartLine(l), true
		}
	}
	return models.CartLine{}, false
}

// Lines returns the cart lines in insertion order with current prices
func (o *Order) Lines() []models.CartLine {
	out := make([]models.CartLine, 0, len(o.lines))
	for _, l := range o.lines {
		out = append(out, o.cartLine(l))
	}
	return out
}

// Summary returns the ordered lines and a total recomputed from current prices
func (o *Order) Summary() Summary {
	lines := o.Lines()
	var total int64
	for _, l := range lines {
		total += l.LineTotalCents()
	}
	return Summary{
		State:      o.State().String(),
		Lines:      lines,
		TotalCents: total,
		Total:      models.FormatCents(total),
	}
}

// Finalize persists the order through store. On failure the lines are
// kept so checkout can be retried.
func (o *Order) Finalize(ctx context.Context, store Store, sessionID string) (string, error) {
	switch o.State() {
	case StateEmpty:
		return "", ErrEmptyOrder
	case StateFinalized:
		return "", ErrFinalized
	}

	o.recompute()
	summary := o.Summary()
	id, err := store.SaveOrder(ctx, Snapshot{
		SessionID:  sessionID,
		Lines:      summary.Lines,
		TotalCents: summary.TotalCents,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if id == "" {
		return "", fmt.Errorf("%w: store returned no order id", ErrStorage)
	}

	o.finalized = true
	o.orderID = id
	return id, nil
}

// Clear discards every line without persisting. A finalized order is left as is.
func (o *Order) Clear() {
	if o.finalized {
		return
	}
	o.lines = nil
	o.recompute()
}

func (o *Order) index(key string) int {
	for i, l := range o.lines {
		if l.item.Key() == key {
			return i
		}
	}
	return -1
}

// cartLine prices a line from the price book, falling back to the item as
// it was when added if the catalog no longer lists it.
func (o *Order) cartLine(l line) models.CartLine {
	item := l.item
	if o.prices != nil {
		if current, ok := o.prices.Lookup(item.Name); ok {
			item = current
		}
	}
	return models.CartLine{
		ItemName:   l.item.Name,
		Category:   item.Category,
		Quantity:   l.quantity,
		PriceCents: item.PriceCents(),
	}
}

func (o *Order) recompute() {
	var total int64
	for _, l := range o.lines {
		total += o.cartLine(l).LineTotalCents()
	}
	o.totalCents = total
}
