package intent

import (
	"strings"
)

// Intent is the purpose of a user message. The set is closed.
type Intent string

const (
	Greeting       Intent = "greeting"
	MenuInquiry    Intent = "menu_inquiry"
	PriceInquiry   Intent = "price_inquiry"
	PlaceOrder     Intent = "place_order"
	UpdateQuantity Intent = "update_quantity"
	RemoveItem     Intent = "remove_item"
	Checkout       Intent = "checkout"
	ClearOrder     Intent = "clear_order"
	General        Intent = "general"
)

var all = []Intent{
	Greeting,
	MenuInquiry,
	PriceInquiry,
	PlaceOrder,
	UpdateQuantity,
	RemoveItem,
	Checkout,
	ClearOrder,
	General,
}

// Labels the model tends to produce for the same intents
var aliases = map[string]Intent{
	"order_placement":  PlaceOrder,
	"order":            PlaceOrder,
	"add_item":         PlaceOrder,
	"quantity_update":  UpdateQuantity,
	"update_order":     UpdateQuantity,
	"remove":           RemoveItem,
	"general_question": General,
	"cart_inquiry":     General,
	"menu":             MenuInquiry,
	"price":            PriceInquiry,
	"clear":            ClearOrder,
	"greet":            Greeting,
}

// All returns every intent in a stable order
func All() []Intent {
	out := make([]Intent, len(all))
	copy(out, all)
	return out
}

// Valid reports whether i is one of the closed set
func (i Intent) Valid() bool {
	for _, v := range all {
		if v == i {
			return true
		}
	}
	return false
}

// Mutates reports whether handling i may change the cart
func (i Intent) Mutates() bool {
	switch i {
	case PlaceOrder, UpdateQuantity, RemoveItem, Checkout, ClearOrder:
		return true
	}
	return false
}

func (i Intent) String() string {
	return string(i)
}

// Parse maps a model answer to an Intent. Anything outside the closed set,
// including an empty answer, is General.
func Parse(label string) Intent {
	s := strings.ToLower(strings.TrimSpace(label))
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	s = strings.TrimPrefix(s, "intent:")
	s = strings.Trim(s, " \t\"'`.*")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.Join(strings.Fields(s), "_")

	if in := Intent(s); in.Valid() {
		return in
	}
	if in, ok := aliases[s]; ok {
		return in
	}
	return General
}
