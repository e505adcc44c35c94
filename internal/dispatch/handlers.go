package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"shackbot/internal/catalog"
	"shackbot/internal/models"
	"shackbot/internal/order"
)

const officialLinks = `For general information that's not in the menu:
- Store hours, locations or finding a nearby Shack: https://www.shakeshack.com/locations/
- Allergens or nutrition beyond calories: https://www.shakeshack.com/allergies-nutrition/
- Catering or large orders: https://www.shakeshack.com/catering/
- Customer service or contact information: https://www.shakeshack.com/contact-us/
- App or rewards program: https://www.shakeshack.com/app/`

var questionWords = map[string]bool{
	"what": true, "what's": true, "whats": true, "how": true, "much": true, "is": true,
	"are": true, "does": true, "do": true, "cost": true, "costs": true, "price": true,
	"prices": true, "in": true, "on": true, "about": true, "tell": true, "show": true,
	"many": true, "calories": true, "calorie": true, "a": true, "an": true, "your": true,
	"there": true, "which": true, "kind": true, "kinds": true, "sell": true, "serve": true,
	"it": true, "that": true, "this": true, "menu": true, "list": true, "see": true,
}

var categoryAliases = map[string]string{
	"shake":  string(models.MenuCategoryMilkshakes),
	"shakes": string(models.MenuCategoryMilkshakes),
	"drink":  string(models.MenuCategoryDrinks),
	"soda":   string(models.MenuCategoryDrinks),
}

// mention is what a question refers to: a whole category or one item
type mention struct {
	category string
	match    *catalog.Match
	miss     *catalog.NoMatchError
}

// findMention looks for a category or menu item named in text
func (o *Orchestrator) findMention(text string, cat models.Catalog) mention {
	query := questionQuery(text)
	if query == "" {
		return mention{miss: &catalog.NoMatchError{}}
	}
	if category := categoryNamed(query, cat); category != "" {
		return mention{category: category}
	}
	match, err := o.resolveLoose(query, cat)
	if err != nil {
		var nm *catalog.NoMatchError
		if errors.As(err, &nm) {
			return mention{miss: nm}
		}
		return mention{miss: &catalog.NoMatchError{Query: query}}
	}
	return mention{match: &match}
}

func questionQuery(text string) string {
	clean := scrub(text)
	var words []string
	for _, w := range strings.Fields(clean) {
		if fillerWords[w] || questionWords[w] {
			continue
		}
		words = append(words, w)
	}
	return strings.Join(words, " ")
}

func categoryNamed(query string, cat models.Catalog) string {
	if c, ok := categoryAliases[query]; ok && len(cat.ByCategory(c)) > 0 {
		return c
	}
	for _, c := range cat.Categories() {
		lower := strings.ToLower(c)
		if query == lower || query == strings.TrimSuffix(lower, "s") {
			return c
		}
	}
	return ""
}

func categoryReply(category string, cat models.Catalog) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**\n\n", category)
	for _, item := range cat.ByCategory(category) {
		fmt.Fprintf(&b, "- %s: %s (%d calories)\n", item.Name, models.FormatCents(item.PriceCents()), item.Calories)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (o *Orchestrator) greeting(_ context.Context, t *turn) string {
	return greetingReply(t.catalog)
}

func (o *Orchestrator) menuInquiry(_ context.Context, t *turn) string {
	m := o.findMention(t.text, t.catalog)
	switch {
	case m.category != "":
		return categoryReply(m.category, t.catalog)
	case m.match != nil:
		item := m.match.Item
		return fmt.Sprintf("%s is on our %s menu. %s", item.Name, item.Category, catalog.DescribeItem(item))
	default:
		return catalog.FormatMenu(t.catalog)
	}
}

func (o *Orchestrator) priceInquiry(ctx context.Context, t *turn) string {
	m := o.findMention(t.text, t.catalog)
	switch {
	case m.category != "":
		return categoryReply(m.category, t.catalog)
	case m.match != nil:
		return catalog.DescribeItem(m.match.Item)
	}

	name, err := o.extractItemWithModel(ctx,
		"Extract the Shake Shack menu item the customer is asking about.\nMenu items: "+menuNames(t.catalog), t.text)
	if err != nil {
		if m.miss != nil && m.miss.Candidate != nil {
			return clarify(m.miss)
		}
		return o.fail("price_inquiry", err)
	}
	match, err := o.resolveLoose(name, t.catalog)
	if err != nil {
		return o.fail("price_inquiry", err)
	}
	return catalog.DescribeItem(match.Item)
}

func (o *Orchestrator) placeOrder(ctx context.Context, t *turn) string {
	lines, ok := o.extractFromText(t.text, t.catalog)
	if !ok {
		var err error
		lines, err = o.extractOrderWithModel(ctx, t.text, t.catalog)
		if err != nil {
			o.observer.ObserveCartMutation("add", "rejected")
			return o.fail("place_order", err)
		}
	}
	if len(lines) == 0 {
		o.observer.ObserveCartMutation("add", "rejected")
		return msgNoItems
	}

	for _, l := range lines {
		if l.Quantity <= 0 {
			o.observer.ObserveCartMutation("add", "rejected")
			return o.fail("place_order", &order.ValidationError{
				Field: "quantity", Value: strconv.Itoa(l.Quantity), Reason: "must be a positive integer",
			})
		}
	}

	cart := t.session.Order()
	for i, l := range lines {
		if err := cart.AddItem(l.Item, l.Quantity); err != nil {
			// only reachable on a finalized order, which sessions never keep
			o.logger.Error("add item failed after validation",
				zap.Int("line", i), zap.String("item", l.Item.Name), zap.Error(err))
			o.observer.ObserveCartMutation("add", "rejected")
			return o.fail("place_order", err)
		}
	}
	o.observer.ObserveCartMutation("add", "ok")
	return addedReply(lines, cart.TotalCents())
}

func (o *Orchestrator) updateQuantity(ctx context.Context, t *turn) string {
	cart := t.session.Order()
	current := cart.Lines()
	if len(current) == 0 {
		return msgEmptyOrder
	}

	name, qty, ok := o.updateFromText(t.text, current)
	if !ok {
		upd, err := o.extractUpdateWithModel(ctx, t.text, current)
		if err != nil {
			o.observer.ObserveCartMutation("update", "rejected")
			return o.fail("update_quantity", err)
		}
		if !upd.IsUpdate || upd.Quantity == nil {
			return msgNotAnUpdate
		}
		qty = *upd.Quantity
		switch {
		case upd.ItemName != nil && strings.TrimSpace(*upd.ItemName) != "":
			name = *upd.ItemName
		case len(current) == 1:
			name = current[0].ItemName
		default:
			return msgWhichItem
		}
	}

	line, found := o.findLine(cart, name, t.catalog)
	if !found {
		o.observer.ObserveCartMutation("update", "rejected")
		return o.fail("update_quantity", &order.ValidationError{Field: "item", Value: name, Reason: "not in the order"})
	}
	if err := cart.UpdateQuantity(line.ItemName, qty); err != nil {
		o.observer.ObserveCartMutation("update", "rejected")
		return o.fail("update_quantity", err)
	}
	o.observer.ObserveCartMutation("update", "ok")

	if qty == 0 {
		return removedReply(line, cart.TotalCents())
	}
	line.Quantity = qty
	return updatedReply(line, cart.TotalCents())
}

// updateFromText handles "make it 3 shackburgers" style requests with a
// single number and a single cart line named (or only one line in the cart).
func (o *Orchestrator) updateFromText(text string, current []models.CartLine) (name string, qty int, ok bool) {
	clean := scrub(text)
	numbers := 0
	for _, w := range strings.Fields(clean) {
		if n, err := strconv.Atoi(w); err == nil {
			qty = n
			numbers++
			continue
		}
		if n, isNumber := numberWords[w]; isNumber && w != "a" && w != "an" {
			qty = n
			numbers++
		}
	}
	if numbers != 1 {
		return "", 0, false
	}

	named := o.linesNamed(text, current)
	switch {
	case len(named) == 1:
		return named[0].ItemName, qty, true
	case len(named) == 0 && len(current) == 1:
		return current[0].ItemName, qty, true
	default:
		return "", 0, false
	}
}

// linesNamed returns the cart lines text refers to by name. When one named
// line contains the names of all the others ("Bacon Cheeseburger" and
// "Cheeseburger"), only that one is returned.
func (o *Orchestrator) linesNamed(text string, current []models.CartLine) []models.CartLine {
	var named []models.CartLine
	for _, l := range current {
		if o.resolver.Score(text, models.MenuItem{Name: l.ItemName}) >= o.resolver.Threshold() {
			named = append(named, l)
		}
	}
	if len(named) < 2 {
		return named
	}
	for _, candidate := range named {
		key := models.Normalize(candidate.ItemName)
		covers := true
		for _, other := range named {
			if !strings.Contains(key, models.Normalize(other.ItemName)) {
				covers = false
				break
			}
		}
		if covers {
			return []models.CartLine{candidate}
		}
	}
	return named
}

// findLine matches a loosely written name to a cart line, going through
// the menu when the cart alone does not recognise it.
func (o *Orchestrator) findLine(cart *order.Order, name string, cat models.Catalog) (models.CartLine, bool) {
	if line, ok := cart.Find(name); ok {
		return line, true
	}
	match, err := o.resolveLoose(name, cat)
	if err != nil {
		return models.CartLine{}, false
	}
	return cart.Find(match.Item.Name)
}

func (o *Orchestrator) removeItem(ctx context.Context, t *turn) string {
	cart := t.session.Order()
	current := cart.Lines()
	if len(current) == 0 {
		return msgEmptyOrder
	}

	var name string
	named := o.linesNamed(t.text, current)
	switch {
	case len(named) == 1:
		name = named[0].ItemName
	case len(named) == 0 && len(current) == 1 && refersToIt(t.text):
		name = current[0].ItemName
	default:
		extracted, err := o.extractItemWithModel(ctx, fmt.Sprintf(
			"Extract the name of the item the customer wants to remove from their order.\nCurrent order items: %s\nIf no item is named, return None.",
			lineNames(current)), t.text)
		if err != nil {
			o.observer.ObserveCartMutation("remove", "rejected")
			return o.fail("remove_item", err)
		}
		if extracted == "" || strings.EqualFold(extracted, "none") {
			return msgNoRemoval
		}
		name = extracted
	}

	line, found := o.findLine(cart, name, t.catalog)
	if !found {
		o.observer.ObserveCartMutation("remove", "noop")
		return fmt.Sprintf("I couldn't find '%s' in your current order.", name)
	}
	removed, ok, err := cart.RemoveItem(line.ItemName)
	if err != nil {
		o.observer.ObserveCartMutation("remove", "rejected")
		return o.fail("remove_item", err)
	}
	if !ok {
		o.observer.ObserveCartMutation("remove", "noop")
		return fmt.Sprintf("I couldn't find '%s' in your current order.", name)
	}
	o.observer.ObserveCartMutation("remove", "ok")
	return removedReply(removed, cart.TotalCents())
}

func refersToIt(text string) bool {
	for _, w := range strings.Fields(scrub(text)) {
		if w == "it" || w == "that" || w == "this" {
			return true
		}
	}
	return false
}

func (o *Orchestrator) checkout(ctx context.Context, t *turn) string {
	s := t.session
	total := s.Order().Summary().Total

	id, err := s.Order().Finalize(ctx, o.store, s.ID)
	if err != nil {
		result := "error"
		switch {
		case errors.Is(err, order.ErrEmptyOrder):
			result = "empty"
		case errors.Is(err, order.ErrStorage):
			result = "storage_error"
		}
		o.observer.ObserveCheckout(result)
		return o.fail("checkout", err)
	}

	o.observer.ObserveCheckout("ok")
	o.logger.Info("order placed", zap.String("session_id", s.ID), zap.String("order_id", id))
	s.ResetOrder()
	return checkoutReply(id, total)
}

func (o *Orchestrator) clearOrder(_ context.Context, t *turn) string {
	t.session.Order().Clear()
	o.observer.ObserveCartMutation("clear", "ok")
	return msgCleared
}

func (o *Orchestrator) general(ctx context.Context, t *turn) string {
	summary := t.session.Order().Summary()
	prompt := fmt.Sprintf(`You are a helpful and knowledgeable customer service agent for Shake Shack. You answer questions about Shake Shack's menu, locations, ordering process and general information about Shake Shack. If the user asks about anything not related to Shake Shack, politely redirect them.

Current User Order: %s
Total Price: %s

When answering questions about menu items, prices or nutritional information, use ONLY the following menu information:

%s
Do not make up prices or nutritional information. If the user asks about an item not listed above, tell them you don't have information about it.

%s

Be friendly and helpful. If you don't know something, point to the official Shake Shack website rather than guessing.

Customer: %s`, orderLineText(summary), summary.Total, catalog.MenuInfo(t.catalog), officialLinks, t.text)

	out, err := o.guard.Invoke(ctx, prompt)
	if err == nil {
		return strings.TrimSpace(out.Text)
	}

	o.logger.Warn("general answer fell back to local reply", zap.Error(err))
	lower := strings.ToLower(t.text)
	switch {
	case strings.Contains(lower, "order") || strings.Contains(lower, "cart"):
		return formatSummary(summary)
	case strings.Contains(lower, "menu"):
		return catalog.FormatMenu(t.catalog)
	default:
		return userMessage(err)
	}
}

func orderLineText(s order.Summary) string {
	if s.IsEmpty() {
		return "No items"
	}
	parts := make([]string, 0, len(s.Lines))
	for _, l := range s.Lines {
		parts = append(parts, fmt.Sprintf("%dx %s", l.Quantity, l.ItemName))
	}
	return strings.Join(parts, ", ")
}
