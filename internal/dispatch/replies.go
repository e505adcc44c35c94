package dispatch

import (
	"errors"
	"fmt"
	"strings"

	"shackbot/internal/catalog"
	"shackbot/internal/llm"
	"shackbot/internal/models"
	"shackbot/internal/order"
)

// User-facing replies. None of them carry raw error text.
const (
	msgTransient     = "I'm having trouble connecting to the language model service right now. Please try again in a moment."
	msgFatal         = "I can't reach the language model service because of a configuration problem. Please provide your OpenAI API key or check the service settings, then try again."
	msgUnknown       = "Sorry, I'm having trouble processing your request. Please try again."
	msgEmptyCheckout = "Cannot finalize an empty order. Add something from the menu before checking out."
	msgStorage       = "Sorry, there was a problem saving your order. Your cart is still here, so please try checking out again."
	msgFinalized     = "That order has already been placed. Start a new order any time."
	msgCleared       = "Your order has been cleared."
	msgEmptyOrder    = "Your order is currently empty."
	msgNoItems       = "I couldn't identify the menu items you want to order. Could you please try again with the exact item name from our menu?"
	msgWhichItem     = "I'm not sure which item you want to change. Please specify the item name."
	msgNotAnUpdate   = "I'm not sure what you'd like to change. Try something like \"make it 2 ShackBurgers\"."
	msgBadQuantity   = "Quantities must be whole numbers greater than zero."
	msgNegative      = "Quantities can't be negative. Use 0 or ask me to remove the item instead."
	msgEmptyMessage  = "Please type a message so I can help with your order."
	msgNoRemoval     = "I'm not sure which item you'd like to remove. Please specify the item name."
)

// userMessage maps an error to a reply that is safe to show a customer
func userMessage(err error) string {
	var nm *catalog.NoMatchError
	var ve *order.ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &nm):
		return clarify(nm)
	case errors.As(err, &ve):
		return validationMessage(ve)
	case errors.Is(err, order.ErrEmptyOrder):
		return msgEmptyCheckout
	case errors.Is(err, order.ErrStorage):
		return msgStorage
	case errors.Is(err, order.ErrFinalized):
		return msgFinalized
	case errors.Is(err, errUnreadable):
		return msgNoItems
	case errors.Is(err, llm.ErrFatalProvider):
		return msgFatal
	case errors.Is(err, llm.ErrTransientProvider):
		return msgTransient
	default:
		return msgUnknown
	}
}

// clarify asks the user to pick a menu item, offering the closest candidate
func clarify(nm *catalog.NoMatchError) string {
	query := strings.TrimSpace(nm.Query)
	if nm.Candidate != nil {
		return fmt.Sprintf("I couldn't find %q on the menu. Did you mean the %s?", query, nm.Candidate.Name)
	}
	if query == "" {
		return "Which menu item did you mean? You can ask me to show the menu."
	}
	return fmt.Sprintf("I couldn't find %q on the menu. Could you use the item name as it appears on our menu?", query)
}

func validationMessage(ve *order.ValidationError) string {
	switch ve.Field {
	case "quantity":
		if strings.HasPrefix(ve.Value, "-") {
			return msgNegative
		}
		return msgBadQuantity
	case "item":
		return fmt.Sprintf("I couldn't find '%s' in your current order.", ve.Value)
	default:
		return msgUnknown
	}
}

// formatSummary renders the cart as a short markdown list
func formatSummary(s order.Summary) string {
	if s.IsEmpty() {
		return msgEmptyOrder
	}
	var b strings.Builder
	b.WriteString("**Your current order:**\n")
	for _, l := range s.Lines {
		fmt.Fprintf(&b, "- %dx %s: %s\n", l.Quantity, l.ItemName, models.FormatCents(l.LineTotalCents()))
	}
	fmt.Fprintf(&b, "\n**Total: %s**", s.Total)
	return b.String()
}

func addedReply(added []orderLine, total int64) string {
	var b strings.Builder
	b.WriteString("**Order Added Successfully**\n\nI've added the following to your order:\n\n")
	for _, l := range added {
		fmt.Fprintf(&b, "- %dx %s: %s\n", l.Quantity, l.Item.Name, models.FormatCents(int64(l.Quantity)*l.Item.PriceCents()))
	}
	fmt.Fprintf(&b, "\n**Your current total is %s**", models.FormatCents(total))
	return b.String()
}

func updatedReply(line models.CartLine, total int64) string {
	return fmt.Sprintf("**I've updated your order:**\n- Now %dx %s: %s\n\n**Your total is now %s**",
		line.Quantity, line.ItemName, models.FormatCents(line.LineTotalCents()), models.FormatCents(total))
}

func removedReply(line models.CartLine, total int64) string {
	return fmt.Sprintf("**Removed from your order:**\n- %dx %s\n\n**Your total is now %s**",
		line.Quantity, line.ItemName, models.FormatCents(total))
}

func checkoutReply(orderID string, total string) string {
	return fmt.Sprintf("Thank you for your order! Your order ID is: %s\n\nYour total was %s. We'll have it ready soon.", orderID, total)
}

func greetingReply(cat models.Catalog) string {
	return fmt.Sprintf("Hi, welcome to Shake Shack! I can walk you through the menu, check prices and build your order. "+
		"Today we have %s. What can I get started for you?", joinWords(cat.Categories()))
}

func joinWords(words []string) string {
	switch len(words) {
	case 0:
		return "a full menu"
	case 1:
		return words[0]
	default:
		return strings.Join(words[:len(words)-1], ", ") + " and " + words[len(words)-1]
	}
}
