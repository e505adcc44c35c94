package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"shackbot/internal/catalog"
	"shackbot/internal/models"
)

// errUnreadable marks a model answer that could not be parsed
var errUnreadable = errors.New("unreadable extraction")

// orderLine is an extracted, resolved item and quantity
type orderLine struct {
	Item     models.MenuItem
	Quantity int
}

var (
	segmentSplit = regexp.MustCompile(`\s*(?:,|;|&|\band\b|\bplus\b|\balso\b|\bwith\b)\s*`)
	nonWord      = regexp.MustCompile(`[^a-z0-9',;&\s-]+`)
	strayHyphen  = regexp.MustCompile(`-+(\D|$)`)
)

// scrub lowercases text and drops punctuation. A hyphen survives only in
// front of a digit, so "-2" keeps its sign while "smoke-shack" splits.
func scrub(text string) string {
	clean := nonWord.ReplaceAllString(strings.ToLower(text), " ")
	return strayHyphen.ReplaceAllString(clean, " $1")
}

var fillerWords = map[string]bool{
	"i": true, "i'd": true, "id": true, "i'll": true, "ill": true, "i'm": true, "im": true,
	"we": true, "we'd": true, "we'll": true, "would": true, "like": true, "want": true,
	"wanna": true, "get": true, "have": true, "take": true, "order": true, "add": true,
	"me": true, "us": true, "give": true, "gimme": true, "can": true, "could": true,
	"please": true, "to": true, "some": true, "just": true, "the": true, "let": true,
	"let's": true, "lets": true, "need": true, "for": true, "my": true, "of": true,
	"more": true, "another": true, "thanks": true, "thank": true, "you": true,
}

var numberWords = map[string]int{
	"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11,
	"twelve": 12, "couple": 2, "dozen": 12,
}

// extractFromText reads "<quantity> <item>" phrases without calling the
// model. ok is false when nothing was found, or when a phrase with an
// explicit quantity named something that is not on the menu.
func (o *Orchestrator) extractFromText(text string, cat models.Catalog) (lines []orderLine, ok bool) {
	clean := scrub(text)

	for _, segment := range segmentSplit.Split(clean, -1) {
		qty, query, explicit := parseSegment(segment)
		if query == "" {
			continue
		}
		match, err := o.resolveLoose(query, cat)
		if err != nil {
			if explicit {
				return nil, false
			}
			continue
		}
		lines = mergeLine(lines, orderLine{Item: match.Item, Quantity: qty})
	}
	return lines, len(lines) > 0
}

// parseSegment strips filler words and pulls out a leading quantity
func parseSegment(segment string) (qty int, query string, explicit bool) {
	qty = 1
	var rest []string
	for _, word := range strings.Fields(segment) {
		if fillerWords[word] {
			continue
		}
		if !explicit {
			if n, err := strconv.Atoi(word); err == nil {
				qty, explicit = n, true
				continue
			}
			if n, isNumber := numberWords[word]; isNumber {
				qty, explicit = n, true
				continue
			}
		}
		rest = append(rest, word)
	}
	return qty, strings.Join(rest, " "), explicit
}

// resolveLoose resolves query, retrying once with plural endings removed
func (o *Orchestrator) resolveLoose(query string, cat models.Catalog) (catalog.Match, error) {
	match, err := o.resolver.Resolve(query, cat)
	if err == nil {
		return match, nil
	}
	words := strings.Fields(query)
	for i, w := range words {
		if len(w) > 3 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") {
			words[i] = strings.TrimSuffix(w, "s")
		}
	}
	if singular := strings.Join(words, " "); singular != query {
		if m, err2 := o.resolver.Resolve(singular, cat); err2 == nil {
			return m, nil
		}
	}
	return catalog.Match{}, err
}

// mergeLine folds l into a line for the same item. Non-positive quantities
// are kept apart so validation still sees them.
func mergeLine(lines []orderLine, l orderLine) []orderLine {
	for i := range lines {
		if lines[i].Item.Key() == l.Item.Key() && lines[i].Quantity > 0 && l.Quantity > 0 {
			lines[i].Quantity += l.Quantity
			return lines
		}
	}
	return append(lines, l)
}

// extractOrderWithModel asks the model for {"items":[{"name","quantity"}]}
// and resolves every name. Nothing is returned unless every item resolves.
func (o *Orchestrator) extractOrderWithModel(ctx context.Context, text string, cat models.Catalog) ([]orderLine, error) {
	prompt := fmt.Sprintf(`You are a specialized parser for Shake Shack orders.
Extract ALL menu items with their quantities from the customer's message.

Menu items: %s

Format your response as a JSON object with this EXACT structure:
{"items": [{"name": "ShackBurger", "quantity": 2}, {"name": "Fries", "quantity": 1}]}

Match menu items EXACTLY as they appear on the menu. If no quantity is given use 1.
Only include the JSON object in your response, nothing else.

Message: %s`, menuNames(cat), text)

	out, err := o.guard.Invoke(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Items []struct {
			Name     string `json:"name"`
			Quantity *int   `json:"quantity"`
		} `json:"items"`
	}
	if err := decodeJSONObject(out.Text, &parsed); err != nil {
		return nil, err
	}

	var lines []orderLine
	for _, it := range parsed.Items {
		if strings.TrimSpace(it.Name) == "" {
			continue
		}
		qty := 1
		if it.Quantity != nil {
			qty = *it.Quantity
		}
		match, err := o.resolveLoose(it.Name, cat)
		if err != nil {
			return nil, err
		}
		lines = mergeLine(lines, orderLine{Item: match.Item, Quantity: qty})
	}
	return lines, nil
}

// quantityUpdate is the model's reading of an update request
type quantityUpdate struct {
	IsUpdate bool    `json:"is_update"`
	ItemName *string `json:"item_name"`
	Quantity *int    `json:"quantity"`
}

func (o *Orchestrator) extractUpdateWithModel(ctx context.Context, text string, current []models.CartLine) (quantityUpdate, error) {
	prompt := fmt.Sprintf(`Determine if the customer is trying to update the quantity of an item in their order.

Current order items: %s

If the customer is updating a quantity, extract the item name and the new quantity and return:
{"is_update": true, "item_name": "ItemName", "quantity": 2}
If the item is not named, use null for item_name.

If it is not a quantity update, return:
{"is_update": false, "item_name": null, "quantity": null}

Only include the JSON object in your response, nothing else.

Message: %s`, lineNames(current), text)

	out, err := o.guard.Invoke(ctx, prompt)
	if err != nil {
		return quantityUpdate{}, err
	}
	var upd quantityUpdate
	if err := decodeJSONObject(out.Text, &upd); err != nil {
		return quantityUpdate{}, err
	}
	return upd, nil
}

// extractItemWithModel asks for a single item name as plain text
func (o *Orchestrator) extractItemWithModel(ctx context.Context, instruction, text string) (string, error) {
	prompt := fmt.Sprintf("%s\nReturn ONLY the item name, nothing else.\n\nMessage: %s", instruction, text)
	out, err := o.guard.Invoke(ctx, prompt)
	if err != nil {
		return "", err
	}
	name := strings.Trim(strings.TrimSpace(out.Text), "\"'`.")
	if idx := strings.IndexByte(name, '\n'); idx >= 0 {
		name = strings.TrimSpace(name[:idx])
	}
	return name, nil
}

// decodeJSONObject reads the first JSON object in s, ignoring code fences
// and any chatter around it.
func decodeJSONObject(s string, v interface{}) error {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return fmt.Errorf("%w: no JSON object in %q", errUnreadable, s)
	}
	if err := json.Unmarshal([]byte(s[start:end+1]), v); err != nil {
		return fmt.Errorf("%w: %w", errUnreadable, err)
	}
	return nil
}

func menuNames(cat models.Catalog) string {
	names := make([]string, 0, cat.Len())
	for _, item := range cat.Items {
		names = append(names, item.Name)
	}
	return strings.Join(names, ", ")
}

func lineNames(lines []models.CartLine) string {
	if len(lines) == 0 {
		return "None"
	}
	names := make([]string, 0, len(lines))
	for _, l := range lines {
		names = append(names, l.ItemName)
	}
	return strings.Join(names, ", ")
}
