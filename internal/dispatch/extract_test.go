package dispatch

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shackbot/internal/catalog"
	"shackbot/internal/llm"
	"shackbot/internal/order"
)

func TestParseSegment(t *testing.T) {
	tests := []struct {
		segment  string
		qty      int
		query    string
		explicit bool
	}{
		{"i'll get 2 shackburgers", 2, "shackburgers", true},
		{"a vanilla shake please", 1, "vanilla shake", true},
		{"three fries", 3, "fries", true},
		{"can i have the smokeshack", 1, "smokeshack", false},
		{"give me", 1, "", false},
		{"2 topo chico 3", 2, "topo chico 3", true},
		{"i'll get -2 fries", -2, "fries", true},
	}
	for _, tt := range tests {
		qty, query, explicit := parseSegment(tt.segment)
		assert.Equal(t, tt.qty, qty, tt.segment)
		assert.Equal(t, tt.query, query, tt.segment)
		assert.Equal(t, tt.explicit, explicit, tt.segment)
	}
}

func TestScrubKeepsSignedNumbers(t *testing.T) {
	assert.Equal(t, "i'll get -2 fries ", scrub("I'll get -2 fries!"))
	assert.Equal(t, "a smoke shack", scrub("a smoke-shack"))
	assert.Equal(t, "fries   please", scrub("fries -- please"))
}

func TestExtractFromText(t *testing.T) {
	o := New(nil, nil, nil, catalog.DefaultResolver(), nil)
	cat := catalog.Fallback(time.Now())

	lines, ok := o.extractFromText("2 fries, 1 chocolate shake & two more fries", cat)
	require.True(t, ok)
	require.Len(t, lines, 2)
	assert.Equal(t, "Fries", lines[0].Item.Name)
	assert.Equal(t, 4, lines[0].Quantity)
	assert.Equal(t, "Chocolate Shake", lines[1].Item.Name)

	_, ok = o.extractFromText("2 fries and 3 tacos", cat)
	assert.False(t, ok, "an explicit quantity of an unknown item fails the text pass")

	_, ok = o.extractFromText("what do you recommend", cat)
	assert.False(t, ok)

	lines, ok = o.extractFromText("I want 2 burgers", cat)
	require.True(t, ok)
	assert.Equal(t, "ShackBurger", lines[0].Item.Name)
}

func TestDecodeJSONObject(t *testing.T) {
	var v struct {
		IsUpdate bool `json:"is_update"`
	}
	require.NoError(t, decodeJSONObject("Here you go:\n```json\n{\"is_update\": true}\n```", &v))
	assert.True(t, v.IsUpdate)

	err := decodeJSONObject("no json here", &v)
	assert.ErrorIs(t, err, errUnreadable)

	err = decodeJSONObject("{not json}", &v)
	assert.ErrorIs(t, err, errUnreadable)
}

func TestUserMessageNeverLeaksErrorText(t *testing.T) {
	raw := errors.New("dial tcp 10.0.0.7:5432: secret-host refused")
	errs := []error{
		raw,
		&llm.ProviderError{Kind: llm.KindTransient, Attempts: 3, Err: raw},
		&llm.ProviderError{Kind: llm.KindFatal, Attempts: 1, Err: raw},
		&llm.ProviderError{Kind: llm.KindUnknown, Attempts: 1, Err: raw},
		fmt.Errorf("%w: %w", order.ErrStorage, raw),
		order.ErrEmptyOrder,
		order.ErrFinalized,
	}
	for _, err := range errs {
		msg := userMessage(err)
		assert.NotEmpty(t, msg)
		assert.NotContains(t, msg, "secret-host", "%v", err)
		assert.NotContains(t, msg, "5432", "%v", err)
	}

	assert.Equal(t, msgTransient, userMessage(errs[1]))
	assert.Equal(t, msgFatal, userMessage(errs[2]))
	assert.Equal(t, msgUnknown, userMessage(errs[3]))
	assert.Equal(t, msgStorage, userMessage(errs[4]))
}

func TestUserMessageForValidation(t *testing.T) {
	assert.Equal(t, msgNegative, userMessage(&order.ValidationError{Field: "quantity", Value: "-2"}))
	assert.Equal(t, msgBadQuantity, userMessage(&order.ValidationError{Field: "quantity", Value: "0"}))
	assert.Equal(t, "I couldn't find 'Pizza' in your current order.",
		userMessage(&order.ValidationError{Field: "item", Value: "Pizza"}))
}

func TestJoinWords(t *testing.T) {
	assert.Equal(t, "a full menu", joinWords(nil))
	assert.Equal(t, "Fries", joinWords([]string{"Fries"}))
	assert.Equal(t, "Burgers and Fries", joinWords([]string{"Burgers", "Fries"}))
}
