package order

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shackbot/internal/models"
)

var (
	shackBurger = models.MenuItem{Name: "ShackBurger", Category: "Burgers", Price: 6.99, Calories: 500}
	fries       = models.MenuItem{Name: "Fries", Category: "Fries", Price: 3.99, Calories: 470}
	vanilla     = models.MenuItem{Name: "Vanilla Shake", Category: "Milkshakes", Price: 5.99, Calories: 680}
)

// priceBook is a mutable catalog for tests
type priceBook map[string]models.MenuItem

func (p priceBook) Lookup(name string) (models.MenuItem, bool) {
	item, ok := p[models.Normalize(name)]
	return item, ok
}

func newPriceBook(items ...models.MenuItem) priceBook {
	p := priceBook{}
	for _, item := range items {
		p[item.Key()] = item
	}
	return p
}

type fakeStore struct {
	id    string
	err   error
	saved []Snapshot
}

func (s *fakeStore) SaveOrder(ctx context.Context, snap Snapshot) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.saved = append(s.saved, snap)
	return s.id, nil
}

func sumLines(lines []models.CartLine) int64 {
	var total int64
	for _, l := range lines {
		total += int64(l.Quantity) * l.PriceCents
	}
	return total
}

func TestAddItemMovesEmptyToBuilding(t *testing.T) {
	o := New(newPriceBook(shackBurger))
	assert.Equal(t, StateEmpty, o.State())

	require.NoError(t, o.AddItem(shackBurger, 2))

	assert.Equal(t, StateBuilding, o.State())
	s := o.Summary()
	require.Len(t, s.Lines, 1)
	assert.Equal(t, 2, s.Lines[0].Quantity)
	assert.Equal(t, int64(1398), s.TotalCents)
	assert.Equal(t, "$13.98", s.Total)
	assert.Equal(t, int64(1398), o.TotalCents())
}

func TestAddItemMergesQuantities(t *testing.T) {
	o := New(newPriceBook(shackBurger, fries))
	require.NoError(t, o.AddItem(shackBurger, 1))
	require.NoError(t, o.AddItem(fries, 1))
	require.NoError(t, o.AddItem(models.MenuItem{Name: "shackburger", Price: 6.99}, 2))

	lines := o.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "ShackBurger", lines[0].ItemName)
	assert.Equal(t, 3, lines[0].Quantity)
	assert.Equal(t, "Fries", lines[1].ItemName)
}

func TestAddItemRejectsBadQuantity(t *testing.T) {
	o := New(nil)
	for _, q := range []int{0, -1} {
		err := o.AddItem(shackBurger, q)
		assert.ErrorIs(t, err, ErrValidation)
		var ve *ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "quantity", ve.Field)
	}
	assert.Equal(t, StateEmpty, o.State())
}

func TestUpdateQuantity(t *testing.T) {
	o := New(newPriceBook(shackBurger, fries))
	require.NoError(t, o.AddItem(shackBurger, 1))
	require.NoError(t, o.AddItem(fries, 1))

	require.NoError(t, o.UpdateQuantity("SHACKBURGER", 4))
	assert.Equal(t, int64(4*699+399), o.Summary().TotalCents)

	require.NoError(t, o.UpdateQuantity("shackburger", 0))
	for _, l := range o.Summary().Lines {
		assert.NotEqual(t, "ShackBurger", l.ItemName)
	}
	assert.Equal(t, int64(399), o.TotalCents())

	assert.ErrorIs(t, o.UpdateQuantity("fries", -2), ErrValidation)
	assert.ErrorIs(t, o.UpdateQuantity("hot dog", 2), ErrValidation)
}

func TestUpdateLastLineToZeroEmptiesOrder(t *testing.T) {
	o := New(nil)
	require.NoError(t, o.AddItem(fries, 2))
	require.NoError(t, o.UpdateQuantity("Fries", 0))
	assert.Equal(t, StateEmpty, o.State())
	assert.Zero(t, o.TotalCents())
}

func TestRemoveItemIsIdempotent(t *testing.T) {
	o := New(nil)
	require.NoError(t, o.AddItem(shackBurger, 1))
	require.NoError(t, o.AddItem(fries, 2))

	removed, ok, err := o.RemoveItem("fries")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, removed.Quantity)
	once := o.Summary()

	_, ok, err = o.RemoveItem("fries")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, once, o.Summary())
}

func TestFind(t *testing.T) {
	o := New(nil)
	require.NoError(t, o.AddItem(shackBurger, 1))
	require.NoError(t, o.AddItem(vanilla, 1))

	l, ok := o.Find("Shack Burger")
	require.True(t, ok)
	assert.Equal(t, "ShackBurger", l.ItemName)

	l, ok = o.Find("vanilla")
	require.True(t, ok)
	assert.Equal(t, "Vanilla Shake", l.ItemName)

	_, ok = o.Find("fries")
	assert.False(t, ok)
	_, ok = o.Find("  ")
	assert.False(t, ok)
}

func TestTotalsFollowCurrentPrices(t *testing.T) {
	prices := newPriceBook(shackBurger)
	o := New(prices)
	require.NoError(t, o.AddItem(shackBurger, 2))

	raised := shackBurger
	raised.Price = 7.49
	prices[raised.Key()] = raised

	s := o.Summary()
	assert.Equal(t, int64(1498), s.TotalCents)
	assert.Equal(t, int64(749), s.Lines[0].PriceCents)
}

func TestItemMissingFromCatalogKeepsAddedPrice(t *testing.T) {
	o := New(newPriceBook())
	require.NoError(t, o.AddItem(fries, 3))
	assert.Equal(t, int64(1197), o.Summary().TotalCents)
}

func TestTotalInvariantHoldsAfterEveryMutation(t *testing.T) {
	items := []models.MenuItem{shackBurger, fries, vanilla,
		{Name: "Topo Chico", Category: "Drinks", Price: 3.49},
		{Name: "Bacon Cheeseburger", Category: "Burgers", Price: 11.49},
	}
	prices := newPriceBook(items...)
	o := New(prices)
	rng := rand.New(rand.NewSource(42))

	for step := 0; step < 500; step++ {
		item := items[rng.Intn(len(items))]
		switch rng.Intn(5) {
		case 0, 1:
			_ = o.AddItem(item, rng.Intn(4)+1)
		case 2:
			_ = o.UpdateQuantity(item.Name, rng.Intn(4))
		case 3:
			_, _, _ = o.RemoveItem(item.Name)
		case 4:
			if rng.Intn(10) == 0 {
				o.Clear()
			}
		}

		s := o.Summary()
		require.Equal(t, sumLines(s.Lines), s.TotalCents, "step %d", step)
		require.Equal(t, s.TotalCents, o.TotalCents(), "step %d", step)
		for _, l := range s.Lines {
			require.Positive(t, l.Quantity)
		}
	}
}

func TestFinalizeEmptyOrderIsRejected(t *testing.T) {
	store := &fakeStore{id: "abc"}
	o := New(nil)

	_, err := o.Finalize(context.Background(), store, "s1")
	assert.ErrorIs(t, err, ErrEmptyOrder)
	assert.Empty(t, store.saved)
	assert.Equal(t, StateEmpty, o.State())
}

func TestFinalizeSavesSnapshot(t *testing.T) {
	store := &fakeStore{id: "order-1"}
	o := New(newPriceBook(shackBurger, fries))
	require.NoError(t, o.AddItem(shackBurger, 2))
	require.NoError(t, o.AddItem(fries, 1))

	id, err := o.Finalize(context.Background(), store, "session-9")
	require.NoError(t, err)
	assert.Equal(t, "order-1", id)
	assert.Equal(t, "order-1", o.ID())
	assert.Equal(t, StateFinalized, o.State())

	require.Len(t, store.saved, 1)
	snap := store.saved[0]
	assert.Equal(t, "session-9", snap.SessionID)
	assert.Equal(t, int64(2*699+399), snap.TotalCents)
	assert.Len(t, snap.Lines, 2)

	// finalized is terminal
	assert.ErrorIs(t, o.AddItem(fries, 1), ErrFinalized)
	assert.ErrorIs(t, o.UpdateQuantity("fries", 2), ErrFinalized)
	_, _, err = o.RemoveItem("fries")
	assert.ErrorIs(t, err, ErrFinalized)
	_, err = o.Finalize(context.Background(), store, "session-9")
	assert.ErrorIs(t, err, ErrFinalized)
	o.Clear()
	assert.Equal(t, StateFinalized, o.State())
}

func TestFinalizeStorageErrorPreservesCart(t *testing.T) {
	store := &fakeStore{err: errors.New("connection reset by peer")}
	o := New(nil)
	require.NoError(t, o.AddItem(shackBurger, 2))
	before := o.Summary()

	_, err := o.Finalize(context.Background(), store, "s1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStorage)
	assert.Equal(t, StateBuilding, o.State())
	assert.Equal(t, before, o.Summary())

	store.err = nil
	store.id = "retry-ok"
	id, err := o.Finalize(context.Background(), store, "s1")
	require.NoError(t, err)
	assert.Equal(t, "retry-ok", id)
}

func TestFinalizeRejectsMissingID(t *testing.T) {
	o := New(nil)
	require.NoError(t, o.AddItem(fries, 1))
	_, err := o.Finalize(context.Background(), &fakeStore{}, "s1")
	assert.ErrorIs(t, err, ErrStorage)
	assert.Equal(t, StateBuilding, o.State())
}

func TestClearReturnsToEmpty(t *testing.T) {
	o := New(nil)
	require.NoError(t, o.AddItem(fries, 1))
	o.Clear()
	assert.Equal(t, StateEmpty, o.State())
	assert.True(t, o.Summary().IsEmpty())
	assert.Equal(t, "$0.00", o.Summary().Total)
}
