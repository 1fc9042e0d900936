package cart_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/kaybirks-storefront/internal/cart"
)

// recordingPersister counts saves and can be told to fail.
type recordingPersister struct {
	loaded  []cart.Line
	loadErr error
	saveErr error
	saves   int
	last    []cart.Line
}

func (p *recordingPersister) Load(context.Context) ([]cart.Line, error) {
	return p.loaded, p.loadErr
}

func (p *recordingPersister) Save(_ context.Context, lines []cart.Line) error {
	p.saves++
	p.last = lines
	return p.saveErr
}

func open(t *testing.T, ctx context.Context, p cart.Persister) *cart.Store {
	t.Helper()
	s, err := cart.Open(ctx, p)
	require.NoError(t, err)
	return s
}

func snapshot(price int64) cart.ProductSnapshot {
	id := uuid.Must(uuid.NewV4())
	return cart.ProductSnapshot{ID: id, Slug: "p-" + id.String()[:8], Name: "Shoe", Price: decimal.NewFromInt(price)}
}

func independentTotal(lines []cart.Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}

func TestStore_AddItem_MergesSameKey(t *testing.T) {
	ctx := context.Background()
	p := &recordingPersister{}
	s := open(t, ctx, p)
	shoe := snapshot(50)

	for _, qty := range []int{1, 2, 4} {
		require.NoError(t, s.AddItem(ctx, shoe, qty, 42, "Black"))
	}

	lines := s.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 7, lines[0].Quantity)
	assert.Equal(t, 3, p.saves)
	assert.Equal(t, lines, p.last)
}

func TestStore_AddItem_DistinctKeys(t *testing.T) {
	ctx := context.Background()
	s := open(t, ctx, &recordingPersister{})
	shoe := snapshot(50)

	require.NoError(t, s.AddItem(ctx, shoe, 1, 42, "Black"))
	require.NoError(t, s.AddItem(ctx, shoe, 1, 43, "Black"))
	require.NoError(t, s.AddItem(ctx, shoe, 1, 42, "White"))

	assert.Len(t, s.Lines(), 3)
	assert.Equal(t, 3, s.ItemCount())
}

func TestStore_AddItem_RejectsNonPositiveQuantity(t *testing.T) {
	ctx := context.Background()
	p := &recordingPersister{}
	s := open(t, ctx, p)

	for _, qty := range []int{0, -3} {
		require.ErrorIs(t, s.AddItem(ctx, snapshot(10), qty, 42, "Black"), cart.ErrInvalidQuantity)
	}
	assert.True(t, s.IsEmpty())
	assert.Zero(t, p.saves)
}

func TestStore_RemoveThenAdd_NoGhostQuantity(t *testing.T) {
	ctx := context.Background()
	s := open(t, ctx, &recordingPersister{})
	shoe := snapshot(20)

	require.NoError(t, s.AddItem(ctx, shoe, 5, 40, "Red"))
	require.NoError(t, s.RemoveItem(ctx, shoe.ID, 40, "Red"))
	require.NoError(t, s.AddItem(ctx, shoe, 2, 40, "Red"))

	lines := s.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
}

func TestStore_RemoveItem_AbsentIsNoop(t *testing.T) {
	ctx := context.Background()
	s := open(t, ctx, &recordingPersister{})
	shoe := snapshot(20)
	require.NoError(t, s.AddItem(ctx, shoe, 1, 40, "Red"))

	require.NoError(t, s.RemoveItem(ctx, uuid.Must(uuid.NewV4()), 40, "Red"))
	require.NoError(t, s.RemoveItem(ctx, shoe.ID, 41, "Red"))
	assert.Len(t, s.Lines(), 1)
}

func TestStore_UpdateQuantity(t *testing.T) {
	ctx := context.Background()
	shoe := snapshot(30)
	other := snapshot(15)

	t.Run("replaces_exactly", func(t *testing.T) {
		s := open(t, ctx, &recordingPersister{})
		require.NoError(t, s.AddItem(ctx, shoe, 3, 42, "Black"))
		require.NoError(t, s.UpdateQuantity(ctx, shoe.ID, 42, "Black", 1))
		assert.Equal(t, 1, s.Lines()[0].Quantity)
	})

	t.Run("zero_equals_remove", func(t *testing.T) {
		updated := open(t, ctx, &recordingPersister{})
		removed := open(t, ctx, &recordingPersister{})
		for _, s := range []*cart.Store{updated, removed} {
			require.NoError(t, s.AddItem(ctx, shoe, 3, 42, "Black"))
			require.NoError(t, s.AddItem(ctx, other, 1, 38, "Blue"))
		}

		require.NoError(t, updated.UpdateQuantity(ctx, shoe.ID, 42, "Black", 0))
		require.NoError(t, removed.RemoveItem(ctx, shoe.ID, 42, "Black"))

		assert.Equal(t, removed.Lines(), updated.Lines())
	})

	t.Run("negative_removes", func(t *testing.T) {
		s := open(t, ctx, &recordingPersister{})
		require.NoError(t, s.AddItem(ctx, shoe, 3, 42, "Black"))
		require.NoError(t, s.UpdateQuantity(ctx, shoe.ID, 42, "Black", -1))
		assert.True(t, s.IsEmpty())
	})

	t.Run("absent_line_untouched", func(t *testing.T) {
		s := open(t, ctx, &recordingPersister{})
		require.NoError(t, s.UpdateQuantity(ctx, shoe.ID, 42, "Black", 5))
		assert.True(t, s.IsEmpty())
	})
}

func TestStore_TotalsMatchIndependentSum(t *testing.T) {
	ctx := context.Background()
	s := open(t, ctx, &recordingPersister{})
	a := snapshot(60)
	b := cart.ProductSnapshot{ID: uuid.Must(uuid.NewV4()), Name: "Sock", Price: decimal.RequireFromString("4.99")}

	require.NoError(t, s.AddItem(ctx, a, 1, 42, "Black"))
	require.NoError(t, s.AddItem(ctx, b, 3, 40, "White"))
	require.NoError(t, s.UpdateQuantity(ctx, a.ID, 42, "Black", 2))
	require.NoError(t, s.AddItem(ctx, b, 1, 40, "White"))

	want := independentTotal(s.Lines())
	assert.True(t, want.Equal(decimal.RequireFromString("139.96")), want.String())
	for i := 0; i < 3; i++ {
		assert.True(t, s.Total().Equal(want))
	}
	assert.Equal(t, 6, s.ItemCount())

	require.NoError(t, s.Clear(ctx))
	assert.True(t, s.Total().IsZero())
	assert.Zero(t, s.ItemCount())
}

func TestOpen_CorruptCartYieldsEmptyCart(t *testing.T) {
	ctx := context.Background()
	p := &recordingPersister{loadErr: fmt.Errorf("%w: bad json", cart.ErrCorruptCart), loaded: []cart.Line{{Quantity: 9}}}

	s := open(t, ctx, p)
	assert.True(t, s.IsEmpty())
	assert.Zero(t, s.ItemCount())
}

func TestOpen_TransientLoadFailureKeepsStoredCart(t *testing.T) {
	ctx := context.Background()
	shoe := snapshot(50)
	stored := []cart.Line{{Product: shoe, Quantity: 3, Size: 42, Color: "Black"}}
	p := &recordingPersister{loaded: stored, loadErr: errors.New("i/o timeout")}

	s, err := cart.Open(ctx, p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "i/o timeout")
	assert.Nil(t, s)
	assert.Zero(t, p.saves, "nothing is written over the stored cart")

	p.loadErr = nil
	reopened := open(t, ctx, p)
	require.NoError(t, reopened.AddItem(ctx, shoe, 1, 42, "Black"))
	assert.Equal(t, 4, reopened.ItemCount())
}

func TestStore_SaveErrorIsReported(t *testing.T) {
	ctx := context.Background()
	p := &recordingPersister{saveErr: errors.New("disk full")}
	s := open(t, ctx, p)

	err := s.AddItem(ctx, snapshot(10), 1, 42, "Black")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestOpen_RehydratesLines(t *testing.T) {
	ctx := context.Background()
	shoe := snapshot(50)
	p := &recordingPersister{loaded: []cart.Line{{Product: shoe, Quantity: 2, Size: 42, Color: "Black"}}}

	s := open(t, ctx, p)
	require.NoError(t, s.AddItem(ctx, shoe, 1, 42, "Black"))
	assert.Equal(t, 3, s.ItemCount())
	assert.True(t, s.Total().Equal(decimal.NewFromInt(150)))
}
