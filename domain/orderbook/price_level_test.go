package orderbook

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertVolume(t *testing.T, lvl *Level, want string) {
	t.Helper()
	assert.Truef(t, lvl.Volume().Equal(dec(want)), "volume = %s, want %s", lvl.Volume(), want)
}

func TestEmptyLevel(t *testing.T) {
	lvl := NewLevel()
	assert.Zero(t, lvl.OrderCount())
	assert.True(t, lvl.IsEmpty())
	assertVolume(t, lvl, "0")
	assert.Nil(t, lvl.Head())
	assert.Empty(t, lvl.Orders())
}

func TestZeroValueLevelIsUsable(t *testing.T) {
	var lvl Level
	h := lvl.Add(mustOrder(t, "10", "3", Sell, ""))
	assert.NotZero(t, h)
	assertVolume(t, &lvl, "3")
}

func TestAdd(t *testing.T) {
	lvl := NewLevel()
	lvl.Add(mustOrder(t, "10", "100", Buy, "1"))

	assert.Equal(t, 1, lvl.OrderCount())
	assertVolume(t, lvl, "100")
	assert.True(t, lvl.Price().Equal(dec("10")))
	assert.Equal(t, Buy, lvl.Side())
}

func TestAddKeepsTimePriority(t *testing.T) {
	a := mustOrder(t, "10", "1", Buy, "a")
	b := mustOrder(t, "10", "2", Buy, "b")
	c := mustOrder(t, "10", "3", Buy, "c")
	lvl := NewLevel(a, b)
	lvl.Add(c)

	assert.Equal(t, []*Order{a, b, c}, lvl.Orders())
	assert.Same(t, a, lvl.Head())
	assert.Same(t, b, a.Next())
	assert.Same(t, a, b.Prev())
	assertVolume(t, lvl, "6")
}

func TestAddIssuesDistinctHandles(t *testing.T) {
	lvl := NewLevel()
	h1 := lvl.Add(mustOrder(t, "10", "1", Buy, ""))
	h2 := lvl.Add(mustOrder(t, "10", "1", Buy, ""))
	assert.NotEqual(t, h1, h2)
	assert.NotSame(t, lvl.At(h1), lvl.At(h2))
}

func TestAddRestingOrderPanics(t *testing.T) {
	o := mustOrder(t, "10", "1", Buy, "1")
	lvl := NewLevel(o)
	assert.Panics(t, func() { lvl.Add(o) })
	assert.Equal(t, 1, lvl.OrderCount())
}

func TestUpdate(t *testing.T) {
	o := mustOrder(t, "10", "100", Buy, "")
	lvl := NewLevel(o)
	assertVolume(t, lvl, "100")

	require.NoError(t, o.UpdateVolume(dec("50")))
	require.NoError(t, lvl.Update(o))
	assertVolume(t, lvl, "50")
	assert.Equal(t, 1, lvl.OrderCount())
}

func TestUpdateByID(t *testing.T) {
	first := mustOrder(t, "10", "100", Buy, "1")
	second := mustOrder(t, "10", "40", Buy, "2")
	lvl := NewLevel(first, second)

	require.NoError(t, lvl.Update(mustOrder(t, "10", "70", Buy, "1")))

	assertVolume(t, lvl, "110")
	assert.True(t, first.Volume.Equal(dec("70")))
	assert.Equal(t, []*Order{first, second}, lvl.Orders(), "update keeps queue position")
}

func TestUpdateDeltaIsExact(t *testing.T) {
	lvl := NewLevel(
		mustOrder(t, "1.5", "0.3", Sell, "x"),
		mustOrder(t, "1.5", "0.7", Sell, "y"),
	)
	before := lvl.Volume()

	require.NoError(t, lvl.Update(mustOrder(t, "1.5", "1.1", Sell, "x")))

	assert.True(t, lvl.Volume().Sub(before).Equal(dec("0.8")))
	assert.Equal(t, 2, lvl.OrderCount())
}

func TestUpdateToZeroKeepsOrder(t *testing.T) {
	lvl := NewLevel(mustOrder(t, "10", "5", Buy, "1"))

	require.NoError(t, lvl.Update(mustOrder(t, "10", "0", Buy, "1")))
	assertVolume(t, lvl, "0")
	assert.Equal(t, 1, lvl.OrderCount())
	assert.False(t, lvl.IsEmpty())
}

func TestUpdateUnknownOrder(t *testing.T) {
	lvl := NewLevel(mustOrder(t, "10", "5", Buy, "1"))

	err := lvl.Update(mustOrder(t, "10", "1", Buy, "nope"))
	require.ErrorIs(t, err, ErrOrderNotFound)

	stranger := mustOrder(t, "10", "1", Buy, "")
	require.ErrorIs(t, lvl.Update(stranger), ErrOrderNotFound)

	assertVolume(t, lvl, "5")
}

func TestUpdateRejectsNegativeVolume(t *testing.T) {
	lvl := NewLevel(mustOrder(t, "10", "5", Buy, "1"))

	neg := &Order{ID: "1", Price: dec("10"), Volume: dec("-3"), Side: Buy}
	require.ErrorIs(t, lvl.Update(neg), ErrInvalidQuantity)
	assertVolume(t, lvl, "5")
}

func TestUpdateAt(t *testing.T) {
	lvl := NewLevel()
	h := lvl.Add(mustOrder(t, "10", "5", Buy, ""))

	require.NoError(t, lvl.UpdateAt(h, dec("2")))
	assertVolume(t, lvl, "2")

	require.ErrorIs(t, lvl.UpdateAt(h+1, dec("2")), ErrOrderNotFound)
	require.ErrorIs(t, lvl.UpdateAt(h, dec("-2")), ErrInvalidQuantity)
	assertVolume(t, lvl, "2")
}

func TestDeleteOrder(t *testing.T) {
	orders := []*Order{
		mustOrder(t, "100", "50", Buy, "1"),
		mustOrder(t, "100", "50", Buy, "2"),
	}
	lvl := NewLevel(orders...)

	removed, err := lvl.Delete(orders[1])
	require.NoError(t, err)
	assert.Same(t, orders[1], removed)
	assert.False(t, removed.Resting())

	assertVolume(t, lvl, "50")
	assert.Equal(t, 1, lvl.OrderCount())
	assert.Nil(t, lvl.Get("2"))
}

func TestDeleteTwiceFails(t *testing.T) {
	lvl := NewLevel(mustOrder(t, "100", "50", Buy, "1"))

	_, err := lvl.Delete(mustOrder(t, "100", "0", Buy, "1"))
	require.NoError(t, err)

	_, err = lvl.Delete(mustOrder(t, "100", "0", Buy, "1"))
	require.ErrorIs(t, err, ErrOrderNotFound)
	assert.True(t, lvl.IsEmpty())
	assertVolume(t, lvl, "0")
}

func TestDeleteIdlessOrderByHandle(t *testing.T) {
	a := mustOrder(t, "10", "5", Sell, "")
	b := mustOrder(t, "10", "5", Sell, "")
	lvl := NewLevel(a, b)

	removed, err := lvl.Delete(b)
	require.NoError(t, err)
	assert.Same(t, b, removed)
	assert.Equal(t, []*Order{a}, lvl.Orders())

	_, err = lvl.Delete(b)
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestDeleteAt(t *testing.T) {
	lvl := NewLevel()
	h1 := lvl.Add(mustOrder(t, "10", "1", Buy, ""))
	h2 := lvl.Add(mustOrder(t, "10", "2", Buy, ""))
	h3 := lvl.Add(mustOrder(t, "10", "3", Buy, ""))

	_, err := lvl.DeleteAt(h2)
	require.NoError(t, err)
	assertVolume(t, lvl, "4")

	_, err = lvl.DeleteAt(h2)
	require.ErrorIs(t, err, ErrOrderNotFound)

	assert.Same(t, lvl.At(h3), lvl.At(h1).Next())
	require.NoError(t, lvl.Check())
}

func TestDeleteHeadAndTail(t *testing.T) {
	a := mustOrder(t, "10", "1", Buy, "a")
	b := mustOrder(t, "10", "2", Buy, "b")
	c := mustOrder(t, "10", "3", Buy, "c")
	lvl := NewLevel(a, b, c)

	_, err := lvl.Delete(a)
	require.NoError(t, err)
	_, err = lvl.Delete(c)
	require.NoError(t, err)

	assert.Same(t, b, lvl.Head())
	assert.Nil(t, b.Prev())
	assert.Nil(t, b.Next())
	assertVolume(t, lvl, "2")
}

func TestDeletedOrderCanBeAddedAgain(t *testing.T) {
	o := mustOrder(t, "10", "4", Buy, "1")
	lvl := NewLevel(o, mustOrder(t, "10", "1", Buy, "2"))

	_, err := lvl.Delete(o)
	require.NoError(t, err)
	lvl.Add(o)

	assert.Same(t, o, lvl.Orders()[1], "re-added order goes to the back")
	assertVolume(t, lvl, "5")
}

func TestDuplicateIDsResolveToEarliest(t *testing.T) {
	first := mustOrder(t, "10", "1", Buy, "dup")
	second := mustOrder(t, "10", "2", Buy, "dup")
	lvl := NewLevel(first, second)

	assert.Same(t, first, lvl.Get("dup"))

	_, err := lvl.Delete(mustOrder(t, "10", "0", Buy, "dup"))
	require.NoError(t, err)
	assert.Same(t, second, lvl.Get("dup"))

	_, err = lvl.Delete(mustOrder(t, "10", "0", Buy, "dup"))
	require.NoError(t, err)
	assert.True(t, lvl.IsEmpty())
}

func TestDeleteRestingDuplicateRemovesThatOrder(t *testing.T) {
	first := mustOrder(t, "10", "1", Buy, "dup")
	second := mustOrder(t, "10", "2", Buy, "dup")
	lvl := NewLevel(first, second)

	removed, err := lvl.Delete(second)
	require.NoError(t, err)
	assert.Same(t, second, removed)
	assert.True(t, first.Resting())
	assert.Same(t, first, lvl.Get("dup"))
	assertVolume(t, lvl, "1")

	require.NoError(t, lvl.Update(first))
	assertVolume(t, lvl, "1")
}

type counter struct{ n uint64 }

func (c *counter) Next() uint64 {
	c.n++
	return c.n
}

func TestSharedLevelsNeverReuseHandles(t *testing.T) {
	src := &counter{}

	old := NewSharedLevel(dec("5"), Buy, src)
	h := old.Add(mustOrder(t, "5", "3", Buy, ""))
	_, err := old.DeleteAt(h)
	require.NoError(t, err)

	fresh := NewSharedLevel(dec("5"), Buy, src)
	h2 := fresh.Add(mustOrder(t, "5", "7", Buy, ""))
	assert.NotEqual(t, h, h2)

	_, err = fresh.DeleteAt(h)
	require.ErrorIs(t, err, ErrOrderNotFound)
	assertVolume(t, fresh, "7")
	assert.Equal(t, 1, fresh.OrderCount())
}

func TestZeroVolumeLevel(t *testing.T) {
	lvl := NewLevel(mustOrder(t, "10", "0", Buy, ""))

	assertVolume(t, lvl, "0")
	assert.Equal(t, 1, lvl.OrderCount())
	assert.False(t, lvl.IsEmpty())
}

func TestNewLevelAtPinsPriceAndSide(t *testing.T) {
	lvl := NewLevelAt(dec("42"), Sell)
	assert.True(t, lvl.Price().Equal(dec("42")))
	assert.Equal(t, Sell, lvl.Side())

	lvl.Add(mustOrder(t, "42", "1", Sell, ""))
	_, err := lvl.Delete(lvl.Head())
	require.NoError(t, err)
	assert.True(t, lvl.Price().Equal(dec("42")), "price is fixed for the level's lifetime")
}

func TestAggregateEqualsSumOfAdds(t *testing.T) {
	lvl := NewLevel()
	want := decimal.Zero
	for i := 1; i <= 50; i++ {
		v := decimal.NewFromInt(int64(i)).Div(decimal.NewFromInt(4))
		lvl.Add(mustOrder(t, "7", v.String(), Sell, ""))
		want = want.Add(v)
	}
	assert.True(t, lvl.Volume().Equal(want))
	assert.Equal(t, 50, lvl.OrderCount())
	require.NoError(t, lvl.Check())
}

func TestExposure(t *testing.T) {
	lvl := NewLevel(
		mustOrder(t, "2.5", "4", Buy, ""),
		mustOrder(t, "2.5", "2", Buy, ""),
	)
	assert.True(t, lvl.Exposure().Equal(dec("15")))
}

func TestWalkStopsEarly(t *testing.T) {
	lvl := NewLevel(
		mustOrder(t, "1", "1", Buy, "a"),
		mustOrder(t, "1", "1", Buy, "b"),
		mustOrder(t, "1", "1", Buy, "c"),
	)
	var seen []string
	lvl.Walk(func(o *Order) bool {
		seen = append(seen, o.ID)
		return o.ID != "b"
	})
	assert.Equal(t, []string{"a", "b"}, seen)
}

type step struct {
	kind   DeltaKind
	id     string
	volume string
}

func applySteps(t *testing.T, lvl *Level, steps []step) {
	t.Helper()
	for _, s := range steps {
		o := mustOrder(t, "100", s.volume, Buy, s.id)
		switch s.kind {
		case DeltaAdd:
			lvl.Add(o)
		case DeltaUpdate:
			require.NoError(t, lvl.Update(o))
		case DeltaDelete:
			_, err := lvl.Delete(o)
			require.NoError(t, err)
		}
	}
}

func TestDeterministicReplay(t *testing.T) {
	steps := []step{
		{DeltaAdd, "1", "10"},
		{DeltaAdd, "2", "20"},
		{DeltaAdd, "3", "30"},
		{DeltaUpdate, "2", "5"},
		{DeltaDelete, "1", "0"},
		{DeltaAdd, "4", "0"},
		{DeltaUpdate, "3", "31.5"},
		{DeltaAdd, "1", "1"},
	}

	a, b := NewLevel(), NewLevel()
	applySteps(t, a, steps)
	applySteps(t, b, steps)

	assert.True(t, a.Volume().Equal(b.Volume()))
	assert.Equal(t, a.OrderCount(), b.OrderCount())

	ids := func(l *Level) []string {
		var out []string
		l.Walk(func(o *Order) bool { out = append(out, o.ID); return true })
		return out
	}
	assert.Equal(t, []string{"2", "3", "4", "1"}, ids(a))
	assert.Equal(t, ids(a), ids(b))
	assertVolume(t, a, "37.5")
}

func TestLevelString(t *testing.T) {
	lvl := NewLevel(mustOrder(t, "10", "3", Sell, ""))
	assert.Equal(t, "Level{Side=SELL, Price=10, Orders=1, Volume=3}", lvl.String())
}

func BenchmarkLevelAddDelete(b *testing.B) {
	lvl := NewLevelAt(dec("100"), Buy)
	orders := make([]*Order, 1024)
	for i := range orders {
		orders[i] = mustOrder(b, "100", "1", Buy, "")
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		o := orders[i%len(orders)]
		lvl.Add(o)
		if _, err := lvl.Delete(o); err != nil {
			b.Fatal(err)
		}
	}
}
