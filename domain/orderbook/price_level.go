package orderbook

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Level is a FIFO queue of every resting order at one price on one side.
//
// The aggregate volume is maintained incrementally and always equals the sum
// of the resting orders' volumes, zero-volume orders included. Level is
// single-writer; readers on other goroutines must synchronise externally.
//
// The zero value is an empty level whose price and side are taken from the
// first order added.
type Level struct {
	price decimal.Decimal
	side  Side
	fixed bool

	head *Order
	tail *Order

	byHandle   map[Handle]*Order
	byID       map[string]*Order
	lastHandle Handle
	handles    HandleSource

	volume decimal.Decimal
	count  int
}

// NewLevel seeds a level with orders in the given priority order. It does not
// check that they share a price and side; see Check.
func NewLevel(orders ...*Order) *Level {
	l := &Level{}
	for _, o := range orders {
		l.Add(o)
	}
	return l
}

// NewLevelAt returns an empty level pinned to price and side.
func NewLevelAt(price decimal.Decimal, side Side) *Level {
	return &Level{price: price, side: side, fixed: true}
}

// NewSharedLevel is NewLevelAt for a level whose handles come from src, so
// handles stay unique across every level drawing from it, including levels
// created after an earlier one at the same price was dropped.
func NewSharedLevel(price decimal.Decimal, side Side, src HandleSource) *Level {
	return &Level{price: price, side: side, fixed: true, handles: src}
}

// Add appends o at the back of the queue and returns its handle.
// Duplicate ids are not rejected; lookups by id resolve to the earliest one.
func (l *Level) Add(o *Order) Handle {
	if o.level != nil {
		panic("orderbook: order is already resting in a level")
	}
	l.pin(o)
	if l.byHandle == nil {
		l.byHandle = make(map[Handle]*Order)
		l.byID = make(map[string]*Order)
	}

	if l.handles != nil {
		o.handle = Handle(l.handles.Next())
	} else {
		l.lastHandle++
		o.handle = l.lastHandle
	}
	o.level = l
	o.next = nil
	o.prev = l.tail
	if l.tail == nil {
		l.head = o
	} else {
		l.tail.next = o
	}
	l.tail = o

	l.byHandle[o.handle] = o
	if o.ID != "" {
		if _, ok := l.byID[o.ID]; !ok {
			l.byID[o.ID] = o
		}
	}

	l.volume = l.volume.Add(o.Volume)
	l.count++
	return o.handle
}

// Update finds the resting order with o's identity and replaces its volume
// with o.Volume. Queue position is kept.
func (l *Level) Update(o *Order) error {
	if o == nil {
		return notFound(o)
	}
	if o.Volume.IsNegative() {
		return fmt.Errorf("%w: volume %s", ErrInvalidQuantity, o.Volume)
	}
	r := l.find(o)
	if r == nil {
		return notFound(o)
	}
	return r.UpdateVolume(o.Volume)
}

// UpdateAt is Update for a handle returned by Add.
func (l *Level) UpdateAt(h Handle, v decimal.Decimal) error {
	if v.IsNegative() {
		return fmt.Errorf("%w: volume %s", ErrInvalidQuantity, v)
	}
	r := l.byHandle[h]
	if r == nil {
		return fmt.Errorf("%w: handle %d", ErrOrderNotFound, h)
	}
	return r.UpdateVolume(v)
}

// Delete removes the resting order with o's identity and returns it.
func (l *Level) Delete(o *Order) (*Order, error) {
	r := l.find(o)
	if r == nil {
		return nil, notFound(o)
	}
	l.unlink(r)
	return r, nil
}

// DeleteAt is Delete for a handle returned by Add.
func (l *Level) DeleteAt(h Handle) (*Order, error) {
	r := l.byHandle[h]
	if r == nil {
		return nil, fmt.Errorf("%w: handle %d", ErrOrderNotFound, h)
	}
	l.unlink(r)
	return r, nil
}

// Volume is the aggregate volume of all resting orders.
func (l *Level) Volume() decimal.Decimal {
	return l.volume
}

func (l *Level) OrderCount() int {
	return l.count
}

func (l *Level) IsEmpty() bool {
	return l.count == 0
}

func (l *Level) Price() decimal.Decimal {
	return l.price
}

func (l *Level) Side() Side {
	return l.side
}

// Exposure is the level price times the aggregate volume.
func (l *Level) Exposure() decimal.Decimal {
	return l.price.Mul(l.volume)
}

// Get returns the earliest resting order with the given id, or nil.
func (l *Level) Get(id string) *Order {
	return l.byID[id]
}

// At returns the resting order for a handle, or nil.
func (l *Level) At(h Handle) *Order {
	return l.byHandle[h]
}

// Read-only helper
func (l *Level) Head() *Order {
	return l.head
}

// Walk visits resting orders in priority order until fn returns false.
func (l *Level) Walk(fn func(*Order) bool) {
	for o := l.head; o != nil; o = o.next {
		if !fn(o) {
			return
		}
	}
}

// Orders returns the resting orders in priority order.
func (l *Level) Orders() []*Order {
	out := make([]*Order, 0, l.count)
	for o := l.head; o != nil; o = o.next {
		out = append(out, o)
	}
	return out
}

func (l *Level) String() string {
	return fmt.Sprintf("Level{Side=%s, Price=%s, Orders=%d, Volume=%s}", l.side, l.price, l.count, l.volume)
}

// ---- internal helpers ----

func (l *Level) pin(o *Order) {
	if !l.fixed {
		l.price = o.Price
		l.side = o.Side
		l.fixed = true
		return
	}
	if debugChecks {
		if !o.Price.Equal(l.price) {
			panic(fmt.Sprintf("orderbook: %v added to level at %s", o, l.price))
		}
		if o.Side != l.side {
			panic(fmt.Sprintf("orderbook: %v added to %s level", o, l.side))
		}
	}
}

// find resolves identity. An order resting here is itself; any other order
// is matched by id.
func (l *Level) find(o *Order) *Order {
	if o == nil {
		return nil
	}
	if o.level == l && o.handle != 0 {
		return l.byHandle[o.handle]
	}
	if o.ID != "" {
		return l.byID[o.ID]
	}
	return nil
}

func (l *Level) unlink(o *Order) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		l.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		l.tail = o.prev
	}

	delete(l.byHandle, o.handle)
	if o.ID != "" && l.byID[o.ID] == o {
		delete(l.byID, o.ID)
		for n := o.next; n != nil; n = n.next {
			if n.ID == o.ID {
				l.byID[o.ID] = n
				break
			}
		}
	}

	l.volume = l.volume.Sub(o.Volume)
	l.count--

	o.next = nil
	o.prev = nil
	o.level = nil
	o.handle = 0
}

func notFound(o *Order) error {
	if o == nil {
		return fmt.Errorf("%w: nil order", ErrOrderNotFound)
	}
	if o.ID != "" {
		return fmt.Errorf("%w: id %q", ErrOrderNotFound, o.ID)
	}
	return fmt.Errorf("%w: handle %d", ErrOrderNotFound, o.handle)
}
