package orderbook

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Handle identifies a resting order. Handles are never reused by the Level
// that issued them, or by any level sharing its HandleSource. Zero means
// "not resting".
type Handle uint64

// HandleSource issues strictly increasing, non-zero handle values.
type HandleSource interface {
	Next() uint64
}

// Order is a single resting interest at a price.
//
// ID, Price and Side are fixed once the order is built. Volume must only be
// changed through UpdateVolume or Level.Update so the owning level's
// aggregate stays exact.
type Order struct {
	ID     string
	Price  decimal.Decimal
	Volume decimal.Decimal
	Side   Side

	handle Handle
	level  *Level
	next   *Order
	prev   *Order
}

// NewOrder builds an order. An empty id means the order is tracked by the
// handle its level returns from Add.
func NewOrder(price, volume decimal.Decimal, side Side, id string) (*Order, error) {
	if volume.IsNegative() {
		return nil, fmt.Errorf("%w: volume %s", ErrInvalidQuantity, volume)
	}
	return &Order{
		ID:     id,
		Price:  price,
		Volume: volume,
		Side:   side,
	}, nil
}

// UpdateVolume replaces the remaining volume. Zero is valid: the order stays
// resting until it is deleted.
func (o *Order) UpdateVolume(v decimal.Decimal) error {
	if v.IsNegative() {
		return fmt.Errorf("%w: volume %s", ErrInvalidQuantity, v)
	}
	if o.level != nil {
		o.level.volume = o.level.volume.Add(v.Sub(o.Volume))
	}
	o.Volume = v
	return nil
}

// Exposure is price times remaining volume.
func (o *Order) Exposure() decimal.Decimal {
	return o.Price.Mul(o.Volume)
}

// Handle returns the handle assigned by the owning level, or zero.
func (o *Order) Handle() Handle {
	return o.handle
}

// Resting reports whether the order currently sits in a level.
func (o *Order) Resting() bool {
	return o.level != nil
}

// Read-only traversal helpers
func (o *Order) Next() *Order {
	return o.next
}

func (o *Order) Prev() *Order {
	return o.prev
}

func (o *Order) String() string {
	return fmt.Sprintf("Order(%s, %s, %s, %s)", o.Price, o.Volume, o.Side, o.ID)
}

// Reset clears the order so a pooled instance can be reused. It must not be
// called while the order is resting.
func (o *Order) Reset() {
	*o = Order{}
}
