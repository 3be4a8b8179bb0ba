package orderbook

import "github.com/shopspring/decimal"

// DeltaKind is the mutation a Delta applies to a level.
type DeltaKind uint8

const (
	DeltaUnknown DeltaKind = iota
	DeltaAdd
	DeltaUpdate
	DeltaDelete
)

func (k DeltaKind) String() string {
	switch k {
	case DeltaAdd:
		return "ADD"
	case DeltaUpdate:
		return "UPDATE"
	case DeltaDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// Delta is one book mutation as produced by a venue feed.
//
// Orders without an id are addressed on Update and Delete by the Handle the
// level returned when they were added.
type Delta struct {
	Seq         uint64
	Kind        DeltaKind
	OrderID     string
	Handle      Handle
	Side        Side
	Price       decimal.Decimal
	Volume      decimal.Decimal
	TimestampNs int64
}

// Order builds the order a delta describes.
func (d Delta) Order() (*Order, error) {
	return NewOrder(d.Price, d.Volume, d.Side, d.OrderID)
}
