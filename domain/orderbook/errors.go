package orderbook

import "errors"

var (
	ErrInvalidQuantity = errors.New("orderbook: invalid quantity")
	ErrOrderNotFound   = errors.New("orderbook: order not found")

	// Integrity violations reported by Level.Check.
	ErrPriceMismatch  = errors.New("orderbook: order price differs from level price")
	ErrSideMismatch   = errors.New("orderbook: order side differs from level side")
	ErrAggregateDrift = errors.New("orderbook: aggregate volume drift")
)
