package orderbook

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Check walks the queue and verifies the level's invariants: one price, one
// side, and an aggregate equal to the recomputed sum. It returns every
// violation found, joined.
func (l *Level) Check() error {
	var (
		errs  []error
		sum   decimal.Decimal
		count int
	)
	for o := l.head; o != nil; o = o.next {
		if !o.Price.Equal(l.price) {
			errs = append(errs, fmt.Errorf("%w: %v at level %s", ErrPriceMismatch, o, l.price))
		}
		if o.Side != l.side {
			errs = append(errs, fmt.Errorf("%w: %v on %s level", ErrSideMismatch, o, l.side))
		}
		sum = sum.Add(o.Volume)
		count++
	}
	if !sum.Equal(l.volume) {
		errs = append(errs, fmt.Errorf("%w: maintained %s, recomputed %s", ErrAggregateDrift, l.volume, sum))
	}
	if count != l.count {
		errs = append(errs, fmt.Errorf("%w: maintained %d orders, walked %d", ErrAggregateDrift, l.count, count))
	}
	return errors.Join(errs...)
}
