package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"levelbook/domain/orderbook"
	"levelbook/infra/eventlog"
	"levelbook/infra/memory"
	"levelbook/infra/metrics"
	"levelbook/infra/sequence"
)

var ErrUnknownDelta = errors.New("service: unknown delta kind")

type levelKey struct {
	side  orderbook.Side
	price string
}

func keyOf(side orderbook.Side, price decimal.Decimal) levelKey {
	// String drops trailing zeros, so 10 and 10.00 share a level.
	return levelKey{side: side, price: price.String()}
}

/*
BookBuilder is the ONLY write entry point into the levels.

Deltas are applied first and recorded second: a delta that a level rejects
never reaches the event log, so replay sees only clean mutations.
*/
type BookBuilder struct {
	levels  map[levelKey]*orderbook.Level
	resting int

	pool     *memory.Pool[orderbook.Order]
	seqGen   *sequence.Sequencer
	handles  *sequence.Sequencer
	recorder *eventlog.Log
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewBookBuilder wires all dependencies. recorder and m may be nil.
func NewBookBuilder(
	pool *memory.Pool[orderbook.Order],
	seqGen *sequence.Sequencer,
	recorder *eventlog.Log,
	m *metrics.Metrics,
	logger *zap.Logger,
) *BookBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookBuilder{
		levels:   make(map[levelKey]*orderbook.Level),
		pool:     pool,
		seqGen:   seqGen,
		handles:  sequence.New(0),
		recorder: recorder,
		metrics:  m,
		logger:   logger.Named("bookbuilder"),
	}
}

// NewOrderPool returns a pool whose orders are cleared on return.
func NewOrderPool() *memory.Pool[orderbook.Order] {
	return memory.NewPool(
		func() *orderbook.Order { return &orderbook.Order{} },
		(*orderbook.Order).Reset,
	)
}

//
// ──────────────────────────────────────────────────────────
// Commands
// ──────────────────────────────────────────────────────────
//

// Apply routes d to its level and records it. The returned delta carries the
// assigned seq and, for adds, the handle that addresses an id-less order
// in later updates and deletes.
func (b *BookBuilder) Apply(d orderbook.Delta) (orderbook.Delta, error) {
	d, err := b.apply(d)
	if err != nil {
		return d, err
	}

	if b.recorder != nil {
		d.Seq = b.seqGen.Next()
		if err := b.recorder.Append(d); err != nil {
			b.logger.Error("record failed; levels are ahead of the event log",
				zap.Uint64("seq", d.Seq), zap.Error(err))
			return d, fmt.Errorf("service: record delta: %w", err)
		}
	}
	return d, nil
}

func (b *BookBuilder) apply(d orderbook.Delta) (orderbook.Delta, error) {
	var err error
	switch d.Kind {
	case orderbook.DeltaAdd:
		d.Handle, err = b.add(d)
	case orderbook.DeltaUpdate:
		err = b.update(d)
	case orderbook.DeltaDelete:
		err = b.delete(d)
	default:
		err = fmt.Errorf("%w: %d", ErrUnknownDelta, d.Kind)
	}

	if err != nil {
		b.reject(d, err)
		return d, err
	}

	b.logger.Debug("delta applied",
		zap.Stringer("kind", d.Kind),
		zap.Stringer("side", d.Side),
		zap.Stringer("price", d.Price),
		zap.String("id", d.OrderID),
		zap.Uint64("handle", uint64(d.Handle)),
	)
	if b.metrics != nil {
		b.metrics.DeltasApplied.WithLabelValues(d.Kind.String()).Inc()
		b.metrics.LiveLevels.Set(float64(len(b.levels)))
		b.metrics.RestingOrders.Set(float64(b.resting))
	}
	return d, nil
}

func (b *BookBuilder) add(d orderbook.Delta) (orderbook.Handle, error) {
	if d.Volume.IsNegative() {
		return 0, fmt.Errorf("%w: volume %s", orderbook.ErrInvalidQuantity, d.Volume)
	}

	o := b.pool.Get()
	o.ID = d.OrderID
	o.Price = d.Price
	o.Volume = d.Volume
	o.Side = d.Side

	key := keyOf(d.Side, d.Price)
	lvl := b.levels[key]
	if lvl == nil {
		// Handles are book-wide so a stale handle never hits a newer order
		// at a price whose level was dropped and recreated.
		lvl = orderbook.NewSharedLevel(d.Price, d.Side, b.handles)
		b.levels[key] = lvl
	}

	b.resting++
	return lvl.Add(o), nil
}

func (b *BookBuilder) update(d orderbook.Delta) error {
	lvl := b.levels[keyOf(d.Side, d.Price)]
	if lvl == nil {
		return missingLevel(d)
	}
	if d.OrderID != "" {
		return lvl.Update(&orderbook.Order{ID: d.OrderID, Price: d.Price, Volume: d.Volume, Side: d.Side})
	}
	return lvl.UpdateAt(d.Handle, d.Volume)
}

func (b *BookBuilder) delete(d orderbook.Delta) error {
	key := keyOf(d.Side, d.Price)
	lvl := b.levels[key]
	if lvl == nil {
		return missingLevel(d)
	}

	var (
		removed *orderbook.Order
		err     error
	)
	if d.OrderID != "" {
		removed, err = lvl.Delete(&orderbook.Order{ID: d.OrderID})
	} else {
		removed, err = lvl.DeleteAt(d.Handle)
	}
	if err != nil {
		return err
	}

	b.pool.Put(removed)
	b.resting--

	if lvl.IsEmpty() {
		delete(b.levels, key)
		if b.metrics != nil {
			b.metrics.LevelsRetired.Inc()
		}
	}
	return nil
}

func (b *BookBuilder) reject(d orderbook.Delta, err error) {
	reason := "other"
	switch {
	case errors.Is(err, orderbook.ErrOrderNotFound):
		reason = "not_found"
	case errors.Is(err, orderbook.ErrInvalidQuantity):
		reason = "invalid_quantity"
	case errors.Is(err, ErrUnknownDelta):
		reason = "unknown_kind"
	}

	b.logger.Warn("delta rejected",
		zap.Stringer("kind", d.Kind),
		zap.Stringer("side", d.Side),
		zap.Stringer("price", d.Price),
		zap.String("id", d.OrderID),
		zap.String("reason", reason),
		zap.Error(err),
	)
	if b.metrics != nil {
		b.metrics.DeltasRejected.WithLabelValues(d.Kind.String(), reason).Inc()
	}
}

func missingLevel(d orderbook.Delta) error {
	return fmt.Errorf("%w: no %s level at %s", orderbook.ErrOrderNotFound, d.Side, d.Price)
}

//
// ──────────────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────────────
//

// Level returns the live level for side and price, or nil. Callers must treat
// it as read-only and stay on the builder's goroutine.
func (b *BookBuilder) Level(side orderbook.Side, price decimal.Decimal) *orderbook.Level {
	return b.levels[keyOf(side, price)]
}

func (b *BookBuilder) LevelCount() int {
	return len(b.levels)
}

func (b *BookBuilder) RestingOrders() int {
	return b.resting
}

// Levels visits every live level in no particular order until fn returns false.
func (b *BookBuilder) Levels(fn func(*orderbook.Level) bool) {
	for _, lvl := range b.levels {
		if !fn(lvl) {
			return
		}
	}
}

// Check runs the integrity check of every live level.
func (b *BookBuilder) Check() error {
	var errs []error
	for _, lvl := range b.levels {
		if err := lvl.Check(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", lvl, err))
		}
	}
	return errors.Join(errs...)
}
