package service

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"levelbook/domain/orderbook"
)

// jsonDelta is one line of a recorded venue capture:
//
//	{"kind":"ADD","side":"SELL","price":"0.5814","volume":"672.45","id":"4a25..."}
type jsonDelta struct {
	Kind        string          `json:"kind"`
	ID          string          `json:"id,omitempty"`
	Handle      uint64          `json:"handle,omitempty"`
	Side        string          `json:"side"`
	Price       decimal.Decimal `json:"price"`
	Volume      decimal.Decimal `json:"volume"`
	TimestampNs int64           `json:"ts,omitempty"`
}

// ReadJSONLines decodes one delta per line and hands each to fn in order.
// Blank lines are skipped.
func ReadJSONLines(r io.Reader, fn func(orderbook.Delta) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}

		var jd jsonDelta
		if err := json.Unmarshal([]byte(raw), &jd); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		d, err := jd.delta()
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := fn(d); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
	return sc.Err()
}

func (jd jsonDelta) delta() (orderbook.Delta, error) {
	d := orderbook.Delta{
		OrderID:     jd.ID,
		Handle:      orderbook.Handle(jd.Handle),
		Price:       jd.Price,
		Volume:      jd.Volume,
		TimestampNs: jd.TimestampNs,
	}

	switch strings.ToUpper(jd.Kind) {
	case "ADD":
		d.Kind = orderbook.DeltaAdd
	case "UPDATE":
		d.Kind = orderbook.DeltaUpdate
	case "DELETE":
		d.Kind = orderbook.DeltaDelete
	default:
		return d, fmt.Errorf("%w: %q", ErrUnknownDelta, jd.Kind)
	}

	switch strings.ToUpper(jd.Side) {
	case "BUY", "BID":
		d.Side = orderbook.Buy
	case "SELL", "ASK":
		d.Side = orderbook.Sell
	default:
		return d, fmt.Errorf("service: unknown side %q", jd.Side)
	}
	return d, nil
}
