package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"levelbook/domain/orderbook"
)

func TestReadJSONLines(t *testing.T) {
	in := `
{"kind":"ADD","side":"SELL","price":"0.5814","volume":"672.45","id":"4a25c3f6-76e7-7584-c5a3-4ec84808e240"}

{"kind":"update","side":"ask","price":0.5814,"volume":"100","id":"4a25c3f6-76e7-7584-c5a3-4ec84808e240","ts":17}
{"kind":"DELETE","side":"BUY","price":"10","volume":"0","handle":3}
`
	var got []orderbook.Delta
	err := ReadJSONLines(strings.NewReader(in), func(d orderbook.Delta) error {
		got = append(got, d)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, orderbook.DeltaAdd, got[0].Kind)
	assert.Equal(t, orderbook.Sell, got[0].Side)
	assert.True(t, got[0].Volume.Equal(dec("672.45")))

	assert.Equal(t, orderbook.DeltaUpdate, got[1].Kind)
	assert.True(t, got[1].Price.Equal(dec("0.5814")))
	assert.Equal(t, int64(17), got[1].TimestampNs)

	assert.Equal(t, orderbook.DeltaDelete, got[2].Kind)
	assert.Equal(t, orderbook.Buy, got[2].Side)
	assert.Equal(t, orderbook.Handle(3), got[2].Handle)
}

func TestReadJSONLinesReportsLine(t *testing.T) {
	in := `{"kind":"ADD","side":"BUY","price":"1","volume":"1"}
{"kind":"MOVE","side":"BUY","price":"1","volume":"1"}`
	err := ReadJSONLines(strings.NewReader(in), func(orderbook.Delta) error { return nil })
	require.ErrorIs(t, err, ErrUnknownDelta)
	assert.Contains(t, err.Error(), "line 2")
}

func TestReadJSONLinesFeedsBuilder(t *testing.T) {
	b, _ := newTestBuilder()
	in := `{"kind":"ADD","side":"BUY","price":"10","volume":"100","id":"1"}
{"kind":"UPDATE","side":"BUY","price":"10","volume":"50","id":"1"}`

	err := ReadJSONLines(strings.NewReader(in), func(d orderbook.Delta) error {
		_, err := b.Apply(d)
		return err
	})
	require.NoError(t, err)
	assert.True(t, b.Level(orderbook.Buy, dec("10")).Volume().Equal(dec("50")))
}
