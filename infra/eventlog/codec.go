package eventlog

import (
	"fmt"

	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/encoding/protowire"

	"levelbook/domain/orderbook"
)

// Field numbers of the delta wire message.
const (
	fieldSeq       protowire.Number = 1
	fieldKind      protowire.Number = 2
	fieldOrderID   protowire.Number = 3
	fieldHandle    protowire.Number = 4
	fieldSide      protowire.Number = 5
	fieldPrice     protowire.Number = 6
	fieldVolume    protowire.Number = 7
	fieldTimestamp protowire.Number = 8
)

// EncodeDelta returns the stored form of d: protobuf wire fields followed by
// a CRC32 of those bytes. Prices and volumes travel as decimal strings so no
// precision is lost.
func EncodeDelta(d orderbook.Delta) []byte {
	b := make([]byte, 0, 64)
	b = appendVarint(b, fieldSeq, d.Seq)
	b = appendVarint(b, fieldKind, uint64(d.Kind))
	if d.OrderID != "" {
		b = protowire.AppendTag(b, fieldOrderID, protowire.BytesType)
		b = protowire.AppendString(b, d.OrderID)
	}
	if d.Handle != 0 {
		b = appendVarint(b, fieldHandle, uint64(d.Handle))
	}
	b = appendVarint(b, fieldSide, uint64(d.Side))
	b = protowire.AppendTag(b, fieldPrice, protowire.BytesType)
	b = protowire.AppendString(b, d.Price.String())
	b = protowire.AppendTag(b, fieldVolume, protowire.BytesType)
	b = protowire.AppendString(b, d.Volume.String())
	b = appendVarint(b, fieldTimestamp, protowire.EncodeZigZag(d.TimestampNs))
	return appendCRC(b)
}

// DecodeDelta parses the output of EncodeDelta. Unknown fields are skipped.
func DecodeDelta(b []byte) (orderbook.Delta, error) {
	var d orderbook.Delta

	payload, ok := splitCRC(b)
	if !ok {
		return d, fmt.Errorf("%w: crc mismatch", ErrCorrupt)
	}

	for len(payload) > 0 {
		num, typ, n := protowire.ConsumeTag(payload)
		if n < 0 {
			return d, fmt.Errorf("%w: %v", ErrCorrupt, protowire.ParseError(n))
		}
		payload = payload[n:]

		var err error
		switch {
		case typ == protowire.BytesType && isStringField(num):
			var s string
			s, n = protowire.ConsumeString(payload)
			if n >= 0 {
				err = setString(&d, num, s)
			}
		case typ == protowire.VarintType && !isStringField(num):
			var v uint64
			v, n = protowire.ConsumeVarint(payload)
			if n >= 0 {
				setVarint(&d, num, v)
			}
		default:
			n = protowire.ConsumeFieldValue(num, typ, payload)
		}
		if n < 0 {
			return d, fmt.Errorf("%w: field %d: %v", ErrCorrupt, num, protowire.ParseError(n))
		}
		if err != nil {
			return d, err
		}
		payload = payload[n:]
	}
	return d, nil
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func isStringField(num protowire.Number) bool {
	return num == fieldOrderID || num == fieldPrice || num == fieldVolume
}

func setVarint(d *orderbook.Delta, num protowire.Number, v uint64) {
	switch num {
	case fieldSeq:
		d.Seq = v
	case fieldKind:
		d.Kind = orderbook.DeltaKind(v)
	case fieldHandle:
		d.Handle = orderbook.Handle(v)
	case fieldSide:
		d.Side = orderbook.Side(v)
	case fieldTimestamp:
		d.TimestampNs = protowire.DecodeZigZag(v)
	}
}

func setString(d *orderbook.Delta, num protowire.Number, s string) error {
	switch num {
	case fieldOrderID:
		d.OrderID = s
	case fieldPrice, fieldVolume:
		v, err := decimal.NewFromString(s)
		if err != nil {
			return fmt.Errorf("%w: field %d: %v", ErrCorrupt, num, err)
		}
		if num == fieldPrice {
			d.Price = v
		} else {
			d.Volume = v
		}
	}
	return nil
}
