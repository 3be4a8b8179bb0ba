package eventlog

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/cockroachdb/pebble"
	"github.com/google/uuid"

	"levelbook/domain/orderbook"
)

var (
	ErrCorrupt      = errors.New("eventlog: corrupt delta")
	ErrNonMonotonic = errors.New("eventlog: non-monotonic seq")
)

const (
	deltaPrefix = "delta/"
	// '0' < '~', so this bounds every zero-padded seq key.
	deltaUpper = "delta/~"
	sessionKey = "meta/session"
)

type Config struct {
	Dir string
	// Sync fsyncs every append. Off trades durability of the tail for
	// throughput when recording high-rate feeds.
	Sync bool
}

// Log is an append-only, seq-ordered record of deltas.
// Like the levels it feeds, it has a single writer.
type Log struct {
	db      *pebble.DB
	wo      *pebble.WriteOptions
	lastSeq uint64
	session string
}

func Open(cfg Config) (*Log, error) {
	db, err := pebble.Open(cfg.Dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("eventlog: open %s: %w", cfg.Dir, err)
	}

	l := &Log{db: db, wo: pebble.NoSync}
	if cfg.Sync {
		l.wo = pebble.Sync
	}

	if err := l.loadSession(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := l.loadLastSeq(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

func (l *Log) Close() error {
	return l.db.Close()
}

// Session is the recording id assigned when the log was first created.
func (l *Log) Session() string {
	return l.session
}

// LastSeq is the highest seq appended so far, zero for an empty log.
func (l *Log) LastSeq() uint64 {
	return l.lastSeq
}

// -------------------- API --------------------

// Append stores d under its seq. Seqs must strictly increase.
func (l *Log) Append(d orderbook.Delta) error {
	if d.Seq <= l.lastSeq {
		return fmt.Errorf("%w: %d after %d", ErrNonMonotonic, d.Seq, l.lastSeq)
	}
	if err := l.db.Set(keyFor(d.Seq), EncodeDelta(d), l.wo); err != nil {
		return fmt.Errorf("eventlog: append seq %d: %w", d.Seq, err)
	}
	l.lastSeq = d.Seq
	return nil
}

// Replay calls fn for every recorded delta in seq order and returns the last
// seq visited. It stops at the first error.
func (l *Log) Replay(fn func(orderbook.Delta) error) (lastSeq uint64, err error) {
	iter, err := l.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(deltaPrefix),
		UpperBound: []byte(deltaUpper),
	})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		d, err := DecodeDelta(iter.Value())
		if err != nil {
			return lastSeq, fmt.Errorf("key %s: %w", iter.Key(), err)
		}
		if d.Seq <= lastSeq {
			return lastSeq, fmt.Errorf("%w: %d after %d", ErrNonMonotonic, d.Seq, lastSeq)
		}
		lastSeq = d.Seq

		if err := fn(d); err != nil {
			return lastSeq, err
		}
	}
	return lastSeq, iter.Error()
}

// -------------------- Helpers --------------------

func (l *Log) loadSession() error {
	val, closer, err := l.db.Get([]byte(sessionKey))
	switch {
	case err == nil:
		l.session = string(val)
		return closer.Close()
	case errors.Is(err, pebble.ErrNotFound):
		l.session = uuid.NewString()
		return l.db.Set([]byte(sessionKey), []byte(l.session), pebble.Sync)
	default:
		return fmt.Errorf("eventlog: read session: %w", err)
	}
}

func (l *Log) loadLastSeq() error {
	iter, err := l.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(deltaPrefix),
		UpperBound: []byte(deltaUpper),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	if iter.Last() {
		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		l.lastSeq = seq
	}
	return iter.Error()
}

func keyFor(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", deltaPrefix, seq))
}

func parseKey(b []byte) (uint64, error) {
	if len(b) <= len(deltaPrefix) {
		return 0, fmt.Errorf("%w: key %q", ErrCorrupt, b)
	}
	seq, err := strconv.ParseUint(string(b[len(deltaPrefix):]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: key %q", ErrCorrupt, b)
	}
	return seq, nil
}
