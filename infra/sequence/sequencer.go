package sequence

import "sync/atomic"

// Sequencer hands out strictly increasing, non-zero numbers. The book uses
// one for event log seqs and another for order handles, so a handle is
// never issued twice even after the level that held it is dropped.
type Sequencer struct {
	last atomic.Uint64
}

// New returns a sequencer whose first Next is start+1.
func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.last.Store(start)
	return s
}

func (s *Sequencer) Next() uint64 {
	return s.last.Add(1)
}

// Current is the last value issued, or the start value before any Next.
func (s *Sequencer) Current() uint64 {
	return s.last.Load()
}

// Reset resumes sequencing after v. Replay calls it with the last recorded
// seq before any live delta is applied.
func (s *Sequencer) Reset(v uint64) {
	s.last.Store(v)
}
