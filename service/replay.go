package service

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"levelbook/domain/orderbook"
	"levelbook/infra/eventlog"
)

var ErrReplayDiverged = errors.New("service: replay diverged from recording")

/*
ReplayFromLog rebuilds the builder's levels from a recorded event log.

IMPORTANT:
- This MUST run before any live delta is applied
- Replayed deltas are not recorded again
- Adds must be re-issued the handles they were recorded with
*/
func ReplayFromLog(log *eventlog.Log, b *BookBuilder) (uint64, error) {
	applied := 0
	lastSeq, err := log.Replay(func(d orderbook.Delta) error {
		out, err := b.apply(d)
		if err != nil {
			return fmt.Errorf("replay seq %d: %w", d.Seq, err)
		}
		if d.Kind == orderbook.DeltaAdd && out.Handle != d.Handle {
			return fmt.Errorf("%w: seq %d recorded handle %d, rebuilt %d",
				ErrReplayDiverged, d.Seq, d.Handle, out.Handle)
		}
		applied++
		return nil
	})
	if err != nil {
		return lastSeq, err
	}

	// Resume sequencing AFTER replay
	b.seqGen.Reset(lastSeq)

	b.logger.Info("event log replay completed",
		zap.String("session", log.Session()),
		zap.Uint64("last_seq", lastSeq),
		zap.Int("deltas", applied),
		zap.Int("levels", b.LevelCount()),
	)
	return lastSeq, nil
}
