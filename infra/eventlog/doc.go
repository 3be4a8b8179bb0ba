// Package eventlog records book deltas in arrival order so a set of levels
// can be rebuilt deterministically by replaying them.
//
// Deltas are stored in pebble under "delta/<seq>" with a protobuf wire
// encoding and a CRC32 trailer. The log holds the mutation stream only,
// never level state, so it is append-only: dropping a prefix would leave
// later updates and deletes with no add to match on replay.
package eventlog
