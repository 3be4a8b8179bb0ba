// Package service drives price levels from a stream of book deltas.
//
// BookBuilder is the single writer for every level it owns: it routes each
// delta to the level for its side and price, creates levels on first add and
// retires them once empty, and records every applied delta so the same
// levels can be rebuilt by replay.
package service
