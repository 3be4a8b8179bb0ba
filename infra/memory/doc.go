// Package memory holds allocation helpers for the hot path. Orders removed
// from a level are handed back here by the book builder instead of being
// left to the garbage collector.
package memory
