//go:build !levelcheck

package orderbook

const debugChecks = false
