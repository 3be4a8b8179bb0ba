//go:build levelcheck

package orderbook

// Built with -tags levelcheck, Add panics on orders that do not share the
// level's price and side.
const debugChecks = true
