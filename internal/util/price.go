// Package util provides common utility functions for price calculations.
package util

import "math"

// RoundToTick rounds x to the nearest tick increment.
// For example, with tick=0.01, 1.2345 becomes 1.23 or 1.24 depending on rounding.
func RoundToTick(x, tick float64) float64 {
	if tick <= 0 {
		return x
	}
	return math.Round(x/tick) * tick
}

// MidPrice returns the bid/ask midpoint, or 0 when the quote is one-sided
// or crossed into nonsense (negative sides).
func MidPrice(bid, ask float64) float64 {
	if bid <= 0 || ask <= 0 || ask < bid {
		return 0
	}
	return (bid + ask) / 2
}

// TradablePrice returns the best fair-price estimate for a quote: the bid/ask
// midpoint when both sides exist, otherwise the last trade price. A zero
// return means no usable price.
func TradablePrice(bid, ask, last float64) float64 {
	if mid := MidPrice(bid, ask); mid > 0 {
		return mid
	}
	if last > 0 {
		return last
	}
	return 0
}
