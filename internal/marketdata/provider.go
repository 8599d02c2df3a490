// Package marketdata defines the market data provider boundary: quotes,
// historical bars, option chain snapshots, and per-strike deltas.
package marketdata

import (
	"context"
	"time"

	"github.com/mfleur/polyleg/internal/chain"
	"github.com/mfleur/polyleg/internal/models"
)

// Quote is a snapshot of a tradable symbol, underlying or contract.
type Quote struct {
	Symbol string  `json:"symbol"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
	Last   float64 `json:"last"`
	Open   float64 `json:"open"`
}

// Bar is one historical daily bar.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Provider serves market data to the trading loop. Implementations should
// return ErrDataUnavailable (possibly wrapped) when the upstream source
// cannot produce an answer, so callers can hold rather than act on garbage.
type Provider interface {
	// GetQuote returns the current quote for an underlying or contract symbol.
	GetQuote(ctx context.Context, symbol string) (Quote, error)

	// GetPriceHistory returns up to days of daily bars, oldest first.
	GetPriceHistory(ctx context.Context, symbol string, days int) ([]Bar, error)

	// GetOptionChain returns the full chain snapshot for an underlying.
	GetOptionChain(ctx context.Context, symbol string) (chain.OptionChain, error)

	// GetStrikeDeltas returns delta per strike at one expiration and right.
	GetStrikeDeltas(ctx context.Context, symbol string, expiration time.Time,
		right models.OptionRight) (map[float64]float64, error)
}
