package models

import "time"

// SharesPerContract is the option contract multiplier.
const SharesPerContract = 100.0

// OpenPosition is one held option leg with its recorded cost basis. Created
// when an entry plan's orders fill, destroyed when a close fills. EntrySpot
// and EntryDelta are captured at fill time so underlying- and delta-based
// stops have a reference point without re-querying history.
type OpenPosition struct {
	Symbol     string      `json:"symbol"` // contract symbol, opaque to the engine
	Underlying string      `json:"underlying"`
	Strike     float64     `json:"strike"`
	Expiration time.Time   `json:"expiration"`
	Right      OptionRight `json:"right"`
	Quantity   int         `json:"quantity"` // signed, > 0 long
	EntryPrice float64     `json:"entry_price"`
	EntrySpot  float64     `json:"entry_spot,omitempty"`
	EntryDelta float64     `json:"entry_delta,omitempty"`
}

// IsLong reports whether the leg is held long.
func (p *OpenPosition) IsLong() bool {
	return p.Quantity > 0
}

// AbsQuantity returns the unsigned contract count.
func (p *OpenPosition) AbsQuantity() int {
	if p.Quantity < 0 {
		return -p.Quantity
	}
	return p.Quantity
}

// EntryValue returns |qty| * entry price * contract multiplier in dollars.
func (p *OpenPosition) EntryValue() float64 {
	return float64(p.AbsQuantity()) * p.EntryPrice * SharesPerContract
}

// DTE returns whole days from today until expiration, floored at zero.
func (p *OpenPosition) DTE(today time.Time) int {
	t := today.UTC().Truncate(24 * time.Hour)
	exp := p.Expiration.UTC().Truncate(24 * time.Hour)
	days := int(exp.Sub(t).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// ExitDecision is the per-tick verdict for a held position.
type ExitDecision string

// Exit decisions, in evaluation priority order (profit, then stop, then time).
const (
	DecisionHold        ExitDecision = "hold"
	DecisionCloseProfit ExitDecision = "close_profit"
	DecisionCloseStop   ExitDecision = "close_stop"
	DecisionCloseTime   ExitDecision = "close_time"
)
