// Package models defines the data records shared across the trading engine:
// user-authored bot/strategy configuration, the canonical strategy parameters
// produced by translation, open positions, and trading task rows.
package models

// BotConfig is a user's bot record as persisted. The trade_exit and trade_stop
// blobs are loosely typed on purpose: they are versioned JSON written by
// several generations of clients, and older bots omit whole families of keys.
// Only the ParameterTranslator reads them.
type BotConfig struct {
	ID            string         `json:"id"`
	UserID        string         `json:"user_id"`
	Name          string         `json:"name"`
	StrategyID    string         `json:"strategy_id"`
	InvestmentPct float64        `json:"investment_pct,omitempty"`
	TradeExit     map[string]any `json:"trade_exit,omitempty"`
	TradeStop     map[string]any `json:"trade_stop,omitempty"`
	Version       int            `json:"version,omitempty"`
}

// StrategyConfig is a user's strategy definition: an underlying symbol and
// one to four legs. Mutations happen through an explicit edit operation that
// records a change-diff; the engine only ever reads these.
type StrategyConfig struct {
	ID      string      `json:"id"`
	UserID  string      `json:"user_id"`
	Name    string      `json:"name"`
	Symbol  string      `json:"symbol"`
	Version int         `json:"version,omitempty"`
	Legs    []LegConfig `json:"legs"`
}

// LegConfig is one leg of a strategy in its user-facing form. The string
// discriminators and [target, min, max] tuples carry legacy literals such as
// "Vertical Width (Underlying %)"; translation maps each of them exactly once.
type LegConfig struct {
	StrikeTargetType      string    `json:"strike_target_type"`
	StrikeTargetValue     []float64 `json:"strike_target_value"`
	OptionType            string    `json:"option_type"`
	LongOrShort           string    `json:"long_or_short"`
	SizeRatio             int       `json:"size_ratio"`
	DaysToExpirationType  string    `json:"days_to_expiration_type"`
	DaysToExpirationValue []float64 `json:"days_to_expiration_value"`
}

// TupleValue returns element i of a [target, min, max] tuple, or 0 when the
// tuple is short. Older strategy versions stored one- or two-element tuples.
func TupleValue(tuple []float64, i int) float64 {
	if i < 0 || i >= len(tuple) {
		return 0
	}
	return tuple[i]
}
