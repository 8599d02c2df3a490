package models

// ProfitTargetType selects how the profit target is interpreted.
type ProfitTargetType string

// Profit target variants.
const (
	ProfitTargetNone         ProfitTargetType = "none"
	ProfitTargetPercent      ProfitTargetType = "percent"
	ProfitTargetFixedNet     ProfitTargetType = "fixed_net"
	ProfitTargetFixedClosing ProfitTargetType = "fixed_closing"
)

// Valid returns true if the ProfitTargetType is one of the defined constants.
func (t ProfitTargetType) Valid() bool {
	switch t {
	case ProfitTargetNone, ProfitTargetPercent, ProfitTargetFixedNet, ProfitTargetFixedClosing:
		return true
	default:
		return false
	}
}

// StopType selects how the stop-loss threshold is interpreted.
type StopType string

// Stop-loss variants.
const (
	StopNone              StopType = "none"
	StopPercentLoss       StopType = "percent_loss"
	StopDollarLoss        StopType = "dollar_loss"
	StopUnderlyingPoints  StopType = "underlying_points"
	StopUnderlyingPercent StopType = "underlying_percent"
	StopDelta             StopType = "delta"
	StopRelativeDelta     StopType = "relative_delta"
)

// Valid returns true if the StopType is one of the defined constants.
func (t StopType) Valid() bool {
	switch t {
	case StopNone, StopPercentLoss, StopDollarLoss, StopUnderlyingPoints,
		StopUnderlyingPercent, StopDelta, StopRelativeDelta:
		return true
	default:
		return false
	}
}

// StrikeTargetType selects the strike-selection rule for a leg.
type StrikeTargetType string

// Strike-selection variants. StrikeTargetUnspecified is the degraded value for
// unknown legacy literals: translation never fails, contract selection does.
const (
	StrikeTargetUnspecified            StrikeTargetType = ""
	StrikeTargetDelta                  StrikeTargetType = "delta"
	StrikeTargetPremium                StrikeTargetType = "premium"
	StrikeTargetPremiumPctUnderlying   StrikeTargetType = "premium_pct_underlying"
	StrikeTargetMinimumPremium         StrikeTargetType = "minimum_premium"
	StrikeTargetPercentITM             StrikeTargetType = "percent_itm"
	StrikeTargetPercentOTM             StrikeTargetType = "percent_otm"
	StrikeTargetPointsITM              StrikeTargetType = "points_itm"
	StrikeTargetPointsOTM              StrikeTargetType = "points_otm"
	StrikeTargetPointsITMFromOpen      StrikeTargetType = "points_itm_from_open"
	StrikeTargetPointsOTMFromOpen      StrikeTargetType = "points_otm_from_open"
	StrikeTargetPercentITMFromOpen     StrikeTargetType = "percent_itm_from_open"
	StrikeTargetPercentOTMFromOpen     StrikeTargetType = "percent_otm_from_open"
	StrikeTargetVerticalWidth          StrikeTargetType = "vertical_width"
	StrikeTargetVerticalWidthExact     StrikeTargetType = "vertical_width_exact"
	StrikeTargetVerticalWidthUnderPct  StrikeTargetType = "vertical_width_underlying_pct"
	StrikeTargetExact                  StrikeTargetType = "exact"
)

// Valid returns true if the StrikeTargetType is one of the defined constants,
// including the degraded unspecified value.
func (t StrikeTargetType) Valid() bool {
	switch t {
	case StrikeTargetUnspecified, StrikeTargetDelta, StrikeTargetPremium,
		StrikeTargetPremiumPctUnderlying, StrikeTargetMinimumPremium,
		StrikeTargetPercentITM, StrikeTargetPercentOTM,
		StrikeTargetPointsITM, StrikeTargetPointsOTM,
		StrikeTargetPointsITMFromOpen, StrikeTargetPointsOTMFromOpen,
		StrikeTargetPercentITMFromOpen, StrikeTargetPercentOTMFromOpen,
		StrikeTargetVerticalWidth, StrikeTargetVerticalWidthExact,
		StrikeTargetVerticalWidthUnderPct, StrikeTargetExact:
		return true
	default:
		return false
	}
}

// OptionRight is the contract right, call or put.
type OptionRight string

// Option rights.
const (
	RightCall OptionRight = "call"
	RightPut  OptionRight = "put"
)

// Valid returns true if the OptionRight is call or put.
func (r OptionRight) Valid() bool {
	return r == RightCall || r == RightPut
}

// LegSide is the position direction of a leg.
type LegSide string

// Leg sides.
const (
	SideLong  LegSide = "long"
	SideShort LegSide = "short"
)

// Valid returns true if the LegSide is long or short.
func (s LegSide) Valid() bool {
	return s == SideLong || s == SideShort
}

// DTEMode selects how the expiration rule is interpreted.
type DTEMode string

// DTE modes.
const (
	DTEExact  DTEMode = "exact"
	DTETarget DTEMode = "target"
)

// Valid returns true if the DTEMode is exact or target.
func (m DTEMode) Valid() bool {
	return m == DTEExact || m == DTETarget
}

// CanonicalLeg is one leg in canonical form. Only the fields relevant to the
// leg's StrikeTargetType are populated; the rest stay zero.
type CanonicalLeg struct {
	StrikeTargetType StrikeTargetType `json:"strike_target_type"`

	TargetDelta float64 `json:"target_delta,omitempty"`
	MinDelta    float64 `json:"min_delta,omitempty"`
	MaxDelta    float64 `json:"max_delta,omitempty"`

	TargetPremium    float64 `json:"target_premium,omitempty"`
	MaxWidth         float64 `json:"max_width,omitempty"`
	TargetPremiumPct float64 `json:"target_premium_pct,omitempty"`

	TargetPercent float64 `json:"target_percent,omitempty"`
	TargetPoints  float64 `json:"target_points,omitempty"`

	VerticalWidth    float64 `json:"vertical_width,omitempty"`
	VerticalWidthPct float64 `json:"vertical_width_pct,omitempty"`

	ExactStrike float64 `json:"exact_strike,omitempty"`

	Right     OptionRight `json:"option_type"`
	Side      LegSide     `json:"long_short"`
	SizeRatio int         `json:"size_ratio"`

	DTEMode  DTEMode `json:"dte_type"`
	DTEValue int     `json:"dte_value"`
	DTEMin   int     `json:"dte_min,omitempty"`
	DTEMax   int     `json:"dte_max,omitempty"`
}

// StrategyParameters is the canonical output of parameter translation.
// It is immutable once produced; the engine never reads the raw configs again.
type StrategyParameters struct {
	Symbol                 string           `json:"symbol"`
	InvestmentPct          float64          `json:"investment_pct"`
	ProfitTargetType       ProfitTargetType `json:"profit_target_type"`
	ProfitTargetValue      float64          `json:"profit_target_value"`
	StopType               StopType         `json:"stop_type"`
	StopValue              float64          `json:"stop_value"`
	DaysBeforeExit         int              `json:"days_before_exit"`
	DisableTargetAfterStop bool             `json:"disable_target_after_stop,omitempty"`
	Legs                   []CanonicalLeg   `json:"legs"`
}
