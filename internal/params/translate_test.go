package params

import (
	"testing"

	"github.com/mfleur/polyleg/internal/models"
)

func TestTranslateProfitTargetMapping(t *testing.T) {
	tests := []struct {
		name      string
		tradeExit map[string]any
		wantType  models.ProfitTargetType
		wantValue float64
	}{
		{
			name:     "missing blob",
			wantType: models.ProfitTargetNone,
		},
		{
			name:      "disabled",
			tradeExit: map[string]any{"profit_target_type": "DISABLED", "profit_target_value": 0.5},
			wantType:  models.ProfitTargetNone,
		},
		{
			name:      "percent",
			tradeExit: map[string]any{"profit_target_type": "PERCENT PROFIT TARGET", "profit_target_value": 0.30},
			wantType:  models.ProfitTargetPercent,
			wantValue: 0.30,
		},
		{
			name:      "fixed net",
			tradeExit: map[string]any{"profit_target_type": "FIXED NET PROFIT TARGET", "profit_target_value": 250.0},
			wantType:  models.ProfitTargetFixedNet,
			wantValue: 250.0,
		},
		{
			name:      "fixed closing credit",
			tradeExit: map[string]any{"profit_target_type": "FIXED CLOSING CREDIT TARGET", "profit_target_value": 1.25},
			wantType:  models.ProfitTargetFixedClosing,
			wantValue: 1.25,
		},
		{
			name:      "unknown literal degrades",
			tradeExit: map[string]any{"profit_target_type": "TRAILING PROFIT TARGET", "profit_target_value": 0.4},
			wantType:  models.ProfitTargetNone,
		},
		{
			name:      "non-string type field",
			tradeExit: map[string]any{"profit_target_type": 12, "profit_target_value": "oops"},
			wantType:  models.ProfitTargetNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Translate(models.BotConfig{TradeExit: tt.tradeExit}, models.StrategyConfig{Symbol: "SPY"})
			if p.ProfitTargetType != tt.wantType {
				t.Errorf("ProfitTargetType = %q, want %q", p.ProfitTargetType, tt.wantType)
			}
			if p.ProfitTargetValue != tt.wantValue {
				t.Errorf("ProfitTargetValue = %v, want %v", p.ProfitTargetValue, tt.wantValue)
			}
		})
	}
}

func TestTranslateStopMapping(t *testing.T) {
	tests := []struct {
		name      string
		tradeStop map[string]any
		tradeExit map[string]any
		wantType  models.StopType
		wantValue float64
	}{
		{name: "missing", wantType: models.StopNone},
		{
			name:      "percent loss",
			tradeStop: map[string]any{"stop_loss_type": "PERCENT LOSS", "stop_value": 0.5},
			wantType:  models.StopPercentLoss,
			wantValue: 0.5,
		},
		{
			name:      "dollar loss",
			tradeStop: map[string]any{"stop_loss_type": "DOLLAR LOSS", "stop_value": 400.0},
			wantType:  models.StopDollarLoss,
			wantValue: 400.0,
		},
		{
			name:      "underlying points",
			tradeStop: map[string]any{"stop_loss_type": "UNDERLYING POINTS", "stop_value": 12.0},
			wantType:  models.StopUnderlyingPoints,
			wantValue: 12.0,
		},
		{
			name:      "underlying percent",
			tradeStop: map[string]any{"stop_loss_type": "UNDERLYING PERCENT", "stop_value": 0.03},
			wantType:  models.StopUnderlyingPercent,
			wantValue: 0.03,
		},
		{
			name:      "fixed delta",
			tradeStop: map[string]any{"stop_loss_type": "FIXED DELTA", "stop_value": 0.40},
			wantType:  models.StopDelta,
			wantValue: 0.40,
		},
		{
			name:      "relative delta",
			tradeStop: map[string]any{"stop_loss_type": "RELATIVE DELTA", "stop_value": 0.15},
			wantType:  models.StopRelativeDelta,
			wantValue: 0.15,
		},
		{
			name:      "legacy location inside trade_exit",
			tradeExit: map[string]any{"stop_loss_type": "PERCENT LOSS", "stop_value": 0.75},
			wantType:  models.StopPercentLoss,
			wantValue: 0.75,
		},
		{
			name:      "disabled",
			tradeStop: map[string]any{"stop_loss_type": "DISABLED", "stop_value": 1.0},
			wantType:  models.StopNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bot := models.BotConfig{TradeStop: tt.tradeStop, TradeExit: tt.tradeExit}
			p := Translate(bot, models.StrategyConfig{Symbol: "SPY"})
			if p.StopType != tt.wantType {
				t.Errorf("StopType = %q, want %q", p.StopType, tt.wantType)
			}
			if p.StopValue != tt.wantValue {
				t.Errorf("StopValue = %v, want %v", p.StopValue, tt.wantValue)
			}
		})
	}
}

func TestTranslateLegVariants(t *testing.T) {
	tests := []struct {
		name  string
		leg   models.LegConfig
		check func(t *testing.T, leg models.CanonicalLeg)
	}{
		{
			name: "delta tuple is min target max",
			leg: models.LegConfig{
				StrikeTargetType:  "Delta",
				StrikeTargetValue: []float64{0.10, 0.25, 0.40},
				OptionType:        "CALL",
				LongOrShort:       "LONG",
				SizeRatio:         1,
			},
			check: func(t *testing.T, leg models.CanonicalLeg) {
				if leg.StrikeTargetType != models.StrikeTargetDelta {
					t.Fatalf("type = %q", leg.StrikeTargetType)
				}
				if leg.MinDelta != 0.10 || leg.TargetDelta != 0.25 || leg.MaxDelta != 0.40 {
					t.Errorf("delta unpack = %v/%v/%v", leg.MinDelta, leg.TargetDelta, leg.MaxDelta)
				}
			},
		},
		{
			name: "premium with max width",
			leg: models.LegConfig{
				StrikeTargetType:  "Premium",
				StrikeTargetValue: []float64{1.50, 0, 10},
			},
			check: func(t *testing.T, leg models.CanonicalLeg) {
				if leg.StrikeTargetType != models.StrikeTargetPremium {
					t.Fatalf("type = %q", leg.StrikeTargetType)
				}
				if leg.TargetPremium != 1.50 || leg.MaxWidth != 10 {
					t.Errorf("premium unpack = %v width %v", leg.TargetPremium, leg.MaxWidth)
				}
			},
		},
		{
			name: "legacy minimum premium typo",
			leg: models.LegConfig{
				StrikeTargetType:  "Minium Premium",
				StrikeTargetValue: []float64{0.80},
			},
			check: func(t *testing.T, leg models.CanonicalLeg) {
				if leg.StrikeTargetType != models.StrikeTargetMinimumPremium {
					t.Fatalf("type = %q", leg.StrikeTargetType)
				}
				if leg.TargetPremium != 0.80 {
					t.Errorf("TargetPremium = %v", leg.TargetPremium)
				}
			},
		},
		{
			name: "vertical width underlying pct",
			leg: models.LegConfig{
				StrikeTargetType:  "Vertical Width (Underlying %)",
				StrikeTargetValue: []float64{0.02},
			},
			check: func(t *testing.T, leg models.CanonicalLeg) {
				if leg.StrikeTargetType != models.StrikeTargetVerticalWidthUnderPct {
					t.Fatalf("type = %q", leg.StrikeTargetType)
				}
				if leg.VerticalWidthPct != 0.02 {
					t.Errorf("VerticalWidthPct = %v", leg.VerticalWidthPct)
				}
			},
		},
		{
			name: "exact strike and put short",
			leg: models.LegConfig{
				StrikeTargetType:  "Exact",
				StrikeTargetValue: []float64{455},
				OptionType:        "PUT",
				LongOrShort:       "SHORT",
			},
			check: func(t *testing.T, leg models.CanonicalLeg) {
				if leg.ExactStrike != 455 {
					t.Errorf("ExactStrike = %v", leg.ExactStrike)
				}
				if leg.Right != models.RightPut || leg.Side != models.SideShort {
					t.Errorf("right/side = %q/%q", leg.Right, leg.Side)
				}
			},
		},
		{
			name: "unknown option type defaults to call",
			leg: models.LegConfig{
				StrikeTargetType:  "Exact",
				StrikeTargetValue: []float64{100},
				OptionType:        "WARRANT",
			},
			check: func(t *testing.T, leg models.CanonicalLeg) {
				if leg.Right != models.RightCall {
					t.Errorf("Right = %q, want call", leg.Right)
				}
			},
		},
		{
			name: "exact DTE",
			leg: models.LegConfig{
				StrikeTargetType:      "Exact",
				StrikeTargetValue:     []float64{100},
				DaysToExpirationType:  "Exact",
				DaysToExpirationValue: []float64{30},
			},
			check: func(t *testing.T, leg models.CanonicalLeg) {
				if leg.DTEMode != models.DTEExact || leg.DTEValue != 30 {
					t.Errorf("dte = %q/%d", leg.DTEMode, leg.DTEValue)
				}
			},
		},
		{
			name: "target DTE window",
			leg: models.LegConfig{
				StrikeTargetType:      "Exact",
				StrikeTargetValue:     []float64{100},
				DaysToExpirationType:  "Target",
				DaysToExpirationValue: []float64{30, 20, 40},
			},
			check: func(t *testing.T, leg models.CanonicalLeg) {
				if leg.DTEMode != models.DTETarget || leg.DTEValue != 30 || leg.DTEMin != 20 || leg.DTEMax != 40 {
					t.Errorf("dte = %q %d [%d,%d]", leg.DTEMode, leg.DTEValue, leg.DTEMin, leg.DTEMax)
				}
			},
		},
		{
			name: "target DTE window defaults when truncated",
			leg: models.LegConfig{
				StrikeTargetType:      "Exact",
				StrikeTargetValue:     []float64{100},
				DaysToExpirationType:  "Target",
				DaysToExpirationValue: []float64{30},
			},
			check: func(t *testing.T, leg models.CanonicalLeg) {
				if leg.DTEMin != 20 || leg.DTEMax != 40 {
					t.Errorf("dte window = [%d,%d], want [20,40]", leg.DTEMin, leg.DTEMax)
				}
			},
		},
		{
			name: "unknown strike rule degrades without error",
			leg: models.LegConfig{
				StrikeTargetType:  "Expected Move Multiple",
				StrikeTargetValue: []float64{1.5},
			},
			check: func(t *testing.T, leg models.CanonicalLeg) {
				if leg.StrikeTargetType != models.StrikeTargetUnspecified {
					t.Errorf("type = %q, want unspecified", leg.StrikeTargetType)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Translate(models.BotConfig{}, models.StrategyConfig{
				Symbol: "SPY",
				Legs:   []models.LegConfig{tt.leg},
			})
			if len(p.Legs) != 1 {
				t.Fatalf("got %d legs, want 1", len(p.Legs))
			}
			tt.check(t, p.Legs[0])
		})
	}
}

// Totality: translation must return well-formed enums for arbitrary garbage,
// never panic, and never drop a leg.
func TestTranslateTotality(t *testing.T) {
	bots := []models.BotConfig{
		{},
		{TradeExit: map[string]any{}},
		{TradeExit: map[string]any{"profit_target_type": nil, "exit_at_set_time": "tomorrow"}},
		{TradeStop: map[string]any{"stop_loss_type": []any{"PERCENT LOSS"}}},
		{InvestmentPct: -3, TradeExit: map[string]any{"exit_at_set_time": []any{"five"}}},
		{InvestmentPct: 42},
	}
	strategies := []models.StrategyConfig{
		{},
		{Symbol: "SPY"},
		{Symbol: "QQQ", Legs: []models.LegConfig{{}}},
		{Symbol: "IWM", Legs: []models.LegConfig{
			{StrikeTargetType: "???", OptionType: "???", LongOrShort: "???", SizeRatio: -2},
			{StrikeTargetType: "Delta", StrikeTargetValue: []float64{0.1}},
		}},
	}

	for _, bot := range bots {
		for _, strategy := range strategies {
			p := Translate(bot, strategy)

			if !p.ProfitTargetType.Valid() {
				t.Errorf("invalid ProfitTargetType %q", p.ProfitTargetType)
			}
			if !p.StopType.Valid() {
				t.Errorf("invalid StopType %q", p.StopType)
			}
			if p.InvestmentPct <= 0 || p.InvestmentPct > 1 {
				t.Errorf("InvestmentPct %v out of range", p.InvestmentPct)
			}
			if len(p.Legs) != len(strategy.Legs) {
				t.Errorf("got %d legs, want %d", len(p.Legs), len(strategy.Legs))
			}
			for _, leg := range p.Legs {
				if !leg.StrikeTargetType.Valid() {
					t.Errorf("invalid StrikeTargetType %q", leg.StrikeTargetType)
				}
				if !leg.Right.Valid() {
					t.Errorf("invalid Right %q", leg.Right)
				}
				if !leg.Side.Valid() {
					t.Errorf("invalid Side %q", leg.Side)
				}
				if !leg.DTEMode.Valid() {
					t.Errorf("invalid DTEMode %q", leg.DTEMode)
				}
				if leg.SizeRatio < 1 {
					t.Errorf("SizeRatio %d < 1", leg.SizeRatio)
				}
			}
		}
	}
}

func TestTranslateDaysBeforeExitAndFlag(t *testing.T) {
	bot := models.BotConfig{
		TradeExit: map[string]any{
			"profit_target_type": "PERCENT PROFIT TARGET",
			"profit_target_value": 0.30,
			"exit_at_set_time":   []any{5.0, 0.0, 0.0},
		},
		TradeStop: map[string]any{
			"stop_loss_type":            "DOLLAR LOSS",
			"stop_value":                300.0,
			"disable_target_after_stop": true,
		},
	}
	p := Translate(bot, models.StrategyConfig{Symbol: "SPY"})

	if p.DaysBeforeExit != 5 {
		t.Errorf("DaysBeforeExit = %d, want 5", p.DaysBeforeExit)
	}
	if !p.DisableTargetAfterStop {
		t.Error("DisableTargetAfterStop not carried over")
	}
}

func TestTranslateDaysBeforeExitDefault(t *testing.T) {
	// Legacy bots without exit_at_set_time keep the 5 DTE failsafe.
	p := Translate(models.BotConfig{}, models.StrategyConfig{Symbol: "SPY"})
	if p.DaysBeforeExit != 5 {
		t.Errorf("DaysBeforeExit = %d, want default 5", p.DaysBeforeExit)
	}

	// An explicit zero disables the time exit window.
	p = Translate(models.BotConfig{
		TradeExit: map[string]any{"exit_at_set_time": []any{0.0, 0.0, 0.0}},
	}, models.StrategyConfig{Symbol: "SPY"})
	if p.DaysBeforeExit != 0 {
		t.Errorf("DaysBeforeExit = %d, want explicit 0", p.DaysBeforeExit)
	}
}
