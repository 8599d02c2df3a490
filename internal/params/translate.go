// Package params translates loosely-typed, versioned bot and strategy
// configuration into the canonical StrategyParameters the engine runs on.
// Every legacy string literal is mapped exactly once here; nothing downstream
// branches on user-facing spellings.
package params

import (
	"encoding/json"
	"strings"

	"github.com/mfleur/polyleg/internal/models"
)

// defaultInvestmentPct is applied when a bot record predates the
// investment_pct field.
const defaultInvestmentPct = 0.10

// defaultDaysBeforeExit is the failsafe time exit for bots that never set
// exit_at_set_time: close when any leg reaches 5 DTE.
const defaultDaysBeforeExit = 5

// Translate converts a bot/strategy pair into canonical parameters. It is
// deterministic and total: malformed or "DISABLED" fields degrade to explicit
// none/default values, unknown enum literals degrade rather than error, and
// fields absent from older config versions are treated as unset.
func Translate(bot models.BotConfig, strategy models.StrategyConfig) models.StrategyParameters {
	p := models.StrategyParameters{
		Symbol:           strategy.Symbol,
		InvestmentPct:    bot.InvestmentPct,
		ProfitTargetType: models.ProfitTargetNone,
		StopType:         models.StopNone,
	}
	if p.InvestmentPct <= 0 || p.InvestmentPct > 1 {
		p.InvestmentPct = defaultInvestmentPct
	}

	translateProfitTarget(&p, bot.TradeExit)
	translateStop(&p, bot.TradeStop, bot.TradeExit)

	p.DaysBeforeExit = defaultDaysBeforeExit
	if exitDays := blobTuple(bot.TradeExit, "exit_at_set_time"); len(exitDays) > 0 {
		p.DaysBeforeExit = int(exitDays[0])
	}
	if v, ok := blobBool(bot.TradeStop, "disable_target_after_stop"); ok {
		p.DisableTargetAfterStop = v
	} else if v, ok := blobBool(bot.TradeExit, "disable_target_after_stop"); ok {
		p.DisableTargetAfterStop = v
	}

	p.Legs = make([]models.CanonicalLeg, 0, len(strategy.Legs))
	for _, leg := range strategy.Legs {
		p.Legs = append(p.Legs, translateLeg(leg))
	}

	return p
}

func translateProfitTarget(p *models.StrategyParameters, tradeExit map[string]any) {
	switch blobString(tradeExit, "profit_target_type") {
	case "FIXED CLOSING CREDIT TARGET":
		p.ProfitTargetType = models.ProfitTargetFixedClosing
	case "FIXED NET PROFIT TARGET":
		p.ProfitTargetType = models.ProfitTargetFixedNet
	case "PERCENT PROFIT TARGET":
		p.ProfitTargetType = models.ProfitTargetPercent
	default:
		// "DISABLED", missing, or an unknown literal from a newer client.
		p.ProfitTargetType = models.ProfitTargetNone
		return
	}
	p.ProfitTargetValue, _ = blobFloat(tradeExit, "profit_target_value")
}

func translateStop(p *models.StrategyParameters, tradeStop, tradeExit map[string]any) {
	// Older bot versions kept the stop family inside trade_exit.
	blob := tradeStop
	if blobString(blob, "stop_loss_type") == "" {
		blob = tradeExit
	}

	switch blobString(blob, "stop_loss_type") {
	case "PERCENT LOSS":
		p.StopType = models.StopPercentLoss
	case "DOLLAR LOSS":
		p.StopType = models.StopDollarLoss
	case "UNDERLYING POINTS":
		p.StopType = models.StopUnderlyingPoints
	case "UNDERLYING PERCENT":
		p.StopType = models.StopUnderlyingPercent
	case "FIXED DELTA":
		p.StopType = models.StopDelta
	case "RELATIVE DELTA":
		p.StopType = models.StopRelativeDelta
	default:
		p.StopType = models.StopNone
		return
	}
	p.StopValue, _ = blobFloat(blob, "stop_value")
}

func translateLeg(leg models.LegConfig) models.CanonicalLeg {
	out := models.CanonicalLeg{
		SizeRatio: leg.SizeRatio,
	}
	if out.SizeRatio < 1 {
		out.SizeRatio = 1
	}

	tv := leg.StrikeTargetValue
	switch leg.StrikeTargetType {
	case "Delta":
		out.StrikeTargetType = models.StrikeTargetDelta
		// Legacy tuple layout for delta rules is [min, target, max].
		out.MinDelta = models.TupleValue(tv, 0)
		out.TargetDelta = models.TupleValue(tv, 1)
		out.MaxDelta = models.TupleValue(tv, 2)
	case "Premium":
		out.StrikeTargetType = models.StrikeTargetPremium
		out.TargetPremium = models.TupleValue(tv, 0)
		out.MaxWidth = models.TupleValue(tv, 2)
	case "Premium as % of Underlying":
		out.StrikeTargetType = models.StrikeTargetPremiumPctUnderlying
		out.TargetPremiumPct = models.TupleValue(tv, 0)
	case "Minium Premium", "Minimum Premium":
		// The legacy literal carries a typo; accept the corrected spelling too.
		out.StrikeTargetType = models.StrikeTargetMinimumPremium
		out.TargetPremium = models.TupleValue(tv, 0)
	case "Percent ITM":
		out.StrikeTargetType = models.StrikeTargetPercentITM
		out.TargetPercent = models.TupleValue(tv, 0)
	case "Percent OTM":
		out.StrikeTargetType = models.StrikeTargetPercentOTM
		out.TargetPercent = models.TupleValue(tv, 0)
	case "Points ITM":
		out.StrikeTargetType = models.StrikeTargetPointsITM
		out.TargetPoints = models.TupleValue(tv, 0)
	case "Points OTM":
		out.StrikeTargetType = models.StrikeTargetPointsOTM
		out.TargetPoints = models.TupleValue(tv, 0)
	case "Points ITM from Open":
		out.StrikeTargetType = models.StrikeTargetPointsITMFromOpen
		out.TargetPoints = models.TupleValue(tv, 0)
	case "Points OTM from Open":
		out.StrikeTargetType = models.StrikeTargetPointsOTMFromOpen
		out.TargetPoints = models.TupleValue(tv, 0)
	case "Percent ITM from Open":
		out.StrikeTargetType = models.StrikeTargetPercentITMFromOpen
		out.TargetPercent = models.TupleValue(tv, 0)
	case "Percent OTM from Open":
		out.StrikeTargetType = models.StrikeTargetPercentOTMFromOpen
		out.TargetPercent = models.TupleValue(tv, 0)
	case "Vertical Width":
		out.StrikeTargetType = models.StrikeTargetVerticalWidth
		out.VerticalWidth = models.TupleValue(tv, 0)
	case "Vertical Width (Exact)":
		out.StrikeTargetType = models.StrikeTargetVerticalWidthExact
		out.VerticalWidth = models.TupleValue(tv, 0)
	case "Vertical Width (Underlying %)":
		out.StrikeTargetType = models.StrikeTargetVerticalWidthUnderPct
		out.VerticalWidthPct = models.TupleValue(tv, 0)
	case "Exact":
		out.StrikeTargetType = models.StrikeTargetExact
		out.ExactStrike = models.TupleValue(tv, 0)
	default:
		// Unknown rule from a newer client. Contract selection fails such a
		// leg explicitly; translation stays total.
		out.StrikeTargetType = models.StrikeTargetUnspecified
	}

	if strings.EqualFold(leg.OptionType, "PUT") {
		out.Right = models.RightPut
	} else {
		out.Right = models.RightCall
	}
	if strings.EqualFold(leg.LongOrShort, "LONG") {
		out.Side = models.SideLong
	} else {
		out.Side = models.SideShort
	}

	dte := leg.DaysToExpirationValue
	out.DTEValue = int(models.TupleValue(dte, 0))
	if leg.DaysToExpirationType == "Exact" {
		out.DTEMode = models.DTEExact
	} else {
		out.DTEMode = models.DTETarget
		out.DTEMin = int(models.TupleValue(dte, 1))
		out.DTEMax = int(models.TupleValue(dte, 2))
		if out.DTEMin <= 0 {
			out.DTEMin = out.DTEValue - 10
			if out.DTEMin < 1 {
				out.DTEMin = 1
			}
		}
		if out.DTEMax <= 0 {
			out.DTEMax = out.DTEValue + 10
		}
	}

	return out
}

func blobString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func blobFloat(m map[string]any, key string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func blobBool(m map[string]any, key string) (bool, bool) {
	if m == nil {
		return false, false
	}
	if b, ok := m[key].(bool); ok {
		return b, true
	}
	return false, false
}

func blobTuple(m map[string]any, key string) []float64 {
	if m == nil {
		return nil
	}
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]float64, 0, len(raw))
	for _, e := range raw {
		switch v := e.(type) {
		case float64:
			out = append(out, v)
		case int:
			out = append(out, float64(v))
		case json.Number:
			f, err := v.Float64()
			if err != nil {
				return nil
			}
			out = append(out, f)
		default:
			return nil
		}
	}
	return out
}
