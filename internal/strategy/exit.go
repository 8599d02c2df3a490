package strategy

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/mfleur/polyleg/internal/chain"
	"github.com/mfleur/polyleg/internal/marketdata"
	"github.com/mfleur/polyleg/internal/models"
	"github.com/mfleur/polyleg/internal/util"
)

// Evaluator decides each tick whether an open position should be held or
// closed. Checks run profit, then stop, then time; the first match wins and
// closes every leg.
type Evaluator struct {
	provider marketdata.Provider
	logger   *log.Logger
}

func NewEvaluator(provider marketdata.Provider, logger *log.Logger) *Evaluator {
	if logger == nil {
		logger = log.Default()
	}
	return &Evaluator{provider: provider, logger: logger}
}

// Evaluate prices every leg and applies the exit rules. stopFired reports
// whether a stop already closed a position earlier in this task, which
// disables the profit target when the parameters say so. A data error
// returns Hold so the caller retries next tick.
func (e *Evaluator) Evaluate(ctx context.Context, positions []models.OpenPosition,
	params models.StrategyParameters, today time.Time, stopFired bool) (models.ExitDecision, string, error) {
	if len(positions) == 0 {
		return models.DecisionHold, "no open positions", nil
	}

	prices := make([]float64, len(positions))
	for i, pos := range positions {
		quote, err := e.provider.GetQuote(ctx, pos.Symbol)
		if err != nil {
			return models.DecisionHold, "", fmt.Errorf("quote %s: %w", pos.Symbol, err)
		}
		price := util.TradablePrice(quote.Bid, quote.Ask, quote.Last)
		if price <= 0 {
			return models.DecisionHold, "", fmt.Errorf("%w: no tradable price for %s",
				marketdata.ErrDataUnavailable, pos.Symbol)
		}
		prices[i] = price
	}

	var entryValue, profitDollar float64
	for i := range positions {
		entryValue += positions[i].EntryValue()
		profitDollar += (prices[i] - positions[i].EntryPrice) *
			float64(positions[i].Quantity) * models.SharesPerContract
	}
	profitPct, havePct := 0.0, false
	if entryValue > 0 {
		profitPct, havePct = profitDollar/entryValue, true
	}

	targetDisabled := params.DisableTargetAfterStop && stopFired
	if !targetDisabled {
		if reason, hit := profitTargetHit(positions, prices, params, profitDollar, profitPct, havePct); hit {
			return models.DecisionCloseProfit, reason, nil
		}
	}

	reason, hit, err := e.stopHit(ctx, positions, params, profitDollar, profitPct, havePct)
	if err != nil {
		return models.DecisionHold, "", err
	}
	if hit {
		return models.DecisionCloseStop, reason, nil
	}

	minDTE := positions[0].DTE(today)
	for _, pos := range positions[1:] {
		if dte := pos.DTE(today); dte < minDTE {
			minDTE = dte
		}
	}
	if minDTE <= params.DaysBeforeExit {
		return models.DecisionCloseTime,
			fmt.Sprintf("%d DTE at or below exit window %d", minDTE, params.DaysBeforeExit), nil
	}

	return models.DecisionHold, fmt.Sprintf("profit %.2f, %d DTE", profitDollar, minDTE), nil
}

func profitTargetHit(positions []models.OpenPosition, prices []float64,
	params models.StrategyParameters, profitDollar, profitPct float64, havePct bool) (string, bool) {
	switch params.ProfitTargetType {
	case models.ProfitTargetPercent:
		if havePct && profitPct >= params.ProfitTargetValue {
			return fmt.Sprintf("profit %.1f%% at target %.1f%%",
				profitPct*100, params.ProfitTargetValue*100), true
		}
	case models.ProfitTargetFixedNet:
		if profitDollar >= params.ProfitTargetValue {
			return fmt.Sprintf("net profit %.2f at target %.2f",
				profitDollar, params.ProfitTargetValue), true
		}
	case models.ProfitTargetFixedClosing:
		// Every long leg and every short leg must price at or above the
		// target simultaneously. Short legs do not invert.
		for i := range positions {
			if prices[i] < params.ProfitTargetValue {
				return "", false
			}
		}
		return fmt.Sprintf("all legs at or above closing target %.2f", params.ProfitTargetValue), true
	}
	return "", false
}

// stopHit evaluates the stop rule. Underlying- and delta-based stops need
// fresh market data; a fetch failure propagates so the tick holds.
func (e *Evaluator) stopHit(ctx context.Context, positions []models.OpenPosition,
	params models.StrategyParameters, profitDollar, profitPct float64, havePct bool) (string, bool, error) {
	switch params.StopType {
	case models.StopPercentLoss:
		if havePct && profitPct <= -params.StopValue {
			return fmt.Sprintf("loss %.1f%% at stop %.1f%%",
				-profitPct*100, params.StopValue*100), true, nil
		}

	case models.StopDollarLoss:
		if profitDollar <= -params.StopValue {
			return fmt.Sprintf("loss %.2f at stop %.2f", -profitDollar, params.StopValue), true, nil
		}

	case models.StopUnderlyingPoints, models.StopUnderlyingPercent:
		entrySpot := positions[0].EntrySpot
		if entrySpot <= 0 {
			return "", false, nil
		}
		quote, err := e.provider.GetQuote(ctx, positions[0].Underlying)
		if err != nil {
			return "", false, fmt.Errorf("underlying quote %s: %w", positions[0].Underlying, err)
		}
		spot := util.TradablePrice(quote.Bid, quote.Ask, quote.Last)
		if spot <= 0 {
			return "", false, fmt.Errorf("%w: no tradable price for %s",
				marketdata.ErrDataUnavailable, positions[0].Underlying)
		}
		move := math.Abs(spot - entrySpot)
		threshold := params.StopValue
		if params.StopType == models.StopUnderlyingPercent {
			threshold = entrySpot * params.StopValue
		}
		if move >= threshold {
			return fmt.Sprintf("underlying moved %.2f from entry %.2f, stop %.2f",
				move, entrySpot, threshold), true, nil
		}

	case models.StopDelta, models.StopRelativeDelta:
		return e.deltaStopHit(ctx, positions, params)
	}
	return "", false, nil
}

// deltaStopHit checks short legs against the delta stop: absolute |delta|
// for StopDelta, growth of |delta| over the entry delta for StopRelativeDelta.
func (e *Evaluator) deltaStopHit(ctx context.Context, positions []models.OpenPosition,
	params models.StrategyParameters) (string, bool, error) {
	type key struct {
		expiration string
		right      models.OptionRight
	}
	cache := make(map[key]map[float64]float64)

	for _, pos := range positions {
		if pos.IsLong() {
			continue
		}
		k := key{pos.Expiration.Format(chain.DateFormat), pos.Right}
		deltas, ok := cache[k]
		if !ok {
			var err error
			deltas, err = e.provider.GetStrikeDeltas(ctx, pos.Underlying, pos.Expiration, pos.Right)
			if err != nil {
				return "", false, fmt.Errorf("strike deltas %s %s: %w", pos.Underlying, pos.Right, err)
			}
			cache[k] = deltas
		}
		delta, present := deltas[pos.Strike]
		if !present {
			return "", false, fmt.Errorf("%w: no delta for %s strike %v",
				marketdata.ErrDataUnavailable, pos.Symbol, pos.Strike)
		}

		current := math.Abs(delta)
		switch params.StopType {
		case models.StopDelta:
			if current >= params.StopValue {
				return fmt.Sprintf("short leg %s delta %.2f at stop %.2f",
					pos.Symbol, current, params.StopValue), true, nil
			}
		case models.StopRelativeDelta:
			entry := math.Abs(pos.EntryDelta)
			if entry > 0 && current-entry >= params.StopValue {
				return fmt.Sprintf("short leg %s delta grew %.2f from entry %.2f, stop %.2f",
					pos.Symbol, current-entry, entry, params.StopValue), true, nil
			}
		}
	}
	return "", false, nil
}
