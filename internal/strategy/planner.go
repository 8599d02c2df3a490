// Package strategy holds the entry planner and exit evaluator: the pure
// trading decisions between translated parameters on one side and the order
// gateway on the other.
package strategy

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mfleur/polyleg/internal/chain"
	"github.com/mfleur/polyleg/internal/marketdata"
	"github.com/mfleur/polyleg/internal/models"
	"github.com/mfleur/polyleg/internal/orders"
	"github.com/mfleur/polyleg/internal/util"
)

// DefaultMinNotional is the floor on the investable budget, roughly one
// cheap contract.
const DefaultMinNotional = 100.0

// Planner resolves a strategy's legs into a complete multi-leg entry.
// Planning is all-or-nothing: any unresolved leg abandons the attempt.
type Planner struct {
	provider    marketdata.Provider
	logger      *log.Logger
	minNotional float64
}

func NewPlanner(provider marketdata.Provider, logger *log.Logger, minNotional float64) *Planner {
	if logger == nil {
		logger = log.Default()
	}
	if minNotional <= 0 {
		minNotional = DefaultMinNotional
	}
	return &Planner{provider: provider, logger: logger, minNotional: minNotional}
}

// Plan sizes and resolves every leg against the chain snapshot. It returns
// the orders to submit and the cost-basis positions those fills would open;
// it submits nothing itself.
func (p *Planner) Plan(ctx context.Context, oc chain.OptionChain, params models.StrategyParameters,
	availableCash float64, today time.Time) ([]orders.LegOrder, []models.OpenPosition, error) {
	if len(params.Legs) == 0 {
		return nil, nil, fmt.Errorf("%w: strategy has no legs", ErrLegUnresolved)
	}

	budget := availableCash * params.InvestmentPct
	if budget < p.minNotional {
		return nil, nil, fmt.Errorf("%w: budget %.2f below floor %.2f",
			ErrInsufficientCapital, budget, p.minNotional)
	}

	quote, err := p.provider.GetQuote(ctx, params.Symbol)
	if err != nil {
		return nil, nil, fmt.Errorf("underlying quote %s: %w", params.Symbol, err)
	}
	spot := util.TradablePrice(quote.Bid, quote.Ask, quote.Last)
	if spot <= 0 {
		return nil, nil, fmt.Errorf("%w: no tradable price for %s",
			marketdata.ErrDataUnavailable, params.Symbol)
	}

	// One shared expiration for every leg, from the first leg's rule.
	expiration, ok := chain.SelectExpiration(oc, params.Legs[0], today)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s %s mode, value %d",
			ErrNoExpirationFound, params.Symbol, params.Legs[0].DTEMode, params.Legs[0].DTEValue)
	}

	ratioSum := 0
	for _, leg := range params.Legs {
		ratioSum += leg.SizeRatio
	}
	cashPerUnit := budget / float64(ratioSum)

	sel := chain.Selection{UnderlyingPrice: spot, OpenPrice: quote.Open}
	deltaCache := make(map[models.OptionRight]map[float64]float64)

	planned := make([]orders.LegOrder, 0, len(params.Legs))
	positions := make([]models.OpenPosition, 0, len(params.Legs))

	for i, leg := range params.Legs {
		if !oc.HasExpiration(expiration, leg.Right) {
			return nil, nil, fmt.Errorf("%w: leg %d has no %s contracts at %s",
				ErrLegUnresolved, i, leg.Right, expiration.Format(chain.DateFormat))
		}

		legSel := sel
		legSel.Deltas, err = p.strikeDeltas(ctx, deltaCache, params.Symbol, expiration, leg)
		if err != nil {
			return nil, nil, err
		}

		contract, ok := chain.SelectLegContract(oc, expiration, leg, legSel)
		if !ok {
			return nil, nil, fmt.Errorf("%w: leg %d (%s %s)",
				ErrLegUnresolved, i, leg.StrikeTargetType, leg.Right)
		}

		price := contractPrice(oc, expiration, leg.Right, contract)
		if price <= 0 {
			return nil, nil, fmt.Errorf("%w: leg %d %s has no tradable price",
				ErrLegUnresolved, i, contract.Symbol)
		}

		quantity := int(cashPerUnit * float64(leg.SizeRatio) / (price * models.SharesPerContract))
		if quantity <= 0 {
			return nil, nil, fmt.Errorf("%w: leg %d unaffordable at %.2f with %.2f per unit",
				ErrLegUnresolved, i, price, cashPerUnit)
		}

		signed := quantity
		if leg.Side == models.SideShort {
			signed = -quantity
		}

		planned = append(planned, orders.LegOrder{
			Symbol:        contract.Symbol,
			Instruction:   orders.OpeningInstruction(leg.Side),
			Quantity:      quantity,
			ExpectedPrice: price,
		})
		positions = append(positions, models.OpenPosition{
			Symbol:     contract.Symbol,
			Underlying: params.Symbol,
			Strike:     contract.Strike,
			Expiration: expiration,
			Right:      leg.Right,
			Quantity:   signed,
			EntryPrice: price,
			EntrySpot:  spot,
			EntryDelta: contract.Delta,
		})

		// Width rules on later legs anchor on the leg resolved before them.
		sel.AnchorStrike = contract.Strike
	}

	p.logger.Printf("planned %d-leg entry on %s expiring %s, budget %.2f",
		len(planned), params.Symbol, expiration.Format(chain.DateFormat), budget)
	return planned, positions, nil
}

// strikeDeltas fetches deltas per right once per plan. A fetch failure is
// fatal only for delta strike rules; other rules carry on without deltas.
func (p *Planner) strikeDeltas(ctx context.Context, cache map[models.OptionRight]map[float64]float64,
	symbol string, expiration time.Time, leg models.CanonicalLeg) (map[float64]float64, error) {
	if deltas, ok := cache[leg.Right]; ok {
		return deltas, nil
	}
	deltas, err := p.provider.GetStrikeDeltas(ctx, symbol, expiration, leg.Right)
	if err != nil {
		if leg.StrikeTargetType == models.StrikeTargetDelta {
			return nil, fmt.Errorf("strike deltas for %s %s: %w", symbol, leg.Right, err)
		}
		p.logger.Printf("strike deltas unavailable for %s %s: %v", symbol, leg.Right, err)
		deltas = nil
	}
	cache[leg.Right] = deltas
	return deltas, nil
}

// contractPrice reads the selected contract's quote out of the chain
// snapshot: mid of bid/ask, else last, else the mark.
func contractPrice(oc chain.OptionChain, expiration time.Time, right models.OptionRight,
	contract chain.Contract) float64 {
	for _, q := range oc.Quotes(expiration, right, contract.Strike) {
		if q.Symbol != contract.Symbol {
			continue
		}
		if price := util.TradablePrice(q.Bid, q.Ask, q.Last); price > 0 {
			return price
		}
		return q.Mark
	}
	return 0
}
