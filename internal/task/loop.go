package task

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mfleur/polyleg/internal/marketdata"
	"github.com/mfleur/polyleg/internal/models"
	"github.com/mfleur/polyleg/internal/orders"
	"github.com/mfleur/polyleg/internal/params"
	"github.com/mfleur/polyleg/internal/storage"
	"github.com/mfleur/polyleg/internal/strategy"
	"github.com/mfleur/polyleg/internal/util"
)

// Loop is one bot's trading loop. Each iteration honors both cancellation
// layers (job context, persisted is_active flag), then runs a single
// entry-or-exit cycle against fresh market data. Market failures log and
// wait for the next tick; persistence failures end the task.
type Loop struct {
	store    storage.Store
	provider marketdata.Provider
	gateway  orders.Gateway
	planner  *strategy.Planner
	exits    *strategy.Evaluator
	logger   *log.Logger

	tickInterval  time.Duration
	availableCash float64

	// per-run state, owned by the single loop goroutine
	positions []models.OpenPosition
	stopFired bool
}

func NewLoop(store storage.Store, provider marketdata.Provider, gateway orders.Gateway,
	planner *strategy.Planner, exits *strategy.Evaluator, logger *log.Logger,
	tickInterval time.Duration, availableCash float64) *Loop {
	if logger == nil {
		logger = log.Default()
	}
	if tickInterval <= 0 {
		tickInterval = time.Minute
	}
	return &Loop{
		store:         store,
		provider:      provider,
		gateway:       gateway,
		planner:       planner,
		exits:         exits,
		logger:        logger,
		tickInterval:  tickInterval,
		availableCash: availableCash,
	}
}

// Run drives the loop until the task is stopped, revoked, or hits a fatal
// persistence error. The returned error is nil for every cooperative stop.
func (l *Loop) Run(ctx context.Context, botID, taskID string) error {
	l.positions = nil
	l.stopFired = false

	ticker := time.NewTicker(l.tickInterval)
	defer ticker.Stop()

	for {
		if err := ctx.Err(); err != nil {
			l.logger.Printf("task %s: revoked", taskID)
			return nil
		}

		// The persisted flag is the authoritative stop signal; re-read it
		// before doing anything market-affecting.
		active, err := l.taskActive(ctx, taskID)
		if err != nil {
			return err
		}
		if !active {
			l.logger.Printf("task %s: deactivated, stopping", taskID)
			return nil
		}

		if err := l.tick(ctx, botID, taskID); err != nil {
			l.logger.Printf("task %s: fatal: %v", taskID, err)
			return err
		}

		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
	}
}

func (l *Loop) taskActive(ctx context.Context, taskID string) (bool, error) {
	t, err := l.store.GetTask(ctx, taskID)
	if errors.Is(err, storage.ErrTaskNotFound) {
		return false, nil
	}
	if err != nil {
		// Cannot trust the stop signal any more, so do not keep trading.
		return false, fmt.Errorf("re-read task: %w", err)
	}
	return t.IsActive, nil
}

// tick runs one entry-or-exit cycle. The returned error is fatal to the
// task; in-cycle market failures are logged here and swallowed.
func (l *Loop) tick(ctx context.Context, botID, taskID string) error {
	bot, err := l.store.GetBotConfig(ctx, botID)
	if err != nil {
		return fmt.Errorf("load bot: %w", err)
	}
	strat, err := l.store.GetStrategyConfig(ctx, bot.StrategyID)
	if err != nil {
		return fmt.Errorf("load strategy: %w", err)
	}
	p := params.Translate(*bot, *strat)
	today := time.Now().UTC()

	if len(l.positions) == 0 {
		l.tryEnter(ctx, p, today)
		return nil
	}
	return l.tryExit(ctx, p, today, taskID)
}

func (l *Loop) tryEnter(ctx context.Context, p models.StrategyParameters, today time.Time) {
	oc, err := l.provider.GetOptionChain(ctx, p.Symbol)
	if err != nil {
		l.logger.Printf("entry %s: chain: %v", p.Symbol, err)
		return
	}
	legs, positions, err := l.planner.Plan(ctx, oc, p, l.availableCash, today)
	if err != nil {
		l.logger.Printf("entry %s: %v", p.Symbol, err)
		return
	}
	confirmations, err := l.gateway.SubmitOrders(ctx, legs)
	if err != nil {
		l.logger.Printf("entry %s: submit: %v", p.Symbol, err)
		return
	}
	// Fill prices from confirmations are the real cost basis.
	for i := range confirmations {
		if i < len(positions) && confirmations[i].FillPrice > 0 {
			positions[i].EntryPrice = confirmations[i].FillPrice
		}
	}
	l.positions = positions
	l.logger.Printf("entered %d legs on %s", len(positions), p.Symbol)
}

func (l *Loop) tryExit(ctx context.Context, p models.StrategyParameters, today time.Time, taskID string) error {
	decision, reason, err := l.exits.Evaluate(ctx, l.positions, p, today, l.stopFired)
	if err != nil {
		l.logger.Printf("exit %s: %v", p.Symbol, err)
		return nil
	}
	if decision == models.DecisionHold {
		return nil
	}

	closing := make([]orders.LegOrder, 0, len(l.positions))
	for _, pos := range l.positions {
		price := l.closingPrice(ctx, pos)
		closing = append(closing, orders.LegOrder{
			Symbol:        pos.Symbol,
			Instruction:   orders.ClosingInstruction(pos.Quantity),
			Quantity:      pos.AbsQuantity(),
			ExpectedPrice: price,
		})
	}
	confirmations, err := l.gateway.SubmitOrders(ctx, closing)
	if err != nil {
		l.logger.Printf("exit %s: submit: %v", p.Symbol, err)
		return nil
	}

	profit := 0.0
	for i, pos := range l.positions {
		exitPrice := closing[i].ExpectedPrice
		if i < len(confirmations) && confirmations[i].FillPrice > 0 {
			exitPrice = confirmations[i].FillPrice
		}
		profit += (exitPrice - pos.EntryPrice) * float64(pos.Quantity) * models.SharesPerContract
	}

	l.logger.Printf("closed %s (%s): %s, profit %.2f", p.Symbol, decision, reason, profit)
	if decision == models.DecisionCloseStop {
		l.stopFired = true
	}
	l.positions = nil

	if err := l.store.RecordTradeResult(ctx, taskID, profit); err != nil {
		return fmt.Errorf("record trade result: %w", err)
	}
	return nil
}

// closingPrice fetches a tradable exit price, falling back to the entry
// price so a paper close never fills at zero.
func (l *Loop) closingPrice(ctx context.Context, pos models.OpenPosition) float64 {
	quote, err := l.provider.GetQuote(ctx, pos.Symbol)
	if err != nil {
		return pos.EntryPrice
	}
	if price := util.TradablePrice(quote.Bid, quote.Ask, quote.Last); price > 0 {
		return price
	}
	return pos.EntryPrice
}
