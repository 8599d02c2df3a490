package orders

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
)

// PaperGateway fills every leg instantly at its expected price. It keeps the
// submitted payloads in memory so tests and the dashboard can inspect them.
type PaperGateway struct {
	mu        sync.Mutex
	logger    *log.Logger
	submitted []map[string]any
	cancelled map[string]bool
}

var _ Gateway = (*PaperGateway)(nil)

func NewPaperGateway(logger *log.Logger) *PaperGateway {
	if logger == nil {
		logger = log.Default()
	}
	return &PaperGateway{
		logger:    logger,
		cancelled: make(map[string]bool),
	}
}

func (g *PaperGateway) SubmitOrders(ctx context.Context, legs []LegOrder) ([]Confirmation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	payload, err := BuildMultiLegPayload(legs)
	if err != nil {
		return nil, fmt.Errorf("paper submit: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.submitted = append(g.submitted, payload)

	confirmations := make([]Confirmation, 0, len(legs))
	for _, leg := range legs {
		id := uuid.NewString()
		g.logger.Printf("paper fill %s %s x%d @ %.2f (order %s)",
			leg.Instruction, leg.Symbol, leg.Quantity, leg.ExpectedPrice, id)
		confirmations = append(confirmations, Confirmation{
			OrderID:   id,
			Symbol:    leg.Symbol,
			Quantity:  leg.Quantity,
			FillPrice: leg.ExpectedPrice,
		})
	}
	return confirmations, nil
}

// CancelOrder never fails: paper fills are immediate, so a cancel only
// records intent.
func (g *PaperGateway) CancelOrder(_ context.Context, orderID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelled[orderID] = true
	return nil
}

// Submitted returns a copy of every payload submitted so far.
func (g *PaperGateway) Submitted() []map[string]any {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]map[string]any, len(g.submitted))
	copy(out, g.submitted)
	return out
}
