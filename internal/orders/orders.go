// Package orders defines the order gateway boundary and the broker-neutral
// multi-leg order payload. The engine submits all legs of an entry or exit
// together; a gateway that cannot fill every leg must fail the whole batch.
package orders

import (
	"context"
	"fmt"

	"github.com/mfleur/polyleg/internal/models"
)

// Leg instructions, Schwab vocabulary.
const (
	BuyToOpen   = "BUY_TO_OPEN"
	SellToOpen  = "SELL_TO_OPEN"
	BuyToClose  = "BUY_TO_CLOSE"
	SellToClose = "SELL_TO_CLOSE"
)

// LegOrder is one leg of a multi-leg submission.
type LegOrder struct {
	Symbol        string  `json:"symbol"`
	Instruction   string  `json:"instruction"`
	Quantity      int     `json:"quantity"`
	ExpectedPrice float64 `json:"expected_price"`
}

// Confirmation reports one accepted leg.
type Confirmation struct {
	OrderID   string  `json:"order_id"`
	Symbol    string  `json:"symbol"`
	Quantity  int     `json:"quantity"`
	FillPrice float64 `json:"fill_price"`
}

// Gateway submits orders to a broker or a paper simulator.
type Gateway interface {
	// SubmitOrders submits every leg as one batch. Gateways return either a
	// confirmation per leg or an error covering the whole batch.
	SubmitOrders(ctx context.Context, legs []LegOrder) ([]Confirmation, error)

	// CancelOrder cancels a working order by confirmation id.
	CancelOrder(ctx context.Context, orderID string) error
}

// OpeningInstruction returns the opening instruction for a leg side.
func OpeningInstruction(side models.LegSide) string {
	if side == models.SideShort {
		return SellToOpen
	}
	return BuyToOpen
}

// ClosingInstruction returns the instruction that flattens a position with
// the given signed quantity.
func ClosingInstruction(quantity int) string {
	if quantity < 0 {
		return BuyToClose
	}
	return SellToClose
}

// BuildMultiLegPayload renders legs as the broker-neutral MULTI_LEG order
// record: a market day order holding one entry per leg.
func BuildMultiLegPayload(legs []LegOrder) (map[string]any, error) {
	if len(legs) == 0 {
		return nil, fmt.Errorf("multi-leg payload requires at least one leg")
	}
	orderLegs := make([]map[string]any, 0, len(legs))
	for _, leg := range legs {
		if leg.Quantity <= 0 {
			return nil, fmt.Errorf("leg %s: quantity must be positive, got %d", leg.Symbol, leg.Quantity)
		}
		switch leg.Instruction {
		case BuyToOpen, SellToOpen, BuyToClose, SellToClose:
		default:
			return nil, fmt.Errorf("leg %s: unknown instruction %q", leg.Symbol, leg.Instruction)
		}
		orderLegs = append(orderLegs, map[string]any{
			"instruction": leg.Instruction,
			"quantity":    leg.Quantity,
			"instrument": map[string]any{
				"symbol":    leg.Symbol,
				"assetType": "OPTION",
			},
		})
	}
	return map[string]any{
		"orderType":          "MARKET",
		"session":            "NORMAL",
		"duration":           "DAY",
		"orderStrategyType":  "MULTI_LEG",
		"orderLegCollection": orderLegs,
	}, nil
}
