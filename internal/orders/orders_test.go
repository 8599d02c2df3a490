package orders

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/mfleur/polyleg/internal/models"
)

func TestBuildMultiLegPayload(t *testing.T) {
	legs := []LegOrder{
		{Symbol: "SPY250718C00455000", Instruction: BuyToOpen, Quantity: 2},
		{Symbol: "SPY250718C00460000", Instruction: SellToOpen, Quantity: 2},
	}
	payload, err := BuildMultiLegPayload(legs)
	if err != nil {
		t.Fatalf("BuildMultiLegPayload: %v", err)
	}

	if got := payload["orderStrategyType"]; got != "MULTI_LEG" {
		t.Errorf("orderStrategyType = %v", got)
	}
	if got := payload["orderType"]; got != "MARKET" {
		t.Errorf("orderType = %v", got)
	}
	collection, ok := payload["orderLegCollection"].([]map[string]any)
	if !ok || len(collection) != 2 {
		t.Fatalf("orderLegCollection = %#v", payload["orderLegCollection"])
	}
	instrument := collection[0]["instrument"].(map[string]any)
	if instrument["assetType"] != "OPTION" {
		t.Errorf("assetType = %v", instrument["assetType"])
	}
	if instrument["symbol"] != "SPY250718C00455000" {
		t.Errorf("symbol = %v", instrument["symbol"])
	}
}

func TestBuildMultiLegPayloadRejectsBadLegs(t *testing.T) {
	cases := []struct {
		name string
		legs []LegOrder
	}{
		{"empty batch", nil},
		{"zero quantity", []LegOrder{{Symbol: "X", Instruction: BuyToOpen, Quantity: 0}}},
		{"unknown instruction", []LegOrder{{Symbol: "X", Instruction: "HOLD", Quantity: 1}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := BuildMultiLegPayload(tc.legs); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestInstructions(t *testing.T) {
	if got := OpeningInstruction(models.SideShort); got != SellToOpen {
		t.Errorf("short open = %v", got)
	}
	if got := OpeningInstruction(models.SideLong); got != BuyToOpen {
		t.Errorf("long open = %v", got)
	}
	if got := ClosingInstruction(-3); got != BuyToClose {
		t.Errorf("short close = %v", got)
	}
	if got := ClosingInstruction(3); got != SellToClose {
		t.Errorf("long close = %v", got)
	}
}

func TestPaperGatewayFillsAtExpectedPrice(t *testing.T) {
	g := NewPaperGateway(log.New(io.Discard, "", 0))
	legs := []LegOrder{
		{Symbol: "SPY250718P00440000", Instruction: SellToOpen, Quantity: 1, ExpectedPrice: 2.35},
		{Symbol: "SPY250718P00435000", Instruction: BuyToOpen, Quantity: 1, ExpectedPrice: 1.10},
	}

	confs, err := g.SubmitOrders(context.Background(), legs)
	if err != nil {
		t.Fatalf("SubmitOrders: %v", err)
	}
	if len(confs) != len(legs) {
		t.Fatalf("got %d confirmations, want %d", len(confs), len(legs))
	}
	seen := map[string]bool{}
	for i, c := range confs {
		if c.FillPrice != legs[i].ExpectedPrice {
			t.Errorf("leg %d fill = %v, want %v", i, c.FillPrice, legs[i].ExpectedPrice)
		}
		if c.OrderID == "" || seen[c.OrderID] {
			t.Errorf("leg %d order id %q not unique", i, c.OrderID)
		}
		seen[c.OrderID] = true
	}
	if len(g.Submitted()) != 1 {
		t.Errorf("expected one recorded payload, got %d", len(g.Submitted()))
	}
	if err := g.CancelOrder(context.Background(), confs[0].OrderID); err != nil {
		t.Errorf("CancelOrder: %v", err)
	}
}

func TestPaperGatewayRespectsContext(t *testing.T) {
	g := NewPaperGateway(log.New(io.Discard, "", 0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.SubmitOrders(ctx, []LegOrder{{Symbol: "X", Instruction: BuyToOpen, Quantity: 1}}); err == nil {
		t.Error("expected a context error")
	}
}
