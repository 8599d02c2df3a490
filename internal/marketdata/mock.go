package marketdata

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/mfleur/polyleg/internal/chain"
	"github.com/mfleur/polyleg/internal/models"
)

// MockProvider serves a synthetic but internally consistent market: a slowly
// drifting spot, daily bars, and option chains with deltas that decay away
// from the money. Paper mode and tests run against it. One instance is
// shared by every task loop, so all state sits behind the mutex.
type MockProvider struct {
	mu        sync.Mutex
	spot      float64
	openPrice float64
	vol       float64 // annualized volatility used for pricing, e.g. 0.18
	dtes      []int   // expirations offered, days from now
}

var _ Provider = (*MockProvider)(nil)

// secureFloat64 generates a cryptographically secure random float64 in [0, 1).
func secureFloat64() float64 {
	n, err := rand.Int(rand.Reader, big.NewInt(1<<53))
	if err != nil {
		// Fallback to a reasonable default if crypto/rand fails
		return 0.5
	}
	return float64(n.Int64()) / (1 << 53)
}

// NewMockProvider seeds a provider with a spot around 450-460.
func NewMockProvider() *MockProvider {
	spot := 450.0 + secureFloat64()*10
	return NewMockProviderAt(spot)
}

// NewMockProviderAt seeds a provider at a fixed spot, for deterministic tests.
func NewMockProviderAt(spot float64) *MockProvider {
	return &MockProvider{
		spot:      spot,
		openPrice: spot,
		vol:       0.18,
		dtes:      []int{7, 14, 21, 30, 45, 60},
	}
}

func (m *MockProvider) GetQuote(_ context.Context, symbol string) (Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Simulate small price movements.
	m.spot += (secureFloat64() - 0.5) * 2

	// Contract symbols quote the option, not the underlying, so the exit
	// rules see option-scale marks.
	if expiration, right, strike, ok := parseOCCSymbol(symbol); ok {
		return m.contractQuote(symbol, expiration, right, strike), nil
	}

	spread := 0.02
	return Quote{
		Symbol: symbol,
		Bid:    m.spot - spread/2,
		Ask:    m.spot + spread/2,
		Last:   m.spot,
		Open:   m.openPrice,
	}, nil
}

// contractQuote prices one contract off the current spot with the same model
// the chain uses. Callers hold m.mu.
func (m *MockProvider) contractQuote(symbol string, expiration time.Time,
	right models.OptionRight, strike float64) Quote {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	dte := int(expiration.Sub(today).Hours() / 24)
	timeValue := math.Max(float64(dte)/365.0, 1.0/365.0)

	intrinsic := math.Max(0, m.spot-strike)
	if right == models.RightPut {
		intrinsic = math.Max(0, strike-m.spot)
	}
	price := m.price(timeValue, m.delta(strike, right), intrinsic)
	return Quote{
		Symbol: symbol,
		Bid:    price - 0.05,
		Ask:    price + 0.05,
		Last:   price,
		Open:   price,
	}
}

func (m *MockProvider) GetPriceHistory(_ context.Context, _ string, days int) ([]Bar, error) {
	if days <= 0 {
		return nil, fmt.Errorf("%w: non-positive history window", ErrDataUnavailable)
	}
	m.mu.Lock()
	price := m.spot
	m.mu.Unlock()
	bars := make([]Bar, 0, days)
	today := time.Now().UTC().Truncate(24 * time.Hour)
	for i := days - 1; i >= 0; i-- {
		swing := price * m.vol / math.Sqrt(252)
		bars = append(bars, Bar{
			Date:   today.AddDate(0, 0, -i),
			Open:   price - swing/2,
			High:   price + swing,
			Low:    price - swing,
			Close:  price,
			Volume: int64(1e6 + secureFloat64()*1e7),
		})
		price += (secureFloat64() - 0.5) * swing * 2
	}
	return bars, nil
}

func (m *MockProvider) GetOptionChain(_ context.Context, symbol string) (chain.OptionChain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	oc := make(chain.OptionChain, len(m.dtes))
	now := time.Now().UTC()
	for _, dte := range m.dtes {
		expiration := now.AddDate(0, 0, dte)
		oc[expiration.Format(chain.DateFormat)] = m.expirationSlice(symbol, expiration, dte)
	}
	return oc, nil
}

func (m *MockProvider) GetStrikeDeltas(_ context.Context, _ string, _ time.Time,
	right models.OptionRight) (map[float64]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deltas := make(map[float64]float64)
	for _, strike := range m.strikes() {
		deltas[strike] = m.delta(strike, right)
	}
	return deltas, nil
}

// strikes returns the listed grid around the current spot. It and the other
// pricing helpers below read spot, so callers hold m.mu.
func (m *MockProvider) strikes() []float64 {
	const interval = 5.0
	start := math.Floor(m.spot/interval)*interval - 50
	strikes := make([]float64, 0, 21)
	for s := start; s <= start+100; s += interval {
		strikes = append(strikes, s)
	}
	return strikes
}

// delta approximates a Black-Scholes delta by exponential decay away from
// the money. Calls are positive, puts negative.
func (m *MockProvider) delta(strike float64, right models.OptionRight) float64 {
	distance := math.Abs(strike - m.spot)
	decay := math.Exp(-distance * 0.02)

	if right == models.RightPut {
		if strike > m.spot {
			return -0.5 * (2 - decay)
		}
		return -0.5 * decay
	}
	if strike < m.spot {
		return 0.5 * (2 - decay)
	}
	return 0.5 * decay
}

func (m *MockProvider) expirationSlice(symbol string, expiration time.Time, dte int) chain.ExpirationSlice {
	calls := make(map[float64][]chain.ContractQuote)
	puts := make(map[float64][]chain.ContractQuote)
	timeValue := math.Max(float64(dte)/365.0, 1.0/365.0)

	for _, strike := range m.strikes() {
		callDelta := m.delta(strike, models.RightCall)
		putDelta := m.delta(strike, models.RightPut)

		callPrice := m.price(timeValue, callDelta, math.Max(0, m.spot-strike))
		putPrice := m.price(timeValue, putDelta, math.Max(0, strike-m.spot))

		calls[strike] = []chain.ContractQuote{{
			Symbol: occSymbol(symbol, expiration, models.RightCall, strike),
			Bid:    callPrice - 0.05,
			Ask:    callPrice + 0.05,
			Mark:   callPrice,
			Last:   callPrice,
			Delta:  callDelta,
			Right:  models.RightCall,
		}}
		puts[strike] = []chain.ContractQuote{{
			Symbol: occSymbol(symbol, expiration, models.RightPut, strike),
			Bid:    putPrice - 0.05,
			Ask:    putPrice + 0.05,
			Mark:   putPrice,
			Last:   putPrice,
			Delta:  putDelta,
			Right:  models.RightPut,
		}}
	}
	return chain.ExpirationSlice{Calls: calls, Puts: puts}
}

// price combines intrinsic value with a crude time value proportional to
// delta magnitude, floored at 0.05 so every contract stays quotable.
func (m *MockProvider) price(timeValue, delta, intrinsic float64) float64 {
	extrinsic := m.vol * math.Sqrt(timeValue) * m.spot * math.Abs(delta)
	return math.Max(0.05, intrinsic+extrinsic)
}

// parseOCCSymbol recognizes the symbols occSymbol emits: underlying, a
// yymmdd expiration, C or P, and the strike in thousandths padded to eight
// digits. Anything else is treated as an underlying symbol.
func parseOCCSymbol(symbol string) (time.Time, models.OptionRight, float64, bool) {
	if len(symbol) < 16 {
		return time.Time{}, "", 0, false
	}
	strikeThousandths, err := strconv.Atoi(symbol[len(symbol)-8:])
	if err != nil || strikeThousandths < 0 {
		return time.Time{}, "", 0, false
	}
	var right models.OptionRight
	switch symbol[len(symbol)-9] {
	case 'C':
		right = models.RightCall
	case 'P':
		right = models.RightPut
	default:
		return time.Time{}, "", 0, false
	}
	expiration, err := time.Parse("060102", symbol[len(symbol)-15:len(symbol)-9])
	if err != nil {
		return time.Time{}, "", 0, false
	}
	return expiration, right, float64(strikeThousandths) / 1000, true
}

func occSymbol(underlying string, expiration time.Time, right models.OptionRight, strike float64) string {
	letter := "C"
	if right == models.RightPut {
		letter = "P"
	}
	return fmt.Sprintf("%s%s%s%08d", underlying, expiration.Format("060102"), letter, int(strike*1000))
}
