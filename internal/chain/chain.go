// Package chain models option chains and implements expiration and contract
// selection for strategy legs. Both selectors are pure functions over chain
// data: they never substitute a different answer when the requested one is
// unavailable, they fail explicitly and let the caller abort the entry.
package chain

import (
	"sort"
	"strings"
	"time"

	"github.com/mfleur/polyleg/internal/models"
)

// DateFormat is the expiration date layout used in chain keys.
const DateFormat = "2006-01-02"

// ContractQuote is one option contract's quote inside a chain snapshot.
type ContractQuote struct {
	Symbol string             `json:"symbol"`
	Bid    float64            `json:"bid"`
	Ask    float64            `json:"ask"`
	Mark   float64            `json:"mark"`
	Last   float64            `json:"last"`
	Delta  float64            `json:"delta,omitempty"`
	Right  models.OptionRight `json:"putCall"`
}

// ExpirationSlice holds the contracts of one expiration, per right and strike.
type ExpirationSlice struct {
	Calls map[float64][]ContractQuote `json:"calls"`
	Puts  map[float64][]ContractQuote `json:"puts"`
}

func (s ExpirationSlice) byRight(right models.OptionRight) map[float64][]ContractQuote {
	if right == models.RightPut {
		return s.Puts
	}
	return s.Calls
}

// OptionChain maps an expiration-date string to that expiration's contracts.
// Keys may carry a settlement-type suffix ("2024-08-16:5", Schwab style);
// every lookup normalizes by splitting on the colon.
type OptionChain map[string]ExpirationSlice

// NormalizeExpirationKey strips a settlement-type suffix from a chain key.
func NormalizeExpirationKey(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i]
	}
	return key
}

// Expirations returns the parseable expiration dates that have at least one
// strike for the given right, ascending. Malformed keys are skipped.
func (oc OptionChain) Expirations(right models.OptionRight) []time.Time {
	seen := make(map[time.Time]bool)
	for key, slice := range oc {
		if len(slice.byRight(right)) == 0 {
			continue
		}
		exp, err := time.Parse(DateFormat, NormalizeExpirationKey(key))
		if err != nil {
			continue
		}
		seen[exp] = true
	}
	out := make([]time.Time, 0, len(seen))
	for exp := range seen {
		out = append(out, exp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// HasExpiration reports whether the chain carries the exact expiration date
// for the given right.
func (oc OptionChain) HasExpiration(expiration time.Time, right models.OptionRight) bool {
	return len(oc.slice(expiration, right)) > 0
}

// Strikes returns the sorted strikes available at an expiration for a right.
func (oc OptionChain) Strikes(expiration time.Time, right models.OptionRight) []float64 {
	byStrike := oc.slice(expiration, right)
	out := make([]float64, 0, len(byStrike))
	for strike := range byStrike {
		out = append(out, strike)
	}
	sort.Float64s(out)
	return out
}

// Quotes returns the contracts at one expiration/right/strike.
func (oc OptionChain) Quotes(expiration time.Time, right models.OptionRight, strike float64) []ContractQuote {
	return oc.slice(expiration, right)[strike]
}

func (oc OptionChain) slice(expiration time.Time, right models.OptionRight) map[float64][]ContractQuote {
	want := expiration.Format(DateFormat)
	for key, slice := range oc {
		if NormalizeExpirationKey(key) != want {
			continue
		}
		if byStrike := slice.byRight(right); len(byStrike) > 0 {
			return byStrike
		}
	}
	return nil
}
