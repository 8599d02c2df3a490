package chain

import (
	"math"
	"time"

	"github.com/mfleur/polyleg/internal/models"
)

// strikeEpsilon is the tolerance for treating two strikes as equal.
const strikeEpsilon = 1e-4

// Selection carries the per-tick context a strike rule may need: the
// underlying spot, the session open, the previously resolved leg's strike
// (the anchor for vertical-width rules), and a delta-per-strike lookup
// supplied by the market data provider.
type Selection struct {
	UnderlyingPrice float64
	OpenPrice       float64
	AnchorStrike    float64
	Deltas          map[float64]float64
}

// Contract identifies a selected option contract.
type Contract struct {
	Symbol string
	Strike float64
	Delta  float64
}

// SelectLegContract resolves a leg's strike rule to one contract at the given
// expiration. Every rule follows the same discipline: the closest candidate
// wins, and when no candidate exists the selection fails explicitly so the
// caller can abort the whole entry.
func SelectLegContract(oc OptionChain, expiration time.Time, leg models.CanonicalLeg, sel Selection) (Contract, bool) {
	strikes := oc.Strikes(expiration, leg.Right)
	if len(strikes) == 0 {
		return Contract{}, false
	}

	var strike float64
	var ok bool

	switch leg.StrikeTargetType {
	case models.StrikeTargetExact:
		strike, ok = exactOrNearest(strikes, leg.ExactStrike)

	case models.StrikeTargetDelta:
		strike, ok = byDelta(strikes, sel.Deltas, leg.TargetDelta)

	case models.StrikeTargetPremium:
		strike, ok = byPremium(oc, expiration, leg.Right, strikes, leg.TargetPremium, 0)

	case models.StrikeTargetMinimumPremium:
		strike, ok = byPremium(oc, expiration, leg.Right, strikes, leg.TargetPremium, leg.TargetPremium)

	case models.StrikeTargetPremiumPctUnderlying:
		if sel.UnderlyingPrice <= 0 {
			return Contract{}, false
		}
		target := sel.UnderlyingPrice * leg.TargetPremiumPct
		strike, ok = byPremium(oc, expiration, leg.Right, strikes, target, 0)

	case models.StrikeTargetPointsITM, models.StrikeTargetPointsOTM:
		strike, ok = byOffset(strikes, sel.UnderlyingPrice, leg.Right,
			leg.TargetPoints, leg.StrikeTargetType == models.StrikeTargetPointsITM)

	case models.StrikeTargetPointsITMFromOpen, models.StrikeTargetPointsOTMFromOpen:
		strike, ok = byOffset(strikes, sel.OpenPrice, leg.Right,
			leg.TargetPoints, leg.StrikeTargetType == models.StrikeTargetPointsITMFromOpen)

	case models.StrikeTargetPercentITM, models.StrikeTargetPercentOTM:
		strike, ok = byOffset(strikes, sel.UnderlyingPrice, leg.Right,
			sel.UnderlyingPrice*leg.TargetPercent, leg.StrikeTargetType == models.StrikeTargetPercentITM)

	case models.StrikeTargetPercentITMFromOpen, models.StrikeTargetPercentOTMFromOpen:
		strike, ok = byOffset(strikes, sel.OpenPrice, leg.Right,
			sel.OpenPrice*leg.TargetPercent, leg.StrikeTargetType == models.StrikeTargetPercentITMFromOpen)

	case models.StrikeTargetVerticalWidth:
		strike, ok = byWidth(strikes, sel.AnchorStrike, leg.Right, leg.VerticalWidth, false)

	case models.StrikeTargetVerticalWidthExact:
		strike, ok = byWidth(strikes, sel.AnchorStrike, leg.Right, leg.VerticalWidth, true)

	case models.StrikeTargetVerticalWidthUnderPct:
		if sel.UnderlyingPrice <= 0 {
			return Contract{}, false
		}
		strike, ok = byWidth(strikes, sel.AnchorStrike, leg.Right,
			sel.UnderlyingPrice*leg.VerticalWidthPct, false)

	default:
		// Unspecified rules (degraded translation) never resolve.
		return Contract{}, false
	}

	if !ok {
		return Contract{}, false
	}

	quote, ok := bestQuote(oc.Quotes(expiration, leg.Right, strike))
	if !ok {
		return Contract{}, false
	}
	delta := quote.Delta
	if d, present := sel.Deltas[strike]; present {
		delta = d
	}
	return Contract{Symbol: quote.Symbol, Strike: strike, Delta: delta}, true
}

// exactOrNearest honors the requested strike when listed, otherwise takes the
// nearest listed strike. It only fails on an empty strike list.
func exactOrNearest(strikes []float64, want float64) (float64, bool) {
	for _, s := range strikes {
		if math.Abs(s-want) <= strikeEpsilon {
			return s, true
		}
	}
	return nearest(strikes, want)
}

// byDelta picks the strike whose |delta| is closest to |target|. Strikes
// without delta data are discarded; no usable delta means failure.
func byDelta(strikes []float64, deltas map[float64]float64, target float64) (float64, bool) {
	targetAbs := math.Abs(target)
	best, bestDiff := 0.0, math.MaxFloat64
	found := false
	for _, s := range strikes {
		d, present := deltas[s]
		if !present {
			continue
		}
		diff := math.Abs(math.Abs(d) - targetAbs)
		if diff < bestDiff {
			best, bestDiff = s, diff
			found = true
		}
	}
	return best, found
}

// byPremium picks the strike whose mark is closest to the target premium.
// A positive floor discards candidates priced below it first.
func byPremium(oc OptionChain, expiration time.Time, right models.OptionRight,
	strikes []float64, target, floor float64) (float64, bool) {
	best, bestDiff := 0.0, math.MaxFloat64
	found := false
	for _, s := range strikes {
		quote, ok := bestQuote(oc.Quotes(expiration, right, s))
		if !ok || quote.Mark <= 0 {
			continue
		}
		if floor > 0 && quote.Mark < floor {
			continue
		}
		diff := math.Abs(quote.Mark - target)
		if diff < bestDiff {
			best, bestDiff = s, diff
			found = true
		}
	}
	return best, found
}

// byOffset moves a reference price into or out of the money by an absolute
// amount and takes the nearest strike. ITM means below the reference for
// calls and above it for puts.
func byOffset(strikes []float64, reference float64, right models.OptionRight,
	amount float64, itm bool) (float64, bool) {
	if reference <= 0 {
		return 0, false
	}
	target := reference
	lower := itm
	if right == models.RightPut {
		lower = !itm
	}
	if lower {
		target -= amount
	} else {
		target += amount
	}
	return nearest(strikes, target)
}

// byWidth resolves a vertical-width rule against the anchor strike of the
// previously resolved leg, widening away from the money for the leg's right.
// exact requires the computed strike to be listed.
func byWidth(strikes []float64, anchor float64, right models.OptionRight,
	width float64, exact bool) (float64, bool) {
	if anchor <= 0 {
		return 0, false
	}
	target := anchor + width
	if right == models.RightPut {
		target = anchor - width
	}
	if exact {
		for _, s := range strikes {
			if math.Abs(s-target) <= strikeEpsilon {
				return s, true
			}
		}
		return 0, false
	}
	return nearest(strikes, target)
}

func nearest(strikes []float64, target float64) (float64, bool) {
	if len(strikes) == 0 {
		return 0, false
	}
	best, bestDiff := strikes[0], math.Abs(strikes[0]-target)
	for _, s := range strikes[1:] {
		if diff := math.Abs(s - target); diff < bestDiff {
			best, bestDiff = s, diff
		}
	}
	return best, true
}

// bestQuote picks the cheapest positively-marked quote at a strike, falling
// back to the first quote when no mark is usable.
func bestQuote(quotes []ContractQuote) (ContractQuote, bool) {
	if len(quotes) == 0 {
		return ContractQuote{}, false
	}
	best := quotes[0]
	found := best.Mark > 0
	for _, q := range quotes[1:] {
		if q.Mark > 0 && (!found || q.Mark < best.Mark) {
			best = q
			found = true
		}
	}
	return best, true
}
