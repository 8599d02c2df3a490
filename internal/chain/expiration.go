package chain

import (
	"time"

	"github.com/mfleur/polyleg/internal/models"
)

// SelectExpiration picks one expiration date for a leg.
//
// Exact mode succeeds only when today+DTEValue exists in the chain for the
// leg's right; there is no fallback date, the caller must abort the entry.
// Target mode collects every expiration whose day count falls within
// [DTEMin, DTEMax] and returns the one closest to DTEValue, ties broken by
// the earlier date.
func SelectExpiration(oc OptionChain, leg models.CanonicalLeg, today time.Time) (time.Time, bool) {
	day := today.UTC().Truncate(24 * time.Hour)

	if leg.DTEMode == models.DTEExact {
		want := day.AddDate(0, 0, leg.DTEValue)
		if oc.HasExpiration(want, leg.Right) {
			return want, true
		}
		return time.Time{}, false
	}

	var best time.Time
	bestDiff := -1
	for _, exp := range oc.Expirations(leg.Right) {
		dte := int(exp.Sub(day).Hours() / 24)
		if dte < leg.DTEMin || dte > leg.DTEMax {
			continue
		}
		diff := dte - leg.DTEValue
		if diff < 0 {
			diff = -diff
		}
		// Expirations iterate ascending, so on a tie the earlier date is
		// already in place.
		if bestDiff < 0 || diff < bestDiff {
			best = exp
			bestDiff = diff
		}
	}
	if bestDiff < 0 {
		return time.Time{}, false
	}
	return best, true
}
