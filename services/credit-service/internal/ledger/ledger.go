// Package ledger folds credit transaction amounts into lifetime totals.
package ledger

import "github.com/Faitltd/FAIT-sub003/services/credit-service/internal/domain"

// Reduce sums non-negative amounts into LifetimeEarned and the magnitude of
// negative amounts into LifetimeSpent. It does not derive a balance.
func Reduce(amounts []int64) domain.Totals {
	var t domain.Totals
	for _, a := range amounts {
		if a >= 0 {
			t.LifetimeEarned += a
		} else {
			t.LifetimeSpent -= a
		}
	}
	return t
}
