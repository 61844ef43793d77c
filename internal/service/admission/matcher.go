package admission

import (
	"slices"
	"sort"

	"github.com/example/tablegate/internal/domain"
)

// Match selects the rules that apply to the candidate and returns them
// in evaluation order: priority descending, then created_at ascending,
// then id ascending. The ordering is load-bearing: the evaluator stops
// at the first violated rule, so it must be deterministic for identical
// inputs.
func Match(c domain.ReservationCandidate, rules []domain.CapacityRule) []domain.CapacityRule {
	matched := make([]domain.CapacityRule, 0, len(rules))

	for _, r := range rules {
		if !r.Active || r.StoreID != c.StoreID {
			continue
		}

		if !r.AppliesOn(c.Weekday()) {
			continue
		}

		if !r.CoversTime(c.Time) {
			continue
		}

		if !scopeMatches(r, c) {
			continue
		}

		matched = append(matched, r)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	return matched
}

// scopeMatches reports whether the candidate falls under the rule's
// scope. A non-store scope with no scope ids covers the whole store.
func scopeMatches(r domain.CapacityRule, c domain.ReservationCandidate) bool {
	if r.ScopeType == domain.ScopeStore || len(r.ScopeIDs) == 0 {
		return true
	}

	v := c.ScopeValue(r.ScopeType)
	if v == "" {
		return false
	}

	return slices.Contains(r.ScopeIDs, v)
}
