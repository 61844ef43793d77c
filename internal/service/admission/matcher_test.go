package admission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/tablegate/internal/domain"
)

// 2026-09-05 is a Saturday.
var saturday = time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC)

func weekendLunchCandidate() domain.ReservationCandidate {
	return domain.ReservationCandidate{
		StoreID: "restaurant-002",
		Date:    saturday,
		Time:    12 * 60,
		People:  2,
	}
}

func TestMatchFilters(t *testing.T) {
	base := domain.CapacityRule{
		StoreID:    "restaurant-002",
		ScopeType:  domain.ScopeStore,
		TimeStart:  11 * 60,
		TimeEnd:    15 * 60,
		LimitType:  domain.LimitPerHour,
		LimitValue: 5,
		Active:     true,
	}

	inactive := base
	inactive.ID = "inactive"
	inactive.Active = false

	otherStore := base
	otherStore.ID = "other-store"
	otherStore.StoreID = "restaurant-001"

	weekdayOnly := base
	weekdayOnly.ID = "weekday-only"
	weekdayOnly.Weekdays = []time.Weekday{time.Monday, time.Tuesday}

	dinner := base
	dinner.ID = "dinner"
	dinner.TimeStart, dinner.TimeEnd = 17*60, 21*60

	counterSeats := base
	counterSeats.ID = "counter-seats"
	counterSeats.ScopeType = domain.ScopeSeatType
	counterSeats.ScopeIDs = []string{"counter"}

	applies := base
	applies.ID = "applies"

	matched := Match(weekendLunchCandidate(), []domain.CapacityRule{
		inactive, otherStore, weekdayOnly, dinner, counterSeats, applies,
	})

	require.Len(t, matched, 1)
	assert.Equal(t, "applies", matched[0].ID)
}

func TestMatchEmptyWeekdaysCoverEveryDay(t *testing.T) {
	rule := domain.CapacityRule{
		ID:         "everyday",
		StoreID:    "restaurant-002",
		ScopeType:  domain.ScopeStore,
		TimeStart:  0,
		TimeEnd:    domain.EndOfDay,
		LimitType:  domain.LimitPerDay,
		LimitValue: 20,
		Active:     true,
	}

	cand := weekendLunchCandidate()
	for d := 0; d < 7; d++ {
		cand.Date = saturday.AddDate(0, 0, d)
		assert.Len(t, Match(cand, []domain.CapacityRule{rule}), 1, "day offset %d", d)
	}
}

func TestMatchWindowBoundaries(t *testing.T) {
	rule := domain.CapacityRule{
		ID:         "lunch",
		StoreID:    "restaurant-002",
		ScopeType:  domain.ScopeStore,
		TimeStart:  11 * 60,
		TimeEnd:    15 * 60,
		LimitType:  domain.LimitPerWindow,
		LimitValue: 10,
		Active:     true,
	}

	cand := weekendLunchCandidate()

	cand.Time = 11 * 60
	assert.Len(t, Match(cand, []domain.CapacityRule{rule}), 1, "window start is inside")

	cand.Time = 15 * 60
	assert.Empty(t, Match(cand, []domain.CapacityRule{rule}), "window end is outside")
}

func TestMatchScopeNarrowing(t *testing.T) {
	rule := domain.CapacityRule{
		ID:         "staff-tanaka",
		StoreID:    "restaurant-002",
		ScopeType:  domain.ScopeStaff,
		ScopeIDs:   []string{"tanaka"},
		TimeStart:  0,
		TimeEnd:    domain.EndOfDay,
		LimitType:  domain.LimitPerDay,
		LimitValue: 8,
		Active:     true,
	}

	cand := weekendLunchCandidate()

	cand.Staff = "tanaka"
	assert.Len(t, Match(cand, []domain.CapacityRule{rule}), 1)

	cand.Staff = "suzuki"
	assert.Empty(t, Match(cand, []domain.CapacityRule{rule}))

	// A candidate without the attribute cannot consume scoped capacity.
	cand.Staff = ""
	assert.Empty(t, Match(cand, []domain.CapacityRule{rule}))

	// A scoped rule with no ids covers the whole store.
	rule.ScopeIDs = nil
	assert.Len(t, Match(cand, []domain.CapacityRule{rule}), 1)
}

func TestMatchOrderingIsDeterministic(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mk := func(id string, priority int, createdAt time.Time) domain.CapacityRule {
		return domain.CapacityRule{
			ID:         id,
			StoreID:    "restaurant-002",
			ScopeType:  domain.ScopeStore,
			TimeStart:  0,
			TimeEnd:    domain.EndOfDay,
			LimitType:  domain.LimitPerDay,
			LimitValue: 10,
			Active:     true,
			Priority:   priority,
			CreatedAt:  createdAt,
		}
	}

	rules := []domain.CapacityRule{
		mk("b", 5, created.Add(time.Hour)),
		mk("c", 10, created),
		mk("a", 5, created.Add(time.Hour)),
		mk("d", 5, created),
	}

	for i := 0; i < 5; i++ {
		matched := Match(weekendLunchCandidate(), rules)
		ids := make([]string, len(matched))
		for j, r := range matched {
			ids[j] = r.ID
		}
		// priority desc, then created_at asc, then id asc
		assert.Equal(t, []string{"c", "d", "a", "b"}, ids)
	}
}
