package admission

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/example/tablegate/internal/domain"
)

func TestBucketForPerHour(t *testing.T) {
	rule := lunchRule("lunch", 0, 5)
	cand := weekendLunchCandidate()
	cand.Time = 12*60 + 45

	b := BucketFor(rule, cand)
	assert.Equal(t, domain.ClockTime(12*60), b.Start, "truncated to the clock hour")
	assert.Equal(t, domain.ClockTime(13*60), b.End)
}

func TestBucketForPerWindow(t *testing.T) {
	rule := lunchRule("lunch", 0, 5)
	rule.LimitType = domain.LimitPerWindow

	b := BucketFor(rule, weekendLunchCandidate())
	assert.Equal(t, rule.TimeStart, b.Start)
	assert.Equal(t, rule.TimeEnd, b.End)
}

func TestBucketForPerDay(t *testing.T) {
	rule := lunchRule("lunch", 0, 5)
	rule.LimitType = domain.LimitPerDay

	b := BucketFor(rule, weekendLunchCandidate())
	assert.Equal(t, domain.ClockTime(0), b.Start)
	assert.Equal(t, domain.EndOfDay, b.End)
}

func TestBucketKeyIncludesDateAndWindow(t *testing.T) {
	rule := lunchRule("lunch", 0, 5)
	b := BucketFor(rule, weekendLunchCandidate())

	key := b.Key()
	assert.Contains(t, key, "2026-09-05")

	other := BucketFor(rule, domain.ReservationCandidate{
		StoreID: "restaurant-002",
		Date:    saturday.AddDate(0, 0, 1),
		Time:    12 * 60,
	})
	assert.NotEqual(t, key, other.Key(), "different days must not share a bucket")
}
