package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRule() CapacityRule {
	return CapacityRule{
		ID:         "rule-1",
		StoreID:    "restaurant-002",
		ScopeType:  ScopeStore,
		Weekdays:   []time.Weekday{time.Saturday, time.Sunday},
		TimeStart:  11 * 60,
		TimeEnd:    15 * 60,
		LimitType:  LimitPerHour,
		LimitValue: 5,
		Active:     true,
	}
}

func TestCapacityRuleValidate(t *testing.T) {
	require.NoError(t, validRule().Validate())

	t.Run("zero limit is a hard stop, not invalid", func(t *testing.T) {
		r := validRule()
		r.LimitValue = 0
		assert.NoError(t, r.Validate())
	})

	t.Run("negative limit", func(t *testing.T) {
		r := validRule()
		r.LimitValue = -1
		var verr *ValidationError
		require.ErrorAs(t, r.Validate(), &verr)
		assert.Equal(t, "limit_value", verr.Field)
	})

	t.Run("empty window", func(t *testing.T) {
		r := validRule()
		r.TimeStart, r.TimeEnd = 15*60, 15*60
		assert.Error(t, r.Validate())
	})

	t.Run("window wrapping midnight", func(t *testing.T) {
		r := validRule()
		r.TimeStart, r.TimeEnd = 22*60, 26*60
		assert.Error(t, r.Validate())
	})

	t.Run("missing store", func(t *testing.T) {
		r := validRule()
		r.StoreID = ""
		assert.Error(t, r.Validate())
	})

	t.Run("unknown scope type", func(t *testing.T) {
		r := validRule()
		r.ScopeType = "table"
		assert.Error(t, r.Validate())
	})

	t.Run("weekday out of range", func(t *testing.T) {
		r := validRule()
		r.Weekdays = []time.Weekday{7}
		assert.Error(t, r.Validate())
	})
}

func TestCapacityRuleAppliesOn(t *testing.T) {
	r := validRule()
	assert.True(t, r.AppliesOn(time.Saturday))
	assert.True(t, r.AppliesOn(time.Sunday))
	assert.False(t, r.AppliesOn(time.Monday))

	r.Weekdays = nil
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		assert.True(t, r.AppliesOn(wd), "empty weekday set must cover %v", wd)
	}
}

func TestCapacityRuleCoversTimeHalfOpen(t *testing.T) {
	r := validRule()

	assert.True(t, r.CoversTime(11*60), "start is inclusive")
	assert.True(t, r.CoversTime(14*60+59))
	assert.False(t, r.CoversTime(15*60), "end is exclusive")
	assert.False(t, r.CoversTime(10*60+59))
}

func TestReservationCandidateScopeValue(t *testing.T) {
	c := ReservationCandidate{
		StoreID:  "restaurant-002",
		SeatType: "counter",
		Menu:     "omakase",
		Staff:    "tanaka",
	}

	assert.Equal(t, "counter", c.ScopeValue(ScopeSeatType))
	assert.Equal(t, "omakase", c.ScopeValue(ScopeMenuItem))
	assert.Equal(t, "tanaka", c.ScopeValue(ScopeStaff))
	assert.Equal(t, "", c.ScopeValue(ScopeStore))
}
