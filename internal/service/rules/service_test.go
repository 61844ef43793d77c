package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/example/tablegate/internal/domain"
)

func TestWindowCapacity(t *testing.T) {
	perDay := domain.CapacityRule{
		LimitType:  domain.LimitPerDay,
		LimitValue: 20,
		TimeStart:  0,
		TimeEnd:    domain.EndOfDay,
	}
	assert.Equal(t, 20, windowCapacity(perDay))

	perHour := domain.CapacityRule{
		LimitType:  domain.LimitPerHour,
		LimitValue: 5,
		TimeStart:  11 * 60,
		TimeEnd:    15 * 60,
	}
	assert.Equal(t, 20, windowCapacity(perHour), "4 hours at 5 per hour")

	partialHour := domain.CapacityRule{
		LimitType:  domain.LimitPerHour,
		LimitValue: 5,
		TimeStart:  11 * 60,
		TimeEnd:    12*60 + 30,
	}
	assert.Equal(t, 10, windowCapacity(partialHour), "1.5 hours rounds up to 2")

	stop := domain.CapacityRule{
		LimitType:  domain.LimitPerWindow,
		LimitValue: 0,
		TimeStart:  18 * 60,
		TimeEnd:    domain.EndOfDay,
	}
	assert.Equal(t, 0, windowCapacity(stop))
}

func TestStatsWindow(t *testing.T) {
	perDay := domain.CapacityRule{
		LimitType: domain.LimitPerDay,
		TimeStart: 11 * 60,
		TimeEnd:   15 * 60,
	}
	start, end := statsWindow(perDay)
	assert.Equal(t, domain.ClockTime(0), start, "per-day usage spans the whole date, not the rule window")
	assert.Equal(t, domain.EndOfDay, end)

	perHour := domain.CapacityRule{
		LimitType: domain.LimitPerHour,
		TimeStart: 11 * 60,
		TimeEnd:   15 * 60,
	}
	start, end = statsWindow(perHour)
	assert.Equal(t, domain.ClockTime(11*60), start)
	assert.Equal(t, domain.ClockTime(15*60), end)

	perWindow := domain.CapacityRule{
		LimitType: domain.LimitPerWindow,
		TimeStart: 18 * 60,
		TimeEnd:   domain.EndOfDay,
	}
	start, end = statsWindow(perWindow)
	assert.Equal(t, domain.ClockTime(18*60), start)
	assert.Equal(t, domain.EndOfDay, end)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, "ok", statusFor(0))
	assert.Equal(t, "ok", statusFor(0.69))
	assert.Equal(t, "warning", statusFor(0.7))
	assert.Equal(t, "warning", statusFor(0.99))
	assert.Equal(t, "full", statusFor(1.0))
	assert.Equal(t, "full", statusFor(1.5))
}
