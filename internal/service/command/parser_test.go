package command

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/tablegate/internal/domain"
)

// 2026-09-02 is a Wednesday.
var wednesday = time.Date(2026, 9, 2, 10, 0, 0, 0, time.UTC)

func TestParseLimits(t *testing.T) {
	p, err := Parse("/limits", wednesday)
	require.NoError(t, err)
	assert.Equal(t, KindList, p.Kind)
}

func TestParseLimitWeekendLunchHourly(t *testing.T) {
	p, err := Parse("/limit sat,sun lunch 5/h", wednesday)
	require.NoError(t, err)
	require.Equal(t, KindCreate, p.Kind)
	require.NotNil(t, p.Rule)

	r := p.Rule
	assert.Equal(t, []time.Weekday{time.Sunday, time.Saturday}, r.Weekdays)
	assert.Equal(t, domain.ClockTime(11*60), r.TimeStart)
	assert.Equal(t, domain.ClockTime(15*60), r.TimeEnd)
	assert.Equal(t, domain.LimitPerHour, r.LimitType)
	assert.Equal(t, 5, r.LimitValue)
	assert.Equal(t, domain.ScopeStore, r.ScopeType)
	assert.True(t, r.Active)
	assert.NotEmpty(t, r.Description)
}

func TestParseLimitTodayBareInteger(t *testing.T) {
	p, err := Parse("/limit today 20", wednesday)
	require.NoError(t, err)
	require.Equal(t, KindCreate, p.Kind)

	r := p.Rule
	assert.Equal(t, []time.Weekday{time.Wednesday}, r.Weekdays)
	assert.Equal(t, domain.ClockTime(0), r.TimeStart)
	assert.Equal(t, domain.EndOfDay, r.TimeEnd)
	assert.Equal(t, domain.LimitPerDay, r.LimitType)
	assert.Equal(t, 20, r.LimitValue)
}

func TestParseLimitExplicitWindow(t *testing.T) {
	p, err := Parse("/limit all 17:00-20:00 3/h", wednesday)
	require.NoError(t, err)
	require.Equal(t, KindCreate, p.Kind)

	r := p.Rule
	assert.Empty(t, r.Weekdays, "all means every day")
	assert.Equal(t, domain.ClockTime(17*60), r.TimeStart)
	assert.Equal(t, domain.ClockTime(20*60), r.TimeEnd)
	assert.Equal(t, domain.LimitPerHour, r.LimitType)
	assert.Equal(t, 3, r.LimitValue)
}

func TestParseLimitPerDayUnit(t *testing.T) {
	p, err := Parse("/limit sat dinner 12/d", wednesday)
	require.NoError(t, err)
	assert.Equal(t, domain.LimitPerDay, p.Rule.LimitType)
	assert.Equal(t, 12, p.Rule.LimitValue)
}

func TestParseStop(t *testing.T) {
	p, err := Parse("/stop today 18:00-", wednesday)
	require.NoError(t, err)
	require.Equal(t, KindCreate, p.Kind)

	r := p.Rule
	assert.Equal(t, []time.Weekday{time.Wednesday}, r.Weekdays)
	assert.Equal(t, domain.ClockTime(18*60), r.TimeStart)
	assert.Equal(t, domain.EndOfDay, r.TimeEnd)
	assert.Equal(t, domain.LimitPerWindow, r.LimitType)
	assert.Equal(t, 0, r.LimitValue, "a stop is a zero-capacity rule")
}

func TestParseDiagnosticsNameTheBadToken(t *testing.T) {
	cases := []struct {
		in    string
		field string
		token string
	}{
		{"/limit xyz 5/h", "scope", "xyz"},
		{"/limit sat,xyz lunch 5/h", "scope", "xyz"},
		{"/limit sat bogus 5/h", "window", "bogus"},
		{"/limit sat lunch 5/x", "unit", "x"},
		{"/limit sat lunch abc/h", "limit", "abc"},
		{"/limit sat lunch -2/h", "limit", "-2"},
		{"/stop today 25:00-", "time", "25:00-"},
		{"/stop today 18:00", "time", "18:00"},
	}

	for _, tc := range cases {
		_, err := Parse(tc.in, wednesday)
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr, "input %q", tc.in)
		assert.Equal(t, tc.field, verr.Field, "input %q", tc.in)
		assert.Contains(t, verr.Reason, tc.token, "input %q", tc.in)
	}
}

func TestParsePartialRuleNeverProduced(t *testing.T) {
	p, err := Parse("/limit sat,sun lunch 5/x", wednesday)
	require.Error(t, err)
	assert.Nil(t, p.Rule)
}

func TestParseUnknownVerb(t *testing.T) {
	for _, in := range []string{"/unknown", "hello", "予約したい", ""} {
		p, err := Parse(in, wednesday)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, KindUnknown, p.Kind, "input %q", in)
	}
}

func TestParseWrapAroundWindowRejected(t *testing.T) {
	_, err := Parse("/limit all 22:00-02:00 3/h", wednesday)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "window", verr.Field)
}
