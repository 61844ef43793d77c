package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ClockTime is a local time of day in minutes since midnight.
type ClockTime int

const (
	MinutesPerHour = 60
	MinutesPerDay  = 24 * 60
	EndOfDay       = ClockTime(MinutesPerDay)
)

// ParseClockTime parses "HH:MM" or "HH:MM:SS" (seconds are discarded).
func ParseClockTime(s string) (ClockTime, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("invalid time %q: want HH:MM", s)
	}

	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 24 {
		return 0, fmt.Errorf("invalid time %q: bad hour", s)
	}

	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time %q: bad minute", s)
	}

	t := ClockTime(h*MinutesPerHour + m)
	if t > EndOfDay {
		return 0, fmt.Errorf("invalid time %q: past midnight", s)
	}

	return t, nil
}

func (t ClockTime) Hour() int   { return int(t) / MinutesPerHour }
func (t ClockTime) Minute() int { return int(t) % MinutesPerHour }

// HourStart truncates to the start of the clock hour.
func (t ClockTime) HourStart() ClockTime {
	return ClockTime(t.Hour() * MinutesPerHour)
}

// Add shifts by delta minutes, clamped to [00:00, 24:00].
func (t ClockTime) Add(delta int) ClockTime {
	v := int(t) + delta
	if v < 0 {
		v = 0
	}
	if v > MinutesPerDay {
		v = MinutesPerDay
	}
	return ClockTime(v)
}

func (t ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *ClockTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	v, err := ParseClockTime(s)
	if err != nil {
		return err
	}

	*t = v
	return nil
}
