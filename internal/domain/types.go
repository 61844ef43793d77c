package domain

import (
	"fmt"
	"time"
)

type ScopeType string

const (
	ScopeStore    ScopeType = "store"
	ScopeSeatType ScopeType = "seat_type"
	ScopeMenuItem ScopeType = "menu_item"
	ScopeStaff    ScopeType = "staff"
)

type LimitType string

const (
	LimitPerHour   LimitType = "per_hour"
	LimitPerDay    LimitType = "per_day"
	LimitPerWindow LimitType = "per_window"
)

// CapacityRule caps how many reservations a store accepts inside a
// time window, optionally narrowed to specific seat types, menu items
// or staff members. Rules are never hard-deleted, only deactivated.
type CapacityRule struct {
	ID          string         `json:"id"`
	StoreID     string         `json:"store_id"`
	ScopeType   ScopeType      `json:"scope_type"`
	ScopeIDs    []string       `json:"scope_ids,omitempty"`
	Weekdays    []time.Weekday `json:"weekdays"` // empty = every day
	TimeStart   ClockTime      `json:"time_start"`
	TimeEnd     ClockTime      `json:"time_end"` // half-open [TimeStart, TimeEnd)
	LimitType   LimitType      `json:"limit_type"`
	LimitValue  int            `json:"limit_value"`
	Priority    int            `json:"priority"`
	Active      bool           `json:"active"`
	Description string         `json:"description"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Validate checks the creation-time invariants. Overlapping scopes and
// windows across rules are allowed; overlap is resolved at evaluation time.
func (r CapacityRule) Validate() error {
	if r.StoreID == "" {
		return &ValidationError{Field: "store_id", Reason: "required"}
	}

	switch r.ScopeType {
	case ScopeStore, ScopeSeatType, ScopeMenuItem, ScopeStaff:
	default:
		return &ValidationError{Field: "scope_type", Reason: fmt.Sprintf("unknown scope %q", r.ScopeType)}
	}

	if r.TimeStart >= r.TimeEnd {
		return &ValidationError{Field: "time_start", Reason: "time_start must be before time_end"}
	}

	if r.TimeEnd > EndOfDay {
		return &ValidationError{Field: "time_end", Reason: "window may not wrap past midnight"}
	}

	switch r.LimitType {
	case LimitPerHour, LimitPerDay, LimitPerWindow:
	default:
		return &ValidationError{Field: "limit_type", Reason: fmt.Sprintf("unknown limit type %q", r.LimitType)}
	}

	if r.LimitValue < 0 {
		return &ValidationError{Field: "limit_value", Reason: "limit_value must not be negative"}
	}

	for _, wd := range r.Weekdays {
		if wd < time.Sunday || wd > time.Saturday {
			return &ValidationError{Field: "weekdays", Reason: fmt.Sprintf("weekday %d out of range", wd)}
		}
	}

	return nil
}

// AppliesOn reports whether the rule is active on the given weekday.
// An empty weekday set means the rule applies every day.
func (r CapacityRule) AppliesOn(wd time.Weekday) bool {
	if len(r.Weekdays) == 0 {
		return true
	}

	for _, w := range r.Weekdays {
		if w == wd {
			return true
		}
	}

	return false
}

// CoversTime reports whether t falls inside [TimeStart, TimeEnd).
func (r CapacityRule) CoversTime(t ClockTime) bool {
	return t >= r.TimeStart && t < r.TimeEnd
}

// RulePatch carries partial updates for a rule. Nil fields are left
// untouched.
type RulePatch struct {
	Weekdays    *[]time.Weekday `json:"weekdays,omitempty"`
	TimeStart   *ClockTime      `json:"time_start,omitempty"`
	TimeEnd     *ClockTime      `json:"time_end,omitempty"`
	LimitValue  *int            `json:"limit_value,omitempty"`
	Priority    *int            `json:"priority,omitempty"`
	Active      *bool           `json:"active,omitempty"`
	Description *string         `json:"description,omitempty"`
}

// ReservationCandidate is a reservation request under admission check.
// It is matching input only; the admission core never persists it.
type ReservationCandidate struct {
	StoreID  string    `json:"store_id"`
	Date     time.Time `json:"date"` // date only, local
	Time     ClockTime `json:"time"`
	SeatType string    `json:"seat_type,omitempty"`
	Menu     string    `json:"menu,omitempty"`
	Staff    string    `json:"staff,omitempty"`
	People   int       `json:"people"`
}

func (c ReservationCandidate) Weekday() time.Weekday {
	return c.Date.Weekday()
}

// ScopeValue returns the candidate attribute the scope type narrows on.
func (c ReservationCandidate) ScopeValue(st ScopeType) string {
	switch st {
	case ScopeSeatType:
		return c.SeatType
	case ScopeMenuItem:
		return c.Menu
	case ScopeStaff:
		return c.Staff
	default:
		return ""
	}
}

// Decision is the admission verdict for one candidate.
type Decision struct {
	Allowed          bool        `json:"allowed"`
	Message          string      `json:"message,omitempty"`
	Reason           string      `json:"reason,omitempty"`
	ViolatedRule     string      `json:"violated_rule,omitempty"`
	AlternativeTimes []ClockTime `json:"alternative_times,omitempty"`
	AlternativeDays  []string    `json:"alternative_days,omitempty"`
	// Warning is set when the decision was taken without usage counts,
	// e.g. the counter backend was unreachable and fail-open applied.
	Warning string `json:"warning,omitempty"`
}

// CommandResult is the outcome of one operator command.
type CommandResult struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Rule    *CapacityRule `json:"rule,omitempty"`
}

type ReservationStatus string

const (
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCancelled ReservationStatus = "cancelled"
)

type Reservation struct {
	ID           string            `json:"id"`
	StoreID      string            `json:"store_id"`
	CustomerName string            `json:"customer_name"`
	Date         time.Time         `json:"date"`
	Time         ClockTime         `json:"time"`
	People       int               `json:"people"`
	SeatType     string            `json:"seat_type,omitempty"`
	Menu         string            `json:"menu,omitempty"`
	Staff        string            `json:"staff,omitempty"`
	Note         string            `json:"note,omitempty"`
	Status       ReservationStatus `json:"status"`
	CreatedAt    time.Time         `json:"created_at"`
}

// ReservationPatch carries partial updates for a reservation. Nil
// fields are left untouched.
type ReservationPatch struct {
	CustomerName *string    `json:"customer_name,omitempty"`
	Date         *time.Time `json:"date,omitempty"`
	Time         *ClockTime `json:"time,omitempty"`
	People       *int       `json:"people,omitempty"`
	Note         *string    `json:"note,omitempty"`
}

// RuleStats is the utilization snapshot of one rule for a given date.
type RuleStats struct {
	RuleID       string    `json:"rule_id"`
	Description  string    `json:"description"`
	LimitType    LimitType `json:"limit_type"`
	LimitValue   int       `json:"limit_value"`
	CurrentCount int       `json:"current_count"`
	Utilization  float64   `json:"utilization"`
	Status       string    `json:"status"` // ok | warning | full
}
