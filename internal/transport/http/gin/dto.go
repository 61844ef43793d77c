package httpgin

import (
	"time"

	"github.com/example/tablegate/internal/domain"
)

type CreateRuleRequest struct {
	ScopeType   string   `json:"scope_type" binding:"required,oneof=store seat_type menu_item staff"`
	ScopeIDs    []string `json:"scope_ids"`
	Weekdays    []int    `json:"weekdays" binding:"omitempty,dive,gte=0,lte=6"`
	TimeStart   string   `json:"time_start" binding:"required"`
	TimeEnd     string   `json:"time_end" binding:"required"`
	LimitType   string   `json:"limit_type" binding:"required,oneof=per_hour per_day per_window"`
	LimitValue  int      `json:"limit_value" binding:"gte=0"`
	Priority    int      `json:"priority"`
	Description string   `json:"description"`
}

type UpdateRuleRequest struct {
	Weekdays    *[]int    `json:"weekdays" binding:"omitempty,dive,gte=0,lte=6"`
	TimeStart   *string   `json:"time_start"`
	TimeEnd     *string   `json:"time_end"`
	LimitValue  *int      `json:"limit_value" binding:"omitempty,gte=0"`
	Priority    *int      `json:"priority"`
	Active      *bool     `json:"active"`
	Description *string   `json:"description"`
}

type CapacityCheckRequest struct {
	Date     string `json:"date" binding:"required"`
	Time     string `json:"time" binding:"required"`
	SeatType string `json:"seat_type"`
	Menu     string `json:"menu"`
	Staff    string `json:"staff"`
	People   int    `json:"people" binding:"omitempty,gt=0"`
}

type CreateReservationRequest struct {
	CustomerName string `json:"customer_name" binding:"required"`
	Date         string `json:"date" binding:"required"`
	Time         string `json:"time" binding:"required"`
	People       int    `json:"people" binding:"omitempty,gt=0"`
	SeatType     string `json:"seat_type"`
	Menu         string `json:"menu"`
	Staff        string `json:"staff"`
	Note         string `json:"note"`
}

type UpdateReservationRequest struct {
	CustomerName *string `json:"customer_name"`
	Date         *string `json:"date"`
	Time         *string `json:"time"`
	People       *int    `json:"people" binding:"omitempty,gt=0"`
	Note         *string `json:"note"`
}

type CommandRequest struct {
	Text       string `json:"text" binding:"required"`
	OperatorID string `json:"operator_id"`
}

type RejectedResponse struct {
	Error    string          `json:"error"`
	Decision domain.Decision `json:"decision"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// parseDate reads a service date in YYYY-MM-DD form.
func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}
