package httpgin

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/example/tablegate/internal/domain"
	"github.com/example/tablegate/internal/line"
	"github.com/example/tablegate/internal/service"
	"github.com/example/tablegate/internal/service/booking"
	"github.com/example/tablegate/internal/service/rules"
)

// Options carries transport-level settings the handlers need.
type Options struct {
	// DefaultStoreID is used when a request does not name a store,
	// matching how the single-tenant bot deployments run.
	DefaultStoreID string
	// LIFFURL is the booking form link handed out in LINE replies.
	LIFFURL string
	// Health flags report which external collaborators are configured,
	// not whether they are reachable.
	Health HealthFlags
}

type HealthFlags struct {
	HasLineToken  bool `json:"has_line_token"`
	HasLineSecret bool `json:"has_line_secret"`
	HasLIFF       bool `json:"has_liff"`
	HasDatabase   bool `json:"has_database"`
	HasRedis      bool `json:"has_redis"`
}

func NewRouter(
	svcs *service.Services,
	lineClient *line.Client,
	opts Options,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	startedAt := time.Now()
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":         "ok",
			"uptime_seconds": int(time.Since(startedAt).Seconds()),
			"env":            opts.Health,
		})
	})

	// LINE platform events
	r.POST("/webhook", handleWebhook(svcs, lineClient, opts.DefaultStoreID, opts.LIFFURL, logger))

	api := r.Group("/api")
	{
		capacity := api.Group("/capacity")
		{
			capacity.GET("/rules", handleListRules(svcs, opts))
			capacity.POST("/rules", handleCreateRule(svcs, opts))
			capacity.PATCH("/rules/:id", handleUpdateRule(svcs))
			capacity.DELETE("/rules/:id", handleDeactivateRule(svcs, opts))
			capacity.GET("/stats", handleRuleStats(svcs, opts))
			capacity.POST("/check", handleCapacityCheck(svcs, opts))
			capacity.POST("/command", handleCommand(svcs, opts))
		}

		api.POST("/reservations", handleCreateReservation(svcs, opts))
		api.GET("/reservations", handleListReservations(svcs, opts))
		api.GET("/reservations/:id", handleGetReservation(svcs))
		api.PATCH("/reservations/:id", handleUpdateReservation(svcs))
		api.DELETE("/reservations/:id", handleCancelReservation(svcs))
	}

	return r
}

// --- Capacity handlers ---

// @Summary  List active capacity rules
// @Param    store_id  query  string  false  "store id"
// @Success  200  {array}  domain.CapacityRule
// @Router   /api/capacity/rules [get]
func handleListRules(svcs *service.Services, opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		storeID := storeIDParam(c, opts)
		list, err := svcs.Rules.ListActiveRules(c.Request.Context(), storeID)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, list, "public, max-age=30", true)
	}
}

// @Summary  Create capacity rule
// @Param    req body CreateRuleRequest true "payload"
// @Success  201  {object}  domain.CapacityRule
// @Failure  400  {object}  ErrorResponse
// @Router   /api/capacity/rules [post]
func handleCreateRule(svcs *service.Services, opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateRuleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		rule, err := ruleFromRequest(req, storeIDParam(c, opts))
		if err != nil {
			badRequest(c, err.Error())
			return
		}

		created, err := svcs.Rules.CreateRule(c.Request.Context(), rule)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

// @Summary  Update capacity rule
// @Param    id   path  string  true  "Rule ID"
// @Param    req  body  UpdateRuleRequest  true  "payload"
// @Success  200  {object}  domain.CapacityRule
// @Failure  404  {object}  ErrorResponse
// @Router   /api/capacity/rules/{id} [patch]
func handleUpdateRule(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateRuleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		patch, err := patchFromRequest(req)
		if err != nil {
			badRequest(c, err.Error())
			return
		}

		updated, err := svcs.Rules.UpdateRule(c.Request.Context(), c.Param("id"), patch)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// @Summary  Deactivate capacity rule
// @Param    id  path  string  true  "Rule ID"
// @Success  204
// @Failure  404  {object}  ErrorResponse
// @Router   /api/capacity/rules/{id} [delete]
func handleDeactivateRule(svcs *service.Services, opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		storeID := storeIDParam(c, opts)
		if err := svcs.Rules.DeactivateRule(c.Request.Context(), storeID, c.Param("id")); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  Rule utilization for a date
// @Param    store_id  query  string  false  "store id"
// @Param    date      query  string  false  "YYYY-MM-DD, default today"
// @Success  200  {array}  domain.RuleStats
// @Router   /api/capacity/stats [get]
func handleRuleStats(svcs *service.Services, opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		date := time.Now()
		if s := c.Query("date"); s != "" {
			var err error
			if date, err = parseDate(s); err != nil {
				badRequest(c, "invalid date (YYYY-MM-DD)")
				return
			}
		}

		stats, err := svcs.Rules.StatsForDate(c.Request.Context(), storeIDParam(c, opts), date)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, stats, "public, max-age=15", true)
	}
}

// @Summary  Check a candidate reservation against capacity rules
// @Param    req body CapacityCheckRequest true "payload"
// @Success  200  {object}  domain.Decision
// @Failure  400  {object}  ErrorResponse
// @Router   /api/capacity/check [post]
func handleCapacityCheck(svcs *service.Services, opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CapacityCheckRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		cand, err := candidateFromRequest(req, storeIDParam(c, opts))
		if err != nil {
			badRequest(c, err.Error())
			return
		}

		// The decision is the payload either way; rejection is not an
		// HTTP error here.
		c.JSON(http.StatusOK, svcs.Admission.Evaluate(c.Request.Context(), cand))
	}
}

// @Summary  Run an operator command
// @Param    req body CommandRequest true "payload"
// @Success  200  {object}  domain.CommandResult
// @Router   /api/capacity/command [post]
func handleCommand(svcs *service.Services, opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CommandRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		operator := req.OperatorID
		if operator == "" {
			operator = "ip:" + c.ClientIP()
		}

		result := svcs.Command.Apply(c.Request.Context(), storeIDParam(c, opts), operator, req.Text)
		c.JSON(http.StatusOK, result)
	}
}

// --- Reservation handlers ---

// @Summary  Create reservation (idempotent)
// @Param    req body CreateReservationRequest true "payload"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201  {object}  domain.Reservation
// @Failure  400  {object}  ErrorResponse
// @Failure  409  {object}  RejectedResponse  "capacity rejected / request in flight"
// @Router   /api/reservations [post]
func handleCreateReservation(svcs *service.Services, opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateReservationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		res, err := reservationFromRequest(req, storeIDParam(c, opts))
		if err != nil {
			badRequest(c, err.Error())
			return
		}

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))

		created, decision, err := svcs.Booking.Create(c.Request.Context(), res, idemKey)
		if err != nil {
			if errors.Is(err, booking.ErrCapacityRejected) {
				c.JSON(http.StatusConflict, RejectedResponse{
					Error:    "capacity rejected",
					Decision: decision,
				})
				return
			}
			respondErr(c, err)
			return
		}

		if idemKey != "" {
			c.Header("Idempotency-Key", idemKey)
		}
		c.JSON(http.StatusCreated, created)
	}
}

// @Summary  List reservations
// @Param    store_id  query  string  false  "store id"
// @Param    limit     query  int     false  "page size"
// @Param    offset    query  int     false  "offset"
// @Success  200  {array}  domain.Reservation
// @Router   /api/reservations [get]
func handleListReservations(svcs *service.Services, opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := parseIntDefault(c.Query("limit"), 100)
		offset := parseIntDefault(c.Query("offset"), 0)

		list, err := svcs.Booking.ListByStore(c.Request.Context(), storeIDParam(c, opts), limit, offset)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, list, "public, max-age=15", true)
	}
}

// @Summary  Get reservation
// @Param    id  path  string  true  "Reservation ID"
// @Success  200  {object}  domain.Reservation
// @Failure  404  {object}  ErrorResponse
// @Router   /api/reservations/{id} [get]
func handleGetReservation(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := svcs.Booking.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// @Summary  Update reservation
// @Param    id   path  string  true  "Reservation ID"
// @Param    req  body  UpdateReservationRequest  true  "payload"
// @Success  200  {object}  domain.Reservation
// @Failure  404  {object}  ErrorResponse
// @Router   /api/reservations/{id} [patch]
func handleUpdateReservation(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateReservationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		patch, err := reservationPatchFromRequest(req)
		if err != nil {
			badRequest(c, err.Error())
			return
		}

		updated, err := svcs.Booking.Update(c.Request.Context(), c.Param("id"), patch)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// @Summary  Cancel reservation
// @Param    id  path  string  true  "Reservation ID"
// @Success  204
// @Failure  404  {object}  ErrorResponse
// @Router   /api/reservations/{id} [delete]
func handleCancelReservation(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svcs.Booking.Cancel(c.Request.Context(), c.Param("id")); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// --- DTO conversions ---

func ruleFromRequest(req CreateRuleRequest, storeID string) (domain.CapacityRule, error) {
	start, err := domain.ParseClockTime(req.TimeStart)
	if err != nil {
		return domain.CapacityRule{}, err
	}
	end, err := domain.ParseClockTime(req.TimeEnd)
	if err != nil {
		return domain.CapacityRule{}, err
	}

	return domain.CapacityRule{
		StoreID:     storeID,
		ScopeType:   domain.ScopeType(req.ScopeType),
		ScopeIDs:    req.ScopeIDs,
		Weekdays:    intsToWeekdays(req.Weekdays),
		TimeStart:   start,
		TimeEnd:     end,
		LimitType:   domain.LimitType(req.LimitType),
		LimitValue:  req.LimitValue,
		Priority:    req.Priority,
		Active:      true,
		Description: req.Description,
	}, nil
}

func patchFromRequest(req UpdateRuleRequest) (domain.RulePatch, error) {
	patch := domain.RulePatch{
		LimitValue:  req.LimitValue,
		Priority:    req.Priority,
		Active:      req.Active,
		Description: req.Description,
	}

	if req.Weekdays != nil {
		wd := intsToWeekdays(*req.Weekdays)
		patch.Weekdays = &wd
	}
	if req.TimeStart != nil {
		t, err := domain.ParseClockTime(*req.TimeStart)
		if err != nil {
			return domain.RulePatch{}, err
		}
		patch.TimeStart = &t
	}
	if req.TimeEnd != nil {
		t, err := domain.ParseClockTime(*req.TimeEnd)
		if err != nil {
			return domain.RulePatch{}, err
		}
		patch.TimeEnd = &t
	}

	return patch, nil
}

func candidateFromRequest(req CapacityCheckRequest, storeID string) (domain.ReservationCandidate, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return domain.ReservationCandidate{}, err
	}
	t, err := domain.ParseClockTime(req.Time)
	if err != nil {
		return domain.ReservationCandidate{}, err
	}

	people := req.People
	if people == 0 {
		people = 2
	}

	return domain.ReservationCandidate{
		StoreID:  storeID,
		Date:     date,
		Time:     t,
		SeatType: req.SeatType,
		Menu:     req.Menu,
		Staff:    req.Staff,
		People:   people,
	}, nil
}

func reservationFromRequest(req CreateReservationRequest, storeID string) (domain.Reservation, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return domain.Reservation{}, err
	}
	t, err := domain.ParseClockTime(req.Time)
	if err != nil {
		return domain.Reservation{}, err
	}

	people := req.People
	if people == 0 {
		people = 2
	}

	return domain.Reservation{
		StoreID:      storeID,
		CustomerName: req.CustomerName,
		Date:         date,
		Time:         t,
		People:       people,
		SeatType:     req.SeatType,
		Menu:         req.Menu,
		Staff:        req.Staff,
		Note:         req.Note,
	}, nil
}

func reservationPatchFromRequest(req UpdateReservationRequest) (domain.ReservationPatch, error) {
	patch := domain.ReservationPatch{
		CustomerName: req.CustomerName,
		People:       req.People,
		Note:         req.Note,
	}

	if req.Date != nil {
		d, err := parseDate(*req.Date)
		if err != nil {
			return domain.ReservationPatch{}, err
		}
		patch.Date = &d
	}
	if req.Time != nil {
		t, err := domain.ParseClockTime(*req.Time)
		if err != nil {
			return domain.ReservationPatch{}, err
		}
		patch.Time = &t
	}

	return patch, nil
}

func intsToWeekdays(days []int) []time.Weekday {
	if len(days) == 0 {
		return nil
	}
	out := make([]time.Weekday, 0, len(days))
	for _, d := range days {
		out = append(out, time.Weekday(d))
	}
	return out
}

// --- Helpers ---

func storeIDParam(c *gin.Context, opts Options) string {
	if s := c.Query("store_id"); s != "" {
		return s
	}
	return opts.DefaultStoreID
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var verr *domain.ValidationError

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: verr.Error()})
	case errors.Is(err, rules.ErrRuleNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "rule not found"})
	case errors.Is(err, rules.ErrRuleConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "rule conflict"})
	case errors.Is(err, booking.ErrReservationNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "reservation not found"})
	case errors.Is(err, booking.ErrInFlight):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusConflict, ErrorResponse{Error: "request already in flight"})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
