package admission

import (
	"context"
	"log/slog"
	"time"

	"github.com/example/tablegate/internal/domain"
)

// RuleStore supplies the capacity rules for a store. The production
// implementation reads postgres through a redis cache; tests use
// in-memory fakes.
type RuleStore interface {
	ListActiveRules(ctx context.Context, storeID string) ([]domain.CapacityRule, error)
}

// UsageCounter supplies authoritative reservation counts per bucket.
// The admission core never aggregates counts itself: process-local
// tallies do not survive across instances, so whatever the backend
// reports is the truth.
type UsageCounter interface {
	CountInBucket(
		ctx context.Context,
		storeID string,
		scopeType domain.ScopeType,
		scopeIDs []string,
		date time.Time,
		start, end domain.ClockTime,
	) (int, error)
}

// SlotReserver is an optional capability that serializes admission per
// (rule, bucket) through compare-and-increment. Without it, two
// near-simultaneous candidates can both read count == limit-1 and both
// admit; that race is accepted and bounded by the number of in-flight
// requests.
type SlotReserver interface {
	TryReserveSlot(ctx context.Context, ruleID, bucket string, limit int) (bool, int64, error)
	ReleaseSlot(ctx context.Context, ruleID, bucket string) error
}

type Config struct {
	// FailClosed rejects candidates when a collaborator is
	// unreachable. The default (false) admits with a warning flag:
	// for a booking bot, losing a walk-in beats refusing everyone.
	FailClosed bool
	// CollaboratorTimeout bounds each rule store / counter call.
	CollaboratorTimeout time.Duration
	// StoreDailyCeiling caps total reservations per store per day,
	// evaluated after all scoped rules. Zero disables it.
	StoreDailyCeiling int
}

type Service struct {
	rules    RuleStore
	counter  UsageCounter
	reserver SlotReserver // nil unless atomic admission is configured
	logger   *slog.Logger
	cfg      Config
}

func New(
	rules RuleStore,
	counter UsageCounter,
	reserver SlotReserver,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.CollaboratorTimeout <= 0 {
		cfg.CollaboratorTimeout = 3 * time.Second
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		rules:    rules,
		counter:  counter,
		reserver: reserver,
		logger:   logger,
		cfg:      cfg,
	}
}
