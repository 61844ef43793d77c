package rules

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/example/tablegate/internal/domain"
	redisx "github.com/example/tablegate/internal/redis"
	"github.com/example/tablegate/internal/repository"
	postgresrepo "github.com/example/tablegate/internal/repository/postgres"
	redisrepo "github.com/example/tablegate/internal/repository/redis"
	"github.com/example/tablegate/internal/uow"
)

// rulesTTL bounds staleness when a cache invalidation is lost.
const rulesTTL = time.Minute

type Service struct {
	store  *postgresrepo.Store
	cache  *redisrepo.Cache
	pubsub *redisx.RulesPubSub
	uow    *uow.UoW
}

func New(store *postgresrepo.Store, cache *redisrepo.Cache, pubsub *redisx.RulesPubSub) *Service {
	return &Service{
		store:  store,
		cache:  cache,
		pubsub: pubsub,
		uow:    uow.NewUoW(store),
	}
}

// ListActiveRules returns a store's active rules in evaluation order,
// reading through the cache.
func (s *Service) ListActiveRules(ctx context.Context, storeID string) ([]domain.CapacityRule, error) {
	const op = "service.rules.ListActiveRules"

	rules, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisx.KeyStoreRules(storeID), rulesTTL,
		func(ctx context.Context) ([]domain.CapacityRule, error) {
			return s.store.Rules().ListActiveRules(ctx, storeID)
		})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rules, nil
}

// CreateRule persists a new rule. A zero ID gets one assigned; the
// rule set cache is invalidated after commit.
func (s *Service) CreateRule(ctx context.Context, rule domain.CapacityRule) (domain.CapacityRule, error) {
	const op = "service.rules.CreateRule"

	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now()
	}
	if err := rule.Validate(); err != nil {
		return domain.CapacityRule{}, fmt.Errorf("%s: %w", op, err)
	}

	var created domain.CapacityRule
	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		var err error
		created, err = s.store.Rules().With(tx).CreateRule(ctx, rule)
		if err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return fmt.Errorf("%s: %w", op, ErrRuleConflict)
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateRules(ctx, rule.StoreID)
			_ = s.pubsub.PublishRulesChanged(ctx, rule.StoreID)
		})
		return nil
	})

	return created, err
}

// UpdateRule applies a partial update and invalidates the store's rule
// set after commit.
func (s *Service) UpdateRule(ctx context.Context, id string, patch domain.RulePatch) (domain.CapacityRule, error) {
	const op = "service.rules.UpdateRule"

	var updated domain.CapacityRule
	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		var err error
		updated, err = s.store.Rules().With(tx).UpdateRule(ctx, id, patch)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s: %w", op, ErrRuleNotFound)
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateRules(ctx, updated.StoreID)
			_ = s.pubsub.PublishRulesChanged(ctx, updated.StoreID)
		})
		return nil
	})

	return updated, err
}

// DeactivateRule retires a rule. The row is kept so past decisions
// stay explainable.
func (s *Service) DeactivateRule(ctx context.Context, storeID, id string) error {
	const op = "service.rules.DeactivateRule"

	return s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		if err := s.store.Rules().With(tx).DeactivateRule(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s: %w", op, ErrRuleNotFound)
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		after(func(ctx context.Context) {
			_ = s.cache.InvalidateRules(ctx, storeID)
			_ = s.pubsub.PublishRulesChanged(ctx, storeID)
		})
		return nil
	})
}

// StatsForDate reports per-rule usage for one service date: the
// confirmed reservation count inside each rule's window and a coarse
// status derived from utilization.
func (s *Service) StatsForDate(ctx context.Context, storeID string, date time.Time) ([]domain.RuleStats, error) {
	const op = "service.rules.StatsForDate"

	rules, err := s.ListActiveRules(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	stats := make([]domain.RuleStats, 0, len(rules))
	for _, r := range rules {
		start, end := statsWindow(r)
		count, err := s.store.Reservations().CountInBucket(ctx,
			storeID, r.ScopeType, r.ScopeIDs, date, start, end)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		capacity := windowCapacity(r)
		util := 1.0
		if capacity > 0 {
			util = float64(count) / float64(capacity)
		}

		stats = append(stats, domain.RuleStats{
			RuleID:       r.ID,
			Description:  r.Description,
			LimitType:    r.LimitType,
			LimitValue:   r.LimitValue,
			CurrentCount: count,
			Utilization:  util,
			Status:       statusFor(util),
		})
	}

	return stats, nil
}

// statsWindow is the window usage is counted over, matching the bucket
// admission compares against the limit: per-day rules count the whole
// date, the other types their own window.
func statsWindow(r domain.CapacityRule) (domain.ClockTime, domain.ClockTime) {
	if r.LimitType == domain.LimitPerDay {
		return 0, domain.EndOfDay
	}
	return r.TimeStart, r.TimeEnd
}

// windowCapacity is the total headroom a rule offers over its window.
// Hourly limits scale with the number of hours covered.
func windowCapacity(r domain.CapacityRule) int {
	if r.LimitType != domain.LimitPerHour {
		return r.LimitValue
	}
	hours := (int(r.TimeEnd-r.TimeStart) + domain.MinutesPerHour - 1) / domain.MinutesPerHour
	if hours < 1 {
		hours = 1
	}
	return r.LimitValue * hours
}

func statusFor(util float64) string {
	switch {
	case util >= 1.0:
		return "full"
	case util >= 0.7:
		return "warning"
	default:
		return "ok"
	}
}
