package postgresrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/tablegate/internal/domain"
	"github.com/example/tablegate/internal/repository"
)

type RuleRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *RuleRepo) With(db DB) *RuleRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *RuleRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const ruleColumns = `id, store_id, scope_type, scope_ids, weekdays,
	time_start_min, time_end_min, limit_type, limit_value,
	priority, active, description, created_at`

// ListActiveRules returns the active rules for a store in evaluation order:
// priority descending, then created_at ascending, then id ascending.
// The ordering is what makes short-circuit evaluation deterministic.
//
// Returns:
//   - []domain.CapacityRule: active rules, empty slice when none exist.
func (r *RuleRepo) ListActiveRules(ctx context.Context, storeID string) ([]domain.CapacityRule, error) {
	const op = "postgresrepo.RuleRepo.ListActiveRules"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT `+ruleColumns+`
		 FROM capacity_rules
		 WHERE store_id = $1 AND active
		 ORDER BY priority DESC, created_at ASC, id ASC`,
		storeID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	out := []domain.CapacityRule{}
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}

		out = append(out, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// CreateRule persists a new rule and returns it with the store-assigned
// created_at.
func (r *RuleRepo) CreateRule(ctx context.Context, rule domain.CapacityRule) (domain.CapacityRule, error) {
	const op = "postgresrepo.RuleRepo.CreateRule"

	db := r.handle()

	row := db.QueryRow(ctx,
		`INSERT INTO capacity_rules(
			id, store_id, scope_type, scope_ids, weekdays,
			time_start_min, time_end_min, limit_type, limit_value,
			priority, active, description)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING `+ruleColumns,
		rule.ID,
		rule.StoreID,
		string(rule.ScopeType),
		rule.ScopeIDs,
		weekdaysToInt16(rule.Weekdays),
		int16(rule.TimeStart),
		int16(rule.TimeEnd),
		string(rule.LimitType),
		rule.LimitValue,
		rule.Priority,
		rule.Active,
		rule.Description,
	)

	created, err := scanRule(row)
	if err != nil {
		return domain.CapacityRule{}, wrapDBErr(op, err)
	}

	return created, nil
}

// UpdateRule applies a partial patch by id.
//
// Returns:
//   - domain.CapacityRule: the updated rule.
//   - error: repository.ErrNotFound if the rule does not exist.
func (r *RuleRepo) UpdateRule(ctx context.Context, id string, patch domain.RulePatch) (domain.CapacityRule, error) {
	const op = "postgresrepo.RuleRepo.UpdateRule"

	db := r.handle()

	var weekdays *[]int16
	if patch.Weekdays != nil {
		wd := weekdaysToInt16(*patch.Weekdays)
		weekdays = &wd
	}

	var start, end *int16
	if patch.TimeStart != nil {
		v := int16(*patch.TimeStart)
		start = &v
	}
	if patch.TimeEnd != nil {
		v := int16(*patch.TimeEnd)
		end = &v
	}

	row := db.QueryRow(ctx,
		`UPDATE capacity_rules SET
			weekdays       = COALESCE($2, weekdays),
			time_start_min = COALESCE($3, time_start_min),
			time_end_min   = COALESCE($4, time_end_min),
			limit_value    = COALESCE($5, limit_value),
			priority       = COALESCE($6, priority),
			active         = COALESCE($7, active),
			description    = COALESCE($8, description)
		 WHERE id = $1
		 RETURNING `+ruleColumns,
		id,
		weekdays,
		start,
		end,
		patch.LimitValue,
		patch.Priority,
		patch.Active,
		patch.Description,
	)

	updated, err := scanRule(row)
	if err != nil {
		return domain.CapacityRule{}, wrapDBErr(op, err)
	}

	return updated, nil
}

// DeactivateRule flips a rule inactive. Rules are never deleted so the
// audit history stays intact.
//
// Returns:
//   - error: repository.ErrNotFound if the rule does not exist.
func (r *RuleRepo) DeactivateRule(ctx context.Context, id string) error {
	const op = "postgresrepo.RuleRepo.DeactivateRule"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE capacity_rules SET active = false WHERE id = $1`,
		id,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

type ruleScanner interface {
	Scan(dest ...any) error
}

func scanRule(row ruleScanner) (domain.CapacityRule, error) {
	var (
		rule       domain.CapacityRule
		scopeType  string
		limitType  string
		weekdays   []int16
		start, end int16
	)

	err := row.Scan(
		&rule.ID,
		&rule.StoreID,
		&scopeType,
		&rule.ScopeIDs,
		&weekdays,
		&start,
		&end,
		&limitType,
		&rule.LimitValue,
		&rule.Priority,
		&rule.Active,
		&rule.Description,
		&rule.CreatedAt,
	)
	if err != nil {
		return domain.CapacityRule{}, err
	}

	rule.ScopeType = domain.ScopeType(scopeType)
	rule.LimitType = domain.LimitType(limitType)
	rule.Weekdays = int16ToWeekdays(weekdays)
	rule.TimeStart = domain.ClockTime(start)
	rule.TimeEnd = domain.ClockTime(end)

	return rule, nil
}

func weekdaysToInt16(wds []time.Weekday) []int16 {
	out := make([]int16, 0, len(wds))
	for _, wd := range wds {
		out = append(out, int16(wd))
	}
	return out
}

func int16ToWeekdays(vals []int16) []time.Weekday {
	if len(vals) == 0 {
		return nil
	}
	out := make([]time.Weekday, 0, len(vals))
	for _, v := range vals {
		out = append(out, time.Weekday(v))
	}
	return out
}
