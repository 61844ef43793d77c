package admission

import (
	"context"
	"fmt"
	"time"

	"github.com/example/tablegate/internal/domain"
)

// syntheticCeilingID marks a rejection by the store-wide daily ceiling,
// which is configured rather than stored as a rule.
const syntheticCeilingID = "store-daily-ceiling"

const admittedMessage = "キャパシティ制限に問題ありません"

// Evaluate decides whether the candidate is admitted. The contract is
// total: every candidate produces a Decision, never an error. Matched
// rules are checked in priority order and the first violation wins;
// lower-priority rules are not consulted after a rejection.
//
// Evaluation is read-only. It never consumes capacity, so advisory
// checks can repeat it freely and identical inputs over an unchanged
// counter state yield the same Decision. Callers that intend to book
// the slot go through Admit.
func (s *Service) Evaluate(ctx context.Context, cand domain.ReservationCandidate) domain.Decision {
	d, _ := s.check(ctx, cand)
	return d
}

// Admit evaluates the candidate and, when atomic admission is
// configured, claims a slot per matched rule so concurrent candidates
// cannot double-spend the last one. The returned release undoes the
// claims; a caller that fails to persist the admitted reservation must
// call it. It is never nil and is safe to call when nothing was
// claimed.
func (s *Service) Admit(ctx context.Context, cand domain.ReservationCandidate) (domain.Decision, func(context.Context)) {
	noop := func(context.Context) {}

	d, matched := s.check(ctx, cand)
	if !d.Allowed || s.reserver == nil {
		return d, noop
	}

	rejected, release, ok := s.claimSlots(ctx, cand, matched)
	if !ok {
		return rejected, noop
	}

	return d, release
}

func (s *Service) check(ctx context.Context, cand domain.ReservationCandidate) (domain.Decision, []domain.CapacityRule) {
	rules, err := s.listRules(ctx, cand.StoreID)
	if err != nil {
		s.logger.Warn("rule store unreachable, applying availability policy",
			"store_id", cand.StoreID, "fail_closed", s.cfg.FailClosed, "error", err)
		return s.degradedDecision(WarnRuleStoreUnavailable), nil
	}

	matched := Match(cand, rules)

	for _, rule := range matched {
		bucket := BucketFor(rule, cand)

		used, err := s.countBucket(ctx, rule, cand, bucket)
		if err != nil {
			s.logger.Warn("usage counter unreachable, applying availability policy",
				"store_id", cand.StoreID, "rule_id", rule.ID, "fail_closed", s.cfg.FailClosed, "error", err)
			return s.degradedDecision(WarnCounterUnavailable), nil
		}

		// At-or-over rejects; one slot remaining admits.
		if used >= rule.LimitValue {
			return reject(rule), nil
		}
	}

	if d, ok := s.checkDailyCeiling(ctx, cand); !ok {
		return d, nil
	}

	return domain.Decision{Allowed: true, Message: admittedMessage}, matched
}

func (s *Service) listRules(ctx context.Context, storeID string) ([]domain.CapacityRule, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.CollaboratorTimeout)
	defer cancel()

	return s.rules.ListActiveRules(ctx, storeID)
}

func (s *Service) countBucket(
	ctx context.Context,
	rule domain.CapacityRule,
	cand domain.ReservationCandidate,
	b Bucket,
) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.CollaboratorTimeout)
	defer cancel()

	return s.counter.CountInBucket(ctx, cand.StoreID, rule.ScopeType, rule.ScopeIDs, b.Date, b.Start, b.End)
}

// checkDailyCeiling applies the store-wide per-day cap, last and at the
// lowest priority. Whether the ceiling should instead override scoped
// rules is an open business question; evaluating it last is the
// conservative reading.
func (s *Service) checkDailyCeiling(ctx context.Context, cand domain.ReservationCandidate) (domain.Decision, bool) {
	if s.cfg.StoreDailyCeiling <= 0 {
		return domain.Decision{}, true
	}

	ceiling := domain.CapacityRule{
		ID:         syntheticCeilingID,
		StoreID:    cand.StoreID,
		ScopeType:  domain.ScopeStore,
		TimeStart:  0,
		TimeEnd:    domain.EndOfDay,
		LimitType:  domain.LimitPerDay,
		LimitValue: s.cfg.StoreDailyCeiling,
	}

	used, err := s.countBucket(ctx, ceiling, cand, BucketFor(ceiling, cand))
	if err != nil {
		s.logger.Warn("usage counter unreachable for daily ceiling",
			"store_id", cand.StoreID, "fail_closed", s.cfg.FailClosed, "error", err)
		return s.degradedDecision(WarnCounterUnavailable), false
	}

	if used >= ceiling.LimitValue {
		return reject(ceiling), false
	}

	return domain.Decision{}, true
}

// claimSlots routes the final admission through atomic bucket counters
// so concurrent candidates cannot double-spend the last slot. Claims
// already taken are released when a later rule refuses; on success the
// returned release hands them back.
func (s *Service) claimSlots(
	ctx context.Context,
	cand domain.ReservationCandidate,
	matched []domain.CapacityRule,
) (domain.Decision, func(context.Context), bool) {
	claimed := make([]domain.CapacityRule, 0, len(matched))
	release := func(ctx context.Context) {
		for _, c := range claimed {
			_ = s.reserver.ReleaseSlot(ctx, c.ID, BucketFor(c, cand).Key())
		}
	}

	for _, rule := range matched {
		bucket := BucketFor(rule, cand)

		ok, _, err := s.reserver.TryReserveSlot(ctx, rule.ID, bucket.Key(), rule.LimitValue)
		if err != nil {
			// The SQL counts already admitted; a flaky counter
			// must not turn that into a rejection.
			s.logger.Warn("slot reserve failed, admitting on counts alone",
				"rule_id", rule.ID, "error", err)
			continue
		}

		if !ok {
			release(ctx)
			return reject(rule), nil, false
		}

		claimed = append(claimed, rule)
	}

	return domain.Decision{}, release, true
}

func (s *Service) degradedDecision(warning string) domain.Decision {
	if s.cfg.FailClosed {
		return domain.Decision{
			Allowed: false,
			Reason:  "現在、予約状況を確認できません。時間をおいてお試しください",
			Warning: warning,
		}
	}

	return domain.Decision{
		Allowed: true,
		Message: admittedMessage,
		Warning: warning,
	}
}

func reject(rule domain.CapacityRule) domain.Decision {
	return domain.Decision{
		Allowed:          false,
		Reason:           rejectionReason(rule),
		ViolatedRule:     rule.ID,
		AlternativeTimes: alternativeTimes(rule),
		AlternativeDays:  complementaryDays(rule.Weekdays),
	}
}

func rejectionReason(rule domain.CapacityRule) string {
	if rule.Description != "" {
		return rule.Description + "（上限に達しています）"
	}

	return fmt.Sprintf("%s%d件までの予約上限に達しています", limitLabel(rule.LimitType), rule.LimitValue)
}

func limitLabel(lt domain.LimitType) string {
	switch lt {
	case domain.LimitPerHour:
		return "1時間あたり"
	case domain.LimitPerDay:
		return "1日あたり"
	default:
		return "この時間帯で"
	}
}

// alternativeTimes suggests slots just outside the violated window:
// 30 minutes before it opens and 30 minutes after it closes. The
// suggestions are advisory only and are not re-validated against other
// rules; callers must re-submit.
func alternativeTimes(rule domain.CapacityRule) []domain.ClockTime {
	cands := []domain.ClockTime{
		rule.TimeStart.Add(-30),
		rule.TimeEnd.Add(30),
	}

	out := make([]domain.ClockTime, 0, len(cands))
	for _, t := range cands {
		if rule.CoversTime(t) || t >= domain.EndOfDay {
			continue
		}
		if len(out) > 0 && out[len(out)-1] == t {
			continue
		}
		out = append(out, t)
	}

	return out
}

var weekdayNamesJA = [...]string{"日曜日", "月曜日", "火曜日", "水曜日", "木曜日", "金曜日", "土曜日"}

// complementaryDays names the weekdays the violated rule does not
// cover, Sunday first. A rule active every day has no complement.
func complementaryDays(weekdays []time.Weekday) []string {
	if len(weekdays) == 0 {
		return nil
	}

	covered := map[time.Weekday]bool{}
	for _, wd := range weekdays {
		covered[wd] = true
	}

	var out []string
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if !covered[wd] {
			out = append(out, weekdayNamesJA[wd])
		}
	}

	return out
}
