package command

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/example/tablegate/internal/domain"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindList
	KindCreate
)

// Parsed is the outcome of parsing one operator command. For KindCreate
// the Rule carries everything but id, store and creation time, which
// the service fills in.
type Parsed struct {
	Kind Kind
	Rule *domain.CapacityRule
}

// Named windows operators use instead of explicit HH:MM-HH:MM ranges.
var namedWindows = map[string]struct {
	start, end domain.ClockTime
	label      string
}{
	"lunch":  {11 * 60, 15 * 60, "ランチタイム"},
	"dinner": {17 * 60, 21 * 60, "ディナータイム"},
}

var weekdayAbbrevs = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// Parse interprets an operator command. Recognized forms:
//
//	/limits
//	/limit <scope> <window> <n>/<unit>   e.g. /limit sat,sun lunch 5/h
//	/limit <scope> <n>                   per-day shorthand, e.g. /limit today 20
//	/stop <scope> <time>-                zero-capacity rule until end of day
//
// Any malformed token fails the whole command with a diagnostic naming
// the token; a partial rule is never produced. Unrecognized verbs parse
// to KindUnknown, which is not an error.
func Parse(text string, now time.Time) (Parsed, error) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return Parsed{Kind: KindUnknown}, nil
	}

	switch fields[0] {
	case "/limits":
		return Parsed{Kind: KindList}, nil
	case "/limit":
		return parseLimit(fields[1:], now)
	case "/stop":
		return parseStop(fields[1:], now)
	default:
		return Parsed{Kind: KindUnknown}, nil
	}
}

func parseLimit(args []string, now time.Time) (Parsed, error) {
	if len(args) < 2 {
		return Parsed{}, &domain.ValidationError{Field: "command", Reason: "usage: /limit <scope> <window> <n>/<unit>"}
	}

	weekdays, scopeLabel, err := parseScope(args[0], now)
	if err != nil {
		return Parsed{}, err
	}

	rule := domain.CapacityRule{
		ScopeType: domain.ScopeStore,
		Weekdays:  weekdays,
		TimeStart: 0,
		TimeEnd:   domain.EndOfDay,
		Active:    true,
	}

	rest := args[1:]

	// Bare integer form: a per-day cap over the whole day.
	if len(rest) == 1 {
		if n, convErr := strconv.Atoi(rest[0]); convErr == nil {
			if n <= 0 {
				return Parsed{}, &domain.ValidationError{Field: "limit", Reason: fmt.Sprintf("limit %q must be positive", rest[0])}
			}
			rule.LimitType = domain.LimitPerDay
			rule.LimitValue = n
			rule.Description = fmt.Sprintf("%s: 1日%d件まで", scopeLabel, n)
			return Parsed{Kind: KindCreate, Rule: &rule}, nil
		}
	}

	if len(rest) != 2 {
		return Parsed{}, &domain.ValidationError{Field: "command", Reason: "usage: /limit <scope> <window> <n>/<unit>"}
	}

	start, end, windowLabel, err := parseWindow(rest[0])
	if err != nil {
		return Parsed{}, err
	}

	limitType, limitValue, err := parseLimitSpec(rest[1])
	if err != nil {
		return Parsed{}, err
	}

	rule.TimeStart = start
	rule.TimeEnd = end
	rule.LimitType = limitType
	rule.LimitValue = limitValue
	rule.Description = fmt.Sprintf("%s %s: %s%d件まで", scopeLabel, windowLabel, limitLabelJA(limitType), limitValue)

	return Parsed{Kind: KindCreate, Rule: &rule}, nil
}

func parseStop(args []string, now time.Time) (Parsed, error) {
	if len(args) != 2 {
		return Parsed{}, &domain.ValidationError{Field: "command", Reason: "usage: /stop <scope> <time>-"}
	}

	weekdays, scopeLabel, err := parseScope(args[0], now)
	if err != nil {
		return Parsed{}, err
	}

	if !strings.HasSuffix(args[1], "-") {
		return Parsed{}, &domain.ValidationError{Field: "time", Reason: fmt.Sprintf("token %q must end with '-'", args[1])}
	}

	from, err2 := domain.ParseClockTime(strings.TrimSuffix(args[1], "-"))
	if err2 != nil {
		return Parsed{}, &domain.ValidationError{Field: "time", Reason: fmt.Sprintf("token %q is not a valid time", args[1])}
	}

	if from >= domain.EndOfDay {
		return Parsed{}, &domain.ValidationError{Field: "time", Reason: fmt.Sprintf("token %q leaves no time to stop", args[1])}
	}

	// A hard stop is a zero-capacity rule until end of day, not a
	// separate rule kind.
	rule := domain.CapacityRule{
		ScopeType:   domain.ScopeStore,
		Weekdays:    weekdays,
		TimeStart:   from,
		TimeEnd:     domain.EndOfDay,
		LimitType:   domain.LimitPerWindow,
		LimitValue:  0,
		Active:      true,
		Description: fmt.Sprintf("%s %s以降: 予約停止", scopeLabel, from),
	}

	return Parsed{Kind: KindCreate, Rule: &rule}, nil
}

// parseScope reads a weekday scope token: "today", "all", or a comma
// separated weekday abbreviation list like "sat,sun".
func parseScope(token string, now time.Time) ([]time.Weekday, string, error) {
	switch token {
	case "today":
		return []time.Weekday{now.Weekday()}, "本日", nil
	case "all":
		return nil, "毎日", nil
	}

	parts := strings.Split(token, ",")
	seen := map[time.Weekday]bool{}
	weekdays := make([]time.Weekday, 0, len(parts))
	labels := make([]string, 0, len(parts))

	for _, p := range parts {
		wd, ok := weekdayAbbrevs[strings.ToLower(p)]
		if !ok {
			return nil, "", &domain.ValidationError{Field: "scope", Reason: fmt.Sprintf("unknown token %q", p)}
		}
		if seen[wd] {
			continue
		}
		seen[wd] = true
		weekdays = append(weekdays, wd)
	}

	sort.Slice(weekdays, func(i, j int) bool { return weekdays[i] < weekdays[j] })
	for _, wd := range weekdays {
		labels = append(labels, weekdayNameJA(wd))
	}

	return weekdays, strings.Join(labels, "・"), nil
}

// parseWindow reads a window token: a named period or "HH:MM-HH:MM".
func parseWindow(token string) (domain.ClockTime, domain.ClockTime, string, error) {
	if w, ok := namedWindows[strings.ToLower(token)]; ok {
		return w.start, w.end, w.label, nil
	}

	lo, hi, ok := strings.Cut(token, "-")
	if !ok {
		return 0, 0, "", &domain.ValidationError{Field: "window", Reason: fmt.Sprintf("unknown window %q", token)}
	}

	start, err := domain.ParseClockTime(lo)
	if err != nil {
		return 0, 0, "", &domain.ValidationError{Field: "window", Reason: fmt.Sprintf("bad start in %q", token)}
	}

	end, err := domain.ParseClockTime(hi)
	if err != nil {
		return 0, 0, "", &domain.ValidationError{Field: "window", Reason: fmt.Sprintf("bad end in %q", token)}
	}

	if start >= end {
		return 0, 0, "", &domain.ValidationError{Field: "window", Reason: fmt.Sprintf("window %q is empty or wraps midnight", token)}
	}

	return start, end, fmt.Sprintf("%s-%s", start, end), nil
}

// parseLimitSpec reads "<n>/<unit>" where unit h means per hour and d
// means per day.
func parseLimitSpec(token string) (domain.LimitType, int, error) {
	numStr, unit, ok := strings.Cut(token, "/")
	if !ok {
		return "", 0, &domain.ValidationError{Field: "limit", Reason: fmt.Sprintf("token %q must look like 5/h or 20/d", token)}
	}

	n, err := strconv.Atoi(numStr)
	if err != nil || n <= 0 {
		return "", 0, &domain.ValidationError{Field: "limit", Reason: fmt.Sprintf("limit %q must be a positive integer", numStr)}
	}

	switch strings.ToLower(unit) {
	case "h":
		return domain.LimitPerHour, n, nil
	case "d":
		return domain.LimitPerDay, n, nil
	default:
		return "", 0, &domain.ValidationError{Field: "unit", Reason: fmt.Sprintf("unknown unit %q, want h or d", unit)}
	}
}

func limitLabelJA(lt domain.LimitType) string {
	switch lt {
	case domain.LimitPerHour:
		return "1時間あたり"
	case domain.LimitPerDay:
		return "1日"
	default:
		return ""
	}
}

var weekdayNamesJA = [...]string{"日", "月", "火", "水", "木", "金", "土"}

func weekdayNameJA(wd time.Weekday) string {
	return weekdayNamesJA[wd]
}
