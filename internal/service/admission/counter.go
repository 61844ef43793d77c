package admission

import (
	"fmt"
	"time"

	"github.com/example/tablegate/internal/domain"
)

// Bucket is the aggregation window a rule's usage is counted over.
// The count itself always comes from the backing store; this type only
// pins down which reservations belong to the bucket.
type Bucket struct {
	Date  time.Time
	Start domain.ClockTime
	End   domain.ClockTime // half-open
}

// BucketFor assigns the candidate to the bucket the rule counts.
//
//   - per_hour: the candidate's clock hour on the candidate's date.
//   - per_day: the whole candidate date.
//   - per_window: the rule's own [TimeStart, TimeEnd) on the date.
func BucketFor(r domain.CapacityRule, c domain.ReservationCandidate) Bucket {
	switch r.LimitType {
	case domain.LimitPerHour:
		start := c.Time.HourStart()
		return Bucket{Date: c.Date, Start: start, End: start.Add(domain.MinutesPerHour)}
	case domain.LimitPerWindow:
		return Bucket{Date: c.Date, Start: r.TimeStart, End: r.TimeEnd}
	default: // per_day
		return Bucket{Date: c.Date, Start: 0, End: domain.EndOfDay}
	}
}

// Key renders a stable identifier for the bucket, used to address
// atomic slot counters.
func (b Bucket) Key() string {
	return fmt.Sprintf("%s:%04d-%04d", b.Date.Format("2006-01-02"), int(b.Start), int(b.End))
}
