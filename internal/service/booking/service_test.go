package booking

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/tablegate/internal/domain"
)

type fakeAdmitter struct {
	decision domain.Decision
	lastCand domain.ReservationCandidate
	released int
}

func (f *fakeAdmitter) Admit(ctx context.Context, cand domain.ReservationCandidate) (domain.Decision, func(context.Context)) {
	f.lastCand = cand
	return f.decision, func(context.Context) { f.released++ }
}

// A nil store makes any persistence attempt panic, so these tests also
// prove the rejected path never reaches the database.
func TestCreateRejectedIsNotPersisted(t *testing.T) {
	admitter := &fakeAdmitter{decision: domain.Decision{
		Allowed:      false,
		Reason:       "週末ランチ 1時間あたり5件まで（上限に達しています）",
		ViolatedRule: "rule-1",
	}}
	svc := New(nil, admitter, nil, slog.New(slog.DiscardHandler))

	res := domain.Reservation{
		StoreID:      "restaurant-002",
		CustomerName: "山田太郎",
		Date:         time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC),
		Time:         12 * 60,
		People:       2,
		SeatType:     "counter",
	}

	_, decision, err := svc.Create(context.Background(), res, "")

	require.ErrorIs(t, err, ErrCapacityRejected)
	assert.False(t, decision.Allowed)
	assert.Equal(t, "rule-1", decision.ViolatedRule)
	assert.Zero(t, admitter.released, "a refusal has no claims to hand back")
}

func TestCreatePassesCandidateAttributes(t *testing.T) {
	admitter := &fakeAdmitter{decision: domain.Decision{Allowed: false}}
	svc := New(nil, admitter, nil, slog.New(slog.DiscardHandler))

	res := domain.Reservation{
		StoreID:  "restaurant-002",
		Date:     time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC),
		Time:     19 * 60,
		People:   4,
		SeatType: "table",
		Menu:     "course-a",
		Staff:    "tanaka",
	}

	_, _, _ = svc.Create(context.Background(), res, "")

	cand := admitter.lastCand
	assert.Equal(t, res.StoreID, cand.StoreID)
	assert.Equal(t, res.Date, cand.Date)
	assert.Equal(t, res.Time, cand.Time)
	assert.Equal(t, res.SeatType, cand.SeatType)
	assert.Equal(t, res.Menu, cand.Menu)
	assert.Equal(t, res.Staff, cand.Staff)
	assert.Equal(t, res.People, cand.People)
}

func TestNewReservationID(t *testing.T) {
	now := time.Date(2026, 9, 5, 12, 0, 0, 0, time.UTC)
	id := newReservationID(now)

	assert.True(t, strings.HasPrefix(id, "R"))
	assert.Equal(t, strings.ToUpper(id), id)
	assert.Greater(t, len(id), 5)

	later := newReservationID(now.Add(time.Second))
	assert.NotEqual(t, id, later)
}
