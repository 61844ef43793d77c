package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/example/tablegate/internal/domain"
	"github.com/example/tablegate/internal/repository"
	postgresrepo "github.com/example/tablegate/internal/repository/postgres"
	redisrepo "github.com/example/tablegate/internal/repository/redis"
	"github.com/example/tablegate/internal/uow"
)

// Admitter decides whether a candidate reservation may be taken. The
// capacity evaluator satisfies it. The release func hands back any
// slots claimed during an admitting decision and must be called when
// the reservation is not persisted after all.
type Admitter interface {
	Admit(ctx context.Context, cand domain.ReservationCandidate) (domain.Decision, func(context.Context))
}

const (
	idemLockTTL   = 30 * time.Second
	maxTxAttempts = 3
)

type Service struct {
	store    *postgresrepo.Store
	admitter Admitter
	idem     *redisrepo.IdempotencyStore
	uow      *uow.UoW
	logger   *slog.Logger
	clock    func() time.Time
}

func New(store *postgresrepo.Store, admitter Admitter, idem *redisrepo.IdempotencyStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		admitter: admitter,
		idem:     idem,
		uow:      uow.NewUoW(store),
		logger:   logger,
		clock:    time.Now,
	}
}

// Create runs the capacity check and, if the slot is admitted, persists
// the reservation. On refusal nothing is written and ErrCapacityRejected
// is returned together with the decision explaining it.
//
// When idemKey is non-empty, a replay with the same key returns the
// originally created reservation instead of booking twice.
func (s *Service) Create(
	ctx context.Context,
	res domain.Reservation,
	idemKey string,
) (domain.Reservation, domain.Decision, error) {
	const op = "service.booking.Create"

	if idemKey != "" && s.idem != nil {
		key := redisrepo.KeyIdemReservation(res.StoreID, idemKey)

		if prev, ok, err := s.idem.GetResult(ctx, key); err == nil && ok {
			var existing domain.Reservation
			if err := json.Unmarshal([]byte(prev), &existing); err == nil {
				return existing, domain.Decision{Allowed: true}, nil
			}
		}

		acquired, err := s.idem.AcquireLock(ctx, key, idemLockTTL)
		if err == nil && !acquired {
			return domain.Reservation{}, domain.Decision{}, fmt.Errorf("%s: %w", op, ErrInFlight)
		}
		defer func() { _ = s.idem.Release(ctx, key) }()
	}

	decision, release := s.admitter.Admit(ctx, domain.ReservationCandidate{
		StoreID:  res.StoreID,
		Date:     res.Date,
		Time:     res.Time,
		SeatType: res.SeatType,
		Menu:     res.Menu,
		Staff:    res.Staff,
		People:   res.People,
	})
	if !decision.Allowed {
		return domain.Reservation{}, decision, fmt.Errorf("%s: %w", op, ErrCapacityRejected)
	}
	if decision.Warning != "" {
		s.logger.Warn("reservation admitted in degraded mode",
			slog.String("op", op),
			slog.String("store_id", res.StoreID),
			slog.String("warning", decision.Warning))
	}

	if res.ID == "" {
		res.ID = newReservationID(s.clock())
	}
	res.Status = domain.ReservationConfirmed
	res.CreatedAt = s.clock()

	var created domain.Reservation
	var err error
	// Serializable transactions can abort under contention; a bounded
	// retry keeps that invisible to the caller.
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err = s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
			var txErr error
			created, txErr = s.store.Reservations().With(tx).Create(ctx, res)
			if txErr != nil {
				return fmt.Errorf("%s: %w", op, txErr)
			}

			if idemKey != "" && s.idem != nil {
				after(func(ctx context.Context) {
					if payload, err := json.Marshal(created); err == nil {
						_ = s.idem.SaveResult(ctx, redisrepo.KeyIdemReservation(res.StoreID, idemKey), string(payload))
					}
				})
			}
			return nil
		})
		if err == nil || !postgresrepo.IsRetryable(err) {
			break
		}
	}
	if err != nil {
		// The admitted slot was never persisted; hand back any
		// claims so the capacity is bookable again.
		release(ctx)
		return domain.Reservation{}, decision, err
	}

	return created, decision, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Reservation, error) {
	const op = "service.booking.Get"

	res, err := s.store.Reservations().Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Reservation{}, fmt.Errorf("%s: %w", op, ErrReservationNotFound)
		}
		return domain.Reservation{}, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

func (s *Service) ListByStore(ctx context.Context, storeID string, limit, offset int) ([]domain.Reservation, error) {
	const op = "service.booking.ListByStore"

	list, err := s.store.Reservations().ListByStore(ctx, storeID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

func (s *Service) Update(ctx context.Context, id string, patch domain.ReservationPatch) (domain.Reservation, error) {
	const op = "service.booking.Update"

	res, err := s.store.Reservations().Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Reservation{}, fmt.Errorf("%s: %w", op, ErrReservationNotFound)
		}
		return domain.Reservation{}, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

func (s *Service) Cancel(ctx context.Context, id string) error {
	const op = "service.booking.Cancel"

	if err := s.store.Reservations().Cancel(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrReservationNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// newReservationID derives a short human-quotable id from the creation
// instant, e.g. RMF0T3K9QX.
func newReservationID(now time.Time) string {
	return "R" + strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
}
