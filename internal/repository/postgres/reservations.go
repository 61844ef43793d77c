package postgresrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/tablegate/internal/domain"
	"github.com/example/tablegate/internal/repository"
)

type ReservationRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *ReservationRepo) With(db DB) *ReservationRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *ReservationRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const reservationColumns = `id, store_id, customer_name, date, time_min,
	people, seat_type, menu, staff, note, status, created_at`

// Create inserts a confirmed reservation.
//
// Returns:
//   - error: repository.ErrConflict if the id already exists.
func (r *ReservationRepo) Create(ctx context.Context, res domain.Reservation) (domain.Reservation, error) {
	const op = "postgresrepo.ReservationRepo.Create"

	db := r.handle()

	row := db.QueryRow(ctx,
		`INSERT INTO reservations(
			id, store_id, customer_name, date, time_min,
			people, seat_type, menu, staff, note, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING `+reservationColumns,
		res.ID,
		res.StoreID,
		res.CustomerName,
		res.Date,
		int16(res.Time),
		res.People,
		res.SeatType,
		res.Menu,
		res.Staff,
		res.Note,
		string(res.Status),
	)

	created, err := scanReservation(row)
	if err != nil {
		return domain.Reservation{}, wrapDBErr(op, err)
	}

	return created, nil
}

// Get retrieves a reservation by id.
//
// Returns:
//   - error: repository.ErrNotFound if the reservation does not exist.
func (r *ReservationRepo) Get(ctx context.Context, id string) (domain.Reservation, error) {
	const op = "postgresrepo.ReservationRepo.Get"

	db := r.handle()

	row := db.QueryRow(ctx,
		`SELECT `+reservationColumns+`
		 FROM reservations WHERE id = $1`,
		id,
	)

	res, err := scanReservation(row)
	if err != nil {
		return domain.Reservation{}, wrapDBErr(op, err)
	}

	return res, nil
}

// ListByStore lists a store's reservations, newest first.
func (r *ReservationRepo) ListByStore(ctx context.Context, storeID string, limit, offset int) ([]domain.Reservation, error) {
	const op = "postgresrepo.ReservationRepo.ListByStore"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT `+reservationColumns+`
		 FROM reservations
		 WHERE store_id = $1
		 ORDER BY date DESC, time_min DESC, id
		 LIMIT $2 OFFSET $3`,
		storeID, limit, offset,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	out := []domain.Reservation{}
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}

		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// Update applies a partial patch by id.
//
// Returns:
//   - error: repository.ErrNotFound if the reservation does not exist.
func (r *ReservationRepo) Update(ctx context.Context, id string, patch domain.ReservationPatch) (domain.Reservation, error) {
	const op = "postgresrepo.ReservationRepo.Update"

	db := r.handle()

	var timeMin *int16
	if patch.Time != nil {
		v := int16(*patch.Time)
		timeMin = &v
	}

	row := db.QueryRow(ctx,
		`UPDATE reservations SET
			customer_name = COALESCE($2, customer_name),
			date          = COALESCE($3, date),
			time_min      = COALESCE($4, time_min),
			people        = COALESCE($5, people),
			note          = COALESCE($6, note)
		 WHERE id = $1
		 RETURNING `+reservationColumns,
		id,
		patch.CustomerName,
		patch.Date,
		timeMin,
		patch.People,
		patch.Note,
	)

	updated, err := scanReservation(row)
	if err != nil {
		return domain.Reservation{}, wrapDBErr(op, err)
	}

	return updated, nil
}

// Cancel soft-deletes a reservation by flipping its status. Cancelled
// reservations stop counting toward capacity buckets.
//
// Returns:
//   - error: repository.ErrNotFound if the reservation does not exist.
func (r *ReservationRepo) Cancel(ctx context.Context, id string) error {
	const op = "postgresrepo.ReservationRepo.Cancel"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE reservations SET status = $2 WHERE id = $1`,
		id, string(domain.ReservationCancelled),
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

// CountInBucket counts confirmed reservations for storeID on date whose
// time falls in [start, end), restricted to the given scope. It is the
// authoritative usage count the admission evaluator compares against
// rule limits; nothing in the process keeps its own tally.
func (r *ReservationRepo) CountInBucket(
	ctx context.Context,
	storeID string,
	scopeType domain.ScopeType,
	scopeIDs []string,
	date time.Time,
	start, end domain.ClockTime,
) (int, error) {
	const op = "postgresrepo.ReservationRepo.CountInBucket"

	db := r.handle()

	query := `SELECT COUNT(*)
		FROM reservations
		WHERE store_id = $1
		  AND date = $2
		  AND time_min >= $3 AND time_min < $4
		  AND status = $5`
	args := []any{storeID, date, int16(start), int16(end), string(domain.ReservationConfirmed)}

	if scopeType != domain.ScopeStore && len(scopeIDs) > 0 {
		switch scopeType {
		case domain.ScopeSeatType:
			query += ` AND seat_type = ANY($6)`
		case domain.ScopeMenuItem:
			query += ` AND menu = ANY($6)`
		case domain.ScopeStaff:
			query += ` AND staff = ANY($6)`
		}
		args = append(args, scopeIDs)
	}

	var count int
	if err := db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return count, nil
}

func scanReservation(row ruleScanner) (domain.Reservation, error) {
	var (
		res     domain.Reservation
		timeMin int16
		status  string
	)

	err := row.Scan(
		&res.ID,
		&res.StoreID,
		&res.CustomerName,
		&res.Date,
		&timeMin,
		&res.People,
		&res.SeatType,
		&res.Menu,
		&res.Staff,
		&res.Note,
		&status,
		&res.CreatedAt,
	)
	if err != nil {
		return domain.Reservation{}, err
	}

	res.Time = domain.ClockTime(timeMin)
	res.Status = domain.ReservationStatus(status)

	return res, nil
}
