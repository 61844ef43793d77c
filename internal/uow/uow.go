package uow

import (
	"context"

	"github.com/jackc/pgx/v5"

	postgresrepo "github.com/example/tablegate/internal/repository/postgres"
)

// AfterCommit runs once the transaction has committed. Rule services use it
// to invalidate the rules cache and publish change notifications, so a
// failed write never evicts a still-valid cache entry.
type AfterCommit func(ctx context.Context)

// UoW groups repository writes into a single transaction with deferred
// side effects.
type UoW struct {
	store *postgresrepo.Store
}

func NewUoW(store *postgresrepo.Store) *UoW {
	return &UoW{store: store}
}

// Do runs fn in a transaction with the store defaults, then fires the
// hooks registered through after.
func (u *UoW) Do(
	ctx context.Context,
	fn func(ctx context.Context, tx postgresrepo.DB, after func(AfterCommit)) error,
) error {
	return u.DoWithOpts(ctx, nil, fn)
}

// DoWithOpts is Do with explicit transaction options.
func (u *UoW) DoWithOpts(
	ctx context.Context,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, tx postgresrepo.DB, after func(AfterCommit)) error,
) error {
	var hooks []AfterCommit

	err := u.store.RunTx(ctx, opts, func(ctx context.Context, tx postgresrepo.DB) error {
		return fn(ctx, tx, func(h AfterCommit) {
			hooks = append(hooks, h)
		})
	})
	if err != nil {
		return err
	}

	for _, h := range hooks {
		h(ctx)
	}

	return nil
}
