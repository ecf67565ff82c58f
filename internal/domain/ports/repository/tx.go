package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager runs fn inside a database transaction, passing the handle via tx.
//
// Repositories accept `tx Tx` and detect a live transaction on the implementation side
// (pgx.Tx for Postgres); a nil tx means the non-transactional pool path.
//
//	tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx Tx) error {
//		s, err := submissions.LockByID(ctx, tx, id)
//		...
//	})
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
