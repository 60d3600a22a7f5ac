package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager executes a function within a database transaction,
// passing the underlying transaction handle via `tx`.
//
// Repositories accept `tx Tx` and detect a live transaction handle
// implementation-side (e.g. pgx.Tx) to run SELECT ... FOR UPDATE or
// tx-bound Exec/Query. They MUST gracefully accept nil (the
// non-transactional path).
//
// The provisioning pipeline deliberately does NOT run inside one
// transaction: each step is independently idempotent and
// logged-and-continued. Only the authoritative payment update uses a
// transaction, so the read-merge-write of the metadata map is atomic.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
