package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"checkout-payments/internal/domain"
	"checkout-payments/internal/domain/model"
	"checkout-payments/internal/domain/ports/repository"
)

var _ repository.ProductAccessRepository = (*accessRepo)(nil)

type accessRepo struct{ pool *pgxpool.Pool }

func NewAccessRepo(pool *pgxpool.Pool) *accessRepo {
	return &accessRepo{pool: pool}
}

func (r *accessRepo) Exists(ctx context.Context, tx repository.Tx, userID, productID string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM product_access WHERE user_id=$1 AND product_id=$2);`
	row, err := pickRow(ctx, r.pool, tx, q, userID, productID)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, domain.ErrReadDatabaseRow
	}
	return exists, nil
}

func (r *accessRepo) Save(ctx context.Context, tx repository.Tx, a *model.ProductAccess) error {
	const q = `
INSERT INTO product_access (id, user_id, product_id, payment_id, source, created_at)
VALUES ($1,$2,$3,$4,$5,$6);`

	_, err := execSQL(ctx, r.pool, tx, q, a.ID, a.UserID, a.ProductID, a.PaymentID, a.Source, a.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}
