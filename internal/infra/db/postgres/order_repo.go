package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"checkout-payments/internal/domain"
	"checkout-payments/internal/domain/model"
	"checkout-payments/internal/domain/ports/repository"
)

var _ repository.OrderRepository = (*orderRepo)(nil)

type orderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepo(pool *pgxpool.Pool) *orderRepo {
	return &orderRepo{pool: pool}
}

func (r *orderRepo) ExistsByGatewayID(ctx context.Context, tx repository.Tx, gatewayPaymentID string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM orders WHERE gateway_payment_id=$1);`
	row, err := pickRow(ctx, r.pool, tx, q, gatewayPaymentID)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, domain.ErrReadDatabaseRow
	}
	return exists, nil
}

func (r *orderRepo) Save(ctx context.Context, tx repository.Tx, o *model.Order) error {
	const q = `
INSERT INTO orders (
  id, gateway_payment_id, payment_id, checkout_id, buyer_user_id, product_id, amount, status, meta, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10);`

	_, err := execSQL(ctx, r.pool, tx, q, o.ID, o.GatewayPaymentID, o.PaymentID, o.CheckoutID, o.BuyerUserID, o.ProductID, o.Amount, o.Status, o.Meta, o.CreatedAt)
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

func (r *orderRepo) ListRecent(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT id, gateway_payment_id, payment_id, checkout_id, buyer_user_id, product_id, amount, status, meta, created_at FROM orders ORDER BY created_at DESC OFFSET $1 LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, offset, limit)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Order
	for rows.Next() {
		o := new(model.Order)
		if err := rows.Scan(&o.ID, &o.GatewayPaymentID, &o.PaymentID, &o.CheckoutID, &o.BuyerUserID, &o.ProductID, &o.Amount, &o.Status, &o.Meta, &o.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, o)
	}
	return out, nil
}
