package repository

import (
	"context"

	"checkout-payments/internal/domain/model"
)

// OrderRepository persists purchase audit records. The existence check
// is a fast path; the real idempotency guarantee is the unique index
// on gateway_payment_id — Save returns domain.ErrAlreadyExists on a
// constraint violation and callers treat that as a no-op.
type OrderRepository interface {
	ExistsByGatewayID(ctx context.Context, tx Tx, gatewayPaymentID string) (bool, error)
	Save(ctx context.Context, tx Tx, o *model.Order) error
	ListRecent(ctx context.Context, tx Tx, offset, limit int) ([]*model.Order, error)
}

// ProductAccessRepository grants buyers access to products, unique per
// (user, product) pair with the same constraint-as-truth contract as
// orders.
type ProductAccessRepository interface {
	Exists(ctx context.Context, tx Tx, userID, productID string) (bool, error)
	Save(ctx context.Context, tx Tx, a *model.ProductAccess) error
}
