package repository

import (
	"context"
	"time"

	"checkout-payments/internal/domain/model"
)

// -----------------------------
// Payments
// -----------------------------

type PaymentRepository interface {
	FindByGatewayID(ctx context.Context, tx Tx, gatewayPaymentID string) (*model.Payment, error)
	// UpdateFromGateway persists the mapped status, gateway status string
	// and merged metadata onto the row identified by gateway payment id.
	UpdateFromGateway(ctx context.Context, tx Tx, gatewayPaymentID string, status model.PaymentStatus, gatewayStatus string, meta map[string]interface{}) error
	// SetUserID back-fills the buyer onto the payment; it must not
	// overwrite an already-set user id.
	SetUserID(ctx context.Context, tx Tx, paymentID, userID string) error
	ListRecent(ctx context.Context, tx Tx, offset, limit int) ([]*model.Payment, error)
	// ListPendingOlderThan feeds the background reconciler with stale
	// pending payments worth re-driving against the gateway.
	ListPendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.Payment, error)
}

// -----------------------------
// Checkouts & products (read-only here)
// -----------------------------

type CheckoutRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Checkout, error)
}

type ProductRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Product, error)
}
