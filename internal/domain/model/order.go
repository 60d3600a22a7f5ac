package model

import "time"

// Order is the audit record of one completed purchase. At most one
// order exists per gateway payment id; the orders table carries a
// unique index on it and the service treats a duplicate insert as a
// no-op.
type Order struct {
	ID               string // ULID, sortable by creation time
	GatewayPaymentID string
	PaymentID        string
	CheckoutID       string
	BuyerUserID      string
	ProductID        string
	Amount           int64 // minor units
	Status           string
	Meta             map[string]interface{}
	CreatedAt        time.Time
}

const OrderStatusPaid = "paid"

// ProductAccess grants a buyer access to a product. Unique per
// (user, product) pair.
type ProductAccess struct {
	ID        string
	UserID    string
	ProductID string
	PaymentID string
	Source    string
	CreatedAt time.Time
}

const AccessSourcePurchase = "purchase"
