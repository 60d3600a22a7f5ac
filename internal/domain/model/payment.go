package model

import (
	"math"
	"time"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"   // awaiting gateway approval
	PaymentStatusCompleted PaymentStatus = "completed" // gateway approved
	PaymentStatusFailed    PaymentStatus = "failed"    // gateway rejected
)

// MetadataVerifyKey is the metadata key under which the raw gateway
// snapshot is stored on every reconciliation. All other metadata keys
// (customer data, email template overrides) must survive the merge.
const MetadataVerifyKey = "mp_verify_data"

// Payment records one attempted charge against a checkout.
type Payment struct {
	ID               string // UUID
	GatewayPaymentID string // Mercado Pago payment id; unique
	CheckoutID       string
	UserID           *string // nil until the buyer is resolved
	Amount           int64   // minor currency units (centavos)
	Status           PaymentStatus
	GatewayStatus    string // provider status string as returned
	Meta             map[string]interface{}
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// MapGatewayStatus translates a Mercado Pago status onto the local
// payment status. Any status other than approved/rejected (pending,
// in_process, cancelled, ...) is still in flight from our perspective.
func MapGatewayStatus(gwStatus string) PaymentStatus {
	switch gwStatus {
	case "approved":
		return PaymentStatusCompleted
	case "rejected":
		return PaymentStatusFailed
	default:
		return PaymentStatusPending
	}
}

// MergeVerifySnapshot returns a metadata map with the gateway snapshot
// set under MetadataVerifyKey, preserving every pre-existing key.
func MergeVerifySnapshot(meta map[string]interface{}, snapshot interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(meta)+1)
	for k, v := range meta {
		out[k] = v
	}
	out[MetadataVerifyKey] = snapshot
	return out
}

// AmountFromMajor converts a gateway amount in major units (e.g. 97.00)
// to minor units, rounding to the nearest centavo.
func AmountFromMajor(major float64) int64 {
	return int64(math.Round(major * 100))
}
