package adapter

import (
	"context"
	"encoding/json"
)

// GatewayPayment is the provider's authoritative view of one payment.
type GatewayPayment struct {
	ID                string
	Status            string // approved | rejected | pending | in_process | cancelled | ...
	StatusDetail      string
	TransactionAmount float64 // major units as the provider reports them
	ExternalReference string  // our checkout id echoed back
	PayerEmail        string
	PayerFirstName    string
	PayerLastName     string
	PayerDocumentType string
	PayerDocumentID   string
	Raw               json.RawMessage // full response body, kept for the metadata snapshot
}

// PaymentGateway is the port for the payment provider's read side.
// Lookup failures carry domain.ErrGateway; retries are the caller's
// responsibility (the success page polls on an interval).
type PaymentGateway interface {
	Name() string
	FetchPayment(ctx context.Context, accessToken, gatewayPaymentID string) (*GatewayPayment, error)
}
