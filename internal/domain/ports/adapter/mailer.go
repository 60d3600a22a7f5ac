package adapter

import "context"

// Email is one transactional message ready to send. SellerUserID
// selects which seller's SMTP credentials are used.
type Email struct {
	To           string
	Subject      string
	HTML         string
	SellerUserID string
}

// Mailer is the port for the transactional email dispatcher. Send
// failures never fail a reconciliation; they are logged and counted.
type Mailer interface {
	Send(ctx context.Context, e Email) error
}
