package model

import "time"

// Integration holds a seller's connection to an external provider.
// Only the Mercado Pago access token is read by this service.
type Integration struct {
	ID           string
	SellerUserID string
	Provider     string
	AccessToken  *string
	CreatedAt    time.Time
}
