package adapter

import "context"

// NewUserParams carries everything the identity provider needs to
// create a buyer account on the fly during provisioning.
type NewUserParams struct {
	Email        string
	Password     string // random; the buyer resets it from the member area
	EmailConfirm bool   // mark the address pre-verified
	FirstName    string
	LastName     string
	Phone        string
	DocumentID   string
}

// IdentityProvider is the port for the auth service's admin API.
type IdentityProvider interface {
	// CreateUser provisions a new account and returns its user id.
	CreateUser(ctx context.Context, p NewUserParams) (userID string, err error)
}
