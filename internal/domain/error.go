package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrAlreadyExists   = errors.New("entity already exists")
	ErrInvalidArgument = errors.New("invalid argument")

	// Reconciliation errors. The web layer maps these onto HTTP status
	// codes: configuration and persistence failures are 500s, a gateway
	// rejection is a 400 carrying the gateway's message.
	ErrConfiguration = errors.New("gateway credential not configured")
	ErrGateway       = errors.New("gateway lookup failed")
	ErrPersistence   = errors.New("payment record update failed")

	// Infra-level database errors
	ErrOperationFailed    = errors.New("database operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid exec context")
)
