package repository

import (
	"context"

	"checkout-payments/internal/domain/model"
)

type ProfileRepository interface {
	FindByEmail(ctx context.Context, tx Tx, email string) (*model.Profile, error)
}

// IntegrationRepository resolves gateway credentials. FindGatewayToken
// returns the first integrations row carrying a non-null token; the
// caller falls back to the process-wide configured token when none is
// stored. domain.ErrNotFound means no usable row.
type IntegrationRepository interface {
	FindGatewayToken(ctx context.Context, tx Tx) (string, error)
}
