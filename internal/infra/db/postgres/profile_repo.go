package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"checkout-payments/internal/domain"
	"checkout-payments/internal/domain/model"
	"checkout-payments/internal/domain/ports/repository"
)

var (
	_ repository.ProfileRepository     = (*profileRepo)(nil)
	_ repository.IntegrationRepository = (*integrationRepo)(nil)
)

type profileRepo struct{ pool *pgxpool.Pool }

func NewProfileRepo(pool *pgxpool.Pool) *profileRepo {
	return &profileRepo{pool: pool}
}

func (r *profileRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.Profile, error) {
	const q = `SELECT user_id, email, name, phone, document_id, created_at FROM profiles WHERE lower(email)=lower($1) LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}

	p := &model.Profile{}
	if err := row.Scan(&p.UserID, &p.Email, &p.Name, &p.Phone, &p.DocumentID, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

type integrationRepo struct{ pool *pgxpool.Pool }

func NewIntegrationRepo(pool *pgxpool.Pool) *integrationRepo {
	return &integrationRepo{pool: pool}
}

// FindGatewayToken takes the first row carrying a non-null token.
// Credential lookup keyed by seller would be the multi-tenant answer;
// the current deployment is seller-agnostic, one gateway account.
func (r *integrationRepo) FindGatewayToken(ctx context.Context, tx repository.Tx) (string, error) {
	const q = `SELECT access_token FROM integrations WHERE access_token IS NOT NULL AND access_token <> '' ORDER BY created_at ASC LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q)
	if err != nil {
		return "", err
	}

	var token string
	if err := row.Scan(&token); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", domain.ErrReadDatabaseRow
	}
	return token, nil
}
