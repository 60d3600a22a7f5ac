package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"checkout-payments/internal/domain"
	"checkout-payments/internal/domain/model"
	"checkout-payments/internal/domain/ports/repository"
)

var (
	_ repository.CheckoutRepository = (*checkoutRepo)(nil)
	_ repository.ProductRepository  = (*productRepo)(nil)
)

type checkoutRepo struct{ pool *pgxpool.Pool }

func NewCheckoutRepo(pool *pgxpool.Pool) *checkoutRepo {
	return &checkoutRepo{pool: pool}
}

func (r *checkoutRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Checkout, error) {
	const q = `SELECT id, seller_user_id, product_id, member_area_id, deliverable_type, deliverable_link, deliverable_url, deliverable_name, deliverable_desc, email_enabled, email_subject, email_body, support_email FROM checkouts WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}

	c := &model.Checkout{}
	if err := row.Scan(&c.ID, &c.SellerUserID, &c.ProductID, &c.MemberAreaID, &c.DeliverableType, &c.DeliverableLink, &c.DeliverableURL, &c.DeliverableName, &c.DeliverableDesc, &c.EmailEnabled, &c.EmailSubject, &c.EmailBody, &c.SupportEmail); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return c, nil
}

type productRepo struct{ pool *pgxpool.Pool }

func NewProductRepo(pool *pgxpool.Pool) *productRepo {
	return &productRepo{pool: pool}
}

func (r *productRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Product, error) {
	const q = `SELECT id, name, description, member_area_link, file_url FROM products WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}

	p := &model.Product{}
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.MemberAreaLink, &p.FileURL); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}
