package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"checkout-payments/internal/domain/model"
	"checkout-payments/internal/domain/ports/repository"
)

var _ AdminUseCase = (*adminUC)(nil)

// AdminUseCase backs the dashboard's read endpoints.
type AdminUseCase interface {
	ListPayments(ctx context.Context, offset, limit int) ([]*model.Payment, error)
	ListOrders(ctx context.Context, offset, limit int) ([]*model.Order, error)
}

type adminUC struct {
	payments repository.PaymentRepository
	orders   repository.OrderRepository
	log      *zerolog.Logger
}

func NewAdminUseCase(payments repository.PaymentRepository, orders repository.OrderRepository, logger *zerolog.Logger) *adminUC {
	return &adminUC{payments: payments, orders: orders, log: logger}
}

const maxPageSize = 200

func clampPage(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return offset, limit
}

func (u *adminUC) ListPayments(ctx context.Context, offset, limit int) ([]*model.Payment, error) {
	offset, limit = clampPage(offset, limit)
	return u.payments.ListRecent(ctx, repository.NoTX, offset, limit)
}

func (u *adminUC) ListOrders(ctx context.Context, offset, limit int) ([]*model.Order, error) {
	offset, limit = clampPage(offset, limit)
	return u.orders.ListRecent(ctx, repository.NoTX, offset, limit)
}
