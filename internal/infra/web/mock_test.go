//go:build !integration

package web_test

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"checkout-payments/internal/domain/model"
	"checkout-payments/internal/usecase"
)

type MockVerifyUC struct {
	Calls  []string
	Result *usecase.VerifyResult
	Err    error

	VerifyFunc func(ctx context.Context, gatewayPaymentID string) (*usecase.VerifyResult, error)
}

var _ usecase.VerifyUseCase = (*MockVerifyUC)(nil)

func (m *MockVerifyUC) Verify(ctx context.Context, gatewayPaymentID string) (*usecase.VerifyResult, error) {
	m.Calls = append(m.Calls, gatewayPaymentID)
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, gatewayPaymentID)
	}
	return m.Result, m.Err
}

type MockAdminUC struct {
	Payments []*model.Payment
	Orders   []*model.Order
	Err      error
}

var _ usecase.AdminUseCase = (*MockAdminUC)(nil)

func (m *MockAdminUC) ListPayments(ctx context.Context, offset, limit int) ([]*model.Payment, error) {
	return m.Payments, m.Err
}

func (m *MockAdminUC) ListOrders(ctx context.Context, offset, limit int) ([]*model.Order, error) {
	return m.Orders, m.Err
}

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}
