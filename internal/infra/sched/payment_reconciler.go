package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"checkout-payments/internal/domain/ports/repository"
	"checkout-payments/internal/usecase"
)

// PaymentReconciler periodically scans for stale pending payments and
// re-drives them through the verify use case. This covers buyers who
// closed the success page before polling resolved, or a process crash
// mid-provisioning.
type PaymentReconciler struct {
	uc         usecase.VerifyUseCase
	payments   repository.PaymentRepository
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how old a pending payment must be to retry
	batchSize  int
	log        *zerolog.Logger
}

func NewPaymentReconciler(uc usecase.VerifyUseCase, payments repository.PaymentRepository, interval, staleAfter time.Duration, logger *zerolog.Logger) *PaymentReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	return &PaymentReconciler{
		uc:         uc,
		payments:   payments,
		interval:   interval,
		staleAfter: staleAfter,
		batchSize:  200,
		log:        logger,
	}
}

func (w *PaymentReconciler) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *PaymentReconciler) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)
	pending, err := w.payments.ListPendingOlderThan(ctx, repository.NoTX, cutoff, w.batchSize)
	if err != nil {
		w.log.Error().Err(err).Msg("payment-reconciler: list pending failed")
		return
	}
	for _, p := range pending {
		if p.GatewayPaymentID == "" {
			continue
		}
		res, err := w.uc.Verify(ctx, p.GatewayPaymentID)
		if err != nil {
			w.log.Warn().Err(err).
				Str("payment_id", p.ID).
				Str("gateway_payment_id", p.GatewayPaymentID).
				Msg("payment-reconciler: verify failed")
			continue
		}
		if res.Status != p.Status {
			w.log.Info().
				Str("payment_id", p.ID).
				Str("status", string(res.Status)).
				Msg("payment-reconciler: payment reconciled")
		}
	}
}
