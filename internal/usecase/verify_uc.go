package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"checkout-payments/internal/domain"
	"checkout-payments/internal/domain/model"
	"checkout-payments/internal/domain/ports/adapter"
	"checkout-payments/internal/domain/ports/repository"
	"checkout-payments/internal/infra/logging"
	"checkout-payments/internal/infra/metrics"
)

// Compile-time check
var _ VerifyUseCase = (*verifyUC)(nil)

// PaymentView is the payment row joined with its checkout and product,
// returned to the caller for rendering the success page.
type PaymentView struct {
	Payment  *model.Payment  `json:"payment"`
	Checkout *model.Checkout `json:"checkout,omitempty"`
	Product  *model.Product  `json:"product,omitempty"`
}

// VerifyResult is the consolidated outcome of one reconciliation call.
// Success of the call means "authoritative status known and persisted";
// provisioning step failures are recorded in Steps but never fail it.
type VerifyResult struct {
	Status        model.PaymentStatus `json:"status"`
	GatewayStatus string              `json:"gateway_status"`
	StatusDetail  string              `json:"status_detail,omitempty"`
	Payment       *PaymentView        `json:"payment,omitempty"`
	Steps         []StepOutcome       `json:"-"`
}

type VerifyUseCase interface {
	// Verify fetches the authoritative gateway status for one payment,
	// persists it locally, and — when approved — runs the idempotent
	// provisioning pipeline.
	Verify(ctx context.Context, gatewayPaymentID string) (*VerifyResult, error)
}

// VerifyCache short-circuits the gateway call for repeat polls within a
// small TTL. Best effort: a miss or a broken cache never fails a verify.
type VerifyCache interface {
	Get(ctx context.Context, gatewayPaymentID string) (*VerifyResult, bool)
	Set(ctx context.Context, gatewayPaymentID string, res *VerifyResult)
}

// ProvisionLocker serializes concurrent provisioning runs for the same
// payment. Purely an optimization: losing the lock race (or running
// without a locker at all) is safe because every insert is guarded by a
// store-level uniqueness constraint.
type ProvisionLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

const (
	// paymentLookupRetries bounds the wait for the checkout's initial
	// payment insert when a caller polls before that write lands.
	paymentLookupRetries = 3
	paymentLookupBackoff = 200 * time.Millisecond

	provisionLockTTL = 30 * time.Second
)

type verifyUC struct {
	integrations repository.IntegrationRepository
	payments     repository.PaymentRepository
	checkouts    repository.CheckoutRepository
	products     repository.ProductRepository
	orders       repository.OrderRepository
	access       repository.ProductAccessRepository
	profiles     repository.ProfileRepository

	gateway  adapter.PaymentGateway
	identity adapter.IdentityProvider
	mailer   adapter.Mailer

	tm            repository.TransactionManager
	cache         VerifyCache     // optional
	locker        ProvisionLocker // optional
	fallbackToken string          // env/config-wide gateway token

	log *zerolog.Logger
}

type VerifyDeps struct {
	Integrations repository.IntegrationRepository
	Payments     repository.PaymentRepository
	Checkouts    repository.CheckoutRepository
	Products     repository.ProductRepository
	Orders       repository.OrderRepository
	Access       repository.ProductAccessRepository
	Profiles     repository.ProfileRepository

	Gateway  adapter.PaymentGateway
	Identity adapter.IdentityProvider
	Mailer   adapter.Mailer

	TM            repository.TransactionManager
	Cache         VerifyCache
	Locker        ProvisionLocker
	FallbackToken string
}

func NewVerifyUseCase(d VerifyDeps, logger *zerolog.Logger) *verifyUC {
	return &verifyUC{
		integrations:  d.Integrations,
		payments:      d.Payments,
		checkouts:     d.Checkouts,
		products:      d.Products,
		orders:        d.Orders,
		access:        d.Access,
		profiles:      d.Profiles,
		gateway:       d.Gateway,
		identity:      d.Identity,
		mailer:        d.Mailer,
		tm:            d.TM,
		cache:         d.Cache,
		locker:        d.Locker,
		fallbackToken: d.FallbackToken,
		log:           logger,
	}
}

func (u *verifyUC) Verify(ctx context.Context, gatewayPaymentID string) (*VerifyResult, error) {
	defer logging.TraceDuration(u.log, "VerifyUC.Verify")()

	gatewayPaymentID = strings.TrimSpace(gatewayPaymentID)
	if gatewayPaymentID == "" {
		return nil, domain.ErrInvalidArgument
	}
	ctx = logging.WithGatewayPaymentID(ctx, gatewayPaymentID)
	log := logging.With(ctx, u.log)

	if u.cache != nil {
		if res, ok := u.cache.Get(ctx, gatewayPaymentID); ok {
			log.Debug().Msg("verify served from cache")
			return res, nil
		}
	}

	token, err := u.resolveToken(ctx)
	if err != nil {
		return nil, err
	}

	gw, err := u.gateway.FetchPayment(ctx, token, gatewayPaymentID)
	if err != nil {
		metrics.GatewayLookup("error")
		log.Warn().Err(err).Msg("gateway lookup failed")
		return nil, err
	}

	mapped := model.MapGatewayStatus(gw.Status)
	metrics.GatewayLookup(string(mapped))

	payment, err := u.updatePayment(ctx, gatewayPaymentID, gw, mapped)
	if err != nil {
		return nil, err
	}

	res := &VerifyResult{
		Status:        mapped,
		GatewayStatus: gw.Status,
		StatusDetail:  gw.StatusDetail,
	}

	if mapped == model.PaymentStatusCompleted {
		res.Steps = u.provision(ctx, gw, payment)
	}

	res.Payment = u.buildView(ctx, gw, payment)

	// A result with failed provisioning steps is not cached: the next
	// poll must re-drive the pipeline instead of replaying this one.
	if u.cache != nil && !anyStepFailed(res.Steps) {
		u.cache.Set(ctx, gatewayPaymentID, res)
	}
	return res, nil
}

func anyStepFailed(steps []StepOutcome) bool {
	for _, s := range steps {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// resolveToken picks the stored integration token, falling back to the
// process-wide configured one. No usable token is a 500-class error:
// the service cannot even ask the gateway.
func (u *verifyUC) resolveToken(ctx context.Context) (string, error) {
	token, err := u.integrations.FindGatewayToken(ctx, repository.NoTX)
	if err == nil && token != "" {
		return token, nil
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		u.log.Warn().Err(err).Msg("integration token lookup failed; trying fallback")
	}
	if u.fallbackToken != "" {
		return u.fallbackToken, nil
	}
	return "", domain.ErrConfiguration
}

// updatePayment persists the gateway's view onto the local row. A
// missing row is tolerated (the caller may poll before the checkout's
// insert lands); a failing write is not.
func (u *verifyUC) updatePayment(ctx context.Context, gatewayPaymentID string, gw *adapter.GatewayPayment, mapped model.PaymentStatus) (*model.Payment, error) {
	log := logging.With(ctx, u.log)

	payment, err := u.findPaymentWithRetry(ctx, gatewayPaymentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn().Msg("payment row not found; continuing best-effort without local update")
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	var snapshot interface{} = map[string]interface{}{"status": gw.Status, "status_detail": gw.StatusDetail}
	if len(gw.Raw) > 0 {
		snapshot = gw.Raw
	}

	// Read-merge-write inside one transaction so concurrent verifies
	// cannot drop each other's metadata keys.
	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	err = u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		cur, err := u.payments.FindByGatewayID(ctx, tx, gatewayPaymentID)
		if err != nil {
			return err
		}
		merged := model.MergeVerifySnapshot(cur.Meta, snapshot)
		if err := u.payments.UpdateFromGateway(ctx, tx, gatewayPaymentID, mapped, gw.Status, merged); err != nil {
			return err
		}
		payment = cur
		payment.Meta = merged
		payment.Status = mapped
		payment.GatewayStatus = gw.Status
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("payment status update failed")
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return payment, nil
}

func (u *verifyUC) findPaymentWithRetry(ctx context.Context, gatewayPaymentID string) (*model.Payment, error) {
	var lastErr error
	for attempt := 0; attempt < paymentLookupRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(paymentLookupBackoff):
			}
		}
		p, err := u.payments.FindByGatewayID(ctx, repository.NoTX, gatewayPaymentID)
		if err == nil {
			return p, nil
		}
		lastErr = err
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	return nil, lastErr
}

// buildView joins the payment with its checkout and product for the
// response body. Lookup failures degrade to a bare payment view.
func (u *verifyUC) buildView(ctx context.Context, gw *adapter.GatewayPayment, payment *model.Payment) *PaymentView {
	if payment == nil {
		return nil
	}
	view := &PaymentView{Payment: payment}

	checkoutID := payment.CheckoutID
	if checkoutID == "" {
		checkoutID = gw.ExternalReference
	}
	if checkoutID == "" {
		return view
	}
	checkout, err := u.checkouts.FindByID(ctx, repository.NoTX, checkoutID)
	if err != nil {
		return view
	}
	view.Checkout = checkout
	if product, err := u.products.FindByID(ctx, repository.NoTX, checkout.ProductID); err == nil {
		view.Product = product
	}
	return view
}
