package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"checkout-payments/internal/domain"
	"checkout-payments/internal/domain/model"
	"checkout-payments/internal/domain/ports/adapter"
	"checkout-payments/internal/domain/ports/repository"
	"checkout-payments/internal/infra/logging"
	"checkout-payments/internal/infra/metrics"
)

// StepOutcome records how one provisioning step ended. Failures are
// logged and counted but never abort the pipeline or the request.
type StepOutcome struct {
	Step    string
	Skipped bool
	Reason  string
	Err     error
}

// provisionState accumulates what the steps resolve. Later steps read
// it and skip themselves when a prerequisite is missing.
type provisionState struct {
	gw      *adapter.GatewayPayment
	payment *model.Payment // may be nil when the local row never showed up

	checkout *model.Checkout
	product  *model.Product

	buyerID    string
	buyerEmail string
	buyerName  string
	phone      string
	document   string
}

type provisionStep struct {
	name string
	run  func(ctx context.Context, st *provisionState) (skipped bool, reason string, err error)
}

// provision runs the post-approval pipeline: resolve context, resolve
// buyer, create order, grant access, send the delivery email. Each step
// is independently idempotent, so the whole pipeline is safe to re-run
// on every poll for an already-approved payment.
func (u *verifyUC) provision(ctx context.Context, gw *adapter.GatewayPayment, payment *model.Payment) []StepOutcome {
	log := logging.With(ctx, u.log)

	if u.locker != nil {
		key := "provision:" + gw.ID
		if token, err := u.locker.TryLock(ctx, key, provisionLockTTL); err == nil {
			defer func() { _ = u.locker.Unlock(ctx, key, token) }()
		} else {
			// Not having the lock is fine: the store-level uniqueness
			// constraints keep the duplicate run harmless.
			log.Debug().Err(err).Msg("provision lock not acquired; continuing")
		}
	}

	st := &provisionState{gw: gw, payment: payment}
	steps := []provisionStep{
		{"resolve_context", u.stepResolveContext},
		{"resolve_buyer", u.stepResolveBuyer},
		{"create_order", u.stepCreateOrder},
		{"grant_access", u.stepGrantAccess},
		{"send_email", u.stepSendEmail},
	}

	outcomes := make([]StepOutcome, 0, len(steps))
	for _, s := range steps {
		skipped, reason, err := s.run(ctx, st)
		out := StepOutcome{Step: s.name, Skipped: skipped, Reason: reason, Err: err}
		outcomes = append(outcomes, out)
		switch {
		case err != nil:
			metrics.ProvisionStep(s.name, "error")
			log.Error().Err(err).Str("step", s.name).Str("buyer_id", st.buyerID).Msg("provisioning step failed")
		case skipped:
			metrics.ProvisionStep(s.name, "skipped")
			log.Debug().Str("step", s.name).Str("reason", reason).Msg("provisioning step skipped")
		default:
			metrics.ProvisionStep(s.name, "ok")
		}
	}
	return outcomes
}

// stepResolveContext recovers the checkout and product. The gateway's
// echoed external reference wins; the payment row and its metadata are
// fallbacks. Both may stay nil — dependent steps skip themselves.
func (u *verifyUC) stepResolveContext(ctx context.Context, st *provisionState) (bool, string, error) {
	checkoutID := st.gw.ExternalReference
	if checkoutID == "" && st.payment != nil {
		checkoutID = st.payment.CheckoutID
		if checkoutID == "" {
			checkoutID = metaString(st.payment.Meta, "checkout_id")
		}
	}
	if checkoutID == "" {
		return true, "no checkout reference", nil
	}

	checkout, err := u.checkouts.FindByID(ctx, repository.NoTX, checkoutID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return true, "checkout not found", nil
		}
		return false, "", err
	}
	st.checkout = checkout

	if checkout.ProductID != "" {
		product, err := u.products.FindByID(ctx, repository.NoTX, checkout.ProductID)
		if err == nil {
			st.product = product
		} else if !errors.Is(err, domain.ErrNotFound) {
			return false, "", err
		}
	}
	return false, "", nil
}

// stepResolveBuyer finds or creates the buyer identity and back-fills
// the user id onto the payment row once.
func (u *verifyUC) stepResolveBuyer(ctx context.Context, st *provisionState) (bool, string, error) {
	customer := customerData(st.payment)
	st.buyerEmail = firstNonEmpty(customer["email"], st.gw.PayerEmail)
	st.buyerName = firstNonEmpty(customer["name"], st.gw.PayerFirstName)
	st.phone = customer["phone"]
	st.document = firstNonEmpty(customer["document"], st.gw.PayerDocumentID)

	if st.payment != nil && st.payment.UserID != nil && *st.payment.UserID != "" {
		st.buyerID = *st.payment.UserID
		return false, "", nil
	}

	if !model.ValidEmail(st.buyerEmail) {
		return true, "no valid buyer email", nil
	}

	profile, err := u.profiles.FindByEmail(ctx, repository.NoTX, st.buyerEmail)
	switch {
	case err == nil:
		st.buyerID = profile.UserID
	case errors.Is(err, domain.ErrNotFound):
		first, last := model.SplitName(st.buyerName)
		if first == "" {
			first = st.gw.PayerFirstName
			last = st.gw.PayerLastName
		}
		userID, createErr := u.identity.CreateUser(ctx, adapter.NewUserParams{
			Email:        st.buyerEmail,
			Password:     uuid.NewString(),
			EmailConfirm: true,
			FirstName:    first,
			LastName:     last,
			Phone:        st.phone,
			DocumentID:   st.document,
		})
		if createErr != nil {
			return false, "", createErr
		}
		st.buyerID = userID
	default:
		return false, "", err
	}

	if st.payment != nil && (st.payment.UserID == nil || *st.payment.UserID == "") {
		if err := u.payments.SetUserID(ctx, repository.NoTX, st.payment.ID, st.buyerID); err != nil {
			// The buyer is resolved either way; only the back-fill failed.
			logging.With(ctx, u.log).Warn().Err(err).Msg("user id back-fill failed")
		} else {
			id := st.buyerID
			st.payment.UserID = &id
		}
	}
	return false, "", nil
}

func (u *verifyUC) stepCreateOrder(ctx context.Context, st *provisionState) (bool, string, error) {
	if st.buyerID == "" || st.product == nil {
		return true, "buyer or product unresolved", nil
	}

	exists, err := u.orders.ExistsByGatewayID(ctx, repository.NoTX, st.gw.ID)
	if err != nil {
		return false, "", err
	}
	if exists {
		return true, "order already recorded", nil
	}

	amount := model.AmountFromMajor(st.gw.TransactionAmount)
	if st.payment != nil && st.payment.Amount > 0 {
		amount = st.payment.Amount
	}
	paymentID := ""
	if st.payment != nil {
		paymentID = st.payment.ID
	}
	checkoutID := ""
	if st.checkout != nil {
		checkoutID = st.checkout.ID
	}

	order := &model.Order{
		ID:               ulid.Make().String(),
		GatewayPaymentID: st.gw.ID,
		PaymentID:        paymentID,
		CheckoutID:       checkoutID,
		BuyerUserID:      st.buyerID,
		ProductID:        st.product.ID,
		Amount:           amount,
		Status:           model.OrderStatusPaid,
		Meta: map[string]interface{}{
			"gateway_status": st.gw.Status,
			"source":         "payment_verify",
		},
		CreatedAt: time.Now(),
	}
	if err := u.orders.Save(ctx, repository.NoTX, order); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			// Lost the check-then-insert race; the constraint did its job.
			return true, "order already recorded", nil
		}
		return false, "", err
	}
	return false, "", nil
}

func (u *verifyUC) stepGrantAccess(ctx context.Context, st *provisionState) (bool, string, error) {
	if st.buyerID == "" || st.product == nil {
		return true, "buyer or product unresolved", nil
	}

	exists, err := u.access.Exists(ctx, repository.NoTX, st.buyerID, st.product.ID)
	if err != nil {
		return false, "", err
	}
	if exists {
		return true, "access already granted", nil
	}

	paymentID := ""
	if st.payment != nil {
		paymentID = st.payment.ID
	}
	grant := &model.ProductAccess{
		ID:        uuid.NewString(),
		UserID:    st.buyerID,
		ProductID: st.product.ID,
		PaymentID: paymentID,
		Source:    model.AccessSourcePurchase,
		CreatedAt: time.Now(),
	}
	if err := u.access.Save(ctx, repository.NoTX, grant); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return true, "access already granted", nil
		}
		return false, "", err
	}
	return false, "", nil
}

func (u *verifyUC) stepSendEmail(ctx context.Context, st *provisionState) (bool, string, error) {
	cfg := resolveEmailConfig(st)
	if !cfg.Enabled {
		return true, "transactional email disabled", nil
	}
	if cfg.SellerUserID == "" {
		return true, "no seller account for sending", nil
	}
	if st.buyerEmail == "" {
		logging.With(ctx, u.log).Warn().Msg("buyer email missing; delivery email skipped")
		metrics.EmailDispatch("no_recipient")
		return true, "no buyer email", nil
	}

	msg := RenderDeliveryEmail(cfg, EmailVars{
		CustomerName: cfg.CustomerName,
		ProductName:  cfg.ProductName,
		AccessLink:   cfg.AccessLink,
		SupportEmail: cfg.SupportEmail,
	})
	err := u.mailer.Send(ctx, adapter.Email{
		To:           st.buyerEmail,
		Subject:      msg.Subject,
		HTML:         msg.HTML,
		SellerUserID: cfg.SellerUserID,
	})
	if err != nil {
		metrics.EmailDispatch("error")
		return false, "", err
	}
	metrics.EmailDispatch("sent")
	return false, "", nil
}

// ---- metadata helpers ----

// customerData returns the buyer-supplied checkout form values stored
// under the payment's "customer_data" metadata key.
func customerData(p *model.Payment) map[string]string {
	out := map[string]string{}
	if p == nil {
		return out
	}
	raw, ok := p.Meta["customer_data"].(map[string]interface{})
	if !ok {
		return out
	}
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

func metaString(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func metaBool(m map[string]interface{}, key string) bool {
	if m == nil {
		return false
	}
	b, _ := m[key].(bool)
	return b
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
