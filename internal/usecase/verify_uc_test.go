//go:build !integration

package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"checkout-payments/internal/domain"
	"checkout-payments/internal/domain/model"
	"checkout-payments/internal/domain/ports/adapter"
	"checkout-payments/internal/domain/ports/repository"
	"checkout-payments/internal/usecase"
)

// verifyUCTestDeps holds every mock dependency for the verify use case.
type verifyUCTestDeps struct {
	integrations *MockIntegrationRepo
	payments     *MockPaymentRepo
	checkouts    *MockCheckoutRepo
	products     *MockProductRepo
	orders       *MockOrderRepo
	access       *MockAccessRepo
	profiles     *MockProfileRepo

	gateway  *MockGateway
	identity *MockIdentity
	mailer   *MockMailer

	tm     *MockTxManager
	cache  *MockCache
	locker *MockLocker

	fallbackToken string
}

func newVerifyDeps() *verifyUCTestDeps {
	return &verifyUCTestDeps{
		integrations: &MockIntegrationRepo{Token: "stored-token"},
		payments:     NewMockPaymentRepo(),
		checkouts:    NewMockCheckoutRepo(),
		products:     NewMockProductRepo(),
		orders:       NewMockOrderRepo(),
		access:       NewMockAccessRepo(),
		profiles:     NewMockProfileRepo(),
		gateway:      &MockGateway{},
		identity:     &MockIdentity{},
		mailer:       &MockMailer{},
		tm:           &MockTxManager{},
	}
}

func (d *verifyUCTestDeps) build() usecase.VerifyUseCase {
	deps := usecase.VerifyDeps{
		Integrations:  d.integrations,
		Payments:      d.payments,
		Checkouts:     d.checkouts,
		Products:      d.products,
		Orders:        d.orders,
		Access:        d.access,
		Profiles:      d.profiles,
		Gateway:       d.gateway,
		Identity:      d.identity,
		Mailer:        d.mailer,
		TM:            d.tm,
		FallbackToken: d.fallbackToken,
	}
	// Typed nils must not end up inside the optional interface fields.
	if d.cache != nil {
		deps.Cache = d.cache
	}
	if d.locker != nil {
		deps.Locker = d.locker
	}
	return usecase.NewVerifyUseCase(deps, newTestLogger())
}

// seedApprovedSale loads the mocks with a complete approved sale:
// checkout, product, pending payment row and an approved gateway view.
func seedApprovedSale(d *verifyUCTestDeps) {
	d.products.Put(&model.Product{ID: "prod-1", Name: "Curso de Violão", MemberAreaLink: "https://members.example.com/violao"})
	d.checkouts.Put(&model.Checkout{
		ID:           "chk-1",
		SellerUserID: "seller-1",
		ProductID:    "prod-1",
		EmailEnabled: true,
	})
	d.payments.Put(&model.Payment{
		ID:               "pay-1",
		GatewayPaymentID: "12345",
		CheckoutID:       "chk-1",
		Status:           model.PaymentStatusPending,
		Meta: map[string]interface{}{
			"customer_data": map[string]interface{}{
				"name":  "Maria Silva",
				"email": "maria@example.com",
				"phone": "+5511999990000",
			},
		},
	})
	d.gateway.Payment = &adapter.GatewayPayment{
		ID:                "12345",
		Status:            "approved",
		StatusDetail:      "accredited",
		TransactionAmount: 97.00,
		ExternalReference: "chk-1",
		PayerEmail:        "maria@payer.example.com",
		PayerFirstName:    "Maria",
		Raw:               json.RawMessage(`{"id":12345,"status":"approved"}`),
	}
}

func TestVerifyUseCase_Verify_InputAndCredentials(t *testing.T) {
	ctx := context.Background()

	t.Run("should reject an empty payment id", func(t *testing.T) {
		deps := newVerifyDeps()
		uc := deps.build()

		_, err := uc.Verify(ctx, "   ")
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
		if deps.gateway.Calls != 0 {
			t.Error("gateway must not be called for invalid input")
		}
	})

	t.Run("should fail when no access token is available", func(t *testing.T) {
		deps := newVerifyDeps()
		deps.integrations.Token = ""
		deps.fallbackToken = ""
		uc := deps.build()

		_, err := uc.Verify(ctx, "12345")
		if !errors.Is(err, domain.ErrConfiguration) {
			t.Fatalf("expected ErrConfiguration, got %v", err)
		}
		if deps.gateway.Calls != 0 {
			t.Error("gateway must not be called without a token")
		}
	})

	t.Run("should prefer the stored integration token", func(t *testing.T) {
		deps := newVerifyDeps()
		seedApprovedSale(deps)
		deps.integrations.Token = "stored-token"
		deps.fallbackToken = "env-token"
		uc := deps.build()

		if _, err := uc.Verify(ctx, "12345"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if deps.gateway.LastToken != "stored-token" {
			t.Errorf("expected stored token, gateway saw %q", deps.gateway.LastToken)
		}
	})

	t.Run("should fall back to the configured token when none is stored", func(t *testing.T) {
		deps := newVerifyDeps()
		seedApprovedSale(deps)
		deps.integrations.Token = ""
		deps.fallbackToken = "env-token"
		uc := deps.build()

		if _, err := uc.Verify(ctx, "12345"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if deps.gateway.LastToken != "env-token" {
			t.Errorf("expected fallback token, gateway saw %q", deps.gateway.LastToken)
		}
	})

	t.Run("should surface gateway lookup failures", func(t *testing.T) {
		deps := newVerifyDeps()
		deps.gateway.Err = domain.ErrGateway
		uc := deps.build()

		_, err := uc.Verify(ctx, "12345")
		if !errors.Is(err, domain.ErrGateway) {
			t.Fatalf("expected ErrGateway, got %v", err)
		}
	})
}

func TestVerifyUseCase_Verify_StatusMapping(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		gwStatus string
		want     model.PaymentStatus
	}{
		{"approved", model.PaymentStatusCompleted},
		{"rejected", model.PaymentStatusFailed},
		{"pending", model.PaymentStatusPending},
		{"in_process", model.PaymentStatusPending},
		{"cancelled", model.PaymentStatusPending},
		{"charged_back", model.PaymentStatusPending},
		{"some_future_status", model.PaymentStatusPending},
	}
	for _, tc := range cases {
		t.Run(tc.gwStatus, func(t *testing.T) {
			deps := newVerifyDeps()
			seedApprovedSale(deps)
			deps.gateway.Payment.Status = tc.gwStatus
			uc := deps.build()

			res, err := uc.Verify(ctx, "12345")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Status != tc.want {
				t.Errorf("status %q mapped to %q, want %q", tc.gwStatus, res.Status, tc.want)
			}
			if p := deps.payments.Get("12345"); p.Status != tc.want {
				t.Errorf("persisted status is %q, want %q", p.Status, tc.want)
			}
			if tc.want != model.PaymentStatusCompleted && deps.orders.Count() != 0 {
				t.Error("non-approved payment must not be provisioned")
			}
		})
	}
}

func TestVerifyUseCase_Verify_ApprovedProvisioning(t *testing.T) {
	ctx := context.Background()

	t.Run("should provision the full purchase on approval", func(t *testing.T) {
		deps := newVerifyDeps()
		seedApprovedSale(deps)
		uc := deps.build()

		res, err := uc.Verify(ctx, "12345")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Status != model.PaymentStatusCompleted {
			t.Fatalf("expected completed, got %q", res.Status)
		}

		// Buyer created from the checkout form data, not the payer email.
		if len(deps.identity.Created) != 1 {
			t.Fatalf("expected 1 user creation, got %d", len(deps.identity.Created))
		}
		created := deps.identity.Created[0]
		if created.Email != "maria@example.com" {
			t.Errorf("buyer email = %q, want the checkout form email", created.Email)
		}
		if created.FirstName != "Maria" || created.LastName != "Silva" {
			t.Errorf("name split = %q/%q", created.FirstName, created.LastName)
		}
		if !created.EmailConfirm {
			t.Error("buyer account must be created pre-confirmed")
		}

		// Order recorded in minor units: 97.00 -> 9700.
		orders, _ := deps.orders.ListRecent(ctx, nil, 0, 10)
		if len(orders) != 1 {
			t.Fatalf("expected 1 order, got %d", len(orders))
		}
		if orders[0].Amount != 9700 {
			t.Errorf("order amount = %d, want 9700", orders[0].Amount)
		}
		if orders[0].Status != model.OrderStatusPaid {
			t.Errorf("order status = %q, want paid", orders[0].Status)
		}
		if orders[0].ID == "" {
			t.Error("order id must be assigned")
		}

		if deps.access.Count() != 1 {
			t.Fatalf("expected 1 access grant, got %d", deps.access.Count())
		}

		// Delivery email rendered from the default template.
		if deps.mailer.SentCount() != 1 {
			t.Fatalf("expected 1 email, got %d", deps.mailer.SentCount())
		}
		sent := deps.mailer.Sent[0]
		if sent.To != "maria@example.com" {
			t.Errorf("email recipient = %q", sent.To)
		}
		if !strings.Contains(sent.Subject, "Curso de Violão") {
			t.Errorf("subject %q missing product name", sent.Subject)
		}
		if !strings.Contains(sent.HTML, "Olá Maria") {
			t.Errorf("body %q missing customer first name", sent.HTML)
		}
		if !strings.Contains(sent.HTML, "https://members.example.com/violao") {
			t.Errorf("body %q missing access link", sent.HTML)
		}
		if strings.Contains(sent.HTML, "{") {
			t.Errorf("body %q still carries template tokens", sent.HTML)
		}

		// User id back-filled onto the payment row.
		p := deps.payments.Get("12345")
		if p.UserID == nil || *p.UserID == "" {
			t.Error("payment user id was not back-filled")
		}
	})

	t.Run("should be idempotent across repeated verifies", func(t *testing.T) {
		deps := newVerifyDeps()
		seedApprovedSale(deps)
		uc := deps.build()

		for i := 0; i < 3; i++ {
			if _, err := uc.Verify(ctx, "12345"); err != nil {
				t.Fatalf("verify %d failed: %v", i+1, err)
			}
		}

		if deps.orders.Count() != 1 {
			t.Errorf("expected exactly 1 order after 3 verifies, got %d", deps.orders.Count())
		}
		if deps.access.Count() != 1 {
			t.Errorf("expected exactly 1 access grant, got %d", deps.access.Count())
		}
		if len(deps.identity.Created) != 1 {
			t.Errorf("expected exactly 1 user creation, got %d", len(deps.identity.Created))
		}
	})

	t.Run("should reuse an existing profile instead of creating a user", func(t *testing.T) {
		deps := newVerifyDeps()
		seedApprovedSale(deps)
		deps.profiles.Put(&model.Profile{UserID: "user-existing", Email: "maria@example.com"})
		uc := deps.build()

		if _, err := uc.Verify(ctx, "12345"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(deps.identity.Created) != 0 {
			t.Errorf("expected no user creation, got %d", len(deps.identity.Created))
		}
		orders, _ := deps.orders.ListRecent(ctx, nil, 0, 10)
		if len(orders) != 1 || orders[0].BuyerUserID != "user-existing" {
			t.Errorf("order not attributed to the existing profile: %+v", orders)
		}
	})

	t.Run("should skip provisioning steps without a valid buyer email", func(t *testing.T) {
		deps := newVerifyDeps()
		seedApprovedSale(deps)
		deps.payments.Put(&model.Payment{
			ID:               "pay-1",
			GatewayPaymentID: "12345",
			CheckoutID:       "chk-1",
			Status:           model.PaymentStatusPending,
			Meta:             map[string]interface{}{},
		})
		deps.gateway.Payment.PayerEmail = "not-an-email"
		uc := deps.build()

		res, err := uc.Verify(ctx, "12345")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Status != model.PaymentStatusCompleted {
			t.Fatalf("status must still be completed, got %q", res.Status)
		}
		if len(deps.identity.Created) != 0 || deps.orders.Count() != 0 || deps.mailer.SentCount() != 0 {
			t.Error("nothing should be provisioned without a buyer")
		}
	})

	t.Run("should not fail the verify when provisioning steps fail", func(t *testing.T) {
		deps := newVerifyDeps()
		seedApprovedSale(deps)
		deps.orders.SaveFunc = func(ctx context.Context, tx repository.Tx, o *model.Order) error {
			return errors.New("orders table on fire")
		}
		deps.mailer.SendFunc = func(ctx context.Context, e adapter.Email) error {
			return errors.New("smtp down")
		}
		uc := deps.build()

		res, err := uc.Verify(ctx, "12345")
		if err != nil {
			t.Fatalf("verify must not fail on provisioning errors, got: %v", err)
		}
		if res.Status != model.PaymentStatusCompleted {
			t.Fatalf("expected completed, got %q", res.Status)
		}
		// Access is still granted even though the order insert failed.
		if deps.access.Count() != 1 {
			t.Errorf("expected access grant despite order failure, got %d", deps.access.Count())
		}
		failed := 0
		for _, s := range res.Steps {
			if s.Err != nil {
				failed++
			}
		}
		if failed != 2 {
			t.Errorf("expected 2 failed steps recorded, got %d (%+v)", failed, res.Steps)
		}
	})

	t.Run("should tolerate a missing local payment row", func(t *testing.T) {
		deps := newVerifyDeps()
		seedApprovedSale(deps)
		deps.payments = NewMockPaymentRepo() // empty: webhook insert never landed
		uc := deps.build()

		res, err := uc.Verify(ctx, "12345")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Status != model.PaymentStatusCompleted {
			t.Fatalf("expected completed, got %q", res.Status)
		}
		if res.Payment != nil {
			t.Error("no payment view without a local row")
		}
		// The external reference still drives provisioning.
		if deps.orders.Count() != 1 {
			t.Errorf("expected 1 order via external reference, got %d", deps.orders.Count())
		}
	})
}

func TestVerifyUseCase_Verify_MetadataMerge(t *testing.T) {
	ctx := context.Background()

	t.Run("should preserve existing metadata keys", func(t *testing.T) {
		deps := newVerifyDeps()
		seedApprovedSale(deps)
		uc := deps.build()

		if _, err := uc.Verify(ctx, "12345"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		p := deps.payments.Get("12345")
		if _, ok := p.Meta["customer_data"]; !ok {
			t.Error("customer_data was dropped by the metadata merge")
		}
		snap, ok := p.Meta[model.MetadataVerifyKey]
		if !ok {
			t.Fatal("verify snapshot missing from metadata")
		}
		raw, ok := snap.(json.RawMessage)
		if !ok {
			t.Fatalf("snapshot should be the raw gateway body, got %T", snap)
		}
		if !strings.Contains(string(raw), `"status":"approved"`) {
			t.Errorf("snapshot body = %s", raw)
		}
	})

	t.Run("should wrap persistence failures", func(t *testing.T) {
		deps := newVerifyDeps()
		seedApprovedSale(deps)
		deps.payments.UpdateFromGatewayFunc = func(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, gwStatus string, meta map[string]interface{}) error {
			return errors.New("disk full")
		}
		uc := deps.build()

		_, err := uc.Verify(ctx, "12345")
		if !errors.Is(err, domain.ErrPersistence) {
			t.Fatalf("expected ErrPersistence, got %v", err)
		}
	})
}

func TestVerifyUseCase_Verify_CacheAndLock(t *testing.T) {
	ctx := context.Background()

	t.Run("should serve repeat polls from the cache", func(t *testing.T) {
		deps := newVerifyDeps()
		seedApprovedSale(deps)
		deps.cache = NewMockCache()
		uc := deps.build()

		first, err := uc.Verify(ctx, "12345")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := uc.Verify(ctx, "12345")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if deps.gateway.Calls != 1 {
			t.Errorf("expected 1 gateway call, got %d", deps.gateway.Calls)
		}
		if second.Status != first.Status {
			t.Errorf("cached result drifted: %q vs %q", second.Status, first.Status)
		}
	})

	t.Run("should not cache a result with failed provisioning steps", func(t *testing.T) {
		deps := newVerifyDeps()
		seedApprovedSale(deps)
		deps.cache = NewMockCache()
		deps.mailer.SendFunc = func(ctx context.Context, e adapter.Email) error {
			return errors.New("smtp down")
		}
		uc := deps.build()

		if _, err := uc.Verify(ctx, "12345"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if deps.cache.Sets != 0 {
			t.Errorf("result with a failed step must not be cached, got %d sets", deps.cache.Sets)
		}
		// The next poll re-drives the pipeline.
		if _, err := uc.Verify(ctx, "12345"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if deps.gateway.Calls != 2 {
			t.Errorf("expected 2 gateway calls, got %d", deps.gateway.Calls)
		}
	})

	t.Run("should provision even when the lock is unavailable", func(t *testing.T) {
		deps := newVerifyDeps()
		seedApprovedSale(deps)
		deps.locker = NewMockLocker()
		deps.locker.TryLockErr = errors.New("redis gone")
		uc := deps.build()

		if _, err := uc.Verify(ctx, "12345"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if deps.orders.Count() != 1 {
			t.Errorf("expected provisioning without the lock, got %d orders", deps.orders.Count())
		}
	})
}
