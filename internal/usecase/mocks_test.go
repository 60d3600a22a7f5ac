//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"checkout-payments/internal/domain"
	"checkout-payments/internal/domain/model"
	"checkout-payments/internal/domain/ports/adapter"
	"checkout-payments/internal/domain/ports/repository"
	"checkout-payments/internal/usecase"
)

// =============================
// Adapters
// =============================

// ---- Mock PaymentGateway ----

type MockGateway struct {
	mu    sync.Mutex
	Calls int

	Payment   *adapter.GatewayPayment
	Err       error
	FetchFunc func(ctx context.Context, accessToken, id string) (*adapter.GatewayPayment, error)

	LastToken string
}

var _ adapter.PaymentGateway = (*MockGateway)(nil)

func (g *MockGateway) Name() string { return "mercadopago" }

func (g *MockGateway) FetchPayment(ctx context.Context, accessToken, id string) (*adapter.GatewayPayment, error) {
	g.mu.Lock()
	g.Calls++
	g.LastToken = accessToken
	g.mu.Unlock()
	if g.FetchFunc != nil {
		return g.FetchFunc(ctx, accessToken, id)
	}
	if g.Err != nil {
		return nil, g.Err
	}
	if g.Payment == nil {
		return nil, domain.ErrGateway
	}
	cp := *g.Payment
	return &cp, nil
}

// ---- Mock IdentityProvider ----

type MockIdentity struct {
	mu      sync.Mutex
	Created []adapter.NewUserParams

	CreateUserFunc func(ctx context.Context, p adapter.NewUserParams) (string, error)
}

var _ adapter.IdentityProvider = (*MockIdentity)(nil)

func (m *MockIdentity) CreateUser(ctx context.Context, p adapter.NewUserParams) (string, error) {
	if m.CreateUserFunc != nil {
		return m.CreateUserFunc(ctx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Created = append(m.Created, p)
	return "user-" + strings.ToLower(p.Email), nil
}

// ---- Mock Mailer ----

type MockMailer struct {
	mu   sync.Mutex
	Sent []adapter.Email

	SendFunc func(ctx context.Context, e adapter.Email) error
}

var _ adapter.Mailer = (*MockMailer)(nil)

func (m *MockMailer) Send(ctx context.Context, e adapter.Email) error {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, e)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, e)
	return nil
}

func (m *MockMailer) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

// =============================
// Repositories
// =============================

// ---- Payments ----

type MockPaymentRepo struct {
	mu   sync.Mutex
	data map[string]*model.Payment // by gateway payment id

	FindByGatewayIDFunc   func(ctx context.Context, tx repository.Tx, gatewayPaymentID string) (*model.Payment, error)
	UpdateFromGatewayFunc func(ctx context.Context, tx repository.Tx, gatewayPaymentID string, status model.PaymentStatus, gatewayStatus string, meta map[string]interface{}) error
	SetUserIDFunc         func(ctx context.Context, tx repository.Tx, paymentID, userID string) error
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{data: map[string]*model.Payment{}}
}

func (r *MockPaymentRepo) Put(p *model.Payment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := clonePayment(p)
	r.data[p.GatewayPaymentID] = cp
}

func (r *MockPaymentRepo) Get(gatewayPaymentID string) *model.Payment {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[gatewayPaymentID]
	if !ok {
		return nil
	}
	return clonePayment(p)
}

func (r *MockPaymentRepo) FindByGatewayID(ctx context.Context, tx repository.Tx, gatewayPaymentID string) (*model.Payment, error) {
	if r.FindByGatewayIDFunc != nil {
		return r.FindByGatewayIDFunc(ctx, tx, gatewayPaymentID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[gatewayPaymentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clonePayment(p), nil
}

func (r *MockPaymentRepo) UpdateFromGateway(ctx context.Context, tx repository.Tx, gatewayPaymentID string, status model.PaymentStatus, gatewayStatus string, meta map[string]interface{}) error {
	if r.UpdateFromGatewayFunc != nil {
		return r.UpdateFromGatewayFunc(ctx, tx, gatewayPaymentID, status, gatewayStatus, meta)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[gatewayPaymentID]
	if !ok {
		return domain.ErrNotFound
	}
	p.Status = status
	p.GatewayStatus = gatewayStatus
	p.Meta = meta
	p.UpdatedAt = time.Now()
	return nil
}

func (r *MockPaymentRepo) SetUserID(ctx context.Context, tx repository.Tx, paymentID, userID string) error {
	if r.SetUserIDFunc != nil {
		return r.SetUserIDFunc(ctx, tx, paymentID, userID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.data {
		if p.ID == paymentID {
			if p.UserID == nil || *p.UserID == "" {
				id := userID
				p.UserID = &id
			}
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *MockPaymentRepo) ListRecent(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Payment, 0, len(r.data))
	for _, p := range r.data {
		out = append(out, clonePayment(p))
	}
	return out, nil
}

func (r *MockPaymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Payment, 0)
	for _, p := range r.data {
		if p.Status == model.PaymentStatusPending && p.CreatedAt.Before(olderThan) {
			out = append(out, clonePayment(p))
		}
	}
	return out, nil
}

func clonePayment(p *model.Payment) *model.Payment {
	cp := *p
	if p.Meta != nil {
		cp.Meta = make(map[string]interface{}, len(p.Meta))
		for k, v := range p.Meta {
			cp.Meta[k] = v
		}
	}
	return &cp
}

// ---- Checkouts & products ----

type MockCheckoutRepo struct {
	mu   sync.Mutex
	data map[string]*model.Checkout

	FindByIDFunc func(ctx context.Context, tx repository.Tx, id string) (*model.Checkout, error)
}

var _ repository.CheckoutRepository = (*MockCheckoutRepo)(nil)

func NewMockCheckoutRepo() *MockCheckoutRepo {
	return &MockCheckoutRepo{data: map[string]*model.Checkout{}}
}

func (r *MockCheckoutRepo) Put(c *model.Checkout) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.data[c.ID] = &cp
}

func (r *MockCheckoutRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Checkout, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

type MockProductRepo struct {
	mu   sync.Mutex
	data map[string]*model.Product
}

var _ repository.ProductRepository = (*MockProductRepo)(nil)

func NewMockProductRepo() *MockProductRepo {
	return &MockProductRepo{data: map[string]*model.Product{}}
}

func (r *MockProductRepo) Put(p *model.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.data[p.ID] = &cp
}

func (r *MockProductRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// ---- Orders ----

type MockOrderRepo struct {
	mu   sync.Mutex
	data map[string]*model.Order // by gateway payment id

	SaveFunc func(ctx context.Context, tx repository.Tx, o *model.Order) error
}

var _ repository.OrderRepository = (*MockOrderRepo)(nil)

func NewMockOrderRepo() *MockOrderRepo {
	return &MockOrderRepo{data: map[string]*model.Order{}}
}

func (r *MockOrderRepo) ExistsByGatewayID(ctx context.Context, tx repository.Tx, gatewayPaymentID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.data[gatewayPaymentID]
	return ok, nil
}

func (r *MockOrderRepo) Save(ctx context.Context, tx repository.Tx, o *model.Order) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, o)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	// Mirrors the unique index on gateway_payment_id.
	if _, ok := r.data[o.GatewayPaymentID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *o
	r.data[o.GatewayPaymentID] = &cp
	return nil
}

func (r *MockOrderRepo) ListRecent(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Order, 0, len(r.data))
	for _, o := range r.data {
		cp := *o
		out = append(out, &cp)
	}
	return out, nil
}

func (r *MockOrderRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data)
}

// ---- Product access ----

type MockAccessRepo struct {
	mu   sync.Mutex
	data map[string]*model.ProductAccess // by userID+"/"+productID

	SaveFunc func(ctx context.Context, tx repository.Tx, a *model.ProductAccess) error
}

var _ repository.ProductAccessRepository = (*MockAccessRepo)(nil)

func NewMockAccessRepo() *MockAccessRepo {
	return &MockAccessRepo{data: map[string]*model.ProductAccess{}}
}

func (r *MockAccessRepo) Exists(ctx context.Context, tx repository.Tx, userID, productID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.data[userID+"/"+productID]
	return ok, nil
}

func (r *MockAccessRepo) Save(ctx context.Context, tx repository.Tx, a *model.ProductAccess) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, a)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := a.UserID + "/" + a.ProductID
	if _, ok := r.data[key]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *a
	r.data[key] = &cp
	return nil
}

func (r *MockAccessRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data)
}

// ---- Profiles & integrations ----

type MockProfileRepo struct {
	mu   sync.Mutex
	data map[string]*model.Profile // by lowercased email
}

var _ repository.ProfileRepository = (*MockProfileRepo)(nil)

func NewMockProfileRepo() *MockProfileRepo {
	return &MockProfileRepo{data: map[string]*model.Profile{}}
}

func (r *MockProfileRepo) Put(p *model.Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.data[strings.ToLower(p.Email)] = &cp
}

func (r *MockProfileRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[strings.ToLower(email)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

type MockIntegrationRepo struct {
	Token string
	Err   error
}

var _ repository.IntegrationRepository = (*MockIntegrationRepo)(nil)

func (r *MockIntegrationRepo) FindGatewayToken(ctx context.Context, tx repository.Tx) (string, error) {
	if r.Err != nil {
		return "", r.Err
	}
	if r.Token == "" {
		return "", domain.ErrNotFound
	}
	return r.Token, nil
}

// =============================
// Infra
// =============================

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs the function immediately without a real transaction.
// Assign WithTxFunc to simulate transactional failures.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

type MockCache struct {
	mu   sync.Mutex
	data map[string]*usecase.VerifyResult

	Hits int
	Sets int
}

var _ usecase.VerifyCache = (*MockCache)(nil)

func NewMockCache() *MockCache {
	return &MockCache{data: map[string]*usecase.VerifyResult{}}
}

func (c *MockCache) Get(ctx context.Context, id string) (*usecase.VerifyResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, ok := c.data[id]
	if ok {
		c.Hits++
	}
	return res, ok
}

func (c *MockCache) Set(ctx context.Context, id string, res *usecase.VerifyResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Sets++
	c.data[id] = res
}

type MockLocker struct {
	mu   sync.Mutex
	held map[string]string

	TryLockErr error
}

var _ usecase.ProvisionLocker = (*MockLocker)(nil)

func NewMockLocker() *MockLocker {
	return &MockLocker{held: map[string]string{}}
}

func (l *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.TryLockErr != nil {
		return "", l.TryLockErr
	}
	if _, ok := l.held[key]; ok {
		return "", errors.New("locked")
	}
	tok := uuid.NewString()
	l.held[key] = tok
	return tok, nil
}

func (l *MockLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
		return nil
	}
	return errors.New("unlock token mismatch")
}

// newTestLogger creates a silent zerolog.Logger so test output stays
// readable.
func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}
