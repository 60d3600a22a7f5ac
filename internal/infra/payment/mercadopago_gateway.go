package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"checkout-payments/internal/domain"
	"checkout-payments/internal/domain/ports/adapter"
)

// MercadoPagoGateway implements the payment lookup port using direct
// HTTP calls against the Mercado Pago REST API.
type MercadoPagoGateway struct {
	baseURL string
	client  *http.Client
}

func NewMercadoPagoGateway(baseURL string, timeout time.Duration) *MercadoPagoGateway {
	if baseURL == "" {
		baseURL = "https://api.mercadopago.com"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &MercadoPagoGateway{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (g *MercadoPagoGateway) Name() string { return "mercadopago" }

// mpPaymentResponse mirrors the fields of GET /v1/payments/{id} this
// service reads. The full body is kept as the raw snapshot.
type mpPaymentResponse struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	StatusDetail      string      `json:"status_detail"`
	TransactionAmount float64     `json:"transaction_amount"`
	ExternalReference string      `json:"external_reference"`
	Payer             struct {
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Identification struct {
			Type   string `json:"type"`
			Number string `json:"number"`
		} `json:"identification"`
	} `json:"payer"`
}

type mpErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Status  int    `json:"status"`
}

// FetchPayment reads the authoritative state of one payment. Non-2xx
// responses become domain.ErrGateway carrying the gateway's message;
// the caller surfaces that as a client error and keeps polling.
func (g *MercadoPagoGateway) FetchPayment(ctx context.Context, accessToken, gatewayPaymentID string) (*adapter.GatewayPayment, error) {
	url := fmt.Sprintf("%s/v1/payments/%s", g.baseURL, gatewayPaymentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGateway, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var gwErr mpErrorResponse
		if err := json.Unmarshal(body, &gwErr); err == nil && gwErr.Message != "" {
			return nil, fmt.Errorf("%w: %s (http %d)", domain.ErrGateway, gwErr.Message, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: http %d: %s", domain.ErrGateway, resp.StatusCode, strconv.Quote(string(body)))
	}

	var mp mpPaymentResponse
	if err := json.Unmarshal(body, &mp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w, body: %s", err, string(body))
	}

	id := mp.ID.String()
	if id == "" {
		id = gatewayPaymentID
	}
	return &adapter.GatewayPayment{
		ID:                id,
		Status:            mp.Status,
		StatusDetail:      mp.StatusDetail,
		TransactionAmount: mp.TransactionAmount,
		ExternalReference: mp.ExternalReference,
		PayerEmail:        mp.Payer.Email,
		PayerFirstName:    mp.Payer.FirstName,
		PayerLastName:     mp.Payer.LastName,
		PayerDocumentType: mp.Payer.Identification.Type,
		PayerDocumentID:   mp.Payer.Identification.Number,
		Raw:               json.RawMessage(body),
	}, nil
}
