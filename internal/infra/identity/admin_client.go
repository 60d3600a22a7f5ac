package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"checkout-payments/internal/domain/ports/adapter"
)

// AdminClient talks to the auth service's admin API (GoTrue-compatible)
// with a service-role key. Only user creation is needed here; lookups
// go through the profiles table.
type AdminClient struct {
	baseURL    string
	serviceKey string
	client     *http.Client
}

func NewAdminClient(baseURL, serviceKey string, timeout time.Duration) *AdminClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AdminClient{
		baseURL:    baseURL,
		serviceKey: serviceKey,
		client:     &http.Client{Timeout: timeout},
	}
}

type createUserRequest struct {
	Email        string                 `json:"email"`
	Password     string                 `json:"password"`
	EmailConfirm bool                   `json:"email_confirm"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
}

type createUserResponse struct {
	ID  string `json:"id"`
	Msg string `json:"msg"`
}

func (c *AdminClient) CreateUser(ctx context.Context, p adapter.NewUserParams) (string, error) {
	meta := map[string]interface{}{}
	if p.FirstName != "" {
		meta["first_name"] = p.FirstName
	}
	if p.LastName != "" {
		meta["last_name"] = p.LastName
	}
	if p.Phone != "" {
		meta["phone"] = p.Phone
	}
	if p.DocumentID != "" {
		meta["document_id"] = p.DocumentID
	}

	body, err := json.Marshal(createUserRequest{
		Email:        p.Email,
		Password:     p.Password,
		EmailConfirm: p.EmailConfirm,
		UserMetadata: meta,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/admin/users"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("identity provider error: http %d: %s", resp.StatusCode, string(raw))
	}

	var cu createUserResponse
	if err := json.Unmarshal(raw, &cu); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w, body: %s", err, string(raw))
	}
	if cu.ID == "" {
		return "", fmt.Errorf("identity provider returned no user id: %s", string(raw))
	}
	return cu.ID, nil
}
