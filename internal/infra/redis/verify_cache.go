package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"checkout-payments/internal/usecase"
)

var _ usecase.VerifyCache = (*VerifyCache)(nil)

// VerifyCache keeps recent verify results for the duration of roughly
// one success-page polling interval so repeat polls and duplicate
// webhook deliveries skip the gateway round trip. Best effort: any
// Redis failure degrades to a cache miss.
type VerifyCache struct {
	cli *Client
	ttl time.Duration
	log *zerolog.Logger
}

func NewVerifyCache(c *Client, ttl time.Duration, logger *zerolog.Logger) *VerifyCache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &VerifyCache{cli: c, ttl: ttl, log: logger}
}

func key(gatewayPaymentID string) string { return "verify:" + gatewayPaymentID }

func (c *VerifyCache) Get(ctx context.Context, gatewayPaymentID string) (*usecase.VerifyResult, bool) {
	raw, err := c.cli.Get(ctx, key(gatewayPaymentID))
	if err != nil {
		return nil, false
	}
	var res usecase.VerifyResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		c.log.Warn().Err(err).Msg("corrupt verify cache entry dropped")
		_ = c.cli.Del(ctx, key(gatewayPaymentID))
		return nil, false
	}
	return &res, true
}

func (c *VerifyCache) Set(ctx context.Context, gatewayPaymentID string, res *usecase.VerifyResult) {
	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := c.cli.Set(ctx, key(gatewayPaymentID), raw, c.ttl); err != nil {
		c.log.Debug().Err(err).Msg("verify cache write failed")
	}
}
