package api

import (
	"context"
	"net/http"

	"github.com/yarda-ai/orchestrator/internal/core/domain"
)

// GetBalance fetches the unified balance across all three ledgers.
func (c *Client) GetBalance(ctx context.Context) (*domain.UnifiedBalance, error) {
	var resp domain.UnifiedBalance
	if err := c.do(ctx, http.MethodGet, "/v1/credits/balance", nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
