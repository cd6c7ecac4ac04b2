package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/yarda-ai/orchestrator/internal/core/domain"
)

// submitRequest is the POST /generations/multi payload.
type submitRequest struct {
	Address string            `json:"address"`
	Areas   []domain.AreaSpec `json:"areas"`
}

// SubmitGeneration creates a multi-area generation job and returns the
// server-assigned id with per-area initial status. The idempotency key must
// stay fixed across retries of the same submission so a re-issued POST
// cannot double-bill; an empty key gets a fresh one.
func (c *Client) SubmitGeneration(ctx context.Context, address string, areas []domain.AreaSpec, idempotencyKey string) (*domain.GenerationRequest, error) {
	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}
	headers := map[string]string{"Idempotency-Key": idempotencyKey}

	var resp domain.GenerationRequest
	err := c.do(ctx, http.MethodPost, "/generations/multi", headers, submitRequest{
		Address: address,
		Areas:   areas,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetGeneration fetches the current status of a generation job.
func (c *Client) GetGeneration(ctx context.Context, id string) (*domain.GenerationRequest, error) {
	var resp domain.GenerationRequest
	if err := c.do(ctx, http.MethodGet, "/generations/"+id, nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
