package control

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yarda-ai/orchestrator/internal/core/auth"
	"github.com/yarda-ai/orchestrator/internal/core/domain"
	"github.com/yarda-ai/orchestrator/internal/core/validate"
	"github.com/yarda-ai/orchestrator/internal/infra/api"
	"github.com/yarda-ai/orchestrator/internal/infra/storage"
	"github.com/yarda-ai/orchestrator/internal/orchestration/metrics"
	"github.com/yarda-ai/orchestrator/internal/orchestration/poller"
	"github.com/yarda-ai/orchestrator/internal/orchestration/retry"
)

// Submit validates, authorizes, and submits a multi-area generation, then
// starts the polling loop. The returned stream ends with exactly one
// terminal event; snapshot cleanup and history updates happen inside the
// orchestrator before each event is forwarded.
func (o *Orchestrator) Submit(ctx context.Context, address string, areas []domain.AreaSpec) (*domain.GenerationRequest, <-chan poller.Event, error) {
	if err := validate.Submission(address, areas); err != nil {
		return nil, nil, err
	}

	// Reserve the active slot before any network call so two racing
	// submissions cannot both reach the backend. watch consumes the claim;
	// every failure path releases it.
	if err := o.claimActive(); err != nil {
		return nil, nil, err
	}
	defer o.releaseClaim()

	// Gate on the balance. EnsureBalance coalesces onto an in-flight
	// refresh, so racing the manager's timer cannot read as a zero balance.
	bal, err := o.credits.EnsureBalance(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrBalanceUnavailable, err)
	}
	if !auth.CanGenerate(bal) {
		return nil, nil, fmt.Errorf("method %s: %w", auth.Resolve(bal), ErrInsufficientCredits)
	}

	// One key for all retry attempts of this submission.
	idempotencyKey := uuid.NewString()

	req, err := retry.Do(ctx, retry.Config{
		MaxRetries: o.cfg.Retry.Retries(),
		OnRetry: func(attempt int, err error) {
			metrics.RetryAttempts.WithLabelValues(string(retry.Categorize(err))).Inc()
			o.log.Warn("Retrying submission", "attempt", attempt, "error", err)
		},
	}, func(ctx context.Context) (*domain.GenerationRequest, error) {
		return o.client.SubmitGeneration(ctx, address, areas, idempotencyKey)
	})
	if err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == 403 {
			// The server refused on credits: our cache is provably stale.
			o.credits.NotifyInsufficientCredits(ctx)
			return nil, nil, fmt.Errorf("%w: %s", ErrInsufficientCredits, retry.Message(retry.CategoryPayment))
		}
		return nil, nil, err
	}

	metrics.GenerationsSubmitted.Inc()
	o.log.Info("Generation submitted", "request_id", req.ID, "areas", len(areas))

	// Persist the snapshot so a restart can resume this request. Failure
	// here costs reload-survival, not the generation.
	if err := o.session.Save(ctx, req.ID, areas, address); err != nil {
		o.log.Warn("Failed to persist recovery snapshot", "request_id", req.ID, "error", err)
	}

	if err := o.history.Record(ctx, &storage.GenerationRecord{
		RequestID:   req.ID,
		Address:     address,
		Areas:       areas,
		Status:      req.Status,
		SubmittedAt: time.Now(),
	}); err != nil {
		o.log.Warn("Failed to record generation", "request_id", req.ID, "error", err)
	}

	events, err := o.watch(ctx, req.ID)
	if err != nil {
		return nil, nil, err
	}
	return req, events, nil
}
