// Package control wires the orchestration layer together and owns its
// lifecycle: one API client, one credits manager, one recovery store, one
// history repository, and at most one active polling loop.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yarda-ai/orchestrator/internal/core/config"
	"github.com/yarda-ai/orchestrator/internal/core/domain"
	"github.com/yarda-ai/orchestrator/internal/health"
	"github.com/yarda-ai/orchestrator/internal/infra/api"
	"github.com/yarda-ai/orchestrator/internal/infra/kv"
	redisclient "github.com/yarda-ai/orchestrator/internal/infra/redis"
	"github.com/yarda-ai/orchestrator/internal/infra/storage"
	storagememory "github.com/yarda-ai/orchestrator/internal/infra/storage/memory"
	"github.com/yarda-ai/orchestrator/internal/infra/storage/postgres"
	"github.com/yarda-ai/orchestrator/internal/orchestration/credits"
	"github.com/yarda-ai/orchestrator/internal/orchestration/metrics"
	"github.com/yarda-ai/orchestrator/internal/orchestration/poller"
	"github.com/yarda-ai/orchestrator/internal/orchestration/session"
)

// ErrRequestInFlight is returned when a submission races an active watch.
var ErrRequestInFlight = errors.New("another generation is already in flight")

// ErrInsufficientCredits is returned when no ledger can pay for a
// generation.
var ErrInsufficientCredits = errors.New("insufficient credits")

// ErrBalanceUnavailable is returned when the gate could not obtain any
// balance snapshot. It is not a verdict on the account's credits; the
// caller should retry shortly.
var ErrBalanceUnavailable = errors.New("credit balance unavailable, retry shortly")

// Orchestrator is the application root.
type Orchestrator struct {
	cfg     *config.AppConfig
	client  *api.Client
	session *session.Store
	credits *credits.Manager
	history storage.HistoryRepository
	poller  *poller.Poller
	log     *slog.Logger

	healthServer *health.Server
	redisClient  *redisclient.Client
	db           *postgres.DB

	authenticated atomic.Bool

	mu            sync.Mutex
	activeID      string
	activeCancel  context.CancelFunc
	pendingSubmit bool
	wg            sync.WaitGroup
}

// New creates an orchestrator with all dependencies initialized from
// config: redis-backed recovery when a redis URL is set, postgres-backed
// history when a database URL is set, in-memory fallbacks otherwise.
func New(cfg *config.AppConfig, log *slog.Logger) (*Orchestrator, error) {
	if log == nil {
		log = slog.Default()
	}

	o := &Orchestrator{cfg: cfg, log: log}
	o.authenticated.Store(cfg.API.AuthToken != "")

	o.client = api.NewClient(api.Config{
		BaseURL:   cfg.API.BaseURL,
		AuthToken: cfg.API.AuthToken,
		Timeout:   time.Duration(cfg.API.TimeoutMS) * time.Millisecond,
		OnUnauthorized: func() {
			// Session is gone; stop issuing authenticated calls until the
			// operator supplies a fresh token.
			o.authenticated.Store(false)
			log.Error("Session expired (401), authenticated calls disabled")
		},
	})

	// Recovery storage
	var backend kv.Store
	if cfg.Redis.URL != "" {
		rc, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		o.redisClient = rc
		backend = rc
		log.Info("Using Redis recovery storage")
	} else {
		backend = kv.NewMemory()
		log.Info("Using in-memory recovery storage; snapshots will not survive restarts")
	}
	o.session = session.NewStore(backend, log)

	// Generation history
	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate(cfg.MigrationsDir); err != nil {
			return nil, err
		}
		o.db = db
		o.history = postgres.NewHistoryRepo(db)
		log.Info("Using PostgreSQL generation history")
	} else {
		o.history = storagememory.NewHistoryRepo()
	}

	refreshInterval := time.Duration(cfg.Credits.RefreshIntervalMS) * time.Millisecond
	o.credits = credits.NewManager(o.client, credits.Config{
		Interval:      refreshInterval,
		Authenticated: o.authenticated.Load,
		OnError: func(err error) {
			log.Warn("Balance refresh failed", "error", err)
		},
	}, log)

	o.poller = poller.New(o.client, poller.Config{
		Interval: time.Duration(cfg.Polling.IntervalMS) * time.Millisecond,
		Ceiling:  time.Duration(cfg.Polling.CeilingMS) * time.Millisecond,
	})

	monitor := health.NewMonitor(o.credits, o.session, 4*refreshInterval)
	o.healthServer = health.NewServer(monitor, cfg.Server.Port)

	return o, nil
}

// Credits exposes the balance manager for read access and manual refresh.
func (o *Orchestrator) Credits() *credits.Manager {
	return o.credits
}

// History exposes the generation history repository.
func (o *Orchestrator) History() storage.HistoryRepository {
	return o.history
}

// Start begins the balance refresh loop and the health server, then checks
// for an orphaned request to resume.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.credits.Start(ctx)

	go func() {
		if err := o.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			o.log.Error("Health server failed", "error", err)
		}
	}()

	if id, events, ok := o.Resume(ctx); ok {
		o.log.Info("Resuming orphaned generation", "request_id", id)
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			for ev := range events {
				o.log.Debug("Resumed watch event", "request_id", id, "kind", ev.Kind)
			}
		}()
	}

	return nil
}

// Stop cancels the active watch, the refresh loop, and the health server.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.mu.Lock()
	if o.activeCancel != nil {
		o.activeCancel()
	}
	o.mu.Unlock()

	o.credits.Stop()
	o.wg.Wait()

	var firstErr error
	if err := o.healthServer.Stop(ctx); err != nil {
		firstErr = err
	}
	if o.redisClient != nil {
		if err := o.redisClient.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if o.db != nil {
		if err := o.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Resume restarts polling for a persisted in-flight request, if one exists.
func (o *Orchestrator) Resume(ctx context.Context) (string, <-chan poller.Event, bool) {
	if !o.session.HasActive(ctx) {
		return "", nil, false
	}
	snap := o.session.Load(ctx)
	if snap.RequestID == "" {
		return "", nil, false
	}

	if err := o.claimActive(); err != nil {
		return "", nil, false
	}
	defer o.releaseClaim()

	events, err := o.watch(ctx, snap.RequestID)
	if err != nil {
		return "", nil, false
	}
	return snap.RequestID, events, true
}

// claimActive reserves the single active slot before any network work
// happens. The claim is released by releaseClaim, or consumed by watch
// when it installs the polling loop.
func (o *Orchestrator) claimActive() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pendingSubmit || o.activeCancel != nil {
		return ErrRequestInFlight
	}
	o.pendingSubmit = true
	return nil
}

func (o *Orchestrator) releaseClaim() {
	o.mu.Lock()
	o.pendingSubmit = false
	o.mu.Unlock()
}

// watch starts the single polling loop for requestID and returns the
// forwarded event stream. Terminal handling (history, snapshot cleanup,
// balance refresh) happens before each event is forwarded. The caller must
// hold the claim from claimActive; watch converts it into the active slot.
func (o *Orchestrator) watch(ctx context.Context, requestID string) (<-chan poller.Event, error) {
	o.mu.Lock()
	if o.activeCancel != nil {
		o.mu.Unlock()
		return nil, ErrRequestInFlight
	}
	events, cancel := o.poller.Watch(ctx, requestID)
	o.activeID = requestID
	o.activeCancel = cancel
	o.pendingSubmit = false
	o.mu.Unlock()

	out := make(chan poller.Event, 1)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer close(out)
		defer func() {
			o.mu.Lock()
			if o.activeID == requestID {
				o.activeID = ""
				o.activeCancel = nil
			}
			o.mu.Unlock()
		}()

		for ev := range events {
			o.handleEvent(ctx, requestID, ev)
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func (o *Orchestrator) handleEvent(ctx context.Context, requestID string, ev poller.Event) {
	switch ev.Kind {
	case poller.EventProgress:
		o.log.Debug("Generation progress", "request_id", requestID)

	case poller.EventComplete:
		outcome := ev.Request.Outcome()
		metrics.GenerationsCompleted.WithLabelValues(string(outcome)).Inc()
		o.log.Info("Generation finished", "request_id", requestID, "status", outcome)

		if err := o.history.MarkTerminal(ctx, requestID, outcome, ev.Request.Areas, ev.Request.ErrorMessage); err != nil {
			o.log.Warn("Failed to record terminal state", "request_id", requestID, "error", err)
		}
		o.session.Clear(ctx)

		// The server just deducted a credit; the cache is stale.
		if _, err := o.credits.RefreshNow(ctx); err != nil {
			o.log.Warn("Post-generation balance refresh failed", "error", err)
		}

	case poller.EventError:
		// Snapshot stays: a caller-initiated retry can start a fresh watch
		// against the same request id.
		o.log.Error("Status polling failed", "request_id", requestID, "error", ev.Err)

	case poller.EventTimeout:
		// Treated as abandonment: the snapshot is cleared even though the
		// server job may still finish. The history record keeps the id
		// reachable.
		o.log.Warn("Generation exceeded maximum wait", "request_id", requestID)
		metrics.GenerationsCompleted.WithLabelValues("timeout").Inc()
		o.session.Clear(ctx)
	}
}

// CancelActive abandons the in-flight watch and clears the snapshot
// ("start new" in the product flow). Safe to call with nothing active.
func (o *Orchestrator) CancelActive(ctx context.Context) {
	o.mu.Lock()
	cancel := o.activeCancel
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	o.session.Clear(ctx)
}

// PurchaseTokens starts a token checkout and returns the hosted URL.
func (o *Orchestrator) PurchaseTokens(ctx context.Context, packageID string) (*api.CheckoutSession, error) {
	return o.client.CreateTokenCheckout(ctx, packageID)
}

// Subscribe starts a subscription checkout and returns the hosted URL.
func (o *Orchestrator) Subscribe(ctx context.Context, plan string) (*api.CheckoutSession, error) {
	return o.client.CreateSubscription(ctx, plan)
}

// CompleteCheckout should run when the user returns from a checkout page:
// the purchase changed a ledger, so the cache must be refreshed now.
func (o *Orchestrator) CompleteCheckout(ctx context.Context) (*domain.UnifiedBalance, error) {
	return o.credits.RefreshNow(ctx)
}
