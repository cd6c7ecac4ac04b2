// Package credits keeps a cached copy of the unified balance warm.
//
// The manager is the single writer of the cache; everything else reads the
// snapshot it exposes. It is an explicit service object: control constructs
// exactly one and injects it, so tests can run independent instances.
package credits

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/yarda-ai/orchestrator/internal/core/domain"
	"github.com/yarda-ai/orchestrator/internal/orchestration/metrics"
)

// ErrUnavailable means no balance snapshot can be produced right now, for
// example because the session is unauthenticated. It says nothing about how
// many credits the account has.
var ErrUnavailable = errors.New("balance unavailable")

// BalanceFetcher fetches the unified balance from the backend.
type BalanceFetcher interface {
	GetBalance(ctx context.Context) (*domain.UnifiedBalance, error)
}

// DefaultInterval is the periodic refresh period.
const DefaultInterval = 15 * time.Second

// Config holds manager settings.
type Config struct {
	// Interval between periodic refreshes. Zero or negative disables the
	// timer; RefreshNow still works.
	Interval time.Duration

	// Authenticated gates refreshes. When it reports false, RefreshNow
	// short-circuits to nil without a network call. Nil means always
	// authenticated.
	Authenticated func() bool

	// OnError receives fetch failures. The cache keeps its previous value
	// and the periodic timer survives regardless.
	OnError func(error)
}

// Manager caches the unified balance and guards against overlapping
// fetches. The guard exists only to collapse duplicate network calls; the
// cache write itself is an idempotent snapshot replacement.
type Manager struct {
	fetcher BalanceFetcher
	cfg     Config
	log     *slog.Logger

	mu            sync.Mutex
	pending       chan struct{} // non-nil while a fetch is in flight; closed when it resolves
	running       bool
	stop          chan struct{}
	balance       *domain.UnifiedBalance
	lastErr       error
	lastRefreshed time.Time

	wg sync.WaitGroup
}

// NewManager creates a manager. It does not start the periodic timer.
func NewManager(fetcher BalanceFetcher, cfg Config, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{fetcher: fetcher, cfg: cfg, log: log}
}

// Start triggers one immediate refresh and begins the periodic timer.
// Idempotent: a running manager ignores further Start calls.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.stop = make(chan struct{})
	stop := m.stop
	m.mu.Unlock()

	m.wg.Add(1)
	go m.loop(ctx, stop)
}

// Stop cancels the periodic timer. Idempotent.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stop)
	m.mu.Unlock()

	m.wg.Wait()
}

func (m *Manager) loop(ctx context.Context, stop <-chan struct{}) {
	defer m.wg.Done()

	// Immediate refresh so callers don't wait a full interval for the
	// first snapshot. Errors already went to OnError.
	_, _ = m.RefreshNow(ctx)

	if m.cfg.Interval <= 0 {
		return
	}

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			// Tick errors are swallowed here so the timer survives;
			// OnError has already seen them.
			if _, err := m.RefreshNow(ctx); err != nil {
				m.log.Warn("Periodic balance refresh failed", "error", err)
			}
		}
	}
}

// RefreshNow fetches the balance once. It returns (nil, nil) without a
// network call when unauthenticated or when another refresh is already in
// flight — callers must treat nil as "stale, retry shortly", never as a
// zero balance. On success the cache is replaced; on failure the previous
// cache is kept and the error is reported to OnError as well as returned.
func (m *Manager) RefreshNow(ctx context.Context) (*domain.UnifiedBalance, error) {
	if m.cfg.Authenticated != nil && !m.cfg.Authenticated() {
		return nil, nil
	}

	m.mu.Lock()
	if m.pending != nil {
		m.mu.Unlock()
		metrics.BalanceRefreshCollisions.Inc()
		return nil, nil
	}
	pending := make(chan struct{})
	m.pending = pending
	m.mu.Unlock()

	bal, err := m.fetcher.GetBalance(ctx)

	m.mu.Lock()
	if err != nil {
		m.lastErr = err
	} else {
		m.balance = bal
		m.lastErr = nil
		m.lastRefreshed = time.Now()
	}
	m.pending = nil
	m.mu.Unlock()
	close(pending)

	if err != nil {
		metrics.BalanceRefreshes.WithLabelValues("error").Inc()
		if m.cfg.OnError != nil {
			m.cfg.OnError(err)
		}
		return nil, err
	}

	metrics.BalanceRefreshes.WithLabelValues("ok").Inc()
	return bal, nil
}

// EnsureBalance returns a usable balance snapshot: the cache when warm,
// otherwise the result of a fetch. Unlike RefreshNow it never collapses a
// collision to nil; a caller racing an in-flight refresh waits for that
// refresh's result instead. Gating decisions should go through this, so a
// lost race can never read as a zero balance.
func (m *Manager) EnsureBalance(ctx context.Context) (*domain.UnifiedBalance, error) {
	for {
		if m.cfg.Authenticated != nil && !m.cfg.Authenticated() {
			return nil, ErrUnavailable
		}

		m.mu.Lock()
		if m.balance != nil {
			bal := m.balance
			m.mu.Unlock()
			return bal, nil
		}
		pending := m.pending
		m.mu.Unlock()

		if pending == nil {
			bal, err := m.RefreshNow(ctx)
			if err != nil {
				return nil, err
			}
			if bal != nil {
				return bal, nil
			}
			// Lost the guard to a refresh that started in between; loop
			// around and wait on it.
			continue
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-pending:
		}

		m.mu.Lock()
		bal, err := m.balance, m.lastErr
		m.mu.Unlock()
		if bal != nil {
			return bal, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// NotifyInsufficientCredits forces an out-of-band refresh. Call it when a
// 403 is observed anywhere in the app: the cache is known-stale and the
// next periodic tick is too far away.
func (m *Manager) NotifyInsufficientCredits(ctx context.Context) {
	_, _ = m.RefreshNow(ctx)
}

// Balance returns the cached snapshot, nil before the first successful
// refresh. Callers must not mutate it.
func (m *Manager) Balance() *domain.UnifiedBalance {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balance
}

// LastRefreshed returns when the cache was last replaced.
func (m *Manager) LastRefreshed() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRefreshed
}
