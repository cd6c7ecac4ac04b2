package health

import (
	"context"
	"sync"
	"time"

	"github.com/yarda-ai/orchestrator/internal/core/domain"
)

// BalanceCache is the slice of the credits manager the monitor reads.
type BalanceCache interface {
	Balance() *domain.UnifiedBalance
	LastRefreshed() time.Time
}

// RecoveryState is the slice of the session store the monitor reads.
type RecoveryState interface {
	Load(ctx context.Context) domain.RecoverySnapshot
}

// Monitor aggregates orchestrator health from the balance cache and the
// recovery store.
type Monitor struct {
	balance    BalanceCache
	recovery   RecoveryState
	staleAfter time.Duration

	mu         sync.Mutex
	lastCheck  time.Time
	lastReport Report
}

// NewMonitor creates a health monitor. staleAfter is how old the balance
// cache may get before the system counts as degraded.
func NewMonitor(balance BalanceCache, recovery RecoveryState, staleAfter time.Duration) *Monitor {
	if staleAfter <= 0 {
		staleAfter = time.Minute
	}
	return &Monitor{balance: balance, recovery: recovery, staleAfter: staleAfter}
}

// Check produces a health report. Results are cached briefly so scrapers
// cannot hammer the recovery backend.
func (m *Monitor) Check(ctx context.Context) Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	if time.Since(m.lastCheck) < 5*time.Second && !m.lastCheck.IsZero() {
		return m.lastReport
	}

	report := Report{Status: StatusHealthy, CheckedAt: time.Now()}

	if m.balance != nil {
		last := m.balance.LastRefreshed()
		report.BalanceCached = m.balance.Balance() != nil
		switch {
		case !report.BalanceCached:
			report.Status = StatusDegraded
		case time.Since(last) > 4*m.staleAfter:
			report.Status = StatusCritical
			report.BalanceCacheAge = time.Since(last).Round(time.Second).String()
		case time.Since(last) > m.staleAfter:
			report.Status = StatusDegraded
			report.BalanceCacheAge = time.Since(last).Round(time.Second).String()
		default:
			report.BalanceCacheAge = time.Since(last).Round(time.Second).String()
		}
	}

	if m.recovery != nil {
		report.ActiveRequestID = m.recovery.Load(ctx).RequestID
	}

	m.lastCheck = time.Now()
	m.lastReport = report
	return report
}
