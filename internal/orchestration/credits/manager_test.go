package credits

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yarda-ai/orchestrator/internal/core/domain"
)

// blockingFetcher holds every GetBalance call until released.
type blockingFetcher struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
	balance *domain.UnifiedBalance
	err     error
}

func newBlockingFetcher() *blockingFetcher {
	return &blockingFetcher{
		release: make(chan struct{}),
		balance: &domain.UnifiedBalance{Token: domain.TokenBalance{Balance: 5}},
	}
}

func (f *blockingFetcher) GetBalance(ctx context.Context) (*domain.UnifiedBalance, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	<-f.release
	if f.err != nil {
		return nil, f.err
	}
	return f.balance, nil
}

func (f *blockingFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// countingFetcher resolves immediately.
type countingFetcher struct {
	mu      sync.Mutex
	calls   int
	balance *domain.UnifiedBalance
	err     error
}

func (f *countingFetcher) GetBalance(ctx context.Context) (*domain.UnifiedBalance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.balance, nil
}

func (f *countingFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *countingFetcher) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// A second RefreshNow while the first is still in flight collapses to nil
// with no extra network call.
func TestRefreshNowSingleFlight(t *testing.T) {
	fetcher := newBlockingFetcher()
	m := NewManager(fetcher, Config{}, nil)

	firstDone := make(chan *domain.UnifiedBalance, 1)
	go func() {
		bal, _ := m.RefreshNow(context.Background())
		firstDone <- bal
	}()

	// Wait until the first refresh is inside the fetch.
	for fetcher.callCount() == 0 {
		time.Sleep(time.Millisecond)
	}

	bal, err := m.RefreshNow(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bal != nil {
		t.Errorf("overlapping refresh should return nil, got %+v", bal)
	}
	if fetcher.callCount() != 1 {
		t.Errorf("expected 1 fetch, got %d", fetcher.callCount())
	}

	close(fetcher.release)
	if first := <-firstDone; first == nil {
		t.Error("first refresh should return the balance")
	}
	if m.Balance() == nil {
		t.Error("cache should hold the fetched balance")
	}
}

// A gate check racing an in-flight refresh must wait for that refresh's
// result instead of reading the collision as an empty balance.
func TestEnsureBalanceWaitsForInFlightRefresh(t *testing.T) {
	fetcher := newBlockingFetcher()
	m := NewManager(fetcher, Config{}, nil)

	go func() { _, _ = m.RefreshNow(context.Background()) }()
	for fetcher.callCount() == 0 {
		time.Sleep(time.Millisecond)
	}

	type result struct {
		bal *domain.UnifiedBalance
		err error
	}
	done := make(chan result, 1)
	go func() {
		bal, err := m.EnsureBalance(context.Background())
		done <- result{bal, err}
	}()

	// The waiter must coalesce onto the in-flight fetch, not start its own.
	time.Sleep(10 * time.Millisecond)
	if n := fetcher.callCount(); n != 1 {
		t.Fatalf("expected 1 fetch, got %d", n)
	}

	close(fetcher.release)
	res := <-done
	if res.err != nil {
		t.Fatalf("unexpected error: %v", res.err)
	}
	if res.bal == nil || res.bal.Token.Balance != 5 {
		t.Fatalf("expected the in-flight refresh's balance, got %+v", res.bal)
	}
}

func TestEnsureBalancePropagatesInFlightFailure(t *testing.T) {
	fetcher := newBlockingFetcher()
	wantErr := errors.New("backend down")
	fetcher.err = wantErr
	m := NewManager(fetcher, Config{}, nil)

	go func() { _, _ = m.RefreshNow(context.Background()) }()
	for fetcher.callCount() == 0 {
		time.Sleep(time.Millisecond)
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := m.EnsureBalance(context.Background())
		errCh <- err
	}()

	close(fetcher.release)
	if err := <-errCh; !errors.Is(err, wantErr) {
		t.Errorf("expected the refresh's failure, got %v", err)
	}
}

func TestEnsureBalanceUnauthenticated(t *testing.T) {
	fetcher := &countingFetcher{balance: &domain.UnifiedBalance{}}
	m := NewManager(fetcher, Config{Authenticated: func() bool { return false }}, nil)

	_, err := m.EnsureBalance(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
	if fetcher.callCount() != 0 {
		t.Errorf("expected no network call, got %d", fetcher.callCount())
	}
}

func TestRefreshNowUnauthenticatedShortCircuits(t *testing.T) {
	fetcher := &countingFetcher{balance: &domain.UnifiedBalance{}}
	m := NewManager(fetcher, Config{Authenticated: func() bool { return false }}, nil)

	bal, err := m.RefreshNow(context.Background())
	if bal != nil || err != nil {
		t.Errorf("expected (nil, nil), got (%+v, %v)", bal, err)
	}
	if fetcher.callCount() != 0 {
		t.Errorf("expected no network call, got %d", fetcher.callCount())
	}
}

func TestRefreshFailureKeepsPriorCache(t *testing.T) {
	fetcher := &countingFetcher{balance: &domain.UnifiedBalance{Token: domain.TokenBalance{Balance: 3}}}

	var reported error
	m := NewManager(fetcher, Config{OnError: func(err error) { reported = err }}, nil)

	if _, err := m.RefreshNow(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	prior := m.Balance()
	if prior == nil || prior.Token.Balance != 3 {
		t.Fatalf("unexpected cache: %+v", prior)
	}

	wantErr := errors.New("balance fetch failed")
	fetcher.setErr(wantErr)

	bal, err := m.RefreshNow(context.Background())
	if bal != nil {
		t.Errorf("failed refresh should return nil balance, got %+v", bal)
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("expected fetch error, got %v", err)
	}
	if !errors.Is(reported, wantErr) {
		t.Errorf("expected OnError to receive the failure, got %v", reported)
	}
	if got := m.Balance(); got != prior {
		t.Errorf("cache changed on failure: %+v", got)
	}
}

func TestStartRefreshesPeriodically(t *testing.T) {
	fetcher := &countingFetcher{balance: &domain.UnifiedBalance{}}
	m := NewManager(fetcher, Config{Interval: 10 * time.Millisecond}, nil)

	m.Start(context.Background())
	defer m.Stop()

	// Immediate refresh plus at least two ticks.
	deadline := time.After(2 * time.Second)
	for fetcher.callCount() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected >= 3 refreshes, got %d", fetcher.callCount())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestStartIsIdempotent(t *testing.T) {
	fetcher := &countingFetcher{balance: &domain.UnifiedBalance{}}
	m := NewManager(fetcher, Config{Interval: time.Hour}, nil)

	m.Start(context.Background())
	m.Start(context.Background())
	defer m.Stop()

	// Only the immediate refresh from the single loop.
	time.Sleep(20 * time.Millisecond)
	if n := fetcher.callCount(); n != 1 {
		t.Errorf("expected 1 refresh from a single loop, got %d", n)
	}
}

func TestTickErrorsDoNotKillTimer(t *testing.T) {
	fetcher := &countingFetcher{balance: &domain.UnifiedBalance{}}
	fetcher.setErr(errors.New("transient"))
	m := NewManager(fetcher, Config{Interval: 10 * time.Millisecond}, nil)

	m.Start(context.Background())
	defer m.Stop()

	deadline := time.After(2 * time.Second)
	for fetcher.callCount() < 3 {
		select {
		case <-deadline:
			t.Fatalf("timer died after errors; got %d refreshes", fetcher.callCount())
		case <-time.After(5 * time.Millisecond):
		}
	}

	// Recovery after errors still lands in the cache.
	fetcher.setErr(nil)
	deadline = time.After(2 * time.Second)
	for m.Balance() == nil {
		select {
		case <-deadline:
			t.Fatal("cache never populated after fetcher recovered")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestStopIsIdempotent(t *testing.T) {
	fetcher := &countingFetcher{balance: &domain.UnifiedBalance{}}
	m := NewManager(fetcher, Config{Interval: 10 * time.Millisecond}, nil)

	m.Start(context.Background())
	m.Stop()
	m.Stop()

	n := fetcher.callCount()
	time.Sleep(30 * time.Millisecond)
	if fetcher.callCount() != n {
		t.Error("refreshes continued after Stop")
	}
}

func TestNotifyInsufficientCreditsForcesRefresh(t *testing.T) {
	fetcher := &countingFetcher{balance: &domain.UnifiedBalance{}}
	m := NewManager(fetcher, Config{}, nil)

	m.NotifyInsufficientCredits(context.Background())
	if fetcher.callCount() != 1 {
		t.Errorf("expected an out-of-band refresh, got %d calls", fetcher.callCount())
	}
}

func TestIntervalZeroDisablesTimer(t *testing.T) {
	fetcher := &countingFetcher{balance: &domain.UnifiedBalance{}}
	m := NewManager(fetcher, Config{Interval: 0}, nil)

	m.Start(context.Background())
	defer m.Stop()

	time.Sleep(40 * time.Millisecond)
	if n := fetcher.callCount(); n != 1 {
		t.Errorf("expected only the immediate refresh, got %d", n)
	}
}
