// Package poller drives an in-flight generation to a terminal state by
// polling the status endpoint on a fixed interval.
//
// A Watch call yields a finite stream of events: zero or more Progress
// events followed by exactly one of Complete, Error, or Timeout, after
// which the channel closes. The poller never retries a failed status
// check; retry policy is composed by the caller.
package poller

import (
	"context"
	"time"

	"github.com/yarda-ai/orchestrator/internal/core/domain"
	"github.com/yarda-ai/orchestrator/internal/orchestration/metrics"
)

// StatusClient fetches the current state of a generation job.
type StatusClient interface {
	GetGeneration(ctx context.Context, id string) (*domain.GenerationRequest, error)
}

// EventKind discriminates poller events.
type EventKind string

const (
	// EventProgress carries a status snapshot; one per poll response.
	EventProgress EventKind = "progress"
	// EventComplete fires once, when every area is terminal.
	EventComplete EventKind = "complete"
	// EventError fires once on a failed status check and ends the stream.
	EventError EventKind = "error"
	// EventTimeout fires once when the ceiling elapses first.
	EventTimeout EventKind = "timeout"
)

// Event is one update from the watch stream.
type Event struct {
	Kind    EventKind
	Request *domain.GenerationRequest
	Err     error
}

// Config holds poller timing.
type Config struct {
	Interval time.Duration // poll period, default 2s
	Ceiling  time.Duration // maximum total wait, default 5m
}

// Poller polls generation status. One Watch call owns one polling loop;
// the invariant of at most one loop per request id is the caller's to keep.
type Poller struct {
	client StatusClient
	cfg    Config
}

// New creates a poller, applying default timing where unset.
func New(client StatusClient, cfg Config) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.Ceiling <= 0 {
		cfg.Ceiling = 5 * time.Minute
	}
	return &Poller{client: client, cfg: cfg}
}

// Watch starts polling requestID and returns the event stream plus a
// cancel func. Cancel is idempotent and safe to call from the consuming
// goroutine; after cancellation no further events are delivered, even if
// a network response is already in flight.
func (p *Poller) Watch(ctx context.Context, requestID string) (<-chan Event, context.CancelFunc) {
	watchCtx, cancel := context.WithCancel(ctx)
	events := make(chan Event)

	go p.run(watchCtx, requestID, events)

	return events, cancel
}

func (p *Poller) run(ctx context.Context, requestID string, events chan<- Event) {
	defer close(events)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()
	ceiling := time.NewTimer(p.cfg.Ceiling)
	defer ceiling.Stop()

	// One out-of-band check before the first tick so the first update
	// is not delayed by a full interval.
	if done := p.check(ctx, requestID, events); done {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ceiling.C:
			metrics.PollTimeouts.Inc()
			send(ctx, events, Event{Kind: EventTimeout})
			return
		case <-ticker.C:
			if done := p.check(ctx, requestID, events); done {
				return
			}
		}
	}
}

// check performs one status fetch and reports whether the stream ended.
func (p *Poller) check(ctx context.Context, requestID string, events chan<- Event) bool {
	metrics.PollTicks.Inc()

	req, err := p.client.GetGeneration(ctx, requestID)
	if ctx.Err() != nil {
		// Cancelled while the request was in flight; drop the response.
		return true
	}
	if err != nil {
		metrics.PollErrors.Inc()
		send(ctx, events, Event{Kind: EventError, Err: err})
		return true
	}

	if !send(ctx, events, Event{Kind: EventProgress, Request: req}) {
		return true
	}

	// A malformed snapshot (no areas) reads as not complete, so it stays
	// a progress update rather than an error.
	if req.Complete() {
		send(ctx, events, Event{Kind: EventComplete, Request: req})
		return true
	}
	return false
}

// send delivers an event unless the watch was cancelled. The cancellation
// check runs immediately before delivery so a late response can never
// reach a consumer that already cancelled.
func send(ctx context.Context, events chan<- Event, ev Event) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
