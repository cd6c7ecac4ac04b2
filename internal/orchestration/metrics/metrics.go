package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PollTicks counts status checks issued by the poller.
	PollTicks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "yarda_poll_ticks_total",
			Help: "Total number of generation status checks",
		},
	)

	// PollErrors counts status checks that failed and ended a watch.
	PollErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "yarda_poll_errors_total",
			Help: "Total number of failed generation status checks",
		},
	)

	// PollTimeouts counts watches that hit the ceiling before completion.
	PollTimeouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "yarda_poll_timeouts_total",
			Help: "Total number of polling ceiling timeouts",
		},
	)

	// GenerationsSubmitted counts accepted generation submissions.
	GenerationsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "yarda_generations_submitted_total",
			Help: "Total number of accepted generation submissions",
		},
	)

	// GenerationsCompleted counts terminal outcomes by status.
	GenerationsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yarda_generations_terminal_total",
			Help: "Total number of generations reaching a terminal state",
		},
		[]string{"status"},
	)

	// BalanceRefreshes counts balance fetches by result.
	BalanceRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yarda_balance_refreshes_total",
			Help: "Total number of balance refresh attempts",
		},
		[]string{"result"},
	)

	// BalanceRefreshCollisions counts refreshes collapsed by the
	// single-flight guard.
	BalanceRefreshCollisions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "yarda_balance_refresh_collisions_total",
			Help: "Total number of balance refreshes skipped because one was in flight",
		},
	)

	// RetryAttempts counts retries by error category.
	RetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yarda_retry_attempts_total",
			Help: "Total number of retry attempts",
		},
		[]string{"category"},
	)
)
