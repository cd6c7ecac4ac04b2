// Package storage defines the local generation history. The recovery
// snapshot only tracks the one in-flight request; history keeps every
// request id and outcome, so a result that finished after a client-side
// timeout is still discoverable.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/yarda-ai/orchestrator/internal/core/domain"
)

// ErrNotFound is returned when no record exists for a request id.
var ErrNotFound = errors.New("generation record not found")

// GenerationRecord is one submitted generation and its outcome.
type GenerationRecord struct {
	RequestID    string
	Address      string
	Areas        []domain.AreaSpec
	Status       domain.GenerationStatus
	Results      []domain.AreaResult
	ErrorMessage string
	SubmittedAt  time.Time
	CompletedAt  *time.Time
}

// HistoryRepository persists generation records.
type HistoryRepository interface {
	// Record stores a freshly submitted generation.
	Record(ctx context.Context, rec *GenerationRecord) error

	// MarkTerminal updates a record with its terminal outcome.
	MarkTerminal(ctx context.Context, requestID string, status domain.GenerationStatus, results []domain.AreaResult, errMsg string) error

	// Get returns the record for a request id, or ErrNotFound.
	Get(ctx context.Context, requestID string) (*GenerationRecord, error)

	// List returns the most recent records, newest first.
	List(ctx context.Context, limit int) ([]*GenerationRecord, error)
}
