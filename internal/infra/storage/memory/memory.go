package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/yarda-ai/orchestrator/internal/core/domain"
	"github.com/yarda-ai/orchestrator/internal/infra/storage"
)

// HistoryRepo is the in-process history backend, used when no database is
// configured. History then lives only as long as the process.
type HistoryRepo struct {
	mu      sync.RWMutex
	records map[string]*storage.GenerationRecord
}

// NewHistoryRepo creates an empty in-memory history.
func NewHistoryRepo() *HistoryRepo {
	return &HistoryRepo{records: make(map[string]*storage.GenerationRecord)}
}

func (r *HistoryRepo) Record(ctx context.Context, rec *storage.GenerationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	r.records[rec.RequestID] = &cp
	return nil
}

func (r *HistoryRepo) MarkTerminal(ctx context.Context, requestID string, status domain.GenerationStatus, results []domain.AreaResult, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[requestID]
	if !ok {
		return storage.ErrNotFound
	}
	now := time.Now()
	rec.Status = status
	rec.Results = results
	rec.ErrorMessage = errMsg
	rec.CompletedAt = &now
	return nil
}

func (r *HistoryRepo) Get(ctx context.Context, requestID string) (*storage.GenerationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[requestID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *HistoryRepo) List(ctx context.Context, limit int) ([]*storage.GenerationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*storage.GenerationRecord, 0, len(r.records))
	for _, rec := range r.records {
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
