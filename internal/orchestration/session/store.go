// Package session persists the in-flight request snapshot so an orphaned
// generation can be resumed after a process restart.
package session

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/yarda-ai/orchestrator/internal/core/domain"
	"github.com/yarda-ai/orchestrator/internal/infra/kv"
)

// The three recovery keys. Each is written and read independently so a
// partial write or a corrupt value degrades one field, never the whole
// snapshot.
const (
	KeyRequestID = "yarda_active_request_id"
	KeyAreas     = "yarda_active_request_areas"
	KeyAddress   = "yarda_active_request_address"
)

// Store reads and writes the recovery snapshot. A nil backend turns every
// operation into a no-op: generation still works, only reload-survival is
// lost.
type Store struct {
	backend kv.Store
	log     *slog.Logger
}

// NewStore creates a snapshot store over the given backend, which may be nil.
func NewStore(backend kv.Store, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{backend: backend, log: log}
}

// Save persists the snapshot across the three keys. The keys are written
// independently; an error on a later key leaves earlier keys in place,
// which Load tolerates. The returned error means "failed to persist", not
// "failed to generate".
func (s *Store) Save(ctx context.Context, requestID string, areas []domain.AreaSpec, address string) error {
	if s.backend == nil {
		return nil
	}

	if err := s.backend.Set(ctx, KeyRequestID, requestID); err != nil {
		s.log.Warn("Failed to persist recovery snapshot", "key", KeyRequestID, "error", err)
		return err
	}

	data, err := json.Marshal(areas)
	if err != nil {
		return err
	}
	if err := s.backend.Set(ctx, KeyAreas, string(data)); err != nil {
		s.log.Warn("Failed to persist recovery snapshot", "key", KeyAreas, "error", err)
		return err
	}

	if err := s.backend.Set(ctx, KeyAddress, address); err != nil {
		s.log.Warn("Failed to persist recovery snapshot", "key", KeyAddress, "error", err)
		return err
	}
	return nil
}

// Load reads whatever snapshot fields survive. Missing keys and corrupt
// areas JSON degrade to zero values; Load never fails.
func (s *Store) Load(ctx context.Context) domain.RecoverySnapshot {
	var snap domain.RecoverySnapshot
	if s.backend == nil {
		return snap
	}

	if id, ok, err := s.backend.Get(ctx, KeyRequestID); err == nil && ok {
		snap.RequestID = id
	}

	if raw, ok, err := s.backend.Get(ctx, KeyAreas); err == nil && ok {
		var areas []domain.AreaSpec
		if err := json.Unmarshal([]byte(raw), &areas); err != nil {
			s.log.Warn("Corrupt areas snapshot, ignoring", "error", err)
		} else {
			snap.Areas = areas
		}
	}

	if addr, ok, err := s.backend.Get(ctx, KeyAddress); err == nil && ok {
		snap.Address = addr
	}

	return snap
}

// Clear removes all three keys, tolerating absence. Every key is attempted
// even if an earlier delete fails.
func (s *Store) Clear(ctx context.Context) {
	if s.backend == nil {
		return
	}
	for _, key := range []string{KeyRequestID, KeyAreas, KeyAddress} {
		if err := s.backend.Delete(ctx, key); err != nil {
			s.log.Warn("Failed to clear recovery key", "key", key, "error", err)
		}
	}
}

// HasActive reports whether an unresolved request id is persisted.
func (s *Store) HasActive(ctx context.Context) bool {
	if s.backend == nil {
		return false
	}
	id, ok, err := s.backend.Get(ctx, KeyRequestID)
	return err == nil && ok && id != ""
}
