package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/yarda-ai/orchestrator/internal/core/domain"
	"github.com/yarda-ai/orchestrator/internal/infra/storage"
)

// HistoryRepo persists generation records in PostgreSQL.
type HistoryRepo struct {
	db *DB
}

// NewHistoryRepo creates a postgres-backed history repository.
func NewHistoryRepo(db *DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

// historyRow mirrors the generation_history table.
type historyRow struct {
	RequestID    string         `db:"request_id"`
	Address      string         `db:"address"`
	Areas        []byte         `db:"areas"`
	Status       string         `db:"status"`
	Results      []byte         `db:"results"`
	ErrorMessage sql.NullString `db:"error_message"`
	SubmittedAt  time.Time      `db:"submitted_at"`
	CompletedAt  sql.NullTime   `db:"completed_at"`
}

func (r *HistoryRepo) Record(ctx context.Context, rec *storage.GenerationRecord) error {
	areas, err := json.Marshal(rec.Areas)
	if err != nil {
		return fmt.Errorf("marshal areas: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO generation_history (request_id, address, areas, status, submitted_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (request_id) DO NOTHING`,
		rec.RequestID, rec.Address, areas, string(rec.Status), rec.SubmittedAt)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func (r *HistoryRepo) MarkTerminal(ctx context.Context, requestID string, status domain.GenerationStatus, results []domain.AreaResult, errMsg string) error {
	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE generation_history
		SET status = $2, results = $3, error_message = NULLIF($4, ''), completed_at = NOW()
		WHERE request_id = $1`,
		requestID, string(status), data, errMsg)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *HistoryRepo) Get(ctx context.Context, requestID string) (*storage.GenerationRecord, error) {
	var row historyRow
	err := r.db.GetContext(ctx, &row, `
		SELECT request_id, address, areas, status, results, error_message, submitted_at, completed_at
		FROM generation_history WHERE request_id = $1`, requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select record: %w", err)
	}
	return rowToRecord(&row)
}

func (r *HistoryRepo) List(ctx context.Context, limit int) ([]*storage.GenerationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []historyRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT request_id, address, areas, status, results, error_message, submitted_at, completed_at
		FROM generation_history ORDER BY submitted_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("select records: %w", err)
	}

	out := make([]*storage.GenerationRecord, 0, len(rows))
	for i := range rows {
		rec, err := rowToRecord(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func rowToRecord(row *historyRow) (*storage.GenerationRecord, error) {
	rec := &storage.GenerationRecord{
		RequestID:   row.RequestID,
		Address:     row.Address,
		Status:      domain.GenerationStatus(row.Status),
		SubmittedAt: row.SubmittedAt,
	}
	if len(row.Areas) > 0 {
		if err := json.Unmarshal(row.Areas, &rec.Areas); err != nil {
			return nil, fmt.Errorf("unmarshal areas: %w", err)
		}
	}
	if len(row.Results) > 0 {
		if err := json.Unmarshal(row.Results, &rec.Results); err != nil {
			return nil, fmt.Errorf("unmarshal results: %w", err)
		}
	}
	if row.ErrorMessage.Valid {
		rec.ErrorMessage = row.ErrorMessage.String
	}
	if row.CompletedAt.Valid {
		t := row.CompletedAt.Time
		rec.CompletedAt = &t
	}
	return rec, nil
}
