package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/iudanet/petalsync/internal/models"
	"github.com/iudanet/petalsync/internal/server/storage"
)

// SaveRecords stores the values in one transaction, issuing a new revision per changed key.
func (s *Storage) SaveRecords(ctx context.Context, values map[models.SyncKey]json.RawMessage, at time.Time) (changed []models.SyncKey, revision int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	keys := make([]models.SyncKey, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	for _, key := range keys {
		value := values[key]

		var existing []byte
		err = tx.QueryRowContext(ctx, `SELECT value FROM sync_records WHERE key = ?`, string(key)).Scan(&existing)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			err = nil
		case err != nil:
			return nil, 0, fmt.Errorf("failed to read %s: %w", key, err)
		case bytes.Equal(existing, value):
			// то же значение: ревизия не меняется, pull не вернет ключ повторно
			continue
		}

		rev := s.clock.Tick()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sync_records (key, value, revision, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET
				value = excluded.value,
				revision = excluded.revision,
				updated_at = excluded.updated_at
		`, string(key), []byte(value), rev, at.UnixMilli())
		if err != nil {
			return nil, 0, fmt.Errorf("failed to save %s: %w", key, err)
		}
		changed = append(changed, key)
	}

	if err = tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("failed to commit: %w", err)
	}

	return changed, s.clock.Current(), nil
}

// GetAll returns every stored record ordered by key.
func (s *Storage) GetAll(ctx context.Context) ([]storage.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, value, revision, updated_at
		FROM sync_records
		ORDER BY key ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	return scanRecords(rows)
}

// GetSince returns records changed after the since revision, oldest first.
func (s *Storage) GetSince(ctx context.Context, since int64) ([]storage.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, value, revision, updated_at
		FROM sync_records
		WHERE revision > ?
		ORDER BY revision ASC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query records since revision: %w", err)
	}
	return scanRecords(rows)
}

// Revision returns the highest stored revision.
func (s *Storage) Revision(ctx context.Context) (int64, error) {
	var revision int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(revision), 0) FROM sync_records`).Scan(&revision)
	if err != nil {
		return 0, fmt.Errorf("failed to read revision: %w", err)
	}
	return revision, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*storage.Record, error) {
	var (
		rec       storage.Record
		key       string
		value     []byte
		updatedAt int64
	)
	if err := row.Scan(&key, &value, &rec.Revision, &updatedAt); err != nil {
		return nil, err
	}
	rec.Key = models.SyncKey(key)
	rec.Value = json.RawMessage(value)
	rec.UpdatedAt = unixMilliToTime(updatedAt)
	return &rec, nil
}

func scanRecords(rows *sql.Rows) (records []storage.Record, err error) {
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	records = make([]storage.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return records, nil
}

func unixMilliToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
