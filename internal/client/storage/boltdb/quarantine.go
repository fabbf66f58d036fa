package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/petalsync/internal/client/storage"
)

// Quarantine stores a rejected record under its key
func (s *Storage) Quarantine(ctx context.Context, rec storage.QuarantinedRecord) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal quarantined record: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketQuarantine)
		if err != nil {
			return err
		}
		return b.Put([]byte(rec.Key), data)
	})
}

// ListQuarantined returns quarantined records ordered by key
func (s *Storage) ListQuarantined(ctx context.Context) ([]storage.QuarantinedRecord, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var records []storage.QuarantinedRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketQuarantine)
		if err != nil {
			return err
		}

		// bbolt итерирует ключи в отсортированном порядке
		return b.ForEach(func(k, v []byte) error {
			var rec storage.QuarantinedRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to unmarshal quarantined record: %w", err)
			}
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list quarantined records: %w", err)
	}

	return records, nil
}
