package boltdb

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/petalsync/internal/client/storage"
)

// keyCursorPrefix курсор хранится отдельно для каждого транспорта
const keyCursorPrefix = "cursor:"

// SaveCursor saves the cursor of the last successful pull in scope
func (s *Storage) SaveCursor(ctx context.Context, scope, cursor string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketMetadata)
		if err != nil {
			return err
		}

		if err := b.Put([]byte(keyCursorPrefix+scope), []byte(cursor)); err != nil {
			return fmt.Errorf("failed to save cursor: %w", err)
		}
		return nil
	})
}

// GetCursor retrieves the cursor of the last successful pull in scope
// Returns "" if no pull has succeeded yet
func (s *Storage) GetCursor(ctx context.Context, scope string) (string, error) {
	if s.db == nil {
		return "", storage.ErrStorageClosed
	}

	var cursor string
	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketMetadata)
		if err != nil {
			return err
		}
		cursor = string(b.Get([]byte(keyCursorPrefix + scope)))
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to get cursor: %w", err)
	}

	return cursor, nil
}
