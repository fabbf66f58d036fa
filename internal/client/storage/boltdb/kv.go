package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/petalsync/internal/client/storage"
)

// Get returns the value stored under key
func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var value []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketKV)
		if err != nil {
			return err
		}

		data := b.Get([]byte(key))
		if data == nil {
			return storage.ErrKeyNotFound
		}

		// Значение валидно только внутри транзакции - копируем
		value = make([]byte, len(data))
		copy(value, data)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return value, nil
}

// Set stores value under key and marks the key as written locally
func (s *Storage) Set(ctx context.Context, key string, value []byte) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	now := s.now()
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := putValue(tx, key, value); err != nil {
			return err
		}
		return updateMeta(tx, key, func(meta *storage.RecordMeta) {
			meta.Touch(now)
		})
	})
	if err != nil {
		return fmt.Errorf("set transaction failed: %w", err)
	}

	s.Emit(storage.Change{Key: key})
	return nil
}

// Remove deletes key together with its bookkeeping
func (s *Storage) Remove(ctx context.Context, key string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		kv, err := bucket(tx, bucketKV)
		if err != nil {
			return err
		}
		if err := kv.Delete([]byte(key)); err != nil {
			return fmt.Errorf("failed to delete key: %w", err)
		}

		meta, err := bucket(tx, bucketRecordMeta)
		if err != nil {
			return err
		}
		return meta.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("remove transaction failed: %w", err)
	}

	s.Emit(storage.Change{Key: key, Removed: true})
	return nil
}

// ApplyRemote replaces the value with a pulled one without marking it dirty
func (s *Storage) ApplyRemote(ctx context.Context, key string, value []byte, at time.Time) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := putValue(tx, key, value); err != nil {
			return err
		}
		return updateMeta(tx, key, func(meta *storage.RecordMeta) {
			meta.Applied(at)
		})
	})
	if err != nil {
		return fmt.Errorf("apply transaction failed: %w", err)
	}

	s.Emit(storage.Change{Key: key})
	return nil
}

// GetRecordMeta returns sync bookkeeping for key
func (s *Storage) GetRecordMeta(ctx context.Context, key string) (storage.RecordMeta, error) {
	var meta storage.RecordMeta
	if s.db == nil {
		return meta, storage.ErrStorageClosed
	}

	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketRecordMeta)
		if err != nil {
			return err
		}
		data := b.Get([]byte(key))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &meta)
	})
	if err != nil {
		return storage.RecordMeta{}, fmt.Errorf("failed to get record meta: %w", err)
	}

	return meta, nil
}

// MarkPushed records that local write number seq was handed to the transport
func (s *Storage) MarkPushed(ctx context.Context, key string, seq uint64) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return updateMeta(tx, key, func(meta *storage.RecordMeta) {
			meta.Pushed(seq)
		})
	})
}

func putValue(tx *bbolt.Tx, key string, value []byte) error {
	b, err := bucket(tx, bucketKV)
	if err != nil {
		return err
	}
	if err := b.Put([]byte(key), value); err != nil {
		return fmt.Errorf("failed to save value: %w", err)
	}
	return nil
}

func updateMeta(tx *bbolt.Tx, key string, fn func(meta *storage.RecordMeta)) error {
	b, err := bucket(tx, bucketRecordMeta)
	if err != nil {
		return err
	}

	var meta storage.RecordMeta
	if data := b.Get([]byte(key)); data != nil {
		if err := json.Unmarshal(data, &meta); err != nil {
			return fmt.Errorf("failed to unmarshal record meta: %w", err)
		}
	}

	fn(&meta)

	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal record meta: %w", err)
	}
	return b.Put([]byte(key), data)
}
