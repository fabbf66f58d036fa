package boltdb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/petalsync/internal/client/storage"
)

var bucketShared = []byte("shared")

// SharedFile is a KVStore backed by a bbolt file that several client processes take
// turns on. The file is opened for each operation and closed right after, so the
// exclusive bbolt lock is only held for the duration of one transaction.
//
// Change signals reach subscribers in this process only; writes made by other
// processes are seen on the next read.
type SharedFile struct {
	storage.Signal

	path    string
	timeout time.Duration
	mu      sync.Mutex
}

var _ storage.KVStore = (*SharedFile)(nil)

// NewSharedFile prepares the shared file at path, creating it if needed.
func NewSharedFile(path string) (*SharedFile, error) {
	s := &SharedFile{path: path, timeout: openTimeout}

	err := s.update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketShared)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize shared store: %w", err)
	}
	return s, nil
}

// Path returns the shared file location.
func (s *SharedFile) Path() string {
	return s.path
}

// Get returns the value stored under key.
func (s *SharedFile) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.view(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketShared)
		if err != nil {
			return err
		}
		data := b.Get([]byte(key))
		if data == nil {
			return storage.ErrKeyNotFound
		}
		value = make([]byte, len(data))
		copy(value, data)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set stores value under key.
func (s *SharedFile) Set(ctx context.Context, key string, value []byte) error {
	err := s.update(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketShared)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("shared set failed: %w", err)
	}

	s.Emit(storage.Change{Key: key})
	return nil
}

// Remove deletes key.
func (s *SharedFile) Remove(ctx context.Context, key string) error {
	err := s.update(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketShared)
		if err != nil {
			return err
		}
		return b.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("shared remove failed: %w", err)
	}

	s.Emit(storage.Change{Key: key, Removed: true})
	return nil
}

func (s *SharedFile) view(fn func(tx *bbolt.Tx) error) error {
	return s.with(func(db *bbolt.DB) error { return db.View(fn) })
}

func (s *SharedFile) update(fn func(tx *bbolt.Tx) error) error {
	return s.with(func(db *bbolt.DB) error { return db.Update(fn) })
}

func (s *SharedFile) with(fn func(db *bbolt.DB) error) error {
	// bbolt не допускает два открытия одного файла внутри процесса
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := bbolt.Open(s.path, 0600, &bbolt.Options{Timeout: s.timeout})
	if err != nil {
		return fmt.Errorf("failed to open shared store: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	return fn(db)
}
