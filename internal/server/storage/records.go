package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/iudanet/petalsync/internal/models"
)

// Record последнее значение ключа синхронизации на сервере
type Record struct {
	UpdatedAt time.Time       // время приема значения сервером
	Key       models.SyncKey
	Value     json.RawMessage
	Revision  int64 // ревизия по часам Лампорта сервера
}

// RecordStorage defines persistence for the server snapshot.
// Each key holds one whole value; the last accepted write wins.
type RecordStorage interface {
	// SaveRecords stores the values in one transaction.
	// A value identical to the stored one keeps its revision.
	// Returns the keys that changed and the latest revision after the write
	SaveRecords(ctx context.Context, values map[models.SyncKey]json.RawMessage, at time.Time) ([]models.SyncKey, int64, error)

	// GetAll returns every stored record ordered by key
	GetAll(ctx context.Context) ([]Record, error)

	// GetSince returns records with a revision greater than since, oldest first
	GetSince(ctx context.Context, since int64) ([]Record, error)

	// Revision returns the latest issued revision (0 for an empty store)
	Revision(ctx context.Context) (int64, error)

	// Ping checks that the database is reachable
	Ping(ctx context.Context) error
}
