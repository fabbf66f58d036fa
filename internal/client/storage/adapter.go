package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/iudanet/petalsync/internal/models"
)

// Adapter exposes a KVStore as structured JSON values.
// Reads never fail: a missing key, a storage error or a value that does not decode
// all yield the caller's default, and the problem is logged.
type Adapter struct {
	kv     KVStore
	logger *slog.Logger
}

// NewAdapter wraps kv.
func NewAdapter(kv KVStore, logger *slog.Logger) *Adapter {
	return &Adapter{kv: kv, logger: logger}
}

// Store returns the wrapped store.
func (a *Adapter) Store() KVStore {
	return a.kv
}

// Get decodes the value of key into dst. Returns false when the key is absent
// or its value cannot be decoded; dst must then be treated as unset.
func (a *Adapter) Get(ctx context.Context, key string, dst any) bool {
	data, err := a.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			a.logger.Warn("Failed to read key, using default", "key", key, "error", err)
		}
		return false
	}

	if err := json.Unmarshal(data, dst); err != nil {
		a.logger.Warn("Stored value has unexpected shape, using default", "key", key, "error", err)
		return false
	}
	return true
}

// GetRaw returns the JSON document stored under a sync key, or the key's empty value.
func (a *Adapter) GetRaw(ctx context.Context, key models.SyncKey) json.RawMessage {
	data, err := a.kv.Get(ctx, key.String())
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			a.logger.Warn("Failed to read key, using empty value", "key", key, "error", err)
		}
		return models.EmptyValue(key)
	}
	if !json.Valid(data) {
		a.logger.Warn("Stored value is not valid JSON, using empty value", "key", key)
		return models.EmptyValue(key)
	}
	return json.RawMessage(data)
}

// Set encodes v as compact JSON and stores it under key.
func (a *Adapter) Set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return a.kv.Set(ctx, key, data)
}

// SetRaw stores a JSON document under key after compacting it.
func (a *Adapter) SetRaw(ctx context.Context, key string, raw json.RawMessage) error {
	data, err := Compact(raw)
	if err != nil {
		return fmt.Errorf("invalid JSON for %s: %w", key, err)
	}
	return a.kv.Set(ctx, key, data)
}

// Remove deletes key.
func (a *Adapter) Remove(ctx context.Context, key string) error {
	return a.kv.Remove(ctx, key)
}

// GetOr reads key into a new T, returning def when the value is absent or malformed.
func GetOr[T any](ctx context.Context, a *Adapter, key string, def T) T {
	var v T
	if !a.Get(ctx, key, &v) {
		return def
	}
	return v
}

// Compact returns the compact form of a JSON document.
// Values are stored compacted so an export/import round trip is byte-equivalent.
func Compact(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
