package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iudanet/petalsync/internal/client/storage"
	"github.com/iudanet/petalsync/internal/client/transport"
	"github.com/iudanet/petalsync/internal/models"
)

// ErrResyncUnsupported возвращается, если транспорт не умеет отдавать полный снимок
var ErrResyncUnsupported = errors.New("transport does not provide snapshots")

// Export returns every configured key present in the local store as one JSON object.
// Values are stored compacted and object keys are sorted, so Import followed by
// Export reproduces the same bytes.
func (o *Orchestrator) Export(ctx context.Context) ([]byte, error) {
	doc := make(map[string]json.RawMessage, len(o.keys))

	for _, key := range o.keys {
		value, err := o.store.Get(ctx, key.String())
		if err != nil {
			if errors.Is(err, storage.ErrKeyNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to read %s: %w", key, err)
		}
		doc[key.String()] = value
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal export: %w", err)
	}
	return data, nil
}

// Import validates every key of an exported document and writes them as local changes.
// Nothing is written if any key is unknown or fails validation.
func (o *Orchestrator) Import(ctx context.Context, data []byte) ([]models.SyncKey, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid export document: %w", err)
	}

	set := make(models.RecordSet, len(doc))
	for k, raw := range doc {
		key, err := models.ParseSyncKey(k)
		if err != nil {
			return nil, err
		}
		value, err := storage.Compact(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid JSON for %s: %w", key, err)
		}
		if err := models.ValidateRecord(key, value); err != nil {
			return nil, err
		}
		set[key] = models.SyncRecord{Key: key, Value: value}
	}

	imported := set.Keys()
	for _, key := range imported {
		if err := o.store.Set(ctx, key.String(), set[key].Value); err != nil {
			return nil, fmt.Errorf("failed to import %s: %w", key, err)
		}
	}

	o.logger.Info("Imported sync keys", "keys", imported)
	return imported, nil
}

// Resync replaces the local state with the complete remote snapshot.
// Keys with unpushed local writes are kept; the cursor is left untouched.
func (o *Orchestrator) Resync(ctx context.Context) (*Result, error) {
	if o.closed.Load() {
		return nil, ErrClosed
	}

	snap, ok := o.transport.(transport.Snapshotter)
	if !ok {
		return nil, ErrResyncUnsupported
	}

	ctx, cancel := o.linked(ctx)
	defer cancel()

	o.cycleMu.Lock()
	defer o.cycleMu.Unlock()

	records, err := snap.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot failed: %w", err)
	}

	result := &Result{Pulled: len(records)}
	applied, err := o.apply(ctx, records, result)
	if err != nil {
		return result, err
	}
	if len(applied) > 0 {
		o.notifier.Notify(applied)
	}
	return result, nil
}
