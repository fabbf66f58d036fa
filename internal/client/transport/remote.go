package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	httpClient "github.com/iudanet/petalsync/internal/client/api"
	"github.com/iudanet/petalsync/internal/models"
	"github.com/iudanet/petalsync/pkg/api"
)

// Remote pushes and pulls JSON snapshots through the HTTP sync endpoint.
type Remote struct {
	client httpClient.ClientAPI
	logger *slog.Logger
	now    func() time.Time
}

var (
	_ Transport   = (*Remote)(nil)
	_ Snapshotter = (*Remote)(nil)
)

// NewRemote creates a remote transport over client.
func NewRemote(client httpClient.ClientAPI, logger *slog.Logger) *Remote {
	return &Remote{
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

// Kind implements Transport
func (r *Remote) Kind() Kind {
	return KindRemote
}

// Push sends all records as one JSON body
func (r *Remote) Push(ctx context.Context, records models.RecordSet) (*Ack, error) {
	if len(records) == 0 {
		return &Ack{}, nil
	}

	snapshot := make(api.Snapshot, len(records))
	for key, rec := range records {
		snapshot[key.String()] = rec.Value
	}

	resp, err := r.client.Push(ctx, snapshot)
	if err != nil {
		return nil, err
	}

	ack := &Ack{Cursor: resp.Timestamp}
	if resp.Accepted == nil {
		// сервер без списка принятых ключей подтверждает все
		ack.Accepted = records.Keys()
		return ack, nil
	}
	for _, k := range resp.Accepted {
		key, err := models.ParseSyncKey(k)
		if err != nil {
			continue
		}
		ack.Accepted = append(ack.Accepted, key)
	}

	r.logger.Debug("Pushed records to sync endpoint", "count", len(snapshot), "cursor", ack.Cursor)
	return ack, nil
}

// Pull requests changes after since. A 304 answer is returned as an empty result.
func (r *Remote) Pull(ctx context.Context, since string) (*PullResult, error) {
	resp, err := r.client.PullSince(ctx, since)
	if err != nil {
		if errors.Is(err, httpClient.ErrNotModified) {
			return &PullResult{Records: models.RecordSet{}, Cursor: since}, nil
		}
		if errors.Is(err, httpClient.ErrInvalidCursor) {
			return nil, fmt.Errorf("%w: %w", ErrCursorRejected, err)
		}
		return nil, err
	}

	cursor := resp.Timestamp
	if cursor == "" {
		cursor = since
	}

	return &PullResult{
		Records: r.toRecords(resp.Data, resp.UpdatedAt),
		Cursor:  cursor,
	}, nil
}

// Snapshot fetches the complete state from GET /sync
func (r *Remote) Snapshot(ctx context.Context) (models.RecordSet, error) {
	snapshot, err := r.client.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return r.toRecords(snapshot, nil), nil
}

func (r *Remote) toRecords(data api.Snapshot, updatedAt map[string]time.Time) models.RecordSet {
	now := r.now()
	records := make(models.RecordSet, len(data))

	for k, value := range data {
		key, err := models.ParseSyncKey(k)
		if err != nil {
			r.logger.Warn("Ignoring unknown key from sync endpoint", "key", k)
			continue
		}

		at, ok := updatedAt[k]
		if !ok || at.IsZero() {
			at = now
		}

		records[key] = models.SyncRecord{
			Key:       key,
			Value:     json.RawMessage(value),
			UpdatedAt: at,
		}
	}

	return records
}

// String implements fmt.Stringer
func (r *Remote) String() string {
	return fmt.Sprintf("transport(%s)", r.Kind())
}
