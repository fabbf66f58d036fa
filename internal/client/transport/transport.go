// Package transport moves sync records between the admin and storefront clients.
//
// Two strategies share one contract: Remote talks to an HTTP sync endpoint,
// SharedStore relies on both clients reading and writing the same key-value store.
// Both apply whole-value last-writer-wins per key.
package transport

import (
	"context"
	"errors"
	"strings"

	"github.com/iudanet/petalsync/internal/models"
)

//go:generate moq -out transport_mock.go . Transport

// Transport перемещает ограниченный набор именованных записей между клиентами
type Transport interface {
	// Kind returns the strategy implemented by the transport
	Kind() Kind

	// Push hands the records to the other side
	Push(ctx context.Context, records models.RecordSet) (*Ack, error)

	// Pull returns records written by the other side since the cursor.
	// "No update" is an empty record set with the cursor unchanged, not an error
	Pull(ctx context.Context, since string) (*PullResult, error)
}

// Snapshotter is implemented by transports able to return the complete remote state.
type Snapshotter interface {
	Snapshot(ctx context.Context) (models.RecordSet, error)
}

// ErrCursorRejected означает, что другая сторона не понимает курсор: pull нужно начать сначала
var ErrCursorRejected = errors.New("sync cursor rejected")

// KeyFilter is implemented by transports that never move some keys.
type KeyFilter interface {
	Carries(key models.SyncKey) bool
}

// Waker is implemented by transports that can signal that a pull is worth doing now.
type Waker interface {
	Wake() <-chan struct{}
}

// Ack подтверждение push
type Ack struct {
	Cursor   string
	Accepted []models.SyncKey
}

// PullResult результат pull
type PullResult struct {
	Records models.RecordSet
	Cursor  string
}

// Empty reports whether the pull brought nothing.
func (r *PullResult) Empty() bool {
	return r == nil || len(r.Records) == 0
}

// Kind стратегия транспорта
type Kind int

const (
	KindSharedStore Kind = iota + 1
	KindRemote
)

// String implements fmt.Stringer
func (k Kind) String() string {
	switch k {
	case KindRemote:
		return "remote"
	case KindSharedStore:
		return "shared-store"
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// placeholders значения endpoint из шаблонов конфигурации, которые означают "не настроено"
var placeholders = []string{
	"your-sync-endpoint",
	"your_sync_endpoint",
	"https://your-api.example.com",
	"http://your-api.example.com",
	"changeme",
	"<sync-endpoint>",
}

// IsPlaceholder reports whether endpoint is one of the template placeholder values.
func IsPlaceholder(endpoint string) bool {
	e := strings.ToLower(strings.TrimSpace(endpoint))
	for _, p := range placeholders {
		if e == p {
			return true
		}
	}
	return false
}

// SelectKind resolves the transport strategy from the configured endpoint.
// Pure function of configuration: an empty or placeholder endpoint selects the shared store.
func SelectKind(endpoint string) Kind {
	if strings.TrimSpace(endpoint) == "" || IsPlaceholder(endpoint) {
		return KindSharedStore
	}
	return KindRemote
}
