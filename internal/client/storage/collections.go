package storage

import (
	"context"

	"github.com/iudanet/petalsync/internal/models"
)

// LoadList reads a collection key. A missing or malformed value yields an empty list.
func LoadList[T any](ctx context.Context, a *Adapter, key models.SyncKey) []T {
	items := GetOr[[]T](ctx, a, key.String(), nil)
	if items == nil {
		items = []T{}
	}
	return items
}

// SaveList writes items under a collection key. A nil list is stored as [].
func SaveList[T any](ctx context.Context, a *Adapter, key models.SyncKey, items []T) error {
	if items == nil {
		items = []T{}
	}
	return a.Set(ctx, key.String(), items)
}

// AppendList adds item to the end of a collection key.
func AppendList[T any](ctx context.Context, a *Adapter, key models.SyncKey, item T) error {
	items := LoadList[T](ctx, a, key)
	return SaveList(ctx, a, key, append(items, item))
}
