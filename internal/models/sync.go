package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// SyncKey идентификатор коллекции верхнего уровня, синхронизируемой между клиентами
type SyncKey string

// Фиксированный набор ключей синхронизации
const (
	KeyCurrentUser       SyncKey = "current-user"
	KeyCatalogueProducts SyncKey = "catalogue-products"
	KeyOrders            SyncKey = "orders"
	KeyRequests          SyncKey = "requests"
	KeyStock             SyncKey = "stock"
	KeyNotifications     SyncKey = "notifications"
	KeyMessages          SyncKey = "messages"
	KeyEmployees         SyncKey = "employees"
	KeyAboutPage         SyncKey = "about-page"
	KeyContactPage       SyncKey = "contact-page"
)

var allKeys = []SyncKey{
	KeyCurrentUser,
	KeyCatalogueProducts,
	KeyOrders,
	KeyRequests,
	KeyStock,
	KeyNotifications,
	KeyMessages,
	KeyEmployees,
	KeyAboutPage,
	KeyContactPage,
}

// AllKeys returns the enumerated sync keys in a stable order.
func AllKeys() []SyncKey {
	keys := make([]SyncKey, len(allKeys))
	copy(keys, allKeys)
	return keys
}

// IsValid reports whether k belongs to the enumerated set.
func (k SyncKey) IsValid() bool {
	for _, key := range allKeys {
		if key == k {
			return true
		}
	}
	return false
}

// String implements fmt.Stringer
func (k SyncKey) String() string {
	return string(k)
}

// ParseSyncKey converts a raw string into a SyncKey.
func ParseSyncKey(s string) (SyncKey, error) {
	k := SyncKey(s)
	if !k.IsValid() {
		return "", fmt.Errorf("unknown sync key %q", s)
	}
	return k, nil
}

// SyncRecord представляет одну синхронизируемую коллекцию целиком.
// Value непрозрачный JSON документ: слой синхронизации не интерпретирует его
// структуру дальше проверки схемы ключа.
type SyncRecord struct {
	UpdatedAt time.Time       `json:"updated_at"` // UpdatedAt время последней записи (last-writer-wins)
	Key       SyncKey         `json:"key"`
	Value     json.RawMessage `json:"value"`
}

// IsNewerThan применяет правило LWW: побеждает запись с большим UpdatedAt.
// При равных временах побеждает байтово большее значение, так что исход слияния
// не зависит от порядка. Одинаковая запись считается не старее себя.
func (r *SyncRecord) IsNewerThan(other *SyncRecord) bool {
	if other == nil {
		return true
	}
	if !r.UpdatedAt.Equal(other.UpdatedAt) {
		return r.UpdatedAt.After(other.UpdatedAt)
	}
	return bytes.Compare(r.Value, other.Value) >= 0
}

// Clone создает глубокую копию записи
func (r *SyncRecord) Clone() *SyncRecord {
	value := make(json.RawMessage, len(r.Value))
	copy(value, r.Value)

	return &SyncRecord{
		Key:       r.Key,
		Value:     value,
		UpdatedAt: r.UpdatedAt,
	}
}

// RecordSet набор записей, адресованных ключом синхронизации
type RecordSet map[SyncKey]SyncRecord

// Keys returns the keys present in the set, ordered as AllKeys.
func (s RecordSet) Keys() []SyncKey {
	keys := make([]SyncKey, 0, len(s))
	for _, key := range allKeys {
		if _, ok := s[key]; ok {
			keys = append(keys, key)
		}
	}
	return keys
}

// Values returns the raw JSON values keyed by sync key.
func (s RecordSet) Values() map[SyncKey]json.RawMessage {
	values := make(map[SyncKey]json.RawMessage, len(s))
	for key, rec := range s {
		values[key] = rec.Value
	}
	return values
}

// Role роль клиента: мобильная консоль администратора или витрина магазина
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleStorefront Role = "storefront"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleStorefront
}

// Peer returns the role on the other side of the sync boundary.
func (r Role) Peer() Role {
	if r == RoleAdmin {
		return RoleStorefront
	}
	return RoleAdmin
}
