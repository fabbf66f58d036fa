package api

import (
	"encoding/json"
	"time"
)

// Snapshot тело POST /sync и ответ GET /sync: JSON объект,
// ключи - ключи синхронизации, значения - соответствующие JSON документы
type Snapshot map[string]json.RawMessage

// PushResponse представляет подтверждение POST /sync
type PushResponse struct {
	Accepted  []string `json:"accepted"`  // ключи, принятые сервером
	Timestamp string   `json:"timestamp"` // курсор после записи
}

// PullResponse представляет ответ GET /admin/pull при наличии изменений
type PullResponse struct {
	Data      Snapshot             `json:"data"`                 // изменившиеся ключи
	UpdatedAt map[string]time.Time `json:"updated_at,omitempty"` // время записи каждого ключа на сервере
	Timestamp string               `json:"timestamp"`            // курсор для следующего запроса
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
}

// HealthResponse представляет ответ health check
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}
