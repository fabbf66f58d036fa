package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/iudanet/petalsync/internal/models"
	"github.com/iudanet/petalsync/internal/server/storage"
	"github.com/iudanet/petalsync/pkg/api"
)

// MaxBodySize ограничивает тело POST /sync
const MaxBodySize = 10 << 20

// RecordStorage определяет интерфейс для работы со снимком
type RecordStorage interface {
	SaveRecords(ctx context.Context, values map[models.SyncKey]json.RawMessage, at time.Time) ([]models.SyncKey, int64, error)
	GetAll(ctx context.Context) ([]storage.Record, error)
	GetSince(ctx context.Context, since int64) ([]storage.Record, error)
	Revision(ctx context.Context) (int64, error)
}

// SyncHandler handles synchronization requests
type SyncHandler struct {
	logger  *slog.Logger
	storage RecordStorage
	now     func() time.Time
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(logger *slog.Logger, storage RecordStorage) *SyncHandler {
	return &SyncHandler{
		logger:  logger,
		storage: storage,
		now:     time.Now,
	}
}

// Push обрабатывает POST /sync: принимает снимок ключей клиента.
// Неизвестные ключи и значения, не прошедшие проверку схемы, не принимаются.
func (h *SyncHandler) Push(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject, _ := GetSubject(ctx)

	var snapshot api.Snapshot
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodySize)).Decode(&snapshot); err != nil {
		h.logger.Warn("Failed to decode push body", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	values := make(map[models.SyncKey]json.RawMessage, len(snapshot))
	for rawKey, raw := range snapshot {
		key, err := models.ParseSyncKey(rawKey)
		if err != nil {
			h.logger.Warn("Unknown key in push, skipping", "key", rawKey, "client", subject)
			continue
		}

		var compact bytes.Buffer
		if err := json.Compact(&compact, raw); err != nil {
			h.logger.Warn("Malformed value in push, skipping", "key", key, "error", err)
			continue
		}
		value := json.RawMessage(compact.Bytes())
		if err := models.ValidateRecord(key, value); err != nil {
			h.logger.Warn("Invalid value in push, skipping", "key", key, "error", err)
			continue
		}
		values[key] = value
	}

	changed, revision, err := h.storage.SaveRecords(ctx, values, h.now())
	if err != nil {
		h.logger.Error("Failed to save records", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	accepted := make([]string, 0, len(values))
	for key := range values {
		accepted = append(accepted, key.String())
	}
	slices.Sort(accepted)

	writeJSON(w, h.logger, http.StatusOK, api.PushResponse{
		Accepted:  accepted,
		Timestamp: strconv.FormatInt(revision, 10),
	})

	h.logger.Info("Push completed",
		"client", subject,
		"received", len(snapshot),
		"accepted", len(accepted),
		"changed", len(changed),
		"revision", revision)
}

// Snapshot обрабатывает GET /sync: возвращает все ключи
func (h *SyncHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	records, err := h.storage.GetAll(r.Context())
	if err != nil {
		h.logger.Error("Failed to read snapshot", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	snapshot := make(api.Snapshot, len(records))
	for _, rec := range records {
		snapshot[rec.Key.String()] = rec.Value
	}
	writeJSON(w, h.logger, http.StatusOK, snapshot)
}

// Pull обрабатывает GET /admin/pull?since=<cursor>.
// Без изменений после курсора отвечает 304 без тела.
func (h *SyncHandler) Pull(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	since, err := parseCursor(r.URL.Query().Get("since"))
	if err != nil {
		h.logger.Warn("Invalid since parameter", "since", r.URL.Query().Get("since"), "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "invalid since parameter")
		return
	}

	records, err := h.storage.GetSince(ctx, since)
	if err != nil {
		h.logger.Error("Failed to read records", "error", err, "since", since)
		writeError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	// Курсор из будущего: база сервера пересоздана, клиенту нужен полный снимок
	if len(records) == 0 && since > 0 {
		revision, err := h.storage.Revision(ctx)
		if err != nil {
			h.logger.Error("Failed to read revision", "error", err)
			writeError(w, h.logger, http.StatusInternalServerError, "internal server error")
			return
		}
		if since > revision {
			h.logger.Warn("Cursor is ahead of the server revision, sending everything", "since", since, "revision", revision)
			since = 0
			if records, err = h.storage.GetSince(ctx, 0); err != nil {
				h.logger.Error("Failed to read records", "error", err, "since", since)
				writeError(w, h.logger, http.StatusInternalServerError, "internal server error")
				return
			}
		}
	}

	if len(records) == 0 {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	resp := api.PullResponse{
		Data:      make(api.Snapshot, len(records)),
		UpdatedAt: make(map[string]time.Time, len(records)),
	}
	latest := since
	for _, rec := range records {
		resp.Data[rec.Key.String()] = rec.Value
		resp.UpdatedAt[rec.Key.String()] = rec.UpdatedAt
		latest = max(latest, rec.Revision)
	}
	resp.Timestamp = strconv.FormatInt(latest, 10)

	writeJSON(w, h.logger, http.StatusOK, resp)
	h.logger.Debug("Pull completed", "since", since, "records", len(records), "cursor", latest)
}

var errNegativeCursor = errors.New("cursor must not be negative")

// parseCursor: пустой курсор означает "с начала"
func parseCursor(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	since, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	if since < 0 {
		return 0, errNegativeCursor
	}
	return since, nil
}
