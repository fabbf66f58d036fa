package sync

import (
	"errors"
	"log/slog"
	"time"

	httpClient "github.com/iudanet/petalsync/internal/client/api"
	"github.com/iudanet/petalsync/internal/client/storage"
	"github.com/iudanet/petalsync/internal/client/transport"
	"github.com/iudanet/petalsync/internal/models"
)

// ErrNoSharedStore возвращается, если выбран shared-store транспорт, но хранилище не передано
var ErrNoSharedStore = errors.New("shared store transport selected but no shared store configured")

// TransportConfig параметры выбора транспорта
type TransportConfig struct {
	Endpoint       string
	Token          string
	Role           models.Role
	RequestTimeout time.Duration
}

// SelectTransport builds the transport chosen by the endpoint setting.
// shared is only used for the shared-store transport and may be nil otherwise.
func SelectTransport(cfg TransportConfig, shared storage.KVStore, logger *slog.Logger) (transport.Transport, error) {
	kind := transport.SelectKind(cfg.Endpoint)
	logger.Info("Selected sync transport", "kind", kind, "role", cfg.Role)

	switch kind {
	case transport.KindRemote:
		client := httpClient.NewClient(cfg.Endpoint,
			httpClient.WithTimeout(cfg.RequestTimeout),
			httpClient.WithToken(cfg.Token),
		)
		return transport.NewRemote(client, logger), nil
	default:
		if shared == nil {
			return nil, ErrNoSharedStore
		}
		return transport.NewSharedStore(shared, cfg.Role, logger)
	}
}
