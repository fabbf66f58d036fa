package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/iudanet/petalsync/internal/client/iocli"
	"github.com/iudanet/petalsync/internal/client/shop"
	"github.com/iudanet/petalsync/internal/client/storage"
	"github.com/iudanet/petalsync/internal/client/storage/boltdb"
	"github.com/iudanet/petalsync/internal/client/sync"
	"github.com/iudanet/petalsync/internal/client/transport"
	"github.com/iudanet/petalsync/internal/config"
	"github.com/iudanet/petalsync/internal/payment"
)

// App собранный клиент: локальное хранилище, транспорт, оркестратор и сервисы
type App struct {
	Cli    *Cli
	Sync   *sync.Orchestrator
	store  *boltdb.Storage
	logger *slog.Logger
	Config *config.Client
}

// Open opens the local store and wires the client for cfg.
func Open(ctx context.Context, cfg *config.Client, io iocli.IO, logger *slog.Logger) (*App, error) {
	store, err := boltdb.New(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store %s: %w", cfg.DBPath, err)
	}

	var shared storage.KVStore
	if transport.SelectKind(cfg.SyncEndpoint) == transport.KindSharedStore {
		sharedFile, err := boltdb.NewSharedFile(cfg.SharedDBPath)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to open shared store %s: %w", cfg.SharedDBPath, err)
		}
		shared = sharedFile
	}

	tr, err := sync.SelectTransport(sync.TransportConfig{
		Endpoint:       cfg.SyncEndpoint,
		Token:          cfg.AuthToken,
		Role:           cfg.Role,
		RequestTimeout: cfg.RequestTimeout,
	}, shared, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to select transport: %w", err)
	}

	orchestrator := sync.New(sync.Config{
		Keys:         cfg.SyncKeys,
		PollInterval: cfg.PollInterval,
	}, store, tr, logger)

	adapter := storage.NewAdapter(store, logger)
	shopService := shop.NewService(adapter, orchestrator.Bus(), logger)
	payments := payment.NewService(adapter, orchestrator.Bus(), logger)

	return &App{
		Cli:    New(io, orchestrator, shopService, payments, store, cfg.Role, logger),
		Sync:   orchestrator,
		store:  store,
		logger: logger,
		Config: cfg,
	}, nil
}

// Close stops synchronization and closes the local store.
func (a *App) Close() error {
	a.Sync.Close()
	if err := a.store.Close(); err != nil {
		return fmt.Errorf("failed to close local store: %w", err)
	}
	return nil
}
