// Package cli implements the petalsync client commands.
package cli

import (
	"fmt"
	"log/slog"
	"text/template"

	"github.com/iudanet/petalsync/internal/client/iocli"
	"github.com/iudanet/petalsync/internal/client/shop"
	"github.com/iudanet/petalsync/internal/client/storage"
	"github.com/iudanet/petalsync/internal/client/sync"
	"github.com/iudanet/petalsync/internal/models"
	"github.com/iudanet/petalsync/internal/payment"
)

// Cli выполняет команды клиента поверх собранного приложения
type Cli struct {
	io       iocli.IO
	sync     *sync.Orchestrator
	shop     *shop.Service
	payments *payment.Service
	store    storage.Store
	logger   *slog.Logger
	role     models.Role
}

func New(
	io iocli.IO,
	orchestrator *sync.Orchestrator,
	shopService *shop.Service,
	payments *payment.Service,
	store storage.Store,
	role models.Role,
	logger *slog.Logger,
) *Cli {
	return &Cli{
		io:       io,
		sync:     orchestrator,
		shop:     shopService,
		payments: payments,
		store:    store,
		role:     role,
		logger:   logger,
	}
}

// sender автор сообщений для роли клиента
func (c *Cli) sender() models.Sender {
	if c.role == models.RoleAdmin {
		return models.SenderAdmin
	}
	return models.SenderUser
}

func (c *Cli) render(tmpl *template.Template, data any) error {
	if err := tmpl.Execute(c.io, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", tmpl.Name(), err)
	}
	return nil
}
