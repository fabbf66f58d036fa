package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/iudanet/petalsync/internal/client/storage"
	"github.com/iudanet/petalsync/internal/client/sync"
	"github.com/iudanet/petalsync/internal/models"
)

func (c *Cli) runSync(ctx context.Context) error {
	c.io.Println("=== Synchronization ===")
	c.io.Println()

	result, err := c.sync.SyncNow(ctx)
	if err != nil {
		// локальные данные остаются как есть
		c.io.Println("Synchronization failed, local data is unchanged.")
		return fmt.Errorf("synchronization failed: %w", err)
	}

	c.printResult(result)
	return nil
}

func (c *Cli) runResync(ctx context.Context) error {
	c.io.Println("=== Full Resynchronization ===")
	c.io.Println()

	result, err := c.sync.Resync(ctx)
	if err != nil {
		if errors.Is(err, sync.ErrResyncUnsupported) {
			return fmt.Errorf("the configured transport cannot provide a full snapshot")
		}
		return fmt.Errorf("resync failed: %w", err)
	}

	c.printResult(result)
	return nil
}

func (c *Cli) printResult(result *sync.Result) {
	c.io.Println("✓ Synchronization completed")
	c.io.Println()
	c.io.Printf("Pushed:  %d key(s)\n", result.Pushed)
	c.io.Printf("Pulled:  %d record(s)\n", result.Pulled)
	c.io.Printf("Applied: %d record(s)\n", result.Applied)
	if result.Skipped > 0 {
		c.io.Printf("Skipped: %d record(s)\n", result.Skipped)
	}
	if result.Quarantined > 0 {
		c.io.Printf("⚠️  Quarantined: %d record(s), see 'petalsync status'\n", result.Quarantined)
	}
	if len(result.Rejected) > 0 {
		keys := make([]string, 0, len(result.Rejected))
		for _, key := range result.Rejected {
			keys = append(keys, key.String())
		}
		c.io.Printf("⚠️  Not accepted: %s (kept for the next sync)\n", strings.Join(keys, ", "))
	}
}

type statusView struct {
	Status      sync.Status
	Cursor      string
	Quarantined []storage.QuarantinedRecord
	Pending     int
}

func (c *Cli) runStatus(ctx context.Context) error {
	view := statusView{Status: c.sync.Status()}

	pending, err := c.sync.PendingCount(ctx)
	if err != nil {
		return fmt.Errorf("failed to count pending keys: %w", err)
	}
	view.Pending = pending

	cursor, err := c.store.GetCursor(ctx, c.sync.CursorScope())
	if err != nil {
		c.logger.Warn("Failed to read sync cursor", "error", err)
	}
	view.Cursor = cursor

	quarantined, err := c.store.ListQuarantined(ctx)
	if err != nil {
		c.logger.Warn("Failed to list quarantined records", "error", err)
	}
	view.Quarantined = quarantined

	return c.render(statusTmpl, view)
}

// runLoop синхронизирует периодически до отмены ctx
func (c *Cli) runLoop(ctx context.Context, interval time.Duration) error {
	unsubscribe := c.sync.OnUpdate(func(update models.RecordSet) {
		keys := make([]string, 0, len(update))
		for key := range update {
			keys = append(keys, key.String())
		}
		slices.Sort(keys)
		c.io.Printf("Updated: %s\n", strings.Join(keys, ", "))
	})
	defer unsubscribe()

	if err := c.sync.Start(interval); err != nil {
		return fmt.Errorf("failed to start sync: %w", err)
	}
	c.io.Println("Synchronizing in the background, press Ctrl+C to stop.")

	<-ctx.Done()
	c.sync.Stop()

	c.io.Println()
	c.io.Println("Stopped.")
	return nil
}
