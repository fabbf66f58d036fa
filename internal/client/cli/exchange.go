package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/iudanet/petalsync/internal/crypto"
	"github.com/iudanet/petalsync/internal/validation"
)

func (c *Cli) runExport(ctx context.Context, path string, encrypt bool) error {
	data, err := c.sync.Export(ctx)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if encrypt {
		passphrase, err := c.io.ReadInput("Passphrase: ")
		if err != nil {
			return fmt.Errorf("failed to read passphrase: %w", err)
		}
		confirm, err := c.io.ReadInput("Repeat passphrase: ")
		if err != nil {
			return fmt.Errorf("failed to read passphrase: %w", err)
		}
		if err := validation.ValidatePassphrase(passphrase); err != nil {
			return err
		}
		if passphrase != confirm {
			return errors.New("passphrases do not match")
		}
		if data, err = crypto.Seal(data, passphrase); err != nil {
			return fmt.Errorf("failed to encrypt export: %w", err)
		}
	}

	if path == "" || path == "-" {
		if _, err := c.io.Write(data); err != nil {
			return fmt.Errorf("failed to write export: %w", err)
		}
		c.io.Println()
		return nil
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	c.io.Printf("✓ Exported local data to %s (%d bytes)\n", path, len(data))
	return nil
}

func (c *Cli) runImport(ctx context.Context, path string, yes bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	if crypto.IsSealed(data) {
		passphrase, err := c.io.ReadInput("Passphrase: ")
		if err != nil {
			return fmt.Errorf("failed to read passphrase: %w", err)
		}
		if data, err = crypto.Open(data, passphrase); err != nil {
			return fmt.Errorf("failed to decrypt %s: %w", path, err)
		}
	}

	if !yes {
		answer, err := c.io.ReadInput("Import replaces local data for every key in the file. Continue? [y/N]: ")
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		if !confirmed(answer) {
			c.io.Println("Import cancelled.")
			return nil
		}
	}

	keys, err := c.sync.Import(ctx, data)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	c.io.Printf("✓ Imported %d key(s):\n", len(keys))
	for _, key := range keys {
		c.io.Printf("  - %s\n", key)
	}
	c.io.Println("Run 'petalsync sync' to push them.")
	return nil
}
