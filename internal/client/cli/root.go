package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/petalsync/internal/client/iocli"
	"github.com/iudanet/petalsync/internal/config"
	"github.com/iudanet/petalsync/internal/logging"
)

// BuildInfo версия сборки, выставляется через ldflags
type BuildInfo struct {
	Version   string
	BuildDate string
	GitCommit string
}

type root struct {
	io         iocli.IO
	app        *App
	info       BuildInfo
	configFile string
}

// Execute runs the client command line with args.
func Execute(ctx context.Context, io iocli.IO, info BuildInfo, args []string) error {
	r := &root{io: io, info: info}
	defer r.close()

	cmd := r.command()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func (r *root) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "petalsync",
		Short: "Flower shop sync client",
		Long: `petalsync keeps the admin console and the storefront in sync.

With PETAL_SYNC_ENDPOINT set, data is exchanged with the remote sync server.
Without it, both clients exchange data through a shared local store file.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: r.setup,
	}
	cmd.SetOut(r.io)
	cmd.PersistentFlags().StringVar(&r.configFile, "config", "", "config file (yaml, json or toml)")

	cmd.AddCommand(
		r.runCommand(),
		r.syncCommand(),
		r.statusCommand(),
		r.exportCommand(),
		r.importCommand(),
		r.ordersCommand(),
		r.orderCommand(),
		r.messageCommand(),
		r.paymentCommand(),
		r.notificationsCommand(),
		r.versionCommand(),
	)
	return cmd
}

func (r *root) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadClient(r.configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return err
	}

	app, err := Open(cmd.Context(), cfg, r.io, logger)
	if err != nil {
		return err
	}
	r.app = app
	return nil
}

func (r *root) close() {
	if r.app == nil {
		return
	}
	if err := r.app.Close(); err != nil {
		r.app.logger.Error("Failed to close client", "error", err)
	}
}

func (r *root) cli() *Cli {
	return r.app.Cli
}

func (r *root) runCommand() *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Synchronize periodically until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return r.cli().runLoop(ctx, interval)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "poll interval (default from config)")
	return cmd
}

func (r *root) syncCommand() *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Push local changes and pull remote ones now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if full {
				return r.cli().runResync(cmd.Context())
			}
			return r.cli().runSync(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "replace local data with a full remote snapshot")
	return cmd
}

func (r *root) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the last sync status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.cli().runStatus(cmd.Context())
		},
	}
}

func (r *root) exportCommand() *cobra.Command {
	var encrypt bool
	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Export all synced keys as one JSON document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			return r.cli().runExport(cmd.Context(), path, encrypt)
		},
	}
	cmd.Flags().BoolVar(&encrypt, "encrypt", false, "protect the export with a passphrase")
	return cmd
}

func (r *root) importCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a document produced by export (asks for the passphrase if encrypted)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.cli().runImport(cmd.Context(), args[0], yes)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func (r *root) ordersCommand() *cobra.Command {
	var requests bool
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List orders with their derived status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.cli().runOrders(cmd.Context(), requests)
		},
	}
	cmd.Flags().BoolVar(&requests, "requests", false, "list bookings, special orders and customized requests instead")
	return cmd
}

func (r *root) orderCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Inspect or update one order",
	}

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show order details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.cli().runOrderShow(cmd.Context(), args[0])
		},
	}
	accept := &cobra.Command{
		Use:   "accept <id>",
		Short: "Accept an order or request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.cli().runOrderAccept(cmd.Context(), args[0])
		},
	}
	decline := &cobra.Command{
		Use:   "decline <id> [reason...]",
		Short: "Decline an order or request",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.cli().runOrderDecline(cmd.Context(), args[0], strings.Join(args[1:], " "))
		},
	}
	status := &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Set the order status explicitly",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.cli().runOrderStatus(cmd.Context(), args[0], args[1])
		},
	}

	cmd.AddCommand(show, accept, decline, status)
	return cmd
}

func (r *root) messageCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "message",
		Short: "Order message threads",
	}

	send := &cobra.Command{
		Use:   "send <order-id> <text...>",
		Short: "Send a message in an order thread",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.cli().runMessageSend(cmd.Context(), args[0], strings.Join(args[1:], " "))
		},
	}

	var markRead bool
	thread := &cobra.Command{
		Use:   "thread <order-id>",
		Short: "Show the messages of an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.cli().runThread(cmd.Context(), args[0], markRead)
		},
	}
	thread.Flags().BoolVar(&markRead, "mark-read", false, "mark the shown messages as read")

	cmd.AddCommand(send, thread)
	return cmd
}

func (r *root) paymentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payment",
		Short: "Payment requests",
	}

	var note string
	request := &cobra.Command{
		Use:   "request <order-id> <amount>",
		Short: "Ask the customer to pay for an order",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[1], err)
			}
			return r.cli().runPaymentRequest(cmd.Context(), args[0], amount, note)
		},
	}
	request.Flags().StringVar(&note, "note", "", "message shown with the request")

	receipt := &cobra.Command{
		Use:   "receipt <message-id> <file>",
		Short: "Attach a payment receipt image",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.cli().runPaymentReceipt(cmd.Context(), args[0], args[1])
		},
	}
	confirm := &cobra.Command{
		Use:   "confirm <message-id>",
		Short: "Confirm a payment and mark the order paid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.cli().runPaymentConfirm(cmd.Context(), args[0])
		},
	}
	pending := &cobra.Command{
		Use:   "pending",
		Short: "List unconfirmed payment requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.cli().runPaymentPending(cmd.Context())
		},
	}

	cmd.AddCommand(request, receipt, confirm, pending)
	return cmd
}

func (r *root) notificationsCommand() *cobra.Command {
	var unread bool
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Show the notification feed, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.cli().runNotifications(cmd.Context(), unread)
		},
	}
	cmd.Flags().BoolVar(&unread, "unread", false, "show unread notifications only")

	read := &cobra.Command{
		Use:   "read [id]",
		Short: "Mark a notification as read, or all of them without id",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) > 0 {
				id = args[0]
			}
			return r.cli().runMarkRead(cmd.Context(), id)
		},
	}

	cmd.AddCommand(read)
	return cmd
}

func (r *root) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		// конфигурация и хранилище не нужны
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(*cobra.Command, []string) {
			r.io.Println("petalsync client")
			r.io.Printf("Version:    %s\n", r.info.Version)
			r.io.Printf("Build Date: %s\n", r.info.BuildDate)
			r.io.Printf("Git Commit: %s\n", r.info.GitCommit)
		},
	}
}
