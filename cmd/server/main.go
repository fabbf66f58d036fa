package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iudanet/petalsync/internal/config"
	"github.com/iudanet/petalsync/internal/logging"
	"github.com/iudanet/petalsync/internal/models"
	"github.com/iudanet/petalsync/internal/server"
	"github.com/iudanet/petalsync/internal/server/jwt"
	"github.com/iudanet/petalsync/internal/server/storage/sqlite"
	"github.com/iudanet/petalsync/internal/validation"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "petalsync-server",
		Short:         "Sync endpoint for the flower shop admin and storefront clients",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), configFile)
		},
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (yaml/json/toml)")
	root.SetOut(out)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP sync endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), configFile)
		},
	}

	var subject, role string
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a client",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadServer(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return issueToken(cmd.OutOrStdout(), cfg, subject, models.Role(role))
		},
	}
	tokenCmd.Flags().StringVar(&subject, "subject", "", "client identifier")
	tokenCmd.Flags().StringVar(&role, "role", string(models.RoleStorefront), "client role: admin or storefront")
	_ = tokenCmd.MarkFlagRequired("subject")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "PetalSync Server\n")
			fmt.Fprintf(w, "Version:    %s\n", Version)
			fmt.Fprintf(w, "Build Date: %s\n", BuildDate)
			fmt.Fprintf(w, "Git Commit: %s\n", GitCommit)
		},
	}

	root.AddCommand(serveCmd, tokenCmd, versionCmd)
	return root
}

func serve(ctx context.Context, configFile string) error {
	cfg, err := config.LoadServer(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return err
	}

	store, err := sqlite.New(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage", "error", err)
		}
	}()

	opts := server.Options{
		Addr:      cfg.Addr,
		Version:   Version,
		RateLimit: cfg.RateLimit,
	}
	if cfg.JWTSecret != "" {
		opts.Validator = jwt.NewService(cfg.JWTSecret, cfg.TokenTTL)
	} else {
		logger.Warn("jwt_secret is empty, bearer tokens are not checked")
	}

	logger.Info("Starting PetalSync server", "version", Version, "addr", cfg.Addr, "db", cfg.DBPath)
	return server.New(opts, store, logger).Run(ctx)
}

func issueToken(w io.Writer, cfg *config.Server, subject string, role models.Role) error {
	if cfg.JWTSecret == "" {
		return errors.New("jwt_secret is not configured")
	}
	if err := validation.ValidateSubject(subject); err != nil {
		return err
	}
	if !role.IsValid() {
		return fmt.Errorf("unknown role %q", role)
	}

	token, expires, err := jwt.NewService(cfg.JWTSecret, cfg.TokenTTL).Issue(subject, role)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, token)
	fmt.Fprintf(w, "# expires %s\n", expires.Format("2006-01-02 15:04:05 MST"))
	return nil
}
