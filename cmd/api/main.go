package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ritik0712-ai/ecell-ticket-system/internal/app"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/clock"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/config"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/errs"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/logging"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/qr"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/signature"
	transporthttp "github.com/Ritik0712-ai/ecell-ticket-system/internal/transport/http"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string
	cmd := &cobra.Command{
		Use:           "api",
		Short:         "Ticket issuing and gate verification API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := run(cmd.Context(), configFile)
			if err != nil {
				fmt.Fprintln(os.Stderr, "api:", err)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&configFile, "config", "", "path to a YAML config file")
	return cmd
}

func run(parent context.Context, configFile string) error {
	if parent == nil {
		parent = context.Background()
	}
	bootLogger := logging.New(os.Stderr, "text", "info")
	ctx := logging.WithLogger(parent, bootLogger)
	loadEnvFile(ctx)

	cfg, err := config.Load(ctx, configFile)
	if err != nil {
		return err
	}

	logger := logging.New(os.Stderr, cfg.Log.Format, cfg.Log.Level)
	slog.SetDefault(logger)
	ctx = logging.WithLogger(parent, logger)

	stopCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk := clock.NewSystem()

	startupCtx, cancel := context.WithTimeout(stopCtx, 5*time.Second)
	store, closeStore, err := openStore(startupCtx, cfg, clk)
	cancel()
	if err != nil {
		return err
	}
	defer closeStore()

	signer, err := signature.New(cfg.Signing.Secret, signature.Scheme(cfg.Signing.Scheme))
	if err != nil {
		return errs.Wrap(err, "signature service")
	}
	notifier, err := newNotifier(cfg)
	if err != nil {
		return err
	}

	catalog := app.NewCatalog()
	catalogDone := make(chan error, 1)
	go func() {
		catalogDone <- catalog.Run(stopCtx, store)
	}()

	delivery := app.NewDelivery(store, signer,
		qr.NewRenderer(cfg.QR.BaseURL, cfg.QR.Size),
		notifier,
		app.WithEventName(cfg.Event.Name),
	)

	handler := transporthttp.NewRouter(transporthttp.Services{
		Issuer:           app.NewIssuer(store, clk),
		Verifier:         app.NewVerifier(store, signer, clk),
		Tickets:          store,
		Credentials:      delivery,
		Catalog:          catalog,
		RevenuePerTicket: cfg.Catalog.RevenuePerTicket,
	}, transporthttp.RouterConfig{
		CORSOrigins: cfg.CORSOriginList(),
		Logger:      logger,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logging.Info(ctx, "api listening",
		slog.String("addr", server.Addr),
		slog.String("store", cfg.Store.Driver),
		slog.String("signing_scheme", string(signer.Scheme())),
	)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error(ctx, "server error", errs.Attr(err))
		}
	case err := <-catalogDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error(ctx, "catalog projection stopped", errs.Attr(err))
		}
	case <-stopCtx.Done():
		logging.Info(ctx, "shutdown signal received, stopping server")
	}
	stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Error(ctx, "server shutdown error", errs.Attr(err))
	}
	logging.Info(ctx, "server stopped")
	return nil
}
