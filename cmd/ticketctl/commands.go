package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Ritik0712-ai/ecell-ticket-system/internal/config"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/credential"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/errs"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/logging"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/qr"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/signature"
	"github.com/Ritik0712-ai/ecell-ticket-system/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

var errSignatureMismatch = errors.New("signature does not match")

type rootOptions struct {
	configFile string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "ticketctl",
		Short:         "Operator tools for the ticket service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logger := logging.New(cmd.ErrOrStderr(), "text", opts.logLevel)
			cmd.SetContext(logging.WithLogger(cmd.Context(), logger))
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newCredentialCmd(opts),
		newCheckCmd(opts),
		newMigrateCmd(opts),
	)
	return cmd
}

func loadConfig(cmd *cobra.Command, opts *rootOptions) (config.Config, error) {
	return config.Load(commandContext(cmd), opts.configFile)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func newSigner(cfg config.Config) (*signature.Service, error) {
	return signature.New(cfg.Signing.Secret, signature.Scheme(cfg.Signing.Scheme))
}

func newCredentialCmd(opts *rootOptions) *cobra.Command {
	var size int
	cmd := &cobra.Command{
		Use:   "credential <ticket-id>",
		Short: "Print the signed payload and QR link for a ticket id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			signer, err := newSigner(cfg)
			if err != nil {
				return err
			}
			if size <= 0 {
				size = cfg.QR.Size
			}

			encoded := credential.For(signer, args[0]).Encode()
			renderer := qr.NewRenderer(cfg.QR.BaseURL, cfg.QR.Size)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "payload: %s\n", encoded)
			fmt.Fprintf(out, "qr:      %s\n", renderer.ImageURLSized(encoded, size))
			return nil
		},
	}
	cmd.Flags().IntVar(&size, "size", 0, "QR image size in pixels (defaults to qr.size)")
	return cmd
}

func newCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check [payload]",
		Short: "Check a scanned payload's signature without touching the store",
		Long: "Check decodes a scanned payload and verifies its signature with the configured key.\n" +
			"It reads the payload from stdin when no argument is given. It never redeems.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			signer, err := newSigner(cfg)
			if err != nil {
				return err
			}

			scanned, err := readPayload(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			payload, err := credential.Decode(scanned)
			if err != nil {
				return err
			}
			if !signer.Verify(payload.ID, payload.Signature) {
				return fmt.Errorf("ticket %s: %w", payload.ID, errSignatureMismatch)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: ticket %s carries a valid signature\n", payload.ID)
			return nil
		},
	}
}

func readPayload(in io.Reader, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	b, err := io.ReadAll(io.LimitReader(in, 4<<10))
	if err != nil {
		return "", errs.Wrap(err, "read payload")
	}
	return strings.TrimSpace(string(b)), nil
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending Postgres migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if list {
				names, err := migrations.Names()
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintln(out, name)
				}
				return nil
			}

			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
			if err != nil {
				return errs.Wrap(err, "connect to db")
			}
			defer pool.Close()

			applied, err := migrations.Apply(ctx, pool)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(out, "no pending migrations")
				return nil
			}
			for _, name := range applied {
				fmt.Fprintf(out, "applied %s\n", name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "list embedded migrations and exit")
	return cmd
}
