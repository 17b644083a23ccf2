package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Ritik0712-ai/ecell-ticket-system/internal/app"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/clock"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/config"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/errs"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/logging"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/notify"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/storage/memory"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/storage/postgres"
	redisstore "github.com/Ritik0712-ai/ecell-ticket-system/internal/storage/redis"
	"github.com/Ritik0712-ai/ecell-ticket-system/migrations"
	goredis "github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ticketBackend is everything the API needs from a store driver.
type ticketBackend interface {
	app.TicketStore
	app.TicketFeed
}

var (
	_ ticketBackend = (*memory.Store)(nil)
	_ ticketBackend = (*postgres.TicketStore)(nil)
	_ ticketBackend = (*redisstore.TicketStore)(nil)
)

func openStore(ctx context.Context, cfg config.Config, clk clock.Clock) (ticketBackend, func(), error) {
	switch cfg.Store.Driver {
	case config.StorePostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, errs.Wrap(err, "connect to db")
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, errs.Wrap(err, "db ping")
		}
		applied, err := migrations.Apply(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, errs.Wrap(err, "apply migrations")
		}
		logging.Info(ctx, "postgres store ready", slog.Int("migrations_applied", len(applied)))
		return postgres.NewTicketStore(pool), pool.Close, nil

	case config.StoreRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, errs.Wrap(err, "redis ping")
		}
		logging.Info(ctx, "redis store ready", slog.String("addr", cfg.Redis.Addr), slog.String("prefix", cfg.Redis.Prefix))
		store := redisstore.NewTicketStore(client, clk, redisstore.WithPrefix(cfg.Redis.Prefix))
		return store, func() { _ = client.Close() }, nil

	case config.StoreMemory:
		logging.Warn(ctx, "using the in-memory store, tickets are lost on restart")
		return memory.NewStore(clk), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

func newNotifier(cfg config.Config) (notify.Notifier, error) {
	if cfg.Notify.Driver != config.NotifySMTP {
		return notify.LogNotifier{}, nil
	}
	n, err := notify.NewSMTPNotifier(notify.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})
	if err != nil {
		return nil, errs.Wrap(err, "smtp notifier")
	}
	return n, nil
}
