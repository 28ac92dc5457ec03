package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kestrelquant/kestrel/cmd/kestrel/internal/app"
	"github.com/kestrelquant/kestrel/internal/config"
	"github.com/kestrelquant/kestrel/rawdata"
)

type Cmd struct {
	Init InitCmd `cmd:"" help:"Create the raw_data schema and bookkeeping tables."`
	Drop DropCmd `cmd:"" help:"Drop the raw_data schema and all its tables."`
}

type InitCmd struct{}

func (c *InitCmd) Run(g *app.Globals) error {
	return withPool(g, func(ctx context.Context, pool *pgxpool.Pool) error {
		return rawdata.Init(ctx, pool)
	})
}

type DropCmd struct {
	Yes bool `help:"Confirm dropping all raw data." short:"y"`
}

func (c *DropCmd) Run(g *app.Globals) error {
	if !c.Yes {
		return errors.New("refusing to drop raw_data without --yes")
	}
	return withPool(g, func(ctx context.Context, pool *pgxpool.Pool) error {
		return rawdata.DropSchema(ctx, pool)
	})
}

func withPool(g *app.Globals, fn func(context.Context, *pgxpool.Pool) error) error {
	cfg, logger, err := g.Load()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("%s is not set", config.DatabaseURL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	if err := fn(ctx, pool); err != nil {
		return err
	}
	logger.Info("database updated")
	return nil
}
