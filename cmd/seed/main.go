// Command seed loads a YAML fixture into the configured database.
//
//	seed -file fixtures/demo.yaml
//
// The database is selected with the same DB_* variables as the server.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/referral-backend/internal/config"
	"github.com/tbourn/referral-backend/internal/repo"
	"github.com/tbourn/referral-backend/internal/seed"
	"github.com/tbourn/referral-backend/internal/services"
	"github.com/tbourn/referral-backend/internal/sysutil"
)

func main() {
	file := flag.String("file", "seed.yaml", "path to the YAML fixture")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.MustLoad()
	sysutil.SetupLogger(os.Stderr, cfg.LogLevel, true)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, cfg, *file)
	stop()
	if err != nil {
		log.Error().Err(err).Str("file", *file).Msg("seed failed, nothing was written")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, path string) error {
	fh, err := os.Open(path)
	if err != nil {
		return err
	}
	fixture, err := seed.Load(fh)
	_ = fh.Close()
	if err != nil {
		return err
	}

	db, err := repo.Open(repo.Options{
		Driver:       cfg.DB.Driver,
		DSN:          cfg.DB.DSN,
		MaxOpenConns: cfg.DB.MaxOpenConns,
		MaxIdleConns: cfg.DB.MaxIdleConns,
		Silent:       true,
	})
	if err != nil {
		return err
	}
	defer func() { _ = repo.Close(db) }()

	if err := repo.AutoMigrate(db); err != nil {
		return err
	}

	_, err = seed.Apply(ctx, db, services.Options{
		DefaultLimit:   cfg.List.DefaultLimit,
		MaxLimit:       cfg.List.MaxLimit,
		IdempotencyTTL: cfg.IdempotencyTTL,
	}, fixture)
	return err
}
