package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/dcastano/reciboscan/internal/common"
	"github.com/dcastano/reciboscan/internal/export"
	"github.com/dcastano/reciboscan/internal/pipeline"
	"github.com/dcastano/reciboscan/internal/registry"
	"github.com/dcastano/reciboscan/internal/repository"
	"github.com/dcastano/reciboscan/internal/server"
)

func main() {
	_ = godotenv.Load()
	cfg := common.LoadConfig()

	fs := ff.NewFlagSet("recibod")
	var (
		httpAddr = fs.StringLong("http-addr", cfg.Server.HTTPAddr, "HTTP listen address")
		dsn      = fs.StringLong("store-dsn", cfg.Store.DSN, "Postgres DSN for the template store (empty = bbolt)")
		boltPath = fs.StringLong("store-bolt", cfg.Store.BoltPath, "bbolt file path for the template store")
		chainDir = fs.StringLong("chain-dir", cfg.Parser.ChainTemplateDir, "directory of extra chain template JSON files")
		region   = fs.StringLong("region", cfg.Parser.DefaultRegion, "default regional preset")
		debug    = fs.BoolLong("debug", "enable debug logging")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("RECIBOSCAN")); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg.Server.HTTPAddr = *httpAddr
	cfg.Store.DSN = *dsn
	cfg.Store.BoltPath = *boltPath
	cfg.Parser.ChainTemplateDir = *chainDir
	cfg.Parser.DefaultRegion = *region
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chains, err := registry.LoadChainTemplates(cfg.Parser.ChainTemplateDir, logger)
	if err != nil {
		logger.Error("loading chain templates failed", "error", err)
		os.Exit(1)
	}
	regions := registry.NewRegionRegistry(registry.BuiltinRegions(), cfg.Parser.DefaultRegion)
	taxRegions := registry.NewTaxRegionRegistry(registry.BuiltinTaxRegions(), "ES_IVA")

	repo, cleanup, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("opening template store failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	pipe := pipeline.New(pipeline.Config{
		MinChainConfidence: cfg.Parser.MinChainConfidence,
		MinLearnConfidence: cfg.Parser.MinLearnConfidence,
		DefaultRegion:      cfg.Parser.DefaultRegion,
	}, chains, regions, taxRegions, repo, logger)

	srv := server.New(pipe, repo, export.NewService(logger), logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(cfg.Server.HTTPAddr) }()

	select {
	case err := <-errCh:
		logger.Error("server failed", "error", err)
		os.Exit(1)
	case <-ctx.Done():
		logger.Info("shutting down")
	}
}

// openStore selects the template store implementation: Postgres when a
// DSN is configured, bbolt otherwise.
func openStore(ctx context.Context, cfg *common.Config, logger *slog.Logger) (repository.TemplateRepository, func(), error) {
	if cfg.Store.DSN != "" {
		pool, err := repository.Open(ctx, repository.Config{
			DSN:             cfg.Store.DSN,
			MaxConns:        cfg.Store.MaxConns,
			MinConns:        cfg.Store.MinConns,
			MaxConnLifetime: cfg.Store.MaxConnLifetime,
			MaxConnIdleTime: cfg.Store.MaxConnIdleTime,
			DialTimeout:     cfg.Store.DialTimeout,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := repository.HealthCheck(ctx, pool, cfg.Store.DialTimeout); err != nil {
			pool.Close()
			return nil, nil, err
		}
		repo, err := repository.NewPostgresRepository(ctx, pool, logger)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repo, pool.Close, nil
	}

	repo, err := repository.NewBoltRepository(cfg.Store.BoltPath, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if c, ok := repo.(interface{ Close() error }); ok {
			_ = c.Close()
		}
	}
	return repo, cleanup, nil
}
