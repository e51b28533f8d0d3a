package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/twapstream/indexer/internal/chain"
	"github.com/twapstream/indexer/internal/config"
	"github.com/twapstream/indexer/internal/database"
	"github.com/twapstream/indexer/internal/modules/core"
	"github.com/twapstream/indexer/internal/modules/twap"
	"github.com/twapstream/indexer/internal/processor"
	"github.com/twapstream/indexer/internal/realtime"
	"github.com/twapstream/indexer/internal/scheduler"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Logging)

	logger.Info().
		Str("config", configPath).
		Str("chain", cfg.Chain.Name).
		Msg("Starting indexer")

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("Indexer failed")
	}

	logger.Info().Msg("Indexer shutdown complete")
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.RunMigrations(ctx, &cfg.Database, logger); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	client, err := ethclient.DialContext(ctx, cfg.Chain.RPCEndpoint)
	if err != nil {
		return fmt.Errorf("failed to connect to RPC: %w", err)
	}
	defer client.Close()

	reader, err := chain.NewClient(client)
	if err != nil {
		return fmt.Errorf("failed to build chain client: %w", err)
	}

	module, err := twap.NewModule(logger)
	if err != nil {
		return fmt.Errorf("failed to build module: %w", err)
	}
	module.SetChainReader(reader)
	module.SetHeaderSource(client)

	var publisher *realtime.Publisher
	if cfg.Realtime.Enabled {
		publisher = realtime.NewPublisher(realtime.PublishConfig{
			APIURL: cfg.Realtime.APIURL,
			APIKey: cfg.Realtime.APIKey,
		}, db.Pool(), logger)
		defer publisher.Close()
		module.SetPublisher(publisher)
	}

	registry := core.NewModuleRegistry(db, logger)
	if err := registry.RegisterModule(module); err != nil {
		return fmt.Errorf("failed to register module: %w", err)
	}
	if err := registry.Start(); err != nil {
		return err
	}
	defer registry.Stop()

	proc := processor.NewProcessor(cfg, client, registry, logger)
	if publisher != nil {
		proc.SetBlockSink(publisher)
	}

	metadataScheduler, err := scheduler.NewTokenMetadataScheduler(db.Pool(), reader, logger)
	if err != nil {
		return fmt.Errorf("failed to build scheduler: %w", err)
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return proc.Run(groupCtx)
	})
	group.Go(func() error {
		if err := metadataScheduler.Start(groupCtx); err != nil {
			return err
		}
		<-groupCtx.Done()
		metadataScheduler.Stop()
		return nil
	})

	return group.Wait()
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05.000",
		}
		logger = zerolog.New(output).Level(level).With().Timestamp().Caller().Logger()
	} else {
		logger = zerolog.New(os.Stdout).Level(level).With().Timestamp().Caller().Logger()
	}

	return logger
}
