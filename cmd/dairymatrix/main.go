package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"dairy-matrix/internal/config"
	"dairy-matrix/internal/logger"
	"dairy-matrix/internal/middleware"
	"dairy-matrix/internal/repository"
	"dairy-matrix/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var configPath string

// rootCmd is the base command of the dairymatrix CLI
var rootCmd = &cobra.Command{
	Use:   "dairymatrix",
	Short: "Dairy farm report ingestion and comparison matrix",
	Long: `dairymatrix ingests weekly and historical dairy-farm spreadsheets into
postgres and builds the weekly comparison matrix: one row per establishment,
derived economics, trailing MDAT windows and rankings.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.toml", "Path to the TOML configuration file")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app bundles what every subcommand needs
type app struct {
	cfg     *config.AppConfig
	logger  *slog.Logger
	db      *gorm.DB
	repo    repository.DairyRepository
	metrics *middleware.Metrics
	redis   *redis.Client
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log := logger.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	a := &app{
		cfg:     cfg,
		logger:  log,
		db:      db,
		repo:    repository.NewDairyRepository(db),
		metrics: middleware.NewMetrics(),
	}

	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn("redis unavailable, cache disabled", "addr", cfg.Redis.Addr, "error", err)
			client.Close()
		} else {
			a.redis = client
			a.repo = repository.NewCachedRepository(a.repo, client, cfg.Redis.TTL(), log)
		}
	}

	log.Info("connected",
		"db_host", cfg.Database.Host,
		"db_name", cfg.Database.Name,
		"cache", a.redis != nil,
	)
	return a, nil
}

func (a *app) ingestService() service.IngestService {
	epoch, _ := a.cfg.Ingest.Epoch()
	return service.NewIngestService(a.repo, service.IngestConfig{
		BatchSize:         a.cfg.Ingest.BatchSize,
		HistoricBatchSize: a.cfg.Ingest.HistoricBatchSize,
		FallbackEpoch:     epoch,
		HistoricSheet:     a.cfg.Ingest.HistoricSheet,
	}, a.metrics, a.logger)
}

func (a *app) matrixService() service.MatrixService {
	return service.NewMatrixService(a.repo, a.logger)
}

func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
}
