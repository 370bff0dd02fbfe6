package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/centralbank/usdw/backend/pkg/common"
	"github.com/centralbank/usdw/backend/pkg/common/db"
	"github.com/centralbank/usdw/backend/pkg/common/logger"
	"github.com/centralbank/usdw/backend/pkg/common/migrations"
	"github.com/centralbank/usdw/backend/pkg/fabricclient"
	"github.com/centralbank/usdw/backend/services/audit-indexer/indexer"
	schema "github.com/centralbank/usdw/backend/services/audit-indexer/migrations"
)

// The audit indexer follows USDw chaincode events after commit, stores them
// in Postgres and optionally republishes them to Kafka.

func main() {
	cfg, err := common.LoadIndexerConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logr, err := logger.New("audit-indexer", cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logr.Sync()

	if cfg.JWTSecret == "" {
		logr.Fatal("JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Connect(ctx, cfg.DB, logr)
	if err != nil {
		logr.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	if err := migrations.RunMigrations(ctx, database, schema.FS, logr); err != nil {
		logr.Fatal("failed to run migrations", zap.Error(err))
	}

	fabric, err := fabricclient.NewClient(fabricclient.Options{
		ConfigPath:   cfg.FabricConfig,
		ChannelName:  cfg.FabricChannel,
		ContractName: cfg.FabricContract,
		MSPID:        cfg.MSP,
		CertPath:     cfg.CertPath,
		KeyPath:      cfg.KeyPath,
		WalletDir:    cfg.WalletDir,
	})
	if err != nil {
		logr.Fatal("failed to connect to Fabric", zap.Error(err))
	}
	defer fabric.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	store := indexer.NewPGStore(database)
	opts := []indexer.Option{
		indexer.WithMetrics(indexer.NewMetrics(reg)),
		indexer.WithLogger(logr.Named("indexer")),
	}
	if brokers := common.SplitList(cfg.KafkaBrokers); len(brokers) > 0 {
		publisher, err := indexer.NewKafkaPublisher(brokers, cfg.KafkaTopic)
		if err != nil {
			logr.Fatal("failed to create Kafka publisher", zap.Error(err))
		}
		defer publisher.Close()
		opts = append(opts, indexer.WithPublisher(publisher))
		logr.Info("publishing audit events", zap.Strings("brokers", brokers), zap.String("topic", cfg.KafkaTopic))
	}

	ix, err := indexer.New(fabric, store, opts...)
	if err != nil {
		logr.Fatal("failed to create indexer", zap.Error(err))
	}
	go func() {
		if err := ix.Run(ctx); err != nil {
			logr.Error("indexer stopped", zap.Error(err))
			stop()
		}
	}()

	svc := &Service{store: store, log: logr}
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(svc, []byte(cfg.JWTSecret), reg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logr.Info("audit indexer listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("audit indexer stopped")
}
