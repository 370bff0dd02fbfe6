package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // Postgres driver
	"go.uber.org/zap"

	"github.com/centralbank/usdw/backend/pkg/common"
)

const (
	pingAttempts = 5
	pingBackoff  = 2 * time.Second
)

// Connect opens a Postgres pool and waits for the database to answer.
func Connect(ctx context.Context, cfg common.DBConfig, log *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}
	if err := waitForPing(ctx, db, log, pingAttempts, pingBackoff); err != nil {
		db.Close()
		return nil, err
	}
	log.Info("connected to database", zap.String("host", cfg.Host), zap.String("db", cfg.Name))
	return db, nil
}

// Retry logic for waiting for DB to be ready
func waitForPing(ctx context.Context, db *sql.DB, log *zap.Logger, attempts int, backoff time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		log.Warn("waiting for database", zap.Int("attempt", i+1), zap.Int("of", attempts), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("failed to ping db: %w", err)
}
