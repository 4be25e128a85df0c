package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/flowtrack/internal/apper"
	"github.com/BuzzLyutic/flowtrack/internal/config"
	"github.com/BuzzLyutic/flowtrack/internal/repo"
)

var ErrNoApperURL = errors.New("APPER_URL is required for the apper backend")

// openClient returns the record client for cfg.Backend and a func releasing it.
// Local stores are migrated before use.
func openClient(ctx context.Context, cfg *config.Config, logger *zap.Logger) (apper.Client, func(), error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		db, err := repo.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		store, err := repo.NewSQLiteRecordStore(db, cfg.Table, logger)
		if err == nil {
			err = store.Migrate(ctx)
		}
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Debug("using sqlite backend", zap.String("path", cfg.SQLitePath))
		return store, func() { db.Close() }, nil

	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ping database: %w", err)
		}
		store, err := repo.NewPgRecordStore(pool, cfg.Table, logger)
		if err == nil {
			err = store.Migrate(ctx)
		}
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("Successfully connected to the Database!")
		return store, pool.Close, nil

	case config.BackendApper:
		if cfg.ApperURL == "" {
			return nil, nil, ErrNoApperURL
		}
		client := apper.NewHTTPClient(ctx, apper.HTTPConfig{
			BaseURL:      cfg.ApperURL,
			ProjectID:    cfg.ApperProjectID,
			PublicKey:    cfg.ApperPublicKey,
			ClientID:     cfg.ApperClientID,
			ClientSecret: cfg.ApperClientSecret,
			TokenURL:     cfg.ApperTokenURL,
			Timeout:      cfg.HTTPTimeout,
		}, logger)
		return client, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}
