package bulkload

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver for database/sql and sqlx

	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite"
	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite/memstore"
	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite/postgresstore"
)

// OpenedStore is a store together with the function releasing its connection.
type OpenedStore struct {
	Store bulkwrite.Store
	Close func() error
}

// OpenStore connects to the configured backend and, if requested, creates the records table.
func OpenStore(ctx context.Context, cfg Config, logger bulkwrite.Logger) (OpenedStore, error) {
	if cfg.Driver == DriverMemory {
		return OpenedStore{Store: memstore.New(), Close: func() error { return nil }}, nil
	}

	options := []postgresstore.Option{postgresstore.WithLogger(logger)}
	if cfg.Table != "" {
		options = append(options, postgresstore.WithTableName(cfg.Table))
	}

	var (
		store   *postgresstore.Store
		closeDB func() error
		err     error
	)

	switch cfg.Driver {
	case DriverPGX:
		var pool *pgxpool.Pool
		if pool, err = pgxpool.New(ctx, cfg.DSN); err != nil {
			return OpenedStore{}, fmt.Errorf("connect: %w", err)
		}

		closeDB = func() error { pool.Close(); return nil }
		err = pool.Ping(ctx)
		if err == nil {
			store, err = postgresstore.NewStoreFromPGXPool(pool, options...)
		}

	case DriverSQL:
		var db *sql.DB
		if db, err = sql.Open("postgres", cfg.DSN); err != nil {
			return OpenedStore{}, fmt.Errorf("connect: %w", err)
		}

		closeDB = db.Close
		err = db.PingContext(ctx)
		if err == nil {
			store, err = postgresstore.NewStoreFromSQLDB(db, options...)
		}

	case DriverSQLX:
		var db *sqlx.DB
		if db, err = sqlx.Open("postgres", cfg.DSN); err != nil {
			return OpenedStore{}, fmt.Errorf("connect: %w", err)
		}

		closeDB = db.Close
		err = db.PingContext(ctx)
		if err == nil {
			store, err = postgresstore.NewStoreFromSQLX(db, options...)
		}

	default:
		return OpenedStore{}, fmt.Errorf("%w: unknown driver %q", ErrInvalidConfig, cfg.Driver)
	}

	if err == nil && cfg.CreateTable {
		err = store.CreateTable(ctx)
	}

	if err != nil {
		return OpenedStore{}, errors.Join(err, closeDB())
	}

	return OpenedStore{Store: store, Close: closeDB}, nil
}
