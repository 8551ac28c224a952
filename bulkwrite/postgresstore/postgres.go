package postgresstore

import (
	"context"
	"database/sql"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite"
	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite/postgresstore/internal/adapters"
)

const (
	defaultTableName = "records"

	// LanguageSQL is the only statement language of the PostgreSQL store.
	LanguageSQL = "sql"

	logMsgSQLExecuted      = "executed sql for: "
	logMsgBuildQueryFailed = "failed to build sql statement"
	logMsgDBExecFailed     = "database statement failed"
	logAttrError           = "error"
	logAttrQuery           = "query"
	logAttrDurationMS      = "duration_ms"
	logActionBegin         = "begin"
	logActionCreate        = "create"
	logActionUpdate        = "update"
	logActionDelete        = "delete"
	logActionQuery         = "query"
	logActionCommand       = "command"
	logActionCommit        = "commit"
	logActionRollback      = "rollback"
	logActionSavepoint     = "savepoint"
	logActionCreateTable   = "create table"
)

// Store is a bulkwrite.Store backed by PostgreSQL.
type Store struct {
	db        adapters.DBAdapter
	tableName string
	logger    bulkwrite.Logger
}

// NewStoreFromPGXPool creates a new Store using a pgx Pool with optional configuration.
func NewStoreFromPGXPool(db *pgxpool.Pool, options ...Option) (*Store, error) {
	if db == nil {
		return nil, bulkwrite.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewPGXAdapter(db), options)
}

// NewStoreFromSQLDB creates a new Store using a sql.DB with optional configuration.
func NewStoreFromSQLDB(db *sql.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, bulkwrite.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLAdapter(db), options)
}

// NewStoreFromSQLX creates a new Store using a sqlx.DB with optional configuration.
func NewStoreFromSQLX(db *sqlx.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, bulkwrite.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLXAdapter(db), options)
}

func newStore(db adapters.DBAdapter, options []Option) (*Store, error) {
	s := &Store{
		db:        db,
		tableName: defaultTableName,
	}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// TableName returns the name of the records table.
func (s *Store) TableName() string {
	return s.tableName
}

// CreateTable creates the records table and its type index if they do not exist.
func (s *Store) CreateTable(ctx context.Context) error {
	for _, statement := range s.buildCreateTableStatements() {
		start := time.Now()

		if _, err := s.db.Exec(ctx, statement); err != nil {
			s.logError(logMsgDBExecFailed, err, logAttrQuery, statement)
			return err
		}

		s.logQueryWithDuration(statement, logActionCreateTable, time.Since(start))
	}

	return nil
}

// BeginTx opens a transaction. With UseWAL = false the commit does not wait for the WAL flush.
func (s *Store) BeginTx(ctx context.Context, opts bulkwrite.TxOptions) (bulkwrite.Tx, error) {
	start := time.Now()

	dbTx, err := s.db.BeginTx(ctx)
	if err != nil {
		s.logError(logMsgDBExecFailed, err, logAttrQuery, logActionBegin)
		return nil, err
	}

	tx := &Tx{store: s, tx: dbTx}

	if !opts.UseWAL {
		if execErr := tx.exec(ctx, sqlAsyncCommit, logActionBegin); execErr != nil {
			_ = dbTx.Rollback(ctx)
			return nil, execErr
		}
	}

	s.logQueryWithDuration(logActionBegin, logActionBegin, time.Since(start))

	return tx, nil
}

// logQueryWithDuration logs SQL statements with execution time at debug level if the logger is configured.
func (s *Store) logQueryWithDuration(sqlQuery string, action string, duration time.Duration) {
	if s.logger != nil {
		s.logger.Debug(logMsgSQLExecuted+action, logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery)
	}
}

// logError logs error information at the error level if the logger is configured.
func (s *Store) logError(message string, err error, args ...any) {
	if s.logger != nil {
		allArgs := []any{logAttrError, err.Error()}
		allArgs = append(allArgs, args...)
		s.logger.Error(message, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
