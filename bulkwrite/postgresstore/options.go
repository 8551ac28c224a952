package postgresstore

import (
	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite"
)

// Option defines a functional option for configuring a Store.
type Option func(*Store) error

// WithTableName sets the table name for the Store.
func WithTableName(tableName string) Option {
	return func(s *Store) error {
		if tableName == "" {
			return bulkwrite.ErrEmptyTableName
		}

		s.tableName = tableName

		return nil
	}
}

// WithLogger sets the logger for the Store.
//
// Debug level: SQL statements with execution timing (development use)
// Error level: statements that could not be built or executed.
func WithLogger(logger bulkwrite.Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}
