// Package config provides PostgreSQL database configuration for the record store tests.
//
// It contains factory functions for the supported adapters (pgx.Pool, sql.DB, sqlx.DB).
// The DSN is read from BULKWRITE_TEST_DSN and defaults to the local docker database.
package config
