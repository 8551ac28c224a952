package postgresstore_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite"
	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite/postgresstore"
	"github.com/AntonStoeckl/bulkwrite-go/testutil/config"
)

func Test_Factories_ShouldFail_WithNilConnection(t *testing.T) {
	_, err := postgresstore.NewStoreFromPGXPool(nil)
	assert.ErrorIs(t, err, bulkwrite.ErrNilDatabaseConnection)

	_, err = postgresstore.NewStoreFromSQLDB(nil)
	assert.ErrorIs(t, err, bulkwrite.ErrNilDatabaseConnection)

	_, err = postgresstore.NewStoreFromSQLX(nil)
	assert.ErrorIs(t, err, bulkwrite.ErrNilDatabaseConnection)
}

func Test_Factories_ShouldApplyOptions(t *testing.T) {
	// setup: opening does not connect
	pool, err := pgxpool.New(context.Background(), config.PostgresTestDSN())
	require.NoError(t, err)
	defer pool.Close()

	db, err := sql.Open("postgres", config.PostgresTestDSN())
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	dbx, err := sqlx.Open("postgres", config.PostgresTestDSN())
	require.NoError(t, err)
	defer func() { _ = dbx.Close() }()

	factories := map[string]func(options ...postgresstore.Option) (*postgresstore.Store, error){
		"pgx.Pool": func(options ...postgresstore.Option) (*postgresstore.Store, error) {
			return postgresstore.NewStoreFromPGXPool(pool, options...)
		},
		"sql.DB": func(options ...postgresstore.Option) (*postgresstore.Store, error) {
			return postgresstore.NewStoreFromSQLDB(db, options...)
		},
		"sqlx.DB": func(options ...postgresstore.Option) (*postgresstore.Store, error) {
			return postgresstore.NewStoreFromSQLX(dbx, options...)
		},
	}

	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			store, err := factory()
			require.NoError(t, err)
			assert.Equal(t, "records", store.TableName())

			store, err = factory(postgresstore.WithTableName("people"))
			require.NoError(t, err)
			assert.Equal(t, "people", store.TableName())

			_, err = factory(postgresstore.WithTableName(""))
			assert.ErrorIs(t, err, bulkwrite.ErrEmptyTableName)
		})
	}
}
