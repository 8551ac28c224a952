// Package postgresstore provides a PostgreSQL implementation of the bulkwrite.Store interface.
//
// Records of all types live in one generic table (default "records") with a uuid primary key,
// the record type and the properties as jsonb. It supports multiple database adapters
// (pgx, sql.DB, sqlx) and implements bulkwrite.Savepointer, so a failing operation is undone
// without losing the rest of the executor batch.
//
// Key features:
//   - Multiple database adapter support (PGX, SQL, SQLX)
//   - Create, merge-Update and Delete on the generic records table
//   - Query and Command with language "sql" and positional parameters ($1, $2, ...)
//   - TxOptions.UseWAL = false relaxes synchronous_commit for the transaction
//   - Configurable table name and SQL debug logging with durations
//
// Usage examples:
//
//	db, _ := pgxpool.New(context.Background(), dsn)
//	store, _ := postgresstore.NewStoreFromPGXPool(
//		db,
//		postgresstore.WithTableName("people"),
//		postgresstore.WithLogger(logger),
//	)
//	_ = store.CreateTable(ctx)
//
//	executor, _ := asyncexecutor.New(store, asyncexecutor.WithCommitEvery(500))
package postgresstore
