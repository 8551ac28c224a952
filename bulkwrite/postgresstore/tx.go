package postgresstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite"
	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite/postgresstore/internal/adapters"
)

const columnRowsAffected = "rows_affected"

// Tx is a PostgreSQL transaction. It must only be used by one goroutine.
type Tx struct {
	store *Store
	tx    adapters.DBTx
}

// Create inserts a record with a new random uuid.
func (t *Tx) Create(ctx context.Context, targetType string, properties bulkwrite.Properties) (bulkwrite.Record, error) {
	id := bulkwrite.RecordID(uuid.NewString())

	propertiesJSON, err := marshalProperties(properties)
	if err != nil {
		return bulkwrite.Record{}, err
	}

	sqlQuery, err := t.store.buildInsertQuery(id, targetType, propertiesJSON)
	if err != nil {
		t.store.logError(logMsgBuildQueryFailed, err)
		return bulkwrite.Record{}, err
	}

	if err = t.exec(ctx, sqlQuery, logActionCreate); err != nil {
		return bulkwrite.Record{}, err
	}

	return bulkwrite.Record{Type: targetType, ID: id, Properties: bulkwrite.CopyProperties(properties)}, nil
}

// Update merges properties into the stored jsonb document and returns the merged record.
func (t *Tx) Update(ctx context.Context, ref bulkwrite.RecordRef, properties bulkwrite.Properties) (bulkwrite.Record, error) {
	if _, err := uuid.Parse(string(ref.ID)); err != nil {
		return bulkwrite.Record{}, errors.Join(bulkwrite.ErrRecordNotFound, err)
	}

	patchJSON, err := marshalProperties(properties)
	if err != nil {
		return bulkwrite.Record{}, err
	}

	sqlQuery, err := t.store.buildUpdateQuery(ref, patchJSON)
	if err != nil {
		t.store.logError(logMsgBuildQueryFailed, err)
		return bulkwrite.Record{}, err
	}

	start := time.Now()

	rows, err := t.tx.Query(ctx, sqlQuery)
	if err != nil {
		t.store.logError(logMsgDBExecFailed, err, logAttrQuery, sqlQuery)
		return bulkwrite.Record{}, err
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if rowsErr := rows.Err(); rowsErr != nil {
			return bulkwrite.Record{}, rowsErr
		}

		return bulkwrite.Record{}, bulkwrite.ErrRecordNotFound
	}

	var merged []byte
	if err = rows.Scan(&merged); err != nil {
		return bulkwrite.Record{}, err
	}

	t.store.logQueryWithDuration(sqlQuery, logActionUpdate, time.Since(start))

	record := bulkwrite.Record{Type: ref.Type, ID: ref.ID, Properties: bulkwrite.Properties{}}
	if err = json.Unmarshal(merged, &record.Properties); err != nil {
		return bulkwrite.Record{}, err
	}

	return record, nil
}

// Delete removes a record; ErrRecordNotFound if nothing was deleted.
func (t *Tx) Delete(ctx context.Context, ref bulkwrite.RecordRef) error {
	if _, err := uuid.Parse(string(ref.ID)); err != nil {
		return errors.Join(bulkwrite.ErrRecordNotFound, err)
	}

	sqlQuery, err := t.store.buildDeleteQuery(ref)
	if err != nil {
		t.store.logError(logMsgBuildQueryFailed, err)
		return err
	}

	rowsAffected, err := t.execCount(ctx, sqlQuery, logActionDelete)
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return bulkwrite.ErrRecordNotFound
	}

	return nil
}

// Query runs a SQL statement and returns the rows keyed by column name.
func (t *Tx) Query(ctx context.Context, language, text string, params ...any) (bulkwrite.ResultSet, error) {
	if language != LanguageSQL {
		return nil, bulkwrite.ErrUnsupportedLanguage
	}

	start := time.Now()

	rows, err := t.tx.Query(ctx, text, params...)
	if err != nil {
		t.store.logError(logMsgDBExecFailed, err, logAttrQuery, text)
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := bulkwrite.ResultSet{}
	for rows.Next() {
		values, valuesErr := rows.Values()
		if valuesErr != nil {
			return nil, valuesErr
		}

		row := make(bulkwrite.Properties, len(columns))
		for i, column := range columns {
			row[column] = values[i]
		}

		result = append(result, row)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	t.store.logQueryWithDuration(text, logActionQuery, time.Since(start))

	return result, nil
}

// Command runs a SQL statement and returns one row with the number of affected rows.
func (t *Tx) Command(ctx context.Context, language, text string, params ...any) (bulkwrite.ResultSet, error) {
	if language != LanguageSQL {
		return nil, bulkwrite.ErrUnsupportedLanguage
	}

	rowsAffected, err := t.execCount(ctx, text, logActionCommand, params...)
	if err != nil {
		return nil, err
	}

	return bulkwrite.ResultSet{{columnRowsAffected: rowsAffected}}, nil
}

// Commit commits the transaction.
func (t *Tx) Commit(ctx context.Context) error {
	start := time.Now()

	if err := t.tx.Commit(ctx); err != nil {
		t.store.logError(logMsgDBExecFailed, err, logAttrQuery, logActionCommit)
		return err
	}

	t.store.logQueryWithDuration(logActionCommit, logActionCommit, time.Since(start))

	return nil
}

// Rollback rolls back the transaction.
func (t *Tx) Rollback(ctx context.Context) error {
	start := time.Now()

	if err := t.tx.Rollback(ctx); err != nil {
		return err
	}

	t.store.logQueryWithDuration(logActionRollback, logActionRollback, time.Since(start))

	return nil
}

// Savepoint implements bulkwrite.Savepointer.
func (t *Tx) Savepoint(ctx context.Context) error {
	return t.exec(ctx, sqlSavepoint, logActionSavepoint)
}

// RollbackToSavepoint undoes the failed statement and removes the savepoint,
// which also clears the aborted state of the transaction.
func (t *Tx) RollbackToSavepoint(ctx context.Context) error {
	if err := t.exec(ctx, sqlRollbackSavepoint, logActionSavepoint); err != nil {
		return err
	}

	return t.exec(ctx, sqlReleaseSavepoint, logActionSavepoint)
}

// ReleaseSavepoint implements bulkwrite.Savepointer.
func (t *Tx) ReleaseSavepoint(ctx context.Context) error {
	return t.exec(ctx, sqlReleaseSavepoint, logActionSavepoint)
}

func (t *Tx) exec(ctx context.Context, sqlQuery, action string) error {
	_, err := t.execCount(ctx, sqlQuery, action)
	return err
}

func (t *Tx) execCount(ctx context.Context, sqlQuery, action string, params ...any) (int64, error) {
	start := time.Now()

	result, err := t.tx.Exec(ctx, sqlQuery, params...)
	if err != nil {
		t.store.logError(logMsgDBExecFailed, err, logAttrQuery, sqlQuery)
		return 0, err
	}

	t.store.logQueryWithDuration(sqlQuery, action, time.Since(start))

	return result.RowsAffected()
}
