package postgresstore

import (
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/jackc/pgx/v5"
	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite"
)

const (
	dialectPostgres = "postgres"
	colID           = "id"
	colRecordType   = "record_type"
	colProperties   = "properties"
	colUpdatedAt    = "updated_at"
	castJsonb       = "?::jsonb"
	mergeJsonb      = "? || ?::jsonb"
	sqlNow          = "NOW()"

	savepointName        = "bulkwrite_op"
	sqlAsyncCommit       = "SET LOCAL synchronous_commit TO OFF"
	sqlSavepoint         = "SAVEPOINT " + savepointName
	sqlRollbackSavepoint = "ROLLBACK TO SAVEPOINT " + savepointName
	sqlReleaseSavepoint  = "RELEASE SAVEPOINT " + savepointName
)

// json sorts map keys, so the generated SQL is deterministic.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

func marshalProperties(properties bulkwrite.Properties) (string, error) {
	if properties == nil {
		properties = bulkwrite.Properties{}
	}

	data, err := json.Marshal(properties)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

func (s *Store) buildInsertQuery(id bulkwrite.RecordID, recordType string, propertiesJSON string) (string, error) {
	insertStmt := goqu.Dialect(dialectPostgres).
		Insert(s.tableName).
		Rows(goqu.Record{
			colID:         string(id),
			colRecordType: recordType,
			colProperties: goqu.L(castJsonb, propertiesJSON),
		})

	sqlQuery, _, err := insertStmt.ToSQL()

	return sqlQuery, err
}

func (s *Store) buildUpdateQuery(ref bulkwrite.RecordRef, patchJSON string) (string, error) {
	updateStmt := goqu.Dialect(dialectPostgres).
		Update(s.tableName).
		Set(goqu.Record{
			colProperties: goqu.L(mergeJsonb, goqu.I(colProperties), patchJSON),
			colUpdatedAt:  goqu.L(sqlNow),
		}).
		Where(goqu.Ex{colID: string(ref.ID), colRecordType: ref.Type}).
		Returning(goqu.C(colProperties))

	sqlQuery, _, err := updateStmt.ToSQL()

	return sqlQuery, err
}

func (s *Store) buildDeleteQuery(ref bulkwrite.RecordRef) (string, error) {
	deleteStmt := goqu.Dialect(dialectPostgres).
		Delete(s.tableName).
		Where(goqu.Ex{colID: string(ref.ID), colRecordType: ref.Type})

	sqlQuery, _, err := deleteStmt.ToSQL()

	return sqlQuery, err
}

func (s *Store) buildCreateTableStatements() []string {
	table := pgx.Identifier{s.tableName}.Sanitize()
	index := pgx.Identifier{s.tableName + "_record_type_idx"}.Sanitize()

	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id uuid PRIMARY KEY,
	record_type text NOT NULL,
	properties jsonb NOT NULL DEFAULT '{}'::jsonb,
	created_at timestamptz NOT NULL DEFAULT NOW(),
	updated_at timestamptz NOT NULL DEFAULT NOW()
)`, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (record_type)`, index, table),
	}
}
