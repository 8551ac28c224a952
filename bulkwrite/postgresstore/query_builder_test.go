package postgresstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite"
)

func Test_buildInsertQuery(t *testing.T) {
	// setup
	s := &Store{tableName: "people"}
	propertiesJSON, err := marshalProperties(bulkwrite.Properties{"name": "O'Hara", "age": 42})
	require.NoError(t, err)

	// act
	sqlQuery, err := s.buildInsertQuery("8f1d5d2e-4b6a-4c1e-9f00-0a1b2c3d4e5f", "Person", propertiesJSON)

	// assert
	require.NoError(t, err)
	assert.Contains(t, sqlQuery, `INSERT INTO "people"`)
	assert.Contains(t, sqlQuery, `'8f1d5d2e-4b6a-4c1e-9f00-0a1b2c3d4e5f'`)
	assert.Contains(t, sqlQuery, `'Person'`)
	assert.Contains(t, sqlQuery, `'{"age":42,"name":"O''Hara"}'::jsonb`)
}

func Test_buildUpdateQuery(t *testing.T) {
	s := &Store{tableName: "records"}
	ref := bulkwrite.RecordRef{Type: "Person", ID: "8f1d5d2e-4b6a-4c1e-9f00-0a1b2c3d4e5f"}

	sqlQuery, err := s.buildUpdateQuery(ref, `{"age":43}`)

	require.NoError(t, err)
	assert.Contains(t, sqlQuery, `UPDATE "records" SET`)
	assert.Contains(t, sqlQuery, `"properties" || '{"age":43}'::jsonb`)
	assert.Contains(t, sqlQuery, `NOW()`)
	assert.Contains(t, sqlQuery, `"id" = '8f1d5d2e-4b6a-4c1e-9f00-0a1b2c3d4e5f'`)
	assert.Contains(t, sqlQuery, `"record_type" = 'Person'`)
	assert.Contains(t, sqlQuery, `RETURNING "properties"`)
}

func Test_buildDeleteQuery(t *testing.T) {
	s := &Store{tableName: "records"}
	ref := bulkwrite.RecordRef{Type: "Person", ID: "8f1d5d2e-4b6a-4c1e-9f00-0a1b2c3d4e5f"}

	sqlQuery, err := s.buildDeleteQuery(ref)

	require.NoError(t, err)
	assert.Contains(t, sqlQuery, `DELETE FROM "records"`)
	assert.Contains(t, sqlQuery, `"record_type" = 'Person'`)
}

func Test_buildCreateTableStatements(t *testing.T) {
	s := &Store{tableName: "bulk records"}

	statements := s.buildCreateTableStatements()

	require.Len(t, statements, 2)
	assert.Contains(t, statements[0], `CREATE TABLE IF NOT EXISTS "bulk records"`)
	assert.Contains(t, statements[0], `properties jsonb NOT NULL`)
	assert.Contains(t, statements[1], `"bulk records_record_type_idx" ON "bulk records" (record_type)`)
}

func Test_marshalProperties_ShouldRenderNilAsEmptyObject(t *testing.T) {
	propertiesJSON, err := marshalProperties(nil)

	require.NoError(t, err)
	assert.Equal(t, "{}", propertiesJSON)
}
