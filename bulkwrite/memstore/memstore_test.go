package memstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite"
	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite/memstore"
)

func Test_Commit_ShouldPublishChanges(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memstore.New()
	tx := beginTx(t, store)

	// act
	record, err := tx.Create(ctx, "Book", bulkwrite.Properties{"title": "Dune"})
	require.NoError(t, err)
	assert.Equal(t, 0, store.Count("Book"), "uncommitted records must not be visible")

	require.NoError(t, tx.Commit(ctx))

	// assert
	assert.Equal(t, 1, store.Count("Book"))
	stored, err := store.Get(record.Ref())
	require.NoError(t, err)
	assert.Equal(t, "Dune", stored.Properties["title"])
	assert.Equal(t, 1, store.Commits())
}

func Test_Rollback_ShouldDiscardChanges(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	tx := beginTx(t, store)

	_, err := tx.Create(ctx, "Book", nil)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback(ctx))

	assert.Equal(t, 0, store.Count("Book"))
	assert.ErrorIs(t, tx.Commit(ctx), bulkwrite.ErrTransactionFinished)
}

func Test_Update_ShouldMergeProperties(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memstore.New()
	ref := seed(t, store, "Book", bulkwrite.Properties{"title": "Dune", "year": 1964})
	tx := beginTx(t, store)

	// act
	updated, err := tx.Update(ctx, ref, bulkwrite.Properties{"year": 1965})
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	// assert
	assert.Equal(t, bulkwrite.Properties{"title": "Dune", "year": 1965}, updated.Properties)
	stored, err := store.Get(ref)
	require.NoError(t, err)
	assert.Equal(t, 1965, stored.Properties["year"])
}

func Test_UpdateAndDelete_ShouldFail_ForUnknownRecord(t *testing.T) {
	ctx := context.Background()
	tx := beginTx(t, memstore.New())
	ref := bulkwrite.RecordRef{Type: "Book", ID: "missing"}

	_, err := tx.Update(ctx, ref, nil)
	assert.ErrorIs(t, err, bulkwrite.ErrRecordNotFound)
	assert.ErrorIs(t, tx.Delete(ctx, ref), bulkwrite.ErrRecordNotFound)
}

func Test_Delete_ShouldHideRecord_InsideTheTransaction(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	ref := seed(t, store, "Book", nil)
	tx := beginTx(t, store)

	require.NoError(t, tx.Delete(ctx, ref))
	assert.ErrorIs(t, tx.Delete(ctx, ref), bulkwrite.ErrRecordNotFound)
	assert.Equal(t, 1, store.Count("Book"))

	require.NoError(t, tx.Commit(ctx))
	assert.Equal(t, 0, store.Count("Book"))
}

func Test_RollbackToSavepoint_ShouldUndoOnlyTheLastChange(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memstore.New()
	tx := beginTx(t, store)
	savepointer := tx.(bulkwrite.Savepointer)

	// arrange
	require.NoError(t, savepointer.Savepoint(ctx))
	kept, err := tx.Create(ctx, "Book", bulkwrite.Properties{"title": "kept"})
	require.NoError(t, err)
	require.NoError(t, savepointer.ReleaseSavepoint(ctx))

	// act
	require.NoError(t, savepointer.Savepoint(ctx))
	_, err = tx.Update(ctx, kept.Ref(), bulkwrite.Properties{"title": "undone"})
	require.NoError(t, err)
	_, err = tx.Create(ctx, "Book", bulkwrite.Properties{"title": "undone"})
	require.NoError(t, err)
	require.NoError(t, savepointer.RollbackToSavepoint(ctx))
	require.NoError(t, tx.Commit(ctx))

	// assert
	assert.Equal(t, 1, store.Count("Book"))
	stored, err := store.Get(kept.Ref())
	require.NoError(t, err)
	assert.Equal(t, "kept", stored.Properties["title"])
}

func Test_RollbackToSavepoint_ShouldFail_WithoutSavepoint(t *testing.T) {
	tx := beginTx(t, memstore.New())

	assert.ErrorIs(t, tx.(bulkwrite.Savepointer).RollbackToSavepoint(context.Background()), bulkwrite.ErrNoSavepoint)
}

func Test_Scan_ShouldReturnVisibleRecords(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memstore.New()
	committed := seed(t, store, "Book", bulkwrite.Properties{"title": "committed"})
	seed(t, store, "Author", bulkwrite.Properties{"name": "other type"})
	tx := beginTx(t, store)

	// arrange
	_, err := tx.Create(ctx, "Book", bulkwrite.Properties{"title": "uncommitted"})
	require.NoError(t, err)

	// act
	rows, err := tx.Query(ctx, memstore.LanguageScan, "Book")

	// assert
	require.NoError(t, err)
	require.Len(t, rows, 2)

	titles := []any{rows[0]["title"], rows[1]["title"]}
	assert.ElementsMatch(t, []any{"committed", "uncommitted"}, titles)

	for _, row := range rows {
		assert.Equal(t, "Book", row[memstore.ColumnType])
	}

	assert.Contains(t, []any{rows[0][memstore.ColumnID], rows[1][memstore.ColumnID]}, string(committed.ID))
}

func Test_Truncate_ShouldDeleteAllRecordsOfAType(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	seed(t, store, "Book", nil)
	seed(t, store, "Book", nil)
	seed(t, store, "Author", nil)
	tx := beginTx(t, store)

	rows, err := tx.Command(ctx, memstore.LanguageTruncate, "Book")
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	assert.Equal(t, int64(2), rows[0]["rows_affected"])
	assert.Equal(t, 0, store.Count("Book"))
	assert.Equal(t, 1, store.Count("Author"))
}

func Test_Statements_ShouldFail_WithUnsupportedLanguage(t *testing.T) {
	ctx := context.Background()
	tx := beginTx(t, memstore.New())

	_, err := tx.Query(ctx, "sql", "SELECT 1")
	assert.ErrorIs(t, err, bulkwrite.ErrUnsupportedLanguage)

	_, err = tx.Command(ctx, "sql", "DELETE FROM records")
	assert.ErrorIs(t, err, bulkwrite.ErrUnsupportedLanguage)
}

func Test_ConcurrentTransactions_ShouldNotSeeEachOther(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	first := beginTx(t, store)
	second := beginTx(t, store)

	record, err := first.Create(ctx, "Book", nil)
	require.NoError(t, err)

	assert.ErrorIs(t, second.Delete(ctx, record.Ref()), bulkwrite.ErrRecordNotFound)
}

func Test_BeginTx_ShouldFail_WithCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := memstore.New().BeginTx(ctx, bulkwrite.TxOptions{})

	assert.ErrorIs(t, err, context.Canceled)
}

func beginTx(t *testing.T, store *memstore.Store) bulkwrite.Tx {
	t.Helper()

	tx, err := store.BeginTx(context.Background(), bulkwrite.TxOptions{UseWAL: true})
	require.NoError(t, err)

	return tx
}

func seed(t *testing.T, store *memstore.Store, recordType string, properties bulkwrite.Properties) bulkwrite.RecordRef {
	t.Helper()

	ctx := context.Background()
	tx := beginTx(t, store)

	record, err := tx.Create(ctx, recordType, properties)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	return record.Ref()
}
