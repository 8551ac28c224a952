package memstore

import (
	"context"
	"maps"
	"slices"

	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite"
)

type change struct {
	properties bulkwrite.Properties
	deleted    bool
}

type undoEntry struct {
	ref      bulkwrite.RecordRef
	previous change
	existed  bool
}

// Tx is an in-memory transaction. It must only be used by one goroutine.
type Tx struct {
	store      *Store
	overlay    map[bulkwrite.RecordRef]change
	undo       []undoEntry
	savepoints []int
	finished   bool
}

// Create inserts a record with a new random id.
func (tx *Tx) Create(_ context.Context, targetType string, properties bulkwrite.Properties) (bulkwrite.Record, error) {
	if tx.finished {
		return bulkwrite.Record{}, bulkwrite.ErrTransactionFinished
	}

	ref := bulkwrite.RecordRef{Type: targetType, ID: NewRecordID()}
	stored := cloneOrEmpty(properties)
	tx.set(ref, change{properties: stored})

	return bulkwrite.Record{Type: ref.Type, ID: ref.ID, Properties: maps.Clone(stored)}, nil
}

// Update merges properties into a visible record.
func (tx *Tx) Update(_ context.Context, ref bulkwrite.RecordRef, properties bulkwrite.Properties) (bulkwrite.Record, error) {
	if tx.finished {
		return bulkwrite.Record{}, bulkwrite.ErrTransactionFinished
	}

	existing, ok := tx.lookup(ref)
	if !ok {
		return bulkwrite.Record{}, bulkwrite.ErrRecordNotFound
	}

	merged := cloneOrEmpty(existing)
	maps.Copy(merged, properties)
	tx.set(ref, change{properties: merged})

	return bulkwrite.Record{Type: ref.Type, ID: ref.ID, Properties: maps.Clone(merged)}, nil
}

// Delete removes a visible record.
func (tx *Tx) Delete(_ context.Context, ref bulkwrite.RecordRef) error {
	if tx.finished {
		return bulkwrite.ErrTransactionFinished
	}

	if _, ok := tx.lookup(ref); !ok {
		return bulkwrite.ErrRecordNotFound
	}

	tx.set(ref, change{deleted: true})

	return nil
}

// Query supports LanguageScan only.
func (tx *Tx) Query(_ context.Context, language, text string, _ ...any) (bulkwrite.ResultSet, error) {
	if tx.finished {
		return nil, bulkwrite.ErrTransactionFinished
	}

	if language != LanguageScan {
		return nil, bulkwrite.ErrUnsupportedLanguage
	}

	rows := bulkwrite.ResultSet{}
	for _, id := range tx.visibleIDs(text) {
		properties, _ := tx.lookup(bulkwrite.RecordRef{Type: text, ID: id})

		row := cloneOrEmpty(properties)
		row[ColumnID] = string(id)
		row[ColumnType] = text
		rows = append(rows, row)
	}

	return rows, nil
}

// Command supports LanguageTruncate only.
func (tx *Tx) Command(_ context.Context, language, text string, _ ...any) (bulkwrite.ResultSet, error) {
	if tx.finished {
		return nil, bulkwrite.ErrTransactionFinished
	}

	if language != LanguageTruncate {
		return nil, bulkwrite.ErrUnsupportedLanguage
	}

	ids := tx.visibleIDs(text)
	for _, id := range ids {
		tx.set(bulkwrite.RecordRef{Type: text, ID: id}, change{deleted: true})
	}

	return bulkwrite.ResultSet{{columnRowsAffected: int64(len(ids))}}, nil
}

// Commit publishes the overlay to the store.
func (tx *Tx) Commit(ctx context.Context) error {
	if tx.finished {
		return bulkwrite.ErrTransactionFinished
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	tx.store.publish(tx.overlay)
	tx.finish()

	return nil
}

// Rollback discards the overlay.
func (tx *Tx) Rollback(_ context.Context) error {
	if tx.finished {
		return bulkwrite.ErrTransactionFinished
	}

	tx.finish()

	return nil
}

// Savepoint marks the current position of the undo log.
func (tx *Tx) Savepoint(_ context.Context) error {
	if tx.finished {
		return bulkwrite.ErrTransactionFinished
	}

	tx.savepoints = append(tx.savepoints, len(tx.undo))

	return nil
}

// RollbackToSavepoint undoes all changes since the latest savepoint and removes it.
func (tx *Tx) RollbackToSavepoint(_ context.Context) error {
	if tx.finished {
		return bulkwrite.ErrTransactionFinished
	}

	if len(tx.savepoints) == 0 {
		return bulkwrite.ErrNoSavepoint
	}

	mark := tx.savepoints[len(tx.savepoints)-1]
	tx.savepoints = tx.savepoints[:len(tx.savepoints)-1]

	for i := len(tx.undo) - 1; i >= mark; i-- {
		entry := tx.undo[i]
		if entry.existed {
			tx.overlay[entry.ref] = entry.previous
		} else {
			delete(tx.overlay, entry.ref)
		}
	}

	tx.undo = tx.undo[:mark]

	return nil
}

// ReleaseSavepoint removes the latest savepoint and keeps its changes.
func (tx *Tx) ReleaseSavepoint(_ context.Context) error {
	if tx.finished {
		return bulkwrite.ErrTransactionFinished
	}

	if len(tx.savepoints) == 0 {
		return bulkwrite.ErrNoSavepoint
	}

	tx.savepoints = tx.savepoints[:len(tx.savepoints)-1]

	// Without an enclosing savepoint the undo log is never replayed.
	if len(tx.savepoints) == 0 {
		tx.undo = tx.undo[:0]
	}

	return nil
}

func (tx *Tx) finish() {
	tx.finished = true
	tx.overlay = nil
	tx.undo = nil
	tx.savepoints = nil
}

func (tx *Tx) set(ref bulkwrite.RecordRef, c change) {
	if len(tx.savepoints) > 0 {
		previous, existed := tx.overlay[ref]
		tx.undo = append(tx.undo, undoEntry{ref: ref, previous: previous, existed: existed})
	}

	tx.overlay[ref] = c
}

func (tx *Tx) lookup(ref bulkwrite.RecordRef) (bulkwrite.Properties, bool) {
	if c, ok := tx.overlay[ref]; ok {
		if c.deleted {
			return nil, false
		}

		return c.properties, true
	}

	return tx.store.committed(ref)
}

// visibleIDs returns the ids of all records of recordType this transaction can see, sorted.
func (tx *Tx) visibleIDs(recordType string) []bulkwrite.RecordID {
	seen := make(map[bulkwrite.RecordID]struct{})

	for _, id := range tx.store.committedIDs(recordType) {
		seen[id] = struct{}{}
	}

	for ref := range tx.overlay {
		if ref.Type == recordType {
			seen[ref.ID] = struct{}{}
		}
	}

	ids := make([]bulkwrite.RecordID, 0, len(seen))
	for id := range seen {
		if _, ok := tx.lookup(bulkwrite.RecordRef{Type: recordType, ID: id}); ok {
			ids = append(ids, id)
		}
	}

	slices.Sort(ids)

	return ids
}

func cloneOrEmpty(properties bulkwrite.Properties) bulkwrite.Properties {
	if properties == nil {
		return bulkwrite.Properties{}
	}

	return maps.Clone(properties)
}
