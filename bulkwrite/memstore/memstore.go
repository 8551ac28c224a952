// Package memstore provides an in-memory implementation of the bulkwrite.Store interface.
//
// Every transaction works on a private overlay of the committed state and publishes it on Commit,
// so concurrent transactions never see each other's uncommitted changes.
// Transactions implement bulkwrite.Savepointer.
//
// Supported statements:
//   - Query with language "scan": the text is a record type, returns all visible records of that type
//   - Command with language "truncate": the text is a record type, deletes all visible records of that type
package memstore

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite"
)

const (
	// LanguageScan is the Query language of the in-memory store.
	LanguageScan = "scan"

	// LanguageTruncate is the Command language of the in-memory store.
	LanguageTruncate = "truncate"

	// ColumnID and ColumnType are added to every row returned by a scan.
	ColumnID   = "_id"
	ColumnType = "_type"

	columnRowsAffected = "rows_affected"
)

// Store keeps committed records per record type.
type Store struct {
	mu      sync.RWMutex
	records map[string]map[bulkwrite.RecordID]bulkwrite.Properties
	commits int
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		records: make(map[string]map[bulkwrite.RecordID]bulkwrite.Properties),
	}
}

// BeginTx opens a new transaction. TxOptions.UseWAL has no meaning in memory and is ignored.
func (s *Store) BeginTx(ctx context.Context, _ bulkwrite.TxOptions) (bulkwrite.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &Tx{
		store:   s,
		overlay: make(map[bulkwrite.RecordRef]change),
	}, nil
}

// Count returns the number of committed records of the given type.
func (s *Store) Count(recordType string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records[recordType])
}

// Commits returns how many transactions were committed.
func (s *Store) Commits() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.commits
}

// Get returns a committed record.
func (s *Store) Get(ref bulkwrite.RecordRef) (bulkwrite.Record, error) {
	properties, ok := s.committed(ref)
	if !ok {
		return bulkwrite.Record{}, bulkwrite.ErrRecordNotFound
	}

	return bulkwrite.Record{Type: ref.Type, ID: ref.ID, Properties: properties}, nil
}

func (s *Store) committed(ref bulkwrite.RecordRef) (bulkwrite.Properties, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	properties, ok := s.records[ref.Type][ref.ID]
	if !ok {
		return nil, false
	}

	return maps.Clone(properties), true
}

func (s *Store) committedIDs(recordType string) []bulkwrite.RecordID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Collect(maps.Keys(s.records[recordType]))
}

func (s *Store) publish(overlay map[bulkwrite.RecordRef]change) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for ref, c := range overlay {
		if c.deleted {
			delete(s.records[ref.Type], ref.ID)
			continue
		}

		byID, ok := s.records[ref.Type]
		if !ok {
			byID = make(map[bulkwrite.RecordID]bulkwrite.Properties)
			s.records[ref.Type] = byID
		}

		byID[ref.ID] = c.properties
	}

	s.commits++
}

// NewRecordID returns a random record id.
func NewRecordID() bulkwrite.RecordID {
	return bulkwrite.RecordID(uuid.NewString())
}
