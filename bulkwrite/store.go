package bulkwrite

import (
	"context"
	"slices"
)

// Properties is the property map of a record, also used for query result rows.
type Properties = map[string]any

// ResultSet is the materialized result of a Query or Command.
type ResultSet = []Properties

// RecordID identifies a record inside its record type.
type RecordID string

// RecordRef is a handle to an existing record, used by Update and Delete operations.
type RecordRef struct {
	Type string
	ID   RecordID
}

// Record is a record as returned by the store after a mutation.
type Record struct {
	Type       string
	ID         RecordID
	Properties Properties
}

// Ref returns the handle of the record.
func (r Record) Ref() RecordRef {
	return RecordRef{Type: r.Type, ID: r.ID}
}

// TxOptions are passed to Store.BeginTx for every session transaction.
type TxOptions struct {
	// UseWAL toggles the store's write-ahead durability for the transaction.
	// A store that cannot relax durability ignores it.
	UseWAL bool
}

// Store is a transactional record store.
// The executor opens one Tx per worker session and never shares a Tx between goroutines.
type Store interface {
	BeginTx(ctx context.Context, opts TxOptions) (Tx, error)
}

// Tx is a live transaction on a Store.
// After Commit or Rollback a Tx must not be used again.
type Tx interface {
	Create(ctx context.Context, targetType string, properties Properties) (Record, error)
	Update(ctx context.Context, ref RecordRef, properties Properties) (Record, error)
	Delete(ctx context.Context, ref RecordRef) error
	Query(ctx context.Context, language, text string, params ...any) (ResultSet, error)
	Command(ctx context.Context, language, text string, params ...any) (ResultSet, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Savepointer is implemented by transactions that can undo a single failed mutation
// without losing the rest of the transaction.
// The executor checks for it with a type assertion, like ContextualMetricsCollector.
type Savepointer interface {
	Savepoint(ctx context.Context) error
	RollbackToSavepoint(ctx context.Context) error
	ReleaseSavepoint(ctx context.Context) error
}

// CopyProperties returns a deep copy of the given properties, nil stays nil.
// Nested map[string]any, []any, []map[string]any, []string and []byte values are copied
// recursively. Any other value, pointers and structs included, is shared with the caller.
func CopyProperties(properties Properties) Properties {
	if properties == nil {
		return nil
	}

	copied := make(Properties, len(properties))
	for key, value := range properties {
		copied[key] = copyValue(value)
	}

	return copied
}

// CopyValues returns a deep copy of values, following the rules of CopyProperties.
func CopyValues(values []any) []any {
	if values == nil {
		return nil
	}

	copied := make([]any, len(values))
	for i, value := range values {
		copied[i] = copyValue(value)
	}

	return copied
}

func copyValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return CopyProperties(v)

	case []any:
		return CopyValues(v)

	case []map[string]any:
		if v == nil {
			return v
		}

		copied := make([]map[string]any, len(v))
		for i, nested := range v {
			copied[i] = CopyProperties(nested)
		}

		return copied

	case []string:
		return slices.Clone(v)

	case []byte:
		return slices.Clone(v)

	default:
		return value
	}
}
