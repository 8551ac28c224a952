package bulkwrite

import (
	"context"
	"time"
)

// OperationKind is the tag of the Operation variant.
type OperationKind int

const (
	OpCreate OperationKind = iota
	OpUpdate
	OpDelete
	OpQuery
	OpCommand
)

// String provides a string representation of OperationKind for logging and metrics labels.
func (k OperationKind) String() string {
	switch k {
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	case OpQuery:
		return "query"
	case OpCommand:
		return "command"
	default:
		return "unknown"
	}
}

// Result is handed to OnComplete when an Operation was committed.
//   - Create, Update: Record holds the stored record
//   - Delete: Record holds only the handle of the deleted record
//   - Query, Command: Rows holds the result rows
type Result struct {
	Kind   OperationKind
	Record Record
	Rows   ResultSet
}

// OnComplete is invoked exactly once per Operation when it reached its terminal state.
// err is nil if the Operation was committed.
// It runs on a worker goroutine, so it should return quickly.
type OnComplete func(result Result, err error)

// Operation is one request travelling through the executor.
//
// It is immutable: the properties and params given to the factory methods are deep-copied
// (see CopyProperties), and only getters are exported. Build it with:
//   - BuildCreate
//   - BuildUpdate
//   - BuildDelete
//   - BuildQuery
//   - BuildCommand
type Operation struct {
	kind       OperationKind
	targetType string
	id         RecordID
	properties Properties
	language   string
	text       string
	params     []any
	onComplete OnComplete
	enqueuedAt time.Time
}

// BuildCreate is a factory method for a Create Operation.
func BuildCreate(targetType string, properties Properties, onComplete OnComplete) (Operation, error) {
	if targetType == "" {
		return Operation{}, ErrEmptyTargetType
	}

	return Operation{
		kind:       OpCreate,
		targetType: targetType,
		properties: CopyProperties(properties),
		onComplete: onComplete,
	}, nil
}

// BuildUpdate is a factory method for an Update Operation.
// The properties are merged into the existing record.
func BuildUpdate(ref RecordRef, properties Properties, onComplete OnComplete) (Operation, error) {
	if err := validateRef(ref); err != nil {
		return Operation{}, err
	}

	return Operation{
		kind:       OpUpdate,
		targetType: ref.Type,
		id:         ref.ID,
		properties: CopyProperties(properties),
		onComplete: onComplete,
	}, nil
}

// BuildDelete is a factory method for a Delete Operation.
func BuildDelete(ref RecordRef, onComplete OnComplete) (Operation, error) {
	if err := validateRef(ref); err != nil {
		return Operation{}, err
	}

	return Operation{
		kind:       OpDelete,
		targetType: ref.Type,
		id:         ref.ID,
		onComplete: onComplete,
	}, nil
}

// BuildQuery is a factory method for a Query Operation.
// The rows are routed to onComplete once the batch containing the query was committed.
func BuildQuery(language, text string, onComplete OnComplete, params ...any) (Operation, error) {
	return buildStatement(OpQuery, language, text, onComplete, params)
}

// BuildCommand is a factory method for a Command Operation.
func BuildCommand(language, text string, onComplete OnComplete, params ...any) (Operation, error) {
	return buildStatement(OpCommand, language, text, onComplete, params)
}

func buildStatement(kind OperationKind, language, text string, onComplete OnComplete, params []any) (Operation, error) {
	if language == "" {
		return Operation{}, ErrEmptyLanguage
	}

	if text == "" {
		return Operation{}, ErrEmptyStatement
	}

	return Operation{
		kind:       kind,
		language:   language,
		text:       text,
		params:     CopyValues(params),
		onComplete: onComplete,
	}, nil
}

func validateRef(ref RecordRef) error {
	if ref.Type == "" {
		return ErrEmptyTargetType
	}

	if ref.ID == "" {
		return ErrEmptyRecordID
	}

	return nil
}

// Validate reports whether the Operation was built by one of the factory methods.
// The zero Operation is not valid.
func (o Operation) Validate() error {
	switch o.kind {
	case OpCreate:
		if o.targetType == "" {
			return ErrEmptyTargetType
		}
		return nil

	case OpUpdate, OpDelete:
		return validateRef(o.Ref())

	case OpQuery, OpCommand:
		if o.language == "" {
			return ErrEmptyLanguage
		}
		if o.text == "" {
			return ErrEmptyStatement
		}
		return nil

	default:
		return ErrUnknownOperationKind
	}
}

// Kind returns the variant tag.
func (o Operation) Kind() OperationKind { return o.kind }

// TargetType returns the record type, empty for Query and Command.
func (o Operation) TargetType() string { return o.targetType }

// Ref returns the record handle of an Update or Delete.
func (o Operation) Ref() RecordRef { return RecordRef{Type: o.targetType, ID: o.id} }

// Properties returns a copy of the payload.
func (o Operation) Properties() Properties { return CopyProperties(o.properties) }

// Language returns the statement language of a Query or Command.
func (o Operation) Language() string { return o.language }

// Text returns the statement of a Query or Command.
func (o Operation) Text() string { return o.text }

// Params returns a copy of the statement parameters.
func (o Operation) Params() []any { return CopyValues(o.params) }

// EnqueuedAt returns when the executor accepted the Operation, zero before that.
func (o Operation) EnqueuedAt() time.Time { return o.enqueuedAt }

// OnComplete returns the callback, which may be nil.
func (o Operation) OnComplete() OnComplete { return o.onComplete }

// WithEnqueuedAt returns a copy stamped with the enqueue time. Used by the executor on acceptance.
func (o Operation) WithEnqueuedAt(t time.Time) Operation {
	o.enqueuedAt = t
	return o
}

// ApplyTo runs the Operation inside the given transaction.
func (o Operation) ApplyTo(ctx context.Context, tx Tx) (Result, error) {
	result := Result{Kind: o.kind}

	switch o.kind {
	case OpCreate:
		record, err := tx.Create(ctx, o.targetType, o.properties)
		result.Record = record
		return result, err

	case OpUpdate:
		record, err := tx.Update(ctx, o.Ref(), o.properties)
		result.Record = record
		return result, err

	case OpDelete:
		result.Record = Record{Type: o.targetType, ID: o.id}
		return result, tx.Delete(ctx, o.Ref())

	case OpQuery:
		rows, err := tx.Query(ctx, o.language, o.text, o.params...)
		result.Rows = rows
		return result, err

	case OpCommand:
		rows, err := tx.Command(ctx, o.language, o.text, o.params...)
		result.Rows = rows
		return result, err

	default:
		return result, ErrUnknownOperationKind
	}
}
