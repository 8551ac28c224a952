package helper

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite"
)

var (
	ErrInjectedApply  = errors.New("injected apply failure")
	ErrInjectedCommit = errors.New("injected commit failure")
	ErrInjectedBegin  = errors.New("injected begin failure")
)

// FaultyStore wraps a bulkwrite.Store and injects failures.
// It also records the size of every committed batch.
type FaultyStore struct {
	store          bulkwrite.Store
	failApplyEvery int64
	hideSavepoints bool

	applies     atomic.Int64
	failCommits atomic.Bool
	failBegins  atomic.Int64

	mu          sync.Mutex
	commitSizes []int
}

// FaultyStoreOption configures a FaultyStore.
type FaultyStoreOption func(*FaultyStore)

// WithApplyFailureEvery fails every n-th mutation or statement across all transactions.
func WithApplyFailureEvery(n int) FaultyStoreOption {
	return func(s *FaultyStore) {
		s.failApplyEvery = int64(n)
	}
}

// WithoutSavepoints hides the savepoint support of the wrapped store's transactions.
func WithoutSavepoints() FaultyStoreOption {
	return func(s *FaultyStore) {
		s.hideSavepoints = true
	}
}

// NewFaultyStore wraps store.
func NewFaultyStore(store bulkwrite.Store, options ...FaultyStoreOption) *FaultyStore {
	s := &FaultyStore{store: store}
	for _, option := range options {
		option(s)
	}

	return s
}

// FailCommits switches commit failures on or off.
func (s *FaultyStore) FailCommits(fail bool) {
	s.failCommits.Store(fail)
}

// FailNextBegins makes the next n BeginTx calls fail.
func (s *FaultyStore) FailNextBegins(n int) {
	s.failBegins.Store(int64(n))
}

// Commits returns the number of successful commits.
func (s *FaultyStore) Commits() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.commitSizes)
}

// CommitBatchSizes returns the number of operations of every successful commit.
func (s *FaultyStore) CommitBatchSizes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.commitSizes)
}

// CommittedOperations returns the sum of all committed batch sizes.
func (s *FaultyStore) CommittedOperations() int {
	total := 0
	for _, size := range s.CommitBatchSizes() {
		total += size
	}

	return total
}

// BeginTx implements bulkwrite.Store.
func (s *FaultyStore) BeginTx(ctx context.Context, opts bulkwrite.TxOptions) (bulkwrite.Tx, error) {
	for {
		remaining := s.failBegins.Load()
		if remaining <= 0 {
			break
		}

		if s.failBegins.CompareAndSwap(remaining, remaining-1) {
			return nil, ErrInjectedBegin
		}
	}

	tx, err := s.store.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}

	wrapped := &faultyTx{tx: tx, store: s}

	if savepointer, ok := tx.(bulkwrite.Savepointer); ok && !s.hideSavepoints {
		return &faultySavepointTx{faultyTx: wrapped, savepointer: savepointer}, nil
	}

	return wrapped, nil
}

func (s *FaultyStore) injectApplyFailure() error {
	n := s.applies.Add(1)
	if s.failApplyEvery > 0 && n%s.failApplyEvery == 0 {
		return ErrInjectedApply
	}

	return nil
}

func (s *FaultyStore) recordCommit(size int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.commitSizes = append(s.commitSizes, size)
}

type faultyTx struct {
	tx      bulkwrite.Tx
	store   *FaultyStore
	applied int
}

func (t *faultyTx) Create(ctx context.Context, targetType string, properties bulkwrite.Properties) (bulkwrite.Record, error) {
	if err := t.store.injectApplyFailure(); err != nil {
		return bulkwrite.Record{}, err
	}

	record, err := t.tx.Create(ctx, targetType, properties)

	return record, t.count(err)
}

func (t *faultyTx) Update(ctx context.Context, ref bulkwrite.RecordRef, properties bulkwrite.Properties) (bulkwrite.Record, error) {
	if err := t.store.injectApplyFailure(); err != nil {
		return bulkwrite.Record{}, err
	}

	record, err := t.tx.Update(ctx, ref, properties)

	return record, t.count(err)
}

func (t *faultyTx) Delete(ctx context.Context, ref bulkwrite.RecordRef) error {
	if err := t.store.injectApplyFailure(); err != nil {
		return err
	}

	return t.count(t.tx.Delete(ctx, ref))
}

func (t *faultyTx) Query(ctx context.Context, language, text string, params ...any) (bulkwrite.ResultSet, error) {
	if err := t.store.injectApplyFailure(); err != nil {
		return nil, err
	}

	rows, err := t.tx.Query(ctx, language, text, params...)

	return rows, t.count(err)
}

func (t *faultyTx) Command(ctx context.Context, language, text string, params ...any) (bulkwrite.ResultSet, error) {
	if err := t.store.injectApplyFailure(); err != nil {
		return nil, err
	}

	rows, err := t.tx.Command(ctx, language, text, params...)

	return rows, t.count(err)
}

func (t *faultyTx) Commit(ctx context.Context) error {
	if t.store.failCommits.Load() {
		return ErrInjectedCommit
	}

	if err := t.tx.Commit(ctx); err != nil {
		return err
	}

	t.store.recordCommit(t.applied)

	return nil
}

func (t *faultyTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

func (t *faultyTx) count(err error) error {
	if err == nil {
		t.applied++
	}

	return err
}

type faultySavepointTx struct {
	*faultyTx
	savepointer bulkwrite.Savepointer
}

func (t *faultySavepointTx) Savepoint(ctx context.Context) error {
	return t.savepointer.Savepoint(ctx)
}

func (t *faultySavepointTx) RollbackToSavepoint(ctx context.Context) error {
	return t.savepointer.RollbackToSavepoint(ctx)
}

func (t *faultySavepointTx) ReleaseSavepoint(ctx context.Context) error {
	return t.savepointer.ReleaseSavepoint(ctx)
}
