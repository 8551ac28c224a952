package helper

import (
	"context"
	"sync"

	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite"
)

// GatedStore wraps a bulkwrite.Store and blocks every Create until Open was called.
// It is used to hold workers busy while the queue fills up.
type GatedStore struct {
	store bulkwrite.Store

	gate      chan struct{}
	openOnce  sync.Once
	entered   chan struct{}
	enterOnce sync.Once
}

// NewGatedStore wraps store with a closed gate.
func NewGatedStore(store bulkwrite.Store) *GatedStore {
	return &GatedStore{
		store:   store,
		gate:    make(chan struct{}),
		entered: make(chan struct{}),
	}
}

// Entered is closed as soon as the first Create is blocked at the gate.
func (s *GatedStore) Entered() <-chan struct{} {
	return s.entered
}

// Open releases all blocked and future Create calls.
func (s *GatedStore) Open() {
	s.openOnce.Do(func() { close(s.gate) })
}

// BeginTx implements bulkwrite.Store.
func (s *GatedStore) BeginTx(ctx context.Context, opts bulkwrite.TxOptions) (bulkwrite.Tx, error) {
	tx, err := s.store.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}

	return &gatedTx{Tx: tx, store: s}, nil
}

type gatedTx struct {
	bulkwrite.Tx
	store *GatedStore
}

func (t *gatedTx) Create(ctx context.Context, targetType string, properties bulkwrite.Properties) (bulkwrite.Record, error) {
	t.store.enterOnce.Do(func() { close(t.store.entered) })
	<-t.store.gate

	return t.Tx.Create(ctx, targetType, properties)
}
