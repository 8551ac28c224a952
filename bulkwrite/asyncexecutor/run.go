package asyncexecutor

import (
	"context"

	"github.com/hashicorp/go-multierror"

	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite"
)

// Run is the scoped form of an Executor: it creates one, hands it to fn, waits for completion and closes it.
//
// The returned error aggregates the error returned by fn, ctx.Err() if the wait was cut short,
// and every ErrorRecord collected during the run. It is nil only if all operations were committed.
func Run(
	ctx context.Context,
	store bulkwrite.Store,
	fn func(ctx context.Context, executor *Executor) error,
	options ...Option,
) error {

	executor, err := New(store, options...)
	if err != nil {
		return err
	}

	var result *multierror.Error

	if fnErr := fn(ctx, executor); fnErr != nil {
		result = multierror.Append(result, fnErr)
	}

	if !executor.WaitCompletion(ctx) {
		result = multierror.Append(result, ctx.Err())
	}

	_ = executor.Close()

	for _, record := range executor.Errors() {
		result = multierror.Append(result, record)
	}

	return result.ErrorOrNil()
}
