package bulkload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite/asyncexecutor"
)

const (
	logMsgLoadStarted  = "bulkload: load started"
	logMsgLoadFinished = "bulkload: load finished"
)

// ErrLoadIncomplete is returned when at least one line was rejected or one record failed.
var ErrLoadIncomplete = errors.New("not every line was loaded")

// Run executes one load: it opens the store and the observability backends, streams the input
// through the executor and prints the summary to out. stdin is read when cfg.File is empty or "-".
func Run(ctx context.Context, cfg Config, stdin io.Reader, out io.Writer, logger *slog.Logger) (err error) {
	input, closeInput, err := openInput(cfg.File, stdin)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, closeInput()) }()

	schema, err := cfg.LoadSchema()
	if err != nil {
		return err
	}

	observability, err := NewObservability(ctx, cfg.MetricsAddr, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, observability.Shutdown()) }()

	opened, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, opened.Close()) }()

	options := append(cfg.ExecutorOptions(), observability.ExecutorOptions()...)
	options = append(options, asyncexecutor.WithLogger(logger))

	executor, err := asyncexecutor.New(opened.Store, options...)
	if err != nil {
		return err
	}

	loader, err := NewLoader(executor, cfg.RecordType,
		WithRate(cfg.Rate),
		WithSchema(schema),
		WithLoaderLogger(logger),
	)
	if err != nil {
		return errors.Join(err, executor.Close())
	}

	logger.Info(logMsgLoadStarted, "driver", cfg.Driver, "file", cfg.File)

	stats, loadErr := loader.Load(ctx, input)
	closeErr := executor.Close()

	// Close fails what was still pending, so the final counters are read afterwards.
	stats.Succeeded = executor.SuccessCount()
	stats.Failed = executor.ErrorCount()

	logger.Info(logMsgLoadFinished,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"rejected", stats.Rejected,
		"duration_ms", stats.Duration.Milliseconds(),
	)

	PrintSummary(out, stats, executor.Errors(), cfg.NoColor)

	if loadErr != nil || closeErr != nil {
		return errors.Join(loadErr, closeErr)
	}

	if stats.Failed > 0 || stats.Rejected > 0 {
		return fmt.Errorf("%w: %d rejected, %d failed", ErrLoadIncomplete, stats.Rejected, stats.Failed)
	}

	return nil
}

func openInput(path string, stdin io.Reader) (io.Reader, func() error, error) {
	if path == "" || path == "-" {
		return stdin, func() error { return nil }, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}

	return file, file.Close, nil
}
