package bulkload

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/xeipuuv/gojsonschema"
	"golang.org/x/time/rate"

	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite"
	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite/asyncexecutor"
)

const (
	typeField     = "_type"
	maxLineLength = 16 * 1024 * 1024

	logMsgLineRejected = "bulkload: line rejected"
	logAttrLine        = "line"
	logAttrReason      = "reason"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrInvalidSchema is returned when the JSON schema itself cannot be compiled.
var ErrInvalidSchema = errors.New("invalid json schema")

// Stats summarizes one load.
type Stats struct {
	Lines     int64
	Rejected  int64
	Enqueued  int64
	Succeeded int64
	Failed    int64
	Duration  time.Duration
	Completed bool
}

// Loader feeds records parsed from JSON lines into an executor.
type Loader struct {
	executor    *asyncexecutor.Executor
	defaultType string
	limiter     *rate.Limiter
	schema      *gojsonschema.Schema
	logger      *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader) error

// WithRate throttles the producer to perSecond records per second; zero or less means unlimited.
func WithRate(perSecond float64) LoaderOption {
	return func(l *Loader) error {
		if perSecond <= 0 {
			l.limiter = nil
			return nil
		}

		burst := max(1, int(perSecond/10))
		l.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)

		return nil
	}
}

// WithSchema validates every line against the given JSON schema document.
func WithSchema(schemaJSON string) LoaderOption {
	return func(l *Loader) error {
		if schemaJSON == "" {
			return nil
		}

		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
		if err != nil {
			return errors.Join(ErrInvalidSchema, err)
		}

		l.schema = schema

		return nil
	}
}

// WithLoaderLogger sets the logger for rejected lines.
func WithLoaderLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) error {
		l.logger = logger
		return nil
	}
}

// NewLoader creates a Loader that creates records of defaultType unless a line names its own type.
func NewLoader(executor *asyncexecutor.Executor, defaultType string, options ...LoaderOption) (*Loader, error) {
	l := &Loader{
		executor:    executor,
		defaultType: defaultType,
	}

	for _, option := range options {
		if err := option(l); err != nil {
			return nil, err
		}
	}

	return l, nil
}

// Load reads r to the end, enqueues one create per accepted line and waits until the executor
// has drained. Stats are returned even when ctx ends early; Completed is false in that case.
func (l *Loader) Load(ctx context.Context, r io.Reader) (Stats, error) {
	start := time.Now()
	stats := Stats{}

	readErr := l.produce(ctx, r, &stats)

	stats.Completed = l.executor.WaitCompletion(ctx)
	stats.Succeeded = l.executor.SuccessCount()
	stats.Failed = l.executor.ErrorCount()
	stats.Duration = time.Since(start)

	if readErr != nil {
		return stats, readErr
	}

	if !stats.Completed {
		return stats, ctx.Err()
	}

	return stats, nil
}

func (l *Loader) produce(ctx context.Context, r io.Reader, stats *Stats) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		stats.Lines++

		recordType, properties, err := l.parse(line)
		if err != nil {
			stats.Rejected++
			l.logRejected(stats.Lines, err)
			continue
		}

		if l.limiter != nil {
			if err = l.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		if err = l.executor.EnqueueCreate(ctx, recordType, properties, nil); err != nil {
			return err
		}

		stats.Enqueued++
	}

	return scanner.Err()
}

func (l *Loader) parse(line []byte) (string, bulkwrite.Properties, error) {
	if l.schema != nil {
		result, err := l.schema.Validate(gojsonschema.NewBytesLoader(line))
		if err != nil {
			return "", nil, err
		}

		if !result.Valid() {
			return "", nil, fmt.Errorf("schema violation: %s", result.Errors()[0].String())
		}
	}

	properties := bulkwrite.Properties{}
	if err := json.Unmarshal(line, &properties); err != nil {
		return "", nil, err
	}

	recordType := l.defaultType
	if value, ok := properties[typeField]; ok {
		typeName, isString := value.(string)
		if !isString || typeName == "" {
			return "", nil, fmt.Errorf("%s must be a non-empty string", typeField)
		}

		recordType = typeName
		delete(properties, typeField)
	}

	return recordType, properties, nil
}

func (l *Loader) logRejected(line int64, reason error) {
	if l.logger == nil {
		return
	}

	l.logger.Warn(logMsgLineRejected, logAttrLine, line, logAttrReason, reason.Error())
}
