// Package loader realizes datasets against an executor.
//
// Every load runs a fixed sequence: drop the keyspace, create and select
// it, execute the dataset statements in order, then select the declared
// keyspace again. Statements run one at a time; the first failure stops
// the load.
package loader

import (
	"context"
	"log/slog"
	"time"

	"github.com/leapstack-labs/cqlunit/pkg/core"
	"github.com/leapstack-labs/cqlunit/pkg/dataset"
	"github.com/leapstack-labs/cqlunit/pkg/executor"
)

// Loader executes datasets. A Loader must not be shared between
// concurrent loads on the same executor.
type Loader struct {
	exec    executor.Executor
	dialect core.KeyspaceDialect
	journal Journal
	logger  *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the structured logger (nil uses discard).
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithDialect overrides the keyspace dialect.
func WithDialect(d core.KeyspaceDialect) Option {
	return func(l *Loader) {
		if d != nil {
			l.dialect = d
		}
	}
}

// WithJournal records every load in j.
func WithJournal(j Journal) Option {
	return func(l *Loader) { l.journal = j }
}

// New creates a Loader over exec. The keyspace dialect defaults to the one
// advertised by exec, then to core.CQLDialect.
func New(exec executor.Executor, opts ...Option) *Loader {
	l := &Loader{
		exec:    exec,
		dialect: executor.DialectOf(exec, core.CQLDialect{}),
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Result summarizes one dataset load.
type Result struct {
	Location   string
	Keyspace   string
	Dropped    bool
	Created    bool
	Statements int
	Executed   int
	Duration   time.Duration
}

// Load runs the dataset against the executor.
func (l *Loader) Load(ctx context.Context, ds core.Dataset) (Result, error) {
	return l.load(ctx, ds, 0)
}

// LoadBatch loads datasets in order. Only the first dataset may drop or
// create the keyspace; later datasets run against the keyspace it set up.
func (l *Loader) LoadBatch(ctx context.Context, datasets []core.Dataset) ([]Result, error) {
	results := make([]Result, 0, len(datasets))
	for i, ds := range datasets {
		if ds != nil && i > 0 {
			ds = dataset.WithLifecycle(ds, false, false)
		}
		res, err := l.load(ctx, ds, i)
		results = append(results, res)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

func (l *Loader) load(ctx context.Context, ds core.Dataset, index int) (res Result, err error) {
	if ds == nil {
		return res, &core.InvalidArgumentError{Argument: "dataset", Reason: "must not be nil"}
	}
	if l.exec == nil {
		return res, &core.InvalidArgumentError{Argument: "executor", Reason: "must not be nil"}
	}

	start := time.Now()
	statements := ds.Statements()
	res = Result{
		Location:   core.LocationOf(ds),
		Keyspace:   core.EffectiveKeyspace(ds),
		Statements: len(statements),
	}

	l.logger.Debug("loading dataset",
		slog.String("location", res.Location),
		slog.String("keyspace", res.Keyspace),
		slog.Int("statements", len(statements)),
		slog.Int("batch_index", index))

	defer func() {
		res.Duration = time.Since(start)
		l.record(ctx, res, index, start, err)
	}()

	if err := l.initKeyspace(ctx, ds, res.Keyspace, &res); err != nil {
		return res, err
	}

	for i, stmt := range statements {
		if err := ctx.Err(); err != nil {
			return res, l.failure(stmt, i, res, err)
		}
		l.logger.Debug("executing", slog.Int("index", i), slog.String("statement", stmt))
		if err := l.exec.Execute(ctx, stmt); err != nil {
			return res, l.failure(stmt, i, res, err)
		}
		res.Executed++
	}

	if ds.KeyspaceName() != "" {
		if err := l.lifecycle(ctx, l.dialect.UseKeyspace(res.Keyspace), res); err != nil {
			return res, err
		}
	}

	l.logger.Debug("dataset loaded",
		slog.String("location", res.Location),
		slog.Int("executed", res.Executed))
	return res, nil
}

// initKeyspace runs the drop and create/use phases.
func (l *Loader) initKeyspace(ctx context.Context, ds core.Dataset, keyspace string, res *Result) error {
	l.logger.Debug("init keyspace context",
		slog.String("keyspace", keyspace),
		slog.Bool("deletion", ds.KeyspaceDeletion()),
		slog.Bool("creation", ds.KeyspaceCreation()))

	if ds.KeyspaceDeletion() {
		if err := l.lifecycle(ctx, l.dialect.DropKeyspace(keyspace), *res); err != nil {
			return err
		}
		res.Dropped = true
	}

	if ds.KeyspaceCreation() {
		if err := l.lifecycle(ctx, l.dialect.CreateKeyspace(keyspace), *res); err != nil {
			return err
		}
		res.Created = true
		if err := l.lifecycle(ctx, l.dialect.UseKeyspace(keyspace), *res); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) lifecycle(ctx context.Context, stmt string, res Result) error {
	l.logger.Debug("executing", slog.String("statement", stmt))
	if err := l.exec.Execute(ctx, stmt); err != nil {
		return l.failure(stmt, -1, res, err)
	}
	return nil
}

func (l *Loader) failure(stmt string, index int, res Result, err error) error {
	l.logger.Debug("statement failed",
		slog.String("statement", stmt),
		slog.Int("index", index),
		slog.String("error", err.Error()))
	return &core.ExecutionError{
		Statement: stmt,
		Index:     index,
		Executed:  res.Executed,
		Location:  res.Location,
		Err:       err,
	}
}
