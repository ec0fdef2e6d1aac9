// Package executor provides the statement executor contract and registry.
//
// The loader depends only on Executor: run one statement at a time against
// a live connection. Backends implement Session and register themselves
// from pkg/executors/ subdirectories.
package executor

import (
	"context"

	"github.com/leapstack-labs/cqlunit/pkg/core"
)

// Config is an alias for core.ExecutorConfig.
type Config = core.ExecutorConfig

// Executor runs one statement string at a time.
// Implementations are not required to be safe for concurrent use.
type Executor interface {
	Execute(ctx context.Context, statement string) error
}

// Session is an Executor bound to a connection it owns.
type Session interface {
	Executor

	// Connect establishes a connection using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the connection and releases resources.
	Close() error
}

// Inspector lists the schema objects a cleanup needs to see.
type Inspector interface {
	// Keyspaces returns every non-system keyspace, sorted.
	Keyspaces(ctx context.Context) ([]string, error)

	// Tables returns the tables of a keyspace, sorted.
	Tables(ctx context.Context, keyspace string) ([]string, error)
}

// ExecFunc adapts a function to the Executor interface.
type ExecFunc func(ctx context.Context, statement string) error

// Execute calls f.
func (f ExecFunc) Execute(ctx context.Context, statement string) error {
	return f(ctx, statement)
}

// DialectOf returns the keyspace dialect advertised by e, or fallback.
func DialectOf(e Executor, fallback core.KeyspaceDialect) core.KeyspaceDialect {
	if p, ok := e.(core.DialectProvider); ok {
		if d := p.KeyspaceDialect(); d != nil {
			return d
		}
	}
	return fallback
}
