// Package duckdb provides an in-process DuckDB executor for cqlunit.
// Keyspaces map onto schemas of the attached database.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver

	"github.com/leapstack-labs/cqlunit/pkg/core"
	"github.com/leapstack-labs/cqlunit/pkg/executor"
)

// Executor implements executor.Session for DuckDB.
type Executor struct {
	executor.BaseSQL
}

// New creates a new DuckDB executor instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Executor{
		BaseSQL: executor.BaseSQL{Logger: logger},
	}
}

// Connect opens the database. Use ":memory:" or an empty path for an
// in-memory database.
func (e *Executor) Connect(ctx context.Context, cfg executor.Config) error {
	params, err := ParseParams(cfg.Params)
	if err != nil {
		return err
	}

	path := cfg.Path
	if path == ":memory:" {
		path = ""
	}

	e.Logger.Debug("opening duckdb", slog.String("path", cfg.Path))

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	// the current schema is per connection
	db.SetMaxOpenConns(1)

	e.DB = db
	e.Cfg = cfg

	if err := e.apply(ctx, params); err != nil {
		_ = e.Close()
		return err
	}

	if cfg.Keyspace != "" {
		if err := e.Execute(ctx, e.KeyspaceDialect().UseKeyspace(cfg.Keyspace)); err != nil {
			_ = e.Close()
			return err
		}
	}
	return nil
}

// apply installs extensions and session settings.
func (e *Executor) apply(ctx context.Context, p *Params) error {
	for _, ext := range p.Extensions {
		if err := e.Execute(ctx, "INSTALL "+ext); err != nil {
			return fmt.Errorf("failed to install extension %s: %w", ext, err)
		}
		if err := e.Execute(ctx, "LOAD "+ext); err != nil {
			return fmt.Errorf("failed to load extension %s: %w", ext, err)
		}
	}

	keys := make([]string, 0, len(p.Settings))
	for k := range p.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := e.Execute(ctx, fmt.Sprintf("SET %s = '%s'", k, p.Settings[k])); err != nil {
			return fmt.Errorf("failed to apply setting %s: %w", k, err)
		}
	}
	return nil
}

// KeyspaceDialect maps keyspaces to schemas.
func (e *Executor) KeyspaceDialect() core.KeyspaceDialect {
	return core.SchemaDialect{UseTemplate: "SET schema = '%s'", Cascade: true}
}

// Keyspaces returns every user schema of the current database.
func (e *Executor) Keyspaces(ctx context.Context) ([]string, error) {
	return e.QueryStrings(ctx, `
		SELECT schema_name
		FROM information_schema.schemata
		WHERE catalog_name = current_database()
		  AND schema_name NOT IN ('main', 'information_schema', 'pg_catalog')
		ORDER BY schema_name
	`)
}

// Tables returns the base tables of a schema.
func (e *Executor) Tables(ctx context.Context, keyspace string) ([]string, error) {
	return e.QueryStrings(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_catalog = current_database()
		  AND table_schema = ? AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`, keyspace)
}

var (
	_ executor.Session     = (*Executor)(nil)
	_ executor.Inspector   = (*Executor)(nil)
	_ core.DialectProvider = (*Executor)(nil)
)
