// Package postgres provides a PostgreSQL executor for cqlunit.
// Keyspaces map onto schemas.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver

	"github.com/leapstack-labs/cqlunit/pkg/core"
	"github.com/leapstack-labs/cqlunit/pkg/executor"
)

// Executor implements executor.Session for PostgreSQL.
type Executor struct {
	executor.BaseSQL
}

// New creates a new PostgreSQL executor instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Executor{
		BaseSQL: executor.BaseSQL{Logger: logger},
	}
}

// Connect establishes a connection to PostgreSQL.
func (e *Executor) Connect(ctx context.Context, cfg executor.Config) error {
	dsn := buildDSN(cfg)

	e.Logger.Debug("connecting to postgres", slog.String("host", cfg.Host()), slog.String("database", cfg.Database))

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	// search_path is per connection
	db.SetMaxOpenConns(1)

	e.DB = db
	e.Cfg = cfg

	if cfg.Keyspace != "" {
		if err := e.Execute(ctx, e.KeyspaceDialect().UseKeyspace(cfg.Keyspace)); err != nil {
			_ = e.Close()
			return err
		}
	}
	return nil
}

// buildDSN constructs a PostgreSQL connection string.
func buildDSN(cfg executor.Config) string {
	host := cfg.Host()
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if mode, ok := cfg.Options["sslmode"]; ok {
		sslmode = mode
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s",
		host, port, cfg.Database, sslmode)

	if cfg.Username != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.Username)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}
	if cfg.Timeout > 0 {
		dsn += fmt.Sprintf(" connect_timeout=%d", int(cfg.Timeout.Seconds()))
	}

	return dsn
}

// KeyspaceDialect maps keyspaces to schemas.
func (e *Executor) KeyspaceDialect() core.KeyspaceDialect {
	return core.SchemaDialect{UseTemplate: "SET search_path TO %s", Cascade: true}
}

// Keyspaces returns every user schema.
func (e *Executor) Keyspaces(ctx context.Context) ([]string, error) {
	return e.QueryStrings(ctx, `
		SELECT schema_name
		FROM information_schema.schemata
		WHERE schema_name NOT IN ('information_schema', 'public')
		  AND schema_name NOT LIKE 'pg\_%'
		ORDER BY schema_name
	`)
}

// Tables returns the base tables of a schema.
func (e *Executor) Tables(ctx context.Context, keyspace string) ([]string, error) {
	return e.QueryStrings(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`, keyspace)
}

var (
	_ executor.Session     = (*Executor)(nil)
	_ executor.Inspector   = (*Executor)(nil)
	_ core.DialectProvider = (*Executor)(nil)
)
