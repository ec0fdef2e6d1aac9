package executor

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
)

// BaseSQL provides common database/sql functionality for executors.
// Embed this struct in concrete backends to get standard
// Close, Execute and string-list queries.
type BaseSQL struct {
	DB     *sql.DB
	Cfg    Config
	Logger *slog.Logger
}

// Close closes the database connection.
func (b *BaseSQL) Close() error {
	if b.DB != nil {
		b.logger().Debug("closing database connection")
		return b.DB.Close()
	}
	return nil
}

// Execute runs a statement that doesn't return rows.
// Blank statements are skipped.
func (b *BaseSQL) Execute(ctx context.Context, statement string) error {
	if b.DB == nil {
		return fmt.Errorf("database connection not established")
	}
	if strings.TrimSpace(statement) == "" {
		b.logger().Debug("skipping empty statement")
		return nil
	}
	b.logger().Debug("executing", slog.String("statement", statement))
	if _, err := b.DB.ExecContext(ctx, statement); err != nil {
		return fmt.Errorf("failed to execute statement: %w", err)
	}
	return nil
}

// QueryStrings runs a query returning a single string column.
func (b *BaseSQL) QueryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	rows, err := b.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQL) IsConnected() bool {
	return b.DB != nil
}

func (b *BaseSQL) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.Logger
}
