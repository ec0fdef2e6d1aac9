// Package cassandra provides a Cassandra executor backed by the gocql driver.
package cassandra

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	gocql "github.com/apache/cassandra-gocql-driver/v2"

	"github.com/leapstack-labs/cqlunit/pkg/core"
	"github.com/leapstack-labs/cqlunit/pkg/executor"
)

// systemKeyspaces are never reported by Keyspaces.
var systemKeyspaces = map[string]bool{
	"system":                true,
	"system_auth":           true,
	"system_distributed":    true,
	"system_schema":         true,
	"system_traces":         true,
	"system_views":          true,
	"system_virtual_schema": true,
}

// IsSystemKeyspace reports whether name belongs to Cassandra itself.
func IsSystemKeyspace(name string) bool {
	return systemKeyspaces[strings.ToLower(name)]
}

// The driver rejects USE statements, so they are handled by reconnecting
// with the keyspace bound to the session.
var useStmt = regexp.MustCompile(`(?i)^USE\s+("?)(\w+)("?)\s*$`)

// Executor implements executor.Session for Cassandra.
type Executor struct {
	cluster  *gocql.ClusterConfig
	session  *gocql.Session
	keyspace string
	logger   *slog.Logger
}

// New creates a new Cassandra executor instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Executor{logger: logger}
}

// Connect establishes a session with the cluster.
func (e *Executor) Connect(_ context.Context, cfg executor.Config) error {
	params, err := ParseParams(cfg.Params)
	if err != nil {
		return err
	}

	cluster, err := clusterConfig(cfg.Hosts, cfg.Port, cfg.Keyspace, cfg.Username, cfg.Password, cfg.Consistency, cfg.Timeout, params)
	if err != nil {
		return err
	}

	e.logger.Debug("connecting to cassandra",
		slog.Any("hosts", cluster.Hosts),
		slog.Int("port", cluster.Port),
		slog.String("keyspace", cfg.Keyspace))

	session, err := cluster.CreateSession()
	if err != nil {
		return fmt.Errorf("failed to connect to cassandra: %w", err)
	}

	e.cluster = cluster
	e.session = session
	e.keyspace = cfg.Keyspace
	return nil
}

// Close closes the session.
func (e *Executor) Close() error {
	if e.session != nil {
		e.logger.Debug("closing cassandra session")
		e.session.Close()
		e.session = nil
	}
	return nil
}

// Execute runs one CQL statement. Blank statements are skipped.
func (e *Executor) Execute(ctx context.Context, statement string) error {
	if e.session == nil {
		return fmt.Errorf("database connection not established")
	}
	stmt := strings.TrimSpace(statement)
	if stmt == "" {
		e.logger.Debug("skipping empty statement")
		return nil
	}

	if m := useStmt.FindStringSubmatch(stmt); m != nil {
		name := m[2]
		if m[1] == "" {
			name = strings.ToLower(name)
		}
		return e.use(name)
	}

	e.logger.Debug("executing", slog.String("statement", stmt))
	if err := e.session.Query(stmt).ExecContext(ctx); err != nil {
		return fmt.Errorf("failed to execute statement: %w", err)
	}
	return nil
}

// use rebinds the session to keyspace.
func (e *Executor) use(keyspace string) error {
	if keyspace == e.keyspace {
		return nil
	}
	e.logger.Debug("switching keyspace", slog.String("keyspace", keyspace))

	cluster := *e.cluster
	cluster.Keyspace = keyspace
	session, err := cluster.CreateSession()
	if err != nil {
		return fmt.Errorf("failed to use keyspace %s: %w", keyspace, err)
	}

	e.session.Close()
	e.session = session
	e.cluster = &cluster
	e.keyspace = keyspace
	return nil
}

// Keyspace returns the keyspace the session is bound to.
func (e *Executor) Keyspace() string {
	return e.keyspace
}

// KeyspaceDialect returns the CQL keyspace dialect.
func (e *Executor) KeyspaceDialect() core.KeyspaceDialect {
	return core.CQLDialect{}
}

// Keyspaces returns every non-system keyspace.
func (e *Executor) Keyspaces(ctx context.Context) ([]string, error) {
	names, err := e.queryStrings(ctx, "SELECT keyspace_name FROM system_schema.keyspaces")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch keyspaces: %w", err)
	}
	out := names[:0]
	for _, name := range names {
		if !IsSystemKeyspace(name) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Tables returns the tables of keyspace.
func (e *Executor) Tables(ctx context.Context, keyspace string) ([]string, error) {
	names, err := e.queryStrings(ctx, "SELECT table_name FROM system_schema.tables WHERE keyspace_name = ?", keyspace)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tables of %s: %w", keyspace, err)
	}
	sort.Strings(names)
	return names, nil
}

func (e *Executor) queryStrings(ctx context.Context, stmt string, args ...any) ([]string, error) {
	if e.session == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	iter := e.session.Query(stmt, args...).IterContext(ctx)
	var (
		name  string
		names []string
	)
	for iter.Scan(&name) {
		names = append(names, name)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return names, nil
}

var (
	_ executor.Session     = (*Executor)(nil)
	_ executor.Inspector   = (*Executor)(nil)
	_ core.DialectProvider = (*Executor)(nil)
)
