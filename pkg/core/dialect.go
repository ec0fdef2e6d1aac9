package core

import "fmt"

// KeyspaceDialect renders the keyspace lifecycle statements issued by the loader.
type KeyspaceDialect interface {
	DropKeyspace(name string) string
	CreateKeyspace(name string) string
	UseKeyspace(name string) string
}

// DialectProvider is implemented by executors whose backend needs
// different keyspace statements than CQL.
type DialectProvider interface {
	KeyspaceDialect() KeyspaceDialect
}

// DefaultReplicationFactor is the single-node replication used for fixtures.
const DefaultReplicationFactor = 1

// CQLDialect produces Cassandra keyspace statements.
type CQLDialect struct {
	// ReplicationFactor for SimpleStrategy. Zero means DefaultReplicationFactor.
	ReplicationFactor int
}

// DropKeyspace renders DROP KEYSPACE IF EXISTS.
func (d CQLDialect) DropKeyspace(name string) string {
	return "DROP KEYSPACE IF EXISTS " + name
}

// CreateKeyspace renders CREATE KEYSPACE IF NOT EXISTS with durable writes disabled.
func (d CQLDialect) CreateKeyspace(name string) string {
	rf := d.ReplicationFactor
	if rf <= 0 {
		rf = DefaultReplicationFactor
	}
	return fmt.Sprintf(
		"CREATE KEYSPACE IF NOT EXISTS %s WITH replication={'class':'SimpleStrategy','replication_factor':%d} AND durable_writes=false",
		name, rf)
}

// UseKeyspace renders USE.
func (d CQLDialect) UseKeyspace(name string) string {
	return "USE " + name
}

// SchemaDialect maps keyspaces onto SQL schemas.
// Used by relational backends that have no keyspace concept.
type SchemaDialect struct {
	// UseTemplate renders the select statement, e.g. "SET search_path TO %s".
	UseTemplate string
	// Cascade appends CASCADE to DROP SCHEMA.
	Cascade bool
}

// DropKeyspace renders DROP SCHEMA IF EXISTS.
func (d SchemaDialect) DropKeyspace(name string) string {
	if d.Cascade {
		return fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", name)
	}
	return "DROP SCHEMA IF EXISTS " + name
}

// CreateKeyspace renders CREATE SCHEMA IF NOT EXISTS.
func (d SchemaDialect) CreateKeyspace(name string) string {
	return "CREATE SCHEMA IF NOT EXISTS " + name
}

// UseKeyspace renders the configured select statement.
func (d SchemaDialect) UseKeyspace(name string) string {
	tmpl := d.UseTemplate
	if tmpl == "" {
		tmpl = "USE %s"
	}
	return fmt.Sprintf(tmpl, name)
}
