package core

// DefaultKeyspace is the keyspace used when a dataset declares none.
const DefaultKeyspace = "cassandraunitkeyspace"

// Dataset is a bundle of statements plus the keyspace lifecycle policy
// applied before they are executed.
//
// Implementations are immutable once constructed; Statements must return
// the same ordered list on every call.
type Dataset interface {
	// Statements returns the executable statements in source order.
	Statements() []string

	// KeyspaceName returns the lower-cased keyspace name, or "" when none is declared.
	KeyspaceName() string

	// KeyspaceCreation reports whether the keyspace is created before loading.
	KeyspaceCreation() bool

	// KeyspaceDeletion reports whether the keyspace is dropped before loading.
	KeyspaceDeletion() bool
}

// StructuredDataset is a dataset backed by the keyspace/column-family model.
type StructuredDataset interface {
	Dataset

	// Keyspace returns the parsed keyspace model.
	Keyspace() *Keyspace
}

// Located is implemented by datasets that remember their source location.
type Located interface {
	Location() string
}

// EffectiveKeyspace returns the keyspace a dataset loads into,
// falling back to DefaultKeyspace.
func EffectiveKeyspace(ds Dataset) string {
	if name := ds.KeyspaceName(); name != "" {
		return name
	}
	return DefaultKeyspace
}

// LocationOf returns the dataset location when known.
func LocationOf(ds Dataset) string {
	if l, ok := ds.(Located); ok {
		return l.Location()
	}
	return ""
}
