package core

// Keyspace is the structural representation of a dataset: a keyspace and
// the column families (tables) it contains, with their rows.
type Keyspace struct {
	Name              string         `json:"name" yaml:"name"`
	Strategy          string         `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	ReplicationFactor int            `json:"replicationFactor,omitempty" yaml:"replicationFactor,omitempty"`
	ColumnFamilies    []ColumnFamily `json:"columnFamilies" yaml:"columnFamilies"`
}

// ColumnFamily describes one table: its key, typed columns and rows.
type ColumnFamily struct {
	Name string `json:"name" yaml:"name"`

	// KeyType is the CQL type of the row key column (default "text").
	KeyType string `json:"keyType,omitempty" yaml:"keyType,omitempty"`

	// DefaultColumnValueType is used for columns without metadata (default "text").
	DefaultColumnValueType string `json:"defaultColumnValueType,omitempty" yaml:"defaultColumnValueType,omitempty"`

	Columns []Column `json:"columns,omitempty" yaml:"columns,omitempty"`
	Rows    []Row    `json:"rows,omitempty" yaml:"rows,omitempty"`
}

// Column is the metadata of a single column.
type Column struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// Row is a keyed set of column values.
type Row struct {
	Key     any           `json:"key" yaml:"key"`
	Columns []ColumnValue `json:"columns,omitempty" yaml:"columns,omitempty"`
}

// ColumnValue is a single cell.
type ColumnValue struct {
	Name  string `json:"name" yaml:"name"`
	Value any    `json:"value" yaml:"value"`
}

// Default CQL types for keys and untyped columns.
const (
	DefaultKeyType         = "text"
	DefaultColumnValueType = "text"
	KeyColumnName          = "key"
)

// ColumnFamilyNames returns the column family names in declaration order.
func (k *Keyspace) ColumnFamilyNames() []string {
	if k == nil {
		return nil
	}
	names := make([]string, 0, len(k.ColumnFamilies))
	for _, cf := range k.ColumnFamilies {
		names = append(names, cf.Name)
	}
	return names
}

// EffectiveKeyType returns the key type, applying the default.
func (cf *ColumnFamily) EffectiveKeyType() string {
	if cf.KeyType == "" {
		return DefaultKeyType
	}
	return cf.KeyType
}

// ColumnType returns the declared type of a column, or the family default.
func (cf *ColumnFamily) ColumnType(name string) string {
	for _, c := range cf.Columns {
		if c.Name == name {
			return c.Type
		}
	}
	if cf.DefaultColumnValueType != "" {
		return cf.DefaultColumnValueType
	}
	return DefaultColumnValueType
}

// ColumnNames returns declared columns followed by any column only seen in rows,
// in first-seen order.
func (cf *ColumnFamily) ColumnNames() []string {
	seen := make(map[string]bool)
	var names []string
	add := func(n string) {
		if n == KeyColumnName || seen[n] {
			return
		}
		seen[n] = true
		names = append(names, n)
	}
	for _, c := range cf.Columns {
		add(c.Name)
	}
	for _, r := range cf.Rows {
		for _, c := range r.Columns {
			add(c.Name)
		}
	}
	return names
}
