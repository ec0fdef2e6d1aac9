package dataset

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/cqlunit/pkg/core"
)

// RenderKeyspace renders a keyspace model as CQL statements: one
// CREATE TABLE IF NOT EXISTS per column family followed by its INSERTs.
// Table names are qualified with the keyspace when it is named.
func RenderKeyspace(ks *core.Keyspace) []string {
	var statements []string
	for i := range ks.ColumnFamilies {
		cf := &ks.ColumnFamilies[i]
		table := qualify(ks.Name, cf.Name)
		statements = append(statements, renderCreateTable(table, cf))
		for _, row := range cf.Rows {
			statements = append(statements, renderInsert(table, cf, row))
		}
	}
	return statements
}

func qualify(keyspace, table string) string {
	if keyspace == "" {
		return table
	}
	return keyspace + "." + table
}

func renderCreateTable(table string, cf *core.ColumnFamily) string {
	defs := []string{core.KeyColumnName + " " + cf.EffectiveKeyType() + " PRIMARY KEY"}
	for _, name := range cf.ColumnNames() {
		defs = append(defs, name+" "+cf.ColumnType(name))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, strings.Join(defs, ", "))
}

func renderInsert(table string, cf *core.ColumnFamily, row core.Row) string {
	names := []string{core.KeyColumnName}
	values := []string{Literal(row.Key, cf.EffectiveKeyType())}
	for _, col := range row.Columns {
		if col.Name == core.KeyColumnName {
			continue
		}
		names = append(names, col.Name)
		values = append(values, Literal(col.Value, cf.ColumnType(col.Name)))
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(names, ", "), strings.Join(values, ", "))
}

// Literal renders v as a CQL literal of the given type.
// Collection types (list<T>, set<T>, map<K,V>) render their elements recursively.
func Literal(v any, cqlType string) string {
	if v == nil {
		return "NULL"
	}
	base, args := parseType(cqlType)

	switch base {
	case "frozen":
		return Literal(v, argAt(args, 0))

	case "list", "set":
		elem := argAt(args, 0)
		items, ok := v.([]any)
		if !ok {
			return quote(stringify(v))
		}
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = Literal(item, elem)
		}
		if base == "list" {
			return "[" + strings.Join(parts, ", ") + "]"
		}
		return "{" + strings.Join(parts, ", ") + "}"

	case "map":
		entries, ok := mapEntries(v)
		if !ok {
			return quote(stringify(v))
		}
		parts := make([]string, len(entries))
		for i, e := range entries {
			parts[i] = Literal(e.key, argAt(args, 0)) + ": " + Literal(e.value, argAt(args, 1))
		}
		return "{" + strings.Join(parts, ", ") + "}"

	case "int", "bigint", "smallint", "tinyint", "varint", "counter",
		"float", "double", "decimal", "boolean", "uuid", "timeuuid":
		return stringify(v)

	case "blob":
		s := stringify(v)
		if strings.HasPrefix(s, "0x") {
			return s
		}
		return "0x" + hex.EncodeToString([]byte(s))

	case "date":
		if t, ok := v.(time.Time); ok {
			return quote(t.Format(time.DateOnly))
		}
		return quote(stringify(v))

	default:
		return quote(stringify(v))
	}
}

type mapEntry struct {
	key, value any
}

// mapEntries returns the entries of a decoded map sorted by rendered key.
// JSON objects decode to map[string]any; YAML mappings with non-string
// keys decode to map[any]any.
func mapEntries(v any) ([]mapEntry, bool) {
	var entries []mapEntry
	switch m := v.(type) {
	case map[string]any:
		for k, val := range m {
			entries = append(entries, mapEntry{key: k, value: val})
		}
	case map[any]any:
		for k, val := range m {
			entries = append(entries, mapEntry{key: k, value: val})
		}
	default:
		return nil, false
	}
	sort.Slice(entries, func(i, j int) bool {
		return stringify(entries[i].key) < stringify(entries[j].key)
	})
	return entries, true
}

// parseType splits "map<text, int>" into "map" and ["text", "int"].
func parseType(t string) (string, []string) {
	t = strings.ToLower(strings.TrimSpace(t))
	open := strings.IndexByte(t, '<')
	if open < 0 || !strings.HasSuffix(t, ">") {
		return t, nil
	}
	base := strings.TrimSpace(t[:open])
	inner := t[open+1 : len(t)-1]

	var args []string
	depth, start := 0, 0
	for i := 0; i < len(inner); i++ {
		switch inner[i] {
		case '<':
			depth++
		case '>':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(inner[start:i]))
				start = i + 1
			}
		}
	}
	args = append(args, strings.TrimSpace(inner[start:]))
	return base, args
}

func argAt(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return core.DefaultColumnValueType
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(x)
	}
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
