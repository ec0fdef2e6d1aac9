package dataset

import (
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/cqlunit/pkg/core"
)

// Format identifies a dataset notation.
type Format string

// Supported formats.
const (
	FormatCQL  Format = "cql"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// DetectFormat picks a format from the location's extension.
// Unknown and missing extensions are treated as CQL.
func DetectFormat(location string) Format {
	switch strings.ToLower(filepath.Ext(location)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatCQL
	}
}

// Open resolves location and builds the dataset variant matching its extension.
func Open(resolver Resolver, location string, opts ...Option) (core.Dataset, error) {
	o := newOptions(opts)
	if resolver == nil {
		resolver = o.resolver
	}
	lines, err := resolve(resolver, location)
	if err != nil {
		return nil, err
	}
	return build(location, lines, o)
}

// build constructs a dataset from already resolved lines.
func build(location string, lines []string, o options) (core.Dataset, error) {
	switch format := DetectFormat(location); format {
	case FormatJSON, FormatYAML:
		return newStructuredFromLines(location, lines, format, o)
	default:
		return newCQLFromLines(location, lines, o)
	}
}

// WithLifecycle returns a view of ds with the keyspace creation and
// deletion flags replaced. Structured datasets stay structured.
func WithLifecycle(ds core.Dataset, create, drop bool) core.Dataset {
	v := lifecycle{Dataset: ds, create: create, drop: drop}
	if s, ok := ds.(core.StructuredDataset); ok {
		return structuredLifecycle{lifecycle: v, keyspace: s.Keyspace}
	}
	return v
}

type lifecycle struct {
	core.Dataset
	create bool
	drop   bool
}

func (l lifecycle) KeyspaceCreation() bool { return l.create }
func (l lifecycle) KeyspaceDeletion() bool { return l.drop }
func (l lifecycle) Location() string       { return core.LocationOf(l.Dataset) }

type structuredLifecycle struct {
	lifecycle
	keyspace func() *core.Keyspace
}

func (s structuredLifecycle) Keyspace() *core.Keyspace { return s.keyspace() }
