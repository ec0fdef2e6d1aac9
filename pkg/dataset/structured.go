package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/cqlunit/pkg/core"
)

// Structured is a dataset backed by the keyspace/column-family model.
type Structured struct {
	location   string
	format     Format
	keyspace   core.Keyspace
	creation   bool
	deletion   bool
	statements []string
}

// NewStructured resolves location and parses it as format (FormatJSON or FormatYAML).
// The keyspace name in the document is used unless WithKeyspace overrides it.
func NewStructured(resolver Resolver, location string, format Format, opts ...Option) (*Structured, error) {
	o := newOptions(opts)
	if resolver == nil {
		resolver = o.resolver
	}
	lines, err := resolve(resolver, location)
	if err != nil {
		return nil, err
	}
	return newStructuredFromLines(location, lines, format, o)
}

func newStructuredFromLines(location string, lines []string, format Format, o options) (*Structured, error) {
	ks, err := parseKeyspace([]byte(strings.Join(lines, "\n")), format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s dataset %s: %w", format, location, err)
	}

	if o.hasKeyspace {
		ks.Name = o.keyspace
	} else {
		ks.Name = normalizeKeyspace(ks.Name)
	}

	if err := validateKeyspace(&ks); err != nil {
		return nil, fmt.Errorf("invalid dataset %s: %w", location, err)
	}

	return &Structured{
		location:   location,
		format:     format,
		keyspace:   ks,
		creation:   o.creation,
		deletion:   o.deletion,
		statements: RenderKeyspace(&ks),
	}, nil
}

func parseKeyspace(data []byte, format Format) (core.Keyspace, error) {
	var ks core.Keyspace
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&ks); err != nil {
			return ks, err
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &ks); err != nil {
			return ks, err
		}
	default:
		return ks, &core.InvalidArgumentError{Argument: "format", Reason: fmt.Sprintf("%s is not a structured format", format)}
	}
	return ks, nil
}

func validateKeyspace(ks *core.Keyspace) error {
	seen := make(map[string]bool, len(ks.ColumnFamilies))
	for i, cf := range ks.ColumnFamilies {
		if cf.Name == "" {
			return &core.InvalidArgumentError{
				Argument: fmt.Sprintf("columnFamilies[%d].name", i),
				Reason:   "must not be empty",
			}
		}
		if seen[cf.Name] {
			return &core.ConflictError{Kind: core.ConflictColumnFamily, Names: []string{cf.Name}}
		}
		seen[cf.Name] = true
	}
	return nil
}

// Statements returns a copy of the rendered statements.
func (d *Structured) Statements() []string { return cloneStrings(d.statements) }

// KeyspaceName returns the lower-cased keyspace name, or "".
func (d *Structured) KeyspaceName() string { return d.keyspace.Name }

// KeyspaceCreation reports whether the keyspace is created before loading.
func (d *Structured) KeyspaceCreation() bool { return d.creation }

// KeyspaceDeletion reports whether the keyspace is dropped before loading.
func (d *Structured) KeyspaceDeletion() bool { return d.deletion }

// Location returns where the document was read from.
func (d *Structured) Location() string { return d.location }

// Format returns the document format.
func (d *Structured) Format() Format { return d.format }

// Keyspace returns a copy of the parsed model.
func (d *Structured) Keyspace() *core.Keyspace {
	ks := d.keyspace
	ks.ColumnFamilies = append([]core.ColumnFamily(nil), d.keyspace.ColumnFamilies...)
	return &ks
}
