package dataset

import (
	"fmt"
	"io/fs"

	"github.com/leapstack-labs/cqlunit/pkg/cql"
)

// InlineLocation is the location reported by datasets built from literal text.
const InlineLocation = "<inline>"

// CQL is a dataset backed by a flat CQL script.
type CQL struct {
	location   string
	keyspace   string
	creation   bool
	deletion   bool
	statements []string
}

// NewCQL resolves location with resolver and lexes it.
// A nil resolver falls back to the one set by WithResolver, then FileResolver.
func NewCQL(resolver Resolver, location string, opts ...Option) (*CQL, error) {
	o := newOptions(opts)
	if resolver == nil {
		resolver = o.resolver
	}
	lines, err := resolve(resolver, location)
	if err != nil {
		return nil, err
	}
	return newCQLFromLines(location, lines, o)
}

// FromText builds a dataset from an in-memory script.
func FromText(text string, opts ...Option) (*CQL, error) {
	o := newOptions(opts)
	lines, err := resolve(TextResolver{}, text)
	if err != nil {
		return nil, err
	}
	return newCQLFromLines(InlineLocation, lines, o)
}

// FromFile builds a dataset from a script on disk.
func FromFile(path string, opts ...Option) (*CQL, error) {
	return NewCQL(FileResolver{}, path, opts...)
}

// FromFS builds a dataset from a script in fsys, typically an embed.FS.
func FromFS(fsys fs.FS, path string, opts ...Option) (*CQL, error) {
	return NewCQL(FSResolver{FS: fsys}, path, opts...)
}

func newCQLFromLines(location string, lines []string, o options) (*CQL, error) {
	lexer := cql.NewLexer(lines)

	var statements []string
	if o.strict {
		var err error
		statements, err = lexer.StatementsStrict()
		if err != nil {
			return nil, fmt.Errorf("failed to lex %s: %w", location, err)
		}
	} else {
		statements = lexer.Statements()
	}

	return &CQL{
		location:   location,
		keyspace:   o.keyspace,
		creation:   o.creation,
		deletion:   o.deletion,
		statements: statements,
	}, nil
}

// Statements returns a copy of the lexed statements.
func (d *CQL) Statements() []string { return cloneStrings(d.statements) }

// KeyspaceName returns the lower-cased keyspace name, or "".
func (d *CQL) KeyspaceName() string { return d.keyspace }

// KeyspaceCreation reports whether the keyspace is created before loading.
func (d *CQL) KeyspaceCreation() bool { return d.creation }

// KeyspaceDeletion reports whether the keyspace is dropped before loading.
func (d *CQL) KeyspaceDeletion() bool { return d.deletion }

// Location returns where the script was read from.
func (d *CQL) Location() string { return d.location }

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
