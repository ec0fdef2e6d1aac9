package dataset

import (
	"io/fs"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/cqlunit/pkg/core"
)

// maxConcurrentResolves bounds parallel source reads.
const maxConcurrentResolves = 8

// MultiSource is a dataset merged from several sources describing one keyspace.
//
// Sources may mix formats. The merged statements are the concatenation of
// each source's statements in list order. Structured sources must not
// define the same column family twice.
type MultiSource struct {
	locations  []string
	keyspace   string
	creation   bool
	deletion   bool
	model      *core.Keyspace
	components []core.Dataset
	statements []string
}

// NewMultiSource resolves every location and merges the results.
//
// Sources are read concurrently but validated in list order, so the first
// conflicting source in the list is the one reported. The keyspace name of
// the first source that declares one is authoritative; flat sources that
// declare none inherit it. Declared names must agree even when WithKeyspace
// is given; the override only renames the merged dataset. Lifecycle options
// apply to the merged dataset.
func NewMultiSource(resolver Resolver, locations []string, opts ...Option) (*MultiSource, error) {
	if len(locations) == 0 {
		return nil, &core.InvalidArgumentError{Argument: "locations", Reason: "at least one dataset location is required"}
	}

	o := newOptions(opts)
	if resolver == nil {
		resolver = o.resolver
	}

	lines := make([][]string, len(locations))
	errs := make([]error, len(locations))

	var g errgroup.Group
	g.SetLimit(maxConcurrentResolves)
	for i, location := range locations {
		g.Go(func() error {
			lines[i], errs[i] = resolve(resolver, location)
			return nil
		})
	}
	_ = g.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	m := &MultiSource{
		locations: append([]string(nil), locations...),
		creation:  o.creation,
		deletion:  o.deletion,
	}

	// Components keep their declared keyspace so mismatches surface.
	declared := o
	declared.keyspace, declared.hasKeyspace = "", false

	merged := make(map[string]bool)
	for i, location := range locations {
		component, err := build(location, lines[i], declared)
		if err != nil {
			return nil, err
		}
		if err := m.add(location, component, merged, o.keyspace); err != nil {
			return nil, err
		}
	}
	if o.hasKeyspace {
		m.keyspace = o.keyspace
	}
	return m, nil
}

// add validates component against what is already merged, then appends it.
// A non-empty rename re-targets structured statements at that keyspace.
func (m *MultiSource) add(location string, component core.Dataset, merged map[string]bool, rename string) error {
	if name := component.KeyspaceName(); name != "" {
		switch {
		case m.keyspace == "":
			m.keyspace = name
		case m.keyspace != name:
			return &core.ConflictError{
				Kind:     core.ConflictKeyspace,
				Location: location,
				Expected: m.keyspace,
				Found:    name,
			}
		}
	}

	if s, ok := component.(core.StructuredDataset); ok {
		ks := s.Keyspace()
		var overlap []string
		for _, name := range ks.ColumnFamilyNames() {
			if merged[name] {
				overlap = append(overlap, name)
			}
		}
		if len(overlap) > 0 {
			sort.Strings(overlap)
			return &core.ConflictError{Kind: core.ConflictColumnFamily, Location: location, Names: overlap}
		}
		for _, name := range ks.ColumnFamilyNames() {
			merged[name] = true
		}

		if m.model == nil {
			m.model = ks
		} else {
			m.model.ColumnFamilies = append(m.model.ColumnFamilies, ks.ColumnFamilies...)
		}
	}

	m.components = append(m.components, component)
	statements := component.Statements()
	if s, ok := component.(core.StructuredDataset); ok && rename != "" {
		ks := s.Keyspace()
		ks.Name = rename
		statements = RenderKeyspace(ks)
	}
	m.statements = append(m.statements, statements...)
	return nil
}

// MultiFromFiles merges scripts on disk.
func MultiFromFiles(paths []string, opts ...Option) (*MultiSource, error) {
	return NewMultiSource(FileResolver{}, paths, opts...)
}

// MultiFromFS merges scripts in fsys.
func MultiFromFS(fsys fs.FS, paths []string, opts ...Option) (*MultiSource, error) {
	return NewMultiSource(FSResolver{FS: fsys}, paths, opts...)
}

// Statements returns the concatenated statements of every source.
func (m *MultiSource) Statements() []string { return cloneStrings(m.statements) }

// KeyspaceName returns the agreed keyspace name, or "".
func (m *MultiSource) KeyspaceName() string { return m.keyspace }

// KeyspaceCreation reports whether the keyspace is created before loading.
func (m *MultiSource) KeyspaceCreation() bool { return m.creation }

// KeyspaceDeletion reports whether the keyspace is dropped before loading.
func (m *MultiSource) KeyspaceDeletion() bool { return m.deletion }

// Location returns the merged locations joined with commas.
func (m *MultiSource) Location() string { return strings.Join(m.locations, ",") }

// Components returns the datasets merged, in list order.
func (m *MultiSource) Components() []core.Dataset {
	return append([]core.Dataset(nil), m.components...)
}

// Keyspace returns the first structured source's keyspace metadata with the
// concatenated column family list. It is nil when every source is flat CQL.
func (m *MultiSource) Keyspace() *core.Keyspace {
	if m.model == nil {
		return nil
	}
	ks := *m.model
	ks.Name = m.keyspace
	ks.ColumnFamilies = append([]core.ColumnFamily(nil), m.model.ColumnFamilies...)
	return &ks
}
