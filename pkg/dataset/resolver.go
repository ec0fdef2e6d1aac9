package dataset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/cqlunit/pkg/core"
	"github.com/leapstack-labs/cqlunit/pkg/cql"
)

// Resolver turns a location into the lines of a script.
// Implementations must be safe for concurrent use: NewMultiSource
// resolves its locations in parallel.
type Resolver interface {
	Resolve(location string) ([]string, error)
}

// FileResolver reads locations from the filesystem.
// Relative locations are resolved against Dir when it is set.
type FileResolver struct {
	Dir string
}

// Resolve implements Resolver.
func (r FileResolver) Resolve(location string) ([]string, error) {
	p := location
	if r.Dir != "" && !filepath.IsAbs(p) {
		p = filepath.Join(r.Dir, p)
	}

	info, err := os.Stat(p)
	if err != nil {
		return nil, &core.ResourceNotFoundError{Location: location, Err: err}
	}
	if info.IsDir() {
		return nil, &core.ResourceNotFoundError{Location: location, Err: errors.New("is a directory")}
	}

	f, err := os.Open(p) //nolint:gosec // fixture paths are caller supplied
	if err != nil {
		return nil, &core.ResourceNotFoundError{Location: location, Err: err}
	}
	defer func() { _ = f.Close() }()

	lines, err := cql.ReadLines(f)
	if err != nil {
		return nil, &core.ResourceNotFoundError{Location: location, Err: err}
	}
	return lines, nil
}

// FSResolver reads locations from an fs.FS such as an embed.FS.
// A leading slash is ignored, so "/fixtures/a.cql" and "fixtures/a.cql" are equivalent.
type FSResolver struct {
	FS fs.FS
}

// Resolve implements Resolver.
func (r FSResolver) Resolve(location string) ([]string, error) {
	if r.FS == nil {
		return nil, &core.ResourceNotFoundError{Location: location, Err: errors.New("no filesystem configured")}
	}
	name := path.Clean(strings.TrimPrefix(location, "/"))

	f, err := r.FS.Open(name)
	if err != nil {
		return nil, &core.ResourceNotFoundError{Location: location, Err: err}
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, &core.ResourceNotFoundError{Location: location, Err: err}
	}
	if info.IsDir() {
		return nil, &core.ResourceNotFoundError{Location: location, Err: errors.New("is a directory")}
	}

	lines, err := cql.ReadLines(f)
	if err != nil {
		return nil, &core.ResourceNotFoundError{Location: location, Err: err}
	}
	return lines, nil
}

// TextResolver treats the location itself as the script text.
type TextResolver struct{}

// Resolve implements Resolver.
func (TextResolver) Resolve(location string) ([]string, error) {
	return cql.ReadLines(strings.NewReader(location))
}

// resolve runs r and guarantees a *core.ResourceNotFoundError on failure.
func resolve(r Resolver, location string) ([]string, error) {
	if r == nil {
		r = FileResolver{}
	}
	lines, err := r.Resolve(location)
	if err == nil {
		return lines, nil
	}
	var notFound *core.ResourceNotFoundError
	if errors.As(err, &notFound) {
		return nil, err
	}
	return nil, &core.ResourceNotFoundError{Location: location, Err: fmt.Errorf("failed to resolve: %w", err)}
}
