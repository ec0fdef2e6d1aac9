package cqlunit

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/cqlunit/pkg/core"
	"github.com/leapstack-labs/cqlunit/pkg/dataset"
	"github.com/leapstack-labs/cqlunit/pkg/executor"
	"github.com/leapstack-labs/cqlunit/pkg/loader"
)

// DefaultDatasetDir is where Setup looks for a test's default dataset.
const DefaultDatasetDir = "testdata"

// DefaultDatasetSuffix names a test's default dataset: <TestName>-dataset.cql.
const DefaultDatasetSuffix = "-dataset.cql"

// DefaultDataset returns the path of the default dataset for t in dir.
// Subtest names use the top-level test name. ok is false if no such file exists.
func DefaultDataset(t testing.TB, dir string) (path string, ok bool) {
	t.Helper()
	name, _, _ := strings.Cut(t.Name(), "/")
	path = filepath.Join(dir, name+DefaultDatasetSuffix)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return path, false
	}
	return path, true
}

// Setup loads datasets as one batch before the test and drops every
// keyspace when it ends. Only the first dataset drops and creates its
// keyspace. With no datasets the default dataset is loaded if present.
func Setup(t testing.TB, exec executor.Executor, datasets ...core.Dataset) []loader.Result {
	t.Helper()

	if len(datasets) == 0 {
		path, ok := DefaultDataset(t, DefaultDatasetDir)
		if !ok {
			t.Logf("no dataset will be loaded (%s not found)", path)
		} else {
			ds, err := dataset.FromFile(path)
			if err != nil {
				t.Fatalf("failed to open default dataset: %v", err)
			}
			datasets = []core.Dataset{ds}
		}
	}

	t.Cleanup(func() {
		if _, err := Clean(context.Background(), exec); err != nil {
			t.Errorf("failed to clean keyspaces: %v", err)
		}
	})

	results, err := loader.New(exec).LoadBatch(context.Background(), datasets)
	if err != nil {
		t.Fatalf("failed to load datasets: %v", err)
	}
	return results
}

// SetupFiles opens each location (format detected from its extension) and
// loads them like Setup.
func SetupFiles(t testing.TB, exec executor.Executor, locations []string, opts ...dataset.Option) []loader.Result {
	t.Helper()
	datasets := make([]core.Dataset, 0, len(locations))
	for _, loc := range locations {
		ds, err := dataset.Open(nil, loc, opts...)
		if err != nil {
			t.Fatalf("failed to open dataset %s: %v", loc, err)
		}
		datasets = append(datasets, ds)
	}
	return Setup(t, exec, datasets...)
}

// Setup opens a session for the test, loads datasets like the package-level
// Setup and returns the session. The session is closed when the test ends.
func (c *Cluster) Setup(t testing.TB, datasets ...core.Dataset) executor.Session {
	t.Helper()
	sess, err := c.Session(context.Background())
	if err != nil {
		t.Fatalf("failed to open session: %v", err)
	}
	t.Cleanup(func() { _ = sess.Close() })
	Setup(t, sess, datasets...)
	return sess
}
