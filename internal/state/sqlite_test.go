package state

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/cqlunit/internal/testutil"
	"github.com/leapstack-labs/cqlunit/pkg/core"
	"github.com/leapstack-labs/cqlunit/pkg/dataset"
	"github.com/leapstack-labs/cqlunit/pkg/loader"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(":memory:"))
	require.NoError(t, store.Migrate())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_OpenClose(t *testing.T) {
	store := NewSQLiteStore(nil)
	require.NoError(t, store.Open(filepath.Join(t.TempDir(), "journal.db")))
	require.NoError(t, store.Migrate())

	version, err := store.MigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	// migrating twice is a no-op
	require.NoError(t, store.Migrate())
	require.NoError(t, store.Close())
}

func TestSQLiteStore_NotOpened(t *testing.T) {
	store := NewSQLiteStore(nil)
	ctx := context.Background()

	assert.Error(t, store.Migrate())
	_, err := store.BeginBatch(ctx, "x")
	assert.Error(t, err)
	assert.Error(t, store.CompleteBatch(ctx, "x", nil))
	assert.Error(t, store.RecordLoad(ctx, "x", loader.Record{}))
	_, err = store.Batches(ctx, 1)
	assert.Error(t, err)
	assert.NoError(t, store.Close())
}

func TestSQLiteStore_BatchLifecycle(t *testing.T) {
	tests := []struct {
		name       string
		loads      []loader.Record
		batchErr   error
		wantStatus Status
	}{
		{
			name: "succeeded",
			loads: []loader.Record{
				{Location: "a.cql", Keyspace: "ks", BatchIndex: 0, Statements: 3, Executed: 3, Duration: 1500 * time.Millisecond},
				{Location: "b.cql", Keyspace: "ks", BatchIndex: 1, Statements: 1, Executed: 1},
			},
			wantStatus: StatusSucceeded,
		},
		{
			name: "failed",
			loads: []loader.Record{
				{Location: "a.cql", Keyspace: "ks", Statements: 3, Executed: 1, Err: errors.New("boom")},
			},
			batchErr:   errors.New("boom"),
			wantStatus: StatusFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := setupTestStore(t)

			batch, err := store.BeginBatch(ctx, "cassandra://127.0.0.1:9042")
			require.NoError(t, err)
			assert.NotEmpty(t, batch.ID)
			assert.Equal(t, StatusRunning, batch.Status)

			for _, rec := range tt.loads {
				rec.StartedAt = time.Now()
				require.NoError(t, store.RecordLoad(ctx, batch.ID, rec))
			}
			require.NoError(t, store.CompleteBatch(ctx, batch.ID, tt.batchErr))

			batches, err := store.Batches(ctx, 10)
			require.NoError(t, err)
			require.Len(t, batches, 1)

			got := batches[0]
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.NotNil(t, got.CompletedAt)
			require.Len(t, got.Loads, len(tt.loads))

			for i, rec := range tt.loads {
				assert.Equal(t, rec.Location, got.Loads[i].Location)
				assert.Equal(t, rec.Executed, got.Loads[i].Executed)
				assert.Equal(t, rec.Duration.Truncate(time.Millisecond), got.Loads[i].Duration)
				if rec.Err != nil {
					assert.Equal(t, StatusFailed, got.Loads[i].Status)
					assert.Equal(t, rec.Err.Error(), got.Loads[i].Error)
				} else {
					assert.Equal(t, StatusSucceeded, got.Loads[i].Status)
					assert.Empty(t, got.Loads[i].Error)
				}
			}
		})
	}
}

func TestSQLiteStore_CompleteUnknownBatch(t *testing.T) {
	store := setupTestStore(t)
	err := store.CompleteBatch(context.Background(), "missing", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch not found")
}

func TestSQLiteStore_BatchesNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	var ids []string
	for range 3 {
		b, err := store.BeginBatch(ctx, "t")
		require.NoError(t, err)
		ids = append(ids, b.ID)
	}

	batches, err := store.Batches(ctx, 2)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, ids[2], batches[0].ID)
	assert.Equal(t, ids[1], batches[1].ID)
}

func TestJournal_WithLoader(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	batch, err := store.BeginBatch(ctx, "fake")
	require.NoError(t, err)

	first, err := dataset.FromText("CREATE TABLE t1 (id int PRIMARY KEY);", dataset.WithKeyspace("ks"))
	require.NoError(t, err)
	second, err := dataset.FromText("CREATE TABLE t2 (id int PRIMARY KEY);", dataset.WithKeyspace("ks"))
	require.NoError(t, err)

	l := loader.New(testutil.NewFakeCluster(), loader.WithJournal(Journal{Store: store, BatchID: batch.ID}))
	_, err = l.LoadBatch(ctx, []core.Dataset{first, second})
	require.NoError(t, err)
	require.NoError(t, store.CompleteBatch(ctx, batch.ID, nil))

	batches, err := store.Batches(ctx, 1)
	require.NoError(t, err)
	require.Len(t, batches[0].Loads, 2)
	assert.Equal(t, dataset.InlineLocation, batches[0].Loads[0].Location)
	assert.Equal(t, 1, batches[0].Loads[1].BatchIndex)
}
