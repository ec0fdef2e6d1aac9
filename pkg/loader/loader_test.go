package loader

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/cqlunit/internal/testutil"
	"github.com/leapstack-labs/cqlunit/pkg/core"
	"github.com/leapstack-labs/cqlunit/pkg/dataset"
	"github.com/leapstack-labs/cqlunit/pkg/executor"
)

const createKs = "CREATE KEYSPACE IF NOT EXISTS %s WITH replication={'class':'SimpleStrategy','replication_factor':1} AND durable_writes=false"

func mustText(t *testing.T, text string, opts ...dataset.Option) *dataset.CQL {
	t.Helper()
	ds, err := dataset.FromText(text, opts...)
	require.NoError(t, err)
	return ds
}

func count(statements []string, prefix string) int {
	n := 0
	for _, s := range statements {
		if strings.HasPrefix(s, prefix) {
			n++
		}
	}
	return n
}

func TestLoad_Phases(t *testing.T) {
	tests := []struct {
		name string
		opts []dataset.Option
		want []string
	}{
		{
			name: "named keyspace",
			opts: []dataset.Option{dataset.WithKeyspace("MyKs")},
			want: []string{
				"DROP KEYSPACE IF EXISTS myks",
				strings.ReplaceAll(createKs, "%s", "myks"),
				"USE myks",
				"CREATE TABLE t (id int PRIMARY KEY)",
				"INSERT INTO t (id) VALUES (1)",
				"USE myks",
			},
		},
		{
			name: "default keyspace",
			want: []string{
				"DROP KEYSPACE IF EXISTS cassandraunitkeyspace",
				strings.ReplaceAll(createKs, "%s", "cassandraunitkeyspace"),
				"USE cassandraunitkeyspace",
				"CREATE TABLE t (id int PRIMARY KEY)",
				"INSERT INTO t (id) VALUES (1)",
			},
		},
		{
			name: "no lifecycle",
			opts: []dataset.Option{
				dataset.WithKeyspace("ks"),
				dataset.WithKeyspaceCreation(false),
				dataset.WithKeyspaceDeletion(false),
			},
			want: []string{
				"CREATE TABLE t (id int PRIMARY KEY)",
				"INSERT INTO t (id) VALUES (1)",
				"USE ks",
			},
		},
		{
			name: "drop only",
			opts: []dataset.Option{dataset.WithKeyspaceCreation(false)},
			want: []string{
				"DROP KEYSPACE IF EXISTS cassandraunitkeyspace",
				"CREATE TABLE t (id int PRIMARY KEY)",
				"INSERT INTO t (id) VALUES (1)",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			exec := executor.ExecFunc(func(_ context.Context, stmt string) error {
				got = append(got, stmt)
				return nil
			})

			ds := mustText(t, "CREATE TABLE t (id int PRIMARY KEY);\nINSERT INTO t (id) VALUES (1);", tt.opts...)
			res, err := New(exec, WithLogger(testutil.NewTestLogger(t))).Load(context.Background(), ds)
			require.NoError(t, err)

			assert.Equal(t, tt.want, got)
			assert.Equal(t, 2, res.Statements)
			assert.Equal(t, 2, res.Executed)
			assert.Equal(t, core.EffectiveKeyspace(ds), res.Keyspace)
			assert.Equal(t, dataset.InlineLocation, res.Location)
		})
	}
}

func TestLoad_AgainstFakeCluster(t *testing.T) {
	cluster := testutil.NewFakeCluster()
	ds := mustText(t, "CREATE TABLE users (id int PRIMARY KEY);\nINSERT INTO users (id) VALUES (1);", dataset.WithKeyspace("ks"))

	_, err := New(cluster).Load(context.Background(), ds)
	require.NoError(t, err)

	assert.Equal(t, "ks", cluster.Current())
	tables, err := cluster.Tables(context.Background(), "ks")
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, tables)
}

func TestLoadBatch_OnlyFirstDropsAndCreates(t *testing.T) {
	cluster := testutil.NewFakeCluster()

	first := mustText(t, "CREATE TABLE a (id int PRIMARY KEY);", dataset.WithKeyspace("ks"))
	second := mustText(t, "CREATE TABLE b (id int PRIMARY KEY);\nINSERT INTO a (id) VALUES (1);", dataset.WithKeyspace("ks"))

	results, err := New(cluster).LoadBatch(context.Background(), []core.Dataset{first, second})
	require.NoError(t, err)
	require.Len(t, results, 2)

	executed := cluster.Executed()
	assert.Equal(t, 1, count(executed, "DROP KEYSPACE"))
	assert.Equal(t, 1, count(executed, "CREATE KEYSPACE"))
	assert.Equal(t, "USE ks", executed[2], "initial USE follows create")

	assert.True(t, results[0].Dropped)
	assert.True(t, results[0].Created)
	assert.False(t, results[1].Dropped)
	assert.False(t, results[1].Created)

	// data from the first dataset survived the second
	snap := cluster.Snapshot()
	assert.Contains(t, snap["ks"]["a"], "rows=1")
	assert.Contains(t, snap["ks"], "b")
}

func TestLoadBatch_StopsAtFirstFailure(t *testing.T) {
	cluster := testutil.NewFakeCluster()

	first := mustText(t, "CREATE TABLE a (id int PRIMARY KEY);", dataset.WithKeyspace("ks"))
	broken := mustText(t, "INSERT INTO missing (id) VALUES (1);", dataset.WithKeyspace("ks"))
	third := mustText(t, "CREATE TABLE c (id int PRIMARY KEY);", dataset.WithKeyspace("ks"))

	results, err := New(cluster).LoadBatch(context.Background(), []core.Dataset{first, broken, third})
	require.Error(t, err)
	assert.Len(t, results, 2)
	assert.NotContains(t, cluster.Snapshot()["ks"], "c")
}

func TestLoad_StatementFailure(t *testing.T) {
	cause := errors.New("syntax error")
	cluster := testutil.NewFakeCluster()
	cluster.FailOn = func(stmt string) error {
		if strings.HasPrefix(stmt, "BROKEN") {
			return cause
		}
		return nil
	}

	ds := mustText(t, "CREATE TABLE t (id int PRIMARY KEY);\nBROKEN;\nINSERT INTO t (id) VALUES (1);", dataset.WithKeyspace("ks"))
	res, err := New(cluster).Load(context.Background(), ds)
	require.Error(t, err)

	assert.ErrorIs(t, err, core.ErrExecutorFailure)
	assert.ErrorIs(t, err, cause)

	var execErr *core.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "BROKEN", execErr.Statement)
	assert.Equal(t, 1, execErr.Index)
	assert.Equal(t, 1, execErr.Executed)
	assert.Equal(t, 1, res.Executed)

	assert.NotContains(t, cluster.Executed(), "INSERT INTO t (id) VALUES (1)")
	assert.NotEqual(t, "USE ks", cluster.Executed()[len(cluster.Executed())-1])
}

func TestLoad_LifecycleFailure(t *testing.T) {
	exec := executor.ExecFunc(func(_ context.Context, stmt string) error {
		if strings.HasPrefix(stmt, "DROP") {
			return errors.New("unauthorized")
		}
		return nil
	})

	_, err := New(exec).Load(context.Background(), mustText(t, "SELECT 1;"))
	var execErr *core.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, -1, execErr.Index)
	assert.Equal(t, "DROP KEYSPACE IF EXISTS cassandraunitkeyspace", execErr.Statement)
}

func TestLoad_Idempotent(t *testing.T) {
	cluster := testutil.NewFakeCluster()
	ds := mustText(t, "CREATE TABLE t (id int PRIMARY KEY, v text);", dataset.WithKeyspace("ks"))
	l := New(cluster)

	_, err := l.Load(context.Background(), ds)
	require.NoError(t, err)
	once := cluster.Snapshot()

	_, err = l.Load(context.Background(), ds)
	require.NoError(t, err)
	assert.Equal(t, once, cluster.Snapshot())
}

func TestLoad_EmptyStatementIsPassedThrough(t *testing.T) {
	var got []string
	exec := executor.ExecFunc(func(_ context.Context, stmt string) error {
		got = append(got, stmt)
		return nil
	})

	ds := mustText(t, "a;;b;", dataset.WithKeyspaceCreation(false), dataset.WithKeyspaceDeletion(false))
	res, err := New(exec).Load(context.Background(), ds)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "", "b"}, got)
	assert.Equal(t, 3, res.Executed)
}

type schemaExec struct {
	executor.ExecFunc
}

func (schemaExec) KeyspaceDialect() core.KeyspaceDialect {
	return core.SchemaDialect{UseTemplate: "SET search_path TO %s", Cascade: true}
}

func TestLoad_Dialects(t *testing.T) {
	var got []string
	record := executor.ExecFunc(func(_ context.Context, stmt string) error {
		got = append(got, stmt)
		return nil
	})
	ds := mustText(t, "", dataset.WithKeyspace("ks"))

	_, err := New(schemaExec{record}).Load(context.Background(), ds)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"DROP SCHEMA IF EXISTS ks CASCADE",
		"CREATE SCHEMA IF NOT EXISTS ks",
		"SET search_path TO ks",
		"SET search_path TO ks",
	}, got)

	got = nil
	_, err = New(record, WithDialect(core.CQLDialect{ReplicationFactor: 3})).Load(context.Background(), ds)
	require.NoError(t, err)
	assert.Contains(t, got[1], "'replication_factor':3}")
}

func TestLoad_InvalidArguments(t *testing.T) {
	_, err := New(testutil.NewFakeCluster()).Load(context.Background(), nil)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	_, err = New(nil).Load(context.Background(), mustText(t, "SELECT 1;"))
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestLoad_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	exec := executor.ExecFunc(func(_ context.Context, stmt string) error {
		if stmt == "first" {
			cancel()
		}
		return nil
	})

	ds := mustText(t, "first;second;", dataset.WithKeyspaceCreation(false), dataset.WithKeyspaceDeletion(false))
	res, err := New(exec).Load(ctx, ds)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, res.Executed)
}

func TestLoad_Journal(t *testing.T) {
	var records []Record
	journal := JournalFunc(func(_ context.Context, rec Record) error {
		records = append(records, rec)
		return errors.New("journal unavailable")
	})

	cluster := testutil.NewFakeCluster()
	cluster.FailOn = func(stmt string) error {
		if stmt == "BROKEN" {
			return errors.New("boom")
		}
		return nil
	}

	ok := mustText(t, "CREATE TABLE t (id int PRIMARY KEY);", dataset.WithKeyspace("ks"))
	bad := mustText(t, "BROKEN;", dataset.WithKeyspace("ks"))

	l := New(cluster, WithJournal(journal), WithLogger(testutil.NewTestLogger(t)))
	_, err := l.LoadBatch(context.Background(), []core.Dataset{ok, bad})
	require.Error(t, err)

	require.Len(t, records, 2)
	assert.NoError(t, records[0].Err)
	assert.Equal(t, 0, records[0].BatchIndex)
	assert.Equal(t, 1, records[0].Executed)
	assert.Equal(t, "ks", records[0].Keyspace)

	assert.Error(t, records[1].Err)
	assert.Equal(t, 1, records[1].BatchIndex)
	assert.Equal(t, 0, records[1].Executed)
}
