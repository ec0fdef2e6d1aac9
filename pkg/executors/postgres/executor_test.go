package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/cqlunit/internal/testutil"
	"github.com/leapstack-labs/cqlunit/pkg/dataset"
	"github.com/leapstack-labs/cqlunit/pkg/executor"
	"github.com/leapstack-labs/cqlunit/pkg/loader"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  executor.Config
		want string
	}{
		{
			name: "defaults",
			cfg:  executor.Config{Database: "app"},
			want: "host=localhost port=5432 dbname=app sslmode=disable",
		},
		{
			name: "full",
			cfg: executor.Config{
				Hosts:    []string{"db.internal", "ignored"},
				Port:     6543,
				Database: "app",
				Username: "u",
				Password: "p",
				Timeout:  5 * time.Second,
				Options:  map[string]string{"sslmode": "require"},
			},
			want: "host=db.internal port=6543 dbname=app sslmode=require user=u password=p connect_timeout=5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildDSN(tt.cfg))
		})
	}
}

func newMocked(t *testing.T) (*Executor, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	e := New(testutil.NewTestLogger(t))
	e.DB = db
	return e, mock
}

func TestLoadThroughPostgresDialect(t *testing.T) {
	e, mock := newMocked(t)

	mock.ExpectExec("DROP SCHEMA IF EXISTS ks CASCADE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE SCHEMA IF NOT EXISTS ks").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SET search_path TO ks").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE users (id int PRIMARY KEY)").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SET search_path TO ks").WillReturnResult(sqlmock.NewResult(0, 0))

	ds, err := dataset.FromText("CREATE TABLE users (id int PRIMARY KEY);", dataset.WithKeyspace("ks"))
	require.NoError(t, err)

	_, err = loader.New(e).Load(context.Background(), ds)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInspector(t *testing.T) {
	e, mock := newMocked(t)
	mock.MatchExpectationsInOrder(true)

	mock.ExpectQuery(`
		SELECT schema_name
		FROM information_schema.schemata
		WHERE schema_name NOT IN ('information_schema', 'public')
		  AND schema_name NOT LIKE 'pg\_%'
		ORDER BY schema_name
	`).WillReturnRows(sqlmock.NewRows([]string{"schema_name"}).AddRow("ks").AddRow("other"))

	mock.ExpectQuery(`
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`).WithArgs("ks").WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("users"))

	keyspaces, err := e.Keyspaces(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ks", "other"}, keyspaces)

	tables, err := e.Tables(context.Background(), "ks")
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, tables)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistered(t *testing.T) {
	assert.True(t, executor.IsRegistered(Name))
}
