package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/cqlunit/pkg/executor"

	// Register executors so target types validate.
	_ "github.com/leapstack-labs/cqlunit/pkg/executors/cassandra"
	_ "github.com/leapstack-labs/cqlunit/pkg/executors/duckdb"
	_ "github.com/leapstack-labs/cqlunit/pkg/executors/postgres"
)

func testFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringSliceP("host", "H", nil, "")
	flags.IntP("port", "p", 0, "")
	flags.String("type", "", "")
	flags.String("journal", "", "")
	flags.Int("replication-factor", 0, "")
	flags.String("env", "", "")
	flags.StringP("output", "o", "", "")
	flags.Bool("strict", false, "")
	return flags
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultTargetType, cfg.Target.Type)
	assert.Equal(t, DefaultJournalFile, cfg.JournalPath)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.Zero(t, cfg.ReplicationFactor)
	assert.Empty(t, cfg.File)
}

func TestLoad_File(t *testing.T) {
	t.Setenv("CQLUNIT_TEST_USER", "cassandra")
	t.Setenv("CQLUNIT_TEST_PASSWORD", "s3cret")

	path, err := filepath.Abs(filepath.Join("testdata", "cassandra.yaml"))
	require.NoError(t, err)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.Target.Hosts)
	assert.Equal(t, 9142, cfg.Target.Port)
	assert.Equal(t, "cassandra", cfg.Target.Username)
	assert.Equal(t, "s3cret", cfg.Target.Password)
	assert.Equal(t, 5*time.Second, cfg.Target.Timeout)
	assert.Equal(t, 3, cfg.ReplicationFactor)
	assert.Equal(t, "dc1", cfg.Target.Params["local_dc"])
	assert.Equal(t, filepath.Join(filepath.Dir(path), "state", "journal.db"), cfg.JournalPath)
}

func TestLoad_SearchesUpward(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFileNameAlt),
		[]byte("target:\n  type: duckdb\n"), 0o600))
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o750))
	t.Chdir(nested)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "duckdb", cfg.Target.Type)
	assert.Equal(t, ConfigFileNameAlt, filepath.Base(cfg.File))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoad_InvalidType(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "invalid_type.yaml"), nil)
	require.Error(t, err)

	var unknown *executor.UnknownExecutorError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "mysql", unknown.Type)
	assert.Contains(t, unknown.Available, "cassandra")
}

func TestLoad_Environments(t *testing.T) {
	cfgPath := filepath.Join("testdata", "environments.yaml")

	tests := []struct {
		name        string
		env         string
		wantType    string
		wantHosts   []string
		wantKS      string
		wantCL      string
		wantErrPart string
	}{
		{name: "base", wantType: "cassandra", wantHosts: []string{"127.0.0.1"}, wantKS: "fixtures"},
		{name: "type override", env: "local", wantType: "duckdb", wantHosts: []string{"127.0.0.1"}, wantKS: "fixtures"},
		{name: "partial override", env: "staging", wantType: "cassandra", wantHosts: []string{"cassandra.staging"}, wantKS: "fixtures", wantCL: "local_quorum"},
		{name: "unknown", env: "prod", wantErrPart: `unknown environment "prod"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := testFlags()
			if tt.env != "" {
				require.NoError(t, flags.Parse([]string{"--env", tt.env}))
			}

			cfg, err := Load(cfgPath, flags)
			if tt.wantErrPart != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrPart)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, cfg.Target.Type)
			assert.Equal(t, tt.wantHosts, cfg.Target.Hosts)
			assert.Equal(t, tt.wantKS, cfg.Target.Keyspace)
			assert.Equal(t, tt.wantCL, cfg.Target.Consistency)
		})
	}
}

func TestLoad_Precedence(t *testing.T) {
	cfgPath := filepath.Join("testdata", "environments.yaml")

	t.Run("env over file", func(t *testing.T) {
		t.Setenv("CQLUNIT_TARGET__PORT", "19042")
		t.Setenv("CQLUNIT_REPLICATION_FACTOR", "2")

		cfg, err := Load(cfgPath, nil)
		require.NoError(t, err)
		assert.Equal(t, 19042, cfg.Target.Port)
		assert.Equal(t, 2, cfg.ReplicationFactor)
	})

	t.Run("flag over env", func(t *testing.T) {
		t.Setenv("CQLUNIT_TARGET__PORT", "19042")

		flags := testFlags()
		require.NoError(t, flags.Parse([]string{"-p", "29042", "-H", "db1,db2", "--type", "postgres"}))

		cfg, err := Load(cfgPath, flags)
		require.NoError(t, err)
		assert.Equal(t, 29042, cfg.Target.Port)
		assert.Equal(t, []string{"db1", "db2"}, cfg.Target.Hosts)
		assert.Equal(t, "postgres", cfg.Target.Type)
		assert.Equal(t, "fixtures", cfg.Target.Keyspace)
	})

	t.Run("unset flag keeps env", func(t *testing.T) {
		t.Setenv("CQLUNIT_TARGET__PORT", "19042")

		flags := testFlags()
		require.NoError(t, flags.Parse([]string{"--strict"}))

		cfg, err := Load(cfgPath, flags)
		require.NoError(t, err)
		assert.Equal(t, 19042, cfg.Target.Port)
	})

	t.Run("journal flag is not rebased", func(t *testing.T) {
		flags := testFlags()
		require.NoError(t, flags.Parse([]string{"--journal", "j.db"}))

		cfg, err := Load(cfgPath, flags)
		require.NoError(t, err)
		assert.Equal(t, "j.db", cfg.JournalPath)
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "valid", cfg: Config{Target: &TargetConfig{Type: "cassandra"}}},
		{name: "missing target", cfg: Config{}, wantErr: "target type is required"},
		{name: "negative rf", cfg: Config{ReplicationFactor: -1, Target: &TargetConfig{Type: "cassandra"}}, wantErr: "replication_factor"},
		{name: "bad output", cfg: Config{OutputFormat: "xml", Target: &TargetConfig{Type: "cassandra"}}, wantErr: "unknown output format"},
		{name: "bad port", cfg: Config{Target: &TargetConfig{Type: "cassandra", Port: 70000}}, wantErr: "port out of range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("CQLUNIT_TEST_VAR", "value")

	tests := []struct {
		in   string
		want string
	}{
		{"${CQLUNIT_TEST_VAR}", "value"},
		{"prefix-${CQLUNIT_TEST_VAR}-suffix", "prefix-value-suffix"},
		{"${CQLUNIT_TEST_UNSET}", "${CQLUNIT_TEST_UNSET}"},
		{"plain", "plain"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, expandEnvVars(tt.in), tt.in)
	}
}

func TestMergeTargetConfig(t *testing.T) {
	t.Run("nil base returns override", func(t *testing.T) {
		override := &TargetConfig{Type: "duckdb"}
		assert.Equal(t, override, MergeTargetConfig(nil, override))
	})

	t.Run("nil override returns base", func(t *testing.T) {
		base := &TargetConfig{Type: "cassandra"}
		assert.Equal(t, base, MergeTargetConfig(base, nil))
	})

	t.Run("override replaces set fields only", func(t *testing.T) {
		base := &TargetConfig{
			Type:    "cassandra",
			Hosts:   []string{"a"},
			Port:    9042,
			Timeout: time.Second,
			Params:  map[string]any{"local_dc": "dc1", "num_conns": 2},
		}
		override := &TargetConfig{
			Port:   9142,
			Params: map[string]any{"num_conns": 4},
		}

		got := MergeTargetConfig(base, override)
		assert.Equal(t, "cassandra", got.Type)
		assert.Equal(t, []string{"a"}, got.Hosts)
		assert.Equal(t, 9142, got.Port)
		assert.Equal(t, time.Second, got.Timeout)
		assert.Equal(t, map[string]any{"local_dc": "dc1", "num_conns": 4}, got.Params)

		// base is untouched
		assert.Equal(t, 2, base.Params["num_conns"])
	})
}

func TestTargetConfig_Endpoint(t *testing.T) {
	tests := []struct {
		target *TargetConfig
		want   string
	}{
		{nil, "cassandra"},
		{&TargetConfig{Type: "cassandra", Hosts: []string{"h"}, Port: 9042}, "cassandra://h:9042"},
		{&TargetConfig{Type: "postgres", Hosts: []string{"h"}}, "postgres://h"},
		{&TargetConfig{Type: "duckdb", Path: "x.db"}, "duckdb://x.db"},
		{&TargetConfig{Type: "duckdb"}, "duckdb"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.target.Endpoint())
	}
}

func TestTargetConfig_ExecutorConfig(t *testing.T) {
	target := &TargetConfig{Type: "cassandra", Hosts: []string{"h"}, Port: 9042, Keyspace: "ks"}
	got := target.ExecutorConfig()
	assert.Equal(t, "cassandra", got.Type)
	assert.Equal(t, "h", got.Host())
	assert.Equal(t, "ks", got.Keyspace)

	got.Hosts[0] = "changed"
	assert.Equal(t, "h", target.Hosts[0])
}

func TestGetConfig(t *testing.T) {
	def := GetConfig(context.Background())
	assert.Equal(t, DefaultTargetType, def.Target.Type)
	assert.Equal(t, DefaultJournalFile, def.JournalPath)

	cfg := &Config{Target: &TargetConfig{Type: "duckdb"}}
	ctx := context.WithValue(context.Background(), ConfigKey(), cfg)
	assert.Same(t, cfg, GetConfig(ctx))
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()))

	logger := slog.Default()
	ctx := context.WithValue(context.Background(), LoggerKey(), logger)
	assert.Same(t, logger, GetLogger(ctx))
}
