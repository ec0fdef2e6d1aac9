// Package commands implements the cqlunit subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/cqlunit/internal/cli/output"
	"github.com/leapstack-labs/cqlunit/internal/config"
	"github.com/leapstack-labs/cqlunit/internal/state"
	"github.com/leapstack-labs/cqlunit/pkg/core"
	"github.com/leapstack-labs/cqlunit/pkg/executor"
	"github.com/leapstack-labs/cqlunit/pkg/loader"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext reads the config and logger stored by the root command.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := config.GetConfig(cmd.Context())
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}
}

// OpenSession connects an executor for the configured target.
// The caller closes it.
func (c *CommandContext) OpenSession(ctx context.Context) (executor.Session, error) {
	ecfg := c.Cfg.Target.ExecutorConfig()
	sess, err := executor.New(ecfg, c.Logger)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("connecting", slog.String("target", c.Cfg.Target.Endpoint()))
	if err := sess.Connect(ctx, ecfg); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", c.Cfg.Target.Endpoint(), err)
	}
	return sess, nil
}

// Dialect returns the keyspace dialect for exec with the configured
// replication factor applied to CQL targets.
func (c *CommandContext) Dialect(exec executor.Executor) core.KeyspaceDialect {
	d := executor.DialectOf(exec, core.CQLDialect{})
	if cd, ok := d.(core.CQLDialect); ok && c.Cfg.ReplicationFactor > 0 {
		cd.ReplicationFactor = c.Cfg.ReplicationFactor
		return cd
	}
	return d
}

// NewLoader builds a loader for exec. journal may be nil.
func (c *CommandContext) NewLoader(exec executor.Executor, journal loader.Journal) *loader.Loader {
	opts := []loader.Option{
		loader.WithLogger(c.Logger),
		loader.WithDialect(c.Dialect(exec)),
	}
	if journal != nil {
		opts = append(opts, loader.WithJournal(journal))
	}
	return loader.New(exec, opts...)
}

// OpenJournal opens and migrates the load journal.
func (c *CommandContext) OpenJournal() (*state.SQLiteStore, error) {
	path := c.Cfg.JournalPath
	if path == "" {
		path = config.DefaultJournalFile
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	store := state.NewSQLiteStore(c.Logger)
	if err := store.Open(path); err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate journal: %w", err)
	}
	return store, nil
}
