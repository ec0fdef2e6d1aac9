package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/cqlunit/pkg/cqlunit"
	"github.com/leapstack-labs/cqlunit/pkg/dataset"
)

// StartOptions holds the start command flags.
type StartOptions struct {
	Schema  string
	Image   string
	Timeout string
}

// NewStartCommand creates the start command.
func NewStartCommand() *cobra.Command {
	opts := StartOptions{}

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a disposable Cassandra node",
		Long: `Start a single Cassandra node in a container, optionally load a
schema into it, print the contact point and keep it running until
interrupted. Requires Docker.`,
		Example: `  # Start a node on a random port
  cqlunit start

  # Start on 9042 and load a schema
  cqlunit start -p 9042 --schema schema.cql --timeout 2m`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStart(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Schema, "schema", "s", "", "Schema to load once the node is up")
	cmd.Flags().StringVar(&opts.Image, "image", cqlunit.DefaultImage, "Cassandra image")
	cmd.Flags().StringVar(&opts.Timeout, "timeout", cqlunit.DefaultStartupTimeout.String(), "Startup timeout")
	return cmd
}

func runStart(cmd *cobra.Command, opts StartOptions) error {
	cc := NewCommandContext(cmd)
	ctx := cmd.Context()

	timeout, err := parseTimeout(opts.Timeout)
	if err != nil {
		return err
	}

	port := 0
	if cmd.Flags().Changed("port") {
		port = cc.Cfg.Target.Port
	}

	cc.Renderer.Println("Starting Cassandra...")
	cluster, err := cqlunit.StartCluster(ctx, cqlunit.Config{
		Image:          opts.Image,
		Port:           port,
		StartupTimeout: timeout,
		Logger:         cc.Logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := cluster.Close(context.WithoutCancel(ctx)); err != nil {
			cc.Logger.Warn("failed to stop cluster", slog.String("error", err.Error()))
		}
	}()

	if opts.Schema != "" {
		if err := loadSchema(ctx, cc, cluster, opts.Schema); err != nil {
			return err
		}
	}

	cc.Renderer.Success(fmt.Sprintf("Cassandra is listening on %s", cluster.ContactPoint()))
	cc.Renderer.Println("Press Ctrl+C to stop.")
	<-ctx.Done()
	return nil
}

// loadSchema loads a schema file the way the command-line loader does:
// the keyspace is not created by cqlunit.
func loadSchema(ctx context.Context, cc *CommandContext, cluster *cqlunit.Cluster, schema string) error {
	ds, err := dataset.Open(nil, schema, dataset.WithKeyspaceCreation(false))
	if err != nil {
		return err
	}
	sess, err := cluster.Session(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()

	res, err := cc.NewLoader(sess, nil).Load(ctx, ds)
	if err != nil {
		return fmt.Errorf("failed to load schema: %w", err)
	}
	cc.Renderer.Success(fmt.Sprintf("Loaded %s (%d statements)", res.Location, res.Executed))
	return nil
}

// parseTimeout accepts a Go duration or a bare number of milliseconds.
func parseTimeout(s string) (time.Duration, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		if ms <= 0 {
			return 0, fmt.Errorf("timeout must be positive, got %s", s)
		}
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: want a duration such as 90s or milliseconds", s)
	}
	if d <= 0 {
		return 0, fmt.Errorf("timeout must be positive, got %s", s)
	}
	return d, nil
}
