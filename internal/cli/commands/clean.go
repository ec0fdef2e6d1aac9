package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/cqlunit/pkg/cqlunit"
)

// NewCleanCommand creates the clean command.
func NewCleanCommand() *cobra.Command {
	var (
		keyspace string
		exclude  []string
	)

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Drop keyspaces or truncate tables",
		Long: `Without --keyspace, drop every non-system keyspace of the target.
With --keyspace, truncate its tables instead, keeping those in --exclude.`,
		Example: `  # Drop all user keyspaces
  cqlunit clean -H 127.0.0.1

  # Empty a keyspace but keep reference data
  cqlunit clean --keyspace shop --exclude countries,currencies`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContext(cmd)
			ctx := cmd.Context()

			sess, err := cc.OpenSession(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = sess.Close() }()

			if keyspace == "" {
				dropped, err := cqlunit.Clean(ctx, sess)
				if err != nil {
					return err
				}
				cc.Renderer.Success(fmt.Sprintf("Dropped %d keyspace(s): %s", len(dropped), strings.Join(dropped, ", ")))
				return nil
			}

			truncated, err := cqlunit.CleanData(ctx, sess, keyspace, exclude...)
			if err != nil {
				return err
			}
			cc.Renderer.Success(fmt.Sprintf("Truncated %d table(s) in %s: %s", len(truncated), keyspace, strings.Join(truncated, ", ")))
			return nil
		},
	}

	cmd.Flags().StringVar(&keyspace, "keyspace", "", "Truncate this keyspace's tables instead of dropping keyspaces")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Tables to keep when truncating")
	return cmd
}
