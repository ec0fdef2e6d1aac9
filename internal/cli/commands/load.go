package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/cqlunit/internal/cli/output"
	"github.com/leapstack-labs/cqlunit/internal/state"
	"github.com/leapstack-labs/cqlunit/pkg/core"
	"github.com/leapstack-labs/cqlunit/pkg/dataset"
	"github.com/leapstack-labs/cqlunit/pkg/executor"
	"github.com/leapstack-labs/cqlunit/pkg/loader"
)

// LoadOptions holds the load command flags.
type LoadOptions struct {
	Files     []string
	Keyspace  string
	Create    bool
	Drop      bool
	Strict    bool
	Merge     bool
	Watch     bool
	NoJournal bool
	Debounce  time.Duration
}

// datasetOptions translates the flags into dataset options.
func (o LoadOptions) datasetOptions() []dataset.Option {
	opts := []dataset.Option{
		dataset.WithKeyspaceCreation(o.Create),
		dataset.WithKeyspaceDeletion(o.Drop),
	}
	if o.Keyspace != "" {
		opts = append(opts, dataset.WithKeyspace(o.Keyspace))
	}
	if o.Strict {
		opts = append(opts, dataset.WithStrictLexing())
	}
	return opts
}

// NewLoadCommand creates the load command.
func NewLoadCommand() *cobra.Command {
	opts := LoadOptions{}

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load datasets into a cluster",
		Long: `Load one or more datasets into the configured target.

Files are loaded in order as one batch: only the first may drop or create
the keyspace. The format is taken from the extension: .cql and .sql are
statement files, .json, .yaml and .yml are structured keyspace datasets.

Output adapts to environment:
  - Terminal: Styled, colored output
  - Piped/Scripted: Markdown format (agent-friendly)

Use --output to override: auto, text, markdown, json`,
		Example: `  # Load a schema into a local node
  cqlunit load -H 127.0.0.1 -p 9042 -f schema.cql

  # Load a schema and its data, recreating the keyspace
  cqlunit load -f schema.cql -f data.yaml --keyspace shop --create

  # Reload whenever a file changes
  cqlunit load -f schema.cql --watch`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLoad(cmd, opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Files, "file", "f", nil, "Dataset to load (repeatable)")
	cmd.Flags().StringVar(&opts.Keyspace, "keyspace", "", "Keyspace to load into, replacing any name a dataset declares")
	cmd.Flags().BoolVar(&opts.Create, "create", false, "Create the keyspace before loading")
	cmd.Flags().BoolVar(&opts.Drop, "drop", true, "Drop the keyspace before loading")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "Reject unterminated strings and comments")
	cmd.Flags().BoolVar(&opts.Merge, "merge", false, "Merge all files into one dataset (keyspace and tables must agree)")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Reload when a dataset file changes")
	cmd.Flags().BoolVar(&opts.NoJournal, "no-journal", false, "Do not record the load in the journal")
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", 200*time.Millisecond, "Quiet period before reloading in watch mode")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runLoad(cmd *cobra.Command, opts LoadOptions) error {
	cc := NewCommandContext(cmd)
	ctx := cmd.Context()

	sess, err := cc.OpenSession(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()

	var store state.Store
	if !opts.NoJournal {
		s, err := cc.OpenJournal()
		if err != nil {
			// loading goes on without a journal
			cc.Logger.Warn("journal disabled", slog.String("error", err.Error()))
		} else {
			defer func() { _ = s.Close() }()
			store = s
		}
	}

	if err := LoadFiles(ctx, cc, sess, store, opts); err != nil {
		if !opts.Watch {
			return err
		}
		cc.Renderer.Error(err.Error())
	}
	if !opts.Watch {
		return nil
	}

	cc.Renderer.Println("Watching for changes (Ctrl+C to stop)...")
	return WatchFiles(ctx, opts.Files, opts.Debounce, cc.Logger, func() error {
		return LoadFiles(ctx, cc, sess, store, opts)
	})
}

// OpenDatasets opens the files as a batch, or as one merged dataset.
func OpenDatasets(opts LoadOptions) ([]core.Dataset, error) {
	if len(opts.Files) == 0 {
		return nil, &core.InvalidArgumentError{Argument: "file", Reason: "at least one dataset is required"}
	}
	dsOpts := opts.datasetOptions()

	if opts.Merge {
		ms, err := dataset.MultiFromFiles(opts.Files, dsOpts...)
		if err != nil {
			return nil, err
		}
		return []core.Dataset{ms}, nil
	}

	datasets := make([]core.Dataset, 0, len(opts.Files))
	for _, f := range opts.Files {
		ds, err := dataset.Open(nil, f, dsOpts...)
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, ds)
	}
	return datasets, nil
}

// LoadFiles opens and loads the datasets once, journaling the batch when
// store is non-nil, and renders the results.
func LoadFiles(ctx context.Context, cc *CommandContext, exec executor.Executor, store state.Store, opts LoadOptions) error {
	datasets, err := OpenDatasets(opts)
	if err != nil {
		return err
	}

	var journal loader.Journal
	var batch *state.Batch
	if store != nil {
		batch, err = store.BeginBatch(ctx, cc.Cfg.Target.Endpoint())
		if err != nil {
			cc.Logger.Warn("failed to begin journal batch", slog.String("error", err.Error()))
		} else {
			journal = state.Journal{Store: store, BatchID: batch.ID}
		}
	}

	start := time.Now()
	results, loadErr := cc.NewLoader(exec, journal).LoadBatch(ctx, datasets)

	if batch != nil {
		if err := store.CompleteBatch(context.WithoutCancel(ctx), batch.ID, loadErr); err != nil {
			cc.Logger.Warn("failed to complete journal batch", slog.String("error", err.Error()))
		}
	}

	if err := renderLoad(cc.Renderer, results, time.Since(start), loadErr); err != nil {
		return err
	}
	if loadErr != nil {
		return fmt.Errorf("load failed: %w", loadErr)
	}
	return nil
}

// loadOutput is the JSON shape of a load.
type loadOutput struct {
	Results  []loadResultJSON `json:"results"`
	Duration string           `json:"duration"`
	Error    string           `json:"error,omitempty"`
}

type loadResultJSON struct {
	Location   string `json:"location"`
	Keyspace   string `json:"keyspace"`
	Dropped    bool   `json:"dropped"`
	Created    bool   `json:"created"`
	Statements int    `json:"statements"`
	Executed   int    `json:"executed"`
	Duration   string `json:"duration"`
}

func renderLoad(r *output.Renderer, results []loader.Result, elapsed time.Duration, loadErr error) error {
	if r.EffectiveMode() == output.ModeJSON {
		out := loadOutput{
			Results:  make([]loadResultJSON, 0, len(results)),
			Duration: elapsed.Round(time.Millisecond).String(),
		}
		for _, res := range results {
			out.Results = append(out.Results, loadResultJSON{
				Location:   res.Location,
				Keyspace:   res.Keyspace,
				Dropped:    res.Dropped,
				Created:    res.Created,
				Statements: res.Statements,
				Executed:   res.Executed,
				Duration:   res.Duration.Round(time.Millisecond).String(),
			})
		}
		if loadErr != nil {
			out.Error = loadErr.Error()
		}
		return r.JSON(out)
	}

	r.Header(1, fmt.Sprintf("Loaded %d dataset(s)", countLoaded(results, loadErr)))

	rows := make([][]string, 0, len(results))
	for i, res := range results {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			res.Location,
			res.Keyspace,
			yesNo(res.Dropped),
			yesNo(res.Created),
			fmt.Sprintf("%d/%d", res.Executed, res.Statements),
			res.Duration.Round(time.Millisecond).String(),
		})
	}
	r.Table([]string{"#", "location", "keyspace", "dropped", "created", "executed", "duration"}, rows)

	if loadErr != nil {
		var execErr *core.ExecutionError
		if errors.As(loadErr, &execErr) {
			r.Error(fmt.Sprintf("%s: %q", execErr.Location, execErr.Statement))
		}
		return nil
	}
	r.Success(fmt.Sprintf("Loading completed in %s", elapsed.Round(time.Millisecond)))
	return nil
}

func countLoaded(results []loader.Result, err error) int {
	if err != nil && len(results) > 0 {
		return len(results) - 1
	}
	return len(results)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
