package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/cqlunit/internal/cli/output"
	"github.com/leapstack-labs/cqlunit/internal/state"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent loads from the journal",
		Long: `List the most recent load batches recorded by "cqlunit load",
newest first, with each dataset's outcome.`,
		Example: `  # Last 20 batches
  cqlunit history

  # Last batch as JSON
  cqlunit history --limit 1 -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContext(cmd)
			store, err := cc.OpenJournal()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			batches, err := store.Batches(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return renderHistory(cc.Renderer, batches)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of batches to show")
	return cmd
}

// historyJSON is the JSON shape of a batch.
type historyJSON struct {
	ID        string     `json:"id"`
	Target    string     `json:"target"`
	Status    string     `json:"status"`
	StartedAt time.Time  `json:"started_at"`
	Error     string     `json:"error,omitempty"`
	Loads     []loadJSON `json:"loads"`
}

type loadJSON struct {
	Index      int    `json:"index"`
	Location   string `json:"location"`
	Keyspace   string `json:"keyspace"`
	Statements int    `json:"statements"`
	Executed   int    `json:"executed"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	Duration   string `json:"duration"`
}

func renderHistory(r *output.Renderer, batches []*state.Batch) error {
	if r.EffectiveMode() == output.ModeJSON {
		out := make([]historyJSON, 0, len(batches))
		for _, b := range batches {
			h := historyJSON{
				ID:        b.ID,
				Target:    b.Target,
				Status:    string(b.Status),
				StartedAt: b.StartedAt,
				Error:     b.Error,
				Loads:     make([]loadJSON, 0, len(b.Loads)),
			}
			for _, l := range b.Loads {
				h.Loads = append(h.Loads, loadJSON{
					Index:      l.BatchIndex,
					Location:   l.Location,
					Keyspace:   l.Keyspace,
					Statements: l.Statements,
					Executed:   l.Executed,
					Status:     string(l.Status),
					Error:      l.Error,
					Duration:   l.Duration.String(),
				})
			}
			out = append(out, h)
		}
		return r.JSON(out)
	}

	if len(batches) == 0 {
		r.Println("No loads recorded.")
		return nil
	}

	r.Header(1, fmt.Sprintf("Load history (%d batches)", len(batches)))
	for _, b := range batches {
		r.StatusLine(shortID(b.ID), string(b.Status),
			fmt.Sprintf("%s  %s", b.Target, b.StartedAt.Local().Format(time.DateTime)))
		if len(b.Loads) == 0 {
			continue
		}
		rows := make([][]string, 0, len(b.Loads))
		for _, l := range b.Loads {
			rows = append(rows, []string{
				strconv.Itoa(l.BatchIndex + 1),
				l.Location,
				l.Keyspace,
				fmt.Sprintf("%d/%d", l.Executed, l.Statements),
				string(l.Status),
				l.Error,
			})
		}
		r.Table([]string{"#", "location", "keyspace", "executed", "status", "error"}, rows)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
