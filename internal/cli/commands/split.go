package commands

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/cqlunit/internal/cli/output"
	"github.com/leapstack-labs/cqlunit/pkg/cql"
)

// NewSplitCommand creates the split command.
func NewSplitCommand() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "split [file...]",
		Short: "Show the statements a CQL file splits into",
		Long: `Run the statement lexer over CQL files and print each statement.

Comments are removed and statements end at semicolons outside strings and
comments. With no file, or "-", the statements are read from stdin.`,
		Example: `  # Check how a fixture is split
  cqlunit split schema.cql

  # Fail on unterminated strings or comments
  cqlunit split --strict schema.cql

  # Pipe statements in
  cat schema.cql | cqlunit split -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"-"}
			}
			cc := NewCommandContext(cmd)
			return runSplit(cc.Renderer, cmd.InOrStdin(), args, strict)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Report unterminated strings and comments as errors")
	return cmd
}

// splitOutput is the JSON shape of one split file.
type splitOutput struct {
	File       string   `json:"file"`
	Statements []string `json:"statements"`
}

func runSplit(r *output.Renderer, stdin io.Reader, files []string, strict bool) error {
	var all []splitOutput
	for _, f := range files {
		statements, err := splitFile(stdin, f, strict)
		if err != nil {
			return err
		}
		all = append(all, splitOutput{File: f, Statements: statements})
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(all)
	}

	for _, s := range all {
		r.Header(2, fmt.Sprintf("%s (%d statements)", displayName(s.File), len(s.Statements)))
		rows := make([][]string, len(s.Statements))
		for i, stmt := range s.Statements {
			rows[i] = []string{strconv.Itoa(i + 1), stmt}
		}
		r.Table([]string{"#", "statement"}, rows)
	}
	return nil
}

func splitFile(stdin io.Reader, file string, strict bool) ([]string, error) {
	var in io.Reader = stdin
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", file, err)
		}
		defer func() { _ = f.Close() }()
		in = f
	}

	lines, err := cql.ReadLines(in)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", displayName(file), err)
	}

	lexer := cql.NewLexer(lines)
	if !strict {
		return lexer.Statements(), nil
	}
	statements, err := lexer.StatementsStrict()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", displayName(file), err)
	}
	return statements, nil
}

func displayName(file string) string {
	if file == "-" {
		return "stdin"
	}
	return file
}
