package cql

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexer_Statements(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  []string
	}{
		{
			name:  "two statements",
			lines: []string{"CREATE TABLE t (a int);", "INSERT INTO t (a) VALUES (1);"},
			want:  []string{"CREATE TABLE t (a int)", "INSERT INTO t (a) VALUES (1)"},
		},
		{
			name:  "multi-line statement collapses newlines",
			lines: []string{"CREATE TABLE t (", "  a int,", "  b text", ");"},
			want:  []string{"CREATE TABLE t ( a int, b text )"},
		},
		{
			name:  "lines are trimmed",
			lines: []string{"   SELECT * FROM t;   "},
			want:  []string{"SELECT * FROM t"},
		},
		{
			name:  "escaped single quote",
			lines: []string{"INSERT INTO t (v) VALUES ('some''thing');"},
			want:  []string{"INSERT INTO t (v) VALUES ('some''thing')"},
		},
		{
			name:  "escaped double quote",
			lines: []string{`SELECT "a""b" FROM t;`},
			want:  []string{`SELECT "a""b" FROM t`},
		},
		{
			name: "line comments in both styles",
			lines: []string{
				"// header",
				"CREATE TABLE a (x int);",
				"-- another",
				"INSERT INTO a (x) VALUES (1); // trailing",
				"INSERT INTO a (x) VALUES (2);",
			},
			want: []string{
				"CREATE TABLE a (x int)",
				"INSERT INTO a (x) VALUES (1)",
				"INSERT INTO a (x) VALUES (2)",
			},
		},
		{
			name: "block comment spanning lines",
			lines: []string{
				"CREATE TABLE a (x int); /* start",
				"still comment;",
				"end */ INSERT INTO a (x)",
				"VALUES (1);",
			},
			want: []string{"CREATE TABLE a (x int)", "INSERT INTO a (x) VALUES (1)"},
		},
		{
			name:  "semicolon inside quotes",
			lines: []string{"INSERT INTO t (v) VALUES ('a;b');"},
			want:  []string{"INSERT INTO t (v) VALUES ('a;b')"},
		},
		{
			name:  "comment markers inside quotes",
			lines: []string{"INSERT INTO t (v) VALUES ('http://x -- y /* z */');"},
			want:  []string{"INSERT INTO t (v) VALUES ('http://x -- y /* z */')"},
		},
		{
			name:  "double quote inside single quotes",
			lines: []string{`INSERT INTO t (v) VALUES ('say "hi"');`},
			want:  []string{`INSERT INTO t (v) VALUES ('say "hi"')`},
		},
		{
			name:  "newline inside quotes is kept",
			lines: []string{"INSERT INTO t (v) VALUES ('line1", "line2');"},
			want:  []string{"INSERT INTO t (v) VALUES ('line1\nline2')"},
		},
		{
			name:  "double semicolon yields empty statement",
			lines: []string{"a;;b;"},
			want:  []string{"a", "", "b"},
		},
		{
			name:  "trailing statement without semicolon",
			lines: []string{"a;", "b"},
			want:  []string{"a", "b"},
		},
		{
			name:  "trailing whitespace is dropped",
			lines: []string{"a;", "   ", ""},
			want:  []string{"a"},
		},
		{
			name:  "trailing comment only",
			lines: []string{"a; -- done"},
			want:  []string{"a"},
		},
		{
			name:  "unterminated block comment consumes rest",
			lines: []string{"a; /* never closed", "b;"},
			want:  []string{"a"},
		},
		{
			name:  "unterminated quote becomes trailing statement",
			lines: []string{"INSERT INTO t (v) VALUES ('abc);"},
			want:  []string{"INSERT INTO t (v) VALUES ('abc);"},
		},
		{
			name:  "utf-8 passes through",
			lines: []string{"INSERT INTO t (v) VALUES ('héllo wörld');"},
			want:  []string{"INSERT INTO t (v) VALUES ('héllo wörld')"},
		},
		{
			name:  "single slash and dash are kept",
			lines: []string{"SELECT a / 2 - 1 FROM t;"},
			want:  []string{"SELECT a / 2 - 1 FROM t"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewLexer(tt.lines).Statements()
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLexer_EmptyInput(t *testing.T) {
	assert.Empty(t, NewLexer(nil).Statements())
	assert.Empty(t, NewLexer([]string{"", "  "}).Statements())
	assert.Empty(t, NewLexer([]string{"-- only a comment"}).Statements())
}

func TestLexer_StatementCountMatchesSemicolons(t *testing.T) {
	scripts := []string{
		"CREATE TABLE a (x int);\nINSERT INTO a (x) VALUES (1);\nINSERT INTO a (x) VALUES (2);",
		"INSERT INTO a (s) VALUES ('x;y;z'); -- one; two\nSELECT 1;",
		"/* ; ; ; */ SELECT \"a;b\" FROM t; // ;\nSELECT 2;",
		"INSERT INTO a (s) VALUES ('it''s; fine');",
	}

	for _, script := range scripts {
		t.Run(script, func(t *testing.T) {
			got := Split(script)
			assert.Len(t, got, countDefaultSemicolons(script))
		})
	}
}

// countDefaultSemicolons counts semicolons outside quotes and comments.
// Doubled quotes need no special case: they close and reopen the literal.
func countDefaultSemicolons(script string) int {
	n := 0
	inSingle, inDouble, inLine, inBlock := false, false, false, false
	for i := 0; i < len(script); i++ {
		c := script[i]
		next := byte(0)
		if i+1 < len(script) {
			next = script[i+1]
		}
		switch {
		case inLine:
			inLine = c != '\n'
		case inBlock:
			if c == '*' && next == '/' {
				inBlock = false
				i++
			}
		case inSingle:
			inSingle = c != '\''
		case inDouble:
			inDouble = c != '"'
		case c == '-' && next == '-', c == '/' && next == '/':
			inLine = true
		case c == '/' && next == '*':
			inBlock = true
			i++
		case c == '\'':
			inSingle = true
		case c == '"':
			inDouble = true
		case c == ';':
			n++
		}
	}
	return n
}

func TestLexer_Repeatable(t *testing.T) {
	l := NewLexer([]string{"a;", "b;"})
	first := l.Statements()
	second := l.Statements()
	assert.Equal(t, first, second)

	first[0] = "mutated"
	assert.Equal(t, []string{"a", "b"}, l.Statements())
}

func TestLexer_StatementsStrict(t *testing.T) {
	tests := []struct {
		name    string
		lines   []string
		want    []string
		wantErr string
		pos     Position
	}{
		{
			name:  "well formed",
			lines: []string{"a;", "b; -- trailing comment"},
			want:  []string{"a", "b"},
		},
		{
			name:    "unterminated block comment",
			lines:   []string{"a; /* never closed", "b;"},
			want:    []string{"a"},
			wantErr: "unterminated block comment",
			pos:     Position{Line: 1, Column: 4, Offset: 3},
		},
		{
			name:    "unterminated single quote",
			lines:   []string{"a;", "b 'x"},
			want:    []string{"a", "b 'x"},
			wantErr: "unterminated single-quoted string",
			pos:     Position{Line: 2, Column: 3, Offset: 5},
		},
		{
			name:    "unterminated double quote",
			lines:   []string{`SELECT "abc`},
			want:    []string{`SELECT "abc`},
			wantErr: "unterminated double-quoted string",
			pos:     Position{Line: 1, Column: 8, Offset: 7},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewLexer(tt.lines).StatementsStrict()
			assert.Equal(t, tt.want, got)

			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}

			var lexErr *LexError
			require.ErrorAs(t, err, &lexErr)
			assert.Contains(t, lexErr.Error(), tt.wantErr)
			assert.Equal(t, tt.pos, lexErr.Pos)
		})
	}
}

func TestSplit(t *testing.T) {
	got := Split("CREATE TABLE t (a int);\r\nINSERT INTO t (a) VALUES (1);\r\n")
	assert.Equal(t, []string{"CREATE TABLE t (a int)", "INSERT INTO t (a) VALUES (1)"}, got)

	assert.Equal(t, []string{"a", "b"}, SplitLines([]string{"a;", "b;"}))
}

func TestReadLines(t *testing.T) {
	lines, err := ReadLines(strings.NewReader("a;\r\nb;\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a;", "b;"}, lines)

	long := strings.Repeat("x", 200*1024)
	lines, err = ReadLines(strings.NewReader(long))
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}
