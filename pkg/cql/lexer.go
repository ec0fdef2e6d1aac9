package cql

import "strings"

// lexState is the scanner state.
type lexState int

const (
	stateDefault lexState = iota
	stateLineComment
	stateBlockComment
	stateDoubleQuote
	stateSingleQuote
)

func (s lexState) String() string {
	switch s {
	case stateDefault:
		return "default"
	case stateLineComment:
		return "line comment"
	case stateBlockComment:
		return "block comment"
	case stateDoubleQuote:
		return "double-quoted string"
	case stateSingleQuote:
		return "single-quoted string"
	default:
		return "unknown"
	}
}

// Position represents a location in the joined script.
type Position struct {
	Line   int // 1-based line number
	Column int // 1-based column number
	Offset int // 0-based byte offset
}

// Lexer splits a script into statements.
//
// A Lexer is immutable; Statements may be called any number of times
// and always returns the same result.
type Lexer struct {
	input string
}

// NewLexer creates a Lexer over lines. Each line is trimmed and the
// lines are joined with a single newline before scanning.
func NewLexer(lines []string) *Lexer {
	trimmed := make([]string, len(lines))
	for i, line := range lines {
		trimmed[i] = strings.TrimSpace(line)
	}
	return &Lexer{input: strings.Join(trimmed, "\n")}
}

// Statements returns the statements of the script in source order.
// Unterminated comments and string literals are tolerated.
func (l *Lexer) Statements() []string {
	statements, _ := l.scan()
	return statements
}

// StatementsStrict is like Statements but reports a *LexError when the
// script ends inside a string literal or block comment.
// The statements recovered so far are returned alongside the error.
func (l *Lexer) StatementsStrict() ([]string, error) {
	statements, err := l.scan()
	if err != nil {
		return statements, err
	}
	return statements, nil
}

// scan runs the state machine over the whole input.
func (l *Lexer) scan() ([]string, *LexError) {
	s := &scanner{input: l.input, line: 1}
	s.readChar()

	var (
		statements []string
		buf        strings.Builder
		state      = stateDefault
		openedAt   Position
	)

	for s.pos < len(s.input) {
		switch state {
		case stateDefault:
			switch {
			case (s.ch == '/' && s.peekChar() == '/') || (s.ch == '-' && s.peekChar() == '-'):
				openedAt = s.currentPos()
				s.readChar()
				state = stateLineComment
			case s.ch == '/' && s.peekChar() == '*':
				openedAt = s.currentPos()
				s.readChar()
				state = stateBlockComment
			case s.ch == '\n':
				buf.WriteByte(' ')
			case s.ch == '"':
				openedAt = s.currentPos()
				buf.WriteByte(s.ch)
				state = stateDoubleQuote
			case s.ch == '\'':
				openedAt = s.currentPos()
				buf.WriteByte(s.ch)
				state = stateSingleQuote
			case s.ch == ';':
				statements = append(statements, strings.TrimSpace(buf.String()))
				buf.Reset()
			default:
				buf.WriteByte(s.ch)
			}

		case stateLineComment:
			if s.ch == '\n' {
				state = stateDefault
			}

		case stateBlockComment:
			if s.ch == '*' && s.peekChar() == '/' {
				s.readChar()
				state = stateDefault
			}

		case stateDoubleQuote, stateSingleQuote:
			delim := byte('"')
			if state == stateSingleQuote {
				delim = '\''
			}
			buf.WriteByte(s.ch)
			if s.ch == delim {
				if s.peekChar() == delim {
					s.readChar()
					buf.WriteByte(s.ch)
				} else {
					state = stateDefault
				}
			}
		}
		s.readChar()
	}

	if tail := strings.TrimSpace(buf.String()); tail != "" {
		statements = append(statements, tail)
	}

	switch state {
	case stateBlockComment, stateDoubleQuote, stateSingleQuote:
		return statements, &LexError{Pos: openedAt, Message: "unterminated " + state.String()}
	}
	return statements, nil
}

// scanner walks the input byte by byte, tracking position.
// Delimiters are all ASCII so multi-byte UTF-8 sequences pass through intact.
type scanner struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	line    int  // current line number (1-based)
	col     int  // current column number (1-based)
}

// readChar advances to the next character.
func (s *scanner) readChar() {
	if s.pos < len(s.input) && s.ch == '\n' {
		s.line++
		s.col = 0
	}
	if s.readPos >= len(s.input) {
		s.ch = 0
	} else {
		s.ch = s.input[s.readPos]
	}
	s.pos = s.readPos
	s.readPos++
	s.col++
}

// peekChar returns the next character without advancing.
func (s *scanner) peekChar() byte {
	if s.readPos >= len(s.input) {
		return 0
	}
	return s.input[s.readPos]
}

func (s *scanner) currentPos() Position {
	return Position{Line: s.line, Column: s.col, Offset: s.pos}
}
