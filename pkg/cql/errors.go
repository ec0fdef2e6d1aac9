package cql

import "fmt"

// LexError reports a script that ends inside a string literal or block comment.
// Pos is where the unterminated construct was opened.
type LexError struct {
	Pos     Position
	Message string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lexer error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}
