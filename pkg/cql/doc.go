// Package cql splits CQL scripts into executable statements.
//
// The lexer recognizes only comments, string literals and statement
// boundaries. Statement text is otherwise passed through untouched.
package cql
