package core

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every typed error below matches exactly one of these via errors.Is.
var (
	ErrResourceNotFound = errors.New("resource not found")
	ErrConflict         = errors.New("conflict")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrExecutorFailure  = errors.New("executor failure")
)

// ResourceNotFoundError is returned when a dataset source cannot be located or read.
type ResourceNotFoundError struct {
	Location string
	Err      error
}

func (e *ResourceNotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dataset source %q not found: %v", e.Location, e.Err)
	}
	return fmt.Sprintf("dataset source %q not found", e.Location)
}

// Is reports whether target is ErrResourceNotFound.
func (e *ResourceNotFoundError) Is(target error) bool { return target == ErrResourceNotFound }

func (e *ResourceNotFoundError) Unwrap() error { return e.Err }

// ConflictKind identifies what disagreed during a merge.
type ConflictKind string

// Conflict kinds.
const (
	ConflictKeyspace     ConflictKind = "keyspace"
	ConflictColumnFamily ConflictKind = "column family"
)

// ConflictError is returned when merged sources disagree.
// Keyspace conflicts carry Expected and Found; column family conflicts carry Names.
type ConflictError struct {
	Kind     ConflictKind
	Location string
	Expected string
	Found    string
	Names    []string
}

func (e *ConflictError) Error() string {
	var b strings.Builder
	switch e.Kind {
	case ConflictKeyspace:
		fmt.Fprintf(&b, "keyspace conflict: expected %q but found %q", e.Expected, e.Found)
	case ConflictColumnFamily:
		fmt.Fprintf(&b, "column family conflict: %s already defined", strings.Join(e.Names, ", "))
	default:
		fmt.Fprintf(&b, "%s conflict", e.Kind)
	}
	if e.Location != "" {
		fmt.Fprintf(&b, " (in %s)", e.Location)
	}
	return b.String()
}

// Is reports whether target is ErrConflict.
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// InvalidArgumentError is returned for missing or malformed inputs.
type InvalidArgumentError struct {
	Argument string
	Reason   string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s: %s", e.Argument, e.Reason)
}

// Is reports whether target is ErrInvalidArgument.
func (e *InvalidArgumentError) Is(target error) bool { return target == ErrInvalidArgument }

// ExecutionError is returned when a statement fails during a load.
// Executed is the number of dataset statements that succeeded before it.
// Index is negative for keyspace lifecycle statements.
type ExecutionError struct {
	Statement string
	Index     int
	Executed  int
	Location  string
	Err       error
}

func (e *ExecutionError) Error() string {
	var b strings.Builder
	if e.Index < 0 {
		b.WriteString("keyspace statement failed")
	} else {
		fmt.Fprintf(&b, "statement %d failed", e.Index+1)
	}
	if e.Location != "" {
		fmt.Fprintf(&b, " in %s", e.Location)
	}
	fmt.Fprintf(&b, " after %d executed: %q", e.Executed, e.Statement)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Is reports whether target is ErrExecutorFailure.
func (e *ExecutionError) Is(target error) bool { return target == ErrExecutorFailure }

func (e *ExecutionError) Unwrap() error { return e.Err }
