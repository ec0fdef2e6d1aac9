package cqlunit

import (
	"context"
	"fmt"
	"slices"

	"github.com/leapstack-labs/cqlunit/pkg/core"
	"github.com/leapstack-labs/cqlunit/pkg/executor"
)

func inspectorOf(exec executor.Executor) (executor.Inspector, error) {
	if exec == nil {
		return nil, &core.InvalidArgumentError{Argument: "executor", Reason: "must not be nil"}
	}
	insp, ok := exec.(executor.Inspector)
	if !ok {
		return nil, &core.InvalidArgumentError{Argument: "executor", Reason: "cannot list keyspaces"}
	}
	return insp, nil
}

// Clean drops every non-system keyspace.
// It returns the dropped keyspaces.
func Clean(ctx context.Context, exec executor.Executor) ([]string, error) {
	insp, err := inspectorOf(exec)
	if err != nil {
		return nil, err
	}
	keyspaces, err := insp.Keyspaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list keyspaces: %w", err)
	}

	dialect := executor.DialectOf(exec, core.CQLDialect{})
	var dropped []string
	for _, ks := range keyspaces {
		if err := exec.Execute(ctx, dialect.DropKeyspace(ks)); err != nil {
			return dropped, fmt.Errorf("failed to drop keyspace %s: %w", ks, err)
		}
		dropped = append(dropped, ks)
	}
	return dropped, nil
}

// CleanData truncates every table of keyspace except the excluded ones.
// It returns the truncated tables.
func CleanData(ctx context.Context, exec executor.Executor, keyspace string, excluded ...string) ([]string, error) {
	insp, err := inspectorOf(exec)
	if err != nil {
		return nil, err
	}
	if keyspace == "" {
		return nil, &core.InvalidArgumentError{Argument: "keyspace", Reason: "must not be empty"}
	}
	tables, err := insp.Tables(ctx, keyspace)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables of %s: %w", keyspace, err)
	}

	var truncated []string
	for _, table := range tables {
		if slices.Contains(excluded, table) {
			continue
		}
		if err := exec.Execute(ctx, fmt.Sprintf("TRUNCATE %s.%s", keyspace, table)); err != nil {
			return truncated, fmt.Errorf("failed to truncate %s.%s: %w", keyspace, table, err)
		}
		truncated = append(truncated, table)
	}
	return truncated, nil
}
