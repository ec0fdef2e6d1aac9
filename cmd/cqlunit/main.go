// Package main is the cqlunit command.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/leapstack-labs/cqlunit/internal/cli"

	// Register executors
	_ "github.com/leapstack-labs/cqlunit/pkg/executors/cassandra"
	_ "github.com/leapstack-labs/cqlunit/pkg/executors/duckdb"
	_ "github.com/leapstack-labs/cqlunit/pkg/executors/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
