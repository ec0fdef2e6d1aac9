package cassandra

import (
	"log/slog"

	"github.com/leapstack-labs/cqlunit/pkg/executor"
)

// Name is the registry name of this backend.
const Name = "cassandra"

func init() {
	executor.Register(Name, func(logger *slog.Logger) executor.Session { return New(logger) })
}
