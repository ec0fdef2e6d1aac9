package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/cqlunit/pkg/executor"
)

// Validate checks the target against the registered executors.
func (t *TargetConfig) Validate() error {
	if t == nil || t.Type == "" {
		return fmt.Errorf("target type is required")
	}
	if !executor.IsRegistered(strings.ToLower(t.Type)) {
		return &executor.UnknownExecutorError{Type: t.Type, Available: executor.List()}
	}
	if t.Port < 0 || t.Port > 65535 {
		return fmt.Errorf("target port out of range: %d", t.Port)
	}
	if t.Timeout < 0 {
		return fmt.Errorf("target timeout must not be negative")
	}
	return nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.ReplicationFactor < 0 {
		return fmt.Errorf("replication_factor must be a positive integer, got %d", c.ReplicationFactor)
	}
	switch c.OutputFormat {
	case "", "auto", "text", "markdown", "json":
	default:
		return fmt.Errorf("unknown output format %q (want auto, text, markdown or json)", c.OutputFormat)
	}
	if err := c.Target.Validate(); err != nil {
		return fmt.Errorf("invalid target configuration: %w", err)
	}
	return nil
}
