// Package config loads cqlunit configuration.
//
// Values are layered, lowest to highest precedence: built-in defaults,
// cqlunit.yaml (searched upward from the working directory), CQLUNIT_*
// environment variables, then command-line flags that were explicitly set.
package config

import (
	"fmt"
	"time"

	"github.com/leapstack-labs/cqlunit/pkg/core"
)

// Default configuration values.
const (
	DefaultTargetType  = "cassandra"
	DefaultJournalFile = ".cqlunit/journal.db"
	DefaultOutput      = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)

// Config holds all CLI configuration options.
type Config struct {
	Target            *TargetConfig        `koanf:"target"`
	ReplicationFactor int                  `koanf:"replication_factor"`
	JournalPath       string               `koanf:"journal_path"`
	Environment       string               `koanf:"environment"`
	Verbose           bool                 `koanf:"verbose"`
	OutputFormat      string               `koanf:"output"`
	Environments      map[string]EnvConfig `koanf:"environments"`

	// File is the config file that was read, if any.
	File string `koanf:"-"`
}

// EnvConfig holds environment-specific overrides.
type EnvConfig struct {
	Target *TargetConfig `koanf:"target"`
}

// TargetConfig describes the database the datasets are loaded into.
type TargetConfig struct {
	Type        string            `koanf:"type"`
	Hosts       []string          `koanf:"hosts"`
	Port        int               `koanf:"port"`
	Path        string            `koanf:"path"`
	Database    string            `koanf:"database"`
	Username    string            `koanf:"username"`
	Password    string            `koanf:"password"`
	Keyspace    string            `koanf:"keyspace"`
	Consistency string            `koanf:"consistency"`
	Timeout     time.Duration     `koanf:"timeout"`
	Options     map[string]string `koanf:"options"`
	Params      map[string]any    `koanf:"params"`
}

// ExecutorConfig converts the target into the executor connection config.
func (t *TargetConfig) ExecutorConfig() core.ExecutorConfig {
	if t == nil {
		return core.ExecutorConfig{Type: DefaultTargetType}
	}
	return core.ExecutorConfig{
		Type:        t.Type,
		Hosts:       append([]string(nil), t.Hosts...),
		Port:        t.Port,
		Path:        t.Path,
		Database:    t.Database,
		Username:    t.Username,
		Password:    t.Password,
		Keyspace:    t.Keyspace,
		Consistency: t.Consistency,
		Timeout:     t.Timeout,
		Options:     t.Options,
		Params:      t.Params,
	}
}

// Endpoint describes the target for logs and the load journal.
func (t *TargetConfig) Endpoint() string {
	if t == nil {
		return DefaultTargetType
	}
	switch {
	case len(t.Hosts) > 0 && t.Port != 0:
		return fmt.Sprintf("%s://%s:%d", t.Type, t.Hosts[0], t.Port)
	case len(t.Hosts) > 0:
		return fmt.Sprintf("%s://%s", t.Type, t.Hosts[0])
	case t.Path != "":
		return fmt.Sprintf("%s://%s", t.Type, t.Path)
	case t.Database != "":
		return fmt.Sprintf("%s://%s", t.Type, t.Database)
	}
	return t.Type
}
