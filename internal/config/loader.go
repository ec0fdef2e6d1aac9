package config

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config file names, in lookup order.
const (
	ConfigFileName    = "cqlunit.yaml"
	ConfigFileNameAlt = "cqlunit.yml"
)

// EnvPrefix prefixes every environment variable read by Load.
// Nested keys use a double underscore: CQLUNIT_TARGET__HOSTS -> target.hosts.
const EnvPrefix = "CQLUNIT_"

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// flagKeys maps command-line flag names onto config keys.
// Flags not listed here are command-local and never reach the config.
var flagKeys = map[string]string{
	"type":               "target.type",
	"host":               "target.hosts",
	"port":               "target.port",
	"username":           "target.username",
	"password":           "target.password",
	"consistency":        "target.consistency",
	"database":           "target.database",
	"replication-factor": "replication_factor",
	"journal":            "journal_path",
	"env":                "environment",
	"output":             "output",
	"verbose":            "verbose",
}

// Context keys for values shared between the root command and subcommands.
type (
	loggerKey struct{}
	configKey struct{}
)

// findConfigFile returns the config file in dir, or "".
func findConfigFile(dir string) string {
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// findConfigUpward searches upward from startDir for a config file.
// Returns empty string if not found within maxUpwardSearchLevels.
func findConfigUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if found := findConfigFile(dir); found != "" {
			return found
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// envKey maps CQLUNIT_TARGET__HOSTS to target.hosts.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// Load reads configuration from defaults, the config file, environment
// variables and the explicitly set flags in that order.
// cfgFile may be empty, in which case cqlunit.yaml is searched upward from
// the working directory. flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]any{
		"target.type":        DefaultTargetType,
		"replication_factor": 0,
		"journal_path":       DefaultJournalFile,
		"verbose":            false,
		"output":             DefaultOutput,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	if cfgFile == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfgFile = findConfigUpward(cwd)
		}
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	// 3. Environment variables
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags (only the ones explicitly set)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = cfgFile

	if cfg.Environment != "" {
		envCfg, ok := cfg.Environments[cfg.Environment]
		if !ok {
			return nil, fmt.Errorf("unknown environment %q", cfg.Environment)
		}
		cfg.Target = MergeTargetConfig(cfg.Target, envCfg.Target)
	}

	if cfg.Target == nil {
		cfg.Target = &TargetConfig{Type: DefaultTargetType}
	}
	cfg.Target.Type = strings.ToLower(cfg.Target.Type)
	expandTargetEnvVars(cfg.Target)

	// A relative journal path in a config file is relative to that file.
	if cfg.File != "" && cfg.JournalPath != "" && !filepath.IsAbs(cfg.JournalPath) && !flagChanged(flags, "journal") {
		cfg.JournalPath = filepath.Join(filepath.Dir(cfg.File), cfg.JournalPath)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func flagChanged(flags *pflag.FlagSet, name string) bool {
	return flags != nil && flags.Changed(name)
}

// LoggerKey returns the context key used for storing the logger.
func LoggerKey() any {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

// ConfigKey returns the context key used for storing the loaded config.
func ConfigKey() any {
	return configKey{}
}

// GetConfig retrieves the config from the command context.
// Without one, it returns the defaults.
func GetConfig(ctx context.Context) *Config {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c
	}
	return &Config{
		Target:       &TargetConfig{Type: DefaultTargetType},
		JournalPath:  DefaultJournalFile,
		OutputFormat: DefaultOutput,
	}
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns with environment variable values.
// Unset variables are left as written.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})
}

// expandTargetEnvVars expands environment variables in credentials and endpoints.
func expandTargetEnvVars(t *TargetConfig) {
	if t == nil {
		return
	}
	t.Username = expandEnvVars(t.Username)
	t.Password = expandEnvVars(t.Password)
	t.Keyspace = expandEnvVars(t.Keyspace)
	t.Database = expandEnvVars(t.Database)
	t.Path = expandEnvVars(t.Path)
	for i, h := range t.Hosts {
		t.Hosts[i] = expandEnvVars(h)
	}
}

// MergeTargetConfig merges two target configs, with override taking precedence.
func MergeTargetConfig(base, override *TargetConfig) *TargetConfig {
	if base == nil {
		return override
	}
	if override == nil {
		return base
	}

	merged := *base
	merged.Hosts = append([]string(nil), base.Hosts...)
	merged.Options = make(map[string]string, len(base.Options)+len(override.Options))
	merged.Params = make(map[string]any, len(base.Params)+len(override.Params))
	maps.Copy(merged.Options, base.Options)
	maps.Copy(merged.Params, base.Params)

	if override.Type != "" {
		merged.Type = override.Type
	}
	if len(override.Hosts) > 0 {
		merged.Hosts = append([]string(nil), override.Hosts...)
	}
	if override.Port != 0 {
		merged.Port = override.Port
	}
	if override.Path != "" {
		merged.Path = override.Path
	}
	if override.Database != "" {
		merged.Database = override.Database
	}
	if override.Username != "" {
		merged.Username = override.Username
	}
	if override.Password != "" {
		merged.Password = override.Password
	}
	if override.Keyspace != "" {
		merged.Keyspace = override.Keyspace
	}
	if override.Consistency != "" {
		merged.Consistency = override.Consistency
	}
	if override.Timeout != 0 {
		merged.Timeout = override.Timeout
	}
	maps.Copy(merged.Options, override.Options)
	maps.Copy(merged.Params, override.Params)
	return &merged
}
