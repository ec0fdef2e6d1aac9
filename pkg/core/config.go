package core

import "time"

// ExecutorConfig holds configuration for connecting an executor to a database.
type ExecutorConfig struct {
	Type        string
	Hosts       []string
	Port        int
	Path        string
	Database    string
	Username    string
	Password    string
	Keyspace    string
	Consistency string
	Timeout     time.Duration
	Options     map[string]string
	Params      map[string]any
}

// Host returns the first configured host, or "" if none.
func (c ExecutorConfig) Host() string {
	if len(c.Hosts) == 0 {
		return ""
	}
	return c.Hosts[0]
}
