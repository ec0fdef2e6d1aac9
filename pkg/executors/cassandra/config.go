package cassandra

import (
	"fmt"
	"strings"
	"time"

	gocql "github.com/apache/cassandra-gocql-driver/v2"
	"github.com/go-viper/mapstructure/v2"
)

// DefaultPort is the native protocol port.
const DefaultPort = 9042

// Params holds Cassandra-specific configuration.
// Parsed from executor.Config.Params using mapstructure.
type Params struct {
	// ProtoVersion pins the native protocol version (0 negotiates).
	ProtoVersion int `mapstructure:"proto_version"`

	// ConnectTimeout bounds the initial connection (e.g. "10s").
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`

	// NumConns is the number of connections per host.
	NumConns int `mapstructure:"num_conns"`

	// DisableInitialHostLookup connects only to the configured hosts.
	// Required for containers whose advertised address is not routable.
	DisableInitialHostLookup bool `mapstructure:"disable_initial_host_lookup"`

	// LocalDC enables DC-aware routing.
	LocalDC string `mapstructure:"local_dc"`
}

// ParseParams decodes raw params into Params.
func ParseParams(raw map[string]any) (*Params, error) {
	p := &Params{}
	if len(raw) == 0 {
		return p, nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           p,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create params decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode cassandra params: %w", err)
	}
	return p, nil
}

// ParseConsistency maps a consistency level name to the driver constant.
// An empty name yields Quorum.
func ParseConsistency(name string) (gocql.Consistency, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "":
		return gocql.Quorum, nil
	case "ANY":
		return gocql.Any, nil
	case "ONE":
		return gocql.One, nil
	case "TWO":
		return gocql.Two, nil
	case "THREE":
		return gocql.Three, nil
	case "QUORUM":
		return gocql.Quorum, nil
	case "ALL":
		return gocql.All, nil
	case "LOCAL_QUORUM":
		return gocql.LocalQuorum, nil
	case "EACH_QUORUM":
		return gocql.EachQuorum, nil
	case "LOCAL_ONE":
		return gocql.LocalOne, nil
	default:
		return 0, fmt.Errorf("unknown consistency level %q", name)
	}
}

// clusterConfig builds the driver configuration for cfg.
func clusterConfig(hosts []string, port int, keyspace, username, password, consistency string, timeout time.Duration, p *Params) (*gocql.ClusterConfig, error) {
	if len(hosts) == 0 {
		hosts = []string{"127.0.0.1"}
	}
	if port == 0 {
		port = DefaultPort
	}

	cons, err := ParseConsistency(consistency)
	if err != nil {
		return nil, err
	}

	cluster := gocql.NewCluster(hosts...)
	cluster.Port = port
	cluster.Keyspace = keyspace
	cluster.Consistency = cons
	if timeout > 0 {
		cluster.Timeout = timeout
	}
	if p.ConnectTimeout > 0 {
		cluster.ConnectTimeout = p.ConnectTimeout
	}
	if p.ProtoVersion > 0 {
		cluster.ProtoVersion = p.ProtoVersion
	}
	if p.NumConns > 0 {
		cluster.NumConns = p.NumConns
	}
	cluster.DisableInitialHostLookup = p.DisableInitialHostLookup
	if p.LocalDC != "" {
		cluster.PoolConfig.HostSelectionPolicy = gocql.DCAwareRoundRobinPolicy(p.LocalDC)
	}
	if username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: username,
			Password: password,
		}
	}
	return cluster, nil
}
