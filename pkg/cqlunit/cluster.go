package cqlunit

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/leapstack-labs/cqlunit/pkg/executor"
	"github.com/leapstack-labs/cqlunit/pkg/executors/cassandra"
)

// Container defaults.
const (
	DefaultImage          = "cassandra:4.1"
	DefaultStartupTimeout = 90 * time.Second
	nativePort            = "9042/tcp"
	readyLogLine          = "Starting listening for CQL clients"
)

// Config describes where the cluster comes from.
// With Hosts set no container is started and the cluster is only attached to.
type Config struct {
	Image          string
	Hosts          []string
	Port           int
	StartupTimeout time.Duration
	// Env is passed to the container; heap defaults keep a single node small.
	Env    map[string]string
	Logger *slog.Logger
}

// Cluster is a running Cassandra node, owned or external.
type Cluster struct {
	container testcontainers.Container
	hosts     []string
	port      int
	timeout   time.Duration
	logger    *slog.Logger
}

// StartCluster starts a Cassandra container, or attaches to cfg.Hosts.
func StartCluster(ctx context.Context, cfg Config) (*Cluster, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	timeout := cfg.StartupTimeout
	if timeout <= 0 {
		timeout = DefaultStartupTimeout
	}

	if len(cfg.Hosts) > 0 {
		port := cfg.Port
		if port == 0 {
			port = cassandra.DefaultPort
		}
		logger.Debug("attaching to external cluster", slog.Any("hosts", cfg.Hosts), slog.Int("port", port))
		return &Cluster{
			hosts:   append([]string(nil), cfg.Hosts...),
			port:    port,
			timeout: timeout,
			logger:  logger,
		}, nil
	}

	image := cfg.Image
	if image == "" {
		image = DefaultImage
	}
	env := map[string]string{
		"MAX_HEAP_SIZE":             "512M",
		"HEAP_NEWSIZE":              "128M",
		"CASSANDRA_NUM_TOKENS":      "1",
		"CASSANDRA_ENDPOINT_SNITCH": "GossipingPropertyFileSnitch",
	}
	for k, v := range cfg.Env {
		env[k] = v
	}

	req := testcontainers.ContainerRequest{
		Image:        image,
		ExposedPorts: []string{nativePort},
		Env:          env,
		WaitingFor: wait.ForAll(
			wait.ForLog(readyLogLine),
			wait.ForListeningPort(nativePort),
		).WithDeadline(timeout),
	}
	if cfg.Port != 0 {
		req.ExposedPorts = []string{strconv.Itoa(cfg.Port) + ":" + nativePort}
	}

	logger.Debug("starting cassandra container", slog.String("image", image), slog.Duration("timeout", timeout))

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if container != nil {
			_ = container.Terminate(context.WithoutCancel(ctx))
		}
		return nil, fmt.Errorf("failed to start cassandra container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}
	mapped, err := container.MappedPort(ctx, nativePort)
	if err != nil {
		_ = container.Terminate(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	c := &Cluster{
		container: container,
		hosts:     []string{host},
		port:      mapped.Int(),
		timeout:   timeout,
		logger:    logger,
	}
	logger.Info("cassandra started", slog.String("contact_point", c.ContactPoint()))
	return c, nil
}

// StartClusterT starts a cluster for the duration of a test.
// The test is skipped under -short, and fails if the cluster cannot start.
func StartClusterT(t testing.TB, cfg Config) *Cluster {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping cassandra cluster in short mode")
	}

	c, err := StartCluster(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to start cluster: %v", err)
	}
	t.Cleanup(func() {
		if err := c.Close(context.Background()); err != nil {
			t.Logf("failed to stop cluster: %v", err)
		}
	})
	return c
}

// Hosts returns the contact hosts.
func (c *Cluster) Hosts() []string { return append([]string(nil), c.hosts...) }

// Port returns the native transport port.
func (c *Cluster) Port() int { return c.port }

// ContactPoint returns host:port of the first contact host.
func (c *Cluster) ContactPoint() string {
	if len(c.hosts) == 0 {
		return ""
	}
	return net.JoinHostPort(c.hosts[0], strconv.Itoa(c.port))
}

// Owned reports whether Close stops a container.
func (c *Cluster) Owned() bool { return c.container != nil }

// ExecutorConfig returns the connection config for this cluster.
func (c *Cluster) ExecutorConfig() executor.Config {
	return executor.Config{
		Type:    cassandra.Name,
		Hosts:   c.Hosts(),
		Port:    c.port,
		Timeout: c.timeout,
	}
}

// Session returns a connected executor. The caller closes it.
func (c *Cluster) Session(ctx context.Context) (executor.Session, error) {
	sess := cassandra.New(c.logger)
	if err := sess.Connect(ctx, c.ExecutorConfig()); err != nil {
		return nil, err
	}
	return sess, nil
}

// Close stops the container if this cluster started one.
func (c *Cluster) Close(ctx context.Context) error {
	if c.container == nil {
		return nil
	}
	c.logger.Debug("stopping cassandra container")
	if err := c.container.Terminate(ctx); err != nil {
		return fmt.Errorf("failed to stop cassandra container: %w", err)
	}
	c.container = nil
	return nil
}
