package testutil

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

var (
	reDropKeyspace   = regexp.MustCompile(`(?i)^DROP\s+KEYSPACE\s+(IF\s+EXISTS\s+)?(\w+)$`)
	reCreateKeyspace = regexp.MustCompile(`(?i)^CREATE\s+KEYSPACE\s+(IF\s+NOT\s+EXISTS\s+)?(\w+)\b`)
	reUse            = regexp.MustCompile(`(?i)^USE\s+(\w+)$`)
	reCreateTable    = regexp.MustCompile(`(?i)^CREATE\s+TABLE\s+(IF\s+NOT\s+EXISTS\s+)?([\w.]+)\s*\((.*)\)$`)
	reInsert         = regexp.MustCompile(`(?i)^INSERT\s+INTO\s+([\w.]+)\s*(.*)$`)
	reTruncate       = regexp.MustCompile(`(?i)^TRUNCATE\s+(TABLE\s+)?([\w.]+)$`)
)

// FakeCluster is an in-memory stand-in for a keyspace-aware database.
// It understands just enough CQL to track keyspaces, tables and rows,
// and records every statement it receives.
type FakeCluster struct {
	mu        sync.Mutex
	keyspaces map[string]map[string]*fakeTable
	current   string
	executed  []string

	// FailOn, when set, is consulted before each statement.
	// A non-nil error is returned instead of executing it.
	FailOn func(statement string) error
}

type fakeTable struct {
	definition string
	rows       map[string]bool
}

// NewFakeCluster returns an empty cluster.
func NewFakeCluster() *FakeCluster {
	return &FakeCluster{keyspaces: make(map[string]map[string]*fakeTable)}
}

// Execute implements executor.Executor.
func (c *FakeCluster) Execute(_ context.Context, statement string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.executed = append(c.executed, statement)
	if c.FailOn != nil {
		if err := c.FailOn(statement); err != nil {
			return err
		}
	}

	stmt := strings.TrimSpace(statement)
	switch {
	case stmt == "":
		return nil

	case reDropKeyspace.MatchString(stmt):
		m := reDropKeyspace.FindStringSubmatch(stmt)
		name := strings.ToLower(m[2])
		if _, ok := c.keyspaces[name]; !ok && m[1] == "" {
			return fmt.Errorf("keyspace %s does not exist", name)
		}
		delete(c.keyspaces, name)
		if c.current == name {
			c.current = ""
		}

	case reCreateKeyspace.MatchString(stmt):
		m := reCreateKeyspace.FindStringSubmatch(stmt)
		name := strings.ToLower(m[2])
		if _, ok := c.keyspaces[name]; ok {
			if m[1] == "" {
				return fmt.Errorf("keyspace %s already exists", name)
			}
			return nil
		}
		c.keyspaces[name] = make(map[string]*fakeTable)

	case reUse.MatchString(stmt):
		name := strings.ToLower(reUse.FindStringSubmatch(stmt)[1])
		if _, ok := c.keyspaces[name]; !ok {
			return fmt.Errorf("keyspace %s does not exist", name)
		}
		c.current = name

	case reCreateTable.MatchString(stmt):
		m := reCreateTable.FindStringSubmatch(stmt)
		ks, table, err := c.resolve(m[2])
		if err != nil {
			return err
		}
		if _, ok := c.keyspaces[ks][table]; ok {
			if m[1] == "" {
				return fmt.Errorf("table %s.%s already exists", ks, table)
			}
			return nil
		}
		c.keyspaces[ks][table] = &fakeTable{definition: m[3], rows: make(map[string]bool)}

	case reInsert.MatchString(stmt):
		m := reInsert.FindStringSubmatch(stmt)
		ks, table, err := c.resolve(m[1])
		if err != nil {
			return err
		}
		t, ok := c.keyspaces[ks][table]
		if !ok {
			return fmt.Errorf("table %s.%s does not exist", ks, table)
		}
		t.rows[m[2]] = true

	case reTruncate.MatchString(stmt):
		ks, table, err := c.resolve(reTruncate.FindStringSubmatch(stmt)[2])
		if err != nil {
			return err
		}
		t, ok := c.keyspaces[ks][table]
		if !ok {
			return fmt.Errorf("table %s.%s does not exist", ks, table)
		}
		t.rows = make(map[string]bool)
	}
	return nil
}

// resolve splits a possibly qualified table name, using the current keyspace.
func (c *FakeCluster) resolve(name string) (string, string, error) {
	ks, table := c.current, strings.ToLower(name)
	if i := strings.IndexByte(table, '.'); i >= 0 {
		ks, table = table[:i], table[i+1:]
	}
	if ks == "" {
		return "", "", fmt.Errorf("no keyspace has been specified")
	}
	if _, ok := c.keyspaces[ks]; !ok {
		return "", "", fmt.Errorf("keyspace %s does not exist", ks)
	}
	return ks, table, nil
}

// Keyspaces implements executor.Inspector.
func (c *FakeCluster) Keyspaces(_ context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.keyspaces))
	for name := range c.keyspaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Tables implements executor.Inspector.
func (c *FakeCluster) Tables(_ context.Context, keyspace string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tables, ok := c.keyspaces[keyspace]
	if !ok {
		return nil, fmt.Errorf("keyspace %s does not exist", keyspace)
	}
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Executed returns every statement received so far, in order.
func (c *FakeCluster) Executed() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.executed...)
}

// Reset clears the statement log but keeps the schema.
func (c *FakeCluster) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.executed = nil
}

// Current returns the selected keyspace.
func (c *FakeCluster) Current() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Snapshot describes the observable schema state: for each keyspace,
// each table with its definition and row count.
func (c *FakeCluster) Snapshot() map[string]map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]map[string]string, len(c.keyspaces))
	for ks, tables := range c.keyspaces {
		out[ks] = make(map[string]string, len(tables))
		for name, t := range tables {
			out[ks][name] = fmt.Sprintf("(%s) rows=%d", t.definition, len(t.rows))
		}
	}
	return out
}
