// Package state keeps a SQLite journal of dataset loads.
// Each CLI invocation opens a batch; every dataset loaded in it is one entry.
package state

import (
	"context"
	"time"

	"github.com/leapstack-labs/cqlunit/pkg/loader"
)

// Status of a batch or load.
type Status string

// Status values.
const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Batch is one group of loads, typically one CLI invocation.
type Batch struct {
	ID          string
	Target      string
	Status      Status
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
	Loads       []Load
}

// Load is one dataset load within a batch.
type Load struct {
	ID         string
	BatchID    string
	BatchIndex int
	Location   string
	Keyspace   string
	Statements int
	Executed   int
	Status     Status
	Error      string
	StartedAt  time.Time
	Duration   time.Duration
}

// Store persists the load journal.
type Store interface {
	Open(path string) error
	Close() error
	Migrate() error

	BeginBatch(ctx context.Context, target string) (*Batch, error)
	CompleteBatch(ctx context.Context, id string, err error) error
	RecordLoad(ctx context.Context, batchID string, rec loader.Record) error

	// Batches returns the most recent batches first, with their loads.
	Batches(ctx context.Context, limit int) ([]*Batch, error)
}

// Journal binds a batch to a Store so it can be handed to a loader.
type Journal struct {
	Store   Store
	BatchID string
}

// RecordLoad implements loader.Journal.
func (j Journal) RecordLoad(ctx context.Context, rec loader.Record) error {
	return j.Store.RecordLoad(ctx, j.BatchID, rec)
}

var _ loader.Journal = Journal{}
