package loader

import (
	"context"
	"log/slog"
	"time"
)

// Journal records load outcomes.
type Journal interface {
	RecordLoad(ctx context.Context, rec Record) error
}

// Record is one journal entry.
type Record struct {
	Location   string
	Keyspace   string
	BatchIndex int
	Statements int
	Executed   int
	StartedAt  time.Time
	Duration   time.Duration
	Err        error
}

// JournalFunc adapts a function to the Journal interface.
type JournalFunc func(ctx context.Context, rec Record) error

// RecordLoad calls f.
func (f JournalFunc) RecordLoad(ctx context.Context, rec Record) error {
	return f(ctx, rec)
}

// record writes to the journal. Journal failures never fail the load.
func (l *Loader) record(ctx context.Context, res Result, index int, start time.Time, err error) {
	if l.journal == nil {
		return
	}
	rec := Record{
		Location:   res.Location,
		Keyspace:   res.Keyspace,
		BatchIndex: index,
		Statements: res.Statements,
		Executed:   res.Executed,
		StartedAt:  start,
		Duration:   res.Duration,
		Err:        err,
	}
	if jerr := l.journal.RecordLoad(context.WithoutCancel(ctx), rec); jerr != nil {
		l.logger.Warn("failed to record load", slog.String("error", jerr.Error()))
	}
}
