package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)

	"github.com/leapstack-labs/cqlunit/pkg/loader"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite journal instance.
// If logger is nil, a discard logger is used.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger}
}

// Open opens a connection to the SQLite database.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := path + "?_pragma=foreign_keys(1)"
	if path != ":memory:" {
		dsn += "&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	s.logger.Debug("opening journal", slog.String("path", path))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// one connection keeps :memory: databases alive and shared
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// generateID creates a new UUID.
func generateID() string {
	return uuid.New().String()
}

// BeginBatch opens a running batch for target.
func (s *SQLiteStore) BeginBatch(ctx context.Context, target string) (*Batch, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	b := &Batch{
		ID:        generateID(),
		Target:    target,
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO batches (id, target, status, started_at) VALUES (?, ?, ?, ?)`,
		b.ID, b.Target, b.Status, b.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch: %w", err)
	}

	s.logger.Debug("batch started", slog.String("batch_id", b.ID))
	return b, nil
}

// CompleteBatch marks a batch succeeded, or failed when err is non-nil.
func (s *SQLiteStore) CompleteBatch(ctx context.Context, id string, err error) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	status, errMsg := outcome(err)
	result, execErr := s.db.ExecContext(ctx,
		`UPDATE batches SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		status, time.Now().UTC(), errMsg, id,
	)
	if execErr != nil {
		return fmt.Errorf("failed to complete batch: %w", execErr)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("batch not found: %s", id)
	}
	return nil
}

// RecordLoad appends a load to a batch.
func (s *SQLiteStore) RecordLoad(ctx context.Context, batchID string, rec loader.Record) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	status, errMsg := outcome(rec.Err)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO loads (id, batch_id, batch_index, location, keyspace, statements, executed, status, error, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		generateID(), batchID, rec.BatchIndex, rec.Location, rec.Keyspace,
		rec.Statements, rec.Executed, status, errMsg, rec.StartedAt.UTC(), rec.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to record load: %w", err)
	}
	return nil
}

// Batches returns the most recent batches first, with their loads.
func (s *SQLiteStore) Batches(ctx context.Context, limit int) ([]*Batch, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, target, status, started_at, completed_at, error
		 FROM batches ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var batches []*Batch
	for rows.Next() {
		b := &Batch{}
		var completedAt sql.NullTime
		var errMsg sql.NullString
		if err := rows.Scan(&b.ID, &b.Target, &b.Status, &b.StartedAt, &completedAt, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		if completedAt.Valid {
			b.CompletedAt = &completedAt.Time
		}
		b.Error = errMsg.String
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating batches: %w", err)
	}
	_ = rows.Close()

	for _, b := range batches {
		loads, err := s.loads(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		b.Loads = loads
	}
	return batches, nil
}

func (s *SQLiteStore) loads(ctx context.Context, batchID string) ([]Load, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, batch_id, batch_index, location, keyspace, statements, executed, status, error, started_at, duration_ms
		 FROM loads WHERE batch_id = ? ORDER BY batch_index`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list loads: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var loads []Load
	for rows.Next() {
		var l Load
		var errMsg sql.NullString
		var durationMS int64
		if err := rows.Scan(&l.ID, &l.BatchID, &l.BatchIndex, &l.Location, &l.Keyspace,
			&l.Statements, &l.Executed, &l.Status, &errMsg, &l.StartedAt, &durationMS); err != nil {
			return nil, fmt.Errorf("failed to scan load: %w", err)
		}
		l.Error = errMsg.String
		l.Duration = time.Duration(durationMS) * time.Millisecond
		loads = append(loads, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating loads: %w", err)
	}
	return loads, nil
}

func outcome(err error) (Status, *string) {
	if err == nil {
		return StatusSucceeded, nil
	}
	msg := err.Error()
	if errors.Is(err, context.Canceled) {
		msg = "canceled: " + msg
	}
	return StatusFailed, &msg
}

var _ Store = (*SQLiteStore)(nil)
