package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"libmvt/core"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// =============================================================================
// Scan Result Storage
// =============================================================================

// RunKind says what a run scanned
type RunKind string

const (
	RunAndroidQF RunKind = "androidqf"
	RunBackup    RunKind = "backup"
)

// Run is one scan of an acquisition directory or backup file
type Run struct {
	ID        string    `json:"id"`
	Kind      RunKind   `json:"kind"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// StoredDetection is a detection persisted against a run
type StoredDetection struct {
	core.Detection
	RunID     string    `json:"run_id"`
	Module    string    `json:"module"`
	CreatedAt time.Time `json:"created_at"`
}

// ResultStore persists runs, detections and extracted SMS records
type ResultStore struct {
	sqlite *SQLite
	logger *zap.SugaredLogger
	now    func() time.Time
}

// NewResultStore creates a result store on an open database
func NewResultStore(sqlite *SQLite, logger *zap.SugaredLogger) *ResultStore {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &ResultStore{
		sqlite: sqlite,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateRun records a new run and returns its id
func (s *ResultStore) CreateRun(ctx context.Context, kind RunKind, source string) (string, error) {
	if kind != RunAndroidQF && kind != RunBackup {
		return "", fmt.Errorf("%w: %q", ErrInvalidRunKind, kind)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	id := uuid.NewString()
	_, err := s.sqlite.WriteDB.ExecContext(ctx,
		`INSERT INTO runs (id, kind, source, created_at) VALUES (?, ?, ?, ?)`,
		id, string(kind), source, s.now(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create run: %w", err)
	}

	s.logger.Infow("Run created", "run_id", id, "kind", kind, "source", source)
	return id, nil
}

// GetRun fetches a run by id
func (s *ResultStore) GetRun(ctx context.Context, id string) (*Run, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var run Run
	var kind string
	err := s.sqlite.ReadDB.QueryRowContext(ctx,
		`SELECT id, kind, source, created_at FROM runs WHERE id = ?`, id,
	).Scan(&run.ID, &kind, &run.Source, &run.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	run.Kind = RunKind(kind)
	return &run, nil
}

// ListRuns returns every run, newest first
func (s *ResultStore) ListRuns(ctx context.Context) ([]*Run, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := s.sqlite.ReadDB.QueryContext(ctx,
		`SELECT id, kind, source, created_at FROM runs ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var run Run
		var kind string
		if err := rows.Scan(&run.ID, &kind, &run.Source, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.Kind = RunKind(kind)
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

// SaveDetections stores the detections a module produced in one transaction
func (s *ResultStore) SaveDetections(ctx context.Context, runID, module string, dets []core.Detection) error {
	if len(dets) == 0 {
		return nil
	}
	created := s.now()

	err := s.sqlite.WithTransaction(func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO detections (run_id, module, category, indicator, observed, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, d := range dets {
			if _, err := stmt.ExecContext(ctx, runID, module, string(d.Category), d.Indicator, d.Observed, created); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save detections: %w", err)
	}

	s.logger.Debugw("Detections saved", "run_id", runID, "module", module, "count", len(dets))
	return nil
}

// ListDetections returns a run's detections in insertion order
func (s *ResultStore) ListDetections(ctx context.Context, runID string) ([]StoredDetection, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := s.sqlite.ReadDB.QueryContext(ctx, `
		SELECT run_id, module, category, indicator, observed, created_at
		FROM detections WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list detections: %w", err)
	}
	defer rows.Close()

	var out []StoredDetection
	for rows.Next() {
		var d StoredDetection
		var cat string
		if err := rows.Scan(&d.RunID, &d.Module, &cat, &d.Indicator, &d.Observed, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan detection: %w", err)
		}
		d.Category = core.IndicatorCategory(cat)
		out = append(out, d)
	}
	return out, rows.Err()
}

// SaveSmsRecords stores extracted messages as JSON documents
func (s *ResultStore) SaveSmsRecords(ctx context.Context, runID string, recs []core.SmsRecord) error {
	if len(recs) == 0 {
		return nil
	}

	err := s.sqlite.WithTransaction(func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO sms_records (run_id, direction, isodate, record) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, rec := range recs {
			doc, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("failed to encode record: %w", err)
			}
			if _, err := stmt.ExecContext(ctx, runID, rec.Direction(), rec.ISODate(), string(doc)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save sms records: %w", err)
	}

	s.logger.Debugw("SMS records saved", "run_id", runID, "count", len(recs))
	return nil
}

// ListSmsRecords returns a run's messages in insertion order. Numbers come
// back as float64 after the JSON round trip.
func (s *ResultStore) ListSmsRecords(ctx context.Context, runID string) ([]core.SmsRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := s.sqlite.ReadDB.QueryContext(ctx,
		`SELECT record FROM sms_records WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sms records: %w", err)
	}
	defer rows.Close()

	var out []core.SmsRecord
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan sms record: %w", err)
		}
		rec := core.SmsRecord{}
		if err := json.Unmarshal([]byte(doc), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode sms record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteRun removes a run together with its detections and messages
func (s *ResultStore) DeleteRun(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := s.sqlite.WriteDB.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}

	s.logger.Infow("Run deleted", "run_id", id)
	return nil
}
