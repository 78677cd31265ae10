package storage

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
)

// Migration is one versioned schema change
type Migration struct {
	Version  int
	Name     string
	Up       func(*sql.Tx) error
	Down     func(*sql.Tx) error // optional
	Checksum string              // derived from Version and Name when empty
}

// MigrationRecord is a row of schema_migrations
type MigrationRecord struct {
	Version   int
	Name      string
	Checksum  string
	AppliedAt time.Time
	Duration  int64 // milliseconds
}

// MigrationRunner applies registered migrations in version order
type MigrationRunner struct {
	db         *sql.DB
	logger     *zap.SugaredLogger
	migrations []Migration
}

// NewMigrationRunner creates the schema_migrations table if needed
func NewMigrationRunner(db *sql.DB, logger *zap.SugaredLogger) (*MigrationRunner, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	runner := &MigrationRunner{db: db, logger: logger}

	if _, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		checksum TEXT NOT NULL,
		applied_at DATETIME NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0
	)`); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}
	return runner, nil
}

// Register adds migrations to the runner
func (r *MigrationRunner) Register(ms ...Migration) {
	for _, m := range ms {
		if m.Checksum == "" {
			m.Checksum = migrationChecksum(m)
		}
		r.migrations = append(r.migrations, m)
	}
}

func migrationChecksum(m Migration) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%d:%s", m.Version, m.Name)))
	return hex.EncodeToString(hash[:8])
}

// Applied returns the applied migrations, oldest first
func (r *MigrationRunner) Applied() ([]MigrationRecord, error) {
	rows, err := r.db.Query(`
		SELECT version, name, checksum, applied_at, duration_ms
		FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	var records []MigrationRecord
	for rows.Next() {
		var rec MigrationRecord
		if err := rows.Scan(&rec.Version, &rec.Name, &rec.Checksum, &rec.AppliedAt, &rec.Duration); err != nil {
			return nil, fmt.Errorf("failed to scan migration record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Pending returns registered migrations not applied yet, in version order.
// An applied migration whose checksum no longer matches is an error.
func (r *MigrationRunner) Pending() ([]Migration, error) {
	applied, err := r.Applied()
	if err != nil {
		return nil, err
	}
	checksums := make(map[int]string, len(applied))
	for _, rec := range applied {
		checksums[rec.Version] = rec.Checksum
	}

	var pending []Migration
	for _, m := range r.migrations {
		sum, ok := checksums[m.Version]
		if !ok {
			pending = append(pending, m)
			continue
		}
		if sum != m.Checksum {
			return nil, fmt.Errorf("%w: version %d (%s)", ErrMigrationDrift, m.Version, m.Name)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].Version < pending[j].Version })
	return pending, nil
}

// Run applies all pending migrations
func (r *MigrationRunner) Run() error {
	pending, err := r.Pending()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		r.logger.Debug("No pending migrations")
		return nil
	}

	for _, m := range pending {
		if err := r.apply(m); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Name, err)
		}
	}
	return nil
}

// apply runs one migration and records it in the same transaction
func (r *MigrationRunner) apply(m Migration) (err error) {
	start := time.Now()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			err = fmt.Errorf("migration panicked: %v", p)
		}
	}()

	if err := m.Up(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	duration := time.Since(start).Milliseconds()
	if _, err := tx.Exec(`
		INSERT INTO schema_migrations (version, name, checksum, applied_at, duration_ms)
		VALUES (?, ?, ?, ?, ?)`, m.Version, m.Name, m.Checksum, time.Now().UTC(), duration); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to record migration: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}

	r.logger.Infow("Migration applied", "version", m.Version, "name", m.Name, "duration_ms", duration)
	return nil
}

// Rollback reverts the newest applied migration
func (r *MigrationRunner) Rollback() error {
	applied, err := r.Applied()
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		return fmt.Errorf("no migrations to roll back")
	}
	last := applied[len(applied)-1]

	var m *Migration
	for i := range r.migrations {
		if r.migrations[i].Version == last.Version {
			m = &r.migrations[i]
			break
		}
	}
	if m == nil || m.Down == nil {
		return fmt.Errorf("migration %d cannot be rolled back", last.Version)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := m.Down(tx); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("rollback of %d failed: %w", m.Version, err)
	}
	if _, err := tx.Exec(`DELETE FROM schema_migrations WHERE version = ?`, m.Version); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to unrecord migration: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	r.logger.Infow("Migration rolled back", "version", m.Version, "name", m.Name)
	return nil
}

// =============================================================================
// Results Schema
// =============================================================================

func execAll(tx *sql.Tx, stmts ...string) error {
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// resultsMigrations is the schema history of the results database
func resultsMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_runs_and_detections",
			Up: func(tx *sql.Tx) error {
				return execAll(tx,
					`CREATE TABLE runs (
						id TEXT PRIMARY KEY,
						kind TEXT NOT NULL CHECK(kind IN ('androidqf','backup')),
						source TEXT NOT NULL,
						created_at DATETIME NOT NULL
					)`,
					`CREATE TABLE detections (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
						module TEXT NOT NULL,
						category TEXT NOT NULL,
						indicator TEXT NOT NULL,
						observed TEXT NOT NULL,
						created_at DATETIME NOT NULL
					)`,
					`CREATE INDEX idx_detections_run ON detections(run_id)`,
					`CREATE INDEX idx_detections_indicator ON detections(category, indicator)`,
				)
			},
			Down: func(tx *sql.Tx) error {
				return execAll(tx, `DROP TABLE detections`, `DROP TABLE runs`)
			},
		},
		{
			Version: 2,
			Name:    "create_sms_records",
			Up: func(tx *sql.Tx) error {
				return execAll(tx,
					`CREATE TABLE sms_records (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
						direction TEXT NOT NULL DEFAULT '',
						isodate TEXT NOT NULL DEFAULT '',
						record TEXT NOT NULL
					)`,
					`CREATE INDEX idx_sms_records_run ON sms_records(run_id)`,
				)
			},
			Down: func(tx *sql.Tx) error {
				return execAll(tx, `DROP TABLE sms_records`)
			},
		},
	}
}
