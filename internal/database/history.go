package database

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/sha3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/LeCoonEtSaBande/foil-report/internal/model"
)

// FileName is the database file name inside the database directory.
const FileName = "foilreport.db"

// DefaultListLimit is the number of runs ListRuns returns when limit <= 0.
const DefaultListLimit = 20

// storedTimeLayout keeps stored instants in UTC with a fixed width.
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z"

// HistoryDB provides SQLite-based storage for pipeline runs.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file; mode=rwc creates it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Path returns the database file path.
func (hdb *HistoryDB) Path() string {
	return hdb.dbPath
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	-- One row per pipeline run
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		timezone TEXT NOT NULL,
		stage TEXT NOT NULL,
		outcome TEXT NOT NULL,
		failed_stage TEXT,
		error_kind TEXT,
		error TEXT,
		publish_error TEXT,
		report_name TEXT,
		report_size INTEGER DEFAULT 0,
		report_digest TEXT,
		previous_report TEXT,
		raw_files INTEGER DEFAULT 0,
		failed_sites TEXT,
		run_json TEXT NOT NULL,
		recorded_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_outcome ON runs(outcome);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// RunRecord represents a stored run.
type RunRecord struct {
	ID             int64
	StartedAt      time.Time
	FinishedAt     time.Time
	Timezone       string
	Stage          string
	Outcome        string
	FailedStage    string
	ErrorKind      string
	Error          string
	PublishError   string
	ReportName     string
	ReportSize     int64
	ReportDigest   string
	PreviousReport string
	RawFiles       int
	FailedSites    []string
	RecordedAt     time.Time
}

// Succeeded reports whether the run reached DEPLOYED.
func (r *RunRecord) Succeeded() bool {
	return r.Stage == model.StageDeployed.String()
}

// ReportDigest returns the hex SHA3-256 digest of a report.
func ReportDigest(r io.Reader) (string, error) {
	h := sha3.New256()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("failed to hash report: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SaveRun stores a run. digest is the report digest, empty when the run
// produced no verified report. It returns the new row ID.
func (hdb *HistoryDB) SaveRun(ctx context.Context, run *model.Run, digest string) (int64, error) {
	runJSON, err := json.Marshal(run)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize run: %w", err)
	}
	sitesJSON, _ := json.Marshal(run.FailedSites) //nolint:errcheck,errchkjson // a string slice always marshals

	query := `
	INSERT INTO runs (started_at, finished_at, timezone, stage, outcome, failed_stage,
		error_kind, error, publish_error, report_name, report_size, report_digest,
		previous_report, raw_files, failed_sites, run_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := hdb.db.ExecContext(ctx, query,
		formatTime(run.StartedAt),
		formatTime(run.FinishedAt),
		run.Timezone,
		run.Stage.String(),
		run.Outcome(),
		run.FailedStage,
		model.KindName(run.Err),
		run.ErrorMessage,
		run.PublishErrorMessage,
		run.ReportName,
		run.ReportSize,
		digest,
		run.PreviousReport,
		len(run.RawFiles),
		string(sitesJSON),
		string(runJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}
	return id, nil
}

const selectRuns = `
	SELECT id, started_at, finished_at, timezone, stage, outcome, failed_stage,
		error_kind, error, publish_error, report_name, report_size, report_digest,
		previous_report, raw_files, failed_sites, recorded_at
	FROM runs
`

// ListRuns returns the most recent runs, newest first.
func (hdb *HistoryDB) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := hdb.db.QueryContext(ctx, selectRuns+"ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}

	return records, rows.Err()
}

// LatestSuccessful returns the most recent DEPLOYED run, or nil if there is none.
func (hdb *HistoryDB) LatestSuccessful(ctx context.Context) (*RunRecord, error) {
	row := hdb.db.QueryRowContext(ctx, selectRuns+"WHERE stage = ? ORDER BY id DESC LIMIT 1",
		model.StageDeployed.String())

	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// GetRun retrieves a run by its database ID, or nil if it does not exist.
func (hdb *HistoryDB) GetRun(ctx context.Context, id int64) (*RunRecord, error) {
	rec, err := scanRun(hdb.db.QueryRowContext(ctx, selectRuns+"WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// CountByOutcome returns the number of stored runs per outcome.
func (hdb *HistoryDB) CountByOutcome(ctx context.Context) (map[string]int, error) {
	rows, err := hdb.db.QueryContext(ctx, "SELECT outcome, COUNT(*) FROM runs GROUP BY outcome")
	if err != nil {
		return nil, fmt.Errorf("failed to count runs: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[outcome] = n
	}
	return counts, rows.Err()
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*RunRecord, error) {
	var rec RunRecord
	var started, recorded string
	var finished, failedStage, errKind, msg sql.NullString
	var publishErr, report, digest, previous, sites sql.NullString
	err := s.Scan(&rec.ID, &started, &finished, &rec.Timezone, &rec.Stage, &rec.Outcome,
		&failedStage, &errKind, &msg, &publishErr, &report, &rec.ReportSize, &digest,
		&previous, &rec.RawFiles, &sites, &recorded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	rec.StartedAt = parseTimestamp(started)
	rec.FinishedAt = parseTimestamp(finished.String)
	rec.RecordedAt = parseTimestamp(recorded)
	rec.FailedStage = failedStage.String
	rec.ErrorKind = errKind.String
	rec.Error = msg.String
	rec.PublishError = publishErr.String
	rec.ReportName = report.String
	rec.ReportDigest = digest.String
	rec.PreviousReport = previous.String
	if sites.Valid && sites.String != "" {
		if err := json.Unmarshal([]byte(sites.String), &rec.FailedSites); err != nil {
			rec.FailedSites = nil
		}
	}
	return &rec, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(storedTimeLayout)
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
