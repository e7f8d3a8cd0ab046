// Package store keeps scan results in a SQLite database so that they can be
// reported on after the scan has finished.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/tliron/commonlog"

	"github.com/dhamidi/accparse/openacc/scanner"
)

var log = commonlog.GetLogger("accparse.store")

var ErrNotFound = errors.New("scan not found")

// Scan is the stored summary of a scanner.Result.
type Scan struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Paths     []string  `json:"paths"`
	Error     string    `json:"error,omitempty"`
	Files     int       `json:"files"`
	Pragmas   int       `json:"pragmas"`
	Failed    int       `json:"failed"`
	Recovered int       `json:"recovered"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}

// Pragma is a stored pragma. Directive is the node kind name of its
// construct, empty if it did not parse.
type Pragma struct {
	ID        int64  `json:"id"`
	ScanID    string `json:"scan_id"`
	File      string `json:"file"`
	Line      int    `json:"line"`
	Text      string `json:"text"`
	Directive string `json:"directive,omitempty"`
	Error     string `json:"error,omitempty"`
}

type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	log.Debugf("opened %s", path)
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scans (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		paths TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		files INTEGER NOT NULL DEFAULT 0,
		pragmas INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		recovered INTEGER NOT NULL DEFAULT 0,
		started_at DATETIME,
		ended_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS pragmas (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scan_id TEXT NOT NULL,
		file TEXT NOT NULL,
		line INTEGER NOT NULL,
		text TEXT NOT NULL,
		directive TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (scan_id) REFERENCES scans(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS diagnostics (
		pragma_id INTEGER NOT NULL,
		severity INTEGER NOT NULL,
		line INTEGER NOT NULL,
		col INTEGER NOT NULL,
		end_line INTEGER NOT NULL,
		end_col INTEGER NOT NULL,
		message TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (pragma_id) REFERENCES pragmas(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_pragmas_scan ON pragmas(scan_id);
	CREATE INDEX IF NOT EXISTS idx_diagnostics_pragma ON diagnostics(pragma_id);
	CREATE INDEX IF NOT EXISTS idx_scans_started ON scans(started_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveScan stores r with all its pragmas and diagnostics. Saving a scan
// again replaces it.
func (s *Store) SaveScan(ctx context.Context, r *scanner.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		return fmt.Errorf("scan ID is required")
	}
	paths, err := json.Marshal(r.Request.Paths)
	if err != nil {
		return fmt.Errorf("failed to encode paths: %w", err)
	}
	sum := r.Summary()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM scans WHERE id = ?`, r.ID); err != nil {
		return fmt.Errorf("failed to replace scan: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO scans (id, status, paths, error, files, pragmas, failed, recovered, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, string(r.Status), string(paths), r.Error, sum.Files, sum.Pragmas, sum.Failed, sum.Recovered, r.StartedAt, r.EndedAt)
	if err != nil {
		return fmt.Errorf("failed to insert scan: %w", err)
	}

	insertPragma, err := tx.PrepareContext(ctx, `
		INSERT INTO pragmas (scan_id, file, line, text, directive, error)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer insertPragma.Close()
	insertDiag, err := tx.PrepareContext(ctx, `
		INSERT INTO diagnostics (pragma_id, severity, line, col, end_line, end_col, message, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer insertDiag.Close()

	for _, f := range r.Files {
		for _, p := range f.Pragmas {
			directive, errText := "", ""
			if p.Err != nil {
				errText = p.Err.Error()
			} else {
				directive = p.Directive().String()
			}
			res, err := insertPragma.ExecContext(ctx, r.ID, p.File, p.Line, p.Text, directive, errText)
			if err != nil {
				return fmt.Errorf("failed to insert pragma %s:%d: %w", p.File, p.Line, err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("failed to insert pragma %s:%d: %w", p.File, p.Line, err)
			}
			for _, d := range p.Diagnostics() {
				if _, err := insertDiag.ExecContext(ctx, id, int(d.Severity), d.Line, d.Column, d.EndLine, d.EndColumn, d.Message, d.Source); err != nil {
					return fmt.Errorf("failed to insert diagnostic: %w", err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit scan: %w", err)
	}
	log.Infof("saved scan %s: %d pragmas", r.ID, sum.Pragmas)
	return nil
}

const scanColumns = `id, status, paths, error, files, pragmas, failed, recovered, started_at, ended_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(row rowScanner) (*Scan, error) {
	var sc Scan
	var paths string
	var started, ended sql.NullTime
	err := row.Scan(&sc.ID, &sc.Status, &paths, &sc.Error, &sc.Files, &sc.Pragmas, &sc.Failed, &sc.Recovered, &started, &ended)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(paths), &sc.Paths); err != nil {
		return nil, fmt.Errorf("failed to decode paths of scan %s: %w", sc.ID, err)
	}
	sc.StartedAt = started.Time
	sc.EndedAt = ended.Time
	return &sc, nil
}

// GetScan returns the scan with the given ID, or ErrNotFound.
func (s *Store) GetScan(ctx context.Context, id string) (*Scan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sc, err := scanRow(s.db.QueryRowContext(ctx, `SELECT `+scanColumns+` FROM scans WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}
	return sc, nil
}

// LatestScan returns the most recently started scan.
func (s *Store) LatestScan(ctx context.Context) (*Scan, error) {
	scans, err := s.ListScans(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(scans) == 0 {
		return nil, ErrNotFound
	}
	return scans[0], nil
}

// ListScans returns up to limit scans, newest first. A limit of zero
// returns all of them.
func (s *Store) ListScans(ctx context.Context, limit int) ([]*Scan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+scanColumns+` FROM scans ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	defer rows.Close()

	var scans []*Scan
	for rows.Next() {
		sc, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to read scan: %w", err)
		}
		scans = append(scans, sc)
	}
	return scans, rows.Err()
}

// Pragmas returns the pragmas of a scan in file and line order.
func (s *Store) Pragmas(ctx context.Context, scanID string) ([]*Pragma, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scan_id, file, line, text, directive, error
		FROM pragmas WHERE scan_id = ? ORDER BY file, line
	`, scanID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pragmas: %w", err)
	}
	defer rows.Close()

	var pragmas []*Pragma
	for rows.Next() {
		var p Pragma
		if err := rows.Scan(&p.ID, &p.ScanID, &p.File, &p.Line, &p.Text, &p.Directive, &p.Error); err != nil {
			return nil, fmt.Errorf("failed to read pragma: %w", err)
		}
		pragmas = append(pragmas, &p)
	}
	return pragmas, rows.Err()
}

// Diagnostics returns the diagnostics of a scan in file and line order.
func (s *Store) Diagnostics(ctx context.Context, scanID string) ([]scanner.Diagnostic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.file, d.source, d.severity, d.line, d.col, d.end_line, d.end_col, d.message
		FROM diagnostics d JOIN pragmas p ON p.id = d.pragma_id
		WHERE p.scan_id = ?
		ORDER BY p.file, d.line, d.col
	`, scanID)
	if err != nil {
		return nil, fmt.Errorf("failed to get diagnostics: %w", err)
	}
	defer rows.Close()

	var diags []scanner.Diagnostic
	for rows.Next() {
		var d scanner.Diagnostic
		var severity int
		if err := rows.Scan(&d.File, &d.Source, &severity, &d.Line, &d.Column, &d.EndLine, &d.EndColumn, &d.Message); err != nil {
			return nil, fmt.Errorf("failed to read diagnostic: %w", err)
		}
		d.Severity = scanner.Severity(severity)
		diags = append(diags, d)
	}
	return diags, rows.Err()
}

// DeleteScan removes a scan and everything stored with it.
func (s *Store) DeleteScan(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM scans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete scan: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
