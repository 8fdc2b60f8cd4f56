// Package history keeps a local record of report runs in a SQLite database,
// one row per run, so coverage can be tracked across an edit/test cycle.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/theKBro/gcovr/internal/coverage"
)

// Run is one recorded report generation.
type Run struct {
	ID              int64
	Timestamp       time.Time
	Files           int
	LinesCovered    int
	LinesTotal      int
	LinePercent     float64
	BranchesCovered int
	BranchesTotal   int
	BranchPercent   float64
}

// Store wraps the history database.
type Store struct {
	db *sql.DB
}

// DefaultPath places the database under the project root.
func DefaultPath(rootDir string) string {
	return filepath.Join(rootDir, ".gcovr", "history.db")
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at       INTEGER NOT NULL,
	files            INTEGER NOT NULL,
	lines_covered    INTEGER NOT NULL,
	lines_total      INTEGER NOT NULL,
	line_percent     REAL    NOT NULL,
	branches_covered INTEGER NOT NULL,
	branches_total   INTEGER NOT NULL,
	branch_percent   REAL    NOT NULL
);
`

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history db: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts a run row for the given coverage set.
func (s *Store) Record(ctx context.Context, data coverage.Data, now time.Time) (Run, error) {
	lines, branches := data.GlobalStats()
	run := Run{
		Timestamp:       now,
		Files:           len(data),
		LinesCovered:    lines.Covered,
		LinesTotal:      lines.Total,
		LinePercent:     lines.Percent,
		BranchesCovered: branches.Covered,
		BranchesTotal:   branches.Total,
		BranchPercent:   branches.Percent,
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (created_at, files, lines_covered, lines_total, line_percent,
			branches_covered, branches_total, branch_percent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		now.Unix(), run.Files, run.LinesCovered, run.LinesTotal, run.LinePercent,
		run.BranchesCovered, run.BranchesTotal, run.BranchPercent)
	if err != nil {
		return Run{}, fmt.Errorf("failed to record run: %w", err)
	}
	run.ID, err = res.LastInsertId()
	if err != nil {
		return Run{}, fmt.Errorf("failed to read run id: %w", err)
	}
	return run, nil
}

// List returns the most recent runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, files, lines_covered, lines_total, line_percent,
			branches_covered, branches_total, branch_percent
		FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var created int64
		if err := rows.Scan(&run.ID, &created, &run.Files,
			&run.LinesCovered, &run.LinesTotal, &run.LinePercent,
			&run.BranchesCovered, &run.BranchesTotal, &run.BranchPercent); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		run.Timestamp = time.Unix(created, 0)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
