// Package sqlite reads the cookbook catalog database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"cookbook/internal/catalog"
	"cookbook/internal/cftime"
)

// Catalog is a catalog.Reader and catalog.Lister backed by SQLite.
type Catalog struct {
	db *sql.DB
}

var (
	_ catalog.Reader = (*Catalog)(nil)
	_ catalog.Lister = (*Catalog)(nil)
)

// ErrNoSchema is returned by Open when the database lacks the catalog
// tables.
var ErrNoSchema = errors.New("not a cookbook catalog")

// Open opens an existing catalog database read-only. It never writes to
// the file: the journal mode is left as found and no migrations run. A
// missing file is reported as fs.ErrNotExist rather than silently created.
func Open(ctx context.Context, path string) (*Catalog, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	db, err := connect(ctx, readOnlyDSN(path), "PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000")
	if err != nil {
		return nil, err
	}
	if err := checkSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	return New(db), nil
}

// Create opens the catalog at path for writing, creating the file and its
// parent directory if needed, switching it to WAL and applying pending
// migrations.
func Create(ctx context.Context, path string) (*Catalog, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create catalog directory: %w", err)
		}
	}
	db, err := connect(ctx, path, "PRAGMA journal_mode = WAL", "PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000")
	if err != nil {
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return New(db), nil
}

func connect(ctx context.Context, dsn string, pragmas ...string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", strings.ToLower(pragma), err)
		}
	}
	return db, nil
}

// readOnlyDSN returns a URI filename opening path with mode=ro. Characters
// the URI syntax reserves are percent-encoded.
func readOnlyDSN(path string) string {
	escaped := strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23").Replace(filepath.ToSlash(path))
	return "file:" + escaped + "?mode=ro"
}

func checkSchema(ctx context.Context, db *sql.DB) error {
	var n int
	err := db.QueryRowContext(ctx,
		"SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name IN ('ncfiles', 'ncvars')").Scan(&n)
	if err != nil {
		return err
	}
	if n != 2 {
		return ErrNoSchema
	}
	return nil
}

// New wraps an open database. The schema is assumed to exist.
func New(db *sql.DB) *Catalog {
	return &Catalog{db: db}
}

// Close closes the underlying database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}

const selectRecords = `SELECT f.ncfile, f.experiment, f.run, v.variable, v.dimensions, v.chunking,
	f.timeunits, f.calendar, f.time_start, f.time_end, f.frequency
FROM ncvars v
JOIN ncfiles f ON v.ncfile = f.id
WHERE f.present IS NOT 0 AND f.experiment = ?`

// Query returns the (file, variable) records matching q, ordered by
// ascending start time then path. Driver errors are returned as is.
// Time bounds compare the stored "YYYY-MM-DD HH:MM:SS" text, which
// orders correctly for years 0 to 9999. Files marked present = 0 are
// skipped; a NULL present flag counts as present.
func (c *Catalog) Query(ctx context.Context, q catalog.Query) ([]catalog.FileRecord, error) {
	query := selectRecords + " AND v.variable = ?"
	args := []any{q.Experiment, q.Variable}
	if q.NCFile != "" {
		// substr rather than LIKE: file names contain '_' and LIKE is
		// case-insensitive for ASCII.
		query += " AND substr(f.ncfile, -length(?)) = ?"
		args = append(args, q.NCFile, q.NCFile)
	}
	if !q.Start.IsZero() {
		query += " AND f.time_end IS NOT NULL AND f.time_end >= ?"
		args = append(args, q.Start.String())
	}
	if !q.End.IsZero() {
		query += " AND f.time_start IS NOT NULL AND f.time_start <= ?"
		args = append(args, q.End.String())
	}
	query += " ORDER BY f.time_start, f.ncfile"

	return c.records(ctx, query, args, true)
}

// Experiments lists the distinct experiment names.
func (c *Catalog) Experiments(ctx context.Context) ([]string, error) {
	return c.names(ctx, "SELECT DISTINCT experiment FROM ncfiles WHERE experiment IS NOT NULL ORDER BY experiment")
}

// Variables lists the distinct variables declared by present files of an
// experiment.
func (c *Catalog) Variables(ctx context.Context, experiment string) ([]string, error) {
	return c.names(ctx, `SELECT DISTINCT v.variable FROM ncvars v
		JOIN ncfiles f ON v.ncfile = f.id
		WHERE f.present IS NOT 0 AND f.experiment = ?
		ORDER BY v.variable`, experiment)
}

// Files lists the (file, variable) pairs of an experiment, optionally
// restricted to one variable, ordered by variable, start time then path.
// Layout fields are not populated.
func (c *Catalog) Files(ctx context.Context, experiment, variable string) ([]catalog.FileRecord, error) {
	query := selectRecords
	args := []any{experiment}
	if variable != "" {
		query += " AND v.variable = ?"
		args = append(args, variable)
	}
	query += " ORDER BY v.variable, f.time_start, f.ncfile"

	return c.records(ctx, query, args, false)
}

func (c *Catalog) names(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (c *Catalog) records(ctx context.Context, query string, args []any, layout bool) ([]catalog.FileRecord, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.FileRecord
	for rows.Next() {
		var rec catalog.FileRecord
		var run sql.NullInt64
		var dims, chunking, units, calendar, start, end, frequency sql.NullString
		if err := rows.Scan(&rec.Path, &rec.Experiment, &run, &rec.Variable, &dims, &chunking,
			&units, &calendar, &start, &end, &frequency); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Run = int(run.Int64)
		rec.TimeUnits, rec.Calendar, rec.Frequency = units.String, calendar.String, frequency.String
		if rec.TimeStart, err = parseTime(start); err != nil {
			return nil, fmt.Errorf("file %s: time_start: %w", rec.Path, err)
		}
		if rec.TimeEnd, err = parseTime(end); err != nil {
			return nil, fmt.Errorf("file %s: time_end: %w", rec.Path, err)
		}
		if layout {
			rec.Dimensions, rec.ChunkSizes, err = catalog.DecodeLayout(dims.String, chunking.String)
			if err != nil {
				return nil, fmt.Errorf("file %s variable %s: %w", rec.Path, rec.Variable, err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func parseTime(s sql.NullString) (cftime.DateTime, error) {
	if !s.Valid || s.String == "" {
		return cftime.DateTime{}, nil
	}
	return cftime.ParseDateTime(s.String)
}
