package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver
	"github.com/ottermq/otterconf/pkg/persistence"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	mode        TEXT NOT NULL,
	source      TEXT NOT NULL DEFAULT '',
	broker      TEXT NOT NULL DEFAULT '',
	started_at  INTEGER NOT NULL,
	finished_at INTEGER,
	errors      INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS objects (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL REFERENCES runs(id),
	kind        TEXT NOT NULL,
	key         TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	detail      TEXT NOT NULL DEFAULT '',
	recorded_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS objects_run_id ON objects(run_id);
`

// SQLiteJournal stores runs in a SQLite database file.
type SQLiteJournal struct {
	path string
	db   *sql.DB
}

var _ persistence.Journal = (*SQLiteJournal)(nil)

func NewSQLiteJournal(config *persistence.Config) (*SQLiteJournal, error) {
	sj := &SQLiteJournal{path: config.Path}
	return sj, sj.Initialize()
}

func (sj *SQLiteJournal) Initialize() error {
	if sj.path == "" {
		return fmt.Errorf("sqlite journal requires a database path")
	}
	db, err := sql.Open("sqlite3", sj.path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("opening journal %s: %w", sj.path, err)
	}
	// a single connection keeps writes serialized
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return fmt.Errorf("creating journal schema: %w", err)
	}
	sj.db = db
	return nil
}

func (sj *SQLiteJournal) Close() error {
	if sj.db == nil {
		return nil
	}
	return sj.db.Close()
}

func (sj *SQLiteJournal) BeginRun(run persistence.Run) error {
	_, err := sj.db.Exec(
		`INSERT INTO runs (id, mode, source, broker, started_at, errors) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Mode, run.Source, run.Broker, run.StartedAt.UnixNano(), run.Errors,
	)
	if err != nil {
		return fmt.Errorf("recording run %s: %w", run.ID, err)
	}
	return nil
}

func (sj *SQLiteJournal) RecordObject(entry persistence.ObjectEntry) error {
	_, err := sj.db.Exec(
		`INSERT INTO objects (run_id, kind, key, outcome, detail, recorded_at) VALUES (?, ?, ?, ?, ?, ?)`,
		entry.RunID, entry.Kind, entry.Key, entry.Outcome, entry.Detail, entry.RecordedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("recording %s %s: %w", entry.Kind, entry.Key, err)
	}
	return nil
}

func (sj *SQLiteJournal) FinishRun(runID string, finishedAt time.Time, errors int) error {
	res, err := sj.db.Exec(
		`UPDATE runs SET finished_at = ?, errors = ? WHERE id = ?`,
		finishedAt.UnixNano(), errors, runID,
	)
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return persistence.ErrRunNotFound
	}
	return nil
}

func (sj *SQLiteJournal) Runs(limit int) ([]persistence.Run, error) {
	query := `SELECT id, mode, source, broker, started_at, finished_at, errors FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := sj.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []persistence.Run{}
	for rows.Next() {
		var (
			run      persistence.Run
			started  int64
			finished sql.NullInt64
		)
		if err := rows.Scan(&run.ID, &run.Mode, &run.Source, &run.Broker, &started, &finished, &run.Errors); err != nil {
			return nil, err
		}
		run.StartedAt = time.Unix(0, started)
		if finished.Valid {
			run.FinishedAt = time.Unix(0, finished.Int64)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (sj *SQLiteJournal) Objects(runID string) ([]persistence.ObjectEntry, error) {
	var exists int
	err := sj.db.QueryRow(`SELECT COUNT(*) FROM runs WHERE id = ?`, runID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, persistence.ErrRunNotFound
	}

	rows, err := sj.db.Query(
		`SELECT run_id, kind, key, outcome, detail, recorded_at FROM objects WHERE run_id = ? ORDER BY seq`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []persistence.ObjectEntry{}
	for rows.Next() {
		var (
			entry    persistence.ObjectEntry
			recorded int64
		)
		if err := rows.Scan(&entry.RunID, &entry.Kind, &entry.Key, &entry.Outcome, &entry.Detail, &recorded); err != nil {
			return nil, err
		}
		entry.RecordedAt = time.Unix(0, recorded)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
