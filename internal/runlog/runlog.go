// Package runlog keeps an append-only sqlite record of finished runs for
// debugging. It is pure observability: run continuation always travels as a
// state snapshot carried by the caller, never through this database.
package runlog

import (
	"context"
	"database/sql"
	_ "embed"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// Record is one finished (or failed) run.
type Record struct {
	ThreadID           string
	RunID              string
	Kind               string // "initial" or "feedback"
	Location           string
	FinalPhase         string
	Error              string
	RecommendationsLen int
	StartedAt          time.Time
	FinishedAt         time.Time
}

type Log struct {
	conn *sql.DB
}

func Open(path string) (*Log, error) {
	// Expand leading ~ to actual home directory.
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(home, path[2:])
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, err
		}
	}

	return &Log{conn: conn}, nil
}

func (l *Log) Migrate() error {
	_, err := l.conn.Exec(schema)
	return err
}

func (l *Log) Append(ctx context.Context, rec Record) error {
	_, err := l.conn.ExecContext(ctx, `
		INSERT INTO runs (thread_id, run_id, kind, location, final_phase, error,
			recommendations_len, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ThreadID, rec.RunID, rec.Kind, rec.Location, rec.FinalPhase, rec.Error,
		rec.RecommendationsLen,
		rec.StartedAt.Format(time.RFC3339), rec.FinishedAt.Format(time.RFC3339),
	)
	return err
}

// Recent returns the latest n runs, newest first.
func (l *Log) Recent(ctx context.Context, n int) ([]Record, error) {
	rows, err := l.conn.QueryContext(ctx, `
		SELECT thread_id, run_id, kind, location, final_phase, error,
			recommendations_len, started_at, finished_at
		FROM runs ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var started, finished string
		if err := rows.Scan(&rec.ThreadID, &rec.RunID, &rec.Kind, &rec.Location,
			&rec.FinalPhase, &rec.Error, &rec.RecommendationsLen, &started, &finished); err != nil {
			return nil, err
		}
		rec.StartedAt, _ = time.Parse(time.RFC3339, started)
		rec.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (l *Log) Close() error {
	return l.conn.Close()
}
