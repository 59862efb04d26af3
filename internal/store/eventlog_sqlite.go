package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteLog stores events in an events table inside the same database
// file as the sqlite kv backend.
type SQLiteLog struct {
	Path string
}

func (l SQLiteLog) open(ctx context.Context) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(filepath.Clean(l.Path)), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", l.Path)
	if err != nil {
		return nil, err
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS events (
			event_id TEXT PRIMARY KEY,
			ts_unixms INTEGER NOT NULL,
			type TEXT NOT NULL,
			task_id INTEGER,
			payload_json TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts_unixms);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

func (l SQLiteLog) Append(ev Event) error {
	ctx := context.Background()
	db, err := l.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	var taskID any
	if ev.TaskID != nil {
		taskID = *ev.TaskID
	}
	var payload any
	if len(ev.Payload) > 0 {
		payload = string(ev.Payload)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO events(event_id, ts_unixms, type, task_id, payload_json)
		VALUES(?, ?, ?, ?, ?)
	`, ev.ID, ev.TS.UTC().UnixMilli(), ev.Type, taskID, payload)
	return err
}

func (l SQLiteLog) Tail(limit int) ([]Event, error) {
	ctx := context.Background()
	db, err := l.open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	q := `SELECT event_id, ts_unixms, type, task_id, payload_json
	      FROM events
	      ORDER BY ts_unixms DESC, event_id DESC`
	var rows *sql.Rows
	if limit > 0 {
		rows, err = db.QueryContext(ctx, q+` LIMIT ?`, limit)
	} else {
		rows, err = db.QueryContext(ctx, q)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			id, typ     string
			tsMs        int64
			taskID      sql.NullInt64
			payloadJSON sql.NullString
		)
		if err := rows.Scan(&id, &tsMs, &typ, &taskID, &payloadJSON); err != nil {
			return nil, err
		}
		ev := Event{
			ID:   id,
			TS:   time.UnixMilli(tsMs).UTC(),
			Type: typ,
		}
		if taskID.Valid {
			n := int(taskID.Int64)
			ev.TaskID = &n
		}
		if payloadJSON.Valid && strings.TrimSpace(payloadJSON.String) != "" {
			ev.Payload = json.RawMessage(payloadJSON.String)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Query returns newest-first for the LIMIT; callers get oldest-first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if out == nil {
		out = []Event{}
	}
	return out, nil
}
