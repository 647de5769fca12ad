package logstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// DefaultEventType is stored when a record carries no event_type field
const DefaultEventType = "GENERAL"

// EventTypeField is the log field copied into the event_type column
const EventTypeField = "event_type"

const timestampLayout = "2006-01-02 15:04:05"

// Entry is one stored log record
type Entry struct {
	ID         int64
	Timestamp  time.Time
	LoggerName string
	Level      string
	Message    string
	EventType  string
}

// Store persists log records to SQLite
type Store struct {
	db         *sql.DB
	loggerName string
}

// Open creates or opens the log database at path and brings its schema up to date
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create log db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open log db %s: %w", path, err)
	}
	// a single writer avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)

	s := &Store{db: db, loggerName: "tiktokmaker"}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert stores e. A zero timestamp is replaced by the current time.
func (s *Store) Insert(ctx context.Context, e Entry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if e.EventType == "" {
		e.EventType = DefaultEventType
	}
	if e.LoggerName == "" {
		e.LoggerName = s.loggerName
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO logs (timestamp, logger_name, level, message, event_type) VALUES (?, ?, ?, ?, ?)`,
		e.Timestamp.Format(timestampLayout), e.LoggerName, e.Level, e.Message, e.EventType,
	)
	if err != nil {
		return fmt.Errorf("insert log: %w", err)
	}
	return nil
}

// Write implements io.Writer for zerolog: p is one JSON encoded record
func (s *Store) Write(p []byte) (int, error) {
	e, err := decodeRecord(p)
	if err != nil {
		return 0, err
	}
	if err := s.Insert(context.Background(), e); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Recent returns up to n records, newest first
func (s *Store) Recent(ctx context.Context, n int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, timestamp, logger_name, level, message, event_type FROM logs ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e         Entry
			ts        string
			name, lvl sql.NullString
			msg, evt  sql.NullString
		)
		if err := rows.Scan(&e.ID, &ts, &name, &lvl, &msg, &evt); err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		e.Timestamp, _ = time.ParseInLocation(timestampLayout, ts, time.Local)
		e.LoggerName, e.Level, e.Message, e.EventType = name.String, lvl.String, msg.String, evt.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// decodeRecord maps a zerolog JSON line onto an Entry
func decodeRecord(p []byte) (Entry, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(p, &fields); err != nil {
		return Entry{}, fmt.Errorf("decode log record: %w", err)
	}

	str := func(key string) string {
		if v, ok := fields[key].(string); ok {
			return v
		}
		return ""
	}

	e := Entry{
		Level:      str(zerolog.LevelFieldName),
		Message:    str(zerolog.MessageFieldName),
		LoggerName: str("component"),
		EventType:  str(EventTypeField),
	}
	if err, ok := fields[zerolog.ErrorFieldName].(string); ok && err != "" {
		if e.Message == "" {
			e.Message = err
		} else {
			e.Message += ": " + err
		}
	}
	if ts := str(zerolog.TimestampFieldName); ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			e.Timestamp = t.Local()
		}
	}
	return e, nil
}
