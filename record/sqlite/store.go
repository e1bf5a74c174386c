// Package sqlite persists final session records in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	_ "modernc.org/sqlite"

	"github.com/itzneel05/voxagent"
)

// Store implements voxagent.RecordStore over a SQLite file. A single
// connection with WAL journaling is enough for the write rates sessions
// produce.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and ensures the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open record db: %w", err)
	}
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS records (
			id         TEXT PRIMARY KEY,
			agent_type TEXT NOT NULL,
			mode       TEXT NOT NULL,
			stage      TEXT NOT NULL,
			slots      TEXT NOT NULL,
			history    TEXT NOT NULL,
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_records_agent_created
			ON records (agent_type, created_at);
	`)
	if err != nil {
		return fmt.Errorf("ensure record schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Save upserts one record. Retried saves of the same record are idempotent
// because the session id is the primary key.
func (s *Store) Save(ctx context.Context, rec *voxagent.FinalRecord) error {
	slots, err := sonic.MarshalString(rec.Slots)
	if err != nil {
		return fmt.Errorf("encode slots: %w", err)
	}
	history, err := sonic.MarshalString(rec.History)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO records (id, agent_type, mode, stage, slots, history, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.AgentType, rec.Mode, string(rec.Stage), slots, history,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// Latest returns the most recent record for an agent type, or nil when none
// exists. Check-in agents use it to reference the previous conversation.
func (s *Store) Latest(ctx context.Context, agentType string) (*voxagent.FinalRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, agent_type, mode, stage, slots, history, created_at
		FROM records WHERE agent_type = ?
		ORDER BY created_at DESC LIMIT 1`, agentType)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

// Get returns one record by session id, or nil.
func (s *Store) Get(ctx context.Context, id string) (*voxagent.FinalRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, agent_type, mode, stage, slots, history, created_at
		FROM records WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

// List returns up to limit records for an agent type, newest first. A zero
// limit means no limit.
func (s *Store) List(ctx context.Context, agentType string, limit int) ([]*voxagent.FinalRecord, error) {
	query := `
		SELECT id, agent_type, mode, stage, slots, history, created_at
		FROM records WHERE agent_type = ?
		ORDER BY created_at DESC`
	args := []any{agentType}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()
	var out []*voxagent.FinalRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*voxagent.FinalRecord, error) {
	var rec voxagent.FinalRecord
	var stage, slots, history, createdAt string
	if err := row.Scan(&rec.ID, &rec.AgentType, &rec.Mode, &stage, &slots, &history, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan record: %w", err)
	}
	rec.Stage = voxagent.Stage(stage)
	if err := sonic.UnmarshalString(slots, &rec.Slots); err != nil {
		return nil, fmt.Errorf("decode slots: %w", err)
	}
	if err := sonic.UnmarshalString(history, &rec.History); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		rec.CreatedAt = t
	}
	return &rec, nil
}
