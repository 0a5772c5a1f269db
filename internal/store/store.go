package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/KaramelBytes/datahub-cli/internal/dashboard"
	"github.com/KaramelBytes/datahub-cli/internal/fields"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// Store wraps SQLite access for uploaded datasets and payload snapshots.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)
	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS datasets (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			content BLOB NOT NULL,
			row_count INTEGER NOT NULL,
			column_count INTEGER NOT NULL,
			uploaded_at INTEGER NOT NULL,
			expires_at INTEGER
		);`,
		`CREATE INDEX IF NOT EXISTS idx_datasets_expires ON datasets(expires_at);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at INTEGER NOT NULL,
			payload TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Dataset is a stored upload with its raw content.
type Dataset struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Kind       fields.Kind `json:"kind"`
	Content    []byte      `json:"-"`
	Rows       int         `json:"rows"`
	Columns    int         `json:"columns"`
	UploadedAt time.Time   `json:"uploaded_at"`
	ExpiresAt  *time.Time  `json:"expires_at,omitempty"`
}

// Snapshot is a stored payload.
type Snapshot struct {
	ID        int64           `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Payload   json.RawMessage `json:"payload"`
}

// PutDataset inserts or replaces a dataset. A positive ttl sets an expiry.
func (s *Store) PutDataset(ctx context.Context, d Dataset, ttl time.Duration) error {
	if d.UploadedAt.IsZero() {
		d.UploadedAt = s.now()
	}
	var expires *int64
	if ttl > 0 {
		v := d.UploadedAt.Add(ttl).UnixMilli()
		expires = &v
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO datasets(id, name, kind, content, row_count, column_count, uploaded_at, expires_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, kind=excluded.kind, content=excluded.content,
			row_count=excluded.row_count, column_count=excluded.column_count, uploaded_at=excluded.uploaded_at, expires_at=excluded.expires_at`,
		d.ID, d.Name, string(d.Kind), d.Content, d.Rows, d.Columns, d.UploadedAt.UnixMilli(), expires)
	if err != nil {
		return fmt.Errorf("put dataset: %w", err)
	}
	return nil
}

// ListDatasets returns unexpired datasets, oldest first.
func (s *Store) ListDatasets(ctx context.Context) ([]Dataset, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, kind, content, row_count, column_count, uploaded_at, expires_at
		FROM datasets WHERE expires_at IS NULL OR expires_at > ? ORDER BY uploaded_at, id`, s.now().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()
	var out []Dataset
	for rows.Next() {
		var (
			d        Dataset
			kind     string
			uploaded int64
			expires  sql.NullInt64
		)
		if err := rows.Scan(&d.ID, &d.Name, &kind, &d.Content, &d.Rows, &d.Columns, &uploaded, &expires); err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		d.Kind = fields.Kind(kind)
		d.UploadedAt = time.UnixMilli(uploaded).UTC()
		if expires.Valid {
			t := time.UnixMilli(expires.Int64).UTC()
			d.ExpiresAt = &t
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// DeleteDataset removes one dataset.
func (s *Store) DeleteDataset(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM datasets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("dataset %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteAllDatasets empties the dataset table.
func (s *Store) DeleteAllDatasets(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM datasets`); err != nil {
		return fmt.Errorf("delete datasets: %w", err)
	}
	return nil
}

// PurgeExpired deletes expired datasets and reports how many were removed.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM datasets WHERE expires_at IS NOT NULL AND expires_at <= ?`, s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purge datasets: %w", err)
	}
	return res.RowsAffected()
}

// SaveSnapshot stores a payload and returns its id.
func (s *Store) SaveSnapshot(ctx context.Context, p *dashboard.Payload) (int64, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return 0, fmt.Errorf("marshal snapshot: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO snapshots(created_at, payload) VALUES(?, ?)`, s.now().UnixMilli(), string(b))
	if err != nil {
		return 0, fmt.Errorf("save snapshot: %w", err)
	}
	return res.LastInsertId()
}

// ListSnapshots returns up to limit snapshots, newest first.
func (s *Store) ListSnapshots(ctx context.Context, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, created_at, payload FROM snapshots ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()
	var out []Snapshot
	for rows.Next() {
		var (
			sn      Snapshot
			created int64
			payload string
		)
		if err := rows.Scan(&sn.ID, &created, &payload); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		sn.CreatedAt = time.UnixMilli(created).UTC()
		sn.Payload = json.RawMessage(payload)
		out = append(out, sn)
	}
	return out, rows.Err()
}

// Health pings the database.
func (s *Store) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
