package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/resonance/internal/model"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// DB is a SQLite database holding finalized records and persisted blobs
type DB struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// Open opens (creating if needed) the SQLite database at path and applies the schema
func Open(path string) (*DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &DB{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle
func (db *DB) Close() error {
	if db == nil || db.sqlDB == nil {
		return nil
	}
	return db.sqlDB.Close()
}

// Repository returns the record repository backed by db
func (db *DB) Repository() *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Blobs returns the content-addressed blob store backed by db
func (db *DB) Blobs() *SQLiteBlobStore {
	return &SQLiteBlobStore{db: db}
}

// SQLiteRepository is a Repository stored in SQLite
type SQLiteRepository struct {
	db *DB
}

// Save inserts rec unless its master signature is already stored
func (r *SQLiteRepository) Save(ctx context.Context, rec model.FinalizedRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.MasterSignature == "" {
		return fmt.Errorf("save record %s: master signature is required", rec.NodeID)
	}

	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", rec.NodeID, err)
	}

	_, err = r.db.sqlDB.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO records (master_signature, node_id, claim_id, finalized_at, body)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.MasterSignature,
		rec.NodeID,
		rec.ClaimID,
		rec.FinalizedAt.UTC().UnixMilli(),
		string(body),
	)
	if err != nil {
		return fmt.Errorf("save record %s: %w", rec.NodeID, err)
	}
	return nil
}

// Get returns the record with the given master signature
func (r *SQLiteRepository) Get(ctx context.Context, masterSignature string) (model.FinalizedRecord, error) {
	if err := ctx.Err(); err != nil {
		return model.FinalizedRecord{}, err
	}

	var body string
	err := r.db.sqlDB.QueryRowContext(
		ctx,
		`SELECT body FROM records WHERE master_signature = ?`,
		masterSignature,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return model.FinalizedRecord{}, fmt.Errorf("record %s: %w", masterSignature, ErrNotFound)
	}
	if err != nil {
		return model.FinalizedRecord{}, fmt.Errorf("get record %s: %w", masterSignature, err)
	}
	return decodeRecord(body)
}

// List returns every record in insertion order
func (r *SQLiteRepository) List(ctx context.Context) ([]model.FinalizedRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := r.db.sqlDB.QueryContext(ctx, `SELECT body FROM records ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.FinalizedRecord
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec, err := decodeRecord(body)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// Count returns the number of records
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

func decodeRecord(body string) (model.FinalizedRecord, error) {
	var rec model.FinalizedRecord
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return model.FinalizedRecord{}, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}

// SQLiteBlobStore is a content-addressed Persister stored in SQLite.
// Persisting the same bytes twice returns the same locator.
type SQLiteBlobStore struct {
	db *DB
}

// Persist stores data under its content address
func (s *SQLiteBlobStore) Persist(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	locator := Locator(data)

	_, err := s.db.sqlDB.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO blobs (locator, data, size, created_at) VALUES (?, ?, ?, ?)`,
		locator,
		data,
		len(data),
		s.db.now().UTC().UnixMilli(),
	)
	if err != nil {
		return "", fmt.Errorf("persist blob: %w", err)
	}
	return locator, nil
}

// Blob returns the bytes stored under locator
func (s *SQLiteBlobStore) Blob(ctx context.Context, locator string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.sqlDB.QueryRowContext(ctx, `SELECT data FROM blobs WHERE locator = ?`, locator).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("blob %s: %w", locator, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get blob %s: %w", locator, err)
	}
	return data, nil
}
