package quarantine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"modernc.org/sqlite"
)

type Entry struct {
	ID           string
	OriginalPath string
	SealedPath   string
	Verdict      string
	CreatedAt    time.Time
	RestoredAt   time.Time
}

type registry interface {
	Set(ctx context.Context, entry *Entry) error
	Get(ctx context.Context, id string) (entry *Entry, err error)
	List(ctx context.Context) (entries []*Entry, err error)
	Close() error
}

var ErrEntryNotFound = errors.New("entry not found")

type sqliteRegistry struct {
	db *sql.DB
}

var _ registry = &sqliteRegistry{}

const createTable = `CREATE TABLE IF NOT EXISTS sealed (
	id TEXT PRIMARY KEY,
	original_path TEXT,
	sealed_path TEXT,
	verdict TEXT,
	created_at int NOT NULL,
	restored_at int);`

func newSQLiteRegistry(ctx context.Context, location string) (r *sqliteRegistry, err error) {
	finalLocation := "file::memory:"
	if location != "" {
		_, err = os.Stat(location)
		switch {
		case err == nil:
		case errors.Is(err, os.ErrNotExist):
			if err = os.MkdirAll(filepath.Dir(location), 0o750); err != nil {
				err = fmt.Errorf("failed to create quarantine registry location: %w", err)
				return
			}
			if _, err = os.Create(filepath.Clean(location)); err != nil {
				err = fmt.Errorf("failed to create quarantine registry file: %w", err)
				return
			}
		default:
			return
		}
		finalLocation = location
	}

	db, err := sql.Open("sqlite", finalLocation)
	if err != nil {
		err = fmt.Errorf("failed to open quarantine registry: %w", err)
		return
	}
	if _, err = db.ExecContext(ctx, createTable); err != nil {
		err = fmt.Errorf("failed to init quarantine registry: %w", err)
		return
	}
	r = &sqliteRegistry{db: db}
	return
}

func (r *sqliteRegistry) Close() error {
	return r.db.Close()
}

var Now = time.Now

func (r *sqliteRegistry) Set(ctx context.Context, entry *Entry) (err error) {
	if entry.CreatedAt.UnixMilli() <= 0 {
		entry.CreatedAt = Now()
	}
	insert := `INSERT INTO sealed (id, original_path, sealed_path, verdict, created_at, restored_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err = r.db.ExecContext(ctx, insert,
		entry.ID,
		entry.OriginalPath,
		entry.SealedPath,
		entry.Verdict,
		entry.CreatedAt.UnixMilli(),
		entry.RestoredAt.UnixMilli(),
	)
	if err == nil {
		return
	}
	sqliteErr := new(sqlite.Error)
	if errors.As(err, &sqliteErr) && sqliteErr.Code() == 1555 {
		update := `UPDATE sealed SET original_path=$2, sealed_path=$3, verdict=$4, created_at=$5, restored_at=$6
		WHERE id = $1`
		_, err = r.db.ExecContext(ctx, update,
			entry.ID,
			entry.OriginalPath,
			entry.SealedPath,
			entry.Verdict,
			entry.CreatedAt.UnixMilli(),
			entry.RestoredAt.UnixMilli(),
		)
	}
	return
}

func (r *sqliteRegistry) Get(ctx context.Context, id string) (entry *Entry, err error) {
	entry = &Entry{}
	var createdAt, restoredAt int64
	err = r.db.QueryRowContext(ctx,
		"SELECT id, original_path, sealed_path, verdict, created_at, restored_at FROM sealed WHERE id = ?", id).Scan(
		&entry.ID,
		&entry.OriginalPath,
		&entry.SealedPath,
		&entry.Verdict,
		&createdAt,
		&restoredAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return
	}
	entry.CreatedAt = time.UnixMilli(createdAt)
	entry.RestoredAt = time.UnixMilli(restoredAt)
	return
}

func (r *sqliteRegistry) List(ctx context.Context) (entries []*Entry, err error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, original_path, sealed_path, verdict, created_at, restored_at FROM sealed ORDER BY created_at")
	if err != nil {
		return
	}
	defer func() {
		if e := rows.Close(); e != nil {
			err = errors.Join(err, e)
		}
	}()
	for rows.Next() {
		entry := &Entry{}
		var createdAt, restoredAt int64
		if err = rows.Scan(&entry.ID, &entry.OriginalPath, &entry.SealedPath, &entry.Verdict, &createdAt, &restoredAt); err != nil {
			return
		}
		entry.CreatedAt = time.UnixMilli(createdAt)
		entry.RestoredAt = time.UnixMilli(restoredAt)
		entries = append(entries, entry)
	}
	err = rows.Err()
	return
}
