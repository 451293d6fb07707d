// Package journal keeps a durable, append-only record of finalize
// attempts. One row per attempt; the slog stream carries the same
// information transiently.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fetchguard/finalizer/pkg/interrupt"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type Entry struct {
	AttemptID     string    `json:"attempt-id" yaml:"attempt-id"`
	Source        string    `json:"source" yaml:"source"`
	Destination   string    `json:"destination" yaml:"destination"`
	ProvenanceURL string    `json:"provenance-url,omitempty" yaml:"provenance-url,omitempty"`
	Operation     string    `json:"operation" yaml:"operation"`
	Code          int64     `json:"code" yaml:"code"`
	Reason        string    `json:"reason" yaml:"reason"`
	CreatedAt     time.Time `json:"created-at" yaml:"created-at"`
}

func NewEntry(source, destination, provenanceURL, operation string, code int64, reason interrupt.Reason) *Entry {
	return &Entry{
		AttemptID:     uuid.NewString(),
		Source:        source,
		Destination:   destination,
		ProvenanceURL: provenanceURL,
		Operation:     operation,
		Code:          code,
		Reason:        reason.String(),
	}
}

type Journal struct {
	db *sql.DB
}

const createTable = `CREATE TABLE IF NOT EXISTS attempts (
	attempt_id TEXT PRIMARY KEY,
	source TEXT,
	destination TEXT,
	provenance_url TEXT,
	operation TEXT,
	code int NOT NULL,
	reason TEXT NOT NULL,
	created_at int NOT NULL);`

var Now = time.Now

// Open creates or opens the journal database. An empty location opens
// an in-memory journal, lost on exit.
func Open(ctx context.Context, location string) (j *Journal, err error) {
	finalLocation := "file::memory:"
	if location != "" {
		_, err = os.Stat(location)
		switch {
		case err == nil:
		case errors.Is(err, os.ErrNotExist):
			if err = os.MkdirAll(filepath.Dir(location), 0o750); err != nil {
				err = fmt.Errorf("failed to create journal location: %w", err)
				return
			}
			if _, err = os.Create(filepath.Clean(location)); err != nil {
				err = fmt.Errorf("failed to create journal file: %w", err)
				return
			}
		default:
			return
		}
		finalLocation = location
	}

	db, err := sql.Open("sqlite", finalLocation)
	if err != nil {
		err = fmt.Errorf("failed to open journal: %w", err)
		return
	}
	if _, err = db.ExecContext(ctx, createTable); err != nil {
		err = fmt.Errorf("failed to init journal: %w", err)
		return
	}
	j = &Journal{db: db}
	return
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) Record(ctx context.Context, entry *Entry) (err error) {
	if entry.AttemptID == "" {
		entry.AttemptID = uuid.NewString()
	}
	if entry.CreatedAt.UnixMilli() <= 0 {
		entry.CreatedAt = Now()
	}
	insert := `INSERT INTO attempts (attempt_id, source, destination, provenance_url, operation, code, reason, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err = j.db.ExecContext(ctx, insert,
		entry.AttemptID,
		entry.Source,
		entry.Destination,
		entry.ProvenanceURL,
		entry.Operation,
		entry.Code,
		entry.Reason,
		entry.CreatedAt.UnixMilli(),
	)
	return
}

// List returns the most recent attempts, newest first. limit <= 0
// returns everything.
func (j *Journal) List(ctx context.Context, limit int) (entries []*Entry, err error) {
	query := "SELECT attempt_id, source, destination, provenance_url, operation, code, reason, created_at FROM attempts ORDER BY created_at DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := j.db.QueryContext(ctx, query, args...)
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
		var createdAt int64
		if err = rows.Scan(&entry.AttemptID, &entry.Source, &entry.Destination, &entry.ProvenanceURL, &entry.Operation, &entry.Code, &entry.Reason, &createdAt); err != nil {
			return
		}
		entry.CreatedAt = time.UnixMilli(createdAt)
		entries = append(entries, entry)
	}
	err = rows.Err()
	return
}
