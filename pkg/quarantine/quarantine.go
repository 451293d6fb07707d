// Package quarantine seals files rejected by content inspection into
// encrypted containers instead of deleting them outright, so an
// operator can recover a false positive. Sealing removes the original
// file, which is what the finalization existence oracle expects from
// a blocking inspection.
package quarantine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

var LogLevel = &slog.LevelVar{}

var logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
	Level: LogLevel,
}))

type Quarantiner interface {
	// Seal encrypts file into the quarantine location, records it and
	// removes the original.
	Seal(ctx context.Context, file string, verdict string) (entryID string, err error)
	Restore(ctx context.Context, entryID string) (err error)
	List(ctx context.Context) (entries []*Entry, err error)
	Close() error
}

type Config struct {
	Location         string
	RegistryLocation string
	Password         string
}

type Handler struct {
	registry registry
	location string
	password string
}

var _ Quarantiner = &Handler{}

func NewHandler(ctx context.Context, conf Config) (h *Handler, err error) {
	if conf.Location == "" {
		err = errors.New("quarantine location is mandatory")
		return
	}
	if err = os.MkdirAll(conf.Location, 0o750); err != nil {
		err = fmt.Errorf("failed to create quarantine location: %w", err)
		return
	}
	reg, err := newSQLiteRegistry(ctx, conf.RegistryLocation)
	if err != nil {
		return
	}
	h = &Handler{
		registry: reg,
		location: conf.Location,
		password: conf.Password,
	}
	return
}

func (h *Handler) Seal(ctx context.Context, file string, verdict string) (entryID string, err error) {
	info, err := os.Stat(file)
	if err != nil {
		return
	}
	entry := &Entry{
		ID:           uuid.NewString(),
		OriginalPath: file,
		Verdict:      verdict,
	}
	entry.SealedPath = filepath.Join(h.location, entry.ID+".sealed")

	out, err := os.OpenFile(filepath.Clean(entry.SealedPath), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return
	}
	defer func() {
		if e := out.Close(); e != nil {
			logger.Warn("could not close sealed container", slog.String("file", entry.SealedPath), slog.String("error", e.Error()))
		}
		if err != nil {
			if e := os.Remove(entry.SealedPath); e != nil {
				logger.Error("could not remove sealed container after error", slog.String("file", entry.SealedPath), slog.String("error", e.Error()))
			}
		}
	}()

	in, err := os.Open(filepath.Clean(file))
	if err != nil {
		return
	}
	defer func() {
		if e := in.Close(); e != nil {
			logger.Warn("could not close quarantined file", slog.String("file", file), slog.String("error", e.Error()))
		}
	}()

	header := sealHeader{
		Path:     file,
		Verdict:  verdict,
		Mode:     uint32(info.Mode()),
		ModTime:  info.ModTime(),
		Size:     info.Size(),
		SealedAt: Now(),
	}
	if err = seal(h.password, header, in, out); err != nil {
		return
	}
	if err = h.registry.Set(ctx, entry); err != nil {
		return
	}
	if err = os.Remove(file); err != nil {
		return
	}
	logger.Info("file sealed", slog.String("file", file), slog.String("id", entry.ID), slog.String("verdict", verdict))
	entryID = entry.ID
	return
}

func (h *Handler) Restore(ctx context.Context, entryID string) (err error) {
	sealedPath := filepath.Join(h.location, entryID+".sealed")
	in, err := os.Open(filepath.Clean(sealedPath))
	if err != nil {
		return
	}
	removeSealed := false
	defer func() {
		if e := in.Close(); e != nil {
			logger.Error("could not close sealed container", slog.String("error", e.Error()))
		}
		if removeSealed {
			if e := os.Remove(sealedPath); e != nil {
				logger.Error("could not remove sealed container after restore", slog.String("error", e.Error()))
			}
		}
	}()

	header, err := readSealHeader(in)
	if err != nil {
		return
	}
	if _, err = in.Seek(0, io.SeekStart); err != nil {
		return
	}
	out, err := os.Create(filepath.Clean(header.Path))
	if err != nil {
		return
	}
	defer func() {
		if e := out.Close(); e != nil {
			logger.Error("could not close restored file", slog.String("file", header.Path), slog.String("error", e.Error()))
		}
		if err != nil {
			if e := os.Remove(out.Name()); e != nil {
				logger.Error("could not remove restored file after error", slog.String("file", header.Path), slog.String("error", e.Error()))
			}
		}
	}()

	if _, err = openSeal(h.password, in, out); err != nil {
		return
	}
	if err = os.Chmod(header.Path, os.FileMode(header.Mode)); err != nil {
		return
	}
	if err = os.Chtimes(header.Path, header.ModTime, header.ModTime); err != nil {
		return
	}

	entry, getErr := h.registry.Get(ctx, entryID)
	if getErr == nil {
		entry.RestoredAt = Now()
		entry.SealedPath = ""
		if e := h.registry.Set(ctx, entry); e != nil {
			logger.Error("could not update registry after restore", slog.String("id", entryID), slog.String("error", e.Error()))
		}
	} else if !errors.Is(getErr, ErrEntryNotFound) {
		logger.Error("could not read registry entry", slog.String("id", entryID), slog.String("error", getErr.Error()))
	}

	logger.Info("file restored", slog.String("file", header.Path), slog.String("verdict", header.Verdict))
	removeSealed = true
	return
}

func (h *Handler) List(ctx context.Context) (entries []*Entry, err error) {
	return h.registry.List(ctx)
}

func (h *Handler) Close() error {
	return h.registry.Close()
}
