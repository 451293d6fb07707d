// Package handler wires the finalization pipeline together: it turns
// completed downloads found in the intake into finalized files at the
// destination, journals every attempt and exposes the watch loop used
// by the long running mode.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/alecthomas/units"
	"github.com/fetchguard/finalizer/pkg/config"
	"github.com/fetchguard/finalizer/pkg/export"
	"github.com/fetchguard/finalizer/pkg/finalize"
	"github.com/fetchguard/finalizer/pkg/inspect"
	"github.com/fetchguard/finalizer/pkg/interrupt"
	"github.com/fetchguard/finalizer/pkg/journal"
	"github.com/fetchguard/finalizer/pkg/quarantine"
	"github.com/fetchguard/finalizer/pkg/relocate"
)

var LogLevel = &slog.LevelVar{}

var logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
	Level: LogLevel,
}))

// SourceSidecarExt is the extension of the provenance sidecar dropped
// next to a download. The sidecar holds the originating URL and is
// consumed by the finalization of its sibling.
const SourceSidecarExt = ".source"

// Stats counts pipeline events worth watching over time.
type Stats struct {
	filesFinalized           atomic.Int64
	filesInterrupted         atomic.Int64
	filesKeptAfterFailedScan atomic.Int64
}

func (s *Stats) FileKeptAfterFailedScan() { s.filesKeptAfterFailedScan.Add(1) }

func (s *Stats) FilesFinalized() int64           { return s.filesFinalized.Load() }
func (s *Stats) FilesInterrupted() int64         { return s.filesInterrupted.Load() }
func (s *Stats) FilesKeptAfterFailedScan() int64 { return s.filesKeptAfterFailedScan.Load() }

type Handler struct {
	Quarantiner quarantine.Quarantiner
	Journal     *journal.Journal

	finalizer   *finalize.Finalizer
	monitor     Monitorer
	stats       *Stats
	conf        *config.Config
	maxFileSize int64

	// serializes finalize attempts so lastCode and lastOp match the
	// attempt being journaled
	mu       sync.Mutex
	lastCode atomic.Int64
	lastOp   atomic.Value

	stopped bool
}

func NewHandler(ctx context.Context, conf *config.Config) (h *Handler, err error) {
	h = &Handler{
		stats:   &Stats{},
		conf:    conf,
		stopped: true,
	}

	if conf.Debug {
		LogLevel.Set(slog.LevelDebug)
		relocate.LogLevel.Set(slog.LevelDebug)
		inspect.LogLevel.Set(slog.LevelDebug)
		quarantine.LogLevel.Set(slog.LevelDebug)
		export.LogLevel.Set(slog.LevelDebug)
		logger.Debug("log level set to debug")
	}

	if conf.Destination == "" {
		err = errors.New("destination is mandatory")
		return
	}

	maxFileSize := int64(0)
	if conf.MaxFileSize != "" {
		maxFileSize, err = units.ParseStrictBytes(conf.MaxFileSize)
		if err != nil {
			err = fmt.Errorf("could not parse max-file-size: %w", err)
			return
		}
	}
	if maxFileSize <= 0 {
		maxFileSize, _ = units.ParseStrictBytes(config.DefaultMaxFileSize)
	}
	h.maxFileSize = maxFileSize

	if conf.Quarantine.Location != "" {
		h.Quarantiner, err = quarantine.NewHandler(ctx, quarantine.Config{
			Location:         conf.Quarantine.Location,
			RegistryLocation: conf.Quarantine.Registry,
			Password:         conf.Quarantine.Password,
		})
		if err != nil {
			err = fmt.Errorf("error init quarantine: %w", err)
			return
		}
	}

	inspector, err := inspect.New(inspect.Config{
		Mode:           conf.Inspector.Mode,
		Command:        conf.Inspector.Command,
		DetectExitCode: conf.Inspector.DetectExitCode,
		Timeout:        conf.Inspector.Timeout,
	}, h.Quarantiner)
	if err != nil {
		err = fmt.Errorf("error init inspector: %w", err)
		return
	}

	h.Journal, err = journal.Open(ctx, conf.Journal.Location)
	if err != nil {
		err = fmt.Errorf("error init journal: %w", err)
		return
	}

	h.finalizer = finalize.New(relocate.New(), inspector, h, h.stats)

	mon, err := NewMonitor(h.OnNewFile(ctx), MonitorConfig{
		PreScan:  conf.Monitoring.PreScan,
		ModDelay: conf.Monitoring.ModificationDelay,
	})
	if err != nil {
		return
	}
	h.monitor = mon
	return
}

// LogInterrupt records a non-clean step outcome. It also keeps the raw
// code and operation of the current attempt for the journal row.
func (h *Handler) LogInterrupt(operation string, code int64, reason interrupt.Reason) {
	h.lastCode.Store(code)
	h.lastOp.Store(operation)
	logger.Warn("finalization interrupted",
		slog.String("operation", operation),
		slog.Int64("code", code),
		slog.String("reason", reason.String()),
	)
}

// Stats returns the pipeline counters.
func (h *Handler) PipelineStats() *Stats {
	return h.stats
}

// FinalizeFile runs the whole pipeline on one intake file: size
// pre-flight, relocation to the destination, inspection, journal row.
// An empty sourceURL falls back to the file's provenance sidecar. The
// returned reason is None for a finalized, trusted file.
func (h *Handler) FinalizeFile(ctx context.Context, source string, sourceURL string) (reason interrupt.Reason, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastCode.Store(0)
	h.lastOp.Store("finalize")

	source, err = filepath.Abs(source)
	if err != nil {
		return
	}
	provenance := sourceURL
	if provenance == "" {
		provenance = h.readProvenance(source)
	}
	destination := filepath.Join(h.conf.Destination, filepath.Base(source))
	destination, err = filepath.Abs(destination)
	if err != nil {
		return
	}

	info, err := os.Stat(source)
	if err != nil {
		err = fmt.Errorf("could not check file %s: %w", source, err)
		return
	}
	if info.Size() > h.maxFileSize {
		reason = interrupt.FileTooLarge
		h.LogInterrupt("finalize", info.Size(), reason)
		h.stats.filesInterrupted.Add(1)
		err = h.record(ctx, source, destination, provenance, reason)
		return
	}

	if err = os.MkdirAll(h.conf.Destination, 0o750); err != nil {
		err = fmt.Errorf("could not create destination: %w", err)
		return
	}

	reason = h.finalizer.Finalize(ctx, finalize.RelocationRequest{
		Source:      source,
		Destination: destination,
	}, provenance)

	if err = h.record(ctx, source, destination, provenance, reason); err != nil {
		return
	}

	if reason == interrupt.None {
		h.stats.filesFinalized.Add(1)
		h.removeSidecar(source)
		if h.conf.Verbose {
			logger.Info("file finalized", slog.String("source", source), slog.String("destination", destination))
		}
		return
	}
	h.stats.filesInterrupted.Add(1)
	return
}

func (h *Handler) record(ctx context.Context, source, destination, provenance string, reason interrupt.Reason) (err error) {
	operation, _ := h.lastOp.Load().(string)
	entry := journal.NewEntry(source, destination, provenance, operation, h.lastCode.Load(), reason)
	if err = h.Journal.Record(ctx, entry); err != nil {
		err = fmt.Errorf("could not journal attempt for %s: %w", source, err)
	}
	return
}

// readProvenance returns the URL stored in the file's sidecar, empty
// when there is none.
func (h *Handler) readProvenance(source string) string {
	raw, err := os.ReadFile(filepath.Clean(source + SourceSidecarExt))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}

func (h *Handler) removeSidecar(source string) {
	sidecar := source + SourceSidecarExt
	if err := os.Remove(sidecar); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("could not remove provenance sidecar", slog.String("file", sidecar), slog.String("error", err.Error()))
	}
}

// OnNewFile is the watcher callback. Provenance sidecars never go
// through the pipeline themselves.
func (h *Handler) OnNewFile(ctx context.Context) OnNewFileFunc {
	return func(file string) error {
		if strings.HasSuffix(file, SourceSidecarExt) {
			return nil
		}
		_, err := h.FinalizeFile(ctx, file, "")
		return err
	}
}

// Start begins watching the intake directory.
func (h *Handler) Start(ctx context.Context) (err error) {
	if h.conf.Intake == "" {
		err = errors.New("intake is mandatory to watch")
		return
	}
	h.monitor.Start()
	if err = h.monitor.Add(h.conf.Intake); err != nil {
		err = fmt.Errorf("could not watch intake %s: %w", h.conf.Intake, err)
		if e := h.monitor.Close(); e != nil {
			logger.Error("could not close monitor", slog.String("error", e.Error()))
		}
		return
	}
	h.stopped = false
	logger.Info("finalizer started", slog.String("intake", h.conf.Intake), slog.String("destination", h.conf.Destination))
	return
}

// Stop closes the monitor and the backing stores. The monitor exists
// even when Start was never called, so it is closed regardless of the
// watch state, and a close failure never leaves the stores open.
func (h *Handler) Stop(ctx context.Context) (err error) {
	running := !h.stopped
	h.stopped = true
	if h.monitor != nil {
		err = h.monitor.Close()
		h.monitor = nil
	}
	err = errors.Join(err, h.closeStores())
	if running {
		logger.Info("finalizer stopped")
	}
	return
}

func (h *Handler) closeStores() (err error) {
	if h.Journal != nil {
		if e := h.Journal.Close(); e != nil {
			err = errors.Join(err, e)
		}
		h.Journal = nil
	}
	if h.Quarantiner != nil {
		if e := h.Quarantiner.Close(); e != nil {
			err = errors.Join(err, e)
		}
		h.Quarantiner = nil
	}
	return
}

// ExportJournal ships the latest journal entries to the configured S3
// bucket and returns the object key.
func (h *Handler) ExportJournal(ctx context.Context, limit int) (key string, err error) {
	if h.conf.Export.Bucket == "" {
		err = errors.New("export bucket is not configured")
		return
	}
	exporter, err := export.New(ctx, export.Config{
		Bucket:          h.conf.Export.Bucket,
		Prefix:          h.conf.Export.Prefix,
		Region:          h.conf.Export.Region,
		Endpoint:        h.conf.Export.Endpoint,
		AccessKeyID:     h.conf.Export.AccessKeyID,
		SecretAccessKey: h.conf.Export.SecretAccessKey,
		Insecure:        h.conf.Export.Insecure,
		UsePathStyle:    h.conf.Export.UsePathStyle,
	})
	if err != nil {
		return
	}
	entries, err := h.Journal.List(ctx, limit)
	if err != nil {
		return
	}
	return exporter.Export(ctx, entries)
}
