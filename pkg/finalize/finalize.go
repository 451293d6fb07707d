// Package finalize orchestrates the two physical steps that turn a
// fully written temporary download into a trusted artifact: the
// relocation to its final path and the content inspection pass. Both
// steps are synchronous and blocking; the caller must already be
// committed to finalizing before invoking them.
package finalize

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fetchguard/finalizer/pkg/classify"
	"github.com/fetchguard/finalizer/pkg/interrupt"
)

// Relocator is the OS batch file-move primitive. It returns the raw
// operation code (0 meaning no error signaled) and whether any
// individual operation was aborted despite the code.
type Relocator interface {
	Move(source, destination string) (code int, aborted bool)
}

// Inspector submits a finalized file to the content inspection
// service along with its provenance URL and returns the raw call
// status. The service may delete the file as a side effect.
type Inspector interface {
	Scan(ctx context.Context, path string, provenanceURL string) (status uint32)
}

// Auditor records diagnostic entries for non-clean outcomes.
// Fire-and-forget: auditing failures never influence the returned
// reason.
type Auditor interface {
	LogInterrupt(operation string, code int64, reason interrupt.Reason)
}

// Stats counts the lenient annotate path: an inspection call that
// failed but left the file intact and was therefore classified clean.
type Stats interface {
	FileKeptAfterFailedScan()
}

type noopAuditor struct{}

func (noopAuditor) LogInterrupt(string, int64, interrupt.Reason) {}

type noopStats struct{}

func (noopStats) FileKeptAfterFailedScan() {}

// RelocationRequest describes one relocation attempt. Both paths must
// be absolute, non-empty and distinct.
type RelocationRequest struct {
	Source      string
	Destination string
}

func (r RelocationRequest) valid() bool {
	if r.Source == "" || r.Destination == "" {
		return false
	}
	if !filepath.IsAbs(r.Source) || !filepath.IsAbs(r.Destination) {
		return false
	}
	return r.Source != r.Destination
}

type Finalizer struct {
	relocator Relocator
	inspector Inspector
	auditor   Auditor
	stats     Stats

	// post-inspection existence oracle, swappable for tests
	exists func(path string) bool
}

func New(relocator Relocator, inspector Inspector, auditor Auditor, stats Stats) *Finalizer {
	if auditor == nil {
		auditor = noopAuditor{}
	}
	if stats == nil {
		stats = noopStats{}
	}
	return &Finalizer{
		relocator: relocator,
		inspector: inspector,
		auditor:   auditor,
		stats:     stats,
		exists: func(path string) bool {
			_, err := os.Stat(path)
			return err == nil
		},
	}
}

// invalidRequestCode is audited when a request is rejected before the
// primitive runs. It mirrors DE_INVALIDFILES so the audit stream can
// tell a rejected request from a success code carrying the aborted
// flag, which is audited with code 0.
const invalidRequestCode = 0x7C

// Relocate moves the temporary file to its final destination. The
// primitive is configured for silent, non-interactive operation with
// security attributes reset, so the artifact adopts the destination's
// ambient permissions instead of inheriting the restricted spool
// ones. A success code paired with the aborted flag is a silent
// partial failure and classifies as FileFailed.
func (f *Finalizer) Relocate(req RelocationRequest) interrupt.Reason {
	if !req.valid() {
		f.auditor.LogInterrupt("relocate", invalidRequestCode, interrupt.FileFailed)
		return interrupt.FileFailed
	}
	code, aborted := f.relocator.Move(req.Source, req.Destination)
	reason := classify.RelocationCode(code)
	if code == 0 && aborted {
		reason = interrupt.FileFailed
	}
	if reason != interrupt.None {
		f.auditor.LogInterrupt("relocate", int64(code), reason)
	}
	return reason
}

// Annotate submits the relocated artifact to the inspection service
// with its originating URL as provenance, then checks whether the
// file survived the call. The existence check is the authoritative
// oracle: the service's failure codes are not a stable enumeration,
// but it only deletes what it blocks. Never retried; there is no
// rollback of the relocation regardless of the outcome.
func (f *Finalizer) Annotate(ctx context.Context, path string, provenanceURL string) interrupt.Reason {
	status := f.inspector.Scan(ctx, path, provenanceURL)
	stillExists := f.exists(path)
	reason := classify.InspectionResult(status, stillExists)
	if reason == interrupt.None && !classify.Succeeded(status) {
		// lenient path: failed call, intact file. Kept clean on
		// purpose, but counted so the policy stays observable.
		f.stats.FileKeptAfterFailedScan()
	}
	if reason != interrupt.None {
		f.auditor.LogInterrupt("annotate", int64(status), reason)
	}
	return reason
}

// Finalize runs both steps in order. If the destination file is
// already gone between a clean relocation and the inspection call,
// something external deleted it and the attempt reports FileFailed
// rather than handing a missing path to the inspection service.
func (f *Finalizer) Finalize(ctx context.Context, req RelocationRequest, provenanceURL string) interrupt.Reason {
	if reason := f.Relocate(req); reason != interrupt.None {
		return reason
	}
	if !f.exists(req.Destination) {
		f.auditor.LogInterrupt("finalize", 0, interrupt.FileFailed)
		return interrupt.FileFailed
	}
	return f.Annotate(ctx, req.Destination, provenanceURL)
}
