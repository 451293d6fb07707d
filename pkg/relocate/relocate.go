// Package relocate provides the OS batch file-move primitive used to
// place a finalized download at its destination. The move is silent
// and non-interactive, and the relocated file adopts the ambient
// security attributes of the destination instead of carrying over the
// restricted ones of the download spool.
package relocate

import (
	"log/slog"
	"os"

	"github.com/fetchguard/finalizer/pkg/finalize"
)

var LogLevel = &slog.LevelVar{}

var logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
	Level: LogLevel,
}))

// New returns the relocation primitive for the current platform.
func New() finalize.Relocator {
	return newPlatformRelocator()
}
