// Package inspect provides content inspection service adapters. Each
// adapter reports an opaque HRESULT-shaped status; blocking a file
// implies removing it, which the finalization layer detects through
// its existence oracle rather than through the status code.
package inspect

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fetchguard/finalizer/pkg/classify"
	"github.com/fetchguard/finalizer/pkg/finalize"
	"github.com/fetchguard/finalizer/pkg/quarantine"
)

var LogLevel = &slog.LevelVar{}

var logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
	Level: LogLevel,
}))

const (
	ModeAttachment = "attachment"
	ModeCommand    = "command"
	ModeOff        = "off"
)

type Config struct {
	Mode           string
	Command        string
	DetectExitCode int
	Timeout        time.Duration
}

// New builds the inspector for the configured mode. A nil quarantiner
// makes the command inspector delete detections instead of sealing
// them.
func New(conf Config, quarantiner quarantine.Quarantiner) (inspector finalize.Inspector, err error) {
	switch conf.Mode {
	case ModeOff, "":
		inspector = offInspector{}
	case ModeCommand:
		inspector, err = NewExecInspector(conf, quarantiner)
	case ModeAttachment:
		inspector, err = newAttachmentInspector()
	default:
		err = fmt.Errorf("unknown inspector mode %q", conf.Mode)
	}
	return
}

// offInspector reports every file clean. Used when inspection is
// disabled by configuration.
type offInspector struct{}

func (offInspector) Scan(ctx context.Context, path string, provenanceURL string) uint32 {
	return classify.StatusOK
}
