package inspect

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/fetchguard/finalizer/pkg/classify"
	"github.com/fetchguard/finalizer/pkg/quarantine"
	"github.com/kballard/go-shellquote"
)

const defaultDetectExitCode = 1

// ExecInspector delegates inspection to an external scanner command
// (clamscan-style). The file path is appended to the configured
// command line; provenance travels in the environment so zone-aware
// scanners can use it.
type ExecInspector struct {
	argv           []string
	detectExitCode int
	timeout        time.Duration
	quarantiner    quarantine.Quarantiner
}

func NewExecInspector(conf Config, quarantiner quarantine.Quarantiner) (inspector *ExecInspector, err error) {
	if conf.Command == "" {
		err = errors.New("inspector command is mandatory in command mode")
		return
	}
	argv, err := shellquote.Split(conf.Command)
	if err != nil {
		return
	}
	if conf.DetectExitCode == 0 {
		conf.DetectExitCode = defaultDetectExitCode
	}
	inspector = &ExecInspector{
		argv:           argv,
		detectExitCode: conf.DetectExitCode,
		timeout:        conf.Timeout,
		quarantiner:    quarantiner,
	}
	return
}

func (i *ExecInspector) Scan(ctx context.Context, path string, provenanceURL string) uint32 {
	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	args := append(append([]string{}, i.argv[1:]...), path)
	cmd := exec.CommandContext(ctx, i.argv[0], args...)
	cmd.Env = append(os.Environ(), "FGFINALIZE_SOURCE_URL="+provenanceURL)

	output, err := cmd.CombinedOutput()
	if err == nil {
		return classify.StatusOK
	}

	exitErr := new(exec.ExitError)
	if errors.As(err, &exitErr) && exitErr.ExitCode() == i.detectExitCode {
		logger.Info("scanner reported a detection",
			slog.String("file", path),
			slog.String("scanner", i.argv[0]),
			slog.String("output", string(output)),
		)
		i.block(ctx, path, string(output))
		return classify.StatusInfectionFound
	}

	logger.Warn("scanner call failed",
		slog.String("file", path),
		slog.String("scanner", i.argv[0]),
		slog.String("error", err.Error()),
	)
	return classify.StatusUnexpected
}

// block removes the detected file, sealing it first when a
// quarantiner is configured. If removal fails the file survives and
// the attempt will classify lenient; that is logged as an error
// because it leaves an untrusted artifact in place.
func (i *ExecInspector) block(ctx context.Context, path string, verdict string) {
	if i.quarantiner != nil {
		_, err := i.quarantiner.Seal(ctx, path, verdict)
		if err == nil {
			return
		}
		logger.Error("could not seal detected file, falling back to removal", slog.String("file", path), slog.String("error", err.Error()))
	}
	if err := os.Remove(path); err != nil {
		logger.Error("could not remove detected file", slog.String("file", path), slog.String("error", err.Error()))
	}
}
