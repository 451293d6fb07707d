//go:build !windows

package relocate

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
)

// finalMode is the ambient permission set a finalized download
// adopts, replacing the restrictive mode of the spool file.
const finalMode = 0o644

type renameRelocator struct{}

func newPlatformRelocator() *renameRelocator {
	return &renameRelocator{}
}

// Move renames the file, falling back to copy-and-remove across
// filesystems, then resets the mode so the artifact matches its
// destination rather than its origin. Failures surface as errno
// values for the classifier fallback; 0x402 stands in for failures
// with no usable errno, matching the unknown legacy failure slot.
func (*renameRelocator) Move(source, destination string) (code int, aborted bool) {
	err := os.Rename(source, destination)
	if errors.Is(err, syscall.EXDEV) {
		err = copyAcrossDevices(source, destination)
	}
	if err == nil {
		err = os.Chmod(destination, finalMode)
	}
	if err == nil {
		return 0, false
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return int(errno), false
	}
	return 0x402, false
}

func copyAcrossDevices(source, destination string) (err error) {
	in, err := os.Open(filepath.Clean(source))
	if err != nil {
		return
	}
	defer func() {
		if e := in.Close(); e != nil && err == nil {
			err = e
		}
	}()

	out, err := os.OpenFile(filepath.Clean(destination), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, finalMode)
	if err != nil {
		return
	}
	defer func() {
		if e := out.Close(); e != nil && err == nil {
			err = e
		}
		if err != nil {
			if e := os.Remove(destination); e != nil && !errors.Is(e, os.ErrNotExist) {
				logger.Warn("could not clean up partial destination", slog.String("file", destination), slog.String("error", e.Error()))
			}
		}
	}()

	if _, err = io.Copy(out, in); err != nil {
		return
	}
	if err = out.Sync(); err != nil {
		return
	}
	err = os.Remove(source)
	return
}
