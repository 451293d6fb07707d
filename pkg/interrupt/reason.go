// Package interrupt defines the closed taxonomy of download
// finalization failures and the translators that map raw OS error
// codes into it. Every finalize attempt yields exactly one Reason;
// None means the attempt fully succeeded.
package interrupt

import (
	"errors"
	"io/fs"
	"syscall"
)

type Reason int

const (
	None Reason = iota
	// FileFailed is the generic relocation failure.
	FileFailed
	FileAccessDenied
	FileNoSpace
	FileNameTooLong
	FileTooLarge
	FileVirusInfected
	FileTransientError
	// FileBlocked is a policy or security-zone rejection.
	FileBlocked
	// FileSecurityCheckFailed covers inspection failures with no
	// recognized policy code.
	FileSecurityCheckFailed
	NetworkFailed
)

func (r Reason) String() string {
	switch r {
	case None:
		return "none"
	case FileFailed:
		return "file-failed"
	case FileAccessDenied:
		return "file-access-denied"
	case FileNoSpace:
		return "file-no-space"
	case FileNameTooLong:
		return "file-name-too-long"
	case FileTooLarge:
		return "file-too-large"
	case FileVirusInfected:
		return "file-virus-infected"
	case FileTransientError:
		return "file-transient-error"
	case FileBlocked:
		return "file-blocked"
	case FileSecurityCheckFailed:
		return "file-security-check-failed"
	case NetworkFailed:
		return "network-failed"
	}
	return "file-failed"
}

// Origin tags which subsystem produced a raw system code, so the
// fallback category can be chosen when the code itself is unknown.
type Origin int

const (
	OriginDisk Origin = iota
	OriginNetwork
	OriginSystem
)

// FromSystemCode translates a raw platform system error code into a
// Reason. The known-code table is platform specific; unrecognized
// codes fall back to a generic category picked by origin. Total over
// all integer inputs.
func FromSystemCode(code int, origin Origin) Reason {
	if code == 0 {
		return None
	}
	if reason, ok := systemCodes[code]; ok {
		return reason
	}
	if origin == OriginNetwork {
		return NetworkFailed
	}
	return FileFailed
}

// FromError translates a Go filesystem error into a Reason. Used by
// call sites that hold an error value rather than a raw code.
func FromError(err error, origin Origin) Reason {
	if err == nil {
		return None
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ENOSPC:
			return FileNoSpace
		case syscall.EACCES, syscall.EPERM, syscall.EROFS:
			return FileAccessDenied
		case syscall.ENAMETOOLONG:
			return FileNameTooLong
		case syscall.EFBIG:
			return FileTooLarge
		case syscall.EAGAIN, syscall.EINTR, syscall.EBUSY:
			return FileTransientError
		}
	}
	switch {
	case errors.Is(err, fs.ErrPermission):
		return FileAccessDenied
	case errors.Is(err, fs.ErrNotExist):
		return FileFailed
	}
	if origin == OriginNetwork {
		return NetworkFailed
	}
	return FileFailed
}
