// Package classify maps raw relocation and inspection result codes
// into interrupt reasons. Pure functions only; no I/O.
package classify

import "github.com/fetchguard/finalizer/pkg/interrupt"

// Legacy relocation error codes, pre-Win32 era, specific to the shell
// batch file operation primitive. They do not appear in any modern
// header and can numerically collide with the system error code
// space, so this table is always consulted first.
var legacyRelocationCodes = []struct {
	code   int
	reason interrupt.Reason
}{
	{0x71, interrupt.FileFailed},              // DE_SAMEFILE: source and destination are the same file
	{0x72, interrupt.FileFailed},              // DE_MANYSRC1DEST: multiple sources, one destination
	{0x73, interrupt.FileFailed},              // DE_DIFFDIR: rename across directories
	{0x74, interrupt.FileFailed},              // DE_ROOTDIR: source is a root directory
	{0x75, interrupt.FileFailed},              // DE_OPCANCELLED: cancelled, possibly silently
	{0x76, interrupt.FileFailed},              // DE_DESTSUBTREE: destination is a subtree of the source
	{0x78, interrupt.FileAccessDenied},        // DE_ACCESSDENIEDSRC
	{0x79, interrupt.FileNameTooLong},         // DE_PATHTOODEEP
	{0x7A, interrupt.FileFailed},              // DE_MANYDEST
	{0x7C, interrupt.FileFailed},              // DE_INVALIDFILES
	{0x7D, interrupt.FileFailed},              // DE_DESTSAMETREE
	{0x7E, interrupt.FileFailed},              // DE_FLDDESTISFILE
	{0x80, interrupt.FileFailed},              // DE_FILEDESTISFLD
	{0x81, interrupt.FileNameTooLong},         // DE_FILENAMETOOLONG
	{0x82, interrupt.FileAccessDenied},        // DE_DEST_IS_CDROM
	{0x83, interrupt.FileAccessDenied},        // DE_DEST_IS_DVD
	{0x84, interrupt.FileAccessDenied},        // DE_DEST_IS_CDRECORD
	{0x85, interrupt.FileTooLarge},            // DE_FILE_TOO_LARGE
	{0x86, interrupt.FileAccessDenied},        // DE_SRC_IS_CDROM
	{0x87, interrupt.FileAccessDenied},        // DE_SRC_IS_DVD
	{0x88, interrupt.FileAccessDenied},        // DE_SRC_IS_CDRECORD
	{0xB7, interrupt.FileNameTooLong},         // DE_ERROR_MAX
	{0x402, interrupt.FileFailed},             // DE_UNKNOWN_ERROR
	{0x10000, interrupt.FileFailed},           // XE_ERRORONDEST
	{0x10074, interrupt.FileFailed},           // DE_ROOTDIR | ERRORONDEST
}

// RelocationCode maps the integer result of the batch relocation
// primitive onto a Reason. Codes absent from the legacy table are
// treated as system error codes. Total over all integer inputs.
func RelocationCode(code int) interrupt.Reason {
	if code == 0 {
		return interrupt.None
	}
	for _, entry := range legacyRelocationCodes {
		if entry.code == code {
			return entry.reason
		}
	}
	return interrupt.FromSystemCode(code, interrupt.OriginDisk)
}

// Inspection statuses are HRESULT-shaped: an opaque uint32 whose
// failure subset is not fully enumerable. Only the recognized values
// below get a dedicated reason.
const (
	StatusOK              uint32 = 0
	StatusSecurityProblem uint32 = 0x800C000E // INET_E_SECURITY_PROBLEM
	StatusInfectionFound  uint32 = 0x80004005 // E_FAIL from the scan engine
	StatusUnexpected      uint32 = 0x8000FFFF // E_UNEXPECTED
)

// Succeeded reports whether an inspection status denotes success.
func Succeeded(status uint32) bool {
	return status&0x80000000 == 0
}

// InspectionResult combines the inspection call status with the
// post-call existence of the inspected file.
//
// A failed call that leaves the file intact classifies as None: the
// inspection infrastructure being unavailable must not penalize the
// download. A failed call with the file gone means the service took
// destructive action; the disappearance is authoritative even when
// the status code itself is unrecognized.
func InspectionResult(status uint32, fileStillExists bool) interrupt.Reason {
	if Succeeded(status) {
		return interrupt.None
	}
	if fileStillExists {
		return interrupt.None
	}
	switch status {
	case StatusSecurityProblem:
		return interrupt.FileBlocked
	case StatusInfectionFound:
		return interrupt.FileVirusInfected
	}
	return interrupt.FileSecurityCheckFailed
}
