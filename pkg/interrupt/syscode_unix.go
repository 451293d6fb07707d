//go:build !windows

package interrupt

import "syscall"

var systemCodes = map[int]Reason{
	int(syscall.ENOENT):       FileFailed,
	int(syscall.EACCES):       FileAccessDenied,
	int(syscall.EPERM):        FileAccessDenied,
	int(syscall.EROFS):        FileAccessDenied,
	int(syscall.ENOSPC):       FileNoSpace,
	int(syscall.EDQUOT):       FileNoSpace,
	int(syscall.ENAMETOOLONG): FileNameTooLong,
	int(syscall.EFBIG):        FileTooLarge,
	int(syscall.EAGAIN):       FileTransientError,
	int(syscall.EINTR):        FileTransientError,
	int(syscall.EBUSY):        FileTransientError,
}
