//go:build windows

package interrupt

// Winerror.h values observed from SHFileOperation and plain file I/O.
var systemCodes = map[int]Reason{
	2:   FileFailed,         // ERROR_FILE_NOT_FOUND
	3:   FileFailed,         // ERROR_PATH_NOT_FOUND
	5:   FileAccessDenied,   // ERROR_ACCESS_DENIED
	8:   FileTransientError, // ERROR_NOT_ENOUGH_MEMORY
	19:  FileAccessDenied,   // ERROR_WRITE_PROTECT
	32:  FileTransientError, // ERROR_SHARING_VIOLATION
	33:  FileTransientError, // ERROR_LOCK_VIOLATION
	39:  FileNoSpace,        // ERROR_HANDLE_DISK_FULL
	111: FileNameTooLong,    // ERROR_BUFFER_OVERFLOW
	112: FileNoSpace,        // ERROR_DISK_FULL
	206: FileNameTooLong,    // ERROR_FILENAME_EXCED_RANGE
	223: FileTooLarge,       // ERROR_FILE_TOO_LARGE
}
