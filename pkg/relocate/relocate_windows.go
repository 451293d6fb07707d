//go:build windows

package relocate

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	shell32              = windows.NewLazySystemDLL("shell32.dll")
	procSHFileOperationW = shell32.NewProc("SHFileOperationW")
)

const (
	foMove = 0x0001

	fofSilent                = 0x0004
	fofNoConfirmation        = 0x0010
	fofNoConfirmMkdir        = 0x0200
	fofNoErrorUI             = 0x0400
	fofNoCopySecurityAttribs = 0x0800
)

type shFileOpStruct struct {
	hwnd                  uintptr
	wFunc                 uint32
	pFrom                 *uint16
	pTo                   *uint16
	fFlags                uint16
	fAnyOperationsAborted int32
	hNameMappings         uintptr
	lpszProgressTitle     *uint16
}

type shellRelocator struct{}

func newPlatformRelocator() *shellRelocator {
	return &shellRelocator{}
}

// Move invokes SHFileOperation so the moved file picks up the default
// security descriptor of its new parent. Each path list must be
// double-NUL terminated.
func (*shellRelocator) Move(source, destination string) (code int, aborted bool) {
	from, err := doubleNulPath(source)
	if err != nil {
		return 0x7C, false // DE_INVALIDFILES
	}
	to, err := doubleNulPath(destination)
	if err != nil {
		return 0x7C, false
	}

	op := shFileOpStruct{
		wFunc:  foMove,
		pFrom:  &from[0],
		pTo:    &to[0],
		fFlags: fofSilent | fofNoConfirmation | fofNoErrorUI | fofNoConfirmMkdir | fofNoCopySecurityAttribs,
	}
	ret, _, _ := procSHFileOperationW.Call(uintptr(unsafe.Pointer(&op)))
	return int(int32(ret)), op.fAnyOperationsAborted != 0
}

func doubleNulPath(path string) ([]uint16, error) {
	encoded, err := windows.UTF16FromString(path)
	if err != nil {
		return nil, err
	}
	return append(encoded, 0), nil
}
