package interrupt

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"
	"testing"
)

func TestReasonString(t *testing.T) {
	for r := None; r <= NetworkFailed; r++ {
		if r.String() == "" {
			t.Errorf("reason %d has no name", int(r))
		}
	}
	if got := Reason(9999).String(); got != "file-failed" {
		t.Errorf("out of range reason = %q, want file-failed", got)
	}
}

func TestFromSystemCode(t *testing.T) {
	if got := FromSystemCode(0, OriginDisk); got != None {
		t.Errorf("FromSystemCode(0) = %v, want none", got)
	}
	if got := FromSystemCode(int(syscall.ENOSPC), OriginDisk); got != FileNoSpace {
		t.Errorf("FromSystemCode(ENOSPC) = %v, want file-no-space", got)
	}
	if got := FromSystemCode(987654, OriginDisk); got != FileFailed {
		t.Errorf("unknown disk code = %v, want file-failed", got)
	}
	if got := FromSystemCode(987654, OriginNetwork); got != NetworkFailed {
		t.Errorf("unknown network code = %v, want network-failed", got)
	}
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Reason
	}{
		{name: "nil", err: nil, want: None},
		{name: "no space", err: fmt.Errorf("write: %w", syscall.ENOSPC), want: FileNoSpace},
		{name: "access denied", err: &fs.PathError{Op: "rename", Err: syscall.EACCES}, want: FileAccessDenied},
		{name: "name too long", err: syscall.ENAMETOOLONG, want: FileNameTooLong},
		{name: "file too big", err: syscall.EFBIG, want: FileTooLarge},
		{name: "busy", err: syscall.EBUSY, want: FileTransientError},
		{name: "permission sentinel", err: fs.ErrPermission, want: FileAccessDenied},
		{name: "not exist sentinel", err: fs.ErrNotExist, want: FileFailed},
		{name: "opaque", err: errors.New("boom"), want: FileFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromError(tt.err, OriginDisk); got != tt.want {
				t.Errorf("FromError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
	if got := FromError(errors.New("boom"), OriginNetwork); got != NetworkFailed {
		t.Errorf("opaque network error = %v, want network-failed", got)
	}
}
