package classify

import (
	"math/rand"
	"testing"

	"github.com/fetchguard/finalizer/pkg/interrupt"
)

func TestRelocationCode(t *testing.T) {
	tests := []struct {
		name string
		code int
		want interrupt.Reason
	}{
		{name: "no error", code: 0, want: interrupt.None},
		{name: "same file", code: 0x71, want: interrupt.FileFailed},
		{name: "cancelled", code: 0x75, want: interrupt.FileFailed},
		{name: "access denied on source", code: 0x78, want: interrupt.FileAccessDenied},
		{name: "path too deep", code: 0x79, want: interrupt.FileNameTooLong},
		{name: "invalid paths", code: 0x7C, want: interrupt.FileFailed},
		{name: "destination is a file", code: 0x7E, want: interrupt.FileFailed},
		{name: "destination is a folder", code: 0x80, want: interrupt.FileFailed},
		{name: "file name too long", code: 0x81, want: interrupt.FileNameTooLong},
		{name: "destination read-only media", code: 0x82, want: interrupt.FileAccessDenied},
		{name: "source read-only media", code: 0x86, want: interrupt.FileAccessDenied},
		{name: "file too large for destination", code: 0x85, want: interrupt.FileTooLarge},
		{name: "max path exceeded during operation", code: 0xB7, want: interrupt.FileNameTooLong},
		{name: "unknown legacy failure", code: 0x402, want: interrupt.FileFailed},
		{name: "error on destination", code: 0x10000, want: interrupt.FileFailed},
		{name: "root dir rename on destination", code: 0x10074, want: interrupt.FileFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RelocationCode(tt.code); got != tt.want {
				t.Errorf("RelocationCode(%#x) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

// Legacy codes win over the system code table even where the two
// spaces collide numerically.
func TestRelocationCodeLegacyPrecedence(t *testing.T) {
	for _, entry := range legacyRelocationCodes {
		if got := RelocationCode(entry.code); got != entry.reason {
			t.Errorf("RelocationCode(%#x) = %v, want table reason %v", entry.code, got, entry.reason)
		}
	}
}

func TestRelocationCodeTotality(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	check := func(code int) {
		got := RelocationCode(code)
		if got.String() == "" {
			t.Errorf("RelocationCode(%d) produced an unnamed reason", code)
		}
		if again := RelocationCode(code); again != got {
			t.Errorf("RelocationCode(%d) not idempotent: %v then %v", code, got, again)
		}
	}
	for _, code := range []int{0, -1, 1, 0x71, 0x10074, 1 << 30, -(1 << 30)} {
		check(code)
	}
	for i := 0; i < 10000; i++ {
		check(int(int32(rnd.Uint32())))
	}
}

func TestInspectionResult(t *testing.T) {
	tests := []struct {
		name   string
		status uint32
		exists bool
		want   interrupt.Reason
	}{
		{name: "success", status: StatusOK, exists: true, want: interrupt.None},
		{name: "success with file gone is trusted", status: StatusOK, exists: false, want: interrupt.None},
		{name: "security problem, file deleted", status: StatusSecurityProblem, exists: false, want: interrupt.FileBlocked},
		{name: "infection found, file deleted", status: StatusInfectionFound, exists: false, want: interrupt.FileVirusInfected},
		{name: "unexpected failure, file deleted", status: StatusUnexpected, exists: false, want: interrupt.FileSecurityCheckFailed},
		{name: "unknown failure code, file deleted", status: 0x80070005, exists: false, want: interrupt.FileSecurityCheckFailed},
		{name: "security problem but file kept", status: StatusSecurityProblem, exists: true, want: interrupt.None},
		{name: "infection code but file kept", status: StatusInfectionFound, exists: true, want: interrupt.None},
		{name: "generic failure, file kept", status: 0x80070490, exists: true, want: interrupt.None},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InspectionResult(tt.status, tt.exists); got != tt.want {
				t.Errorf("InspectionResult(%#x, %v) = %v, want %v", tt.status, tt.exists, got, tt.want)
			}
		})
	}
}

// Failure plus a surviving file is always lenient; failure plus a
// missing file is never None.
func TestInspectionResultInvariants(t *testing.T) {
	rnd := rand.New(rand.NewSource(2))
	for i := 0; i < 10000; i++ {
		status := rnd.Uint32() | 0x80000000
		if got := InspectionResult(status, true); got != interrupt.None {
			t.Fatalf("InspectionResult(%#x, true) = %v, want none", status, got)
		}
		if got := InspectionResult(status, false); got == interrupt.None {
			t.Fatalf("InspectionResult(%#x, false) = none, want an interrupt reason", status)
		}
	}
}

func TestSucceeded(t *testing.T) {
	if !Succeeded(StatusOK) {
		t.Error("StatusOK should succeed")
	}
	if !Succeeded(0x00040001) {
		t.Error("positive informational status should succeed")
	}
	if Succeeded(StatusInfectionFound) {
		t.Error("E_FAIL should not succeed")
	}
}
