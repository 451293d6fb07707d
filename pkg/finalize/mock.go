package finalize

import (
	"context"

	"github.com/fetchguard/finalizer/pkg/interrupt"
)

type MockRelocator struct {
	MoveMock func(source, destination string) (code int, aborted bool)
}

func (m *MockRelocator) Move(source, destination string) (code int, aborted bool) {
	if m.MoveMock != nil {
		return m.MoveMock(source, destination)
	}
	return 0, false
}

type MockInspector struct {
	ScanMock func(ctx context.Context, path string, provenanceURL string) uint32
}

func (m *MockInspector) Scan(ctx context.Context, path string, provenanceURL string) uint32 {
	if m.ScanMock != nil {
		return m.ScanMock(ctx, path, provenanceURL)
	}
	return 0
}

type MockAuditor struct {
	LogInterruptMock func(operation string, code int64, reason interrupt.Reason)
}

func (m *MockAuditor) LogInterrupt(operation string, code int64, reason interrupt.Reason) {
	if m.LogInterruptMock != nil {
		m.LogInterruptMock(operation, code, reason)
	}
}

type MockStats struct {
	FileKeptAfterFailedScanMock func()
}

func (m *MockStats) FileKeptAfterFailedScan() {
	if m.FileKeptAfterFailedScanMock != nil {
		m.FileKeptAfterFailedScanMock()
	}
}
