//go:build !windows

package inspect

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fetchguard/finalizer/pkg/classify"
	"github.com/fetchguard/finalizer/pkg/quarantine"
)

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("could not write script: %v", err)
	}
	return path
}

func writeTarget(t *testing.T, dir string) string {
	t.Helper()
	target := filepath.Join(dir, "download.bin")
	if err := os.WriteFile(target, []byte("content"), 0o644); err != nil {
		t.Fatalf("could not write target: %v", err)
	}
	return target
}

func TestExecInspectorClean(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "clean.sh", "exit 0\n")
	target := writeTarget(t, dir)

	inspector, err := NewExecInspector(Config{Mode: ModeCommand, Command: script}, nil)
	if err != nil {
		t.Fatalf("NewExecInspector() error: %v", err)
	}
	status := inspector.Scan(context.Background(), target, "https://example.com/download.bin")
	if status != classify.StatusOK {
		t.Errorf("Scan() = %#x, want StatusOK", status)
	}
	if _, err := os.Stat(target); err != nil {
		t.Errorf("clean file must survive inspection: %v", err)
	}
}

func TestExecInspectorDetectionRemovesFile(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "detect.sh", "exit 1\n")
	target := writeTarget(t, dir)

	inspector, err := NewExecInspector(Config{Mode: ModeCommand, Command: script}, nil)
	if err != nil {
		t.Fatalf("NewExecInspector() error: %v", err)
	}
	status := inspector.Scan(context.Background(), target, "")
	if status != classify.StatusInfectionFound {
		t.Errorf("Scan() = %#x, want StatusInfectionFound", status)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Error("detected file must be removed")
	}
}

func TestExecInspectorDetectionSealsFile(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "detect.sh", "exit 1\n")
	target := writeTarget(t, dir)

	quarantiner, err := quarantine.NewHandler(context.Background(), quarantine.Config{
		Location: filepath.Join(dir, "quarantine"),
		Password: "infected",
	})
	if err != nil {
		t.Fatalf("could not create quarantiner: %v", err)
	}
	defer quarantiner.Close()

	inspector, err := NewExecInspector(Config{Mode: ModeCommand, Command: script}, quarantiner)
	if err != nil {
		t.Fatalf("NewExecInspector() error: %v", err)
	}
	status := inspector.Scan(context.Background(), target, "")
	if status != classify.StatusInfectionFound {
		t.Errorf("Scan() = %#x, want StatusInfectionFound", status)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Error("sealed file must be removed from its original path")
	}
	entries, err := quarantiner.List(context.Background())
	if err != nil || len(entries) != 1 {
		t.Errorf("List() = %v entries (err %v), want 1", len(entries), err)
	}
}

func TestExecInspectorScannerFailureIsNotBlocking(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "broken.sh", "exit 3\n")
	target := writeTarget(t, dir)

	inspector, err := NewExecInspector(Config{Mode: ModeCommand, Command: script}, nil)
	if err != nil {
		t.Fatalf("NewExecInspector() error: %v", err)
	}
	status := inspector.Scan(context.Background(), target, "")
	if status != classify.StatusUnexpected {
		t.Errorf("Scan() = %#x, want StatusUnexpected", status)
	}
	if _, err := os.Stat(target); err != nil {
		t.Errorf("file must survive a scanner failure: %v", err)
	}
}

func TestExecInspectorMissingCommand(t *testing.T) {
	target := writeTarget(t, t.TempDir())
	inspector, err := NewExecInspector(Config{Mode: ModeCommand, Command: "/nonexistent/scanner"}, nil)
	if err != nil {
		t.Fatalf("NewExecInspector() error: %v", err)
	}
	if status := inspector.Scan(context.Background(), target, ""); status != classify.StatusUnexpected {
		t.Errorf("Scan() = %#x, want StatusUnexpected", status)
	}
}

func TestExecInspectorProvenanceEnv(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "seen-url")
	script := writeScript(t, dir, "env.sh", "printf '%s' \"$FGFINALIZE_SOURCE_URL\" > "+marker+"\nexit 0\n")
	target := writeTarget(t, dir)

	inspector, err := NewExecInspector(Config{Mode: ModeCommand, Command: script}, nil)
	if err != nil {
		t.Fatalf("NewExecInspector() error: %v", err)
	}
	if status := inspector.Scan(context.Background(), target, "https://example.com/x"); status != classify.StatusOK {
		t.Errorf("Scan() = %#x, want StatusOK", status)
	}
	seen, err := os.ReadFile(marker)
	if err != nil || string(seen) != "https://example.com/x" {
		t.Errorf("scanner saw provenance %q (err %v)", seen, err)
	}
}

func TestNewInspectorModes(t *testing.T) {
	if _, err := New(Config{Mode: ModeOff}, nil); err != nil {
		t.Errorf("off mode error: %v", err)
	}
	if _, err := New(Config{}, nil); err != nil {
		t.Errorf("default mode error: %v", err)
	}
	if _, err := New(Config{Mode: "bogus"}, nil); err == nil {
		t.Error("bogus mode should fail")
	}
	if _, err := New(Config{Mode: ModeCommand}, nil); err == nil {
		t.Error("command mode without a command should fail")
	}
	if _, err := New(Config{Mode: ModeAttachment}, nil); err == nil {
		t.Error("attachment mode should fail off windows")
	}
}
