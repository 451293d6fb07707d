package quarantine

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestSealRestore(t *testing.T) {
	dir := t.TempDir()
	handler, err := NewHandler(context.Background(), Config{
		Location: filepath.Join(dir, "quarantine"),
		Password: "infected",
	})
	if err != nil {
		t.Fatalf("could not create quarantine handler: %v", err)
	}
	defer handler.Close()

	victim := filepath.Join(dir, "payload.bin")
	content := []byte("malicious looking bytes")
	if err := os.WriteFile(victim, content, 0o640); err != nil {
		t.Fatalf("could not write test file: %v", err)
	}
	modTime := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := os.Chtimes(victim, modTime, modTime); err != nil {
		t.Fatalf("could not set test file times: %v", err)
	}

	id, err := handler.Seal(context.Background(), victim, "Eicar-Test-Signature")
	if err != nil {
		t.Fatalf("Seal() error: %v", err)
	}
	if _, err := os.Stat(victim); !os.IsNotExist(err) {
		t.Error("original file still present after seal")
	}
	sealedPath := filepath.Join(dir, "quarantine", id+".sealed")
	sealed, err := os.ReadFile(sealedPath)
	if err != nil {
		t.Fatalf("sealed container missing: %v", err)
	}
	if bytes.Contains(sealed, content) {
		t.Error("sealed container holds the payload in clear")
	}

	entries, err := handler.List(context.Background())
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != id || entries[0].Verdict != "Eicar-Test-Signature" {
		t.Errorf("unexpected entries: %+v", entries)
	}

	if err := handler.Restore(context.Background(), id); err != nil {
		t.Fatalf("Restore() error: %v", err)
	}
	restored, err := os.ReadFile(victim)
	if err != nil {
		t.Fatalf("restored file missing: %v", err)
	}
	if diff := cmp.Diff(content, restored); diff != "" {
		t.Errorf("restored content mismatch (-want +got):\n%s", diff)
	}
	info, err := os.Stat(victim)
	if err != nil {
		t.Fatalf("could not stat restored file: %v", err)
	}
	if info.Mode().Perm() != 0o640 {
		t.Errorf("restored mode = %v, want 0640", info.Mode().Perm())
	}
	if !info.ModTime().Equal(modTime) {
		t.Errorf("restored mod time = %v, want %v", info.ModTime(), modTime)
	}
	if _, err := os.Stat(sealedPath); !os.IsNotExist(err) {
		t.Error("sealed container still present after restore")
	}
}

func TestRestoreUnknownID(t *testing.T) {
	dir := t.TempDir()
	handler, err := NewHandler(context.Background(), Config{Location: filepath.Join(dir, "q"), Password: "x"})
	if err != nil {
		t.Fatalf("could not create quarantine handler: %v", err)
	}
	defer handler.Close()
	if err := handler.Restore(context.Background(), "no-such-id"); err == nil {
		t.Error("Restore() of unknown id should fail")
	}
}

func TestSealHeaderReadableWithoutPassword(t *testing.T) {
	var container bytes.Buffer
	header := sealHeader{Path: "/tmp/x", Verdict: "test", Mode: 0o600, Size: 4}
	if err := seal("secret", header, bytes.NewReader([]byte("data")), &container); err != nil {
		t.Fatalf("seal() error: %v", err)
	}
	got, err := readSealHeader(bytes.NewReader(container.Bytes()))
	if err != nil {
		t.Fatalf("readSealHeader() error: %v", err)
	}
	if got.Path != header.Path || got.Verdict != header.Verdict {
		t.Errorf("header mismatch: %+v", got)
	}

	var out bytes.Buffer
	if _, err := openSeal("wrong", bytes.NewReader(container.Bytes()), &out); err != nil {
		t.Fatalf("openSeal() error: %v", err)
	}
	if bytes.Equal(out.Bytes(), []byte("data")) {
		t.Error("wrong password must not decrypt the payload")
	}
}

func TestRegistryRoundTrip(t *testing.T) {
	reg, err := newSQLiteRegistry(context.Background(), "")
	if err != nil {
		t.Fatalf("could not open registry: %v", err)
	}
	defer reg.Close()

	entry := &Entry{ID: "abc", OriginalPath: "/tmp/a", SealedPath: "/q/abc.sealed", Verdict: "test"}
	if err := reg.Set(context.Background(), entry); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	got, err := reg.Get(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.OriginalPath != "/tmp/a" || got.Verdict != "test" {
		t.Errorf("unexpected entry: %+v", got)
	}

	// update path
	entry.SealedPath = ""
	entry.RestoredAt = time.Now()
	if err := reg.Set(context.Background(), entry); err != nil {
		t.Fatalf("Set() update error: %v", err)
	}
	got, err = reg.Get(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Get() after update error: %v", err)
	}
	if got.SealedPath != "" || got.RestoredAt.UnixMilli() <= 0 {
		t.Errorf("update not applied: %+v", got)
	}

	if _, err := reg.Get(context.Background(), "missing"); err != ErrEntryNotFound {
		t.Errorf("Get(missing) error = %v, want ErrEntryNotFound", err)
	}
}
