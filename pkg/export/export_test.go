package export

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/fetchguard/finalizer/pkg/interrupt"
	"github.com/fetchguard/finalizer/pkg/journal"
	"github.com/google/go-cmp/cmp"
)

type mockS3Client struct {
	HeadBucketMock   func(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucketMock func(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutObjectMock    func(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

func (m *mockS3Client) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if m.HeadBucketMock != nil {
		return m.HeadBucketMock(ctx, params, optFns...)
	}
	return &s3.HeadBucketOutput{}, nil
}

func (m *mockS3Client) CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	if m.CreateBucketMock != nil {
		return m.CreateBucketMock(ctx, params, optFns...)
	}
	return &s3.CreateBucketOutput{}, nil
}

func (m *mockS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.PutObjectMock != nil {
		return m.PutObjectMock(ctx, params, optFns...)
	}
	return &s3.PutObjectOutput{}, nil
}

func TestExport(t *testing.T) {
	oldNow := Now
	Now = func() time.Time { return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC) }
	defer func() { Now = oldNow }()

	var putKey string
	var putBody []byte
	client := &mockS3Client{
		PutObjectMock: func(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			putKey = *params.Key
			var err error
			putBody, err = io.ReadAll(params.Body)
			if err != nil {
				t.Fatalf("could not read uploaded body: %v", err)
			}
			return &s3.PutObjectOutput{}, nil
		},
	}
	exporter := &Exporter{client: client, config: Config{Bucket: "reports", Prefix: "attempts/"}}

	entries := []*journal.Entry{
		journal.NewEntry("/spool/a", "/downloads/a", "https://example.com/a", "finalize", 0, interrupt.None),
		journal.NewEntry("/spool/b", "/downloads/b", "", "relocate", 0x71, interrupt.FileFailed),
	}
	key, err := exporter.Export(context.Background(), entries)
	if err != nil {
		t.Fatalf("Export() error: %v", err)
	}
	if key != putKey {
		t.Errorf("Export() returned key %q, uploaded key %q", key, putKey)
	}
	if !strings.HasPrefix(key, "attempts/20260801T120000Z-") || !strings.HasSuffix(key, ".jsonl") {
		t.Errorf("unexpected object key: %q", key)
	}

	lines := bytes.Split(bytes.TrimSpace(putBody), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("uploaded %d lines, want 2", len(lines))
	}
	got := &journal.Entry{}
	if err := json.Unmarshal(lines[1], got); err != nil {
		t.Fatalf("could not decode uploaded line: %v", err)
	}
	if diff := cmp.Diff(entries[1], got); diff != "" {
		t.Errorf("uploaded entry mismatch (-want +got):\n%s", diff)
	}
}

func TestExportEmpty(t *testing.T) {
	exporter := &Exporter{client: &mockS3Client{}, config: Config{Bucket: "reports"}}
	if _, err := exporter.Export(context.Background(), nil); err == nil {
		t.Error("empty export should fail")
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Error("New() without bucket should fail")
	}
}
