// Package export ships finalize journal entries to an S3 compatible
// object store, one JSON lines object per export.
package export

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go/logging"
	"github.com/fetchguard/finalizer/pkg/journal"
	"github.com/google/uuid"
)

var LogLevel = &slog.LevelVar{}

var logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: LogLevel})).With(slog.String("module", "export"))

// S3Client abstracts the S3 client methods we use
type S3Client interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Config struct {
	Bucket          string
	Prefix          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Insecure        bool
	UsePathStyle    bool
}

type Exporter struct {
	client S3Client
	config Config
}

// noOpLogger implements logging.Logger and discards all logs
type noOpLogger struct{}

func (noOpLogger) Logf(logging.Classification, string, ...any) {}

var Now = time.Now

func New(ctx context.Context, cfg Config) (exporter *Exporter, err error) {
	if cfg.Bucket == "" {
		err = errors.New("export bucket required")
		return
	}

	var opts []func(*config.LoadOptions) error

	// Disable SDK Log
	opts = append(opts, config.WithClientLogMode(0), config.WithLogger(noOpLogger{}))

	opts = append(opts, config.WithRegion(cfg.Region))

	if cfg.Insecure {
		httpClient := &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: true, //nolint:gosec // Configuration choose by user
				},
			},
		}
		opts = append(opts, config.WithHTTPClient(httpClient))
	}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return
	}

	clientOpts := []func(*s3.Options){
		func(o *s3.Options) {
			o.UsePathStyle = cfg.UsePathStyle
			o.ClientLogMode = 0
			o.Logger = noOpLogger{}
		},
	}
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	exporter = &Exporter{
		client: s3.NewFromConfig(awsCfg, clientOpts...),
		config: cfg,
	}
	return
}

// Export uploads the given journal entries as a single JSON lines
// object and returns its key.
func (e *Exporter) Export(ctx context.Context, entries []*journal.Entry) (key string, err error) {
	if len(entries) == 0 {
		err = errors.New("nothing to export")
		return
	}
	if err = e.ensureBucketExists(ctx); err != nil {
		return
	}

	buffer := new(bytes.Buffer)
	encoder := json.NewEncoder(buffer)
	for _, entry := range entries {
		if err = encoder.Encode(entry); err != nil {
			err = fmt.Errorf("could not encode journal entry: %w", err)
			return
		}
	}

	key = fmt.Sprintf("%s%s-%s.jsonl", e.config.Prefix, Now().UTC().Format("20060102T150405Z"), uuid.NewString())
	_, err = e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.config.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buffer.Bytes()),
		ContentType: aws.String("application/jsonl"),
	})
	if err != nil {
		return
	}
	logger.Info("journal exported", slog.String("bucket", e.config.Bucket), slog.String("key", key), slog.Int("entries", len(entries)))
	return
}

func (e *Exporter) ensureBucketExists(ctx context.Context) (err error) {
	_, err = e.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(e.config.Bucket),
	})
	respErr := new(awshttp.ResponseError)
	noSuchBucket := new(types.NoSuchBucket)
	switch {
	case errors.As(err, &respErr) && respErr.Response.StatusCode == http.StatusNotFound, errors.As(err, &noSuchBucket):
		_, err = e.client.CreateBucket(ctx, &s3.CreateBucketInput{
			Bucket: aws.String(e.config.Bucket),
		})
		if err != nil {
			// Bucket may have been created meanwhile.
			var bae *types.BucketAlreadyExists
			var baoby *types.BucketAlreadyOwnedByYou
			if errors.As(err, &bae) || errors.As(err, &baoby) {
				err = nil
			}
		}
		return
	default:
		return
	}
}
