package runcache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/vk/pipegrid/internal/env"
)

// ObjectStoreConfig configures the S3/MinIO-backed store. Context
// snapshots of report pipelines can run to megabytes, which is bucket
// territory rather than row territory.
type ObjectStoreConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
	Bucket    string
	Prefix    string
}

// ObjectStoreConfigFromEnv reads the store configuration from
// PIPEGRID_MINIO_* environment variables.
func ObjectStoreConfigFromEnv() (ObjectStoreConfig, error) {
	useSSL, err := env.Bool("PIPEGRID_MINIO_USE_SSL", false)
	if err != nil {
		return ObjectStoreConfig{}, err
	}
	cfg := ObjectStoreConfig{
		Endpoint:  env.String("PIPEGRID_MINIO_ENDPOINT", "localhost:9000"),
		AccessKey: env.String("PIPEGRID_MINIO_ACCESS_KEY", "pipegrid"),
		SecretKey: env.String("PIPEGRID_MINIO_SECRET_KEY", "pipegridminio"),
		Region:    env.String("PIPEGRID_MINIO_REGION", "us-east-1"),
		UseSSL:    useSSL,
		Bucket:    env.String("PIPEGRID_MINIO_BUCKET", "checkpoints"),
		Prefix:    env.String("PIPEGRID_MINIO_PREFIX", "runs"),
	}
	if err := cfg.Validate(); err != nil {
		return ObjectStoreConfig{}, err
	}
	return cfg, nil
}

func (c ObjectStoreConfig) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("endpoint is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("endpoint must not include scheme: %q", c.Endpoint)
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		return errors.New("access key is required")
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("secret key is required")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		return errors.New("bucket is required")
	}
	return nil
}

// ObjectStore keeps one JSON object per run id under
// <prefix>/<run_id>.json.
type ObjectStore struct {
	client *minio.Client
	cfg    ObjectStoreConfig
}

// OpenObjectStore builds a MinIO client for the configured endpoint.
func OpenObjectStore(cfg ObjectStoreConfig) (*ObjectStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("object store client: %w", err)
	}
	return &ObjectStore{client: client, cfg: cfg}, nil
}

func (s *ObjectStore) key(runID string) string {
	return path.Join(s.cfg.Prefix, runID+".json")
}

func (s *ObjectStore) Get(ctx context.Context, runID string) (*Entry, error) {
	obj, err := s.client.GetObject(ctx, s.cfg.Bucket, s.key(runID), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object for run %q: %w", runID, err)
	}
	defer obj.Close()

	payload, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("run %q: %w", runID, ErrNotFound)
		}
		return nil, fmt.Errorf("read object for run %q: %w", runID, err)
	}

	var entry Entry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return nil, fmt.Errorf("decode cached entry for run %q: %w", runID, err)
	}
	return &entry, nil
}

func (s *ObjectStore) Put(ctx context.Context, runID string, entry *Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode entry for run %q: %w", runID, err)
	}
	_, err = s.client.PutObject(
		ctx,
		s.cfg.Bucket,
		s.key(runID),
		bytes.NewReader(payload),
		int64(len(payload)),
		minio.PutObjectOptions{ContentType: "application/json"},
	)
	if err != nil {
		return fmt.Errorf("put object for run %q: %w", runID, err)
	}
	return nil
}

func (s *ObjectStore) Delete(ctx context.Context, runID string) error {
	err := s.client.RemoveObject(ctx, s.cfg.Bucket, s.key(runID), minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("remove object for run %q: %w", runID, err)
	}
	return nil
}
