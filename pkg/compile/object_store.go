package compile

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/kashif-saeed1122/Booking-writting-ai-agent/pkg/config"
	bferrors "github.com/kashif-saeed1122/Booking-writting-ai-agent/pkg/errors"
)

// ObjectStore receives compiled deliverables and returns a stable
// reference to each stored object.
type ObjectStore interface {
	Put(ctx context.Context, key string, content []byte, contentType string) (string, error)
}

// S3Store uploads deliverables to an S3-compatible bucket.
type S3Store struct {
	client    *minio.Client
	bucket    string
	region    string
	publicURL string
	initOnce  sync.Once
	initErr   error
}

// NewS3Store creates an object store against an S3-compatible endpoint.
func NewS3Store(cfg config.ObjectStoreConfig) (*S3Store, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("object store endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("object store access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("object store bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init object store client: %w", err)
	}

	return &S3Store{
		client:    client,
		bucket:    bucket,
		region:    region,
		publicURL: strings.TrimSuffix(cfg.PublicURL, "/"),
	}, nil
}

func (s *S3Store) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

// Put uploads one object and returns its reference. With a configured
// public base URL the reference is stable; otherwise a presigned link
// is returned.
func (s *S3Store) Put(ctx context.Context, key string, content []byte, contentType string) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", bferrors.New(bferrors.ErrCodeInvalidInput, "object key is required")
	}
	if err := s.ensureBucket(ctx); err != nil {
		return "", bferrors.Wrap(err, bferrors.ErrCodeUpload, "ensure bucket").
			WithContext("bucket", s.bucket).
			WithRetryable(true)
	}

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", bferrors.Wrap(err, bferrors.ErrCodeUpload, "upload deliverable").
			WithContext("key", key).
			WithRetryable(true)
	}

	if s.publicURL != "" {
		return fmt.Sprintf("%s/%s/%s", s.publicURL, s.bucket, key), nil
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, 7*24*time.Hour, nil)
	if err != nil {
		return "", bferrors.Wrap(err, bferrors.ErrCodeUpload, "presign deliverable url").
			WithContext("key", key)
	}
	return u.String(), nil
}

// FileStore writes deliverables to a local directory. Used when no
// object store endpoint is configured.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) Put(ctx context.Context, key string, content []byte, contentType string) (string, error) {
	path := filepath.Join(f.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", bferrors.Wrap(err, bferrors.ErrCodeUpload, "create deliverable directory")
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", bferrors.Wrap(err, bferrors.ErrCodeUpload, "write deliverable").
			WithContext("path", path)
	}
	return path, nil
}
