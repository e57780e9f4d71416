package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config points at an S3-compatible bucket holding archives.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
	UseSSL    bool

	// Region skips the bucket-location lookup when set.
	Region string
}

// S3 reads archives as objects under Prefix in Bucket.
type S3 struct {
	client *minio.Client
	bucket string
	prefix string
}

func NewS3(cfg S3Config) (*S3, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("NewS3: endpoint is empty")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("NewS3: bucket is empty")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("NewS3: %w", err)
	}
	return &S3{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *S3) Name() string { return "s3" }

// Key returns the object key for ref.
func (s *S3) Key(ref string) string {
	if s.prefix == "" {
		return ref
	}
	return path.Join(s.prefix, ref)
}

func (s *S3) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	key := s.Key(ref)
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("S3.Open: get %s/%s: %w", s.bucket, key, err)
	}
	// GetObject is lazy; Stat surfaces missing objects before decoding starts.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, fmt.Errorf("S3.Open: stat %s/%s: %w", s.bucket, key, err)
	}
	return obj, nil
}
