package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Store persists an accepted photo and returns the reference recorded on the issue.
type Store interface {
	Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error)
}

// ErrNotFound is returned by Open for missing objects.
var ErrNotFound = errors.New("photo not found")

// DiskStore writes photos into a single directory. Existing files with the
// same name are overwritten.
type DiskStore struct {
	Dir string
}

// NewDiskStore creates dir if needed.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{Dir: dir}, nil
}

// Save writes r to Dir/name and returns that path.
func (s *DiskStore) Save(_ context.Context, name string, r io.Reader, _ int64, _ string) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("refusing to store %q outside %s", name, s.Dir)
	}
	dst := filepath.Join(s.Dir, name)
	f, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", dst, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write %s: %w", dst, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", dst, err)
	}
	return dst, nil
}

// MinioStore keeps photos in an S3-compatible bucket.
type MinioStore struct {
	mc     *minio.Client
	bucket string
	prefix string
}

// MinioOptions configures NewMinioStore.
type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// NewMinioStore creates the client. It does not contact the server; call EnsureBucket.
func NewMinioStore(opts MinioOptions) (*MinioStore, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if opts.AccessKey == "" || opts.SecretKey == "" {
		return nil, fmt.Errorf("minio access_key and secret_key are required")
	}
	mc, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	bucket := opts.Bucket
	if bucket == "" {
		bucket = "civic-photos"
	}
	return &MinioStore{mc: mc, bucket: bucket, prefix: strings.Trim(opts.Prefix, "/")}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.mc.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := s.mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
	}
	return nil
}

// Save uploads the object and returns "<bucket>/<key>".
func (s *MinioStore) Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := s.objectKey(name)
	if _, err := s.mc.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return s.bucket + "/" + key, nil
}

func (s *MinioStore) objectKey(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

// Open streams the object behind ref, as returned by Save.
func (s *MinioStore) Open(ctx context.Context, ref string) (io.ReadCloser, int64, string, error) {
	key := strings.TrimPrefix(strings.TrimPrefix(ref, "/"), s.bucket+"/")
	if key == "" || strings.Contains(key, "..") {
		return nil, 0, "", fmt.Errorf("invalid object reference %q", ref)
	}
	obj, err := s.mc.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, "", fmt.Errorf("get %s: %w", key, err)
	}
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, 0, "", ErrNotFound
		}
		return nil, 0, "", fmt.Errorf("stat %s: %w", key, err)
	}
	return obj, info.Size, info.ContentType, nil
}
