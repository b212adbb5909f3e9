// Package objectstore uploads persisted bundle directories to an
// S3-compatible bucket.
package objectstore

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/specialistvlad/bundlegrid/internal/ctxlog"
)

// Config holds the connection settings.
type Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Uploader writes files into one bucket. It is safe for concurrent use.
type Uploader struct {
	client *minio.Client
	bucket string
	region string

	initOnce sync.Once
	initErr  error
}

// New validates cfg and creates an Uploader. No request is made until the
// first upload.
func New(cfg Config) (*Uploader, error) {
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
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}
	return &Uploader{client: client, bucket: bucket, region: region}, nil
}

// ensureBucket creates the bucket on first use.
func (u *Uploader) ensureBucket(ctx context.Context) error {
	u.initOnce.Do(func() {
		exists, err := u.client.BucketExists(ctx, u.bucket)
		if err != nil {
			u.initErr = err
			return
		}
		if exists {
			return
		}
		u.initErr = u.client.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{Region: u.region})
	})
	return u.initErr
}

// UploadDir uploads every file under dir to <prefix>/<base(dir)>/<relative
// path>. It returns the object keys written.
func (u *Uploader) UploadDir(ctx context.Context, dir, prefix string) ([]string, error) {
	logger := ctxlog.FromContext(ctx).With("bucket", u.bucket)
	if err := u.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket %s: %w", u.bucket, err)
	}

	base := filepath.Base(dir)
	var keys []string
	err := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		key := objectKey(prefix, base, filepath.ToSlash(rel))
		if err := u.put(ctx, p, key); err != nil {
			return err
		}
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		return keys, err
	}
	logger.Debug("Uploaded bundle directory.", "dir", dir, "objects", len(keys))
	return keys, nil
}

func (u *Uploader) put(ctx context.Context, src, key string) error {
	file, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file '%s': %w", src, err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to get file stats for '%s': %w", src, err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(src))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if _, err := u.client.PutObject(ctx, u.bucket, key, file, stat.Size(), minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return fmt.Errorf("failed to upload '%s' to %s: %w", src, key, err)
	}
	return nil
}

func objectKey(parts ...string) string {
	clean := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.Trim(strings.TrimSpace(p), "/"); p != "" {
			clean = append(clean, p)
		}
	}
	return path.Join(clean...)
}
