// Package storage wraps the MinIO client used for passenger profile
// photos.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"tripforms_backend/platform/config"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// DownloadURLTTL bounds how long a photo link handed to the frontend
// stays valid.
const DownloadURLTTL = 15 * time.Minute

// Content types accepted for profile photos.
var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Client is the MinIO-backed photo store.
type Client struct {
	client      *minio.Client
	maxFileSize int64
}

// New creates the storage client. Callers should check
// cfg.IsMinIOEnabled first; an unconfigured endpoint is an error.
func New(cfg config.MinIOConfig) (*Client, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, fmt.Errorf("minio is not configured")
	}

	mc, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &Client{client: mc, maxFileSize: cfg.GetMinIOMaxFileSize()}, nil
}

// EnsureBucketExists creates the bucket if it does not exist yet.
func (c *Client) EnsureBucketExists(ctx context.Context, bucket string) error {
	exists, err := c.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := c.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}
	return nil
}

// ValidateContentType rejects anything that is not a supported image.
func (c *Client) ValidateContentType(contentType string) error {
	if !allowedContentTypes[strings.ToLower(contentType)] {
		return fmt.Errorf("unsupported content type %q", contentType)
	}
	return nil
}

// ValidateFileSize rejects files over the configured ceiling.
func (c *Client) ValidateFileSize(sizeBytes int64) error {
	if sizeBytes <= 0 {
		return fmt.Errorf("file is empty")
	}
	if sizeBytes > c.maxFileSize {
		return fmt.Errorf("file exceeds the %d byte limit", c.maxFileSize)
	}
	return nil
}

// Upload stores a photo under a per-slot folder and returns the object
// key. A short random suffix keeps repeated uploads from overwriting
// each other.
func (c *Client) Upload(ctx context.Context, bucket, folder, fileName, contentType string, reader io.Reader, size int64) (string, error) {
	ext := path.Ext(fileName)
	base := strings.TrimSuffix(path.Base(fileName), ext)
	key := path.Join(folder, fmt.Sprintf("%s_%s%s", base, uuid.New().String()[:8], ext))

	_, err := c.client.PutObject(ctx, bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return key, nil
}

// DownloadURL returns a presigned GET URL for an object key.
func (c *Client) DownloadURL(ctx context.Context, bucket, key string) (string, error) {
	presigned, err := c.client.PresignedGetObject(ctx, bucket, key, DownloadURLTTL, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return presigned.String(), nil
}

// Delete removes an object.
func (c *Client) Delete(ctx context.Context, bucket, key string) error {
	if err := c.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// MaxFileSize returns the configured upload ceiling in bytes.
func (c *Client) MaxFileSize() int64 {
	return c.maxFileSize
}
