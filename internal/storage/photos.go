// Package storage persists user profile photos in an S3-compatible object
// store and maps stored objects back to public URLs.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spoonjoy/spoonjoy/internal/config"
)

// PhotoStore uploads and removes profile photos.
type PhotoStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// New constructs a PhotoStore and ensures the bucket exists.
func New(ctx context.Context, cfg config.StorageConfig) (*PhotoStore, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("storage: missing endpoint")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("storage: missing bucket")
	}

	client, errNew := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if errNew != nil {
		return nil, fmt.Errorf("storage: connect: %w", errNew)
	}

	exists, errExists := client.BucketExists(ctx, cfg.Bucket)
	if errExists != nil {
		return nil, fmt.Errorf("storage: check bucket: %w", errExists)
	}
	if !exists {
		if errMake := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); errMake != nil {
			return nil, fmt.Errorf("storage: create bucket: %w", errMake)
		}
	}

	return &PhotoStore{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
	}, nil
}

// UploadPhoto stores a photo under a fresh object key and returns its public URL.
func (s *PhotoStore) UploadPhoto(ctx context.Context, userID uint64, reader io.Reader, size int64, contentType string) (string, error) {
	objectName := fmt.Sprintf("photos/%d/%s%s", userID, uuid.NewString(), extensionFor(contentType))
	_, errPut := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if errPut != nil {
		return "", fmt.Errorf("storage: upload photo: %w", errPut)
	}
	return s.URLFor(objectName), nil
}

// Remove deletes a previously uploaded photo by its public URL. Unknown URLs
// are ignored so stale references never block account updates.
func (s *PhotoStore) Remove(ctx context.Context, photoURL string) error {
	objectName, ok := s.objectNameFor(photoURL)
	if !ok {
		return nil
	}
	if errRemove := s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{}); errRemove != nil {
		return fmt.Errorf("storage: remove photo: %w", errRemove)
	}
	return nil
}

// URLFor maps an object key to its public URL.
func (s *PhotoStore) URLFor(objectName string) string {
	if s.publicURL == "" {
		return "/" + path.Join(s.bucket, objectName)
	}
	return s.publicURL + "/" + objectName
}

// objectNameFor maps a public URL back to the object key it was built from.
func (s *PhotoStore) objectNameFor(photoURL string) (string, bool) {
	photoURL = strings.TrimSpace(photoURL)
	if photoURL == "" {
		return "", false
	}
	if s.publicURL != "" {
		if name, found := strings.CutPrefix(photoURL, s.publicURL+"/"); found {
			return name, true
		}
	}
	if name, found := strings.CutPrefix(photoURL, "/"+s.bucket+"/"); found {
		return name, true
	}
	return "", false
}

// extensionFor picks a filename extension for the stored content type.
func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
