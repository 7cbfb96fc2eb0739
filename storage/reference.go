package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const maxReferenceBytes int64 = 10 * 1024 * 1024

// ReferenceStorage stores identity-anchor images in MinIO/S3 and hands back
// the locator that generation calls use as reference_url.
type ReferenceStorage struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewReferenceStorageFromEnv initialises ReferenceStorage using MINIO_*
// environment variables. All four core variables unset means uploads are
// disabled, which is not an error.
func NewReferenceStorageFromEnv() (*ReferenceStorage, error) {
	endpoint := strings.TrimSpace(os.Getenv("MINIO_ENDPOINT"))
	accessKey := strings.TrimSpace(os.Getenv("MINIO_ACCESS_KEY"))
	secretKey := strings.TrimSpace(os.Getenv("MINIO_SECRET_KEY"))
	bucket := strings.TrimSpace(os.Getenv("MINIO_BUCKET"))
	if endpoint == "" || accessKey == "" || secretKey == "" || bucket == "" {
		return nil, nil
	}

	useSSL := strings.EqualFold(strings.TrimSpace(os.Getenv("MINIO_USE_SSL")), "true")
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: init minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("storage: check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("storage: create bucket: %w", err)
		}
	}

	publicURL := strings.TrimSpace(os.Getenv("MINIO_PUBLIC_URL"))
	if publicURL == "" {
		scheme := "http"
		if useSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s", scheme, endpoint)
	}

	return &ReferenceStorage{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}, nil
}

// Enabled reports whether uploads are configured.
func (s *ReferenceStorage) Enabled() bool {
	return s != nil && s.client != nil
}

// Upload stores a reference image and returns its public locator. The object
// key is references/<uuid>.<ext>.
func (s *ReferenceStorage) Upload(ctx context.Context, fileHeader *multipart.FileHeader) (string, error) {
	if !s.Enabled() {
		return "", errors.New("storage: reference storage not configured")
	}
	if fileHeader == nil {
		return "", errors.New("storage: reference file not provided")
	}

	if fileHeader.Size > 0 && fileHeader.Size > maxReferenceBytes {
		return "", fmt.Errorf("storage: reference size exceeds %d bytes", maxReferenceBytes)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("storage: open reference: %w", err)
	}
	defer src.Close()

	var buffer bytes.Buffer
	limited := io.LimitReader(src, maxReferenceBytes+1)
	written, err := io.Copy(&buffer, limited)
	if err != nil {
		return "", fmt.Errorf("storage: read reference: %w", err)
	}
	if written > maxReferenceBytes {
		return "", fmt.Errorf("storage: reference size exceeds %d bytes", maxReferenceBytes)
	}

	data := buffer.Bytes()
	contentType := strings.TrimSpace(fileHeader.Header.Get("Content-Type"))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if !isAllowedImageContent(contentType) {
		return "", fmt.Errorf("storage: unsupported reference content type %q", contentType)
	}

	objectName := path.Join("references", fmt.Sprintf("%s%s", uuid.NewString(), imageExtension(fileHeader.Filename, contentType)))

	uploadCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	reader := bytes.NewReader(data)
	_, err = s.client.PutObject(uploadCtx, s.bucket, objectName, reader, int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "public, max-age=604800",
	})
	if err != nil {
		return "", fmt.Errorf("storage: upload reference: %w", err)
	}

	return s.buildPublicURL(objectName), nil
}

// Remove deletes the object behind the provided locator. Locators that do not
// belong to this storage are ignored.
func (s *ReferenceStorage) Remove(ctx context.Context, locator string) error {
	if !s.Enabled() {
		return nil
	}

	base := s.publicURL + "/" + s.bucket + "/"
	trimmed := strings.TrimSpace(locator)
	if !strings.HasPrefix(trimmed, base) {
		return nil
	}
	objectName := strings.TrimPrefix(trimmed, base)
	if objectName == "" {
		return nil
	}

	removeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return s.client.RemoveObject(removeCtx, s.bucket, objectName, minio.RemoveObjectOptions{})
}

func (s *ReferenceStorage) buildPublicURL(objectName string) string {
	base := strings.TrimSuffix(s.publicURL, "/")
	object := strings.TrimPrefix(objectName, "/")
	return fmt.Sprintf("%s/%s/%s", base, s.bucket, object)
}

func isAllowedImageContent(contentType string) bool {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/png", "image/x-png":
		return true
	case "image/jpeg", "image/pjpeg":
		return true
	case "image/webp":
		return true
	default:
		return false
	}
}

func imageExtension(filename, contentType string) string {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/png", "image/x-png":
		return ".png"
	case "image/jpeg", "image/pjpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	}
	ext := strings.ToLower(strings.TrimSpace(filepath.Ext(filename)))
	if ext == "" {
		return ".bin"
	}
	return ext
}
