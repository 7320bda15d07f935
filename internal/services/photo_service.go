package services

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"schoolprops/internal/common"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	photoPrefix  = "photos/"
	MaxPhotoSize = 10 << 20
)

var photoExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// PhotoStorage keeps photos attached to custom requests and issue reports.
// Requests only ever store the returned key.
type PhotoStorage interface {
	Upload(ctx context.Context, contentType string, reader io.Reader, size int64) (string, error)
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
	EnsureBucket(ctx context.Context) error
	Ping(ctx context.Context) error
}

// objectClient is the subset of *minio.Client used here.
type objectClient interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
}

type minioPhotoStorage struct {
	client objectClient
	bucket string
}

func NewMinioPhotoStorage(endpoint, accessKey, secretKey, bucket string, useSSL bool) (PhotoStorage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}
	return &minioPhotoStorage{client: client, bucket: bucket}, nil
}

func newPhotoStorage(client objectClient, bucket string) PhotoStorage {
	return &minioPhotoStorage{client: client, bucket: bucket}
}

func (m *minioPhotoStorage) Upload(ctx context.Context, contentType string, reader io.Reader, size int64) (string, error) {
	ext, ok := photoExtensions[strings.ToLower(contentType)]
	if !ok {
		return "", common.NewValidationError("file", "must be a JPEG, PNG, WebP or GIF image")
	}
	if size <= 0 || size > MaxPhotoSize {
		return "", common.NewValidationError("file", "must be between 1 byte and %d MB", MaxPhotoSize>>20)
	}

	key := photoPrefix + uuid.New().String() + ext
	_, err := m.client.PutObject(ctx, m.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: strings.ToLower(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to store photo: %w", err)
	}
	return key, nil
}

// ValidatePhotoKey checks that key names an object this service created.
func ValidatePhotoKey(key string) error {
	if !strings.HasPrefix(key, photoPrefix) || strings.Contains(key, "..") || len(key) > 200 {
		return common.NewValidationError("key", "is not a valid photo reference")
	}
	return nil
}

func (m *minioPhotoStorage) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if err := ValidatePhotoKey(key); err != nil {
		return "", err
	}
	u, err := m.client.PresignedGetObject(ctx, m.bucket, key, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign photo: %w", err)
	}
	return u.String(), nil
}

func (m *minioPhotoStorage) Delete(ctx context.Context, key string) error {
	if err := ValidatePhotoKey(key); err != nil {
		return err
	}
	return m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{})
}

func (m *minioPhotoStorage) EnsureBucket(ctx context.Context) error {
	found, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if !found {
		return m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{})
	}
	return nil
}

// Ping reports whether the bucket is reachable and present.
func (m *minioPhotoStorage) Ping(ctx context.Context) error {
	found, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("bucket %s does not exist", m.bucket)
	}
	return nil
}
