package service

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/mvhoang/Solvio/config"
	"github.com/rs/zerolog/log"
)

// StorageService stores problem photos and hands back public URLs.
type StorageService interface {
	UploadImage(ctx context.Context, data []byte, contentType string) (string, error)
	DeleteImage(ctx context.Context, imageURL string) error
}

type gcsStorageService struct {
	client *storage.Client
	bucket string
}

func NewStorageService(cfg *config.Config) (StorageService, error) {
	if cfg.Storage.Bucket == "" {
		log.Warn().Msg("GCS_BUCKET is not set. StorageService will be non-functional.")
		return &gcsStorageService{client: nil}, nil
	}
	client, err := storage.NewClient(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GCS client: %w", err)
	}
	return &gcsStorageService{client: client, bucket: cfg.Storage.Bucket}, nil
}

var extensionByContentType = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/heic": ".heic",
	"image/heif": ".heif",
}

// UploadImage writes the photo under a fresh uuid key and returns its public URL.
func (s *gcsStorageService) UploadImage(ctx context.Context, data []byte, contentType string) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("storage client not initialized")
	}
	ext, ok := extensionByContentType[contentType]
	if !ok {
		return "", fmt.Errorf("unsupported image content type: %s", contentType)
	}

	key := "problems/" + uuid.NewString() + ext
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("failed to write image object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize image object %s: %w", key, err)
	}

	url := fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, key)
	log.Info().Str("key", key).Msg("Uploaded problem image")
	return url, nil
}

// DeleteImage removes an object previously returned by UploadImage. URLs that
// do not point into our bucket are ignored.
func (s *gcsStorageService) DeleteImage(ctx context.Context, imageURL string) error {
	if s.client == nil {
		return fmt.Errorf("storage client not initialized")
	}
	prefix := fmt.Sprintf("https://storage.googleapis.com/%s/", s.bucket)
	if !strings.HasPrefix(imageURL, prefix) {
		log.Warn().Str("url", imageURL).Msg("Skipping delete of image outside our bucket")
		return nil
	}
	key := strings.TrimPrefix(imageURL, prefix)
	if err := s.client.Bucket(s.bucket).Object(key).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete image object %s: %w", key, err)
	}
	return nil
}
