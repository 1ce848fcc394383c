package data

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/shrinkray/image-optimizer-backend/internal/image/biz"
	miniopkg "github.com/shrinkray/image-optimizer-backend/internal/pkg/minio"
)

type objectStorage struct {
	client  *miniopkg.Client
	bucket  string
	baseURL string
}

// NewObjectStorage creates the MinIO-backed blob store for image
// objects. baseURL overrides the URL prefix used for public links;
// when empty the client's endpoint is used.
func NewObjectStorage(client *miniopkg.Client, bucket, baseURL string) biz.ObjectStorage {
	if baseURL == "" {
		scheme := "http"
		if client.UseSSL() {
			scheme = "https"
		}
		baseURL = scheme + "://" + client.Endpoint()
	}
	return &objectStorage{
		client:  client,
		bucket:  bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (s *objectStorage) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		miniopkg.PutObjectOptions{
			ContentType:       contentType,
			DisallowOverwrite: true,
		})
	return err
}

func (s *objectStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.client.GetObject(ctx, s.bucket, key)
}

func (s *objectStorage) Remove(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key)
}

func (s *objectStorage) PublicURL(key string) string {
	return s.baseURL + "/" + s.bucket + "/" + key
}
