// minio предоставляет реализацию storage.Objects на базе MinIO/S3.
// minio.go — конструктор клиента: нормализует endpoint,
// настраивает Secure/creds и проверяет наличие целевого бакета.
// objects.go — загрузка и чтение изображений по публичному URL.
package minio

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	mclient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pribylovaa/bondia/internal/config"
	"github.com/pribylovaa/bondia/internal/storage"
)

// ImagesStorage — адаптер MinIO для изображений профиля, галереи и событий.
type ImagesStorage struct {
	bucket  string
	baseURL string
	client  *mclient.Client
}

// New создает и инициализирует клиент MinIO.
// Убирает схему из endpoint, подбирает Secure по схеме
// и выполняет fail-fast-проверку доступности бакета.
func New(ctx context.Context, cfg config.S3Config) (*ImagesStorage, error) {
	const op = "storage/minio/New"

	endpoint := cfg.Endpoint
	secure := strings.HasPrefix(endpoint, "https://")

	if u, err := url.Parse(endpoint); err == nil && u.Scheme != "" {
		endpoint = u.Host
		secure = u.Scheme == "https"
	}

	client, err := mclient.New(endpoint, &mclient.Options{
		Creds:  credentials.NewStaticV4(cfg.RootUser, cfg.RootPassword, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !exists {
		return nil, fmt.Errorf("%s: bucket %q does not exist", op, cfg.Bucket)
	}

	return &ImagesStorage{
		bucket:  cfg.Bucket,
		baseURL: publicBase(cfg, secure, endpoint),
		client:  client,
	}, nil
}

// Ping проверяет доступность бакета (для /healthz).
func (s *ImagesStorage) Ping(ctx context.Context) error {
	const op = "storage/minio/Ping"

	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if !ok {
		return fmt.Errorf("%s: bucket %q does not exist", op, s.bucket)
	}

	return nil
}

// publicBase — префикс публичных URL объектов.
// Без PublicBaseURL используется path-style адрес бакета.
func publicBase(cfg config.S3Config, secure bool, host string) string {
	if cfg.PublicBaseURL != "" {
		return strings.TrimRight(cfg.PublicBaseURL, "/")
	}

	scheme := "http"
	if secure {
		scheme = "https"
	}

	return scheme + "://" + host + "/" + cfg.Bucket
}

// Проверка выполнения контракта.
var _ storage.Objects = (*ImagesStorage)(nil)
