package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	mclient "github.com/minio/minio-go/v7"
	"github.com/pribylovaa/bondia/internal/storage"
)

// Upload кладёт объект в бакет и возвращает публичный URL вида <base>/<key>.
func (s *ImagesStorage) Upload(ctx context.Context, obj storage.Object) (string, error) {
	const op = "storage/minio/Upload"

	key := strings.TrimLeft(strings.TrimSpace(obj.Key), "/")
	if key == "" || len(obj.Data) == 0 {
		return "", fmt.Errorf("%s: %w", op, storage.ErrInvalidArgument)
	}

	_, err := s.client.PutObject(ctx, s.bucket, key,
		bytes.NewReader(obj.Data), int64(len(obj.Data)),
		mclient.PutObjectOptions{ContentType: obj.ContentType},
	)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return s.baseURL + "/" + key, nil
}

// Download читает объект по публичному URL.
// URL вне публичного префикса и отсутствующий ключ — storage.ErrNotFound.
func (s *ImagesStorage) Download(ctx context.Context, url string) (*storage.Object, error) {
	const op = "storage/minio/Download"

	key, ok := s.KeyFromURL(url)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	obj, err := s.client.GetObject(ctx, s.bucket, key, mclient.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}

	return &storage.Object{
		Key:         key,
		ContentType: info.ContentType,
		Data:        data,
	}, nil
}

// KeyFromURL отрезает публичный префикс и query-часть.
// URL чужого хоста или бакета — ok == false.
func (s *ImagesStorage) KeyFromURL(raw string) (string, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(raw), s.baseURL+"/")
	if !ok {
		return "", false
	}

	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}

	if rest == "" {
		return "", false
	}

	return rest, true
}

func mapErr(err error) error {
	resp := mclient.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return storage.ErrNotFound
	}

	return err
}
