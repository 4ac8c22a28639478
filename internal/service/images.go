package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/pribylovaa/bondia/internal/models"
	"github.com/pribylovaa/bondia/internal/pkg/log"
	"github.com/pribylovaa/bondia/internal/pkg/redact"
	"github.com/pribylovaa/bondia/internal/storage"
	"github.com/pribylovaa/bondia/internal/upload"
	"golang.org/x/sync/errgroup"
)

// ImageResult — результат подгрузки одного изображения профиля.
// Kind — "profile" или "gallery"; Index — позиция в галерее (для "profile" всегда 0).
type ImageResult struct {
	Kind  string
	Index int
	URL   string
	Image *models.Image
	Err   error
}

// ProfileImages подгружает картинку профиля и все изображения галереи параллельно.
//
// Поведение:
//   - каждый результат отправляется в канал сразу по готовности;
//   - медленная или упавшая загрузка не блокирует остальные;
//   - канал закрывается, когда осели все загрузки;
//   - отсутствующий объект — Err с ErrNotFound.
func (s *Service) ProfileImages(ctx context.Context, p *models.Profile) <-chan ImageResult {
	const op = "service/images/ProfileImages"

	type fetch struct {
		kind  string
		index int
		url   string
	}

	var fetches []fetch
	if p != nil {
		if p.ProfileImageURL != "" {
			fetches = append(fetches, fetch{kind: "profile", url: p.ProfileImageURL})
		}

		for i, u := range p.ImageGalleryURLs {
			fetches = append(fetches, fetch{kind: "gallery", index: i, url: u})
		}
	}

	// Буфер на все результаты: отправка никогда не блокирует загрузку.
	out := make(chan ImageResult, len(fetches))
	if len(fetches) == 0 {
		close(out)
		return out
	}

	lg := log.From(ctx).With("op", op)

	go func() {
		defer close(out)

		var g errgroup.Group
		if s.cfg.Upload.Concurrency > 0 {
			g.SetLimit(s.cfg.Upload.Concurrency)
		}

		for _, f := range fetches {
			g.Go(func() error {
				res := ImageResult{Kind: f.kind, Index: f.index, URL: f.url}

				obj, err := s.objects.Download(ctx, f.url)
				switch {
				case err == nil:
					res.Image = &models.Image{Data: obj.Data, ContentType: obj.ContentType}
				case errors.Is(err, storage.ErrNotFound):
					lg.Warn("image not found", "url", redact.ObjectURL(f.url))
					res.Err = fmt.Errorf("%s: %w", op, ErrNotFound)
				case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
					res.Err = fmt.Errorf("%s: %w", op, err)
				default:
					lg.Error("image download failed", "url", redact.ObjectURL(f.url), "err", err)
					res.Err = fmt.Errorf("%s: %w", op, ErrInternal)
				}

				out <- res
				return nil
			})
		}

		_ = g.Wait()
	}()

	return out
}

// imageTask проверяет изображение и собирает задачу загрузки под ключом <prefix>/<uuid><ext>.
// img == nil — задачи нет.
func (s *Service) imageTask(img *models.Image, kind, prefix string) (*upload.Task, error) {
	if img == nil {
		return nil, nil
	}

	ct, err := s.checkImage(img)
	if err != nil {
		return nil, err
	}

	return &upload.Task{
		Kind: kind,
		Object: storage.Object{
			Key:         prefix + "/" + uuid.NewString() + extFor(ct),
			ContentType: ct,
			Data:        img.Data,
		},
	}, nil
}

// checkImage возвращает тип содержимого, определённый по байтам.
// Заявленный клиентом тип не учитывается.
func (s *Service) checkImage(img *models.Image) (string, error) {
	if len(img.Data) == 0 {
		return "", fmt.Errorf("empty image: %w", ErrInvalidArgument)
	}

	if limit := s.cfg.Images.MaxSizeBytes; limit > 0 && int64(len(img.Data)) > limit {
		return "", fmt.Errorf("image exceeds %d bytes: %w", limit, ErrInvalidArgument)
	}

	ct, _, _ := strings.Cut(http.DetectContentType(img.Data), ";")
	ct = strings.TrimSpace(ct)

	for _, allowed := range s.cfg.Images.AllowedContentTypes {
		if strings.EqualFold(strings.TrimSpace(allowed), ct) {
			return ct, nil
		}
	}

	return "", fmt.Errorf("content type %q is not allowed: %w", ct, ErrInvalidArgument)
}

func extFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ""
	}
}
