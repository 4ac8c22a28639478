package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/bondia/internal/models"
	"github.com/pribylovaa/bondia/internal/pkg/identity"
	"github.com/pribylovaa/bondia/internal/pkg/log"
	"github.com/pribylovaa/bondia/internal/pkg/redact"
	"github.com/pribylovaa/bondia/internal/storage"
	"github.com/pribylovaa/bondia/internal/upload"
)

const eventImagesRoot = "event_images"

// PostEventInput — данные формы публикации события.
type PostEventInput struct {
	Title            string
	Location         string
	Description      string
	StartsAt         time.Time
	Cost             models.CostTier
	GroupChatEnabled bool
	TermsAccepted    bool
	Image            *models.Image
}

// ListEventsInput — параметры ленты событий.
type ListEventsInput struct {
	Query string
	From  time.Time
	To    time.Time
	models.ListParams
}

// PostEvent публикует событие от имени текущего пользователя.
//
// Валидация:
//   - идентичность в ctx, иначе ErrNotAuthenticated;
//   - title, location, description непустые, условия приняты,
//     cost — одна из допустимых категорий, изображение валидно.
//
// Поведение:
//   - сначала загружается изображение; при ошибке документ не пишется (ErrImageUpload);
//   - ошибка вставки события — ErrDocumentWrite (URL изображения уходит в лог);
//   - при включённом чате создаётся группа с владельцем в участниках;
//     ошибка создания группы логируется, событие возвращается без GroupID.
func (s *Service) PostEvent(ctx context.Context, in PostEventInput) (*models.Event, error) {
	const op = "service/events/PostEvent"

	uid, ok := identity.From(ctx)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrNotAuthenticated)
	}

	lg := log.From(ctx).With("op", op, "user_id", uid.String())

	in.Title = strings.TrimSpace(in.Title)
	in.Location = strings.TrimSpace(in.Location)
	in.Description = strings.TrimSpace(in.Description)

	switch {
	case in.Title == "", in.Location == "", in.Description == "":
		lg.Warn("invalid argument: empty required field")

		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	case !in.TermsAccepted:
		lg.Warn("invalid argument: terms not accepted")

		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	case !in.Cost.Valid():
		lg.Warn("invalid argument: unknown cost tier", "cost", string(in.Cost))

		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	case in.StartsAt.IsZero():
		lg.Warn("invalid argument: empty starts_at")

		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	case in.Image == nil:
		lg.Warn("invalid argument: image is required")

		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	task, err := s.imageTask(in.Image, "event", eventImagesRoot)
	if err != nil {
		lg.Warn("invalid argument: event image", "err", err)

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	state := s.uploads.RunBatch(ctx, []upload.Task{*task})
	if state.Failed() {
		lg.Error("event image upload failed", "err", state.FirstFailure)

		return nil, fmt.Errorf("%s: %w: %w", op, ErrImageUpload, state.FirstFailure)
	}

	imageURL := state.URLs()[0]

	event, err := s.events.CreateEvent(ctx, models.Event{
		OwnerID:          uid,
		Title:            in.Title,
		ImageURL:         imageURL,
		StartsAt:         in.StartsAt.UTC(),
		Location:         in.Location,
		Description:      in.Description,
		Cost:             in.Cost,
		GroupChatEnabled: in.GroupChatEnabled,
	})
	if err != nil {
		lg.Error("event insert failed", "image_url", redact.ObjectURL(imageURL), "err", err)

		return nil, fmt.Errorf("%s: %w: %w", op, ErrDocumentWrite, err)
	}

	if !in.GroupChatEnabled {
		return event, nil
	}

	group, err := s.groups.CreateGroup(ctx, models.Group{
		EventID: event.ID,
		Name:    event.Title,
		OwnerID: uid,
		Members: []uuid.UUID{uid},
	})
	if err != nil {
		lg.Error("group create failed", "event_id", event.ID, "err", err)

		return event, nil
	}

	if err := s.events.SetEventGroup(ctx, event.ID, group.ID); err != nil {
		lg.Error("event group link failed", "event_id", event.ID, "group_id", group.ID, "err", err)

		return event, nil
	}

	event.GroupID = group.ID

	return event, nil
}

// ListEvents возвращает страницу ленты событий (сначала новые).
//
// Валидация:
//   - From позже To — ErrInvalidArgument;
//   - некорректный page_token — ErrInvalidArgument.
func (s *Service) ListEvents(ctx context.Context, in ListEventsInput) (*models.EventPage, error) {
	const op = "service/events/ListEvents"

	lg := log.From(ctx).With("op", op)

	if !in.From.IsZero() && !in.To.IsZero() && in.From.After(in.To) {
		lg.Warn("invalid argument: from is after to")

		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	filter := models.EventFilter{
		Query: strings.TrimSpace(in.Query),
		From:  in.From,
		To:    in.To,
	}

	page, err := s.events.ListEvents(ctx, filter, in.ListParams)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrInvalidCursor):
			lg.Warn("invalid argument: bad page_token")

			return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil, fmt.Errorf("%s: %w", op, err)
		default:
			lg.Error("storage error", "err", err)

			return nil, fmt.Errorf("%s: %w", op, ErrInternal)
		}
	}

	return page, nil
}

// EventByID возвращает событие. Неизвестный или некорректный id — ErrNotFound.
func (s *Service) EventByID(ctx context.Context, id string) (*models.Event, error) {
	const op = "service/events/EventByID"

	lg := log.From(ctx).With("op", op, "event_id", id)

	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	event, err := s.events.EventByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, s.mapStorageErr(lg, err))
	}

	return event, nil
}
