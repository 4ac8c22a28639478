package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/pribylovaa/bondia/internal/models"
	"github.com/pribylovaa/bondia/internal/pkg/identity"
	"github.com/pribylovaa/bondia/internal/pkg/log"
	"github.com/pribylovaa/bondia/internal/storage"
)

// UpdateSettingsInput — частичное обновление настроек; nil-поля не меняются.
type UpdateSettingsInput struct {
	NotificationsEnabled *bool
}

// Settings возвращает настройки текущего пользователя.
// Документа ещё нет — возвращаются значения по умолчанию.
func (s *Service) Settings(ctx context.Context) (*models.Settings, error) {
	const op = "service/settings/Settings"

	uid, ok := identity.From(ctx)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrNotAuthenticated)
	}

	lg := log.From(ctx).With("op", op, "user_id", uid.String())

	doc, err := s.documents.GetDocument(ctx, settingsCollection, uid.String())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			st := models.DefaultSettings()
			return &st, nil
		}

		return nil, fmt.Errorf("%s: %w", op, s.mapStorageErr(lg, err))
	}

	st := models.DefaultSettings()
	if v, ok := doc["notifications_enabled"].(bool); ok {
		st.NotificationsEnabled = v
	}

	return &st, nil
}

// UpdateSettings применяет переданные поля и возвращает итоговые настройки.
// Пустое обновление — ErrInvalidArgument.
func (s *Service) UpdateSettings(ctx context.Context, in UpdateSettingsInput) (*models.Settings, error) {
	const op = "service/settings/UpdateSettings"

	uid, ok := identity.From(ctx)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrNotAuthenticated)
	}

	lg := log.From(ctx).With("op", op, "user_id", uid.String())

	fields := storage.Fields{}
	if in.NotificationsEnabled != nil {
		fields["notifications_enabled"] = *in.NotificationsEnabled
	}

	if len(fields) == 0 {
		lg.Warn("invalid argument: empty update")

		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	fields["updated_at"] = s.now()

	if err := s.documents.MergeDocument(ctx, settingsCollection, uid.String(), fields); err != nil {
		return nil, fmt.Errorf("%s: %w", op, s.mapStorageErr(lg, err))
	}

	return s.Settings(ctx)
}
