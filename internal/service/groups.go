package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pribylovaa/bondia/internal/models"
	"github.com/pribylovaa/bondia/internal/pkg/identity"
	"github.com/pribylovaa/bondia/internal/pkg/log"
	"github.com/pribylovaa/bondia/internal/storage"
)

const maxMessageRunes = 2000

// GroupSummary — строка списка «мои чаты».
type GroupSummary struct {
	ID            string
	EventID       string
	Name          string
	MemberCount   int
	LastMessage   string
	LastMessageAt time.Time
	IsOwner       bool
}

// RequestJoin подаёт заявку текущего пользователя в группу.
// Повторная заявка и заявка участника ничего не меняют.
func (s *Service) RequestJoin(ctx context.Context, groupID string) error {
	const op = "service/groups/RequestJoin"

	uid, ok := identity.From(ctx)
	if !ok {
		return fmt.Errorf("%s: %w", op, ErrNotAuthenticated)
	}

	lg := log.From(ctx).With("op", op, "user_id", uid.String(), "group_id", groupID)

	if err := s.groups.AddPending(ctx, groupID, uid); err != nil {
		return fmt.Errorf("%s: %w", op, s.mapStorageErr(lg, err))
	}

	lg.Info("join requested")

	return nil
}

// AcceptJoin переводит userID из заявок в участники. Только для владельца группы.
func (s *Service) AcceptJoin(ctx context.Context, groupID string, userID uuid.UUID) error {
	const op = "service/groups/AcceptJoin"

	uid, ok := identity.From(ctx)
	if !ok {
		return fmt.Errorf("%s: %w", op, ErrNotAuthenticated)
	}

	lg := log.From(ctx).With("op", op, "user_id", uid.String(), "group_id", groupID)

	if userID == uuid.Nil {
		lg.Warn("invalid argument: empty member id")

		return fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	group, err := s.groups.GroupByID(ctx, groupID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, s.mapStorageErr(lg, err))
	}

	if group.OwnerID != uid {
		lg.Warn("permission denied: not the owner")

		return fmt.Errorf("%s: %w", op, ErrPermissionDenied)
	}

	if err := s.groups.AcceptPending(ctx, groupID, userID); err != nil {
		return fmt.Errorf("%s: %w", op, s.mapStorageErr(lg, err))
	}

	lg.Info("join accepted", "member_id", userID.String())

	return nil
}

// MyGroups возвращает группы, где текущий пользователь — участник.
// Сначала группы с самым свежим сообщением.
func (s *Service) MyGroups(ctx context.Context) ([]GroupSummary, error) {
	const op = "service/groups/MyGroups"

	uid, ok := identity.From(ctx)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrNotAuthenticated)
	}

	lg := log.From(ctx).With("op", op, "user_id", uid.String())

	groups, err := s.groups.GroupsByMember(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, s.mapStorageErr(lg, err))
	}

	out := make([]GroupSummary, 0, len(groups))
	for _, g := range groups {
		out = append(out, GroupSummary{
			ID:            g.ID,
			EventID:       g.EventID,
			Name:          g.Name,
			MemberCount:   len(g.Members),
			LastMessage:   g.LastMessage,
			LastMessageAt: g.LastMessageAt,
			IsOwner:       g.OwnerID == uid,
		})
	}

	return out, nil
}

// GroupByID возвращает группу участнику. Заявки видит только владелец.
func (s *Service) GroupByID(ctx context.Context, groupID string) (*models.Group, error) {
	const op = "service/groups/GroupByID"

	uid, ok := identity.From(ctx)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrNotAuthenticated)
	}

	lg := log.From(ctx).With("op", op, "user_id", uid.String(), "group_id", groupID)

	group, err := s.memberGroup(ctx, lg, groupID, uid)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if group.OwnerID != uid {
		group.Pending = nil
	}

	return group, nil
}

// SendMessage отправляет сообщение в группу. Только для участников.
// Текст обрезается по краям и должен быть от 1 до 2000 символов.
func (s *Service) SendMessage(ctx context.Context, groupID, text string) (*models.Message, error) {
	const op = "service/groups/SendMessage"

	uid, ok := identity.From(ctx)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrNotAuthenticated)
	}

	lg := log.From(ctx).With("op", op, "user_id", uid.String(), "group_id", groupID)

	text = strings.TrimSpace(text)
	if text == "" || utf8.RuneCountInString(text) > maxMessageRunes {
		lg.Warn("invalid argument: message length")

		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	if _, err := s.memberGroup(ctx, lg, groupID, uid); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	msg, err := s.messages.CreateMessage(ctx, models.Message{
		GroupID:  groupID,
		AuthorID: uid,
		Text:     text,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, s.mapStorageErr(lg, err))
	}

	// Превью не критично: сообщение уже сохранено.
	if err := s.groups.SetLastMessage(ctx, groupID, msg.Text, msg.CreatedAt); err != nil {
		lg.Warn("last message update failed", "err", err)
	}

	return msg, nil
}

// ListMessages возвращает страницу сообщений группы (сначала старые). Только для участников.
func (s *Service) ListMessages(ctx context.Context, groupID string, p models.ListParams) (*models.MessagePage, error) {
	const op = "service/groups/ListMessages"

	uid, ok := identity.From(ctx)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrNotAuthenticated)
	}

	lg := log.From(ctx).With("op", op, "user_id", uid.String(), "group_id", groupID)

	if _, err := s.memberGroup(ctx, lg, groupID, uid); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	page, err := s.messages.ListMessages(ctx, groupID, p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, s.mapStorageErr(lg, err))
	}

	return page, nil
}

func (s *Service) memberGroup(ctx context.Context, lg *slog.Logger, groupID string, uid uuid.UUID) (*models.Group, error) {
	group, err := s.groups.GroupByID(ctx, groupID)
	if err != nil {
		return nil, s.mapStorageErr(lg, err)
	}

	if !group.IsMember(uid) {
		lg.Warn("permission denied: not a member")

		return nil, ErrPermissionDenied
	}

	return group, nil
}

// mapStorageErr переводит ошибки хранилищ в ошибки сервиса.
// Отмена и дедлайн контекста проходят как есть.
func (s *Service) mapStorageErr(lg *slog.Logger, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		lg.Warn("not found")

		return ErrNotFound
	case errors.Is(err, storage.ErrInvalidCursor), errors.Is(err, storage.ErrInvalidArgument):
		lg.Warn("invalid argument", "err", err)

		return ErrInvalidArgument
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		lg.Error("storage error", "err", err)

		return ErrInternal
	}
}
