package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/bondia/internal/models"
)

// Events — контракт хранилища событий.
type Events interface {
	// CreateEvent вставляет событие; ID и CreatedAt проставляются хранилищем.
	CreateEvent(ctx context.Context, event models.Event) (*models.Event, error)
	// SetEventGroup привязывает групповой чат к событию.
	// Если события нет — ErrNotFound.
	SetEventGroup(ctx context.Context, eventID, groupID string) error
	// EventByID возвращает событие. Некорректный id трактуется как ErrNotFound.
	EventByID(ctx context.Context, id string) (*models.Event, error)
	// ListEvents возвращает страницу событий, сначала новые (created_at DESC).
	// При некорректном page_token — ErrInvalidCursor.
	ListEvents(ctx context.Context, filter models.EventFilter, p models.ListParams) (*models.EventPage, error)
}

// Groups — контракт хранилища групповых чатов.
type Groups interface {
	// CreateGroup вставляет группу; ID и CreatedAt проставляются хранилищем.
	CreateGroup(ctx context.Context, group models.Group) (*models.Group, error)
	// GroupByID возвращает группу. Некорректный id трактуется как ErrNotFound.
	GroupByID(ctx context.Context, id string) (*models.Group, error)
	// AddPending добавляет заявку пользователя (повторная заявка не дублируется).
	AddPending(ctx context.Context, groupID string, userID uuid.UUID) error
	// AcceptPending переводит пользователя из pending в members.
	// Если группы нет или заявки нет — ErrNotFound.
	AcceptPending(ctx context.Context, groupID string, userID uuid.UUID) error
	// GroupsByMember возвращает группы, где пользователь — участник.
	GroupsByMember(ctx context.Context, userID uuid.UUID) ([]models.Group, error)
	// SetLastMessage обновляет превью последнего сообщения.
	SetLastMessage(ctx context.Context, groupID, text string, at time.Time) error
}

// Messages — контракт хранилища сообщений.
type Messages interface {
	// CreateMessage вставляет сообщение; ID и CreatedAt проставляются хранилищем.
	CreateMessage(ctx context.Context, msg models.Message) (*models.Message, error)
	// ListMessages возвращает страницу сообщений группы, сначала старые (created_at ASC).
	// При некорректном page_token — ErrInvalidCursor.
	ListMessages(ctx context.Context, groupID string, p models.ListParams) (*models.MessagePage, error)
}
