package models

import (
	"time"

	"github.com/google/uuid"
)

// Group — групповой чат события.
//   - Members — участники (владелец добавляется при создании);
//   - Pending — заявки на вступление, ожидающие решения владельца.
type Group struct {
	ID            string
	EventID       string
	Name          string
	OwnerID       uuid.UUID
	Members       []uuid.UUID
	Pending       []uuid.UUID
	LastMessage   string
	LastMessageAt time.Time
	CreatedAt     time.Time
}

// IsMember сообщает, состоит ли пользователь в группе.
func (g *Group) IsMember(id uuid.UUID) bool {
	return containsID(g.Members, id)
}

// IsPending сообщает, есть ли у пользователя необработанная заявка.
func (g *Group) IsPending(id uuid.UUID) bool {
	return containsID(g.Pending, id)
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}

	return false
}

// Message — сообщение группового чата.
type Message struct {
	ID        string
	GroupID   string
	AuthorID  uuid.UUID
	Text      string
	CreatedAt time.Time
}

// MessagePage — страница сообщений.
type MessagePage struct {
	Items         []Message
	NextPageToken string
}

// ListParams — базовые параметры постраничной выдачи.
type ListParams struct {
	PageSize  int32
	PageToken string
}
