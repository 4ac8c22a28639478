package models

import (
	"time"

	"github.com/google/uuid"
)

// CostTier — ценовая категория события (стоимость и вместимость).
type CostTier string

const (
	CostTier50  CostTier = "$50 < 50 people"
	CostTier100 CostTier = "$100 < 100 people"
	CostTier500 CostTier = "$500 < 500 people"
)

// Valid сообщает, является ли значение одной из известных категорий.
func (c CostTier) Valid() bool {
	switch c {
	case CostTier50, CostTier100, CostTier500:
		return true
	default:
		return false
	}
}

// Event — событие, опубликованное пользователем.
// ID — hex ObjectID MongoDB. GroupID заполнен, только если при публикации
// был включён групповой чат.
type Event struct {
	ID               string
	OwnerID          uuid.UUID
	Title            string
	ImageURL         string
	StartsAt         time.Time
	Location         string
	Description      string
	Cost             CostTier
	GroupChatEnabled bool
	GroupID          string
	CreatedAt        time.Time
}

// EventFilter — условия выборки событий.
//   - Query — подстрока (без учёта регистра) в title или description;
//   - From/To — окно по StartsAt; нулевое значение снимает ограничение.
type EventFilter struct {
	Query string
	From  time.Time
	To    time.Time
}

// EventPage — страница событий.
type EventPage struct {
	Items         []Event
	NextPageToken string
}
