package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/bondia/internal/models"
	"github.com/pribylovaa/bondia/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// eventDoc — BSON-представление события.
type eventDoc struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	OwnerID          string             `bson:"owner_id"`
	Title            string             `bson:"title"`
	ImageURL         string             `bson:"image_url"`
	StartsAt         time.Time          `bson:"starts_at"`
	Location         string             `bson:"location"`
	Description      string             `bson:"description"`
	Cost             string             `bson:"cost"`
	GroupChatEnabled bool               `bson:"group_chat_enabled"`
	GroupID          string             `bson:"group_id,omitempty"`
	CreatedAt        time.Time          `bson:"created_at"`
}

func (d *eventDoc) toModel() models.Event {
	owner, _ := uuid.Parse(d.OwnerID)

	return models.Event{
		ID:               d.ID.Hex(),
		OwnerID:          owner,
		Title:            d.Title,
		ImageURL:         d.ImageURL,
		StartsAt:         d.StartsAt.UTC(),
		Location:         d.Location,
		Description:      d.Description,
		Cost:             models.CostTier(d.Cost),
		GroupChatEnabled: d.GroupChatEnabled,
		GroupID:          d.GroupID,
		CreatedAt:        d.CreatedAt.UTC(),
	}
}

// CreateEvent вставляет событие. ID генерирует драйвер, CreatedAt = now.
func (m *Mongo) CreateEvent(ctx context.Context, event models.Event) (*models.Event, error) {
	const op = "storage/mongo/CreateEvent"

	doc := eventDoc{
		OwnerID:          event.OwnerID.String(),
		Title:            event.Title,
		ImageURL:         event.ImageURL,
		StartsAt:         toMS(event.StartsAt),
		Location:         event.Location,
		Description:      event.Description,
		Cost:             string(event.Cost),
		GroupChatEnabled: event.GroupChatEnabled,
		GroupID:          event.GroupID,
		CreatedAt:        toMS(time.Now()),
	}

	res, err := m.events.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("%s: insert: %w", op, err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("%s: inserted id type", op)
	}

	doc.ID = oid
	out := doc.toModel()

	return &out, nil
}

// SetEventGroup проставляет group_id событию.
func (m *Mongo) SetEventGroup(ctx context.Context, eventID, groupID string) error {
	const op = "storage/mongo/SetEventGroup"

	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(eventID))
	if err != nil {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	res, err := m.events.UpdateByID(ctx, oid, bson.D{
		{Key: "$set", Value: bson.D{{Key: "group_id", Value: groupID}}},
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// EventByID возвращает событие по идентификатору.
// Некорректный формат id трактуется как «нет такой записи».
func (m *Mongo) EventByID(ctx context.Context, id string) (*models.Event, error) {
	const op = "storage/mongo/EventByID"

	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	var doc eventDoc
	if err := m.events.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := doc.toModel()

	return &out, nil
}

// ListEvents возвращает страницу событий.
// Сортировка: created_at DESC, _id DESC. Поиск — регистронезависимая подстрока
// в title/description (спецсимволы regex экранируются).
func (m *Mongo) ListEvents(ctx context.Context, filter models.EventFilter, p models.ListParams) (*models.EventPage, error) {
	const op = "storage/mongo/ListEvents"

	limit := m.limitOrDefault(p.PageSize)

	var conds bson.A

	if q := strings.TrimSpace(filter.Query); q != "" {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"}
		conds = append(conds, bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: "title", Value: rx}},
			bson.D{{Key: "description", Value: rx}},
		}}})
	}

	if !filter.From.IsZero() {
		conds = append(conds, bson.D{{Key: "starts_at", Value: bson.D{{Key: "$gte", Value: toMS(filter.From)}}}})
	}

	if !filter.To.IsZero() {
		conds = append(conds, bson.D{{Key: "starts_at", Value: bson.D{{Key: "$lte", Value: toMS(filter.To)}}}})
	}

	if strings.TrimSpace(p.PageToken) != "" {
		t, oid, err := decodeCursor(p.PageToken)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrInvalidCursor)
		}

		conds = append(conds, afterCursor(t, oid, true))
	}

	query := bson.D{}
	if len(conds) > 0 {
		query = bson.D{{Key: "$and", Value: conds}}
	}

	// Берём на один элемент больше, чтобы понять, есть ли следующая страница.
	findOpts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit + 1)

	cur, err := m.events.Find(ctx, query, findOpts)
	if err != nil {
		return nil, fmt.Errorf("%s: find: %w", op, err)
	}
	defer cur.Close(ctx)

	var docs []eventDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%s: cursor: %w", op, err)
	}

	page := &models.EventPage{}
	if int64(len(docs)) > limit {
		docs = docs[:limit]
		last := docs[len(docs)-1]
		page.NextPageToken = encodeCursor(last.CreatedAt, last.ID)
	}

	page.Items = make([]models.Event, 0, len(docs))
	for i := range docs {
		page.Items = append(page.Items, docs[i].toModel())
	}

	return page, nil
}
