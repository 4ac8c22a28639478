package mongo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/bondia/internal/models"
	"github.com/pribylovaa/bondia/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type messageDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	GroupID   string             `bson:"group_id"`
	AuthorID  string             `bson:"author_id"`
	Text      string             `bson:"text"`
	CreatedAt time.Time          `bson:"created_at"`
}

func (d *messageDoc) toModel() models.Message {
	author, _ := uuid.Parse(d.AuthorID)

	return models.Message{
		ID:        d.ID.Hex(),
		GroupID:   d.GroupID,
		AuthorID:  author,
		Text:      d.Text,
		CreatedAt: d.CreatedAt.UTC(),
	}
}

// CreateMessage вставляет сообщение.
func (m *Mongo) CreateMessage(ctx context.Context, msg models.Message) (*models.Message, error) {
	const op = "storage/mongo/CreateMessage"

	doc := messageDoc{
		GroupID:   msg.GroupID,
		AuthorID:  msg.AuthorID.String(),
		Text:      msg.Text,
		CreatedAt: toMS(time.Now()),
	}

	res, err := m.messages.InsertOne(ctx, doc)
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

// ListMessages возвращает страницу сообщений группы.
// Сортировка: created_at ASC, _id ASC — удобно для подзагрузки чата.
func (m *Mongo) ListMessages(ctx context.Context, groupID string, p models.ListParams) (*models.MessagePage, error) {
	const op = "storage/mongo/ListMessages"

	limit := m.limitOrDefault(p.PageSize)

	filter := bson.D{{Key: "group_id", Value: strings.TrimSpace(groupID)}}

	if strings.TrimSpace(p.PageToken) != "" {
		t, oid, err := decodeCursor(p.PageToken)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrInvalidCursor)
		}

		filter = append(filter, afterCursor(t, oid, false)...)
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(limit + 1)

	cur, err := m.messages.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("%s: find: %w", op, err)
	}
	defer cur.Close(ctx)

	var docs []messageDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%s: cursor: %w", op, err)
	}

	page := &models.MessagePage{}
	if int64(len(docs)) > limit {
		docs = docs[:limit]
		last := docs[len(docs)-1]
		page.NextPageToken = encodeCursor(last.CreatedAt, last.ID)
	}

	page.Items = make([]models.Message, 0, len(docs))
	for i := range docs {
		page.Items = append(page.Items, docs[i].toModel())
	}

	return page, nil
}
