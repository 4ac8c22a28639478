package mongo

import (
	"context"
	"errors"
	"fmt"
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

// groupDoc — BSON-представление группового чата.
// members/pending хранятся строковыми UUID, чтобы работали $addToSet/$pull.
type groupDoc struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	EventID       string             `bson:"event_id"`
	Name          string             `bson:"name"`
	OwnerID       string             `bson:"owner_id"`
	Members       []string           `bson:"members"`
	Pending       []string           `bson:"pending"`
	LastMessage   string             `bson:"last_message"`
	LastMessageAt time.Time          `bson:"last_message_at"`
	CreatedAt     time.Time          `bson:"created_at"`
}

func (d *groupDoc) toModel() models.Group {
	owner, _ := uuid.Parse(d.OwnerID)

	return models.Group{
		ID:            d.ID.Hex(),
		EventID:       d.EventID,
		Name:          d.Name,
		OwnerID:       owner,
		Members:       parseIDs(d.Members),
		Pending:       parseIDs(d.Pending),
		LastMessage:   d.LastMessage,
		LastMessageAt: d.LastMessageAt.UTC(),
		CreatedAt:     d.CreatedAt.UTC(),
	}
}

func parseIDs(in []string) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(in))
	for _, s := range in {
		if id, err := uuid.Parse(s); err == nil {
			out = append(out, id)
		}
	}

	return out
}

func formatIDs(in []uuid.UUID) []string {
	out := make([]string, 0, len(in))
	for _, id := range in {
		out = append(out, id.String())
	}

	return out
}

// CreateGroup вставляет группу. Владелец всегда входит в members.
func (m *Mongo) CreateGroup(ctx context.Context, group models.Group) (*models.Group, error) {
	const op = "storage/mongo/CreateGroup"

	members := group.Members
	if !group.IsMember(group.OwnerID) {
		members = append([]uuid.UUID{group.OwnerID}, members...)
	}

	doc := groupDoc{
		EventID:   group.EventID,
		Name:      group.Name,
		OwnerID:   group.OwnerID.String(),
		Members:   formatIDs(members),
		Pending:   formatIDs(group.Pending),
		CreatedAt: toMS(time.Now()),
	}

	res, err := m.groups.InsertOne(ctx, doc)
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

// GroupByID возвращает группу по идентификатору.
func (m *Mongo) GroupByID(ctx context.Context, id string) (*models.Group, error) {
	const op = "storage/mongo/GroupByID"

	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	var doc groupDoc
	if err := m.groups.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := doc.toModel()

	return &out, nil
}

// AddPending добавляет заявку, если пользователь ещё не участник.
// Для участника операция ничего не меняет и не является ошибкой.
func (m *Mongo) AddPending(ctx context.Context, groupID string, userID uuid.UUID) error {
	const op = "storage/mongo/AddPending"

	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(groupID))
	if err != nil {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	uid := userID.String()
	res, err := m.groups.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}, {Key: "members", Value: bson.D{{Key: "$ne", Value: uid}}}},
		bson.D{{Key: "$addToSet", Value: bson.D{{Key: "pending", Value: uid}}}},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if res.MatchedCount > 0 {
		return nil
	}

	// Ничего не совпало: либо группы нет, либо пользователь уже участник.
	n, err := m.groups.CountDocuments(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return fmt.Errorf("%s: count: %w", op, err)
	}

	if n == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// AcceptPending атомарно переносит пользователя из pending в members.
func (m *Mongo) AcceptPending(ctx context.Context, groupID string, userID uuid.UUID) error {
	const op = "storage/mongo/AcceptPending"

	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(groupID))
	if err != nil {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	uid := userID.String()
	res, err := m.groups.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}, {Key: "pending", Value: uid}},
		bson.D{
			{Key: "$pull", Value: bson.D{{Key: "pending", Value: uid}}},
			{Key: "$addToSet", Value: bson.D{{Key: "members", Value: uid}}},
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// GroupsByMember возвращает группы пользователя, последние активные — первыми.
func (m *Mongo) GroupsByMember(ctx context.Context, userID uuid.UUID) ([]models.Group, error) {
	const op = "storage/mongo/GroupsByMember"

	cur, err := m.groups.Find(ctx,
		bson.D{{Key: "members", Value: userID.String()}},
		options.Find().SetSort(bson.D{{Key: "last_message_at", Value: -1}, {Key: "_id", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: find: %w", op, err)
	}
	defer cur.Close(ctx)

	var docs []groupDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%s: cursor: %w", op, err)
	}

	out := make([]models.Group, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toModel())
	}

	return out, nil
}

// SetLastMessage обновляет превью последнего сообщения.
func (m *Mongo) SetLastMessage(ctx context.Context, groupID, text string, at time.Time) error {
	const op = "storage/mongo/SetLastMessage"

	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(groupID))
	if err != nil {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	res, err := m.groups.UpdateByID(ctx, oid, bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "last_message", Value: text},
			{Key: "last_message_at", Value: toMS(at)},
		}},
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}
