package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pribylovaa/bondia/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SetDocument полностью заменяет документ (upsert).
func (m *Mongo) SetDocument(ctx context.Context, collection, id string, fields storage.Fields) error {
	const op = "storage/mongo/SetDocument"

	coll, key, err := m.docRef(collection, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	_, err = coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: key}}, toBSON(fields),
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// UpdateFields выполняет $set переданных полей существующего документа.
// Если документа нет — storage.ErrNotFound.
func (m *Mongo) UpdateFields(ctx context.Context, collection, id string, fields storage.Fields) error {
	const op = "storage/mongo/UpdateFields"

	coll, key, err := m.docRef(collection, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if len(fields) == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrInvalidArgument)
	}

	res, err := coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: key}},
		bson.D{{Key: "$set", Value: toBSON(fields)}})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// MergeDocument выполняет $set переданных полей с upsert.
func (m *Mongo) MergeDocument(ctx context.Context, collection, id string, fields storage.Fields) error {
	const op = "storage/mongo/MergeDocument"

	coll, key, err := m.docRef(collection, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if len(fields) == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrInvalidArgument)
	}

	_, err = coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: key}},
		bson.D{{Key: "$set", Value: toBSON(fields)}},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// GetDocument возвращает поля документа без _id.
// Типы драйвера приводятся к обычным Go-типам (см. normalize).
func (m *Mongo) GetDocument(ctx context.Context, collection, id string) (storage.Fields, error) {
	const op = "storage/mongo/GetDocument"

	coll, key, err := m.docRef(collection, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var raw bson.M
	if err := coll.FindOne(ctx, bson.D{{Key: "_id", Value: key}}).Decode(&raw); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	delete(raw, "_id")

	out := make(storage.Fields, len(raw))
	for k, v := range raw {
		out[k] = normalize(v)
	}

	return out, nil
}

func (m *Mongo) docRef(collection, id string) (*mongodriver.Collection, string, error) {
	collection = strings.TrimSpace(collection)
	id = strings.TrimSpace(id)
	if collection == "" || id == "" {
		return nil, "", storage.ErrInvalidArgument
	}

	return m.db.Collection(collection), id, nil
}

// toBSON копирует поля, отбрасывая _id (он задаётся ключом документа),
// и приводит время к точности MongoDB.
func toBSON(fields storage.Fields) bson.M {
	out := make(bson.M, len(fields))
	for k, v := range fields {
		if k == "_id" {
			continue
		}

		if t, ok := v.(time.Time); ok {
			v = toMS(t)
		}

		out[k] = v
	}

	return out
}

// normalize превращает значения, декодированные драйвером, в обычные Go-типы:
// массивы — []any, вложенные документы — map[string]any, даты — time.Time (UTC).
func normalize(v any) any {
	switch x := v.(type) {
	case primitive.A:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalize(e)
		}

		return out
	case primitive.M:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = normalize(e)
		}

		return out
	case primitive.D:
		out := make(map[string]any, len(x))
		for _, e := range x {
			out[e.Key] = normalize(e.Value)
		}

		return out
	case primitive.DateTime:
		return x.Time().UTC()
	case primitive.ObjectID:
		return x.Hex()
	default:
		return v
	}
}
