package mongo

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/pribylovaa/bondia/internal/config"
	"github.com/pribylovaa/bondia/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	eventsCollection   = "events"
	groupsCollection   = "groups"
	messagesCollection = "messages"
	defaultDBName      = "bondia"
)

// Mongo — тонкий адаптер для подключения и коллекций MongoDB.
// Реализует storage.Documents (профили, настройки) и типизированные
// хранилища событий, групп и сообщений.
type Mongo struct {
	limits   config.LimitsConfig
	client   *mongodriver.Client
	db       *mongodriver.Database
	events   *mongodriver.Collection
	groups   *mongodriver.Collection
	messages *mongodriver.Collection
}

// New подключается к MongoDB, проверяет соединение, подготавливает коллекции и индексы.
func New(ctx context.Context, cfg *config.Config) (*Mongo, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mongo: nil config")
	}

	if cfg.Mongo.URL == "" {
		return nil, fmt.Errorf("mongo: empty cfg.Mongo.URL")
	}

	cli, err := mongodriver.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URL))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := cli.Ping(ctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := cli.Database(databaseFromURI(cfg.Mongo.URL))

	m := &Mongo{
		limits:   cfg.Limits,
		client:   cli,
		db:       db,
		events:   db.Collection(eventsCollection),
		groups:   db.Collection(groupsCollection),
		messages: db.Collection(messagesCollection),
	}

	if err := m.ensureIndexes(ctx); err != nil {
		_ = m.Close(ctx)
		return nil, err
	}

	return m, nil
}

// Close отключает клиента.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// Ping проверяет доступность primary (для /healthz).
func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

// ensureIndexes создаёт индексы под выборки сервиса.
// - Лента событий: created_at(desc) + _id(desc).
// - Окно по дате начала: starts_at.
// - Группы пользователя: members (multikey).
// - Сообщения группы: group_id + created_at(asc) + _id(asc).
func (m *Mongo) ensureIndexes(ctx context.Context) error {
	if _, err := m.events.Indexes().CreateMany(ctx, []mongodriver.IndexModel{
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName("created_desc"),
		},
		{
			Keys:    bson.D{{Key: "starts_at", Value: 1}},
			Options: options.Index().SetName("starts_at"),
		},
	}); err != nil {
		return fmt.Errorf("mongo ensure indexes (events): %w", err)
	}

	if _, err := m.groups.Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys:    bson.D{{Key: "members", Value: 1}},
		Options: options.Index().SetName("members"),
	}); err != nil {
		return fmt.Errorf("mongo ensure indexes (groups): %w", err)
	}

	if _, err := m.messages.Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "created_at", Value: 1}, {Key: "_id", Value: 1}},
		Options: options.Index().SetName("group_created_asc"),
	}); err != nil {
		return fmt.Errorf("mongo ensure indexes (messages): %w", err)
	}

	return nil
}

// databaseFromURI извлекает имя базы данных из URI-пути mongodb.
// Если оно отсутствует или не разбирается, возвращает значение по умолчанию.
func databaseFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err == nil {
		if name := strings.Trim(u.Path, "/"); name != "" {
			return name
		}
	}

	return defaultDBName
}

// limitOrDefault приводит запрошенный размер страницы к [1, Max]; <= 0 — Default.
func (m *Mongo) limitOrDefault(pageSize int32) int64 {
	lim := pageSize
	if lim <= 0 {
		lim = m.limits.Default
	}

	if lim > m.limits.Max {
		lim = m.limits.Max
	}

	if lim <= 0 {
		lim = 1
	}

	return int64(lim)
}

// Проверка на соответствие интерфейсам.
var (
	_ storage.Documents = (*Mongo)(nil)
	_ storage.Events    = (*Mongo)(nil)
	_ storage.Groups    = (*Mongo)(nil)
	_ storage.Messages  = (*Mongo)(nil)
)
