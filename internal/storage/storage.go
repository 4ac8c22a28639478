// storage содержит контракты слоя хранилищ bondia-service.
//
// documents.go — документное хранилище (коллекция + id + набор полей).
// objects.go — объектное хранилище изображений (S3/MinIO).
// events.go — события, групповые чаты и сообщения.
// users.go — учётные записи и refresh-токены.
package storage

import "errors"

var (
	// ErrNotFound — сущность отсутствует в хранилище.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (email/refresh-token).
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidCursor — битый/чужой page_token.
	ErrInvalidCursor = errors.New("invalid cursor")
	// ErrInvalidArgument — нарушены ограничения запроса (пустой ключ, пустые данные).
	ErrInvalidArgument = errors.New("invalid argument")
)
