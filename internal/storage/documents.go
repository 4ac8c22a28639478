package storage

import "context"

// Fields — набор полей документа.
type Fields = map[string]any

// Documents — контракт документного хранилища.
// Документ адресуется парой (collection, id); id — строковый ключ (_id).
type Documents interface {
	// SetDocument полностью заменяет документ (создаёт, если его нет).
	SetDocument(ctx context.Context, collection, id string, fields Fields) error
	// UpdateFields обновляет только переданные поля существующего документа.
	// Если документа нет — ErrNotFound.
	UpdateFields(ctx context.Context, collection, id string, fields Fields) error
	// MergeDocument обновляет только переданные поля, создавая документ при отсутствии.
	// Поля, которых нет в fields, сохраняют прежние значения.
	MergeDocument(ctx context.Context, collection, id string, fields Fields) error
	// GetDocument возвращает поля документа (без _id).
	// Если документа нет — ErrNotFound.
	GetDocument(ctx context.Context, collection, id string) (Fields, error)
}
