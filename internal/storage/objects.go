package storage

import "context"

// Object — бинарный объект с ключом и типом содержимого.
type Object struct {
	Key         string
	ContentType string
	Data        []byte
}

// Objects — контракт объектного хранилища.
type Objects interface {
	// Upload сохраняет объект под obj.Key и возвращает его публичный URL.
	Upload(ctx context.Context, obj Object) (string, error)
	// Download получает объект по URL, ранее выданному Upload.
	// Если объекта нет или URL не принадлежит хранилищу — ErrNotFound.
	Download(ctx context.Context, url string) (*Object, error)
	// KeyFromURL возвращает ключ объекта, если URL выдан этим хранилищем.
	KeyFromURL(url string) (string, bool)
}
