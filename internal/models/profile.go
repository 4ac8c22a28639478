// models содержит доменные сущности bondia-service.
// Эти типы используются слоями бизнес-логики, хранилища и транспорта.
package models

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Profile — профиль пользователя.
// Хранится одним документом в коллекции profiles, ключ — UserID.
//   - Age хранится строкой в том виде, в котором его ввёл пользователь
//     (валидация диапазона выполняется сервисом).
//   - Interests — множество: нормализуется через NormalizeInterests.
//   - ProfileImageURL пуст, если картинка профиля ни разу не загружалась.
//   - ImageGalleryURLs упорядочены так же, как изображения на входе сохранения.
type Profile struct {
	UserID           uuid.UUID
	Bio              string
	Age              string
	Location         string
	Interests        []string
	ProfileImageURL  string
	ImageGalleryURLs []string
	UpdatedAt        time.Time
}

// NormalizeInterests приводит интересы к множеству:
// обрезает пробелы, отбрасывает пустые значения, удаляет дубликаты и сортирует.
func NormalizeInterests(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))

	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}

		if _, ok := seen[s]; ok {
			continue
		}

		seen[s] = struct{}{}
		out = append(out, s)
	}

	sort.Strings(out)

	return out
}

// Image — бинарные данные изображения с типом содержимого.
type Image struct {
	Data        []byte
	ContentType string
}
