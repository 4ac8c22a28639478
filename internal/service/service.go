// service содержит бизнес-логику bondia-service:
//   - сохранение профиля: параллельные загрузки изображений и одна запись документа;
//   - чтение профиля и потоковая подгрузка его изображений;
//   - учётные записи и токены (регистрация, вход, ротация, отзыв);
//   - события, групповые чаты и настройки аккаунта.
//
// Идентификатор текущего пользователя берётся только из контекста
// (см. internal/pkg/identity). Ошибки хранилищ маппятся в ошибки этого пакета,
// транспорт маппит их в HTTP-статусы (internal/errors).
package service

import (
	"errors"
	"time"

	"github.com/pribylovaa/bondia/internal/cache"
	"github.com/pribylovaa/bondia/internal/config"
	"github.com/pribylovaa/bondia/internal/metrics"
	"github.com/pribylovaa/bondia/internal/storage"
	"github.com/pribylovaa/bondia/internal/upload"
)

// Общие ошибки.
var (
	// ErrInvalidArgument — некорректные входные данные. HTTP 400.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound — сущность не найдена. HTTP 404.
	ErrNotFound = errors.New("not found")
	// ErrPermissionDenied — действие запрещено текущему пользователю. HTTP 403.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNotAuthenticated — в контексте нет идентичности пользователя. HTTP 401.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrInternal — внутренняя ошибка сервиса. HTTP 500.
	ErrInternal = errors.New("internal")
)

// Ошибки сохранения профиля и загрузки изображений.
// Стадии различаются и никогда не склеиваются в одну общую ошибку.
var (
	// ErrSaveInProgress — у пользователя уже идёт сохранение профиля. HTTP 409.
	ErrSaveInProgress = errors.New("profile save already in progress")
	// ErrSaveCanceled — сохранение отменено до записи документа.
	ErrSaveCanceled = errors.New("profile save canceled")
	// ErrProfilePictureUpload — не удалось загрузить картинку профиля.
	ErrProfilePictureUpload = errors.New("profile picture upload failed")
	// ErrGalleryPartialFailure — часть изображений галереи не загрузилась.
	ErrGalleryPartialFailure = errors.New("gallery upload partially failed")
	// ErrDocumentWrite — запись документа не удалась.
	ErrDocumentWrite = errors.New("document write failed")
	// ErrImageUpload — не удалось загрузить изображение события.
	ErrImageUpload = errors.New("image upload failed")
)

// Ошибки учётных записей и токенов.
var (
	// ErrInvalidCredentials — пара логин/пароль неверна или пользователь не найден. HTTP 401.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken — токен некорректен по формату/подписи или неизвестен. HTTP 401.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired — срок действия токена истёк. HTTP 401.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenRevoked — токен отозван (logout/rotation). HTTP 401.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrEmailTaken — e-mail уже занят. HTTP 409.
	ErrEmailTaken = errors.New("email already taken")
	// ErrRefreshTokenCollision — исчерпаны попытки сгенерировать уникальный refresh-токен. HTTP 500.
	ErrRefreshTokenCollision = errors.New("refresh token collision")
	// ErrInvalidEmail — e-mail имеет некорректный формат. HTTP 400.
	ErrInvalidEmail = errors.New("invalid email format")
	// ErrWeakPassword — пароль не удовлетворяет политике сложности. HTTP 400.
	ErrWeakPassword = errors.New("password is too weak")
	// ErrEmptyPassword — пароль пустой. HTTP 400.
	ErrEmptyPassword = errors.New("password is empty")
)

// Имена коллекций документного хранилища.
const (
	profilesCollection = "profiles"
	settingsCollection = "settings"
)

// Deps — внешние зависимости сервиса.
// Cache и Metrics опциональны (nil допустим).
type Deps struct {
	Documents storage.Documents
	Objects   storage.Objects
	Events    storage.Events
	Groups    storage.Groups
	Messages  storage.Messages
	Accounts  storage.Accounts
	Cache     cache.RefreshCache
	Metrics   *metrics.Metrics
}

// Service описывает бизнес-логику bondia-service.
// Экземпляр безопасен для конкурентного использования.
type Service struct {
	cfg       *config.Config
	documents storage.Documents
	objects   storage.Objects
	events    storage.Events
	groups    storage.Groups
	messages  storage.Messages
	accounts  storage.Accounts
	rcache    cache.RefreshCache
	metrics   *metrics.Metrics
	uploads   *upload.Coordinator
	saves     *saveLocks
	now       func() time.Time
}

// New создаёт новый экземпляр Service.
func New(cfg *config.Config, deps Deps) *Service {
	return &Service{
		cfg:       cfg,
		documents: deps.Documents,
		objects:   deps.Objects,
		events:    deps.Events,
		groups:    deps.Groups,
		messages:  deps.Messages,
		accounts:  deps.Accounts,
		rcache:    deps.Cache,
		metrics:   deps.Metrics,
		uploads:   upload.New(deps.Objects, cfg.Upload.Concurrency, deps.Metrics),
		saves:     newSaveLocks(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}
