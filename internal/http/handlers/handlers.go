// handlers — REST-хендлеры bondia-service поверх сервисного слоя.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/pribylovaa/bondia/internal/models"
	"github.com/pribylovaa/bondia/internal/service"
)

// Service — операции сервисного слоя, которые нужны хендлерам.
type Service interface {
	SignUp(ctx context.Context, email, password string) (*models.TokenPair, uuid.UUID, error)
	SignIn(ctx context.Context, email, password string) (*models.TokenPair, uuid.UUID, error)
	SignOut(ctx context.Context, refreshToken string) error
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, uuid.UUID, error)

	SaveProfile(ctx context.Context, in service.SaveProfileInput) (*service.SaveResult, error)
	RetryProfileWrite(ctx context.Context, w service.ProfileWrite) (*service.SaveResult, error)
	ProfileByID(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	ProfileImages(ctx context.Context, p *models.Profile) <-chan service.ImageResult

	PostEvent(ctx context.Context, in service.PostEventInput) (*models.Event, error)
	ListEvents(ctx context.Context, in service.ListEventsInput) (*models.EventPage, error)
	EventByID(ctx context.Context, id string) (*models.Event, error)

	MyGroups(ctx context.Context) ([]service.GroupSummary, error)
	GroupByID(ctx context.Context, groupID string) (*models.Group, error)
	RequestJoin(ctx context.Context, groupID string) error
	AcceptJoin(ctx context.Context, groupID string, userID uuid.UUID) error
	SendMessage(ctx context.Context, groupID, text string) (*models.Message, error)
	ListMessages(ctx context.Context, groupID string, p models.ListParams) (*models.MessagePage, error)

	Settings(ctx context.Context) (*models.Settings, error)
	UpdateSettings(ctx context.Context, in service.UpdateSettingsInput) (*models.Settings, error)
}

// Handlers агрегирует зависимости хендлеров.
// MaxUploadBytes — верхняя граница тела multipart-запроса.
type Handlers struct {
	Service        Service
	MaxUploadBytes int64
}

func New(svc Service, maxUploadBytes int64) *Handlers {
	return &Handlers{Service: svc, MaxUploadBytes: maxUploadBytes}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}

// errInvalidArgument — локальная ошибка парсинга запроса (маппится в 400).
func errInvalidArgument(reason string) error {
	return fmt.Errorf("%s: %w", reason, service.ErrInvalidArgument)
}

// listParams читает page_size/page_token из query.
func listParams(r *http.Request) (models.ListParams, error) {
	q := r.URL.Query()
	p := models.ListParams{PageToken: q.Get("page_token")}

	if raw := q.Get("page_size"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || n < 0 {
			return models.ListParams{}, errInvalidArgument("page_size")
		}

		p.PageSize = int32(n)
	}

	return p, nil
}
