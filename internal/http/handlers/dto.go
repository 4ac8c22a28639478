package handlers

import (
	"time"

	"github.com/pribylovaa/bondia/internal/models"
	"github.com/pribylovaa/bondia/internal/service"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	UserID          string    `json:"user_id"`
	AccessToken     string    `json:"access_token"`
	RefreshToken    string    `json:"refresh_token"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
}

type profileResponse struct {
	UserID           string    `json:"user_id"`
	Bio              string    `json:"bio"`
	Age              string    `json:"age"`
	Location         string    `json:"location"`
	Interests        []string  `json:"interests"`
	ProfileImageURL  string    `json:"profile_image_url,omitempty"`
	ImageGalleryURLs []string  `json:"image_gallery_urls"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func profileFromModel(p *models.Profile) profileResponse {
	return profileResponse{
		UserID:           p.UserID.String(),
		Bio:              p.Bio,
		Age:              p.Age,
		Location:         p.Location,
		Interests:        nonNil(p.Interests),
		ProfileImageURL:  p.ProfileImageURL,
		ImageGalleryURLs: nonNil(p.ImageGalleryURLs),
		UpdatedAt:        p.UpdatedAt,
	}
}

// saveResultResponse — итог сохранения; отдаётся и в успешном ответе,
// и в поле result ошибки (чтобы клиент видел уже загруженные объекты).
type saveResultResponse struct {
	Written         bool     `json:"written"`
	ProfileImageURL string   `json:"profile_image_url,omitempty"`
	GalleryURLs     []string `json:"gallery_urls"`
	FailedGallery   []int    `json:"failed_gallery_indices"`
}

func saveResultFromModel(r *service.SaveResult) *saveResultResponse {
	if r == nil {
		return nil
	}

	return &saveResultResponse{
		Written:         r.Written,
		ProfileImageURL: r.ProfileImageURL,
		GalleryURLs:     nonNil(r.GalleryURLs),
		FailedGallery:   nonNil(r.FailedGallery),
	}
}

// retryWriteRequest — повтор записи документа профиля без повторной загрузки.
// nil-поля изображений означают «не трогать».
type retryWriteRequest struct {
	Bio             string   `json:"bio"`
	Age             string   `json:"age"`
	Location        string   `json:"location"`
	Interests       []string `json:"interests"`
	ProfileImageURL *string  `json:"profile_image_url"`
	GalleryURLs     []string `json:"gallery_urls"`
}

func (r retryWriteRequest) toInput() service.ProfileWrite {
	return service.ProfileWrite{
		Bio:             r.Bio,
		Age:             r.Age,
		Location:        r.Location,
		Interests:       r.Interests,
		ProfileImageURL: r.ProfileImageURL,
		GalleryURLs:     r.GalleryURLs,
	}
}

// imageLine — одна строка NDJSON-потока изображений. Data — base64 (encoding/json).
type imageLine struct {
	Kind        string `json:"kind"`
	Index       int    `json:"index"`
	URL         string `json:"url"`
	ContentType string `json:"content_type,omitempty"`
	Data        []byte `json:"data,omitempty"`
	Error       string `json:"error,omitempty"`
}

type eventResponse struct {
	ID               string    `json:"id"`
	OwnerID          string    `json:"owner_id"`
	Title            string    `json:"title"`
	ImageURL         string    `json:"image_url"`
	StartsAt         time.Time `json:"starts_at"`
	Location         string    `json:"location"`
	Description      string    `json:"description"`
	Cost             string    `json:"cost"`
	GroupChatEnabled bool      `json:"group_chat_enabled"`
	GroupID          string    `json:"group_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

func eventFromModel(e *models.Event) eventResponse {
	return eventResponse{
		ID:               e.ID,
		OwnerID:          e.OwnerID.String(),
		Title:            e.Title,
		ImageURL:         e.ImageURL,
		StartsAt:         e.StartsAt,
		Location:         e.Location,
		Description:      e.Description,
		Cost:             string(e.Cost),
		GroupChatEnabled: e.GroupChatEnabled,
		GroupID:          e.GroupID,
		CreatedAt:        e.CreatedAt,
	}
}

type eventPageResponse struct {
	Items         []eventResponse `json:"items"`
	NextPageToken string          `json:"next_page_token,omitempty"`
}

type groupSummaryResponse struct {
	ID            string     `json:"id"`
	EventID       string     `json:"event_id"`
	Name          string     `json:"name"`
	MemberCount   int        `json:"member_count"`
	LastMessage   string     `json:"last_message,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	IsOwner       bool       `json:"is_owner"`
}

func groupSummaryFromModel(g service.GroupSummary) groupSummaryResponse {
	out := groupSummaryResponse{
		ID:          g.ID,
		EventID:     g.EventID,
		Name:        g.Name,
		MemberCount: g.MemberCount,
		LastMessage: g.LastMessage,
		IsOwner:     g.IsOwner,
	}

	if !g.LastMessageAt.IsZero() {
		at := g.LastMessageAt
		out.LastMessageAt = &at
	}

	return out
}

type groupResponse struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	Members   []string  `json:"members"`
	Pending   []string  `json:"pending,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func groupFromModel(g *models.Group) groupResponse {
	out := groupResponse{
		ID:        g.ID,
		EventID:   g.EventID,
		Name:      g.Name,
		OwnerID:   g.OwnerID.String(),
		Members:   make([]string, 0, len(g.Members)),
		CreatedAt: g.CreatedAt,
	}

	for _, id := range g.Members {
		out.Members = append(out.Members, id.String())
	}

	for _, id := range g.Pending {
		out.Pending = append(out.Pending, id.String())
	}

	return out
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

type messageResponse struct {
	ID        string    `json:"id"`
	GroupID   string    `json:"group_id"`
	AuthorID  string    `json:"author_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

func messageFromModel(m *models.Message) messageResponse {
	return messageResponse{
		ID:        m.ID,
		GroupID:   m.GroupID,
		AuthorID:  m.AuthorID.String(),
		Text:      m.Text,
		CreatedAt: m.CreatedAt,
	}
}

type messagePageResponse struct {
	Items         []messageResponse `json:"items"`
	NextPageToken string            `json:"next_page_token,omitempty"`
}

type settingsResponse struct {
	NotificationsEnabled bool `json:"notifications_enabled"`
}

type updateSettingsRequest struct {
	NotificationsEnabled *bool `json:"notifications_enabled"`
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}

	return s
}
