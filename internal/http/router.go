// http собирает REST-роутер bondia-service.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/bondia/internal/http/handlers"
	"github.com/pribylovaa/bondia/internal/http/middleware"
	"github.com/pribylovaa/bondia/internal/metrics"
)

// API — всё, что нужно роутеру от сервисного слоя: операции хендлеров
// и проверка access-токена для middleware аутентификации.
type API interface {
	handlers.Service
	middleware.TokenValidator
}

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger         *slog.Logger
	Timeout        time.Duration
	Metrics        *metrics.Metrics // nil — без HTTP-метрик
	MaxUploadBytes int64
	BasePath       string // например, "/api"; если пустой — роуты регистрируются на корне.
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(api API, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),             // безопасно ловим паники
		middleware.RequestID(),           // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger),  // кладём request-scoped логгер в контекст и логируем
		middleware.Metrics(opts.Metrics), // счётчики по шаблону маршрута
		middleware.Authenticate(api),     // identity в контекст по Bearer-токену
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout)) // общий дедлайн запроса
	}

	h := handlers.New(api, opts.MaxUploadBytes)

	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h)
	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers) {
	// auth
	r.Post("/auth/signup", h.SignUp)
	r.Post("/auth/signin", h.SignIn)
	r.Post("/auth/signout", h.SignOut)
	r.Post("/auth/refresh", h.Refresh)

	// profile
	r.Put("/profile", h.SaveProfile)
	r.Post("/profile/retry", h.RetryProfileWrite)
	r.Get("/profiles/{id}", h.GetProfile)
	r.Get("/profiles/{id}/images", h.ProfileImages)

	// events
	r.Post("/events", h.PostEvent)
	r.Get("/events", h.ListEvents)
	r.Get("/events/{id}", h.GetEvent)

	// groups
	r.Get("/groups", h.MyGroups)
	r.Get("/groups/{id}", h.GetGroup)
	r.Post("/groups/{id}/join", h.RequestJoin)
	r.Post("/groups/{id}/members/{user_id}", h.AcceptJoin)
	r.Get("/groups/{id}/messages", h.ListMessages)
	r.Post("/groups/{id}/messages", h.SendMessage)

	// settings
	r.Get("/settings", h.GetSettings)
	r.Patch("/settings", h.UpdateSettings)
}
