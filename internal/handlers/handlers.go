package handlers

import (
	"NewsBlog/internal/config"
	"NewsBlog/internal/middleware"
	"NewsBlog/internal/service"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	Router chi.Router
}

// NewHandler разводящий для хендлеров
func NewHandler(
	content *service.ContentService,
	userService *service.UserService,
	logger *zap.SugaredLogger,
	config *config.Config,
) *Handler {
	r := chi.NewRouter()

	r.Use(middleware.WithGzip)
	r.Use(middleware.WithLogging)
	r.Use(middleware.WithAuth(config.AuthSecret))

	// Handlers
	api := NewAPIHandler(content, logger)
	page := NewPageHandler(content, userService, logger, config)

	// JSON API: владелец подтверждается паролем в теле запроса
	r.Route("/api", func(r chi.Router) {
		r.Get("/users", api.ListUsers)
		r.Post("/users", api.CreateUser)
		r.Get("/users/{id:[0-9]+}", api.GetUser)
		r.Put("/users/{id:[0-9]+}", api.EditUser)
		r.Delete("/users/{id:[0-9]+}", api.DeleteUser)

		r.Get("/news", api.ListNews)
		r.Post("/news", api.CreateNews)
		r.Get("/news/search", api.SearchNews)
		r.Get("/news/{id:[0-9]+}", api.GetNews)
		r.Put("/news/{id:[0-9]+}", api.EditNews)
		r.Delete("/news/{id:[0-9]+}", api.DeleteNews)

		r.Get("/comments", api.ListComments)
		r.Post("/comments", api.CreateComment)
		r.Get("/comments/{id:[0-9]+}", api.GetComment)
		r.Put("/comments/{id:[0-9]+}", api.EditComment)
		r.Delete("/comments/{id:[0-9]+}", api.DeleteComment)
	})

	// Session routes
	r.Get("/", page.Index)
	r.Post("/register", page.Register)
	r.Post("/login", page.Login)
	r.Post("/logout", page.Logout)

	r.Post("/news/add", page.AddNews)
	r.Get("/news/edit/{id:[0-9]+}", page.EditNewsForm)
	r.Post("/news/edit/{id:[0-9]+}", page.EditNews)
	r.Post("/news/delete/{id:[0-9]+}", page.DeleteNews)
	r.Get("/news/{id:[0-9]+}", page.ShowNews)
	r.Post("/news/{id:[0-9]+}", page.AddComment)
	r.Get("/news/search/{tags}", page.SearchNews)

	r.Get("/user/profile/{id:[0-9]+}", page.Profile)
	r.Post("/user/profile/edit/{id:[0-9]+}", page.EditUser)
	r.Post("/user/profile/delete/{id:[0-9]+}", page.DeleteUser)

	r.Post("/comments/edit/{id:[0-9]+}", page.EditComment)
	r.Post("/comments/delete/{id:[0-9]+}", page.DeleteComment)

	// картинки пользователей и новостей
	static := http.StripPrefix("/static/img/", http.FileServer(http.Dir(config.StaticDir)))
	r.Handle("/static/img/*", static)

	return &Handler{Router: r}
}
