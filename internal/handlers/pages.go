package handlers

import (
	"NewsBlog/internal/assets"
	"NewsBlog/internal/config"
	"NewsBlog/internal/middleware"
	"NewsBlog/internal/model"
	"NewsBlog/internal/service"
	"NewsBlog/internal/tags"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// PageHandler обслуживает эндпоинты сайта. Личность берётся из cookie сессии,
// данные приходят формой (multipart для картинок), ответы: JSON.
type PageHandler struct {
	Content     *service.ContentService
	UserService *service.UserService
	Logger      *zap.SugaredLogger
	Config      *config.Config
}

// NewPageHandler создаёт хендлер страниц
func NewPageHandler(content *service.ContentService, userService *service.UserService, logger *zap.SugaredLogger, cfg *config.Config) *PageHandler {
	return &PageHandler{Content: content, UserService: userService, Logger: logger, Config: cfg}
}

func (h *PageHandler) fail(w http.ResponseWriter, where string, err error) {
	writeServiceError(w, h.Logger, where, pageStatus(err), err)
}

// session возвращает пользователя сессии или отвечает 401.
func (h *PageHandler) session(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "login required")
		return 0, false
	}
	return userID, true
}

func (h *PageHandler) form(w http.ResponseWriter, r *http.Request, where string) bool {
	if err := h.parseForm(w, r); err != nil {
		h.Logger.Warnw(where+": invalid form", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(w, http.StatusRequestEntityTooLarge, "request too large")
			return false
		}
		writeMessage(w, http.StatusBadRequest, "invalid form")
		return false
	}
	return true
}

func requireFields(w http.ResponseWriter, r *http.Request, names ...string) bool {
	for _, name := range names {
		if r.FormValue(name) == "" {
			writeMessage(w, http.StatusBadRequest, fmt.Sprintf("field %q is required", name))
			return false
		}
	}
	return true
}

// confirmed: формы удаления требуют отметку "assure".
func confirmed(w http.ResponseWriter, r *http.Request) bool {
	if !formBool(r, "assure") {
		writeMessage(w, http.StatusBadRequest, `confirm deletion with the "assure" field`)
		return false
	}
	return true
}

// Index GET /: лента всех новостей.
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	news, err := h.Content.ListNews(r.Context())
	if err != nil {
		h.fail(w, "Index", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"news": newsCards(news)})
}

// Register POST /register
func (h *PageHandler) Register(w http.ResponseWriter, r *http.Request) {
	if !h.form(w, r, "Register") {
		return
	}
	if !requireFields(w, r, "email", "password", "password_again", "nickname") {
		return
	}
	uploads := newUploadSet(r)
	defer uploads.Close()
	pfp, err := uploads.get("file_pfp")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid file")
		return
	}

	again := r.FormValue("password_again")
	u, err := h.Content.CreateUser(r.Context(), service.NewUser{
		Nickname:      r.FormValue("nickname"),
		Email:         r.FormValue("email"),
		Password:      r.FormValue("password"),
		PasswordAgain: &again,
		About:         r.FormValue("about"),
		Image:         pfp,
	})
	if err != nil {
		h.fail(w, "Register", err)
		return
	}
	writeOK(w, http.StatusCreated, map[string]any{"id": u.ID})
}

// Login POST /login
func (h *PageHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.form(w, r, "Login") {
		return
	}
	if !requireFields(w, r, "email", "password") {
		return
	}
	u, err := h.UserService.Login(r.Context(), r.FormValue("email"), r.FormValue("password"))
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			h.Logger.Warnw("Login: bad credentials")
			writeMessage(w, http.StatusUnauthorized, "wrong password or email")
			return
		}
		h.fail(w, "Login", err)
		return
	}

	ttl := middleware.DefaultSessionTTL
	if formBool(r, "remember_me") {
		ttl = middleware.RememberSessionTTL
	}
	if err := middleware.SetLoginCookieTTL(w, u.ID, h.Config.AuthSecret, ttl); err != nil {
		h.Logger.Errorw("Login: failed to issue session", "user_id", u.ID, "error", err)
		writeMessage(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"id": u.ID})
}

// Logout POST /logout
func (h *PageHandler) Logout(w http.ResponseWriter, r *http.Request) {
	middleware.ClearLoginCookie(w)
	writeOK(w, http.StatusOK, nil)
}

// AddNews POST /news/add
func (h *PageHandler) AddNews(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.session(w, r)
	if !ok || !h.form(w, r, "AddNews") {
		return
	}
	if !requireFields(w, r, "title", "about") {
		return
	}
	uploads := newUploadSet(r)
	defer uploads.Close()

	images := make([]assets.Upload, 0, model.MaxNewsImages)
	for i := 1; i <= model.MaxNewsImages; i++ {
		up, err := uploads.get(fmt.Sprintf("file_%d", i))
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid file")
			return
		}
		images = append(images, up)
	}

	n, err := h.Content.CreateNews(r.Context(), service.SessionActor(userID), service.NewNews{
		Title:  r.FormValue("title"),
		About:  r.FormValue("about"),
		Tags:   r.FormValue("tags"),
		Images: images,
	})
	if err != nil {
		h.fail(w, "AddNews", err)
		return
	}
	writeOK(w, http.StatusCreated, map[string]any{"id": n.ID})
}

// EditNewsForm GET /news/edit/{id}: текущие значения для формы.
func (h *PageHandler) EditNewsForm(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := idParam(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	n, err := h.Content.GetNews(r.Context(), id)
	if err != nil {
		h.fail(w, "EditNewsForm", err)
		return
	}
	if n.CreatorID != userID {
		writeMessage(w, http.StatusForbidden, "user is not the owner")
		return
	}
	writeJSON(w, http.StatusOK, toNewsForm(n))
}

// EditNews POST /news/edit/{id}
func (h *PageHandler) EditNews(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.session(w, r)
	if !ok || !h.form(w, r, "EditNews") {
		return
	}
	id, ok := idParam(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	uploads := newUploadSet(r)
	defer uploads.Close()

	upd := service.NewsUpdate{
		Title: formPtr(r, "title"),
		About: formPtr(r, "about"),
		Tags:  formPtr(r, "tags"),
	}
	for i := 0; i < model.MaxNewsImages; i++ {
		up, err := uploads.get(fmt.Sprintf("file_%d", i+1))
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid file")
			return
		}
		upd.Replace[i] = up
		upd.Clear[i] = formBool(r, fmt.Sprintf("file_%d_ignore", i+1))
	}

	n, err := h.Content.EditNews(r.Context(), service.SessionActor(userID), id, upd)
	if err != nil {
		h.fail(w, "EditNews", err)
		return
	}
	writeJSON(w, http.StatusOK, toNewsForm(n))
}

// DeleteNews POST /news/delete/{id}
func (h *PageHandler) DeleteNews(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.session(w, r)
	if !ok || !h.form(w, r, "DeleteNews") {
		return
	}
	id, ok := idParam(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if !confirmed(w, r) {
		return
	}
	if err := h.Content.DeleteNews(r.Context(), service.SessionActor(userID), id); err != nil {
		h.fail(w, "DeleteNews", err)
		return
	}
	writeOK(w, http.StatusOK, nil)
}

// ShowNews GET /news/{id}: новость с комментариями, новые сначала.
func (h *PageHandler) ShowNews(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	page, err := h.Content.NewsPage(r.Context(), id)
	if err != nil {
		h.fail(w, "ShowNews", err)
		return
	}
	writeJSON(w, http.StatusOK, toNewsPage(page))
}

// AddComment POST /news/{id}
func (h *PageHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.session(w, r)
	if !ok || !h.form(w, r, "AddComment") {
		return
	}
	id, ok := idParam(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	c, err := h.Content.CreateComment(r.Context(), service.SessionActor(userID), id, r.FormValue("text"))
	if err != nil {
		h.fail(w, "AddComment", err)
		return
	}
	writeOK(w, http.StatusCreated, map[string]any{"id": c.ID})
}

// SearchNews GET /news/search/{tags}: теги вида "a;b" или "#a #b".
func (h *PageHandler) SearchNews(w http.ResponseWriter, r *http.Request) {
	query, err := tags.ParseQuery(chi.URLParam(r, "tags"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, `Incorrect tag: it should start with "#"`)
		return
	}
	news, err := h.Content.SearchByTags(r.Context(), query)
	if err != nil {
		h.fail(w, "SearchNews", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"news": newsCards(news)})
}

// Profile GET /user/profile/{id}
func (h *PageHandler) Profile(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	p, err := h.Content.Profile(r.Context(), id)
	if err != nil {
		h.fail(w, "Profile", err)
		return
	}
	writeJSON(w, http.StatusOK, toProfile(p))
}

// EditUser POST /user/profile/edit/{id}
func (h *PageHandler) EditUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.session(w, r)
	if !ok || !h.form(w, r, "EditUser") {
		return
	}
	id, ok := idParam(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	uploads := newUploadSet(r)
	defer uploads.Close()
	pfp, err := uploads.get("file_pfp")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid file")
		return
	}

	u, err := h.Content.EditUser(r.Context(), service.SessionActor(userID), id, service.UserUpdate{
		Nickname:         formPtr(r, "nickname"),
		Email:            formPtr(r, "email"),
		About:            formPtr(r, "about"),
		NewPassword:      formPtr(r, "password"),
		NewPasswordAgain: formPtr(r, "password_again"),
		Image:            pfp,
		RemoveImage:      formBool(r, "ignore_pfp"),
	})
	if err != nil {
		h.fail(w, "EditUser", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":      toUserDTO(u),
		"image_url": userImageURL(u.Image),
	})
}

// DeleteUser POST /user/profile/delete/{id}: удаляет себя и завершает сессию.
func (h *PageHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.session(w, r)
	if !ok || !h.form(w, r, "DeleteUser") {
		return
	}
	id, ok := idParam(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if !confirmed(w, r) {
		return
	}
	res, err := h.Content.DeleteUser(r.Context(), service.SessionActor(userID), id)
	if err != nil {
		h.fail(w, "DeleteUser", err)
		return
	}
	middleware.ClearLoginCookie(w)
	writeOK(w, http.StatusOK, map[string]any{
		"comments_deleted": res.CommentsDeleted,
		"news_reassigned":  res.NewsReassigned,
	})
}

// EditComment POST /comments/edit/{id}
func (h *PageHandler) EditComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.session(w, r)
	if !ok || !h.form(w, r, "EditComment") {
		return
	}
	id, ok := idParam(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	c, err := h.Content.EditComment(r.Context(), service.SessionActor(userID), id, r.FormValue("text"))
	if err != nil {
		h.fail(w, "EditComment", err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"news_id": c.NewsID})
}

// DeleteComment POST /comments/delete/{id}
func (h *PageHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.session(w, r)
	if !ok || !h.form(w, r, "DeleteComment") {
		return
	}
	id, ok := idParam(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if !confirmed(w, r) {
		return
	}
	c, err := h.Content.DeleteComment(r.Context(), service.SessionActor(userID), id)
	if err != nil {
		h.fail(w, "DeleteComment", err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"news_id": c.NewsID})
}
