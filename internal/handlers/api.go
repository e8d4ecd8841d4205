package handlers

import (
	"NewsBlog/internal/service"
	"NewsBlog/internal/tags"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// APIHandler: JSON API. Владение подтверждается паролем из тела запроса,
// ошибки владения и валидации отдаются кодом 405.
type APIHandler struct {
	Content *service.ContentService
	Logger  *zap.SugaredLogger
}

// NewAPIHandler создаёт хендлер API
func NewAPIHandler(content *service.ContentService, logger *zap.SugaredLogger) *APIHandler {
	return &APIHandler{Content: content, Logger: logger}
}

func (h *APIHandler) fail(w http.ResponseWriter, where string, err error) {
	writeServiceError(w, h.Logger, where, apiStatus(err), err)
}

func (h *APIHandler) badJSON(w http.ResponseWriter, where string, err error) {
	h.Logger.Warnw(where+": invalid request body", "error", err)
	writeMessage(w, http.StatusBadRequest, "invalid json body")
}

func missing(w http.ResponseWriter, field string) {
	writeMessage(w, http.StatusBadRequest, fmt.Sprintf("missing required parameter %q", field))
}

// --- users ---

type createUserRequest struct {
	Nickname *string `json:"nickname"`
	Email    *string `json:"email"`
	About    string  `json:"about"`
	Password *string `json:"password"`
}

type editUserRequest struct {
	Nickname    *string `json:"nickname"`
	Email       *string `json:"email"`
	About       *string `json:"about"`
	Password    *string `json:"password"`
	NewPassword *string `json:"new_password"`
}

type passwordRequest struct {
	Password *string `json:"password"`
}

// ListUsers GET /api/users
func (h *APIHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Content.ListUsers(r.Context())
	if err != nil {
		h.fail(w, "ListUsers", err)
		return
	}
	out := make([]userListItemDTO, 0, len(users))
	for _, u := range users {
		out = append(out, userListItemDTO{ID: u.ID, Nickname: u.Nickname, Email: u.Email})
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": out})
}

// GetUser GET /api/users/{id}
func (h *APIHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	u, err := h.Content.GetUser(r.Context(), id)
	if err != nil {
		h.fail(w, "GetUser", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": toUserDTO(u)})
}

// CreateUser POST /api/users
func (h *APIHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badJSON(w, "CreateUser", err)
		return
	}
	switch {
	case req.Nickname == nil:
		missing(w, "nickname")
		return
	case req.Email == nil:
		missing(w, "email")
		return
	case req.Password == nil:
		missing(w, "password")
		return
	}

	u, err := h.Content.CreateUser(r.Context(), service.NewUser{
		Nickname: *req.Nickname,
		Email:    *req.Email,
		Password: *req.Password,
		About:    req.About,
	})
	if err != nil {
		h.fail(w, "CreateUser", err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"id": u.ID})
}

// EditUser PUT /api/users/{id}
func (h *APIHandler) EditUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	var req editUserRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badJSON(w, "EditUser", err)
		return
	}
	if req.Password == nil {
		writeMessage(w, http.StatusMethodNotAllowed,
			fmt.Sprintf(`to change user with id %d send his password in json with "password" key`, id))
		return
	}

	_, err := h.Content.EditUser(r.Context(), service.PasswordActor(0, *req.Password), id, service.UserUpdate{
		Nickname:    req.Nickname,
		Email:       req.Email,
		About:       req.About,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		h.fail(w, "EditUser", err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{
		"tip": `send new password with key "new_password" in json in order to change password`,
	})
}

// DeleteUser DELETE /api/users/{id}
func (h *APIHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	var req passwordRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badJSON(w, "DeleteUser", err)
		return
	}
	actor := service.Actor{}
	if req.Password != nil {
		actor = service.PasswordActor(0, *req.Password)
	}
	// без пароля движок всё равно проверит существование и защищённость пользователя
	res, err := h.Content.DeleteUser(r.Context(), actor, id)
	if err != nil {
		if req.Password == nil && errorsIsUnauthorized(err) {
			writeMessage(w, http.StatusMethodNotAllowed,
				fmt.Sprintf(`to delete user with id %d send his password in json with "password" key`, id))
			return
		}
		h.fail(w, "DeleteUser", err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{
		"comments_deleted": res.CommentsDeleted,
		"news_reassigned":  res.NewsReassigned,
	})
}

// --- news ---

type createNewsRequest struct {
	Title           *string `json:"title"`
	About           *string `json:"about"`
	Tags            string  `json:"tags"`
	CreatorID       *int64  `json:"creator_id"`
	CreatorPassword *string `json:"creator_password"`
}

type editNewsRequest struct {
	Title           *string `json:"title"`
	About           *string `json:"about"`
	Tags            *string `json:"tags"`
	CreatorPassword *string `json:"creator_password"`
}

type creatorPasswordRequest struct {
	CreatorPassword *string `json:"creator_password"`
}

// ListNews GET /api/news
func (h *APIHandler) ListNews(w http.ResponseWriter, r *http.Request) {
	news, err := h.Content.ListNews(r.Context())
	if err != nil {
		h.fail(w, "ListNews", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"news": newsList(news)})
}

// GetNews GET /api/news/{id}
func (h *APIHandler) GetNews(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	n, err := h.Content.GetNews(r.Context(), id)
	if err != nil {
		h.fail(w, "GetNews", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"news": toNewsDTO(n)})
}

// SearchNews GET /api/news/search?tags=#a #b
func (h *APIHandler) SearchNews(w http.ResponseWriter, r *http.Request) {
	query, err := tags.ParseQuery(r.URL.Query().Get("tags"))
	if err != nil {
		writeMessage(w, http.StatusMethodNotAllowed, `news tags should start with "#" like that: #tag1 #tag2`)
		return
	}
	news, err := h.Content.SearchByTags(r.Context(), query)
	if err != nil {
		h.fail(w, "SearchNews", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"news": newsList(news)})
}

// CreateNews POST /api/news
func (h *APIHandler) CreateNews(w http.ResponseWriter, r *http.Request) {
	var req createNewsRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badJSON(w, "CreateNews", err)
		return
	}
	switch {
	case req.Title == nil:
		missing(w, "title")
		return
	case req.About == nil:
		missing(w, "about")
		return
	case req.CreatorID == nil:
		missing(w, "creator_id")
		return
	case req.CreatorPassword == nil:
		missing(w, "creator_password")
		return
	}

	actor := service.PasswordActor(*req.CreatorID, *req.CreatorPassword)
	n, err := h.Content.CreateNews(r.Context(), actor, service.NewNews{
		Title: *req.Title,
		About: *req.About,
		Tags:  req.Tags,
	})
	if err != nil {
		h.fail(w, "CreateNews", err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"id": n.ID})
}

// EditNews PUT /api/news/{id}
func (h *APIHandler) EditNews(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	var req editNewsRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badJSON(w, "EditNews", err)
		return
	}
	if req.CreatorPassword == nil {
		// несуществующая новость важнее отсутствующего пароля
		if _, err := h.Content.GetNews(r.Context(), id); err != nil {
			h.fail(w, "EditNews", err)
			return
		}
		writeMessage(w, http.StatusMethodNotAllowed, fmt.Sprintf(
			"you need user password to change one of his news. Json key is 'creator_password'. Exception at news with id %d", id))
		return
	}

	_, err := h.Content.EditNews(r.Context(), service.PasswordActor(0, *req.CreatorPassword), id, service.NewsUpdate{
		Title: req.Title,
		About: req.About,
		Tags:  req.Tags,
	})
	if err != nil {
		h.fail(w, "EditNews", err)
		return
	}
	writeOK(w, http.StatusOK, nil)
}

// DeleteNews DELETE /api/news/{id}
func (h *APIHandler) DeleteNews(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	var req creatorPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badJSON(w, "DeleteNews", err)
		return
	}
	actor := service.Actor{}
	if req.CreatorPassword != nil {
		actor = service.PasswordActor(0, *req.CreatorPassword)
	}
	// без пароля движок всё равно проверит существование и защищённость новости
	if err := h.Content.DeleteNews(r.Context(), actor, id); err != nil {
		if req.CreatorPassword == nil && errorsIsUnauthorized(err) {
			writeMessage(w, http.StatusMethodNotAllowed, fmt.Sprintf(
				`to delete news send creator password in json with "creator_password" key. Exception at news with id %d`, id))
			return
		}
		h.fail(w, "DeleteNews", err)
		return
	}
	writeOK(w, http.StatusOK, nil)
}

// --- comments ---

type createCommentRequest struct {
	Text            *string `json:"text"`
	CreatorID       *int64  `json:"creator_id"`
	CreatorPassword *string `json:"creator_password"`
	NewsID          *int64  `json:"news_id"`
}

type editCommentRequest struct {
	Text            *string `json:"text"`
	CreatorPassword *string `json:"creator_password"`
}

// ListComments GET /api/comments
func (h *APIHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	list, err := h.Content.ListComments(r.Context())
	if err != nil {
		h.fail(w, "ListComments", err)
		return
	}
	out := make([]commentDTO, 0, len(list))
	for i := range list {
		out = append(out, toCommentDTO(&list[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"comments": out})
}

// GetComment GET /api/comments/{id}
func (h *APIHandler) GetComment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	c, err := h.Content.GetComment(r.Context(), id)
	if err != nil {
		h.fail(w, "GetComment", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"comment": toCommentDTO(c)})
}

// CreateComment POST /api/comments
func (h *APIHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	var req createCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badJSON(w, "CreateComment", err)
		return
	}
	switch {
	case req.Text == nil:
		missing(w, "text")
		return
	case req.CreatorID == nil:
		missing(w, "creator_id")
		return
	case req.CreatorPassword == nil:
		missing(w, "creator_password")
		return
	case req.NewsID == nil:
		missing(w, "news_id")
		return
	}

	actor := service.PasswordActor(*req.CreatorID, *req.CreatorPassword)
	c, err := h.Content.CreateComment(r.Context(), actor, *req.NewsID, *req.Text)
	if err != nil {
		h.fail(w, "CreateComment", err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"id": c.ID})
}

// EditComment PUT /api/comments/{id}
func (h *APIHandler) EditComment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	var req editCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badJSON(w, "EditComment", err)
		return
	}
	if req.CreatorPassword == nil {
		if _, err := h.Content.GetComment(r.Context(), id); err != nil {
			h.fail(w, "EditComment", err)
			return
		}
		writeMessage(w, http.StatusMethodNotAllowed, fmt.Sprintf(
			"you need user password to change one of his comments. Json key is 'creator_password'. Exception at comment with id %d", id))
		return
	}

	_, err := h.Content.EditComment(r.Context(), service.PasswordActor(0, *req.CreatorPassword), id, deref(req.Text))
	if err != nil {
		h.fail(w, "EditComment", err)
		return
	}
	writeOK(w, http.StatusOK, nil)
}

// DeleteComment DELETE /api/comments/{id}
func (h *APIHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	var req creatorPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badJSON(w, "DeleteComment", err)
		return
	}
	if req.CreatorPassword == nil {
		c, err := h.Content.GetComment(r.Context(), id)
		if err != nil {
			h.fail(w, "DeleteComment", err)
			return
		}
		writeMessage(w, http.StatusMethodNotAllowed, fmt.Sprintf(
			`to delete comment by user with id %d send his password in json with "creator_password" key. Exception at comment with id %d`,
			c.CreatorID, c.ID))
		return
	}

	if _, err := h.Content.DeleteComment(r.Context(), service.PasswordActor(0, *req.CreatorPassword), id); err != nil {
		h.fail(w, "DeleteComment", err)
		return
	}
	writeOK(w, http.StatusOK, nil)
}
