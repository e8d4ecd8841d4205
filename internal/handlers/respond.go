package handlers

import (
	"NewsBlog/internal/service"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func writeOK(w http.ResponseWriter, status int, extra map[string]any) {
	body := map[string]any{"success": "OK"}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, status, body)
}

// errMessage: текст ошибки движка для клиента; внутренние ошибки не раскрываются.
func errMessage(err error) string {
	var oe *service.OpError
	if errors.As(err, &oe) && !errors.Is(err, service.ErrStorage) {
		return oe.Message()
	}
	return "internal error"
}

// apiStatus выбирает код JSON API. Любая ошибка владения или валидации отдаётся 405.
func apiStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrStorage):
		return http.StatusInternalServerError
	case errors.Is(err, service.ErrUnauthorized),
		errors.Is(err, service.ErrProtected),
		errors.Is(err, service.ErrDuplicateEmail),
		errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrPasswordMismatch),
		errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrInvalidTag),
		errors.Is(err, service.ErrInvalidAsset):
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

// pageStatus: коды сессионных эндпоинтов.
func pageStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrStorage):
		return http.StatusInternalServerError
	case errors.Is(err, service.ErrUnauthorized), errors.Is(err, service.ErrProtected):
		return http.StatusForbidden
	case errors.Is(err, service.ErrDuplicateEmail), errors.Is(err, service.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, service.ErrPasswordMismatch),
		errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrInvalidTag),
		errors.Is(err, service.ErrInvalidAsset):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, logger *zap.SugaredLogger, where string, status int, err error) {
	if status >= http.StatusInternalServerError {
		logger.Errorw(where+": service error", "error", err)
	} else {
		logger.Warnw(where+": rejected", "status", status, "error", err)
	}
	writeMessage(w, status, errMessage(err))
}

// decodeJSON читает тело запроса; пустое тело считается пустым объектом.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// idParam разбирает {id} из пути. Роуты ограничены цифрами, ошибка здесь: переполнение.
func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func errorsIsUnauthorized(err error) bool {
	return errors.Is(err, service.ErrUnauthorized)
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
