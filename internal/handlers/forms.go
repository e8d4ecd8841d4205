package handlers

import (
	"NewsBlog/internal/assets"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"
)

// parseForm разбирает multipart или urlencoded форму с общим лимитом тела.
func (h *PageHandler) parseForm(w http.ResponseWriter, r *http.Request) error {
	maxBody := int64(h.Config.UploadMaxSizeMB) * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.ParseMultipartForm(maxBody)
	}
	return r.ParseForm()
}

// formPtr: значение поля, nil если поле не передано вовсе.
func formPtr(r *http.Request, name string) *string {
	if _, ok := r.PostForm[name]; !ok {
		if r.MultipartForm == nil {
			return nil
		}
		if _, ok := r.MultipartForm.Value[name]; !ok {
			return nil
		}
	}
	v := r.FormValue(name)
	return &v
}

// formBool: отмеченный чекбокс.
func formBool(r *http.Request, name string) bool {
	switch strings.ToLower(r.FormValue(name)) {
	case "y", "on", "true", "1", "yes":
		return true
	}
	return false
}

// uploadSet держит открытые файлы формы до конца запроса.
type uploadSet struct {
	r     *http.Request
	files []multipart.File
}

func newUploadSet(r *http.Request) *uploadSet {
	return &uploadSet{r: r}
}

// get возвращает файл поля name; пустой Upload, если файл не передан.
func (s *uploadSet) get(name string) (assets.Upload, error) {
	if s.r.MultipartForm == nil {
		return assets.Upload{}, nil
	}
	f, hdr, err := s.r.FormFile(name)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return assets.Upload{}, nil
		}
		return assets.Upload{}, err
	}
	s.files = append(s.files, f)
	return assets.Upload{Filename: hdr.Filename, Content: f}, nil
}

func (s *uploadSet) Close() {
	for _, f := range s.files {
		_ = f.Close()
	}
}
