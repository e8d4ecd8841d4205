// Package assets хранит картинки пользователей и новостей на диске:
//
//	<root>/users/<user_id>.<ext>
//	<root>/news/<news_id>/<filename>
//
// Отсутствующий при удалении файл ошибкой не считается, любые другие
// ошибки ввода-вывода оборачиваются в ErrStorage.
package assets

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrInvalidAsset: недопустимое расширение или имя файла.
	ErrInvalidAsset = errors.New("files should be in png, jpg, jpeg or bmp format")
	// ErrStorage: неожиданная ошибка файловой системы.
	ErrStorage = errors.New("storage error")
)

const (
	usersDir = "users"
	newsDir  = "news"
)

var allowedExt = map[string]struct{}{
	"png":  {},
	"jpg":  {},
	"jpeg": {},
	"bmp":  {},
}

// Upload: загруженный файл. Пустое имя означает "файл не передан".
type Upload struct {
	Filename string
	Content  io.Reader
}

// Present сообщает, передан ли файл.
func (u Upload) Present() bool {
	return SanitizeFilename(u.Filename) != ""
}

// Manager управляет файлами картинок.
type Manager struct {
	root   string
	logger *zap.SugaredLogger
}

// NewManager создаёт каталоги хранилища при необходимости.
func NewManager(root string, logger *zap.SugaredLogger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	for _, d := range []string{usersDir, newsDir} {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return nil, storageErr("create "+d+" dir", err)
		}
	}
	return &Manager{root: root, logger: logger}, nil
}

// Root возвращает корневой каталог хранилища.
func (m *Manager) Root() string { return m.root }

// Ext возвращает расширение файла в нижнем регистре без точки.
func Ext(name string) string {
	ext := filepath.Ext(name)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// SanitizeFilename оставляет от имени только базовую часть из безопасных
// символов: буквы, цифры, "-", "_", ".".
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" || out == "." {
		return ""
	}
	return out
}

// Validate проверяет расширения всех переданных файлов до любой записи.
// Отсутствующие (пустые) загрузки пропускаются.
func Validate(uploads ...Upload) error {
	for _, up := range uploads {
		if up.Filename == "" {
			continue
		}
		name := SanitizeFilename(up.Filename)
		if name == "" {
			return fmt.Errorf("%w: bad file name %q", ErrInvalidAsset, up.Filename)
		}
		if _, ok := allowedExt[Ext(name)]; !ok {
			return fmt.Errorf("%w: %q", ErrInvalidAsset, up.Filename)
		}
	}
	return nil
}

// UserImagePath: путь к картинке пользователя по имени файла.
func (m *Manager) UserImagePath(name string) string {
	return filepath.Join(m.root, usersDir, filepath.Base(name))
}

// NewsDir: каталог картинок новости.
func (m *Manager) NewsDir(newsID int64) string {
	return filepath.Join(m.root, newsDir, strconv.FormatInt(newsID, 10))
}

// NewsImagePath: путь к картинке новости.
func (m *Manager) NewsImagePath(newsID int64, name string) string {
	return filepath.Join(m.NewsDir(newsID), filepath.Base(name))
}

// UserImageName возвращает имя файла картинки пользователя "<id>.<ext>".
func UserImageName(userID int64, upload Upload) string {
	return strconv.FormatInt(userID, 10) + "." + Ext(SanitizeFilename(upload.Filename))
}

// SaveUserImage записывает картинку пользователя и возвращает имя файла.
func (m *Manager) SaveUserImage(userID int64, upload Upload) (string, error) {
	if err := Validate(upload); err != nil {
		return "", err
	}
	name := UserImageName(userID, upload)
	if err := m.writeFile(m.UserImagePath(name), upload.Content); err != nil {
		return "", err
	}
	m.logger.Debugw("user image saved", "user_id", userID, "file", name)
	return name, nil
}

// RemoveUserImage удаляет картинку пользователя. Общие заглушки
// (no_pfp.png, dead_user.png и любые имена не вида "<id>.<ext>") не трогает.
func (m *Manager) RemoveUserImage(userID int64, name string) error {
	if name == "" || strings.TrimSuffix(name, filepath.Ext(name)) != strconv.FormatInt(userID, 10) {
		return nil
	}
	return m.removeFile(m.UserImagePath(name))
}

// PrepareNewsDir создаёт пустой каталог новости. Оставшийся от прошлых
// попыток каталог с тем же id сначала удаляется.
func (m *Manager) PrepareNewsDir(newsID int64) error {
	dir := m.NewsDir(newsID)
	if err := os.RemoveAll(dir); err != nil {
		return storageErr("clear stale news dir", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return storageErr("create news dir", err)
	}
	return nil
}

// SaveNewsImage записывает картинку новости под именем name
// (уже очищенным вызывающей стороной).
func (m *Manager) SaveNewsImage(newsID int64, name string, content io.Reader) error {
	if err := Validate(Upload{Filename: name}); err != nil {
		return err
	}
	if err := os.MkdirAll(m.NewsDir(newsID), 0o755); err != nil {
		return storageErr("create news dir", err)
	}
	if err := m.writeFile(m.NewsImagePath(newsID, name), content); err != nil {
		return err
	}
	m.logger.Debugw("news image saved", "news_id", newsID, "file", name)
	return nil
}

// RemoveNewsImage удаляет одну картинку новости.
func (m *Manager) RemoveNewsImage(newsID int64, name string) error {
	if name == "" {
		return nil
	}
	return m.removeFile(m.NewsImagePath(newsID, name))
}

// RemoveNewsDir удаляет каталог новости целиком.
func (m *Manager) RemoveNewsDir(newsID int64) error {
	if err := os.RemoveAll(m.NewsDir(newsID)); err != nil {
		return storageErr("remove news dir", err)
	}
	return nil
}

// writeFile пишет во временный файл рядом с целевым и переименовывает его,
// чтобы на диске не оставалось недописанных картинок.
func (m *Manager) writeFile(path string, content io.Reader) error {
	if content == nil {
		content = strings.NewReader("")
	}
	tmp := filepath.Join(filepath.Dir(path), ".tmp-"+uuid.NewString())
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return storageErr("create file", err)
	}
	if _, err := io.Copy(f, content); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return storageErr("write file", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return storageErr("close file", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return storageErr("rename file", err)
	}
	return nil
}

func (m *Manager) removeFile(path string) error {
	err := os.Remove(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return storageErr("remove file", err)
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
