package service

import (
	"NewsBlog/internal/assets"
	"NewsBlog/internal/model"
	"NewsBlog/internal/repo"
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ContentService это движок ссылочной целостности. Все изменения User/News/Comment
// идут через него, каждая операция в одной транзакции.
//
// Файлы картинок пишутся рядом с транзакцией, а не внутри неё: при откате
// движок убирает файлы, записанные в этом вызове, а заменённые файлы
// удаляет только после commit. Удаления в DeleteUser/DeleteNews идут
// последним шагом перед commit и при его сбое не восстанавливаются.
type ContentService struct {
	store  *repo.Store
	users  *UserService
	assets *assets.Manager
	logger *zap.SugaredLogger
}

// NewContentService создаёт движок.
func NewContentService(store *repo.Store, users *UserService, am *assets.Manager, logger *zap.SugaredLogger) *ContentService {
	return &ContentService{store: store, users: users, assets: am, logger: logger}
}

// Actor: тот, кто выполняет операцию.
//
// UserID: личность из сессии (0, если сессии нет).
// Password: пароль владельца для API-пути (nil для сессионного пути).
type Actor struct {
	UserID   int64
	Password *string
}

// SessionActor: пользователь, подтверждённый сессионной cookie.
func SessionActor(userID int64) Actor {
	return Actor{UserID: userID}
}

// PasswordActor: владелец подтверждается паролем; userID может быть 0,
// тогда владельцем считается автор ресурса.
func PasswordActor(userID int64, password string) Actor {
	return Actor{UserID: userID, Password: &password}
}

// authorize проверяет, что actor: владелец owner.
func (s *ContentService) authorize(op, entity string, id int64, actor Actor, owner *model.User) error {
	switch {
	case !owner.CanAuthenticate():
		return opErr(op, entity, id, ErrUnauthorized, "can't change content of deleted user")
	case actor.UserID == 0 && actor.Password == nil:
		return opErr(op, entity, id, ErrUnauthorized, "authentication required")
	case actor.UserID != 0 && actor.UserID != owner.ID:
		return opErr(op, entity, id, ErrUnauthorized, "user is not the owner")
	case actor.Password != nil && !CheckPassword(owner, *actor.Password):
		return opErr(op, entity, id, ErrUnauthorized, "password doesn't match owner password")
	}
	return nil
}

func (s *ContentService) loadUser(ctx context.Context, tx *repo.Store, op string, id int64) (*model.User, error) {
	u, err := tx.Users.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(op, "user", id, err)
	}
	return u, nil
}

// mapRepoErr: gorm.ErrRecordNotFound -> ErrNotFound, остальное оборачивается как есть.
func mapRepoErr(op, entity string, id int64, err error) error {
	if err == nil {
		return nil
	}
	var oe *OpError
	if errors.As(err, &oe) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return opErr(op, entity, id, ErrNotFound, "")
	}
	return fmt.Errorf("%s %s(id=%d): %w", op, entity, id, err)
}

// undoLog копит обратные шаги для файлов, записанных до отката транзакции,
// и удаления старых файлов, которые можно делать только после commit.
type undoLog struct {
	steps []func() error
	after []func() error
}

func (u *undoLog) push(step func() error) {
	u.steps = append(u.steps, step)
}

// afterCommit откладывает шаг до успешного commit: старый файл нужен
// строке, пока транзакция может откатиться.
func (u *undoLog) afterCommit(step func() error) {
	u.after = append(u.after, step)
}

// commit выполняет отложенные шаги. Ошибка оставляет лишний файл на диске,
// но не ссылку без файла, поэтому только логируется.
func (u *undoLog) commit(logger *zap.SugaredLogger, op string) {
	for _, step := range u.after {
		if err := step(); err != nil {
			logger.Errorw("stale asset removal failed", "op", op, "error", err)
		}
	}
}

func (u *undoLog) run(logger *zap.SugaredLogger, op string) {
	for i := len(u.steps) - 1; i >= 0; i-- {
		if err := u.steps[i](); err != nil {
			logger.Errorw("asset rollback failed", "op", op, "error", err)
		}
	}
}
