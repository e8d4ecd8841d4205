package service

import (
	"NewsBlog/internal/assets"
	"NewsBlog/internal/model"
	"NewsBlog/internal/repo"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// NewUser: данные регистрации.
type NewUser struct {
	Nickname string
	Email    string
	Password string
	// PasswordAgain: повтор пароля из формы; nil в API-пути
	PasswordAgain *string
	About         string
	Image         assets.Upload
}

// CreateUser регистрирует пользователя. Картинка пишется после вставки
// строки: имя файла содержит id.
func (s *ContentService) CreateUser(ctx context.Context, in NewUser) (*model.User, error) {
	const op = "CreateUser"

	email := strings.TrimSpace(in.Email)
	if email == "" {
		return nil, opErr(op, "", 0, ErrValidation, "email is required")
	}
	if in.Password == "" {
		return nil, opErr(op, "", 0, ErrValidation, "password is required")
	}
	if in.PasswordAgain != nil && *in.PasswordAgain != in.Password {
		return nil, opErr(op, "", 0, ErrPasswordMismatch, "")
	}
	if err := assets.Validate(in.Image); err != nil {
		return nil, opErr(op, "", 0, err, "profile picture should be in png, jpg, jpeg or bmp format")
	}

	hash, err := s.users.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	var (
		created *model.User
		undo    undoLog
	)
	err = s.store.WithTx(ctx, func(ctx context.Context, tx *repo.Store) error {
		unique, err := s.users.withRepo(tx.Users).EmailIsUnique(ctx, email, 0)
		if err != nil {
			return fmt.Errorf("check email: %w", err)
		}
		if !unique {
			return opErr(op, "", 0, ErrDuplicateEmail, fmt.Sprintf("user with email %s already exists", email))
		}

		u := &model.User{
			Nickname:     strings.TrimSpace(in.Nickname),
			About:        in.About,
			Email:        &email,
			PasswordHash: &hash,
			Image:        model.DefaultUserImage,
			ModifiedAt:   time.Now(),
		}
		if _, err := tx.Users.CreateUser(ctx, u); err != nil {
			// параллельная регистрация успела между проверкой и вставкой
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return opErr(op, "", 0, ErrDuplicateEmail, fmt.Sprintf("user with email %s already exists", email))
			}
			return fmt.Errorf("create user: %w", err)
		}

		if in.Image.Present() {
			name, err := s.assets.SaveUserImage(u.ID, in.Image)
			if err != nil {
				return opErr(op, "user", u.ID, err, "")
			}
			id := u.ID
			undo.push(func() error { return s.assets.RemoveUserImage(id, name) })

			if err := tx.Users.Update(ctx, u.ID, map[string]any{"image": name}); err != nil {
				return mapRepoErr(op, "user", u.ID, err)
			}
			u.Image = name
		}
		created = u
		return nil
	})
	if err != nil {
		undo.run(s.logger, op)
		return nil, err
	}

	s.logger.Infow("user created", "user_id", created.ID)
	return created, nil
}

// DeleteUserResult: сколько строк затронул каскад.
type DeleteUserResult struct {
	CommentsDeleted int64
	NewsReassigned  int64
}

// DeleteUser удаляет пользователя: его комментарии удаляются, новости
// переходят служебному пользователю, затем удаляются строка и картинка.
// Удалить можно только себя: по сессии или по паролю.
func (s *ContentService) DeleteUser(ctx context.Context, actor Actor, targetID int64) (DeleteUserResult, error) {
	const op = "DeleteUser"
	var res DeleteUserResult

	if targetID == model.SentinelUserID {
		return res, opErr(op, "user", targetID, ErrProtected, "deleted user can't be deleted")
	}
	if actor.UserID != 0 && actor.UserID != targetID {
		return res, opErr(op, "user", targetID, ErrUnauthorized, "user can delete only himself")
	}

	err := s.store.WithTx(ctx, func(ctx context.Context, tx *repo.Store) error {
		u, err := s.loadUser(ctx, tx, op, targetID)
		if err != nil {
			return err
		}
		if err := s.authorize(op, "user", targetID, actor, u); err != nil {
			return err
		}

		// дальше только каскад: пользовательский ввод уже проверен
		if res.CommentsDeleted, err = tx.Comments.DeleteByCreator(ctx, targetID); err != nil {
			return mapRepoErr(op, "user", targetID, err)
		}
		if res.NewsReassigned, err = tx.News.ReassignCreator(ctx, targetID, model.SentinelUserID); err != nil {
			return mapRepoErr(op, "user", targetID, err)
		}
		if err := tx.Users.Delete(ctx, targetID); err != nil {
			return mapRepoErr(op, "user", targetID, err)
		}
		if err := s.assets.RemoveUserImage(targetID, u.Image); err != nil {
			s.logger.Errorw("user image removal failed, rows rolled back", "user_id", targetID, "error", err)
			return opErr(op, "user", targetID, err, "")
		}
		return nil
	})
	if err != nil {
		return DeleteUserResult{}, err
	}

	s.logger.Infow("user deleted",
		"user_id", targetID,
		"comments_deleted", res.CommentsDeleted,
		"news_reassigned", res.NewsReassigned,
	)
	return res, nil
}

// UserUpdate содержит изменяемые поля профиля, nil не меняет поле.
type UserUpdate struct {
	Nickname *string
	Email    *string
	About    *string

	NewPassword      *string
	NewPasswordAgain *string

	Image       assets.Upload
	RemoveImage bool
}

// EditUser меняет профиль. Новая картинка заменяет старую; RemoveImage без
// новой картинки возвращает заглушку no_pfp.png.
func (s *ContentService) EditUser(ctx context.Context, actor Actor, targetID int64, upd UserUpdate) (*model.User, error) {
	const op = "EditUser"

	if targetID == model.SentinelUserID {
		return nil, opErr(op, "user", targetID, ErrProtected, "deleted user can't be edited")
	}
	newPassword := deref(upd.NewPassword)
	if upd.NewPasswordAgain != nil && *upd.NewPasswordAgain != newPassword {
		return nil, opErr(op, "user", targetID, ErrPasswordMismatch, "passwords should match")
	}
	var email string
	if upd.Email != nil {
		email = strings.TrimSpace(*upd.Email)
		if email == "" {
			return nil, opErr(op, "user", targetID, ErrValidation, "email is required")
		}
	}
	if err := assets.Validate(upd.Image); err != nil {
		return nil, opErr(op, "user", targetID, err, "profile picture should be in png, jpg, jpeg or bmp format")
	}

	var hash string
	if newPassword != "" {
		h, err := s.users.HashPassword(newPassword)
		if err != nil {
			return nil, err
		}
		hash = h
	}

	var (
		updated *model.User
		undo    undoLog
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx *repo.Store) error {
		u, err := s.loadUser(ctx, tx, op, targetID)
		if err != nil {
			return err
		}
		if err := s.authorize(op, "user", targetID, actor, u); err != nil {
			return err
		}

		updates := map[string]any{"modified_at": time.Now()}
		if upd.Nickname != nil {
			updates["nickname"] = strings.TrimSpace(*upd.Nickname)
		}
		if upd.About != nil {
			updates["about"] = *upd.About
		}
		if upd.Email != nil {
			unique, err := s.users.withRepo(tx.Users).EmailIsUnique(ctx, email, targetID)
			if err != nil {
				return fmt.Errorf("check email: %w", err)
			}
			if !unique {
				return opErr(op, "user", targetID, ErrEmailTaken, fmt.Sprintf("user with the email %s already exists (not you)", email))
			}
			updates["email"] = email
		}
		if hash != "" {
			updates["password_hash"] = hash
		}

		switch {
		case upd.Image.Present():
			name, err := s.assets.SaveUserImage(targetID, upd.Image)
			if err != nil {
				return opErr(op, "user", targetID, err, "")
			}
			// то же имя перезаписано на месте: откатывать нечего, ссылка цела
			if name != u.Image {
				undo.push(func() error { return s.assets.RemoveUserImage(targetID, name) })
				old := u.Image
				undo.afterCommit(func() error { return s.assets.RemoveUserImage(targetID, old) })
			}
			updates["image"] = name
		case upd.RemoveImage:
			old := u.Image
			undo.afterCommit(func() error { return s.assets.RemoveUserImage(targetID, old) })
			updates["image"] = model.DefaultUserImage
		}

		if err := tx.Users.Update(ctx, targetID, updates); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return opErr(op, "user", targetID, ErrEmailTaken, fmt.Sprintf("user with the email %s already exists (not you)", email))
			}
			return mapRepoErr(op, "user", targetID, err)
		}
		updated, err = s.loadUser(ctx, tx, op, targetID)
		return err
	})
	if err != nil {
		undo.run(s.logger, op)
		return nil, err
	}
	undo.commit(s.logger, op)

	s.logger.Infow("user edited", "user_id", targetID)
	return updated, nil
}

// GetUser возвращает пользователя по id.
func (s *ContentService) GetUser(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.store.Users.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr("GetUser", "user", id, err)
	}
	return u, nil
}

// ListUsers возвращает всех пользователей по возрастанию id.
func (s *ContentService) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.store.Users.List(ctx)
}

// Profile: пользователь и его новости (новые сначала).
type Profile struct {
	User *model.User
	News []model.News
}

// Profile собирает страницу профиля.
func (s *ContentService) Profile(ctx context.Context, id int64) (*Profile, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	news, err := s.store.News.ListByCreator(ctx, id)
	if err != nil {
		return nil, mapRepoErr("Profile", "user", id, err)
	}
	return &Profile{User: u, News: news}, nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
