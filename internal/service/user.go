package service

import (
	"NewsBlog/internal/model"
	"NewsBlog/internal/repo"
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserService хранит учётные данные и проверяет пароли и уникальность email.
type UserService struct {
	repo repo.UserRepository
	cost int
}

// NewUserService создаёт сервис с bcrypt.DefaultCost.
func NewUserService(r repo.UserRepository) *UserService {
	return &UserService{repo: r, cost: bcrypt.DefaultCost}
}

// WithCost задаёт стоимость bcrypt (в тестах: bcrypt.MinCost).
func (s *UserService) WithCost(cost int) *UserService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	s.cost = cost
	return s
}

// withRepo возвращает копию сервиса поверх другого репозитория (транзакции).
func (s *UserService) withRepo(r repo.UserRepository) *UserService {
	return &UserService{repo: r, cost: s.cost}
}

// HashPassword возвращает bcrypt-хеш пароля.
func (s *UserService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword сравнивает пароль с хешем пользователя; пользователь без хеша не проходит никогда.
func CheckPassword(u *model.User, password string) bool {
	if !u.CanAuthenticate() {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(*u.PasswordHash), []byte(password)) == nil
}

// Verify проверяет пароль пользователя. Закрыт по умолчанию: нет пользователя,
// нет хеша или ошибка БД: false.
func (s *UserService) Verify(ctx context.Context, userID int64, password string) bool {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return false
	}
	return CheckPassword(u, password)
}

// SetPassword заменяет хеш пароля. Для служебного пользователя запрещено.
func (s *UserService) SetPassword(ctx context.Context, userID int64, password string) error {
	if userID == model.SentinelUserID {
		return opErr("SetPassword", "user", userID, ErrProtected, "")
	}
	if password == "" {
		return opErr("SetPassword", "user", userID, ErrValidation, "empty password")
	}
	hash, err := s.HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.repo.Update(ctx, userID, map[string]any{"password_hash": hash}); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return opErr("SetPassword", "user", userID, ErrNotFound, "")
		}
		return err
	}
	return nil
}

// EmailIsUnique: true, если email не занят никем кроме excludingUserID.
func (s *UserService) EmailIsUnique(ctx context.Context, email string, excludingUserID int64) (bool, error) {
	taken, err := s.repo.EmailTaken(ctx, email, excludingUserID)
	if err != nil {
		return false, err
	}
	return !taken, nil
}

// Login находит пользователя по email и проверяет пароль.
func (s *UserService) Login(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, opErr("Login", "", 0, ErrUnauthorized, "wrong password or email")
	}
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, opErr("Login", "", 0, ErrUnauthorized, "wrong password or email")
		}
		return nil, err
	}
	if !CheckPassword(u, password) {
		return nil, opErr("Login", "", 0, ErrUnauthorized, "wrong password or email")
	}
	return u, nil
}
