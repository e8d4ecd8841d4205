package model

import "time"

// SentinelUserID: id служебного пользователя "deleted user", которому
// переходят новости удалённых аккаунтов.
const SentinelUserID int64 = 1

const (
	DefaultUserImage  = "no_pfp.png"
	SentinelUserImage = "dead_user.png"
	SentinelNickname  = "deleted user"
)

// User: серверная модель пользователя.
type User struct {
	ID       int64   `gorm:"primaryKey;autoIncrement"`
	Nickname string  `gorm:"not null;default:''"`
	About    string  `gorm:"not null;default:''"`
	Email    *string `gorm:"uniqueIndex"`

	// nil: пользователь не может пройти аутентификацию (sentinel)
	PasswordHash *string `json:"-"`

	Image      string    `gorm:"not null;default:'no_pfp.png'"`
	ModifiedAt time.Time `gorm:"autoUpdateTime"`
}

// IsSentinel сообщает, является ли пользователь служебным "deleted user".
func (u *User) IsSentinel() bool {
	return u != nil && u.ID == SentinelUserID
}

// CanAuthenticate: false для пользователей без хеша пароля.
func (u *User) CanAuthenticate() bool {
	return u != nil && u.PasswordHash != nil && *u.PasswordHash != ""
}
