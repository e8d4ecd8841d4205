package model

import (
	"strings"
	"time"
)

// MaxNewsImages: максимум картинок у одной новости.
const MaxNewsImages = 3

// News: новость пользователя.
type News struct {
	ID    int64  `gorm:"primaryKey;autoIncrement"`
	Title string `gorm:"not null"`
	About string `gorm:"not null"`

	// имена файлов через ";" в порядке загрузки
	Images string `gorm:"not null;default:''"`
	// нормализованные теги через ";" (без "#")
	Tags string `gorm:"not null;default:''"`

	CreatedAt time.Time `gorm:"autoCreateTime"`

	CreatorID int64 `gorm:"not null;index"`
	Creator   *User `gorm:"constraint:OnUpdate:CASCADE"`
}

// ImageList возвращает имена файлов картинок без пустых элементов.
func (n *News) ImageList() []string {
	if n.Images == "" {
		return []string{}
	}
	out := make([]string, 0, MaxNewsImages)
	for _, s := range strings.Split(n.Images, ";") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
