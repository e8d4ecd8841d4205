package model

import "time"

// Comment: комментарий к новости.
type Comment struct {
	ID   int64  `gorm:"primaryKey;autoIncrement"`
	Text string `gorm:"not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	IsEdited  bool      `gorm:"not null;default:false"`

	// автор не переназначается: комментарии удаляются вместе с ним
	CreatorID int64 `gorm:"not null;index"`

	NewsID int64 `gorm:"not null;index"`
	News   *News `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}
