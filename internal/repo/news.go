package repo

import (
	"NewsBlog/internal/model"
	"context"

	"gorm.io/gorm"
)

// NewsRepository определяет доступ к новостям.
type NewsRepository interface {
	Create(ctx context.Context, n *model.News) error
	// GetByID возвращает новость вместе с автором (Creator может быть nil,
	// если строки автора уже нет).
	GetByID(ctx context.Context, id int64) (*model.News, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	Delete(ctx context.Context, id int64) error
	// ListAll: все новости по возрастанию id.
	ListAll(ctx context.Context) ([]model.News, error)
	// ListByCreator: новости автора, новые сначала.
	ListByCreator(ctx context.Context, creatorID int64) ([]model.News, error)
	// ReassignCreator переписывает creator_id у всех новостей from на to.
	ReassignCreator(ctx context.Context, from, to int64) (int64, error)
}

type newsRepo struct {
	db *gorm.DB
}

// NewNewsRepository создаёт реализацию репозитория для News.
func NewNewsRepository(db *gorm.DB) NewsRepository {
	return &newsRepo{db: db}
}

func (r *newsRepo) Create(ctx context.Context, n *model.News) error {
	return r.db.WithContext(ctx).Omit("Creator").Create(n).Error
}

func (r *newsRepo) GetByID(ctx context.Context, id int64) (*model.News, error) {
	var n model.News
	if err := r.db.WithContext(ctx).Preload("Creator").First(&n, id).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *newsRepo) Update(ctx context.Context, id int64, updates map[string]any) error {
	tx := r.db.WithContext(ctx).Model(&model.News{}).Where("id = ?", id).Updates(updates)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *newsRepo) Delete(ctx context.Context, id int64) error {
	tx := r.db.WithContext(ctx).Delete(&model.News{}, id)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *newsRepo) ListAll(ctx context.Context) ([]model.News, error) {
	var list []model.News
	if err := r.db.WithContext(ctx).Preload("Creator").Order("id").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *newsRepo) ListByCreator(ctx context.Context, creatorID int64) ([]model.News, error) {
	var list []model.News
	err := r.db.WithContext(ctx).
		Where("creator_id = ?", creatorID).
		Order("created_at DESC").Order("id DESC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *newsRepo) ReassignCreator(ctx context.Context, from, to int64) (int64, error) {
	tx := r.db.WithContext(ctx).Model(&model.News{}).Where("creator_id = ?", from).Update("creator_id", to)
	return tx.RowsAffected, tx.Error
}
