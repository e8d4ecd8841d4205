package repo

import (
	"NewsBlog/internal/model"
	"context"

	"gorm.io/gorm"
)

// CommentRepository определяет доступ к комментариям.
type CommentRepository interface {
	Create(ctx context.Context, c *model.Comment) error
	GetByID(ctx context.Context, id int64) (*model.Comment, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	Delete(ctx context.Context, id int64) error
	ListAll(ctx context.Context) ([]model.Comment, error)
	// ListByNews: комментарии новости, новые сначала.
	ListByNews(ctx context.Context, newsID int64) ([]model.Comment, error)
	DeleteByNews(ctx context.Context, newsID int64) (int64, error)
	DeleteByCreator(ctx context.Context, creatorID int64) (int64, error)
}

type commentRepo struct {
	db *gorm.DB
}

// NewCommentRepository создаёт реализацию репозитория для Comment.
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepo{db: db}
}

func (r *commentRepo) Create(ctx context.Context, c *model.Comment) error {
	return r.db.WithContext(ctx).Omit("News").Create(c).Error
}

func (r *commentRepo) GetByID(ctx context.Context, id int64) (*model.Comment, error) {
	var c model.Comment
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *commentRepo) Update(ctx context.Context, id int64, updates map[string]any) error {
	tx := r.db.WithContext(ctx).Model(&model.Comment{}).Where("id = ?", id).Updates(updates)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *commentRepo) Delete(ctx context.Context, id int64) error {
	tx := r.db.WithContext(ctx).Delete(&model.Comment{}, id)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *commentRepo) ListAll(ctx context.Context) ([]model.Comment, error) {
	var list []model.Comment
	if err := r.db.WithContext(ctx).Order("id").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *commentRepo) ListByNews(ctx context.Context, newsID int64) ([]model.Comment, error) {
	var list []model.Comment
	err := r.db.WithContext(ctx).
		Where("news_id = ?", newsID).
		Order("created_at DESC").Order("id DESC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *commentRepo) DeleteByNews(ctx context.Context, newsID int64) (int64, error) {
	tx := r.db.WithContext(ctx).Where("news_id = ?", newsID).Delete(&model.Comment{})
	return tx.RowsAffected, tx.Error
}

func (r *commentRepo) DeleteByCreator(ctx context.Context, creatorID int64) (int64, error) {
	tx := r.db.WithContext(ctx).Where("creator_id = ?", creatorID).Delete(&model.Comment{})
	return tx.RowsAffected, tx.Error
}
