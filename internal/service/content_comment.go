package service

import (
	"NewsBlog/internal/model"
	"NewsBlog/internal/repo"
	"context"
	"fmt"
	"strings"
	"time"
)

// CreateComment добавляет комментарий actor к новости newsID.
func (s *ContentService) CreateComment(ctx context.Context, actor Actor, newsID int64, text string) (*model.Comment, error) {
	const op = "CreateComment"

	if strings.TrimSpace(text) == "" {
		return nil, opErr(op, "news", newsID, ErrValidation, "comment text is required")
	}
	if actor.UserID == 0 {
		return nil, opErr(op, "news", newsID, ErrUnauthorized, "creator is required")
	}

	var created *model.Comment
	err := s.store.WithTx(ctx, func(ctx context.Context, tx *repo.Store) error {
		if _, err := tx.News.GetByID(ctx, newsID); err != nil {
			return mapRepoErr(op, "news", newsID, err)
		}
		u, err := s.loadUser(ctx, tx, op, actor.UserID)
		if err != nil {
			return err
		}
		if err := s.authorize(op, "user", u.ID, actor, u); err != nil {
			return err
		}

		c := &model.Comment{Text: text, CreatorID: u.ID, NewsID: newsID}
		if err := tx.Comments.Create(ctx, c); err != nil {
			return fmt.Errorf("create comment: %w", err)
		}
		created = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infow("comment created", "comment_id", created.ID, "news_id", newsID, "creator_id", created.CreatorID)
	return created, nil
}

// EditComment меняет текст, ставит is_edited и обновляет время.
func (s *ContentService) EditComment(ctx context.Context, actor Actor, commentID int64, text string) (*model.Comment, error) {
	const op = "EditComment"

	if strings.TrimSpace(text) == "" {
		return nil, opErr(op, "comment", commentID, ErrValidation, "there's only one option you can change - 'text'")
	}

	var updated *model.Comment
	err := s.store.WithTx(ctx, func(ctx context.Context, tx *repo.Store) error {
		c, owner, err := s.loadCommentOwner(ctx, tx, op, commentID)
		if err != nil {
			return err
		}
		if err := s.authorize(op, "comment", c.ID, actor, owner); err != nil {
			return err
		}

		err = tx.Comments.Update(ctx, commentID, map[string]any{
			"text":       text,
			"is_edited":  true,
			"created_at": time.Now(),
		})
		if err != nil {
			return mapRepoErr(op, "comment", commentID, err)
		}
		updated, err = tx.Comments.GetByID(ctx, commentID)
		return mapRepoErr(op, "comment", commentID, err)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infow("comment edited", "comment_id", commentID)
	return updated, nil
}

// DeleteComment удаляет комментарий владельца.
func (s *ContentService) DeleteComment(ctx context.Context, actor Actor, commentID int64) (*model.Comment, error) {
	const op = "DeleteComment"

	var deleted *model.Comment
	err := s.store.WithTx(ctx, func(ctx context.Context, tx *repo.Store) error {
		c, owner, err := s.loadCommentOwner(ctx, tx, op, commentID)
		if err != nil {
			return err
		}
		if err := s.authorize(op, "comment", c.ID, actor, owner); err != nil {
			return err
		}
		if err := tx.Comments.Delete(ctx, commentID); err != nil {
			return mapRepoErr(op, "comment", commentID, err)
		}
		deleted = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infow("comment deleted", "comment_id", commentID, "news_id", deleted.NewsID)
	return deleted, nil
}

func (s *ContentService) loadCommentOwner(ctx context.Context, tx *repo.Store, op string, commentID int64) (*model.Comment, *model.User, error) {
	c, err := tx.Comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, nil, mapRepoErr(op, "comment", commentID, err)
	}
	owner, err := tx.Users.GetByID(ctx, c.CreatorID)
	if err != nil {
		return nil, nil, mapRepoErr(op, "comment", commentID, err)
	}
	return c, owner, nil
}

// GetComment возвращает комментарий по id.
func (s *ContentService) GetComment(ctx context.Context, id int64) (*model.Comment, error) {
	c, err := s.store.Comments.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr("GetComment", "comment", id, err)
	}
	return c, nil
}

// ListComments возвращает все комментарии по возрастанию id.
func (s *ContentService) ListComments(ctx context.Context) ([]model.Comment, error) {
	return s.store.Comments.ListAll(ctx)
}
