package service

import (
	"NewsBlog/internal/assets"
	"NewsBlog/internal/model"
	"NewsBlog/internal/repo"
	"NewsBlog/internal/tags"
	"context"
	"fmt"
	"strconv"
	"strings"
)

// NewNews: данные новой новости.
type NewNews struct {
	Title  string
	About  string
	Tags   string
	Images []assets.Upload
}

// CreateNews создаёт новость от имени actor. Теги нормализуются, все файлы
// проверяются до первой записи; затем строка, каталог и картинки в порядке
// загрузки.
func (s *ContentService) CreateNews(ctx context.Context, actor Actor, in NewNews) (*model.News, error) {
	const op = "CreateNews"

	title := strings.TrimSpace(in.Title)
	about := strings.TrimSpace(in.About)
	if title == "" || about == "" {
		return nil, opErr(op, "", 0, ErrValidation, "title and about are required")
	}
	normTags, err := tags.Normalize(in.Tags)
	if err != nil {
		return nil, opErr(op, "", 0, err, "")
	}
	uploads := presentUploads(in.Images)
	if len(uploads) > model.MaxNewsImages {
		return nil, opErr(op, "", 0, ErrInvalidAsset, fmt.Sprintf("at most %d images allowed", model.MaxNewsImages))
	}
	if err := assets.Validate(uploads...); err != nil {
		return nil, opErr(op, "", 0, err, "")
	}
	if actor.UserID == 0 {
		return nil, opErr(op, "", 0, ErrUnauthorized, "creator is required")
	}

	var (
		created *model.News
		undo    undoLog
	)
	err = s.store.WithTx(ctx, func(ctx context.Context, tx *repo.Store) error {
		creator, err := s.loadUser(ctx, tx, op, actor.UserID)
		if err != nil {
			return err
		}
		if err := s.authorize(op, "user", creator.ID, actor, creator); err != nil {
			return err
		}

		n := &model.News{Title: title, About: about, Tags: normTags, CreatorID: creator.ID}
		if err := tx.News.Create(ctx, n); err != nil {
			return fmt.Errorf("create news: %w", err)
		}

		// id уже есть: можно заводить каталог
		if err := s.assets.PrepareNewsDir(n.ID); err != nil {
			return opErr(op, "news", n.ID, err, "")
		}
		newsID := n.ID
		undo.push(func() error { return s.assets.RemoveNewsDir(newsID) })

		names := make([]string, 0, len(uploads))
		taken := make(map[string]struct{}, len(uploads))
		for _, up := range uploads {
			name := uniqueName(assets.SanitizeFilename(up.Filename), taken)
			if err := s.assets.SaveNewsImage(n.ID, name, up.Content); err != nil {
				return opErr(op, "news", n.ID, err, "")
			}
			taken[name] = struct{}{}
			names = append(names, name)
		}
		if len(names) > 0 {
			n.Images = strings.Join(names, ";")
			if err := tx.News.Update(ctx, n.ID, map[string]any{"images": n.Images}); err != nil {
				return mapRepoErr(op, "news", n.ID, err)
			}
		}
		n.Creator = creator
		created = n
		return nil
	})
	if err != nil {
		undo.run(s.logger, op)
		return nil, err
	}

	s.logger.Infow("news created", "news_id", created.ID, "creator_id", created.CreatorID, "images", len(uploads))
	return created, nil
}

// NewsUpdate: изменяемые поля новости. Слоты картинок нумеруются с нуля.
type NewsUpdate struct {
	Title *string
	About *string
	Tags  *string

	// Replace[i] - новый файл для слота i, пустое имя оставляет слот как есть
	Replace [model.MaxNewsImages]assets.Upload
	// Clear[i]: удалить текущий файл слота i
	Clear [model.MaxNewsImages]bool
}

// EditNews меняет новость. Новости служебного пользователя неизменяемы.
func (s *ContentService) EditNews(ctx context.Context, actor Actor, newsID int64, upd NewsUpdate) (*model.News, error) {
	const op = "EditNews"

	updates := map[string]any{}
	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return nil, opErr(op, "news", newsID, ErrValidation, "title can't be empty")
		}
		updates["title"] = title
	}
	if upd.About != nil {
		about := strings.TrimSpace(*upd.About)
		if about == "" {
			return nil, opErr(op, "news", newsID, ErrValidation, "about can't be empty")
		}
		updates["about"] = about
	}
	if upd.Tags != nil {
		normTags, err := tags.Normalize(*upd.Tags)
		if err != nil {
			return nil, opErr(op, "news", newsID, err, "")
		}
		updates["tags"] = normTags
	}
	if err := assets.Validate(upd.Replace[:]...); err != nil {
		return nil, opErr(op, "news", newsID, err, "")
	}

	var (
		updated *model.News
		undo    undoLog
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx *repo.Store) error {
		n, err := tx.News.GetByID(ctx, newsID)
		if err != nil {
			return mapRepoErr(op, "news", newsID, err)
		}
		if n.Creator == nil {
			return opErr(op, "news", newsID, ErrNotFound, "news creator not found")
		}
		if err := s.authorize(op, "news", newsID, actor, n.Creator); err != nil {
			return err
		}

		// старые файлы удаляются только после commit, новые пишутся под
		// именами, не занятыми ни одним текущим файлом
		slots := imageSlots(n.ImageList())
		taken := make(map[string]struct{})
		for _, name := range slots {
			if name != "" {
				taken[name] = struct{}{}
			}
		}
		for i := range slots {
			if upd.Clear[i] && slots[i] != "" {
				stale := slots[i]
				undo.afterCommit(func() error { return s.assets.RemoveNewsImage(newsID, stale) })
				slots[i] = ""
			}
			if !upd.Replace[i].Present() {
				continue
			}
			name := uniqueName(assets.SanitizeFilename(upd.Replace[i].Filename), taken)
			if err := s.assets.SaveNewsImage(newsID, name, upd.Replace[i].Content); err != nil {
				return opErr(op, "news", newsID, err, "")
			}
			taken[name] = struct{}{}
			undo.push(func() error { return s.assets.RemoveNewsImage(newsID, name) })
			if slots[i] != "" {
				stale := slots[i]
				undo.afterCommit(func() error { return s.assets.RemoveNewsImage(newsID, stale) })
			}
			slots[i] = name
		}
		if images := joinSlots(slots); images != n.Images {
			updates["images"] = images
		}

		if len(updates) > 0 {
			if err := tx.News.Update(ctx, newsID, updates); err != nil {
				return mapRepoErr(op, "news", newsID, err)
			}
		}
		updated, err = tx.News.GetByID(ctx, newsID)
		return mapRepoErr(op, "news", newsID, err)
	})
	if err != nil {
		undo.run(s.logger, op)
		return nil, err
	}
	undo.commit(s.logger, op)

	s.logger.Infow("news edited", "news_id", newsID)
	return updated, nil
}

// DeleteNews удаляет новость: сначала комментарии и каталог картинок, потом строку.
func (s *ContentService) DeleteNews(ctx context.Context, actor Actor, newsID int64) error {
	const op = "DeleteNews"
	var comments int64

	err := s.store.WithTx(ctx, func(ctx context.Context, tx *repo.Store) error {
		n, err := tx.News.GetByID(ctx, newsID)
		if err != nil {
			return mapRepoErr(op, "news", newsID, err)
		}
		if n.CreatorID == model.SentinelUserID {
			return opErr(op, "news", newsID, ErrProtected, "can't delete news, belongs to deleted user")
		}
		if n.Creator == nil {
			return opErr(op, "news", newsID, ErrNotFound, "news creator not found")
		}
		if err := s.authorize(op, "news", newsID, actor, n.Creator); err != nil {
			return err
		}

		if comments, err = tx.Comments.DeleteByNews(ctx, newsID); err != nil {
			return mapRepoErr(op, "news", newsID, err)
		}
		if err := s.assets.RemoveNewsDir(newsID); err != nil {
			s.logger.Errorw("news dir removal failed, rows rolled back", "news_id", newsID, "error", err)
			return opErr(op, "news", newsID, err, "")
		}
		return mapRepoErr(op, "news", newsID, tx.News.Delete(ctx, newsID))
	})
	if err != nil {
		return err
	}

	s.logger.Infow("news deleted", "news_id", newsID, "comments_deleted", comments)
	return nil
}

// GetNews возвращает новость с автором.
func (s *ContentService) GetNews(ctx context.Context, id int64) (*model.News, error) {
	n, err := s.store.News.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr("GetNews", "news", id, err)
	}
	return n, nil
}

// ListNews возвращает все новости по возрастанию id.
func (s *ContentService) ListNews(ctx context.Context) ([]model.News, error) {
	return s.store.News.ListAll(ctx)
}

// NewsPage: новость, её комментарии (новые сначала) и их авторы.
type NewsPage struct {
	News       *model.News
	Comments   []model.Comment
	Commenters map[int64]*model.User
}

// NewsPage собирает страницу новости.
func (s *ContentService) NewsPage(ctx context.Context, id int64) (*NewsPage, error) {
	n, err := s.GetNews(ctx, id)
	if err != nil {
		return nil, err
	}
	comments, err := s.store.Comments.ListByNews(ctx, id)
	if err != nil {
		return nil, mapRepoErr("NewsPage", "news", id, err)
	}
	page := &NewsPage{News: n, Comments: comments, Commenters: make(map[int64]*model.User)}
	for _, c := range comments {
		if _, ok := page.Commenters[c.CreatorID]; ok {
			continue
		}
		u, err := s.store.Users.GetByID(ctx, c.CreatorID)
		if err != nil {
			continue
		}
		page.Commenters[c.CreatorID] = u
	}
	return page, nil
}

func presentUploads(in []assets.Upload) []assets.Upload {
	out := make([]assets.Upload, 0, len(in))
	for _, up := range in {
		if up.Filename != "" {
			out = append(out, up)
		}
	}
	return out
}

// imageSlots раскладывает список файлов по фиксированным слотам.
func imageSlots(list []string) []string {
	slots := make([]string, model.MaxNewsImages)
	copy(slots, list)
	return slots
}

func joinSlots(slots []string) string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		if s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, ";")
}

// uniqueName добавляет префикс "N_", если имя уже занято.
func uniqueName(name string, taken map[string]struct{}) string {
	if _, ok := taken[name]; !ok {
		return name
	}
	for i := 1; ; i++ {
		candidate := strconv.Itoa(i) + "_" + name
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}
