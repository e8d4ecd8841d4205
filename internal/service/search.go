package service

import (
	"NewsBlog/internal/model"
	"NewsBlog/internal/tags"
	"context"
)

// SearchByTags возвращает новости, набор тегов которых содержит все теги
// запроса (AND). Пустой запрос отдаёт все новости, порядок по id.
// Линейный проход по всем новостям.
func (s *ContentService) SearchByTags(ctx context.Context, query []string) ([]model.News, error) {
	all, err := s.store.News.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.News, 0, len(all))
	for _, n := range all {
		if tags.ContainsAll(n.Tags, query) {
			out = append(out, n)
		}
	}
	return out, nil
}
