package handlers

import (
	"NewsBlog/internal/model"
	"NewsBlog/internal/service"
	"NewsBlog/internal/tags"
	"fmt"
	"time"
)

// Проекции для ответов. Хеш пароля не попадает ни в одну из них.

type userDTO struct {
	ID       int64   `json:"id"`
	Nickname string  `json:"nickname"`
	Email    *string `json:"email"`
	About    string  `json:"about"`
}

type userListItemDTO struct {
	ID       int64   `json:"id"`
	Nickname string  `json:"nickname"`
	Email    *string `json:"email"`
}

type creatorDTO struct {
	Nickname string `json:"nickname"`
}

type newsDTO struct {
	ID      int64      `json:"id"`
	Title   string     `json:"title"`
	About   string     `json:"about"`
	Creator creatorDTO `json:"creator"`
	Tags    string     `json:"tags"`
}

type newsRefDTO struct {
	ID int64 `json:"id"`
}

type commentDTO struct {
	ID        int64      `json:"id"`
	Text      string     `json:"text"`
	News      newsRefDTO `json:"news"`
	CreatorID int64      `json:"creator_id"`
}

func toUserDTO(u *model.User) userDTO {
	return userDTO{ID: u.ID, Nickname: u.Nickname, Email: u.Email, About: u.About}
}

func toNewsDTO(n *model.News) newsDTO {
	dto := newsDTO{ID: n.ID, Title: n.Title, About: n.About, Tags: n.Tags}
	if n.Creator != nil {
		dto.Creator.Nickname = n.Creator.Nickname
	}
	return dto
}

func toCommentDTO(c *model.Comment) commentDTO {
	return commentDTO{ID: c.ID, Text: c.Text, News: newsRefDTO{ID: c.NewsID}, CreatorID: c.CreatorID}
}

func newsList(list []model.News) []newsDTO {
	out := make([]newsDTO, 0, len(list))
	for i := range list {
		out = append(out, toNewsDTO(&list[i]))
	}
	return out
}

// --- сессионные страницы ---

func userImageURL(name string) string {
	return "/static/img/users/" + name
}

func newsImageURL(newsID int64, name string) string {
	return fmt.Sprintf("/static/img/news/%d/%s", newsID, name)
}

type authorDTO struct {
	ID       int64  `json:"id"`
	Nickname string `json:"nickname"`
	ImageURL string `json:"image_url"`
}

func toAuthorDTO(u *model.User) authorDTO {
	return authorDTO{ID: u.ID, Nickname: u.Nickname, ImageURL: userImageURL(u.Image)}
}

// newsCardDTO описывает новость в ленте с первой картинкой и тегами вида "#a #b".
type newsCardDTO struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	About         string    `json:"about"`
	Tags          string    `json:"tags"`
	CreatedAt     time.Time `json:"created_at"`
	CreatorID     int64     `json:"creator_id"`
	FirstImageURL string    `json:"first_image_url,omitempty"`
}

func toNewsCard(n *model.News) newsCardDTO {
	card := newsCardDTO{
		ID:        n.ID,
		Title:     n.Title,
		About:     n.About,
		Tags:      tags.Format(n.Tags),
		CreatedAt: n.CreatedAt,
		CreatorID: n.CreatorID,
	}
	if images := n.ImageList(); len(images) > 0 {
		card.FirstImageURL = newsImageURL(n.ID, images[0])
	}
	return card
}

func newsCards(list []model.News) []newsCardDTO {
	out := make([]newsCardDTO, 0, len(list))
	for i := range list {
		out = append(out, toNewsCard(&list[i]))
	}
	return out
}

type pageCommentDTO struct {
	ID        int64      `json:"id"`
	Text      string     `json:"text"`
	CreatedAt time.Time  `json:"created_at"`
	IsEdited  bool       `json:"is_edited"`
	Creator   *authorDTO `json:"creator,omitempty"`
}

type newsPageDTO struct {
	newsCardDTO
	ImageURLs []string         `json:"image_urls"`
	Creator   *authorDTO       `json:"creator,omitempty"`
	Comments  []pageCommentDTO `json:"comments"`
}

func toNewsPage(p *service.NewsPage) newsPageDTO {
	n := p.News
	dto := newsPageDTO{
		newsCardDTO: toNewsCard(n),
		ImageURLs:   make([]string, 0, model.MaxNewsImages),
		Comments:    make([]pageCommentDTO, 0, len(p.Comments)),
	}
	for _, img := range n.ImageList() {
		dto.ImageURLs = append(dto.ImageURLs, newsImageURL(n.ID, img))
	}
	if n.Creator != nil {
		a := toAuthorDTO(n.Creator)
		dto.Creator = &a
	}
	for _, c := range p.Comments {
		pc := pageCommentDTO{ID: c.ID, Text: c.Text, CreatedAt: c.CreatedAt, IsEdited: c.IsEdited}
		if u, ok := p.Commenters[c.CreatorID]; ok {
			a := toAuthorDTO(u)
			pc.Creator = &a
		}
		dto.Comments = append(dto.Comments, pc)
	}
	return dto
}

type profileDTO struct {
	ID         int64         `json:"id"`
	Nickname   string        `json:"nickname"`
	About      string        `json:"about"`
	ImageURL   string        `json:"image_url"`
	ModifiedAt time.Time     `json:"modified_at"`
	News       []newsCardDTO `json:"news"`
}

func toProfile(p *service.Profile) profileDTO {
	return profileDTO{
		ID:         p.User.ID,
		Nickname:   p.User.Nickname,
		About:      p.User.About,
		ImageURL:   userImageURL(p.User.Image),
		ModifiedAt: p.User.ModifiedAt,
		News:       newsCards(p.News),
	}
}

// newsFormDTO: данные для заполнения формы редактирования новости.
type newsFormDTO struct {
	Title     string   `json:"title"`
	About     string   `json:"about"`
	Tags      string   `json:"tags"`
	ImageURLs []string `json:"image_urls"`
}

func toNewsForm(n *model.News) newsFormDTO {
	form := newsFormDTO{Title: n.Title, About: n.About, Tags: tags.Format(n.Tags), ImageURLs: []string{}}
	for _, img := range n.ImageList() {
		form.ImageURLs = append(form.ImageURLs, newsImageURL(n.ID, img))
	}
	return form
}
