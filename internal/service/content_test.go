package service

import (
	"NewsBlog/internal/assets"
	"NewsBlog/internal/model"
	"NewsBlog/internal/repo"
	"NewsBlog/internal/tags"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type testEnv struct {
	db     *gorm.DB
	svc    *ContentService
	users  *UserService
	store  *repo.Store
	assets *assets.Manager
	root   string
}

// newTestEnv: движок поверх in-memory SQLite и временного каталога картинок
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := repo.InitDB("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	root := t.TempDir()
	logger := zap.NewNop().Sugar()
	am, err := assets.NewManager(root, logger)
	require.NoError(t, err)

	store := repo.NewStore(db)
	users := NewUserService(store.Users).WithCost(bcrypt.MinCost)
	return &testEnv{
		db:     db,
		svc:    NewContentService(store, users, am, logger),
		users:  users,
		store:  store,
		assets: am,
		root:   root,
	}
}

func upload(name, body string) assets.Upload {
	return assets.Upload{Filename: name, Content: strings.NewReader(body)}
}

func (e *testEnv) mustUser(t *testing.T, email, password string) *model.User {
	t.Helper()
	u, err := e.svc.CreateUser(context.Background(), NewUser{Nickname: email, Email: email, Password: password})
	require.NoError(t, err)
	return u
}

func (e *testEnv) mustNews(t *testing.T, owner *model.User, password, rawTags string, images ...assets.Upload) *model.News {
	t.Helper()
	n, err := e.svc.CreateNews(context.Background(), PasswordActor(owner.ID, password), NewNews{
		Title:  "title",
		About:  "about",
		Tags:   rawTags,
		Images: images,
	})
	require.NoError(t, err)
	return n
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)

	t.Run("ok with image", func(t *testing.T) {
		u, err := e.svc.CreateUser(ctx, NewUser{
			Nickname: "anna",
			Email:    "anna@x.com",
			Password: "pw",
			Image:    upload("Me.PNG", "img"),
		})
		require.NoError(t, err)
		assert.Equal(t, "2.png", u.Image)
		assert.FileExists(t, e.assets.UserImagePath(u.Image))
		assert.True(t, e.users.Verify(ctx, u.ID, "pw"))
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := e.svc.CreateUser(ctx, NewUser{Email: "anna@x.com", Password: "pw"})
		assert.ErrorIs(t, err, ErrDuplicateEmail)
	})

	t.Run("bad extension writes nothing", func(t *testing.T) {
		before, err := e.svc.ListUsers(ctx)
		require.NoError(t, err)

		_, err = e.svc.CreateUser(ctx, NewUser{Email: "gif@x.com", Password: "pw", Image: upload("a.gif", "x")})
		assert.ErrorIs(t, err, ErrInvalidAsset)

		after, err := e.svc.ListUsers(ctx)
		require.NoError(t, err)
		assert.Len(t, after, len(before))
	})

	t.Run("password mismatch", func(t *testing.T) {
		again := "other"
		_, err := e.svc.CreateUser(ctx, NewUser{Email: "m@x.com", Password: "pw", PasswordAgain: &again})
		assert.ErrorIs(t, err, ErrPasswordMismatch)
	})

	t.Run("no image keeps placeholder", func(t *testing.T) {
		u := e.mustUser(t, "plain@x.com", "pw")
		assert.Equal(t, model.DefaultUserImage, u.Image)
	})
}

func TestDeleteUser_ReassignsNewsAndDropsComments(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)

	a := e.mustUser(t, "a@x.com", "pw1")
	b := e.mustUser(t, "b@x.com", "pw2")

	n1 := e.mustNews(t, a, "pw1", "#go #systems")
	assert.Equal(t, "go;systems", n1.Tags)
	nb := e.mustNews(t, b, "pw2", "")

	ca, err := e.svc.CreateComment(ctx, SessionActor(a.ID), nb.ID, "by a on b")
	require.NoError(t, err)
	cb, err := e.svc.CreateComment(ctx, SessionActor(b.ID), n1.ID, "by b on a")
	require.NoError(t, err)

	t.Run("wrong password", func(t *testing.T) {
		_, err := e.svc.DeleteUser(ctx, PasswordActor(a.ID, "nope"), a.ID)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("other actor", func(t *testing.T) {
		_, err := e.svc.DeleteUser(ctx, PasswordActor(b.ID, "pw2"), a.ID)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	res, err := e.svc.DeleteUser(ctx, PasswordActor(a.ID, "pw1"), a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.CommentsDeleted)
	assert.Equal(t, int64(1), res.NewsReassigned)

	_, err = e.svc.GetUser(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := e.svc.GetNews(ctx, n1.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SentinelUserID, got.CreatorID)

	_, err = e.svc.GetComment(ctx, ca.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// чужие комментарии и новости не тронуты
	keep, err := e.svc.GetComment(ctx, cb.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, keep.CreatorID)
	other, err := e.svc.GetNews(ctx, nb.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, other.CreatorID)
}

func TestDeleteUser_RemovesImage(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)

	u, err := e.svc.CreateUser(ctx, NewUser{Email: "img@x.com", Password: "pw", Image: upload("p.jpg", "x")})
	require.NoError(t, err)
	path := e.assets.UserImagePath(u.Image)
	require.FileExists(t, path)

	_, err = e.svc.DeleteUser(ctx, PasswordActor(0, "pw"), u.ID)
	require.NoError(t, err)
	assert.NoFileExists(t, path)
}

func TestDeleteUser_Actors(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	a := e.mustUser(t, "a@x.com", "pw")
	b := e.mustUser(t, "b@x.com", "pw")

	_, err := e.svc.DeleteUser(ctx, Actor{}, a.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = e.svc.DeleteUser(ctx, Actor{}, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.svc.DeleteUser(ctx, SessionActor(b.ID), a.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = e.svc.DeleteUser(ctx, SessionActor(a.ID), a.ID)
	require.NoError(t, err)
	_, err = e.svc.GetUser(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSentinelIsImmutable(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	a := e.mustUser(t, "a@x.com", "pw1")
	n := e.mustNews(t, a, "pw1", "#x")
	_, err := e.svc.DeleteUser(ctx, PasswordActor(a.ID, "pw1"), a.ID)
	require.NoError(t, err)

	for _, pw := range []string{"", "pw1", "anything"} {
		_, err := e.svc.DeleteUser(ctx, PasswordActor(model.SentinelUserID, pw), model.SentinelUserID)
		assert.ErrorIs(t, err, ErrProtected)

		nick := "hacked"
		_, err = e.svc.EditUser(ctx, PasswordActor(model.SentinelUserID, pw), model.SentinelUserID, UserUpdate{Nickname: &nick})
		assert.ErrorIs(t, err, ErrProtected)

		assert.False(t, e.users.Verify(ctx, model.SentinelUserID, pw))

		title := "new"
		_, err = e.svc.EditNews(ctx, PasswordActor(0, pw), n.ID, NewsUpdate{Title: &title})
		assert.ErrorIs(t, err, ErrUnauthorized)

		err = e.svc.DeleteNews(ctx, PasswordActor(0, pw), n.ID)
		assert.ErrorIs(t, err, ErrProtected)
	}

	_, err = e.svc.CreateComment(ctx, SessionActor(model.SentinelUserID), n.ID, "hi")
	assert.ErrorIs(t, err, ErrUnauthorized)

	sentinel, err := e.svc.GetUser(ctx, model.SentinelUserID)
	require.NoError(t, err)
	assert.Equal(t, model.SentinelNickname, sentinel.Nickname)
}

func TestEditUser(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	a := e.mustUser(t, "a@x.com", "pw1")
	e.mustUser(t, "b@x.com", "pw2")

	t.Run("password mismatch mutates nothing", func(t *testing.T) {
		nick, np, again := "renamed", "new1", "new2"
		_, err := e.svc.EditUser(ctx, PasswordActor(a.ID, "pw1"), a.ID, UserUpdate{
			Nickname:         &nick,
			NewPassword:      &np,
			NewPasswordAgain: &again,
		})
		assert.ErrorIs(t, err, ErrPasswordMismatch)

		got, err := e.svc.GetUser(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "a@x.com", got.Nickname)
		assert.True(t, e.users.Verify(ctx, a.ID, "pw1"))
	})

	t.Run("email taken by other user", func(t *testing.T) {
		email := "b@x.com"
		_, err := e.svc.EditUser(ctx, PasswordActor(a.ID, "pw1"), a.ID, UserUpdate{Email: &email})
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("own email is fine", func(t *testing.T) {
		email := "a@x.com"
		_, err := e.svc.EditUser(ctx, PasswordActor(a.ID, "pw1"), a.ID, UserUpdate{Email: &email})
		assert.NoError(t, err)
	})

	t.Run("wrong password", func(t *testing.T) {
		nick := "x"
		_, err := e.svc.EditUser(ctx, PasswordActor(a.ID, "bad"), a.ID, UserUpdate{Nickname: &nick})
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("image replace and remove", func(t *testing.T) {
		u, err := e.svc.EditUser(ctx, SessionActor(a.ID), a.ID, UserUpdate{Image: upload("a.png", "1")})
		require.NoError(t, err)
		first := e.assets.UserImagePath(u.Image)
		assert.FileExists(t, first)

		u, err = e.svc.EditUser(ctx, SessionActor(a.ID), a.ID, UserUpdate{Image: upload("a.jpg", "2")})
		require.NoError(t, err)
		assert.NoFileExists(t, first)
		assert.FileExists(t, e.assets.UserImagePath(u.Image))

		second := e.assets.UserImagePath(u.Image)
		u, err = e.svc.EditUser(ctx, SessionActor(a.ID), a.ID, UserUpdate{RemoveImage: true})
		require.NoError(t, err)
		assert.Equal(t, model.DefaultUserImage, u.Image)
		assert.NoFileExists(t, second)
	})

	t.Run("new password", func(t *testing.T) {
		np := "pw9"
		_, err := e.svc.EditUser(ctx, SessionActor(a.ID), a.ID, UserUpdate{NewPassword: &np, NewPasswordAgain: &np})
		require.NoError(t, err)
		assert.True(t, e.users.Verify(ctx, a.ID, "pw9"))
	})
}

func TestCreateNews(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	a := e.mustUser(t, "a@x.com", "pw")

	t.Run("images stored in arrival order", func(t *testing.T) {
		n := e.mustNews(t, a, "pw", "#b #a #b", upload("z.png", "1"), upload("a.JPG", "2"))
		assert.Equal(t, "a;b", n.Tags)
		assert.Equal(t, []string{"z.png", "a.JPG"}, n.ImageList())
		assert.FileExists(t, e.assets.NewsImagePath(n.ID, "z.png"))
		assert.FileExists(t, e.assets.NewsImagePath(n.ID, "a.JPG"))
	})

	t.Run("invalid tag", func(t *testing.T) {
		_, err := e.svc.CreateNews(ctx, SessionActor(a.ID), NewNews{Title: "t", About: "a", Tags: "go #x"})
		assert.ErrorIs(t, err, ErrInvalidTag)
	})

	t.Run("one bad upload writes nothing", func(t *testing.T) {
		before, err := e.svc.ListNews(ctx)
		require.NoError(t, err)

		_, err = e.svc.CreateNews(ctx, SessionActor(a.ID), NewNews{
			Title:  "t",
			About:  "a",
			Images: []assets.Upload{upload("ok.png", "1"), upload("bad.txt", "2")},
		})
		assert.ErrorIs(t, err, ErrInvalidAsset)

		after, err := e.svc.ListNews(ctx)
		require.NoError(t, err)
		assert.Len(t, after, len(before))
	})

	t.Run("too many uploads", func(t *testing.T) {
		_, err := e.svc.CreateNews(ctx, SessionActor(a.ID), NewNews{
			Title:  "t",
			About:  "a",
			Images: []assets.Upload{upload("1.png", ""), upload("2.png", ""), upload("3.png", ""), upload("4.png", "")},
		})
		assert.ErrorIs(t, err, ErrInvalidAsset)
	})

	t.Run("duplicate names get prefix", func(t *testing.T) {
		n := e.mustNews(t, a, "pw", "", upload("p.png", "1"), upload("p.png", "2"))
		assert.Equal(t, []string{"p.png", "1_p.png"}, n.ImageList())
	})

	t.Run("unknown creator", func(t *testing.T) {
		_, err := e.svc.CreateNews(ctx, SessionActor(999), NewNews{Title: "t", About: "a"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("stale dir is cleared", func(t *testing.T) {
		all, err := e.svc.ListNews(ctx)
		require.NoError(t, err)
		next := all[len(all)-1].ID + 1
		stale := e.assets.NewsImagePath(next, "old.png")
		require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
		require.NoError(t, os.WriteFile(stale, []byte("x"), 0o644))

		n := e.mustNews(t, a, "pw", "")
		require.Equal(t, next, n.ID)
		assert.NoFileExists(t, stale)
		assert.DirExists(t, e.assets.NewsDir(n.ID))
	})
}

func TestEditNews(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	a := e.mustUser(t, "a@x.com", "pw")
	b := e.mustUser(t, "b@x.com", "pw2")
	n := e.mustNews(t, a, "pw", "#x", upload("one.png", "1"), upload("two.png", "2"))

	t.Run("not found", func(t *testing.T) {
		_, err := e.svc.EditNews(ctx, SessionActor(a.ID), 999, NewsUpdate{})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("other user", func(t *testing.T) {
		title := "t"
		_, err := e.svc.EditNews(ctx, SessionActor(b.ID), n.ID, NewsUpdate{Title: &title})
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("tags renormalized", func(t *testing.T) {
		raw := "#z #y #z"
		got, err := e.svc.EditNews(ctx, PasswordActor(0, "pw"), n.ID, NewsUpdate{Tags: &raw})
		require.NoError(t, err)
		assert.Equal(t, "y;z", got.Tags)
	})

	t.Run("bad tag", func(t *testing.T) {
		raw := "nohash"
		_, err := e.svc.EditNews(ctx, SessionActor(a.ID), n.ID, NewsUpdate{Tags: &raw})
		assert.ErrorIs(t, err, ErrInvalidTag)
	})

	t.Run("clear slot and replace another", func(t *testing.T) {
		upd := NewsUpdate{}
		upd.Clear[0] = true
		upd.Replace[1] = upload("three.png", "3")

		got, err := e.svc.EditNews(ctx, SessionActor(a.ID), n.ID, upd)
		require.NoError(t, err)
		assert.Equal(t, []string{"three.png"}, got.ImageList())
		assert.NoFileExists(t, e.assets.NewsImagePath(n.ID, "one.png"))
		assert.NoFileExists(t, e.assets.NewsImagePath(n.ID, "two.png"))
		assert.FileExists(t, e.assets.NewsImagePath(n.ID, "three.png"))
	})

	t.Run("fill empty slot", func(t *testing.T) {
		upd := NewsUpdate{}
		upd.Replace[2] = upload("three.png", "dup")

		got, err := e.svc.EditNews(ctx, SessionActor(a.ID), n.ID, upd)
		require.NoError(t, err)
		assert.Equal(t, []string{"three.png", "1_three.png"}, got.ImageList())
	})
}

func TestDeleteNews_CascadesComments(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	a := e.mustUser(t, "a@x.com", "pw1")
	b := e.mustUser(t, "b@x.com", "pw2")
	n1 := e.mustNews(t, a, "pw1", "", upload("pic.bmp", "x"))

	c1, err := e.svc.CreateComment(ctx, PasswordActor(b.ID, "pw2"), n1.ID, "nice")
	require.NoError(t, err)

	err = e.svc.DeleteNews(ctx, SessionActor(b.ID), n1.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, e.svc.DeleteNews(ctx, PasswordActor(0, "pw1"), n1.ID))

	_, err = e.svc.GetComment(ctx, c1.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = e.svc.GetNews(ctx, n1.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoDirExists(t, e.assets.NewsDir(n1.ID))

	err = e.svc.DeleteNews(ctx, SessionActor(a.ID), n1.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestComments(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	a := e.mustUser(t, "a@x.com", "pw1")
	b := e.mustUser(t, "b@x.com", "pw2")
	n := e.mustNews(t, a, "pw1", "")

	t.Run("unknown news", func(t *testing.T) {
		_, err := e.svc.CreateComment(ctx, SessionActor(a.ID), 999, "x")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unknown actor", func(t *testing.T) {
		_, err := e.svc.CreateComment(ctx, SessionActor(999), n.ID, "x")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := e.svc.CreateComment(ctx, PasswordActor(a.ID, "bad"), n.ID, "x")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	c, err := e.svc.CreateComment(ctx, SessionActor(a.ID), n.ID, "first")
	require.NoError(t, err)
	assert.False(t, c.IsEdited)

	t.Run("edit by owner", func(t *testing.T) {
		got, err := e.svc.EditComment(ctx, SessionActor(a.ID), c.ID, "changed")
		require.NoError(t, err)
		assert.Equal(t, "changed", got.Text)
		assert.True(t, got.IsEdited)
	})

	t.Run("edit by other", func(t *testing.T) {
		_, err := e.svc.EditComment(ctx, SessionActor(b.ID), c.ID, "mine")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("delete by other then owner", func(t *testing.T) {
		_, err := e.svc.DeleteComment(ctx, PasswordActor(0, "pw2"), c.ID)
		assert.ErrorIs(t, err, ErrUnauthorized)

		_, err = e.svc.DeleteComment(ctx, PasswordActor(0, "pw1"), c.ID)
		require.NoError(t, err)

		_, err = e.svc.GetComment(ctx, c.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestNewsPageAndProfile(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	a := e.mustUser(t, "a@x.com", "pw1")
	b := e.mustUser(t, "b@x.com", "pw2")
	n1 := e.mustNews(t, a, "pw1", "")
	n2 := e.mustNews(t, a, "pw1", "")

	_, err := e.svc.CreateComment(ctx, SessionActor(a.ID), n1.ID, "one")
	require.NoError(t, err)
	c2, err := e.svc.CreateComment(ctx, SessionActor(b.ID), n1.ID, "two")
	require.NoError(t, err)

	page, err := e.svc.NewsPage(ctx, n1.ID)
	require.NoError(t, err)
	require.Len(t, page.Comments, 2)
	assert.Equal(t, c2.ID, page.Comments[0].ID)
	assert.Len(t, page.Commenters, 2)

	profile, err := e.svc.Profile(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, profile.News, 2)
	assert.Equal(t, n2.ID, profile.News[0].ID)

	_, err = e.svc.Profile(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchByTags(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	a := e.mustUser(t, "a@x.com", "pw")

	onlyX := e.mustNews(t, a, "pw", "#x")
	xy := e.mustNews(t, a, "pw", "#y #x")
	xyz := e.mustNews(t, a, "pw", "#x #y #z")
	none := e.mustNews(t, a, "pw", "")

	ids := func(list []model.News) []int64 {
		out := make([]int64, 0, len(list))
		for _, n := range list {
			out = append(out, n.ID)
		}
		return out
	}

	got, err := e.svc.SearchByTags(ctx, []string{"x", "y"})
	require.NoError(t, err)
	assert.Equal(t, []int64{xy.ID, xyz.ID}, ids(got))

	got, err = e.svc.SearchByTags(ctx, []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, []int64{onlyX.ID, xy.ID, xyz.ID}, ids(got))

	got, err = e.svc.SearchByTags(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{onlyX.ID, xy.ID, xyz.ID, none.ID}, ids(got))

	q, err := tags.ParseQuery("#y #x")
	require.NoError(t, err)
	again, err := e.svc.SearchByTags(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []int64{xy.ID, xyz.ID}, ids(again))
}

func TestOpErrorMessage(t *testing.T) {
	err := opErr("GetNews", "news", 7, ErrNotFound, "")
	var oe *OpError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, "news with id 7 not found", oe.Message())

	err = opErr("DeleteNews", "news", 7, ErrUnauthorized, "password doesn't match owner password")
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, "password doesn't match owner password. Exception at news with id 7", oe.Message())
	assert.NotContains(t, err.Error(), "$2a$")
}
