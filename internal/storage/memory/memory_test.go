package memory

import (
	"context"
	"testing"
	"time"

	"github.com/ButyrinIA/menfess/internal/models"
	"github.com/ButyrinIA/menfess/internal/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPost(author string, createdAt time.Time) *models.Post {
	return &models.Post{
		ID:        uuid.New().String(),
		Name:      "Anon",
		To:        "@bob",
		Content:   "hello",
		Mood:      "happy",
		CreatedAt: createdAt,
		AuthorUID: author,
		Status:    models.StatusApproved,
		Mentions:  []string{"bob"},
	}
}

func TestMemoryStorage(t *testing.T) {
	ctx := context.Background()

	t.Run("CreatePost and GetPost", func(t *testing.T) {
		store := New()
		post := newPost("user1", time.Now())

		require.NoError(t, store.CreatePost(ctx, post))

		retrieved, err := store.GetPost(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, post, retrieved, "stored post differs from created one")
	})

	t.Run("GetPost Not Found", func(t *testing.T) {
		store := New()

		_, err := store.GetPost(ctx, "non-existent-id")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("ListApproved newest first and hides deleted", func(t *testing.T) {
		store := New()
		older := newPost("user1", time.Now().Add(-2*time.Hour))
		newer := newPost("user1", time.Now().Add(-1*time.Hour))
		require.NoError(t, store.CreatePost(ctx, older))
		require.NoError(t, store.CreatePost(ctx, newer))

		posts, err := store.ListApproved(ctx)
		require.NoError(t, err)
		require.Len(t, posts, 2)
		assert.Equal(t, newer.ID, posts[0].ID)
		assert.Equal(t, older.ID, posts[1].ID)

		require.NoError(t, store.SetStatus(ctx, newer.ID, models.StatusDeleted))

		posts, err = store.ListApproved(ctx)
		require.NoError(t, err)
		require.Len(t, posts, 1)
		assert.Equal(t, older.ID, posts[0].ID)

		all, err := store.AdminList(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2, "soft-deleted post must stay in the admin list")
	})

	t.Run("AddComment and ListComments", func(t *testing.T) {
		store := New()
		post := newPost("user1", time.Now())
		require.NoError(t, store.CreatePost(ctx, post))

		first := &models.Comment{ID: uuid.New().String(), PostID: post.ID, Text: "first", CreatedAt: time.Now()}
		second := &models.Comment{ID: uuid.New().String(), PostID: post.ID, Text: "second", CreatedAt: time.Now().Add(time.Minute)}
		require.NoError(t, store.AddComment(ctx, second))
		require.NoError(t, store.AddComment(ctx, first))

		comments, err := store.ListComments(ctx, post.ID)
		require.NoError(t, err)
		require.Len(t, comments, 2)
		assert.Equal(t, first.ID, comments[0].ID, "comments must be oldest first")

		got, err := store.GetPost(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.CommentsCount)
	})

	t.Run("AddComment Not Found", func(t *testing.T) {
		store := New()
		err := store.AddComment(ctx, &models.Comment{ID: "c", PostID: "missing"})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("ToggleLike twice restores the count", func(t *testing.T) {
		store := New()
		post := newPost("owner", time.Now())
		require.NoError(t, store.CreatePost(ctx, post))

		res, err := store.ToggleLike(ctx, post.ID, "fan")
		require.NoError(t, err)
		assert.Equal(t, 1, res.Likes)
		assert.True(t, res.Liked)
		assert.Equal(t, "owner", res.PostAuthor)

		res, err = store.ToggleLike(ctx, post.ID, "fan")
		require.NoError(t, err)
		assert.Equal(t, 0, res.Likes)
		assert.False(t, res.Liked)
	})

	t.Run("ToggleLike anonymous actors share a key", func(t *testing.T) {
		store := New()
		post := newPost("owner", time.Now())
		require.NoError(t, store.CreatePost(ctx, post))

		res, err := store.ToggleLike(ctx, post.ID, "")
		require.NoError(t, err)
		assert.True(t, res.Liked)

		res, err = store.ToggleLike(ctx, post.ID, models.AnonymousActor)
		require.NoError(t, err)
		assert.False(t, res.Liked)
		assert.Equal(t, 0, res.Likes)
	})

	t.Run("ToggleLike Not Found", func(t *testing.T) {
		store := New()
		_, err := store.ToggleLike(ctx, "missing", "fan")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("IncrementShare", func(t *testing.T) {
		store := New()
		post := newPost("owner", time.Now())
		require.NoError(t, store.CreatePost(ctx, post))

		got, err := store.IncrementShare(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.Shares)

		_, err = store.IncrementShare(ctx, "missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("Trending", func(t *testing.T) {
		store := New()
		low := newPost("a", time.Now())
		low.Likes = 1
		tieMoreComments := newPost("b", time.Now())
		tieMoreComments.Likes = 5
		tieMoreComments.CommentsCount = 3
		tieFewerComments := newPost("c", time.Now())
		tieFewerComments.Likes = 5
		tieFewerComments.CommentsCount = 1
		hidden := newPost("d", time.Now())
		hidden.Likes = 100
		hidden.Status = models.StatusPending

		for _, p := range []*models.Post{low, tieFewerComments, hidden, tieMoreComments} {
			require.NoError(t, store.CreatePost(ctx, p))
		}

		posts, err := store.Trending(ctx)
		require.NoError(t, err)
		require.Len(t, posts, 3)
		assert.Equal(t, tieMoreComments.ID, posts[0].ID)
		assert.Equal(t, tieFewerComments.ID, posts[1].ID)
		assert.Equal(t, low.ID, posts[2].ID)
	})

	t.Run("UpdatePost", func(t *testing.T) {
		store := New()
		post := newPost("owner", time.Now())
		require.NoError(t, store.CreatePost(ctx, post))

		at := time.Now()
		require.NoError(t, store.UpdatePost(ctx, post.ID, models.PostEdit{Content: "edited", Mood: "sad", To: "@carol"}, at))

		got, err := store.GetPost(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, "edited", got.Content)
		assert.Equal(t, "sad", got.Mood)
		require.NotNil(t, got.UpdatedAt)

		err = store.UpdatePost(ctx, "missing", models.PostEdit{Content: "x"}, at)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("Notifications newest first per receiver", func(t *testing.T) {
		store := New()
		require.NoError(t, store.CreateNotification(ctx, &models.Notification{ID: "n1", ReceiverUID: "bob"}))
		require.NoError(t, store.CreateNotification(ctx, &models.Notification{ID: "n2", ReceiverUID: "carol"}))
		require.NoError(t, store.CreateNotification(ctx, &models.Notification{ID: "n3", ReceiverUID: "bob"}))

		got, err := store.ListNotifications(ctx, "bob")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "n3", got[0].ID)
		assert.Equal(t, "n1", got[1].ID)
	})

	t.Run("Directory", func(t *testing.T) {
		store := New()
		store.RegisterUser("carol", "uid-carol")
		store.RegisterToken("uid-carol", "token-1")

		found, err := store.UsersByHandles(ctx, []string{"carol", "nobody"})
		require.NoError(t, err)
		assert.Equal(t, map[string][]string{"carol": {"uid-carol"}}, found)

		tokens, err := store.TokensFor(ctx, "uid-carol")
		require.NoError(t, err)
		assert.Equal(t, []string{"token-1"}, tokens)
	})

	t.Run("SetRole", func(t *testing.T) {
		store := New()
		store.RegisterUser("carol", "uid-carol")

		uid, err := store.SetRole(ctx, "", "carol", "moderator")
		require.NoError(t, err)
		assert.Equal(t, "uid-carol", uid)
		assert.Equal(t, "moderator", store.Role("uid-carol"))

		uid, err = store.SetRole(ctx, "uid-new", "", "admin")
		require.NoError(t, err)
		assert.Equal(t, "uid-new", uid)
		assert.Equal(t, "admin", store.Role("uid-new"))

		_, err = store.SetRole(ctx, "", "nobody", "admin")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("Close", func(t *testing.T) {
		store := New()
		post := newPost("owner", time.Now())
		require.NoError(t, store.CreatePost(ctx, post))

		require.NoError(t, store.Close())

		_, err := store.GetPost(ctx, post.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound, "state must be gone after Close")
	})
}
