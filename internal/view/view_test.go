package view

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ButyrinIA/menfess/internal/models"
)

func TestFromPost_Defaults(t *testing.T) {
	created := time.Date(2024, 3, 9, 20, 30, 0, 0, time.UTC)
	v := FromPost(&models.Post{
		ID:        "p1",
		Content:   "hello",
		Likes:     -3,
		CreatedAt: created,
	})

	assert.Equal(t, "Anon", v.Name)
	assert.Equal(t, "-", v.To)
	assert.Equal(t, "-", v.Mood)
	assert.Equal(t, 0, v.Likes)
	assert.Equal(t, "Approved", v.Status)
	assert.Equal(t, []string{}, v.Mentions)
	// 20:30 UTC is 03:30 the next day in WIB
	assert.Equal(t, "10/03/2024 03:30 WIB", v.CreatedAt)
	assert.Equal(t, "2024-03-09T20:30:00Z", v.CreatedISO)
}

func TestFromPost_Nil(t *testing.T) {
	assert.Nil(t, FromPost(nil))
}

func TestTimes_Zero(t *testing.T) {
	display, iso := Times(time.Time{})
	assert.Empty(t, display)
	assert.Empty(t, iso)
}

func TestTimes_NonUTCInput(t *testing.T) {
	jakarta := time.FixedZone("X", 7*60*60)
	display, iso := Times(time.Date(2024, 1, 1, 7, 0, 0, 0, jakarta))
	assert.Equal(t, "01/01/2024 07:00 WIB", display)
	assert.Equal(t, "2024-01-01T00:00:00Z", iso)
}

func TestFromComment(t *testing.T) {
	v := FromComment(&models.Comment{ID: "c1", Text: "hey", ByAdmin: true, CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)})
	assert.Equal(t, "01/01/2024 07:00 WIB", v.CreatedAt)
	assert.True(t, v.ByAdmin)
}

func TestShorten(t *testing.T) {
	assert.Equal(t, "short", Shorten("short"))
	exact := strings.Repeat("a", 100)
	assert.Equal(t, exact, Shorten(exact))

	long := strings.Repeat("é", 101)
	got := Shorten(long)
	assert.Equal(t, strings.Repeat("é", 100)+"…", got)
}

func TestBuildAdminSummary(t *testing.T) {
	s := BuildAdminSummary([]*models.Post{
		{ID: "a", Likes: 2, CommentsCount: 1, Status: models.StatusDeleted},
		{ID: "b", Likes: 3},
	})
	assert.Equal(t, 2, s.TotalPosts)
	assert.Equal(t, 5, s.TotalLikes)
	assert.Equal(t, 1, s.TotalComments)
	require.Len(t, s.Posts, 2)
	assert.Equal(t, "Deleted", s.Posts[0].Status)
	assert.Equal(t, "Anon", s.Posts[1].Name)
}

func TestBuildStats(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	posts := []*models.Post{
		{Mood: "happy", Likes: 2, CommentsCount: 1, Mentions: []string{"bob"}, CreatedAt: now},
		{Mood: "happy", Likes: 1, Mentions: []string{"bob", "carol"}, CreatedAt: now.AddDate(0, 0, -1)},
		{Mood: "sad", CreatedAt: now.AddDate(0, 0, -30)},
	}
	st := BuildStats(posts, [][]string{{"carol"}, {"carol"}}, now)

	assert.Equal(t, 3, st.TotalPosts)
	assert.Equal(t, 3, st.TotalLikes)
	assert.Equal(t, 1, st.TotalComments)
	assert.Equal(t, []Count{{"happy", 2}, {"sad", 1}}, st.TopMoods)
	assert.Equal(t, []Count{{"carol", 3}, {"bob", 2}}, st.TopMentions)

	require.Len(t, st.Daily, 7)
	assert.Equal(t, "2024-05-04", st.Daily[0].Day)
	assert.Equal(t, Day{"2024-05-10", 1}, st.Daily[6])
	assert.Equal(t, Day{"2024-05-09", 1}, st.Daily[5])
}

func TestTop_Limit(t *testing.T) {
	counts := map[string]int{}
	for i := 0; i < 8; i++ {
		counts[string(rune('a'+i))] = 1
	}
	got := top(counts, 5)
	require.Len(t, got, 5)
	assert.Equal(t, "a", got[0].Key)
	assert.Equal(t, "e", got[4].Key)
}
