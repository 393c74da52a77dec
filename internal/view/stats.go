package view

import (
	"sort"
	"time"

	"github.com/ButyrinIA/menfess/internal/models"
)

const (
	topMoods    = 5
	topMentions = 10
	seriesDays  = 7
	dayLayout   = "2006-01-02"
)

type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

type Day struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

type Stats struct {
	TotalPosts    int     `json:"total_posts"`
	TotalLikes    int     `json:"total_likes"`
	TotalComments int     `json:"total_comments"`
	TopMoods      []Count `json:"top_moods"`
	TopMentions   []Count `json:"top_mentions"`
	Daily         []Day   `json:"daily"`
}

// AdminSummary is the header of the moderation page.
type AdminSummary struct {
	TotalPosts    int        `json:"total_posts"`
	TotalLikes    int        `json:"total_likes"`
	TotalComments int        `json:"total_comments"`
	Posts         []AdminRow `json:"posts"`
}

// BuildStats aggregates approved posts. commentMentions holds the mention
// lists of those posts' comments. The daily series covers the seven WIB
// calendar days ending on now, oldest first.
func BuildStats(posts []*models.Post, commentMentions [][]string, now time.Time) Stats {
	st := Stats{}
	moods := map[string]int{}
	mentions := map[string]int{}
	daily := map[string]int{}

	for _, p := range posts {
		st.TotalPosts++
		st.TotalLikes += nonNegative(p.Likes)
		st.TotalComments += nonNegative(p.CommentsCount)
		if p.Mood != "" {
			moods[p.Mood]++
		}
		for _, m := range p.Mentions {
			mentions[m]++
		}
		if !p.CreatedAt.IsZero() {
			daily[p.CreatedAt.In(WIB).Format(dayLayout)]++
		}
	}
	for _, list := range commentMentions {
		for _, m := range list {
			mentions[m]++
		}
	}

	st.TopMoods = top(moods, topMoods)
	st.TopMentions = top(mentions, topMentions)

	today := now.In(WIB)
	st.Daily = make([]Day, 0, seriesDays)
	for i := seriesDays - 1; i >= 0; i-- {
		key := today.AddDate(0, 0, -i).Format(dayLayout)
		st.Daily = append(st.Daily, Day{Day: key, Count: daily[key]})
	}
	return st
}

// top orders by count descending, then key ascending.
func top(counts map[string]int, n int) []Count {
	out := make([]Count, 0, len(counts))
	for k, c := range counts {
		out = append(out, Count{Key: k, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func BuildAdminSummary(posts []*models.Post) AdminSummary {
	s := AdminSummary{Posts: make([]AdminRow, 0, len(posts))}
	for _, p := range posts {
		row := FromAdmin(p)
		s.TotalPosts++
		s.TotalLikes += row.Likes
		s.TotalComments += row.CommentsCount
		s.Posts = append(s.Posts, row)
	}
	return s
}
