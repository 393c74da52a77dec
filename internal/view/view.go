// Package view maps stored records to display shapes. It never mutates.
package view

import (
	"time"

	"github.com/ButyrinIA/menfess/internal/models"
)

const (
	DefaultName    = "Anon"
	Placeholder    = "-"
	DisplayLayout  = "02/01/2006 15:04 WIB"
	shortenAt      = 100
	shortenEllipse = "…"
)

// WIB is the fixed UTC+7 zone every display time is rendered in.
var WIB = time.FixedZone("WIB", 7*60*60)

type Post struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	To            string   `json:"to"`
	Content       string   `json:"content"`
	Mood          string   `json:"mood"`
	Likes         int      `json:"likes"`
	Shares        int      `json:"shares"`
	CommentsCount int      `json:"comments_count"`
	CreatedAt     string   `json:"created_at"`
	CreatedISO    string   `json:"created_iso"`
	AuthorUID     string   `json:"author_uid,omitempty"`
	Status        string   `json:"status"`
	Mentions      []string `json:"mentions"`
}

type Comment struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	AuthorUID  string `json:"author_uid,omitempty"`
	AuthorName string `json:"author_name,omitempty"`
	ByAdmin    bool   `json:"by_admin"`
	CreatedAt  string `json:"created_at"`
	CreatedISO string `json:"created_iso"`
}

// AdminRow is one line of the moderation table.
type AdminRow struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	To            string `json:"to"`
	ContentShort  string `json:"content_short"`
	Mood          string `json:"mood"`
	Status        string `json:"status"`
	Likes         int    `json:"likes"`
	CommentsCount int    `json:"comments_count"`
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// Times returns the WIB display string and the UTC RFC 3339 instant. A zero
// time yields two empty strings.
func Times(t time.Time) (display, iso string) {
	if t.IsZero() {
		return "", ""
	}
	return t.In(WIB).Format(DisplayLayout), t.UTC().Format(time.RFC3339)
}

func FromPost(p *models.Post) *Post {
	if p == nil {
		return nil
	}
	display, iso := Times(p.CreatedAt)
	mentions := p.Mentions
	if mentions == nil {
		mentions = []string{}
	}
	return &Post{
		ID:            p.ID,
		Name:          orDefault(p.Name, DefaultName),
		To:            orDefault(p.To, Placeholder),
		Content:       p.Content,
		Mood:          orDefault(p.Mood, Placeholder),
		Likes:         nonNegative(p.Likes),
		Shares:        nonNegative(p.Shares),
		CommentsCount: nonNegative(p.CommentsCount),
		CreatedAt:     display,
		CreatedISO:    iso,
		AuthorUID:     p.AuthorUID,
		Status:        string(orStatus(p.Status)),
		Mentions:      mentions,
	}
}

func FromPosts(posts []*models.Post) []*Post {
	out := make([]*Post, 0, len(posts))
	for _, p := range posts {
		out = append(out, FromPost(p))
	}
	return out
}

func FromComment(c *models.Comment) *Comment {
	display, iso := Times(c.CreatedAt)
	return &Comment{
		ID:         c.ID,
		Text:       c.Text,
		AuthorUID:  c.AuthorUID,
		AuthorName: c.AuthorName,
		ByAdmin:    c.ByAdmin,
		CreatedAt:  display,
		CreatedISO: iso,
	}
}

func FromComments(comments []*models.Comment) []*Comment {
	out := make([]*Comment, 0, len(comments))
	for _, c := range comments {
		out = append(out, FromComment(c))
	}
	return out
}

func orStatus(s models.Status) models.Status {
	if s == "" {
		return models.StatusApproved
	}
	return s
}

func FromAdmin(p *models.Post) AdminRow {
	return AdminRow{
		ID:            p.ID,
		Name:          orDefault(p.Name, DefaultName),
		To:            orDefault(p.To, Placeholder),
		ContentShort:  Shorten(p.Content),
		Mood:          orDefault(p.Mood, Placeholder),
		Status:        string(orStatus(p.Status)),
		Likes:         nonNegative(p.Likes),
		CommentsCount: nonNegative(p.CommentsCount),
	}
}

// Shorten keeps the first 100 characters and marks the cut.
func Shorten(s string) string {
	r := []rune(s)
	if len(r) <= shortenAt {
		return s
	}
	return string(r[:shortenAt]) + shortenEllipse
}
