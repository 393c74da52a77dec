package models

import "time"

type Status string

const (
	StatusApproved Status = "Approved"
	StatusDeleted  Status = "Deleted"
	StatusPending  Status = "Pending"
)

func (s Status) Valid() bool {
	switch s {
	case StatusApproved, StatusDeleted, StatusPending:
		return true
	}
	return false
}

// RoleUser is the role a directory entry falls back to when none is given.
const RoleUser = "user"

// AnonymousActor is the like-record key shared by everyone who acts without a token.
const AnonymousActor = "anon"

type Post struct {
	ID            string     `json:"id" bson:"_id"`
	Name          string     `json:"name" bson:"name"`
	To            string     `json:"to" bson:"to"`
	Content       string     `json:"content" bson:"content"`
	Mood          string     `json:"mood" bson:"mood"`
	Likes         int        `json:"likes" bson:"likes"`
	Shares        int        `json:"shares" bson:"shares"`
	CommentsCount int        `json:"comments_count" bson:"comments_count"`
	CreatedAt     time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty" bson:"updated_at,omitempty"`
	AuthorUID     string     `json:"author_uid,omitempty" bson:"author_uid,omitempty"`
	Status        Status     `json:"status" bson:"status"`
	Mentions      []string   `json:"mentions" bson:"mentions"`
}

// PostDraft is what a user submits; the store fills in the rest.
type PostDraft struct {
	Name      string `json:"name"`
	To        string `json:"to" validate:"required"`
	Content   string `json:"content" validate:"required"`
	Mood      string `json:"mood" validate:"required"`
	AuthorUID string `json:"uid"`
}

type PostEdit struct {
	Content string `json:"content" validate:"required"`
	Mood    string `json:"mood"`
	To      string `json:"to"`
}

type Comment struct {
	ID         string    `json:"id" bson:"_id"`
	PostID     string    `json:"post_id" bson:"post_id"`
	Text       string    `json:"text" bson:"text"`
	AuthorUID  string    `json:"author_uid,omitempty" bson:"author_uid,omitempty"`
	ByAdmin    bool      `json:"by_admin" bson:"by_admin"`
	AuthorName string    `json:"author_name,omitempty" bson:"author_name,omitempty"`
	Mentions   []string  `json:"mentions" bson:"mentions"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}

type Like struct {
	PostID  string    `json:"post_id" bson:"post_id"`
	UID     string    `json:"uid" bson:"uid"`
	LikedAt time.Time `json:"liked_at" bson:"liked_at"`
}

// LikeResult is the outcome of a toggle. PostAuthor is read inside the same
// transaction so the caller can notify the owner without a second lookup.
type LikeResult struct {
	Likes      int
	Liked      bool
	PostAuthor string
}

type NotificationKind string

const (
	KindMention NotificationKind = "mention"
	KindComment NotificationKind = "comment"
	KindLike    NotificationKind = "like"
	KindShare   NotificationKind = "share"
	KindCreate  NotificationKind = "create"
)

type Notification struct {
	ID          string           `json:"id" bson:"_id"`
	SenderUID   string           `json:"sender_uid" bson:"sender_uid"`
	ReceiverUID string           `json:"receiver_uid" bson:"receiver_uid"`
	PostID      string           `json:"post_id" bson:"post_id"`
	CommentID   string           `json:"comment_id,omitempty" bson:"comment_id,omitempty"`
	Type        NotificationKind `json:"type" bson:"type"`
	Message     string           `json:"message" bson:"message"`
	Read        bool             `json:"read" bson:"read"`
	CreatedAt   time.Time        `json:"created_at" bson:"created_at"`
}
