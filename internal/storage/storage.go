package storage

import (
	"context"
	"errors"
	"time"

	"github.com/ButyrinIA/menfess/internal/models"
)

var ErrNotFound = errors.New("not found")

// Posts is the menfess board itself. Listings are unpaginated.
type Posts interface {
	// ListApproved returns Approved posts, newest first.
	ListApproved(ctx context.Context) ([]*models.Post, error)
	CreatePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, id string) (*models.Post, error)
	UpdatePost(ctx context.Context, id string, edit models.PostEdit, at time.Time) error
	// AddComment stores the comment and bumps the parent's comments_count.
	AddComment(ctx context.Context, comment *models.Comment) error
	// ListComments returns a post's comments, oldest first.
	ListComments(ctx context.Context, postID string) ([]*models.Comment, error)
	ToggleLike(ctx context.Context, postID, actor string) (*models.LikeResult, error)
	// IncrementShare returns the post as it is after the increment.
	IncrementShare(ctx context.Context, postID string) (*models.Post, error)
	// AdminList returns posts of every status, newest first.
	AdminList(ctx context.Context) ([]*models.Post, error)
	SetStatus(ctx context.Context, id string, status models.Status) error
	// Trending returns Approved posts by likes, then comments_count, both descending.
	Trending(ctx context.Context) ([]*models.Post, error)
}

type Notifications interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, receiverUID string) ([]*models.Notification, error)
}

// Directory resolves handles and device tokens for notification delivery.
type Directory interface {
	UsersByHandles(ctx context.Context, handles []string) (map[string][]string, error)
	TokensFor(ctx context.Context, uid string) ([]string, error)
	// SetRole assigns role to uid, or to the first user named username when
	// uid is empty, and returns the uid it wrote. ErrNotFound if neither resolves.
	SetRole(ctx context.Context, uid, username, role string) (string, error)
}

type Storage interface {
	Posts
	Notifications
	Directory
	Close() error
}
