// Package menfess is the application layer of the board. It validates
// input, mutates the store, then runs notifications and realtime events.
// Side effects never fail a mutation that has already been stored.
package menfess

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/ButyrinIA/menfess/internal/mention"
	"github.com/ButyrinIA/menfess/internal/models"
	"github.com/ButyrinIA/menfess/internal/notify"
	"github.com/ButyrinIA/menfess/internal/realtime"
	"github.com/ButyrinIA/menfess/internal/storage"
	"github.com/ButyrinIA/menfess/internal/view"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
)

// AdminName is the display name stamped on moderator comments.
const AdminName = "Admin"

// Actor is whoever performs an action. UID is empty for anonymous users.
type Actor struct {
	UID   string
	Name  string
	Admin bool
}

type CommentInput struct {
	Text string `json:"comment" validate:"required,max=2000"`
	Name string `json:"commenter_name"`
}

// RoleInput names a user by uid or, failing that, by username.
type RoleInput struct {
	UID      string `json:"uid" validate:"required_without=Username"`
	Username string `json:"username" validate:"required_without=UID"`
	Role     string `json:"role" validate:"max=32"`
}

type Service struct {
	store    storage.Storage
	pipeline *notify.Pipeline
	hub      *realtime.Hub
	validate *validator.Validate
	now      func() time.Time
}

func NewService(store storage.Storage, pipeline *notify.Pipeline, hub *realtime.Hub) *Service {
	return &Service{
		store:    store,
		pipeline: pipeline,
		hub:      hub,
		validate: validator.New(),
		now:      time.Now,
	}
}

func newID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

func (s *Service) check(v interface{}) error {
	if err := s.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

func (s *Service) broadcast(name string, data map[string]any) {
	if s.hub != nil {
		s.hub.Broadcast(name, data)
	}
}

// CreatePost stores an Approved post and returns its id.
func (s *Service) CreatePost(ctx context.Context, draft models.PostDraft) (string, error) {
	draft.Name = strings.TrimSpace(draft.Name)
	draft.To = strings.TrimSpace(draft.To)
	draft.Content = strings.TrimSpace(draft.Content)
	draft.Mood = strings.TrimSpace(draft.Mood)
	if err := s.check(draft); err != nil {
		return "", err
	}
	if draft.Name == "" {
		draft.Name = view.DefaultName
	}

	post := &models.Post{
		ID:        newID(),
		Name:      draft.Name,
		To:        draft.To,
		Content:   draft.Content,
		Mood:      draft.Mood,
		CreatedAt: s.now().UTC(),
		AuthorUID: draft.AuthorUID,
		Status:    models.StatusApproved,
		Mentions:  mention.FromPost(draft.Content, draft.To),
	}
	if err := s.store.CreatePost(ctx, post); err != nil {
		return "", fmt.Errorf("failed to create post: %w", err)
	}
	log.WithField("post_id", post.ID).Info("[menfess] post created")

	if s.pipeline != nil {
		s.pipeline.PostCreated(ctx, post)
	}
	s.broadcast(realtime.EventPost, map[string]any{"post_id": post.ID})
	return post.ID, nil
}

func (s *Service) ListApproved(ctx context.Context) ([]*models.Post, error) {
	return s.store.ListApproved(ctx)
}

// GetPost hides posts that are not Approved from everyone but the admin.
func (s *Service) GetPost(ctx context.Context, id string, actor Actor) (*models.Post, error) {
	post, err := s.store.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.Status != models.StatusApproved && !actor.Admin {
		return nil, storage.ErrNotFound
	}
	return post, nil
}

// AddComment returns the new comment's id. The parent's comments_count is
// incremented by the store before any notification is attempted.
func (s *Service) AddComment(ctx context.Context, postID string, in CommentInput, actor Actor) (string, error) {
	in.Text = strings.TrimSpace(in.Text)
	if err := s.check(in); err != nil {
		return "", err
	}
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return "", err
	}

	name := strings.TrimSpace(in.Name)
	switch {
	case actor.Admin:
		name = AdminName
	case name == "":
		name = view.DefaultName
	}

	c := &models.Comment{
		ID:         newID(),
		PostID:     postID,
		Text:       in.Text,
		AuthorUID:  actor.UID,
		ByAdmin:    actor.Admin,
		AuthorName: name,
		Mentions:   mention.Extract(in.Text),
		CreatedAt:  s.now().UTC(),
	}
	if err := s.store.AddComment(ctx, c); err != nil {
		return "", fmt.Errorf("failed to add comment: %w", err)
	}

	if s.pipeline != nil {
		s.pipeline.CommentAdded(ctx, post, c)
	}
	s.broadcast(realtime.EventComment, map[string]any{"post_id": postID})
	return c.ID, nil
}

func (s *Service) ListComments(ctx context.Context, postID string, actor Actor) ([]*models.Comment, error) {
	if _, err := s.GetPost(ctx, postID, actor); err != nil {
		return nil, err
	}
	return s.store.ListComments(ctx, postID)
}

// ToggleLike flips the actor's like. Anonymous actors share one like key.
func (s *Service) ToggleLike(ctx context.Context, postID string, actor Actor) (*models.LikeResult, error) {
	key := actor.UID
	if key == "" {
		key = models.AnonymousActor
	}
	res, err := s.store.ToggleLike(ctx, postID, key)
	if err != nil {
		return nil, err
	}

	if res.Liked && s.pipeline != nil {
		s.pipeline.Liked(ctx, postID, res.PostAuthor, actor.UID)
	}
	s.broadcast(realtime.EventLike, map[string]any{"post_id": postID, "likes": res.Likes})
	return res, nil
}

// Share returns the post's share count after the increment.
func (s *Service) Share(ctx context.Context, postID string, actor Actor) (int, error) {
	post, err := s.store.IncrementShare(ctx, postID)
	if err != nil {
		return 0, err
	}
	if s.pipeline != nil {
		s.pipeline.Shared(ctx, post, actor.UID, actor.Name)
	}
	return post.Shares, nil
}

func (s *Service) Trending(ctx context.Context) ([]*models.Post, error) {
	return s.store.Trending(ctx)
}

func (s *Service) AdminList(ctx context.Context) ([]*models.Post, error) {
	return s.store.AdminList(ctx)
}

func (s *Service) SetStatus(ctx context.Context, id string, status models.Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	if err := s.store.SetStatus(ctx, id, status); err != nil {
		return err
	}
	log.WithFields(log.Fields{"post_id": id, "status": status}).Info("[menfess] status changed")
	return nil
}

func (s *Service) Approve(ctx context.Context, id string) error {
	return s.SetStatus(ctx, id, models.StatusApproved)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.SetStatus(ctx, id, models.StatusDeleted)
}

func (s *Service) Restore(ctx context.Context, id string) error {
	return s.SetStatus(ctx, id, models.StatusApproved)
}

func (s *Service) authorize(ctx context.Context, id string, actor Actor) (*models.Post, error) {
	post, err := s.store.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Admin {
		return post, nil
	}
	if post.AuthorUID == "" || actor.UID == "" || post.AuthorUID != actor.UID {
		return nil, ErrForbidden
	}
	return post, nil
}

// UpdatePost lets the owner or the admin edit a post. Blank mood or
// recipient keep their previous values.
func (s *Service) UpdatePost(ctx context.Context, id string, edit models.PostEdit, actor Actor) error {
	edit.Content = strings.TrimSpace(edit.Content)
	edit.Mood = strings.TrimSpace(edit.Mood)
	edit.To = strings.TrimSpace(edit.To)
	if err := s.check(edit); err != nil {
		return err
	}
	post, err := s.authorize(ctx, id, actor)
	if err != nil {
		return err
	}
	if edit.Mood == "" {
		edit.Mood = post.Mood
	}
	if edit.To == "" {
		edit.To = post.To
	}
	return s.store.UpdatePost(ctx, id, edit, s.now().UTC())
}

// DeletePost is the owner's soft delete.
func (s *Service) DeletePost(ctx context.Context, id string, actor Actor) error {
	if _, err := s.authorize(ctx, id, actor); err != nil {
		return err
	}
	return s.SetStatus(ctx, id, models.StatusDeleted)
}

func (s *Service) Stats(ctx context.Context) (view.Stats, error) {
	posts, err := s.store.ListApproved(ctx)
	if err != nil {
		return view.Stats{}, err
	}
	mentions := make([][]string, 0, len(posts))
	for _, p := range posts {
		comments, err := s.store.ListComments(ctx, p.ID)
		if err != nil {
			return view.Stats{}, fmt.Errorf("failed to list comments of %s: %w", p.ID, err)
		}
		for _, c := range comments {
			mentions = append(mentions, c.Mentions)
		}
	}
	return view.BuildStats(posts, mentions, s.now()), nil
}

// ListNotifications is read-only; nothing marks a notification as read.
func (s *Service) ListNotifications(ctx context.Context, uid string) ([]*models.Notification, error) {
	if uid == "" {
		return nil, fmt.Errorf("%w: uid is required", ErrInvalidInput)
	}
	return s.store.ListNotifications(ctx, uid)
}

// SetRole records a role in the user directory. An empty role means
// models.RoleUser. The returned input carries the resolved uid.
func (s *Service) SetRole(ctx context.Context, in RoleInput) (RoleInput, error) {
	in.UID = strings.TrimSpace(in.UID)
	in.Username = strings.TrimSpace(in.Username)
	in.Role = strings.TrimSpace(in.Role)
	if err := s.check(in); err != nil {
		return in, err
	}
	if in.Role == "" {
		in.Role = models.RoleUser
	}

	uid, err := s.store.SetRole(ctx, in.UID, in.Username, in.Role)
	if err != nil {
		return in, err
	}
	in.UID = uid
	return in, nil
}
