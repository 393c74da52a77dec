// Package memory is the ephemeral backend used when no durable store is
// configured. Everything lives in process memory and is lost on restart, so
// it must not back a deployment with real users.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ButyrinIA/menfess/internal/models"
	"github.com/ButyrinIA/menfess/internal/storage"
)

// MemoryStorage guards every operation with a single mutex.
type MemoryStorage struct {
	mu sync.RWMutex

	posts         []*models.Post
	index         map[string]*models.Post
	comments      map[string][]*models.Comment
	likedBy       map[string]map[string]struct{}
	notifications []*models.Notification
	users         map[string][]string
	tokens        map[string][]string
	roles         map[string]string
}

var _ storage.Storage = (*MemoryStorage)(nil)

func New() *MemoryStorage {
	s := &MemoryStorage{}
	s.reset()
	return s
}

func (s *MemoryStorage) reset() {
	s.posts = nil
	s.index = make(map[string]*models.Post)
	s.comments = make(map[string][]*models.Comment)
	s.likedBy = make(map[string]map[string]struct{})
	s.notifications = nil
	s.users = make(map[string][]string)
	s.tokens = make(map[string][]string)
	s.roles = make(map[string]string)
}

// RegisterUser makes handle resolvable to uid for mention lookups.
func (s *MemoryStorage) RegisterUser(handle, uid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[handle] = append(s.users[handle], uid)
}

func (s *MemoryStorage) RegisterToken(uid, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[uid] = append(s.tokens[uid], token)
}

func (s *MemoryStorage) ListApproved(ctx context.Context) ([]*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	posts := s.filter(func(p *models.Post) bool { return p.Status == models.StatusApproved })
	sortNewestFirst(posts)
	return posts, nil
}

func (s *MemoryStorage) CreatePost(ctx context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := copyPost(post)
	s.posts = append(s.posts, p)
	s.index[p.ID] = p
	return nil
}

func (s *MemoryStorage) GetPost(ctx context.Context, id string) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, exists := s.index[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyPost(post), nil
}

func (s *MemoryStorage) UpdatePost(ctx context.Context, id string, edit models.PostEdit, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, exists := s.index[id]
	if !exists {
		return storage.ErrNotFound
	}
	post.Content = edit.Content
	post.Mood = edit.Mood
	post.To = edit.To
	post.UpdatedAt = &at
	return nil
}

func (s *MemoryStorage) AddComment(ctx context.Context, comment *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, exists := s.index[comment.PostID]
	if !exists {
		return storage.ErrNotFound
	}
	c := *comment
	c.Mentions = append([]string{}, comment.Mentions...)
	s.comments[comment.PostID] = append(s.comments[comment.PostID], &c)
	post.CommentsCount++
	return nil
}

func (s *MemoryStorage) ListComments(ctx context.Context, postID string) ([]*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.comments[postID]
	comments := make([]*models.Comment, 0, len(stored))
	for _, c := range stored {
		cp := *c
		comments = append(comments, &cp)
	}
	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].CreatedAt.Before(comments[j].CreatedAt)
	})
	return comments, nil
}

func (s *MemoryStorage) ToggleLike(ctx context.Context, postID, actor string) (*models.LikeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, exists := s.index[postID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	if actor == "" {
		actor = models.AnonymousActor
	}

	set, ok := s.likedBy[postID]
	if !ok {
		set = make(map[string]struct{})
		s.likedBy[postID] = set
	}

	res := &models.LikeResult{PostAuthor: post.AuthorUID}
	if _, liked := set[actor]; liked {
		delete(set, actor)
		post.Likes = max(0, post.Likes-1)
	} else {
		set[actor] = struct{}{}
		post.Likes++
		res.Liked = true
	}
	res.Likes = post.Likes
	return res, nil
}

func (s *MemoryStorage) IncrementShare(ctx context.Context, postID string) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, exists := s.index[postID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	post.Shares++
	return copyPost(post), nil
}

func (s *MemoryStorage) AdminList(ctx context.Context) ([]*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	posts := s.filter(func(*models.Post) bool { return true })
	sortNewestFirst(posts)
	return posts, nil
}

func (s *MemoryStorage) SetStatus(ctx context.Context, id string, status models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, exists := s.index[id]
	if !exists {
		return storage.ErrNotFound
	}
	post.Status = status
	return nil
}

func (s *MemoryStorage) Trending(ctx context.Context) ([]*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	posts := s.filter(func(p *models.Post) bool { return p.Status == models.StatusApproved })
	sort.SliceStable(posts, func(i, j int) bool {
		if posts[i].Likes != posts[j].Likes {
			return posts[i].Likes > posts[j].Likes
		}
		return posts[i].CommentsCount > posts[j].CommentsCount
	})
	return posts, nil
}

func (s *MemoryStorage) CreateNotification(ctx context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *n
	s.notifications = append(s.notifications, &cp)
	return nil
}

func (s *MemoryStorage) ListNotifications(ctx context.Context, receiverUID string) ([]*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Notification
	for i := len(s.notifications) - 1; i >= 0; i-- {
		if n := s.notifications[i]; n.ReceiverUID == receiverUID {
			cp := *n
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (s *MemoryStorage) UsersByHandles(ctx context.Context, handles []string) (map[string][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := make(map[string][]string, len(handles))
	for _, h := range handles {
		if uids, ok := s.users[h]; ok {
			found[h] = append([]string{}, uids...)
		}
	}
	return found, nil
}

func (s *MemoryStorage) TokensFor(ctx context.Context, uid string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]string{}, s.tokens[uid]...), nil
}

func (s *MemoryStorage) SetRole(ctx context.Context, uid, username, role string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if uid == "" && username != "" {
		if uids := s.users[username]; len(uids) > 0 {
			uid = uids[0]
		}
	}
	if uid == "" {
		return "", storage.ErrNotFound
	}
	s.roles[uid] = role
	return uid, nil
}

// Role reports the role last assigned to uid, if any.
func (s *MemoryStorage) Role(uid string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roles[uid]
}

// Close drops all state.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset()
	return nil
}

func (s *MemoryStorage) filter(keep func(*models.Post) bool) []*models.Post {
	posts := []*models.Post{}
	for _, p := range s.posts {
		if keep(p) {
			posts = append(posts, copyPost(p))
		}
	}
	return posts
}

func sortNewestFirst(posts []*models.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
}

func copyPost(p *models.Post) *models.Post {
	cp := *p
	cp.Mentions = append([]string{}, p.Mentions...)
	if p.UpdatedAt != nil {
		at := *p.UpdatedAt
		cp.UpdatedAt = &at
	}
	return &cp
}
