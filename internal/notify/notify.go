// Package notify turns board mutations into notification records, push
// messages and live per-user publishes. Every step is best effort: failures
// are reported in the returned outcomes and logged, never propagated.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/ButyrinIA/menfess/internal/models"
	"github.com/ButyrinIA/menfess/internal/push"
)

const (
	PushTitle     = "Menfess"
	DefaultAuthor = "Someone"
)

// Store is the slice of storage the pipeline writes to and reads from.
type Store interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	UsersByHandles(ctx context.Context, handles []string) (map[string][]string, error)
	TokensFor(ctx context.Context, uid string) ([]string, error)
}

// Publisher forwards a stored notification to whoever is listening for the receiver.
type Publisher interface {
	Publish(ctx context.Context, n *models.Notification) error
}

// Outcome reports what happened for one intended receiver.
type Outcome struct {
	Kind     models.NotificationKind
	Receiver string
	// NotificationID is empty when the record could not be written.
	NotificationID string
	Pushed         bool
	Err            error
}

type Pipeline struct {
	store     Store
	push      push.Dispatcher
	publisher Publisher
	adminUID  string
	now       func() time.Time
}

type Option func(*Pipeline)

func WithPublisher(p Publisher) Option {
	return func(pl *Pipeline) { pl.publisher = p }
}

// WithAdmin sets the identity told about every new post.
func WithAdmin(uid string) Option {
	return func(pl *Pipeline) { pl.adminUID = uid }
}

func WithClock(now func() time.Time) Option {
	return func(pl *Pipeline) { pl.now = now }
}

func New(store Store, dispatcher push.Dispatcher, opts ...Option) *Pipeline {
	if dispatcher == nil {
		dispatcher = push.LogDispatcher{}
	}
	p := &Pipeline{store: store, push: dispatcher, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func authorName(name string) string {
	if strings.TrimSpace(name) == "" {
		return DefaultAuthor
	}
	return name
}

// PostCreated notifies users mentioned in the post and the admin.
func (p *Pipeline) PostCreated(ctx context.Context, post *models.Post) []Outcome {
	var outcomes []Outcome
	msg := fmt.Sprintf("%s mentioned you in a new menfess", authorName(post.Name))
	for _, rid := range p.resolveMentions(ctx, post.Mentions) {
		if rid == post.AuthorUID {
			continue
		}
		outcomes = append(outcomes, p.deliver(ctx, &models.Notification{
			SenderUID:   post.AuthorUID,
			ReceiverUID: rid,
			PostID:      post.ID,
			Type:        models.KindMention,
			Message:     msg,
		}))
	}

	if p.adminUID != "" && post.AuthorUID != "" && p.adminUID != post.AuthorUID {
		outcomes = append(outcomes, p.deliver(ctx, &models.Notification{
			SenderUID:   post.AuthorUID,
			ReceiverUID: p.adminUID,
			PostID:      post.ID,
			Type:        models.KindCreate,
			Message:     "New post from a user",
		}))
	}
	return p.report(outcomes)
}

// CommentAdded notifies the post owner and any users mentioned in the comment.
func (p *Pipeline) CommentAdded(ctx context.Context, post *models.Post, c *models.Comment) []Outcome {
	var outcomes []Outcome
	author := authorName(c.AuthorName)

	if owner := post.AuthorUID; owner != "" && c.AuthorUID != "" && owner != c.AuthorUID {
		msg := author + " commented on your post"
		if c.ByAdmin {
			msg = "Admin replied to your comment"
		}
		outcomes = append(outcomes, p.deliver(ctx, &models.Notification{
			SenderUID:   c.AuthorUID,
			ReceiverUID: owner,
			PostID:      post.ID,
			CommentID:   c.ID,
			Type:        models.KindComment,
			Message:     msg,
		}))
	}

	msg := author + " mentioned you in a comment"
	for _, rid := range p.resolveMentions(ctx, c.Mentions) {
		if rid == c.AuthorUID {
			continue
		}
		outcomes = append(outcomes, p.deliver(ctx, &models.Notification{
			SenderUID:   c.AuthorUID,
			ReceiverUID: rid,
			PostID:      post.ID,
			CommentID:   c.ID,
			Type:        models.KindMention,
			Message:     msg,
		}))
	}
	return p.report(outcomes)
}

// Liked must only be called for the like transition, never for an unlike.
func (p *Pipeline) Liked(ctx context.Context, postID, owner, actor string) []Outcome {
	if owner == "" || actor == "" || actor == models.AnonymousActor || owner == actor {
		return nil
	}
	return p.report([]Outcome{p.deliver(ctx, &models.Notification{
		SenderUID:   actor,
		ReceiverUID: owner,
		PostID:      postID,
		Type:        models.KindLike,
		Message:     "Your post was liked",
	})})
}

func (p *Pipeline) Shared(ctx context.Context, post *models.Post, actor, name string) []Outcome {
	if post.AuthorUID == "" || actor == "" || post.AuthorUID == actor {
		return nil
	}
	return p.report([]Outcome{p.deliver(ctx, &models.Notification{
		SenderUID:   actor,
		ReceiverUID: post.AuthorUID,
		PostID:      post.ID,
		Type:        models.KindShare,
		Message:     authorName(name) + " shared your menfess",
	})})
}

// deliver writes the record, then pushes and publishes it. Push and publish
// only happen once the record exists.
func (p *Pipeline) deliver(ctx context.Context, n *models.Notification) Outcome {
	out := Outcome{Kind: n.Type, Receiver: n.ReceiverUID}

	n.ID = strings.ReplaceAll(uuid.New().String(), "-", "")
	n.CreatedAt = p.now().UTC()
	if err := p.store.CreateNotification(ctx, n); err != nil {
		out.Err = fmt.Errorf("failed to store notification: %w", err)
		return out
	}
	out.NotificationID = n.ID

	// a failed publish is reported alongside any later push error
	if p.publisher != nil {
		if err := p.publisher.Publish(ctx, n); err != nil {
			out.Err = fmt.Errorf("failed to publish notification: %w", err)
		}
	}

	tokens, err := p.store.TokensFor(ctx, n.ReceiverUID)
	if err != nil {
		out.Err = errors.Join(out.Err, fmt.Errorf("failed to load device tokens: %w", err))
		return out
	}
	if len(tokens) == 0 {
		return out
	}

	data := map[string]string{"type": string(n.Type), "post_id": n.PostID}
	if n.CommentID != "" {
		data["comment_id"] = n.CommentID
	}
	if err := p.push.SendMulticast(ctx, push.Message{Tokens: tokens, Title: PushTitle, Body: n.Message, Data: data}); err != nil {
		out.Err = errors.Join(out.Err, fmt.Errorf("failed to dispatch push: %w", err))
		return out
	}
	out.Pushed = true
	return out
}

func (p *Pipeline) report(outcomes []Outcome) []Outcome {
	for _, o := range outcomes {
		entry := log.WithFields(log.Fields{"kind": o.Kind, "receiver": o.Receiver})
		if o.Err != nil {
			entry.Warnf("[notify] %v", o.Err)
			continue
		}
		entry.Debugf("[notify] stored %s (pushed=%t)", o.NotificationID, o.Pushed)
	}
	return outcomes
}
