package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/ButyrinIA/menfess/internal/models"
	"github.com/ButyrinIA/menfess/internal/storage"
)

const schema = `
	CREATE TABLE IF NOT EXISTS posts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		recipient TEXT NOT NULL,
		content TEXT NOT NULL,
		mood TEXT NOT NULL,
		likes INTEGER NOT NULL DEFAULT 0 CHECK (likes >= 0),
		shares INTEGER NOT NULL DEFAULT 0,
		comments_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ,
		author_uid TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'Approved',
		mentions TEXT[] NOT NULL DEFAULT '{}'
	);
	CREATE TABLE IF NOT EXISTS comments (
		id TEXT PRIMARY KEY,
		post_id TEXT NOT NULL REFERENCES posts(id),
		text TEXT NOT NULL,
		author_uid TEXT NOT NULL DEFAULT '',
		by_admin BOOLEAN NOT NULL DEFAULT FALSE,
		author_name TEXT NOT NULL DEFAULT '',
		mentions TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE TABLE IF NOT EXISTS post_likes (
		post_id TEXT NOT NULL REFERENCES posts(id),
		uid TEXT NOT NULL,
		liked_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (post_id, uid)
	);
	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		sender_uid TEXT NOT NULL,
		receiver_uid TEXT NOT NULL,
		post_id TEXT NOT NULL,
		comment_id TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL,
		message TEXT NOT NULL,
		read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE TABLE IF NOT EXISTS users (
		uid TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'user'
	);
	ALTER TABLE users ADD COLUMN IF NOT EXISTS role TEXT NOT NULL DEFAULT 'user';
	CREATE TABLE IF NOT EXISTS device_tokens (
		uid TEXT NOT NULL,
		token TEXT NOT NULL,
		PRIMARY KEY (uid, token)
	);
	CREATE INDEX IF NOT EXISTS idx_posts_status_created ON posts(status, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_comments_post_id ON comments(post_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_notifications_receiver ON notifications(receiver_uid, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);
`

const postColumns = `id, name, recipient, content, mood, likes, shares, comments_count,
	created_at, updated_at, author_uid, status, mentions`

type PostgresStorage struct {
	pool *pgxpool.Pool
}

var _ storage.Storage = (*PostgresStorage)(nil)

func New(ctx context.Context, dsn string) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	log.Info("[postgres] connected, schema ready")

	return &PostgresStorage{pool: pool}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(row scanner) (*models.Post, error) {
	var (
		p      models.Post
		status string
	)
	err := row.Scan(&p.ID, &p.Name, &p.To, &p.Content, &p.Mood, &p.Likes, &p.Shares, &p.CommentsCount,
		&p.CreatedAt, &p.UpdatedAt, &p.AuthorUID, &status, &p.Mentions)
	if err != nil {
		return nil, err
	}
	p.Status = models.Status(status)
	return &p, nil
}

func (s *PostgresStorage) queryPosts(ctx context.Context, query string, args ...any) ([]*models.Post, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []*models.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (s *PostgresStorage) ListApproved(ctx context.Context) ([]*models.Post, error) {
	return s.queryPosts(ctx, `SELECT `+postColumns+` FROM posts WHERE status=$1 ORDER BY created_at DESC`,
		string(models.StatusApproved))
}

func (s *PostgresStorage) CreatePost(ctx context.Context, post *models.Post) error {
	mentions := post.Mentions
	if mentions == nil {
		mentions = []string{}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO posts (id, name, recipient, content, mood, likes, shares, comments_count,
			created_at, author_uid, status, mentions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		post.ID, post.Name, post.To, post.Content, post.Mood, post.Likes, post.Shares, post.CommentsCount,
		post.CreatedAt, post.AuthorUID, string(post.Status), mentions)
	return err
}

func (s *PostgresStorage) GetPost(ctx context.Context, id string) (*models.Post, error) {
	p, err := scanPost(s.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return p, err
}

func (s *PostgresStorage) UpdatePost(ctx context.Context, id string, edit models.PostEdit, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE posts SET content=$2, mood=$3, recipient=$4, updated_at=$5 WHERE id=$1`,
		id, edit.Content, edit.Mood, edit.To, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// AddComment inserts the comment and then increments the post's counter.
// The two statements run outside a transaction: a crash between them under-counts.
func (s *PostgresStorage) AddComment(ctx context.Context, c *models.Comment) error {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM posts WHERE id=$1)`, c.PostID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return storage.ErrNotFound
	}

	mentions := c.Mentions
	if mentions == nil {
		mentions = []string{}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO comments (id, post_id, text, author_uid, by_admin, author_name, mentions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.PostID, c.Text, c.AuthorUID, c.ByAdmin, c.AuthorName, mentions, c.CreatedAt)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `UPDATE posts SET comments_count = comments_count + 1 WHERE id=$1`, c.PostID)
	return err
}

func (s *PostgresStorage) ListComments(ctx context.Context, postID string) ([]*models.Comment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, post_id, text, author_uid, by_admin, author_name, mentions, created_at
		FROM comments
		WHERE post_id=$1
		ORDER BY created_at ASC`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []*models.Comment{}
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.Text, &c.AuthorUID, &c.ByAdmin, &c.AuthorName, &c.Mentions, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, &c)
	}
	return comments, rows.Err()
}

// ToggleLike locks the post row for the whole read-decide-write cycle, which
// serializes concurrent togglers of the same post.
func (s *PostgresStorage) ToggleLike(ctx context.Context, postID, actor string) (*models.LikeResult, error) {
	if actor == "" {
		actor = models.AnonymousActor
	}

	res := &models.LikeResult{}
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var likes int
		err := tx.QueryRow(ctx, `SELECT likes, author_uid FROM posts WHERE id=$1 FOR UPDATE`, postID).
			Scan(&likes, &res.PostAuthor)
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `DELETE FROM post_likes WHERE post_id=$1 AND uid=$2`, postID, actor)
		if err != nil {
			return err
		}
		if tag.RowsAffected() > 0 {
			res.Likes = max(0, likes-1)
		} else {
			_, err := tx.Exec(ctx, `INSERT INTO post_likes (post_id, uid, liked_at) VALUES ($1, $2, $3)`,
				postID, actor, time.Now().UTC())
			if err != nil {
				return err
			}
			res.Likes = likes + 1
			res.Liked = true
		}

		_, err = tx.Exec(ctx, `UPDATE posts SET likes=$2 WHERE id=$1`, postID, res.Likes)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *PostgresStorage) IncrementShare(ctx context.Context, postID string) (*models.Post, error) {
	p, err := scanPost(s.pool.QueryRow(ctx,
		`UPDATE posts SET shares = shares + 1 WHERE id=$1 RETURNING `+postColumns, postID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return p, err
}

func (s *PostgresStorage) AdminList(ctx context.Context) ([]*models.Post, error) {
	return s.queryPosts(ctx, `SELECT `+postColumns+` FROM posts ORDER BY created_at DESC`)
}

func (s *PostgresStorage) SetStatus(ctx context.Context, id string, status models.Status) error {
	tag, err := s.pool.Exec(ctx, `UPDATE posts SET status=$2 WHERE id=$1`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *PostgresStorage) Trending(ctx context.Context) ([]*models.Post, error) {
	return s.queryPosts(ctx, `SELECT `+postColumns+` FROM posts WHERE status=$1
		ORDER BY likes DESC, comments_count DESC`, string(models.StatusApproved))
}

func (s *PostgresStorage) CreateNotification(ctx context.Context, n *models.Notification) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notifications (id, sender_uid, receiver_uid, post_id, comment_id, type, message, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		n.ID, n.SenderUID, n.ReceiverUID, n.PostID, n.CommentID, string(n.Type), n.Message, n.Read, n.CreatedAt)
	return err
}

func (s *PostgresStorage) ListNotifications(ctx context.Context, receiverUID string) ([]*models.Notification, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, sender_uid, receiver_uid, post_id, comment_id, type, message, read, created_at
		FROM notifications
		WHERE receiver_uid=$1
		ORDER BY created_at DESC`, receiverUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []*models.Notification{}
	for rows.Next() {
		var (
			n    models.Notification
			kind string
		)
		if err := rows.Scan(&n.ID, &n.SenderUID, &n.ReceiverUID, &n.PostID, &n.CommentID, &kind, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Type = models.NotificationKind(kind)
		list = append(list, &n)
	}
	return list, rows.Err()
}

func (s *PostgresStorage) UsersByHandles(ctx context.Context, handles []string) (map[string][]string, error) {
	found := make(map[string][]string)
	if len(handles) == 0 {
		return found, nil
	}

	rows, err := s.pool.Query(ctx, `SELECT username, uid FROM users WHERE username = ANY($1)`, handles)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var handle, uid string
		if err := rows.Scan(&handle, &uid); err != nil {
			return nil, err
		}
		found[handle] = append(found[handle], uid)
	}
	return found, rows.Err()
}

func (s *PostgresStorage) TokensFor(ctx context.Context, uid string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT token FROM device_tokens WHERE uid=$1`, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tokens := []string{}
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

func (s *PostgresStorage) SetRole(ctx context.Context, uid, username, role string) (string, error) {
	if uid == "" && username != "" {
		err := s.pool.QueryRow(ctx, `SELECT uid FROM users WHERE username=$1 ORDER BY uid LIMIT 1`, username).Scan(&uid)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return "", err
		}
	}
	if uid == "" {
		return "", storage.ErrNotFound
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (uid, username, role) VALUES ($1, $2, $3)
		ON CONFLICT (uid) DO UPDATE SET role = EXCLUDED.role`, uid, username, role)
	if err != nil {
		return "", err
	}
	return uid, nil
}

func (s *PostgresStorage) Close() error {
	s.pool.Close()
	return nil
}
