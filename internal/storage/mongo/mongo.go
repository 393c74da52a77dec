// Package mongo is the durable document-store backend. Comments and like
// records are kept in their own collections keyed by post id, standing in for
// per-post subcollections.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ButyrinIA/menfess/internal/models"
	"github.com/ButyrinIA/menfess/internal/storage"
)

const (
	postsColl         = "posts"
	commentsColl      = "comments"
	likesColl         = "likes"
	notificationsColl = "notifications"
	usersColl         = "users"
	tokensColl        = "fcm_tokens"
)

var ErrConnectDB = errors.New("unable to establish DB connection")

type Storage struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ storage.Storage = (*Storage)(nil)

type likeDoc struct {
	ID          string `bson:"_id"`
	models.Like `bson:",inline"`
}

type userDoc struct {
	ID       string `bson:"_id"`
	UID      string `bson:"uid"`
	Username string `bson:"username"`
	Role     string `bson:"role,omitempty"`
}

type tokenDoc struct {
	UID   string `bson:"uid"`
	Token string `bson:"token"`
}

// New connects to uri and prepares indexes in database dbName. Toggling likes
// needs multi-document transactions, so uri must point at a replica set.
func New(ctx context.Context, uri, dbName string) (*Storage, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectDB, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: %v", ErrConnectDB, err)
	}

	s := &Storage{client: client, db: client.Database(dbName)}
	if err := s.ensureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}
	log.Infof("[mongo] connected, database %s", dbName)
	return s, nil
}

func (s *Storage) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		postsColl: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "likes", Value: -1}, {Key: "comments_count", Value: -1}}},
		},
		commentsColl:      {{Keys: bson.D{{Key: "post_id", Value: 1}, {Key: "created_at", Value: 1}}}},
		likesColl:         {{Keys: bson.D{{Key: "post_id", Value: 1}}}},
		notificationsColl: {{Keys: bson.D{{Key: "receiver_uid", Value: 1}, {Key: "created_at", Value: -1}}}},
		usersColl:         {{Keys: bson.D{{Key: "username", Value: 1}}}},
		tokensColl:        {{Keys: bson.D{{Key: "uid", Value: 1}}}},
	}
	for coll, idx := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("%s: %w", coll, err)
		}
	}
	return nil
}

func (s *Storage) ListApproved(ctx context.Context) ([]*models.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return s.findPosts(ctx, bson.M{"status": models.StatusApproved}, opts)
}

func (s *Storage) CreatePost(ctx context.Context, post *models.Post) error {
	_, err := s.db.Collection(postsColl).InsertOne(ctx, post)
	return err
}

func (s *Storage) GetPost(ctx context.Context, id string) (*models.Post, error) {
	var p models.Post
	err := s.db.Collection(postsColl).FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Storage) UpdatePost(ctx context.Context, id string, edit models.PostEdit, at time.Time) error {
	res, err := s.db.Collection(postsColl).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"content":    edit.Content,
		"mood":       edit.Mood,
		"to":         edit.To,
		"updated_at": at,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// AddComment inserts the comment and then increments the post's counter.
// The two writes are not atomic: a crash between them under-counts.
func (s *Storage) AddComment(ctx context.Context, comment *models.Comment) error {
	posts := s.db.Collection(postsColl)
	n, err := posts.CountDocuments(ctx, bson.M{"_id": comment.PostID})
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}

	if _, err := s.db.Collection(commentsColl).InsertOne(ctx, comment); err != nil {
		return err
	}
	_, err = posts.UpdateOne(ctx, bson.M{"_id": comment.PostID}, bson.M{"$inc": bson.M{"comments_count": 1}})
	return err
}

func (s *Storage) ListComments(ctx context.Context, postID string) ([]*models.Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := s.db.Collection(commentsColl).Find(ctx, bson.M{"post_id": postID}, opts)
	if err != nil {
		return nil, err
	}
	var comments []models.Comment
	if err := cur.All(ctx, &comments); err != nil {
		return nil, err
	}

	result := make([]*models.Comment, len(comments))
	for i := range comments {
		result[i] = &comments[i]
	}
	return result, nil
}

// ToggleLike reads the counter and the actor's like record, flips the record
// and writes the new counter in one transaction. WithTransaction retries on
// transient write conflicts, so concurrent togglers behave as if serialized.
func (s *Storage) ToggleLike(ctx context.Context, postID, actor string) (*models.LikeResult, error) {
	if actor == "" {
		actor = models.AnonymousActor
	}

	sess, err := s.client.StartSession()
	if err != nil {
		return nil, err
	}
	defer sess.EndSession(ctx)

	out, err := sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		posts := s.db.Collection(postsColl)
		likes := s.db.Collection(likesColl)

		var post models.Post
		if err := posts.FindOne(sc, bson.M{"_id": postID}).Decode(&post); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, storage.ErrNotFound
			}
			return nil, err
		}

		res := &models.LikeResult{PostAuthor: post.AuthorUID}
		likeID := postID + "/" + actor
		del, err := likes.DeleteOne(sc, bson.M{"_id": likeID})
		if err != nil {
			return nil, err
		}
		if del.DeletedCount > 0 {
			res.Likes = max(0, post.Likes-1)
		} else {
			doc := likeDoc{ID: likeID, Like: models.Like{PostID: postID, UID: actor, LikedAt: time.Now().UTC()}}
			if _, err := likes.InsertOne(sc, doc); err != nil {
				return nil, err
			}
			res.Likes = post.Likes + 1
			res.Liked = true
		}

		if _, err := posts.UpdateOne(sc, bson.M{"_id": postID}, bson.M{"$set": bson.M{"likes": res.Likes}}); err != nil {
			return nil, err
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return out.(*models.LikeResult), nil
}

func (s *Storage) IncrementShare(ctx context.Context, postID string) (*models.Post, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p models.Post
	err := s.db.Collection(postsColl).
		FindOneAndUpdate(ctx, bson.M{"_id": postID}, bson.M{"$inc": bson.M{"shares": 1}}, opts).
		Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Storage) AdminList(ctx context.Context) ([]*models.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return s.findPosts(ctx, bson.M{}, opts)
}

func (s *Storage) SetStatus(ctx context.Context, id string, status models.Status) error {
	res, err := s.db.Collection(postsColl).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Storage) Trending(ctx context.Context) ([]*models.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "likes", Value: -1}, {Key: "comments_count", Value: -1}})
	return s.findPosts(ctx, bson.M{"status": models.StatusApproved}, opts)
}

func (s *Storage) CreateNotification(ctx context.Context, n *models.Notification) error {
	_, err := s.db.Collection(notificationsColl).InsertOne(ctx, n)
	return err
}

func (s *Storage) ListNotifications(ctx context.Context, receiverUID string) ([]*models.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.db.Collection(notificationsColl).Find(ctx, bson.M{"receiver_uid": receiverUID}, opts)
	if err != nil {
		return nil, err
	}
	var list []models.Notification
	if err := cur.All(ctx, &list); err != nil {
		return nil, err
	}

	result := make([]*models.Notification, len(list))
	for i := range list {
		result[i] = &list[i]
	}
	return result, nil
}

// UsersByHandles matches users by username. A user without an explicit uid
// field is addressed by its document id.
func (s *Storage) UsersByHandles(ctx context.Context, handles []string) (map[string][]string, error) {
	found := make(map[string][]string)
	if len(handles) == 0 {
		return found, nil
	}

	cur, err := s.db.Collection(usersColl).Find(ctx, bson.M{"username": bson.M{"$in": handles}})
	if err != nil {
		return nil, err
	}
	var users []userDoc
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	for _, u := range users {
		uid := u.UID
		if uid == "" {
			uid = u.ID
		}
		found[u.Username] = append(found[u.Username], uid)
	}
	return found, nil
}

func (s *Storage) TokensFor(ctx context.Context, uid string) ([]string, error) {
	cur, err := s.db.Collection(tokensColl).Find(ctx, bson.M{"uid": uid})
	if err != nil {
		return nil, err
	}
	var docs []tokenDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	tokens := make([]string, 0, len(docs))
	for _, d := range docs {
		if d.Token != "" {
			tokens = append(tokens, d.Token)
		}
	}
	return tokens, nil
}

// SetRole merges role into the user document, creating it when uid has none.
func (s *Storage) SetRole(ctx context.Context, uid, username, role string) (string, error) {
	users := s.db.Collection(usersColl)
	docID := uid
	if uid == "" && username != "" {
		var u userDoc
		err := users.FindOne(ctx, bson.M{"username": username}).Decode(&u)
		if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
			return "", err
		}
		docID, uid = u.ID, u.UID
		if uid == "" {
			uid = u.ID
		}
	}
	if docID == "" {
		return "", storage.ErrNotFound
	}

	_, err := users.UpdateOne(ctx, bson.M{"_id": docID}, bson.M{"$set": bson.M{"role": role}},
		options.Update().SetUpsert(true))
	if err != nil {
		return "", err
	}
	return uid, nil
}

func (s *Storage) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Storage) findPosts(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*models.Post, error) {
	cur, err := s.db.Collection(postsColl).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var posts []models.Post
	if err := cur.All(ctx, &posts); err != nil {
		return nil, err
	}

	result := make([]*models.Post, len(posts))
	for i := range posts {
		result[i] = &posts[i]
	}
	return result, nil
}
