package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chitram/companion/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PostRepository keeps posts and comments in two collections. Counters are
// maintained with $inc so concurrent likes and comments never lose updates.
type PostRepository struct {
	posts    *mongo.Collection
	comments *mongo.Collection
}

func NewPostRepository(client *mongo.Client, dbName, postsColl, commentsColl string) (*PostRepository, error) {
	db := client.Database(dbName)
	repo := &PostRepository{
		posts:    db.Collection(postsColl),
		comments: db.Collection(commentsColl),
	}
	if err := repo.createIndexes(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}
	return repo, nil
}

func (r *PostRepository) createIndexes(ctx context.Context) error {
	opts := options.CreateIndexes().SetMaxTime(10 * time.Second)

	_, err := r.posts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "created_at", Value: -1}},
		Options: options.Index().SetName("created_at_idx"),
	}, opts)
	if err != nil {
		return err
	}

	_, err = r.comments.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "post_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("post_id_created_at_idx"),
		},
		{
			Keys:    bson.D{{Key: "parent_id", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("parent_id_created_at_idx").SetSparse(true),
		},
	}, opts)
	return err
}

func (r *PostRepository) CreatePost(ctx context.Context, post *domain.Post) error {
	if post.LikedBy == nil {
		post.LikedBy = []string{}
	}
	if _, err := r.posts.InsertOne(ctx, post); err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}
	return nil
}

func (r *PostRepository) GetPost(ctx context.Context, id string) (*domain.Post, error) {
	var post domain.Post
	err := r.posts.FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	return &post, nil
}

func (r *PostRepository) ListPosts(ctx context.Context, offset, limit int) ([]domain.Post, int64, error) {
	total, err := r.posts.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count posts: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cursor, err := r.posts.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list posts: %w", err)
	}
	posts := []domain.Post{}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, 0, fmt.Errorf("failed to decode posts: %w", err)
	}
	return posts, total, nil
}

func (r *PostRepository) LikePost(ctx context.Context, id, username string) (*domain.Post, error) {
	var post domain.Post
	err := r.posts.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "liked_by": bson.M{"$ne": username}},
		bson.M{"$addToSet": bson.M{"liked_by": username}, "$inc": bson.M{"likes": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&post)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// Either the post is missing or the user already liked it.
		return r.GetPost(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to like post: %w", err)
	}
	return &post, nil
}

func (r *PostRepository) SharePost(ctx context.Context, id string) (*domain.Post, error) {
	var post domain.Post
	err := r.posts.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"shares": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&post)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to share post: %w", err)
	}
	return &post, nil
}

func (r *PostRepository) CreateComment(ctx context.Context, comment *domain.Comment) error {
	if comment.LikedBy == nil {
		comment.LikedBy = []string{}
	}
	if _, err := r.comments.InsertOne(ctx, comment); err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}

	var err error
	if comment.ParentID == "" {
		_, err = r.posts.UpdateByID(ctx, comment.PostID, bson.M{"$inc": bson.M{"comment_count": 1}})
	} else {
		_, err = r.comments.UpdateByID(ctx, comment.ParentID, bson.M{"$inc": bson.M{"reply_count": 1}})
	}
	if err != nil {
		return fmt.Errorf("failed to update comment counter: %w", err)
	}
	return nil
}

func (r *PostRepository) GetComment(ctx context.Context, id string) (*domain.Comment, error) {
	var comment domain.Comment
	err := r.comments.FindOne(ctx, bson.M{"_id": id}).Decode(&comment)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrCommentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find comment: %w", err)
	}
	return &comment, nil
}

func (r *PostRepository) ListComments(ctx context.Context, postID, parentID string, offset, limit int) ([]domain.Comment, int64, error) {
	filter := bson.M{"post_id": postID, "parent_id": bson.M{"$exists": false}}
	order := -1
	if parentID != "" {
		filter = bson.M{"parent_id": parentID}
		order = 1
	}

	total, err := r.comments.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count comments: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: order}, {Key: "_id", Value: order}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cursor, err := r.comments.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list comments: %w", err)
	}
	comments := []domain.Comment{}
	if err := cursor.All(ctx, &comments); err != nil {
		return nil, 0, fmt.Errorf("failed to decode comments: %w", err)
	}
	return comments, total, nil
}

func (r *PostRepository) LikeComment(ctx context.Context, id, username string) (*domain.Comment, error) {
	var comment domain.Comment
	err := r.comments.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "liked_by": bson.M{"$ne": username}},
		bson.M{"$addToSet": bson.M{"liked_by": username}, "$inc": bson.M{"likes": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&comment)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return r.GetComment(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to like comment: %w", err)
	}
	return &comment, nil
}

var _ domain.PostRepository = (*PostRepository)(nil)
