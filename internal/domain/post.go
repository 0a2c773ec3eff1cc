package domain

import (
	"context"
	"time"
)

// Post is an entry in the community feed.
type Post struct {
	ID           string    `json:"id" bson:"_id"`
	Title        string    `json:"title" bson:"title"`
	Body         string    `json:"body" bson:"body"`
	PostedBy     string    `json:"posted_by" bson:"posted_by"`
	Likes        int       `json:"likes" bson:"likes"`
	Shares       int       `json:"shares" bson:"shares"`
	CommentCount int       `json:"comment_count" bson:"comment_count"`
	LikedBy      []string  `json:"-" bson:"liked_by"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}

func (p Post) Key() string { return p.ID }

// Comment is a top-level comment on a post, or a reply to one when ParentID
// is set. Replies do not nest further.
type Comment struct {
	ID         string    `json:"id" bson:"_id"`
	PostID     string    `json:"post_id" bson:"post_id"`
	ParentID   string    `json:"parent_id,omitempty" bson:"parent_id,omitempty"`
	Author     string    `json:"author" bson:"author"`
	Content    string    `json:"content" bson:"content"`
	Likes      int       `json:"likes" bson:"likes"`
	ReplyCount int       `json:"reply_count" bson:"reply_count"`
	LikedBy    []string  `json:"-" bson:"liked_by"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}

func (c Comment) Key() string { return c.ID }

// PostRepository persists the community feed.
//
// ListPosts returns newest first. ListComments returns a post's top-level
// comments newest first when parentID is empty, and a comment's replies
// oldest first otherwise. Both also return the total matching count.
//
// CreateComment bumps the post's CommentCount for a top-level comment and
// the parent's ReplyCount for a reply. LikePost and LikeComment count each
// user once and return the stored document after the update.
type PostRepository interface {
	CreatePost(ctx context.Context, post *Post) error
	GetPost(ctx context.Context, id string) (*Post, error)
	ListPosts(ctx context.Context, offset, limit int) ([]Post, int64, error)
	LikePost(ctx context.Context, id, username string) (*Post, error)
	SharePost(ctx context.Context, id string) (*Post, error)

	CreateComment(ctx context.Context, comment *Comment) error
	GetComment(ctx context.Context, id string) (*Comment, error)
	ListComments(ctx context.Context, postID, parentID string, offset, limit int) ([]Comment, int64, error)
	LikeComment(ctx context.Context, id, username string) (*Comment, error)
}
