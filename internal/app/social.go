package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/chitram/companion/internal/domain"
	"github.com/chitram/companion/internal/infra/metrics"
	"github.com/chitram/companion/pkg/feed"
	"github.com/google/uuid"
)

var ErrReplyDepth = errors.New("replies cannot be nested")

const (
	maxTitleLen   = 200
	maxBodyLen    = 5000
	maxCommentLen = 2000
)

// SocialService runs the community feed: posts with likes and shares,
// comments on posts and one level of replies to comments. Every list is
// served as numbered pages so clients page it with a feed.Controller.
type SocialService struct {
	repo     domain.PostRepository
	pageSize int
	now      func() time.Time
}

func NewSocialService(repo domain.PostRepository, pageSize int) *SocialService {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &SocialService{repo: repo, pageSize: pageSize, now: time.Now}
}

// FeedPage returns one page of posts, newest first. It has the shape of a
// feed.FetchFunc.
func (s *SocialService) FeedPage(ctx context.Context, page int) (feed.Page[domain.Post], error) {
	return listPage(page, s.pageSize, func(offset, limit int) ([]domain.Post, int64, error) {
		return s.repo.ListPosts(ctx, offset, limit)
	})
}

func (s *SocialService) Post(ctx context.Context, id string) (*domain.Post, error) {
	return s.repo.GetPost(ctx, id)
}

func (s *SocialService) CreatePost(ctx context.Context, author, title, body string) (*domain.Post, error) {
	title, body = strings.TrimSpace(title), strings.TrimSpace(body)
	if title == "" || body == "" {
		return nil, fmt.Errorf("%w: title and body are required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(title) > maxTitleLen || utf8.RuneCountInString(body) > maxBodyLen {
		return nil, fmt.Errorf("%w: post too long", ErrInvalidInput)
	}

	post := &domain.Post{
		ID:        uuid.NewString(),
		Title:     title,
		Body:      body,
		PostedBy:  author,
		LikedBy:   []string{},
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
	}
	if err := s.repo.CreatePost(ctx, post); err != nil {
		return nil, err
	}
	metrics.SocialActions.WithLabelValues("post").Inc()
	slog.Info("Post created", "post_id", post.ID, "author", author)
	return post, nil
}

func (s *SocialService) LikePost(ctx context.Context, username, id string) (*domain.Post, error) {
	post, err := s.repo.LikePost(ctx, id, username)
	if err != nil {
		return nil, err
	}
	metrics.SocialActions.WithLabelValues("like").Inc()
	return post, nil
}

func (s *SocialService) SharePost(ctx context.Context, id string) (*domain.Post, error) {
	post, err := s.repo.SharePost(ctx, id)
	if err != nil {
		return nil, err
	}
	metrics.SocialActions.WithLabelValues("share").Inc()
	return post, nil
}

// Comment adds a comment to a post, or a reply when parentID names one of
// the post's top-level comments. Replies to replies are rejected.
func (s *SocialService) Comment(ctx context.Context, author, postID, parentID, content string) (*domain.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: comment is empty", ErrInvalidInput)
	}
	if utf8.RuneCountInString(content) > maxCommentLen {
		return nil, fmt.Errorf("%w: comment too long", ErrInvalidInput)
	}

	if _, err := s.repo.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	action := "comment"
	if parentID != "" {
		parent, err := s.repo.GetComment(ctx, parentID)
		if err != nil {
			return nil, err
		}
		if parent.PostID != postID {
			return nil, domain.ErrCommentNotFound
		}
		if parent.ParentID != "" {
			return nil, ErrReplyDepth
		}
		action = "reply"
	}

	comment := &domain.Comment{
		ID:        uuid.NewString(),
		PostID:    postID,
		ParentID:  parentID,
		Author:    author,
		Content:   content,
		LikedBy:   []string{},
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
	}
	if err := s.repo.CreateComment(ctx, comment); err != nil {
		return nil, err
	}
	metrics.SocialActions.WithLabelValues(action).Inc()
	slog.Info("Comment created", "comment_id", comment.ID, "post_id", postID, "parent_id", parentID, "author", author)
	return comment, nil
}

// CommentsPage returns one page of a post's top-level comments, newest first.
func (s *SocialService) CommentsPage(ctx context.Context, postID string, page int) (feed.Page[domain.Comment], error) {
	if _, err := s.repo.GetPost(ctx, postID); err != nil {
		return feed.Page[domain.Comment]{}, err
	}
	return listPage(page, s.pageSize, func(offset, limit int) ([]domain.Comment, int64, error) {
		return s.repo.ListComments(ctx, postID, "", offset, limit)
	})
}

// RepliesPage returns one page of replies to a comment, oldest first.
func (s *SocialService) RepliesPage(ctx context.Context, commentID string, page int) (feed.Page[domain.Comment], error) {
	parent, err := s.repo.GetComment(ctx, commentID)
	if err != nil {
		return feed.Page[domain.Comment]{}, err
	}
	return listPage(page, s.pageSize, func(offset, limit int) ([]domain.Comment, int64, error) {
		return s.repo.ListComments(ctx, parent.PostID, commentID, offset, limit)
	})
}

func (s *SocialService) LikeComment(ctx context.Context, username, id string) (*domain.Comment, error) {
	comment, err := s.repo.LikeComment(ctx, id, username)
	if err != nil {
		return nil, err
	}
	metrics.SocialActions.WithLabelValues("comment_like").Inc()
	return comment, nil
}

// listPage turns an offset query into a numbered page. An empty list still
// has one (empty) page.
func listPage[T any](page, size int, list func(offset, limit int) ([]T, int64, error)) (feed.Page[T], error) {
	if page < 1 {
		return feed.Page[T]{}, fmt.Errorf("%w: page must be at least 1", ErrInvalidInput)
	}
	items, total, err := list((page-1)*size, size)
	if err != nil {
		return feed.Page[T]{}, err
	}
	totalPages := int((total + int64(size) - 1) / int64(size))
	if totalPages < 1 {
		totalPages = 1
	}
	if items == nil {
		items = []T{}
	}
	return feed.Page[T]{Items: items, PageNumber: page, TotalPages: totalPages}, nil
}
