package app

import (
	"context"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chitram/companion/internal/domain"
	"github.com/chitram/companion/pkg/feed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memPosts keeps posts and comments in insertion order.
type memPosts struct {
	mu       sync.Mutex
	posts    []*domain.Post
	comments []*domain.Comment
}

func (m *memPosts) CreatePost(_ context.Context, post *domain.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := *post
	m.posts = append(m.posts, &p)
	return nil
}

func (m *memPosts) findPost(id string) *domain.Post {
	for _, p := range m.posts {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (m *memPosts) findComment(id string) *domain.Comment {
	for _, c := range m.comments {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (m *memPosts) GetPost(_ context.Context, id string) (*domain.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.findPost(id)
	if p == nil {
		return nil, domain.ErrPostNotFound
	}
	out := *p
	return &out, nil
}

func (m *memPosts) ListPosts(_ context.Context, offset, limit int) ([]domain.Post, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var newest []domain.Post
	for i := len(m.posts) - 1; i >= 0; i-- {
		newest = append(newest, *m.posts[i])
	}
	return window(newest, offset, limit), int64(len(newest)), nil
}

func (m *memPosts) LikePost(_ context.Context, id, username string) (*domain.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.findPost(id)
	if p == nil {
		return nil, domain.ErrPostNotFound
	}
	if !slices.Contains(p.LikedBy, username) {
		p.LikedBy = append(p.LikedBy, username)
		p.Likes++
	}
	out := *p
	return &out, nil
}

func (m *memPosts) SharePost(_ context.Context, id string) (*domain.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.findPost(id)
	if p == nil {
		return nil, domain.ErrPostNotFound
	}
	p.Shares++
	out := *p
	return &out, nil
}

func (m *memPosts) CreateComment(_ context.Context, comment *domain.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *comment
	m.comments = append(m.comments, &c)
	if c.ParentID == "" {
		m.findPost(c.PostID).CommentCount++
	} else {
		m.findComment(c.ParentID).ReplyCount++
	}
	return nil
}

func (m *memPosts) GetComment(_ context.Context, id string) (*domain.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.findComment(id)
	if c == nil {
		return nil, domain.ErrCommentNotFound
	}
	out := *c
	return &out, nil
}

func (m *memPosts) ListComments(_ context.Context, postID, parentID string, offset, limit int) ([]domain.Comment, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Comment
	for _, c := range m.comments {
		if c.PostID == postID && c.ParentID == parentID {
			out = append(out, *c)
		}
	}
	if parentID == "" {
		slices.Reverse(out)
	}
	return window(out, offset, limit), int64(len(out)), nil
}

func (m *memPosts) LikeComment(_ context.Context, id, username string) (*domain.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.findComment(id)
	if c == nil {
		return nil, domain.ErrCommentNotFound
	}
	if !slices.Contains(c.LikedBy, username) {
		c.LikedBy = append(c.LikedBy, username)
		c.Likes++
	}
	out := *c
	return &out, nil
}

func window[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	end := min(offset+limit, len(items))
	return items[offset:end]
}

func newTestSocial(pageSize int) *SocialService {
	svc := NewSocialService(&memPosts{}, pageSize)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		now = now.Add(time.Minute)
		return now
	}
	return svc
}

func titlesOf(posts []domain.Post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.Title)
	}
	return out
}

func TestSocialService_CreatePostValidates(t *testing.T) {
	svc := newTestSocial(10)
	ctx := context.Background()

	_, err := svc.CreatePost(ctx, "ravi", "  ", "body")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.CreatePost(ctx, "ravi", "title", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.CreatePost(ctx, "ravi", strings.Repeat("t", maxTitleLen+1), "body")
	assert.ErrorIs(t, err, ErrInvalidInput)

	post, err := svc.CreatePost(ctx, "ravi", " Pushpa 2 first look ", "Out now")
	require.NoError(t, err)
	assert.NotEmpty(t, post.ID)
	assert.Equal(t, "Pushpa 2 first look", post.Title)
	assert.Equal(t, "ravi", post.PostedBy)

	got, err := svc.Post(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.Title, got.Title)

	_, err = svc.Post(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrPostNotFound)
}

func TestSocialService_FeedPages(t *testing.T) {
	svc := newTestSocial(2)
	ctx := context.Background()

	empty, err := svc.FeedPage(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, empty.Items)
	assert.Equal(t, 1, empty.TotalPages)

	for _, title := range []string{"p1", "p2", "p3", "p4", "p5"} {
		_, err := svc.CreatePost(ctx, "ravi", title, "body")
		require.NoError(t, err)
	}

	first, err := svc.FeedPage(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"p5", "p4"}, titlesOf(first.Items))
	assert.Equal(t, 1, first.PageNumber)
	assert.Equal(t, 3, first.TotalPages)

	last, err := svc.FeedPage(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, titlesOf(last.Items))

	_, err = svc.FeedPage(ctx, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSocialService_FeedControllerSkipsShiftedPosts(t *testing.T) {
	svc := newTestSocial(2)
	ctx := context.Background()
	for _, title := range []string{"p1", "p2", "p3", "p4"} {
		_, err := svc.CreatePost(ctx, "ravi", title, "body")
		require.NoError(t, err)
	}

	c := feed.New(svc.FeedPage, domain.Post.Key)
	st := c.LoadNextPage(ctx)
	require.Equal(t, feed.Ready, st.Status)
	assert.Equal(t, []string{"p4", "p3"}, titlesOf(st.Items))

	// A new post pushes p3 onto page 2.
	_, err := svc.CreatePost(ctx, "meena", "p5", "body")
	require.NoError(t, err)

	st = c.LoadNextPage(ctx)
	assert.Equal(t, feed.Exhausted, st.Status)
	assert.Equal(t, []string{"p4", "p3", "p2"}, titlesOf(st.Items))
	assert.Equal(t, 1, st.Appended)
}

func TestSocialService_CommentsAndReplies(t *testing.T) {
	svc := newTestSocial(10)
	ctx := context.Background()

	post, err := svc.CreatePost(ctx, "ravi", "Devara review", "Mass")
	require.NoError(t, err)
	other, err := svc.CreatePost(ctx, "ravi", "Kalki review", "Epic")
	require.NoError(t, err)

	_, err = svc.Comment(ctx, "meena", "missing", "", "hi")
	assert.ErrorIs(t, err, domain.ErrPostNotFound)
	_, err = svc.Comment(ctx, "meena", post.ID, "", "   ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	first, err := svc.Comment(ctx, "meena", post.ID, "", "Loved it")
	require.NoError(t, err)
	second, err := svc.Comment(ctx, "arjun", post.ID, "", "Too long")
	require.NoError(t, err)

	reply, err := svc.Comment(ctx, "ravi", post.ID, first.ID, "Agreed")
	require.NoError(t, err)
	assert.Equal(t, first.ID, reply.ParentID)
	_, err = svc.Comment(ctx, "arjun", post.ID, first.ID, "Me too")
	require.NoError(t, err)

	_, err = svc.Comment(ctx, "arjun", post.ID, reply.ID, "nested")
	assert.ErrorIs(t, err, ErrReplyDepth)
	_, err = svc.Comment(ctx, "arjun", other.ID, first.ID, "wrong post")
	assert.ErrorIs(t, err, domain.ErrCommentNotFound)
	_, err = svc.Comment(ctx, "arjun", post.ID, "missing", "x")
	assert.ErrorIs(t, err, domain.ErrCommentNotFound)

	got, err := svc.Post(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CommentCount)

	roots, err := svc.CommentsPage(ctx, post.ID, 1)
	require.NoError(t, err)
	require.Len(t, roots.Items, 2)
	assert.Equal(t, second.ID, roots.Items[0].ID)
	assert.Equal(t, first.ID, roots.Items[1].ID)
	assert.Equal(t, 2, roots.Items[1].ReplyCount)

	replies, err := svc.RepliesPage(ctx, first.ID, 1)
	require.NoError(t, err)
	require.Len(t, replies.Items, 2)
	assert.Equal(t, "Agreed", replies.Items[0].Content)
	assert.Equal(t, "Me too", replies.Items[1].Content)

	_, err = svc.CommentsPage(ctx, "missing", 1)
	assert.ErrorIs(t, err, domain.ErrPostNotFound)
	_, err = svc.RepliesPage(ctx, "missing", 1)
	assert.ErrorIs(t, err, domain.ErrCommentNotFound)
}

func TestSocialService_LikesCountEachUserOnce(t *testing.T) {
	svc := newTestSocial(10)
	ctx := context.Background()
	post, err := svc.CreatePost(ctx, "ravi", "Salaar", "Part 2 announced")
	require.NoError(t, err)

	liked, err := svc.LikePost(ctx, "meena", post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, liked.Likes)
	liked, err = svc.LikePost(ctx, "meena", post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, liked.Likes)
	liked, err = svc.LikePost(ctx, "arjun", post.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, liked.Likes)

	shared, err := svc.SharePost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, shared.Shares)
	shared, err = svc.SharePost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, shared.Shares)

	_, err = svc.LikePost(ctx, "meena", "missing")
	assert.ErrorIs(t, err, domain.ErrPostNotFound)
	_, err = svc.SharePost(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrPostNotFound)

	comment, err := svc.Comment(ctx, "meena", post.ID, "", "Can't wait")
	require.NoError(t, err)
	c, err := svc.LikeComment(ctx, "ravi", comment.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Likes)
	c, err = svc.LikeComment(ctx, "ravi", comment.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Likes)
	_, err = svc.LikeComment(ctx, "ravi", "missing")
	assert.ErrorIs(t, err, domain.ErrCommentNotFound)
}
