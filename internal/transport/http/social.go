package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/chitram/companion/internal/domain"
	"github.com/chitram/companion/pkg/feed"
	"github.com/gorilla/mux"
)

type Social interface {
	FeedPage(ctx context.Context, page int) (feed.Page[domain.Post], error)
	Post(ctx context.Context, id string) (*domain.Post, error)
	CreatePost(ctx context.Context, author, title, body string) (*domain.Post, error)
	LikePost(ctx context.Context, username, id string) (*domain.Post, error)
	SharePost(ctx context.Context, id string) (*domain.Post, error)
	Comment(ctx context.Context, author, postID, parentID, content string) (*domain.Comment, error)
	CommentsPage(ctx context.Context, postID string, page int) (feed.Page[domain.Comment], error)
	RepliesPage(ctx context.Context, commentID string, page int) (feed.Page[domain.Comment], error)
	LikeComment(ctx context.Context, username, id string) (*domain.Comment, error)
}

type pageView[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	TotalPages int `json:"total_pages"`
}

func pageParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("page")
	if raw == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: page must be a positive integer", errBadRequest)
	}
	return n, nil
}

func writePage[T any](w http.ResponseWriter, p feed.Page[T]) {
	writeJSON(w, http.StatusOK, pageView[T]{Items: p.Items, Page: p.PageNumber, TotalPages: p.TotalPages})
}

func (h *Handlers) feedPage(w http.ResponseWriter, r *http.Request) {
	page, err := pageParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.social.FeedPage(r.Context(), page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePage(w, p)
}

func (h *Handlers) getPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.social.Post(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *Handlers) createPost(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	author, _ := UsernameFrom(r.Context())
	post, err := h.social.CreatePost(r.Context(), author, req.Title, req.Body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (h *Handlers) likePost(w http.ResponseWriter, r *http.Request) {
	username, _ := UsernameFrom(r.Context())
	post, err := h.social.LikePost(r.Context(), username, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *Handlers) sharePost(w http.ResponseWriter, r *http.Request) {
	post, err := h.social.SharePost(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// addComment posts a comment, or a reply when parent_id is given.
func (h *Handlers) addComment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content  string `json:"content"`
		ParentID string `json:"parent_id"`
	}
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	author, _ := UsernameFrom(r.Context())
	comment, err := h.social.Comment(r.Context(), author, mux.Vars(r)["id"], req.ParentID, req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (h *Handlers) listComments(w http.ResponseWriter, r *http.Request) {
	page, err := pageParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.social.CommentsPage(r.Context(), mux.Vars(r)["id"], page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePage(w, p)
}

func (h *Handlers) listReplies(w http.ResponseWriter, r *http.Request) {
	page, err := pageParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.social.RepliesPage(r.Context(), mux.Vars(r)["id"], page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePage(w, p)
}

func (h *Handlers) likeComment(w http.ResponseWriter, r *http.Request) {
	username, _ := UsernameFrom(r.Context())
	comment, err := h.social.LikeComment(r.Context(), username, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}
