package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/chitram/companion/internal/app"
	"github.com/chitram/companion/internal/domain"
	"github.com/chitram/companion/internal/infra/tmdb"
	"github.com/chitram/companion/pkg/feed"
	"github.com/gorilla/mux"
)

const (
	noImage           = "No Image"
	maxArticlesLimit  = 100
	maxRequestBodyLen = 1 << 20
)

type ArticleLister interface {
	Latest(ctx context.Context, limit int) ([]domain.Article, error)
}

type CityListings interface {
	CityMovies(ctx context.Context, city string) ([]domain.CityMovie, error)
}

type Authenticator interface {
	TokenValidator
	Register(ctx context.Context, username, password, displayName string) (*domain.User, error)
	Login(ctx context.Context, username, password string) (string, *domain.User, error)
}

type Discovery interface {
	Open(owner string, kind tmdb.Kind, query string, languages []string) (app.DiscoveryPage, error)
	Next(ctx context.Context, owner, id string) (app.DiscoveryPage, error)
	Reset(owner, id string) (app.DiscoveryPage, error)
	State(owner, id string) (app.DiscoveryPage, error)
	Close(owner, id string) error
}

type Handlers struct {
	articles     ArticleLister
	listings     CityListings
	auth         Authenticator
	discovery    Discovery
	social       Social
	defaultLimit int
}

func NewHandlers(articles ArticleLister, listings CityListings, auth Authenticator, discovery Discovery, social Social, defaultLimit int) *Handlers {
	if defaultLimit <= 0 {
		defaultLimit = 20
	}
	return &Handlers{
		articles:     articles,
		listings:     listings,
		auth:         auth,
		discovery:    discovery,
		social:       social,
		defaultLimit: defaultLimit,
	}
}

// decodeBody decodes a JSON body. An empty body leaves v untouched when
// optional is set.
func decodeBody(r *http.Request, v any, optional bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodyLen))
	if err := dec.Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

type articleView struct {
	ID       string `json:"_id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	ImageURL string `json:"image_url"`
	URL      string `json:"url"`
}

func (h *Handlers) latestArticles(w http.ResponseWriter, r *http.Request) {
	limit := h.defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, r, fmt.Errorf("%w: limit must be a positive integer", errBadRequest))
			return
		}
		limit = min(n, maxArticlesLimit)
	}

	articles, err := h.articles.Latest(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	views := make([]articleView, 0, len(articles))
	for _, a := range articles {
		img := a.ImageURL
		if img == "" {
			img = noImage
		}
		views = append(views, articleView{ID: a.ID, Title: a.Title, Content: a.Content, ImageURL: img, URL: a.URL})
	}
	writeJSON(w, http.StatusOK, map[string]any{"articles": views})
}

func (h *Handlers) cityMovies(w http.ResponseWriter, r *http.Request) {
	var req struct {
		City string `json:"city"`
	}
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}

	movies, err := h.listings.CityMovies(r.Context(), req.City)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"movies": movies})
}

type credentials struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

func (h *Handlers) register(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.auth.Register(r.Context(), req.Username, req.Password, req.DisplayName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": user})
}

func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	token, user, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": user})
}

// openDiscovery starts a session and loads its first page.
func (h *Handlers) openDiscovery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query     string   `json:"query"`
		Languages []string `json:"languages"`
	}
	if err := decodeBody(r, &req, true); err != nil {
		writeError(w, r, err)
		return
	}

	owner, _ := UsernameFrom(r.Context())
	kind := tmdb.Kind(mux.Vars(r)["kind"])
	opened, err := h.discovery.Open(owner, kind, req.Query, req.Languages)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := h.discovery.Next(r.Context(), owner, opened.SessionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeDiscoveryPage(w, http.StatusCreated, page)
}

func (h *Handlers) nextDiscovery(w http.ResponseWriter, r *http.Request) {
	owner, _ := UsernameFrom(r.Context())
	page, err := h.discovery.Next(r.Context(), owner, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeDiscoveryPage(w, http.StatusOK, page)
}

func (h *Handlers) resetDiscovery(w http.ResponseWriter, r *http.Request) {
	owner, _ := UsernameFrom(r.Context())
	page, err := h.discovery.Reset(owner, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handlers) discoveryState(w http.ResponseWriter, r *http.Request) {
	owner, _ := UsernameFrom(r.Context())
	page, err := h.discovery.State(owner, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handlers) closeDiscovery(w http.ResponseWriter, r *http.Request) {
	owner, _ := UsernameFrom(r.Context())
	if err := h.discovery.Close(owner, mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeDiscoveryPage reports an upstream failure as 502 with the page body,
// so the client keeps the session id and can retry. A first page without
// results is a normal, empty answer.
func writeDiscoveryPage(w http.ResponseWriter, okStatus int, page app.DiscoveryPage) {
	status := okStatus
	if page.Status == feed.Failed && !errors.Is(page.Err, feed.ErrEmptyResult) {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, page)
}
