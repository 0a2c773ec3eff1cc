package http

import (
	"net/http"
	"time"

	"github.com/chitram/companion/pkg/config"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(h *Handlers) http.Handler {
	r := mux.NewRouter()
	r.Use(recoverPanics, logRequests)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler())

	r.HandleFunc("/latest-articles", h.latestArticles).Methods(http.MethodGet)
	r.HandleFunc("/city-movies", h.cityMovies).Methods(http.MethodPost)
	r.HandleFunc("/auth/register", h.register).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)

	r.HandleFunc("/feed", h.feedPage).Methods(http.MethodGet)
	r.HandleFunc("/posts/{id}", h.getPost).Methods(http.MethodGet)
	r.HandleFunc("/posts/{id}/comments", h.listComments).Methods(http.MethodGet)
	r.HandleFunc("/comments/{id}/replies", h.listReplies).Methods(http.MethodGet)

	authed := requireAuth(h.auth)
	r.Handle("/posts", authed(http.HandlerFunc(h.createPost))).Methods(http.MethodPost)
	r.Handle("/posts/{id}/like", authed(http.HandlerFunc(h.likePost))).Methods(http.MethodPost)
	r.Handle("/posts/{id}/share", authed(http.HandlerFunc(h.sharePost))).Methods(http.MethodPost)
	r.Handle("/posts/{id}/comments", authed(http.HandlerFunc(h.addComment))).Methods(http.MethodPost)
	r.Handle("/comments/{id}/like", authed(http.HandlerFunc(h.likeComment))).Methods(http.MethodPost)

	d := r.PathPrefix("/discover").Subrouter()
	d.Use(authed)
	d.HandleFunc("/sessions/{id}", h.discoveryState).Methods(http.MethodGet)
	d.HandleFunc("/sessions/{id}", h.closeDiscovery).Methods(http.MethodDelete)
	d.HandleFunc("/sessions/{id}/next", h.nextDiscovery).Methods(http.MethodPost)
	d.HandleFunc("/sessions/{id}/reset", h.resetDiscovery).Methods(http.MethodPost)
	d.HandleFunc("/{kind}", h.openDiscovery).Methods(http.MethodPost)

	return r
}

func NewHTTPServer(cfg *config.Config, h *Handlers) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           NewRouter(h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
