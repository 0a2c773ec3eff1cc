package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chitram/companion/internal/domain"
	"github.com/chitram/companion/internal/infra/metrics"
	"github.com/chitram/companion/internal/infra/tmdb"
	"github.com/chitram/companion/pkg/feed"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrSessionNotFound = errors.New("discovery session not found")
	ErrInvalidFeed     = errors.New("invalid discovery feed")
	ErrTooManySessions = errors.New("too many open discovery sessions")
)

// FetcherFactory builds the page source of a discovery feed.
type FetcherFactory func(kind tmdb.Kind, query string, langs []string) (feed.FetchFunc[domain.Title], error)

// DiscoveryPage is what a client receives after opening, advancing or
// resetting a session. Items holds only the titles appended by that call.
type DiscoveryPage struct {
	SessionID   string         `json:"session_id"`
	Kind        tmdb.Kind      `json:"kind"`
	Query       string         `json:"query,omitempty"`
	Languages   []string       `json:"languages,omitempty"`
	Status      feed.Status    `json:"status"`
	Items       []domain.Title `json:"items"`
	Loaded      int            `json:"loaded"`
	CurrentPage int            `json:"current_page"`
	TotalPages  int            `json:"total_pages"`
	Error       string         `json:"error,omitempty"`

	// Err is the typed feed error behind Error.
	Err error `json:"-"`
}

type discoverySession struct {
	id        string
	owner     string
	kind      tmdb.Kind
	query     string
	languages []string
	ctrl      *feed.Controller[domain.Title, domain.TitleKey]
	lastUsed  time.Time
}

// DiscoveryService holds one feed.Controller per open browsing session, so a
// client pages through now-playing, trending, search or top TV results with
// duplicates removed and its position kept on the server.
type DiscoveryService struct {
	mu           sync.Mutex
	sessions     map[string]*discoverySession
	fetchers     FetcherFactory
	defaultLangs []string
	ttl          time.Duration
	maxSessions  int
	now          func() time.Time
}

func NewDiscoveryService(fetchers FetcherFactory, defaultLangs []string, ttl time.Duration, maxSessions int) *DiscoveryService {
	if len(defaultLangs) == 0 {
		defaultLangs = domain.IndianLanguages
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if maxSessions <= 0 {
		maxSessions = 10000
	}
	return &DiscoveryService{
		sessions:     make(map[string]*discoverySession),
		fetchers:     fetchers,
		defaultLangs: defaultLangs,
		ttl:          ttl,
		maxSessions:  maxSessions,
		now:          time.Now,
	}
}

// Open starts a new session owned by owner. Nothing is fetched until Next.
// Now playing and top TV default to the configured languages; trending and
// search are unfiltered unless languages are given.
func (s *DiscoveryService) Open(owner string, kind tmdb.Kind, query string, languages []string) (DiscoveryPage, error) {
	langs := cleanLanguages(languages)
	if len(langs) == 0 && (kind == tmdb.KindNowPlaying || kind == tmdb.KindTopTV) {
		langs = s.defaultLangs
	}

	fetch, err := s.fetchers(kind, query, langs)
	if err != nil {
		return DiscoveryPage{}, fmt.Errorf("%w: %v", ErrInvalidFeed, err)
	}

	var opts []feed.Option[domain.Title]
	if keep := domain.LanguageFilter(langs); keep != nil {
		opts = append(opts, feed.WithFilter(keep))
	}

	sess := &discoverySession{
		id:        uuid.NewString(),
		owner:     owner,
		kind:      kind,
		query:     strings.TrimSpace(query),
		languages: langs,
		ctrl:      feed.New(fetch, domain.Title.Key, opts...),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sessions) >= s.maxSessions {
		s.sweepLocked()
		if len(s.sessions) >= s.maxSessions {
			return DiscoveryPage{}, ErrTooManySessions
		}
	}
	sess.lastUsed = s.now()
	s.sessions[sess.id] = sess
	metrics.FeedSessionsActive.Set(float64(len(s.sessions)))

	slog.Info("Discovery session opened", "session_id", sess.id, "owner", owner, "kind", kind, "languages", langs)
	return sess.view(sess.ctrl.State()), nil
}

// Next loads the session's next page. A failed page is reported in the
// returned page, not as an error; calling Next again retries it.
func (s *DiscoveryService) Next(ctx context.Context, owner, id string) (DiscoveryPage, error) {
	sess, err := s.touch(owner, id)
	if err != nil {
		return DiscoveryPage{}, err
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "discovery.next")
	defer span.End()
	span.SetAttributes(attribute.String("kind", string(sess.kind)))

	st := sess.ctrl.LoadNextPage(ctx)
	span.SetAttributes(attribute.Int("page", st.CurrentPage), attribute.String("status", st.Status.String()))
	metrics.FeedPageLoads.WithLabelValues(string(sess.kind), st.Status.String()).Inc()
	if st.Err != nil {
		span.RecordError(st.Err)
		slog.Warn("Discovery page failed", "session_id", id, "kind", sess.kind, "page", st.CurrentPage+1, "error", st.Err)
	}
	return sess.view(st), nil
}

// Reset discards everything the session loaded. Pages still in flight are
// dropped when they arrive.
func (s *DiscoveryService) Reset(owner, id string) (DiscoveryPage, error) {
	sess, err := s.touch(owner, id)
	if err != nil {
		return DiscoveryPage{}, err
	}
	return sess.view(sess.ctrl.Reset()), nil
}

// State returns the session's accumulated titles without fetching.
func (s *DiscoveryService) State(owner, id string) (DiscoveryPage, error) {
	sess, err := s.touch(owner, id)
	if err != nil {
		return DiscoveryPage{}, err
	}
	st := sess.ctrl.State()
	page := sess.view(st)
	if st.Items != nil {
		page.Items = st.Items
	}
	return page, nil
}

func (s *DiscoveryService) Close(owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; !ok || sess.owner != owner {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	metrics.FeedSessionsActive.Set(float64(len(s.sessions)))
	return nil
}

// Len returns the number of open sessions.
func (s *DiscoveryService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Run expires idle sessions until ctx is cancelled.
func (s *DiscoveryService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			if n := s.sweepLocked(); n > 0 {
				slog.Info("Expired discovery sessions", "count", n, "open", len(s.sessions))
			}
			s.mu.Unlock()
		}
	}
}

func (s *DiscoveryService) sweepLocked() int {
	cutoff := s.now().Add(-s.ttl)
	expired := 0
	for id, sess := range s.sessions {
		if sess.lastUsed.Before(cutoff) {
			delete(s.sessions, id)
			expired++
		}
	}
	metrics.FeedSessionsActive.Set(float64(len(s.sessions)))
	return expired
}

// touch returns the session if owner opened it. Another user's session is
// reported as not found.
func (s *DiscoveryService) touch(owner, id string) (*discoverySession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || sess.owner != owner {
		return nil, ErrSessionNotFound
	}
	sess.lastUsed = s.now()
	return sess, nil
}

func (sess *discoverySession) view(st feed.State[domain.Title]) DiscoveryPage {
	p := DiscoveryPage{
		SessionID:   sess.id,
		Kind:        sess.kind,
		Query:       sess.query,
		Languages:   sess.languages,
		Status:      st.Status,
		Items:       st.NewItems(),
		Loaded:      len(st.Items),
		CurrentPage: st.CurrentPage,
		TotalPages:  st.TotalPages,
		Err:         st.Err,
	}
	if p.Items == nil {
		p.Items = []domain.Title{}
	}
	if st.Err != nil {
		p.Error = st.Err.Error()
	}
	return p
}

func cleanLanguages(in []string) []string {
	out := make([]string, 0, len(in))
	for _, l := range in {
		l = strings.ToLower(strings.TrimSpace(l))
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}
