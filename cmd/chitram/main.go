// Command chitram pages through TMDB listings from the terminal using the
// same feed controller the server keeps per discovery session.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"
	"github.com/chitram/companion/internal/domain"
	"github.com/chitram/companion/internal/infra/tmdb"
	"github.com/chitram/companion/internal/infra/upstream"
	"github.com/chitram/companion/pkg/feed"
	"github.com/joho/godotenv"
)

type Globals struct {
	BaseURL  string        `help:"TMDB API base URL." env:"TMDB_BASE_URL" default:"https://api.themoviedb.org/3"`
	Token    string        `help:"TMDB read access token." env:"TMDB_API_TOKEN"`
	Region   string        `help:"Region for release listings." env:"TMDB_REGION" default:"IN"`
	Timeout  time.Duration `help:"Per request timeout." default:"10s"`
	Pages    int           `help:"Number of pages to load." short:"p" default:"1"`
	Lang     []string      `help:"Original language codes to keep, e.g. te,hi. Now playing and top TV default to Indian languages." short:"l"`
	LogLevel string        `help:"Log level." enum:"debug,info,warn,error" default:"warn"`
}

type nowPlayingCmd struct{}

func (c *nowPlayingCmd) Run(g *Globals) error {
	return browse(g, tmdb.KindNowPlaying, "")
}

type trendingCmd struct{}

func (c *trendingCmd) Run(g *Globals) error {
	return browse(g, tmdb.KindTrending, "")
}

type searchCmd struct {
	Query string `arg:"" help:"Movie title to search for."`
}

func (c *searchCmd) Run(g *Globals) error {
	return browse(g, tmdb.KindSearch, c.Query)
}

type topTVCmd struct{}

func (c *topTVCmd) Run(g *Globals) error {
	return browse(g, tmdb.KindTopTV, "")
}

type cli struct {
	Globals `embed:""`

	NowPlaying nowPlayingCmd `cmd:"" name:"now-playing" help:"Movies in theaters now."`
	Trending   trendingCmd   `cmd:"" help:"Trending movies and series today."`
	Search     searchCmd     `cmd:"" help:"Search movies by title."`
	TopTV      topTVCmd      `cmd:"" name:"top-tv" help:"Top rated series."`
}

func main() {
	_ = godotenv.Load()

	var c cli
	ctx := kong.Parse(&c,
		kong.Name("chitram"),
		kong.Description("Browse movie and series listings page by page."),
		kong.UsageOnError(),
	)
	setupLogging(c.LogLevel)
	ctx.FatalIfErrorf(ctx.Run(&c.Globals))
}

func setupLogging(level string) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelWarn
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}

func browse(g *Globals, kind tmdb.Kind, query string) error {
	if g.Pages < 1 {
		return fmt.Errorf("--pages must be at least 1, got %d", g.Pages)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	langs := g.Lang
	if len(langs) == 0 && (kind == tmdb.KindNowPlaying || kind == tmdb.KindTopTV) {
		langs = domain.IndianLanguages
	}

	client := tmdb.NewClient(g.BaseURL, g.Token, g.Region, upstream.New("tmdb", g.Timeout))
	fetch, err := client.Fetcher(kind, query, langs)
	if err != nil {
		return err
	}

	var opts []feed.Option[domain.Title]
	if keep := domain.LanguageFilter(langs); keep != nil {
		opts = append(opts, feed.WithFilter(keep))
	}
	ctrl := feed.New(fetch, domain.Title.Key, opts...)

	st, err := loadPages(ctx, ctrl, g.Pages, os.Stdout)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%d titles, page %d of %d\n", len(st.Items), st.CurrentPage, st.TotalPages)
	return nil
}

// loadPages prints each page's new titles as it arrives and stops early once
// the listing is exhausted.
func loadPages(ctx context.Context, ctrl *feed.Controller[domain.Title, domain.TitleKey], pages int, out io.Writer) (feed.State[domain.Title], error) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	defer w.Flush()

	var st feed.State[domain.Title]
	for i := 0; i < pages; i++ {
		st = ctrl.LoadNextPage(ctx)
		if st.Status == feed.Failed {
			if errors.Is(st.Err, feed.ErrEmptyResult) {
				return st, nil
			}
			return st, st.Err
		}
		for _, t := range st.NewItems() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.1f\t%s\n", t.MediaType, t.Name, t.OriginalLanguage, t.VoteAverage, t.ReleaseDate)
		}
		if st.Status == feed.Exhausted {
			break
		}
	}
	return st, nil
}
