// Command mock-feed serves canned TMDB, movie news and showtimes responses
// for local runs of the companion server.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
)

const (
	newsPages  = 3
	titlePages = 2
)

func main() {
	addr := ":8081"
	if port := os.Getenv("MOCK_FEED_PORT"); port != "" {
		addr = ":" + port
	}

	r := mux.NewRouter()
	r.HandleFunc("/news", newsHandler).Methods(http.MethodGet)
	r.HandleFunc("/rss", rssHandler).Methods(http.MethodGet)
	r.HandleFunc("/showtimes/{city}", showtimesHandler).Methods(http.MethodGet)
	r.HandleFunc("/3/movie/now_playing", titlesHandler("movie")).Methods(http.MethodGet)
	r.HandleFunc("/3/search/movie", titlesHandler("movie")).Methods(http.MethodGet)
	r.HandleFunc("/3/tv/top_rated", titlesHandler("tv")).Methods(http.MethodGet)
	r.HandleFunc("/3/trending/all/day", titlesHandler("")).Methods(http.MethodGet)

	slog.Info("Mock feed server running", "address", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// newsHandler pages through articles the newsjson transformer reads.
func newsHandler(w http.ResponseWriter, r *http.Request) {
	page := pageParam(r)
	articles := []map[string]any{}
	if page <= newsPages {
		for i := 1; i <= 2; i++ {
			id := fmt.Sprintf("%d0%d", page, i)
			articles = append(articles, map[string]any{
				"_id":          id,
				"title":        fmt.Sprintf("Box office update %s", id),
				"content":      "Opening weekend numbers are in for this week's releases.",
				"image_url":    "https://example.com/img/" + id + ".jpg",
				"url":          "https://example.com/news/" + id,
				"categories":   []string{"box-office"},
				"published_at": time.Now().Add(-time.Duration(page*i) * time.Hour).Format(time.RFC3339),
			})
		}
	}
	writeJSON(w, map[string]any{"articles": articles, "page": page, "total_pages": newsPages})
}

func rssHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/rss+xml")
	now := time.Now().UTC().Format(time.RFC1123Z)
	_, _ = fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<title>Mock Movie News</title>
<link>https://example.com</link>
<item>
  <guid>rss-1</guid>
  <title>Trailer out for the festival release</title>
  <link>https://example.com/rss/1</link>
  <description>The makers unveiled the trailer on Sunday.</description>
  <enclosure url="https://example.com/img/rss-1.jpg" type="image/jpeg" length="0"/>
  <pubDate>%s</pubDate>
</item>
<item>
  <guid>rss-2</guid>
  <title>Shooting wraps for the sequel</title>
  <link>https://example.com/rss/2</link>
  <description>Post production starts next month.</description>
  <pubDate>%s</pubDate>
</item>
</channel></rss>`, now, now)
}

func showtimesHandler(w http.ResponseWriter, r *http.Request) {
	city := strings.ToLower(mux.Vars(r)["city"])
	movies := []map[string]any{}
	if city == "hyderabad" || city == "chennai" {
		movies = append(movies,
			map[string]any{"name": "Devara", "poster": "https://example.com/p/devara.jpg", "rating": "7.1", "languages": []string{"Telugu", "Hindi"}},
			map[string]any{"name": "Amaran", "poster": "https://example.com/p/amaran.jpg", "rating": "8.4", "languages": []string{"Tamil"}},
		)
	}
	writeJSON(w, map[string]any{"movies": movies})
}

// titlesHandler answers TMDB list endpoints. An empty media type produces a
// mixed trending list that also carries a person entry.
func titlesHandler(media string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := pageParam(r)
		results := []map[string]any{}
		if page <= titlePages {
			langs := []string{"te", "hi", "ta", "en"}
			for i, lang := range langs {
				id := page*100 + i
				mt := media
				if mt == "" {
					mt = []string{"movie", "tv"}[i%2]
				}
				item := map[string]any{
					"id":                id,
					"media_type":        mt,
					"original_language": lang,
					"vote_average":      6.5 + float64(i)/2,
					"poster_path":       fmt.Sprintf("/poster%d.jpg", id),
				}
				if mt == "tv" {
					item["name"] = fmt.Sprintf("Series %d", id)
					item["first_air_date"] = "2024-01-15"
				} else {
					item["title"] = fmt.Sprintf("Movie %d", id)
					item["release_date"] = "2024-10-10"
				}
				results = append(results, item)
			}
			if media == "" {
				results = append(results, map[string]any{"id": 9000 + page, "media_type": "person", "name": "Somebody"})
			}
		}
		writeJSON(w, map[string]any{"page": page, "total_pages": titlePages, "results": results})
	}
}
