package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// SourceConfig describes one news source crawled into latest-articles.
type SourceConfig struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Transformer string `json:"transformer"`
	// PageParam is the query parameter carrying the page number. Empty means
	// the source is a single page (e.g. an RSS feed).
	PageParam string `json:"page_param,omitempty"`
	MaxPages  int    `json:"max_pages,omitempty"`
}

// Config is loaded once at startup and handed to every component that needs it.
// Nothing mutates it afterwards.
type Config struct {
	ServerPort string

	MongoURI        string
	MongoDBName     string
	MongoColl       string
	ListingsColl    string
	UsersColl       string
	PostsColl       string
	CommentsColl    string
	KafkaBrokers    []string
	KafkaTopic      string
	KafkaDLQTopic   string
	RedisURL        string
	PageCacheTTL    time.Duration
	OTLPEndpoint    string
	SourcesFilePath string
	Sources         []SourceConfig

	PollInterval   time.Duration
	BatchSize      int
	WorkerPoolSize int

	TMDBBaseURL  string
	TMDBToken    string
	TMDBRegion   string
	TMDBTimeout  time.Duration
	FeedLanguage []string

	ListingsURL      string
	ListingsCities   []string
	ListingsInterval time.Duration

	LatestArticlesLimit int
	FeedPageSize        int

	DiscoverySessionTTL time.Duration
	MaxDiscoverySession int

	JWTSecret string
	JWTIssuer string
	JWTTTL    time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort: getEnv("SERVER_PORT", "8090"),

		MongoURI:        getEnv("MONGO_URI", "mongodb://mongodb:27017"),
		MongoDBName:     getEnv("MONGO_DB_NAME", "chitram"),
		MongoColl:       getEnv("MONGO_COLLECTION", "articles"),
		ListingsColl:    getEnv("MONGO_LISTINGS_COLLECTION", "city_listings"),
		UsersColl:       getEnv("MONGO_USERS_COLLECTION", "users"),
		PostsColl:       getEnv("MONGO_POSTS_COLLECTION", "posts"),
		CommentsColl:    getEnv("MONGO_COMMENTS_COLLECTION", "comments"),
		KafkaBrokers:    getListEnv("KAFKA_BROKERS", []string{"kafka:29092"}),
		KafkaTopic:      getEnv("KAFKA_TOPIC", "movie_articles"),
		KafkaDLQTopic:   getEnv("KAFKA_DLQ_TOPIC", "movie_articles_dlq"),
		RedisURL:        getEnv("REDIS_URL", ""),
		PageCacheTTL:    getDurationEnv("PAGE_CACHE_TTL", 10*time.Minute),
		OTLPEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel-collector:4317"),
		SourcesFilePath: getEnv("SOURCES_FILE_PATH", "config/sources.json"),

		PollInterval:   getDurationEnv("POLL_INTERVAL", 5*time.Minute),
		BatchSize:      getIntEnv("BATCH_SIZE", 20),
		WorkerPoolSize: getIntEnv("WORKER_POOL_SIZE", 4),

		TMDBBaseURL:  getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		TMDBToken:    getEnv("TMDB_API_TOKEN", ""),
		TMDBRegion:   getEnv("TMDB_REGION", "IN"),
		TMDBTimeout:  getDurationEnv("TMDB_TIMEOUT", 10*time.Second),
		FeedLanguage: getListEnv("FEED_LANGUAGES", nil),

		ListingsURL:      getEnv("LISTINGS_URL", ""),
		ListingsCities:   getListEnv("LISTINGS_CITIES", []string{"hyderabad"}),
		ListingsInterval: getDurationEnv("LISTINGS_INTERVAL", 30*time.Minute),

		LatestArticlesLimit: getIntEnv("LATEST_ARTICLES_LIMIT", 20),
		FeedPageSize:        getIntEnv("FEED_PAGE_SIZE", 10),

		DiscoverySessionTTL: getDurationEnv("DISCOVERY_SESSION_TTL", 15*time.Minute),
		MaxDiscoverySession: getIntEnv("DISCOVERY_MAX_SESSIONS", 10000),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "chitram-companion"),
		JWTTTL:    getDurationEnv("JWT_TTL", 24*time.Hour),
	}
	cfg.Sources = loadSources(cfg.SourcesFilePath)
	return cfg
}

func loadSources(path string) []SourceConfig {
	// If path doesn't exist, try fallback for convenience during dev/test if default was used
	if _, err := os.Stat(path); os.IsNotExist(err) && path == "config/sources.json" {
		fallback := "../config/sources.json"
		if _, err := os.Stat(fallback); err == nil {
			path = fallback
		}
	}

	file, err := os.Open(path)
	if err != nil {
		slog.Warn("Could not open sources file, using default RSS source", "path", path, "error", err)
		return []SourceConfig{
			{
				Name:        "default-rss",
				URL:         getEnv("NEWS_RSS_URL", "https://www.filmibeat.com/rss/feeds/filmibeat-fb.xml"),
				Transformer: "rss",
			},
		}
	}
	defer func() {
		if err := file.Close(); err != nil {
			slog.Warn("Failed to close sources file", "error", err)
		}
	}()

	var sources []SourceConfig
	if err := json.NewDecoder(file).Decode(&sources); err != nil {
		slog.Error("Error decoding sources file", "path", path, "error", err)
		return nil
	}
	return sources
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		// Try parsing as duration string (e.g. "1m", "60s")
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		// Try parsing as integer seconds
		if i, err := strconv.Atoi(value); err == nil {
			return time.Duration(i) * time.Second
		}
	}
	return fallback
}

// getListEnv parses a comma-separated list, dropping blanks.
func getListEnv(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
