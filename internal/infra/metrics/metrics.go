package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ArticlesIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "articles_ingested_total",
			Help: "The total number of articles ingested",
		},
		[]string{"source", "status"},
	)

	ArticlesUnchangedSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "articles_unchanged_skipped_total",
			Help: "Articles not republished because their content hash did not change",
		},
		[]string{"source"},
	)

	ArticlesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "articles_published_total",
			Help: "Articles published to Kafka",
		},
		[]string{"source"},
	)

	PublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "article_publish_errors_total",
			Help: "Failed article batch publishes",
		},
		[]string{"source"},
	)

	CrawlDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crawl_duration_seconds",
			Help:    "Duration of a full provider crawl",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	WorkerActiveCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_active_count",
			Help: "Number of workers currently processing jobs",
		},
	)

	DLQMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlq_messages_published_total",
			Help: "Total number of messages published to DLQ",
		},
		[]string{"source"},
	)

	NotifyDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "article_notify_duration_seconds",
			Help:    "Duration of pushing an article notification",
			Buckets: prometheus.DefBuckets,
		},
	)

	NotifyResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "article_notifications_total",
			Help: "Article notifications by outcome",
		},
		[]string{"source", "status"},
	)

	FeedPageLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_page_loads_total",
			Help: "Discovery feed page loads by feed kind and resulting status",
		},
		[]string{"feed", "status"},
	)

	SocialActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "social_actions_total",
			Help: "Community feed writes by action",
		},
		[]string{"action"},
	)

	FeedSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feed_sessions_active",
			Help: "Open discovery feed sessions",
		},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Latency of calls to third-party content APIs",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"upstream", "endpoint"},
	)

	PageCacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "page_cache_results_total",
			Help: "Upstream page cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	ListingsRefreshed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "city_listings_refreshed_total",
			Help: "City listing refreshes by outcome",
		},
		[]string{"city", "status"},
	)
)
