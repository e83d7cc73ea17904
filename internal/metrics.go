package internal

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var durationBuckets = []float64{
	0.001, 0.005, 0.01, 0.05, 0.1, 0.5, // ms
	1, 2, 3, 4, 5, // seconds
	10, 15, 20, // seconds
}

var (
	// Server wide
	TotalRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ss_total_requests",
		Help: "The total number of requests.",
	})
	RequestsProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ss_requests_processing_duration_seconds",
		Help:    "The duration of requests in seconds.",
		Buckets: durationBuckets,
	})
	Http400Errors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ss_400_errors",
		Help: "The total number of HTTP 4xx client errors.",
	})
	Http500Errors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ss_500_errors",
		Help: "The total number of HTTP 5xx server errors.",
	})

	SearchRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ss_search_requests",
		Help: "The number of GET /api/search requests.",
	})
	SearchProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ss_search_processing_duration_seconds",
		Help:    "The duration of GET /api/search requests in seconds.",
		Buckets: durationBuckets,
	})
	FuzzySearches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ss_fuzzy_searches",
		Help: "The number of searches served by the fuzzy fallback scan.",
	})

	ListFilesRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ss_list_files_requests",
		Help: "The number of GET /api/files requests.",
	})
	GetTranscriptRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ss_get_transcript_requests",
		Help: "The number of GET /api/transcript/:basename requests.",
	})
	GetTranscriptProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ss_get_transcript_processing_duration_seconds",
		Help:    "The duration of GET /api/transcript/:basename requests in seconds.",
		Buckets: durationBuckets,
	})

	// Indexing
	ReindexRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ss_reindex_requests",
		Help: "The number of POST /api/reindex requests.",
	})
	ReindexRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ss_reindex_rejected",
		Help: "The number of reindex triggers rejected because a run was in flight.",
	})
	IndexedVideos = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ss_indexed_videos",
		Help: "The number of videos loaded by the last reindex run.",
	})

	// Other
	MemoryUsage = promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "ss_memory_usage_bytes",
		Help: "The current memory usage.",
	},
		func() float64 {
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			return float64(m.Alloc)
		},
	)
)
