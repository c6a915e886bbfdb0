// Package metrics provides Prometheus instrumentation for the marketplace engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ListingsCreated counts listings created.
	ListingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "market_listings_created_total",
		Help: "Total number of listings created",
	})

	// ListingsSold counts listings fulfilled.
	ListingsSold = promauto.NewCounter(prometheus.CounterOpts{
		Name: "market_listings_sold_total",
		Help: "Total number of listings sold",
	})

	// ListingsCancelled counts listings withdrawn by their seller.
	ListingsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "market_listings_cancelled_total",
		Help: "Total number of listings cancelled",
	})

	// AuctionsCreated counts auctions created.
	AuctionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "market_auctions_created_total",
		Help: "Total number of auctions created",
	})

	// BidsTotal counts accepted bids.
	BidsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "market_bids_total",
		Help: "Total number of accepted bids",
	})

	// AuctionsSettled counts settlements, partitioned by outcome.
	AuctionsSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "market_auctions_settled_total",
		Help: "Total number of auctions settled",
	}, []string{"outcome"})

	// TradeVolume accumulates settled trade amounts per currency.
	TradeVolume = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "market_trade_volume_total",
		Help: "Cumulative settled trade volume in smallest currency units",
	}, []string{"currency"})

	// ActiveListings tracks currently active listings.
	ActiveListings = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "market_active_listings",
		Help: "Number of currently active listings",
	})

	// ActiveAuctions tracks currently active auctions.
	ActiveAuctions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "market_active_auctions",
		Help: "Number of currently active auctions",
	})

	// ReentrancyRejections counts calls rejected by the entry guard.
	ReentrancyRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "market_reentrancy_rejections_total",
		Help: "Mutating calls rejected while another operation was in flight",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "market_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "market_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})

	// WebSocketClients tracks connected event-feed clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "market_ws_clients",
		Help: "Number of connected WebSocket clients",
	})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the raw path for the label; id cardinality is acceptable at
		// this service's scale.
		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
