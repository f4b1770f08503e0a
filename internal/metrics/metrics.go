// Package metrics exposes the Prometheus collectors for the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts handled HTTP requests.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "community_http_requests_total",
		Help: "Total HTTP requests by method, route, and status.",
	}, []string{"method", "route", "status"})

	// HTTPRequestDuration observes request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "community_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// ContentRefreshTotal counts approved-content refresh runs.
	ContentRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "community_content_refresh_total",
		Help: "Content refresh runs by result.",
	}, []string{"result"})

	// ModerationDecisionsTotal counts approve/reject decisions.
	ModerationDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "community_moderation_decisions_total",
		Help: "Moderation decisions by kind and decision.",
	}, []string{"kind", "decision"})

	// RewardPointsTotal accumulates granted reward points.
	RewardPointsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "community_reward_points_total",
		Help: "Total reward points granted.",
	})
)

// Handler returns the metrics scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
