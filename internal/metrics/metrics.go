package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	LinksCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shortlink_links_created_total",
		Help: "Total links created.",
	})
	Redirects = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shortlink_redirects_total",
		Help: "Total successful redirects.",
	})
	ResolutionMisses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shortlink_resolution_misses_total",
		Help: "Failed resolutions by reason.",
	}, []string{"reason"})
	ExpiredPurged = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shortlink_expired_purged_total",
		Help: "Expired links removed by the purge loop.",
	})
)

func init() {
	prometheus.MustRegister(LinksCreated, Redirects, ResolutionMisses, ExpiredPurged)
}

// Handler serves the prometheus scrape endpoint.
func Handler(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}
