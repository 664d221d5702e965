// Package metrics exposes the bot's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Results recorded on the posts counter.
const (
	ResultOK      = "ok"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
)

// Metrics holds the collectors for one process.
type Metrics struct {
	Registry *prometheus.Registry

	Posts              *prometheus.CounterVec
	Generations        *prometheus.CounterVec
	WorkerRestarts     *prometheus.CounterVec
	WorkersAlive       *prometheus.GaugeVec
	Reconnects         prometheus.Counter
	ItemsSeen          prometheus.Counter
	ExcludedItems      prometheus.Gauge
	ConversationLookup prometheus.Counter
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		Posts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "markovbot_posts_total",
			Help: "Posts and replies attempted by worker and result",
		}, []string{"worker", "result"}),
		Generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "markovbot_generations_total",
			Help: "Sentence constructions by corpus and result",
		}, []string{"corpus", "result"}),
		WorkerRestarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "markovbot_worker_restarts_total",
			Help: "Workers restarted by the supervisor",
		}, []string{"worker"}),
		WorkersAlive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "markovbot_worker_alive",
			Help: "1 while the worker goroutine is running",
		}, []string{"worker"}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "markovbot_reconnects_total",
			Help: "Session reconnects triggered by workers",
		}),
		ItemsSeen: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "markovbot_stream_items_total",
			Help: "Items received on the filtered stream",
		}),
		ExcludedItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "markovbot_excluded_items",
			Help: "Size of the reply exclusion registry",
		}),
		ConversationLookup: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "markovbot_ancestor_lookups_total",
			Help: "Remote lookups made while walking reply chains",
		}),
	}
	reg.MustRegister(
		m.Posts, m.Generations, m.WorkerRestarts, m.WorkersAlive,
		m.Reconnects, m.ItemsSeen, m.ExcludedItems, m.ConversationLookup,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
