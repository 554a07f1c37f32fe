package metrics

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"shortly/internal/db"
)

var (
	clicksDesc = prometheus.NewDesc(
		"shortly_link_clicks_total",
		"Click totals per link, by public identifier and kind",
		[]string{"identifier", "kind"},
		nil,
	)

	// ResolveOutcomes counts redirect resolutions by outcome
	// (ok, password_required, invalid, not_found, error).
	ResolveOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shortly_resolve_total",
		Help: "Redirect resolutions by outcome",
	}, []string{"outcome"})

	// Creations counts link creations by kind and outcome.
	Creations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shortly_link_creations_total",
		Help: "Link creations by kind and outcome (ok, quota_exceeded, error)",
	}, []string{"kind", "outcome"})
)

// ClickCollector is a custom Prometheus collector that reads per-link click
// totals from the database on each scrape.
type ClickCollector struct {
	db     *db.DB
	encode func(uint64) string
}

// Describe sends the metric descriptor to the channel.
func (c *ClickCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- clicksDesc
}

// Collect queries the database for all links and emits their click counts.
func (c *ClickCollector) Collect(ch chan<- prometheus.Metric) {
	totals, err := c.db.GetLinkClickTotals(context.Background())
	if err != nil {
		slog.Error("failed to collect link click metrics", "error", err)
		return
	}
	for _, t := range totals {
		ch <- prometheus.MustNewConstMetric(
			clicksDesc,
			prometheus.CounterValue,
			float64(t.Clicks),
			c.encode(t.Index),
			t.Kind,
		)
	}
}

var initOnce sync.Once

// Init registers the click collector. Must be called once at startup.
// encode maps a link index to its public identifier for labeling.
func Init(database *db.DB, encode func(uint64) string) {
	initOnce.Do(func() {
		prometheus.MustRegister(&ClickCollector{db: database, encode: encode})
	})
}
