package collector

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"dowexporter/pkg/pricestore"
)

// Collector implements the prometheus Collector interface, exposing the
// prices and collection statistics held by a store whenever a
// prometheus scrape is received.
//
// Rendering is read-only: a scrape never mutates the store, so any
// number of scrapes may interleave with a running collection cycle.
type Collector struct {
	store *pricestore.Store
}

// ensure that we implement prometheus' collector interface.
var _ prometheus.Collector = &Collector{}

// Register registers a store-backed collector with the given registerer,
// making it available for an exporter to gather our metrics.
func Register(registerer prometheus.Registerer, store *pricestore.Store) error {
	c := &Collector{
		store: store,
	}

	if err := registerer.Register(c); err != nil {
		return fmt.Errorf("register: %w", err)
	}

	return nil
}

// Describe implements the Describe function of the Collector interface.
//
// Because we can present the description of the metrics at collection
// time, we don't need to write anything to the channel.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
}

// Collect implements the Collect function of the Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.collectPrices(ch)
	c.collectFetchErrors(ch)
	c.collectLastCollect(ch)
	c.collectRequestDurations(ch)
}

func (c *Collector) collectPrices(ch chan<- prometheus.Metric) {
	desc := prometheus.NewDesc(
		"dow_component_price",
		"last observed share price of a dow component",
		[]string{"symbol"}, nil,
	)

	for symbol, price := range c.store.Prices() {
		ch <- prometheus.MustNewConstMetric(
			desc,
			prometheus.GaugeValue,
			price,
			symbol,
		)
	}
}

func (c *Collector) collectFetchErrors(ch chan<- prometheus.Metric) {
	desc := prometheus.NewDesc(
		"dow_collector_fetch_errors_total",
		"number of cycles that failed to produce a price "+
			"for a symbol",
		[]string{"symbol"}, nil,
	)

	for symbol, count := range c.store.FetchErrors() {
		ch <- prometheus.MustNewConstMetric(
			desc,
			prometheus.CounterValue,
			float64(count),
			symbol,
		)
	}
}

func (c *Collector) collectLastCollect(ch chan<- prometheus.Metric) {
	collectedAt, ok := c.store.LastCollected()
	if !ok {
		return
	}

	desc := prometheus.NewDesc(
		"dow_collector_last_collect_timestamp_seconds",
		"unix timestamp of the most recent completed "+
			"collection cycle",
		nil, nil,
	)

	ch <- prometheus.MustNewConstMetric(
		desc,
		prometheus.GaugeValue,
		float64(collectedAt.UnixNano())/1e9,
	)
}

func (c *Collector) collectRequestDurations(ch chan<- prometheus.Metric) {
	count, sum, quantiles := c.store.RequestDurations()

	ch <- prometheus.MustNewConstSummary(
		prometheus.NewDesc(
			"dow_collector_request_duration_seconds",
			"distribution of the time spent querying the "+
				"quote provider",
			nil, nil,
		),
		count, sum, quantiles,
	)
}
