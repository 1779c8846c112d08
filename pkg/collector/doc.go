// Package collector renders the exporter's price store as prometheus
// metrics.
//
// It implements the Prometheus collector interface, reporting whatever
// the store currently holds whenever a scrape hits this exporter. No
// outbound requests happen here - keeping the price data fresh is the
// poller's job, on its own schedule, independent of prometheus' scrape
// interval.
package collector
