package dnssim

import "github.com/prometheus/client_golang/prometheus"

// engineCollector exposes the engine's cumulative ("sum") stats window as
// Prometheus metrics on every scrape, rather than copying counters into
// prometheus types on every update — the same on-demand-collect shape
// IrineSistiana-mosdns's plugins use their own counters for, adapted here
// to read directly off *Stats instead of duplicating state.
type engineCollector struct {
	engine *Engine

	requests *prometheus.Desc
	answers  *prometheus.Desc
	ongoing  *prometheus.Desc
	rcode    *prometheus.Desc
	latency  *prometheus.Desc
}

// NewCollector returns a prometheus.Collector reporting e's cumulative
// stats window. Register it with a prometheus.Registry from cmd/dnssim-replay.
func NewCollector(e *Engine) prometheus.Collector {
	return &engineCollector{
		engine:   e,
		requests: prometheus.NewDesc("dnssim_requests_total", "Total requests received.", nil, nil),
		answers:  prometheus.NewDesc("dnssim_answers_total", "Total requests that received an answer.", nil, nil),
		ongoing:  prometheus.NewDesc("dnssim_ongoing", "Requests currently in flight.", nil, nil),
		rcode:    prometheus.NewDesc("dnssim_rcode_total", "Answers by response code.", []string{"rcode"}, nil),
		latency:  prometheus.NewDesc("dnssim_latency_milliseconds", "Request round-trip latency.", nil, nil),
	}
}

func (c *engineCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.requests
	ch <- c.answers
	ch <- c.ongoing
	ch <- c.rcode
	ch <- c.latency
}

func (c *engineCollector) Collect(ch chan<- prometheus.Metric) {
	snap := c.engine.StatsSum()

	ch <- prometheus.MustNewConstMetric(c.requests, prometheus.CounterValue, float64(snap.Requests))
	ch <- prometheus.MustNewConstMetric(c.answers, prometheus.CounterValue, float64(snap.Answers))
	ch <- prometheus.MustNewConstMetric(c.ongoing, prometheus.GaugeValue, float64(snap.Ongoing))

	for b := rcodeBucket(0); b < rcodeBucketCount; b++ {
		ch <- prometheus.MustNewConstMetric(c.rcode, prometheus.CounterValue, float64(snap.Rcode[b]), rcodeBucketNames[b])
	}

	buckets := make(map[float64]uint64, len(snap.Latency))
	var cumulative uint64
	var sum float64
	for ms, count := range snap.Latency {
		cumulative += uint64(count)
		buckets[float64(ms)] = cumulative
		sum += float64(ms) * float64(count)
	}
	ch <- prometheus.MustNewConstHistogram(c.latency, cumulative, sum, buckets)
}
