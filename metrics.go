package aggnet

import (
	"github.com/prometheus/client_golang/prometheus"
)

// EngineCollector exports engine counters to Prometheus.
type EngineCollector struct {
	engine *Engine

	pendingEntries *prometheus.Desc
	entriesCreated *prometheus.Desc
	satisfied      *prometheus.Desc
	expired        *prometheus.Desc
	aggregated     *prometheus.Desc
	retransmits    *prometheus.Desc
	cacheHits      *prometheus.Desc
	cacheSize      *prometheus.Desc
	superset       *prometheus.Desc
	subset         *prometheus.Desc
	subRequests    *prometheus.Desc
	forwards       *prometheus.Desc
	deliveries     *prometheus.Desc
	staleRefs      *prometheus.Desc
	noRoute        *prometheus.Desc
	late           *prometheus.Desc
	unsolicited    *prometheus.Desc
}

func NewEngineCollector(engine *Engine) *EngineCollector {
	return &EngineCollector{
		engine: engine,

		pendingEntries: prometheus.NewDesc(
			"aggnet_pending_entries",
			"Live pending-request entries, sub-requests included",
			nil, nil,
		),
		entriesCreated: prometheus.NewDesc(
			"aggnet_entries_created_total",
			"Pending entries ever created",
			nil, nil,
		),
		satisfied: prometheus.NewDesc(
			"aggnet_entries_satisfied_total",
			"Entries completed and removed",
			nil, nil,
		),
		expired: prometheus.NewDesc(
			"aggnet_entries_expired_total",
			"Entries dropped unresolved at their deadline",
			nil, nil,
		),
		aggregated: prometheus.NewDesc(
			"aggnet_requests_aggregated_total",
			"Inbound requests merged into an existing entry",
			nil, nil,
		),
		retransmits: prometheus.NewDesc(
			"aggnet_retransmissions_total",
			"Duplicate requests from an already-recorded face",
			nil, nil,
		),
		cacheHits: prometheus.NewDesc(
			"aggnet_cache_hits_total",
			"Ids resolved from the value cache on intake",
			nil, nil,
		),
		cacheSize: prometheus.NewDesc(
			"aggnet_cache_values",
			"Distinct source ids in the value cache",
			nil, nil,
		),
		superset: prometheus.NewDesc(
			"aggnet_piggyback_superset_total",
			"Requests resolved as dependents of a superset entry",
			nil, nil,
		),
		subset: prometheus.NewDesc(
			"aggnet_piggyback_subset_total",
			"Subset providers adopted by waiting entries",
			nil, nil,
		),
		subRequests: prometheus.NewDesc(
			"aggnet_subrequests_total",
			"Sub-requests synthesized by the splitter",
			nil, nil,
		),
		forwards: prometheus.NewDesc(
			"aggnet_forwards_total",
			"Requests forwarded upstream",
			nil, nil,
		),
		deliveries: prometheus.NewDesc(
			"aggnet_deliveries_total",
			"Responses delivered to downstream faces",
			nil, nil,
		),
		staleRefs: prometheus.NewDesc(
			"aggnet_stale_refs_total",
			"Weak references that no longer resolved",
			nil, nil,
		),
		noRoute: prometheus.NewDesc(
			"aggnet_no_route_total",
			"Routing lookups with no next hop",
			nil, nil,
		),
		late: prometheus.NewDesc(
			"aggnet_late_responses_total",
			"Responses for recently satisfied names",
			nil, nil,
		),
		unsolicited: prometheus.NewDesc(
			"aggnet_unsolicited_responses_total",
			"Responses matching no pending state",
			nil, nil,
		),
	}
}

func (c *EngineCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.pendingEntries
	ch <- c.entriesCreated
	ch <- c.satisfied
	ch <- c.expired
	ch <- c.aggregated
	ch <- c.retransmits
	ch <- c.cacheHits
	ch <- c.cacheSize
	ch <- c.superset
	ch <- c.subset
	ch <- c.subRequests
	ch <- c.forwards
	ch <- c.deliveries
	ch <- c.staleRefs
	ch <- c.noRoute
	ch <- c.late
	ch <- c.unsolicited
}

func (c *EngineCollector) Collect(ch chan<- prometheus.Metric) {
	s := &c.engine.stats
	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v)
	}
	counter := func(d *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}

	gauge(c.pendingEntries, float64(c.engine.PendingCount()))
	gauge(c.cacheSize, float64(c.engine.cache.Len()))
	counter(c.entriesCreated, s.entriesCreated.Load())
	counter(c.satisfied, s.satisfied.Load())
	counter(c.expired, s.expired.Load())
	counter(c.aggregated, s.aggregated.Load())
	counter(c.retransmits, s.retransmissions.Load())
	counter(c.cacheHits, s.cacheHits.Load())
	counter(c.superset, s.supersetPiggybacks.Load())
	counter(c.subset, s.subsetPiggybacks.Load())
	counter(c.subRequests, s.subRequests.Load())
	counter(c.forwards, s.forwards.Load())
	counter(c.deliveries, s.deliveries.Load())
	counter(c.staleRefs, s.staleRefs.Load())
	counter(c.noRoute, s.noRoute.Load())
	counter(c.late, s.lateResponses.Load())
	counter(c.unsolicited, s.unsolicited.Load())
}
