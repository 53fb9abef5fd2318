package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ShopMetrics records catalog browsing and cart activity.
type ShopMetrics struct {
	searches       *prometheus.CounterVec
	resultSize     prometheus.Histogram
	itemsAdded     prometheus.Counter
	linesRemoved   prometheus.Counter
	checkouts      prometheus.Counter
	checkoutAmount prometheus.Histogram
	failures       *prometheus.CounterVec
}

// NewShopMetrics registers the shop metrics on the provided registerer. A nil registerer
// yields a no-op recorder.
func NewShopMetrics(reg prometheus.Registerer) *ShopMetrics {
	if reg == nil {
		return &ShopMetrics{}
	}
	m := &ShopMetrics{
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_searches_total",
			Help: "Catalog browse requests, labelled by whether search text was present.",
		}, []string{"with_text"}),
		resultSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "catalog_result_rows",
			Help:    "Rows returned by catalog browse requests.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		itemsAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cart_items_added_total",
			Help: "Units added to carts.",
		}),
		linesRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cart_lines_removed_total",
			Help: "Cart lines removed.",
		}),
		checkouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "checkouts_total",
			Help: "Completed checkouts.",
		}),
		checkoutAmount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "checkout_amount",
			Help:    "Totals of completed checkouts.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shop_action_failures_total",
			Help: "Rejected shop actions by action and error code.",
		}, []string{"action", "code"}),
	}
	reg.MustRegister(m.searches, m.resultSize, m.itemsAdded, m.linesRemoved, m.checkouts, m.checkoutAmount, m.failures)
	return m
}

// ObserveBrowse records one browse request and the size of its result.
func (m *ShopMetrics) ObserveBrowse(withText bool, rows int) {
	if m == nil || m.searches == nil {
		return
	}
	m.searches.WithLabelValues(strconv.FormatBool(withText)).Inc()
	m.resultSize.Observe(float64(rows))
}

func (m *ShopMetrics) AddItems(quantity int) {
	if m == nil || m.itemsAdded == nil {
		return
	}
	m.itemsAdded.Add(float64(quantity))
}

func (m *ShopMetrics) IncLinesRemoved() {
	if m == nil || m.linesRemoved == nil {
		return
	}
	m.linesRemoved.Inc()
}

// ObserveCheckout records a completed checkout and its total.
func (m *ShopMetrics) ObserveCheckout(total float64) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.Inc()
	m.checkoutAmount.Observe(total)
}

// IncFailure counts a rejected action.
func (m *ShopMetrics) IncFailure(action, code string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(normalizeLabel(action), normalizeLabel(code)).Inc()
}

// SessionMetrics tracks the in-memory session registry.
type SessionMetrics struct {
	active        prometheus.Gauge
	expired       prometheus.Counter
	sweepDuration prometheus.Histogram
}

// NewSessionMetrics registers the session metrics on the provided registerer.
func NewSessionMetrics(reg prometheus.Registerer) *SessionMetrics {
	if reg == nil {
		return &SessionMetrics{}
	}
	m := &SessionMetrics{
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sessions_active",
			Help: "Sessions currently held in memory.",
		}),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sessions_expired_total",
			Help: "Sessions evicted after idling past the TTL.",
		}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "session_sweep_duration_seconds",
			Help:    "Duration of idle session sweeps in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.active, m.expired, m.sweepDuration)
	return m
}

func (m *SessionMetrics) SetActive(n int) {
	if m == nil || m.active == nil {
		return
	}
	m.active.Set(float64(n))
}

func (m *SessionMetrics) AddExpired(n int) {
	if m == nil || m.expired == nil {
		return
	}
	m.expired.Add(float64(n))
}

func (m *SessionMetrics) ObserveSweep(duration time.Duration) {
	if m == nil || m.sweepDuration == nil {
		return
	}
	m.sweepDuration.Observe(duration.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
