package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

// Storefront holds the service's counters and histograms. A nil *Storefront
// is valid and records nothing.
type Storefront struct {
	gatherer prometheus.Gatherer

	identityFallbacks *prometheus.CounterVec
	ordersPlaced      *prometheus.CounterVec
	cartMutations     *prometheus.CounterVec
	eventPublishes    *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// New registers the storefront metrics on a fresh registry with the Go and
// process collectors attached.
func New() *Storefront {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers the metrics on reg and serves them from gatherer.
func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Storefront {
	if reg == nil {
		return &Storefront{}
	}
	m := &Storefront{
		gatherer: gatherer,
		identityFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identity_fallbacks_total",
			Help:      "Requests resolved as guest because identity resolution failed.",
		}, []string{"reason"}),
		ordersPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Orders committed, by caller kind.",
		}, []string{"caller"}),
		cartMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutations_total",
			Help:      "Cart line mutations, by operation and outcome.",
		}, []string{"op", "outcome"}),
		eventPublishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_events_published_total",
			Help:      "Order-placed event publish attempts, by result.",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(m.identityFallbacks, m.ordersPlaced, m.cartMutations, m.eventPublishes, m.httpRequests, m.httpDuration)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Storefront) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Storefront) IdentityFallback(reason string) {
	if m == nil || m.identityFallbacks == nil {
		return
	}
	m.identityFallbacks.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *Storefront) OrderPlaced(caller string) {
	if m == nil || m.ordersPlaced == nil {
		return
	}
	m.ordersPlaced.WithLabelValues(normalizeLabel(caller)).Inc()
}

func (m *Storefront) CartMutation(op string, err error) {
	if m == nil || m.cartMutations == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.cartMutations.WithLabelValues(normalizeLabel(op), outcome).Inc()
}

func (m *Storefront) EventPublished(err error) {
	if m == nil || m.eventPublishes == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.eventPublishes.WithLabelValues(result).Inc()
}

// ObserveRequest records one served request. route is the chi route pattern.
func (m *Storefront) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil || m.httpRequests == nil {
		return
	}
	route = normalizeLabel(route)
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
