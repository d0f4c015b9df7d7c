package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Compilation results used as the "result" label.
const (
	ResultOK            = "ok"
	ResultInvalidInput  = "invalid_input"
	ResultAllocation    = "allocation_failed"
	ResultSynthesis     = "synthesis_failed"
	SessionKindInternal = "ibgp"
	SessionKindExternal = "ebgp"
)

// CompileCollector bundles the Prometheus metrics of the intent compiler.
// A batch run writes them to a node-exporter textfile; a long-lived embedder
// can serve them through Handler.
type CompileCollector struct {
	gatherer prometheus.Gatherer

	Compilations    *prometheus.CounterVec
	CompileDuration prometheus.Histogram
	Devices         prometheus.Gauge
	AddressedLinks  prometheus.Gauge
	BGPSessions     *prometheus.CounterVec
	EBGPPolicies    *prometheus.CounterVec
}

// NewCompileCollector registers compiler metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewCompileCollector(reg prometheus.Registerer) (*CompileCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	compilations, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netintent_compilations_total",
		Help: "Compilations attempted, labeled by result.",
	}, []string{"result"}), "netintent_compilations_total")
	if err != nil {
		return nil, err
	}

	duration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "netintent_compile_duration_seconds",
		Help:    "Wall time of one intent compilation, load to finalized output.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}), "netintent_compile_duration_seconds")
	if err != nil {
		return nil, err
	}

	devices, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "netintent_devices",
		Help: "Devices configured by the last compilation.",
	}), "netintent_devices")
	if err != nil {
		return nil, err
	}
	links, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "netintent_links_allocated",
		Help: "Links that received addresses in the last compilation.",
	}), "netintent_links_allocated")
	if err != nil {
		return nil, err
	}

	sessions, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netintent_bgp_sessions_total",
		Help: "BGP neighbor statements emitted, labeled by kind (ibgp, ebgp).",
	}, []string{"kind"}), "netintent_bgp_sessions_total")
	if err != nil {
		return nil, err
	}
	policies, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netintent_ebgp_policies_total",
		Help: "eBGP sessions by resolved relationship.",
	}, []string{"relationship"}), "netintent_ebgp_policies_total")
	if err != nil {
		return nil, err
	}

	return &CompileCollector{
		gatherer:        gatherer,
		Compilations:    compilations,
		CompileDuration: duration,
		Devices:         devices,
		AddressedLinks:  links,
		BGPSessions:     sessions,
		EBGPPolicies:    policies,
	}, nil
}

// ObserveCompilation records the outcome and duration of one run.
func (c *CompileCollector) ObserveCompilation(result string, elapsed time.Duration) {
	if c == nil {
		return
	}
	if c.Compilations != nil {
		c.Compilations.WithLabelValues(result).Inc()
	}
	if c.CompileDuration != nil {
		c.CompileDuration.Observe(elapsed.Seconds())
	}
}

// SetTopologyCounts records how many devices and addressed links the last
// compilation produced.
func (c *CompileCollector) SetTopologyCounts(devices, links int) {
	if c == nil {
		return
	}
	if c.Devices != nil {
		c.Devices.Set(float64(devices))
	}
	if c.AddressedLinks != nil {
		c.AddressedLinks.Set(float64(links))
	}
}

// AddSessions counts emitted BGP neighbors.
func (c *CompileCollector) AddSessions(ibgp, ebgp int) {
	if c == nil || c.BGPSessions == nil {
		return
	}
	c.BGPSessions.WithLabelValues(SessionKindInternal).Add(float64(ibgp))
	c.BGPSessions.WithLabelValues(SessionKindExternal).Add(float64(ebgp))
}

// AddPolicy counts one eBGP session with the given relationship.
func (c *CompileCollector) AddPolicy(relationship string) {
	if c == nil || c.EBGPPolicies == nil {
		return
	}
	c.EBGPPolicies.WithLabelValues(relationship).Inc()
}

// Handler exposes a ready-to-use /metrics handler.
func (c *CompileCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// WriteTextfile dumps every gathered metric to path in the text exposition
// format, for the node-exporter textfile collector.
func (c *CompileCollector) WriteTextfile(path string) error {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if err := prometheus.WriteToTextfile(path, gatherer); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
