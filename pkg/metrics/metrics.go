// Package metrics exports scheduler and session activity to Prometheus.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/loom/pkg/element"
	"github.com/vango-dev/loom/pkg/reconciler"
)

// Config configures a Collector.
type Config struct {
	// Namespace is the metrics namespace (default: "loom").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for commit duration.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer

	// EventTypes are the event names recorded under their own label value.
	// Any other client-supplied name is recorded as OtherEvent.
	// Default: DefaultEventTypes
	EventTypes []string
}

// OtherEvent labels events whose name is not in Config.EventTypes.
const OtherEvent = "other"

// DefaultEventTypes are the event names labeled individually by default.
var DefaultEventTypes = []string{
	"blur", "change", "click", "dblclick", "focus", "input",
	"keydown", "keyup", "mousedown", "mouseup", "submit",
}

// Option configures a Collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the commit duration buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithEventTypes sets the event names labeled individually.
func WithEventTypes(types ...string) Option {
	return func(c *Config) {
		c.EventTypes = types
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "loom",
		Buckets:   []float64{.0001, .0005, .001, .0025, .005, .01, .025, .05, .1},
		Registry:   prometheus.DefaultRegisterer,
		EventTypes: DefaultEventTypes,
	}
}

// Collector owns the metric vectors. One Collector serves every scheduler
// in the process; each scheduler gets its own Recorder.
type Collector struct {
	unitsOfWork    *prometheus.CounterVec
	workSlices     *prometheus.CounterVec
	commits        prometheus.Counter
	commitDuration prometheus.Histogram
	hostMutations  *prometheus.CounterVec
	abandoned      prometheus.Counter
	liveFibers     prometheus.Gauge
	sessions       prometheus.Gauge
	events         *prometheus.CounterVec
	eventDuration  *prometheus.HistogramVec
	eventErrors    *prometheus.CounterVec
	eventTypes     map[string]struct{}
}

// New registers the loom metrics and returns their Collector.
func New(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	counterOpts := func(name, help string) prometheus.CounterOpts {
		return prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		}
	}
	gaugeOpts := func(name, help string) prometheus.GaugeOpts {
		return prometheus.GaugeOpts(counterOpts(name, help))
	}

	eventTypes := make(map[string]struct{}, len(config.EventTypes))
	for _, t := range config.EventTypes {
		eventTypes[t] = struct{}{}
	}

	return &Collector{
		eventTypes: eventTypes,
		unitsOfWork: factory.NewCounterVec(
			counterOpts("units_of_work_total", "Fibers processed, by fiber kind"),
			[]string{"kind"}),
		workSlices: factory.NewCounterVec(
			counterOpts("work_slices_total", "Work slices run, by whether work remained"),
			[]string{"outcome"}),
		commits: factory.NewCounter(
			counterOpts("commits_total", "Render cycles committed")),
		commitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "commit_duration_seconds",
			Help:        "Duration of the commit pass in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),
		hostMutations: factory.NewCounterVec(
			counterOpts("host_mutations_total", "Host operations issued during commit, by effect"),
			[]string{"effect"}),
		abandoned: factory.NewCounter(
			counterOpts("abandoned_cycles_total", "Render cycles abandoned after a failure")),
		liveFibers: factory.NewGauge(
			gaugeOpts("live_fibers", "Fibers allocated across all schedulers")),
		sessions: factory.NewGauge(
			gaugeOpts("active_sessions", "Connected websocket sessions")),
		events: factory.NewCounterVec(
			counterOpts("events_total", "Client events received, by event name"),
			[]string{"type"}),
		eventDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "event_duration_seconds",
			Help:        "Time spent running listeners for a client event",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"type"}),
		eventErrors: factory.NewCounterVec(
			counterOpts("event_errors_total", "Client events that failed, by event name"),
			[]string{"type"}),
	}
}

// SessionOpened increments the active session gauge.
func (c *Collector) SessionOpened() { c.sessions.Inc() }

// SessionClosed decrements the active session gauge.
func (c *Collector) SessionClosed() { c.sessions.Dec() }

// Event counts a client event that took d to handle.
// Names outside the configured event types share the OtherEvent label.
func (c *Collector) Event(name string, d time.Duration, err error) {
	if _, ok := c.eventTypes[name]; !ok {
		name = OtherEvent
	}
	c.events.WithLabelValues(name).Inc()
	c.eventDuration.WithLabelValues(name).Observe(d.Seconds())
	if err != nil {
		c.eventErrors.WithLabelValues(name).Inc()
	}
}

// Recorder returns a reconciler.Recorder for one scheduler. Close it when
// the scheduler is discarded so its fibers leave the live gauge.
func (c *Collector) Recorder() *Recorder {
	return &Recorder{c: c}
}

// Recorder feeds one scheduler's activity into a Collector.
type Recorder struct {
	c    *Collector
	mu   sync.Mutex
	live int
}

var _ reconciler.Recorder = (*Recorder)(nil)

// UnitOfWork implements reconciler.Recorder.
func (r *Recorder) UnitOfWork(kind element.Kind) {
	r.c.unitsOfWork.WithLabelValues(kind.String()).Inc()
}

// WorkSlice implements reconciler.Recorder.
func (r *Recorder) WorkSlice(units int, yielded bool) {
	outcome := "drained"
	if yielded {
		outcome = "yielded"
	}
	r.c.workSlices.WithLabelValues(outcome).Inc()
}

// HostMutations implements reconciler.Recorder.
func (r *Recorder) HostMutations(effect reconciler.Effect, n int) {
	r.c.hostMutations.WithLabelValues(effect.String()).Add(float64(n))
}

// Commit implements reconciler.Recorder.
func (r *Recorder) Commit(info reconciler.CommitInfo) {
	r.c.commits.Inc()
	r.c.commitDuration.Observe(info.Duration.Seconds())
}

// Abandoned implements reconciler.Recorder.
func (r *Recorder) Abandoned() {
	r.c.abandoned.Inc()
}

// LiveFibers implements reconciler.Recorder.
func (r *Recorder) LiveFibers(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.c.liveFibers.Add(float64(n - r.live))
	r.live = n
}

// Close removes this scheduler's fibers from the live gauge.
func (r *Recorder) Close() {
	r.LiveFibers(0)
}
