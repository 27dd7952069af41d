package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/embedded"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vango-dev/loom/pkg/metrics"
	"github.com/vango-dev/loom/pkg/protocol"
	"github.com/vango-dev/loom/pkg/server"
)

type startedSpan struct {
	name  string
	attrs []attribute.KeyValue
}

type recordingTracer struct {
	embedded.Tracer
	started []startedSpan
}

func (r *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	r.started = append(r.started, startedSpan{name: name, attrs: cfg.Attributes()})
	return noop.NewTracerProvider().Tracer("").Start(ctx, name, opts...)
}

func chain(final server.EventHandler, mw ...server.Middleware) server.EventHandler {
	h := final
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}

func TestOpenTelemetryStartsSpanPerEvent(t *testing.T) {
	tr := &recordingTracer{}
	boom := errors.New("boom")
	h := chain(func(context.Context, *protocol.Event) error { return boom },
		OpenTelemetry(
			WithTracer(tr),
			WithAttributeExtractor(func(*protocol.Event) []attribute.KeyValue {
				return []attribute.KeyValue{attribute.String("app", "counter")}
			}),
		))

	err := h(context.Background(), &protocol.Event{Seq: 3, Node: 7, Type: "click"})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
	if len(tr.started) != 1 {
		t.Fatalf("spans = %d, want 1", len(tr.started))
	}
	span := tr.started[0]
	if span.name != "loom.event.click" {
		t.Errorf("span name = %q, want loom.event.click", span.name)
	}
	want := map[attribute.Key]attribute.Value{
		"loom.event_type": attribute.StringValue("click"),
		"loom.event_node": attribute.Int64Value(7),
		"loom.event_seq":  attribute.Int64Value(3),
		"app":             attribute.StringValue("counter"),
	}
	for _, kv := range span.attrs {
		if v, ok := want[kv.Key]; ok && v != kv.Value {
			t.Errorf("attr %s = %v, want %v", kv.Key, kv.Value.Emit(), v.Emit())
		}
		delete(want, kv.Key)
	}
	if len(want) != 0 {
		t.Errorf("missing attributes: %v", want)
	}
}

func TestOpenTelemetryFilter(t *testing.T) {
	tr := &recordingTracer{}
	ran := false
	h := chain(func(context.Context, *protocol.Event) error { ran = true; return nil },
		OpenTelemetry(WithTracer(tr), WithEventFilter(func(ev *protocol.Event) bool {
			return ev.Type != "input"
		})))

	if err := h(context.Background(), &protocol.Event{Type: "input"}); err != nil {
		t.Fatal(err)
	}
	if !ran {
		t.Error("filtered event did not reach the handler")
	}
	if len(tr.started) != 0 {
		t.Errorf("spans = %d, want 0 for filtered event", len(tr.started))
	}
}

func TestPrometheusRecordsEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.New(metrics.WithRegistry(reg))

	fail := false
	h := chain(func(context.Context, *protocol.Event) error {
		time.Sleep(time.Millisecond)
		if fail {
			return errors.New("unknown node")
		}
		return nil
	}, Prometheus(c))

	_ = h(context.Background(), &protocol.Event{Type: "click"})
	fail = true
	_ = h(context.Background(), &protocol.Event{Type: "click"})

	if got := counterValue(t, reg, "loom_events_total"); got != 2 {
		t.Errorf("loom_events_total = %v, want 2", got)
	}
	if got := counterValue(t, reg, "loom_event_errors_total"); got != 1 {
		t.Errorf("loom_event_errors_total = %v, want 1", got)
	}
	if got, err := testutil.GatherAndCount(reg, "loom_event_duration_seconds"); err != nil || got != 1 {
		t.Errorf("loom_event_duration_seconds series = %d, %v; want 1", got, err)
	}
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, mf := range families {
		if mf.GetName() == name && len(mf.GetMetric()) == 1 {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestRecoverTurnsPanicIntoError(t *testing.T) {
	h := chain(func(context.Context, *protocol.Event) error { panic("listener bug") }, Recover())

	err := h(context.Background(), &protocol.Event{Type: "click"})
	var pe *PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *PanicError", err)
	}
	if pe.Value != "listener bug" || len(pe.Stack) == 0 {
		t.Errorf("PanicError = %+v", pe)
	}
	if err.Error() != "listener panic: listener bug" {
		t.Errorf("Error() = %q", err.Error())
	}
}
