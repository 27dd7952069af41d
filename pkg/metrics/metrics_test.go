package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vango-dev/loom/pkg/element"
	"github.com/vango-dev/loom/pkg/host/memhost"
	"github.com/vango-dev/loom/pkg/reconciler"
)

func TestRecorderCountsSchedulerActivity(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(WithRegistry(reg), WithNamespace("test"))
	rec := c.Recorder()

	h := memhost.New()
	root := h.NewContainer("root")
	s := reconciler.New(h, reconciler.WithRecorder(rec))

	// root, div, p, text
	if err := s.Render(element.Div(element.P("a")), root); err != nil {
		t.Fatal(err)
	}
	if err := s.Flush(); err != nil {
		t.Fatal(err)
	}
	if err := s.Render(element.Div(element.P("b")), root); err != nil {
		t.Fatal(err)
	}
	if err := s.Flush(); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"host units", testutil.ToFloat64(c.unitsOfWork.WithLabelValues("Host")), 8},
		{"drained slices", testutil.ToFloat64(c.workSlices.WithLabelValues("drained")), 2},
		{"commits", testutil.ToFloat64(c.commits), 2},
		{"placements", testutil.ToFloat64(c.hostMutations.WithLabelValues("PLACEMENT")), 3},
		{"updates", testutil.ToFloat64(c.hostMutations.WithLabelValues("UPDATE")), 1},
		{"live fibers", testutil.ToFloat64(c.liveFibers), 4},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}

	rec.Close()
	if got := testutil.ToFloat64(c.liveFibers); got != 0 {
		t.Errorf("live fibers after Close = %v, want 0", got)
	}
	if got := testutil.CollectAndCount(c.commitDuration); got != 1 {
		t.Errorf("commit duration series = %d, want 1", got)
	}
}

func TestAbandonedAndSessions(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(WithRegistry(reg), WithConstLabels(prometheus.Labels{"app": "demo"}))

	h := memhost.New()
	s := reconciler.New(h, reconciler.WithRecorder(c.Recorder()))
	if err := s.Render(element.H("blink"), h.NewContainer("root")); err != nil {
		t.Fatal(err)
	}
	if err := s.Flush(); err == nil {
		t.Fatal("Flush() error = nil, want unknown type")
	}
	if got := testutil.ToFloat64(c.abandoned); got != 1 {
		t.Errorf("abandoned = %v, want 1", got)
	}

	c.SessionOpened()
	c.SessionOpened()
	c.SessionClosed()
	if got := testutil.ToFloat64(c.sessions); got != 1 {
		t.Errorf("sessions = %v, want 1", got)
	}
	c.Event("click", time.Millisecond, nil)
	c.Event("click", time.Millisecond, errors.New("boom"))
	if got := testutil.ToFloat64(c.events.WithLabelValues("click")); got != 2 {
		t.Errorf("click events = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.eventErrors.WithLabelValues("click")); got != 1 {
		t.Errorf("click errors = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(c.eventDuration); got != 1 {
		t.Errorf("event duration series = %d, want 1", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, mf := range families {
		if mf.GetName()[:5] != "loom_" {
			t.Errorf("metric %s lacks the loom namespace", mf.GetName())
		}
	}
}

func TestUnknownEventTypesShareOneLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(WithRegistry(reg), WithEventTypes("click"))

	c.Event("click", time.Millisecond, nil)
	for _, name := range []string{"x1", "x2", "x3", "input"} {
		c.Event(name, time.Millisecond, errors.New("no listener"))
	}

	if got := testutil.CollectAndCount(c.events); got != 2 {
		t.Errorf("event series = %d, want 2", got)
	}
	if got := testutil.ToFloat64(c.events.WithLabelValues(OtherEvent)); got != 4 {
		t.Errorf("other events = %v, want 4", got)
	}
	if got := testutil.ToFloat64(c.eventErrors.WithLabelValues(OtherEvent)); got != 4 {
		t.Errorf("other errors = %v, want 4", got)
	}
	if got := testutil.ToFloat64(c.events.WithLabelValues("click")); got != 1 {
		t.Errorf("click events = %v, want 1", got)
	}
}
