package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/loom/internal/config"
	"github.com/vango-dev/loom/pkg/element"
	"github.com/vango-dev/loom/pkg/hooks"
	"github.com/vango-dev/loom/pkg/metrics"
	"github.com/vango-dev/loom/pkg/protocol"
	"github.com/vango-dev/loom/pkg/server"
	"github.com/vango-dev/loom/pkg/snapshot"
)

var counter = element.Define("Counter", func(h *hooks.Frame, _ element.Props) *element.Element {
	n, set := hooks.UseState(h, 0)
	return element.Button(
		element.OnClick(func(element.Event) { set(func(c int) int { return c + 1 }) }),
		n,
	)
})

func app() *element.Element { return counter.New(nil) }

type client struct {
	t    *testing.T
	conn *websocket.Conn
}

func dial(t *testing.T, ts *httptest.Server) *client {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &client{t: t, conn: conn}
}

func (c *client) read() *protocol.Frame {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := c.conn.ReadMessage()
	if err != nil {
		c.t.Fatalf("ReadMessage: %v", err)
	}
	f, err := protocol.DecodeFrame(msg)
	if err != nil {
		c.t.Fatalf("DecodeFrame: %v", err)
	}
	return f
}

func (c *client) readType(ft protocol.FrameType) *protocol.Frame {
	c.t.Helper()
	f := c.read()
	if f.Type != ft {
		c.t.Fatalf("frame type = %v, want %v", f.Type, ft)
	}
	return f
}

func (c *client) send(ft protocol.FrameType, payload []byte) {
	c.t.Helper()
	if err := c.conn.WriteMessage(websocket.BinaryMessage, protocol.NewFrame(ft, payload).Encode()); err != nil {
		c.t.Fatalf("WriteMessage: %v", err)
	}
}

func (c *client) hello() *protocol.Hello {
	c.t.Helper()
	h, err := protocol.DecodeHello(c.readType(protocol.FrameHello).Payload)
	if err != nil {
		c.t.Fatal(err)
	}
	return h
}

func (c *client) patches() *protocol.PatchesFrame {
	c.t.Helper()
	pf, err := protocol.DecodePatches(c.readType(protocol.FramePatches).Payload)
	if err != nil {
		c.t.Fatal(err)
	}
	return pf
}

func find(pf *protocol.PatchesFrame, op protocol.PatchOp, key string) *protocol.Patch {
	for i := range pf.Patches {
		if pf.Patches[i].Op == op && pf.Patches[i].Key == key {
			return &pf.Patches[i]
		}
	}
	return nil
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b)
}

func TestSessionRendersAndHandlesEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	store := snapshot.NewMemoryStore()
	srv := server.New(app, nil,
		server.WithMetrics(metrics.New(metrics.WithRegistry(reg)), reg),
		server.WithSnapshotStore(store),
	)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	c := dial(t, ts)

	hello := c.hello()
	if hello.Seq != 0 || hello.HTML != "" || hello.Session == "" {
		t.Fatalf("hello = %+v, want empty tree at seq 0", hello)
	}

	first := c.patches()
	if first.Seq != 1 {
		t.Errorf("first patches seq = %d, want 1", first.Seq)
	}
	button := find(first, protocol.PatchCreate, "button")
	if button == nil || find(first, protocol.PatchListen, "click") == nil {
		t.Fatalf("first commit lacks button or listener: %+v", first.Patches)
	}

	c.send(protocol.FrameEvent, protocol.EncodeEvent(&protocol.Event{Seq: 1, Node: button.Node, Type: "click"}))

	second := c.patches()
	if second.Seq != 2 {
		t.Errorf("second patches seq = %d, want 2", second.Seq)
	}
	set := find(second, protocol.PatchSetProp, element.NodeValue)
	if set == nil || set.Value != int64(1) {
		t.Errorf("second commit nodeValue patch = %+v, want 1", set)
	}

	var body string
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		var status int
		status, body = get(t, ts.URL+"/sessions/"+hello.Session+"/snapshot")
		if status == http.StatusOK && body == "<button>1</button>" {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if body != "<button>1</button>" {
		t.Errorf("snapshot = %q, want <button>1</button>", body)
	}

	_, list := get(t, ts.URL+"/sessions")
	var sessions []struct {
		ID    string `json:"id"`
		Cycle uint64 `json:"cycle"`
	}
	if err := json.Unmarshal([]byte(list), &sessions); err != nil {
		t.Fatalf("sessions body %q: %v", list, err)
	}
	if len(sessions) != 1 || sessions[0].ID != hello.Session || sessions[0].Cycle != 2 {
		t.Errorf("sessions = %+v", sessions)
	}

	_, text := get(t, ts.URL+"/metrics")
	for _, want := range []string{"loom_active_sessions 1", `loom_units_of_work_total{kind="Composite"} 2`} {
		if !strings.Contains(text, want) {
			t.Errorf("metrics missing %q", want)
		}
	}

	for time.Now().Before(deadline) {
		if _, ok := store.Get(hello.Session + "/000002.html"); ok {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if b, ok := store.Get(hello.Session + "/000002.html"); !ok || string(b) != "<button>1</button>" {
		t.Errorf("stored snapshot = %q, %v", b, ok)
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
	if ids := srv.SessionIDs(); len(ids) != 0 {
		t.Errorf("SessionIDs() after shutdown = %v", ids)
	}
}

func TestSessionControlAndErrors(t *testing.T) {
	srv := server.New(app, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	c := dial(t, ts)
	c.hello()
	c.patches()

	c.send(protocol.FrameControl, protocol.EncodeControl(&protocol.Control{Type: protocol.ControlPing, Nonce: 42}))
	pong, err := protocol.DecodeControl(c.readType(protocol.FrameControl).Payload)
	if err != nil {
		t.Fatal(err)
	}
	if pong.Type != protocol.ControlPong || pong.Nonce != 42 {
		t.Errorf("pong = %+v, want Pong 42", pong)
	}

	c.send(protocol.FrameEvent, protocol.EncodeEvent(&protocol.Event{Node: 9999, Type: "click"}))
	em, err := protocol.DecodeErrorMessage(c.readType(protocol.FrameError).Payload)
	if err != nil {
		t.Fatal(err)
	}
	if em.Code != protocol.ErrNodeNotFound || em.Fatal {
		t.Errorf("error = %+v, want non-fatal NodeNotFound", em)
	}

	c.send(protocol.FrameEvent, []byte{0xff})
	em, err = protocol.DecodeErrorMessage(c.readType(protocol.FrameError).Payload)
	if err != nil {
		t.Fatal(err)
	}
	if em.Code != protocol.ErrInvalidEvent {
		t.Errorf("error code = %v, want InvalidEvent", em.Code)
	}

	c.send(protocol.FrameControl, protocol.EncodeControl(&protocol.Control{Type: protocol.ControlResync}))
	hello := c.hello()
	if hello.Seq != 1 || !strings.Contains(hello.HTML, `<button data-loom-id="`) {
		t.Errorf("resync hello = %+v, want addressable tree at seq 1", hello)
	}
}

func TestRenderFailureIsReported(t *testing.T) {
	broken := element.Define("Broken", func(h *hooks.Frame, _ element.Props) *element.Element {
		return element.H("marquee")
	})
	srv := server.New(func() *element.Element { return broken.New(nil) }, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	c := dial(t, ts)
	c.hello()
	em, err := protocol.DecodeErrorMessage(c.readType(protocol.FrameError).Payload)
	if err != nil {
		t.Fatal(err)
	}
	if em.Code != protocol.ErrRenderFailed || !strings.Contains(em.Message, "L003") {
		t.Errorf("error = %+v, want RenderFailed carrying L003", em)
	}
}

func TestPageAndHealth(t *testing.T) {
	srv := server.New(app, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	status, body := get(t, ts.URL+"/")
	if status != http.StatusOK || !strings.Contains(body, `<div id="root"><button>0</button></div>`) {
		t.Errorf("GET / = %d %q", status, body)
	}
	if status, body := get(t, ts.URL+"/healthz"); status != http.StatusOK || body != "ok" {
		t.Errorf("GET /healthz = %d %q", status, body)
	}
	if status, _ := get(t, ts.URL+"/sessions/nope/snapshot"); status != http.StatusNotFound {
		t.Errorf("GET unknown snapshot = %d, want 404", status)
	}
	if status, _ := get(t, ts.URL+"/metrics"); status != http.StatusNotFound {
		t.Errorf("GET /metrics without collector = %d, want 404", status)
	}
}

func TestFromFile(t *testing.T) {
	fc := config.New()
	fc.Server.Addr = ":9999"
	fc.Scheduler.SliceBudget = "8ms"
	fc.Scheduler.Debug = true

	cfg := server.FromFile(fc)
	if cfg.Addr != ":9999" || cfg.SliceBudget != 8*time.Millisecond || !cfg.Debug {
		t.Errorf("FromFile = %+v", cfg)
	}
	if cfg.YieldThreshold != time.Millisecond || cfg.MetricsPath != "/metrics" {
		t.Errorf("FromFile defaults = %v %q", cfg.YieldThreshold, cfg.MetricsPath)
	}
}
