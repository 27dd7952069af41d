// Package loomtest mounts elements into an in-memory host for tests.
//
//	func TestCounter(t *testing.T) {
//	    app := loomtest.Mount(t, Counter.New(nil))
//	    app.Click("button", 0)
//	    loomtest.ExpectContains(t, app, "Count: 2")
//	}
//
// Every event is followed by a full flush, so assertions always see a
// committed tree.
package loomtest

import (
	"strings"
	"testing"

	"github.com/vango-dev/loom/pkg/element"
	"github.com/vango-dev/loom/pkg/host/memhost"
	"github.com/vango-dev/loom/pkg/reconciler"
)

// App is a mounted element tree.
type App struct {
	t     testing.TB
	Host  *memhost.Host
	Root  *memhost.Node
	Sched *reconciler.Scheduler
}

// Mount renders el into a fresh memhost and flushes the first commit. The
// scheduler runs in debug mode unless opts override it.
func Mount(t testing.TB, el *element.Element, opts ...reconciler.Option) *App {
	t.Helper()
	h := memhost.New()
	opts = append([]reconciler.Option{reconciler.WithDebug(true)}, opts...)
	a := &App{t: t, Host: h, Root: h.NewContainer("root"), Sched: reconciler.New(h, opts...)}
	a.Render(el)
	return a
}

// Render replaces the tree with el and flushes.
func (a *App) Render(el *element.Element) {
	a.t.Helper()
	if err := a.Sched.Render(el, a.Root); err != nil {
		a.t.Fatalf("Render: %v", err)
	}
	a.Flush()
}

// Flush runs pending work to completion.
func (a *App) Flush() {
	a.t.Helper()
	if err := a.Sched.Flush(); err != nil {
		a.t.Fatalf("Flush: %v", err)
	}
}

// Find returns the i-th node with tag in pre-order.
func (a *App) Find(tag string, i int) *memhost.Node {
	a.t.Helper()
	all := a.Root.FindAll(tag)
	if i < 0 || i >= len(all) {
		a.t.Fatalf("Find(%q, %d): only %d found in %s", tag, i, len(all), truncate(a.HTML(), 500))
	}
	return all[i]
}

// Fire delivers an event to n and flushes. It fails the test if no
// listener ran.
func (a *App) Fire(n *memhost.Node, typ, value string) {
	a.t.Helper()
	if ran := a.Host.Dispatch(n, element.Event{Type: typ, Value: value}); ran == 0 {
		a.t.Fatalf("no %s listener on <%s>", typ, n.Tag)
	}
	a.Flush()
}

// Click fires a click on the i-th node with tag.
func (a *App) Click(tag string, i int) {
	a.t.Helper()
	a.Fire(a.Find(tag, i), "click", "")
}

// Input fires an input event carrying value on the i-th node with tag.
func (a *App) Input(tag string, i int, value string) {
	a.t.Helper()
	a.Fire(a.Find(tag, i), "input", value)
}

// HTML returns the committed tree's HTML.
func (a *App) HTML() string {
	return memhost.HTML(a.Root)
}

// ExpectHTML asserts that the committed tree serializes to want.
func ExpectHTML(t testing.TB, a *App, want string) {
	t.Helper()
	if got := a.HTML(); got != want {
		t.Errorf("HTML = %q, want %q", got, want)
	}
}

// ExpectContains asserts that the committed HTML contains expected.
func ExpectContains(t testing.TB, a *App, expected string) {
	t.Helper()
	html := a.HTML()
	if !strings.Contains(html, expected) {
		t.Errorf("expected rendered output to contain %q, got:\n%s", expected, truncate(html, 500))
	}
}

// ExpectNotContains asserts that the committed HTML does not contain
// unexpected.
func ExpectNotContains(t testing.TB, a *App, unexpected string) {
	t.Helper()
	html := a.HTML()
	if strings.Contains(html, unexpected) {
		t.Errorf("expected rendered output to NOT contain %q, got:\n%s", unexpected, truncate(html, 500))
	}
}

// ExpectAttribute asserts that the i-th node with tag has attr set to value.
func ExpectAttribute(t testing.TB, a *App, tag string, i int, attr, value string) {
	t.Helper()
	n := a.Find(tag, i)
	if got := memhost.FormatValue(n.Props[attr]); got != value {
		t.Errorf("<%s>[%d] %s = %q, want %q", tag, i, attr, got, value)
	}
}

// truncate truncates a string to max length with ellipsis.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
