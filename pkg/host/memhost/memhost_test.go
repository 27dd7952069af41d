package memhost

import (
	stderrors "errors"
	"testing"

	"github.com/vango-dev/loom/pkg/element"
	"github.com/vango-dev/loom/pkg/host"
)

func mustCreate(t *testing.T, h *Host, tag string) *Node {
	t.Helper()
	n, err := h.CreateNode(tag)
	if err != nil {
		t.Fatalf("CreateNode(%q): %v", tag, err)
	}
	return n.(*Node)
}

func TestCreateNodeRejectsUnknownTag(t *testing.T) {
	h := New()
	if _, err := h.CreateNode("blink"); !stderrors.Is(err, host.ErrUnknownType) {
		t.Errorf("err = %v, want ErrUnknownType", err)
	}
	if _, err := New(WithAnyTag()).CreateNode("blink"); err != nil {
		t.Errorf("WithAnyTag: err = %v", err)
	}
	if _, err := New(WithAnyTag()).CreateNode(""); !stderrors.Is(err, host.ErrUnknownType) {
		t.Errorf("empty tag: err = %v, want ErrUnknownType", err)
	}
}

func TestTreeOperations(t *testing.T) {
	h := New()
	root := h.NewContainer("main")
	div := mustCreate(t, h, "div")
	text := mustCreate(t, h, element.TextTag)

	if err := h.SetProperty(text, element.NodeValue, "hi"); err != nil {
		t.Fatal(err)
	}
	if err := h.SetProperty(div, "id", "x"); err != nil {
		t.Fatal(err)
	}
	if err := h.AppendChild(div, text); err != nil {
		t.Fatal(err)
	}
	if div.Attached() {
		t.Error("div should not be attached yet")
	}
	if err := h.AppendChild(root, div); err != nil {
		t.Fatal(err)
	}
	if !text.Attached() {
		t.Error("text should be attached through div")
	}

	if got := HTML(root); got != `<div id="x">hi</div>` {
		t.Errorf("HTML = %q", got)
	}
	if got := root.TextContent(); got != "hi" {
		t.Errorf("TextContent = %q", got)
	}

	if err := h.RemoveChild(root, text); !stderrors.Is(err, host.ErrNotChild) {
		t.Errorf("RemoveChild of grandchild: err = %v, want ErrNotChild", err)
	}
	if err := h.RemoveChild(root, div); err != nil {
		t.Fatal(err)
	}
	if len(root.Children) != 0 {
		t.Error("div still attached")
	}
	if h.Lookup(text.ID) != nil {
		t.Error("removed subtree should be released")
	}
	if err := h.SetProperty(div, "id", "y"); !stderrors.Is(err, host.ErrBadNode) {
		t.Errorf("mutating a released node: err = %v, want ErrBadNode", err)
	}
}

func TestTextNodeRejectsAttributes(t *testing.T) {
	h := New()
	text := mustCreate(t, h, element.TextTag)
	if err := h.SetProperty(text, "id", "x"); err == nil {
		t.Error("expected error setting id on a text node")
	}
}

func TestMutationLog(t *testing.T) {
	var observed []Mutation
	h := New(WithObserver(func(m Mutation) { observed = append(observed, m) }))
	root := h.NewContainer("main")
	div := mustCreate(t, h, "div")

	h.BeginCommit()
	_ = h.AppendChild(root, div)
	_ = h.SetProperty(div, "class", "a")
	_ = h.EndCommit()

	log := h.Mutations()
	if len(log) != 3 || len(observed) != 3 {
		t.Fatalf("log = %v, observed = %d", log, len(observed))
	}
	wantOps := []Op{OpCreate, OpAppendChild, OpSetProperty}
	for i, op := range wantOps {
		if log[i].Op != op {
			t.Errorf("log[%d].Op = %v, want %v", i, log[i].Op, op)
		}
	}
	if log[0].InCommit || log[0].Attached {
		t.Errorf("create should be detached and outside commit: %+v", log[0])
	}
	if !log[1].InCommit || !log[1].Attached {
		t.Errorf("append should be attached and in commit: %+v", log[1])
	}
	if h.Commits() != 1 || h.InCommit() {
		t.Errorf("Commits = %d, InCommit = %v", h.Commits(), h.InCommit())
	}

	h.Reset()
	if len(h.Mutations()) != 0 {
		t.Error("Reset did not clear the log")
	}
}

func TestListeners(t *testing.T) {
	h := New()
	btn := mustCreate(t, h, "button")

	clicks := 0
	l := element.On(func(ev element.Event) { clicks++ })
	fn := func(element.Event) { clicks += 10 }

	_ = h.AddListener(btn, "click", l)
	_ = h.AddListener(btn, "click", fn)
	if n := h.Dispatch(btn, element.Event{Type: "click"}); n != 2 {
		t.Errorf("Dispatch ran %d handlers, want 2", n)
	}
	if clicks != 11 {
		t.Errorf("clicks = %d, want 11", clicks)
	}

	_ = h.RemoveListener(btn, "click", l)
	_ = h.RemoveListener(btn, "click", fn)
	if btn.Listeners("click") != 0 {
		t.Errorf("listeners = %d, want 0", btn.Listeners("click"))
	}
	if n := h.Dispatch(btn, element.Event{Type: "click"}); n != 0 {
		t.Errorf("Dispatch after removal ran %d handlers", n)
	}
}

func TestRenderHTML(t *testing.T) {
	h := New()
	root := h.NewContainer("main")
	input := mustCreate(t, h, "input")
	_ = h.SetProperty(input, "disabled", true)
	_ = h.SetProperty(input, "checked", false)
	_ = h.SetProperty(input, "value", `a"b<c`)
	p := mustCreate(t, h, "p")
	text := mustCreate(t, h, element.TextTag)
	_ = h.SetProperty(text, element.NodeValue, 3)
	_ = h.AppendChild(p, text)
	_ = h.AppendChild(root, input)
	_ = h.AppendChild(root, p)

	want := `<input disabled value="a&quot;b&lt;c"><p>3</p>`
	if got := HTML(root); got != want {
		t.Errorf("HTML = %q, want %q", got, want)
	}
}
