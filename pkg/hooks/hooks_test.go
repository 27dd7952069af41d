package hooks

import (
	stderrors "errors"
	"testing"

	"github.com/vango-dev/loom/internal/errors"
)

// render runs body against a fresh frame built on prev, mimicking one
// composite evaluation.
func render(prev []*Cell, schedule func(), body func(f *Frame)) []*Cell {
	f := NewFrame(prev, schedule, true)
	body(f)
	return f.Finish()
}

func expectPanicCode(t *testing.T, code string, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic with %s", code)
		}
		err, ok := r.(error)
		if !ok || !stderrors.Is(err, errors.New(code)) {
			t.Fatalf("panic = %v, want %s", r, code)
		}
	}()
	fn()
}

func TestUseStateInitial(t *testing.T) {
	var got int
	cells := render(nil, nil, func(f *Frame) {
		got, _ = UseState(f, 7)
	})
	if got != 7 {
		t.Errorf("state = %d, want 7", got)
	}
	if len(cells) != 1 || cells[0].State != 7 {
		t.Errorf("cells = %+v", cells)
	}
}

func TestUseStateReplaysQueueInOrder(t *testing.T) {
	scheduled := 0
	var set Dispatch[string]
	cells := render(nil, func() { scheduled++ }, func(f *Frame) {
		_, set = UseState(f, "a")
	})

	set(func(s string) string { return s + "b" })
	set(func(s string) string { return s + "c" })
	if scheduled != 2 {
		t.Errorf("scheduled = %d, want 2 (no batching)", scheduled)
	}

	var got string
	next := render(cells, nil, func(f *Frame) {
		got, _ = UseState(f, "ignored")
	})
	if got != "abc" {
		t.Errorf("state = %q, want %q", got, "abc")
	}
	if len(next[0].Queue) != 0 {
		t.Error("new cell should start with an empty queue")
	}
}

func TestUseStateAcrossThreeCycles(t *testing.T) {
	var cells []*Cell
	var count int
	var set Dispatch[int]

	cells = render(cells, nil, func(f *Frame) { count, set = UseState(f, 10) })
	for i := 0; i < 3; i++ {
		set(func(c int) int { return c + 1 })
		cells = render(cells, nil, func(f *Frame) { count, set = UseState(f, 10) })
	}
	if count != 13 {
		t.Errorf("count = %d, want 13", count)
	}
}

func TestStaleQueueIsNotReplayedTwice(t *testing.T) {
	var set Dispatch[int]
	first := render(nil, nil, func(f *Frame) { _, set = UseState(f, 0) })
	set(func(c int) int { return c + 1 })

	// An abandoned render of the same alternate sees the action...
	render(first, nil, func(f *Frame) { UseState(f, 0) })

	// ...and so does the render that is finally committed, exactly once.
	var got int
	render(first, nil, func(f *Frame) { got, _ = UseState(f, 0) })
	if got != 1 {
		t.Errorf("state = %d, want 1", got)
	}
}

func TestMultipleHooksKeepPositions(t *testing.T) {
	var setB Dispatch[int]
	cells := render(nil, nil, func(f *Frame) {
		UseState(f, 1)
		_, setB = UseState(f, 2)
	})
	setB(func(b int) int { return b * 10 })

	var a, b int
	render(cells, nil, func(f *Frame) {
		a, _ = UseState(f, 1)
		b, _ = UseState(f, 2)
	})
	if a != 1 || b != 20 {
		t.Errorf("a, b = %d, %d, want 1, 20", a, b)
	}
}

func TestUseReducer(t *testing.T) {
	type msg struct{ delta int }
	reducer := func(s int, m msg) int { return s + m.delta }

	var send func(msg)
	cells := render(nil, nil, func(f *Frame) {
		_, send = UseReducer(f, reducer, 0)
	})
	send(msg{delta: 5})
	send(msg{delta: -2})

	var got int
	render(cells, nil, func(f *Frame) {
		got, _ = UseReducer(f, reducer, 0)
	})
	if got != 3 {
		t.Errorf("state = %d, want 3", got)
	}
}

func TestUseRefIsStable(t *testing.T) {
	var r1, r2 *Ref[int]
	scheduled := false
	cells := render(nil, func() { scheduled = true }, func(f *Frame) {
		r1 = UseRef(f, 1)
	})
	r1.Current = 42
	render(cells, nil, func(f *Frame) {
		r2 = UseRef(f, 1)
	})
	if r1 != r2 {
		t.Error("ref changed identity across renders")
	}
	if r2.Current != 42 {
		t.Errorf("ref.Current = %d, want 42", r2.Current)
	}
	if scheduled {
		t.Error("ref mutation must not schedule a render")
	}
}

func TestHookAfterFinishPanics(t *testing.T) {
	f := NewFrame(nil, nil, false)
	f.Finish()
	expectPanicCode(t, errors.CodeHookOutsideRender, func() {
		UseState(f, 0)
	})
}

func TestNilFramePanics(t *testing.T) {
	expectPanicCode(t, errors.CodeHookOutsideRender, func() {
		UseState[int](nil, 0)
	})
}

func TestHookKindChangePanics(t *testing.T) {
	cells := render(nil, nil, func(f *Frame) { UseState(f, 0) })
	expectPanicCode(t, errors.CodeHookOrder, func() {
		render(cells, nil, func(f *Frame) { UseRef(f, 0) })
	})
}

func TestHookTypeChangePanics(t *testing.T) {
	cells := render(nil, nil, func(f *Frame) { UseState(f, 0) })
	expectPanicCode(t, errors.CodeHookOrder, func() {
		render(cells, nil, func(f *Frame) { UseState(f, "x") })
	})
}

func TestStrictHookCountPanics(t *testing.T) {
	cells := render(nil, nil, func(f *Frame) {
		UseState(f, 0)
		UseState(f, 0)
	})
	expectPanicCode(t, errors.CodeHookOrder, func() {
		render(cells, nil, func(f *Frame) { UseState(f, 0) })
	})
}
