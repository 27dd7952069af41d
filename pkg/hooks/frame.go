package hooks

import "github.com/vango-dev/loom/internal/errors"

// Kind identifies which hook created a cell.
type Kind uint8

const (
	KindState Kind = iota + 1
	KindReducer
	KindRef
)

// String returns a human-readable name for the hook kind.
func (k Kind) String() string {
	switch k {
	case KindState:
		return "State"
	case KindReducer:
		return "Reducer"
	case KindRef:
		return "Ref"
	default:
		return "Unknown"
	}
}

// Cell is one persistent hook slot.
type Cell struct {
	Kind  Kind
	State any
	Queue []func(any) any
}

// Frame is the hook-evaluation context of one composite render.
type Frame struct {
	prev     []*Cell
	cells    []*Cell
	index    int
	schedule func()
	strict   bool
	done     bool
}

// NewFrame starts a render whose previous cells are prev. schedule is called
// by every dispatch. In strict mode Finish also checks that the number of
// hook calls matches the previous render.
func NewFrame(prev []*Cell, schedule func(), strict bool) *Frame {
	return &Frame{
		prev:     prev,
		cells:    make([]*Cell, 0, len(prev)),
		schedule: schedule,
		strict:   strict,
	}
}

// Finish ends the render and returns the new cell list. The frame rejects
// hook calls afterwards.
func (f *Frame) Finish() []*Cell {
	f.done = true
	if f.strict && len(f.prev) > 0 && len(f.cells) != len(f.prev) {
		panic(errors.New(errors.CodeHookOrder).
			WithDetailf("expected %d hooks, got %d", len(f.prev), len(f.cells)))
	}
	return f.cells
}

// Len returns the number of hooks called so far.
func (f *Frame) Len() int {
	return len(f.cells)
}

// slot returns the previous cell at the current position (nil on first
// render) and the position, then advances.
func (f *Frame) slot(kind Kind) (*Cell, int) {
	if f == nil || f.done {
		panic(errors.New(errors.CodeHookOutsideRender))
	}
	idx := f.index
	f.index++
	if idx >= len(f.prev) {
		return nil, idx
	}
	old := f.prev[idx]
	if old.Kind != kind {
		panic(errors.New(errors.CodeHookOrder).
			WithDetailf("hook %d was %s, now %s", idx, old.Kind, kind))
	}
	return old, idx
}

func (f *Frame) push(c *Cell) {
	f.cells = append(f.cells, c)
}

func (f *Frame) requestRender() {
	if f.schedule != nil {
		f.schedule()
	}
}

func cast[T any](idx int, v any) T {
	if v == nil {
		var zero T
		return zero
	}
	t, ok := v.(T)
	if !ok {
		var want T
		panic(errors.New(errors.CodeHookOrder).
			WithDetailf("hook %d holds %T, requested %T", idx, v, want))
	}
	return t
}
