package reconciler

import (
	"github.com/vango-dev/loom/pkg/element"
	"github.com/vango-dev/loom/pkg/hooks"
	"github.com/vango-dev/loom/pkg/host"
)

// Effect is the pending mutation a fiber carries into commit.
type Effect uint8

const (
	EffectNone Effect = iota
	EffectPlacement
	EffectUpdate
	EffectDeletion
)

// String returns the string representation of the Effect.
func (e Effect) String() string {
	switch e {
	case EffectNone:
		return "NONE"
	case EffectPlacement:
		return "PLACEMENT"
	case EffectUpdate:
		return "UPDATE"
	case EffectDeletion:
		return "DELETION"
	default:
		return "UNKNOWN"
	}
}

// fiberID addresses a fiber in the arena.
type fiberID int32

const noFiber fiberID = -1

// fiber is one unit of work. parent, child, sibling and alternate are arena
// indices; child/sibling form the first-child/next-sibling tree.
type fiber struct {
	typ       element.Type
	props     element.Props
	node      host.Node
	parent    fiberID
	child     fiberID
	sibling   fiberID
	alternate fiberID
	effect    Effect
	hooks     []*hooks.Cell
	live      bool
}

func newFiber() fiber {
	return fiber{
		parent:    noFiber,
		child:     noFiber,
		sibling:   noFiber,
		alternate: noFiber,
		live:      true,
	}
}

// arena stores fibers by stable index and recycles freed slots. Pointers
// returned by at are invalidated by the next alloc.
type arena struct {
	fibers []fiber
	free   []fiberID
	marks  []bool
}

func (a *arena) alloc(f fiber) fiberID {
	f.live = true
	if n := len(a.free); n > 0 {
		id := a.free[n-1]
		a.free = a.free[:n-1]
		a.fibers[id] = f
		return id
	}
	a.fibers = append(a.fibers, f)
	return fiberID(len(a.fibers) - 1)
}

func (a *arena) at(id fiberID) *fiber {
	return &a.fibers[id]
}

// live returns the number of allocated fibers.
func (a *arena) live() int {
	return len(a.fibers) - len(a.free)
}

// sweep keeps the tree under root, clears its alternate links, and frees
// every other fiber. It returns the number of fibers freed.
func (a *arena) sweep(root fiberID) int {
	if cap(a.marks) < len(a.fibers) {
		a.marks = make([]bool, len(a.fibers))
	}
	marks := a.marks[:len(a.fibers)]
	for i := range marks {
		marks[i] = false
	}

	if root != noFiber {
		stack := []fiberID{root}
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			marks[id] = true
			f := a.at(id)
			f.alternate = noFiber
			for c := f.child; c != noFiber; c = a.at(c).sibling {
				stack = append(stack, c)
			}
		}
	}

	freed := 0
	for i := range a.fibers {
		f := &a.fibers[i]
		if !f.live || marks[i] {
			continue
		}
		*f = fiber{}
		a.free = append(a.free, fiberID(i))
		freed++
	}
	return freed
}
