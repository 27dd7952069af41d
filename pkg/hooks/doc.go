// Package hooks implements per-node persistent state for composites.
//
// Each render of a composite gets a Frame holding the cell list from that
// node's previous render. Hooks consume cells strictly by call position:
// the i-th hook call of a render reads the i-th cell of the previous render
// and appends a fresh cell for the next one. There is no named lookup, so a
// composite must call the same hooks in the same order on every render.
//
//	count, setCount := hooks.UseState(h, 0)
//	setCount(func(c int) int { return c + 1 })
//
// A dispatch appends the action to its cell's queue and asks the scheduler
// for a new render cycle. The next render of the node replays the queued
// actions, in enqueue order, on top of the previous state.
package hooks
