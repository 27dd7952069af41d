package hooks

// Dispatch enqueues a state transition and schedules a render.
type Dispatch[T any] func(action func(T) T)

// UseState returns the node's current state for this call position and a
// dispatch that queues transitions against it. On the first render the state
// is initial; afterwards it is the previous state with every action queued
// since then applied in order.
func UseState[T any](f *Frame, initial T) (T, Dispatch[T]) {
	old, idx := f.slot(KindState)

	cell := &Cell{Kind: KindState, State: initial}
	if old != nil {
		cell.State = old.State
		for _, action := range old.Queue {
			cell.State = action(cell.State)
		}
	}
	state := cast[T](idx, cell.State)
	f.push(cell)

	dispatch := func(action func(T) T) {
		cell.Queue = append(cell.Queue, func(v any) any {
			return action(cast[T](idx, v))
		})
		f.requestRender()
	}
	return state, dispatch
}

// UseReducer is UseState with transitions described by messages.
func UseReducer[S, M any](f *Frame, reducer func(S, M) S, initial S) (S, func(M)) {
	old, idx := f.slot(KindReducer)

	cell := &Cell{Kind: KindReducer, State: initial}
	if old != nil {
		cell.State = old.State
		for _, action := range old.Queue {
			cell.State = action(cell.State)
		}
	}
	state := cast[S](idx, cell.State)
	f.push(cell)

	send := func(msg M) {
		cell.Queue = append(cell.Queue, func(v any) any {
			return reducer(cast[S](idx, v), msg)
		})
		f.requestRender()
	}
	return state, send
}

// Ref is a mutable box that survives renders without causing them.
type Ref[T any] struct {
	Current T
}

// UseRef returns the same *Ref on every render of the node.
func UseRef[T any](f *Frame, initial T) *Ref[T] {
	old, idx := f.slot(KindRef)

	var ref *Ref[T]
	if old != nil {
		ref = cast[*Ref[T]](idx, old.State)
	} else {
		ref = &Ref[T]{Current: initial}
	}
	f.push(&Cell{Kind: KindRef, State: ref})
	return ref
}
