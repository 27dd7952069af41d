package reconciler

import (
	stderrors "errors"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/loom/internal/errors"
	"github.com/vango-dev/loom/pkg/element"
	"github.com/vango-dev/loom/pkg/host"
)

// ErrNoContainer is returned by Render when given a nil container.
var ErrNoContainer = stderrors.New("reconciler: nil container")

// State is the scheduler's position in a work cycle.
type State uint8

const (
	// StateIdle means there is no work-in-progress tree.
	StateIdle State = iota
	// StateWorking means fibers remain to be processed.
	StateWorking
	// StateCommitPending means every fiber is processed and the tree
	// awaits commit.
	StateCommitPending
)

// String returns the string representation of the State.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateWorking:
		return "WORKING"
	case StateCommitPending:
		return "COMMIT-PENDING"
	default:
		return "UNKNOWN"
	}
}

// Deadline reports how much of the current time slice is left.
type Deadline interface {
	TimeRemaining() time.Duration
}

// DeadlineFunc adapts a function to Deadline.
type DeadlineFunc func() time.Duration

// TimeRemaining implements Deadline.
func (f DeadlineFunc) TimeRemaining() time.Duration { return f() }

// Unbounded never runs out.
var Unbounded Deadline = DeadlineFunc(func() time.Duration { return math.MaxInt64 })

// Scheduler owns one rendered root: the committed fiber tree, the
// work-in-progress tree, and the cursor into it.
type Scheduler struct {
	host  host.Host
	arena arena

	next        fiberID // next unit of work
	wipRoot     fiberID
	currentRoot fiberID
	deletions   []fiberID

	generation uint64 // bumped whenever a work-in-progress root is installed
	cycle      uint64 // committed cycles
	units      int    // fibers processed in the current cycle

	logger         *slog.Logger
	recorder       Recorder
	tracer         trace.Tracer
	yieldThreshold time.Duration
	observers      []func(CommitInfo)
	debug          bool
}

// New creates a scheduler that renders into h.
func New(h host.Host, opts ...Option) *Scheduler {
	s := &Scheduler{
		host:           h,
		next:           noFiber,
		wipRoot:        noFiber,
		currentRoot:    noFiber,
		logger:         slog.Default().With("component", "reconciler"),
		recorder:       nopRecorder{},
		tracer:         otel.Tracer("loom"),
		yieldThreshold: DefaultYieldThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Render starts a work cycle that makes container hold exactly el. Any
// cycle in progress is discarded.
func (s *Scheduler) Render(el *element.Element, container host.Node) error {
	if container == nil {
		return ErrNoContainer
	}
	var children []*element.Element
	if el != nil {
		children = []*element.Element{el}
	}
	root := newFiber()
	root.node = container
	root.props = element.Props{Attrs: element.Attrs{}, Children: children}
	root.alternate = s.currentRoot
	s.install(s.arena.alloc(root))
	return nil
}

// rerender starts a cycle from the committed root. It is the schedule
// callback of every hook frame. Before the first commit there is no root to
// restart from; the dispatched action stays queued for the next cycle.
func (s *Scheduler) rerender() {
	if s.currentRoot == noFiber {
		s.logger.Warn("no committed root, update deferred to next render")
		return
	}
	cur := s.arena.at(s.currentRoot)
	root := newFiber()
	root.node = cur.node
	root.props = cur.props
	root.alternate = s.currentRoot
	s.install(s.arena.alloc(root))
}

func (s *Scheduler) install(root fiberID) {
	if s.wipRoot != noFiber {
		s.logger.Debug("work cycle restarted", "units", s.units)
	}
	s.wipRoot = root
	s.next = root
	s.deletions = nil
	s.units = 0
	s.generation++
}

// WorkLoop processes fibers until the deadline leaves less than the yield
// threshold or no fiber remains, committing when the tree is complete. At
// least one fiber is processed per call when work is pending. It returns
// whether work remains.
//
// A host failure while processing or committing, or a panic in a render
// function, abandons the cycle and is returned. The committed tree is left
// as it was.
func (s *Scheduler) WorkLoop(d Deadline) (more bool, err error) {
	if d == nil {
		d = Unbounded
	}

	units := 0
	for s.next != noFiber {
		gen := s.generation
		next, err := s.step(s.next)
		if err != nil {
			s.abandon(err)
			return false, err
		}
		if gen == s.generation {
			s.next = next
		}
		units++
		if rem := d.TimeRemaining(); rem <= 0 || rem < s.yieldThreshold {
			break
		}
	}
	if units > 0 {
		s.recorder.WorkSlice(units, s.next != noFiber)
	}

	if s.next == noFiber && s.wipRoot != noFiber {
		if err := s.commitRoot(); err != nil {
			return false, err
		}
	}
	return s.Pending(), nil
}

// step runs one unit of work, turning a panic raised by a composite's render
// function into an error.
func (s *Scheduler) step(id fiberID) (next fiberID, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = errors.FromError(e, errors.CodeRenderPanic)
			} else {
				err = errors.New(errors.CodeRenderPanic).WithDetailf("%v", r)
			}
			next = noFiber
		}
	}()
	return s.performUnitOfWork(id)
}

// Flush runs WorkLoop without a deadline until the scheduler is idle.
func (s *Scheduler) Flush() error {
	for s.Pending() {
		if _, err := s.WorkLoop(Unbounded); err != nil {
			return err
		}
	}
	return nil
}

// State returns the scheduler's current state.
func (s *Scheduler) State() State {
	switch {
	case s.next != noFiber:
		return StateWorking
	case s.wipRoot != noFiber:
		return StateCommitPending
	default:
		return StateIdle
	}
}

// Pending reports whether a work cycle is in progress.
func (s *Scheduler) Pending() bool {
	return s.wipRoot != noFiber
}

// Cycle returns the number of committed cycles.
func (s *Scheduler) Cycle() uint64 {
	return s.cycle
}

// LiveFibers returns the number of fibers currently allocated.
func (s *Scheduler) LiveFibers() int {
	return s.arena.live()
}

func (s *Scheduler) abandon(err error) {
	s.logger.Error("work cycle abandoned", "error", err, "units", s.units)
	s.recorder.Abandoned()
	s.wipRoot = noFiber
	s.next = noFiber
	s.deletions = nil
	s.units = 0
	s.arena.sweep(s.currentRoot)
	s.recorder.LiveFibers(s.arena.live())
}
