package reconciler

import (
	"time"

	"github.com/vango-dev/loom/pkg/element"
)

// CommitInfo summarizes one committed work cycle.
type CommitInfo struct {
	Cycle      uint64        // 1 for the first commit
	Units      int           // fibers processed in the cycle
	Placements int           // fibers tagged PLACEMENT
	Updates    int           // fibers tagged UPDATE
	Deletions  int           // fibers removed via the deletion list
	Mutations  int           // host operations issued during commit
	Freed      int           // fibers reclaimed after the swap
	Duration   time.Duration // commit pass only
}

// Recorder receives scheduler activity. Implementations must not call back
// into the scheduler.
type Recorder interface {
	UnitOfWork(kind element.Kind)
	WorkSlice(units int, yielded bool)
	HostMutations(effect Effect, n int)
	Commit(info CommitInfo)
	Abandoned()
	LiveFibers(n int)
}

type nopRecorder struct{}

func (nopRecorder) UnitOfWork(element.Kind)   {}
func (nopRecorder) WorkSlice(int, bool)       {}
func (nopRecorder) HostMutations(Effect, int) {}
func (nopRecorder) Commit(CommitInfo)         {}
func (nopRecorder) Abandoned()                {}
func (nopRecorder) LiveFibers(int)            {}
