package driver

import (
	"math"
	"time"

	"github.com/vango-dev/loom/pkg/reconciler"
)

// Expired is a deadline that has always passed. WorkLoop processes exactly
// one fiber per call under it.
var Expired reconciler.Deadline = reconciler.DeadlineFunc(func() time.Duration { return 0 })

// Until returns a deadline at t.
func Until(t time.Time) reconciler.Deadline {
	return reconciler.DeadlineFunc(func() time.Duration { return time.Until(t) })
}

// Budget returns a deadline d from now.
func Budget(d time.Duration) reconciler.Deadline {
	return Until(time.Now().Add(d))
}

// Steps returns a deadline that lets WorkLoop process exactly n fibers
// (at least one) before it yields.
func Steps(n int) reconciler.Deadline {
	checks := 0
	return reconciler.DeadlineFunc(func() time.Duration {
		checks++
		if checks >= n {
			return 0
		}
		return math.MaxInt64
	})
}
