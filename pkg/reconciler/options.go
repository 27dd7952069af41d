package reconciler

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// DefaultYieldThreshold is the remaining slice time below which WorkLoop
// yields.
const DefaultYieldThreshold = time.Millisecond

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRecorder sets the activity recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Scheduler) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithTracer sets the tracer used for commit spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Scheduler) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithYieldThreshold sets how little slice time must remain before WorkLoop
// yields.
func WithYieldThreshold(d time.Duration) Option {
	return func(s *Scheduler) {
		if d >= 0 {
			s.yieldThreshold = d
		}
	}
}

// WithCommitObserver registers fn to run after every commit, once the new
// tree is current.
func WithCommitObserver(fn func(CommitInfo)) Option {
	return func(s *Scheduler) {
		if fn != nil {
			s.observers = append(s.observers, fn)
		}
	}
}

// WithDebug enables hook count validation.
func WithDebug(enabled bool) Option {
	return func(s *Scheduler) {
		s.debug = enabled
	}
}
