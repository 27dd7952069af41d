package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vango-dev/loom/pkg/host/memhost"
	"github.com/vango-dev/loom/pkg/reconciler"
)

// Snapshot is one serialized committed tree.
type Snapshot struct {
	Cycle uint64
	Taken time.Time
	HTML  []byte
}

// Option configures an Observer.
type Option func(*Observer)

// WithStore uploads every snapshot to store under "<session>/<cycle>.html".
func WithStore(store Store, session string) Option {
	return func(o *Observer) {
		o.store = store
		o.session = session
	}
}

// WithLogger sets the observer's logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Observer) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTimeout bounds each upload. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(o *Observer) {
		o.timeout = d
	}
}

// WithErrorHandler is called with every failed upload.
func WithErrorHandler(fn func(error)) Option {
	return func(o *Observer) {
		o.onError = fn
	}
}

// Observer serializes the tree under root after each commit.
type Observer struct {
	root    *memhost.Node
	store   Store
	session string
	logger  *slog.Logger
	timeout time.Duration
	onError func(error)

	mu       sync.Mutex
	latest   *Snapshot
	pending  *Snapshot
	uploaded uint64

	kick chan struct{}
}

// NewObserver creates an observer of the tree rooted at root. The root
// element itself is not part of the snapshot.
func NewObserver(root *memhost.Node, opts ...Option) *Observer {
	o := &Observer{
		root:    root,
		logger:  slog.Default().With("component", "snapshot"),
		timeout: 10 * time.Second,
		kick:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Observe records the committed tree. It has the reconciler commit observer
// signature and must run on the goroutine that owns the host.
func (o *Observer) Observe(info reconciler.CommitInfo) {
	var buf bytes.Buffer
	if err := memhost.RenderChildren(&buf, o.root, memhost.RenderConfig{}); err != nil {
		o.logger.Error("snapshot render failed", "cycle", info.Cycle, "error", err)
		return
	}
	snap := &Snapshot{Cycle: info.Cycle, Taken: time.Now(), HTML: buf.Bytes()}

	o.mu.Lock()
	o.latest = snap
	if o.store != nil {
		o.pending = snap
	}
	o.mu.Unlock()

	if o.store != nil {
		select {
		case o.kick <- struct{}{}:
		default:
		}
	}
}

// Latest returns the most recent snapshot, or nil before the first commit.
func (o *Observer) Latest() *Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.latest
}

// Uploaded returns the cycle of the last successful upload.
func (o *Observer) Uploaded() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.uploaded
}

// Run uploads pending snapshots until ctx is cancelled. The last pending
// snapshot is flushed before returning. Run returns immediately when no
// store is configured.
func (o *Observer) Run(ctx context.Context) {
	if o.store == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			o.flush(context.WithoutCancel(ctx))
			return
		case <-o.kick:
			o.flush(ctx)
		}
	}
}

func (o *Observer) flush(ctx context.Context) {
	o.mu.Lock()
	snap := o.pending
	o.pending = nil
	o.mu.Unlock()
	if snap == nil {
		return
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	key := fmt.Sprintf("%s/%06d.html", o.session, snap.Cycle)
	if err := o.store.Put(ctx, key, snap.HTML); err != nil {
		o.logger.Error("snapshot upload failed", "key", key, "error", err)
		if o.onError != nil {
			o.onError(err)
		}
		return
	}

	o.mu.Lock()
	if snap.Cycle > o.uploaded {
		o.uploaded = snap.Cycle
	}
	o.mu.Unlock()
	o.logger.Debug("snapshot uploaded", "key", key, "bytes", len(snap.HTML))
}
