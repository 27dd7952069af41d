package server

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/loom/pkg/driver"
	"github.com/vango-dev/loom/pkg/host/remote"
	"github.com/vango-dev/loom/pkg/metrics"
	"github.com/vango-dev/loom/pkg/protocol"
	"github.com/vango-dev/loom/pkg/reconciler"
	"github.com/vango-dev/loom/pkg/snapshot"
)

// Session is one connected client and the application instance it drives.
type Session struct {
	// ID identifies the session in Hello frames and HTTP routes.
	ID string

	server   *Server
	conn     *websocket.Conn
	writeMu  sync.Mutex
	host     *remote.Host
	sched    *reconciler.Scheduler
	loop     *driver.Loop
	snap     *snapshot.Observer
	recorder *metrics.Recorder
	handler  EventHandler
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool
	once   sync.Once

	events    atomic.Uint64
	bytesSent atomic.Uint64
	bytesRecv atomic.Uint64
}

func newSession(s *Server, id string, conn *websocket.Conn) *Session {
	sess := &Session{
		ID:     id,
		server: s,
		conn:   conn,
		logger: s.logger.With("session_id", id),
	}
	sess.ctx, sess.cancel = context.WithCancel(context.Background())

	sess.host = remote.New(remote.SenderFunc(sess.sendFrame), remote.WithLogger(sess.logger))

	var storeOpts []snapshot.Option
	storeOpts = append(storeOpts, snapshot.WithLogger(sess.logger))
	if s.store != nil {
		storeOpts = append(storeOpts, snapshot.WithStore(s.store, id))
	}
	sess.snap = snapshot.NewObserver(sess.host.Container(), storeOpts...)

	opts := []reconciler.Option{
		reconciler.WithLogger(sess.logger.With("component", "reconciler")),
		reconciler.WithYieldThreshold(s.config.YieldThreshold),
		reconciler.WithDebug(s.config.Debug),
		reconciler.WithCommitObserver(sess.snap.Observe),
	}
	if s.collector != nil {
		sess.recorder = s.collector.Recorder()
		opts = append(opts, reconciler.WithRecorder(sess.recorder))
	}
	if s.tracer != nil {
		opts = append(opts, reconciler.WithTracer(s.tracer))
	}
	sess.sched = reconciler.New(sess.host, opts...)

	sess.loop = driver.New(sess.sched,
		driver.WithSliceBudget(s.config.SliceBudget),
		driver.WithLogger(sess.logger.With("component", "driver")),
		driver.WithErrorHandler(sess.renderFailed),
	)
	sess.handler = s.eventHandler(sess.dispatch)
	return sess
}

// start launches the loop, sends the Hello frame and requests the first
// render. The first commit reaches the client as a patches frame.
func (s *Session) start() error {
	go func() {
		_ = s.loop.Run(s.ctx)
	}()
	go s.snap.Run(s.ctx)

	var err error
	callErr := s.loop.Call(s.ctx, func() {
		if err = s.sendFrame(s.host.Hello(s.ID)); err != nil {
			return
		}
		err = s.sched.Render(s.server.app(), s.host.Container())
	})
	if callErr != nil {
		return callErr
	}
	return err
}

// readLoop reads frames until the connection fails or the session closes.
func (s *Session) readLoop() {
	defer s.Close()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("read loop panic", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	for {
		s.conn.SetReadDeadline(time.Now().Add(s.server.config.SessionReadTimeout))

		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) && !s.closed.Load() {
				s.logger.Error("read error", "error", err)
			}
			return
		}
		s.bytesRecv.Add(uint64(len(msg)))

		frame, err := protocol.DecodeFrame(msg)
		if err != nil {
			s.logger.Warn("frame decode error", "error", err)
			s.sendError(protocol.NewError(protocol.ErrInvalidFrame, err.Error()))
			continue
		}

		switch frame.Type {
		case protocol.FrameEvent:
			if !s.handleEventFrame(frame.Payload) {
				return
			}
		case protocol.FrameControl:
			if !s.handleControlFrame(frame.Payload) {
				return
			}
		default:
			s.logger.Warn("unknown frame type", "type", frame.Type)
		}
	}
}

// handleEventFrame queues a client event. It returns false once the loop
// has stopped.
func (s *Session) handleEventFrame(payload []byte) bool {
	ev, err := protocol.DecodeEvent(payload)
	if err != nil {
		s.logger.Warn("event decode error", "error", err)
		s.sendError(protocol.NewError(protocol.ErrInvalidEvent, "invalid event format"))
		return true
	}
	s.events.Add(1)

	err = s.loop.Submit(func() {
		if err := s.handler(s.ctx, ev); err != nil {
			s.eventFailed(ev, err)
		}
	})
	return !errors.Is(err, driver.ErrStopped)
}

func (s *Session) handleControlFrame(payload []byte) bool {
	c, err := protocol.DecodeControl(payload)
	if err != nil {
		s.logger.Warn("control decode error", "error", err)
		return true
	}

	switch c.Type {
	case protocol.ControlPing:
		pong := &protocol.Control{Type: protocol.ControlPong, Nonce: c.Nonce}
		if err := s.sendFrame(protocol.NewFrame(protocol.FrameControl, protocol.EncodeControl(pong))); err != nil {
			return false
		}
	case protocol.ControlPong:
		s.logger.Debug("received pong", "nonce", c.Nonce)
	case protocol.ControlResync:
		err := s.loop.Submit(func() {
			_ = s.sendFrame(s.host.Hello(s.ID))
		})
		return !errors.Is(err, driver.ErrStopped)
	}
	return true
}

// dispatch is the innermost event handler: it runs the addressed node's
// listeners.
func (s *Session) dispatch(_ context.Context, ev *protocol.Event) error {
	_, err := s.host.HandleEvent(ev)
	return err
}

func (s *Session) eventFailed(ev *protocol.Event, err error) {
	s.logger.Warn("event failed", "node", ev.Node, "type", ev.Type, "error", err)
	code := protocol.ErrServerError
	if errors.Is(err, remote.ErrUnknownNode) {
		code = protocol.ErrNodeNotFound
	}
	s.sendError(protocol.NewError(code, err.Error()))
}

// renderFailed reports an abandoned cycle to the client. The committed tree
// is unchanged, so the session stays usable.
func (s *Session) renderFailed(err error) {
	s.sendError(protocol.NewError(protocol.ErrRenderFailed, err.Error()))
}

func (s *Session) sendError(em *protocol.ErrorMessage) {
	_ = s.sendFrame(protocol.NewFrame(protocol.FrameError, protocol.EncodeErrorMessage(em)))
}

// sendFrame writes one binary frame. A write failure closes the session.
func (s *Session) sendFrame(f *protocol.Frame) error {
	data := f.Encode()

	s.writeMu.Lock()
	s.conn.SetWriteDeadline(time.Now().Add(s.server.config.WriteTimeout))
	err := s.conn.WriteMessage(websocket.BinaryMessage, data)
	s.writeMu.Unlock()

	if err != nil {
		if !s.closed.Load() {
			s.logger.Warn("write failed", "frame", f.Type, "error", err)
			go s.Close()
		}
		return err
	}
	s.bytesSent.Add(uint64(len(data)))
	return nil
}

// Snapshot returns the session's latest committed tree, or nil before the
// first commit.
func (s *Session) Snapshot() *snapshot.Snapshot {
	return s.snap.Latest()
}

// Call runs fn on the session's loop goroutine, where the scheduler and host
// may be used, and waits for it.
func (s *Session) Call(ctx context.Context, fn func(*reconciler.Scheduler, *remote.Host)) error {
	return s.loop.Call(ctx, func() { fn(s.sched, s.host) })
}

// IsClosed reports whether the session has been closed.
func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// Close stops the loop and closes the connection. It is safe to call more
// than once.
func (s *Session) Close() {
	s.once.Do(func() {
		s.closed.Store(true)
		s.cancel()
		<-s.loop.Done()

		if s.recorder != nil {
			s.recorder.Close()
		}

		s.writeMu.Lock()
		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		s.writeMu.Unlock()
		_ = s.conn.Close()

		s.logger.Info("session closed",
			"events", s.events.Load(),
			"bytes_sent", s.bytesSent.Load(),
			"bytes_recv", s.bytesRecv.Load())
	})
}
