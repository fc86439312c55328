// Package session implements the Client Session component: one instance per
// WebSocket connection, translating inbound wsproto frames into serial.Registry
// operations and Registry notifications back into outbound wsproto frames.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/Shoaibashk/wsss/internal/serial"
	"github.com/Shoaibashk/wsss/internal/wsproto"
)

// outboundQueueDepth bounds each session's outbound event queue. A full
// queue causes Notify to drop the chunk rather than block the Broadcaster,
// which runs on the originating Port Worker's own goroutine.
const outboundQueueDepth = 64

const writeTimeout = 5 * time.Second

// Session terminates one WebSocket connection. It implements serial.Subscriber
// so the Registry can track its port-name set directly, keeping the
// Registry's subscriber set and the session's own port set in lockstep.
type Session struct {
	id     string
	conn   *websocket.Conn
	reg    *serial.Registry
	logger *log.Logger

	outbound chan wsproto.Event
	done     chan struct{}

	mu      sync.Mutex
	ports   map[string]struct{}
	dropped int
}

// New creates a Session bound to an already-accepted WebSocket connection.
func New(conn *websocket.Conn, reg *serial.Registry, logger *log.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		id:       id,
		conn:     conn,
		reg:      reg,
		logger:   logger.With("session", id),
		outbound: make(chan wsproto.Event, outboundQueueDepth),
		done:     make(chan struct{}),
		ports:    make(map[string]struct{}),
	}
}

// SubscriberID implements serial.Subscriber.
func (s *Session) SubscriberID() string { return s.id }

// TrackOpen implements serial.Subscriber, called by the Registry under its
// own lock whenever s is added to a port's subscriber set.
func (s *Session) TrackOpen(port string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ports[port] = struct{}{}
}

// TrackClose implements serial.Subscriber, called by the Registry under its
// own lock whenever s is removed from a port's subscriber set.
func (s *Session) TrackClose(port string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ports, port)
}

// Notify implements serial.Subscriber. It must never block: it runs on the
// Broadcaster's call stack, which for a Read notification is the originating
// Port Worker's own goroutine.
func (s *Session) Notify(n serial.Notification) {
	var ev wsproto.Event
	switch n.Kind {
	case serial.NotifyRead:
		ev = wsproto.NewRead(n.Port, n.Data)
	case serial.NotifyClosed:
		reason := ""
		if n.Err != nil {
			reason = "io"
		}
		ev = wsproto.NewClosed(n.Port, reason)
	default:
		return
	}
	s.enqueueNonBlocking(ev)
}

func (s *Session) enqueueNonBlocking(ev wsproto.Event) {
	select {
	case s.outbound <- ev:
	default:
		s.mu.Lock()
		s.dropped++
		n := s.dropped
		s.mu.Unlock()
		s.logger.Warn("dropped outbound event, session queue full", "dropped_total", n)
	}
}

// DropCount returns how many outbound notifications this session has
// dropped because its queue was full, so operators can diagnose a slow
// consumer from the session's own teardown log line.
func (s *Session) DropCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

func (s *Session) portSet() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.ports))
	for p := range s.ports {
		out = append(out, p)
	}
	return out
}

// Run drives the session until the connection closes or ctx is canceled. It
// always tears down cleanly: every port this session held is closed via
// Registry.CloseAll before Run returns.
func (s *Session) Run(ctx context.Context) error {
	writeErrCh := make(chan error, 1)
	go func() {
		writeErrCh <- s.writeLoop(ctx)
	}()

	readErr := s.readLoop(ctx)

	close(s.done)
	s.reg.CloseAll(s, s.portSet())
	if n := s.DropCount(); n > 0 {
		s.logger.Info("session closed", "dropped_total", n)
	}

	writeErr := <-writeErrCh
	if readErr != nil {
		return readErr
	}
	return writeErr
}

func (s *Session) writeLoop(ctx context.Context) error {
	for {
		select {
		case ev := <-s.outbound:
			if err := s.writeEvent(ctx, ev); err != nil {
				return err
			}
		case <-s.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Session) writeEvent(ctx context.Context, ev wsproto.Event) error {
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(wctx, s.conn, ev)
}

func (s *Session) readLoop(ctx context.Context) error {
	for {
		_, raw, err := s.conn.Read(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			code := websocket.CloseStatus(err)
			if code == websocket.StatusNormalClosure || code == websocket.StatusGoingAway {
				return nil
			}
			return err
		}
		s.handleFrame(raw)
	}
}

func (s *Session) handleFrame(raw []byte) {
	req, err := wsproto.ParseRequest(raw)
	if err != nil {
		code := wsproto.CodeUnknownRequest
		if errors.Is(err, wsproto.ErrBadJSON) {
			code = wsproto.CodeBadJSON
		}
		s.enqueueNonBlocking(wsproto.NewError("", code, err.Error()))
		return
	}
	s.dispatch(req)
}

func (s *Session) dispatch(req wsproto.Request) {
	switch req.Kind {
	case wsproto.KindOpen:
		if err := s.reg.Open(req.Port, s); err != nil {
			s.enqueueNonBlocking(errorEvent(req.Kind, err))
			return
		}
		s.enqueueNonBlocking(wsproto.NewOpened(req.Port))

	case wsproto.KindClose:
		if req.Port == "" {
			closed := s.reg.CloseAll(s, s.portSet())
			for _, p := range closed {
				s.enqueueNonBlocking(wsproto.NewClosed(p, ""))
			}
			return
		}
		if err := s.reg.Close(req.Port, s); err != nil {
			s.enqueueNonBlocking(errorEvent(req.Kind, err))
			return
		}
		s.enqueueNonBlocking(wsproto.NewClosed(req.Port, ""))

	case wsproto.KindList:
		names, err := s.reg.List()
		if err != nil {
			s.enqueueNonBlocking(errorEvent(req.Kind, err))
			return
		}
		s.enqueueNonBlocking(wsproto.NewList(names))

	case wsproto.KindWriteLock:
		if err := s.reg.Lock(req.Port, s); err != nil {
			s.enqueueNonBlocking(errorEvent(req.Kind, err))
			return
		}
		s.enqueueNonBlocking(wsproto.NewLocked(req.Port))

	case wsproto.KindReleaseWriteLock:
		if err := s.reg.Unlock(req.Port, s); err != nil {
			s.enqueueNonBlocking(errorEvent(req.Kind, err))
			return
		}
		s.enqueueNonBlocking(wsproto.NewUnlocked(req.Port))

	case wsproto.KindWrite:
		n, err := s.reg.Write(req.Port, s, req.Data)
		if err != nil {
			s.enqueueNonBlocking(errorEvent(req.Kind, err))
			return
		}
		s.enqueueNonBlocking(wsproto.NewWrote(req.Port, n))

	default:
		s.enqueueNonBlocking(wsproto.NewError("", wsproto.CodeUnknownRequest, ""))
	}
}

// errorEvent maps a serial package sentinel error to its wire-protocol error
// code.
func errorEvent(kind wsproto.Kind, err error) wsproto.Event {
	return wsproto.NewError(kind.String(), codeFor(err), err.Error())
}

func codeFor(err error) string {
	switch {
	case errors.Is(err, serial.ErrPortNotFound):
		return wsproto.CodePortNotFound
	case errors.Is(err, serial.ErrNotOpen):
		return wsproto.CodeNotOpen
	case errors.Is(err, serial.ErrNotSubscribed):
		return wsproto.CodeNotSubscribed
	case errors.Is(err, serial.ErrAlreadyLockedByOther):
		return wsproto.CodeAlreadyLockedByOther
	case errors.Is(err, serial.ErrNotLocked):
		return wsproto.CodeNotLocked
	case errors.Is(err, serial.ErrLockedByOther):
		return wsproto.CodeLockedByOther
	case errors.Is(err, serial.ErrWriteLockNotHeld):
		return wsproto.CodeWriteLockNotHeld
	case errors.Is(err, serial.ErrPortClosed):
		return wsproto.CodePortClosed
	case errors.Is(err, serial.ErrOpenFailed):
		return wsproto.CodeOpenFailed
	case errors.Is(err, serial.ErrEnumerationFailed):
		return wsproto.CodeEnumerationFailed
	case errors.Is(err, serial.ErrWriteTimeout):
		return wsproto.CodeWriteTimeout
	default:
		return wsproto.CodeInternal
	}
}
