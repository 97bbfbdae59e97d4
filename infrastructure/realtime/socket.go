package realtime

import (
	"chatty/contract"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
)

type Transport string

const (
	TransportWebsocket Transport = "websocket"
	TransportPolling   Transport = "polling"
)

// Envelope is one event on the wire.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// transport delivers envelopes in server order until closed.
type transport interface {
	receive(ctx context.Context) ([]Envelope, error)
	close() error
}

// Socket is a live channel bound to one user.
// Each event has a single handler slot; handlers run on the read goroutine.
type Socket struct {
	log       *slog.Logger
	userID    string
	kind      Transport
	conn      transport
	cancel    context.CancelFunc
	done      chan struct{}
	connected atomic.Bool
	closeOnce sync.Once
	closeErr  error

	mu       sync.RWMutex
	handlers map[string]contract.Handler
}

var _ contract.IChannel = (*Socket)(nil)

func newSocket(log *slog.Logger, userID string, kind Transport, conn transport, handlers map[string]contract.Handler) *Socket {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Socket{
		log:      log.With("user_id", userID, "transport", kind),
		userID:   userID,
		kind:     kind,
		conn:     conn,
		cancel:   cancel,
		done:     make(chan struct{}),
		handlers: make(map[string]contract.Handler, len(handlers)),
	}
	for event, h := range handlers {
		if h != nil {
			s.handlers[event] = h
		}
	}
	s.connected.Store(true)
	go s.readLoop(ctx)
	return s
}

func (s *Socket) UserID() string       { return s.userID }
func (s *Socket) Transport() Transport { return s.kind }
func (s *Socket) Connected() bool      { return s.connected.Load() }

// Done is closed once the read loop has stopped.
func (s *Socket) Done() <-chan struct{} { return s.done }

// On installs handler for event, replacing the previous one.
func (s *Socket) On(event string, handler contract.Handler) {
	if handler == nil {
		s.Off(event)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[event] = handler
}

func (s *Socket) Off(event string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handlers, event)
}

// Close disconnects. It does not wait for a handler in progress.
func (s *Socket) Close() error {
	s.closeOnce.Do(func() {
		s.connected.Store(false)
		s.cancel()
		s.closeErr = s.conn.close()
		s.log.Debug("Live channel closed")
	})
	return s.closeErr
}

func (s *Socket) readLoop(ctx context.Context) {
	defer close(s.done)
	for {
		envelopes, err := s.conn.receive(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.log.Warn("Live channel lost", "error", err)
				_ = s.Close()
			}
			return
		}
		for _, env := range envelopes {
			s.dispatch(env)
		}
	}
}

func (s *Socket) dispatch(env Envelope) {
	s.mu.RLock()
	handler, ok := s.handlers[env.Event]
	s.mu.RUnlock()
	if !ok {
		s.log.Debug("No handler for event", "event", env.Event)
		return
	}
	handler(env.Data)
}
