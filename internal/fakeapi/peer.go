package fakeapi

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout = time.Second
	pollBuffer   = 256
)

// peer is one live connection of a user: a websocket, or a polling queue.
type peer struct {
	mu     sync.Mutex
	ws     *websocket.Conn
	queue  chan envelope
	done   chan struct{}
	closed bool
}

func newSocketPeer(conn *websocket.Conn) *peer {
	return &peer{ws: conn, done: make(chan struct{})}
}

func newPollPeer() *peer {
	return &peer{queue: make(chan envelope, pollBuffer), done: make(chan struct{})}
}

func (p *peer) send(env envelope) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	if p.ws != nil {
		_ = p.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
		_ = p.ws.WriteJSON(env)
		return
	}
	select {
	case p.queue <- env:
	default:
	}
}

// drain waits up to wait for a first envelope, then returns everything queued.
func (p *peer) drain(ctx context.Context, wait time.Duration) []envelope {
	out := []envelope{}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case env := <-p.queue:
		out = append(out, env)
	case <-timer.C:
		return out
	case <-ctx.Done():
		return out
	case <-p.done:
		return out
	}
	for {
		select {
		case env := <-p.queue:
			out = append(out, env)
		default:
			return out
		}
	}
}

func (p *peer) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.done)
	if p.ws != nil {
		_ = p.ws.Close()
	}
}
