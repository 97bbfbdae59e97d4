// Package realtime implements the live channel: a websocket connection to
// the chat server, with an optional long-polling fallback.
package realtime

import (
	"chatty/contract"
	"chatty/errors"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

const (
	socketPath      = "socket"
	pollPath        = "socket/poll"
	DefaultPollWait = 25 * time.Second
)

type Dialer struct {
	log        *slog.Logger
	base       *url.URL
	jar        http.CookieJar
	timeout    time.Duration
	pollWait   time.Duration
	transports []Transport
	rt         http.RoundTripper
	handshakes func(status int, err error)
}

var _ contract.IChannelDialer = (*Dialer)(nil)

// NewDialer targets socketURL (http or https). The jar must be the one the
// REST client authenticates with: the server identifies the user by cookie.
// Transports are tried in order; websocket only when none are given.
func NewDialer(log *slog.Logger, socketURL string, jar http.CookieJar, timeout time.Duration, transports ...Transport) (*Dialer, error) {
	base, err := url.Parse(socketURL)
	if err != nil {
		return nil, fmt.Errorf("invalid socket url %q: %w", socketURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid socket url %q: scheme must be http or https", socketURL)
	}
	if len(transports) == 0 {
		transports = []Transport{TransportWebsocket}
	}
	return &Dialer{
		log:        log,
		base:       base,
		jar:        jar,
		timeout:    timeout,
		pollWait:   DefaultPollWait,
		transports: transports,
	}, nil
}

// WithPollWait changes how long one poll may be held open by the server.
func (d *Dialer) WithPollWait(wait time.Duration) *Dialer {
	d.pollWait = wait
	return d
}

// WithTransport routes the polling requests through rt.
func (d *Dialer) WithTransport(rt http.RoundTripper) *Dialer {
	d.rt = rt
	return d
}

// WithHandshakeObserver reports every websocket handshake to fn, with the
// answered status or 0.
func (d *Dialer) WithHandshakeObserver(fn func(status int, err error)) *Dialer {
	d.handshakes = fn
	return d
}

func (d *Dialer) Dial(ctx context.Context, userID string, handlers map[string]contract.Handler) (contract.IChannel, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: empty user id", errors.ErrNoTransport)
	}
	var errs []error
	for _, kind := range d.transports {
		conn, err := d.open(ctx, kind, userID)
		if err != nil {
			d.log.Warn("Live channel transport failed", "transport", kind, "user_id", userID, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", kind, err))
			continue
		}
		d.log.Debug("Live channel opened", "transport", kind, "user_id", userID)
		return newSocket(d.log, userID, kind, conn, handlers), nil
	}
	return nil, fmt.Errorf("%w: %w", errors.ErrNoTransport, stderrors.Join(errs...))
}

func (d *Dialer) open(ctx context.Context, kind Transport, userID string) (transport, error) {
	switch kind {
	case TransportWebsocket:
		return d.openWebsocket(ctx, userID)
	case TransportPolling:
		return d.openPolling(ctx, userID)
	default:
		return nil, fmt.Errorf("unknown transport %q", kind)
	}
}

func (d *Dialer) endpoint(path, userID string) *url.URL {
	u := d.base.JoinPath(path)
	q := u.Query()
	q.Set("userId", userID)
	u.RawQuery = q.Encode()
	return u
}

func (d *Dialer) openWebsocket(ctx context.Context, userID string) (transport, error) {
	u := d.endpoint(socketPath, userID)
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.timeout,
		Jar:              d.jar,
	}
	conn, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if d.handshakes != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		d.handshakes(status, err)
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w (status %d)", err, resp.StatusCode)
		}
		return nil, err
	}
	return &websocketTransport{conn: conn}, nil
}

func (d *Dialer) openPolling(ctx context.Context, userID string) (transport, error) {
	p := &pollingTransport{
		client:   &http.Client{Jar: d.jar, Transport: d.rt, Timeout: d.pollWait + d.timeout + closeGrace},
		endpoint: d.endpoint(pollPath, userID),
		wait:     d.pollWait,
	}
	hctx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		hctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	if err := p.handshake(hctx); err != nil {
		return nil, err
	}
	return p, nil
}
