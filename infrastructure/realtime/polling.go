package realtime

import (
	"chatty/errors"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// pollingTransport long-polls the server for batches of envelopes.
type pollingTransport struct {
	client   *http.Client
	endpoint *url.URL
	wait     time.Duration
	pending  []Envelope
}

func (p *pollingTransport) handshake(ctx context.Context) error {
	envelopes, err := p.fetch(ctx, 0)
	if err != nil {
		return err
	}
	p.pending = envelopes
	return nil
}

func (p *pollingTransport) receive(ctx context.Context) ([]Envelope, error) {
	if len(p.pending) > 0 {
		envelopes := p.pending
		p.pending = nil
		return envelopes, nil
	}
	for {
		envelopes, err := p.fetch(ctx, p.wait)
		if err != nil {
			return nil, err
		}
		if len(envelopes) > 0 {
			return envelopes, nil
		}
	}
}

func (p *pollingTransport) fetch(ctx context.Context, wait time.Duration) ([]Envelope, error) {
	u := *p.endpoint
	q := u.Query()
	q.Set("wait", wait.String())
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &errors.APIError{Status: resp.StatusCode}
	}
	var envelopes []Envelope
	if err := json.NewDecoder(resp.Body).Decode(&envelopes); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidResponse, err)
	}
	return envelopes, nil
}

// close tells the server the user left. A refused leave comes back as an
// *errors.APIError.
func (p *pollingTransport) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeGrace)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, p.endpoint.String(), nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &errors.APIError{Status: resp.StatusCode}
	}
	return nil
}
