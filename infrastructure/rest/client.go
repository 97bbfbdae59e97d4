package rest

import (
	"bytes"
	"chatty/domain"
	"chatty/errors"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"
)

const (
	// SessionCookie is the cookie the remote service keeps its token in.
	SessionCookie   = "jwt"
	requestIDHeader = "X-Request-ID"
	maxErrorBody    = 64 * 1024
)

// Client talks JSON to the remote chat service. Credentials travel as
// cookies kept in Jar, which the live channel dialer shares.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	log     *slog.Logger
}

// NewCookieJar returns the jar shared by the REST client and the live channel.
func NewCookieJar() (http.CookieJar, error) {
	return cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
}

func NewClient(log *slog.Logger, baseURL string, jar http.CookieJar, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid api url %q: scheme must be http or https", baseURL)
	}
	return &Client{
		baseURL: u,
		http:    &http.Client{Jar: jar, Timeout: timeout},
		log:     log,
	}, nil
}

// WithTransport routes the requests through rt.
func (c *Client) WithTransport(rt http.RoundTripper) *Client {
	c.http.Transport = rt
	return c
}

func (c *Client) CheckAuth(ctx context.Context) (domain.User, error) {
	var user domain.User
	err := c.do(ctx, http.MethodGet, "/auth/check", nil, &user)
	return user, err
}

func (c *Client) SignUp(ctx context.Context, req domain.SignUpRequest) (domain.User, error) {
	var user domain.User
	err := c.do(ctx, http.MethodPost, "/auth/signup", req, &user)
	return user, err
}

func (c *Client) LogIn(ctx context.Context, req domain.LoginRequest) (domain.User, error) {
	var user domain.User
	err := c.do(ctx, http.MethodPost, "/auth/login", req, &user)
	return user, err
}

func (c *Client) LogOut(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

func (c *Client) UpdateProfile(ctx context.Context, req domain.ProfileUpdate) (domain.User, error) {
	var user domain.User
	err := c.do(ctx, http.MethodPut, "/auth/update-profile", req, &user)
	return user, err
}

func (c *Client) GetUsers(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	err := c.do(ctx, http.MethodGet, "/messages/users", nil, &users)
	return users, err
}

func (c *Client) GetMessages(ctx context.Context, userID string) ([]domain.Message, error) {
	var messages []domain.Message
	err := c.do(ctx, http.MethodGet, "/messages/"+url.PathEscape(userID), nil, &messages)
	return messages, err
}

func (c *Client) SendMessage(ctx context.Context, userID string, payload domain.MessagePayload) (domain.Message, error) {
	var message domain.Message
	err := c.do(ctx, http.MethodPost, "/messages/send/"+url.PathEscape(userID), payload, &message)
	return message, err
}

// SessionExpiry decodes the expiry of the session cookie held in the jar.
// The token is not verified: only the server can do that.
func (c *Client) SessionExpiry() (time.Time, bool) {
	if c.http.Jar == nil {
		return time.Time{}, false
	}
	for _, cookie := range c.http.Jar.Cookies(c.baseURL) {
		if cookie.Name != SessionCookie {
			continue
		}
		claims := jwt.RegisteredClaims{}
		if _, _, err := jwt.NewParser().ParseUnverified(cookie.Value, &claims); err != nil {
			c.log.Debug("Unreadable session cookie", "error", err)
			return time.Time{}, false
		}
		if claims.ExpiresAt == nil {
			return time.Time{}, false
		}
		return claims.ExpiresAt.Time, true
	}
	return time.Time{}, false
}

// do sends one JSON request. Non-2xx answers become *errors.APIError,
// transport failures wrap errors.ErrServiceUnavailable.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(raw)
	}

	endpoint := c.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set(requestIDHeader, requestID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %v", method, path, errors.ErrServiceUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.log.Debug("Remote call",
		"method", method, "path", path, "status", resp.StatusCode,
		"request_id", requestID, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: %w: %v", method, path, errors.ErrInvalidResponse, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &errors.APIError{Status: resp.StatusCode}
	var body struct {
		Message string `json:"message"`
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err == nil && json.Unmarshal(raw, &body) == nil {
		apiErr.Message = body.Message
	}
	return apiErr
}
