package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/stapos/stapos/internal/common"
	"github.com/stapos/stapos/internal/logging"
	"github.com/stapos/stapos/internal/query"
	"github.com/stapos/stapos/internal/store"
)

const (
	restPrefix = "/rest/v1/"
	authPrefix = "/auth/v1/"

	requestTimeout = 12 * time.Second
)

// Client talks to the hosted backend over HTTP/JSON. It keeps the current
// session in memory; callers persist offline identity separately.
type Client struct {
	baseURL string
	http    *http.Client
	log     logging.Logger

	mu      sync.Mutex
	session *Session
}

func NewClient(baseURL string, log logging.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: requestTimeout},
		log:     log,
	}
}

func (c *Client) Select(ctx context.Context, table string, req query.Request) ([]store.Record, error) {
	var recs []store.Record
	// reads are idempotent, retry transient failures briefly
	err := c.withRetry(ctx, func(ctx context.Context) error {
		return c.do(ctx, http.MethodGet, restPrefix+table, EncodeQuery(req), nil, &recs)
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

func (c *Client) Insert(ctx context.Context, table string, rec store.Record) (store.Record, error) {
	var out store.Record
	if err := c.do(ctx, http.MethodPost, restPrefix+table, nil, rec, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Update(ctx context.Context, table string, patch store.Record, filters []query.Filter) error {
	params := EncodeQuery(query.Request{Filters: filters})
	return c.do(ctx, http.MethodPatch, restPrefix+table, params, patch, nil)
}

func (c *Client) Delete(ctx context.Context, table string, filters []query.Filter) error {
	params := EncodeQuery(query.Request{Filters: filters})
	return c.do(ctx, http.MethodDelete, restPrefix+table, params, nil, nil)
}

func (c *Client) GetSession(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil, nil
	}
	s := *c.session
	return &s, nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}
	var session Session
	if err := c.do(ctx, http.MethodPost, authPrefix+"token", nil, body, &session); err != nil {
		return nil, err
	}
	c.setSession(&session)
	return &session, nil
}

func (c *Client) SignUp(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}
	var session Session
	if err := c.do(ctx, http.MethodPost, authPrefix+"signup", nil, body, &session); err != nil {
		return nil, err
	}
	c.setSession(&session)
	return &session, nil
}

func (c *Client) SignOut(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, authPrefix+"logout", nil, nil, nil)
	c.setSession(nil)
	// dropping the local session is what callers rely on; a dead remote
	// must not keep the user signed in
	if err != nil && !isFault(err) {
		return err
	}
	return nil
}

func (c *Client) UpdateUser(ctx context.Context, patch store.Record) (store.Record, error) {
	var user store.Record
	if err := c.do(ctx, http.MethodPut, authPrefix+"user", nil, patch, &user); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.session != nil {
		c.session.User = user
	}
	c.mu.Unlock()
	return user, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}

func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *Client) setSession(s *Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

func (c *Client) token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.AccessToken
}

// do performs one round-trip: encodes body as JSON, attaches the bearer
// token, maps transport and HTTP status failures onto the shared error
// taxonomy and decodes the response into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out any) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("bad endpoint: %w", err)
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.token(); token != "" {
		req.Header.Set(common.AuthHeaderName, "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := mapStatus(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(2, retry.NewFibonacci(200*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && isFault(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func mapStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return common.ErrUnauthorized
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %s", common.ErrUnavailable, resp.Status)
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("remote error: %s: %s", resp.Status, bytes.TrimSpace(msg))
	}
}

func isFault(err error) bool {
	return errors.Is(err, common.ErrUnavailable)
}
