// Package sdk provides the client-side library for the Celerix support daemon.
// It speaks the daemon's JSON API over HTTPS and keeps the session cookie.
package sdk

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/celerix-dev/celerix-support/pkg/schema"
)

const defaultAttempts = 3

// Client is a remote client for the support daemon.
// It implements the SupportConsole interface.
type Client struct {
	base    *url.URL
	http    *http.Client
	logger  *zap.Logger
	backoff time.Duration
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport. The client's cookie jar, if any, holds the session.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger reports retried attempts.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithBackoff sets the base delay between attempts.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) { c.backoff = d }
}

// Connect returns a client for the daemon at addr (e.g. https://localhost:7002).
// Certificates are not verified; the daemon serves a self-signed one.
func Connect(addr string, opts ...Option) (*Client, error) {
	if !strings.Contains(addr, "://") {
		addr = "https://" + addr
	}
	base, err := url.Parse(strings.TrimRight(addr, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse daemon address: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", base.Scheme)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	c := &Client{
		base: base,
		http: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				Proxy:           http.ProxyFromEnvironment,
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, // self-signed
			},
		},
		logger:  zap.NewNop(),
		backoff: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Addr returns the daemon base URL.
func (c *Client) Addr() string {
	return c.base.String()
}

// do sends one API call, retrying transport failures and 5xx answers.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return err
		}
	}
	target := *c.base
	target.Path += path
	target.RawQuery = query.Encode()

	var err error
	// Try up to 3 times with growing backoff
	for i := 0; i < defaultAttempts; i++ {
		var retry bool
		retry, err = c.attempt(ctx, method, target.String(), body, out)
		if err == nil || !retry {
			return err
		}

		c.logger.Warn("request attempt failed",
			zap.Int("attempt", i+1), zap.String("path", path), zap.Error(err))

		if i == defaultAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(i+1) * c.backoff):
		}
	}
	return fmt.Errorf("%w: failed after %d attempts: %v", ErrUnavailable, defaultAttempts, err)
}

func (c *Client) attempt(ctx context.Context, method, target string, body []byte, out any) (retry bool, err error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, r)
	if err != nil {
		return false, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return false, ErrNoAccountQuery
	case resp.StatusCode >= 500:
		return true, fmt.Errorf("daemon answered %s: %s", resp.Status, errorText(resp.Body))
	case resp.StatusCode == http.StatusNotFound:
		return false, fmt.Errorf("%w: %s", ErrNoView, errorText(resp.Body))
	case resp.StatusCode >= 400:
		return false, fmt.Errorf("%w: %s", ErrBadRequest, errorText(resp.Body))
	}
	if out == nil {
		return false, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}
	return false, nil
}

func errorText(r io.Reader) string {
	var e struct {
		Error string `json:"error"`
	}
	b, _ := io.ReadAll(io.LimitReader(r, 4096))
	if json.Unmarshal(b, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(b))
}

// Ping checks the daemon's health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}

// Lookup submits a learner search exactly as the search form does.
func (c *Client) Lookup(ctx context.Context, query string) (*schema.UserView, error) {
	var view schema.UserView
	err := c.do(ctx, http.MethodPost, "/api/learner_information/search", nil,
		map[string]string{"query": query}, &view)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// LoadLearner simulates a page load carrying ?param=value.
func (c *Client) LoadLearner(ctx context.Context, param, value string) (*schema.UserView, error) {
	var view schema.UserView
	err := c.do(ctx, http.MethodGet, "/api/learner_information", url.Values{param: {value}}, nil, &view)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// LatestLearner returns the last committed learner view of this client's session.
func (c *Client) LatestLearner(ctx context.Context) (*schema.UserView, error) {
	var view schema.UserView
	if err := c.do(ctx, http.MethodGet, "/api/learner_information/view", nil, nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *Client) CancelRetirement(ctx context.Context, retirementID int64) (*schema.CancelResult, error) {
	var res schema.CancelResult
	path := "/api/retirements/" + strconv.FormatInt(retirementID, 10) + "/cancel"
	if err := c.do(ctx, http.MethodPost, path, nil, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Inspect(ctx context.Context, q schema.InspectorQuery) (*schema.ProgramsView, error) {
	var view schema.ProgramsView
	if err := c.do(ctx, http.MethodPost, "/api/programs/inspect", nil, q, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// Programs loads the inspector for a numeric user id.
func (c *Client) Programs(ctx context.Context, edxUserID int64) (*schema.ProgramsView, error) {
	var view schema.ProgramsView
	query := url.Values{"edx_user_id": {strconv.FormatInt(edxUserID, 10)}}
	if err := c.do(ctx, http.MethodGet, "/api/programs", query, nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *Client) SAMLProviders(ctx context.Context) ([]string, error) {
	var orgs []string
	if err := c.do(ctx, http.MethodGet, "/api/programs/saml_providers", nil, nil, &orgs); err != nil {
		return nil, err
	}
	return orgs, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}
