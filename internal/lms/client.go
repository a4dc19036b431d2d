package lms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/celerix-dev/celerix-support/pkg/schema"
)

// Options configures a Client.
type Options struct {
	// BaseURL is the LMS root, e.g. https://courses.example.com.
	BaseURL string
	// TokenURL, ClientID and ClientSecret enable OAuth2 client credentials.
	// All three empty means requests go out unauthenticated.
	TokenURL     string
	ClientID     string
	ClientSecret string
	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration
	// Attempts is the number of tries for idempotent requests; default 3.
	Attempts int
	// Backoff is multiplied by the attempt number between retries; default 200ms.
	Backoff time.Duration
	// HTTPClient replaces the transport client. Used by tests.
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client is the REST implementation of Backend.
type Client struct {
	base     *url.URL
	http     *http.Client
	attempts int
	backoff  time.Duration
	logger   *zap.Logger
}

var _ Backend = (*Client)(nil)

// NewClient builds a Client. When client credentials are configured the
// returned client fetches and refreshes a JWT access token on its own.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("lms: base URL is required")
	}
	base, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("lms: parse base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("lms: base URL %q must be absolute", opts.BaseURL)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	if opts.ClientID != "" || opts.ClientSecret != "" {
		if opts.ClientID == "" || opts.ClientSecret == "" || opts.TokenURL == "" {
			return nil, errors.New("lms: client credentials config incomplete")
		}
		cc := &clientcredentials.Config{
			ClientID:       opts.ClientID,
			ClientSecret:   opts.ClientSecret,
			TokenURL:       opts.TokenURL,
			EndpointParams: url.Values{"token_type": {"jwt"}},
		}
		tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		httpClient = cc.Client(tokenCtx)
		httpClient.Timeout = timeout
	}

	attempts := opts.Attempts
	if attempts <= 0 {
		attempts = 3
	}
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		base:     base,
		http:     httpClient,
		attempts: attempts,
		backoff:  backoff,
		logger:   logger.Named("lms"),
	}, nil
}

// --- Users ---

func (c *Client) ResolveUser(ctx context.Context, identifier string) (*schema.UserLookup, error) {
	var out schema.UserLookup
	err := c.getJSON(ctx, "/support/v1/users/lookup", url.Values{"identifier": {identifier}}, &out)
	if err != nil {
		return nil, err
	}
	if err := validateLookup(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetUser(ctx context.Context, identifier string) (*schema.UserSummary, error) {
	var out schema.UserSummary
	if err := c.getJSON(ctx, "/api/user/v1/accounts/"+url.PathEscape(identifier), nil, &out); err != nil {
		return nil, err
	}
	if out.ID <= 0 {
		return nil, fmt.Errorf("%w: account without id", ErrInvalidResponse)
	}
	return &out, nil
}

func (c *Client) CancelRetirement(ctx context.Context, retirementID int64) error {
	form := url.Values{"retirement_id": {strconv.FormatInt(retirementID, 10)}}
	return c.do(ctx, http.MethodPost, "/api/user/v1/accounts/cancel_retirement", nil, strings.NewReader(form.Encode()), nil)
}

// --- Record sets ---

type paginated[T any] struct {
	Results []T `json:"results"`
}

func (c *Client) Enrollments(ctx context.Context, user schema.UserSummary) ([]schema.Enrollment, error) {
	var out []schema.Enrollment
	err := c.getJSON(ctx, "/support/enrollment/"+url.PathEscape(user.Username), nil, &out)
	return out, err
}

func (c *Client) SSORecords(ctx context.Context, user schema.UserSummary) ([]schema.SSORecord, error) {
	var out []schema.SSORecord
	err := c.getJSON(ctx, "/support/sso_records/"+url.PathEscape(user.Username), nil, &out)
	return out, err
}

func (c *Client) Entitlements(ctx context.Context, user schema.UserSummary) ([]schema.Entitlement, error) {
	var out paginated[schema.Entitlement]
	err := c.getJSON(ctx, "/api/entitlements/v1/entitlements/", url.Values{"user": {user.Username}}, &out)
	return out.Results, err
}

func (c *Client) Licenses(ctx context.Context, user schema.UserSummary) ([]schema.License, error) {
	var out paginated[schema.License]
	err := c.getJSON(ctx, "/api/license-manager/v1/learner-licenses/", url.Values{"email": {user.Email}}, &out)
	return out.Results, err
}

func (c *Client) OnboardingStatus(ctx context.Context, user schema.UserSummary) (*schema.OnboardingStatus, error) {
	var out schema.OnboardingStatus
	if err := c.getJSON(ctx, "/support/onboarding_status/"+url.PathEscape(user.Username), nil, &out); err != nil {
		return nil, err
	}
	if out.OnboardingStatus == "" {
		return nil, nil
	}
	return &out, nil
}

func (c *Client) VerifiedNameHistory(ctx context.Context, user schema.UserSummary) ([]schema.VerifiedName, error) {
	var out paginated[schema.VerifiedName]
	err := c.getJSON(ctx, "/api/edx_name_affirmation/v1/verified_name/history", url.Values{"username": {user.Username}}, &out)
	return out.Results, err
}

func (c *Client) EnterpriseCustomerUsers(ctx context.Context, user schema.UserSummary) ([]schema.EnterpriseCustomerUser, error) {
	var out paginated[schema.EnterpriseCustomerUser]
	err := c.getJSON(ctx, "/enterprise/api/v1/enterprise-customer-user/", url.Values{"username": {user.Username}}, &out)
	return out.Results, err
}

// --- Program inspector ---

func (c *Client) ProgramEnrollmentsInspector(ctx context.Context, q schema.InspectorQuery) (*schema.InspectorResponse, error) {
	params := url.Values{}
	if q.Username != "" {
		params.Set("username", q.Username)
	}
	if q.ExternalKey != "" {
		params.Set("external_user_key", q.ExternalKey)
	}
	if q.OrgKey != "" {
		params.Set("org_key", q.OrgKey)
	}
	var out schema.InspectorResponse
	if err := c.getJSON(ctx, "/support/program_enrollments/inspector", params, &out); err != nil {
		return nil, err
	}
	if l := out.LearnerProgramEnrollments; l != nil && l.User.Username == "" {
		return nil, fmt.Errorf("%w: inspector learner without username", ErrInvalidResponse)
	}
	return &out, nil
}

func (c *Client) SAMLProviders(ctx context.Context) ([]string, error) {
	var out []string
	err := c.getJSON(ctx, "/support/sso_providers/saml", nil, &out)
	return out, err
}

// --- Transport ---

// getJSON performs an idempotent GET, retrying transport failures and 5xx
// responses with a linear backoff.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	var err error
	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * c.backoff):
			}
		}
		err = c.do(ctx, http.MethodGet, path, query, nil, out)
		if err == nil || !retryable(ctx, err) {
			return err
		}
		c.logger.Warn("request failed",
			zap.String("path", path),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	return fmt.Errorf("lms: GET %s failed after %d attempts: %w", path, c.attempts, err)
}

// do sends one request. path is already escaped; callers escape each
// dynamic segment with url.PathEscape.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, out any) error {
	u := *c.base
	u.RawPath = c.base.EscapedPath() + path
	unescaped, err := url.PathUnescape(u.RawPath)
	if err != nil {
		return fmt.Errorf("lms: bad path %q: %w", path, err)
	}
	u.Path = unescaped
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("lms: new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("lms: %s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case res.StatusCode < 200 || res.StatusCode > 299:
		return &StatusError{Method: method, Path: path, Code: res.StatusCode}
	case out == nil || res.StatusCode == http.StatusNoContent:
		return nil
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrInvalidResponse, method, path, err)
	}
	return nil
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidResponse) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	return true
}

func validateLookup(l *schema.UserLookup) error {
	if l.User != nil && l.User.ID <= 0 {
		return fmt.Errorf("%w: lookup user without id", ErrInvalidResponse)
	}
	if rs := l.RetirementStatus; rs != nil && rs.CanCancelRetirement && rs.RetirementID <= 0 {
		return fmt.Errorf("%w: cancellable retirement without id", ErrInvalidResponse)
	}
	for i := range l.Errors {
		if l.Errors[i].Type == "" {
			l.Errors[i].Type = schema.ErrorTypeError
		}
	}
	return nil
}
