// Package apiclient is a thin JSON client of the Shule REST API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

const defaultErrorMessage = "something went wrong, please try again"

// ApiResponse is the decoded response envelope.
type ApiResponse[T any] struct {
	Data  T               `json:"data"`
	Meta  *core.Meta      `json:"meta,omitempty"`
	Error *core.ErrorBody `json:"error,omitempty"`
}

// APIError is returned for any non-2xx response.
type APIError struct {
	Status int
	Body   *core.ErrorBody
}

func (e *APIError) Error() string {
	return http.StatusText(e.Status) + ": " + e.Message()
}

// Message returns the server's message or a generic fallback.
func (e *APIError) Message() string {
	if e.Body != nil && e.Body.Message != "" {
		return e.Body.Message
	}
	return defaultErrorMessage
}

// FieldErrors returns the per-field messages of a validation failure.
func (e *APIError) FieldErrors() map[string]string {
	if e.Body == nil {
		return nil
	}
	return e.Body.Fields
}

func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

type (
	Client struct {
		baseURL        string
		http           *http.Client
		session        SessionStore
		onUnauthorized func(redirectTo string)
		redirectTo     string

		mu        sync.Mutex
		signedOut bool // the current session was already signed out
	}

	Option func(c *Client)

	request struct {
		params  Params
		body    interface{}
		headers http.Header
	}

	RequestOption func(r *request)
)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithSessionStore(st SessionStore) Option {
	return func(c *Client) { c.session = st }
}

// OnUnauthorized sets the sign-out callback, called with the redirect target.
func OnUnauthorized(fn func(redirectTo string)) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

func WithRedirect(path string) Option {
	return func(c *Client) { c.redirectTo = path }
}

func WithParams(p Params) RequestOption {
	return func(r *request) { r.params = p }
}

func WithBody(v interface{}) RequestOption {
	return func(r *request) { r.body = v }
}

func WithHeader(key, val string) RequestOption {
	return func(r *request) {
		if r.headers == nil {
			r.headers = make(http.Header)
		}
		r.headers.Set(key, val)
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		http:       http.DefaultClient,
		session:    NewMemorySessionStore(),
		redirectTo: "/login",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig builds a Client from the client settings of conf.
func NewFromConfig(conf core.ClientConfig, opts ...Option) *Client {
	base := []Option{
		WithHTTPClient(&http.Client{Timeout: conf.Timeout}),
		WithRedirect(conf.UnauthorizedRedirect),
	}
	return New(conf.APIBaseURL, append(base, opts...)...)
}

func (c *Client) Session() SessionStore { return c.session }

// SignIn stores s as the current session; a later 401 signs it out again.
func (c *Client) SignIn(s Session) {
	c.mu.Lock()
	c.session.Set(s)
	c.signedOut = false
	c.mu.Unlock()
}

// handleUnauthorized clears the session & fires the callback at most once per session.
// A 401 for a token other than the current session's is stale and ignored.
func (c *Client) handleUnauthorized(usedToken string) {
	c.mu.Lock()
	current, _ := c.session.Get()
	if c.signedOut || usedToken != current.AccessToken {
		c.mu.Unlock()
		return
	}
	c.signedOut = true
	c.session.Clear()
	c.mu.Unlock()

	if c.onUnauthorized != nil {
		c.onUnauthorized(c.redirectTo)
	}
}

// Do sends a request & decodes the response envelope into out (which may be nil).
func (c *Client) Do(ctx context.Context, method, path string, out interface{}, opts ...RequestOption) error {
	var r request
	for _, opt := range opts {
		opt(&r)
	}

	url := c.baseURL + path
	if len(r.params) > 0 {
		if q := r.params.Encode(); q != "" {
			url += "?" + q
		}
	}

	var body io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return errors.Wrap(err, "encoding request body")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range r.headers {
		req.Header[k] = vs
	}
	s, _ := c.session.Get()
	if s.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.AccessToken)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer res.Body.Close()

	if err := c.checkResponse(res, s.AccessToken); err != nil {
		return err
	}
	if out == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}
	return errors.Wrap(json.NewDecoder(res.Body).Decode(out), "decoding response")
}

// Raw sends a request and returns the raw successful response; callers close its body.
func (c *Client) Raw(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	s, _ := c.session.Get()
	if s.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.AccessToken)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}
	if err := c.checkResponse(res, s.AccessToken); err != nil {
		res.Body.Close()
		return nil, err
	}
	return res, nil
}

// checkResponse turns error statuses into an *APIError, signing out on 401.
func (c *Client) checkResponse(res *http.Response, usedToken string) error {
	if res.StatusCode == http.StatusUnauthorized {
		c.handleUnauthorized(usedToken)
	}
	if res.StatusCode < http.StatusBadRequest {
		return nil
	}
	apiErr := &APIError{Status: res.StatusCode}
	var env ApiResponse[json.RawMessage]
	if err := json.NewDecoder(res.Body).Decode(&env); err == nil {
		apiErr.Body = env.Error
	}
	return apiErr
}

func send[T any](ctx context.Context, c *Client, method, path string, opts []RequestOption) (ApiResponse[T], error) {
	var res ApiResponse[T]
	err := c.Do(ctx, method, path, &res, opts...)
	return res, err
}

func Get[T any](ctx context.Context, c *Client, path string, opts ...RequestOption) (ApiResponse[T], error) {
	return send[T](ctx, c, http.MethodGet, path, opts)
}

func Post[T any](ctx context.Context, c *Client, path string, opts ...RequestOption) (ApiResponse[T], error) {
	return send[T](ctx, c, http.MethodPost, path, opts)
}

func Put[T any](ctx context.Context, c *Client, path string, opts ...RequestOption) (ApiResponse[T], error) {
	return send[T](ctx, c, http.MethodPut, path, opts)
}

func Patch[T any](ctx context.Context, c *Client, path string, opts ...RequestOption) (ApiResponse[T], error) {
	return send[T](ctx, c, http.MethodPatch, path, opts)
}

func Delete[T any](ctx context.Context, c *Client, path string, opts ...RequestOption) (ApiResponse[T], error) {
	return send[T](ctx, c, http.MethodDelete, path, opts)
}
