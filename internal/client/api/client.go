// Package api is the HTTP client of the memedesk backend.
//
// Two transient failure classes are hidden from callers. A transport failure
// (the backend is asleep or unreachable) triggers the warmup relay once and
// the request is retried once. A 401 on a mutating call asks the operator for
// the admin password, logs in, and retries once with the new bearer token.
// A single call takes at most one of these two paths.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/memedesk/internal/client/session"
	"github.com/atinyakov/memedesk/internal/models"
)

// LoginPath is the login exchange endpoint.
const LoginPath = "/auth/login"

// CredentialProvider asks the operator for the admin password.
// An empty answer means the operator declined.
type CredentialProvider interface {
	RequestPassword(ctx context.Context) (string, error)
}

// Client calls the backend below a fixed base origin.
type Client struct {
	base      string
	http      *http.Client
	jar       http.CookieJar
	store     session.Store
	creds     CredentialProvider
	warmer    Warmer
	warmupURL string
	log       *zap.Logger
	now       func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the http.Client used for every request.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithSessionStore sets where the bearer credential is kept.
func WithSessionStore(s session.Store) Option {
	return func(c *Client) {
		if s != nil {
			c.store = s
		}
	}
}

// WithCredentialProvider sets the password prompt used on 401.
func WithCredentialProvider(p CredentialProvider) Option {
	return func(c *Client) {
		c.creds = p
	}
}

// WithWarmer sets the cold-start recovery hook.
func WithWarmer(w Warmer) Option {
	return func(c *Client) {
		c.warmer = w
	}
}

// WithWarmupURL installs an HTTPWarmer posting to url through the client's
// http.Client. WithWarmer takes precedence.
func WithWarmupURL(url string) Option {
	return func(c *Client) {
		c.warmupURL = url
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithCookieJar forwards session cookies on every request.
func WithCookieJar(jar http.CookieJar) Option {
	return func(c *Client) {
		c.jar = jar
	}
}

// WithClock sets the time source used to compute credential expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New returns a Client for baseURL. An empty baseURL is accepted; every call
// then fails with *ConfigurationError without touching the network.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http: &http.Client{},
		log:  zap.NewNop(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.store == nil {
		c.store = session.NewMemoryStore(c.now)
	}
	if c.jar != nil {
		hc := *c.http
		hc.Jar = c.jar
		c.http = &hc
	}
	if c.warmer == nil && c.warmupURL != "" {
		c.warmer = NewHTTPWarmer(c.warmupURL, c.http)
	}
	return c
}

// BaseURL returns the configured origin.
func (c *Client) BaseURL() string { return c.base }

// Store returns the session store in use.
func (c *Client) Store() session.Store { return c.store }

// Get issues a no-cache GET and decodes the JSON answer into out.
// A nil out discards the body. 401 is reported like any other non-2xx status.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	if c.base == "" {
		return &ConfigurationError{Setting: "API_URL"}
	}
	status, body, err := c.withWarmup(ctx, http.MethodGet, path, func() (int, []byte, error) {
		return c.send(ctx, http.MethodGet, path, nil, false)
	})
	if err != nil {
		return err
	}
	return decode(status, body, out)
}

// Mutate issues method with body encoded as JSON (omitted for GET, HEAD and
// nil) and decodes the answer into out.
func (c *Client) Mutate(ctx context.Context, path, method string, body, out any) error {
	if c.base == "" {
		return &ConfigurationError{Setting: "API_URL"}
	}
	method = strings.ToUpper(method)

	var payload []byte
	if body != nil && method != http.MethodGet && method != http.MethodHead {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
	}
	attempt := func() (int, []byte, error) {
		return c.send(ctx, method, path, payload, true)
	}

	warmed := false
	status, data, err := attempt()
	if err != nil {
		if fatal := terminal(ctx, err); fatal != nil {
			return fatal
		}
		warmed = true
		if status, data, err = c.retryAfterWarmup(ctx, method, path, err, attempt); err != nil {
			return err
		}
	}

	if status == http.StatusUnauthorized && !warmed {
		if err := c.login(ctx); err != nil {
			return err
		}
		status, data, err = attempt()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &TransportError{Method: method, Path: path, Err: err}
		}
	}
	return decode(status, data, out)
}

// GetJSON is Get returning a typed value.
func GetJSON[T any](ctx context.Context, c *Client, path string) (T, error) {
	var out T
	err := c.Get(ctx, path, &out)
	return out, err
}

// MutateJSON is Mutate returning a typed value.
func MutateJSON[T any](ctx context.Context, c *Client, path, method string, body any) (T, error) {
	var out T
	err := c.Mutate(ctx, path, method, body, &out)
	return out, err
}

// Login exchanges password for a credential and stores it.
func (c *Client) Login(ctx context.Context, password string) (models.Credential, error) {
	if c.base == "" {
		return models.Credential{}, &ConfigurationError{Setting: "API_URL"}
	}
	payload, err := json.Marshal(models.LoginRequest{Password: password})
	if err != nil {
		return models.Credential{}, fmt.Errorf("encode login: %w", err)
	}
	status, body, err := c.send(ctx, http.MethodPost, LoginPath, payload, false)
	if err != nil {
		return models.Credential{}, fmt.Errorf("login request: %w", err)
	}
	if status < 200 || status > 299 {
		return models.Credential{}, &HTTPError{Status: status, Body: string(body)}
	}

	var resp models.LoginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.Credential{}, fmt.Errorf("decode login response: %w", err)
	}
	if !resp.OK || resp.Token == "" {
		return models.Credential{}, errors.New("login response carries no token")
	}
	cred := models.Credential{
		Token:     resp.Token,
		ExpiresAt: c.now().Add(time.Duration(resp.ExpiresIn) * time.Second),
	}
	if err := c.store.Write(ctx, cred); err != nil {
		return models.Credential{}, fmt.Errorf("store credential: %w", err)
	}
	c.log.Info("logged in", zap.Time("expires_at", cred.ExpiresAt))
	return cred, nil
}

// Logout forgets the stored credential.
func (c *Client) Logout(ctx context.Context) error {
	return c.store.Clear(ctx)
}

// login runs the interactive cycle after a 401.
func (c *Client) login(ctx context.Context) error {
	if err := c.store.Clear(ctx); err != nil {
		c.log.Warn("failed to clear rejected credential", zap.Error(err))
	}
	if c.creds == nil {
		return &AuthDeclinedError{}
	}
	password, err := c.creds.RequestPassword(ctx)
	if err != nil {
		return &AuthDeclinedError{Err: err}
	}
	if password == "" {
		return &AuthDeclinedError{}
	}
	if _, err := c.Login(ctx, password); err != nil {
		return &AuthDeclinedError{Err: err}
	}
	return nil
}

func (c *Client) withWarmup(ctx context.Context, method, path string, attempt func() (int, []byte, error)) (int, []byte, error) {
	status, body, err := attempt()
	if err == nil {
		return status, body, nil
	}
	if fatal := terminal(ctx, err); fatal != nil {
		return 0, nil, fatal
	}
	return c.retryAfterWarmup(ctx, method, path, err, attempt)
}

func (c *Client) retryAfterWarmup(ctx context.Context, method, path string, first error, attempt func() (int, []byte, error)) (int, []byte, error) {
	c.log.Info("backend unreachable, triggering warmup",
		zap.String("method", method), zap.String("path", path), zap.Error(first))
	if c.warmer != nil {
		if err := c.warmer.Warm(ctx); err != nil {
			c.log.Debug("warmup trigger failed", zap.Error(err))
		}
	}
	status, body, err := attempt()
	if err != nil {
		if ctx.Err() != nil {
			return 0, nil, ctx.Err()
		}
		return 0, nil, &TransportError{Method: method, Path: path, Err: err}
	}
	return status, body, nil
}

// requestError is a request that could not be built; it is never retried.
type requestError struct{ err error }

func (e *requestError) Error() string { return fmt.Sprintf("build request: %v", e.err) }

func (e *requestError) Unwrap() error { return e.err }

// send performs one request. A non-nil error other than *requestError is a
// transport failure.
func (c *Client) send(ctx context.Context, method, path string, payload []byte, jsonBody bool) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return 0, nil, &requestError{err: err}
	}
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("Accept", "application/json")
	if jsonBody || payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cred, ok, err := c.store.Read(ctx); err != nil {
		c.log.Warn("failed to read session", zap.Error(err))
	} else if ok {
		req.Header.Set("Authorization", "Bearer "+cred.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

// terminal returns the error to surface as-is for failures that a warmup
// cannot fix: caller cancellation and malformed requests.
func terminal(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var re *requestError
	if errors.As(err, &re) {
		return re
	}
	return nil
}

func decode(status int, body []byte, out any) error {
	if status < 200 || status > 299 {
		return &HTTPError{Status: status, Body: string(body)}
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
