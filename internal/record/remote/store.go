// Package remote implements the record store over the record service's REST
// surface. Every failure of the transport or the payload is collapsed into
// errs.ErrBackendUnavailable; typed application errors cross as sentinels.
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
	"time"

	"github.com/gamehub/identity/internal/errs"
	"github.com/gamehub/identity/internal/model"
	"github.com/gamehub/identity/internal/record"
)

const defaultTimeout = 5 * time.Second

// envelope is the record service's uniform response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Store implements record.Store against a remote base URL.
type Store struct {
	base    string
	hc      *http.Client
	timeout time.Duration
}

var _ record.Store = (*Store)(nil)

// Option configures the remote store.
type Option func(*Store)

// WithHTTPClient substitutes the HTTP client (tests use httptest servers).
func WithHTTPClient(hc *http.Client) Option { return func(s *Store) { s.hc = hc } }

// WithTimeout bounds every call; it doubles as the abort model for in-flight
// requests so a slow authority cannot race a later interactive action.
func WithTimeout(d time.Duration) Option { return func(s *Store) { s.timeout = d } }

// NewStore constructs a remote store for a base URL like "http://host:port/api".
func NewStore(baseURL string, opts ...Option) *Store {
	s := &Store{
		base:    baseURL,
		hc:      &http.Client{},
		timeout: defaultTimeout,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// do executes one request and decodes the envelope. A nil out skips data
// decoding. Transport failures, non-2xx without a typed error, and malformed
// payloads all come back wrapping errs.ErrBackendUnavailable.
func (s *Store) do(ctx context.Context, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("remote: encode: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.base+path, rd)
	if err != nil {
		return fmt.Errorf("remote: request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.hc.Do(req)
	if err != nil {
		return fmt.Errorf("remote: %s %s: %v: %w", method, path, err, errs.ErrBackendUnavailable)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("remote: %s %s: malformed payload: %w", method, path, errs.ErrBackendUnavailable)
	}
	if !env.Success {
		return classify(resp.StatusCode, env.Error)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("remote: %s %s: malformed data: %w", method, path, errs.ErrBackendUnavailable)
		}
	}
	return nil
}

// classify maps the authority's error vocabulary onto sentinels. Anything
// unrecognized counts as the backend misbehaving.
func classify(status int, msg string) error {
	switch msg {
	case "username already exists":
		return errs.ErrDuplicateUsername
	case "email already exists":
		return errs.ErrDuplicateEmail
	case "user not found":
		return errs.ErrNotFound
	case "login failed":
		return errs.ErrLoginFailed
	case "too many attempts":
		return errs.ErrRateLimited
	}
	switch status {
	case http.StatusNotFound:
		return errs.ErrNotFound
	case http.StatusUnauthorized:
		return errs.ErrLoginFailed
	case http.StatusTooManyRequests:
		return errs.ErrRateLimited
	}
	return fmt.Errorf("remote: status %d: %s: %w", status, msg, errs.ErrBackendUnavailable)
}

// Get loads an account by id.
func (s *Store) Get(ctx context.Context, id string) (*model.Account, error) {
	var d accountDTO
	if err := s.do(ctx, http.MethodGet, "/users/"+url.PathEscape(id), nil, &d); err != nil {
		return nil, err
	}
	a := d.toModel()
	return &a, nil
}

// GetByUsername loads an account by username.
func (s *Store) GetByUsername(ctx context.Context, username string) (*model.Account, error) {
	var d accountDTO
	if err := s.do(ctx, http.MethodGet, "/users/username/"+url.PathEscape(username), nil, &d); err != nil {
		return nil, err
	}
	a := d.toModel()
	return &a, nil
}

// GetByEmail loads an account by email. The service has no email endpoint,
// so this filters the full list, matching legacy behavior.
func (s *Store) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	if email == "" {
		return nil, errs.ErrNotFound
	}
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Email == email {
			return &all[i], nil
		}
	}
	return nil, errs.ErrNotFound
}

// List returns all accounts, newest first (server ordering).
func (s *Store) List(ctx context.Context) ([]model.Account, error) {
	var ds []accountDTO
	if err := s.do(ctx, http.MethodGet, "/users", nil, &ds); err != nil {
		return nil, err
	}
	out := make([]model.Account, len(ds))
	for i, d := range ds {
		out[i] = d.toModel()
	}
	return out, nil
}

// Create posts a new account; the server arbitrates uniqueness.
func (s *Store) Create(ctx context.Context, n record.NewAccount) (*model.Account, error) {
	var d accountDTO
	if err := s.do(ctx, http.MethodPost, "/users", createFrom(n), &d); err != nil {
		return nil, err
	}
	a := d.toModel()
	return &a, nil
}

// Update puts a partial update.
func (s *Store) Update(ctx context.Context, id string, p record.Patch) (*model.Account, error) {
	var d accountDTO
	if err := s.do(ctx, http.MethodPut, "/users/"+url.PathEscape(id), patchFrom(p), &d); err != nil {
		return nil, err
	}
	a := d.toModel()
	return &a, nil
}

// Delete removes an account. A not-found outcome reports false, not an error.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := s.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(id), nil, &ok)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}

// Stats fetches aggregate account counts.
func (s *Store) Stats(ctx context.Context) (*model.Stats, error) {
	var d statsDTO
	if err := s.do(ctx, http.MethodGet, "/users/stats", nil, &d); err != nil {
		return nil, err
	}
	st := d.toModel()
	return &st, nil
}

// Validate asks the authority to check a credential. The outcome never
// distinguishes unknown user, wrong credential, or inactive account.
func (s *Store) Validate(ctx context.Context, username, credential string) (*model.Account, error) {
	body := struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}{username, credential}
	var d accountDTO
	if err := s.do(ctx, http.MethodPost, "/users/validate", body, &d); err != nil {
		return nil, err
	}
	a := d.toModel()
	return &a, nil
}
