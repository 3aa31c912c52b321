// Package client is the HTTP implementation of gateway.Gateway against the
// jotter backend in cmd/server.
package client

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

	"go.uber.org/zap"

	"jotter/internal/gateway"
	"jotter/internal/models"
)

var _ gateway.Gateway = (*Client)(nil)

// Client talks to the backend over HTTP/JSON. The session token is read from
// the TokenStore on first use and kept in memory after that.
type Client struct {
	baseURL string
	hc      *http.Client
	tokens  TokenStore
	log     *zap.Logger

	mu     sync.Mutex
	token  string
	loaded bool
	// revoke holds a token forgotten by Clear until SignOut revokes it.
	revoke string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client with its 30s timeout.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.hc = hc } }

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.log = l } }

// New creates a client for the backend at baseURL.
func New(baseURL string, tokens TokenStore, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		hc:      &http.Client{Timeout: 30 * time.Second},
		tokens:  tokens,
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.Named("client")
	return c
}

func (c *Client) currentToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		tok, err := c.tokens.Load()
		if err != nil {
			c.log.Warn("load token", zap.Error(err))
		}
		c.token, c.loaded = tok, true
	}
	return c.token
}

func (c *Client) setToken(tok string) error {
	c.mu.Lock()
	c.token, c.loaded = tok, true
	c.revoke = ""
	c.mu.Unlock()
	if err := c.tokens.Save(tok); err != nil {
		return fmt.Errorf("remember session: %w", err)
	}
	return nil
}

func (c *Client) dropToken() {
	c.mu.Lock()
	c.token, c.loaded = "", true
	c.mu.Unlock()
	if err := c.tokens.Clear(); err != nil {
		c.log.Warn("clear token", zap.Error(err))
	}
}

// do sends in as JSON and decodes the answer into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		apiErr := newAPIError(resp.StatusCode, msg)
		c.log.Debug("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("message", apiErr.Message))
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// authed is do with the remembered token. A 401 forgets it.
func (c *Client) authed(ctx context.Context, method, path string, in, out any) error {
	tok := c.currentToken()
	if tok == "" {
		return gateway.ErrSessionExpired
	}
	err := c.do(ctx, method, path, tok, in, out)
	if errors.Is(err, gateway.ErrSessionExpired) {
		c.dropToken()
	}
	return err
}

type authResponse struct {
	Token   string       `json:"token"`
	Profile *models.User `json:"profile"`
}

// SignIn stores the returned token before handing back the result.
func (c *Client) SignIn(ctx context.Context, cr gateway.Credentials) (gateway.AuthResult, error) {
	var res authResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", "", cr, &res); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			return gateway.AuthResult{}, gateway.ErrInvalidCredentials
		}
		return gateway.AuthResult{}, err
	}
	if err := c.setToken(res.Token); err != nil {
		return gateway.AuthResult{}, err
	}
	return gateway.AuthResult{User: res.Profile, Token: res.Token}, nil
}

// SignUp registers and signs in with the issued token.
func (c *Client) SignUp(ctx context.Context, r gateway.Registration) (gateway.AuthResult, error) {
	var res authResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/signup", "", r, &res); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
			return gateway.AuthResult{}, gateway.ErrConflict
		}
		return gateway.AuthResult{}, err
	}
	if err := c.setToken(res.Token); err != nil {
		return gateway.AuthResult{}, err
	}
	return gateway.AuthResult{User: res.Profile, Token: res.Token}, nil
}

// CurrentUser returns nil, nil without a remembered token. A token whose
// account has no profile yields gateway.ErrProfileNotFound.
func (c *Client) CurrentUser(ctx context.Context) (*models.User, error) {
	if c.currentToken() == "" {
		return nil, nil
	}
	var u models.User
	err := c.authed(ctx, http.MethodGet, "/api/auth/me", nil, &u)
	if errors.Is(err, gateway.ErrNotFound) {
		return nil, gateway.ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Clear forgets the remembered session, so the client can serve as the
// session manager's storage. The token is put aside for a following SignOut,
// which still revokes it on the backend.
func (c *Client) Clear() error {
	tok := c.currentToken()
	c.mu.Lock()
	c.token, c.loaded = "", true
	if tok != "" {
		c.revoke = tok
	}
	c.mu.Unlock()
	return c.tokens.Clear()
}

// SignOut forgets the token locally and then revokes it on the backend. An
// already expired token is not an error.
func (c *Client) SignOut(ctx context.Context) error {
	tok := c.currentToken()
	c.mu.Lock()
	if tok == "" {
		tok = c.revoke
	}
	c.revoke = ""
	c.mu.Unlock()
	c.dropToken()
	if tok == "" {
		return nil
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/logout", tok, nil, nil)
	if errors.Is(err, gateway.ErrSessionExpired) {
		return nil
	}
	return err
}

// SaveProfile creates or renames the signed-in user's profile.
func (c *Client) SaveProfile(ctx context.Context, displayName string) (*models.User, error) {
	var u models.User
	if err := c.authed(ctx, http.MethodPut, "/api/profile", map[string]string{"display_name": displayName}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListJournals ignores userID; the backend scopes by token.
func (c *Client) ListJournals(ctx context.Context, _ string) ([]models.Journal, error) {
	var out []models.Journal
	if err := c.authed(ctx, http.MethodGet, "/api/journals", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateJournal(ctx context.Context, j gateway.NewJournal) (models.Journal, error) {
	var out models.Journal
	err := c.authed(ctx, http.MethodPost, "/api/journals", j, &out)
	return out, err
}

func (c *Client) UpdateJournal(ctx context.Context, id string, p gateway.JournalPatch) (models.Journal, error) {
	var out models.Journal
	err := c.authed(ctx, http.MethodPut, "/api/journals/"+url.PathEscape(id), p, &out)
	return out, err
}

func (c *Client) DeleteJournal(ctx context.Context, id string) error {
	return c.authed(ctx, http.MethodDelete, "/api/journals/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ListEntries(ctx context.Context, _ string) ([]models.Entry, error) {
	var recs []models.EntryRecord
	if err := c.authed(ctx, http.MethodGet, "/api/entries", nil, &recs); err != nil {
		return nil, err
	}
	out := make([]models.Entry, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Entry())
	}
	return out, nil
}

func (c *Client) entryCall(ctx context.Context, method, path string, in any) (models.Entry, error) {
	var rec models.EntryRecord
	if err := c.authed(ctx, method, path, in, &rec); err != nil {
		return models.Entry{}, err
	}
	return rec.Entry(), nil
}

func (c *Client) CreateEntry(ctx context.Context, e gateway.NewEntry) (models.Entry, error) {
	return c.entryCall(ctx, http.MethodPost, "/api/entries", e)
}

func (c *Client) UpdateEntry(ctx context.Context, id string, p gateway.EntryPatch) (models.Entry, error) {
	return c.entryCall(ctx, http.MethodPut, "/api/entries/"+url.PathEscape(id), p)
}

func (c *Client) TrashEntry(ctx context.Context, id string, at time.Time) (models.Entry, error) {
	var body any
	if !at.IsZero() {
		body = map[string]string{"deleted_at": at.UTC().Format(time.RFC3339)}
	}
	return c.entryCall(ctx, http.MethodPost, "/api/entries/"+url.PathEscape(id)+"/trash", body)
}

func (c *Client) RecoverEntry(ctx context.Context, id string) (models.Entry, error) {
	return c.entryCall(ctx, http.MethodPost, "/api/entries/"+url.PathEscape(id)+"/recover", nil)
}

func (c *Client) PurgeEntry(ctx context.Context, id string) error {
	return c.authed(ctx, http.MethodDelete, "/api/entries/"+url.PathEscape(id), nil, nil)
}
