package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/ukydev/aero-console/internal/models"
)

// DefaultTimeout bounds every REST call.
const DefaultTimeout = 15 * time.Second

// TokenStore holds the session's token pair. auth.Session implements it.
type TokenStore interface {
	AccessToken() string
	RefreshToken() string
	Set(models.TokenPair)
	Clear()
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger.
func WithLogger(l log.FieldLogger) ClientOption {
	return func(c *Client) { c.log = l }
}

// WithAuthFailureHandler registers f to run when a token refresh fails and
// the stored credentials have been cleared.
func WithAuthFailureHandler(f func(error)) ClientOption {
	return func(c *Client) { c.onAuthFailure = f }
}

// Client calls the console REST API. Requests carry the stored access token;
// a 401 triggers one shared refresh followed by a single retry.
type Client struct {
	baseURL       string
	http          *http.Client
	tokens        TokenStore
	log           log.FieldLogger
	onAuthFailure func(error)

	refreshGroup singleflight.Group
}

// NewClient creates a Client for baseURL (for example
// http://localhost:8000/api/v1).
func NewClient(baseURL string, tokens TokenStore, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		tokens:  tokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = log.StandardLogger()
	}
	return c
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string { return c.baseURL }

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	// anonymous requests are sent without a token and never refreshed
	anonymous bool
}

// do sends req and decodes a successful response body into out when out is
// non-nil.
func (c *Client) do(ctx context.Context, req request, out any) error {
	data, err := c.send(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Method: req.method, Path: req.path, BaseURL: c.baseURL, Status: http.StatusOK,
			Message: "invalid response body", Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) send(ctx context.Context, req request) ([]byte, error) {
	token := ""
	if !req.anonymous && c.tokens != nil {
		token = c.tokens.AccessToken()
	}
	data, err := c.roundTrip(ctx, req, token)
	if err == nil || req.anonymous || c.tokens == nil || !IsStatus(err, http.StatusUnauthorized) {
		return data, err
	}

	fresh, rerr := c.refresh(ctx, token)
	if rerr != nil {
		return nil, rerr
	}
	return c.roundTrip(ctx, req, fresh)
}

func (c *Client) roundTrip(ctx context.Context, req request, token string) ([]byte, error) {
	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &Error{Method: req.method, Path: req.path, BaseURL: c.baseURL, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Method: req.method, Path: req.path, BaseURL: c.baseURL, Status: resp.StatusCode,
			Message: "read response body", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{
			Method:  req.method,
			Path:    req.path,
			BaseURL: c.baseURL,
			Status:  resp.StatusCode,
			Detail:  detailFrom(data),
			Message: http.StatusText(resp.StatusCode),
		}
	}
	return data, nil
}

// refresh exchanges the refresh token once for all concurrent callers. A
// caller whose token was already replaced retries with the current one.
func (c *Client) refresh(ctx context.Context, used string) (string, error) {
	if cur := c.tokens.AccessToken(); cur != "" && cur != used {
		return cur, nil
	}
	v, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		if cur := c.tokens.AccessToken(); cur != "" && cur != used {
			return cur, nil
		}
		pair, err := c.exchangeRefreshToken(ctx)
		if err != nil {
			c.log.WithError(err).Warn("Token refresh failed, clearing session")
			c.tokens.Clear()
			if c.onAuthFailure != nil {
				c.onAuthFailure(err)
			}
			return "", err
		}
		c.tokens.Set(pair)
		c.log.Debug("Access token refreshed")
		return pair.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Client) exchangeRefreshToken(ctx context.Context) (models.TokenPair, error) {
	rt := c.tokens.RefreshToken()
	if rt == "" {
		return models.TokenPair{}, ErrNoRefreshToken
	}
	var pair models.TokenPair
	err := c.do(ctx, request{
		method:    http.MethodPost,
		path:      "/auth/refresh",
		body:      map[string]string{"refresh_token": rt},
		anonymous: true,
	}, &pair)
	if err != nil {
		return models.TokenPair{}, err
	}
	if pair.AccessToken == "" {
		return models.TokenPair{}, fmt.Errorf("refresh response missing access token")
	}
	return pair, nil
}

// detailFrom extracts a string "detail" field from an error body.
func detailFrom(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(payload.Detail, &s); err != nil {
		return ""
	}
	return s
}

// decodeList accepts either a bare JSON array or an {"items": [...]} page.
func decodeList[T any](data []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var out []T
		if err := json.Unmarshal(trimmed, &out); err != nil {
			return nil, fmt.Errorf("decode list: %w", err)
		}
		return out, nil
	}
	var page struct {
		Items []T `json:"items"`
	}
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	return page.Items, nil
}

func listOf[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	data, err := c.send(ctx, request{method: http.MethodGet, path: path, query: query})
	if err != nil {
		return nil, err
	}
	items, err := decodeList[T](data)
	if err != nil {
		return nil, &Error{Method: http.MethodGet, Path: path, BaseURL: c.baseURL, Status: http.StatusOK,
			Message: "invalid response body", Err: err}
	}
	return items, nil
}
