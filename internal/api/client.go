// Package api is the authenticated request pipeline every store call goes through.
//
// It attaches the bearer credential, and on a 401 it refreshes the access token
// and replays the original request exactly once. A failed refresh tears the
// session down.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"storefront/internal/credstore"
	"storefront/internal/model"
	"storefront/internal/transport"
)

const (
	pathTokenRefresh = "/auth/token/refresh/"

	defaultClientName    = "storefront-go"
	defaultClientVersion = "1.0.0"
)

// Request describes one outbound call. Path is relative to the API base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any // JSON-encoded when non-nil

	// RawBody is sent verbatim with ContentType instead of Body. It is kept
	// as bytes so the refresh replay can resend it.
	RawBody     []byte
	ContentType string

	// Public requests (register, login, refresh) never carry a credential.
	Public bool

	// Credentials overrides the store for this call and disables the refresh
	// branch. Login uses it to fetch the profile before anything is persisted.
	Credentials *model.CredentialPair

	// IdempotencyKey is sent as Idempotency-Key when set.
	IdempotencyKey string
}

// Response is a fully-read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Err maps a non-2xx response onto the model error taxonomy. It is nil for 2xx.
func (r *Response) Err() error {
	if r.OK() {
		return nil
	}
	return parseError(r.StatusCode, r.Body)
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Store      credstore.Store
	HTTPClient *http.Client // nil builds one from internal/transport
	Logger     *slog.Logger

	ClientName    string
	ClientVersion string

	// MinAPIVersion is the oldest server API version this client is tested
	// against. Empty disables the check.
	MinAPIVersion string
}

// Client is the store API HTTP client.
type Client struct {
	baseURL    string
	store      credstore.Store
	httpClient *http.Client
	logger     *slog.Logger

	clientHeader  string
	minAPIVersion string
	versionOnce   sync.Once

	refreshGroup singleflight.Group

	hookMu           sync.RWMutex
	onSessionExpired func()
}

// New creates a Client.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid API base URL %q", opts.BaseURL)
	}
	if opts.Store == nil {
		return nil, errors.New("credential store is required")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Transport: transport.New(transport.Options{})}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	name := opts.ClientName
	if name == "" {
		name = defaultClientName
	}
	version := opts.ClientVersion
	if version == "" {
		version = defaultClientVersion
	}
	header, err := formatClientHeader(name, version)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL:       strings.TrimRight(base.String(), "/"),
		store:         opts.Store,
		httpClient:    httpClient,
		logger:        logger,
		clientHeader:  header,
		minAPIVersion: opts.MinAPIVersion,
	}, nil
}

// OnSessionExpired installs the hook run after a failed refresh has cleared
// the credential store. The session controller uses it to publish ANONYMOUS.
func (c *Client) OnSessionExpired(fn func()) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	c.onSessionExpired = fn
}

// Store returns the credential store the pipeline reads from.
func (c *Client) Store() credstore.Store {
	return c.store
}

// Send dispatches req, transparently refreshing and replaying once on 401.
//
// Non-2xx responses are returned without error. When the refresh branch fails
// the session is torn down and the original 401 response is returned together
// with a SessionExpired error.
func (c *Client) Send(ctx context.Context, req *Request) (*Response, error) {
	return c.send(ctx, req, firstAttempt)
}

// Do sends req and decodes a 2xx JSON body into out (nil skips decoding).
// Any other status is mapped onto the model error taxonomy.
func (c *Client) Do(ctx context.Context, req *Request, out any) error {
	resp, err := c.Send(ctx, req)
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return err
	}
	if out != nil && len(bytes.TrimSpace(resp.Body)) > 0 {
		if err := json.Unmarshal(resp.Body, out); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
	}
	return nil
}

func (c *Client) send(ctx context.Context, req *Request, at attempt) (*Response, error) {
	token, err := c.credentialFor(req, at)
	if err != nil {
		return nil, err
	}

	resp, err := c.dispatch(ctx, req, token)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized || !at.mayRefresh(req) {
		return resp, nil
	}

	access, err := c.refresh(ctx)
	if err != nil {
		return resp, err
	}
	return c.send(ctx, req, at.next(access))
}

func (c *Client) credentialFor(req *Request, at attempt) (string, error) {
	switch {
	case req.Public:
		return "", nil
	case req.Credentials != nil:
		return req.Credentials.Access, nil
	case at.access != "":
		return at.access, nil
	}

	state, err := c.store.Load()
	if err != nil {
		return "", fmt.Errorf("loading credentials: %w", err)
	}
	if state.Credentials == nil {
		return "", nil
	}
	return state.Credentials.Access, nil
}

// dispatch performs a single HTTP exchange.
func (c *Client) dispatch(ctx context.Context, req *Request, token string) (*Response, error) {
	httpReq, err := c.newRequest(ctx, req, token)
	if err != nil {
		return nil, err
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, model.NewTransportError(err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, model.NewTransportError(fmt.Errorf("reading response: %w", err))
	}

	c.checkServerVersion(httpResp.Header)

	c.logger.Debug("store api call",
		slog.String("method", httpReq.Method),
		slog.String("path", req.Path),
		slog.Int("status", httpResp.StatusCode),
	)

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
	}, nil
}

func (c *Client) newRequest(ctx context.Context, req *Request, token string) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var bodyReader io.Reader
	contentType := ""
	switch {
	case req.RawBody != nil:
		bodyReader = bytes.NewReader(req.RawBody)
		contentType = req.ContentType
	case req.Body != nil:
		jsonBody, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
		contentType = "application/json"
	}

	target := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set(headerClient, c.clientHeader)
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	}

	return httpReq, nil
}
