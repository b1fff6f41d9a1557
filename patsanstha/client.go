package patsanstha

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/pigmy-admin/session"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTimeout is the per-attempt deadline when Options leaves it unset.
	DefaultTimeout = 30 * time.Second

	maxResponseBytes = 32 << 20
	contentTypeJSON  = "application/json"
)

var (
	errNoCredential  = errors.New("[patsanstha renewCredential] session holds no credential")
	errRenewalFailed = errors.New("[patsanstha renewCredential] credential already failed renewal")
)

// Options tune a Client.
type Options struct {
	RequestTimeout time.Duration
	// RenewOnAuthFailure makes one silent refresh-token call before a
	// rejected credential tears the session down.
	RenewOnAuthFailure bool
	HTTPClient         *http.Client
	// OnSessionExpired runs once per session teardown, on the call that
	// performed it.
	OnSessionExpired func(ctx context.Context)
}

// Client calls the Patsanstha REST API on behalf of one session. It attaches
// the session's bearer credential, normalizes failures into *Error and
// tears the session down when the credential is rejected.
type Client struct {
	baseURL   string
	store     *session.Store
	http      *http.Client
	timeout   time.Duration
	renew     bool
	onExpired func(context.Context)
	renewals  singleflight.Group

	failedMu sync.Mutex
	failed   map[string]struct{} // rejected credentials whose renewal failed
}

// NewClient binds a client to baseURL and the credential held by store.
func NewClient(baseURL string, store *session.Store, opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if store == nil {
		store = session.NewStore("", nil)
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		store:     store,
		http:      httpClient,
		timeout:   timeout,
		renew:     opts.RenewOnAuthFailure,
		onExpired: opts.OnSessionExpired,
		failed:    make(map[string]struct{}),
	}
}

// Store returns the session the client authenticates with.
func (c *Client) Store() *session.Store {
	return c.store
}

// RequestOptions describe one call. Body is sent as JSON; []byte,
// json.RawMessage and string bodies are sent unchanged.
type RequestOptions struct {
	Method  string
	Body    any
	Headers http.Header
	Query   url.Values
}

// DownloadedFile is the payload of a file download.
type DownloadedFile struct {
	Filename    string `json:"filename"`
	FileContent string `json:"fileContent"`
}

type request struct {
	method      string
	endpoint    string
	query       url.Values
	headers     http.Header
	body        []byte
	contentType string
	bearer      string // overrides the session credential when set
}

type response struct {
	status    int
	body      []byte
	usedToken string
}

// Call sends a request to endpoint and decodes a 2xx body into out (which
// may be nil). Every other outcome is returned as *Error, except a
// cancelled ctx, which returns an error wrapping context.Canceled.
func (c *Client) Call(ctx context.Context, endpoint string, opts RequestOptions, out any) error {
	req := request{
		method:   opts.Method,
		endpoint: endpoint,
		query:    opts.Query,
		headers:  opts.Headers,
	}
	if req.method == "" {
		req.method = http.MethodGet
	}
	if opts.Body != nil {
		body, err := encodeBody(opts.Body)
		if err != nil {
			return fmt.Errorf("[patsanstha Call] encode body: %w", err)
		}
		req.body = body
		req.contentType = contentTypeJSON
	}

	body, err := c.execute(ctx, req, genericFallback)
	if err != nil {
		return err
	}
	return decodeInto(body, out)
}

// Upload posts content as the multipart field "file". The content type,
// boundary included, always comes from the multipart writer.
func (c *Client) Upload(ctx context.Context, endpoint, filename string, content io.Reader, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("[patsanstha Upload] create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("[patsanstha Upload] read content: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("[patsanstha Upload] close form: %w", err)
	}

	body, err := c.execute(ctx, request{
		method:      http.MethodPost,
		endpoint:    endpoint,
		body:        buf.Bytes(),
		contentType: mw.FormDataContentType(),
	}, uploadFallback)
	if err != nil {
		return err
	}
	return decodeInto(body, out)
}

// Download fetches a generated file. It fails with ErrNoFileContent only
// when the response has no fileContent at all; an empty file is returned.
func (c *Client) Download(ctx context.Context, endpoint string, query url.Values) (DownloadedFile, error) {
	body, err := c.execute(ctx, request{method: http.MethodGet, endpoint: endpoint, query: query}, downloadFallback)
	if err != nil {
		return DownloadedFile{}, err
	}

	type filePayload struct {
		Filename    string  `json:"filename"`
		FileContent *string `json:"fileContent"`
	}
	var payload struct {
		filePayload
		Data *filePayload `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return DownloadedFile{}, fmt.Errorf("[patsanstha Download] decode response: %w", err)
	}
	file := payload.filePayload
	if file.FileContent == nil && payload.Data != nil {
		file = *payload.Data
	}
	if file.FileContent == nil {
		return DownloadedFile{}, ErrNoFileContent
	}
	return DownloadedFile{Filename: file.Filename, FileContent: *file.FileContent}, nil
}

// execute sends req at most twice: the second attempt only follows a
// successful credential renewal.
func (c *Client) execute(ctx context.Context, req request, fallback fallbackFunc) ([]byte, error) {
	resp, err := c.roundTrip(ctx, req)
	if err != nil {
		return nil, err
	}
	if isSuccess(resp.status) {
		return resp.body, nil
	}

	apiErr := newHTTPError(resp.status, resp.body, fallback)
	if !isAuthRejection(resp.status, apiErr.Message) {
		return nil, apiErr
	}

	if c.renew && resp.usedToken != "" && req.bearer == "" {
		renewed := c.renewCredential(ctx, resp.usedToken)
		if ctx.Err() != nil {
			// The caller left; the renewal outcome still applies to the session
			return nil, fmt.Errorf("[patsanstha] request abandoned: %w", context.Canceled)
		}
		if !renewed {
			return nil, c.rejected(ctx, apiErr, resp.status, fallback)
		}
		resp, err = c.roundTrip(ctx, req)
		if err != nil {
			return nil, err
		}
		if isSuccess(resp.status) {
			return resp.body, nil
		}
		apiErr = newHTTPError(resp.status, resp.body, fallback)
		if !isAuthRejection(resp.status, apiErr.Message) {
			return nil, apiErr
		}
	}

	return nil, c.rejected(ctx, apiErr, resp.status, fallback)
}

// rejected tears the session down and turns apiErr into the auth failure
// handed to the caller.
func (c *Client) rejected(ctx context.Context, apiErr *Error, status int, fallback fallbackFunc) *Error {
	c.expireSession(ctx)
	apiErr.Kind = KindAuth
	if apiErr.Message == fallback(status) {
		apiErr.Message = msgSessionExpired
	}
	return apiErr
}

// renewCredential exchanges a rejected credential for a new one. Each
// rejected credential is refreshed at most once: concurrent rejections share
// one refresh call and later rejections reuse its outcome. The refresh runs
// detached from ctx so one caller leaving does not fail it for the rest.
func (c *Client) renewCredential(ctx context.Context, rejected string) bool {
	renewCtx := context.WithoutCancel(ctx)
	_, err, _ := c.renewals.Do(rejected, func() (any, error) {
		current := c.store.Current().Token
		switch {
		case current == "":
			return nil, errNoCredential
		case current != rejected:
			// Renewed by an earlier caller
			return current, nil
		case c.renewalFailed(rejected):
			return nil, errRenewalFailed
		}
		token, err := c.refreshCredential(renewCtx, rejected)
		if err == nil {
			err = c.store.Renew(renewCtx, token)
		}
		if err != nil {
			c.failedMu.Lock()
			c.failed[rejected] = struct{}{}
			c.failedMu.Unlock()
			return nil, err
		}
		log.Debug().Str("session", c.store.Key()).Msg("Credential renewed")
		return token, nil
	})
	if err != nil {
		log.Info().Err(err).Str("session", c.store.Key()).Msg("Credential renewal failed")
		return false
	}
	return true
}

func (c *Client) renewalFailed(token string) bool {
	c.failedMu.Lock()
	defer c.failedMu.Unlock()
	_, ok := c.failed[token]
	return ok
}

func (c *Client) refreshCredential(ctx context.Context, rejected string) (string, error) {
	resp, err := c.roundTrip(ctx, request{method: http.MethodPost, endpoint: EndpointRefreshToken, bearer: rejected})
	if err != nil {
		return "", err
	}
	if !isSuccess(resp.status) {
		return "", newHTTPError(resp.status, resp.body, genericFallback)
	}
	var payload loginResponse
	if err := json.Unmarshal(resp.body, &payload); err != nil {
		return "", fmt.Errorf("[patsanstha refreshCredential] decode response: %w", err)
	}
	token, _ := payload.credential()
	if token == "" {
		return "", errors.New("[patsanstha refreshCredential] response carried no token")
	}
	return token, nil
}

func (c *Client) expireSession(ctx context.Context) {
	// Clearing storage must finish even if the caller has gone
	ctx = context.WithoutCancel(ctx)
	if !c.store.Expire(ctx) {
		return
	}
	log.Info().Str("session", c.store.Key()).Msg("Session expired, credentials cleared")
	if c.onExpired != nil {
		c.onExpired(ctx)
	}
}

func (c *Client) roundTrip(ctx context.Context, req request) (response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(attemptCtx, req.method, c.url(req), body)
	if err != nil {
		return response{}, fmt.Errorf("[patsanstha roundTrip] build request: %w", err)
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	for name, values := range req.headers {
		httpReq.Header.Del(name)
		for _, v := range values {
			httpReq.Header.Add(name, v)
		}
	}

	var used string
	if req.bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.bearer)
		used = req.bearer
	} else if token, err := c.store.Token(); err == nil {
		token.SetAuthHeader(httpReq)
		used = token.AccessToken
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return response{}, transportError(ctx, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return response{}, transportError(ctx, err)
	}
	return response{status: resp.StatusCode, body: respBody, usedToken: used}, nil
}

func (c *Client) url(req request) string {
	u := c.baseURL + "/" + strings.TrimLeft(req.endpoint, "/")
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}
	return u
}

// transportError maps a failure below HTTP onto the taxonomy. A caller that
// gave up gets context.Canceled back so it can drop the result.
func transportError(parent context.Context, err error) error {
	if errors.Is(parent.Err(), context.Canceled) {
		return fmt.Errorf("[patsanstha] request abandoned: %w", context.Canceled)
	}
	log.Debug().Err(err).Msg("Transport failure")
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{Kind: KindTimeout, Message: msgTimeout}
	}
	return &Error{Kind: KindNetwork, Message: msgNetwork}
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	case string:
		return []byte(b), nil
	}
	return json.Marshal(body)
}

func decodeInto(body []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("[patsanstha] decode response: %w", err)
	}
	return nil
}
