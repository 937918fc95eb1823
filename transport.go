package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/google/uuid"
)

const headerRequestID = "X-Request-ID"

// Request describes one JSON exchange with the remote service
type Request struct {
	Method         string
	Path           string
	Query          url.Values
	Body           any
	WithCredential bool
}

// RawResponse is a successful response whose body was not decoded
type RawResponse struct {
	Status      int
	ContentType string
	Body        []byte
}

// UnauthorizedFunc is invoked synchronously when a response comes back
// with 401. credential is the bearer that was attached, empty if none.
type UnauthorizedFunc func(ctx context.Context, credential string)

// Transport issues JSON requests against the configured API base URL.
// It never retries.
type Transport struct {
	baseURL      string
	client       *http.Client
	logger       Logger
	debug        bool
	newRequestID func() string

	mu             sync.RWMutex
	credential     func() string
	onUnauthorized UnauthorizedFunc
}

// TransportOption customizes a Transport
type TransportOption func(*Transport)

// WithTransportHTTPClient replaces the default http.Client
func WithTransportHTTPClient(client *http.Client) TransportOption {
	return func(t *Transport) {
		if client != nil {
			t.client = client
		}
	}
}

// WithTransportLogger sets the logger
func WithTransportLogger(logger Logger) TransportOption {
	return func(t *Transport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithTransportRequestID overrides how X-Request-ID values are generated
func WithTransportRequestID(fn func() string) TransportOption {
	return func(t *Transport) {
		if fn != nil {
			t.newRequestID = fn
		}
	}
}

// NewTransport validates cfg and builds a transport. An invalid config
// is a configuration failure.
func NewTransport(cfg Config, opts ...TransportOption) (*Transport, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	t := &Transport{
		baseURL:      cfg.BaseURL(),
		client:       &http.Client{Timeout: cfg.RequestTimeout},
		logger:       defLogger{},
		debug:        cfg.Debug,
		newRequestID: uuid.NewString,
		credential:   func() string { return "" },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t, nil
}

// BaseURL returns the API base URL without trailing slash
func (t *Transport) BaseURL() string {
	return t.baseURL
}

// SetCredentialSource registers where the bearer credential is read from
func (t *Transport) SetCredentialSource(fn func() string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if fn == nil {
		fn = func() string { return "" }
	}
	t.credential = fn
}

// OnUnauthorized registers the invalidation callback
func (t *Transport) OnUnauthorized(fn UnauthorizedFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onUnauthorized = fn
}

// Do performs req and decodes a successful JSON body into out, which may
// be nil. Non 2xx responses come back as *goerrors.Error carrying the
// HTTP status in Code and the server's code in TextCode.
func (t *Transport) Do(ctx context.Context, req Request, out any) error {
	raw, err := t.exchange(ctx, req, "application/json")
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(raw.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw.Body, out); err != nil {
		return invalidResponseError(req.Path, err)
	}
	return nil
}

// Raw performs req and returns the undecoded body, used for endpoints
// that can answer with markup.
func (t *Transport) Raw(ctx context.Context, req Request) (RawResponse, error) {
	return t.exchange(ctx, req, "*/*")
}

func (t *Transport) exchange(ctx context.Context, req Request, accept string) (RawResponse, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	requestID := t.newRequestID()

	target := t.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if method != http.MethodGet && req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return RawResponse{}, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to encode request body").
				WithTextCode(TextCodeValidation).
				WithRequestID(requestID)
		}
		if t.debug {
			t.logger.Debug("%s %s payload: %s", method, req.Path, print.MaybePrettyJSON(req.Body))
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return RawResponse{}, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to build request").
			WithTextCode(TextCodeValidation).
			WithRequestID(requestID)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", accept)
	httpReq.Header.Set(headerRequestID, requestID)

	var credential string
	if req.WithCredential {
		t.mu.RLock()
		credential = t.credential()
		t.mu.RUnlock()
		if credential != "" {
			httpReq.Header.Set("Authorization", "Bearer "+credential)
		}
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		t.logger.Warn("%s %s [%s] failed: %v", method, req.Path, requestID, err)
		return RawResponse{}, goerrors.Wrap(err, goerrors.CategoryExternal, "network request failed").
			WithTextCode(TextCodeNetwork).
			WithRequestID(requestID)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return RawResponse{}, goerrors.Wrap(err, goerrors.CategoryExternal, "unable to read response").
			WithTextCode(TextCodeNetwork).
			WithCode(resp.StatusCode).
			WithRequestID(requestID)
	}

	t.logger.Debug("%s %s [%s] -> %d", method, req.Path, requestID, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		failure := responseError(resp.StatusCode, payload).WithRequestID(requestID)
		if t.debug {
			t.logger.Debug("%s %s error body: %s", method, req.Path, print.MaybePrettyJSON(failure.Metadata))
		}
		if resp.StatusCode == http.StatusUnauthorized {
			t.mu.RLock()
			cb := t.onUnauthorized
			t.mu.RUnlock()
			if cb != nil {
				cb(ctx, credential)
			}
		}
		return RawResponse{}, failure
	}

	return RawResponse{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        payload,
	}, nil
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Code    any    `json:"code"`
}

// responseError reads message and code from an error body, whatever its
// shape, and falls back to generic values.
func responseError(status int, payload []byte) *goerrors.Error {
	var body errorBody
	decoded := json.Unmarshal(payload, &body) == nil

	message := defaultFailureMessage
	code := TextCodeUnknown
	if decoded {
		switch {
		case strings.TrimSpace(body.Message) != "":
			message = body.Message
		case strings.TrimSpace(body.Error) != "":
			message = body.Error
		}
		if s, ok := body.Code.(string); ok && s != "" {
			code = s
		}
	}

	category := goerrors.CategoryExternal
	if status == http.StatusUnauthorized {
		category = goerrors.CategoryAuth
	}

	return goerrors.New(message, category).
		WithCode(status).
		WithTextCode(code).
		WithMetadata(map[string]any{"status": status, "code": code})
}
