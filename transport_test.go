package authclient_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-auth-client/adapters/zaplog"
)

func newTestTransport(t *testing.T, handler http.HandlerFunc, opts ...authclient.TransportOption) *authclient.Transport {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	base := []authclient.TransportOption{
		authclient.WithTransportHTTPClient(server.Client()),
		authclient.WithTransportLogger(zaplog.New(nil)),
	}
	transport, err := authclient.NewTransport(authclient.DefaultConfig(server.URL+"/api:auth/"), append(base, opts...)...)
	require.NoError(t, err)
	return transport
}

func TestNewTransport_RequiresConfiguration(t *testing.T) {
	_, err := authclient.NewTransport(authclient.Config{})
	require.Error(t, err)

	var rich *goerrors.Error
	require.ErrorAs(t, err, &rich)
	assert.Equal(t, authclient.CategoryConfiguration, rich.Category)
	assert.Equal(t, authclient.TextCodeMissingConfig, rich.TextCode)
}

func TestTransport_SendsHeadersAndBody(t *testing.T) {
	var got *http.Request
	var body map[string]string
	transport := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"ok":true}`)
	}, authclient.WithTransportRequestID(func() string { return "req-1" }))
	transport.SetCredentialSource(func() string { return "tok-abc" })

	var out struct {
		OK bool `json:"ok"`
	}
	err := transport.Do(context.Background(), authclient.Request{
		Method:         http.MethodPost,
		Path:           "/stacks",
		Query:          url.Values{"page": {"2"}},
		Body:           map[string]string{"stack_name": "Morning"},
		WithCredential: true,
	}, &out)
	require.NoError(t, err)
	assert.True(t, out.OK)

	require.NotNil(t, got)
	assert.Equal(t, "/api:auth/stacks", got.URL.Path)
	assert.Equal(t, "2", got.URL.Query().Get("page"))
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	assert.Equal(t, "application/json", got.Header.Get("Accept"))
	assert.Equal(t, "req-1", got.Header.Get("X-Request-ID"))
	assert.Equal(t, "Bearer tok-abc", got.Header.Get("Authorization"))
	assert.Equal(t, "Morning", body["stack_name"])
}

func TestTransport_OmitsCredentialUnlessAsked(t *testing.T) {
	var authorization string
	transport := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		authorization = r.Header.Get("Authorization")
	})
	transport.SetCredentialSource(func() string { return "tok-abc" })

	require.NoError(t, transport.Do(context.Background(), authclient.Request{Path: "/public/stacks/ana"}, nil))
	assert.Empty(t, authorization)
}

func TestTransport_GetRequestsCarryNoBody(t *testing.T) {
	var length int64 = -2
	transport := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		length = int64(len(raw))
	})

	err := transport.Do(context.Background(), authclient.Request{
		Method: http.MethodGet,
		Path:   "/consent",
		Body:   map[string]string{"ignored": "yes"},
	}, nil)
	require.NoError(t, err)
	assert.Zero(t, length)
}

func TestTransport_ErrorBodies(t *testing.T) {
	cases := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantCode    string
		wantCat     goerrors.Category
	}{
		{
			name:        "message and code",
			status:      http.StatusBadRequest,
			body:        `{"message":"Invite expired","code":"TOKEN_EXPIRED"}`,
			wantMessage: "Invite expired",
			wantCode:    "TOKEN_EXPIRED",
			wantCat:     goerrors.CategoryExternal,
		},
		{
			name:        "error field",
			status:      http.StatusForbidden,
			body:        `{"error":"Access denied"}`,
			wantMessage: "Access denied",
			wantCode:    authclient.TextCodeUnknown,
			wantCat:     goerrors.CategoryExternal,
		},
		{
			name:        "numeric code is ignored",
			status:      http.StatusNotFound,
			body:        `{"message":"Not found","code":404}`,
			wantMessage: "Not found",
			wantCode:    authclient.TextCodeUnknown,
			wantCat:     goerrors.CategoryExternal,
		},
		{
			name:        "not json",
			status:      http.StatusBadGateway,
			body:        `<html>bad gateway</html>`,
			wantMessage: "Request failed",
			wantCode:    authclient.TextCodeUnknown,
			wantCat:     goerrors.CategoryExternal,
		},
		{
			name:        "unauthorized",
			status:      http.StatusUnauthorized,
			body:        `{"message":"Unauthorized"}`,
			wantMessage: "Unauthorized",
			wantCode:    authclient.TextCodeUnknown,
			wantCat:     goerrors.CategoryAuth,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			transport := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}, authclient.WithTransportRequestID(func() string { return "req-9" }))

			err := transport.Do(context.Background(), authclient.Request{Path: "/anything"}, nil)
			require.Error(t, err)

			var rich *goerrors.Error
			require.ErrorAs(t, err, &rich)
			assert.Equal(t, tc.status, rich.Code)
			assert.Equal(t, tc.wantMessage, rich.Message)
			assert.Equal(t, tc.wantCode, rich.TextCode)
			assert.Equal(t, tc.wantCat, rich.Category)
			assert.Equal(t, "req-9", rich.RequestID)
		})
	}
}

func TestTransport_UnauthorizedCallbackReceivesAttachedCredential(t *testing.T) {
	transport := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	transport.SetCredentialSource(func() string { return "tok-abc" })

	var seen []string
	transport.OnUnauthorized(func(_ context.Context, credential string) {
		seen = append(seen, credential)
	})

	ctx := context.Background()
	require.Error(t, transport.Do(ctx, authclient.Request{Path: "/auth/me", WithCredential: true}, nil))
	require.Error(t, transport.Do(ctx, authclient.Request{Path: "/auth/login", Method: http.MethodPost}, nil))

	assert.Equal(t, []string{"tok-abc", ""}, seen)
}

func TestTransport_InvalidSuccessBody(t *testing.T) {
	transport := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"items": [`)
	})

	var out map[string]any
	err := transport.Do(context.Background(), authclient.Request{Path: "/stacks"}, &out)
	require.Error(t, err)

	var rich *goerrors.Error
	require.ErrorAs(t, err, &rich)
	assert.Equal(t, authclient.TextCodeInvalidResponse, rich.TextCode)
}

func TestTransport_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	transport, err := authclient.NewTransport(authclient.DefaultConfig(server.URL),
		authclient.WithTransportLogger(zaplog.New(nil)))
	require.NoError(t, err)
	server.Close()

	err = transport.Do(context.Background(), authclient.Request{Path: "/auth/me"}, nil)
	require.Error(t, err)

	var rich *goerrors.Error
	require.ErrorAs(t, err, &rich)
	assert.Equal(t, authclient.TextCodeNetwork, rich.TextCode)
	assert.NotEmpty(t, rich.RequestID)
}

func TestTransport_RawKeepsMarkup(t *testing.T) {
	var accept string
	transport := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		accept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, `<div class="support-cards"></div>`)
	})

	raw, err := transport.Raw(context.Background(), authclient.Request{Path: "/students/1/support-cards"})
	require.NoError(t, err)
	assert.Equal(t, "*/*", accept)
	assert.Equal(t, http.StatusOK, raw.Status)
	assert.Contains(t, raw.ContentType, "text/html")
	assert.Equal(t, `<div class="support-cards"></div>`, string(raw.Body))
}

func TestTransport_BaseURLTrimsTrailingSlash(t *testing.T) {
	transport, err := authclient.NewTransport(authclient.DefaultConfig("https://service.test/api:auth/"))
	require.NoError(t, err)
	assert.Equal(t, "https://service.test/api:auth", transport.BaseURL())
}
