package authclient_test

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-auth-client/adapters/zaplog"
	"github.com/goliatone/go-auth-client/internal/servicetest"
	"github.com/goliatone/go-auth-client/storage/memory"
)

// eventRecorder implements authclient.EventSink
type eventRecorder struct {
	mu     sync.Mutex
	events []authclient.Event
}

func (r *eventRecorder) Emit(_ context.Context, ev authclient.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *eventRecorder) Types() []authclient.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]authclient.EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

func (r *eventRecorder) Last() authclient.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return authclient.Event{}
	}
	return r.events[len(r.events)-1]
}

// recordingNavigator implements authclient.Navigator
type recordingNavigator struct {
	mu      sync.Mutex
	current string
	visited []string
}

func (n *recordingNavigator) CurrentURL() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

func (n *recordingNavigator) Navigate(target string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.visited = append(n.visited, target)
	n.current = target
}

func (n *recordingNavigator) Visited() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.visited...)
}

// uiRecorder collects every snapshot handed to the page synchronizer
type uiRecorder struct {
	mu        sync.Mutex
	snapshots []authclient.Snapshot
}

func (u *uiRecorder) Sync(_ context.Context, snap authclient.Snapshot) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.snapshots = append(u.snapshots, snap)
}

func (u *uiRecorder) Last() authclient.Snapshot {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.snapshots) == 0 {
		return authclient.Snapshot{}
	}
	return u.snapshots[len(u.snapshots)-1]
}

func (u *uiRecorder) Count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.snapshots)
}

// hookTransport runs before once, ahead of the first request whose path
// ends with suffix.
type hookTransport struct {
	base   http.RoundTripper
	suffix string
	before func()
	once   sync.Once
}

func (h *hookTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if strings.HasSuffix(req.URL.Path, h.suffix) {
		h.once.Do(h.before)
	}
	return h.base.RoundTrip(req)
}

type fixture struct {
	service   *servicetest.Service
	durable   *memory.Backend
	ephemeral *memory.Backend
	events    *eventRecorder
	nav       *recordingNavigator
	ui        *uiRecorder
}

func newFixture(opts ...servicetest.Option) *fixture {
	return &fixture{
		service:   servicetest.New(opts...),
		durable:   memory.New(),
		ephemeral: memory.New(),
		events:    &eventRecorder{},
		nav:       &recordingNavigator{current: "/"},
		ui:        &uiRecorder{},
	}
}

func (f *fixture) config() authclient.Config {
	return authclient.DefaultConfig(servicetest.BaseURL)
}

func (f *fixture) controller(t *testing.T, opts ...authclient.Option) *authclient.Controller {
	t.Helper()
	return f.controllerWith(t, f.config(), opts...)
}

func (f *fixture) controllerWith(t *testing.T, cfg authclient.Config, opts ...authclient.Option) *authclient.Controller {
	t.Helper()
	base := []authclient.Option{
		authclient.WithHTTPClient(f.service.HTTPClient()),
		authclient.WithDurableBackend(f.durable),
		authclient.WithEphemeralBackend(f.ephemeral),
		authclient.WithEventSink(f.events),
		authclient.WithNavigator(f.nav),
		authclient.WithUISyncer(f.ui),
		authclient.WithLogger(zaplog.New(nil)),
	}
	ctrl, err := authclient.New(cfg, append(base, opts...)...)
	require.NoError(t, err)
	return ctrl
}

func (f *fixture) student(email string) authclient.User {
	return f.service.AddUser(authclient.User{
		FirstName: "Ana",
		LastName:  "Lima",
		Email:     email,
		Role:      authclient.RoleStudent,
	}, "correct-horse", authclient.PermissionSet{
		authclient.PermissionViewOwnLoans:       true,
		authclient.PermissionCreateSupportCards: true,
	})
}
