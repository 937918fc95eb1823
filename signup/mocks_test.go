package signup_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-auth-client/dom"
	"github.com/goliatone/go-auth-client/signup"
)

// MockSession implements signup.Session
type MockSession struct {
	mock.Mock
}

func (m *MockSession) Initialize(ctx context.Context) authclient.Snapshot {
	args := m.Called(ctx)
	return args.Get(0).(authclient.Snapshot)
}

func (m *MockSession) IsAuthenticated() bool {
	return m.Called().Bool(0)
}

func (m *MockSession) DashboardURL() string {
	return m.Called().String(0)
}

func (m *MockSession) ValidateInvite(ctx context.Context, token string) authclient.Result[authclient.InviteValidation] {
	args := m.Called(ctx, token)
	return args.Get(0).(authclient.Result[authclient.InviteValidation])
}

func (m *MockSession) Signup(ctx context.Context, inviteToken string, fields authclient.SignupFields) authclient.Result[*authclient.User] {
	args := m.Called(ctx, inviteToken, fields)
	return args.Get(0).(authclient.Result[*authclient.User])
}

func (m *MockSession) SignupWithoutInvite(ctx context.Context, fields authclient.SignupFields) authclient.Result[*authclient.User] {
	args := m.Called(ctx, fields)
	return args.Get(0).(authclient.Result[*authclient.User])
}

func (m *MockSession) RedirectURL(ctx context.Context) string {
	return m.Called(ctx).String(0)
}

func (m *MockSession) ClearRedirectURL(ctx context.Context) {
	m.Called(ctx)
}

// anonymousSession is a MockSession for a visitor who is not signed in
func anonymousSession() *MockSession {
	m := &MockSession{}
	m.On("Initialize", mock.Anything).Return(authclient.Snapshot{State: authclient.StateAnonymous, Ready: true})
	m.On("IsAuthenticated").Return(false)
	return m
}

// MockNavigator records navigation
type MockNavigator struct {
	mu      sync.Mutex
	visited []string
}

func (n *MockNavigator) CurrentURL() string { return "/signup" }

func (n *MockNavigator) Navigate(target string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.visited = append(n.visited, target)
}

func (n *MockNavigator) Visited() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.visited...)
}

// MockEvents records emitted events
type MockEvents struct {
	mu     sync.Mutex
	events []authclient.Event
}

func (e *MockEvents) Emit(_ context.Context, event authclient.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return nil
}

func (e *MockEvents) Types() []authclient.EventType {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]authclient.EventType, 0, len(e.events))
	for _, ev := range e.events {
		out = append(out, ev.Type)
	}
	return out
}

// manualScheduler holds scheduled callbacks until Fire
type manualScheduler struct {
	delays []time.Duration
	fns    []func()
}

func (s *manualScheduler) Schedule(d time.Duration, fn func()) {
	s.delays = append(s.delays, d)
	s.fns = append(s.fns, fn)
}

func (s *manualScheduler) Fire() {
	for _, fn := range s.fns {
		fn()
	}
	s.fns = nil
}

const signupPage = `<!doctype html>
<html><body>
<div id="invalid-invite" class="hidden"><p id="invalid-invite-message"></p></div>
<div id="invite-info" class="hidden">
	Invited by <strong id="invited-by-name"></strong>
	<span id="invite-role"></span>
</div>
<div id="form-error" class="hidden"><span id="error-message"></span></div>
<div id="signup-loading" class="hidden">Creating your account</div>
<div id="signup-success" class="hidden">Welcome</div>
<form id="signup-form">
	<input id="first_name">
	<input id="last_name">
	<input id="email" type="email">
	<input id="password" type="password">
	<div class="password-strength"></div>
	<input id="password_confirm" type="password">
	<input id="phone">
	<input id="terms" type="checkbox" data-terms-required>
	<button id="signup-submit">Create Account</button>
</form>
</body></html>`

func newPage(t *testing.T) *signup.Page {
	t.Helper()
	doc, err := dom.ParseString(signupPage)
	require.NoError(t, err)
	return signup.NewPage(doc)
}

func validForm() signup.Form {
	return signup.Form{
		FirstName:       "Rosa",
		LastName:        "Lima",
		Email:           "rosa@example.com",
		Password:        "s3cret-Pass",
		PasswordConfirm: "s3cret-Pass",
		Phone:           "(202) 456-1111",
		TermsRequired:   true,
		TermsAccepted:   true,
	}
}

func shown(el *dom.Element) bool {
	return el != nil && !el.HasClass("hidden") && el.Style("display") != "none"
}
