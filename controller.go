package authclient

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/goliatone/go-auth-client/storage/memory"
)

// Controller owns the session record {credential, user, permissions,
// ready} and is the only writer of its durable mirror. Network calls
// never run while the session lock is held.
type Controller struct {
	cfg       Config
	transport *Transport
	durable   *Store
	ephemeral *Store
	events    EventSink
	nav       Navigator
	logger    Logger
	now       func() time.Time

	durableBackend   Backend
	ephemeralBackend Backend
	httpClient       *http.Client
	requestID        func() string

	mu          sync.RWMutex
	ui          UISyncer
	lc          *lifecycle
	credential  string
	user        *User
	permissions PermissionSet
	ready       bool
	initDone    chan struct{}

	resourcesOnce sync.Once
	resources     *Resources
}

// Option customizes a Controller
type Option func(*Controller)

// WithDurableBackend sets where credential, user and permissions persist
func WithDurableBackend(b Backend) Option {
	return func(c *Controller) {
		if b != nil {
			c.durableBackend = b
		}
	}
}

// WithEphemeralBackend sets the per-tab scope used for the redirect target
func WithEphemeralBackend(b Backend) Option {
	return func(c *Controller) {
		if b != nil {
			c.ephemeralBackend = b
		}
	}
}

// WithUISyncer sets the page synchronizer
func WithUISyncer(s UISyncer) Option {
	return func(c *Controller) {
		c.ui = normalizeUISyncer(s)
	}
}

// WithEventSink sets where lifecycle notifications go
func WithEventSink(sink EventSink) Option {
	return func(c *Controller) {
		c.events = normalizeEventSink(sink)
	}
}

// WithNavigator sets the page navigator used by Logout
func WithNavigator(nav Navigator) Option {
	return func(c *Controller) {
		if nav != nil {
			c.nav = nav
		}
	}
}

// WithLogger sets the logger shared by the controller, its stores and transport
func WithLogger(logger Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient replaces the transport's http.Client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Controller) {
		c.httpClient = client
	}
}

// WithRequestIDGenerator overrides X-Request-ID generation
func WithRequestIDGenerator(fn func() string) Option {
	return func(c *Controller) {
		c.requestID = fn
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) Option {
	return func(c *Controller) {
		if clock != nil {
			c.now = clock
		}
	}
}

// New builds a controller in StateUninitialized. It fails fast with a
// configuration failure when cfg is not usable. Without backends the
// session lives in memory only.
func New(cfg Config, opts ...Option) (*Controller, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Controller{
		cfg:    cfg,
		events: noopEventSink{},
		ui:     noopUISyncer{},
		nav:    NopNavigator{},
		logger: defLogger{},
		now:    time.Now,
		lc:     newLifecycle(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if c.durableBackend == nil {
		c.durableBackend = memory.New()
	}
	if c.ephemeralBackend == nil {
		c.ephemeralBackend = memory.New()
	}
	c.durable = NewStore(c.durableBackend, WithStoreLogger(c.logger), WithStoreScope("durable"))
	c.ephemeral = NewStore(c.ephemeralBackend, WithStoreLogger(c.logger), WithStoreScope("ephemeral"))

	transport, err := NewTransport(c.cfg,
		WithTransportHTTPClient(c.httpClient),
		WithTransportLogger(c.logger),
		WithTransportRequestID(c.requestID),
	)
	if err != nil {
		return nil, err
	}
	transport.SetCredentialSource(c.Credential)
	transport.OnUnauthorized(c.invalidate)
	c.transport = transport

	return c, nil
}

// SetUISyncer swaps the synchronizer, for hosts that build it after the
// controller.
func (c *Controller) SetUISyncer(s UISyncer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ui = normalizeUISyncer(s)
}

// Initialize hydrates the session from durable storage and confirms it
// with the remote service. Only the first call does work, later and
// concurrent callers wait for it and get the same snapshot.
//
// A caller whose ctx ends while another call is still initializing gets
// the snapshot as it stands, with Ready false. Check Ready, or ctx.Err,
// before relying on the session.
func (c *Controller) Initialize(ctx context.Context) Snapshot {
	c.mu.Lock()
	if c.lc.settled() {
		snapshot := c.snapshotLocked()
		c.mu.Unlock()
		return snapshot
	}
	if c.lc.state() == StateInitializing {
		done := c.initDone
		c.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
		}
		return c.Snapshot()
	}
	_ = c.lc.transition(StateInitializing)
	done := make(chan struct{})
	c.initDone = done
	c.mu.Unlock()

	credential := c.hydrate(ctx)
	if credential != "" {
		profile, err := c.fetchProfile(ctx)
		if err != nil {
			c.logger.Info("stored session rejected: %v", err)
			c.invalidate(ctx, credential)
		} else {
			c.adopt(ctx, credential, profile)
		}
	}

	c.mu.Lock()
	c.ready = true
	target := StateAnonymous
	if c.credential != "" {
		target = StateAuthenticated
	}
	if err := c.lc.transition(target); err != nil {
		c.logger.Error("initialize: %v", err)
	}
	snapshot := c.snapshotLocked()
	c.mu.Unlock()
	close(done)

	c.syncUI(ctx, snapshot)
	c.emit(ctx, Event{Type: EventReady, Authenticated: snapshot.Authenticated(), User: snapshot.User})
	return snapshot
}

// hydrate loads the stored session. A user without a credential is
// discarded so the record never holds one without the other.
func (c *Controller) hydrate(ctx context.Context) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	credential, _ := Load[string](ctx, c.durable, KeyCredential)
	user, _ := Load[*User](ctx, c.durable, KeyUser)
	permissions, _ := Load[PermissionSet](ctx, c.durable, KeyPermissions)

	if credential == "" {
		if user != nil || permissions != nil {
			c.durable.Clear(ctx, sessionKeys...)
		}
		return ""
	}

	c.credential = credential
	c.user = user
	c.permissions = permissions
	return credential
}

// Login exchanges credentials for a session
func (c *Controller) Login(ctx context.Context, email, password string) Result[*User] {
	if snap := c.Initialize(ctx); !snap.Ready {
		return Fail[*User](failureFrom(ctx.Err()))
	}

	var resp authResponse
	err := c.transport.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Body:   loginRequest{Email: email, Password: password},
	}, &resp)
	if err != nil {
		c.logger.Info("login failed: %v", err)
		return Fail[*User](failureFrom(err))
	}
	return c.establish(ctx, "/auth/login", resp, EventLogin)
}

// Signup exchanges an invite token and profile fields for a new account
func (c *Controller) Signup(ctx context.Context, inviteToken string, fields SignupFields) Result[*User] {
	return c.signup(ctx, "/auth/signup", signupRequest{InviteToken: inviteToken, SignupFields: fields})
}

// SignupWithoutInvite creates an account with no invitation. It is only
// available when Config.Signup.AllowWithoutInvite is set.
func (c *Controller) SignupWithoutInvite(ctx context.Context, fields SignupFields) Result[*User] {
	if !c.cfg.Signup.AllowWithoutInvite {
		return Fail[*User](failureFrom(signupDisabledError()))
	}
	return c.signup(ctx, "/auth/signup-simple", signupRequest{SignupFields: fields})
}

func (c *Controller) signup(ctx context.Context, path string, body signupRequest) Result[*User] {
	if snap := c.Initialize(ctx); !snap.Ready {
		return Fail[*User](failureFrom(ctx.Err()))
	}

	var resp authResponse
	err := c.transport.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   path,
		Body:   body,
	}, &resp)
	if err != nil {
		c.logger.Info("signup failed: %v", err)
		return Fail[*User](failureFrom(err))
	}
	return c.establish(ctx, path, resp, EventSignup)
}

// establish runs the post-authentication sequence: persist credential,
// fetch the authoritative profile, persist it, sync the page, emit.
func (c *Controller) establish(ctx context.Context, path string, resp authResponse, event EventType) Result[*User] {
	if resp.AuthToken == "" || resp.User == nil {
		return Fail[*User](failureFrom(invalidResponseError(path, nil)))
	}

	c.mu.Lock()
	c.credential = resp.AuthToken
	c.user = resp.User.clone()
	c.permissions = nil
	if err := c.lc.transition(StateAuthenticated); err != nil {
		c.logger.Error("%s: %v", path, err)
	}
	c.durable.Set(ctx, KeyCredential, resp.AuthToken)
	c.durable.Set(ctx, KeyUser, resp.User)
	c.durable.Clear(ctx, KeyPermissions)
	c.mu.Unlock()

	profile, err := c.fetchProfile(ctx)
	if err != nil {
		c.logger.Warn("%s: unable to load profile: %v", path, err)
		c.invalidate(ctx, resp.AuthToken)
		return Fail[*User](failureFrom(err))
	}

	snapshot, ok := c.adopt(ctx, resp.AuthToken, profile)
	if !ok {
		return Fail[*User](failureFrom(notAuthenticatedError(path)))
	}

	c.syncUI(ctx, snapshot)
	c.emit(ctx, Event{Type: event, Authenticated: true, User: snapshot.User})
	return Ok(snapshot.User)
}

// Logout asks the remote service to drop the session, ignoring failures,
// then clears local state, syncs the page, emits and navigates home.
func (c *Controller) Logout(ctx context.Context) {
	if c.Credential() != "" {
		err := c.transport.Do(ctx, Request{
			Method:         http.MethodPost,
			Path:           "/auth/logout",
			WithCredential: true,
		}, nil)
		if err != nil {
			c.logger.Debug("remote logout failed: %v", err)
		}
	}

	c.mu.Lock()
	c.clearLocked(ctx)
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.syncUI(ctx, snapshot)
	c.emit(ctx, Event{Type: EventLogout})
	c.nav.Navigate(c.cfg.SiteRoot)
}

// CurrentUser returns the cached profile, or re-fetches it when force is set
func (c *Controller) CurrentUser(ctx context.Context, force bool) Result[Profile] {
	credential := c.Credential()
	if credential == "" {
		return Fail[Profile](failureFrom(notAuthenticatedError("current-user")))
	}
	if !force {
		snap := c.Snapshot()
		if snap.User != nil {
			return Ok(Profile{User: snap.User, Permissions: snap.Permissions})
		}
	}

	profile, err := c.fetchProfile(ctx)
	if err != nil {
		return Fail[Profile](failureFrom(err))
	}
	snapshot, ok := c.adopt(ctx, credential, profile)
	if !ok {
		return Fail[Profile](failureFrom(notAuthenticatedError("current-user")))
	}
	c.syncUI(ctx, snapshot)
	return Ok(Profile{User: snapshot.User, Permissions: snapshot.Permissions})
}

// ForgotPassword asks the remote service to send a reset email
func (c *Controller) ForgotPassword(ctx context.Context, email string) Result[string] {
	if err := validateEmail("email", email); err != nil {
		return Fail[string](failureFrom(err))
	}
	var resp messageResponse
	err := c.transport.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/auth/forgot-password",
		Body:   map[string]string{"email": email},
	}, &resp)
	return resultOf(resp.Message, err)
}

// ValidateInvite looks up an invitation token
func (c *Controller) ValidateInvite(ctx context.Context, token string) Result[InviteValidation] {
	return c.Resources().ValidateInvite(ctx, token)
}

// CreateInvite issues an invitation from the current user
func (c *Controller) CreateInvite(ctx context.Context, req InviteRequest) Result[*Invite] {
	return c.Resources().CreateInvite(ctx, req)
}

// RememberRedirect stores where to go after login
func (c *Controller) RememberRedirect(ctx context.Context, target string) {
	if target == "" {
		return
	}
	c.ephemeral.Set(ctx, KeyRedirect, target)
}

// RedirectURL returns the remembered target, or the dashboard
func (c *Controller) RedirectURL(ctx context.Context) string {
	if target, ok := Load[string](ctx, c.ephemeral, KeyRedirect); ok && target != "" {
		return target
	}
	return c.DashboardURL()
}

// ClearRedirectURL drops the remembered target
func (c *Controller) ClearRedirectURL(ctx context.Context) {
	c.ephemeral.Clear(ctx, KeyRedirect)
}

// Resources returns the remote resource facade bound to this session
func (c *Controller) Resources() *Resources {
	c.resourcesOnce.Do(func() {
		c.resources = NewResources(c)
	})
	return c.resources
}

func (c *Controller) Config() Config {
	return c.cfg
}

func (c *Controller) Transport() *Transport {
	return c.transport
}

func (c *Controller) Logger() Logger {
	return c.logger
}

// Snapshot returns a copy of the session record
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

func (c *Controller) State() SessionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lc.state()
}

func (c *Controller) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

func (c *Controller) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user != nil
}

func (c *Controller) User() *User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user.clone()
}

func (c *Controller) Credential() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.credential
}

func (c *Controller) Permissions() PermissionSet {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.permissions.Clone()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:       c.lc.state(),
		Ready:       c.ready,
		Credential:  c.credential,
		User:        c.user.clone(),
		Permissions: c.permissions.Clone(),
	}
}

// adopt stores an authoritative profile if credential is still the
// active one. A session replaced or cleared meanwhile wins.
func (c *Controller) adopt(ctx context.Context, credential string, profile Profile) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.credential != credential {
		return Snapshot{}, false
	}
	c.user = profile.User.clone()
	c.permissions = profile.Permissions.Clone()
	c.durable.Set(ctx, KeyUser, profile.User)
	c.durable.Set(ctx, KeyPermissions, profile.Permissions)
	return c.snapshotLocked(), true
}

// invalidate is the 401 callback. It only tears down the session whose
// credential was rejected, so a late 401 for an older session or for an
// anonymous request leaves the current one alone. Repeated calls are no-ops.
func (c *Controller) invalidate(ctx context.Context, credential string) {
	c.mu.Lock()
	if credential == "" || c.credential != credential {
		c.mu.Unlock()
		return
	}
	c.clearLocked(ctx)
	syncUI := c.ready
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.logger.Info("session invalidated by remote service")
	if syncUI {
		c.syncUI(ctx, snapshot)
	}
}

func (c *Controller) clearLocked(ctx context.Context) {
	c.credential = ""
	c.user = nil
	c.permissions = nil
	c.durable.Clear(ctx, sessionKeys...)
	if c.lc.state() == StateAuthenticated {
		_ = c.lc.transition(StateAnonymous)
	}
}

func (c *Controller) fetchProfile(ctx context.Context) (Profile, error) {
	var raw json.RawMessage
	err := c.transport.Do(ctx, Request{
		Method:         http.MethodGet,
		Path:           "/auth/me",
		WithCredential: true,
	}, &raw)
	if err != nil {
		return Profile{}, err
	}
	return decodeProfile(raw)
}

// decodeProfile accepts {user, permissions} and a bare user record.
func decodeProfile(raw json.RawMessage) (Profile, error) {
	var profile Profile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return Profile{}, invalidResponseError("/auth/me", err)
	}
	if profile.User == nil {
		var user User
		if err := json.Unmarshal(raw, &user); err == nil && (user.ID != 0 || user.Email != "") {
			profile.User = &user
		}
	}
	if profile.User == nil {
		return Profile{}, invalidResponseError("/auth/me", nil)
	}
	return profile, nil
}

func (c *Controller) syncUI(ctx context.Context, snapshot Snapshot) {
	c.mu.RLock()
	ui := c.ui
	c.mu.RUnlock()
	ui.Sync(ctx, snapshot)
}

func (c *Controller) emit(ctx context.Context, event Event) {
	event.OccurredAt = c.now()
	EmitEvent(ctx, c.events, c.logger, event)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupRequest struct {
	InviteToken string `json:"invite_token,omitempty"`
	SignupFields
}

type authResponse struct {
	AuthToken string `json:"authToken"`
	User      *User  `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}
