// Package signup drives an invite based signup page on top of the session
// controller. A Flow validates the invitation token from the page URL,
// checks the form, submits it and schedules the post signup redirect. The
// page itself is reached through the View interface, Page is the HTML
// implementation.
package signup

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	authclient "github.com/goliatone/go-auth-client"
)

// State is a step of the signup flow
type State string

const (
	StateIdle             State = "idle"
	StateValidatingInvite State = "validating_invite"
	StateInviteReady      State = "invite_ready"
	StateInviteInvalid    State = "invite_invalid"
	StateSubmitting       State = "submitting"
	StateSuccess          State = "success"
	StateFailed           State = "failed"
	StateRedirected       State = "redirected"
)

var transitions = map[State][]State{
	StateIdle:             {StateValidatingInvite, StateInviteReady, StateInviteInvalid, StateRedirected},
	StateValidatingInvite: {StateInviteReady, StateInviteInvalid},
	StateInviteReady:      {StateSubmitting},
	StateSubmitting:       {StateSuccess, StateFailed},
	StateFailed:           {StateSubmitting},
	StateSuccess:          {StateRedirected},
}

const (
	TextCodeNotReady = "SIGNUP_NOT_READY"

	msgInviteRequired  = "An invite link is required to sign up. Please contact support for an invitation."
	msgInviteInvalid   = "This invite link is invalid or expired."
	msgTokenRequired   = "An invite token is required to sign up"
	msgSignupFailed    = "Signup failed. Please try again."
	msgUnexpectedError = "An unexpected error occurred. Please try again."
)

// Session is the part of the controller a signup page needs.
// *authclient.Controller satisfies it.
type Session interface {
	Initialize(ctx context.Context) authclient.Snapshot
	IsAuthenticated() bool
	DashboardURL() string
	ValidateInvite(ctx context.Context, token string) authclient.Result[authclient.InviteValidation]
	Signup(ctx context.Context, inviteToken string, fields authclient.SignupFields) authclient.Result[*authclient.User]
	SignupWithoutInvite(ctx context.Context, fields authclient.SignupFields) authclient.Result[*authclient.User]
	RedirectURL(ctx context.Context) string
	ClearRedirectURL(ctx context.Context)
}

// Scheduler runs fn once after d
type Scheduler func(d time.Duration, fn func())

func afterFunc(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}

// Flow is a page scoped signup controller
type Flow struct {
	session  Session
	cfg      authclient.SignupConfig
	view     View
	events   authclient.EventSink
	nav      authclient.Navigator
	logger   authclient.Logger
	schedule Scheduler

	mu     sync.Mutex
	state  State
	token  string
	invite *authclient.InviteValidation
}

// Option customizes a Flow
type Option func(*Flow)

// WithView attaches the page the flow renders into
func WithView(v View) Option {
	return func(f *Flow) {
		f.view = normalizeView(v)
	}
}

func WithEventSink(sink authclient.EventSink) Option {
	return func(f *Flow) {
		f.events = sink
	}
}

func WithNavigator(nav authclient.Navigator) Option {
	return func(f *Flow) {
		if nav != nil {
			f.nav = nav
		}
	}
}

func WithLogger(logger authclient.Logger) Option {
	return func(f *Flow) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithScheduler replaces time.AfterFunc for the success redirect
func WithScheduler(s Scheduler) Option {
	return func(f *Flow) {
		if s != nil {
			f.schedule = s
		}
	}
}

// New returns a flow in StateIdle
func New(session Session, cfg authclient.SignupConfig, opts ...Option) *Flow {
	f := &Flow{
		session:  session,
		cfg:      cfg,
		view:     noopView{},
		nav:      authclient.NopNavigator{},
		logger:   authclient.NopLogger{},
		schedule: afterFunc,
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.cfg.MinPasswordLength <= 0 {
		f.cfg.MinPasswordLength = 8
	}
	return f
}

// State returns the current step
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Token returns the invite token read by Start
func (f *Flow) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

// Invite returns the validated invitation, nil when there is none
func (f *Flow) Invite() *authclient.InviteValidation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.invite
}

// Start reads token and email from the page query and validates the
// invitation. Visitors who are already signed in go to their dashboard.
func (f *Flow) Start(ctx context.Context, query url.Values) State {
	f.session.Initialize(ctx)

	if f.session.IsAuthenticated() {
		f.moveTo(StateRedirected)
		f.nav.Navigate(f.session.DashboardURL())
		return StateRedirected
	}

	token := strings.TrimSpace(query.Get("token"))
	f.mu.Lock()
	f.token = token
	f.mu.Unlock()

	if email := strings.TrimSpace(query.Get("email")); email != "" {
		f.view.PrefillEmail(email)
	}

	if token == "" {
		if !f.cfg.AllowWithoutInvite {
			return f.rejectInvite(ctx, msgInviteRequired)
		}
		f.moveTo(StateInviteReady)
		return StateInviteReady
	}

	f.moveTo(StateValidatingInvite)
	f.view.Loading(true)

	res := f.session.ValidateInvite(ctx, token)
	if !res.IsOk() {
		f.logger.Info("invite validation failed: %v", res.Failure())
		return f.rejectInvite(ctx, nonEmpty(res.Failure().Message, msgInviteInvalid))
	}

	validation := res.Value()
	if !validation.Valid {
		return f.rejectInvite(ctx, nonEmpty(validation.Message, msgInviteInvalid))
	}

	f.mu.Lock()
	f.invite = &validation
	f.mu.Unlock()

	authclient.EmitEvent(ctx, f.events, f.logger, authclient.Event{
		Type:      authclient.EventInviteValidated,
		Invite:    validation.Invite,
		InvitedBy: validation.InvitedBy,
	})
	f.view.ShowInvite(validation)
	f.view.Loading(false)
	f.moveTo(StateInviteReady)
	return StateInviteReady
}

// Submit validates form and, when it passes, signs the visitor up. A form
// rule violation is returned as a validation Failure and never reaches
// the session.
func (f *Flow) Submit(ctx context.Context, form Form) authclient.Result[*authclient.User] {
	f.mu.Lock()
	state, token, invite := f.state, f.token, f.invite
	f.mu.Unlock()

	if state != StateInviteReady && state != StateFailed {
		return authclient.Fail[*authclient.User](&authclient.Failure{
			Kind:    authclient.KindValidation,
			Message: fmt.Sprintf("signup form is not accepting submissions in state %s", state),
			Code:    TextCodeNotReady,
		})
	}

	f.view.ClearError()

	if invite != nil && invite.Invite != nil && invite.Invite.Email != "" {
		form.Email = invite.Invite.Email
	}

	fields, failure := form.Validate(f.cfg.MinPasswordLength)
	if failure != nil {
		f.showError(ctx, failure.Message, firstField(failure))
		return authclient.Fail[*authclient.User](failure)
	}

	if token == "" && !f.cfg.AllowWithoutInvite {
		f.showError(ctx, msgTokenRequired, "")
		return authclient.Fail[*authclient.User](&authclient.Failure{
			Kind:    authclient.KindConfiguration,
			Message: msgTokenRequired,
			Code:    authclient.TextCodeSignupDisabled,
		})
	}

	if err := f.transition(StateSubmitting); err != nil {
		return authclient.Fail[*authclient.User](&authclient.Failure{
			Kind:    authclient.KindValidation,
			Message: err.Error(),
			Code:    TextCodeNotReady,
		})
	}
	f.view.Loading(true)

	var res authclient.Result[*authclient.User]
	if token != "" {
		res = f.session.Signup(ctx, token, fields)
	} else {
		res = f.session.SignupWithoutInvite(ctx, fields)
	}

	if !res.IsOk() {
		f.moveTo(StateFailed)
		f.showError(ctx, MessageFor(res.Failure()), "")
		f.view.Loading(false)
		return res
	}

	f.moveTo(StateSuccess)
	f.view.ShowSuccess()
	authclient.EmitEvent(ctx, f.events, f.logger, authclient.Event{
		Type:          authclient.EventSignupSuccess,
		Authenticated: true,
		User:          res.Value(),
	})

	redirectCtx := context.WithoutCancel(ctx)
	f.schedule(f.cfg.RedirectDelay, func() {
		target := f.session.RedirectURL(redirectCtx)
		f.session.ClearRedirectURL(redirectCtx)
		f.moveTo(StateRedirected)
		f.nav.Navigate(target)
	})
	return res
}

func (f *Flow) rejectInvite(ctx context.Context, message string) State {
	f.view.ShowInvalidInvite(message)
	authclient.EmitEvent(ctx, f.events, f.logger, authclient.Event{
		Type:    authclient.EventInviteInvalid,
		Message: message,
	})
	f.moveTo(StateInviteInvalid)
	return StateInviteInvalid
}

func (f *Flow) showError(ctx context.Context, message, field string) {
	f.view.ShowError(message, field)
	authclient.EmitEvent(ctx, f.events, f.logger, authclient.Event{
		Type:    authclient.EventSignupError,
		Message: message,
	})
}

func (f *Flow) transition(to State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !slices.Contains(transitions[f.state], to) {
		return fmt.Errorf("signup: cannot move from %s to %s", f.state, to)
	}
	f.state = to
	return nil
}

// moveTo is transition for edges the flow itself guarantees
func (f *Flow) moveTo(to State) {
	if err := f.transition(to); err != nil {
		f.logger.Error("%v", err)
	}
}

var codeMessages = map[string]string{
	"INVALID_TOKEN":  "This invite link is invalid or expired.",
	"TOKEN_USED":     "This invite has already been used.",
	"TOKEN_EXPIRED":  "This invite has expired. Please request a new one.",
	"EMAIL_MISMATCH": "The email you entered doesn't match the invite.",
	"USER_EXISTS":    "An account with this email already exists. Try signing in instead.",
}

// MessageFor turns a signup failure into the text shown on the page.
// Known invite codes get fixed wording, anything else falls back to the
// server message.
func MessageFor(f *authclient.Failure) string {
	if f == nil {
		return msgUnexpectedError
	}
	if msg, ok := codeMessages[f.Code]; ok {
		return msg
	}
	return nonEmpty(f.Message, msgSignupFailed)
}

// firstField names the field a form failure is about. Form failures
// carry exactly one.
func firstField(f *authclient.Failure) string {
	var field string
	for name := range f.Fields {
		field = name
	}
	return field
}

func nonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
