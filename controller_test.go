package authclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-auth-client/internal/servicetest"
)

func TestNew_FailsFastWithoutAPIBaseURL(t *testing.T) {
	_, err := authclient.New(authclient.Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_API_URL")

	_, err = authclient.New(authclient.Config{APIBaseURL: "ftp://service.test"})
	require.Error(t, err)
}

func TestNew_AcceptsMinimalConfig(t *testing.T) {
	ctrl, err := authclient.New(authclient.Config{APIBaseURL: servicetest.BaseURL})
	require.NoError(t, err)
	assert.Equal(t, authclient.StateUninitialized, ctrl.State())

	ctrl, err = authclient.New(authclient.DefaultConfig("https://api.example.com"))
	require.NoError(t, err)
	assert.NotNil(t, ctrl)

	_, err = authclient.NewTransport(authclient.Config{APIBaseURL: servicetest.BaseURL})
	require.NoError(t, err)
}

func TestController_StartsUninitialized(t *testing.T) {
	f := newFixture()
	ctrl := f.controller(t)

	assert.Equal(t, authclient.StateUninitialized, ctrl.State())
	assert.False(t, ctrl.Ready())
	assert.False(t, ctrl.IsAuthenticated())
	assert.Zero(t, f.service.TotalCalls())
}

func TestController_InitializeAnonymous(t *testing.T) {
	f := newFixture()
	ctrl := f.controller(t)

	snap := ctrl.Initialize(context.Background())

	assert.True(t, snap.Ready)
	assert.Equal(t, authclient.StateAnonymous, snap.State)
	assert.False(t, snap.Authenticated())
	assert.Zero(t, f.service.Calls("GET /auth/me"))
	assert.Equal(t, []authclient.EventType{authclient.EventReady}, f.events.Types())
	assert.False(t, f.events.Last().Authenticated)
	assert.Equal(t, 1, f.ui.Count())
}

func TestController_LoginRoundTrip(t *testing.T) {
	f := newFixture()
	f.student("ana@example.com")
	ctrl := f.controller(t)
	ctx := context.Background()

	res := ctrl.Login(ctx, "ana@example.com", "correct-horse")
	require.True(t, res.IsOk(), "%v", res.Failure())

	user := res.Value()
	assert.Equal(t, "Ana Lima", user.FullName())
	assert.Equal(t, authclient.StateAuthenticated, ctrl.State())
	assert.True(t, ctrl.IsStudent())
	assert.True(t, ctrl.CanViewLoans())
	assert.True(t, ctrl.CanCreateSupportCards())
	assert.True(t, ctrl.CanInviteFamily())
	assert.False(t, ctrl.CanInviteStudents())
	assert.Equal(t, authclient.DashboardStudent, ctrl.DashboardURL())

	credential := ctrl.Credential()
	require.NotEmpty(t, credential)
	assert.Equal(t, "Bearer "+credential, f.service.LastHeaders("GET /auth/me").Get("Authorization"))
	assert.Empty(t, f.service.LastHeaders("POST /auth/login").Get("Authorization"))

	assert.ElementsMatch(t, []string{
		authclient.KeyCredential,
		authclient.KeyUser,
		authclient.KeyPermissions,
	}, f.durable.Keys())

	assert.Equal(t, []authclient.EventType{authclient.EventReady, authclient.EventLogin}, f.events.Types())
	assert.True(t, f.ui.Last().Authenticated())
}

func TestController_LoginRejected(t *testing.T) {
	f := newFixture()
	f.student("ana@example.com")
	ctrl := f.controller(t)

	res := ctrl.Login(context.Background(), "ana@example.com", "wrong")
	require.False(t, res.IsOk())

	failure := res.Failure()
	assert.Equal(t, authclient.KindAuth, failure.Kind)
	assert.Equal(t, http.StatusUnauthorized, failure.Status)
	assert.Equal(t, "Invalid Credentials.", failure.Message)
	assert.NotEmpty(t, failure.RequestID)

	assert.Equal(t, authclient.StateAnonymous, ctrl.State())
	assert.Empty(t, f.durable.Keys())
}

func TestController_LoginProfileFailureInvalidates(t *testing.T) {
	f := newFixture()
	f.student("ana@example.com")
	ctrl := f.controller(t)
	ctrl.Initialize(context.Background())

	f.service.FailNext("GET /auth/me", 1)
	res := ctrl.Login(context.Background(), "ana@example.com", "correct-horse")

	require.False(t, res.IsOk())
	assert.Equal(t, authclient.KindTransport, res.Failure().Kind)
	assert.Equal(t, http.StatusInternalServerError, res.Failure().Status)
	assert.False(t, ctrl.IsAuthenticated())
	assert.Empty(t, ctrl.Credential())
	assert.Empty(t, f.durable.Keys())
	assert.NotContains(t, f.events.Types(), authclient.EventLogin)
}

func TestController_RehydratesFromDurableStorage(t *testing.T) {
	f := newFixture()
	f.student("ana@example.com")
	ctx := context.Background()

	first := f.controller(t)
	require.True(t, first.Login(ctx, "ana@example.com", "correct-horse").IsOk())
	meCalls := f.service.Calls("GET /auth/me")

	second := f.controller(t)
	snap := second.Initialize(ctx)

	assert.Equal(t, authclient.StateAuthenticated, snap.State)
	assert.Equal(t, first.Credential(), snap.Credential)
	assert.Equal(t, "ana@example.com", snap.User.Email)
	assert.True(t, snap.Permissions.CanViewOwnLoans())
	assert.Equal(t, meCalls+1, f.service.Calls("GET /auth/me"))
}

func TestController_InitializeConcurrentCallsShareOneFetch(t *testing.T) {
	f := newFixture(servicetest.WithProfileDelay(30 * time.Millisecond))
	f.student("ana@example.com")
	ctx := context.Background()

	require.True(t, f.controller(t).Login(ctx, "ana@example.com", "correct-horse").IsOk())
	before := f.service.Calls("GET /auth/me")

	ctrl := f.controller(t)
	snaps := make([]authclient.Snapshot, 8)
	g, gctx := errgroup.WithContext(ctx)
	for i := range snaps {
		g.Go(func() error {
			snaps[i] = ctrl.Initialize(gctx)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, before+1, f.service.Calls("GET /auth/me"))
	for _, snap := range snaps {
		assert.True(t, snap.Ready)
		assert.Equal(t, authclient.StateAuthenticated, snap.State)
		assert.Equal(t, snaps[0].Credential, snap.Credential)
	}

	ctrl.Initialize(ctx)
	assert.Equal(t, before+1, f.service.Calls("GET /auth/me"))
}

func TestController_InitializeWaiterHonoursItsContext(t *testing.T) {
	f := newFixture()
	f.student("ana@example.com")
	ctx := context.Background()
	require.True(t, f.controller(t).Login(ctx, "ana@example.com", "correct-horse").IsOk())

	entered := make(chan struct{})
	release := make(chan struct{})
	hook := &hookTransport{
		base:   f.service,
		suffix: "/auth/me",
		before: func() {
			close(entered)
			<-release
		},
	}
	ctrl := f.controller(t, authclient.WithHTTPClient(&http.Client{Transport: hook}))

	first := make(chan authclient.Snapshot, 1)
	go func() { first <- ctrl.Initialize(ctx) }()
	<-entered

	waitCtx, cancel := context.WithCancel(ctx)
	cancel()
	waiting := ctrl.Initialize(waitCtx)
	assert.False(t, waiting.Ready)
	assert.Equal(t, authclient.StateInitializing, waiting.State)

	close(release)
	settled := <-first
	assert.True(t, settled.Ready)
	assert.Equal(t, authclient.StateAuthenticated, settled.State)

	// once settled, a cancelled context still gets the ready snapshot
	again := ctrl.Initialize(waitCtx)
	assert.True(t, again.Ready)
	assert.Equal(t, settled.Credential, again.Credential)
}

func TestController_InitializeDropsRejectedCredential(t *testing.T) {
	f := newFixture()
	f.student("ana@example.com")
	ctx := context.Background()

	first := f.controller(t)
	require.True(t, first.Login(ctx, "ana@example.com", "correct-horse").IsOk())
	f.service.Revoke(first.Credential())

	ctrl := f.controller(t)
	snap := ctrl.Initialize(ctx)

	assert.Equal(t, authclient.StateAnonymous, snap.State)
	assert.Nil(t, snap.User)
	assert.Empty(t, f.durable.Keys())
}

func TestController_InitializeDiscardsUserWithoutCredential(t *testing.T) {
	f := newFixture()
	raw, err := json.Marshal(authclient.User{ID: 7, Email: "ghost@example.com"})
	require.NoError(t, err)
	f.durable.Put(authclient.KeyUser, raw)

	ctrl := f.controller(t)
	snap := ctrl.Initialize(context.Background())

	assert.False(t, snap.Authenticated())
	assert.Empty(t, f.durable.Keys())
	assert.Zero(t, f.service.TotalCalls())
}

func TestController_InitializeToleratesCorruptStoredUser(t *testing.T) {
	f := newFixture()
	user := f.student("ana@example.com")
	token, err := json.Marshal(f.service.Token(user.ID, time.Hour))
	require.NoError(t, err)
	f.durable.Put(authclient.KeyCredential, token)
	f.durable.Put(authclient.KeyUser, []byte("{not json"))

	ctrl := f.controller(t)
	snap := ctrl.Initialize(context.Background())

	require.True(t, snap.Authenticated())
	assert.Equal(t, user.ID, snap.User.ID)
}

func TestController_UnauthorizedResponseClearsSession(t *testing.T) {
	f := newFixture()
	f.student("ana@example.com")
	ctrl := f.controller(t)
	ctx := context.Background()

	require.True(t, ctrl.Login(ctx, "ana@example.com", "correct-horse").IsOk())
	f.service.Revoke(ctrl.Credential())

	res := ctrl.Resources().Stacks(ctx)
	require.False(t, res.IsOk())
	assert.Equal(t, authclient.KindAuth, res.Failure().Kind)
	assert.Equal(t, http.StatusUnauthorized, res.Failure().Status)

	assert.False(t, ctrl.IsAuthenticated())
	assert.Empty(t, ctrl.Credential())
	assert.Equal(t, authclient.StateAnonymous, ctrl.State())
	assert.Empty(t, f.durable.Keys())
	assert.False(t, f.ui.Last().Authenticated())

	again := ctrl.Resources().Stacks(ctx)
	require.False(t, again.IsOk())
	assert.Equal(t, authclient.TextCodeNotAuthenticated, again.Failure().Code)
}

func TestController_StaleUnauthorizedIsIgnored(t *testing.T) {
	f := newFixture()
	f.student("ana@example.com")
	ctx := context.Background()

	var ctrl *authclient.Controller
	var stale string
	hook := &hookTransport{
		base:   f.service,
		suffix: "/stacks",
		before: func() {
			// a second login replaces the session while the request is in flight
			stale = ctrl.Credential()
			res := ctrl.Login(ctx, "ana@example.com", "correct-horse")
			require.True(t, res.IsOk())
			f.service.Revoke(stale)
		},
	}
	ctrl = f.controller(t, authclient.WithHTTPClient(&http.Client{Transport: hook}))
	require.True(t, ctrl.Login(ctx, "ana@example.com", "correct-horse").IsOk())

	res := ctrl.Resources().Stacks(ctx)
	require.False(t, res.IsOk())
	assert.Equal(t, http.StatusUnauthorized, res.Failure().Status)

	assert.True(t, ctrl.IsAuthenticated())
	assert.NotEqual(t, stale, ctrl.Credential())
	assert.Contains(t, f.durable.Keys(), authclient.KeyCredential)
}

func TestController_Logout(t *testing.T) {
	f := newFixture()
	f.student("ana@example.com")
	ctrl := f.controller(t)
	ctx := context.Background()

	require.True(t, ctrl.Login(ctx, "ana@example.com", "correct-horse").IsOk())
	credential := ctrl.Credential()

	ctrl.Logout(ctx)

	assert.Equal(t, 1, f.service.Calls("POST /auth/logout"))
	assert.Equal(t, "Bearer "+credential, f.service.LastHeaders("POST /auth/logout").Get("Authorization"))
	assert.False(t, ctrl.IsAuthenticated())
	assert.Equal(t, authclient.StateAnonymous, ctrl.State())
	assert.Empty(t, f.durable.Keys())
	assert.Equal(t, []string{"/"}, f.nav.Visited())
	assert.Equal(t, authclient.EventLogout, f.events.Last().Type)
}

func TestController_LogoutIgnoresRemoteFailure(t *testing.T) {
	f := newFixture()
	f.student("ana@example.com")
	ctrl := f.controller(t)
	ctx := context.Background()

	require.True(t, ctrl.Login(ctx, "ana@example.com", "correct-horse").IsOk())
	f.service.FailNext("POST /auth/logout", 1)

	ctrl.Logout(ctx)

	assert.False(t, ctrl.IsAuthenticated())
	assert.Empty(t, f.durable.Keys())
	assert.Equal(t, []string{"/"}, f.nav.Visited())
}

func TestController_SignupWithInvite(t *testing.T) {
	f := newFixture()
	f.service.AddInvite("tok-1", authclient.Invite{
		Email:   "rosa@example.com",
		Role:    authclient.RoleFamilyMember,
		SubRole: authclient.SubRoleMother,
	}, authclient.Inviter{FirstName: "Ana"})
	ctrl := f.controller(t)

	res := ctrl.Signup(context.Background(), "tok-1", authclient.SignupFields{
		Email:     "rosa@example.com",
		Password:  "longenough",
		FirstName: "Rosa",
		LastName:  "Lima",
	})
	require.True(t, res.IsOk(), "%v", res.Failure())

	assert.True(t, ctrl.IsFamilyMember())
	assert.True(t, ctrl.IsMother())
	assert.Equal(t, authclient.DashboardFamily, ctrl.DashboardURL())
	assert.Equal(t, authclient.EventSignup, f.events.Last().Type)

	inv, ok := f.service.Invite("tok-1")
	require.True(t, ok)
	assert.Equal(t, authclient.InviteStatusUsed, inv.Status)
}

func TestController_SignupRejectedByService(t *testing.T) {
	f := newFixture()
	f.service.AddInvite("tok-1", authclient.Invite{Email: "rosa@example.com", Role: authclient.RoleStudent}, authclient.Inviter{})
	ctrl := f.controller(t)

	res := ctrl.Signup(context.Background(), "tok-1", authclient.SignupFields{
		Email:    "someone-else@example.com",
		Password: "longenough",
	})
	require.False(t, res.IsOk())
	assert.Equal(t, "EMAIL_MISMATCH", res.Failure().Code)
	assert.Equal(t, http.StatusBadRequest, res.Failure().Status)
	assert.False(t, ctrl.IsAuthenticated())
}

func TestController_SignupWithoutInviteDisabled(t *testing.T) {
	f := newFixture()
	ctrl := f.controller(t)

	res := ctrl.SignupWithoutInvite(context.Background(), authclient.SignupFields{
		Email:    "new@example.com",
		Password: "longenough",
	})
	require.False(t, res.IsOk())
	assert.Equal(t, authclient.KindConfiguration, res.Failure().Kind)
	assert.Equal(t, authclient.TextCodeSignupDisabled, res.Failure().Code)
	assert.Zero(t, f.service.TotalCalls())
}

func TestController_SignupWithoutInviteEnabled(t *testing.T) {
	f := newFixture()
	cfg := f.config()
	cfg.Signup.AllowWithoutInvite = true
	ctrl := f.controllerWith(t, cfg)

	res := ctrl.SignupWithoutInvite(context.Background(), authclient.SignupFields{
		Email:     "new@example.com",
		Password:  "longenough",
		FirstName: "New",
	})
	require.True(t, res.IsOk(), "%v", res.Failure())
	assert.Equal(t, authclient.RoleStudent, res.Value().Role)
	assert.Equal(t, 1, f.service.Calls("POST /auth/signup-simple"))
}

func TestController_CurrentUser(t *testing.T) {
	f := newFixture()
	user := f.student("ana@example.com")
	ctrl := f.controller(t)
	ctx := context.Background()

	res := ctrl.CurrentUser(ctx, false)
	require.False(t, res.IsOk())
	assert.Equal(t, authclient.TextCodeNotAuthenticated, res.Failure().Code)
	assert.Zero(t, f.service.TotalCalls())

	require.True(t, ctrl.Login(ctx, "ana@example.com", "correct-horse").IsOk())
	meCalls := f.service.Calls("GET /auth/me")

	cached := ctrl.CurrentUser(ctx, false)
	require.True(t, cached.IsOk())
	assert.Equal(t, meCalls, f.service.Calls("GET /auth/me"))

	f.service.SetPermissions(user.ID, authclient.PermissionSet{authclient.PermissionViewOwnLoans: false})
	fresh := ctrl.CurrentUser(ctx, true)
	require.True(t, fresh.IsOk())
	assert.Equal(t, meCalls+1, f.service.Calls("GET /auth/me"))
	assert.False(t, fresh.Value().Permissions.CanViewOwnLoans())
	assert.False(t, ctrl.CanViewLoans())
}

func TestController_ForgotPassword(t *testing.T) {
	f := newFixture()
	ctrl := f.controller(t)
	ctx := context.Background()

	bad := ctrl.ForgotPassword(ctx, "not-an-email")
	require.False(t, bad.IsOk())
	assert.Equal(t, authclient.KindValidation, bad.Failure().Kind)
	assert.Contains(t, bad.Failure().Fields, "email")
	assert.Zero(t, f.service.TotalCalls())

	ok := ctrl.ForgotPassword(ctx, "ana@example.com")
	require.True(t, ok.IsOk())
	assert.Contains(t, ok.Value(), "reset link")
}

func TestController_RedirectMemory(t *testing.T) {
	f := newFixture()
	ctrl := f.controller(t)
	ctx := context.Background()

	assert.Equal(t, "/", ctrl.RedirectURL(ctx))

	ctrl.RememberRedirect(ctx, "/stacks/12")
	assert.Equal(t, "/stacks/12", ctrl.RedirectURL(ctx))
	assert.Empty(t, f.durable.Keys())
	assert.Equal(t, []string{authclient.KeyRedirect}, f.ephemeral.Keys())

	ctrl.ClearRedirectURL(ctx)
	assert.Equal(t, "/", ctrl.RedirectURL(ctx))
}

func TestController_DashboardURLByRole(t *testing.T) {
	cases := []struct {
		role authclient.Role
		want string
	}{
		{authclient.RoleStudent, authclient.DashboardStudent},
		{authclient.RoleInstructor, authclient.DashboardInstructor},
		{authclient.RoleFamilyMember, authclient.DashboardFamily},
		{authclient.RoleAdmin, authclient.DashboardAdmin},
		{authclient.RoleSponsor, authclient.DashboardStudent},
	}

	for _, tc := range cases {
		t.Run(string(tc.role), func(t *testing.T) {
			f := newFixture()
			f.service.AddUser(authclient.User{Email: "u@example.com", Role: tc.role}, "correct-horse", nil)
			ctrl := f.controller(t)

			assert.Equal(t, "/", ctrl.DashboardURL())
			require.True(t, ctrl.Login(context.Background(), "u@example.com", "correct-horse").IsOk())
			assert.Equal(t, tc.want, ctrl.DashboardURL())
			assert.Equal(t, tc.want, ctrl.RedirectURL(context.Background()))
		})
	}
}

func TestController_EventSinkFailureIsNotFatal(t *testing.T) {
	f := newFixture()
	f.student("ana@example.com")
	ctrl := f.controller(t, authclient.WithEventSink(authclient.EventSinkFunc(func(context.Context, authclient.Event) error {
		return assert.AnError
	})))

	res := ctrl.Login(context.Background(), "ana@example.com", "correct-horse")
	assert.True(t, res.IsOk())
}

func TestController_SnapshotIsACopy(t *testing.T) {
	f := newFixture()
	f.student("ana@example.com")
	ctrl := f.controller(t)
	require.True(t, ctrl.Login(context.Background(), "ana@example.com", "correct-horse").IsOk())

	snap := ctrl.Snapshot()
	snap.User.FirstName = "Mallory"
	snap.Permissions[authclient.PermissionViewOwnLoans] = false

	assert.Equal(t, "Ana", ctrl.User().FirstName)
	assert.True(t, ctrl.CanViewLoans())
}
