package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-auth-client/dom"
	"github.com/goliatone/go-auth-client/signup"
	"github.com/goliatone/go-auth-client/uisync"
)

func registerCommands(r *CommandRegistry) {
	r.Register(&Command{
		Name:        "login",
		Description: "Sign in and persist the session",
		Usage:       "authctl login --email <email> [--password <password>]",
		Examples:    []string{"AUTHCTL_PASSWORD=secret authctl login --email ana@example.com"},
		Run:         loginCommand,
	})
	r.Register(&Command{
		Name:        "logout",
		Description: "End the session and clear stored credentials",
		Usage:       "authctl logout",
		Run:         logoutCommand,
	})
	r.Register(&Command{
		Name:        "whoami",
		Description: "Show the signed in user and permissions",
		Usage:       "authctl whoami [--refresh]",
		Run:         whoamiCommand,
	})
	r.Register(&Command{
		Name:        "signup",
		Description: "Create an account from an invite token",
		Usage:       "authctl signup --token <token> --first <name> --last <name> --email <email> --password <password>",
		Run:         signupCommand,
	})
	r.Register(&Command{
		Name:        "invite",
		Description: "Validate an invite token",
		Usage:       "authctl invite --token <token>",
		Run:         inviteCommand,
	})
	r.Register(&Command{
		Name:        "render",
		Description: "Apply the session to an HTML page",
		Usage:       "authctl render --in page.html [--out rendered.html] [--url /current/path]",
		Examples:    []string{"authctl render --in dashboard.html --url /student/dashboard"},
		Run:         renderCommand,
	})
	r.Register(&Command{
		Name:        "stacks",
		Description: "List your stacks",
		Usage:       "authctl stacks",
		Run:         stacksCommand,
	})
	r.Register(&Command{
		Name:        "dashboard",
		Description: "Fetch stacks, consent and peer inbox in parallel",
		Usage:       "authctl dashboard",
		Run:         dashboardCommand,
	})
}

func parseFlags(cmd *Command, a *app, args []string, define func(fs *flag.FlagSet)) error {
	fs := cmd.NewFlagSet(a.out)
	define(fs)
	return fs.Parse(args)
}

func loginCommand(ctx context.Context, a *app, cmd *Command, args []string) error {
	var email, password string
	if err := parseFlags(cmd, a, args, func(fs *flag.FlagSet) {
		fs.StringVar(&email, "email", "", "account email")
		fs.StringVar(&password, "password", os.Getenv("AUTHCTL_PASSWORD"), "account password")
	}); err != nil {
		return err
	}

	user, err := a.ctrl.Login(ctx, email, password).Get()
	if err != nil {
		return err
	}
	a.printf("signed in as %s <%s> (%s)\n", user.FullName(), user.Email, user.RoleLabel())
	a.printf("dashboard: %s\n", a.ctrl.DashboardURL())
	return nil
}

func logoutCommand(ctx context.Context, a *app, _ *Command, _ []string) error {
	if !a.ctrl.IsAuthenticated() {
		a.printf("not signed in\n")
		return nil
	}
	a.ctrl.Logout(ctx)
	a.printf("signed out\n")
	return nil
}

func whoamiCommand(ctx context.Context, a *app, cmd *Command, args []string) error {
	var refresh bool
	if err := parseFlags(cmd, a, args, func(fs *flag.FlagSet) {
		fs.BoolVar(&refresh, "refresh", false, "re-fetch the profile from the service")
	}); err != nil {
		return err
	}

	profile, err := a.ctrl.CurrentUser(ctx, refresh).Get()
	if err != nil {
		return err
	}
	a.printJSON(profile)
	return nil
}

func signupCommand(ctx context.Context, a *app, cmd *Command, args []string) error {
	var token string
	var form signup.Form
	if err := parseFlags(cmd, a, args, func(fs *flag.FlagSet) {
		fs.StringVar(&token, "token", "", "invite token")
		fs.StringVar(&form.FirstName, "first", "", "first name")
		fs.StringVar(&form.LastName, "last", "", "last name")
		fs.StringVar(&form.Email, "email", "", "email, ignored when the invite names one")
		fs.StringVar(&form.Password, "password", os.Getenv("AUTHCTL_PASSWORD"), "password")
		fs.StringVar(&form.Phone, "phone", "", "optional phone number")
	}); err != nil {
		return err
	}
	form.PasswordConfirm = form.Password

	flow := signup.New(a.ctrl, a.cfg.Signup,
		signup.WithNavigator(a.nav),
		signup.WithLogger(a.logger.Named("signup")),
		signup.WithScheduler(func(_ time.Duration, fn func()) { fn() }),
	)

	query := url.Values{}
	if token != "" {
		query.Set("token", token)
	}
	switch flow.Start(ctx, query) {
	case signup.StateRedirected:
		a.printf("already signed in\n")
		return nil
	case signup.StateInviteInvalid:
		return errors.New("invite is not valid")
	}

	if inv := flow.Invite(); inv != nil && inv.Invite != nil {
		a.printf("invited by %s. %s\n", inv.InvitedBy.FullName(), signup.RoleText(inv.Invite))
	}

	user, err := flow.Submit(ctx, form).Get()
	if err != nil {
		var f *authclient.Failure
		if errors.As(err, &f) {
			return errors.New(signup.MessageFor(f))
		}
		return err
	}
	a.printf("welcome %s\n", user.FullName())
	return nil
}

func inviteCommand(ctx context.Context, a *app, cmd *Command, args []string) error {
	var token string
	if err := parseFlags(cmd, a, args, func(fs *flag.FlagSet) {
		fs.StringVar(&token, "token", "", "invite token")
	}); err != nil {
		return err
	}

	v, err := a.ctrl.ValidateInvite(ctx, token).Get()
	if err != nil {
		return err
	}
	if !v.Valid {
		a.printf("invalid invite: %s (%s)\n", v.Message, v.Code)
		return nil
	}
	a.printJSON(v)
	return nil
}

func renderCommand(ctx context.Context, a *app, cmd *Command, args []string) error {
	var in, out, current string
	if err := parseFlags(cmd, a, args, func(fs *flag.FlagSet) {
		fs.StringVar(&in, "in", "", "page to render")
		fs.StringVar(&out, "out", "", "write the result here instead of stdout")
		fs.StringVar(&current, "url", "", "URL of the page, remembered when a login redirect happens")
	}); err != nil {
		return err
	}
	if in == "" {
		return errors.New("--in is required")
	}

	f, err := os.Open(in)
	if err != nil {
		return err
	}
	doc, err := dom.Parse(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("parse %s: %w", in, err)
	}

	if current != "" {
		a.nav.current = current
	}
	binder := uisync.NewBinder(doc, uisync.New(a.cfg.BaseURL()), a.nav, a.ctrl, a.cfg.LoginPath)
	a.ctrl.SetUISyncer(binder)
	binder.Sync(ctx, a.ctrl.Snapshot())

	result := binder.Last()
	a.logger.Debug("render: shown=%d hidden=%d bound=%d htmx=%d", result.Shown, result.Hidden, result.Bound, result.HTMXTargets)

	if out == "" {
		return doc.Render(a.out)
	}
	w, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := doc.Render(w); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func stacksCommand(ctx context.Context, a *app, _ *Command, _ []string) error {
	stacks, err := a.ctrl.Resources().Stacks(ctx).Get()
	if err != nil {
		return err
	}
	printStacks(a, stacks)
	return nil
}

func printStacks(a *app, stacks []authclient.Stack) {
	table := NewTableWriter("ID", "NAME", "VISIBILITY", "CARDS")
	for _, s := range stacks {
		table.AddRow(strconv.FormatInt(s.ID, 10), s.Name, string(s.Visibility), strconv.Itoa(s.CardCount))
	}
	table.Print(a.out)
}

func dashboardCommand(ctx context.Context, a *app, _ *Command, _ []string) error {
	res := a.ctrl.Resources()

	var (
		stacks  []authclient.Stack
		consent *authclient.ConsentRecord
		inbox   authclient.Page[authclient.PeerTransaction]
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stacks, err = res.Stacks(gctx).Get()
		return err
	})
	g.Go(func() (err error) {
		consent, err = res.Consent(gctx).Get()
		return err
	})
	g.Go(func() (err error) {
		inbox, err = res.PeerInbox(gctx, authclient.PeerStatusPending, authclient.PageRequest{}).Get()
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	if consent == nil {
		consent = &authclient.ConsentRecord{}
	}

	a.printf("%s's dashboard (%s)\n\n", a.ctrl.User().FullName(), a.ctrl.DashboardURL())
	printStacks(a, stacks)
	a.printf("\nconsent: peer_offers=%t sponsor_offers=%t marketing=%t\n",
		consent.Granted(authclient.ConsentPeerOffers),
		consent.Granted(authclient.ConsentSponsorOffers),
		consent.Granted(authclient.ConsentMarketing))
	a.printf("pending peer offers: %d\n", inbox.ItemsTotal)
	return nil
}
