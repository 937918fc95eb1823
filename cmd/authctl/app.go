package main

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/goliatone/go-print"
	"github.com/uptrace/bun"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-auth-client/adapters/zaplog"
	"github.com/goliatone/go-auth-client/repository"
	"github.com/goliatone/go-auth-client/storage/memory"
)

// app wires one controller for the duration of a command. SQLite stands
// in for the browser's durable storage, the ephemeral scope lives only
// as long as the process.
type app struct {
	cfg    authclient.Config
	out    io.Writer
	logger *zaplog.Logger
	db     *bun.DB
	nav    *printNavigator
	ctrl   *authclient.Controller
}

type appOptions struct {
	httpClient *http.Client
	logger     *zaplog.Logger
}

func newApp(ctx context.Context, cfg authclient.Config, out io.Writer, opts appOptions) (*app, error) {
	logger := opts.logger
	if logger == nil {
		zl, err := zaplog.NewLogger(cfg.Environment, cfg.Debug)
		if err != nil {
			return nil, fmt.Errorf("logger: %w", err)
		}
		logger = zaplog.New(zl)
	}

	db, err := repository.Open(cfg.StorageDSN)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if err := repository.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage schema: %w", err)
	}
	durable, err := repository.NewKVStore(db, cfg.OriginOrDefault())
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	nav := &printNavigator{out: out, current: cfg.SiteRoot}
	ctrlOpts := []authclient.Option{
		authclient.WithDurableBackend(durable),
		authclient.WithEphemeralBackend(memory.New()),
		authclient.WithLogger(logger.Named("session")),
		authclient.WithNavigator(nav),
		authclient.WithEventSink(authclient.EventSinkFunc(func(_ context.Context, ev authclient.Event) error {
			logger.Named("events").Debug("%s %s", ev.Type, print.MaybePrettyJSON(ev))
			return nil
		})),
	}
	if opts.httpClient != nil {
		ctrlOpts = append(ctrlOpts, authclient.WithHTTPClient(opts.httpClient))
	}

	ctrl, err := authclient.New(cfg, ctrlOpts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	ctrl.Initialize(ctx)

	return &app{
		cfg:    cfg,
		out:    out,
		logger: logger,
		db:     db,
		nav:    nav,
		ctrl:   ctrl,
	}, nil
}

func (a *app) Close() error {
	_ = a.logger.Sync()
	return a.db.Close()
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *app) printJSON(v any) {
	fmt.Fprintln(a.out, print.MaybePrettyJSON(v))
}

// printNavigator reports navigation instead of performing it
type printNavigator struct {
	out     io.Writer
	current string
	visited []string
}

func (n *printNavigator) CurrentURL() string {
	return n.current
}

func (n *printNavigator) Navigate(target string) {
	n.visited = append(n.visited, target)
	n.current = target
	fmt.Fprintf(n.out, "-> navigate %s\n", target)
}
