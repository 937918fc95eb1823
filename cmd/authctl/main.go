package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	authclient "github.com/goliatone/go-auth-client"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, appOptions{})
	stop()
	os.Exit(code)
}

// run is main without the process exit, returning the exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, opts appOptions) int {
	registry := NewCommandRegistry()
	registerCommands(registry)

	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		registry.PrintHelp(stdout)
		return 0
	}

	cmd, ok := registry.Lookup(args[0])
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		registry.PrintHelp(stderr)
		return 2
	}

	cfg, err := authclient.LoadConfig(".env")
	if err != nil {
		fmt.Fprintf(stderr, "configuration: %v\n", err)
		return 1
	}

	a, err := newApp(ctx, cfg, stdout, opts)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer a.Close()

	if err := cmd.Run(ctx, a, cmd, args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}
