package authclient

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Navigator moves the hosting page to a different location.
type Navigator interface {
	CurrentURL() string
	Navigate(target string)
}

// UISyncer reflects a session snapshot onto the hosting page.
// Implementations must be idempotent, the controller calls Sync after
// every session mutation with the full current state.
type UISyncer interface {
	Sync(ctx context.Context, snapshot Snapshot)
}

// UISyncFunc adapts a function to the UISyncer interface.
type UISyncFunc func(ctx context.Context, snapshot Snapshot)

// Sync implements UISyncer.
func (f UISyncFunc) Sync(ctx context.Context, snapshot Snapshot) {
	if f == nil {
		return
	}
	f(ctx, snapshot)
}

type noopUISyncer struct{}

func (noopUISyncer) Sync(context.Context, Snapshot) {}

func normalizeUISyncer(s UISyncer) UISyncer {
	if s == nil {
		return noopUISyncer{}
	}
	return s
}

// NopNavigator ignores navigation requests, for hosts without a page.
type NopNavigator struct{}

func (NopNavigator) CurrentURL() string { return "" }

func (NopNavigator) Navigate(string) {}

// NopLogger discards every message
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTHCLIENT "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTHCLIENT "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTHCLIENT "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTHCLIENT "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
