package uisync

import (
	"context"
	"sync"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-auth-client/dom"
)

// RedirectMemory remembers where to return after login
type RedirectMemory interface {
	RememberRedirect(ctx context.Context, target string)
}

// Binder keeps one document in sync with the controller. It implements
// authclient.UISyncer.
type Binder struct {
	mu        sync.Mutex
	doc       *dom.Document
	sync      *Synchronizer
	nav       authclient.Navigator
	redirects RedirectMemory
	loginPath string
	last      Outcome
}

// NewBinder wires a document to a navigator and redirect memory. The
// controller itself satisfies RedirectMemory.
func NewBinder(doc *dom.Document, s *Synchronizer, nav authclient.Navigator, redirects RedirectMemory, loginPath string) *Binder {
	if loginPath == "" {
		loginPath = "/login"
	}
	return &Binder{
		doc:       doc,
		sync:      s,
		nav:       nav,
		redirects: redirects,
		loginPath: loginPath,
	}
}

// Sync implements authclient.UISyncer
func (b *Binder) Sync(ctx context.Context, snap authclient.Snapshot) {
	b.mu.Lock()
	out := b.sync.Apply(b.doc, snap)
	b.last = out
	b.mu.Unlock()

	if !out.RedirectRequired {
		return
	}
	if b.redirects != nil && b.nav != nil {
		b.redirects.RememberRedirect(ctx, b.nav.CurrentURL())
	}
	if b.nav != nil {
		b.nav.Navigate(b.loginPath)
	}
}

// Last returns the outcome of the most recent pass
func (b *Binder) Last() Outcome {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

// Document returns the bound document. Callers must not mutate it while
// a Sync may be running.
func (b *Binder) Document() *dom.Document {
	return b.doc
}
