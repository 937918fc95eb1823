package authclient

import (
	"bytes"
	"context"
	"encoding/json"
)

// Durable storage keys owned by the controller
const (
	KeyCredential  = "auth_token"
	KeyUser        = "auth_user"
	KeyPermissions = "auth_permissions"
)

// KeyRedirect lives in the ephemeral scope and is cleared on consumption.
const KeyRedirect = "auth_redirect_after_login"

var sessionKeys = []string{KeyCredential, KeyUser, KeyPermissions}

// Backend is a raw key/value store. Delete must remove all given keys or
// none of them.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
}

// Store serializes values as JSON over a Backend. Backend failures are
// logged and never returned, a value that cannot be read is absent.
type Store struct {
	backend Backend
	logger  Logger
	scope   string
}

// StoreOption customizes a Store
type StoreOption func(*Store)

// WithStoreLogger sets the logger used for swallowed failures
func WithStoreLogger(logger Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStoreScope names the store in log lines, e.g. "durable" or "ephemeral"
func WithStoreScope(scope string) StoreOption {
	return func(s *Store) {
		s.scope = scope
	}
}

// NewStore wraps backend
func NewStore(backend Backend, opts ...StoreOption) *Store {
	s := &Store{
		backend: backend,
		logger:  defLogger{},
		scope:   "store",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Set serializes value and writes it under key
func (s *Store) Set(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		s.logger.Error("%s: unable to encode %s: %v", s.scope, key, err)
		return
	}
	if err := s.backend.Set(ctx, key, raw); err != nil {
		s.logger.Warn("%s: unable to write %s: %v", s.scope, key, err)
	}
}

// Raw returns the stored bytes for key
func (s *Store) Raw(ctx context.Context, key string) ([]byte, bool) {
	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		s.logger.Warn("%s: unable to read %s: %v", s.scope, key, err)
		return nil, false
	}
	raw = bytes.TrimSpace(raw)
	if !ok || len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, false
	}
	return raw, true
}

// Clear removes keys in one backend call
func (s *Store) Clear(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := s.backend.Delete(ctx, keys...); err != nil {
		s.logger.Warn("%s: unable to clear %v: %v", s.scope, keys, err)
	}
}

// Load decodes the value under key. Missing, unreadable and corrupt
// values all come back as absent.
func Load[T any](ctx context.Context, s *Store, key string) (T, bool) {
	var out T
	raw, ok := s.Raw(ctx, key)
	if !ok {
		return out, false
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		s.logger.Warn("%s: discarding corrupt %s: %v", s.scope, key, err)
		var zero T
		return zero, false
	}
	return out, true
}
