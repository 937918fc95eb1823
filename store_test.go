package authclient_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-auth-client/adapters/zaplog"
	"github.com/goliatone/go-auth-client/storage/memory"
)

func newTestStore(backend authclient.Backend) *authclient.Store {
	return authclient.NewStore(backend, authclient.WithStoreLogger(zaplog.New(nil)), authclient.WithStoreScope("test"))
}

func TestStore_SetAndLoad(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	store := newTestStore(backend)

	user := &authclient.User{ID: 3, FirstName: "Ana", Email: "ana@example.com", Role: authclient.RoleStudent}
	store.Set(ctx, authclient.KeyUser, user)
	store.Set(ctx, authclient.KeyCredential, "tok-abc")

	got, ok := authclient.Load[*authclient.User](ctx, store, authclient.KeyUser)
	require.True(t, ok)
	assert.Equal(t, user, got)

	credential, ok := authclient.Load[string](ctx, store, authclient.KeyCredential)
	require.True(t, ok)
	assert.Equal(t, "tok-abc", credential)

	raw, ok := store.Raw(ctx, authclient.KeyCredential)
	require.True(t, ok)
	assert.Equal(t, `"tok-abc"`, string(raw))
}

func TestStore_AbsentValues(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	store := newTestStore(backend)

	backend.Put("empty", []byte("  "))
	backend.Put("null", []byte("null"))
	backend.Put("corrupt", []byte(`{"id":`))

	for _, key := range []string{"missing", "empty", "null", "corrupt"} {
		_, ok := authclient.Load[*authclient.User](ctx, store, key)
		assert.False(t, ok, key)
	}
}

func TestStore_ClearRemovesAllKeys(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	store := newTestStore(backend)

	store.Set(ctx, authclient.KeyCredential, "tok")
	store.Set(ctx, authclient.KeyUser, authclient.User{ID: 1})
	store.Set(ctx, authclient.KeyPermissions, authclient.PermissionSet{"x": true})
	store.Set(ctx, "other", 1)

	store.Clear(ctx, authclient.KeyCredential, authclient.KeyUser, authclient.KeyPermissions)

	assert.Equal(t, []string{"other"}, backend.Keys())
}

func TestStore_BackendFailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	store := newTestStore(backend)
	store.Set(ctx, authclient.KeyCredential, "tok")

	backend.FailWith(assert.AnError)

	assert.NotPanics(t, func() {
		store.Set(ctx, authclient.KeyUser, authclient.User{ID: 1})
		store.Clear(ctx, authclient.KeyCredential)
	})
	_, ok := authclient.Load[string](ctx, store, authclient.KeyCredential)
	assert.False(t, ok)

	backend.FailWith(nil)
	credential, ok := authclient.Load[string](ctx, store, authclient.KeyCredential)
	require.True(t, ok)
	assert.Equal(t, "tok", credential)
}

func TestStore_UnencodableValue(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	store := newTestStore(backend)

	store.Set(ctx, "bad", make(chan int))

	assert.Empty(t, backend.Keys())
}

func TestController_SurvivesBrokenDurableStorage(t *testing.T) {
	f := newFixture()
	f.student("ana@example.com")
	f.durable.FailWith(assert.AnError)
	ctrl := f.controller(t)

	res := ctrl.Login(context.Background(), "ana@example.com", "correct-horse")
	require.True(t, res.IsOk())
	assert.True(t, ctrl.IsAuthenticated())
}
