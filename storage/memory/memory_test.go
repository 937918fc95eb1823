package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-auth-client/storage/memory"
)

var _ authclient.Backend = (*memory.Backend)(nil)

func TestBackend_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	b := memory.New()

	_, ok, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Set(ctx, "a", []byte("1")))
	require.NoError(t, b.Set(ctx, "b", []byte("2")))
	require.NoError(t, b.Set(ctx, "c", []byte("3")))

	v, ok, err := b.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("1"), v)

	require.NoError(t, b.Delete(ctx, "a", "b", "missing"))
	assert.Equal(t, []string{"c"}, b.Keys())
}

func TestBackend_CopiesValues(t *testing.T) {
	ctx := context.Background()
	b := memory.New()

	in := []byte("abc")
	require.NoError(t, b.Set(ctx, "k", in))
	in[0] = 'x'

	out, _, _ := b.Get(ctx, "k")
	assert.Equal(t, "abc", string(out))
	out[0] = 'y'

	again, _, _ := b.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
}

func TestBackend_FailWith(t *testing.T) {
	ctx := context.Background()
	b := memory.New()
	boom := errors.New("quota exceeded")

	b.FailWith(boom)
	assert.ErrorIs(t, b.Set(ctx, "k", []byte("v")), boom)
	_, _, err := b.Get(ctx, "k")
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, b.Delete(ctx, "k"), boom)

	b.FailWith(nil)
	assert.NoError(t, b.Set(ctx, "k", []byte("v")))
}
