package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNop(t *testing.T) {
	var c Cache = Nop{}
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, KeyOrderList, []byte("x"), time.Minute))
	_, ok, err := c.Get(ctx, KeyOrderList)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, c.Delete(ctx, KeyOrderList, KeyOrder("1")))
}

func TestRedis_RoundTrip(t *testing.T) {
	addr := os.Getenv("TEMURUN_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEMURUN_TEST_REDIS_ADDR is required for tests")
	}

	ctx := context.Background()
	r, err := NewRedis(ctx, addr, os.Getenv("TEMURUN_TEST_REDIS_PASSWORD"))
	require.NoError(t, err)
	defer r.Client.Close()
	r.Prefix = "test:" + time.Now().Format("150405.000000") + ":"

	_, ok, err := r.Get(ctx, KeyOrder("a"))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Set(ctx, KeyOrder("a"), []byte(`{"id":"a"}`), time.Minute))
	b, ok, err := r.Get(ctx, KeyOrder("a"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"id":"a"}`, string(b))

	require.NoError(t, r.Delete(ctx, KeyOrderList, KeyOrder("a")))
	_, ok, err = r.Get(ctx, KeyOrder("a"))
	require.NoError(t, err)
	assert.False(t, ok)
}
