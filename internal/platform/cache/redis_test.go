package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReachable(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := New(context.Background(), mr.Addr())
	require.NoError(t, err)
	require.NotNil(t, client)
	assert.NoError(t, client.Ping(context.Background()).Err())
	_ = client.Close()
}

func TestNewReturnsClientWhenPingFails(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	client, err := New(context.Background(), addr)
	require.Error(t, err)
	// Callers warn and keep serving, issuing commands against the client and
	// deferring Close; a nil return would panic on the first session load.
	require.NotNil(t, client)
	_ = client.Close()
}
