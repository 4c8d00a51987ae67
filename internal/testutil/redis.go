// Package testutil holds helpers shared by package tests.
package testutil

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/katatrina/xsmb-live/internal/redisconn"
	"github.com/stretchr/testify/require"
)

// NewRedis starts an in-process Redis and a provider connected to it.
// Both are torn down when the test ends.
func NewRedis(t testing.TB) (*miniredis.Miniredis, *redisconn.Provider) {
	t.Helper()

	mr := miniredis.RunT(t)
	provider, err := redisconn.NewProvider(redisconn.Options{
		URL:        "redis://" + mr.Addr(),
		MaxRetries: 2,
		MinBackoff: 10 * time.Millisecond,
		MaxBackoff: 20 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = provider.Close()
	})

	return mr, provider
}
