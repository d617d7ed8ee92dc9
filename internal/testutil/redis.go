package testutil

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/overlay-backend/internal/redis"
)

// NewTestRedis starts an in-memory Redis and a connected client for it.
// Both are torn down when the test ends.
func NewTestRedis(t *testing.T) (redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	client := redis.NewClient(NewTestLogger(), redis.Config{
		Address:  mr.Addr(),
		PoolSize: 2,
	})

	require.NoError(t, client.Start(NewTestContext(t)))
	t.Cleanup(func() { _ = client.Stop() })

	return client, mr
}
