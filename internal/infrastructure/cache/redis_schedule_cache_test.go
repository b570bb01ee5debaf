package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// newRedisClient starts a throwaway Redis container
func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "Failed to start Redis container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: Failed to terminate container: %v", err)
		}
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisScheduleCache_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	client := newRedisClient(t)
	c := NewRedisScheduleCacheWithClient(client, "", time.Minute, nil)
	ctx := context.Background()

	t.Run("set get invalidate", func(t *testing.T) {
		subjectID := uuid.New()
		want := sampleSchedule(subjectID)
		c.Set(ctx, subjectID, want)

		ttl, err := client.TTL(ctx, DefaultScheduleKeyPrefix+subjectID.String()).Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))

		got, ok := c.Get(ctx, subjectID)
		require.True(t, ok)
		require.NotNil(t, got.Document)
		assert.Equal(t, want.Document.ID, got.Document.ID)
		assert.Equal(t, want.TermsSource, got.TermsSource)

		c.Invalidate(ctx, subjectID)
		_, ok = c.Get(ctx, subjectID)
		assert.False(t, ok)
	})

	t.Run("garbage payload is a miss and is removed", func(t *testing.T) {
		subjectID := uuid.New()
		key := DefaultScheduleKeyPrefix + subjectID.String()
		require.NoError(t, client.Set(ctx, key, "{not json", time.Minute).Err())

		_, ok := c.Get(ctx, subjectID)
		assert.False(t, ok)
		exists, err := client.Exists(ctx, key).Result()
		require.NoError(t, err)
		assert.Zero(t, exists)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, c.Ping(ctx))
	})
}
