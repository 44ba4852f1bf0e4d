package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homecheff/config"
	"homecheff/internal/geo"
)

func TestPositionKey(t *testing.T) {
	assert.Equal(t, "courier:position:c-1", positionKey("c-1"))
}

func TestPositions(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if testing.Short() || addr == "" {
		t.Skip("integration test: set REDIS_ADDR and run without -short")
	}
	ctx := context.Background()
	client, err := NewClient(ctx, config.RedisConfig{Addr: addr})
	require.NoError(t, err)
	defer client.Close()

	c := NewPositions(client, time.Minute)
	id := "test-" + time.Now().Format("150405.000")

	got, err := c.Position(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.SetPosition(ctx, id, geo.Point{Lat: 52.0, Lng: 4.0}))
	got, err = c.Position(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, &geo.Point{Lat: 52.0, Lng: 4.0}, got)

	require.NoError(t, c.Forget(ctx, id))
	got, err = c.Position(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got)
}
