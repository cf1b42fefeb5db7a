package telemetry

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilePersister(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	persister := &FilePersister{Path: path}

	err := persister.Persist(context.Background(), map[DeviceKey]Position{
		"1": {DeviceID: "1", UniqueID: stringPointer("bike-1")},
	})
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	var table map[string]Position
	require.NoError(t, json.Unmarshal(content, &table))
	assert.Equal(t, "bike-1", *table["1"].UniqueID)
}

func TestRedisPersister(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	persister := NewRedisPersister(client, time.Hour)
	ctx := context.Background()

	err := persister.Persist(ctx, map[DeviceKey]Position{
		"5": {DeviceID: "5", Status: stringPointer("online")},
	})
	require.NoError(t, err)

	assert.True(t, server.Exists(RedisSnapshotKey))
	assert.Equal(t, time.Hour, server.TTL(RedisSnapshotKey))

	table, err := persister.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "online", *table["5"].Status)
}

func TestPersisterFromEnvironment(t *testing.T) {
	t.Setenv("GBFS_TELEMETRY_PERSIST", "none")
	persister, err := PersisterFromEnvironment()
	require.NoError(t, err)
	assert.Nil(t, persister)

	t.Setenv("GBFS_TELEMETRY_PERSIST", "file")
	t.Setenv("GBFS_TELEMETRY_PERSIST_PATH", "/tmp/telemetry.json")
	persister, err = PersisterFromEnvironment()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/telemetry.json", persister.(*FilePersister).Path)

	t.Setenv("GBFS_TELEMETRY_PERSIST", "carrier-pigeon")
	_, err = PersisterFromEnvironment()
	assert.Error(t, err)
}
