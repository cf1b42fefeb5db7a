package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/redis/go-redis/v9"
	"github.com/travigo/gbfs/pkg/database"
	"github.com/travigo/gbfs/pkg/redis_client"
	"github.com/travigo/gbfs/pkg/util"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Persister writes a diagnostics copy of the telemetry table somewhere durable
type Persister interface {
	Name() string
	Persist(ctx context.Context, table map[DeviceKey]Position) error
}

// FilePersister rewrites a single indented JSON document
type FilePersister struct {
	Path string
}

func (p *FilePersister) Name() string {
	return "file"
}

func (p *FilePersister) Persist(ctx context.Context, table map[DeviceKey]Position) error {
	content, err := json.MarshalIndent(table, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal telemetry table: %w", err)
	}

	// Write then rename so readers never see a truncated dump
	temporaryFile, err := os.CreateTemp(filepath.Dir(p.Path), ".telemetry-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(temporaryFile.Name())

	if _, err := temporaryFile.Write(content); err != nil {
		temporaryFile.Close()
		return err
	}
	if err := temporaryFile.Close(); err != nil {
		return err
	}

	return os.Rename(temporaryFile.Name(), p.Path)
}

const RedisSnapshotKey = "gbfs:telemetry:snapshot"

// RedisPersister keeps the latest table as one expiring value in redis
type RedisPersister struct {
	cache *cache.Cache[string]
}

func NewRedisPersister(client redis.UniversalClient, expiration time.Duration) *RedisPersister {
	redisStore := redisstore.NewRedis(client, store.WithExpiration(expiration))

	return &RedisPersister{
		cache: cache.New[string](redisStore),
	}
}

func (p *RedisPersister) Name() string {
	return "redis"
}

func (p *RedisPersister) Persist(ctx context.Context, table map[DeviceKey]Position) error {
	content, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("marshal telemetry table: %w", err)
	}

	return p.cache.Set(ctx, RedisSnapshotKey, string(content))
}

// Load returns the last persisted table
func (p *RedisPersister) Load(ctx context.Context) (map[DeviceKey]Position, error) {
	content, err := p.cache.Get(ctx, RedisSnapshotKey)
	if err != nil {
		return nil, err
	}

	var table map[DeviceKey]Position
	if err := json.Unmarshal([]byte(content), &table); err != nil {
		return nil, err
	}

	return table, nil
}

type mongoPosition struct {
	DeviceID             string    `bson:"deviceid"`
	UniqueID             *string   `bson:"uniqueid"`
	Status               *string   `bson:"status"`
	Disabled             *bool     `bson:"disabled"`
	LastUpdate           *string   `bson:"lastupdate"`
	Latitude             *float64  `bson:"latitude"`
	Longitude            *float64  `bson:"longitude"`
	ModificationDateTime time.Time `bson:"modificationdatetime"`
}

// MongoPersister upserts one document per device
type MongoPersister struct {
	Collection *mongo.Collection
}

func (p *MongoPersister) Name() string {
	return "mongo"
}

func (p *MongoPersister) Persist(ctx context.Context, table map[DeviceKey]Position) error {
	if len(table) == 0 {
		return nil
	}

	now := time.Now()
	operations := make([]mongo.WriteModel, 0, len(table))

	for key, position := range table {
		document := mongoPosition{
			DeviceID:             string(key),
			UniqueID:             position.UniqueID,
			Status:               position.Status,
			Disabled:             position.Disabled,
			LastUpdate:           position.LastUpdate,
			ModificationDateTime: now,
		}
		if position.Position != nil {
			document.Latitude = position.Position.Latitude
			document.Longitude = position.Position.Longitude
		}

		updateModel := mongo.NewReplaceOneModel()
		updateModel.SetFilter(bson.M{"deviceid": document.DeviceID})
		updateModel.SetReplacement(document)
		updateModel.SetUpsert(true)

		operations = append(operations, updateModel)
	}

	_, err := p.Collection.BulkWrite(ctx, operations, options.BulkWrite().SetOrdered(false))

	return err
}

// PersisterFromEnvironment selects the diagnostics sink from GBFS_TELEMETRY_PERSIST.
// The matching backend must already be connected.
func PersisterFromEnvironment() (Persister, error) {
	mode := strings.ToLower(util.GetEnvironmentString("GBFS_TELEMETRY_PERSIST", "none"))

	switch mode {
	case "none", "":
		return nil, nil
	case "file":
		return &FilePersister{
			Path: util.GetEnvironmentString("GBFS_TELEMETRY_PERSIST_PATH", "data.json"),
		}, nil
	case "redis":
		if redis_client.Client == nil {
			return nil, fmt.Errorf("telemetry persistence %q requires a redis connection", mode)
		}
		return NewRedisPersister(
			redis_client.Client,
			util.GetEnvironmentDuration("GBFS_TELEMETRY_PERSIST_EXPIRATION", 24*time.Hour),
		), nil
	case "mongo":
		if !database.Connected() {
			return nil, fmt.Errorf("telemetry persistence %q requires a mongodb connection", mode)
		}
		return &MongoPersister{
			Collection: database.GetCollection(database.TelemetryPositionsCollection),
		}, nil
	default:
		return nil, fmt.Errorf("unknown telemetry persistence %q", mode)
	}
}

// PersistenceBackend reports which connection PersisterFromEnvironment will need
func PersistenceBackend() string {
	return strings.ToLower(util.GetEnvironmentString("GBFS_TELEMETRY_PERSIST", "none"))
}
