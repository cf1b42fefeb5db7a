// Package translator turns the live telemetry table into GBFS vehicle feeds.
package translator

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/travigo/gbfs/pkg/elastic_client"
	"github.com/travigo/gbfs/pkg/gbfs"
	"github.com/travigo/gbfs/pkg/telemetry"
	"golang.org/x/sync/singleflight"
)

const (
	defaultCacheWindow = 10 * time.Second

	// Every tracked vehicle is published as the bicycle vehicle type
	bicycleVehicleTypeID = "1"

	statusOnline = "online"

	recomputeKey = "free_bike_status"
)

// BikeIDMode selects what is published as bike_id
type BikeIDMode string

const (
	// BikeIDPersistent publishes the device uniqueId as is. GBFS asks for bike_id to rotate
	// after every trip, a persistent id does not meet that.
	BikeIDPersistent BikeIDMode = "persistent"
	// BikeIDHashed publishes a name based UUID of the uniqueId under a namespace drawn when
	// the translator starts, so ids change on every restart.
	BikeIDHashed BikeIDMode = "hashed"
)

// SnapshotSource is satisfied by *telemetry.Store
type SnapshotSource interface {
	Snapshot() map[telemetry.DeviceKey]telemetry.Position
}

// FreeBikeStatus builds the free_bike_status feed. The last feed is served unchanged for the
// cache window, afterwards the next caller rebuilds it while concurrent callers wait for and
// share that rebuild.
type FreeBikeStatus struct {
	source SnapshotSource

	cacheWindow time.Duration
	now         func() time.Time

	bikeIDMode BikeIDMode
	namespace  uuid.UUID

	mu        sync.Mutex
	feed      *gbfs.FreeBikeStatusFeed
	createdAt time.Time
	stats     DiscardStats

	group singleflight.Group
}

type Option func(*FreeBikeStatus)

func WithCacheWindow(window time.Duration) Option {
	return func(f *FreeBikeStatus) {
		f.cacheWindow = window
	}
}

func WithClock(now func() time.Time) Option {
	return func(f *FreeBikeStatus) {
		f.now = now
	}
}

func WithBikeIDMode(mode BikeIDMode) Option {
	return func(f *FreeBikeStatus) {
		f.bikeIDMode = mode
	}
}

func NewFreeBikeStatus(source SnapshotSource, opts ...Option) *FreeBikeStatus {
	translator := &FreeBikeStatus{
		source:      source,
		cacheWindow: defaultCacheWindow,
		now:         time.Now,
		bikeIDMode:  BikeIDPersistent,
		namespace:   uuid.New(),
	}

	for _, opt := range opts {
		opt(translator)
	}

	if translator.bikeIDMode == BikeIDPersistent {
		log.Warn().Msg("free_bike_status publishes persistent bike ids, GBFS expects bike_id to rotate after each trip")
	}

	return translator
}

// Make returns the current free_bike_status document
func (f *FreeBikeStatus) Make() *gbfs.FreeBikeStatusFeed {
	if feed := f.cached(); feed != nil {
		log.Debug().Msg("Using cached free bike status feed")
		return feed
	}

	feed, _, _ := f.group.Do(recomputeKey, func() (any, error) {
		// A rebuild may have finished between the cache check and joining the group
		if feed := f.cached(); feed != nil {
			return feed, nil
		}

		return f.rebuild(), nil
	})

	return feed.(*gbfs.FreeBikeStatusFeed)
}

// Stats returns the discard counters of the last rebuild
func (f *FreeBikeStatus) Stats() DiscardStats {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.stats.clone()
}

func (f *FreeBikeStatus) cached() *gbfs.FreeBikeStatusFeed {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.feed != nil && f.now().Before(f.createdAt.Add(f.cacheWindow)) {
		return f.feed
	}

	return nil
}

func (f *FreeBikeStatus) rebuild() *gbfs.FreeBikeStatusFeed {
	startTime := time.Now()
	now := f.now()

	snapshot := f.source.Snapshot()
	stats := DiscardStats{}
	bikes := make([]gbfs.FreeBike, 0, len(snapshot))

	keys := make([]telemetry.DeviceKey, 0, len(snapshot))
	for key := range snapshot {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	for _, key := range keys {
		bike, reason := f.translate(key, snapshot[key])
		if reason != "" {
			stats.add(reason)
			continue
		}

		bikes = append(bikes, bike)
	}

	feed := gbfs.NewEnvelope(now, 0, gbfs.FreeBikeStatusData{Bikes: bikes})

	f.mu.Lock()
	f.feed = feed
	f.createdAt = now
	f.stats = stats
	f.mu.Unlock()

	log.Info().
		Str("time", time.Since(startTime).String()).
		Int("vehicles", len(snapshot)).
		Int("bikes", len(bikes)).
		Int("discarded", stats.Total()).
		Msg("Created free bike status feed")

	elastic_client.IndexEvent("gbfs-translator-events", now, translationElasticEvent{
		Timestamp: now,
		Feed:      recomputeKey,
		Vehicles:  len(snapshot),
		Published: len(bikes),
		Discarded: stats.clone(),
	})

	return feed
}

// translate applies the publication rules in order and returns the first reason that
// excludes the vehicle, or the mapped bike
func (f *FreeBikeStatus) translate(key telemetry.DeviceKey, position telemetry.Position) (gbfs.FreeBike, DiscardReason) {
	logger := log.With().Str("device", string(key)).Logger()

	if position.Status == nil || *position.Status != statusOnline || (position.Disabled != nil && *position.Disabled) {
		return gbfs.FreeBike{}, DiscardUnavailable
	}

	if len(position.InvalidFields) > 0 {
		logger.Warn().Strs("fields", position.InvalidFields).Msg("Skipping vehicle with mistyped fields")
		return gbfs.FreeBike{}, DiscardInvalidField
	}

	if position.Position == nil || position.Position.Latitude == nil || position.Position.Longitude == nil {
		logger.Debug().Msg("Skipping vehicle with missing position")
		return gbfs.FreeBike{}, DiscardMissingPosition
	}

	if position.LastUpdate == nil || *position.LastUpdate == "" {
		logger.Warn().Msg("Skipping vehicle with missing lastUpdate")
		return gbfs.FreeBike{}, DiscardMissingLastUpdate
	}

	lastReported, err := parseLastUpdate(*position.LastUpdate)
	if err != nil {
		logger.Warn().Str("lastUpdate", *position.LastUpdate).Msg("Skipping vehicle with invalid lastUpdate")
		return gbfs.FreeBike{}, DiscardInvalidLastUpdate
	}

	if position.UniqueID == nil || position.Disabled == nil {
		logger.Warn().Msg("Skipping vehicle with missing uniqueId or disabled flag")
		return gbfs.FreeBike{}, DiscardMissingField
	}

	return gbfs.FreeBike{
		BikeID:        f.bikeID(*position.UniqueID),
		Lat:           *position.Position.Latitude,
		Lon:           *position.Position.Longitude,
		IsReserved:    false,
		IsDisabled:    *position.Disabled,
		VehicleTypeID: bicycleVehicleTypeID,
		LastReported:  lastReported.Unix(),
	}, ""
}

func (f *FreeBikeStatus) bikeID(uniqueID string) string {
	if f.bikeIDMode == BikeIDHashed {
		return uuid.NewSHA1(f.namespace, []byte(uniqueID)).String()
	}

	return uniqueID
}
