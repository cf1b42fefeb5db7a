package routes

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/travigo/gbfs/pkg/gbfs"
	"github.com/travigo/gbfs/pkg/systemconfig"
)

const vehicleTypesTTL = 0

type StationSource interface {
	StationInformation(ctx context.Context) []gbfs.StationInformation
	StationStatus(ctx context.Context) []gbfs.StationStatus
}

type FreeBikeSource interface {
	Make() *gbfs.FreeBikeStatusFeed
}

// Feeds holds what the GBFS endpoints are built from. Stations may be nil when no Odoo
// instance is configured, the station feeds are then served empty.
type Feeds struct {
	System    *systemconfig.Config
	Stations  StationSource
	FreeBikes FreeBikeSource

	Now func() time.Time
}

func (f *Feeds) now() time.Time {
	if f.Now == nil {
		return time.Now()
	}
	return f.Now()
}

func GBFSRouter(router fiber.Router, feeds *Feeds) {
	router.Get("/system-information", feeds.systemInformation)
	router.Get("/vehicle-types", feeds.vehicleTypes)
	router.Get("/station-information", feeds.stationInformation)
	router.Get("/station-status", feeds.stationStatus)
	router.Get("/free-bike-status", feeds.freeBikeStatus)
}

func (f *Feeds) Discovery(c *fiber.Ctx) error {
	return c.JSON(gbfs.NewEnvelope(f.now(), f.System.DiscoveryTTL, f.System.DiscoveryData()))
}

func (f *Feeds) systemInformation(c *fiber.Ctx) error {
	return c.JSON(gbfs.NewEnvelope(f.now(), f.System.SystemInfoTTL, f.System.SystemInformationData()))
}

func (f *Feeds) vehicleTypes(c *fiber.Ctx) error {
	return c.JSON(gbfs.NewEnvelope(f.now(), vehicleTypesTTL, f.System.VehicleTypesData()))
}

func (f *Feeds) stationInformation(c *fiber.Ctx) error {
	stations := []gbfs.StationInformation{}
	if f.Stations != nil {
		if information := f.Stations.StationInformation(c.UserContext()); information != nil {
			stations = information
		}
	}

	return c.JSON(gbfs.NewEnvelope(f.now(), f.System.StationFeedTTL, gbfs.StationInformationData{Stations: stations}))
}

func (f *Feeds) stationStatus(c *fiber.Ctx) error {
	stations := []gbfs.StationStatus{}
	if f.Stations != nil {
		if status := f.Stations.StationStatus(c.UserContext()); status != nil {
			stations = status
		}
	}

	return c.JSON(gbfs.NewEnvelope(f.now(), f.System.StationFeedTTL, gbfs.StationStatusData{Stations: stations}))
}

func (f *Feeds) freeBikeStatus(c *fiber.Ctx) error {
	return c.JSON(f.FreeBikes.Make())
}
