// Package stations resolves docking stations from the Odoo bike_municipal models into
// GBFS station documents.
package stations

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
	"github.com/travigo/gbfs/pkg/gbfs"
	"github.com/travigo/gbfs/pkg/odoo"
)

const (
	stationModel     = "bike_municipal.station"
	stationLineModel = "bike_municipal.station.line"

	unnamedStation = "Unnamed Station"

	defaultWorkers       = 8
	defaultTimeout       = 10 * time.Second
	defaultRentalURIBase = "https://example.com/app"
)

// RecordClient is the subset of the Odoo client the directory needs
type RecordClient interface {
	Search(ctx context.Context, model string, domain []any) ([]int64, error)
	Read(ctx context.Context, model string, ids []int64, fields []string, result any) error
}

// Directory serves station information and live station status.
//
// The station id list and the station information are computed once and then frozen for
// the lifetime of the Directory, station identity and geometry rarely change and this
// avoids hammering Odoo. Station status is always read live.
type Directory struct {
	client RecordClient

	rentalURIBase string
	workers       int
	timeout       time.Duration
	now           func() time.Time

	idsOnce sync.Once
	ids     []int64

	informationOnce sync.Once
	information     []gbfs.StationInformation
}

type Option func(*Directory)

func WithRentalURIBase(base string) Option {
	return func(d *Directory) {
		d.rentalURIBase = base
	}
}

// WithWorkers caps how many stations have their lines read concurrently
func WithWorkers(workers int) Option {
	return func(d *Directory) {
		if workers > 0 {
			d.workers = workers
		}
	}
}

// WithTimeout bounds every individual call to Odoo
func WithTimeout(timeout time.Duration) Option {
	return func(d *Directory) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Directory) {
		d.now = now
	}
}

func NewDirectory(client RecordClient, opts ...Option) *Directory {
	directory := &Directory{
		client:        client,
		rentalURIBase: defaultRentalURIBase,
		workers:       defaultWorkers,
		timeout:       defaultTimeout,
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(directory)
	}

	return directory
}

type stationRecord struct {
	ID        int64           `json:"id"`
	Name      odoo.NullString `json:"name"`
	Latitude  odoo.NullFloat  `json:"latitude"`
	Longitude odoo.NullFloat  `json:"longitude"`
	LineIDs   []int64         `json:"station_line_ids"`
}

type stationLineRecord struct {
	ID     int64 `json:"id"`
	IsFree bool  `json:"is_free"`
}

// ListStationIDs returns every station id known to Odoo. The first call's answer, including
// an empty answer after a failure, is kept for the Directory's lifetime.
func (d *Directory) ListStationIDs(ctx context.Context) []int64 {
	d.idsOnce.Do(func() {
		// Detached from the caller so a cancelled request cannot freeze an empty list
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()

		ids, err := d.client.Search(callCtx, stationModel, nil)
		if err != nil {
			log.Error().Err(err).Str("model", stationModel).Msg("Failed to list stations")
			ids = nil
		}

		d.ids = ids
		log.Info().Int("length", len(ids)).Msg("Loaded station identifiers")
	})

	return d.ids
}

// StationInformation returns the station_information entries, computed on first use and
// frozen afterwards.
func (d *Directory) StationInformation(ctx context.Context) []gbfs.StationInformation {
	d.informationOnce.Do(func() {
		d.information = d.loadStationInformation(context.WithoutCancel(ctx))
	})

	return d.information
}

func (d *Directory) loadStationInformation(ctx context.Context) []gbfs.StationInformation {
	information := []gbfs.StationInformation{}

	ids := d.ListStationIDs(ctx)
	if len(ids) == 0 {
		return information
	}

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var records []stationRecord
	err := d.client.Read(callCtx, stationModel, ids, []string{"id", "name", "latitude", "longitude", "station_line_ids"}, &records)
	if err != nil {
		log.Error().Err(err).Str("model", stationModel).Msg("Failed to read station information")
		return information
	}

	for _, record := range records {
		information = append(information, d.mapStationInformation(record))
	}

	log.Info().Int("length", len(information)).Msg("Loaded station information")

	return information
}

func (d *Directory) mapStationInformation(record stationRecord) gbfs.StationInformation {
	return gbfs.StationInformation{
		StationID:        strconv.FormatInt(record.ID, 10),
		Name:             record.Name.Or(unnamedStation),
		Lat:              record.Latitude.Or(0),
		Lon:              record.Longitude.Or(0),
		Capacity:         len(record.LineIDs),
		IsVirtualStation: false,
		RentalURIs: gbfs.RentalURIs{
			Android: fmt.Sprintf("%s?sid=%d&platform=android", d.rentalURIBase, record.ID),
			IOS:     fmt.Sprintf("%s?sid=%d&platform=ios", d.rentalURIBase, record.ID),
			Web:     fmt.Sprintf("%s?sid=%d", d.rentalURIBase, record.ID),
		},
	}
}

// StationStatus reads the dock occupancy of every station on each call. Stations are read
// in parallel by a bounded pool; a station whose lines cannot be read is left out of the
// result so the rest of the feed is still served. Output keeps the order Odoo returned.
func (d *Directory) StationStatus(ctx context.Context) []gbfs.StationStatus {
	statuses := []gbfs.StationStatus{}

	ids := d.ListStationIDs(ctx)
	if len(ids) == 0 {
		return statuses
	}

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	var records []stationRecord
	err := d.client.Read(callCtx, stationModel, ids, []string{"id", "station_line_ids"}, &records)
	cancel()
	if err != nil {
		log.Error().Err(err).Str("model", stationModel).Msg("Failed to read stations for status")
		return statuses
	}

	startTime := time.Now()
	lastReported := d.now().Unix()
	results := make([]*gbfs.StationStatus, len(records))

	p := pool.New().WithMaxGoroutines(d.workers)
	for index, record := range records {
		index, record := index, record
		p.Go(func() {
			status, err := d.stationStatus(ctx, record, lastReported)
			if err != nil {
				log.Error().Err(err).Int64("station", record.ID).Msg("Failed to read station lines, omitting station")
				return
			}
			results[index] = status
		})
	}
	p.Wait()

	for _, status := range results {
		if status != nil {
			statuses = append(statuses, *status)
		}
	}

	log.Debug().
		Int("stations", len(records)).
		Int("length", len(statuses)).
		Str("time", time.Since(startTime).String()).
		Msg("Computed station status")

	return statuses
}

func (d *Directory) stationStatus(ctx context.Context, record stationRecord, lastReported int64) (*gbfs.StationStatus, error) {
	totalDocks := len(record.LineIDs)
	bikesAvailable := 0

	if totalDocks > 0 {
		callCtx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()

		var lines []stationLineRecord
		if err := d.client.Read(callCtx, stationLineModel, record.LineIDs, []string{"is_free"}, &lines); err != nil {
			return nil, err
		}

		for _, line := range lines {
			if line.IsFree {
				bikesAvailable++
			}
		}

		// Lines missing from the answer count as unavailable, never more free docks than lines
		bikesAvailable = min(bikesAvailable, totalDocks)
	}

	return &gbfs.StationStatus{
		StationID:         strconv.FormatInt(record.ID, 10),
		NumBikesAvailable: bikesAvailable,
		NumBikesDisabled:  totalDocks - bikesAvailable,
		NumDocksAvailable: totalDocks - bikesAvailable,
		NumDocksDisabled:  0,
		IsInstalled:       true,
		IsRenting:         true,
		IsReturning:       true,
		LastReported:      lastReported,
	}, nil
}
