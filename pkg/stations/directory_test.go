package stations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStation struct {
	ID        int64
	Name      any
	Latitude  any
	Longitude any
	Lines     []bool
}

type fakeRecordClient struct {
	stations  []fakeStation
	searchErr error
	readErr   error
	failLines map[int64]bool
	delay     time.Duration

	searches     atomic.Int32
	stationReads atomic.Int32
	lineReads    atomic.Int32
	inFlight     atomic.Int32
	maxInFlight  atomic.Int32
}

func lineID(stationID int64, index int) int64 {
	return stationID*100 + int64(index)
}

func (f *fakeRecordClient) Search(ctx context.Context, model string, domain []any) ([]int64, error) {
	f.searches.Add(1)
	if f.searchErr != nil {
		return nil, f.searchErr
	}

	ids := []int64{}
	for _, station := range f.stations {
		ids = append(ids, station.ID)
	}
	return ids, nil
}

func (f *fakeRecordClient) Read(ctx context.Context, model string, ids []int64, fields []string, result any) error {
	var records []map[string]any

	switch model {
	case stationModel:
		f.stationReads.Add(1)
		if f.readErr != nil {
			return f.readErr
		}
		for _, station := range f.stations {
			lineIDs := []int64{}
			for index := range station.Lines {
				lineIDs = append(lineIDs, lineID(station.ID, index))
			}
			records = append(records, map[string]any{
				"id":               station.ID,
				"name":             station.Name,
				"latitude":         station.Latitude,
				"longitude":        station.Longitude,
				"station_line_ids": lineIDs,
			})
		}
	case stationLineModel:
		f.lineReads.Add(1)
		current := f.inFlight.Add(1)
		defer f.inFlight.Add(-1)
		for {
			seen := f.maxInFlight.Load()
			if current <= seen || f.maxInFlight.CompareAndSwap(seen, current) {
				break
			}
		}
		if f.delay > 0 {
			time.Sleep(f.delay)
		}

		stationID := ids[0] / 100
		if f.failLines[stationID] {
			return fmt.Errorf("station %d lines unavailable", stationID)
		}
		for _, station := range f.stations {
			if station.ID != stationID {
				continue
			}
			for index, free := range station.Lines {
				records = append(records, map[string]any{"id": lineID(station.ID, index), "is_free": free})
			}
		}
	default:
		return fmt.Errorf("unknown model %s", model)
	}

	encoded, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return json.Unmarshal(encoded, result)
}

func sampleStations() []fakeStation {
	return []fakeStation{
		{ID: 1, Name: "Parque Central", Latitude: -1.24, Longitude: -78.62, Lines: []bool{true, false, true}},
		{ID: 2, Name: false, Latitude: false, Longitude: false, Lines: []bool{false, false}},
		{ID: 3, Name: "Terminal", Latitude: -1.25, Longitude: -78.61, Lines: []bool{}},
	}
}

func TestStationInformation(t *testing.T) {
	client := &fakeRecordClient{stations: sampleStations()}
	directory := NewDirectory(client, WithRentalURIBase("https://rent.example/app"))

	information := directory.StationInformation(context.Background())

	require.Len(t, information, 3)

	assert.Equal(t, "1", information[0].StationID)
	assert.Equal(t, "Parque Central", information[0].Name)
	assert.Equal(t, -1.24, information[0].Lat)
	assert.Equal(t, -78.62, information[0].Lon)
	assert.False(t, information[0].IsVirtualStation)
	assert.Equal(t, "https://rent.example/app?sid=1&platform=android", information[0].RentalURIs.Android)
	assert.Equal(t, "https://rent.example/app?sid=1&platform=ios", information[0].RentalURIs.IOS)
	assert.Equal(t, "https://rent.example/app?sid=1", information[0].RentalURIs.Web)

	assert.Equal(t, "Unnamed Station", information[1].Name)
	assert.Equal(t, 0.0, information[1].Lat)
	assert.Equal(t, 0.0, information[1].Lon)
}

func TestStationCapacityMatchesLineCount(t *testing.T) {
	stations := sampleStations()
	directory := NewDirectory(&fakeRecordClient{stations: stations})

	information := directory.StationInformation(context.Background())

	require.Len(t, information, len(stations))
	for index, station := range stations {
		assert.Equal(t, len(station.Lines), information[index].Capacity)
	}
}

func TestStationInformationIsComputedOnce(t *testing.T) {
	client := &fakeRecordClient{stations: sampleStations()}
	directory := NewDirectory(client)
	ctx := context.Background()

	first := directory.StationInformation(ctx)
	client.stations = append(client.stations, fakeStation{ID: 4, Name: "New"})
	second := directory.StationInformation(ctx)

	assert.Equal(t, first, second)
	assert.Len(t, second, 3)
	assert.Equal(t, int32(1), client.searches.Load())
	assert.Equal(t, int32(1), client.stationReads.Load())
}

func TestConcurrentFirstAccessSearchesOnce(t *testing.T) {
	client := &fakeRecordClient{stations: sampleStations()}
	directory := NewDirectory(client)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			directory.StationInformation(context.Background())
			directory.ListStationIDs(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), client.searches.Load())
	assert.Equal(t, int32(1), client.stationReads.Load())
}

func TestStationStatus(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	client := &fakeRecordClient{stations: sampleStations()}
	directory := NewDirectory(client, WithClock(func() time.Time { return now }))

	statuses := directory.StationStatus(context.Background())

	require.Len(t, statuses, 3)

	assert.Equal(t, "1", statuses[0].StationID)
	assert.Equal(t, 2, statuses[0].NumBikesAvailable)
	assert.Equal(t, 1, statuses[0].NumBikesDisabled)
	assert.Equal(t, 1, statuses[0].NumDocksAvailable)
	assert.Equal(t, 0, statuses[0].NumDocksDisabled)
	assert.True(t, statuses[0].IsInstalled)
	assert.True(t, statuses[0].IsRenting)
	assert.True(t, statuses[0].IsReturning)
	assert.Equal(t, now.Unix(), statuses[0].LastReported)

	assert.Equal(t, 0, statuses[1].NumBikesAvailable)
	assert.Equal(t, 2, statuses[1].NumBikesDisabled)

	assert.Equal(t, 0, statuses[2].NumBikesAvailable)
	assert.Equal(t, 0, statuses[2].NumDocksAvailable)
}

func TestStationStatusInvariants(t *testing.T) {
	stations := []fakeStation{}
	for id := int64(1); id <= 25; id++ {
		lines := []bool{}
		for index := 0; index < int(id%7); index++ {
			lines = append(lines, (int(id)+index)%3 == 0)
		}
		stations = append(stations, fakeStation{ID: id, Name: fmt.Sprint(id), Lines: lines})
	}
	directory := NewDirectory(&fakeRecordClient{stations: stations})

	statuses := directory.StationStatus(context.Background())

	require.Len(t, statuses, len(stations))
	for index, status := range statuses {
		totalDocks := len(stations[index].Lines)
		assert.Equal(t, totalDocks, status.NumBikesAvailable+status.NumBikesDisabled)
		assert.Equal(t, totalDocks-status.NumBikesAvailable, status.NumDocksAvailable)
	}
}

func TestStationStatusIsReadOnEveryCall(t *testing.T) {
	client := &fakeRecordClient{stations: sampleStations()}
	directory := NewDirectory(client)
	ctx := context.Background()

	directory.StationStatus(ctx)
	client.stations[0].Lines = []bool{false, false, false}
	statuses := directory.StationStatus(ctx)

	assert.Equal(t, 0, statuses[0].NumBikesAvailable)
	assert.Equal(t, int32(1), client.searches.Load())
	assert.Equal(t, int32(2), client.stationReads.Load())
}

func TestStationStatusOmitsFailedStations(t *testing.T) {
	stations := []fakeStation{}
	for id := int64(1); id <= 10; id++ {
		stations = append(stations, fakeStation{ID: id, Lines: []bool{true, false}})
	}
	client := &fakeRecordClient{stations: stations, failLines: map[int64]bool{4: true}}
	directory := NewDirectory(client)

	statuses := directory.StationStatus(context.Background())

	require.Len(t, statuses, 9)
	ids := []string{}
	for _, status := range statuses {
		ids = append(ids, status.StationID)
	}
	assert.Equal(t, []string{"1", "2", "3", "5", "6", "7", "8", "9", "10"}, ids)
}

func TestStationStatusBoundedParallelism(t *testing.T) {
	stations := []fakeStation{}
	for id := int64(1); id <= 12; id++ {
		stations = append(stations, fakeStation{ID: id, Lines: []bool{true}})
	}
	client := &fakeRecordClient{stations: stations, delay: 20 * time.Millisecond}
	directory := NewDirectory(client, WithWorkers(3))

	statuses := directory.StationStatus(context.Background())

	assert.Len(t, statuses, 12)
	assert.LessOrEqual(t, client.maxInFlight.Load(), int32(3))
	assert.Equal(t, int32(12), client.lineReads.Load())
}

func TestNoStations(t *testing.T) {
	directory := NewDirectory(&fakeRecordClient{})
	ctx := context.Background()

	information := directory.StationInformation(ctx)
	statuses := directory.StationStatus(ctx)

	assert.NotNil(t, information)
	assert.Empty(t, information)
	assert.NotNil(t, statuses)
	assert.Empty(t, statuses)
}

func TestUnreachableRecordSystemDegradesToEmpty(t *testing.T) {
	client := &fakeRecordClient{stations: sampleStations(), searchErr: errors.New("connection refused")}
	directory := NewDirectory(client)
	ctx := context.Background()

	assert.Empty(t, directory.ListStationIDs(ctx))
	assert.Empty(t, directory.StationInformation(ctx))
	assert.Empty(t, directory.StationStatus(ctx))
}

func TestStationReadFailureDegradesToEmpty(t *testing.T) {
	client := &fakeRecordClient{stations: sampleStations(), readErr: errors.New("timeout")}
	directory := NewDirectory(client)
	ctx := context.Background()

	assert.Empty(t, directory.StationStatus(ctx))
	assert.Empty(t, directory.StationInformation(ctx))
}
