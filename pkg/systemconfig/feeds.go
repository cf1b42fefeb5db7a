package systemconfig

import "github.com/travigo/gbfs/pkg/gbfs"

// Feed names and the paths they are served under
var publishedFeeds = []struct {
	Name string
	Path string
}{
	{"system_information", "/system-information"},
	{"station_information", "/station-information"},
	{"station_status", "/station-status"},
	{"free_bike_status", "/free-bike-status"},
	{"vehicle_types", "/vehicle-types"},
}

func (c *Config) DiscoveryData() gbfs.DiscoveryData {
	feeds := make([]gbfs.Feed, 0, len(publishedFeeds))
	for _, feed := range publishedFeeds {
		feeds = append(feeds, gbfs.Feed{Name: feed.Name, URL: c.BaseURL + feed.Path})
	}

	return gbfs.DiscoveryData{
		c.System.Language: gbfs.LanguageFeeds{Feeds: feeds},
	}
}

func (c *Config) SystemInformationData() gbfs.SystemInformation {
	information := gbfs.SystemInformation{
		SystemID:   c.System.ID,
		Language:   c.System.Language,
		Name:       c.System.Name,
		Timezone:   c.System.Timezone,
		URL:        c.System.URL,
		LicenseURL: c.System.LicenseURL,
	}

	apps := c.System.RentalApps
	if apps.Android != nil || apps.IOS != nil {
		information.RentalApps = &gbfs.RentalApps{
			Android: rentalApp(apps.Android),
			IOS:     rentalApp(apps.IOS),
		}
	}

	return information
}

func rentalApp(app *RentalApp) *gbfs.RentalApp {
	if app == nil {
		return nil
	}

	return &gbfs.RentalApp{DiscoveryURI: app.DiscoveryURI, StoreURI: app.StoreURI}
}

func (c *Config) VehicleTypesData() gbfs.VehicleTypesData {
	vehicleTypes := make([]gbfs.VehicleType, 0, len(c.VehicleTypes))
	for _, vehicleType := range c.VehicleTypes {
		vehicleTypes = append(vehicleTypes, gbfs.VehicleType{
			VehicleTypeID:  vehicleType.ID,
			FormFactor:     vehicleType.FormFactor,
			PropulsionType: vehicleType.PropulsionType,
			Name:           vehicleType.Name,
			MaxRangeMeters: vehicleType.MaxRangeMeters,
		})
	}

	return gbfs.VehicleTypesData{VehicleTypes: vehicleTypes}
}
