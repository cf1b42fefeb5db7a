package gbfs

type Feed struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type LanguageFeeds struct {
	Feeds []Feed `json:"feeds"`
}

// DiscoveryData is keyed by language code
type DiscoveryData map[string]LanguageFeeds

type RentalApp struct {
	DiscoveryURI string `json:"discovery_uri"`
	StoreURI     string `json:"store_uri"`
}

type RentalApps struct {
	Android *RentalApp `json:"android,omitempty"`
	IOS     *RentalApp `json:"ios,omitempty"`
}

type SystemInformation struct {
	SystemID   string      `json:"system_id"`
	Language   string      `json:"language"`
	Name       string      `json:"name"`
	Timezone   string      `json:"timezone"`
	URL        string      `json:"url,omitempty"`
	LicenseURL string      `json:"license_url,omitempty"`
	RentalApps *RentalApps `json:"rental_apps,omitempty"`
}

type VehicleType struct {
	VehicleTypeID  string `json:"vehicle_type_id"`
	FormFactor     string `json:"form_factor"`
	PropulsionType string `json:"propulsion_type"`
	Name           string `json:"name,omitempty"`
	MaxRangeMeters int    `json:"max_range_meters,omitempty"`
}

type VehicleTypesData struct {
	VehicleTypes []VehicleType `json:"vehicle_types"`
}
