package gbfs

type RentalURIs struct {
	Android string `json:"android"`
	IOS     string `json:"ios"`
	Web     string `json:"web"`
}

type StationInformation struct {
	StationID        string     `json:"station_id"`
	Name             string     `json:"name"`
	Lat              float64    `json:"lat"`
	Lon              float64    `json:"lon"`
	Capacity         int        `json:"capacity"`
	IsVirtualStation bool       `json:"is_virtual_station"`
	RentalURIs       RentalURIs `json:"rental_uris"`
}

type StationInformationData struct {
	Stations []StationInformation `json:"stations"`
}

// StationStatus counts docks from the record system's point of view: a free line holds an
// available bike, anything else is reported as a disabled bike.
type StationStatus struct {
	StationID         string `json:"station_id"`
	NumBikesAvailable int    `json:"num_bikes_available"`
	NumBikesDisabled  int    `json:"num_bikes_disabled"`
	NumDocksAvailable int    `json:"num_docks_available"`
	NumDocksDisabled  int    `json:"num_docks_disabled"`
	IsInstalled       bool   `json:"is_installed"`
	IsRenting         bool   `json:"is_renting"`
	IsReturning       bool   `json:"is_returning"`
	LastReported      int64  `json:"last_reported"`
}

type StationStatusData struct {
	Stations []StationStatus `json:"stations"`
}
