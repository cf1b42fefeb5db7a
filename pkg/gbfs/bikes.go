package gbfs

type FreeBike struct {
	BikeID        string  `json:"bike_id"`
	Lat           float64 `json:"lat"`
	Lon           float64 `json:"lon"`
	IsReserved    bool    `json:"is_reserved"`
	IsDisabled    bool    `json:"is_disabled"`
	VehicleTypeID string  `json:"vehicle_type_id"`
	LastReported  int64   `json:"last_reported"`
}

type FreeBikeStatusData struct {
	Bikes []FreeBike `json:"bikes"`
}

type FreeBikeStatusFeed = Envelope[FreeBikeStatusData]
