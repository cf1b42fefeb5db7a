// Package systemconfig loads the static description of the bike share system: metadata,
// rental apps, the vehicle type catalogue and the URIs feeds are published under.
package systemconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type RentalApp struct {
	DiscoveryURI string `yaml:"discovery_uri" validate:"required"`
	StoreURI     string `yaml:"store_uri" validate:"required,url"`
}

type RentalApps struct {
	Android *RentalApp `yaml:"android"`
	IOS     *RentalApp `yaml:"ios"`
}

type System struct {
	ID         string     `yaml:"id" validate:"required"`
	Name       string     `yaml:"name" validate:"required"`
	Language   string     `yaml:"language" validate:"required"`
	Timezone   string     `yaml:"timezone" validate:"required"`
	URL        string     `yaml:"url" validate:"omitempty,url"`
	LicenseURL string     `yaml:"license_url" validate:"omitempty,url"`
	RentalApps RentalApps `yaml:"rental_apps"`
}

type VehicleType struct {
	ID             string `yaml:"id" validate:"required"`
	FormFactor     string `yaml:"form_factor" validate:"required,oneof=bicycle cargo_bicycle car moped scooter other"`
	PropulsionType string `yaml:"propulsion_type" validate:"required,oneof=human electric_assist electric combustion"`
	Name           string `yaml:"name"`
	MaxRangeMeters int    `yaml:"max_range_meters" validate:"gte=0"`
}

type Config struct {
	System System `yaml:"system" validate:"required"`

	// BaseURL is where the feeds are reachable, used to build gbfs.json
	BaseURL string `yaml:"base_url" validate:"required,url"`
	// RentalURIBase is templated with a station id into station rental_uris
	RentalURIBase string `yaml:"rental_uri_base" validate:"required,url"`

	VehicleTypes []VehicleType `yaml:"vehicle_types" validate:"dive"`

	DiscoveryTTL   int `yaml:"discovery_ttl" validate:"gte=0"`
	SystemInfoTTL  int `yaml:"system_information_ttl" validate:"gte=0"`
	StationFeedTTL int `yaml:"station_feed_ttl" validate:"gte=0"`
}

// Default describes the Ambato system served when no configuration file is present
func Default() *Config {
	return &Config{
		System: System{
			ID:         "1",
			Name:       "Ambato",
			Language:   "es",
			Timezone:   "America/Guayaquil",
			URL:        "https://www.ejemplo.ec",
			LicenseURL: "https://www.ejemplo.ec/license",
			RentalApps: RentalApps{
				Android: &RentalApp{
					DiscoveryURI: "com.abcrental.android://",
					StoreURI:     "https://play.google.com/store/apps/details?id=com.abcrental.android",
				},
				IOS: &RentalApp{
					DiscoveryURI: "com.abcrental.ios://",
					StoreURI:     "https://apps.apple.com/app/apple-store/id123456789",
				},
			},
		},
		BaseURL:       "http://localhost:8080/gbfs",
		RentalURIBase: "https://example.com/app",
		VehicleTypes: []VehicleType{
			{ID: "1", FormFactor: "bicycle", PropulsionType: "human", Name: "Ambato byke"},
			{ID: "2", FormFactor: "scooter", PropulsionType: "electric", Name: "Abato Scooter", MaxRangeMeters: 12345},
			{ID: "3", FormFactor: "car", PropulsionType: "combustion", Name: "Four-door Sedan", MaxRangeMeters: 523992},
		},
		DiscoveryTTL:   30,
		SystemInfoTTL:  30,
		StationFeedTTL: 0,
	}
}

// Load reads path on top of the defaults. A missing file is not an error, the defaults are
// returned as they are.
func Load(path string) (*Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Info().Str("path", path).Msg("No system configuration file, using defaults")
		return config, nil
	} else if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}

	config.BaseURL = strings.TrimSuffix(config.BaseURL, "/")

	log.Info().Str("path", path).Str("system", config.System.Name).Msg("Loaded system configuration")

	return config, nil
}

func (c *Config) Validate() error {
	return validator.New().Struct(c)
}
