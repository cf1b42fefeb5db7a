package odoo

import (
	"errors"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/travigo/gbfs/pkg/util"
)

type Config struct {
	URL      string
	DB       string
	Username string
	Password string

	Timeout time.Duration
}

const defaultTimeout = 10 * time.Second

var ErrNotConfigured = errors.New("GBFS_ODOO_URL is not set")

// ConfigFromEnvironment reads GBFS_ODOO_* variables. When GBFS_ODOO_ENV_FILE points at a
// dotenv file its values are loaded first, without overriding variables already set.
func ConfigFromEnvironment() (Config, error) {
	if envFile := os.Getenv("GBFS_ODOO_ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, err
		}
		log.Debug().Str("file", envFile).Msg("Loaded Odoo environment file")
	}

	config := Config{
		URL:      os.Getenv("GBFS_ODOO_URL"),
		DB:       os.Getenv("GBFS_ODOO_DB"),
		Username: os.Getenv("GBFS_ODOO_USERNAME"),
		Password: os.Getenv("GBFS_ODOO_PASSWORD"),
		Timeout:  util.GetEnvironmentDuration("GBFS_ODOO_TIMEOUT", defaultTimeout),
	}

	if config.URL == "" {
		return config, ErrNotConfigured
	}

	return config, nil
}
