package odoo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromEnvironment(t *testing.T) {
	t.Setenv("GBFS_ODOO_URL", "http://odoo.local/jsonrpc")
	t.Setenv("GBFS_ODOO_DB", "municipal")
	t.Setenv("GBFS_ODOO_USERNAME", "admin")
	t.Setenv("GBFS_ODOO_PASSWORD", "secret")
	t.Setenv("GBFS_ODOO_TIMEOUT", "3s")

	config, err := ConfigFromEnvironment()
	require.NoError(t, err)

	assert.Equal(t, Config{
		URL:      "http://odoo.local/jsonrpc",
		DB:       "municipal",
		Username: "admin",
		Password: "secret",
		Timeout:  3 * time.Second,
	}, config)
}

func TestConfigFromEnvironmentMissingURL(t *testing.T) {
	t.Setenv("GBFS_ODOO_URL", "")

	_, err := ConfigFromEnvironment()
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestConfigFromEnvironmentFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("GBFS_ODOO_URL=http://from-file/jsonrpc\nGBFS_ODOO_DB=filedb\n"), 0o600))

	t.Setenv("GBFS_ODOO_ENV_FILE", envFile)
	// godotenv does not override variables that are already set
	t.Setenv("GBFS_ODOO_DB", "environment")
	t.Setenv("GBFS_ODOO_URL", "")
	os.Unsetenv("GBFS_ODOO_URL")

	config, err := ConfigFromEnvironment()
	require.NoError(t, err)

	assert.Equal(t, "http://from-file/jsonrpc", config.URL)
	assert.Equal(t, "environment", config.DB)
	assert.Equal(t, defaultTimeout, config.Timeout)
}
