package systemconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	config, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	assert.Equal(t, Default(), config)
	assert.NoError(t, config.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
system:
  id: "riobamba"
  name: Riobamba Bici
  language: es
  timezone: America/Guayaquil
base_url: https://gbfs.example.ec/gbfs/
rental_uri_base: https://app.example.ec/rent
vehicle_types:
  - id: "1"
    form_factor: bicycle
    propulsion_type: electric_assist
    name: E-Bici
`)

	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "riobamba", config.System.ID)
	assert.Equal(t, "https://gbfs.example.ec/gbfs", config.BaseURL)
	assert.Equal(t, "https://app.example.ec/rent", config.RentalURIBase)
	require.Len(t, config.VehicleTypes, 1)
	assert.Equal(t, "electric_assist", config.VehicleTypes[0].PropulsionType)
	assert.Equal(t, 30, config.DiscoveryTTL)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := writeConfig(t, `
base_url: not a url
vehicle_types:
  - id: "1"
    form_factor: hovercraft
    propulsion_type: human
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "system: [unterminated"))
	assert.Error(t, err)
}

func TestDiscovery(t *testing.T) {
	config := Default()

	discovery := config.DiscoveryData()

	require.Contains(t, discovery, "es")
	feeds := discovery["es"].Feeds
	require.Len(t, feeds, 5)
	assert.Equal(t, "system_information", feeds[0].Name)
	assert.Equal(t, "http://localhost:8080/gbfs/system-information", feeds[0].URL)
	assert.Equal(t, "free_bike_status", feeds[3].Name)
}

func TestSystemInformation(t *testing.T) {
	information := Default().SystemInformationData()

	assert.Equal(t, "1", information.SystemID)
	assert.Equal(t, "Ambato", information.Name)
	require.NotNil(t, information.RentalApps)
	assert.Equal(t, "com.abcrental.android://", information.RentalApps.Android.DiscoveryURI)
	assert.Equal(t, "https://apps.apple.com/app/apple-store/id123456789", information.RentalApps.IOS.StoreURI)
}

func TestVehicleTypes(t *testing.T) {
	vehicleTypes := Default().VehicleTypesData()

	require.Len(t, vehicleTypes.VehicleTypes, 3)
	assert.Equal(t, "bicycle", vehicleTypes.VehicleTypes[0].FormFactor)
	assert.Equal(t, 523992, vehicleTypes.VehicleTypes[2].MaxRangeMeters)
}
