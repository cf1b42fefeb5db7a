package translator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadStoreFromBatch(t *testing.T) {
	store, err := loadStore([]byte(`{"positions": [{"deviceId": 1, "uniqueId": "V1"}, {"deviceId": 2}]}`))
	require.NoError(t, err)

	assert.Equal(t, 2, store.Len())
}

func TestLoadStoreFromPersistedTable(t *testing.T) {
	store, err := loadStore([]byte(`{
		"1": {"deviceId": 1, "uniqueId": "V1", "status": "online"},
		"7": {"deviceId": 7, "uniqueId": "V7", "status": "offline"}
	}`))
	require.NoError(t, err)

	assert.Equal(t, 2, store.Len())
}

func TestLoadStoreRejectsGarbage(t *testing.T) {
	_, err := loadStore([]byte(`[1, 2, 3]`))
	assert.Error(t, err)
}
