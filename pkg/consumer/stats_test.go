package consumer

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/gbfs/pkg/redis_client"
)

func TestHealthHandler(t *testing.T) {
	server := miniredis.RunT(t)
	require.NoError(t, redis_client.ConnectWithOptions(&redis.Options{Addr: server.Addr()}))

	recorder := httptest.NewRecorder()
	NewHealthHandler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "OK", recorder.Body.String())

	server.Close()

	recorder = httptest.NewRecorder()
	NewHealthHandler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
}

func TestStatsHandler(t *testing.T) {
	server := miniredis.RunT(t)
	require.NoError(t, redis_client.ConnectWithOptions(&redis.Options{Addr: server.Addr()}))

	queue, err := redis_client.QueueConnection.OpenQueue("gbfs-positions")
	require.NoError(t, err)
	require.NoError(t, queue.Publish(`{"positions": []}`))

	response := httptest.NewRecorder()
	NewStatsHandler(redis_client.QueueConnection).ServeHTTP(response, httptest.NewRequest(http.MethodGet, "/gbfs-positions/stats", nil))

	body, err := io.ReadAll(response.Result().Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, response.Code)
	assert.Contains(t, string(body), "gbfs-positions")
}
