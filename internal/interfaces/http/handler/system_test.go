package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSystemRouter() *gin.Engine {
	router := gin.New()
	api := router.Group("/api/v1")
	NewSystemHandler().RegisterRoutes(api)
	return router
}

func TestSystemHandler_GetSystemInfo(t *testing.T) {
	router := newSystemRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/system/info", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var info SystemInfoResponse
	decodeData(t, w, &info)
	assert.Equal(t, "Invoicing Backend API", info.Name)
	assert.NotEmpty(t, info.GoVersion)
	assert.NotEmpty(t, info.Uptime)
}

func TestSystemHandler_Ping(t *testing.T) {
	router := newSystemRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/system/ping", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var pong PingResponse
	decodeData(t, w, &pong)
	assert.Equal(t, "pong", pong.Message)
	assert.NotEmpty(t, pong.Timestamp)
}
