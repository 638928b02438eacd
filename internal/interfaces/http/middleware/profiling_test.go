package middleware

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestProfilingWithConfig_Disabled(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(ProfilingWithConfig(ProfilingConfig{Enabled: false}))
	router.GET("/invoices", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	assert.Equal(t, http.StatusOK, serveGET(router, "/invoices").Code)
}

func TestProfilingWithConfig_SkipPaths(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(ProfilingWithConfig(DefaultProfilingConfig()))
	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	router.GET("/swagger/index.html", func(c *gin.Context) {
		c.String(http.StatusOK, "docs")
	})

	for _, path := range []string{"/health", "/swagger/index.html"} {
		assert.Equal(t, http.StatusOK, serveGET(router, path).Code)
	}
}

func TestProfilingWithConfig_LabeledRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(Profiling())
	router.GET("/api/v1/invoices/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
	})

	assert.NotPanics(t, func() {
		assert.Equal(t, http.StatusOK, serveGET(router, "/api/v1/invoices/42").Code)
	})
}

func TestControllerFromRoute(t *testing.T) {
	cases := []struct {
		route string
		want  string
	}{
		{"/api/v1/invoices/:id", "invoices"},
		{"/api/v1/invoices/:id/payments", "invoices"},
		{"/api/v2/payments", "payments"},
		{"/health", "health"},
		{"", ""},
		{"/api/v1", ""},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, controllerFromRoute(tc.route), "route %q", tc.route)
	}
}

func TestIsVersionSegment(t *testing.T) {
	assert.True(t, isVersionSegment("v1"))
	assert.True(t, isVersionSegment("V12"))
	assert.False(t, isVersionSegment("v"))
	assert.False(t, isVersionSegment("version"))
	assert.False(t, isVersionSegment("invoices"))
}
