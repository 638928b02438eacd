package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testRegistrar struct {
	prefix string
}

func (r *testRegistrar) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET(r.prefix+"/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)
	r.Register(&testRegistrar{prefix: "/invoices"})
	r.Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/invoices/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}

func TestRouterDefaultVersion(t *testing.T) {
	engine := gin.New()
	NewRouter(engine).Register(&testRegistrar{prefix: "/invoices"}).Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest("GET", "/api/v2/invoices/ping", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouterWithAPIVersion(t *testing.T) {
	engine := gin.New()
	NewRouter(engine, WithAPIVersion("v2")).Register(&testRegistrar{prefix: "/invoices"}).Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest("GET", "/api/v2/invoices/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouterRegistersMultiple(t *testing.T) {
	engine := gin.New()
	NewRouter(engine).
		Register(&testRegistrar{prefix: "/invoices"}, &testRegistrar{prefix: "/billing"}).
		Setup()

	for _, path := range []string{"/api/v1/invoices/ping", "/api/v1/billing/ping"} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}
