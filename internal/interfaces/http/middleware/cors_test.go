package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func okHandler(c *gin.Context) { c.String(http.StatusOK, "ok") }

// through serves req with mw in front of final.
func through(mw, final gin.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	router := gin.New()
	router.Use(mw)
	router.GET("/recipes", final)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func corsRequest(method, origin string) *http.Request {
	req := httptest.NewRequest(method, "/recipes", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	return req
}

func TestCORS(t *testing.T) {
	listed := CORSConfig{
		AllowOrigins:     []string{"http://localhost:3000", "http://example.com"},
		AllowMethods:     []string{"GET", "POST", "DELETE"},
		AllowHeaders:     []string{"Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           90 * time.Minute,
	}

	tests := []struct {
		name        string
		cfg         CORSConfig
		method      string
		origin      string
		wantStatus  int
		wantOrigin  string
		wantCreds   string
		wantVary    string
		wantMethods string
	}{
		{"defaults send nothing", DefaultCORSConfig(), http.MethodGet, "http://evil.test", http.StatusOK, "", "", "", ""},
		{"same origin", DefaultCORSConfig(), http.MethodGet, "", http.StatusOK, "", "", "", ""},
		{"preflight without allowed origin", DefaultCORSConfig(), http.MethodOptions, "http://evil.test", http.StatusNoContent, "", "", "", ""},
		{"listed origin", listed, http.MethodGet, "http://example.com", http.StatusOK, "http://example.com", "true", "Origin", "GET, POST, DELETE"},
		{"unlisted origin", listed, http.MethodGet, "http://other.test", http.StatusOK, "", "", "", ""},
		{"listed preflight", listed, http.MethodOptions, "http://localhost:3000", http.StatusNoContent, "http://localhost:3000", "true", "Origin", "GET, POST, DELETE"},
		{"wildcard drops credentials", CORSConfig{AllowOrigins: []string{"*"}, AllowCredentials: true}, http.MethodGet, "http://any.test", http.StatusOK, "*", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := through(CORS(tt.cfg), okHandler, corsRequest(tt.method, tt.origin))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.wantCreds, w.Header().Get("Access-Control-Allow-Credentials"))
			assert.Equal(t, tt.wantVary, w.Header().Get("Vary"))
			assert.Equal(t, tt.wantMethods, w.Header().Get("Access-Control-Allow-Methods"))
		})
	}
}

func TestCORS_FixedHeaders(t *testing.T) {
	w := through(CORS(CORSConfig{
		AllowOrigins:  []string{"http://localhost:3000"},
		AllowHeaders:  []string{"Content-Type", "X-Request-ID"},
		ExposeHeaders: []string{RequestIDHeader},
		MaxAge:        90 * time.Minute,
	}), okHandler, corsRequest(http.MethodOptions, "http://localhost:3000"))

	assert.Equal(t, "Content-Type, X-Request-ID", w.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, RequestIDHeader, w.Header().Get("Access-Control-Expose-Headers"))
	assert.Equal(t, "5400", w.Header().Get("Access-Control-Max-Age"))
}

func TestDefaultCORSConfig(t *testing.T) {
	cfg := DefaultCORSConfig()

	assert.Empty(t, cfg.AllowOrigins)
	assert.Contains(t, cfg.AllowMethods, http.MethodDelete)
	assert.Contains(t, cfg.ExposeHeaders, "Retry-After")
}
