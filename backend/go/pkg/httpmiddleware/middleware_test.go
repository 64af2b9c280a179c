package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pdfrag/backend/go/pkg/logger"
	"pdfrag/backend/go/pkg/ratelimiter"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/documents", func(c *gin.Context) {
		LoggerFrom(c, logger.Nop()).Info("listing")
		c.String(http.StatusOK, "docs")
	})
	return r
}

func do(r http.Handler, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAPIKey(t *testing.T) {
	r := newEngine(APIKey("secret", "/health"))

	assert.Equal(t, http.StatusUnauthorized, do(r, "/documents", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/documents", map[string]string{HeaderAPIKey: "nope"}).Code)
	assert.Equal(t, http.StatusOK, do(r, "/documents", map[string]string{HeaderAPIKey: "secret"}).Code)
	assert.Equal(t, http.StatusOK, do(r, "/health", nil).Code)

	open := newEngine(APIKey(""))
	assert.Equal(t, http.StatusOK, do(open, "/documents", nil).Code)
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	r := newEngine(RequestLogger(logger.Nop()))

	w := do(r, "/documents", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, w.Header().Get(HeaderRequestID), 36)

	w = do(r, "/documents", map[string]string{HeaderRequestID: "trace-1"})
	assert.Equal(t, "trace-1", w.Header().Get(HeaderRequestID))
}

func TestRateLimitPerClient(t *testing.T) {
	r := newEngine(RateLimit(ratelimiter.NewKeyed(0.001, 1, 0)))

	assert.Equal(t, http.StatusOK, do(r, "/documents", map[string]string{HeaderAPIKey: "a"}).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, "/documents", map[string]string{HeaderAPIKey: "a"}).Code)
	assert.Equal(t, http.StatusOK, do(r, "/documents", map[string]string{HeaderAPIKey: "b"}).Code)
}

func TestTimeoutSetsDeadline(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(time.Minute))
	r.GET("/x", func(c *gin.Context) {
		_, ok := c.Request.Context().Deadline()
		c.JSON(http.StatusOK, gin.H{"deadline": ok})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.JSONEq(t, `{"deadline":true}`, w.Body.String())
}
