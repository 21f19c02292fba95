package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jwalitptl/medbot/pkg/errors"
	"github.com/jwalitptl/medbot/pkg/logger"
)

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(mw...)
	return engine
}

func serve(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestRequestID(t *testing.T) {
	engine := newEngine(RequestID())
	engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextRequestID))
	})

	w := serve(engine, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(w.Header().Get(HeaderXRequestID))
	assert.NoError(t, err)
	assert.Equal(t, w.Header().Get(HeaderXRequestID), w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXRequestID, "abc-123")
	assert.Equal(t, "abc-123", serve(engine, req).Header().Get(HeaderXRequestID))

	req.Header.Set(HeaderXRequestID, strings.Repeat("a", 65))
	assert.NotEqual(t, strings.Repeat("a", 65), serve(engine, req).Header().Get(HeaderXRequestID))

	req.Header.Set(HeaderXRequestID, "has space")
	assert.NotEqual(t, "has space", serve(engine, req).Header().Get(HeaderXRequestID))
}

func TestErrorHandler(t *testing.T) {
	engine := newEngine(RequestID(), ErrorHandler(logger.Nop()))
	engine.GET("/missing", func(c *gin.Context) {
		_ = c.Error(apperrors.NotFound("prediction", nil))
	})
	engine.GET("/boom", func(c *gin.Context) {
		_ = c.Error(errors.New("secret dsn in message"))
	})
	engine.GET("/written", func(c *gin.Context) {
		c.JSON(http.StatusTeapot, gin.H{"ok": true})
		_ = c.Error(errors.New("late"))
	})

	w := serve(engine, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"status":"error","message":"prediction not found"}`, w.Body.String())

	w = serve(engine, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "secret")

	w = serve(engine, httptest.NewRequest(http.MethodGet, "/written", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewLogger(&logger.Config{Level: logger.DebugLevel, Output: &buf, JSON: true})

	engine := newEngine(RequestID(), Recovery(log))
	engine.GET("/", func(c *gin.Context) { panic("kaboom") })

	w := serve(engine, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"status":"error","message":"internal server error"}`, w.Body.String())
	assert.Contains(t, buf.String(), "kaboom")
	assert.Contains(t, buf.String(), "Request panic recovered")
}

func TestLoggerDoesNotLogBodies(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewLogger(&logger.Config{Level: logger.DebugLevel, Output: &buf, JSON: true})

	engine := newEngine(RequestID(), Logger(log))
	engine.POST("/chat", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/chat?x=1", strings.NewReader(`{"message":"I have chest pain"}`))
	serve(engine, req)

	out := buf.String()
	assert.Contains(t, out, `"path":"/chat?x=1"`)
	assert.Contains(t, out, `"status":200`)
	assert.NotContains(t, out, "chest pain")
}

func TestCORS(t *testing.T) {
	engine := newEngine(CORS(CORSConfig{
		AllowOrigins: []string{"https://app.example.com"},
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Content-Type"},
		MaxAge:       600,
	}))
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := serve(engine, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))
	assert.Equal(t, "GET, POST", w.Header().Get("Access-Control-Allow-Methods"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = serve(engine, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSWildcardWithCredentialsEchoesOrigin(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowCredentials = true

	assert.Equal(t, "https://a.example", allowedOrigin(cfg, "https://a.example"))
	assert.Equal(t, "*", allowedOrigin(DefaultCORSConfig(), "https://a.example"))
	assert.Equal(t, "*", allowedOrigin(DefaultCORSConfig(), ""))
}

func TestRateLimitIsPerClient(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 1, Burst: 2, TTL: time.Minute})
	engine := newEngine(rl.RateLimit())
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	request := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		return serve(engine, req).Code
	}

	assert.Equal(t, http.StatusOK, request("10.0.0.1"))
	assert.Equal(t, http.StatusOK, request("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, request("10.0.0.1"))
	assert.Equal(t, http.StatusOK, request("10.0.0.2"))
}

func TestSizeLimit(t *testing.T) {
	engine := newEngine(SizeLimit(SizeLimitConfig{MaxBodySize: 16, MaxHeaderSize: 1 << 10}))
	engine.POST("/", func(c *gin.Context) {
		var body map[string]string
		if err := c.ShouldBindJSON(&body); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusOK)
	})

	w := serve(engine, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":"b"}`)))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(engine, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"message":"far too long"}`)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	// Unknown length still hits the reader cap.
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"message":"far too long"}`))
	req.ContentLength = -1
	assert.Equal(t, http.StatusBadRequest, serve(engine, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	req.Header.Set("X-Big", strings.Repeat("x", 2<<10))
	assert.Equal(t, http.StatusRequestHeaderFieldsTooLarge, serve(engine, req).Code)
}

func TestTimeoutSetsDeadline(t *testing.T) {
	engine := newEngine(Timeout(TimeoutConfig{Duration: 50 * time.Millisecond}))
	engine.GET("/", func(c *gin.Context) {
		deadline, ok := c.Request.Context().Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(50*time.Millisecond), deadline, 50*time.Millisecond)

		<-c.Request.Context().Done()
		assert.ErrorIs(t, c.Request.Context().Err(), context.DeadlineExceeded)
		c.Status(http.StatusGatewayTimeout)
	})

	w := serve(engine, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestHeaders(t *testing.T) {
	engine := newEngine(SecurityHeaders(DefaultHeadersConfig()), Cache(NoStoreConfig()), Version("1.0"))
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	engine.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(engine, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "default-src 'none'; frame-ancestors 'none'", w.Header().Get("Content-Security-Policy"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"), "plain HTTP")
	assert.Equal(t, "private, no-store", w.Header().Get("Cache-Control"))
	assert.Equal(t, "1.0", w.Header().Get(HeaderAPIVersion))

	w = serve(engine, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestCacheMaxAge(t *testing.T) {
	engine := newEngine(Cache(CacheConfig{MaxAge: 3600, MustRevalidate: true, Vary: []string{"Accept"}}))
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(engine, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "public, max-age=3600, must-revalidate", w.Header().Get("Cache-Control"))
	assert.Equal(t, "Accept", w.Header().Get("Vary"))
}

type validated struct {
	Message string `json:"message" binding:"required,notblank"`
	Note    string `json:"note" binding:"max=3"`
}

func TestValidation(t *testing.T) {
	require.NoError(t, RegisterValidators())
	require.NoError(t, RegisterValidators())

	engine := newEngine()
	engine.POST("/", func(c *gin.Context) {
		var v validated
		if err := c.ShouldBindJSON(&v); err != nil {
			c.JSON(http.StatusBadRequest, ValidationErrors(err))
			return
		}
		c.Status(http.StatusOK)
	})

	w := serve(engine, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"message":" \t","note":"toolong"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `[
		{"field":"message","message":"field must not be blank"},
		{"field":"note","message":"value is too long"}
	]`, w.Body.String())

	w = serve(engine, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"message":"ok"}`)))
	assert.Equal(t, http.StatusOK, w.Code)

	errs := ValidationErrors(errors.New("unexpected EOF"))
	assert.Equal(t, []ValidationError{{Message: "unexpected EOF"}}, errs)
}
