package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRateLimitShedsBurst(t *testing.T) {
	r := gin.New()
	r.POST("/contact", RateLimit(RateLimitConfig{RPS: 0.001, Burst: 2}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/contact", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}

func TestClientIDIssuesAndReusesCookie(t *testing.T) {
	r := gin.New()
	r.Use(ClientID(false))
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetClientID(c)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	issued := w.Body.String()
	require.NoError(t, uuid.Validate(issued))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, ClientCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, issued, w.Body.String())
	assert.Empty(t, w.Result().Cookies())
}

func TestClientIDReplacesForgedCookie(t *testing.T) {
	r := gin.New()
	r.Use(ClientID(false))
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetClientID(c)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: ClientCookie, Value: "../../etc/passwd"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.NoError(t, uuid.Validate(w.Body.String()))
}

func TestVisitorTrackingSkipsUntrackedRequests(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	done := make(chan struct{}, 10)
	record := func(_, _, path string) {
		mu.Lock()
		paths = append(paths, path)
		mu.Unlock()
		done <- struct{}{}
	}

	r := gin.New()
	r.Use(VisitorTracking(record))
	r.GET("/*any", func(c *gin.Context) { c.Status(http.StatusOK) })

	requests := []struct {
		path string
		dnt  bool
	}{
		{"/", false},
		{"/static/site.css", false},
		{"/admin/dashboard", false},
		{"/", true},
		{"/education-content", false},
	}
	for _, rq := range requests {
		req := httptest.NewRequest(http.MethodGet, rq.path, nil)
		if rq.dnt {
			req.Header.Set("DNT", "1")
		}
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("visitor not recorded")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"/", "/education-content"}, paths)
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}
