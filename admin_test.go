package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Zachkp/portfolio/internal/contact"
	"github.com/Zachkp/portfolio/internal/database"
	"github.com/Zachkp/portfolio/internal/docstore"
	"github.com/Zachkp/portfolio/internal/kv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func login(t *testing.T, s *testSite, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func adminRequest(s *testSite, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.AddCookie(&http.Cookie{Name: adminCookie, Value: s.app.admin.token})
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestAdminLogin(t *testing.T) {
	s := newTestSite(t)

	w := login(t, s, "admin", "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid credentials")

	w = login(t, s, "admin", "secret")
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin/dashboard", w.Header().Get("Location"))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, adminCookie, cookies[0].Name)
	assert.Equal(t, s.app.admin.token, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestAdminRoutesNeedToken(t *testing.T) {
	s := newTestSite(t)

	for _, path := range []string{"/admin/dashboard", "/admin/visitors", "/admin/api/stats"} {
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusFound, w.Code, path)
		assert.Equal(t, "/admin/login", w.Header().Get("Location"), path)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: adminCookie, Value: "forged"})
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusFound, w.Code)
}

// newInboxSite stores contact messages in the site database so the
// dashboard can list them.
func newInboxSite(t *testing.T) (*testSite, *database.Visitors) {
	t.Helper()
	s := newTestSite(t)

	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	visitors := database.NewVisitors(db)
	s.app.visitors = visitors
	require.NoError(t, docstore.NewSQLite(db).Create(context.Background(), contact.Collection, contact.Document{
		Name:    "Jo",
		Email:   "jo@x.org",
		Message: "Hello from the inbox test.",
	}))
	return s, visitors
}

func TestAdminDashboardListsMessages(t *testing.T) {
	s, visitors := newInboxSite(t)
	require.NoError(t, visitors.Record(context.Background(), s.app.admin.hashIP("203.0.113.9"), "ua", "/", testEpoch))

	w := adminRequest(s, http.MethodGet, "/admin/dashboard")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Total visitors: 1")
	assert.Contains(t, body, "Messages: 1")
	assert.Contains(t, body, "Hello from the inbox test.")

	w = adminRequest(s, http.MethodGet, "/admin/api/stats")
	require.Equal(t, http.StatusOK, w.Code)
	var stats database.AdminStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.EqualValues(t, 1, stats.UniqueVisitors)
	require.Len(t, stats.RecentMessages, 1)

	w = adminRequest(s, http.MethodGet, "/admin/export/stats")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "admin-stats.json")
}

func TestAdminDeleteMessage(t *testing.T) {
	s, visitors := newInboxSite(t)
	messages, err := visitors.Messages(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	path := "/admin/messages/" + strconv.FormatInt(messages[0].ID, 10)

	w := adminRequest(s, http.MethodDelete, path)
	assert.Equal(t, http.StatusOK, w.Code)

	w = adminRequest(s, http.MethodDelete, path)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = adminRequest(s, http.MethodDelete, "/admin/messages/abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVisitorRetention(t *testing.T) {
	s, visitors := newInboxSite(t)
	ctx := context.Background()
	require.NoError(t, visitors.Record(ctx, "old", "ua", "/", testEpoch.Add(-visitorRetention-time.Hour)))
	require.NoError(t, visitors.Record(ctx, "new", "ua", "/", testEpoch.Add(-time.Hour)))

	s.app.cleanupVisitors(ctx)

	recent, err := visitors.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "new", recent[0].HashedIP)
}

func TestHashIPIsStablePerSalt(t *testing.T) {
	s := newTestSite(t)
	a := s.app.admin

	assert.Equal(t, a.hashIP("203.0.113.9"), a.hashIP("203.0.113.9"))
	assert.NotEqual(t, a.hashIP("203.0.113.9"), a.hashIP("203.0.113.10"))
	assert.Len(t, a.hashIP("203.0.113.9"), 16)
}

func TestVisitorTrackingRecordsHashedIP(t *testing.T) {
	s, visitors := newInboxSite(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:1234"
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	want := s.app.admin.hashIP("203.0.113.9")
	assert.Eventually(t, func() bool {
		recent, err := visitors.Recent(context.Background(), 10)
		return err == nil && len(recent) == 1 && recent[0].HashedIP == want
	}, time.Second, 10*time.Millisecond)
}

func TestSweepCountersDropsExpiredWindows(t *testing.T) {
	s := newTestSite(t)
	s.get("/")
	s.post("/contact", goodForm)

	counters := s.app.counters.(*kv.Memory)
	require.Equal(t, 3, counters.Len())

	s.clock.Advance(contact.Window - time.Minute)
	s.app.sweepCounters(context.Background())
	assert.Equal(t, 3, counters.Len())

	s.clock.Advance(2 * time.Minute)
	s.app.sweepCounters(context.Background())
	assert.Equal(t, 0, counters.Len())
}
