package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Zachkp/portfolio/internal/clock"
	"github.com/Zachkp/portfolio/internal/config"
	"github.com/Zachkp/portfolio/internal/contact"
	"github.com/Zachkp/portfolio/internal/content"
	"github.com/Zachkp/portfolio/internal/database"
	"github.com/Zachkp/portfolio/internal/docstore"
	"github.com/Zachkp/portfolio/internal/kv"
	"github.com/Zachkp/portfolio/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testEpoch = time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

type testSite struct {
	app    *app
	router *gin.Engine
	clock  *clock.FakeClock
	sink   *docstore.Memory
	cookie *http.Cookie
}

func newTestSite(t *testing.T) *testSite {
	t.Helper()

	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	site, err := content.Default()
	require.NoError(t, err)

	clk := clock.Fake(testEpoch)
	sink := docstore.NewMemory(clk)
	cfg := &config.Config{
		Environment:     "test",
		AdminUsername:   "admin",
		AdminPassword:   "secret",
		VisitorHashSalt: "salt",
	}

	a, err := newApp(cfg, appDeps{
		DB:      db,
		Store:   kv.NewMemory(kv.WithClock(clk)),
		Sink:    sink,
		Clock:   clk,
		Content: site,
	})
	require.NoError(t, err)

	r, err := a.router()
	require.NoError(t, err)

	return &testSite{app: a, router: r, clock: clk, sink: sink}
}

// do sends the request with the site's client cookie, capturing the
// cookie the first time one is issued.
func (s *testSite) do(req *http.Request) *httptest.ResponseRecorder {
	req.Header.Set("DNT", "1")
	if s.cookie != nil {
		req.AddCookie(s.cookie)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.ClientCookie {
			s.cookie = c
		}
	}
	return w
}

func (s *testSite) get(path string) *httptest.ResponseRecorder {
	return s.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (s *testSite) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "test-agent")
	return s.do(req)
}

func contactForm(name, email, message string) url.Values {
	return url.Values{
		contact.FieldName:    {name},
		contact.FieldEmail:   {email},
		contact.FieldMessage: {message},
	}
}

var goodForm = contactForm("Jo", "Jo@Example.ORG", "Hello, I would like to talk about a role.")

func TestHomePage(t *testing.T) {
	s := newTestSite(t)

	w := s.get("/")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, s.app.content.Personal.Name)
	assert.Contains(t, body, `id="contact-form"`)
	assert.Contains(t, body, `data-status="idle"`)
	assert.NotNil(t, s.cookie)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestFragments(t *testing.T) {
	s := newTestSite(t)

	w := s.get("/education-content")
	require.Equal(t, http.StatusOK, w.Code)
	for _, entry := range s.app.content.Education.Entries {
		assert.Contains(t, w.Body.String(), entry.Org)
	}

	w = s.get("/experience-content")
	require.Equal(t, http.StatusOK, w.Code)
	for _, item := range s.app.content.Experience.Items {
		assert.Contains(t, w.Body.String(), item.Org)
	}

	w = s.get("/contact-form")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `data-status="idle"`)
}

func TestHealthz(t *testing.T) {
	s := newTestSite(t)
	w := s.get("/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestContactSubmitStoresSanitizedDocument(t *testing.T) {
	s := newTestSite(t)
	s.get("/")

	w := s.post("/contact", contactForm("Jo", "Jo@Example.ORG", "Hello <b>there</b>, about that role."))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "submitted", w.Header().Get("X-Contact-Status"))
	assert.Contains(t, w.Body.String(), "Thank you for your message!")
	assert.Contains(t, w.Body.String(), `hx-trigger="load delay:5s"`)

	records := s.sink.Records()
	require.Len(t, records, 1)
	assert.Equal(t, contact.Collection, records[0].Collection)
	assert.Equal(t, contact.Document{
		Name:      "Jo",
		Email:     "jo@example.org",
		Message:   "Hello bthere/b, about that role.",
		UserAgent: "test-agent",
	}, records[0].Document)
}

func TestContactSubmittedRevertsAfterDelay(t *testing.T) {
	s := newTestSite(t)
	s.get("/")
	s.post("/contact", goodForm)

	w := s.get("/contact-form")
	assert.Contains(t, w.Body.String(), `data-status="submitted"`)
	assert.Contains(t, w.Body.String(), "disabled")

	s.clock.Advance(contact.DisplayDelay)

	w = s.get("/contact-form")
	assert.Contains(t, w.Body.String(), `data-status="idle"`)
	assert.NotContains(t, w.Body.String(), "Jo@Example.ORG")
}

func TestContactInvalidShowsFieldErrors(t *testing.T) {
	s := newTestSite(t)
	s.get("/")

	w := s.post("/contact", contactForm("J", "nope", "Visit www.example.com now"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "invalid", w.Header().Get("X-Contact-Status"))
	body := w.Body.String()
	assert.Contains(t, body, "Name must be at least 2 characters")
	assert.Contains(t, body, "Invalid email format")
	assert.Contains(t, body, "spam")
	assert.Empty(t, s.sink.Records())
}

func TestContactEditClearsFieldError(t *testing.T) {
	s := newTestSite(t)
	s.get("/")
	s.post("/contact", contactForm("J", "jo@x.com", "Hello, I would like to talk about a role."))

	form := url.Values{"field": {contact.FieldName}, contact.FieldName: {"Jo"}}
	w := s.post("/contact/edit", form)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `data-status="idle"`)
	assert.NotContains(t, w.Body.String(), "field-error")

	w = s.post("/contact/edit", url.Values{"field": {"phone"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestContactCooldown(t *testing.T) {
	s := newTestSite(t)
	s.get("/")
	s.post("/contact", goodForm)
	s.clock.Advance(contact.DisplayDelay)

	w := s.post("/contact", goodForm)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "rate_limited", w.Header().Get("X-Contact-Status"))
	assert.Equal(t, "25", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "Please wait 25 seconds before sending another message.")
	assert.Len(t, s.sink.Records(), 1)
}

func TestContactLimitsArePerClient(t *testing.T) {
	s := newTestSite(t)
	s.get("/")
	s.post("/contact", goodForm)
	s.clock.Advance(contact.DisplayDelay)

	other := &testSite{app: s.app, router: s.router, clock: s.clock, sink: s.sink}
	other.get("/")
	require.NotEqual(t, s.cookie.Value, other.cookie.Value)

	w := other.post("/contact", goodForm)
	assert.Equal(t, "submitted", w.Header().Get("X-Contact-Status"))
	assert.Len(t, s.sink.Records(), 2)
}

type failingSink struct{}

func (failingSink) Create(context.Context, string, contact.Document) error {
	return errors.New("unavailable")
}

func TestContactWriteFailureKeepsValues(t *testing.T) {
	s := newTestSite(t)
	s.app.forms = contact.NewRegistry(contact.Deps{
		Limiter: contact.NewLimiter(kv.NewMemory(), s.clock),
		Sink:    failingSink{},
		Clock:   s.clock,
	})
	s.get("/")

	w := s.post("/contact", goodForm)
	assert.Equal(t, "failed", w.Header().Get("X-Contact-Status"))
	assert.Contains(t, w.Body.String(), "Please try again later.")
	assert.Contains(t, w.Body.String(), "Jo@Example.ORG")
}

func TestContactJSON(t *testing.T) {
	s := newTestSite(t)
	s.get("/")

	send := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/contact", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		return s.do(req)
	}

	w := send(`{"name":"Jo","email":"jo@x.org","message":"Hello, I would like to talk."}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp contactResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "submitted", resp.Status)

	// Still on display.
	w = send(`{"name":"Jo","email":"jo@x.org","message":"Hello, I would like to talk."}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	s.clock.Advance(contact.DisplayDelay)
	w = send(`{"name":"Jo","email":"jo@x.org","message":"Hello, I would like to talk."}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "25", w.Header().Get("Retry-After"))

	w = send(`{"name":"","email":"","message":""}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Errors, 3)

	w = send(`not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPageViewsHoldNoForms(t *testing.T) {
	s := newTestSite(t)

	for i := 0; i < 200; i++ {
		// A fresh site per request has no cookie, like a crawler.
		visitor := &testSite{app: s.app, router: s.router}
		require.Equal(t, http.StatusOK, visitor.get("/").Code)
		require.Equal(t, http.StatusOK, visitor.get("/contact-form").Code)
	}
	assert.Equal(t, 0, s.app.forms.Len())

	s.get("/")
	s.post("/contact/edit", url.Values{"field": {contact.FieldName}, contact.FieldName: {"Jo"}})
	assert.Equal(t, 1, s.app.forms.Len())

	w := s.get("/contact-form")
	assert.Contains(t, w.Body.String(), `value="Jo"`)
}

func TestFloodGuardSharedAcrossSubmitRoutes(t *testing.T) {
	s := newTestSite(t)
	s.get("/")

	// 30 requests against one burst of 20 must shed some. A bucket per
	// route would admit all of them.
	codes := map[int]int{}
	for i := 0; i < 15; i++ {
		codes[s.post("/contact", url.Values{}).Code]++
		req := httptest.NewRequest(http.MethodPost, "/api/contact", bytes.NewBufferString(`{}`))
		req.Header.Set("Content-Type", "application/json")
		codes[s.do(req).Code]++
	}
	assert.Positive(t, codes[http.StatusTooManyRequests])
}
