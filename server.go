package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Zachkp/portfolio/internal/clock"
	"github.com/Zachkp/portfolio/internal/config"
	"github.com/Zachkp/portfolio/internal/contact"
	"github.com/Zachkp/portfolio/internal/content"
	"github.com/Zachkp/portfolio/internal/database"
	"github.com/Zachkp/portfolio/internal/kv"
	"github.com/Zachkp/portfolio/internal/logging"
	"github.com/Zachkp/portfolio/internal/middleware"

	"github.com/gin-gonic/gin"
)

// app holds everything the HTTP handlers need.
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	clock    clock.Clock
	content  *content.Portfolio
	forms    *contact.Registry
	counters kv.Store
	visitors *database.Visitors
	admin    *adminAuth
}

type appDeps struct {
	DB      *sql.DB
	Store   kv.Store
	Sink    contact.Sink
	Clock   clock.Clock
	Logger  *logging.Logger
	Content *content.Portfolio
}

func newApp(cfg *config.Config, deps appDeps) (*app, error) {
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}

	admin, err := newAdminAuth(cfg, deps.Logger)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:     cfg,
		logger:  deps.Logger,
		clock:   deps.Clock,
		content: deps.Content,
		forms: contact.NewRegistry(contact.Deps{
			Limiter: contact.NewLimiter(deps.Store, deps.Clock),
			Sink:    deps.Sink,
			Clock:   deps.Clock,
			Logger:  deps.Logger,
		}),
		counters: deps.Store,
		visitors: database.NewVisitors(deps.DB),
		admin:    admin,
	}, nil
}

// start launches the background janitors. They stop with ctx.
func (a *app) start(ctx context.Context) {
	a.forms.StartJanitor(ctx)
	go a.runVisitorRetention(ctx)
}

func (a *app) router() (*gin.Engine, error) {
	tmpl, err := loadTemplates()
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(a.logger))
	r.Use(middleware.SecurityHeaders())

	r.StaticFS("/static", http.FS(staticFiles()))
	r.Static("/images", "./images")

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	site := r.Group("/")
	site.Use(middleware.ClientID(a.cfg.IsProduction()))
	site.Use(middleware.VisitorTracking(a.recordVisitor))

	// Home page route
	site.GET("/", func(c *gin.Context) {
		c.HTML(http.StatusOK, "index.html", gin.H{
			"content": a.content,
			"form":    a.formView(a.peekForm(c)),
		})
	})

	// HTMX Contact form endpoint - returns just the form HTML
	site.GET("/contact-form", func(c *gin.Context) {
		c.HTML(http.StatusOK, "contact.html", a.formView(a.peekForm(c)))
	})

	site.GET("/experience-content", func(c *gin.Context) {
		c.HTML(http.StatusOK, "experience-content.html", a.content.Experience)
	})

	site.GET("/education-content", func(c *gin.Context) {
		c.HTML(http.StatusOK, "education-content.html", a.content.Education)
	})

	// Contact form submission with HTMX. Every outcome re-renders the
	// form, so failures stay local to it. Both submit routes share one
	// flood guard bucket.
	floodGuard := middleware.RateLimit(middleware.RateLimitConfig{RPS: 5, Burst: 20})
	site.POST("/contact", floodGuard, a.submitContact)
	site.POST("/contact/edit", a.editContact)

	// JSON variant of the same flow
	site.POST("/api/contact", floodGuard, a.submitContactJSON)

	a.setupAdminRoutes(r)
	return r, nil
}

// formView is what contact.html renders.
type formView struct {
	Values      contact.Input
	Errors      contact.FieldErrors
	Status      string
	Notice      string
	Busy        bool
	SubmitLabel string
}

func (a *app) formView(s contact.Snapshot) formView {
	label := a.content.Contact.SubmitLabel
	if label == "" {
		label = "Send Message"
	}
	return formView{
		Values:      s.Values,
		Errors:      s.State.Errors,
		Status:      s.State.Status.String(),
		Notice:      s.State.Notice,
		Busy:        s.Busy(),
		SubmitLabel: label,
	}
}

// peekForm returns the client's form state without creating a form, so
// page views from clients that never touch the form hold no memory.
func (a *app) peekForm(c *gin.Context) contact.Snapshot {
	snap, _ := a.forms.Peek(middleware.GetClientID(c))
	return snap
}

func formInput(c *gin.Context) contact.Input {
	return contact.Input{
		Name:    c.PostForm(contact.FieldName),
		Email:   c.PostForm(contact.FieldEmail),
		Message: c.PostForm(contact.FieldMessage),
	}
}

func (a *app) submitContact(c *gin.Context) {
	form := a.forms.Form(middleware.GetClientID(c))

	snap, err := form.Submit(c.Request.Context(), formInput(c), c.Request.UserAgent())
	if err != nil && !isBusy(err) {
		a.logger.Error("Unexpected contact error: %v", err)
	}
	if snap.State.Status == contact.StatusRateLimited {
		c.Header("Retry-After", strconv.FormatInt(snap.State.RetryAfterSeconds(), 10))
	}
	c.Header("X-Contact-Status", snap.State.Status.String())
	c.HTML(http.StatusOK, "contact.html", a.formView(snap))
}

func (a *app) editContact(c *gin.Context) {
	form := a.forms.Form(middleware.GetClientID(c))
	field := c.PostForm("field")

	snap, err := form.Edit(field, c.PostForm(field))
	if errors.Is(err, contact.ErrUnknownField) {
		c.String(http.StatusBadRequest, "unknown field")
		return
	}
	c.HTML(http.StatusOK, "contact.html", a.formView(snap))
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

type contactResponse struct {
	Status  string              `json:"status"`
	Message string              `json:"message,omitempty"`
	Errors  contact.FieldErrors `json:"errors,omitempty"`
}

func (a *app) submitContactJSON(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, contactResponse{Status: "invalid", Message: "Malformed request body"})
		return
	}

	form := a.forms.Form(middleware.GetClientID(c))
	snap, err := form.Submit(c.Request.Context(), contact.Input(req), c.Request.UserAgent())
	resp := contactResponse{
		Status:  snap.State.Status.String(),
		Message: snap.State.Notice,
		Errors:  snap.State.Errors,
	}
	if isBusy(err) {
		resp.Message = "A message is already being sent."
		c.JSON(http.StatusConflict, resp)
		return
	}

	switch snap.State.Status {
	case contact.StatusSubmitted:
		c.JSON(http.StatusCreated, resp)
	case contact.StatusInvalid:
		c.JSON(http.StatusUnprocessableEntity, resp)
	case contact.StatusRateLimited:
		c.Header("Retry-After", strconv.FormatInt(snap.State.RetryAfterSeconds(), 10))
		c.JSON(http.StatusTooManyRequests, resp)
	default:
		c.JSON(http.StatusBadGateway, resp)
	}
}

func isBusy(err error) bool {
	return errors.Is(err, contact.ErrSubmissionInFlight) || errors.Is(err, contact.ErrRecentlySubmitted)
}

func (a *app) recordVisitor(clientIP, userAgent, path string) {
	err := a.visitors.Record(context.Background(), a.admin.hashIP(clientIP), userAgent, path, a.clock.Now())
	if err != nil {
		a.logger.Warn("Error recording visitor: %v", err)
	}
}
