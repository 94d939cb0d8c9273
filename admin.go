// admin.go - privacy-conscious admin: visitor stats and the contact inbox
package main

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Zachkp/portfolio/internal/config"
	"github.com/Zachkp/portfolio/internal/contact"
	"github.com/Zachkp/portfolio/internal/kv"
	"github.com/Zachkp/portfolio/internal/logging"

	"github.com/gin-gonic/gin"
)

const (
	adminCookie = "admin_token"

	// Visitor rows older than this are removed for privacy compliance.
	visitorRetention = 365 * 24 * time.Hour
	retentionEvery   = 24 * time.Hour
)

// adminAuth holds the per-process admin session token and the salt used
// to hash visitor IPs.
type adminAuth struct {
	username string
	password string
	token    string
	salt     string
	secure   bool
	logger   *logging.Logger
}

func newAdminAuth(cfg *config.Config, logger *logging.Logger) (*adminAuth, error) {
	token, err := generateAdminToken()
	if err != nil {
		return nil, err
	}

	salt := cfg.VisitorHashSalt
	if salt == "" {
		if salt, err = generateAdminToken(); err != nil {
			return nil, err
		}
	}

	logger.Info("Admin access available at: /admin/login")
	if !cfg.IsProduction() {
		logger.Debug("Admin token (dev only): %s", token)
		if cfg.AdminPassword == "admin123" {
			logger.Warn("Using default admin password. Set ADMIN_PASSWORD environment variable.")
		}
	}
	logger.Info("Privacy: Visitor tracking enabled with hashed IP addresses")

	return &adminAuth{
		username: cfg.AdminUsername,
		password: cfg.AdminPassword,
		token:    token,
		salt:     salt,
		secure:   cfg.IsProduction(),
		logger:   logger,
	}, nil
}

func generateAdminToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate admin token: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// hashIP is consistent per IP for the life of the salt.
func (a *adminAuth) hashIP(ip string) string {
	hash := sha256.New()
	hash.Write([]byte(ip + a.salt))
	return hex.EncodeToString(hash.Sum(nil))[:16]
}

func (a *adminAuth) checkCredentials(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) == 1
	return userOK && passOK
}

// middleware redirects to the login page unless the admin cookie holds
// the current token.
func (a *adminAuth) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(adminCookie)
		if err != nil || subtle.ConstantTimeCompare([]byte(token), []byte(a.token)) != 1 {
			c.Redirect(http.StatusFound, "/admin/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// cleanupVisitors applies the retention window once.
func (a *app) cleanupVisitors(ctx context.Context) {
	deleted, err := a.visitors.Cleanup(ctx, a.clock.Now().Add(-visitorRetention))
	if err != nil {
		a.logger.Error("Error cleaning up old visitor data: %v", err)
		return
	}
	if deleted > 0 {
		a.logger.Info("Privacy cleanup: Removed %d visitor records older than 12 months", deleted)
	}
}

// sweepCounters drops rate-limit counters untouched for a full window.
// Such counters no longer affect any decision.
func (a *app) sweepCounters(ctx context.Context) {
	sweeper, ok := a.counters.(kv.Sweeper)
	if !ok {
		return
	}
	deleted, err := sweeper.Sweep(ctx, a.clock.Now().Add(-contact.Window))
	if err != nil {
		a.logger.Error("Error sweeping rate limit counters: %v", err)
		return
	}
	if deleted > 0 {
		a.logger.Debug("Swept %d expired rate limit counters", deleted)
	}
}

func (a *app) runVisitorRetention(ctx context.Context) {
	a.cleanupVisitors(ctx)
	a.sweepCounters(ctx)

	visitorTicker := time.NewTicker(retentionEvery)
	defer visitorTicker.Stop()
	counterTicker := time.NewTicker(contact.Window)
	defer counterTicker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-visitorTicker.C:
			a.cleanupVisitors(ctx)
		case <-counterTicker.C:
			a.sweepCounters(ctx)
		}
	}
}

// Setup all admin routes
func (a *app) setupAdminRoutes(r *gin.Engine) {
	// Privacy policy route
	r.GET("/privacy", func(c *gin.Context) {
		c.HTML(http.StatusOK, "privacy.html", gin.H{
			"title": "Privacy Policy",
		})
	})

	r.GET("/admin/login", func(c *gin.Context) {
		c.HTML(http.StatusOK, "admin-login.html", gin.H{
			"title": "Admin Login",
		})
	})

	r.POST("/admin/login", func(c *gin.Context) {
		if !a.admin.checkCredentials(c.PostForm("username"), c.PostForm("password")) {
			a.logger.Warn("Failed admin login attempt from %s", a.admin.hashIP(c.ClientIP()))
			c.HTML(http.StatusUnauthorized, "admin-login.html", gin.H{
				"error": "Invalid credentials",
			})
			return
		}

		// 24 hour session
		c.SetCookie(adminCookie, a.admin.token, 3600*24, "/admin", "", a.admin.secure, true)
		a.logger.Info("Admin login successful from %s", a.admin.hashIP(c.ClientIP()))
		c.Redirect(http.StatusFound, "/admin/dashboard")
	})

	r.GET("/admin/logout", func(c *gin.Context) {
		c.SetCookie(adminCookie, "", -1, "/admin", "", a.admin.secure, true)
		a.logger.Info("Admin logout from %s", a.admin.hashIP(c.ClientIP()))
		c.Redirect(http.StatusFound, "/admin/login")
	})

	// Protected admin routes group
	adminGroup := r.Group("/admin")
	adminGroup.Use(a.admin.middleware())

	adminGroup.GET("/dashboard", func(c *gin.Context) {
		stats, err := a.visitors.Stats(c.Request.Context(), a.clock.Now())
		if err != nil {
			a.logger.Error("Error loading admin stats: %v", err)
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{
				"error": "Failed to load statistics",
			})
			return
		}

		c.HTML(http.StatusOK, "admin-dashboard.html", gin.H{
			"stats": stats,
		})
	})

	adminGroup.GET("/api/stats", func(c *gin.Context) {
		stats, err := a.visitors.Stats(c.Request.Context(), a.clock.Now())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	adminGroup.GET("/visitors", func(c *gin.Context) {
		visitors, err := a.visitors.Recent(c.Request.Context(), 200)
		if err != nil {
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{
				"error": "Failed to load visitors",
			})
			return
		}

		c.HTML(http.StatusOK, "admin-visitors.html", gin.H{
			"visitors": visitors,
		})
	})

	// Messages stored by the SQLite sink. Returns an empty body so the
	// HTMX swap removes the row.
	adminGroup.DELETE("/messages/:id", func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message id"})
			return
		}

		err = a.visitors.DeleteMessage(c.Request.Context(), id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
			return
		case err != nil:
			a.logger.Error("Error deleting message %d: %v", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete message"})
			return
		}

		a.logger.Info("Message %d deleted by admin from %s", id, a.admin.hashIP(c.ClientIP()))
		c.String(http.StatusOK, "")
	})

	adminGroup.POST("/privacy/delete-visitor-data", func(c *gin.Context) {
		go a.cleanupVisitors(context.WithoutCancel(c.Request.Context()))
		c.JSON(http.StatusOK, gin.H{"message": "Privacy cleanup initiated"})
	})

	// Admin statistics export (for backups or analysis)
	adminGroup.GET("/export/stats", func(c *gin.Context) {
		stats, err := a.visitors.Stats(c.Request.Context(), a.clock.Now())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.Header("Content-Disposition", "attachment; filename=admin-stats.json")
		a.logger.Info("Admin stats exported by %s", a.admin.hashIP(c.ClientIP()))
		c.JSON(http.StatusOK, stats)
	})
}
