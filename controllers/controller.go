// Package controllers holds the gin handlers of the coalition API.
package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"coalition-api/cache"
	"coalition-api/middleware"
	"coalition-api/models"
	"coalition-api/repository"
	"coalition-api/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Notifier announces published content to its audience.
type Notifier interface {
	NotifyPublished(ctx context.Context, n services.Notification) (services.FanOutResult, error)
	SendWelcome(ctx context.Context, org *models.Organization) error
}

// EmailSender delivers a composed custom email.
type EmailSender interface {
	Deliver(ctx context.Context, h *models.EmailHistory, now time.Time) services.FanOutResult
}

// LiveServer attaches websocket clients to the live feed.
type LiveServer interface {
	Serve(w http.ResponseWriter, r *http.Request, viewer services.Viewer) error
	ClientCount() int
}

// TokenIssuer signs login tokens.
type TokenIssuer interface {
	GenerateToken(org *models.Organization) (string, time.Time, error)
}

// Deps are the collaborators wired at startup.
type Deps struct {
	Store    *repository.Store
	Cache    cache.Cache
	Notifier Notifier
	Emails   EmailSender
	Tokens   TokenIssuer
	Live     LiveServer
	Log      logrus.FieldLogger

	AnnouncementTTL time.Duration
	PageContentTTL  time.Duration
}

type Controller struct {
	store    *repository.Store
	cache    cache.Cache
	notifier Notifier
	emails   EmailSender
	tokens   TokenIssuer
	live     LiveServer
	log      logrus.FieldLogger

	announcementTTL time.Duration
	pageContentTTL  time.Duration

	now func() time.Time
}

func New(d Deps) *Controller {
	log := d.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	if d.AnnouncementTTL <= 0 {
		d.AnnouncementTTL = 5 * time.Minute
	}
	if d.PageContentTTL <= 0 {
		d.PageContentTTL = time.Hour
	}
	return &Controller{
		store:           d.Store,
		cache:           d.Cache,
		notifier:        d.Notifier,
		emails:          d.Emails,
		tokens:          d.Tokens,
		live:            d.Live,
		log:             log,
		announcementTTL: d.AnnouncementTTL,
		pageContentTTL:  d.PageContentTTL,
		now:             time.Now,
	}
}

/* ==========================
   Helpers
   ========================== */

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return 0, false
	}
	return uint(id), true
}

func parseOptionalUint(raw string) (uint, bool) {
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(v), true
}

func currentOrganization(c *gin.Context) *models.Organization {
	org, _ := middleware.CurrentOrganization(c)
	return org
}

func currentViewer(c *gin.Context) services.Viewer {
	return services.ViewerFor(currentOrganization(c))
}

func currentOrganizationID(c *gin.Context) uint {
	if org := currentOrganization(c); org != nil {
		return org.ID
	}
	return 0
}

// respondError maps repository errors onto the API error taxonomy. Anything
// unexpected is logged and answered with a generic 500.
func (ctl *Controller) respondError(c *gin.Context, err error, notFound, failure string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound})
	case errors.Is(err, repository.ErrDuplicate):
		c.JSON(http.StatusBadRequest, gin.H{"error": "A record with the same values already exists"})
	default:
		ctl.log.WithError(err).WithField("path", c.FullPath()).Error(failure)
		c.JSON(http.StatusInternalServerError, gin.H{"error": failure})
	}
}

func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return false
	}
	return true
}

func pagedResponse(c *gin.Context, data interface{}, page models.PageRequest, total int64) {
	c.JSON(http.StatusOK, gin.H{
		"data":       data,
		"pagination": models.NewPagination(page.Page, page.Limit, total),
	})
}

/* ==========================
   Cache helpers (failures never fail the request)
   ========================== */

func (ctl *Controller) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if ctl.cache == nil {
		return false
	}
	hit, err := ctl.cache.Get(ctx, key, dest)
	if err != nil {
		ctl.log.WithError(err).WithField("key", key).Warn("cache read failed")
		return false
	}
	return hit
}

func (ctl *Controller) cacheSet(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if ctl.cache == nil {
		return
	}
	if err := ctl.cache.Set(ctx, key, value, ttl); err != nil {
		ctl.log.WithError(err).WithField("key", key).Warn("cache write failed")
	}
}

func (ctl *Controller) cacheDelete(ctx context.Context, keys ...string) {
	if ctl.cache == nil {
		return
	}
	if err := ctl.cache.Delete(ctx, keys...); err != nil {
		ctl.log.WithError(err).WithField("keys", keys).Warn("cache invalidation failed")
	}
}

func (ctl *Controller) cacheDeletePattern(ctx context.Context, pattern string) {
	if ctl.cache == nil {
		return
	}
	if err := ctl.cache.DeletePattern(ctx, pattern); err != nil {
		ctl.log.WithError(err).WithField("pattern", pattern).Warn("cache invalidation failed")
	}
}
