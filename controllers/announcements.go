package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"coalition-api/models"
	"coalition-api/services"
	"coalition-api/utils"

	"github.com/gin-gonic/gin"
)

const (
	announcementListKey     = "announcements:list:published"
	announcementListPattern = "announcements:list:*"
)

func announcementItemKey(id uint) string {
	return fmt.Sprintf("announcements:item:%d", id)
}

type AnnouncementRequest struct {
	Title       *string  `json:"title"`
	Summary     *string  `json:"summary"`
	Content     *string  `json:"content"`
	Tags        []string `json:"tags"`
	Pinned      *bool    `json:"pinned"`
	IsPublished *bool    `json:"isPublished"`
}

// ListAnnouncements returns announcements. The published list is served from
// the cache and filtered per member afterwards.
func (ctl *Controller) ListAnnouncements(c *gin.Context) {
	viewer := currentViewer(c)
	ctx := c.Request.Context()

	var items []models.Announcement
	if viewer.IsAdmin() {
		rows, err := ctl.store.Announcements.List(ctx, false)
		if err != nil {
			ctl.respondError(c, err, "", "Failed to fetch announcements")
			return
		}
		items = rows
	} else {
		if !ctl.cacheGet(ctx, announcementListKey, &items) {
			rows, err := ctl.store.Announcements.List(ctx, true)
			if err != nil {
				ctl.respondError(c, err, "", "Failed to fetch announcements")
				return
			}
			items = rows
			ctl.cacheSet(ctx, announcementListKey, items, ctl.announcementTTL)
		}
		items = visibleTo(items, viewer)
	}

	if items == nil {
		items = []models.Announcement{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": items, "count": len(items)})
}

func (ctl *Controller) GetAnnouncement(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	viewer := currentViewer(c)

	var item models.Announcement
	if !ctl.cacheGet(ctx, announcementItemKey(id), &item) {
		row, err := ctl.store.Announcements.FindByID(ctx, id)
		if err != nil {
			ctl.respondError(c, err, "Announcement not found", "Failed to fetch announcement")
			return
		}
		item = *row
		if item.Published {
			ctl.cacheSet(ctx, announcementItemKey(id), item, ctl.announcementTTL)
		}
	}

	if !services.CanView(&item, viewer) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": item})
}

func (ctl *Controller) CreateAnnouncement(c *gin.Context) {
	var req AnnouncementRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Title == nil || req.Content == nil ||
		strings.TrimSpace(*req.Title) == "" || strings.TrimSpace(*req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title and content are required"})
		return
	}

	item := &models.Announcement{
		Title:     utils.SanitizeInput(*req.Title),
		Content:   strings.TrimSpace(*req.Content),
		Tags:      utils.NormalizeTags(req.Tags),
		CreatedBy: currentOrganizationID(c),
	}
	if req.Summary != nil {
		item.Summary = utils.SanitizeInput(*req.Summary)
	}
	if req.Pinned != nil {
		item.Pinned = *req.Pinned
	}
	if req.IsPublished != nil && *req.IsPublished {
		item.MarkPublished(ctl.now())
	}

	ctx := c.Request.Context()
	if err := ctl.store.Announcements.Create(ctx, item); err != nil {
		ctl.respondError(c, err, "", "Failed to create announcement")
		return
	}
	ctl.invalidateAnnouncement(c, item.ID)

	result := ctl.notifyAnnouncement(c, item)
	c.JSON(http.StatusCreated, publishedResponse(item, result))
}

// UpdateAnnouncement edits an announcement. The row is always loaded from the
// store, never the cache, so the notification state is current.
func (ctl *Controller) UpdateAnnouncement(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req AnnouncementRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	item, err := ctl.store.Announcements.FindByID(ctx, id)
	if err != nil {
		ctl.respondError(c, err, "Announcement not found", "Failed to fetch announcement")
		return
	}

	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Title cannot be empty"})
			return
		}
		item.Title = utils.SanitizeInput(*req.Title)
	}
	if req.Content != nil {
		if strings.TrimSpace(*req.Content) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Content cannot be empty"})
			return
		}
		item.Content = strings.TrimSpace(*req.Content)
	}
	if req.Summary != nil {
		item.Summary = utils.SanitizeInput(*req.Summary)
	}
	if req.Tags != nil {
		item.Tags = utils.NormalizeTags(req.Tags)
	}
	if req.Pinned != nil {
		item.Pinned = *req.Pinned
	}
	if req.IsPublished != nil {
		if *req.IsPublished {
			item.MarkPublished(ctl.now())
		} else {
			item.MarkUnpublished()
		}
	}

	if err := ctl.store.Announcements.Update(ctx, item); err != nil {
		ctl.respondError(c, err, "Announcement not found", "Failed to update announcement")
		return
	}
	ctl.invalidateAnnouncement(c, item.ID)

	result := ctl.notifyAnnouncement(c, item)
	c.JSON(http.StatusOK, publishedResponse(item, result))
}

func (ctl *Controller) PublishAnnouncement(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	item, err := ctl.store.Announcements.FindByID(ctx, id)
	if err != nil {
		ctl.respondError(c, err, "Announcement not found", "Failed to fetch announcement")
		return
	}
	now := ctl.now()
	published, err := ctl.store.Announcements.Publish(ctx, id, now)
	if err != nil {
		ctl.respondError(c, err, "Announcement not found", "Failed to publish announcement")
		return
	}
	if !published {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Announcement is already published"})
		return
	}
	item.MarkPublished(now)
	ctl.invalidateAnnouncement(c, item.ID)

	result := ctl.notifyAnnouncement(c, item)
	c.JSON(http.StatusOK, publishedResponse(item, result))
}

func (ctl *Controller) UnpublishAnnouncement(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	item, err := ctl.store.Announcements.FindByID(ctx, id)
	if err != nil {
		ctl.respondError(c, err, "Announcement not found", "Failed to fetch announcement")
		return
	}
	if !item.MarkUnpublished() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Announcement is not published"})
		return
	}
	if err := ctl.store.Announcements.Update(ctx, item); err != nil {
		ctl.respondError(c, err, "Announcement not found", "Failed to unpublish announcement")
		return
	}
	ctl.invalidateAnnouncement(c, item.ID)

	c.JSON(http.StatusOK, gin.H{"success": true, "data": item})
}

func (ctl *Controller) DeleteAnnouncement(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := ctl.store.Announcements.Delete(c.Request.Context(), id); err != nil {
		ctl.respondError(c, err, "Announcement not found", "Failed to delete announcement")
		return
	}
	ctl.invalidateAnnouncement(c, id)
	c.Status(http.StatusNoContent)
}

func (ctl *Controller) invalidateAnnouncement(c *gin.Context, id uint) {
	ctx := c.Request.Context()
	ctl.cacheDelete(ctx, announcementItemKey(id))
	ctl.cacheDeletePattern(ctx, announcementListPattern)
}

func (ctl *Controller) notifyAnnouncement(c *gin.Context, item *models.Announcement) *services.FanOutResult {
	summary := item.Summary
	if summary == "" {
		summary = excerpt(item.Content, 280)
	}
	note := services.Notification{
		Kind:    "announcement",
		ItemID:  item.ID,
		Title:   item.Title,
		Summary: summary,
		Tags:    item.Tags,
		Path:    itemPath("announcement", item.ID),
	}
	return ctl.notifyAudience(c, &item.PublishState, note, func(at time.Time) (bool, error) {
		return ctl.store.Announcements.ClaimNotification(c.Request.Context(), item.ID, at)
	})
}
