package controllers

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"coalition-api/models"
	"coalition-api/repository"

	"github.com/gin-gonic/gin"
)

var pageNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

func pageContentKey(page string) string {
	return "page-content:" + page
}

type CreatePageContentRequest struct {
	Page         string `json:"page" binding:"required"`
	SectionKey   string `json:"sectionKey" binding:"required"`
	ContentValue string `json:"contentValue"`
	ContentType  string `json:"contentType"`
}

type UpdatePageContentRequest struct {
	ContentValue *string `json:"contentValue"`
	ContentType  *string `json:"contentType"`
}

// GetPageContent returns the sections of a public page keyed by section key.
func (ctl *Controller) GetPageContent(c *gin.Context) {
	page := strings.ToLower(strings.TrimSpace(c.Param("page")))
	if !pageNamePattern.MatchString(page) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page"})
		return
	}
	ctx := c.Request.Context()

	var sections map[string]models.PageSection
	if ctl.cacheGet(ctx, pageContentKey(page), &sections) {
		c.JSON(http.StatusOK, sections)
		return
	}

	rows, err := ctl.store.PageContent.ListByPage(ctx, page)
	if err != nil {
		ctl.respondError(c, err, "", "Failed to fetch page content")
		return
	}
	sections = models.FlattenPage(rows)
	ctl.cacheSet(ctx, pageContentKey(page), sections, ctl.pageContentTTL)
	c.JSON(http.StatusOK, sections)
}

func (ctl *Controller) CreatePageContent(c *gin.Context) {
	var req CreatePageContentRequest
	if !bindJSON(c, &req) {
		return
	}
	page := strings.ToLower(strings.TrimSpace(req.Page))
	if !pageNamePattern.MatchString(page) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page"})
		return
	}
	key := strings.TrimSpace(req.SectionKey)
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sectionKey is required"})
		return
	}
	contentType := strings.ToLower(strings.TrimSpace(req.ContentType))
	if contentType == "" {
		contentType = "text"
	}
	if !models.ValidContentType(contentType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid content type"})
		return
	}

	pc := &models.PageContent{
		Page:         page,
		SectionKey:   key,
		ContentValue: req.ContentValue,
		ContentType:  contentType,
		UpdatedBy:    currentOrganizationID(c),
	}
	ctx := c.Request.Context()
	if err := ctl.store.PageContent.Create(ctx, pc); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "This section already exists on the page"})
			return
		}
		ctl.respondError(c, err, "", "Failed to create page content")
		return
	}
	ctl.cacheDelete(ctx, pageContentKey(page))
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": pc})
}

func (ctl *Controller) UpdatePageContent(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdatePageContentRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	pc, err := ctl.store.PageContent.FindByID(ctx, id)
	if err != nil {
		ctl.respondError(c, err, "Page content not found", "Failed to fetch page content")
		return
	}
	if req.ContentValue != nil {
		pc.ContentValue = *req.ContentValue
	}
	if req.ContentType != nil {
		t := strings.ToLower(strings.TrimSpace(*req.ContentType))
		if !models.ValidContentType(t) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid content type"})
			return
		}
		pc.ContentType = t
	}
	pc.UpdatedBy = currentOrganizationID(c)

	if err := ctl.store.PageContent.Update(ctx, pc); err != nil {
		ctl.respondError(c, err, "Page content not found", "Failed to update page content")
		return
	}
	ctl.cacheDelete(ctx, pageContentKey(pc.Page))
	c.JSON(http.StatusOK, gin.H{"success": true, "data": pc})
}

func (ctl *Controller) DeletePageContent(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	pc, err := ctl.store.PageContent.FindByID(ctx, id)
	if err != nil {
		ctl.respondError(c, err, "Page content not found", "Failed to fetch page content")
		return
	}
	if err := ctl.store.PageContent.Delete(ctx, id); err != nil {
		ctl.respondError(c, err, "Page content not found", "Failed to delete page content")
		return
	}
	ctl.cacheDelete(ctx, pageContentKey(pc.Page))
	c.Status(http.StatusNoContent)
}

// BulkUpdatePageContent applies all updates in one transaction; an unknown id
// rolls back every change.
func (ctl *Controller) BulkUpdatePageContent(c *gin.Context) {
	var updates []repository.PageContentUpdate
	if !bindJSON(c, &updates) {
		return
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No updates provided"})
		return
	}

	ctx := c.Request.Context()
	pages, err := ctl.store.PageContent.BulkUpdate(ctx, updates, currentOrganizationID(c))
	if err != nil {
		ctl.respondError(c, err, "Page content not found", "Failed to update page content")
		return
	}

	keys := make([]string, 0, len(pages))
	for _, p := range pages {
		keys = append(keys, pageContentKey(p))
	}
	ctl.cacheDelete(ctx, keys...)

	c.JSON(http.StatusOK, gin.H{"success": true, "updated": len(updates), "pages": pages})
}
