package controllers

import (
	"net/http"
	"strings"
	"time"

	"coalition-api/models"
	"coalition-api/repository"
	"coalition-api/services"
	"coalition-api/utils"

	"github.com/gin-gonic/gin"
)

type AlertRequest struct {
	Title       *string              `json:"title"`
	Content     *string              `json:"content"`
	Priority    models.AlertPriority `json:"priority"`
	Tags        []string             `json:"tags"`
	Questions   []models.Question    `json:"questions"`
	IsPublished *bool                `json:"isPublished"`
	ExpiresAt   *time.Time           `json:"expiresAt"`
}

// ListAlerts returns alerts; members only see published alerts in their audience.
func (ctl *Controller) ListAlerts(c *gin.Context) {
	viewer := currentViewer(c)
	filter := repository.AlertFilter{PublishedOnly: !viewer.IsAdmin()}

	if p := strings.TrimSpace(c.Query("priority")); p != "" {
		filter.Priority = models.AlertPriority(strings.ToUpper(p))
		if !models.ValidAlertPriority(filter.Priority) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid priority. Must be one of LOW, MEDIUM, HIGH, URGENT"})
			return
		}
	}

	alerts, err := ctl.store.Alerts.List(c.Request.Context(), filter)
	if err != nil {
		ctl.respondError(c, err, "", "Failed to fetch alerts")
		return
	}
	alerts = visibleTo(alerts, viewer)
	c.JSON(http.StatusOK, gin.H{"success": true, "data": alerts, "count": len(alerts)})
}

func (ctl *Controller) GetAlert(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	alert, err := ctl.store.Alerts.FindByID(c.Request.Context(), id)
	if err != nil {
		ctl.respondError(c, err, "Alert not found", "Failed to fetch alert")
		return
	}
	if !services.CanView(alert, currentViewer(c)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": alert})
}

// CreateAlert stores a new alert. Creating it already published notifies its audience.
func (ctl *Controller) CreateAlert(c *gin.Context) {
	var req AlertRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Title == nil || req.Content == nil ||
		strings.TrimSpace(*req.Title) == "" || strings.TrimSpace(*req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title and content are required"})
		return
	}

	alert := &models.Alert{
		Title:     utils.SanitizeInput(*req.Title),
		Content:   strings.TrimSpace(*req.Content),
		Priority:  models.PriorityMedium,
		Tags:      utils.NormalizeTags(req.Tags),
		Questions: req.Questions,
		Status:    models.AlertActive,
		ExpiresAt: req.ExpiresAt,
		CreatedBy: currentOrganizationID(c),
	}
	if req.Priority != "" {
		alert.Priority = models.AlertPriority(strings.ToUpper(string(req.Priority)))
	}
	if !models.ValidAlertPriority(alert.Priority) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid priority. Must be one of LOW, MEDIUM, HIGH, URGENT"})
		return
	}
	if alert.Questions == nil {
		alert.Questions = []models.Question{}
	}
	if err := models.ValidateQuestions(alert.Questions); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.IsPublished != nil && *req.IsPublished {
		alert.MarkPublished(ctl.now())
	}

	ctx := c.Request.Context()
	if err := ctl.store.Alerts.Create(ctx, alert); err != nil {
		ctl.respondError(c, err, "", "Failed to create alert")
		return
	}

	result := ctl.notifyAlert(c, alert)
	c.JSON(http.StatusCreated, publishedResponse(alert, result))
}

// UpdateAlert edits an alert. Setting isPublished on a draft publishes it;
// a published alert cannot go back to draft.
func (ctl *Controller) UpdateAlert(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req AlertRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	alert, err := ctl.store.Alerts.FindByID(ctx, id)
	if err != nil {
		ctl.respondError(c, err, "Alert not found", "Failed to fetch alert")
		return
	}

	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Title cannot be empty"})
			return
		}
		alert.Title = utils.SanitizeInput(*req.Title)
	}
	if req.Content != nil {
		if strings.TrimSpace(*req.Content) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Content cannot be empty"})
			return
		}
		alert.Content = strings.TrimSpace(*req.Content)
	}
	if req.Priority != "" {
		p := models.AlertPriority(strings.ToUpper(string(req.Priority)))
		if !models.ValidAlertPriority(p) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid priority. Must be one of LOW, MEDIUM, HIGH, URGENT"})
			return
		}
		alert.Priority = p
	}
	if req.Tags != nil {
		alert.Tags = utils.NormalizeTags(req.Tags)
	}
	if req.Questions != nil {
		if err := models.ValidateQuestions(req.Questions); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		alert.Questions = req.Questions
	}
	if req.ExpiresAt != nil {
		alert.ExpiresAt = req.ExpiresAt
	}
	if req.IsPublished != nil {
		if !*req.IsPublished && alert.Published {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Published alerts cannot be unpublished"})
			return
		}
		if *req.IsPublished {
			alert.MarkPublished(ctl.now())
		}
	}

	if err := ctl.store.Alerts.Update(ctx, alert); err != nil {
		ctl.respondError(c, err, "Alert not found", "Failed to update alert")
		return
	}

	result := ctl.notifyAlert(c, alert)
	c.JSON(http.StatusOK, publishedResponse(alert, result))
}

// PublishAlert moves a draft alert to published and notifies its audience.
func (ctl *Controller) PublishAlert(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	alert, err := ctl.store.Alerts.FindByID(ctx, id)
	if err != nil {
		ctl.respondError(c, err, "Alert not found", "Failed to fetch alert")
		return
	}
	now := ctl.now()
	published, err := ctl.store.Alerts.Publish(ctx, id, now)
	if err != nil {
		ctl.respondError(c, err, "Alert not found", "Failed to publish alert")
		return
	}
	if !published {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Alert is already published"})
		return
	}
	alert.MarkPublished(now)

	result := ctl.notifyAlert(c, alert)
	c.JSON(http.StatusOK, publishedResponse(alert, result))
}

// DeleteAlert removes an alert, or archives it when responses exist.
func (ctl *Controller) DeleteAlert(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	alert, err := ctl.store.Alerts.FindByID(ctx, id)
	if err != nil {
		ctl.respondError(c, err, "Alert not found", "Failed to fetch alert")
		return
	}

	responses, err := ctl.store.Responses.CountAlertResponses(ctx, id)
	if err != nil {
		ctl.respondError(c, err, "", "Failed to delete alert")
		return
	}
	if responses > 0 {
		alert.Status = models.AlertArchived
		if err := ctl.store.Alerts.Update(ctx, alert); err != nil {
			ctl.respondError(c, err, "Alert not found", "Failed to archive alert")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Alert archived because it has existing responses",
			"data":    alert,
		})
		return
	}

	if err := ctl.store.Alerts.Delete(ctx, id); err != nil {
		ctl.respondError(c, err, "Alert not found", "Failed to delete alert")
		return
	}
	c.Status(http.StatusNoContent)
}

// AlertSummary aggregates the responses to an alert (admin).
func (ctl *Controller) AlertSummary(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	alert, err := ctl.store.Alerts.FindByID(ctx, id)
	if err != nil {
		ctl.respondError(c, err, "Alert not found", "Failed to fetch alert")
		return
	}
	rows, err := ctl.store.Responses.AllAlertResponses(ctx, id)
	if err != nil {
		ctl.respondError(c, err, "", "Failed to fetch responses")
		return
	}

	summary := services.Aggregate(alert.Questions, alertEntries(rows))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"alertId": alert.ID,
			"title":   alert.Title,
			"summary": summary,
		},
	})
}

func (ctl *Controller) notifyAlert(c *gin.Context, alert *models.Alert) *services.FanOutResult {
	note := services.Notification{
		Kind:    "alert",
		ItemID:  alert.ID,
		Title:   alert.Title,
		Summary: excerpt(alert.Content, 280),
		Tags:    alert.Tags,
		Meta:    []services.EmailMetaItem{{Label: "Priority", Value: string(alert.Priority)}},
		Path:    itemPath("alert", alert.ID),
	}
	return ctl.notifyAudience(c, &alert.PublishState, note, func(at time.Time) (bool, error) {
		return ctl.store.Alerts.ClaimNotification(c.Request.Context(), alert.ID, at)
	})
}

// visibleTo keeps the items the viewer may see.
func visibleTo[T any, P interface {
	*T
	models.Publishable
}](items []T, viewer services.Viewer) []T {
	out := make([]T, 0, len(items))
	for i := range items {
		if services.CanView(P(&items[i]), viewer) {
			out = append(out, items[i])
		}
	}
	return out
}

func excerpt(s string, limit int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return strings.TrimSpace(string(r[:limit])) + "..."
}
