package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"coalition-api/models"
	"coalition-api/repository"
	"coalition-api/services"
	"coalition-api/utils"

	"github.com/gin-gonic/gin"
)

type RecipientFilterRequest struct {
	Tags    []string `json:"tags"`
	Regions []string `json:"regions"`
	Sizes   []string `json:"sizes"`
}

type RecipientView struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type SendEmailRequest struct {
	Subject      string     `json:"subject" binding:"required"`
	Body         string     `json:"body" binding:"required"`
	Recipients   []string   `json:"recipients" binding:"required"`
	ScheduledFor *time.Time `json:"scheduledFor"`
}

// ResolveRecipients narrows the active members by tag audience, region and size.
func (ctl *Controller) ResolveRecipients(c *gin.Context) {
	var req RecipientFilterRequest
	if !bindJSON(c, &req) {
		return
	}

	members, err := ctl.store.Organizations.ListActiveMembers(c.Request.Context())
	if err != nil {
		ctl.respondError(c, err, "", "Failed to resolve recipients")
		return
	}

	regions := lowerSet(req.Regions)
	sizes := lowerSet(req.Sizes)
	audience := services.ComputeAudience(utils.NormalizeTags(req.Tags), members)

	recipients := make([]RecipientView, 0, len(audience))
	emails := make([]string, 0, len(audience))
	for _, org := range audience {
		if len(regions) > 0 && !regions[strings.ToLower(org.Region)] {
			continue
		}
		if len(sizes) > 0 && !sizes[strings.ToLower(org.Size)] {
			continue
		}
		recipients = append(recipients, RecipientView{ID: org.ID, Name: org.Name, Email: org.Email})
		emails = append(emails, org.Email)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"emails":        emails,
		"organizations": recipients,
		"count":         len(recipients),
	})
}

// SendEmail sends a custom email now, or stores it for the dispatcher when
// scheduledFor is in the future.
func (ctl *Controller) SendEmail(c *gin.Context) {
	var req SendEmailRequest
	if !bindJSON(c, &req) {
		return
	}
	subject := utils.SanitizeInput(req.Subject)
	body := strings.TrimSpace(req.Body)
	if subject == "" || body == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Subject and body are required"})
		return
	}

	recipients, invalid := utils.NormalizeEmails(req.Recipients)
	if len(invalid) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recipient email addresses", "invalid": invalid})
		return
	}
	if len(recipients) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least one recipient is required"})
		return
	}

	ctx := c.Request.Context()
	now := ctl.now()
	h := &models.EmailHistory{
		Subject:    subject,
		Body:       body,
		Recipients: recipients,
		CreatedBy:  currentOrganizationID(c),
	}

	if req.ScheduledFor != nil && req.ScheduledFor.After(now) {
		h.Status = models.EmailScheduled
		h.ScheduledFor = req.ScheduledFor
		if err := ctl.store.Emails.Create(ctx, h); err != nil {
			ctl.respondError(c, err, "", "Failed to schedule email")
			return
		}
		ctl.log.WithField("email", h.ID).WithField("scheduledFor", h.ScheduledFor).Info("custom email scheduled")
		c.JSON(http.StatusCreated, gin.H{"success": true, "data": h, "message": "Email scheduled"})
		return
	}

	h.Status = models.EmailSending
	if err := ctl.store.Emails.Create(ctx, h); err != nil {
		ctl.respondError(c, err, "", "Failed to send email")
		return
	}

	result := ctl.emails.Deliver(ctx, h, now)
	if err := ctl.store.Emails.Update(ctx, h); err != nil {
		ctl.log.WithError(err).WithField("email", h.ID).Error("failed to record email outcome")
	}

	c.JSON(http.StatusOK, gin.H{"success": h.Status == models.EmailSent, "data": h, "result": result})
}

func (ctl *Controller) ListEmailHistory(c *gin.Context) {
	status := models.EmailStatus(strings.ToUpper(strings.TrimSpace(c.Query("status"))))
	if status != "" && !models.ValidEmailStatus(status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}
	page := utils.ParsePageRequest(c.Query("page"), c.Query("limit"))

	rows, total, err := ctl.store.Emails.List(c.Request.Context(), status, page)
	if err != nil {
		ctl.respondError(c, err, "", "Failed to fetch email history")
		return
	}
	if rows == nil {
		rows = []models.EmailHistory{}
	}
	pagedResponse(c, rows, page, total)
}

func (ctl *Controller) GetEmailHistory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	h, err := ctl.store.Emails.FindByID(c.Request.Context(), id)
	if err != nil {
		ctl.respondError(c, err, "Email not found", "Failed to fetch email")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": h})
}

// DeleteEmailHistory cancels a scheduled email. Sent history is immutable.
func (ctl *Controller) DeleteEmailHistory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	err := ctl.store.Emails.DeleteScheduled(c.Request.Context(), id)
	if errors.Is(err, repository.ErrNotScheduled) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only scheduled emails can be deleted"})
		return
	}
	if err != nil {
		ctl.respondError(c, err, "Email not found", "Failed to delete email")
		return
	}
	c.Status(http.StatusNoContent)
}

func lowerSet(values []string) map[string]bool {
	out := make(map[string]bool, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out[v] = true
		}
	}
	return out
}
