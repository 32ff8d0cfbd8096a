package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"coalition-api/models"
	"coalition-api/repository"
	"coalition-api/services"
	"coalition-api/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type EventRequest struct {
	Title        *string    `json:"title"`
	Description  *string    `json:"description"`
	Location     *string    `json:"location"`
	StartsAt     *time.Time `json:"startsAt"`
	EndsAt       *time.Time `json:"endsAt"`
	MaxAttendees *int       `json:"maxAttendees"`
	Tags         []string   `json:"tags"`
	IsPublished  *bool      `json:"isPublished"`
}

type RSVPRequest struct {
	Attendees int `json:"attendees"`
}

type PublicRSVPRequest struct {
	Name      string `json:"name" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Attendees int    `json:"attendees"`
}

func (ctl *Controller) ListEvents(c *gin.Context) {
	viewer := currentViewer(c)
	filter := repository.EventFilter{PublishedOnly: !viewer.IsAdmin()}
	if c.Query("upcoming") == "true" {
		now := ctl.now()
		filter.UpcomingFrom = &now
	}

	events, err := ctl.store.Events.List(c.Request.Context(), filter)
	if err != nil {
		ctl.respondError(c, err, "", "Failed to fetch events")
		return
	}
	events = visibleTo(events, viewer)
	c.JSON(http.StatusOK, gin.H{"success": true, "data": events, "count": len(events)})
}

func (ctl *Controller) GetEvent(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	event, err := ctl.store.Events.FindByID(ctx, id)
	if err != nil {
		ctl.respondError(c, err, "Event not found", "Failed to fetch event")
		return
	}
	viewer := currentViewer(c)
	if !services.CanView(event, viewer) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	confirmed, err := ctl.store.Events.ConfirmedAttendees(ctx, id)
	if err != nil {
		ctl.respondError(c, err, "", "Failed to fetch event")
		return
	}
	body := gin.H{"success": true, "data": event, "confirmedAttendees": confirmed}
	if !viewer.IsAdmin() {
		rsvp, err := ctl.store.Events.FindRSVPByOrganization(ctx, id, viewer.OrganizationID)
		switch {
		case err == nil:
			body["myRsvp"] = rsvp
		case !errors.Is(err, repository.ErrNotFound):
			ctl.respondError(c, err, "", "Failed to fetch event")
			return
		}
	}
	c.JSON(http.StatusOK, body)
}

func (ctl *Controller) CreateEvent(c *gin.Context) {
	var req EventRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Title == nil || strings.TrimSpace(*req.Title) == "" || req.StartsAt == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title and start time are required"})
		return
	}

	event := &models.Event{
		Title:     utils.SanitizeInput(*req.Title),
		StartsAt:  *req.StartsAt,
		Tags:      utils.NormalizeTags(req.Tags),
		Status:    models.EventScheduled,
		CreatedBy: currentOrganizationID(c),
	}
	if req.Description != nil {
		event.Description = strings.TrimSpace(*req.Description)
	}
	if req.Location != nil {
		event.Location = utils.SanitizeInput(*req.Location)
	}
	event.EndsAt = req.EndsAt
	event.MaxAttendees = req.MaxAttendees
	if msg := validateEventTimes(event); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	if req.IsPublished != nil && *req.IsPublished {
		event.MarkPublished(ctl.now())
	}

	if err := ctl.store.Events.Create(c.Request.Context(), event); err != nil {
		ctl.respondError(c, err, "", "Failed to create event")
		return
	}

	result := ctl.notifyEvent(c, event)
	c.JSON(http.StatusCreated, publishedResponse(event, result))
}

func (ctl *Controller) UpdateEvent(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req EventRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	event, err := ctl.store.Events.FindByID(ctx, id)
	if err != nil {
		ctl.respondError(c, err, "Event not found", "Failed to fetch event")
		return
	}

	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Title cannot be empty"})
			return
		}
		event.Title = utils.SanitizeInput(*req.Title)
	}
	if req.Description != nil {
		event.Description = strings.TrimSpace(*req.Description)
	}
	if req.Location != nil {
		event.Location = utils.SanitizeInput(*req.Location)
	}
	if req.StartsAt != nil {
		event.StartsAt = *req.StartsAt
	}
	if req.EndsAt != nil {
		event.EndsAt = req.EndsAt
	}
	if req.MaxAttendees != nil {
		event.MaxAttendees = req.MaxAttendees
	}
	if req.Tags != nil {
		event.Tags = utils.NormalizeTags(req.Tags)
	}
	if msg := validateEventTimes(event); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	if req.IsPublished != nil {
		if *req.IsPublished {
			event.MarkPublished(ctl.now())
		} else {
			event.MarkUnpublished()
		}
	}

	if err := ctl.store.Events.Update(ctx, event); err != nil {
		ctl.respondError(c, err, "Event not found", "Failed to update event")
		return
	}

	result := ctl.notifyEvent(c, event)
	c.JSON(http.StatusOK, publishedResponse(event, result))
}

func (ctl *Controller) PublishEvent(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	event, err := ctl.store.Events.FindByID(ctx, id)
	if err != nil {
		ctl.respondError(c, err, "Event not found", "Failed to fetch event")
		return
	}
	if event.IsCancelled() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cancelled events cannot be published"})
		return
	}
	now := ctl.now()
	published, err := ctl.store.Events.Publish(ctx, id, now)
	if err != nil {
		ctl.respondError(c, err, "Event not found", "Failed to publish event")
		return
	}
	if !published {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Event is already published"})
		return
	}
	event.MarkPublished(now)

	result := ctl.notifyEvent(c, event)
	c.JSON(http.StatusOK, publishedResponse(event, result))
}

func (ctl *Controller) UnpublishEvent(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	event, err := ctl.store.Events.FindByID(ctx, id)
	if err != nil {
		ctl.respondError(c, err, "Event not found", "Failed to fetch event")
		return
	}
	if !event.MarkUnpublished() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Event is not published"})
		return
	}
	if err := ctl.store.Events.Update(ctx, event); err != nil {
		ctl.respondError(c, err, "Event not found", "Failed to unpublish event")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": event})
}

func (ctl *Controller) CancelEvent(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	event, err := ctl.store.Events.FindByID(ctx, id)
	if err != nil {
		ctl.respondError(c, err, "Event not found", "Failed to fetch event")
		return
	}
	if event.IsCancelled() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Event is already cancelled"})
		return
	}
	event.Status = models.EventCancelled
	if err := ctl.store.Events.Update(ctx, event); err != nil {
		ctl.respondError(c, err, "Event not found", "Failed to cancel event")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": event, "message": "Event cancelled"})
}

// DeleteEvent hard deletes an event without RSVPs and cancels it otherwise.
func (ctl *Controller) DeleteEvent(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	event, err := ctl.store.Events.FindByID(ctx, id)
	if err != nil {
		ctl.respondError(c, err, "Event not found", "Failed to fetch event")
		return
	}

	rsvps, err := ctl.store.Events.CountRSVPs(ctx, id)
	if err != nil {
		ctl.respondError(c, err, "", "Failed to delete event")
		return
	}
	if rsvps > 0 {
		event.Status = models.EventCancelled
		if err := ctl.store.Events.Update(ctx, event); err != nil {
			ctl.respondError(c, err, "Event not found", "Failed to cancel event")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Event cancelled because it has existing RSVPs", "data": event})
		return
	}

	if err := ctl.store.Events.Delete(ctx, id); err != nil {
		ctl.respondError(c, err, "Event not found", "Failed to delete event")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Event deleted successfully"})
}

/* ==========================
   RSVPs
   ========================== */

// RSVPEvent registers the requesting organization for an event.
func (ctl *Controller) RSVPEvent(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req RSVPRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	attendees, ok := attendeeCount(c, req.Attendees)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	org := currentOrganization(c)
	event, ok := ctl.rsvpTarget(c, id, func(e *models.Event) bool {
		return services.CanView(e, services.ViewerFor(org))
	})
	if !ok {
		return
	}

	existing, err := ctl.store.Events.FindRSVPByOrganization(ctx, id, org.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		ctl.respondError(c, err, "", "Failed to RSVP")
		return
	}
	if existing != nil && existing.Status == models.RSVPConfirmed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Your organization has already RSVPed to this event"})
		return
	}
	if !ctl.checkCapacity(c, event, attendees) {
		return
	}

	if existing != nil {
		existing.Status = models.RSVPConfirmed
		existing.Attendees = attendees
		if err := ctl.store.Events.UpdateRSVP(ctx, existing); err != nil {
			ctl.respondError(c, err, "RSVP not found", "Failed to RSVP")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": existing})
		return
	}

	orgID := org.ID
	rsvp := &models.EventRSVP{
		EventID:          id,
		OrganizationID:   &orgID,
		Name:             org.Name,
		Email:            strings.ToLower(org.Email),
		Attendees:        attendees,
		Status:           models.RSVPConfirmed,
		ConfirmationCode: uuid.NewString(),
	}
	if err := ctl.store.Events.CreateRSVP(ctx, rsvp); err != nil {
		ctl.respondError(c, err, "", "Failed to RSVP")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": rsvp})
}

// CancelRSVP withdraws the requesting organization's RSVP.
func (ctl *Controller) CancelRSVP(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	rsvp, err := ctl.store.Events.FindRSVPByOrganization(ctx, id, currentOrganizationID(c))
	if err != nil {
		ctl.respondError(c, err, "RSVP not found", "Failed to cancel RSVP")
		return
	}
	if rsvp.Status == models.RSVPCancelled {
		c.JSON(http.StatusBadRequest, gin.H{"error": "RSVP is already cancelled"})
		return
	}
	rsvp.Status = models.RSVPCancelled
	if err := ctl.store.Events.UpdateRSVP(ctx, rsvp); err != nil {
		ctl.respondError(c, err, "RSVP not found", "Failed to cancel RSVP")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": rsvp, "message": "RSVP cancelled"})
}

// ListEventRSVPs returns every RSVP of an event (admin).
func (ctl *Controller) ListEventRSVPs(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	event, err := ctl.store.Events.FindByID(ctx, id)
	if err != nil {
		ctl.respondError(c, err, "Event not found", "Failed to fetch event")
		return
	}
	rsvps, err := ctl.store.Events.ListRSVPs(ctx, id)
	if err != nil {
		ctl.respondError(c, err, "", "Failed to fetch RSVPs")
		return
	}
	confirmed, err := ctl.store.Events.ConfirmedAttendees(ctx, id)
	if err != nil {
		ctl.respondError(c, err, "", "Failed to fetch RSVPs")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":            true,
		"data":               rsvps,
		"count":              len(rsvps),
		"confirmedAttendees": confirmed,
		"maxAttendees":       event.MaxAttendees,
	})
}

/* ==========================
   Public (no auth)
   ========================== */

// ListPublicEvents lists upcoming published broadcast events.
func (ctl *Controller) ListPublicEvents(c *gin.Context) {
	now := ctl.now()
	events, err := ctl.store.Events.List(c.Request.Context(), repository.EventFilter{PublishedOnly: true, UpcomingFrom: &now})
	if err != nil {
		ctl.respondError(c, err, "", "Failed to fetch events")
		return
	}
	out := make([]models.Event, 0, len(events))
	for i := range events {
		if isPublicEvent(&events[i]) {
			out = append(out, events[i])
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": out, "count": len(out)})
}

func (ctl *Controller) GetPublicEvent(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	event, err := ctl.store.Events.FindByID(c.Request.Context(), id)
	if err != nil {
		ctl.respondError(c, err, "Event not found", "Failed to fetch event")
		return
	}
	if !isPublicEvent(event) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": event})
}

// PublicRSVP registers a named guest by email for a public event.
func (ctl *Controller) PublicRSVP(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req PublicRSVPRequest
	if !bindJSON(c, &req) {
		return
	}
	attendees, ok := attendeeCount(c, req.Attendees)
	if !ok {
		return
	}
	name := utils.SanitizeInput(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" || !utils.ValidateEmail(email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name and a valid email are required"})
		return
	}

	ctx := c.Request.Context()
	event, ok := ctl.rsvpTarget(c, id, isPublicEvent)
	if !ok {
		return
	}

	existing, err := ctl.store.Events.FindRSVPByEmail(ctx, id, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		ctl.respondError(c, err, "", "Failed to RSVP")
		return
	}
	if existing != nil && existing.Status == models.RSVPConfirmed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "This email has already RSVPed to this event"})
		return
	}
	if !ctl.checkCapacity(c, event, attendees) {
		return
	}

	if existing != nil {
		existing.Name = name
		existing.Attendees = attendees
		existing.Status = models.RSVPConfirmed
		existing.ConfirmationCode = uuid.NewString()
		if err := ctl.store.Events.UpdateRSVP(ctx, existing); err != nil {
			ctl.respondError(c, err, "RSVP not found", "Failed to RSVP")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "confirmationCode": existing.ConfirmationCode})
		return
	}

	rsvp := &models.EventRSVP{
		EventID:          id,
		Name:             name,
		Email:            email,
		Attendees:        attendees,
		Status:           models.RSVPConfirmed,
		ConfirmationCode: uuid.NewString(),
	}
	if err := ctl.store.Events.CreateRSVP(ctx, rsvp); err != nil {
		ctl.respondError(c, err, "", "Failed to RSVP")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success":          true,
		"confirmationCode": rsvp.ConfirmationCode,
		"message":          fmt.Sprintf("You are registered for %s", event.Title),
	})
}

/* ==========================
   Helpers
   ========================== */

// rsvpTarget loads an event that can accept an RSVP. allowed hides events
// the requester may not see; those answer 404.
func (ctl *Controller) rsvpTarget(c *gin.Context, id uint, allowed func(*models.Event) bool) (*models.Event, bool) {
	event, err := ctl.store.Events.FindByID(c.Request.Context(), id)
	if err != nil {
		ctl.respondError(c, err, "Event not found", "Failed to fetch event")
		return nil, false
	}
	if !allowed(event) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return nil, false
	}
	if event.IsCancelled() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Event has been cancelled"})
		return nil, false
	}
	return event, true
}

func (ctl *Controller) checkCapacity(c *gin.Context, event *models.Event, attendees int) bool {
	confirmed, err := ctl.store.Events.ConfirmedAttendees(c.Request.Context(), event.ID)
	if err != nil {
		ctl.respondError(c, err, "", "Failed to RSVP")
		return false
	}
	if !event.HasCapacity(confirmed + int64(attendees) - 1) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Event is full"})
		return false
	}
	return true
}

func attendeeCount(c *gin.Context, n int) (int, bool) {
	switch {
	case n == 0:
		return 1, true
	case n < 0 || n > 50:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Attendees must be between 1 and 50"})
		return 0, false
	}
	return n, true
}

func validateEventTimes(e *models.Event) string {
	if e.EndsAt != nil && e.EndsAt.Before(e.StartsAt) {
		return "End time must be after start time"
	}
	if e.MaxAttendees != nil && *e.MaxAttendees < 0 {
		return "maxAttendees cannot be negative"
	}
	return ""
}

func isPublicEvent(e *models.Event) bool {
	return e.Published && len(e.Tags) == 0 && !e.IsCancelled()
}

func (ctl *Controller) notifyEvent(c *gin.Context, event *models.Event) *services.FanOutResult {
	meta := []services.EmailMetaItem{{Label: "Starts", Value: event.StartsAt.Format("Mon, 02 Jan 2006 15:04 MST")}}
	if event.Location != "" {
		meta = append(meta, services.EmailMetaItem{Label: "Location", Value: event.Location})
	}
	note := services.Notification{
		Kind:    "event",
		ItemID:  event.ID,
		Title:   event.Title,
		Summary: excerpt(event.Description, 280),
		Tags:    event.Tags,
		Meta:    meta,
		Path:    itemPath("event", event.ID),
	}
	return ctl.notifyAudience(c, &event.PublishState, note, func(at time.Time) (bool, error) {
		return ctl.store.Events.ClaimNotification(c.Request.Context(), event.ID, at)
	})
}
