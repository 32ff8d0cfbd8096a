package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"coalition-api/models"
	"coalition-api/repository"
	"coalition-api/services"
	"coalition-api/utils"

	"github.com/gin-gonic/gin"
)

type AlertResponseRequest struct {
	AlertID uint                   `json:"alertId" binding:"required"`
	Answers map[string]interface{} `json:"answers"`
}

type SurveyResponseRequest struct {
	SurveyID uint                   `json:"surveyId" binding:"required"`
	Answers  map[string]interface{} `json:"answers"`
}

const (
	duplicateAlertResponse  = "Your organization has already responded to this alert"
	duplicateSurveyResponse = "Your organization has already responded to this survey"
)

// SubmitAlertResponse stores the requesting organization's answers to an
// alert. Each organization answers an alert at most once.
func (ctl *Controller) SubmitAlertResponse(c *gin.Context) {
	var req AlertResponseRequest
	if !bindJSON(c, &req) {
		return
	}
	viewer := currentViewer(c)
	if viewer.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only member organizations can respond"})
		return
	}

	ctx := c.Request.Context()
	alert, err := ctl.store.Alerts.FindByID(ctx, req.AlertID)
	if err != nil {
		ctl.respondError(c, err, "Alert not found", "Failed to submit response")
		return
	}
	if !services.CanView(alert, viewer) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}
	now := ctl.now()
	if !alert.AcceptsResponses(now) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "This alert is no longer accepting responses"})
		return
	}

	exists, err := ctl.store.Responses.AlertResponseExists(ctx, alert.ID, viewer.OrganizationID)
	if err != nil {
		ctl.respondError(c, err, "", "Failed to submit response")
		return
	}
	if exists {
		c.JSON(http.StatusBadRequest, gin.H{"error": duplicateAlertResponse})
		return
	}

	answers, err := services.ValidateAnswers(alert.Questions, req.Answers)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp := &models.AlertResponse{
		AlertID:        alert.ID,
		OrganizationID: viewer.OrganizationID,
		Answers:        answers,
		SubmittedAt:    now,
	}
	if err := ctl.store.Responses.CreateAlertResponse(ctx, resp); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			c.JSON(http.StatusBadRequest, gin.H{"error": duplicateAlertResponse})
			return
		}
		ctl.respondError(c, err, "", "Failed to submit response")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": resp, "message": "Response submitted successfully"})
}

func (ctl *Controller) SubmitSurveyResponse(c *gin.Context) {
	var req SurveyResponseRequest
	if !bindJSON(c, &req) {
		return
	}
	viewer := currentViewer(c)
	if viewer.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only member organizations can respond"})
		return
	}

	ctx := c.Request.Context()
	survey, err := ctl.store.Surveys.FindByID(ctx, req.SurveyID)
	if err != nil {
		ctl.respondError(c, err, "Survey not found", "Failed to submit response")
		return
	}
	if !services.CanView(survey, viewer) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}
	now := ctl.now()
	if !survey.AcceptsResponses(now) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "This survey is closed"})
		return
	}

	exists, err := ctl.store.Responses.SurveyResponseExists(ctx, survey.ID, viewer.OrganizationID)
	if err != nil {
		ctl.respondError(c, err, "", "Failed to submit response")
		return
	}
	if exists {
		c.JSON(http.StatusBadRequest, gin.H{"error": duplicateSurveyResponse})
		return
	}

	answers, err := services.ValidateAnswers(survey.Questions, req.Answers)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp := &models.SurveyResponse{
		SurveyID:       survey.ID,
		OrganizationID: viewer.OrganizationID,
		Answers:        answers,
		SubmittedAt:    now,
	}
	if err := ctl.store.Responses.CreateSurveyResponse(ctx, resp); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			c.JSON(http.StatusBadRequest, gin.H{"error": duplicateSurveyResponse})
			return
		}
		ctl.respondError(c, err, "", "Failed to submit response")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": resp, "message": "Response submitted successfully"})
}

// ListAlertResponses pages through alert responses (admin), optionally for one alert.
func (ctl *Controller) ListAlertResponses(c *gin.Context) {
	alertID, ok := parseOptionalUint(c.Query("alertId"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid alertId"})
		return
	}
	page := utils.ParsePageRequest(c.Query("page"), c.Query("limit"))

	rows, total, err := ctl.store.Responses.ListAlertResponses(c.Request.Context(), alertID, page)
	if err != nil {
		ctl.respondError(c, err, "", "Failed to fetch responses")
		return
	}
	if rows == nil {
		rows = []models.AlertResponse{}
	}
	pagedResponse(c, rows, page, total)
}

func (ctl *Controller) ListSurveyResponses(c *gin.Context) {
	surveyID, ok := parseOptionalUint(c.Query("surveyId"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid surveyId"})
		return
	}
	page := utils.ParsePageRequest(c.Query("page"), c.Query("limit"))

	rows, total, err := ctl.store.Responses.ListSurveyResponses(c.Request.Context(), surveyID, page)
	if err != nil {
		ctl.respondError(c, err, "", "Failed to fetch responses")
		return
	}
	if rows == nil {
		rows = []models.SurveyResponse{}
	}
	pagedResponse(c, rows, page, total)
}

func (ctl *Controller) MyAlertResponses(c *gin.Context) {
	rows, err := ctl.store.Responses.AlertResponsesByOrganization(c.Request.Context(), currentOrganizationID(c))
	if err != nil {
		ctl.respondError(c, err, "", "Failed to fetch responses")
		return
	}
	if rows == nil {
		rows = []models.AlertResponse{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": rows, "count": len(rows)})
}

func (ctl *Controller) MySurveyResponses(c *gin.Context) {
	rows, err := ctl.store.Responses.SurveyResponsesByOrganization(c.Request.Context(), currentOrganizationID(c))
	if err != nil {
		ctl.respondError(c, err, "", "Failed to fetch responses")
		return
	}
	if rows == nil {
		rows = []models.SurveyResponse{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": rows, "count": len(rows)})
}

func alertEntries(rows []models.AlertResponse) []services.ResponseEntry {
	out := make([]services.ResponseEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, services.ResponseEntry{
			OrganizationID:   r.OrganizationID,
			OrganizationName: organizationName(r.Organization, r.OrganizationID),
			Answers:          r.Answers,
			SubmittedAt:      r.SubmittedAt,
		})
	}
	return out
}

func surveyEntries(rows []models.SurveyResponse) []services.ResponseEntry {
	out := make([]services.ResponseEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, services.ResponseEntry{
			OrganizationID:   r.OrganizationID,
			OrganizationName: organizationName(r.Organization, r.OrganizationID),
			Answers:          r.Answers,
			SubmittedAt:      r.SubmittedAt,
		})
	}
	return out
}

func organizationName(org *models.Organization, id uint) string {
	if org != nil && org.Name != "" {
		return org.Name
	}
	return fmt.Sprintf("Organization #%d", id)
}
