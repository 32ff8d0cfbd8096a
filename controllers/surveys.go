package controllers

import (
	"net/http"
	"strings"
	"time"

	"coalition-api/models"
	"coalition-api/services"
	"coalition-api/utils"

	"github.com/gin-gonic/gin"
)

type SurveyRequest struct {
	Title       *string           `json:"title"`
	Description *string           `json:"description"`
	Questions   []models.Question `json:"questions"`
	Tags        []string          `json:"tags"`
	ClosesAt    *time.Time        `json:"closesAt"`
	IsPublished *bool             `json:"isPublished"`
}

func (ctl *Controller) ListSurveys(c *gin.Context) {
	viewer := currentViewer(c)
	surveys, err := ctl.store.Surveys.List(c.Request.Context(), !viewer.IsAdmin())
	if err != nil {
		ctl.respondError(c, err, "", "Failed to fetch surveys")
		return
	}
	surveys = visibleTo(surveys, viewer)
	c.JSON(http.StatusOK, gin.H{"success": true, "data": surveys, "count": len(surveys)})
}

func (ctl *Controller) GetSurvey(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	survey, err := ctl.store.Surveys.FindByID(c.Request.Context(), id)
	if err != nil {
		ctl.respondError(c, err, "Survey not found", "Failed to fetch survey")
		return
	}
	if !services.CanView(survey, currentViewer(c)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": survey})
}

func (ctl *Controller) CreateSurvey(c *gin.Context) {
	var req SurveyRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title is required"})
		return
	}
	if len(req.Questions) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least one question is required"})
		return
	}
	if err := models.ValidateQuestions(req.Questions); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	survey := &models.Survey{
		Title:     utils.SanitizeInput(*req.Title),
		Questions: req.Questions,
		Tags:      utils.NormalizeTags(req.Tags),
		Status:    models.SurveyOpen,
		ClosesAt:  req.ClosesAt,
		CreatedBy: currentOrganizationID(c),
	}
	if req.Description != nil {
		survey.Description = strings.TrimSpace(*req.Description)
	}
	if req.IsPublished != nil && *req.IsPublished {
		survey.MarkPublished(ctl.now())
	}

	if err := ctl.store.Surveys.Create(c.Request.Context(), survey); err != nil {
		ctl.respondError(c, err, "", "Failed to create survey")
		return
	}

	result := ctl.notifySurvey(c, survey)
	c.JSON(http.StatusCreated, publishedResponse(survey, result))
}

// UpdateSurvey edits a survey. Questions are frozen once responses exist.
func (ctl *Controller) UpdateSurvey(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req SurveyRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	survey, err := ctl.store.Surveys.FindByID(ctx, id)
	if err != nil {
		ctl.respondError(c, err, "Survey not found", "Failed to fetch survey")
		return
	}

	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Title cannot be empty"})
			return
		}
		survey.Title = utils.SanitizeInput(*req.Title)
	}
	if req.Description != nil {
		survey.Description = strings.TrimSpace(*req.Description)
	}
	if req.Questions != nil {
		responses, err := ctl.store.Responses.CountSurveyResponses(ctx, id)
		if err != nil {
			ctl.respondError(c, err, "", "Failed to update survey")
			return
		}
		if responses > 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Questions cannot be changed after responses have been submitted"})
			return
		}
		if len(req.Questions) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "At least one question is required"})
			return
		}
		if err := models.ValidateQuestions(req.Questions); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		survey.Questions = req.Questions
	}
	if req.Tags != nil {
		survey.Tags = utils.NormalizeTags(req.Tags)
	}
	if req.ClosesAt != nil {
		survey.ClosesAt = req.ClosesAt
	}
	if req.IsPublished != nil {
		if *req.IsPublished {
			survey.MarkPublished(ctl.now())
		} else {
			survey.MarkUnpublished()
		}
	}

	if err := ctl.store.Surveys.Update(ctx, survey); err != nil {
		ctl.respondError(c, err, "Survey not found", "Failed to update survey")
		return
	}

	result := ctl.notifySurvey(c, survey)
	c.JSON(http.StatusOK, publishedResponse(survey, result))
}

func (ctl *Controller) PublishSurvey(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	survey, err := ctl.store.Surveys.FindByID(ctx, id)
	if err != nil {
		ctl.respondError(c, err, "Survey not found", "Failed to fetch survey")
		return
	}
	now := ctl.now()
	published, err := ctl.store.Surveys.Publish(ctx, id, now)
	if err != nil {
		ctl.respondError(c, err, "Survey not found", "Failed to publish survey")
		return
	}
	if !published {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Survey is already published"})
		return
	}
	survey.MarkPublished(now)

	result := ctl.notifySurvey(c, survey)
	c.JSON(http.StatusOK, publishedResponse(survey, result))
}

func (ctl *Controller) CloseSurvey(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	survey, err := ctl.store.Surveys.FindByID(ctx, id)
	if err != nil {
		ctl.respondError(c, err, "Survey not found", "Failed to fetch survey")
		return
	}
	if survey.Status == models.SurveyClosed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Survey is already closed"})
		return
	}
	survey.Status = models.SurveyClosed
	if err := ctl.store.Surveys.Update(ctx, survey); err != nil {
		ctl.respondError(c, err, "Survey not found", "Failed to close survey")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": survey})
}

// DeleteSurvey removes a survey, or closes it when responses exist.
func (ctl *Controller) DeleteSurvey(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	survey, err := ctl.store.Surveys.FindByID(ctx, id)
	if err != nil {
		ctl.respondError(c, err, "Survey not found", "Failed to fetch survey")
		return
	}

	responses, err := ctl.store.Responses.CountSurveyResponses(ctx, id)
	if err != nil {
		ctl.respondError(c, err, "", "Failed to delete survey")
		return
	}
	if responses > 0 {
		survey.Status = models.SurveyClosed
		if err := ctl.store.Surveys.Update(ctx, survey); err != nil {
			ctl.respondError(c, err, "Survey not found", "Failed to close survey")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Survey closed because it has existing responses",
			"data":    survey,
		})
		return
	}

	if err := ctl.store.Surveys.Delete(ctx, id); err != nil {
		ctl.respondError(c, err, "Survey not found", "Failed to delete survey")
		return
	}
	c.Status(http.StatusNoContent)
}

func (ctl *Controller) SurveySummary(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	survey, err := ctl.store.Surveys.FindByID(ctx, id)
	if err != nil {
		ctl.respondError(c, err, "Survey not found", "Failed to fetch survey")
		return
	}
	rows, err := ctl.store.Responses.AllSurveyResponses(ctx, id)
	if err != nil {
		ctl.respondError(c, err, "", "Failed to fetch responses")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"surveyId": survey.ID,
			"title":    survey.Title,
			"summary":  services.Aggregate(survey.Questions, surveyEntries(rows)),
		},
	})
}

func (ctl *Controller) notifySurvey(c *gin.Context, survey *models.Survey) *services.FanOutResult {
	var meta []services.EmailMetaItem
	if survey.ClosesAt != nil {
		meta = append(meta, services.EmailMetaItem{Label: "Closes", Value: survey.ClosesAt.Format("Mon, 02 Jan 2006")})
	}
	note := services.Notification{
		Kind:    "survey",
		ItemID:  survey.ID,
		Title:   survey.Title,
		Summary: excerpt(survey.Description, 280),
		Tags:    survey.Tags,
		Meta:    meta,
		Path:    itemPath("survey", survey.ID),
	}
	return ctl.notifyAudience(c, &survey.PublishState, note, func(at time.Time) (bool, error) {
		return ctl.store.Surveys.ClaimNotification(c.Request.Context(), survey.ID, at)
	})
}
