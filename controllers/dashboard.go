package controllers

import (
	"net/http"

	"coalition-api/models"

	"github.com/gin-gonic/gin"
)

type OrganizationStats struct {
	Total    int64 `json:"total"`
	Active   int64 `json:"active"`
	Pending  int64 `json:"pending"`
	Inactive int64 `json:"inactive"`
	Rejected int64 `json:"rejected"`
}

type ContentStats struct {
	Alerts        int64 `json:"alerts"`
	Announcements int64 `json:"announcements"`
	Events        int64 `json:"events"`
	Surveys       int64 `json:"surveys"`
}

type DashboardStats struct {
	Organizations   OrganizationStats `json:"organizations"`
	Published       ContentStats      `json:"published"`
	Responses       int64             `json:"responses"`
	ScheduledEmails int64             `json:"scheduledEmails"`
	CurrentDate     string            `json:"currentDate"`
}

// GetDashboardStats returns the admin dashboard counters
func (ctl *Controller) GetDashboardStats(c *gin.Context) {
	ctx := c.Request.Context()
	var stats DashboardStats

	byStatus, err := ctl.store.Organizations.CountByStatus(ctx)
	if err != nil {
		ctl.respondError(c, err, "", "Failed to load dashboard")
		return
	}
	stats.Organizations = OrganizationStats{
		Active:   byStatus[models.OrganizationActive],
		Pending:  byStatus[models.OrganizationPending],
		Inactive: byStatus[models.OrganizationInactive],
		Rejected: byStatus[models.OrganizationRejected],
	}
	for _, n := range byStatus {
		stats.Organizations.Total += n
	}

	counters := []struct {
		dst   *int64
		count func() (int64, error)
	}{
		{&stats.Published.Alerts, func() (int64, error) { return ctl.store.Alerts.CountPublished(ctx) }},
		{&stats.Published.Announcements, func() (int64, error) { return ctl.store.Announcements.CountPublished(ctx) }},
		{&stats.Published.Events, func() (int64, error) { return ctl.store.Events.CountPublished(ctx) }},
		{&stats.Published.Surveys, func() (int64, error) { return ctl.store.Surveys.CountPublished(ctx) }},
		{&stats.Responses, func() (int64, error) { return ctl.store.Responses.CountAll(ctx) }},
		{&stats.ScheduledEmails, func() (int64, error) { return ctl.store.Emails.CountByStatus(ctx, models.EmailScheduled) }},
	}
	for _, counter := range counters {
		n, err := counter.count()
		if err != nil {
			ctl.respondError(c, err, "", "Failed to load dashboard")
			return
		}
		*counter.dst = n
	}

	stats.CurrentDate = ctl.now().Format("2006-01-02")
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}
