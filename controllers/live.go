package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// LiveFeed upgrades the connection and streams publish events the
// organization is allowed to see.
func (ctl *Controller) LiveFeed(c *gin.Context) {
	if ctl.live == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Live feed is not available"})
		return
	}
	// Serve writes its own error response when the upgrade fails.
	if err := ctl.live.Serve(c.Writer, c.Request, currentViewer(c)); err != nil {
		ctl.log.WithError(err).WithField("organization", currentOrganizationID(c)).Warn("live feed upgrade failed")
	}
}
