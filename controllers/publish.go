package controllers

import (
	"fmt"
	"time"

	"coalition-api/models"
	"coalition-api/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// notifyAudience runs the publish fan-out once per item. claim stamps the
// notification time in storage before any mail goes out; a request that loses
// the claim sends nothing. It returns nil when nothing was sent.
func (ctl *Controller) notifyAudience(c *gin.Context, state *models.PublishState, note services.Notification, claim func(at time.Time) (bool, error)) *services.FanOutResult {
	if ctl.notifier == nil || !state.NeedsNotification() {
		return nil
	}

	fields := logrus.Fields{"kind": note.Kind, "item": note.ItemID}
	now := ctl.now()
	claimed, err := claim(now)
	if err != nil {
		ctl.log.WithError(err).WithFields(fields).Error("failed to claim publish notification")
		return nil
	}
	if !claimed {
		return nil
	}
	state.MarkNotified(now)

	result, err := ctl.notifier.NotifyPublished(c.Request.Context(), note)
	if err != nil {
		ctl.log.WithError(err).WithFields(fields).Error("publish notification failed")
		return nil
	}
	return &result
}

func publishedResponse(item interface{}, result *services.FanOutResult) gin.H {
	body := gin.H{"success": true, "data": item}
	if result != nil {
		body["notification"] = result
	}
	return body
}

func itemPath(kind string, id uint) string {
	return fmt.Sprintf("%ss/%d", kind, id)
}
