package controllers

import (
	"net/http"
	"sort"
	"strings"

	"coalition-api/models"
	"coalition-api/repository"
	"coalition-api/utils"

	"github.com/gin-gonic/gin"
)

type UpdateOrganizationRequest struct {
	Name         *string                    `json:"name"`
	ContactName  *string                    `json:"contactName"`
	ContactPhone *string                    `json:"contactPhone"`
	Website      *string                    `json:"website"`
	Description  *string                    `json:"description"`
	Region       *string                    `json:"region"`
	Size         *string                    `json:"size"`
	Tags         []string                   `json:"tags"`
	Status       *models.OrganizationStatus `json:"status"`
	Role         *models.Role               `json:"role"`
}

type OrganizationStatusRequest struct {
	Status models.OrganizationStatus `json:"status" binding:"required"`
}

// ListOrganizations returns organizations filtered by status, tag, region or size (admin).
func (ctl *Controller) ListOrganizations(c *gin.Context) {
	filter := repository.OrganizationFilter{
		Status: models.OrganizationStatus(strings.ToUpper(c.Query("status"))),
		Role:   models.Role(strings.ToUpper(c.Query("role"))),
		Tag:    strings.ToLower(strings.TrimSpace(c.Query("tag"))),
		Region: strings.TrimSpace(c.Query("region")),
		Size:   strings.TrimSpace(c.Query("size")),
	}
	if filter.Status != "" && !models.ValidOrganizationStatus(filter.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	orgs, err := ctl.store.Organizations.List(c.Request.Context(), filter)
	if err != nil {
		ctl.respondError(c, err, "", "Failed to fetch organizations")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": orgs, "count": len(orgs)})
}

// ListOrganizationTags returns the distinct tags carried by active organizations.
func (ctl *Controller) ListOrganizationTags(c *gin.Context) {
	orgs, err := ctl.store.Organizations.List(c.Request.Context(), repository.OrganizationFilter{Status: models.OrganizationActive})
	if err != nil {
		ctl.respondError(c, err, "", "Failed to fetch tags")
		return
	}

	seen := make(map[string]bool)
	tags := make([]string, 0)
	for _, org := range orgs {
		for _, t := range org.Tags {
			if !seen[t] {
				seen[t] = true
				tags = append(tags, t)
			}
		}
	}
	sort.Strings(tags)
	c.JSON(http.StatusOK, gin.H{"success": true, "data": tags})
}

func (ctl *Controller) GetOrganization(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if !canManageOrganization(c, id) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	org, err := ctl.store.Organizations.FindByID(c.Request.Context(), id)
	if err != nil {
		ctl.respondError(c, err, "Organization not found", "Failed to fetch organization")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": org})
}

// UpdateOrganization edits a profile. Members may edit their own profile but
// never their status or role.
func (ctl *Controller) UpdateOrganization(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if !canManageOrganization(c, id) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	var req UpdateOrganizationRequest
	if !bindJSON(c, &req) {
		return
	}

	admin := currentViewer(c).IsAdmin()
	if !admin && (req.Status != nil || req.Role != nil) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		return
	}
	if req.Status != nil && !models.ValidOrganizationStatus(*req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}
	if req.Role != nil && *req.Role != models.RoleAdmin && *req.Role != models.RoleMember {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
		return
	}

	ctx := c.Request.Context()
	org, err := ctl.store.Organizations.FindByID(ctx, id)
	if err != nil {
		ctl.respondError(c, err, "Organization not found", "Failed to fetch organization")
		return
	}

	if req.Name != nil {
		name := utils.SanitizeInput(*req.Name)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Name is required"})
			return
		}
		org.Name = name
	}
	setString(&org.ContactName, req.ContactName)
	setString(&org.ContactPhone, req.ContactPhone)
	setString(&org.Website, req.Website)
	setString(&org.Description, req.Description)
	setString(&org.Region, req.Region)
	setString(&org.Size, req.Size)
	if req.Tags != nil {
		org.Tags = utils.NormalizeTags(req.Tags)
	}
	if req.Status != nil {
		org.Status = *req.Status
	}
	if req.Role != nil {
		org.Role = *req.Role
	}

	if err := ctl.store.Organizations.Update(ctx, org); err != nil {
		ctl.respondError(c, err, "Organization not found", "Failed to update organization")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": org, "message": "Organization updated successfully"})
}

// ApproveOrganization activates a PENDING organization and sends the welcome
// email. A failed email is logged only.
func (ctl *Controller) ApproveOrganization(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	org, err := ctl.store.Organizations.FindByID(ctx, id)
	if err != nil {
		ctl.respondError(c, err, "Organization not found", "Failed to fetch organization")
		return
	}
	if org.Status != models.OrganizationPending {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only pending organizations can be approved"})
		return
	}

	now := ctl.now()
	org.Status = models.OrganizationActive
	org.ApprovedAt = &now
	if err := ctl.store.Organizations.Update(ctx, org); err != nil {
		ctl.respondError(c, err, "Organization not found", "Failed to approve organization")
		return
	}

	if ctl.notifier != nil {
		if err := ctl.notifier.SendWelcome(ctx, org); err != nil {
			ctl.log.WithError(err).WithField("organization", org.ID).Warn("welcome email failed")
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": org, "message": "Organization approved"})
}

// SetOrganizationStatus is the soft status change used instead of deletes.
func (ctl *Controller) SetOrganizationStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req OrganizationStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	req.Status = models.OrganizationStatus(strings.ToUpper(string(req.Status)))
	if !models.ValidOrganizationStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}
	if id == currentOrganizationID(c) && req.Status != models.OrganizationActive {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You cannot deactivate your own organization"})
		return
	}

	ctx := c.Request.Context()
	org, err := ctl.store.Organizations.FindByID(ctx, id)
	if err != nil {
		ctl.respondError(c, err, "Organization not found", "Failed to fetch organization")
		return
	}

	org.Status = req.Status
	if req.Status == models.OrganizationActive && org.ApprovedAt == nil {
		now := ctl.now()
		org.ApprovedAt = &now
	}
	if err := ctl.store.Organizations.Update(ctx, org); err != nil {
		ctl.respondError(c, err, "Organization not found", "Failed to update organization status")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": org})
}

func canManageOrganization(c *gin.Context, id uint) bool {
	v := currentViewer(c)
	return v.IsAdmin() || v.OrganizationID == id
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = utils.SanitizeInput(*src)
	}
}
