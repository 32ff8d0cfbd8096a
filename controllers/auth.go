package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"coalition-api/models"
	"coalition-api/repository"
	"coalition-api/utils"

	"github.com/gin-gonic/gin"
)

type RegisterRequest struct {
	Name         string   `json:"name" binding:"required"`
	Email        string   `json:"email" binding:"required,email"`
	Password     string   `json:"password" binding:"required"`
	ContactName  string   `json:"contactName"`
	ContactPhone string   `json:"contactPhone"`
	Website      string   `json:"website"`
	Description  string   `json:"description"`
	Region       string   `json:"region"`
	Size         string   `json:"size"`
	Tags         []string `json:"tags"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token        string               `json:"token"`
	ExpiresAt    time.Time            `json:"expiresAt"`
	Organization *models.Organization `json:"organization"`
	Message      string               `json:"message"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

// Register creates a PENDING member organization awaiting admin approval.
func (ctl *Controller) Register(c *gin.Context) {
	var req RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	email := strings.ToLower(utils.SanitizeInput(req.Email))
	if !utils.ValidateEmail(email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email address"})
		return
	}
	if ok, msg := utils.ValidatePassword(req.Password); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		ctl.log.WithError(err).Error("failed to hash password")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register organization"})
		return
	}

	org := &models.Organization{
		Name:         utils.SanitizeInput(req.Name),
		Email:        email,
		Password:     hash,
		ContactName:  utils.SanitizeInput(req.ContactName),
		ContactPhone: utils.SanitizeInput(req.ContactPhone),
		Website:      utils.SanitizeInput(req.Website),
		Description:  utils.SanitizeInput(req.Description),
		Region:       utils.SanitizeInput(req.Region),
		Size:         utils.SanitizeInput(req.Size),
		Tags:         utils.NormalizeTags(req.Tags),
		Status:       models.OrganizationPending,
		Role:         models.RoleMember,
	}

	if err := ctl.store.Organizations.Create(c.Request.Context(), org); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "An organization with this email already exists"})
			return
		}
		ctl.respondError(c, err, "", "Failed to register organization")
		return
	}

	ctl.log.WithField("organization", org.ID).Info("organization registered")
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Registration received. An administrator will review your application.",
		"data":    org,
	})
}

// Login authenticates an ACTIVE organization and returns a bearer token.
func (ctl *Controller) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	org, err := ctl.store.Organizations.FindByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		ctl.respondError(c, err, "", "Failed to sign in")
		return
	}

	if !utils.CheckPasswordHash(req.Password, org.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}
	if !org.IsActive() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Organization is not active"})
		return
	}

	token, expiresAt, err := ctl.tokens.GenerateToken(org)
	if err != nil {
		ctl.log.WithError(err).Error("failed to generate token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:        token,
		ExpiresAt:    expiresAt,
		Organization: org,
		Message:      "Login successful",
	})
}

// Me returns the authenticated organization.
func (ctl *Controller) Me(c *gin.Context) {
	org := currentOrganization(c)
	if org == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": org})
}

func (ctl *Controller) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	org := currentOrganization(c)
	if org == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	if !utils.CheckPasswordHash(req.CurrentPassword, org.Password) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Current password is incorrect"})
		return
	}
	if ok, msg := utils.ValidatePassword(req.NewPassword); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		ctl.log.WithError(err).Error("failed to hash password")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update password"})
		return
	}
	org.Password = hash
	if err := ctl.store.Organizations.Update(c.Request.Context(), org); err != nil {
		ctl.respondError(c, err, "Organization not found", "Failed to update password")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password updated successfully"})
}
