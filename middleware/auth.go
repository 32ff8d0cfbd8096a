package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"coalition-api/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ctxOrganization   = "organization"
	ctxOrganizationID = "organizationID"
	ctxRole           = "role"
)

type Claims struct {
	OrganizationID uint        `json:"organizationId"`
	Email          string      `json:"email"`
	Role           models.Role `json:"role"`
	jwt.RegisteredClaims
}

// OrganizationFinder loads the organization a token was issued for.
type OrganizationFinder interface {
	FindByID(ctx context.Context, id uint) (*models.Organization, error)
}

// Authenticator issues and verifies bearer tokens.
type Authenticator struct {
	secret []byte
	expiry time.Duration
	orgs   OrganizationFinder
}

func NewAuthenticator(secret string, expiry time.Duration, orgs OrganizationFinder) *Authenticator {
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &Authenticator{secret: []byte(secret), expiry: expiry, orgs: orgs}
}

// GenerateToken signs an HS256 token for org.
func (a *Authenticator) GenerateToken(org *models.Organization) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(a.expiry)
	claims := Claims{
		OrganizationID: org.ID,
		Email:          org.Email,
		Role:           org.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(org.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (a *Authenticator) parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || claims.OrganizationID == 0 {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// RequireAuth validates the bearer token and loads the organization. Only
// ACTIVE organizations pass. Websocket upgrades may carry the token in the
// "token" query parameter.
func (a *Authenticator) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "No authorization token provided"})
			c.Abort()
			return
		}

		claims, err := a.parse(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		org, err := a.orgs.FindByID(c.Request.Context(), claims.OrganizationID)
		if err != nil || org == nil || !org.IsActive() {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}

		c.Set(ctxOrganization, org)
		c.Set(ctxOrganizationID, org.ID)
		c.Set(ctxRole, org.Role)

		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if authHeader != "" {
		if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
			return strings.TrimSpace(authHeader[7:])
		}
		return ""
	}
	if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
		return strings.TrimSpace(c.Query("token"))
	}
	return ""
}

// RequireRole checks if the organization has one of roles.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(ctxRole)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}

		current, _ := role.(models.Role)
		for _, r := range roles {
			if current == r {
				c.Next()
				return
			}
		}

		c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		c.Abort()
	}
}

// CurrentOrganization returns the organization loaded by RequireAuth.
func CurrentOrganization(c *gin.Context) (*models.Organization, bool) {
	v, ok := c.Get(ctxOrganization)
	if !ok {
		return nil, false
	}
	org, ok := v.(*models.Organization)
	return org, ok && org != nil
}
