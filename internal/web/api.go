package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"civicReporting/internal/auth"
	"civicReporting/models"
)

type tokenRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	Role      models.Role `json:"role"`
}

// issueToken exchanges credentials for a bearer token.
func (h *Handler) issueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "code": "INVALID_INPUT"})
		return
	}
	u, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		h.metrics.LoginsTotal.WithLabelValues("token", "invalid").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"error": msgInvalidCredentials, "code": "INVALID_CREDENTIALS"})
		return
	}
	if err != nil {
		h.apiFail(c, err)
		return
	}
	tok, exp, err := auth.IssueToken(h.cfg.Auth.JWTSecret, u, h.cfg.Auth.TokenTTL, time.Now())
	if err != nil {
		h.apiFail(c, err)
		return
	}
	h.metrics.LoginsTotal.WithLabelValues("token", "ok").Inc()
	c.JSON(http.StatusOK, tokenResponse{Token: tok, ExpiresAt: exp, Role: u.Role})
}

// listIssues returns the caller's issues, or all issues for admins asking for scope=all.
func (h *Handler) listIssues(c *gin.Context) {
	p := principal(c)
	if p == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required", "code": "UNAUTHORIZED"})
		return
	}
	var (
		issues []models.Issue
		err    error
	)
	switch c.DefaultQuery("scope", "mine") {
	case "mine":
		issues, err = h.issues.ListByOwner(c.Request.Context(), p.UserID)
	case "all":
		if p.Role != models.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required", "code": "FORBIDDEN"})
			return
		}
		issues, err = h.issues.ListAll(c.Request.Context())
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "scope must be mine or all", "code": "INVALID_INPUT"})
		return
	}
	if err != nil {
		h.apiFail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"issues": issues})
}

func (h *Handler) apiFail(c *gin.Context, err error) {
	_ = c.Error(err)
	h.logger.Error("api request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error", "code": "INTERNAL_ERROR"})
}
