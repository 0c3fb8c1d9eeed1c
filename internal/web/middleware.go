package web

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"civicReporting/internal/auth"
)

const (
	identityKey  = "identity"
	principalKey = "principal"
)

// loadIdentity decodes the session once per request and stores the Identity in the context.
func loadIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(identityKey, auth.IdentityFromSession(sessions.Default(c)))
		c.Next()
	}
}

func identity(c *gin.Context) auth.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(auth.Identity); ok {
			return id
		}
	}
	return auth.Identity{}
}

// requireUser sends anonymous requests to the login form before any handler runs.
func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !identity(c).Authenticated() {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// requireAdmin sends requests without the admin role to the admin login form.
func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !identity(c).IsAdmin() {
			c.Redirect(http.StatusFound, "/admin_login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// requireUserOrAdmin guards photo downloads, which both dashboards link to.
func requireUserOrAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := identity(c)
		if !id.Authenticated() && !id.IsAdmin() {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// requireBearer authenticates JSON API calls with a JWT.
func requireBearer(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := auth.ParseBearer(c.GetHeader("Authorization"), secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
				"code":  "UNAUTHORIZED",
			})
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

func principal(c *gin.Context) *auth.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(*auth.Principal); ok {
			return p
		}
	}
	return nil
}
