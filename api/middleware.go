package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) registerMiddleware() {
	if s == nil || s.router == nil {
		return
	}
	var origins []string
	if s.config != nil {
		origins = s.config.Server.CORSOrigins
	}
	s.router.Use(gin.Logger(), gin.Recovery(), corsMiddleware(origins))
}

// corsMiddleware stamps CORS headers for origins on the configured allowlist
// and answers preflight requests. An empty allowlist disables CORS handling;
// a "*" entry allows any origin.
func corsMiddleware(origins []string) gin.HandlerFunc {
	allowAll := false
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		o = strings.TrimSpace(o)
		switch o {
		case "":
		case "*":
			allowAll = true
		default:
			allowed[o] = struct{}{}
		}
	}
	if !allowAll && len(allowed) == 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		origin := strings.TrimSpace(c.GetHeader("Origin"))
		if origin == "" {
			c.Next()
			return
		}

		if grant := grantOrigin(allowAll, allowed, origin); grant != "" {
			c.Header("Access-Control-Allow-Origin", grant)
			if grant != "*" {
				c.Header("Vary", "Origin")
			}
			c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, X-API-Key")
			c.Header("Access-Control-Max-Age", "3600")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// grantOrigin returns the Access-Control-Allow-Origin value for a request
// origin, or "" when the origin is not allowed.
func grantOrigin(allowAll bool, allowed map[string]struct{}, origin string) string {
	if allowAll {
		return "*"
	}
	if _, ok := allowed[origin]; ok {
		return origin
	}
	return ""
}

// apiKeyAuthMiddleware rejects requests whose X-API-Key header does not
// match the configured key. Preflight requests pass through so CORS keeps
// working for authenticated browsers.
func apiKeyAuthMiddleware(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		if strings.TrimSpace(c.GetHeader("X-API-Key")) != expected {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
