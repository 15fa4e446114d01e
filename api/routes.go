package api

import (
	"errors"
	"strings"
)

func (s *Server) registerRoutes() error {
	if s == nil || s.router == nil {
		return nil
	}

	s.router.GET("/healthz", s.handleHealth)

	var apiKey string
	var disableAuth bool
	if s.config != nil {
		apiKey = strings.TrimSpace(s.config.Server.APIKey)
		disableAuth = s.config.Server.DisableAuth
	}

	api := s.router.Group("/api/v1")
	switch {
	case apiKey != "":
		api.Use(apiKeyAuthMiddleware(apiKey))
	case disableAuth:
		// Explicitly configured to serve unauthenticated.
	default:
		return errors.New("api: missing auth configuration: set server.api_key (or RAGCHECK_API_KEY) or server.disable_auth")
	}

	api.GET("/records/:type", s.handleGetRecords)
	api.GET("/runs", s.handleListRuns)
	api.POST("/chat", s.handleChat)

	return nil
}
