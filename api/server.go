package api

import (
	"errors"
	"strings"

	"github.com/craftlore/ragcheck/internal/config"
	"github.com/craftlore/ragcheck/internal/rag"
	"github.com/craftlore/ragcheck/internal/store"
	"github.com/gin-gonic/gin"
)

type Server struct {
	router    *gin.Engine
	store     store.Store
	retriever rag.Retriever
	generator rag.Generator
	config    *config.Config
}

func NewServer(cfg *config.Config, st store.Store, retriever rag.Retriever, generator rag.Generator) (*Server, error) {
	r := gin.New()
	s := &Server{
		router:    r,
		store:     st,
		retriever: retriever,
		generator: generator,
		config:    cfg,
	}
	s.registerMiddleware()
	if err := s.registerRoutes(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) Run(addr string) error {
	if s == nil || s.router == nil {
		return errors.New("api: nil server")
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		addr = ":8080"
	}
	return s.router.Run(addr)
}
