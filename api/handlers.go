package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/craftlore/ragcheck/internal/batch"
	"github.com/craftlore/ragcheck/internal/evallog"
	"github.com/craftlore/ragcheck/internal/store"
	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, status int, err error) {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, gin.H{"error": msg})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleGetRecords serves the persisted evaluation log for one eval type.
func (s *Server) handleGetRecords(c *gin.Context) {
	if s == nil || s.config == nil {
		respondError(c, http.StatusInternalServerError, errors.New("server not initialized"))
		return
	}

	evalType, err := batch.ParseType(strings.TrimSpace(c.Param("type")))
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	logger := evallog.New(s.config.LogPath(string(evalType)))
	records, err := logger.Records()
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	if records == nil {
		records = []evallog.Record{}
	}

	resp := gin.H{
		"type":    evalType,
		"count":   len(records),
		"records": records,
	}
	if loadErr := logger.LoadError(); loadErr != nil {
		resp["warning"] = loadErr.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListRuns(c *gin.Context) {
	if s == nil || s.store == nil {
		respondError(c, http.StatusInternalServerError, errors.New("server not initialized"))
		return
	}

	limit, err := parseLimitParam(c.Query("limit"), 20)
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	since, err := parseTimeParam(c.Query("since"))
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	runs, err := s.store.ListRuns(c.Request.Context(), store.RunFilter{
		Type:  strings.TrimSpace(c.Query("type")),
		Since: since,
		Limit: limit,
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	if runs == nil {
		runs = []*store.RunRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(runs), "runs": runs})
}

type chatRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k,omitempty"`
}

// handleChat answers one question through the retrieve-then-generate
// pipeline.
func (s *Server) handleChat(c *gin.Context) {
	if s == nil || s.retriever == nil || s.generator == nil {
		respondError(c, http.StatusInternalServerError, errors.New("server not initialized"))
		return
	}

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		respondError(c, http.StatusBadRequest, errors.New("missing question"))
		return
	}

	topK := req.TopK
	if topK <= 0 && s.config != nil {
		topK = s.config.Retrieval.TopK
	}

	ctx := c.Request.Context()
	res, err := s.retriever.Query(ctx, question, topK)
	if err != nil {
		respondError(c, http.StatusBadGateway, err)
		return
	}
	answer, err := s.generator.Generate(ctx, question, res.Chunks, res.Sources)
	if err != nil {
		respondError(c, http.StatusBadGateway, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"question": question,
		"answer":   answer,
		"sources":  res.Sources,
	})
}

func parseLimitParam(raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	return n, nil
}

func parseTimeParam(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q (want YYYY-MM-DD or RFC3339)", raw)
}
