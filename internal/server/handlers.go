package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ppiankov/sanhita/internal/analysis"
	"github.com/ppiankov/sanhita/internal/model"
	"github.com/ppiankov/sanhita/internal/narrative"
)

// AnalyzeRequest is the body of POST /api/v1/analyze
type AnalyzeRequest struct {
	Text                string  `json:"text"`
	Format              string  `json:"format"` // "text" (default) or "html"
	Strategy            string  `json:"strategy"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
	TimeoutSeconds      int     `json:"timeout_seconds"`
}

// ErrorResponse is returned for every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Stage string `json:"stage,omitempty"`
}

func (s *Server) analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error(), Kind: "input"})
		return
	}

	text := req.Text
	switch req.Format {
	case "", "text":
	case "html":
		extracted, err := narrative.FromHTML(text)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid HTML: " + err.Error(), Kind: "input"})
			return
		}
		text = extracted
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "format must be text or html", Kind: "input"})
		return
	}

	if req.SimilarityThreshold < 0 || req.SimilarityThreshold > 1 || req.TimeoutSeconds < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "similarity_threshold must be within [0, 1] and timeout_seconds non-negative", Kind: "input"})
		return
	}

	result, err := s.analyzer.Analyze(c.Request.Context(), text, analysis.Options{
		Strategy:            model.Strategy(req.Strategy),
		SimilarityThreshold: req.SimilarityThreshold,
		Timeout:             time.Duration(req.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		_ = c.Error(err)
		status, body := errorResponse(err)
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, result)
}

func errorResponse(err error) (int, ErrorResponse) {
	var inputErr *analysis.InputError
	var serviceErr *analysis.ServiceError
	switch {
	case errors.As(err, &inputErr):
		return http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: "input"}
	case errors.Is(err, analysis.ErrNoProvider):
		return http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Kind: "no_provider"}
	case errors.As(err, &serviceErr):
		return http.StatusBadGateway, ErrorResponse{Error: err.Error(), Kind: "service", Stage: serviceErr.Stage}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, ErrorResponse{Error: err.Error(), Kind: "cancelled"}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Kind: "internal"}
	}
}

func (s *Server) substantive(c *gin.Context) {
	base := s.analyzer.KnowledgeBase()
	entries := base.Substantive()

	if category := c.Query("category"); category != "" {
		filtered := entries[:0]
		for _, e := range entries {
			if e.Category == category {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	c.JSON(http.StatusOK, gin.H{
		"version":    base.Version(),
		"categories": base.Categories(),
		"entries":    entries,
	})
}

func (s *Server) procedural(c *gin.Context) {
	base := s.analyzer.KnowledgeBase()
	c.JSON(http.StatusOK, gin.H{
		"version": base.Version(),
		"entries": base.Procedural(),
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"version":    s.version,
		"kb_version": s.analyzer.KnowledgeBase().Version(),
		"delegated":  s.analyzer.DelegatedAvailable(),
	})
}
