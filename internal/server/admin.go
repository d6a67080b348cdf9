package server

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gmr0780/bahamas-town-hall/internal/models"
	"github.com/gmr0780/bahamas-town-hall/internal/store"
)

type setSurveyStatusRequest struct {
	Open *bool `json:"open"`
}

// handleSetSurveyStatus toggles submissions on or off.
func (s *Server) handleSetSurveyStatus(c *gin.Context) {
	var req setSurveyStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Open == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "open is required"})
		return
	}
	if err := s.store.SetSurveyOpen(c.Request.Context(), *req.Open); err != nil {
		log.Printf("server: set survey status: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update status"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"open": *req.Open})
}

// handleStats returns the dashboard aggregates.
func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.store.Stats(c.Request.Context())
	if err != nil {
		log.Printf("server: stats: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// handleListResponses returns a filtered, paginated citizen list.
func (s *Server) handleListResponses(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "25"))
	ascending := c.Query("order") == "asc"

	result, err := s.store.ListCitizens(c.Request.Context(), citizenFilter(c), page, limit, c.Query("sort"), ascending)
	if err != nil {
		log.Printf("server: list responses: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load responses"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// citizenFilter reads the shared list/export filter query parameters.
func citizenFilter(c *gin.Context) store.CitizenFilter {
	return store.CitizenFilter{
		Island:   c.Query("island"),
		AgeGroup: c.Query("age_group"),
		Sector:   c.Query("sector"),
		Search:   c.Query("search"),
	}
}

// handleResponseDetail returns one citizen with their answers.
func (s *Server) handleResponseDetail(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	citizen, err := s.store.GetCitizen(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "citizen not found"})
			return
		}
		log.Printf("server: citizen %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load citizen"})
		return
	}
	answers, err := s.store.CitizenAnswers(c.Request.Context(), uint(id))
	if err != nil {
		log.Printf("server: citizen %d answers: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load answers"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"citizen": citizen, "answers": answers})
}

// handleAdminQuestions lists the full catalog, inactive included.
func (s *Server) handleAdminQuestions(c *gin.Context) {
	questions, err := s.store.AllQuestions(c.Request.Context())
	if err != nil {
		log.Printf("server: all questions: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load questions"})
		return
	}
	c.JSON(http.StatusOK, questions)
}

type createQuestionRequest struct {
	Type        string  `json:"type"`
	Label       string  `json:"label"`
	Description *string `json:"description"`
	Required    bool    `json:"required"`
	Options     *string `json:"options"`
}

// handleCreateQuestion appends a question to the catalog.
func (s *Server) handleCreateQuestion(c *gin.Context) {
	var req createQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Label == "" || !models.IsValidType(req.Type) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "label and a valid type are required"})
		return
	}

	q := models.Question{
		Type:        req.Type,
		Label:       req.Label,
		Description: req.Description,
		Required:    req.Required,
		Options:     req.Options,
	}
	if err := s.store.CreateQuestion(c.Request.Context(), &q); err != nil {
		log.Printf("server: create question: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create question"})
		return
	}
	c.JSON(http.StatusCreated, q)
}

type updateQuestionRequest struct {
	Type        *string `json:"type"`
	Label       *string `json:"label"`
	Description *string `json:"description"`
	Required    *bool   `json:"required"`
	Options     *string `json:"options"`
	Active      *bool   `json:"active"`
}

// handleUpdateQuestion applies a partial edit to one question.
func (s *Server) handleUpdateQuestion(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req updateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Type != nil && !models.IsValidType(*req.Type) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid question type"})
		return
	}

	q, err := s.store.UpdateQuestion(c.Request.Context(), uint(id), store.QuestionUpdate{
		Type:        req.Type,
		Label:       req.Label,
		Description: req.Description,
		Required:    req.Required,
		Options:     req.Options,
		Active:      req.Active,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "question not found"})
			return
		}
		log.Printf("server: update question %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update question"})
		return
	}
	c.JSON(http.StatusOK, q)
}

// handleDeleteQuestion deactivates a question. Rows stay so historical
// responses keep their labels.
func (s *Server) handleDeleteQuestion(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := s.store.DeactivateQuestion(c.Request.Context(), uint(id)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "question not found"})
			return
		}
		log.Printf("server: delete question %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete question"})
		return
	}
	c.Status(http.StatusNoContent)
}

type reorderRequest struct {
	Order []store.OrderItem `json:"order"`
}

// handleReorderQuestions applies a new catalog ordering.
func (s *Server) handleReorderQuestions(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Order) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order is required"})
		return
	}
	if err := s.store.ReorderQuestions(c.Request.Context(), req.Order); err != nil {
		log.Printf("server: reorder questions: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not reorder questions"})
		return
	}
	c.Status(http.StatusNoContent)
}

// handlePageViews returns traffic analytics, optionally bounded by
// from/to date query parameters (YYYY-MM-DD).
func (s *Server) handlePageViews(c *gin.Context) {
	var from, to time.Time
	if v := c.Query("from"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date"})
			return
		}
		from = parsed
	}
	if v := c.Query("to"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date"})
			return
		}
		to = parsed
	}

	stats, err := s.store.PageViewStats(c.Request.Context(), from, to)
	if err != nil {
		log.Printf("server: page views: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load page views"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
