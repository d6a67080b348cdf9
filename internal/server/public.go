package server

import (
	"errors"
	"log"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gmr0780/bahamas-town-hall/internal/store"
)

// handleQuestions returns the active survey catalog in display order.
func (s *Server) handleQuestions(c *gin.Context) {
	questions, err := s.store.ActiveQuestions(c.Request.Context())
	if err != nil {
		log.Printf("server: list questions: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load questions"})
		return
	}
	c.JSON(http.StatusOK, questions)
}

// handleSurveyStatus reports whether submissions are open.
func (s *Server) handleSurveyStatus(c *gin.Context) {
	open, err := s.store.SurveyOpen(c.Request.Context())
	if err != nil {
		log.Printf("server: survey status: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load status"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"open": open})
}

// handleResponseCount reports the public submission counter.
func (s *Server) handleResponseCount(c *gin.Context) {
	count, err := s.store.ResponseCount(c.Request.Context())
	if err != nil {
		log.Printf("server: response count: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load count"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type createCitizenRequest struct {
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	Phone          *string         `json:"phone"`
	LivesInBahamas *bool           `json:"lives_in_bahamas"`
	Island         string          `json:"island"`
	Country        *string         `json:"country"`
	AgeGroup       string          `json:"age_group"`
	Sector         string          `json:"sector"`
	Answers        map[uint]string `json:"answers"`
}

// handleCreateCitizen accepts a classic form submission: the full profile and
// all answers in one request, validated and committed through the same
// transactional sink as the chat flow.
func (s *Server) handleCreateCitizen(c *gin.Context) {
	ctx := c.Request.Context()

	open, err := s.store.SurveyOpen(ctx)
	if err != nil {
		log.Printf("server: survey status: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load status"})
		return
	}
	if !open {
		c.JSON(http.StatusForbidden, gin.H{"error": "the survey is currently closed"})
		return
	}

	var req createCitizenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if msg := validateCitizen(&req); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	questions, err := s.store.ActiveQuestions(ctx)
	if err != nil {
		log.Printf("server: list questions: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load questions"})
		return
	}
	for _, q := range questions {
		if q.Required && strings.TrimSpace(req.Answers[q.ID]) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "required question not answered: " + q.Label})
			return
		}
	}

	citizenID, err := s.store.SubmitSurvey(ctx, store.Submission{
		Name:           strings.TrimSpace(req.Name),
		Email:          strings.TrimSpace(req.Email),
		Phone:          req.Phone,
		LivesInBahamas: req.LivesInBahamas != nil && *req.LivesInBahamas,
		Island:         req.Island,
		Country:        req.Country,
		AgeGroup:       req.AgeGroup,
		Sector:         req.Sector,
		Answers:        req.Answers,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			c.JSON(http.StatusConflict, gin.H{"error": "this email has already been used"})
			return
		}
		log.Printf("server: create citizen: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save submission"})
		return
	}

	s.afterSubmission(req.Name, req.Email, req.Island, req.Sector, citizenID)
	c.JSON(http.StatusCreated, gin.H{"id": citizenID})
}

// validateCitizen checks the required profile fields. Returns an error
// message, or empty when valid.
func validateCitizen(req *createCitizenRequest) string {
	if strings.TrimSpace(req.Name) == "" {
		return "name is required"
	}
	if !emailPattern.MatchString(strings.TrimSpace(req.Email)) {
		return "a valid email is required"
	}
	if req.LivesInBahamas == nil {
		return "lives_in_bahamas is required"
	}
	if req.Island == "" {
		return "island is required"
	}
	if !*req.LivesInBahamas && (req.Country == nil || *req.Country == "") {
		return "country is required when living outside The Bahamas"
	}
	if req.AgeGroup == "" {
		return "age_group is required"
	}
	if req.Sector == "" {
		return "sector is required"
	}
	return ""
}

// afterSubmission fires the thank-you email and team notification without
// blocking the response.
func (s *Server) afterSubmission(name, email, island, sector string, citizenID uint) {
	first := name
	if fields := strings.Fields(name); len(fields) > 0 {
		first = fields[0]
	}
	if s.mailer != nil {
		go func() {
			if err := s.mailer.SendThankYou(first, email); err != nil {
				log.Printf("server: thank-you email to %s: %v", email, err)
			}
		}()
	}
	if s.notifier != nil {
		go func() {
			if err := s.notifier.SubmissionReceived(name, island, sector, citizenID); err != nil {
				log.Printf("server: submission notification: %v", err)
			}
		}()
	}
}

type trackRequest struct {
	Path     string  `json:"path"`
	Referrer *string `json:"referrer"`
}

// handleTrack records one page view.
func (s *Server) handleTrack(c *gin.Context) {
	var req trackRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}
	if err := s.store.TrackPageView(c.Request.Context(), req.Path, req.Referrer, c.Request.UserAgent()); err != nil {
		log.Printf("server: track page view: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not record view"})
		return
	}
	c.Status(http.StatusNoContent)
}
