package server

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gmr0780/bahamas-town-hall/internal/chat"
	"github.com/gmr0780/bahamas-town-hall/internal/llm"
	"github.com/gmr0780/bahamas-town-hall/internal/store"
	"github.com/gmr0780/bahamas-town-hall/internal/verify"
)

type chatMessageRequest struct {
	SessionID         string `json:"session_id"`
	Message           string `json:"message"`
	VerificationToken string `json:"verification_token"`
}

// handleChatMessage runs one conversational turn. Without a session_id it
// starts a new interview; with one it continues the existing interview.
func (s *Server) handleChatMessage(c *gin.Context) {
	var req chatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var result *chat.TurnResult
	var err error
	if req.SessionID == "" {
		result, err = s.chat.Start(c.Request.Context(), req.VerificationToken, c.ClientIP())
	} else {
		result, err = s.chat.Message(c.Request.Context(), req.SessionID, req.Message)
	}
	if err != nil {
		s.chatError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// chatError maps orchestrator errors onto the HTTP status taxonomy.
func (s *Server) chatError(c *gin.Context, err error) {
	var conflict *chat.ConflictError
	switch {
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, conflict.Result)
	case errors.Is(err, chat.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
	case errors.Is(err, chat.ErrSurveyClosed):
		c.JSON(http.StatusForbidden, gin.H{"error": "the survey is currently closed"})
	case errors.Is(err, verify.ErrTokenRequired), errors.Is(err, verify.ErrRejected):
		c.JSON(http.StatusForbidden, gin.H{"error": "verification failed"})
	case errors.Is(err, chat.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found or expired"})
	case errors.Is(err, llm.ErrNotConfigured):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "chat is not configured"})
	default:
		log.Printf("server: chat turn: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong"})
	}
}

type chatSummaryRequest struct {
	CitizenID uint `json:"citizen_id"`
}

// handleChatSummary generates the post-submission personality summary.
func (s *Server) handleChatSummary(c *gin.Context) {
	var req chatSummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.CitizenID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "citizen_id is required"})
		return
	}

	summary, err := s.summarizer.Generate(c.Request.Context(), req.CitizenID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "citizen not found"})
			return
		}
		log.Printf("server: summary for citizen %d: %v", req.CitizenID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate summary"})
		return
	}
	c.JSON(http.StatusOK, summary)
}
