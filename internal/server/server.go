// Package server exposes the survey over HTTP: the conversational chat
// endpoints, the public survey API, and the token-guarded admin API.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gmr0780/bahamas-town-hall/internal/chat"
	"github.com/gmr0780/bahamas-town-hall/internal/store"
)

// Opts holds the server's collaborators.
type Opts struct {
	Store      *store.Store
	Chat       *chat.Orchestrator
	Summarizer *chat.Summarizer
	Mailer     chat.Mailer
	Notifier   chat.Notifier
	AdminToken string
}

// Server holds handler state.
type Server struct {
	store      *store.Store
	chat       *chat.Orchestrator
	summarizer *chat.Summarizer
	mailer     chat.Mailer
	notifier   chat.Notifier
	adminToken string
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(opts Opts) *gin.Engine {
	s := &Server{
		store:      opts.Store,
		chat:       opts.Chat,
		summarizer: opts.Summarizer,
		mailer:     opts.Mailer,
		notifier:   opts.Notifier,
		adminToken: opts.AdminToken,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api")
	{
		api.POST("/chat/message", s.handleChatMessage)
		api.POST("/chat/summary", s.handleChatSummary)

		api.GET("/questions", s.handleQuestions)
		api.POST("/citizens", s.handleCreateCitizen)
		api.GET("/survey-status", s.handleSurveyStatus)
		api.GET("/response-count", s.handleResponseCount)
		api.POST("/track", s.handleTrack)
	}

	admin := api.Group("/admin", s.requireAdmin)
	{
		admin.PUT("/survey-status", s.handleSetSurveyStatus)
		admin.GET("/stats", s.handleStats)
		admin.GET("/responses", s.handleListResponses)
		admin.GET("/responses/:id", s.handleResponseDetail)
		admin.GET("/questions", s.handleAdminQuestions)
		admin.POST("/questions", s.handleCreateQuestion)
		admin.PUT("/questions/:id", s.handleUpdateQuestion)
		admin.DELETE("/questions/:id", s.handleDeleteQuestion)
		admin.PATCH("/questions/reorder", s.handleReorderQuestions)
		admin.GET("/export/csv", s.handleExportCSV)
		admin.GET("/export/json", s.handleExportJSON)
		admin.GET("/page-views", s.handlePageViews)
	}

	return router
}

// StartOpts configures Start.
type StartOpts struct {
	Addr   string
	Router *gin.Engine
	Out    io.Writer
}

// Start serves HTTP until ctx is cancelled, then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	srv := &http.Server{
		Addr:    opts.Addr,
		Handler: opts.Router,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Town hall API listening on %s\n", opts.Addr)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// requireAdmin guards the admin group with the configured bearer token.
func (s *Server) requireAdmin(c *gin.Context) {
	if s.adminToken == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin access not configured"})
		return
	}
	if c.GetHeader("Authorization") != "Bearer "+s.adminToken {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Next()
}
