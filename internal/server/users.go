package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/daretna/daretna/internal/calculator"
	"github.com/daretna/daretna/internal/middleware"
)

func (s *Server) handleGetProfile(c *gin.Context) {
	user, err := s.store.GetUser(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) handleGetScore(c *gin.Context) {
	user, err := s.store.GetUser(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	score, err := s.scorer.Score(c.Request.Context(), user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, score)
}

func (s *Server) handleGetSummary(c *gin.Context) {
	userID := middleware.GetUserID(c)
	ctx := c.Request.Context()

	groups, err := s.engine.ListGroupsForUser(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	contributions, err := s.store.ListContributionsByUser(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, calculator.Summarize(userID, groups, contributions))
}

func (s *Server) handleListNotifications(c *gin.Context) {
	notifications, err := s.store.ListNotificationsForUser(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

func (s *Server) handleMarkNotificationRead(c *gin.Context) {
	if err := s.store.MarkNotificationRead(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "read"})
}
