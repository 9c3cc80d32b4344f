package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/daretna/daretna/internal/middleware"
	"github.com/daretna/daretna/internal/models"
)

type sendMessageRequest struct {
	Text     string `json:"text"`
	Kind     string `json:"kind" binding:"omitempty,oneof=TEXT AUDIO IMAGE"`
	MediaURL string `json:"media_url"`
}

func (s *Server) handleSendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	kind := models.MessageKind(req.Kind)
	if kind == "" {
		kind = models.MessageText
	}

	msg, err := s.social.SendMessage(
		c.Request.Context(), c.Param("id"), middleware.GetUserID(c), req.Text, kind, req.MediaURL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (s *Server) handleListMessages(c *gin.Context) {
	messages, err := s.social.ListMessages(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

type createVoteRequest struct {
	Question string   `json:"question" binding:"required"`
	Options  []string `json:"options" binding:"required,min=2"`
}

func (s *Server) handleCreateVote(c *gin.Context) {
	var req createVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	vote, err := s.social.CreateVote(
		c.Request.Context(), c.Param("id"), middleware.GetUserID(c), req.Question, req.Options)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, vote)
}

func (s *Server) handleListVotes(c *gin.Context) {
	votes, err := s.social.ListVotes(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"votes": votes})
}

type castVoteRequest struct {
	OptionID string `json:"option_id" binding:"required"`
}

func (s *Server) handleCastVote(c *gin.Context) {
	var req castVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.social.CastVote(c.Request.Context(), c.Param("id"), middleware.GetUserID(c), req.OptionID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "voted"})
}
