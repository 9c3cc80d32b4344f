package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/daretna/daretna/internal/middleware"
	"github.com/daretna/daretna/internal/payments"
)

type submitPaymentRequest struct {
	ProofURL string `json:"proof_url"`
}

func (s *Server) handleSubmitPayment(c *gin.Context) {
	var req submitPaymentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	err := s.engine.SubmitPayment(c.Request.Context(), c.Param("id"), middleware.GetUserID(c), req.ProofURL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "submitted"})
}

type confirmPaymentRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

func (s *Server) handleConfirmPayment(c *gin.Context) {
	var req confirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := s.engine.ConfirmPayment(c.Request.Context(), c.Param("id"), middleware.GetUserID(c), req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "confirmed"})
}

type settlePaymentRequest struct {
	Method string `json:"method" binding:"required,oneof=CMI PAYPAL"`
}

func (s *Server) handleSettlePayment(c *gin.Context) {
	var req settlePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.gateway.AttemptSettlement(
		c.Request.Context(), c.Param("id"), middleware.GetUserID(c), payments.Method(req.Method))
	if err != nil {
		respondError(c, err)
		return
	}
	if !result.Success {
		c.JSON(http.StatusPaymentRequired, gin.H{"success": false, "message": result.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": result.Message})
}

func (s *Server) handleListContributions(c *gin.Context) {
	contributions, err := s.store.ListContributionsByGroup(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contributions": contributions})
}
