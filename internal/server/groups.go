package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/daretna/daretna/internal/calculator"
	"github.com/daretna/daretna/internal/daret"
	"github.com/daretna/daretna/internal/middleware"
	"github.com/daretna/daretna/internal/models"
)

type createGroupRequest struct {
	Name            string `json:"name"`
	AmountPerPerson float64 `json:"amount_per_person" binding:"required,gt=0"`
	Periodicity     string `json:"periodicity" binding:"required,oneof=MONTHLY WEEKLY"`
	StartDate       string `json:"start_date" binding:"omitempty,datetime=2006-01-02"`
}

func (s *Server) handleCreateGroup(c *gin.Context) {
	var req createGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group, err := s.engine.CreateGroup(c.Request.Context(), daret.GroupSpec{
		Name:            req.Name,
		AmountPerPerson: req.AmountPerPerson,
		Periodicity:     models.Periodicity(req.Periodicity),
		StartDate:       req.StartDate,
	}, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, group)
}

func (s *Server) handleListGroups(c *gin.Context) {
	groups, err := s.engine.ListGroupsForUser(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

func (s *Server) handleGetGroup(c *gin.Context) {
	group, err := s.engine.GetGroup(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, group)
}

func (s *Server) handleGetSchedule(c *gin.Context) {
	group, err := s.engine.GetGroup(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	schedule, err := calculator.Schedule(group)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedule": schedule, "pot_per_cycle": group.PotPerCycle()})
}

func (s *Server) handleJoinGroup(c *gin.Context) {
	if err := s.engine.JoinGroup(c.Request.Context(), c.Param("id"), middleware.GetUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "joined"})
}

type inviteRequest struct {
	Identifier string `json:"identifier" binding:"required"`
}

func (s *Server) handleInviteMember(c *gin.Context) {
	var req inviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.engine.InviteMember(c.Request.Context(), c.Param("id"), middleware.GetUserID(c), req.Identifier); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "invited"})
}

type startDaretRequest struct {
	Mode  string   `json:"mode" binding:"required,oneof=RANDOM MANUAL WEIGHTED"`
	Order []string `json:"order"`
}

func (s *Server) handleStartDaret(c *gin.Context) {
	var req startDaretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	groupID := c.Param("id")
	err := s.engine.StartDaret(c.Request.Context(), groupID, middleware.GetUserID(c), models.DrawMode(req.Mode), req.Order)
	if err != nil {
		respondError(c, err)
		return
	}

	group, err := s.engine.GetGroup(c.Request.Context(), groupID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, group)
}

type advanceCycleRequest struct {
	Force bool `json:"force"`
}

func (s *Server) handleAdvanceCycle(c *gin.Context) {
	var req advanceCycleRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	groupID := c.Param("id")
	if err := s.engine.AdvanceCycle(c.Request.Context(), groupID, middleware.GetUserID(c), req.Force); err != nil {
		respondError(c, err)
		return
	}

	group, err := s.engine.GetGroup(c.Request.Context(), groupID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, group)
}

func (s *Server) handleSendReminders(c *gin.Context) {
	result, err := s.engine.SendReminders(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type blockMemberRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

func (s *Server) handleBlockMember(c *gin.Context) {
	var req blockMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.engine.BlockMember(c.Request.Context(), c.Param("id"), middleware.GetUserID(c), req.UserID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "blocked"})
}
