// Package server exposes the HTTP API: authentication, group lifecycle,
// payments, chat and votes, and per-user views. Handlers translate between
// JSON and the engine; all business rules live below this layer.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/daretna/daretna/internal/auth"
	"github.com/daretna/daretna/internal/daret"
	"github.com/daretna/daretna/internal/middleware"
	"github.com/daretna/daretna/internal/payments"
	"github.com/daretna/daretna/internal/scoring"
	"github.com/daretna/daretna/internal/social"
	"github.com/daretna/daretna/internal/storage"
)

// Server wires the HTTP layer to the engine and its collaborators.
type Server struct {
	engine        *daret.Engine
	social        *social.Service
	gateway       *payments.Gateway
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	scorer        scoring.Scorer
	store         storage.Store
}

// New creates a server over the given collaborators.
func New(
	engine *daret.Engine,
	socialService *social.Service,
	gateway *payments.Gateway,
	authenticator auth.Authenticator,
	jwtManager *auth.JWTManager,
	scorer scoring.Scorer,
	store storage.Store,
) *Server {
	return &Server{
		engine:        engine,
		social:        socialService,
		gateway:       gateway,
		authenticator: authenticator,
		jwtManager:    jwtManager,
		scorer:        scorer,
		store:         store,
	}
}

// Router builds the gin engine with all routes and middleware attached.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(), middleware.Metrics())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")

	api.POST("/auth/register", s.handleRegister)
	api.POST("/auth/login", s.handleLogin)

	authed := api.Group("", middleware.RequireAuth(s.jwtManager))

	authed.POST("/groups", s.handleCreateGroup)
	authed.GET("/groups", s.handleListGroups)
	authed.GET("/groups/:id", s.handleGetGroup)
	authed.GET("/groups/:id/schedule", s.handleGetSchedule)
	authed.POST("/groups/:id/join", s.handleJoinGroup)
	authed.POST("/groups/:id/invite", s.handleInviteMember)
	authed.POST("/groups/:id/start", s.handleStartDaret)
	authed.POST("/groups/:id/advance", s.handleAdvanceCycle)
	authed.POST("/groups/:id/reminders", s.handleSendReminders)
	authed.POST("/groups/:id/block", s.handleBlockMember)

	authed.POST("/groups/:id/payments/submit", s.handleSubmitPayment)
	authed.POST("/groups/:id/payments/confirm", s.handleConfirmPayment)
	authed.POST("/groups/:id/payments/settle", s.handleSettlePayment)
	authed.GET("/groups/:id/contributions", s.handleListContributions)

	authed.GET("/groups/:id/messages", s.handleListMessages)
	authed.POST("/groups/:id/messages", s.handleSendMessage)
	authed.GET("/groups/:id/votes", s.handleListVotes)
	authed.POST("/groups/:id/votes", s.handleCreateVote)
	authed.POST("/votes/:id/cast", s.handleCastVote)

	authed.GET("/me", s.handleGetProfile)
	authed.GET("/me/score", s.handleGetScore)
	authed.GET("/me/summary", s.handleGetSummary)
	authed.GET("/me/notifications", s.handleListNotifications)
	authed.POST("/notifications/:id/read", s.handleMarkNotificationRead)

	return router
}
