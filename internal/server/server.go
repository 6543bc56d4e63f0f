// Package server provides the patchbay Gin-based REST API.
// Routes are split into two engines:
//   - Control plane (port 6677): JWT-protected operator API.
//   - Data plane    (port 1616): bearer-token-protected; receives SNMP worker
//     detections and serves /metrics and /healthz.
package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/vesaa/patchbay/internal/alarms"
	"github.com/vesaa/patchbay/internal/config"
	"github.com/vesaa/patchbay/internal/inventory"
	"github.com/vesaa/patchbay/internal/links"
	"github.com/vesaa/patchbay/internal/store"
)

// Deps are the components the HTTP layer drives.
type Deps struct {
	Config    *config.Config
	Log       *zap.SugaredLogger
	DB        *gorm.DB
	Inventory *inventory.Service
	Links     *links.Service
	Alarms    *alarms.Service
	// Gatherer backs GET /metrics on the data plane. Nil disables the route.
	Gatherer prometheus.Gatherer
}

// Server owns both gin engines.
type Server struct {
	Deps
	auth *authenticator
}

// New builds a Server from d.
func New(d Deps) (*Server, error) {
	a, err := newAuthenticator(d.Config.JWTSecret, d.Config.TokenTTL, d.Config.AgentToken, d.Config.AdminUser, d.Config.AdminPass)
	if err != nil {
		return nil, err
	}
	registerValidators()
	return &Server{Deps: d, auth: a}, nil
}

// ControlHandler returns the engine bound to the control port.
//
//	Public:          POST /api/login, GET /api/health
//	Protected (JWT): everything else under /api
func (s *Server) ControlHandler() *gin.Engine {
	r := gin.New()
	r.Use(recovery(s.Log), requestLogger(s.Log), cors)

	api := r.Group("/api")

	// ── Public endpoints ──────────────────────────────────────────────────────
	api.POST("/login", s.handleLogin)
	api.GET("/health", s.handleHealth)

	// ── JWT-protected endpoints ───────────────────────────────────────────────
	auth := api.Group("/", s.auth.JWTMiddleware())
	{
		// Inventory
		auth.POST("/racks", s.handleCreateRack)
		auth.POST("/switches", s.handleAddSwitch)
		auth.PATCH("/switches/:id/ports/:port", s.handleUpdatePort)
		auth.DELETE("/switches/:id", s.handleDeleteSwitch)
		auth.POST("/patch-panels", s.handleAddPatchPanel)
		auth.POST("/fiber-panels", s.handleAddFiberPanel)

		// Links
		auth.POST("/connections", s.handleConnect)
		auth.POST("/connections/disconnect", s.handleDisconnect)
		auth.GET("/connections/history", s.handleConnectionHistory)
		auth.GET("/endpoints/:type/:id/:port", s.handleLookup)

		// Alarms
		auth.GET("/alarms", s.handleListAlarms)
		auth.GET("/alarms/:id", s.handleGetAlarm)
		auth.POST("/alarms/description-change", s.handleDescriptionChange)
		auth.POST("/alarms/bulk-acknowledge", s.handleBulkAcknowledge)
		auth.POST("/alarms/:id/acknowledge", s.handleAcknowledge)
		auth.POST("/alarms/:id/silence", s.handleSilence)
		auth.POST("/alarms/:id/unsilence", s.handleUnsilence)
		auth.POST("/whitelist", s.handleAddToWhitelist)
	}
	return r
}

// DataHandler returns the engine bound to the data port.
func (s *Server) DataHandler() *gin.Engine {
	r := gin.New()
	r.Use(recovery(s.Log), requestLogger(s.Log))

	api := r.Group("/api", s.auth.AgentTokenMiddleware())
	{
		api.POST("/detections", s.handleDetection)
	}

	// Probes and scraping stay unauthenticated.
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{})))
	}
	return r
}

func cors(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
	if c.Request.Method == http.MethodOptions {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}
	c.Next()
}

// handleLogin accepts username + password and returns a signed JWT.
//
//	POST /api/login
//	Body: { "username": "admin", "password": "admin" }
func (s *Server) handleLogin(c *gin.Context) {
	var body struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, envelope{Message: "username and password required"})
		return
	}
	if !s.auth.checkCredentials(body.Username, body.Password) {
		c.JSON(http.StatusUnauthorized, envelope{Message: "invalid credentials"})
		return
	}

	token, err := s.auth.GenerateJWT(body.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, envelope{Message: "failed to generate token"})
		return
	}
	ok(c, http.StatusOK, "logged in", gin.H{
		"token":      token,
		"expires_in": int(s.auth.ttl / time.Second),
		"type":       "Bearer",
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := store.Ping(c.Request.Context(), s.DB); err != nil {
		c.JSON(http.StatusServiceUnavailable, envelope{Message: "database unavailable"})
		return
	}
	ok(c, http.StatusOK, "ok", gin.H{"time": time.Now().UTC()})
}
