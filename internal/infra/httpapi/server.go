package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"birthday_reminder_service/internal/app"
	fs "birthday_reminder_service/internal/infra/firestore"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Server exposes the manual trigger and maintenance operations over HTTP.
// Authentication sits in front of this API and is out of scope here.
type Server struct {
	coordinator *app.Coordinator
	maintenance *app.MaintenanceService
	httpServer  *http.Server
	log         logrus.FieldLogger
}

func NewServer(addr string, coordinator *app.Coordinator, maintenance *app.MaintenanceService, log logrus.FieldLogger) *Server {
	s := &Server{
		coordinator: coordinator,
		maintenance: maintenance,
		log:         log,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api/churches/:churchID")
	{
		api.POST("/birthday-runs", s.triggerRun)
		api.GET("/birthday-stats", s.getStats)
		api.POST("/birthday-cleanup", s.cleanup)
	}

	s.httpServer = &http.Server{Addr: addr, Handler: router}
	return s
}

type triggerRunRequest struct {
	Force   bool   `json:"force"`
	ActorID string `json:"actorId"`
}

func (s *Server) triggerRun(c *gin.Context) {
	churchID := c.Param("churchID")

	var req triggerRunRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	report, err := s.coordinator.RunForChurch(c.Request.Context(), churchID, app.RunOptions{
		Force:   req.Force,
		ActorID: req.ActorID,
	})
	if err != nil {
		if errors.Is(err, fs.ErrChurchNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Church not found"})
			return
		}
		s.log.WithError(err).WithField("church_id", churchID).Error("Manual birthday run failed.")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Birthday run failed"})
		return
	}

	c.JSON(http.StatusOK, report)
}

func (s *Server) getStats(c *gin.Context) {
	churchID := c.Param("churchID")

	from, err := parseDateParam(c.Query("from"), time.Now().AddDate(0, 0, -30))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'from' date, want YYYY-MM-DD"})
		return
	}
	to, err := parseDateParam(c.Query("to"), time.Now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'to' date, want YYYY-MM-DD"})
		return
	}

	stats, err := s.maintenance.Stats(c.Request.Context(), churchID, from, to)
	if err != nil {
		s.log.WithError(err).WithField("church_id", churchID).Error("Ledger stats query failed.")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to aggregate stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

type cleanupRequest struct {
	RetentionDays int `json:"retentionDays"`
}

func (s *Server) cleanup(c *gin.Context) {
	churchID := c.Param("churchID")

	var req cleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RetentionDays <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "retentionDays must be a positive integer"})
		return
	}

	deleted, err := s.maintenance.Cleanup(c.Request.Context(), churchID, req.RetentionDays)
	if err != nil {
		s.log.WithError(err).WithField("church_id", churchID).Error("Ledger cleanup failed.")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cleanup failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deletedCount": deleted})
}

func parseDateParam(raw string, fallback time.Time) (time.Time, error) {
	if raw == "" {
		return fallback, nil
	}
	return time.Parse("2006-01-02", raw)
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.log.WithField("addr", s.httpServer.Addr).Info("HTTP API listening.")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
