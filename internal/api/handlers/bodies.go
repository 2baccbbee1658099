package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/orbitsim/internal/physics"
	"github.com/playmatatu/orbitsim/internal/sim"
)

// AddBody appends a body to a simulation
func AddBody(mgr *sim.Manager, hub sim.Broadcaster) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := loadSim(c, mgr)
		if !ok {
			return
		}
		var req sim.NewBodyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		idx, body, err := s.AddBody(req)
		if err != nil {
			respondError(c, err)
			return
		}
		if hub != nil {
			hub.BroadcastToSim(s.ID, gin.H{"type": "body_added", "index": idx, "body": body})
		}
		c.JSON(http.StatusCreated, gin.H{"index": idx, "body": body})
	}
}

// SetBodyVelocity overwrites the velocity of the body at :body (index or ID)
func SetBodyVelocity(mgr *sim.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := loadSim(c, mgr)
		if !ok {
			return
		}
		ref, ok := parseBodyRef(c)
		if !ok {
			return
		}
		var v physics.Vec2
		if err := c.ShouldBindJSON(&v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		idx, err := s.SetVelocity(ref, v)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"index": idx, "velocity": v})
	}
}

// GrowBody enlarges the body at :body (index or ID) by one increment
func GrowBody(mgr *sim.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := loadSim(c, mgr)
		if !ok {
			return
		}
		ref, ok := parseBodyRef(c)
		if !ok {
			return
		}
		idx, body, err := s.GrowBody(ref)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"index": idx, "body": body})
	}
}

// GetTelemetry returns the speed samples of one body
func GetTelemetry(mgr *sim.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := loadSim(c, mgr)
		if !ok {
			return
		}
		bodyID := c.Query("body")
		if bodyID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "body query parameter is required"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"body": bodyID, "samples": s.Telemetry(bodyID)})
	}
}
