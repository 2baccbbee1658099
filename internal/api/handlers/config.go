package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/orbitsim/internal/config"
	"github.com/playmatatu/orbitsim/internal/physics"
)

// GetConfig returns the engine defaults a client needs to draw and
// create bodies
func GetConfig(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"gravity":             cfg.Gravity,
			"distance_scale":      cfg.DistanceScale,
			"timestep":            cfg.Timestep,
			"trail_max_points":    cfg.TrailMaxPoints,
			"frame_interval_ms":   cfg.FrameIntervalMs,
			"hierarchy_interval":  cfg.HierarchyIntervalSeconds,
			"default_body_mass":   physics.DefaultCreatedMass,
			"default_body_radius": physics.DefaultCreatedSize,
			"grow_radius_step":    physics.GrowRadiusStep,
			"require_auth":        cfg.RequireAuth,
		})
	}
}
