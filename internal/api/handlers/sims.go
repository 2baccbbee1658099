package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/orbitsim/internal/scenario"
	"github.com/playmatatu/orbitsim/internal/sim"
)

// ListSimulations returns every running simulation
func ListSimulations(mgr *sim.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"simulations": mgr.List()})
	}
}

type createSimRequest struct {
	Name       string             `json:"name"`
	ScenarioID int                `json:"scenario_id"`
	Scenario   *scenario.Scenario `json:"scenario"`
}

// CreateSimulation starts a simulation from a stored scenario, an inline
// scenario or the built-in system, in that order of preference.
func CreateSimulation(mgr *sim.Manager, repo *scenario.Repository, db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createSimRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		var sc *scenario.Scenario
		switch {
		case req.ScenarioID > 0:
			if repo == nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scenario storage unavailable"})
				return
			}
			stored, err := repo.Get(c.Request.Context(), req.ScenarioID)
			if err != nil {
				respondError(c, err)
				return
			}
			sc = stored
		case req.Scenario != nil:
			if err := req.Scenario.Validate(); err != nil {
				respondError(c, err)
				return
			}
			sc = req.Scenario
		default:
			sc = scenario.Default()
		}
		if req.Name != "" {
			sc.Name = req.Name
		}

		s, err := mgr.Create(sc)
		if err != nil {
			audit(db, c, "create_simulation", map[string]interface{}{"scenario": sc.Name}, false)
			respondError(c, err)
			return
		}
		audit(db, c, "create_simulation", map[string]interface{}{"simulation_id": s.ID, "scenario": sc.Name}, true)
		c.JSON(http.StatusCreated, s.Snapshot(false))
	}
}

// simulationView is a snapshot plus whether it came from the Redis cache
// rather than a running simulation.
type simulationView struct {
	sim.Snapshot
	Stale bool `json:"stale"`
}

// GetSimulation returns the current state; ?trails=true includes trails.
// A simulation that is no longer running (e.g. after a restart) is served
// from its last cached snapshot with stale set.
func GetSimulation(mgr *sim.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		s, err := mgr.Get(id)
		if err == nil {
			c.JSON(http.StatusOK, simulationView{Snapshot: s.Snapshot(c.Query("trails") == "true")})
			return
		}
		if !errors.Is(err, sim.ErrNotFound) {
			respondError(c, err)
			return
		}

		snap, lerr := mgr.LoadSnapshot(c.Request.Context(), id)
		if lerr != nil {
			if !errors.Is(lerr, sim.ErrNotFound) {
				log.Printf("[REDIS] Failed to load snapshot for %s: %v", id, lerr)
			}
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, simulationView{Snapshot: *snap, Stale: true})
	}
}

// DeleteSimulation stops and removes a simulation
func DeleteSimulation(mgr *sim.Manager, db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := mgr.Delete(id); err != nil {
			respondError(c, err)
			return
		}
		audit(db, c, "delete_simulation", map[string]interface{}{"simulation_id": id}, true)
		c.Status(http.StatusNoContent)
	}
}

// StepSimulation advances one step regardless of the paused flag
func StepSimulation(mgr *sim.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := loadSim(c, mgr)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, mgr.Step(s))
	}
}

// PauseSimulation stops the runner from stepping
func PauseSimulation(mgr *sim.Manager, hub sim.Broadcaster) gin.HandlerFunc {
	return setPaused(mgr, hub, true)
}

// ResumeSimulation lets the runner step again
func ResumeSimulation(mgr *sim.Manager, hub sim.Broadcaster) gin.HandlerFunc {
	return setPaused(mgr, hub, false)
}

func setPaused(mgr *sim.Manager, hub sim.Broadcaster, paused bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := loadSim(c, mgr)
		if !ok {
			return
		}
		if paused {
			s.Pause()
		} else {
			s.Resume()
		}
		if hub != nil {
			hub.BroadcastToSim(s.ID, gin.H{"type": "paused", "paused": paused})
		}
		c.JSON(http.StatusOK, gin.H{"id": s.ID, "paused": paused})
	}
}

// SetTimestep changes the step size of a simulation
func SetTimestep(mgr *sim.Manager, hub sim.Broadcaster) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := loadSim(c, mgr)
		if !ok {
			return
		}
		var req struct {
			Timestep float64 `json:"timestep" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "timestep is required"})
			return
		}
		if err := s.SetTimestep(req.Timestep); err != nil {
			respondError(c, err)
			return
		}
		if hub != nil {
			hub.BroadcastToSim(s.ID, gin.H{"type": "timestep", "timestep": req.Timestep})
		}
		c.JSON(http.StatusOK, gin.H{"id": s.ID, "timestep": req.Timestep})
	}
}

// GetMergeHistory returns the recorded merges of a simulation
func GetMergeHistory(mgr *sim.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
		if limit <= 0 || limit > 1000 {
			limit = 100
		}
		events, err := mgr.MergeHistory(c.Request.Context(), id, limit)
		if err != nil {
			if errors.Is(err, sim.ErrNoHistory) {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
				return
			}
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"simulation_id": id, "merges": events})
	}
}

// Reclassify recomputes the parent of every body now
func Reclassify(mgr *sim.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := loadSim(c, mgr)
		if !ok {
			return
		}
		changes := mgr.Reclassify(s)
		c.JSON(http.StatusOK, gin.H{"changes": changes})
	}
}
