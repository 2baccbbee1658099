package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/orbitsim/internal/operator"
	"github.com/playmatatu/orbitsim/internal/physics"
	"github.com/playmatatu/orbitsim/internal/scenario"
	"github.com/playmatatu/orbitsim/internal/sim"
)

const operatorKey = "operator"

// respondError maps domain errors to HTTP status codes
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, sim.ErrNotFound), errors.Is(err, scenario.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, physics.ErrInvalidBody),
		errors.Is(err, physics.ErrIndexOutOfRange),
		errors.Is(err, physics.ErrInvalidParams),
		errors.Is(err, sim.ErrInvalidTimestep),
		errors.Is(err, scenario.ErrInvalidScenario):
		status = http.StatusBadRequest
	case errors.Is(err, sim.ErrLimitReached):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		log.Printf("[API] %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// loadSim resolves the :id path parameter, writing a 404 when missing
func loadSim(c *gin.Context, mgr *sim.Manager) (*sim.Simulation, bool) {
	s, err := mgr.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return s, true
}

// parseBodyRef reads the :body path parameter: a numeric index or a body ID
func parseBodyRef(c *gin.Context) (sim.BodyRef, bool) {
	raw := c.Param("body")
	if idx, err := strconv.Atoi(raw); err == nil {
		if idx < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body index"})
			return sim.BodyRef{}, false
		}
		return sim.BodyRef{Index: idx}, true
	}
	if _, err := uuid.Parse(raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be an index or a body id"})
		return sim.BodyRef{}, false
	}
	return sim.BodyRef{ID: raw}, true
}

// audit records an operator action when a database is configured
func audit(db *sqlx.DB, c *gin.Context, action string, details map[string]interface{}, success bool) {
	if db == nil {
		return
	}
	name := c.GetString(operatorKey)
	if name == "" {
		name = "anonymous"
	}
	go operator.LogAction(db, name, c.ClientIP(), c.FullPath(), action, details, success)
}
