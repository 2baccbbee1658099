package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/orbitsim/internal/scenario"
)

func requireRepo(c *gin.Context, repo *scenario.Repository) bool {
	if repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scenario storage unavailable"})
		return false
	}
	return true
}

// ListScenarios returns stored scenarios, newest first
func ListScenarios(repo *scenario.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireRepo(c, repo) {
			return
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		if limit <= 0 || limit > 200 {
			limit = 50
		}
		if offset < 0 {
			offset = 0
		}

		list, err := repo.List(c.Request.Context(), limit, offset)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"scenarios": list, "limit": limit, "offset": offset})
	}
}

// CreateScenario stores a scenario document
func CreateScenario(repo *scenario.Repository, db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireRepo(c, repo) {
			return
		}
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		sc, err := scenario.Parse(body)
		if err != nil {
			respondError(c, err)
			return
		}

		id, err := repo.Save(c.Request.Context(), sc)
		if err != nil {
			audit(db, c, "create_scenario", map[string]interface{}{"name": sc.Name}, false)
			respondError(c, err)
			return
		}
		audit(db, c, "create_scenario", map[string]interface{}{"scenario_id": id, "name": sc.Name}, true)
		c.JSON(http.StatusCreated, gin.H{"id": id, "name": sc.Name, "bodies": len(sc.Bodies)})
	}
}

// GetScenario returns one stored scenario with its bodies
func GetScenario(repo *scenario.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireRepo(c, repo) {
			return
		}
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scenario id"})
			return
		}
		sc, err := repo.Get(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, sc)
	}
}
