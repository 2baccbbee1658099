package handlers

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/orbitsim/internal/auth"
	"github.com/playmatatu/orbitsim/internal/config"
	"github.com/playmatatu/orbitsim/internal/sim"
	"github.com/playmatatu/orbitsim/internal/ws"
)

// HandleSimWebSocket streams frames for one simulation. Watching is open;
// sending commands needs a valid access_token when auth is required.
func HandleSimWebSocket(mgr *sim.Manager, hub *ws.Hub, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := loadSim(c, mgr)
		if !ok {
			return
		}

		canControl := !cfg.RequireAuth
		if token := c.Query("access_token"); token != "" {
			if name, err := auth.ParseToken(cfg, token); err == nil {
				canControl = true
				log.Printf("[WS] Operator %s controlling %s", name, s.ID)
			}
		}

		hub.Serve(c.Writer, c.Request, s.ID, canControl)
	}
}
