package ws

import (
	"encoding/json"
	"errors"
	"log"

	"github.com/playmatatu/orbitsim/internal/physics"
	"github.com/playmatatu/orbitsim/internal/sim"
)

// Command payloads. Bodies are addressed by id when one is given,
// otherwise by index.
type SetVelocityData struct {
	sim.BodyRef
	Velocity physics.Vec2 `json:"velocity"`
}

type SetTimestepData struct {
	Timestep float64 `json:"timestep"`
}

// handleCommand applies a client command to the client's simulation
func (h *Hub) handleCommand(c *Client, msg WSMessage) {
	if !c.canControl {
		c.sendError("this connection is read-only")
		return
	}

	s, err := h.manager.Get(c.simID)
	if err != nil {
		c.sendError("simulation not found")
		return
	}

	switch msg.Type {
	case "add_body":
		var req sim.NewBodyRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			c.sendError("invalid add_body data")
			return
		}
		idx, body, err := s.AddBody(req)
		if err != nil {
			c.sendError(commandError(err))
			return
		}
		h.BroadcastToSim(c.simID, map[string]interface{}{
			"type":  "body_added",
			"index": idx,
			"body":  body,
		})

	case "set_velocity":
		var data SetVelocityData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid set_velocity data")
			return
		}
		if _, err := s.SetVelocity(data.BodyRef, data.Velocity); err != nil {
			c.sendError(commandError(err))
			return
		}

	case "grow_body":
		var ref sim.BodyRef
		if err := json.Unmarshal(msg.Data, &ref); err != nil {
			c.sendError("invalid grow_body data")
			return
		}
		if _, _, err := s.GrowBody(ref); err != nil {
			c.sendError(commandError(err))
			return
		}

	case "pause", "resume":
		if msg.Type == "pause" {
			s.Pause()
		} else {
			s.Resume()
		}
		h.BroadcastToSim(c.simID, map[string]interface{}{
			"type":   "paused",
			"paused": msg.Type == "pause",
		})

	case "set_timestep":
		var data SetTimestepData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid set_timestep data")
			return
		}
		if err := s.SetTimestep(data.Timestep); err != nil {
			c.sendError(commandError(err))
			return
		}
		h.BroadcastToSim(c.simID, map[string]interface{}{
			"type":     "timestep",
			"timestep": data.Timestep,
		})

	case "reclassify":
		h.manager.Reclassify(s)

	case "step":
		h.manager.Step(s)

	default:
		log.Printf("[WS] Unknown command %q from client %s", msg.Type, c.id)
		c.sendError("unknown command type")
	}
}

// commandError maps engine errors to a client-facing message
func commandError(err error) string {
	switch {
	case errors.Is(err, physics.ErrIndexOutOfRange):
		return "no such body"
	case errors.Is(err, physics.ErrInvalidBody):
		return "body needs positive mass and radius"
	case errors.Is(err, sim.ErrInvalidTimestep):
		return "timestep must be positive"
	}
	return err.Error()
}
