package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/playmatatu/orbitsim/internal/sim"
	"github.com/redis/go-redis/v9"
)

// StartEventSubscriber relays merge and hierarchy events published on Redis
// to the watchers of each simulation.
func StartEventSubscriber(ctx context.Context, rdb *redis.Client, hub *Hub) {
	if rdb == nil {
		log.Println("[WS] Redis client not set; event subscriber not started")
		return
	}

	pubsub := rdb.Subscribe(ctx, sim.EventsChannel)
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		log.Printf("[WS] %s subscriber started", sim.EventsChannel)
		for msg := range ch {
			var ev sim.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("[WS] invalid event payload: %v", err)
				continue
			}

			switch ev.Type {
			case "merge", "hierarchy":
				if !hub.HasWatchers(ev.SimulationID) {
					continue
				}
				hub.BroadcastToSim(ev.SimulationID, ev)
			default:
				log.Printf("[WS] unknown event type: %s", ev.Type)
			}
		}
		log.Printf("[WS] %s subscriber stopped", sim.EventsChannel)
	}()
}
