package sim

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/orbitsim/internal/config"
	"github.com/playmatatu/orbitsim/internal/models"
	"github.com/playmatatu/orbitsim/internal/physics"
	"github.com/playmatatu/orbitsim/internal/scenario"
	"github.com/redis/go-redis/v9"
)

// EventsChannel is the Redis channel merge and hierarchy events go out on.
const EventsChannel = "sim_events"

// Broadcaster delivers messages to clients watching a simulation.
type Broadcaster interface {
	BroadcastToSim(simID string, message interface{})
	HasWatchers(simID string) bool
}

// Event is published for merges and parent changes.
type Event struct {
	Type         string                 `json:"type"`
	SimulationID string                 `json:"simulation_id"`
	Step         int64                  `json:"step"`
	SimTime      float64                `json:"sim_time"`
	Merge        *physics.Merge         `json:"merge,omitempty"`
	Changes      []physics.ParentChange `json:"changes,omitempty"`
}

// Summary is the listing view of a simulation.
type Summary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	ScenarioID int       `json:"scenario_id,omitempty"`
	Bodies     int       `json:"bodies"`
	Step       int64     `json:"step"`
	Paused     bool      `json:"paused"`
	CreatedAt  time.Time `json:"created_at"`
}

type entry struct {
	sim       *Simulation
	cancel    context.CancelFunc
	lastSaved time.Time
}

// Manager manages all running simulations
type Manager struct {
	sims        map[string]*entry // keyed by simulation ID
	rdb         *redis.Client     // Redis client for snapshots and events
	db          *sqlx.DB          // SQL DB for merge history
	config      *config.Config
	broadcaster Broadcaster
	mu          sync.RWMutex
}

// NewManager creates a new simulation manager. db and rdb may be nil.
func NewManager(db *sqlx.DB, rdb *redis.Client, cfg *config.Config) *Manager {
	return &Manager{
		sims:   make(map[string]*entry),
		rdb:    rdb,
		db:     db,
		config: cfg,
	}
}

// SetBroadcaster wires the client fan-out used for frames and, without
// Redis, for events.
func (m *Manager) SetBroadcaster(b Broadcaster) {
	m.mu.Lock()
	m.broadcaster = b
	m.mu.Unlock()
}

func (m *Manager) getBroadcaster() Broadcaster {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.broadcaster
}

// generateToken generates a secure random token
func generateToken(length int) string {
	bytes := make([]byte, length)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// generateSimID generates a unique simulation ID
func generateSimID() string {
	return "sim_" + generateToken(8)
}

// Params returns the engine parameters from config
func (m *Manager) Params() physics.Params {
	p := physics.DefaultParams()
	if m.config == nil {
		return p
	}
	p.G = m.config.Gravity
	p.DistanceScale = m.config.DistanceScale
	p.Timestep = m.config.Timestep
	p.MergeRadiusDamping = m.config.MergeRadiusDamping
	p.HysteresisBonus = m.config.HysteresisBonus
	p.MaxTrailPoints = m.config.TrailMaxPoints
	p.LoopCheckPoints = m.config.TrailLoopCheck
	return p
}

// Create builds a simulation from a scenario and starts its runner.
func (m *Manager) Create(sc *scenario.Scenario) (*Simulation, error) {
	p := m.Params()
	if sc.Timestep > 0 {
		p.Timestep = sc.Timestep
	}
	if sc.AutoOrbit {
		sc.ApplyAutoOrbit(p.G, p.DistanceScale)
	}
	bodies, err := sc.Build()
	if err != nil {
		return nil, err
	}

	telemetryCap, frame, hierarchy, limit := 20000, 16*time.Millisecond, 5*time.Second, 0
	if m.config != nil {
		telemetryCap = m.config.TelemetryCapacity
		frame = time.Duration(m.config.FrameIntervalMs) * time.Millisecond
		hierarchy = time.Duration(m.config.HierarchyIntervalSeconds) * time.Second
		limit = m.config.MaxSimulations
	}

	s, err := New(generateSimID(), sc.Name, p, bodies, telemetryCap)
	if err != nil {
		return nil, err
	}
	s.ScenarioID = sc.ID

	m.mu.Lock()
	if limit > 0 && len(m.sims) >= limit {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w (%d)", ErrLimitReached, limit)
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.sims[s.ID] = &entry{sim: s, cancel: cancel}
	m.mu.Unlock()

	go s.Run(ctx, frame, hierarchy, m.hooks())
	m.saveSnapshot(s)

	log.Printf("[SIM] Created %s (%s) with %d bodies, dt=%g", s.ID, s.Name, len(bodies), p.Timestep)
	return s, nil
}

// Get returns a simulation by ID
func (m *Manager) Get(id string) (*Simulation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sims[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e.sim, nil
}

// List returns summaries of all simulations, oldest first
func (m *Manager) List() []Summary {
	m.mu.RLock()
	sims := make([]*Simulation, 0, len(m.sims))
	for _, e := range m.sims {
		sims = append(sims, e.sim)
	}
	m.mu.RUnlock()

	out := make([]Summary, 0, len(sims))
	for _, s := range sims {
		snap := s.Snapshot(false)
		out = append(out, Summary{
			ID:         s.ID,
			Name:       s.Name,
			ScenarioID: s.ScenarioID,
			Bodies:     len(snap.Bodies),
			Step:       snap.Step,
			Paused:     snap.Paused,
			CreatedAt:  s.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Delete stops and removes a simulation
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	e, ok := m.sims[id]
	if ok {
		delete(m.sims, id)
	}
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	e.cancel()
	if m.rdb != nil {
		if err := m.rdb.Del(context.Background(), snapshotKey(id)).Err(); err != nil {
			log.Printf("[REDIS] Failed to delete snapshot for %s: %v", id, err)
		}
	}
	log.Printf("[SIM] Deleted %s", id)
	return nil
}

// Shutdown stops every runner
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, e := range m.sims {
		e.cancel()
		delete(m.sims, id)
	}
}

func (m *Manager) hooks() Hooks {
	return Hooks{
		OnStep: func(s *Simulation, res StepResult) {
			if b := m.getBroadcaster(); b != nil && b.HasWatchers(s.ID) {
				b.BroadcastToSim(s.ID, map[string]interface{}{
					"type": "frame",
					"data": s.Snapshot(true),
				})
			}
			m.maybeSaveSnapshot(s)
		},
		OnMerge: func(s *Simulation, res StepResult, merge physics.Merge) {
			m.HandleMerge(s, res, merge)
		},
		OnHierarchy: func(s *Simulation, changes []physics.ParentChange) {
			m.HandleHierarchy(s, changes)
		},
	}
}

// HandleMerge publishes and records a merge
func (m *Manager) HandleMerge(s *Simulation, res StepResult, merge physics.Merge) {
	log.Printf("[SIM] %s step %d: %s absorbed %s (mass=%g)", s.ID, res.Step, merge.SurvivorName, merge.RemovedName, merge.Mass)
	m.emit(Event{Type: "merge", SimulationID: s.ID, Step: res.Step, SimTime: res.SimTime, Merge: &merge})
	go m.recordMerge(s.ID, res, merge)
}

// HandleHierarchy publishes parent changes
func (m *Manager) HandleHierarchy(s *Simulation, changes []physics.ParentChange) {
	snap := s.Snapshot(false)
	m.emit(Event{Type: "hierarchy", SimulationID: s.ID, Step: snap.Step, SimTime: snap.SimTime, Changes: changes})
}

// emit publishes an event on Redis, or straight to watchers when Redis is
// not configured.
func (m *Manager) emit(ev Event) {
	if m.rdb == nil {
		if b := m.getBroadcaster(); b != nil {
			b.BroadcastToSim(ev.SimulationID, ev)
		}
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[SIM] Failed to marshal %s event: %v", ev.Type, err)
		return
	}
	if err := m.rdb.Publish(context.Background(), EventsChannel, data).Err(); err != nil {
		log.Printf("[REDIS] publish %s failed for %s: %v", ev.Type, ev.SimulationID, err)
	}
}

// recordMerge persists a merge event row
func (m *Manager) recordMerge(simID string, res StepResult, merge physics.Merge) {
	if m.db == nil {
		return
	}
	_, err := m.db.Exec(
		`INSERT INTO merge_events (simulation_id, step, sim_time, survivor_id, removed_id, survivor_mass, created_at) VALUES ($1,$2,$3,$4,$5,$6,NOW())`,
		simID, res.Step, res.SimTime, merge.SurvivorID, merge.RemovedID, merge.Mass,
	)
	if err != nil {
		log.Printf("[DB] Failed to record merge for %s: %v", simID, err)
	}
}

// ErrNoHistory is returned when merge history is requested without a database
var ErrNoHistory = errors.New("merge history unavailable")

// MergeHistory returns the recorded merges of a simulation, oldest first
func (m *Manager) MergeHistory(ctx context.Context, simID string, limit int) ([]models.MergeEvent, error) {
	if m.db == nil {
		return nil, ErrNoHistory
	}
	var events []models.MergeEvent
	err := m.db.SelectContext(ctx, &events, `
		SELECT id, simulation_id, step, sim_time, survivor_id, removed_id, survivor_mass, created_at
		FROM merge_events
		WHERE simulation_id = $1
		ORDER BY step
		LIMIT $2
	`, simID, limit)
	return events, err
}

func snapshotKey(id string) string {
	return "sim:" + id + ":state"
}

// maybeSaveSnapshot saves at most once per second per simulation
func (m *Manager) maybeSaveSnapshot(s *Simulation) {
	if m.rdb == nil {
		return
	}
	m.mu.Lock()
	e, ok := m.sims[s.ID]
	due := ok && time.Since(e.lastSaved) >= time.Second
	if due {
		e.lastSaved = time.Now()
	}
	m.mu.Unlock()
	if due {
		m.saveSnapshot(s)
	}
}

// saveSnapshot saves the simulation state (without trails) to Redis
func (m *Manager) saveSnapshot(s *Simulation) {
	if m.rdb == nil {
		return
	}
	ttl := time.Hour
	if m.config != nil && m.config.SnapshotTTLSeconds > 0 {
		ttl = time.Duration(m.config.SnapshotTTLSeconds) * time.Second
	}
	data, err := json.Marshal(s.Snapshot(false))
	if err != nil {
		log.Printf("[REDIS] Failed to marshal snapshot for %s: %v", s.ID, err)
		return
	}
	if err := m.rdb.SetEx(context.Background(), snapshotKey(s.ID), data, ttl).Err(); err != nil {
		log.Printf("[REDIS] Failed to save snapshot for %s: %v", s.ID, err)
	}
}

// LoadSnapshot reads the last saved snapshot of a simulation from Redis
func (m *Manager) LoadSnapshot(ctx context.Context, id string) (*Snapshot, error) {
	if m.rdb == nil {
		return nil, ErrNotFound
	}
	data, err := m.rdb.Get(ctx, snapshotKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Step advances a simulation once outside its runner and fans out the
// result the same way the runner does.
func (m *Manager) Step(s *Simulation) StepResult {
	h := m.hooks()
	res := s.Step()
	if res.Merge != nil {
		h.OnMerge(s, res, *res.Merge)
	}
	h.OnStep(s, res)
	return res
}

// Reclassify recomputes parents now and publishes any changes.
func (m *Manager) Reclassify(s *Simulation) []physics.ParentChange {
	changes := s.Reclassify()
	if len(changes) > 0 {
		m.HandleHierarchy(s, changes)
	}
	return changes
}
