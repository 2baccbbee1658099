package models

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

// Scenario is a stored initial body set
type Scenario struct {
	ID          int       `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description,omitempty"`
	Timestep    float64   `db:"timestep" json:"timestep"`
	AutoOrbit   bool      `db:"auto_orbit" json:"auto_orbit"`
	BodyCount   int       `db:"body_count" json:"body_count"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ScenarioBody is one body of a stored scenario, ordered by Ordinal
type ScenarioBody struct {
	ID         int     `db:"id" json:"id"`
	ScenarioID int     `db:"scenario_id" json:"scenario_id"`
	Ordinal    int     `db:"ordinal" json:"ordinal"`
	Name       string  `db:"name" json:"name"`
	PosX       float64 `db:"pos_x" json:"pos_x"`
	PosY       float64 `db:"pos_y" json:"pos_y"`
	VelX       float64 `db:"vel_x" json:"vel_x"`
	VelY       float64 `db:"vel_y" json:"vel_y"`
	Mass       float64 `db:"mass" json:"mass"`
	Radius     float64 `db:"radius" json:"radius"`
	ColorHex   string  `db:"color_hex" json:"color_hex"`
}

// MergeEvent records a collision merge in a running simulation
type MergeEvent struct {
	ID           int       `db:"id" json:"id"`
	SimulationID string    `db:"simulation_id" json:"simulation_id"`
	Step         int64     `db:"step" json:"step"`
	SimTime      float64   `db:"sim_time" json:"sim_time"`
	SurvivorID   string    `db:"survivor_id" json:"survivor_id"`
	RemovedID    string    `db:"removed_id" json:"removed_id"`
	SurvivorMass float64   `db:"survivor_mass" json:"survivor_mass"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Operator is an account allowed to mutate simulations
type Operator struct {
	Name      string         `db:"name" json:"name"`
	KeyHash   string         `db:"key_hash" json:"-"`
	Roles     pq.StringArray `db:"roles" json:"roles"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// OperatorAudit is one audited operator action
type OperatorAudit struct {
	ID        int             `db:"id" json:"id"`
	Operator  string          `db:"operator" json:"operator"`
	IP        sql.NullString  `db:"ip" json:"ip,omitempty"`
	Route     string          `db:"route" json:"route"`
	Action    string          `db:"action" json:"action"`
	Details   json.RawMessage `db:"details" json:"details"`
	Success   bool            `db:"success" json:"success"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
