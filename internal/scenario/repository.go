package scenario

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/orbitsim/internal/models"
)

var ErrNotFound = errors.New("scenario not found")

// Repository stores scenarios in Postgres
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Save inserts the scenario and its bodies in one transaction and returns
// the new scenario ID.
func (r *Repository) Save(ctx context.Context, s *Scenario) (int, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var id int
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO scenarios (name, description, timestep, auto_orbit, created_at) VALUES ($1, $2, $3, $4, NOW()) RETURNING id`,
		s.Name, s.Description, s.Timestep, s.AutoOrbit,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert scenario: %w", err)
	}

	for i, b := range s.Bodies {
		row := models.ScenarioBody{
			ScenarioID: id,
			Ordinal:    i,
			Name:       b.Name,
			PosX:       b.Pos[0],
			PosY:       b.Pos[1],
			VelX:       b.Vel[0],
			VelY:       b.Vel[1],
			Mass:       b.Mass,
			Radius:     b.Radius,
			ColorHex:   b.Color,
		}
		if row.ColorHex == "" {
			row.ColorHex = "#c8c8ff"
		}
		_, err := tx.NamedExecContext(ctx,
			`INSERT INTO scenario_bodies (scenario_id, ordinal, name, pos_x, pos_y, vel_x, vel_y, mass, radius, color_hex)
			 VALUES (:scenario_id, :ordinal, :name, :pos_x, :pos_y, :vel_x, :vel_y, :mass, :radius, :color_hex)`, row)
		if err != nil {
			return 0, fmt.Errorf("insert body %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	s.ID = id
	return id, nil
}

// Get loads a scenario with its bodies in ordinal order
func (r *Repository) Get(ctx context.Context, id int) (*Scenario, error) {
	var row models.Scenario
	err := r.db.GetContext(ctx, &row,
		`SELECT s.id, s.name, s.description, s.timestep, s.auto_orbit, s.created_at,
		        (SELECT COUNT(*) FROM scenario_bodies b WHERE b.scenario_id = s.id) AS body_count
		 FROM scenarios s WHERE s.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get scenario %d: %w", id, err)
	}

	var rows []models.ScenarioBody
	if err := r.db.SelectContext(ctx, &rows,
		`SELECT id, scenario_id, ordinal, name, pos_x, pos_y, vel_x, vel_y, mass, radius, color_hex
		 FROM scenario_bodies WHERE scenario_id = $1 ORDER BY ordinal`, id); err != nil {
		return nil, fmt.Errorf("get scenario bodies %d: %w", id, err)
	}

	s := &Scenario{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		Timestep:    row.Timestep,
		AutoOrbit:   row.AutoOrbit,
		Bodies:      make([]BodySpec, 0, len(rows)),
	}
	for _, b := range rows {
		s.Bodies = append(s.Bodies, BodySpec{
			Name:   b.Name,
			Pos:    [2]float64{b.PosX, b.PosY},
			Vel:    [2]float64{b.VelX, b.VelY},
			Mass:   b.Mass,
			Radius: b.Radius,
			Color:  b.ColorHex,
		})
	}
	return s, nil
}

// List returns scenario summaries, newest first
func (r *Repository) List(ctx context.Context, limit, offset int) ([]models.Scenario, error) {
	var rows []models.Scenario
	err := r.db.SelectContext(ctx, &rows,
		`SELECT s.id, s.name, s.description, s.timestep, s.auto_orbit, s.created_at,
		        (SELECT COUNT(*) FROM scenario_bodies b WHERE b.scenario_id = s.id) AS body_count
		 FROM scenarios s ORDER BY s.created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	return rows, err
}
