package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mesh-intelligence/greenmap/pkg/types"
)

// PostgresRepository stores the inventory in the plants and lawns tables.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository wraps an open pool. Call EnsureSchema before use.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the tables if they do not exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS plants (
            id TEXT PRIMARY KEY,
            type TEXT NOT NULL,
            species TEXT NOT NULL DEFAULT '',
            age DOUBLE PRECISION NOT NULL DEFAULT 0,
            crown_diameter DOUBLE PRECISION NOT NULL DEFAULT 0,
            height DOUBLE PRECISION NOT NULL DEFAULT 0,
            damages TEXT,
            health_status TEXT NOT NULL,
            position_lat DOUBLE PRECISION NOT NULL,
            position_lng DOUBLE PRECISION NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS lawns (
            id TEXT PRIMARY KEY,
            area DOUBLE PRECISION NOT NULL DEFAULT 0,
            grass_type TEXT NOT NULL DEFAULT '',
            health_status TEXT NOT NULL,
            positions JSONB NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// ListPlants implements Repository.
func (r *PostgresRepository) ListPlants(ctx context.Context) ([]types.Plant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, type, species, age, crown_diameter, height, COALESCE(damages, ''),
                health_status, position_lat, position_lng
         FROM plants
         ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list plants: %w", err)
	}
	plants, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.Plant, error) {
		var p types.Plant
		err := row.Scan(&p.ID, &p.Kind, &p.Species, &p.Age, &p.CrownDiameter, &p.Height,
			&p.Damages, &p.HealthStatus, &p.Position.Lat, &p.Position.Lng)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("list plants: %w", err)
	}
	return plants, nil
}

// ListLawns implements Repository.
func (r *PostgresRepository) ListLawns(ctx context.Context) ([]types.Lawn, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, area, grass_type, health_status, positions
         FROM lawns
         ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list lawns: %w", err)
	}
	lawns, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.Lawn, error) {
		var l types.Lawn
		var raw []byte
		if err := row.Scan(&l.ID, &l.Area, &l.GrassType, &l.HealthStatus, &raw); err != nil {
			return l, err
		}
		if err := json.Unmarshal(raw, &l.Boundary); err != nil {
			return l, fmt.Errorf("lawn %s positions: %w", l.ID, err)
		}
		return l, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list lawns: %w", err)
	}
	return lawns, nil
}

// UpsertPlant implements Repository.
func (r *PostgresRepository) UpsertPlant(ctx context.Context, p types.Plant) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO plants (id, type, species, age, crown_diameter, height,
                             damages, health_status, position_lat, position_lng)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
         ON CONFLICT (id) DO UPDATE SET
             type = EXCLUDED.type,
             species = EXCLUDED.species,
             age = EXCLUDED.age,
             crown_diameter = EXCLUDED.crown_diameter,
             height = EXCLUDED.height,
             damages = EXCLUDED.damages,
             health_status = EXCLUDED.health_status,
             position_lat = EXCLUDED.position_lat,
             position_lng = EXCLUDED.position_lng`,
		p.ID, string(p.Kind), p.Species, p.Age, p.CrownDiameter, p.Height,
		p.Damages, string(p.HealthStatus), p.Position.Lat, p.Position.Lng)
	if err != nil {
		return fmt.Errorf("upsert plant %s: %w", p.ID, err)
	}
	return nil
}

// UpsertLawn implements Repository.
func (r *PostgresRepository) UpsertLawn(ctx context.Context, l types.Lawn) error {
	positions, err := json.Marshal(l.Boundary)
	if err != nil {
		return fmt.Errorf("encode lawn %s positions: %w", l.ID, err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO lawns (id, area, grass_type, health_status, positions)
         VALUES ($1, $2, $3, $4, $5)
         ON CONFLICT (id) DO UPDATE SET
             area = EXCLUDED.area,
             grass_type = EXCLUDED.grass_type,
             health_status = EXCLUDED.health_status,
             positions = EXCLUDED.positions`,
		l.ID, l.Area, l.GrassType, string(l.HealthStatus), positions)
	if err != nil {
		return fmt.Errorf("upsert lawn %s: %w", l.ID, err)
	}
	return nil
}

// Delete implements Repository.
func (r *PostgresRepository) Delete(ctx context.Context, c types.Collection, id string) error {
	var stmt string
	switch c {
	case types.CollectionPlants:
		stmt = `DELETE FROM plants WHERE id = $1`
	case types.CollectionLawns:
		stmt = `DELETE FROM lawns WHERE id = $1`
	default:
		return fmt.Errorf("%w: %q", types.ErrInvalidCollection, c)
	}
	if _, err := r.pool.Exec(ctx, stmt, id); err != nil {
		return fmt.Errorf("delete %s %s: %w", c.Singular(), id, err)
	}
	return nil
}
