package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kjannette/trahn-agents/internal/models"
)

type AgentRepo struct {
	pool *pgxpool.Pool
}

func NewAgentRepo(pool *pgxpool.Pool) *AgentRepo {
	return &AgentRepo{pool: pool}
}

func (r *AgentRepo) Get(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	row := r.pool.QueryRow(ctx, `SELECT * FROM agents WHERE id = $1`, id)
	a, err := scanAgent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func (r *AgentRepo) GetByUser(ctx context.Context, userID uuid.UUID) ([]models.Agent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT * FROM agents WHERE user_id = $1 ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *AgentRepo) Create(ctx context.Context, a *models.Agent) (*models.Agent, error) {
	settings, err := json.Marshal(a.Settings)
	if err != nil {
		return nil, err
	}
	row := r.pool.QueryRow(ctx,
		`INSERT INTO agents (user_id, name, status, settings)
		 VALUES ($1,$2,$3,$4)
		 RETURNING *`,
		a.UserID, a.Name, models.AgentInactive, settings,
	)
	return scanAgent(row)
}

// UpdateStatus overwrites the persisted lifecycle status. The registry
// calls this both on normal transitions and when reconciling drift.
func (r *AgentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.AgentStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE agents SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, status,
	)
	return err
}

// --- scan helpers ---

func scanAgent(row scannable) (*models.Agent, error) {
	var a models.Agent
	var settings []byte
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Status, &settings, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &a.Settings); err != nil {
			return nil, err
		}
	}
	return &a, nil
}
