package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kjannette/trahn-agents/internal/models"
)

type OpportunityRepo struct {
	pool *pgxpool.Pool
}

func NewOpportunityRepo(pool *pgxpool.Pool) *OpportunityRepo {
	return &OpportunityRepo{pool: pool}
}

func (r *OpportunityRepo) Record(ctx context.Context, o *models.Opportunity) (*models.Opportunity, error) {
	criteria, err := json.Marshal(o.Criteria)
	if err != nil {
		return nil, err
	}
	detectedAt := o.DetectedAt
	if detectedAt.IsZero() {
		detectedAt = time.Now()
	}
	row := r.pool.QueryRow(ctx,
		`INSERT INTO opportunities (agent_id, symbol, score, description, criteria, detected_at)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 RETURNING *`,
		o.AgentID, o.Symbol, o.Score, o.Description, criteria, detectedAt,
	)
	return scanOpportunity(row)
}

// GetRecent returns the newest opportunities, strongest signal first.
func (r *OpportunityRepo) GetRecent(ctx context.Context, agentID uuid.UUID, limit int) ([]models.Opportunity, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT * FROM opportunities
		 WHERE agent_id = $1
		 ORDER BY detected_at DESC, score DESC
		 LIMIT $2`,
		agentID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Opportunity
	for rows.Next() {
		o, err := scanOpportunity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// DeleteOlderThan prunes superseded scan results.
func (r *OpportunityRepo) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM opportunities WHERE detected_at < $1`,
		time.Now().Add(-age),
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanOpportunity(row scannable) (*models.Opportunity, error) {
	var o models.Opportunity
	var criteria []byte
	err := row.Scan(&o.ID, &o.AgentID, &o.Symbol, &o.Score, &o.Description, &criteria, &o.DetectedAt)
	if err != nil {
		return nil, err
	}
	if len(criteria) > 0 {
		if err := json.Unmarshal(criteria, &o.Criteria); err != nil {
			return nil, err
		}
	}
	return &o, nil
}
