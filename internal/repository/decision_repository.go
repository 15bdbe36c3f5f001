package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/gatekeeper/internal/domain"
)

// DecisionRepository is the append-only archive of verification decisions.
// Records are inserted once and never updated or deleted.
type DecisionRepository interface {
	Append(ctx context.Context, record *domain.DecisionRecord) error
}

type decisionRepository struct {
	pool *pgxpool.Pool
}

// NewDecisionRepository instantiates the repository.
func NewDecisionRepository(pool *pgxpool.Pool) DecisionRepository {
	return &decisionRepository{pool: pool}
}

func (r *decisionRepository) Append(ctx context.Context, record *domain.DecisionRecord) error {
	const query = `
        INSERT INTO decisions (channel_id, requester_id, requester_name, category, decider_id, outcome, justification, decided_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		record.ChannelID,
		record.RequesterID,
		record.RequesterName,
		record.Category,
		record.DeciderID,
		record.Outcome,
		record.Justification,
		record.DecidedAt,
	).Scan(&record.ID)
}
