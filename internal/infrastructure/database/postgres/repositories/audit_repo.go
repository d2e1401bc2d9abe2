package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caseworks/appeal-engine/internal/application/orchestrator"
	"github.com/caseworks/appeal-engine/internal/infrastructure/monitoring/logging"
	"github.com/caseworks/appeal-engine/pkg/errors"
)

// AuditRepository appends transition audit entries to the case history
// table.  Append-only; nothing ever updates or deletes rows here.
type AuditRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewAuditRepository constructs an AuditRepository.
func NewAuditRepository(pool *pgxpool.Pool, logger logging.Logger) *AuditRepository {
	return &AuditRepository{
		pool:   pool,
		logger: logger.Named("audit_repo"),
	}
}

var _ orchestrator.AuditWriter = (*AuditRepository)(nil)

func (r *AuditRepository) WriteAuditEntry(ctx context.Context, e orchestrator.AuditEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO case_audit_log (case_id, actor_id, message)
		VALUES ($1, $2, $3)`,
		e.CaseID.String(), string(e.ActorID), e.Message)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSideEffect, "failed to write audit entry")
	}
	return nil
}
