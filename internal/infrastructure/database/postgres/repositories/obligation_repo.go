package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caseworks/appeal-engine/internal/domain/appeal"
	"github.com/caseworks/appeal-engine/pkg/errors"
	"github.com/caseworks/appeal-engine/pkg/types/common"
)

// ObligationRepository answers the planning-obligation flag from the
// appellant case record.
type ObligationRepository struct {
	pool *pgxpool.Pool
}

// NewObligationRepository constructs an ObligationRepository.
func NewObligationRepository(pool *pgxpool.Pool) *ObligationRepository {
	return &ObligationRepository{pool: pool}
}

var _ appeal.ObligationSource = (*ObligationRepository)(nil)

func (r *ObligationRepository) HasPlanningObligation(ctx context.Context, caseID common.ID) (bool, error) {
	var has bool
	err := r.pool.QueryRow(ctx,
		`SELECT has_planning_obligation FROM appeal_cases WHERE id = $1`, caseID.String()).Scan(&has)
	if err == pgx.ErrNoRows {
		return false, errors.Newf(errors.ErrCodeCaseNotFound, "appeal case %s not found", caseID)
	}
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodePersistence, "failed to read planning obligation flag")
	}
	return has, nil
}
