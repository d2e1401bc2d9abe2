// Package repositories contains the pgx-backed implementations of the
// domain persistence contracts.
package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caseworks/appeal-engine/internal/domain/appeal"
	"github.com/caseworks/appeal-engine/internal/domain/calendar"
	"github.com/caseworks/appeal-engine/internal/domain/timetable"
	"github.com/caseworks/appeal-engine/internal/infrastructure/monitoring/logging"
	"github.com/caseworks/appeal-engine/pkg/errors"
	"github.com/caseworks/appeal-engine/pkg/types/common"
)

// CaseRepository is the pgx implementation of appeal.CaseRepository.  Every
// transition write runs in one transaction guarded by an optimistic version
// check.
type CaseRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewCaseRepository constructs a CaseRepository over the given pool.
func NewCaseRepository(pool *pgxpool.Pool, logger logging.Logger) *CaseRepository {
	return &CaseRepository{
		pool:   pool,
		logger: logger.Named("case_repo"),
	}
}

var _ appeal.CaseRepository = (*CaseRepository)(nil)

// LoadCase fetches the full case aggregate: case row, timetable rows, and
// the scheduled event with its address if one exists.
func (r *CaseRepository) LoadCase(ctx context.Context, id common.ID) (*appeal.AppealCase, error) {
	var (
		c         appeal.AppealCase
		status    string
		startedAt *time.Time
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, reference, appeal_type, procedure_type, jurisdiction, status,
		       version, case_started_at, has_planning_obligation,
		       appellant_email, lpa_email, created_at, updated_at
		FROM appeal_cases WHERE id = $1`, id.String(),
	).Scan(&c.ID, &c.Reference, &c.AppealType, &c.ProcedureType, &c.Jurisdiction,
		&status, &c.Version, &startedAt, &c.HasPlanningObligation,
		&c.AppellantEmail, &c.LPAEmail, &c.CreatedAt, &c.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, errors.Newf(errors.ErrCodeCaseNotFound, "appeal case %s not found", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodePersistence, "failed to load appeal case")
	}
	c.CaseStartedAt = startedAt

	tt, err := r.loadTimetable(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Timetable = tt

	ev, err := r.loadEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Event = ev

	return appeal.Rehydrate(c, appeal.Status(status)), nil
}

func (r *CaseRepository) loadTimetable(ctx context.Context, id common.ID) (timetable.Timetable, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT field, due_date FROM case_timetables WHERE case_id = $1`, id.String())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodePersistence, "failed to load timetable")
	}
	defer rows.Close()

	tt := timetable.Timetable{}
	for rows.Next() {
		var (
			field string
			due   time.Time
		)
		if err := rows.Scan(&field, &due); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodePersistence, "failed to scan timetable row")
		}
		tt[timetable.Field(field)] = calendar.DateOnly(due)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodePersistence, "timetable row iteration failed")
	}
	return tt, nil
}

func (r *CaseRepository) loadEvent(ctx context.Context, id common.ID) (*appeal.CaseEvent, error) {
	var (
		ev       appeal.CaseEvent
		line1    *string
		line2    *string
		town     *string
		county   *string
		postcode *string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT e.id, e.kind, e.start_time, e.end_time, e.estimated_days,
		       a.line1, a.line2, a.town, a.county, a.postcode
		FROM case_events e
		LEFT JOIN case_event_addresses a ON a.event_id = e.id
		WHERE e.case_id = $1`, id.String(),
	).Scan(&ev.ID, &ev.Kind, &ev.StartTime, &ev.EndTime, &ev.EstimatedDays,
		&line1, &line2, &town, &county, &postcode)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodePersistence, "failed to load case event")
	}
	if line1 != nil {
		ev.Address = &appeal.Address{
			Line1:    *line1,
			Line2:    deref(line2),
			Town:     deref(town),
			County:   deref(county),
			Postcode: deref(postcode),
		}
	}
	return &ev, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// SaveCaseTransition applies the whole delta in one transaction.  The status
// update carries the version predicate; zero rows affected means another
// writer got there first and nothing is committed.
func (r *CaseRepository) SaveCaseTransition(ctx context.Context, id common.ID, expectedVersion int64, delta appeal.TransitionDelta) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodePersistence, "failed to begin transaction")
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	tag, err := tx.Exec(ctx, `
		UPDATE appeal_cases
		SET status = $3,
		    version = version + 1,
		    case_started_at = COALESCE($4, case_started_at),
		    procedure_type = COALESCE($5, procedure_type),
		    updated_at = now()
		WHERE id = $1 AND version = $2`,
		id.String(), expectedVersion, string(delta.NewStatus),
		delta.CaseStartedAt, procText(delta.ProcedureType))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodePersistence, "failed to update case status")
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM appeal_cases WHERE id = $1)`, id.String()).Scan(&exists); err == nil && !exists {
			return errors.Newf(errors.ErrCodeCaseNotFound, "appeal case %s not found", id)
		}
		return errors.ConcurrencyConflict("case was modified by another request").
			WithDetail("re-fetch the case and retry the transition")
	}

	if delta.Timetable != nil {
		if _, err := tx.Exec(ctx,
			`DELETE FROM case_timetables WHERE case_id = $1`, id.String()); err != nil {
			return errors.Wrap(err, errors.ErrCodePersistence, "failed to clear timetable")
		}
		for _, field := range delta.Timetable.Fields() {
			if _, err := tx.Exec(ctx, `
				INSERT INTO case_timetables (case_id, field, due_date)
				VALUES ($1, $2, $3)`,
				id.String(), string(field), delta.Timetable[field]); err != nil {
				return errors.Wrap(err, errors.ErrCodePersistence, "failed to write timetable row")
			}
		}
	}

	if delta.UpsertEvent != nil {
		if err := r.upsertEvent(ctx, tx, id, delta.UpsertEvent); err != nil {
			return err
		}
	} else if delta.DeleteEvent {
		// Address rows cascade from the event delete.
		if _, err := tx.Exec(ctx,
			`DELETE FROM case_events WHERE case_id = $1`, id.String()); err != nil {
			return errors.Wrap(err, errors.ErrCodePersistence, "failed to delete case event")
		}
	} else if delta.ClearEventAddress {
		if _, err := tx.Exec(ctx, `
			DELETE FROM case_event_addresses
			WHERE event_id IN (SELECT id FROM case_events WHERE case_id = $1)`, id.String()); err != nil {
			return errors.Wrap(err, errors.ErrCodePersistence, "failed to clear event address")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodePersistence, "failed to commit transition")
	}

	r.logger.Debug("transition persisted",
		logging.String("case_id", id.String()),
		logging.String("status", string(delta.NewStatus)),
		logging.Int64("version", expectedVersion+1))
	return nil
}

// CreateCase inserts a new case aggregate with its (usually empty) timetable.
func (r *CaseRepository) CreateCase(ctx context.Context, c *appeal.AppealCase) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodePersistence, "failed to begin transaction")
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `
		INSERT INTO appeal_cases (
			id, reference, appeal_type, procedure_type, jurisdiction, status,
			version, case_started_at, has_planning_obligation,
			appellant_email, lpa_email, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		c.ID.String(), c.Reference, string(c.AppealType), string(c.ProcedureType),
		string(c.Jurisdiction), string(c.Status()), c.Version, c.CaseStartedAt,
		c.HasPlanningObligation, c.AppellantEmail, c.LPAEmail,
		c.CreatedAt, c.UpdatedAt); err != nil {
		return errors.Wrap(err, errors.ErrCodePersistence, "failed to insert appeal case")
	}

	for _, field := range c.Timetable.Fields() {
		if _, err := tx.Exec(ctx, `
			INSERT INTO case_timetables (case_id, field, due_date)
			VALUES ($1, $2, $3)`,
			c.ID.String(), string(field), c.Timetable[field]); err != nil {
			return errors.Wrap(err, errors.ErrCodePersistence, "failed to write timetable row")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodePersistence, "failed to commit case insert")
	}
	return nil
}

// upsertEvent writes the scheduled hearing/inquiry inside the transition
// transaction.  A case holds at most one event; a rearrangement replaces the
// existing row's details and its address in place.
func (r *CaseRepository) upsertEvent(ctx context.Context, tx pgx.Tx, id common.ID, ev *appeal.CaseEvent) error {
	if _, err := tx.Exec(ctx, `
		INSERT INTO case_events (id, case_id, kind, start_time, end_time, estimated_days)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (case_id) DO UPDATE
		SET kind = EXCLUDED.kind,
		    start_time = EXCLUDED.start_time,
		    end_time = EXCLUDED.end_time,
		    estimated_days = EXCLUDED.estimated_days`,
		ev.ID.String(), id.String(), string(ev.Kind),
		ev.StartTime, ev.EndTime, ev.EstimatedDays); err != nil {
		return errors.Wrap(err, errors.ErrCodePersistence, "failed to upsert case event")
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM case_event_addresses
		WHERE event_id IN (SELECT id FROM case_events WHERE case_id = $1)`, id.String()); err != nil {
		return errors.Wrap(err, errors.ErrCodePersistence, "failed to clear event address")
	}
	if ev.Address != nil {
		if _, err := tx.Exec(ctx, `
			INSERT INTO case_event_addresses (event_id, line1, line2, town, county, postcode)
			SELECT id, $2, $3, $4, $5, $6 FROM case_events WHERE case_id = $1`,
			id.String(), ev.Address.Line1, ev.Address.Line2,
			ev.Address.Town, ev.Address.County, ev.Address.Postcode); err != nil {
			return errors.Wrap(err, errors.ErrCodePersistence, "failed to write event address")
		}
	}
	return nil
}

func procText(p *timetable.ProcedureType) *string {
	if p == nil {
		return nil
	}
	s := string(*p)
	return &s
}
