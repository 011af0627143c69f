package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/timetable-api/internal/models"
)

const timetableColumns = `id, term, version, status, strategy, verdict, message, proposal_id, meta, created_by, created_at, updated_at`

// TimetableRepository persists versioned timetables per term.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

func (r *TimetableRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// CreateVersioned inserts a timetable assigning the next version for its term.
func (r *TimetableRepository) CreateVersioned(ctx context.Context, exec sqlx.ExtContext, timetable *models.Timetable) error {
	if timetable == nil {
		return fmt.Errorf("timetable payload is nil")
	}
	if timetable.Term == "" {
		return fmt.Errorf("term is required")
	}
	if timetable.ID == "" {
		timetable.ID = uuid.NewString()
	}
	if timetable.Status == "" {
		timetable.Status = models.TimetableStatusDraft
	}
	if len(timetable.Meta) == 0 {
		timetable.Meta = types.JSONText(`{}`)
	}
	now := time.Now().UTC()
	if timetable.CreatedAt.IsZero() {
		timetable.CreatedAt = now
	}
	timetable.UpdatedAt = now

	target := r.exec(exec)

	const nextVersionQuery = `SELECT COALESCE(MAX(version), 0) + 1 FROM timetables WHERE term = $1`
	if err := sqlx.GetContext(ctx, target, &timetable.Version, nextVersionQuery, timetable.Term); err != nil {
		return fmt.Errorf("compute next timetable version: %w", err)
	}

	const insertQuery = `
INSERT INTO timetables (id, term, version, status, strategy, verdict, message, proposal_id, meta, created_by, created_at, updated_at)
VALUES (:id, :term, :version, :status, :strategy, :verdict, :message, :proposal_id, :meta, :created_by, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, insertQuery, timetable); err != nil {
		return fmt.Errorf("insert timetable: %w", err)
	}
	return nil
}

// List returns timetables newest first, optionally restricted to one term.
func (r *TimetableRepository) List(ctx context.Context, term string) ([]models.Timetable, error) {
	var (
		timetables []models.Timetable
		err        error
	)
	if term == "" {
		err = r.db.SelectContext(ctx, &timetables, `SELECT `+timetableColumns+` FROM timetables ORDER BY term ASC, version DESC`)
	} else {
		err = r.db.SelectContext(ctx, &timetables, `SELECT `+timetableColumns+` FROM timetables WHERE term = $1 ORDER BY version DESC`, term)
	}
	if err != nil {
		return nil, fmt.Errorf("list timetables: %w", err)
	}
	return timetables, nil
}

// FindByID loads a timetable by its identifier.
func (r *TimetableRepository) FindByID(ctx context.Context, id string) (*models.Timetable, error) {
	var timetable models.Timetable
	if err := r.db.GetContext(ctx, &timetable, `SELECT `+timetableColumns+` FROM timetables WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &timetable, nil
}

// Delete removes a stored timetable version. Placements cascade.
func (r *TimetableRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM timetables WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete timetable: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("timetable rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateStatus moves a timetable to another lifecycle status.
func (r *TimetableRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.TimetableStatus) error {
	const query = `UPDATE timetables SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := r.exec(exec).ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update timetable status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("timetable status rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UnpublishTerm demotes every published timetable of a term back to draft.
func (r *TimetableRepository) UnpublishTerm(ctx context.Context, exec sqlx.ExtContext, term string) error {
	const query = `UPDATE timetables SET status = $1, updated_at = $2 WHERE term = $3 AND status = $4`
	if _, err := r.exec(exec).ExecContext(ctx, query, models.TimetableStatusDraft, time.Now().UTC(), term, models.TimetableStatusPublished); err != nil {
		return fmt.Errorf("unpublish term timetables: %w", err)
	}
	return nil
}
