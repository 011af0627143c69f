package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

// TimetablePlacementRepository manages placement rows of saved timetables.
type TimetablePlacementRepository struct {
	db *sqlx.DB
}

// NewTimetablePlacementRepository builds repository.
func NewTimetablePlacementRepository(db *sqlx.DB) *TimetablePlacementRepository {
	return &TimetablePlacementRepository{db: db}
}

func (r *TimetablePlacementRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// UpsertBatch writes placements; a (timetable, course, component) pair is stored once.
func (r *TimetablePlacementRepository) UpsertBatch(ctx context.Context, exec sqlx.ExtContext, rows []models.TimetablePlacement) error {
	if len(rows) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()

	const query = `
INSERT INTO timetable_placements (id, timetable_id, day, time_label, slot_id, course_id, component, room_id, faculty, faculty_id, group_name, pattern, created_at)
VALUES (:id, :timetable_id, :day, :time_label, :slot_id, :course_id, :component, :room_id, :faculty, :faculty_id, :group_name, :pattern, :created_at)
ON CONFLICT (timetable_id, course_id, component) DO UPDATE
SET day = EXCLUDED.day,
    time_label = EXCLUDED.time_label,
    slot_id = EXCLUDED.slot_id,
    room_id = EXCLUDED.room_id,
    pattern = EXCLUDED.pattern`

	for i := range rows {
		row := &rows[i]
		if row.ID == "" {
			row.ID = uuid.NewString()
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, row); err != nil {
			return fmt.Errorf("upsert timetable placement %s (%s): %w", row.CourseID, row.Component, err)
		}
	}
	return nil
}

// ListByTimetable returns placement rows of a timetable in insertion order.
func (r *TimetablePlacementRepository) ListByTimetable(ctx context.Context, timetableID string) ([]models.TimetablePlacement, error) {
	const query = `SELECT id, timetable_id, day, time_label, slot_id, course_id, component, room_id, faculty, faculty_id, group_name, pattern, created_at
FROM timetable_placements WHERE timetable_id = $1 ORDER BY created_at ASC, course_id ASC, component ASC`
	var rows []models.TimetablePlacement
	if err := r.db.SelectContext(ctx, &rows, query, timetableID); err != nil {
		return nil, fmt.Errorf("list timetable placements: %w", err)
	}
	return rows, nil
}
