package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/Freeeeeet/studio_booking/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

const scheduleColumns = `s.id, s.class_type_id, s.instructor_id, s.start_time, s.duration_minutes,
		s.max_capacity, s.current_capacity, s.status, s.notes, s.created_at, s.updated_at`

type ScheduleRepository struct {
	db *base.Repository
}

func NewScheduleRepository(db *base.Repository) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func scanSchedule(row pgx.Row, s *model.Schedule, extra ...any) error {
	dest := []any{
		&s.ID,
		&s.ClassTypeID,
		&s.InstructorID,
		&s.StartTime,
		&s.DurationMinutes,
		&s.MaxCapacity,
		&s.CurrentCapacity,
		&s.Status,
		&s.Notes,
		&s.CreatedAt,
		&s.UpdatedAt,
	}
	return row.Scan(append(dest, extra...)...)
}

// Create создаёт новое занятие. Неактивный или несуществующий тип занятия даёт ErrNotFound.
func (r *ScheduleRepository) Create(ctx context.Context, s *model.Schedule) error {
	query := `
		INSERT INTO schedules (class_type_id, instructor_id, start_time, duration_minutes,
			max_capacity, current_capacity, status, notes)
		SELECT ct.id, $2, $3, $4, $5, $6, $7, $8
		FROM class_types ct
		WHERE ct.id = $1 AND ct.is_active
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		s.ClassTypeID,
		s.InstructorID,
		s.StartTime,
		s.DurationMinutes,
		s.MaxCapacity,
		s.CurrentCapacity,
		s.Status,
		s.Notes,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)

	if base.IsNotFound(err) {
		return fmt.Errorf("%w: class type %d not found or inactive", model.ErrNotFound, s.ClassTypeID)
	}
	if err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}

	return nil
}

// GetByID получает занятие по ID
func (r *ScheduleRepository) GetByID(ctx context.Context, id int64) (*model.Schedule, error) {
	return r.get(ctx, id, "")
}

// GetByIDForUpdate получает занятие и блокирует строку до конца транзакции
func (r *ScheduleRepository) GetByIDForUpdate(ctx context.Context, id int64) (*model.Schedule, error) {
	return r.get(ctx, id, "FOR UPDATE")
}

func (r *ScheduleRepository) get(ctx context.Context, id int64, lock string) (*model.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules s WHERE s.id = $1 ` + lock

	var s model.Schedule
	err := scanSchedule(r.db.QueryRow(ctx, query, id), &s)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get schedule by id: %w", err)
	}

	return &s, nil
}

// Update сохраняет изменяемые поля занятия
func (r *ScheduleRepository) Update(ctx context.Context, s *model.Schedule) error {
	query := `
		UPDATE schedules
		SET start_time = $1, duration_minutes = $2, max_capacity = $3, notes = $4,
			status = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING updated_at
	`

	err := r.db.QueryRow(ctx, query,
		s.StartTime,
		s.DurationMinutes,
		s.MaxCapacity,
		s.Notes,
		s.Status,
		s.ID,
	).Scan(&s.UpdatedAt)
	if err != nil {
		if base.IsNotFound(err) {
			return fmt.Errorf("schedule not found")
		}
		return fmt.Errorf("update schedule: %w", err)
	}

	return nil
}

// Delete удаляет занятие (отменённые бронирования удаляются каскадом)
func (r *ScheduleRepository) Delete(ctx context.Context, id int64) error {
	affected, err := r.db.ExecAffected(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("schedule not found")
	}

	return nil
}

// LockInstructor берёт транзакционную advisory-блокировку по инструктору.
// Блокировка только выстраивает конкурентные записи одного инструктора в очередь.
// Снимок serializable-транзакции фиксируется на первом запросе, то есть на самом
// вызове блокировки, поэтому последующая проверка пересечений читает данные
// до захвата. Пересечение, вставленное соседом за это время, ловит SSI (40001),
// и TxManager повторяет транзакцию уже со свежим снимком.
func (r *ScheduleRepository) LockInstructor(ctx context.Context, instructorID int64) error {
	_, err := r.db.ExecAffected(ctx, `SELECT pg_advisory_xact_lock($1)`, instructorID)
	if err != nil {
		return fmt.Errorf("lock instructor: %w", err)
	}
	return nil
}

// ListActiveByInstructorInRange получает неотменённые занятия инструктора,
// пересекающиеся с [from, to), кроме excludeID
func (r *ScheduleRepository) ListActiveByInstructorInRange(ctx context.Context, instructorID int64, from, to time.Time, excludeID int64) ([]*model.Schedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM schedules s
		WHERE s.instructor_id = $1
		  AND s.status <> 'cancelled'
		  AND s.id <> $4
		  AND s.start_time < $3
		  AND s.start_time + make_interval(mins => s.duration_minutes) > $2
		ORDER BY s.start_time
	`

	rows, err := r.db.Query(ctx, query, instructorID, from, to, excludeID)
	if err != nil {
		return nil, fmt.Errorf("get instructor schedules: %w", err)
	}
	defer rows.Close()

	var schedules []*model.Schedule
	for rows.Next() {
		var s model.Schedule
		if err := scanSchedule(rows, &s); err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		schedules = append(schedules, &s)
	}

	return schedules, rows.Err()
}

// IncrementCapacity занимает место, если оно есть. Возвращает false при заполненном занятии.
func (r *ScheduleRepository) IncrementCapacity(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE schedules
		SET current_capacity = current_capacity + 1, updated_at = NOW()
		WHERE id = $1 AND current_capacity < max_capacity
	`

	affected, err := r.db.ExecAffected(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("increment capacity: %w", err)
	}

	return affected == 1, nil
}

// DecrementCapacity освобождает место, не опускаясь ниже нуля
func (r *ScheduleRepository) DecrementCapacity(ctx context.Context, id int64) error {
	query := `
		UPDATE schedules
		SET current_capacity = GREATEST(current_capacity - 1, 0), updated_at = NOW()
		WHERE id = $1
	`

	if _, err := r.db.ExecAffected(ctx, query, id); err != nil {
		return fmt.Errorf("decrement capacity: %w", err)
	}

	return nil
}

// List получает занятия по фильтру с числом подтверждённых бронирований
func (r *ScheduleRepository) List(ctx context.Context, f ScheduleFilter) ([]*model.ScheduleSummary, error) {
	var w whereBuilder
	scopeClause(&w, f.Scope, "s.instructor_id", "")
	if f.From != nil {
		w.add("s.start_time >= ?", *f.From)
	}
	if f.To != nil {
		w.add("s.start_time < ?", *f.To)
	}
	if f.ClassTypeID != nil {
		w.add("s.class_type_id = ?", *f.ClassTypeID)
	}
	if f.InstructorID != nil {
		w.add("s.instructor_id = ?", *f.InstructorID)
	}
	if f.Status != nil {
		w.add("s.status = ?", *f.Status)
	}

	myBooked := "FALSE"
	if f.ViewerID != 0 {
		w.args = append(w.args, f.ViewerID)
		myBooked = fmt.Sprintf(`EXISTS (SELECT 1 FROM bookings mb
			WHERE mb.schedule_id = s.id AND mb.user_id = $%d AND mb.status = 'confirmed')`, len(w.args))
	}

	query := `
		SELECT ` + scheduleColumns + `,
			COALESCE(u.name, ''), COALESCE(ct.name, ''),
			(SELECT COUNT(*) FROM bookings b WHERE b.schedule_id = s.id AND b.status = 'confirmed'),
			` + myBooked + `
		FROM schedules s
		LEFT JOIN users u ON u.id = s.instructor_id
		LEFT JOIN class_types ct ON ct.id = s.class_type_id
		` + w.String() + `
		ORDER BY s.start_time ASC
	`

	rows, err := r.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	var result []*model.ScheduleSummary
	for rows.Next() {
		var s model.ScheduleSummary
		if err := scanSchedule(rows, &s.Schedule, &s.InstructorName, &s.ClassTypeName, &s.BookedCount, &s.MyBooked); err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		result = append(result, &s)
	}

	return result, rows.Err()
}

// AdvanceStatuses переводит начавшиеся занятия в in_progress, а закончившиеся в completed
func (r *ScheduleRepository) AdvanceStatuses(ctx context.Context, now time.Time) (started, completed int64, err error) {
	completed, err = r.db.ExecAffected(ctx, `
		UPDATE schedules
		SET status = 'completed', updated_at = NOW()
		WHERE status IN ('scheduled', 'in_progress')
		  AND start_time + make_interval(mins => duration_minutes) <= $1
	`, now)
	if err != nil {
		return 0, 0, fmt.Errorf("complete schedules: %w", err)
	}

	started, err = r.db.ExecAffected(ctx, `
		UPDATE schedules
		SET status = 'in_progress', updated_at = NOW()
		WHERE status = 'scheduled'
		  AND start_time <= $1
		  AND start_time + make_interval(mins => duration_minutes) > $1
	`, now)
	if err != nil {
		return 0, 0, fmt.Errorf("start schedules: %w", err)
	}

	return started, completed, nil
}
