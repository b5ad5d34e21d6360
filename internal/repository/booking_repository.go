package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/Freeeeeet/studio_booking/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

const bookingColumns = `b.id, b.schedule_id, b.user_id, b.membership_id, b.booking_type,
		b.status, b.booked_at, b.cancelled_at, b.cancel_reason`

type BookingRepository struct {
	db *base.Repository
}

func NewBookingRepository(db *base.Repository) *BookingRepository {
	return &BookingRepository{db: db}
}

func scanBooking(row pgx.Row, b *model.Booking, extra ...any) error {
	dest := []any{
		&b.ID,
		&b.ScheduleID,
		&b.UserID,
		&b.MembershipID,
		&b.BookingType,
		&b.Status,
		&b.BookedAt,
		&b.CancelledAt,
		&b.CancelReason,
	}
	return row.Scan(append(dest, extra...)...)
}

// Create создаёт новое бронирование
func (r *BookingRepository) Create(ctx context.Context, b *model.Booking) error {
	query := `
		INSERT INTO bookings (schedule_id, user_id, membership_id, booking_type, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, booked_at
	`

	err := r.db.QueryRow(
		ctx, query,
		b.ScheduleID,
		b.UserID,
		b.MembershipID,
		b.BookingType,
		b.Status,
	).Scan(&b.ID, &b.BookedAt)

	if err != nil {
		if base.IsUniqueViolation(err) {
			return fmt.Errorf("%w: user already booked this schedule", model.ErrConflict)
		}
		return fmt.Errorf("create booking: %w", err)
	}

	return nil
}

// GetByID получает бронирование по ID
func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	return r.getOne(ctx, `SELECT `+bookingColumns+` FROM bookings b WHERE b.id = $1`, id)
}

// GetByIDForUpdate получает бронирование и блокирует строку
func (r *BookingRepository) GetByIDForUpdate(ctx context.Context, id int64) (*model.Booking, error) {
	return r.getOne(ctx, `SELECT `+bookingColumns+` FROM bookings b WHERE b.id = $1 FOR UPDATE`, id)
}

// GetActive получает неотменённое бронирование пользователя на занятие
func (r *BookingRepository) GetActive(ctx context.Context, scheduleID, userID int64) (*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings b
		WHERE b.schedule_id = $1 AND b.user_id = $2 AND b.status <> 'cancelled'
		LIMIT 1
	`
	return r.getOne(ctx, query, scheduleID, userID)
}

func (r *BookingRepository) getOne(ctx context.Context, query string, args ...any) (*model.Booking, error) {
	var b model.Booking
	err := scanBooking(r.db.QueryRow(ctx, query, args...), &b)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}

	return &b, nil
}

// Cancel отменяет бронирование и фиксирует причину
func (r *BookingRepository) Cancel(ctx context.Context, id int64, reason *string, at time.Time) error {
	query := `
		UPDATE bookings
		SET status = 'cancelled', cancelled_at = $1, cancel_reason = $2
		WHERE id = $3 AND status <> 'cancelled'
	`

	affected, err := r.db.ExecAffected(ctx, query, at, reason, id)
	if err != nil {
		return fmt.Errorf("cancel booking: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("booking not found or already cancelled")
	}

	return nil
}

// Delete удаляет бронирование
func (r *BookingRepository) Delete(ctx context.Context, id int64) error {
	affected, err := r.db.ExecAffected(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("booking not found")
	}

	return nil
}

// CountConfirmed считает подтверждённые бронирования занятия
func (r *BookingRepository) CountConfirmed(ctx context.Context, scheduleID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM bookings WHERE schedule_id = $1 AND status = 'confirmed'`,
		scheduleID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count confirmed bookings: %w", err)
	}

	return count, nil
}

// ListConfirmedUserIDs получает участников с подтверждённой записью
func (r *BookingRepository) ListConfirmedUserIDs(ctx context.Context, scheduleID int64) ([]int64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT user_id FROM bookings WHERE schedule_id = $1 AND status = 'confirmed' ORDER BY booked_at`,
		scheduleID,
	)
	if err != nil {
		return nil, fmt.Errorf("list confirmed users: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// List получает бронирования по фильтру
func (r *BookingRepository) List(ctx context.Context, f BookingFilter) ([]*model.BookingSummary, error) {
	var w whereBuilder
	scopeClause(&w, f.Scope, "s.instructor_id", "b.user_id")
	if f.UserID != nil {
		w.add("b.user_id = ?", *f.UserID)
	}
	if f.ScheduleID != nil {
		w.add("b.schedule_id = ?", *f.ScheduleID)
	}
	if f.Status != nil {
		w.add("b.status = ?", *f.Status)
	}
	if f.ExcludeCancelled {
		w.addRaw("b.status <> 'cancelled'")
	}
	if f.From != nil {
		w.add("s.start_time >= ?", *f.From)
	}
	if f.To != nil {
		w.add("s.start_time < ?", *f.To)
	}

	query := `
		SELECT ` + bookingColumns + `,
			COALESCE(u.name, ''), s.instructor_id, COALESCE(i.name, ''), COALESCE(ct.name, ''),
			s.start_time, s.duration_minutes
		FROM bookings b
		JOIN schedules s ON s.id = b.schedule_id
		LEFT JOIN users u ON u.id = b.user_id
		LEFT JOIN users i ON i.id = s.instructor_id
		LEFT JOIN class_types ct ON ct.id = s.class_type_id
		` + w.String() + `
		ORDER BY s.start_time DESC, b.booked_at ASC
	`

	rows, err := r.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var result []*model.BookingSummary
	for rows.Next() {
		var b model.BookingSummary
		err := scanBooking(rows, &b.Booking,
			&b.UserName,
			&b.InstructorID,
			&b.InstructorName,
			&b.ClassTypeName,
			&b.StartTime,
			&b.DurationMinutes,
		)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		result = append(result, &b)
	}

	return result, rows.Err()
}
