package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/access"
	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/Freeeeeet/studio_booking/internal/repository"
	"go.uber.org/zap"
)

type CreateBookingInput struct {
	ScheduleID   int64
	UserID       int64 // 0 - записать вызывающего
	MembershipID *int64
	BookingType  string
}

// BookingQuery - фильтры списка бронирований. [From, To) ограничивает начало занятия.
type BookingQuery struct {
	UserID     *int64
	ScheduleID *int64
	Status     *model.BookingStatus
	From       *time.Time
	To         *time.Time
}

type BookingService struct {
	tx        Transactor
	schedules ScheduleStore
	bookings  BookingStore
	users     UserDirectory
	auditor   Auditor
	notifier  Notifier
	logger    *zap.Logger
	now       func() time.Time
}

func NewBookingService(
	tx Transactor,
	schedules ScheduleStore,
	bookings BookingStore,
	users UserDirectory,
	auditor Auditor,
	notifier Notifier,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		tx:        tx,
		schedules: schedules,
		bookings:  bookings,
		users:     users,
		auditor:   auditor,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
	}
}

// Create записывает пользователя на занятие
func (s *BookingService) Create(ctx context.Context, caller access.Caller, in CreateBookingInput) (*model.Booking, error) {
	userID := in.UserID
	if userID == 0 {
		userID = caller.ID
	}

	if err := access.CanBookFor(caller, userID); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, fmt.Errorf("%w: user %d not found or inactive", model.ErrNotFound, userID)
	}

	bookingType := in.BookingType
	if bookingType == "" {
		bookingType = model.BookingTypeRegular
	}

	booking := &model.Booking{
		ScheduleID:   in.ScheduleID,
		UserID:       userID,
		MembershipID: in.MembershipID,
		BookingType:  bookingType,
		Status:       model.BookingStatusConfirmed,
	}

	var schedule *model.Schedule

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		sched, err := s.schedules.GetByIDForUpdate(ctx, in.ScheduleID)
		if err != nil {
			return err
		}
		if sched == nil || sched.Status != model.ScheduleStatusScheduled {
			return fmt.Errorf("%w: schedule %d not found or not open for booking", model.ErrNotFound, in.ScheduleID)
		}

		if err := access.CanBookInto(caller, sched); err != nil {
			return err
		}

		existing, err := s.bookings.GetActive(ctx, in.ScheduleID, userID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: user already booked this schedule", model.ErrConflict)
		}

		if sched.IsFull() {
			return fmt.Errorf("%w: schedule is full", model.ErrConflict)
		}

		if err := s.bookings.Create(ctx, booking); err != nil {
			return err
		}

		ok, err := s.schedules.IncrementCapacity(ctx, sched.ID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: schedule is full", model.ErrConflict)
		}
		sched.CurrentCapacity++

		schedule = sched
		return nil
	})
	if err != nil {
		s.logger.Debug("Booking rejected",
			zap.Int64("schedule_id", in.ScheduleID),
			zap.Int64("user_id", userID),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Booking created",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("schedule_id", schedule.ID),
		zap.Int64("user_id", userID),
		zap.Int("current_capacity", schedule.CurrentCapacity),
		zap.Int("max_capacity", schedule.MaxCapacity),
	)

	s.auditor.Record(ctx, model.ActivityLog{
		ActorID:    caller.ID,
		Action:     model.ActionCreate,
		TargetType: model.TargetBooking,
		TargetID:   booking.ID,
		Details: map[string]any{
			"schedule_id":  schedule.ID,
			"user_id":      userID,
			"booking_type": bookingType,
			"start_time":   schedule.StartTime,
		},
	})

	return booking, nil
}

// lockBooking блокирует строку занятия, затем строку бронирования.
// Порядок блокировок общий с Create: сначала занятие.
func (s *BookingService) lockBooking(ctx context.Context, bookingID int64) (*model.Booking, *model.Schedule, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	if b == nil {
		return nil, nil, fmt.Errorf("%w: booking %d", model.ErrNotFound, bookingID)
	}

	sched, err := s.schedules.GetByIDForUpdate(ctx, b.ScheduleID)
	if err != nil {
		return nil, nil, err
	}
	if sched == nil {
		return nil, nil, fmt.Errorf("%w: schedule %d", model.ErrNotFound, b.ScheduleID)
	}

	b, err = s.bookings.GetByIDForUpdate(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	if b == nil {
		return nil, nil, fmt.Errorf("%w: booking %d", model.ErrNotFound, bookingID)
	}

	return b, sched, nil
}

// Cancel отменяет бронирование и освобождает место
func (s *BookingService) Cancel(ctx context.Context, caller access.Caller, bookingID int64, reason *string) (*model.Booking, error) {
	var booking *model.Booking
	var schedule *model.Schedule
	var released bool

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		b, sched, err := s.lockBooking(ctx, bookingID)
		if err != nil {
			return err
		}

		if err := access.CanCancelBooking(caller, b, sched); err != nil {
			return err
		}

		if b.Status == model.BookingStatusCancelled {
			return fmt.Errorf("%w: booking is already cancelled", model.ErrConflict)
		}

		at := s.now()
		if err := s.bookings.Cancel(ctx, b.ID, reason, at); err != nil {
			return err
		}

		released = b.IsConfirmed()
		if released {
			if err := s.schedules.DecrementCapacity(ctx, sched.ID); err != nil {
				return err
			}
		}

		b.Status = model.BookingStatusCancelled
		b.CancelledAt = &at
		b.CancelReason = reason

		booking = b
		schedule = sched
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Booking cancelled",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("schedule_id", schedule.ID),
		zap.Int64("user_id", booking.UserID),
		zap.Int64("actor_id", caller.ID),
		zap.Bool("released", released),
	)

	s.notifier.Notify(ctx, booking.UserID, model.NotificationBookingCancelled, map[string]any{
		"booking_id":  booking.ID,
		"schedule_id": schedule.ID,
		"start_time":  schedule.StartTime,
		"reason":      derefOr(reason, ""),
	})

	s.auditor.Record(ctx, model.ActivityLog{
		ActorID:    caller.ID,
		Action:     model.ActionCancel,
		TargetType: model.TargetBooking,
		TargetID:   booking.ID,
		Details: map[string]any{
			"schedule_id":  schedule.ID,
			"user_id":      booking.UserID,
			"reason":       derefOr(reason, ""),
			"cancelled_by": string(caller.Role),
		},
	})

	return booking, nil
}

// Delete удаляет бронирование. Только администратор, без уведомления.
func (s *BookingService) Delete(ctx context.Context, caller access.Caller, bookingID int64) error {
	if err := access.RequireAdmin(caller); err != nil {
		return err
	}

	var booking *model.Booking

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		b, sched, err := s.lockBooking(ctx, bookingID)
		if err != nil {
			return err
		}

		if err := s.bookings.Delete(ctx, b.ID); err != nil {
			return err
		}

		if b.IsConfirmed() {
			if err := s.schedules.DecrementCapacity(ctx, sched.ID); err != nil {
				return err
			}
		}

		booking = b
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Booking deleted",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("schedule_id", booking.ScheduleID),
		zap.Int64("actor_id", caller.ID),
	)

	s.auditor.Record(ctx, model.ActivityLog{
		ActorID:    caller.ID,
		Action:     model.ActionDelete,
		TargetType: model.TargetBooking,
		TargetID:   booking.ID,
		Details: map[string]any{
			"schedule_id": booking.ScheduleID,
			"user_id":     booking.UserID,
			"status":      string(booking.Status),
		},
	})

	return nil
}

// Query получает бронирования, видимые вызывающему
func (s *BookingService) Query(ctx context.Context, caller access.Caller, q BookingQuery) ([]*model.BookingSummary, error) {
	scope, err := access.BookingScope(caller)
	if err != nil {
		return nil, err
	}

	if q.UserID != nil {
		if err := access.NarrowBookingsByUser(caller, *q.UserID); err != nil {
			return nil, err
		}
	}
	if q.Status != nil && *q.Status != model.BookingStatusConfirmed && *q.Status != model.BookingStatusCancelled {
		return nil, fmt.Errorf("%w: unknown status %q", model.ErrInvalidArgument, *q.Status)
	}
	if q.From != nil && q.To != nil && q.To.Before(*q.From) {
		return nil, fmt.Errorf("%w: date range end is before start", model.ErrInvalidArgument)
	}

	bookings, err := s.bookings.List(ctx, repository.BookingFilter{
		Scope:      scope,
		UserID:     q.UserID,
		ScheduleID: q.ScheduleID,
		Status:     q.Status,
		From:       q.From,
		To:         q.To,
	})
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	return bookings, nil
}

func derefOr(p *string, def string) string {
	if p == nil {
		return def
	}
	return *p
}
