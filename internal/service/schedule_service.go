package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/access"
	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/Freeeeeet/studio_booking/internal/repository"
	"go.uber.org/zap"
)

// CreateScheduleInput - параметры нового занятия. Duration и MaxCapacity
// берутся из типа занятия, если не заданы.
type CreateScheduleInput struct {
	InstructorID int64
	ClassTypeID  int64
	StartTime    time.Time
	Duration     *int
	MaxCapacity  *int
	Notes        *string
}

// SchedulePatch - частичное изменение занятия, nil означает "не менять"
type SchedulePatch struct {
	StartTime   *time.Time
	Duration    *int
	MaxCapacity *int
	Notes       *string
	Status      *model.ScheduleStatus
}

// ScheduleQuery - фильтры списка занятий. From включается, To нет:
// выборка за день - From = 00:00, To = 00:00 следующего дня.
type ScheduleQuery struct {
	From         *time.Time
	To           *time.Time
	ClassTypeID  *int64
	InstructorID *int64
	Status       *model.ScheduleStatus
}

type CancelAction string

const (
	CancelActionCancelled CancelAction = "cancelled" // мягкая отмена, есть подтверждённые записи
	CancelActionDeleted   CancelAction = "deleted"   // строка удалена
)

type CancelResult struct {
	Action           CancelAction `json:"action"`
	AffectedBookings int          `json:"affected_bookings"`
}

// ScheduleDetail - карточка занятия. Bookings заполняется только для персонала.
type ScheduleDetail struct {
	Schedule       *model.Schedule         `json:"schedule"`
	Bookings       []*model.BookingSummary `json:"bookings"`
	AvailableSlots int                     `json:"available_slots"`
}

type ScheduleService struct {
	tx         Transactor
	schedules  ScheduleStore
	bookings   BookingStore
	users      UserDirectory
	classTypes ClassTypeCatalog
	conflicts  *ConflictDetector
	auditor    Auditor
	notifier   Notifier
	logger     *zap.Logger
	now        func() time.Time
}

func NewScheduleService(
	tx Transactor,
	schedules ScheduleStore,
	bookings BookingStore,
	users UserDirectory,
	classTypes ClassTypeCatalog,
	auditor Auditor,
	notifier Notifier,
	logger *zap.Logger,
) *ScheduleService {
	return &ScheduleService{
		tx:         tx,
		schedules:  schedules,
		bookings:   bookings,
		users:      users,
		classTypes: classTypes,
		conflicts:  NewConflictDetector(schedules),
		auditor:    auditor,
		notifier:   notifier,
		logger:     logger,
		now:        time.Now,
	}
}

// Create создаёт занятие инструктора
func (s *ScheduleService) Create(ctx context.Context, caller access.Caller, in CreateScheduleInput) (*model.Schedule, error) {
	instructorID := in.InstructorID
	if instructorID == 0 && caller.IsInstructor() {
		instructorID = caller.ID
	}

	if err := access.CanCreateSchedule(caller, instructorID); err != nil {
		return nil, err
	}

	if instructorID <= 0 {
		return nil, fmt.Errorf("%w: instructor is required", model.ErrInvalidArgument)
	}
	if !in.StartTime.After(s.now()) {
		return nil, fmt.Errorf("%w: cannot create schedule in the past", model.ErrInvalidArgument)
	}
	if in.Duration != nil && !model.ValidDuration(*in.Duration) {
		return nil, fmt.Errorf("%w: duration must be between 1 and %d minutes", model.ErrInvalidArgument, model.MaxDurationMinutes)
	}
	if in.MaxCapacity != nil && *in.MaxCapacity <= 0 {
		return nil, fmt.Errorf("%w: max capacity must be positive", model.ErrInvalidArgument)
	}

	instructor, err := s.users.GetByID(ctx, instructorID)
	if err != nil {
		return nil, fmt.Errorf("get instructor: %w", err)
	}
	if instructor == nil || !instructor.IsInstructor() {
		return nil, fmt.Errorf("%w: instructor %d not found or inactive", model.ErrNotFound, instructorID)
	}

	classType, err := s.classTypes.GetByID(ctx, in.ClassTypeID)
	if err != nil {
		return nil, fmt.Errorf("get class type: %w", err)
	}
	if classType == nil || !classType.IsActive {
		return nil, fmt.Errorf("%w: class type %d not found or inactive", model.ErrNotFound, in.ClassTypeID)
	}

	schedule := &model.Schedule{
		ClassTypeID:     classType.ID,
		InstructorID:    instructorID,
		StartTime:       in.StartTime,
		DurationMinutes: classType.DurationMinutes,
		MaxCapacity:     classType.MaxCapacity,
		CurrentCapacity: 0,
		Status:          model.ScheduleStatusScheduled,
		Notes:           in.Notes,
	}
	if in.Duration != nil {
		schedule.DurationMinutes = *in.Duration
	}
	if in.MaxCapacity != nil {
		schedule.MaxCapacity = *in.MaxCapacity
	}
	if !model.ValidDuration(schedule.DurationMinutes) {
		return nil, fmt.Errorf("%w: duration must be between 1 and %d minutes", model.ErrInvalidArgument, model.MaxDurationMinutes)
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.schedules.LockInstructor(ctx, instructorID); err != nil {
			return err
		}

		conflict, err := s.conflicts.HasConflict(ctx, instructorID, schedule.StartTime, schedule.DurationMinutes, 0)
		if err != nil {
			return err
		}
		if conflict {
			return fmt.Errorf("%w: instructor already has a schedule at this time", model.ErrConflict)
		}

		return s.schedules.Create(ctx, schedule)
	})
	if errors.Is(err, model.ErrNotFound) {
		// справочник из кеша устарел: в базе тип уже неактивен
		if ierr := s.classTypes.Invalidate(ctx, classType.ID); ierr != nil {
			s.logger.Warn("Failed to invalidate class type cache",
				zap.Int64("class_type_id", classType.ID),
				zap.Error(ierr))
		}
	}
	if err != nil {
		s.logger.Debug("Schedule creation rejected",
			zap.Int64("instructor_id", instructorID),
			zap.Time("start_time", in.StartTime),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Schedule created",
		zap.Int64("schedule_id", schedule.ID),
		zap.Int64("instructor_id", instructorID),
		zap.Int64("class_type_id", classType.ID),
		zap.Time("start_time", schedule.StartTime),
		zap.Int("duration", schedule.DurationMinutes),
		zap.Int("max_capacity", schedule.MaxCapacity),
	)

	s.auditor.Record(ctx, model.ActivityLog{
		ActorID:    caller.ID,
		Action:     model.ActionCreate,
		TargetType: model.TargetSchedule,
		TargetID:   schedule.ID,
		Details: map[string]any{
			"start_time":      schedule.StartTime,
			"class_type_name": classType.Name,
			"instructor_name": instructor.Name,
			"created_by":      string(caller.Role),
		},
	})

	return schedule, nil
}

// Update изменяет время, длительность, вместимость, заметки или статус занятия
func (s *ScheduleService) Update(ctx context.Context, caller access.Caller, scheduleID int64, patch SchedulePatch) (*model.Schedule, error) {
	var updated *model.Schedule
	var changes map[string]any

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.schedules.GetByIDForUpdate(ctx, scheduleID)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("%w: schedule %d", model.ErrNotFound, scheduleID)
		}

		if err := access.CanManageSchedule(caller, current); err != nil {
			return err
		}

		if current.Status.IsTerminal() {
			return fmt.Errorf("%w: schedule is %s", model.ErrConflict, current.Status)
		}

		next, diff, err := s.applyPatch(caller, current, patch)
		if err != nil {
			return err
		}
		if len(diff) == 0 {
			return fmt.Errorf("%w: no changes", model.ErrInvalidArgument)
		}

		_, startChanged := diff["start_time"]
		_, durationChanged := diff["duration_minutes"]
		if (startChanged || durationChanged) && next.Status != model.ScheduleStatusCancelled {
			if err := s.schedules.LockInstructor(ctx, current.InstructorID); err != nil {
				return err
			}

			conflict, err := s.conflicts.HasConflict(ctx, current.InstructorID, next.StartTime, next.DurationMinutes, current.ID)
			if err != nil {
				return err
			}
			if conflict {
				return fmt.Errorf("%w: instructor already has a schedule at this time", model.ErrConflict)
			}
		}

		if err := s.schedules.Update(ctx, next); err != nil {
			return err
		}

		updated = next
		changes = diff
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Schedule updated",
		zap.Int64("schedule_id", scheduleID),
		zap.Int64("actor_id", caller.ID),
		zap.Any("changes", changes),
	)

	s.auditor.Record(ctx, model.ActivityLog{
		ActorID:    caller.ID,
		Action:     model.ActionUpdate,
		TargetType: model.TargetSchedule,
		TargetID:   scheduleID,
		Details: map[string]any{
			"changes":    changes,
			"updated_by": string(caller.Role),
		},
	})

	return updated, nil
}

// applyPatch проверяет изменения и возвращает новое состояние и реально изменённые поля
func (s *ScheduleService) applyPatch(caller access.Caller, current *model.Schedule, patch SchedulePatch) (*model.Schedule, map[string]any, error) {
	next := *current
	diff := make(map[string]any)

	if patch.StartTime != nil && !patch.StartTime.Equal(current.StartTime) {
		if !patch.StartTime.After(s.now()) {
			return nil, nil, fmt.Errorf("%w: cannot move schedule to the past", model.ErrInvalidArgument)
		}
		next.StartTime = *patch.StartTime
		diff["start_time"] = next.StartTime
	}

	if patch.Duration != nil && *patch.Duration != current.DurationMinutes {
		if !model.ValidDuration(*patch.Duration) {
			return nil, nil, fmt.Errorf("%w: duration must be between 1 and %d minutes", model.ErrInvalidArgument, model.MaxDurationMinutes)
		}
		next.DurationMinutes = *patch.Duration
		diff["duration_minutes"] = next.DurationMinutes
	}

	if patch.MaxCapacity != nil && *patch.MaxCapacity != current.MaxCapacity {
		if *patch.MaxCapacity <= 0 {
			return nil, nil, fmt.Errorf("%w: max capacity must be positive", model.ErrInvalidArgument)
		}
		if *patch.MaxCapacity < current.CurrentCapacity {
			return nil, nil, fmt.Errorf("%w: max capacity %d is below current bookings %d",
				model.ErrInvalidArgument, *patch.MaxCapacity, current.CurrentCapacity)
		}
		next.MaxCapacity = *patch.MaxCapacity
		diff["max_capacity"] = next.MaxCapacity
	}

	if patch.Notes != nil && (current.Notes == nil || *current.Notes != *patch.Notes) {
		notes := *patch.Notes
		next.Notes = &notes
		diff["notes"] = notes
	}

	if patch.Status != nil && *patch.Status != current.Status {
		status := *patch.Status
		if !status.Valid() || !current.Status.CanTransitionTo(status) {
			return nil, nil, fmt.Errorf("%w: cannot change status from %s to %s",
				model.ErrInvalidArgument, current.Status, status)
		}
		if status == model.ScheduleStatusCancelled && !caller.IsAdmin() {
			return nil, nil, fmt.Errorf("%w: only administrators may set cancelled status directly", model.ErrForbidden)
		}
		next.Status = status
		diff["status"] = string(status)
	}

	return &next, diff, nil
}

// CancelOrDelete отменяет занятие с подтверждёнными записями или удаляет занятие без них
func (s *ScheduleService) CancelOrDelete(ctx context.Context, caller access.Caller, scheduleID int64) (*CancelResult, error) {
	var result *CancelResult
	var schedule *model.Schedule
	var affectedUsers []int64

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.schedules.GetByIDForUpdate(ctx, scheduleID)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("%w: schedule %d", model.ErrNotFound, scheduleID)
		}

		if err := access.CanManageSchedule(caller, current); err != nil {
			return err
		}

		if current.Status == model.ScheduleStatusCancelled {
			return fmt.Errorf("%w: schedule is already cancelled", model.ErrConflict)
		}

		confirmed, err := s.bookings.CountConfirmed(ctx, scheduleID)
		if err != nil {
			return err
		}

		if confirmed == 0 {
			if err := s.schedules.Delete(ctx, scheduleID); err != nil {
				return err
			}
			schedule = current
			result = &CancelResult{Action: CancelActionDeleted}
			return nil
		}

		if !current.Status.CanTransitionTo(model.ScheduleStatusCancelled) {
			return fmt.Errorf("%w: schedule is %s and has bookings", model.ErrConflict, current.Status)
		}

		affectedUsers, err = s.bookings.ListConfirmedUserIDs(ctx, scheduleID)
		if err != nil {
			return err
		}

		// current_capacity остаётся снимком на момент отмены
		current.Status = model.ScheduleStatusCancelled
		if err := s.schedules.Update(ctx, current); err != nil {
			return err
		}

		schedule = current
		result = &CancelResult{Action: CancelActionCancelled, AffectedBookings: confirmed}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Schedule removed",
		zap.Int64("schedule_id", scheduleID),
		zap.Int64("actor_id", caller.ID),
		zap.String("action", string(result.Action)),
		zap.Int("affected_bookings", result.AffectedBookings),
	)

	if result.Action == CancelActionDeleted {
		s.auditor.Record(ctx, model.ActivityLog{
			ActorID:    caller.ID,
			Action:     model.ActionDelete,
			TargetType: model.TargetSchedule,
			TargetID:   scheduleID,
			Details:    map[string]any{"reason": "schedule deleted"},
		})
		return result, nil
	}

	s.auditor.Record(ctx, model.ActivityLog{
		ActorID:    caller.ID,
		Action:     model.ActionCancel,
		TargetType: model.TargetSchedule,
		TargetID:   scheduleID,
		Details: map[string]any{
			"reason":            "schedule cancelled",
			"affected_bookings": result.AffectedBookings,
		},
	})

	for _, userID := range affectedUsers {
		s.notifier.Notify(ctx, userID, model.NotificationScheduleCancelled, map[string]any{
			"schedule_id": scheduleID,
			"start_time":  schedule.StartTime,
		})
	}

	return result, nil
}

// Query получает занятия, видимые вызывающему
func (s *ScheduleService) Query(ctx context.Context, caller access.Caller, q ScheduleQuery) ([]*model.ScheduleSummary, error) {
	scope, err := access.ScheduleScope(caller)
	if err != nil {
		return nil, err
	}

	if q.InstructorID != nil {
		if err := access.NarrowSchedulesByInstructor(caller, *q.InstructorID); err != nil {
			return nil, err
		}
	}
	if q.Status != nil && !q.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", model.ErrInvalidArgument, *q.Status)
	}
	if q.From != nil && q.To != nil && q.To.Before(*q.From) {
		return nil, fmt.Errorf("%w: date range end is before start", model.ErrInvalidArgument)
	}

	var viewerID int64
	if caller.IsMember() {
		viewerID = caller.ID
	}

	schedules, err := s.schedules.List(ctx, repository.ScheduleFilter{
		Scope:        scope,
		ViewerID:     viewerID,
		From:         q.From,
		To:           q.To,
		ClassTypeID:  q.ClassTypeID,
		InstructorID: q.InstructorID,
		Status:       q.Status,
	})
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}

	return schedules, nil
}

// Get получает карточку занятия со списком активных записей для персонала
func (s *ScheduleService) Get(ctx context.Context, caller access.Caller, scheduleID int64) (*ScheduleDetail, error) {
	schedule, err := s.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	if schedule == nil {
		return nil, fmt.Errorf("%w: schedule %d", model.ErrNotFound, scheduleID)
	}

	if err := access.CanViewSchedule(caller, schedule); err != nil {
		return nil, err
	}

	detail := &ScheduleDetail{
		Schedule:       schedule,
		Bookings:       []*model.BookingSummary{},
		AvailableSlots: max(schedule.MaxCapacity-schedule.CurrentCapacity, 0),
	}

	if caller.IsMember() {
		return detail, nil
	}

	bookings, err := s.bookings.List(ctx, repository.BookingFilter{
		Scope:            access.All(),
		ScheduleID:       &scheduleID,
		ExcludeCancelled: true,
	})
	if err != nil {
		return nil, fmt.Errorf("list schedule bookings: %w", err)
	}
	if bookings != nil {
		detail.Bookings = bookings
	}

	return detail, nil
}

// AdvanceStatuses выполняет переходы по времени: scheduled → in_progress → completed
func (s *ScheduleService) AdvanceStatuses(ctx context.Context, now time.Time) (started, completed int64, err error) {
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		started, completed, err = s.schedules.AdvanceStatuses(ctx, now)
		return err
	})
	if err != nil {
		return 0, 0, fmt.Errorf("advance schedule statuses: %w", err)
	}

	if started > 0 || completed > 0 {
		s.logger.Info("Schedule statuses advanced",
			zap.Int64("started", started),
			zap.Int64("completed", completed),
		)
	}

	return started, completed, nil
}
