package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/Freeeeeet/studio_booking/internal/repository"
)

// Transactor выполняет fn в одной транзакции (base.TxManager)
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ScheduleStore - хранилище занятий (repository.ScheduleRepository)
type ScheduleStore interface {
	Create(ctx context.Context, s *model.Schedule) error
	GetByID(ctx context.Context, id int64) (*model.Schedule, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*model.Schedule, error)
	Update(ctx context.Context, s *model.Schedule) error
	Delete(ctx context.Context, id int64) error
	LockInstructor(ctx context.Context, instructorID int64) error
	ListActiveByInstructorInRange(ctx context.Context, instructorID int64, from, to time.Time, excludeID int64) ([]*model.Schedule, error)
	IncrementCapacity(ctx context.Context, id int64) (bool, error)
	DecrementCapacity(ctx context.Context, id int64) error
	List(ctx context.Context, f repository.ScheduleFilter) ([]*model.ScheduleSummary, error)
	AdvanceStatuses(ctx context.Context, now time.Time) (started, completed int64, err error)
}

// BookingStore - хранилище бронирований (repository.BookingRepository)
type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id int64) (*model.Booking, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*model.Booking, error)
	GetActive(ctx context.Context, scheduleID, userID int64) (*model.Booking, error)
	Cancel(ctx context.Context, id int64, reason *string, at time.Time) error
	Delete(ctx context.Context, id int64) error
	CountConfirmed(ctx context.Context, scheduleID int64) (int, error)
	ListConfirmedUserIDs(ctx context.Context, scheduleID int64) ([]int64, error)
	List(ctx context.Context, f repository.BookingFilter) ([]*model.BookingSummary, error)
}

// UserDirectory - поиск пользователя, его роли и активности
type UserDirectory interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// ClassTypeCatalog - справочник типов занятий. Может отдавать устаревшие данные,
// окончательную проверку активности делает ScheduleStore.Create.
type ClassTypeCatalog interface {
	GetByID(ctx context.Context, id int64) (*model.ClassType, error)
	Invalidate(ctx context.Context, id int64) error
}

// Notifier доставляет уведомление пользователю. Не блокирует и не возвращает ошибок.
type Notifier interface {
	Notify(ctx context.Context, userID int64, kind string, payload map[string]any)
}

// Auditor записывает действие в журнал. Не блокирует и не возвращает ошибок.
type Auditor interface {
	Record(ctx context.Context, entry model.ActivityLog)
}
