package model

import "time"

type ScheduleStatus string

const (
	ScheduleStatusScheduled  ScheduleStatus = "scheduled"   // Открыто для записи
	ScheduleStatusInProgress ScheduleStatus = "in_progress" // Занятие идёт
	ScheduleStatusCompleted  ScheduleStatus = "completed"   // Завершено
	ScheduleStatusCancelled  ScheduleStatus = "cancelled"   // Отменено
)

// IsTerminal возвращает true для статусов, из которых нет переходов
func (s ScheduleStatus) IsTerminal() bool {
	return s == ScheduleStatusCancelled || s == ScheduleStatusCompleted
}

// Valid проверяет что статус известен
func (s ScheduleStatus) Valid() bool {
	switch s {
	case ScheduleStatusScheduled, ScheduleStatusInProgress, ScheduleStatusCompleted, ScheduleStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo проверяет допустимость перехода статуса.
// scheduled → in_progress → completed, scheduled → cancelled.
func (s ScheduleStatus) CanTransitionTo(next ScheduleStatus) bool {
	switch s {
	case ScheduleStatusScheduled:
		return next == ScheduleStatusInProgress || next == ScheduleStatusCompleted || next == ScheduleStatusCancelled
	case ScheduleStatusInProgress:
		return next == ScheduleStatusCompleted
	}
	return false
}

// MaxDurationMinutes - верхняя граница длительности занятия (сутки).
// Совпадает с CHECK на schedules.duration_minutes и class_types.duration_minutes.
const MaxDurationMinutes = 24 * 60

// ValidDuration проверяет что длительность в пределах (0, MaxDurationMinutes]
func ValidDuration(minutes int) bool {
	return minutes > 0 && minutes <= MaxDurationMinutes
}

// Schedule - одно занятие определённого типа у одного инструктора
type Schedule struct {
	ID              int64          `json:"id"`
	ClassTypeID     int64          `json:"class_type_id"`
	InstructorID    int64          `json:"instructor_id"`
	StartTime       time.Time      `json:"start_time"`
	DurationMinutes int            `json:"duration_minutes"`
	MaxCapacity     int            `json:"max_capacity"`
	CurrentCapacity int            `json:"current_capacity"` // == число confirmed бронирований
	Status          ScheduleStatus `json:"status"`
	Notes           *string        `json:"notes"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// EndTime возвращает конец интервала [start, start+duration)
func (s *Schedule) EndTime() time.Time {
	return s.StartTime.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

// IsFull проверяет заполненность занятия
func (s *Schedule) IsFull() bool {
	return s.CurrentCapacity >= s.MaxCapacity
}

// ScheduleSummary - занятие с производными полями для списков
type ScheduleSummary struct {
	Schedule
	InstructorName string `json:"instructor_name"`
	ClassTypeName  string `json:"class_type_name"`
	BookedCount    int    `json:"booked_count"`
	MyBooked       bool   `json:"my_booked"` // у участника есть подтверждённая запись
}

// Overlaps проверяет пересечение полуоткрытых интервалов [aStart, aEnd) и [bStart, bEnd)
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
