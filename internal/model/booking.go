package model

import "time"

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed" // Подтверждено, занимает место
	BookingStatusCancelled BookingStatus = "cancelled" // Отменено
)

const BookingTypeRegular = "regular"

type Booking struct {
	ID           int64         `json:"id"`
	ScheduleID   int64         `json:"schedule_id"`
	UserID       int64         `json:"user_id"`
	MembershipID *int64        `json:"membership_id"`
	BookingType  string        `json:"booking_type"`
	Status       BookingStatus `json:"status"`
	BookedAt     time.Time     `json:"booked_at"`
	CancelledAt  *time.Time    `json:"cancelled_at"`
	CancelReason *string       `json:"cancel_reason"`
}

// IsConfirmed проверяет что бронирование занимает место
func (b *Booking) IsConfirmed() bool {
	return b.Status == BookingStatusConfirmed
}

// BookingSummary - бронирование с данными занятия и участников
type BookingSummary struct {
	Booking
	UserName        string    `json:"user_name"`
	InstructorID    int64     `json:"instructor_id"`
	InstructorName  string    `json:"instructor_name"`
	ClassTypeName   string    `json:"class_type_name"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
}
