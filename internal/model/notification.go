package model

import "time"

const (
	NotificationBookingCancelled  = "booking_cancelled"
	NotificationScheduleCancelled = "schedule_cancelled"
)

type Notification struct {
	ID                int64          `json:"id"`
	EventID           string         `json:"event_id"`
	UserID            int64          `json:"user_id"`
	Kind              string         `json:"kind"`
	Title             string         `json:"title"`
	Message           string         `json:"message"`
	RelatedEntityType string         `json:"related_entity_type"`
	RelatedEntityID   int64          `json:"related_entity_id"`
	Payload           map[string]any `json:"payload,omitempty"`
	IsRead            bool           `json:"is_read"`
	CreatedAt         time.Time      `json:"created_at"`
}
