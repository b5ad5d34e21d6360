package model

import "time"

const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionCancel = "cancel"
	ActionDelete = "delete"
)

const (
	TargetSchedule = "schedule"
	TargetBooking  = "booking"
)

// ActivityLog - запись журнала действий
type ActivityLog struct {
	ID         int64          `json:"id"`
	ActorID    int64          `json:"actor_id"`
	Action     string         `json:"action"`
	TargetType string         `json:"target_type"`
	TargetID   int64          `json:"target_id"`
	Details    map[string]any `json:"details"`
	CreatedAt  time.Time      `json:"created_at"`
}
