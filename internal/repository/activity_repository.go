package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/Freeeeeet/studio_booking/internal/repository/base"
)

type ActivityRepository struct {
	db *base.Repository
}

func NewActivityRepository(db *base.Repository) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create сохраняет запись журнала действий
func (r *ActivityRepository) Create(ctx context.Context, entry *model.ActivityLog) error {
	query := `
		INSERT INTO activity_logs (actor_id, action, target_type, target_id, details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	details := entry.Details
	if details == nil {
		details = map[string]any{}
	}

	err := r.db.QueryRow(ctx, query,
		entry.ActorID,
		entry.Action,
		entry.TargetType,
		entry.TargetID,
		details,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("create activity log: %w", err)
	}

	return nil
}
