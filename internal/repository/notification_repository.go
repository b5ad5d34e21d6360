package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/Freeeeeet/studio_booking/internal/repository/base"
)

type NotificationRepository struct {
	db *base.Repository
}

func NewNotificationRepository(db *base.Repository) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create сохраняет уведомление пользователю
func (r *NotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	query := `
		INSERT INTO notifications (event_id, user_id, kind, title, message, related_entity_type, related_entity_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (event_id) DO NOTHING
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		n.EventID,
		n.UserID,
		n.Kind,
		n.Title,
		n.Message,
		n.RelatedEntityType,
		n.RelatedEntityID,
	).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		if base.IsNotFound(err) {
			return nil // уже сохранено
		}
		return fmt.Errorf("create notification: %w", err)
	}

	return nil
}
