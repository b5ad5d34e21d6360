package notify

import (
	"fmt"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/google/uuid"
)

const timeLayout = "02.01.2006 15:04"

// Build собирает уведомление по виду события и его данным
func Build(userID int64, kind string, payload map[string]any) *model.Notification {
	n := &model.Notification{
		EventID: uuid.NewString(),
		UserID:  userID,
		Kind:    kind,
		Payload: payload,
	}

	when := formatTime(payload["start_time"])
	reason, _ := payload["reason"].(string)

	switch kind {
	case model.NotificationBookingCancelled:
		n.Title = "Запись отменена"
		n.Message = fmt.Sprintf("Ваша запись на занятие %s отменена.", when)
		if reason != "" {
			n.Message += "\nПричина: " + reason
		}
		n.RelatedEntityType = model.TargetBooking
		n.RelatedEntityID = int64Of(payload["booking_id"])

	case model.NotificationScheduleCancelled:
		n.Title = "Занятие отменено"
		n.Message = fmt.Sprintf("Занятие %s отменено студией.", when)
		n.RelatedEntityType = model.TargetSchedule
		n.RelatedEntityID = int64Of(payload["schedule_id"])

	default:
		n.Title = "Уведомление"
		n.Message = kind
	}

	return n
}

func formatTime(v any) string {
	t, ok := v.(time.Time)
	if !ok || t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}

func int64Of(v any) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case int:
		return int64(x)
	default:
		return 0
	}
}
