package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/model"
)

// ConflictDetector проверяет пересечение занятия с другими занятиями инструктора
type ConflictDetector struct {
	schedules ScheduleStore
}

func NewConflictDetector(schedules ScheduleStore) *ConflictDetector {
	return &ConflictDetector{schedules: schedules}
}

// HasConflict возвращает true, если [start, start+duration) пересекается
// с любым неотменённым занятием инструктора, кроме excludeID (0 - без исключения).
// Вызывается внутри транзакции вызывающего.
func (d *ConflictDetector) HasConflict(ctx context.Context, instructorID int64, start time.Time, durationMinutes int, excludeID int64) (bool, error) {
	end := start.Add(time.Duration(durationMinutes) * time.Minute)

	candidates, err := d.schedules.ListActiveByInstructorInRange(ctx, instructorID, start, end, excludeID)
	if err != nil {
		return false, fmt.Errorf("get instructor schedules: %w", err)
	}

	for _, c := range candidates {
		if c.ID == excludeID || c.Status == model.ScheduleStatusCancelled {
			continue
		}
		if model.Overlaps(start, end, c.StartTime, c.EndTime()) {
			return true, nil
		}
	}

	return false, nil
}
