package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// StatusAdvancer переводит занятия по времени (service.ScheduleService)
type StatusAdvancer interface {
	AdvanceStatuses(ctx context.Context, now time.Time) (started, completed int64, err error)
}

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	schedules StatusAdvancer
	interval  time.Duration
	logger    *zap.Logger
	now       func() time.Time
	stopChan  chan struct{}
	stopOnce  sync.Once
	done      chan struct{}
}

// NewScheduler создаёт новый планировщик
func NewScheduler(schedules StatusAdvancer, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		schedules: schedules,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler", zap.Duration("interval", s.interval))

	go s.runStatusTask(ctx)
}

// Stop останавливает фоновые задачи и ждёт завершения текущего прохода
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping background scheduler")
		close(s.stopChan)
	})
	<-s.done
}

// runStatusTask периодически переводит начавшиеся и закончившиеся занятия
func (s *Scheduler) runStatusTask(ctx context.Context) {
	defer close(s.done)

	// Первый запуск сразу при старте
	s.advance(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.advance(ctx)
		case <-s.stopChan:
			s.logger.Info("Status task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Status task stopped by context")
			return
		}
	}
}

func (s *Scheduler) advance(ctx context.Context) {
	if _, _, err := s.schedules.AdvanceStatuses(ctx, s.now()); err != nil {
		s.logger.Error("Failed to advance schedule statuses", zap.Error(err))
	}
}
